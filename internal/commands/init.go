package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/clinicbooks/clinicbooks/internal/accounts"
	"github.com/clinicbooks/clinicbooks/internal/config"
	"github.com/clinicbooks/clinicbooks/internal/store/filestore"
	"github.com/clinicbooks/clinicbooks/internal/tax"
)

func newInitCommand() *cobra.Command {
	var name string
	var clinicID string

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new practice",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			return runInit(cmd, absDir, name, clinicID)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "practice name (required)")
	_ = cmd.MarkFlagRequired("name")
	cmd.Flags().StringVar(&clinicID, "clinic-id", "clinic-1", "id of the first clinic")

	return cmd
}

func runInit(cmd *cobra.Command, dir, name, clinicID string) error {
	cfgPath := filepath.Join(dir, config.FileName)
	if _, err := os.Stat(cfgPath); err == nil {
		return fmt.Errorf("%s already exists", cfgPath)
	}

	cfg := config.Default(name)
	cfg.Practice.ClinicID = clinicID

	for _, d := range []string{cfg.Store.Dir, "logs"} {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	if err := config.Save(cfgPath, cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	if err := tax.SaveParameters(filepath.Join(dir, cfg.Tax.ParametersFile), tax.DefaultParameters()); err != nil {
		return fmt.Errorf("writing tax parameters: %w", err)
	}

	// Seed the chart of accounts.
	ctx := zerolog.Nop().WithContext(cmd.Context())
	fs, err := filestore.Open(ctx, filepath.Join(dir, cfg.Store.Dir))
	if err != nil {
		return err
	}
	n, err := accounts.NewService(fs).SeedDefaults(ctx, clinicID)
	if err != nil {
		return fmt.Errorf("writing chart of accounts: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Initialized practice %q at %s (%d accounts)\n", name, dir, n)
	return nil
}
