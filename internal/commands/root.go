// Package commands implements the clinicbooks CLI.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/clinicbooks/clinicbooks/internal/buildinfo"
	"github.com/clinicbooks/clinicbooks/internal/config"
)

type rootOptions struct {
	configPath string
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:     "clinicbooks",
		Short:   "Bookkeeping and tax estimates for dental practices",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", config.FileName, "path to "+config.FileName)

	rootCmd.AddCommand(
		newInitCommand(),
		newServeCommand(opts),
		newOwnersCommand(opts),
		newAccountsCommand(opts),
		newEntriesCommand(opts),
		newAggregateCommand(opts),
		newEstimateCommand(opts),
		newStatsCommand(opts),
	)

	return rootCmd
}
