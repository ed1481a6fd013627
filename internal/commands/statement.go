package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/clinicbooks/clinicbooks/internal/importer"
	"github.com/clinicbooks/clinicbooks/internal/model"
)

func newEntriesStatementCommand(opts *rootOptions) *cobra.Command {
	var (
		ownerID, format, defaultAccount string
		regime, paymentMethod           string
		rules                           []string
		dryRun                          bool
	)

	cmd := &cobra.Command{
		Use:   "statement [file.csv]",
		Short: "Import a bank statement as entries",
		Long: `Import a bank statement export. Credits become revenue and debits become
expenses filed under the first --rule whose text appears in the description.
Without a file, every CSV waiting in <data>/import is imported and then moved
to <data>/import/processed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parser := importer.DefaultRegistry().Get(format)
			if parser == nil {
				return &model.ValidationError{
					Field:  "format",
					Reason: fmt.Sprintf("unknown format %q (have %s)", format, strings.Join(importer.DefaultRegistry().Formats(), ", ")),
				}
			}
			parsed := make([]importer.Rule, 0, len(rules))
			for _, s := range rules {
				r, err := importer.ParseRule(s)
				if err != nil {
					return err
				}
				parsed = append(parsed, r)
			}
			convert := importer.Options{
				OwnerID:        ownerID,
				Regime:         model.Regime(strings.ToUpper(regime)),
				Rules:          parsed,
				DefaultAccount: defaultAccount,
				PaymentMethod:  paymentMethod,
			}

			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				out := cmd.OutOrStdout()
				dataDir := a.cfg.Resolve(a.cfg.Store.Dir)

				var files []importer.FileInfo
				if len(args) == 1 {
					files = []importer.FileInfo{{Name: filepath.Base(args[0]), Path: args[0]}}
				} else {
					var err error
					if files, err = importer.Scan(dataDir); err != nil {
						return err
					}
					if len(files) == 0 {
						fmt.Fprintln(out, "No statements waiting in", filepath.Join(dataDir, "import"))
						return nil
					}
				}

				for _, fi := range files {
					entries, err := readStatement(parser, fi.Path, convert)
					if err != nil {
						return err
					}
					if dryRun {
						printDrafts(out, fi.Name, entries)
						continue
					}
					n, err := a.ledger.CreateAll(ctx, entries, "statement "+fi.Name)
					if err != nil {
						return fmt.Errorf("%s: imported %d entries before failing: %w", fi.Name, n, err)
					}
					fmt.Fprintf(out, "Imported %d entries from %s\n", n, fi.Name)
					if len(args) == 0 {
						if err := importer.MarkProcessed(dataDir, fi.Name); err != nil {
							return err
						}
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&ownerID, "owner", "", "owner id (required)")
	_ = cmd.MarkFlagRequired("owner")
	cmd.Flags().StringVar(&format, "format", "nubank", "statement layout: nubank or semicolon")
	cmd.Flags().StringArrayVar(&rules, "rule", nil, "match=account-id; repeatable, first match wins")
	cmd.Flags().StringVar(&defaultAccount, "default-account", "", "account for debits no rule matches")
	cmd.Flags().StringVar(&regime, "regime", "", "PF or PJ for every line (required for HIBRIDO owners)")
	cmd.Flags().StringVar(&paymentMethod, "payment-method", "", "payment method to record (default transfer)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the entries without storing them")
	return cmd
}

func readStatement(p importer.Parser, path string, opts importer.Options) ([]model.Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	txns, err := p.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return importer.ToEntries(txns, opts)
}

func printDrafts(w io.Writer, name string, entries []model.Entry) {
	fmt.Fprintf(w, "%s: %d entries\n", name, len(entries))
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tKIND\tAMOUNT\tACCOUNT\tDESCRIPTION")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.Date.Format("2006-01-02"), e.Kind, model.FormatMoney(e.Amount), e.AccountID, e.Description)
	}
	_ = tw.Flush()
}
