package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/clinicbooks/clinicbooks/internal/model"
)

func newAccountsCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage the chart of accounts",
	}
	cmd.AddCommand(
		newAccountsListCommand(opts),
		newAccountsAddCommand(opts),
		newAccountsDeactivateCommand(opts),
		newAccountsDeleteCommand(opts),
		newAccountsExportCommand(opts),
	)
	return cmd
}

func clinicOrDefault(a *app, clinicID string) string {
	if clinicID != "" {
		return clinicID
	}
	return a.cfg.Practice.ClinicID
}

func newAccountsListCommand(opts *rootOptions) *cobra.Command {
	var clinicID, deductible string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List chart accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				clinic := clinicOrDefault(a, clinicID)
				var (
					accts []model.ChartAccount
					err   error
				)
				switch deductible {
				case "":
					accts, err = a.accounts.List(ctx, clinic)
				case "true":
					accts, err = a.accounts.ListDeductible(ctx, clinic)
				case "false":
					accts, err = a.accounts.ListNonDeductible(ctx, clinic)
				default:
					err = &model.ValidationError{Field: "deductible", Reason: "must be true or false"}
				}
				if err != nil {
					return err
				}

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tDEDUCTIBLE\tACTIVE")
				for _, acct := range accts {
					fmt.Fprintf(tw, "%s\t%s\t%t\t%t\n", acct.ID, acct.Name, acct.Deductible, acct.Active)
				}
				return tw.Flush()
			})
		},
	}

	cmd.Flags().StringVar(&clinicID, "clinic-id", "", "clinic id (defaults to practice.clinic_id)")
	cmd.Flags().StringVar(&deductible, "deductible", "", "only active accounts of one class: true or false")
	return cmd
}

func newAccountsAddCommand(opts *rootOptions) *cobra.Command {
	var acct model.ChartAccount

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a chart account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				in := acct
				in.ClinicID = clinicOrDefault(a, in.ClinicID)
				in.CreatedBy = a.cfg.Practice.Actor
				created, err := a.accounts.Upsert(ctx, in)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created account %s\n", created.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&acct.Name, "name", "", "account name (required)")
	_ = cmd.MarkFlagRequired("name")
	cmd.Flags().BoolVar(&acct.Deductible, "deductible", false, "expenses reduce the PF tax base")
	cmd.Flags().StringVar(&acct.ClinicID, "clinic-id", "", "clinic id (defaults to practice.clinic_id)")
	return cmd
}

func newAccountsDeactivateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate <account-id>",
		Short: "Retire an account for new entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if err := a.accounts.Deactivate(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deactivated account %s\n", args[0])
				return nil
			})
		},
	}
}

func newAccountsDeleteCommand(opts *rootOptions) *cobra.Command {
	var replacement string

	cmd := &cobra.Command{
		Use:   "delete <account-id>",
		Short: "Delete an account, re-pointing its entries when a replacement is given",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if err := a.accounts.Delete(ctx, args[0], replacement); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted account %s\n", args[0])
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&replacement, "replacement", "", "account that takes over the deleted account's entries")
	return cmd
}

func newAccountsExportCommand(opts *rootOptions) *cobra.Command {
	var clinicID, output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the chart of accounts as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				w := cmd.OutOrStdout()
				if output != "" {
					f, err := os.Create(output)
					if err != nil {
						return fmt.Errorf("creating %s: %w", output, err)
					}
					defer f.Close()
					w = f
				}
				return a.accounts.Export(ctx, w, clinicOrDefault(a, clinicID))
			})
		},
	}

	cmd.Flags().StringVar(&clinicID, "clinic-id", "", "clinic id (defaults to practice.clinic_id)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to a file instead of stdout")
	return cmd
}
