package commands

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/clinicbooks/clinicbooks/internal/ledger"
	"github.com/clinicbooks/clinicbooks/internal/model"
)

func newEntriesCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entries",
		Short: "Record and browse revenue and expenses",
	}
	cmd.AddCommand(
		newEntriesAddCommand(opts),
		newEntriesUpdateCommand(opts),
		newEntriesListCommand(opts),
		newEntriesDeleteCommand(opts),
		newEntriesExportCommand(opts),
		newEntriesImportCommand(opts),
		newEntriesStatementCommand(opts),
	)
	return cmd
}

type entryFlags struct {
	kind, date, amount, description, regime string
	paymentMethod, notes                     string
	account, cost                            string
	patient, patientTaxID                    string
	payer, payerTaxID, payerType             string
	documentIssued                           bool
}

func (f *entryFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.kind, "kind", "", "revenue or expense")
	fs.StringVar(&f.date, "date", "", "calendar date, YYYY-MM-DD (defaults to today)")
	fs.StringVar(&f.amount, "amount", "", "amount with up to two decimals")
	fs.StringVar(&f.description, "description", "", "description")
	fs.StringVar(&f.regime, "regime", "", "PF or PJ (required for HIBRIDO owners)")
	fs.StringVar(&f.paymentMethod, "payment-method", "", "pix, card, cash...")
	fs.StringVar(&f.notes, "notes", "", "free-form notes")
	fs.StringVar(&f.account, "account", "", "chart account id (expenses)")
	fs.StringVar(&f.cost, "cost", "", "fixed or variable (expenses)")
	fs.StringVar(&f.patient, "patient", "", "patient name (revenue)")
	fs.StringVar(&f.patientTaxID, "patient-tax-id", "", "patient CPF (revenue)")
	fs.StringVar(&f.payer, "payer", "", "third-party payer name (revenue)")
	fs.StringVar(&f.payerTaxID, "payer-tax-id", "", "payer CPF or CNPJ")
	fs.StringVar(&f.payerType, "payer-type", "", "payer person type, PF or PJ")
	fs.BoolVar(&f.documentIssued, "document-issued", false, "a fiscal document was issued (revenue)")
}

func (f *entryFlags) entry(ownerID string, now time.Time) (model.Entry, error) {
	e := model.Entry{
		OwnerID:        ownerID,
		Kind:           model.Kind(strings.ToLower(f.kind)),
		Description:    f.description,
		PaymentMethod:  f.paymentMethod,
		Notes:          f.notes,
		AccountID:      f.account,
		CostBehavior:   model.CostBehavior(strings.ToLower(f.cost)),
		Patient:        model.Patient{Name: f.patient, TaxID: f.patientTaxID},
		DocumentIssued: f.documentIssued,
	}

	e.Date = model.TruncateDate(now)
	if f.date != "" {
		d, err := model.ParseDate(f.date)
		if err != nil {
			return model.Entry{}, err
		}
		e.Date = d
	}
	amount, err := model.ParseMoney(f.amount)
	if err != nil {
		return model.Entry{}, err
	}
	e.Amount = amount
	if e.Regime, err = model.ParseRegime(f.regime); err != nil {
		return model.Entry{}, err
	}
	if f.payer != "" {
		e.Payer = &model.Payer{Name: f.payer, TaxID: f.payerTaxID}
		if f.payerType != "" {
			if e.Payer.PersonType, err = model.ParsePersonType(f.payerType); err != nil {
				return model.Entry{}, err
			}
		}
	}
	return e, nil
}

func newEntriesAddCommand(opts *rootOptions) *cobra.Command {
	var ownerID string
	var flags entryFlags

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a revenue or expense entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				e, err := flags.entry(ownerID, time.Now())
				if err != nil {
					return err
				}
				created, err := a.ledger.Create(ctx, e)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created entry %s (%s %s %s)\n",
					created.ID, created.Kind, model.FormatMoney(created.Amount), created.Regime)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&ownerID, "owner", "", "owner id (required)")
	_ = cmd.MarkFlagRequired("owner")
	flags.register(cmd.Flags())
	_ = cmd.MarkFlagRequired("kind")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func newEntriesUpdateCommand(opts *rootOptions) *cobra.Command {
	var flags entryFlags

	cmd := &cobra.Command{
		Use:   "update <entry-id>",
		Short: "Change fields of an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				patch, err := flags.patch(cmd.Flags())
				if err != nil {
					return err
				}
				updated, err := a.ledger.Update(ctx, args[0], patch)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated entry %s (%s %s %s)\n",
					updated.ID, updated.Kind, model.FormatMoney(updated.Amount), updated.Regime)
				return nil
			})
		},
	}

	flags.register(cmd.Flags())
	return cmd
}

// patch builds a ledger.Patch from the flags the user actually set.
func (f *entryFlags) patch(fs *pflag.FlagSet) (ledger.Patch, error) {
	var p ledger.Patch
	if fs.Changed("kind") {
		k := model.Kind(strings.ToLower(f.kind))
		p.Kind = &k
	}
	if fs.Changed("date") {
		d, err := model.ParseDate(f.date)
		if err != nil {
			return p, err
		}
		p.Date = &d
	}
	if fs.Changed("amount") {
		amount, err := model.ParseMoney(f.amount)
		if err != nil {
			return p, err
		}
		p.Amount = &amount
	}
	if fs.Changed("regime") {
		r, err := model.ParseRegime(f.regime)
		if err != nil {
			return p, err
		}
		p.Regime = &r
	}
	if fs.Changed("cost") {
		c := model.CostBehavior(strings.ToLower(f.cost))
		p.CostBehavior = &c
	}
	if fs.Changed("description") {
		p.Description = &f.description
	}
	if fs.Changed("payment-method") {
		p.PaymentMethod = &f.paymentMethod
	}
	if fs.Changed("notes") {
		p.Notes = &f.notes
	}
	if fs.Changed("account") {
		p.AccountID = &f.account
	}
	if fs.Changed("patient") || fs.Changed("patient-tax-id") {
		p.Patient = &model.Patient{Name: f.patient, TaxID: f.patientTaxID}
	}
	if fs.Changed("payer") {
		if f.payer == "" {
			p.ClearPayer = true
		} else {
			payer := &model.Payer{Name: f.payer, TaxID: f.payerTaxID}
			if f.payerType != "" {
				pt, err := model.ParsePersonType(f.payerType)
				if err != nil {
					return p, err
				}
				payer.PersonType = pt
			}
			p.Payer = payer
		}
	}
	if fs.Changed("document-issued") {
		p.DocumentIssued = &f.documentIssued
	}
	return p, nil
}

type filterFlags struct {
	from, to, kind, regime, account, text string
}

func (f *filterFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.from, "from", "", "first date, YYYY-MM-DD")
	fs.StringVar(&f.to, "to", "", "last date, YYYY-MM-DD")
	fs.StringVar(&f.kind, "kind", "", "revenue or expense")
	fs.StringVar(&f.regime, "regime", "", "PF or PJ")
	fs.StringVar(&f.account, "account", "", "chart account id")
	fs.StringVar(&f.text, "q", "", "search description, patient and payer")
}

func (f *filterFlags) filter() (model.EntryFilter, error) {
	filter := model.EntryFilter{AccountID: f.account, Text: f.text}
	var err error
	if f.from != "" {
		if filter.From, err = model.ParseDate(f.from); err != nil {
			return filter, err
		}
	}
	if f.to != "" {
		if filter.To, err = model.ParseDate(f.to); err != nil {
			return filter, err
		}
	}
	if f.kind != "" {
		filter.Kind = model.Kind(strings.ToLower(f.kind))
		if !filter.Kind.Valid() {
			return filter, &model.ValidationError{Field: "kind", Reason: "must be revenue or expense"}
		}
	}
	if filter.Regime, err = model.ParseRegime(f.regime); err != nil {
		return filter, err
	}
	return filter, nil
}

func newEntriesListCommand(opts *rootOptions) *cobra.Command {
	var ownerID string
	var flags filterFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List an owner's entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				filter, err := flags.filter()
				if err != nil {
					return err
				}
				entries, err := a.ledger.List(ctx, ownerID, filter)
				if err != nil {
					return err
				}

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tDATE\tKIND\tREGIME\tAMOUNT\tDESCRIPTION")
				for _, e := range entries {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
						e.ID, e.Date.Format(model.DateFormat), e.Kind, e.Regime, model.FormatMoney(e.Amount), e.Description)
				}
				return tw.Flush()
			})
		},
	}

	cmd.Flags().StringVar(&ownerID, "owner", "", "owner id (required)")
	_ = cmd.MarkFlagRequired("owner")
	flags.register(cmd.Flags())
	return cmd
}

func newEntriesDeleteCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <entry-id>",
		Short: "Delete an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if err := a.ledger.Delete(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted entry %s\n", args[0])
				return nil
			})
		},
	}
}

func newEntriesExportCommand(opts *rootOptions) *cobra.Command {
	var ownerID, output string
	var flags filterFlags

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export an owner's entries as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				filter, err := flags.filter()
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				if output != "" {
					f, err := os.Create(output)
					if err != nil {
						return fmt.Errorf("creating %s: %w", output, err)
					}
					defer f.Close()
					w = f
				}
				return a.ledger.Export(ctx, w, ownerID, filter)
			})
		},
	}

	cmd.Flags().StringVar(&ownerID, "owner", "", "owner id (required)")
	_ = cmd.MarkFlagRequired("owner")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to a file instead of stdout")
	flags.register(cmd.Flags())
	return cmd
}

func newEntriesImportCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import entries from a ledger CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("opening %s: %w", args[0], err)
				}
				defer f.Close()

				n, err := a.ledger.Import(ctx, f)
				if err != nil {
					return fmt.Errorf("imported %d entries before failing: %w", n, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d entries\n", n)
				return nil
			})
		},
	}
}
