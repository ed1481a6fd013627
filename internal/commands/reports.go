package commands

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/clinicbooks/clinicbooks/internal/model"
	"github.com/clinicbooks/clinicbooks/internal/tax"
)

var hundred = decimal.NewFromInt(100)

type periodFlags struct {
	month, year int
}

func (f *periodFlags) register(cmd *cobra.Command) {
	now := time.Now()
	cmd.Flags().IntVar(&f.month, "month", int(now.Month()), "month, 1-12")
	cmd.Flags().IntVar(&f.year, "year", now.Year(), "year")
}

func newAggregateCommand(opts *rootOptions) *cobra.Command {
	var ownerID string
	var pf periodFlags

	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Show a month's totals for one owner, or for the whole practice",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				out := cmd.OutOrStdout()
				if ownerID != "" {
					agg, err := a.aggregator.Aggregate(ctx, ownerID, pf.month, pf.year)
					if err != nil {
						return err
					}
					return printAggregate(out, agg)
				}

				p, err := model.NewPeriod(pf.month, pf.year)
				if err != nil {
					return err
				}
				c, err := a.consolidator.AggregateAcrossOwners(ctx, p)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Practice totals for %s (%d owners)\n", c.Period, c.Owners)
				if err := printAggregate(out, c.Totals); err != nil {
					return err
				}
				if c.UnknownEstimates > 0 {
					fmt.Fprintf(out, "%d owners have incomplete tax estimates\n", c.UnknownEstimates)
				}

				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "\nTYPE\tOWNERS\tREVENUE\tEXPENSES")
				for _, t := range c.ByPersonType {
					fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", t.PersonType, t.Owners, model.FormatMoney(t.Revenue), model.FormatMoney(t.Expenses))
				}
				fmt.Fprintln(tw, "\nCLINIC\tOWNERS\tREVENUE\tEXPENSES\tNET")
				for _, t := range c.ByClinic {
					name := t.ClinicName
					if name == "" {
						name = t.ClinicID
					}
					fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n", name, t.Owners,
						model.FormatMoney(t.Revenue), model.FormatMoney(t.Expenses), model.FormatMoney(t.NetResult))
				}
				return tw.Flush()
			})
		},
	}

	cmd.Flags().StringVar(&ownerID, "owner", "", "owner id; omit for the whole practice")
	pf.register(cmd)
	return cmd
}

func printAggregate(w io.Writer, agg model.PeriodAggregate) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	type row struct{ label, value string }
	rows := []row{
		{"Period", agg.Period().String()},
		{"Revenue PF", model.FormatMoney(agg.GrossRevenuePF)},
		{"Revenue PJ", model.FormatMoney(agg.GrossRevenuePJ)},
		{"Gross revenue", model.FormatMoney(agg.GrossRevenue())},
		{"Deductible expenses", model.FormatMoney(agg.DeductibleExpenses)},
		{"Non-deductible expenses", model.FormatMoney(agg.NonDeductibleExpenses)},
		{"Total expenses", model.FormatMoney(agg.TotalExpenses)},
		{"Fixed / variable", model.FormatMoney(agg.FixedExpenses) + " / " + model.FormatMoney(agg.VariableExpenses)},
		{"Net result", model.FormatMoney(agg.NetResult)},
		{"Entries", fmt.Sprintf("%d revenue, %d expense", agg.RevenueCount, agg.ExpenseCount)},
		{"Pending documents", fmt.Sprintf("%d", agg.PendingDocuments)},
	}
	if !agg.TotalEstimatedTax.IsZero() {
		rows = append(rows, row{"Estimated tax", model.FormatMoney(agg.TotalEstimatedTax)})
	}
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\n", r.label, r.value)
	}
	if len(agg.ExpensesByAccount) > 0 {
		fmt.Fprintln(tw, "\nACCOUNT\tDEDUCTIBLE\tTOTAL")
		for _, t := range agg.ExpensesByAccount {
			fmt.Fprintf(tw, "%s\t%t\t%s\n", t.Name, t.Deductible, model.FormatMoney(t.Total))
		}
	}
	return tw.Flush()
}

func newEstimateCommand(opts *rootOptions) *cobra.Command {
	var ownerID string
	var pf periodFlags

	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Estimate a month's PF and PJ taxes for one owner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				agg, err := a.aggregator.Aggregate(ctx, ownerID, pf.month, pf.year)
				if err != nil {
					return err
				}
				est, err := a.estimator.Estimate(ctx, agg, a.params)
				if err != nil {
					return err
				}

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintf(tw, "Period\t%s\n", agg.Period())
				fmt.Fprintf(tw, "Parameters\t%s\n", est.ParametersVersion)
				fmt.Fprintf(tw, "PF base\t%s\n", model.FormatMoney(est.PFBase))
				fmt.Fprintf(tw, "PF (carnê-leão)\t%s\n", figure(est.PF))
				if est.ZeroLiabilityExpense != nil {
					fmt.Fprintf(tw, "Deductible spending to zero PF\t%s\n", model.FormatMoney(*est.ZeroLiabilityExpense))
				}
				rbt := model.FormatMoney(est.RBT12)
				if est.Annualized {
					rbt += " (annualized)"
				}
				fmt.Fprintf(tw, "RBT12\t%s\n", rbt)
				fmt.Fprintf(tw, "Effective rate\t%s%%\n", est.EffectiveRate.Mul(hundred).StringFixed(2))
				fmt.Fprintf(tw, "PJ (Simples)\t%s\n", figure(est.PJ))
				total := model.FormatMoney(est.Total)
				if !est.TotalKnown {
					total += " (partial)"
				}
				fmt.Fprintf(tw, "Total\t%s\n", total)
				return tw.Flush()
			})
		},
	}

	cmd.Flags().StringVar(&ownerID, "owner", "", "owner id (required)")
	_ = cmd.MarkFlagRequired("owner")
	pf.register(cmd)
	return cmd
}

func figure(f tax.Figure) string {
	switch f.Status {
	case tax.StatusOK:
		return model.FormatMoney(f.Amount)
	case tax.StatusNotApplicable:
		return "n/a"
	default:
		return "unknown: " + f.Reason
	}
}

func newStatsCommand(opts *rootOptions) *cobra.Command {
	var months int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show practice-wide registration and ledger statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				now := time.Now().UTC()
				s, err := a.consolidator.Stats(ctx, now)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintf(tw, "Owners\t%d (%d active, %d new this month)\n", s.TotalOwners, s.ActiveOwners, s.NewOwnersMonth)
				for _, pt := range []model.PersonType{model.PersonPF, model.PersonPJ, model.PersonHibrido} {
					fmt.Fprintf(tw, "  %s\t%d\n", pt, s.ByPersonType[pt])
				}
				fmt.Fprintf(tw, "Entries\t%d (%d revenue, %d expense)\n", s.TotalEntries, s.RevenueEntries, s.ExpenseEntries)
				fmt.Fprintf(tw, "Lifetime revenue\t%s\n", model.FormatMoney(s.LifetimeRevenue))
				fmt.Fprintf(tw, "Lifetime expenses\t%s\n", model.FormatMoney(s.LifetimeExpenses))
				fmt.Fprintf(tw, "Balance\t%s\n", model.FormatMoney(s.Balance))
				if err := tw.Flush(); err != nil {
					return err
				}

				if months == 0 {
					return nil
				}
				points, err := a.consolidator.Growth(ctx, months, now)
				if err != nil {
					return err
				}
				tw = tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "\nMONTH\tNEW\tTOTAL")
				for _, p := range points {
					fmt.Fprintf(tw, "%s\t%d\t%d\n", p.Period, p.NewOwners, p.Cumulative)
				}
				return tw.Flush()
			})
		},
	}

	cmd.Flags().IntVar(&months, "growth", 0, "also chart registrations for this many months")
	return cmd
}
