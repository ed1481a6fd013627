package consolidate

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/clinicbooks/clinicbooks/internal/model"
)

// TypeTotal sums the owners of one person type.
type TypeTotal struct {
	PersonType model.PersonType
	Owners     int
	Revenue    decimal.Decimal
	Expenses   decimal.Decimal
}

// ClinicTotal sums the owners of one clinic.
type ClinicTotal struct {
	ClinicID   string
	ClinicName string
	Owners     int
	Revenue    decimal.Decimal
	Expenses   decimal.Decimal
	NetResult  decimal.Decimal
}

// Consolidated is the practice-wide view of one period.
type Consolidated struct {
	Period model.Period
	Owners int
	// Totals sums every owner's aggregate; its OwnerID and PersonType are
	// empty.
	Totals       model.PeriodAggregate
	ByPersonType []TypeTotal
	ByClinic     []ClinicTotal
	PerOwner     []model.PeriodAggregate // in owner id order

	// Set only when estimates were requested. UnknownEstimates counts owners
	// whose total could not be fully estimated.
	Estimated        bool
	UnknownEstimates int
}

// AggregateAcrossOwners sums every owner's aggregate for p. Owners with no
// entries contribute zeros. Owners are aggregated concurrently; the first
// failure cancels the rest and no partial result is returned.
func (c *Consolidator) AggregateAcrossOwners(ctx context.Context, p model.Period) (Consolidated, error) {
	if err := p.Validate(); err != nil {
		return Consolidated{}, err
	}
	owners, err := c.store.ListOwners(ctx)
	if err != nil {
		return Consolidated{}, fmt.Errorf("listing owners: %w", err)
	}

	aggs := make([]model.PeriodAggregate, len(owners))
	known := make([]bool, len(owners))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Concurrency)
	for i, o := range owners {
		g.Go(func() error {
			agg, err := c.aggregator.Aggregate(gctx, o.ID, p.Month, p.Year)
			if err != nil {
				return fmt.Errorf("owner %s: %w", o.ID, err)
			}
			known[i] = true
			if c.opts.Estimator != nil {
				est, err := c.opts.Estimator.Estimate(gctx, agg, c.opts.Parameters)
				if err != nil {
					return fmt.Errorf("owner %s: %w", o.ID, err)
				}
				est.Apply(&agg)
				known[i] = est.TotalKnown
			}
			aggs[i] = agg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Consolidated{}, err
	}
	if err := ctx.Err(); err != nil {
		return Consolidated{}, err
	}

	out := Consolidated{
		Period:    p,
		Owners:    len(owners),
		Totals:    model.EmptyAggregate("", p),
		PerOwner:  aggs,
		Estimated: c.opts.Estimator != nil,
	}
	byType := make(map[model.PersonType]*TypeTotal)
	byClinic := make(map[string]*ClinicTotal)
	for i, agg := range aggs {
		o := owners[i]
		out.Totals = out.Totals.Add(agg)
		if !known[i] {
			out.UnknownEstimates++
		}

		tt, ok := byType[o.PersonType]
		if !ok {
			tt = &TypeTotal{PersonType: o.PersonType, Revenue: decimal.Zero, Expenses: decimal.Zero}
			byType[o.PersonType] = tt
		}
		tt.Owners++
		tt.Revenue = tt.Revenue.Add(agg.GrossRevenue())
		tt.Expenses = tt.Expenses.Add(agg.TotalExpenses)

		ct, ok := byClinic[o.ClinicID]
		if !ok {
			ct = &ClinicTotal{ClinicID: o.ClinicID, ClinicName: o.ClinicName, Revenue: decimal.Zero, Expenses: decimal.Zero, NetResult: decimal.Zero}
			byClinic[o.ClinicID] = ct
		}
		ct.Owners++
		ct.Revenue = ct.Revenue.Add(agg.GrossRevenue())
		ct.Expenses = ct.Expenses.Add(agg.TotalExpenses)
		ct.NetResult = ct.NetResult.Add(agg.NetResult)
	}
	sort.SliceStable(out.Totals.ExpensesByAccount, func(i, j int) bool {
		a, b := out.Totals.ExpensesByAccount[i], out.Totals.ExpensesByAccount[j]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.AccountID < b.AccountID
	})

	for _, t := range []model.PersonType{model.PersonPF, model.PersonPJ, model.PersonHibrido} {
		if tt, ok := byType[t]; ok {
			out.ByPersonType = append(out.ByPersonType, *tt)
		}
	}
	for _, ct := range byClinic {
		out.ByClinic = append(out.ByClinic, *ct)
	}
	sort.Slice(out.ByClinic, func(i, j int) bool { return out.ByClinic[i].ClinicID < out.ByClinic[j].ClinicID })

	zerolog.Ctx(ctx).Debug().
		Str("period", p.String()).
		Int("owners", out.Owners).
		Msg("consolidated period")
	return out, nil
}
