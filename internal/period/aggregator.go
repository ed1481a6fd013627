// Package period rolls an owner's ledger up into month-scoped aggregates.
// Every call re-reads entries from the store; nothing is cached.
package period

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/clinicbooks/clinicbooks/internal/model"
	"github.com/clinicbooks/clinicbooks/internal/regime"
	"github.com/clinicbooks/clinicbooks/internal/store"
)

// Aggregator computes PeriodAggregates from a store.
type Aggregator struct {
	store store.Store
}

// NewAggregator creates an Aggregator.
func NewAggregator(s store.Store) *Aggregator {
	return &Aggregator{store: s}
}

// Aggregate returns ownerID's aggregate for one month. An owner with no
// entries in the window gets an all-zero aggregate. Tax fields are left at
// zero for the tax estimator to fill.
func (a *Aggregator) Aggregate(ctx context.Context, ownerID string, month, year int) (model.PeriodAggregate, error) {
	p, err := model.NewPeriod(month, year)
	if err != nil {
		return model.PeriodAggregate{}, err
	}
	aggs, err := a.Trailing(ctx, ownerID, p, 1)
	if err != nil {
		return model.PeriodAggregate{}, err
	}
	return aggs[0], nil
}

// Trailing returns one aggregate per month for the months-long window ending
// at p, oldest first. All months come from a single ranged store read.
func (a *Aggregator) Trailing(ctx context.Context, ownerID string, p model.Period, months int) ([]model.PeriodAggregate, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if months < 1 {
		return nil, &model.ValidationError{Field: "months", Reason: "must be at least 1"}
	}

	owner, err := a.store.GetOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	start := p.AddMonths(-(months - 1))
	filter := model.EntryFilter{OwnerID: ownerID, From: start.First(), To: p.Last()}
	entries, err := a.store.ListEntries(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}

	classes, err := a.classify(ctx, entries)
	if err != nil {
		return nil, err
	}

	out := make([]model.PeriodAggregate, months)
	index := make(map[model.Period]int, months)
	for i := range out {
		mp := start.AddMonths(i)
		out[i] = model.EmptyAggregate(ownerID, mp)
		out[i].PersonType = owner.PersonType
		index[mp] = i
	}

	buckets := make([][]model.Entry, months)
	for _, e := range entries {
		i, ok := index[model.PeriodOf(e.Date)]
		if !ok {
			continue
		}
		buckets[i] = append(buckets[i], e)
	}
	for i, bucket := range buckets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := accumulate(&out[i], *owner, bucket, classes); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// classify loads the chart accounts referenced by expenses. Inactive
// accounts are included so deactivation never changes past aggregates.
func (a *Aggregator) classify(ctx context.Context, entries []model.Entry) (map[string]model.ChartAccount, error) {
	classes := make(map[string]model.ChartAccount)
	clinics := make(map[string]bool)
	for _, e := range entries {
		if e.IsExpense() && e.AccountID != "" && !clinics[e.ClinicID] {
			clinics[e.ClinicID] = true
			accts, err := a.store.ListAccounts(ctx, e.ClinicID)
			if err != nil {
				return nil, fmt.Errorf("listing accounts: %w", err)
			}
			for _, acct := range accts {
				classes[acct.ID] = acct
			}
		}
	}
	for _, e := range entries {
		if !e.IsExpense() || e.AccountID == "" {
			continue
		}
		if _, ok := classes[e.AccountID]; ok {
			continue
		}
		// Reassigned across clinics or otherwise outside the clinic chart.
		acct, err := a.store.GetAccount(ctx, e.AccountID)
		if err != nil {
			return nil, fmt.Errorf("entry %s: %w", e.ID, err)
		}
		classes[acct.ID] = *acct
	}
	return classes, nil
}

// accumulate folds entries into agg. Sums are exact decimal additions, so
// the result does not depend on entry order.
func accumulate(agg *model.PeriodAggregate, owner model.Owner, entries []model.Entry, classes map[string]model.ChartAccount) error {
	byAccount := make(map[string]int)
	for _, e := range entries {
		r, err := regime.Attribute(owner, e)
		if err != nil {
			return fmt.Errorf("entry %s: %w", e.ID, err)
		}

		switch e.Kind {
		case model.KindRevenue:
			agg.RevenueCount++
			if r == model.RegimePJ {
				agg.GrossRevenuePJ = agg.GrossRevenuePJ.Add(e.Amount)
				if !e.DocumentIssued {
					agg.PendingDocuments++
				}
			} else {
				agg.GrossRevenuePF = agg.GrossRevenuePF.Add(e.Amount)
			}

		case model.KindExpense:
			agg.ExpenseCount++
			acct := classes[e.AccountID]
			if acct.Deductible {
				agg.DeductibleExpenses = agg.DeductibleExpenses.Add(e.Amount)
				if r == model.RegimePF {
					agg.DeductibleExpensesPF = agg.DeductibleExpensesPF.Add(e.Amount)
				}
			} else {
				agg.NonDeductibleExpenses = agg.NonDeductibleExpenses.Add(e.Amount)
			}
			if e.CostBehavior == model.CostFixed {
				agg.FixedExpenses = agg.FixedExpenses.Add(e.Amount)
			} else {
				agg.VariableExpenses = agg.VariableExpenses.Add(e.Amount)
			}

			i, ok := byAccount[e.AccountID]
			if !ok {
				i = len(agg.ExpensesByAccount)
				byAccount[e.AccountID] = i
				agg.ExpensesByAccount = append(agg.ExpensesByAccount, model.AccountTotal{
					AccountID:  e.AccountID,
					Name:       acct.Name,
					Deductible: acct.Deductible,
					Total:      decimal.Zero,
				})
			}
			agg.ExpensesByAccount[i].Total = agg.ExpensesByAccount[i].Total.Add(e.Amount)
		}
	}

	sort.SliceStable(agg.ExpensesByAccount, func(i, j int) bool {
		a, b := agg.ExpensesByAccount[i], agg.ExpensesByAccount[j]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.AccountID < b.AccountID
	})

	agg.TotalExpenses = agg.DeductibleExpenses.Add(agg.NonDeductibleExpenses)
	agg.NetResult = agg.GrossRevenue().Sub(agg.TotalExpenses)
	return nil
}
