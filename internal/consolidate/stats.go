package consolidate

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/clinicbooks/clinicbooks/internal/model"
)

// Stats are lifetime figures for the administrator dashboard.
type Stats struct {
	AsOf           time.Time
	TotalOwners    int
	ActiveOwners   int
	NewOwnersMonth int // registered in the calendar month of AsOf
	ByPersonType   map[model.PersonType]int

	TotalEntries     int
	RevenueEntries   int
	ExpenseEntries   int
	LifetimeRevenue  decimal.Decimal
	LifetimeExpenses decimal.Decimal
	Balance          decimal.Decimal
}

// Stats computes dashboard figures from owners registered and entries dated
// on or before asOf. A zero asOf means now.
func (c *Consolidator) Stats(ctx context.Context, asOf time.Time) (Stats, error) {
	if asOf.IsZero() {
		asOf = c.now()
	}
	owners, err := c.store.ListOwners(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("listing owners: %w", err)
	}
	entries, err := c.store.ListEntries(ctx, model.EntryFilter{To: asOf})
	if err != nil {
		return Stats{}, fmt.Errorf("listing entries: %w", err)
	}

	s := Stats{
		AsOf:             asOf,
		ByPersonType:     make(map[model.PersonType]int),
		LifetimeRevenue:  decimal.Zero,
		LifetimeExpenses: decimal.Zero,
	}
	month := model.PeriodOf(asOf)
	for _, o := range owners {
		if o.CreatedAt.After(asOf) {
			continue
		}
		s.TotalOwners++
		if o.Active {
			s.ActiveOwners++
		}
		if month.Contains(o.CreatedAt) {
			s.NewOwnersMonth++
		}
		s.ByPersonType[o.PersonType]++
	}
	for _, e := range entries {
		s.TotalEntries++
		if e.IsRevenue() {
			s.RevenueEntries++
			s.LifetimeRevenue = s.LifetimeRevenue.Add(e.Amount)
		} else {
			s.ExpenseEntries++
			s.LifetimeExpenses = s.LifetimeExpenses.Add(e.Amount)
		}
	}
	s.Balance = s.LifetimeRevenue.Sub(s.LifetimeExpenses)
	return s, nil
}

// GrowthPoint is the number of owners registered in one month.
type GrowthPoint struct {
	Period     model.Period
	NewOwners  int
	Cumulative int // owners registered up to the end of Period
}

// MaxGrowthMonths bounds the registration chart.
const MaxGrowthMonths = 60

// Growth returns one point per month for the months-long window ending in
// the month of asOf, oldest first.
func (c *Consolidator) Growth(ctx context.Context, months int, asOf time.Time) ([]GrowthPoint, error) {
	if months < 1 || months > MaxGrowthMonths {
		return nil, &model.ValidationError{Field: "months", Reason: fmt.Sprintf("must be 1..%d", MaxGrowthMonths)}
	}
	if asOf.IsZero() {
		asOf = c.now()
	}
	owners, err := c.store.ListOwners(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing owners: %w", err)
	}

	end := model.PeriodOf(asOf)
	start := end.AddMonths(-(months - 1))
	points := make([]GrowthPoint, months)
	for i := range points {
		points[i].Period = start.AddMonths(i)
	}

	before := 0
	for _, o := range owners {
		p := model.PeriodOf(o.CreatedAt)
		switch {
		case p.Before(start):
			before++
		case end.Before(p):
		default:
			points[start.MonthsUntil(p)-1].NewOwners++
		}
	}
	running := before
	for i := range points {
		running += points[i].NewOwners
		points[i].Cumulative = running
	}
	return points, nil
}
