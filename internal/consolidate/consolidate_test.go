package consolidate

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicbooks/clinicbooks/internal/model"
	"github.com/clinicbooks/clinicbooks/internal/period"
	"github.com/clinicbooks/clinicbooks/internal/store"
	"github.com/clinicbooks/clinicbooks/internal/tax"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var nov2025 = model.Period{Month: 11, Year: 2025}

type fixture struct {
	ms   *store.MemoryStore
	rent *model.ChartAccount
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ms := store.NewMemoryStore()
	rent := &model.ChartAccount{ClinicID: "clinic-1", Name: "Aluguel", Deductible: true, Active: true}
	require.NoError(t, ms.CreateAccount(context.Background(), rent))
	return &fixture{ms: ms, rent: rent}
}

func (f *fixture) owner(t *testing.T, name string, pt model.PersonType, created time.Time) *model.Owner {
	t.Helper()
	o := &model.Owner{
		Name: name, Email: fmt.Sprintf("%s@example.com", name), ClinicID: "clinic-1", ClinicName: "Clínica São José",
		PersonType: pt, Active: true, CreatedAt: created, ActivityStart: model.Date(2020, 1, 1),
	}
	require.NoError(t, f.ms.CreateOwner(context.Background(), o))
	return o
}

func (f *fixture) revenue(t *testing.T, ownerID string, r model.Regime, d time.Time, amount string) {
	t.Helper()
	require.NoError(t, f.ms.CreateEntry(context.Background(), &model.Entry{
		OwnerID: ownerID, ClinicID: "clinic-1", Kind: model.KindRevenue, Date: d, Amount: dec(amount), Regime: r,
	}))
}

func (f *fixture) expense(t *testing.T, ownerID string, d time.Time, amount string) {
	t.Helper()
	require.NoError(t, f.ms.CreateEntry(context.Background(), &model.Entry{
		OwnerID: ownerID, ClinicID: "clinic-1", Kind: model.KindExpense, Date: d, Amount: dec(amount),
		Regime: model.RegimePF, AccountID: f.rent.ID, CostBehavior: model.CostFixed,
	}))
}

func (f *fixture) consolidator(opts Options) *Consolidator {
	return New(f.ms, period.NewAggregator(f.ms), opts)
}

func TestAggregateAcrossOwnersWithZeroOwner(t *testing.T) {
	f := newFixture(t)
	ana := f.owner(t, "ana", model.PersonPF, model.Date(2024, 1, 1))
	bia := f.owner(t, "bia", model.PersonPJ, model.Date(2024, 2, 1))
	f.revenue(t, ana.ID, model.RegimePF, model.Date(2025, 11, 10), "15000.00")
	f.expense(t, ana.ID, model.Date(2025, 11, 5), "6000.00")
	f.revenue(t, ana.ID, model.RegimePF, model.Date(2025, 10, 31), "999.00") // other month

	c := f.consolidator(Options{Concurrency: 2})
	got, err := c.AggregateAcrossOwners(context.Background(), nov2025)
	require.NoError(t, err)

	assert.Equal(t, 2, got.Owners)
	assert.Equal(t, "15000.00", got.Totals.GrossRevenuePF.StringFixed(2))
	assert.Equal(t, "6000.00", got.Totals.DeductibleExpenses.StringFixed(2))
	assert.Equal(t, "9000.00", got.Totals.NetResult.StringFixed(2))
	assert.Equal(t, 1, got.Totals.RevenueCount)
	assert.False(t, got.Estimated)

	require.Len(t, got.PerOwner, 2)
	for _, agg := range got.PerOwner {
		if agg.OwnerID == bia.ID {
			assert.True(t, agg.GrossRevenue().IsZero())
			assert.True(t, agg.TotalExpenses.IsZero())
		}
	}

	require.Len(t, got.ByPersonType, 2)
	assert.Equal(t, model.PersonPF, got.ByPersonType[0].PersonType)
	assert.Equal(t, "15000.00", got.ByPersonType[0].Revenue.StringFixed(2))
	assert.Equal(t, model.PersonPJ, got.ByPersonType[1].PersonType)
	assert.True(t, got.ByPersonType[1].Revenue.IsZero())

	require.Len(t, got.ByClinic, 1)
	assert.Equal(t, 2, got.ByClinic[0].Owners)
	assert.Equal(t, "9000.00", got.ByClinic[0].NetResult.StringFixed(2))

	require.Len(t, got.Totals.ExpensesByAccount, 1)
	assert.Equal(t, "Aluguel", got.Totals.ExpensesByAccount[0].Name)
}

func TestAggregateAcrossOwnersWithEstimates(t *testing.T) {
	f := newFixture(t)
	ana := f.owner(t, "ana", model.PersonPF, model.Date(2024, 1, 1))
	caio := f.owner(t, "caio", model.PersonPJ, model.Date(2025, 9, 1))
	caio.ActivityStart = model.Date(2025, 9, 1)
	require.NoError(t, f.ms.UpdateOwner(context.Background(), caio))

	f.revenue(t, ana.ID, model.RegimePF, model.Date(2025, 11, 10), "15000.00")
	f.expense(t, ana.ID, model.Date(2025, 11, 5), "6000.00")
	f.revenue(t, caio.ID, model.RegimePJ, model.Date(2025, 11, 12), "8000.00")

	agg := period.NewAggregator(f.ms)
	c := New(f.ms, agg, Options{
		Estimator:  tax.NewEstimator(agg, f.ms),
		Parameters: tax.DefaultParameters(),
	})
	got, err := c.AggregateAcrossOwners(context.Background(), nov2025)
	require.NoError(t, err)

	assert.True(t, got.Estimated)
	assert.Equal(t, 1, got.UnknownEstimates)
	assert.Equal(t, "1566.27", got.Totals.EstimatedTaxPF.StringFixed(2))
	assert.True(t, got.Totals.EstimatedTaxPJ.IsZero())
	assert.Equal(t, "1566.27", got.Totals.TotalEstimatedTax.StringFixed(2))
}

func TestAggregateAcrossOwnersCancelled(t *testing.T) {
	f := newFixture(t)
	f.owner(t, "ana", model.PersonPF, model.Date(2024, 1, 1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.consolidator(Options{}).AggregateAcrossOwners(ctx, nov2025)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAggregateAcrossOwnersRejectsBadPeriod(t *testing.T) {
	f := newFixture(t)
	_, err := f.consolidator(Options{}).AggregateAcrossOwners(context.Background(), model.Period{Month: 13, Year: 2025})
	assert.True(t, model.IsValidation(err))
}

func TestListOwnersPagination(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 25; i++ {
		f.owner(t, fmt.Sprintf("owner%02d", i), model.PersonPF, model.Date(2024, 1, 1).AddDate(0, 0, i))
	}
	c := f.consolidator(Options{PageSize: 10})
	ctx := context.Background()

	first, err := c.ListOwners(ctx, OwnerQuery{SortField: SortName, SortOrder: "asc"})
	require.NoError(t, err)
	assert.Equal(t, 25, first.TotalItems)
	assert.Equal(t, 3, first.TotalPages)
	require.Len(t, first.Items, 10)
	assert.Equal(t, "owner00", first.Items[0].Owner.Name)

	last, err := c.ListOwners(ctx, OwnerQuery{SortField: SortName, SortOrder: "ASC", Page: 3})
	require.NoError(t, err)
	require.Len(t, last.Items, 5)
	assert.Equal(t, "owner24", last.Items[4].Owner.Name)

	past, err := c.ListOwners(ctx, OwnerQuery{Page: 4})
	require.NoError(t, err)
	assert.Empty(t, past.Items)
	assert.Equal(t, 3, past.TotalPages)

	newest, err := c.ListOwners(ctx, OwnerQuery{PageSize: 1})
	require.NoError(t, err)
	require.Len(t, newest.Items, 1)
	assert.Equal(t, "owner24", newest.Items[0].Owner.Name)
	assert.Equal(t, 25, newest.TotalPages)

	none, err := c.ListOwners(ctx, OwnerQuery{Search: "ninguém"})
	require.NoError(t, err)
	assert.Empty(t, none.Items)
	assert.Zero(t, none.TotalItems)
	assert.Equal(t, 1, none.TotalPages)
}

func TestListOwnersSearchAndTotals(t *testing.T) {
	f := newFixture(t)
	ana := f.owner(t, "ana", model.PersonPF, model.Date(2024, 1, 1))
	other := &model.Owner{Name: "Bruno", Email: "bruno@odonto.com", ClinicName: "Sorriso", PersonType: model.PersonPJ}
	require.NoError(t, f.ms.CreateOwner(context.Background(), other))

	f.revenue(t, ana.ID, model.RegimePF, model.Date(2025, 1, 10), "100.00")
	f.revenue(t, ana.ID, model.RegimePF, model.Date(2025, 2, 10), "50.50")
	f.expense(t, ana.ID, model.Date(2025, 2, 5), "30.00")

	c := f.consolidator(Options{})
	page, err := c.ListOwners(context.Background(), OwnerQuery{Search: "SAO JOSE"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	item := page.Items[0]
	assert.Equal(t, ana.ID, item.Owner.ID)
	assert.Equal(t, 2, item.RevenueCount)
	assert.Equal(t, 1, item.ExpenseCount)
	assert.Equal(t, "150.50", item.TotalRevenue.StringFixed(2))
	assert.Equal(t, "30.00", item.TotalExpenses.StringFixed(2))

	byEmail, err := c.ListOwners(context.Background(), OwnerQuery{Search: "odonto.COM"})
	require.NoError(t, err)
	require.Len(t, byEmail.Items, 1)
	assert.Equal(t, "Bruno", byEmail.Items[0].Owner.Name)
}

func TestListOwnersRejectsBadQueries(t *testing.T) {
	c := newFixture(t).consolidator(Options{})
	tests := []struct {
		name  string
		q     OwnerQuery
		field string
	}{
		{"unknown sort field", OwnerQuery{SortField: "password"}, "sortField"},
		{"bad order", OwnerQuery{SortOrder: "sideways"}, "sortOrder"},
		{"negative page", OwnerQuery{Page: -1}, "page"},
		{"page size too large", OwnerQuery{PageSize: MaxPageSize + 1}, "pageSize"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.ListOwners(context.Background(), tt.q)
			var ve *model.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	ana := f.owner(t, "ana", model.PersonPF, model.Date(2025, 1, 1))
	bia := f.owner(t, "bia", model.PersonHibrido, model.Date(2025, 11, 2))
	bia.Active = false
	require.NoError(t, f.ms.UpdateOwner(context.Background(), bia))
	f.owner(t, "future", model.PersonPJ, model.Date(2026, 1, 1))

	f.revenue(t, ana.ID, model.RegimePF, model.Date(2025, 3, 1), "1000.00")
	f.expense(t, ana.ID, model.Date(2025, 3, 2), "400.00")
	f.revenue(t, ana.ID, model.RegimePF, model.Date(2025, 12, 1), "5000.00") // after asOf

	s, err := f.consolidator(Options{}).Stats(context.Background(), model.Date(2025, 11, 20))
	require.NoError(t, err)
	assert.Equal(t, 2, s.TotalOwners)
	assert.Equal(t, 1, s.ActiveOwners)
	assert.Equal(t, 1, s.NewOwnersMonth)
	assert.Equal(t, 1, s.ByPersonType[model.PersonHibrido])
	assert.Equal(t, 2, s.TotalEntries)
	assert.Equal(t, "1000.00", s.LifetimeRevenue.StringFixed(2))
	assert.Equal(t, "600.00", s.Balance.StringFixed(2))
}

func TestGrowth(t *testing.T) {
	f := newFixture(t)
	f.owner(t, "old", model.PersonPF, model.Date(2024, 5, 1))
	f.owner(t, "sep", model.PersonPF, model.Date(2025, 9, 3))
	f.owner(t, "nov1", model.PersonPF, model.Date(2025, 11, 1))
	f.owner(t, "nov2", model.PersonPJ, model.Date(2025, 11, 28))
	f.owner(t, "later", model.PersonPJ, model.Date(2025, 12, 1))

	c := f.consolidator(Options{})
	points, err := c.Growth(context.Background(), 3, model.Date(2025, 11, 30))
	require.NoError(t, err)
	require.Len(t, points, 3)

	assert.Equal(t, model.Period{Month: 9, Year: 2025}, points[0].Period)
	assert.Equal(t, 1, points[0].NewOwners)
	assert.Equal(t, 2, points[0].Cumulative)
	assert.Equal(t, 0, points[1].NewOwners)
	assert.Equal(t, 2, points[1].Cumulative)
	assert.Equal(t, 2, points[2].NewOwners)
	assert.Equal(t, 4, points[2].Cumulative)

	_, err = c.Growth(context.Background(), 0, time.Time{})
	assert.True(t, model.IsValidation(err))
}
