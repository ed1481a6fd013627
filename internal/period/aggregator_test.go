package period

import (
	"context"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicbooks/clinicbooks/internal/model"
	"github.com/clinicbooks/clinicbooks/internal/store"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type seed struct {
	ms      *store.MemoryStore
	owner   *model.Owner
	rent    *model.ChartAccount
	private *model.ChartAccount
}

func newSeed(t *testing.T, pt model.PersonType) *seed {
	t.Helper()
	ctx := context.Background()
	ms := store.NewMemoryStore()
	owner := &model.Owner{Name: "Dra. Ana", ClinicID: "clinic-1", PersonType: pt}
	require.NoError(t, ms.CreateOwner(ctx, owner))
	rent := &model.ChartAccount{ClinicID: "clinic-1", Name: "Aluguel", Deductible: true, Active: true}
	private := &model.ChartAccount{ClinicID: "clinic-1", Name: "Despesas pessoais", Active: true}
	require.NoError(t, ms.CreateAccount(ctx, rent))
	require.NoError(t, ms.CreateAccount(ctx, private))
	return &seed{ms: ms, owner: owner, rent: rent, private: private}
}

func (s *seed) add(t *testing.T, e model.Entry) {
	t.Helper()
	e.OwnerID = s.owner.ID
	e.ClinicID = "clinic-1"
	require.NoError(t, s.ms.CreateEntry(context.Background(), &e))
}

func rev(d, amount string, r model.Regime) model.Entry {
	date, _ := model.ParseDate(d)
	return model.Entry{Kind: model.KindRevenue, Date: date, Amount: dec(amount), Regime: r}
}

func exp(d, amount, accountID string) model.Entry {
	date, _ := model.ParseDate(d)
	return model.Entry{Kind: model.KindExpense, Date: date, Amount: dec(amount), AccountID: accountID, Regime: model.RegimePF, CostBehavior: model.CostVariable}
}

func TestAggregatePFScenario(t *testing.T) {
	s := newSeed(t, model.PersonPF)
	s.add(t, rev("2025-11-05", "15000.00", model.RegimePF))
	s.add(t, exp("2025-11-10", "6000.00", s.rent.ID))

	agg, err := NewAggregator(s.ms).Aggregate(context.Background(), s.owner.ID, 11, 2025)
	require.NoError(t, err)

	assert.Equal(t, "15000.00", agg.GrossRevenuePF.StringFixed(2))
	assert.Equal(t, "0.00", agg.GrossRevenuePJ.StringFixed(2))
	assert.Equal(t, "6000.00", agg.DeductibleExpenses.StringFixed(2))
	assert.Equal(t, "6000.00", agg.DeductibleExpensesPF.StringFixed(2))
	assert.Equal(t, "9000.00", agg.NetResult.StringFixed(2))
	assert.Equal(t, model.PersonPF, agg.PersonType)
	assert.Equal(t, 1, agg.RevenueCount)
	assert.Equal(t, 1, agg.ExpenseCount)
}

func TestAggregateWindowIsInclusive(t *testing.T) {
	s := newSeed(t, model.PersonPF)
	s.add(t, rev("2025-10-31", "1.00", model.RegimePF))
	s.add(t, rev("2025-11-01", "10.00", model.RegimePF))
	s.add(t, rev("2025-11-30", "100.00", model.RegimePF))
	s.add(t, rev("2025-12-01", "1000.00", model.RegimePF))

	agg, err := NewAggregator(s.ms).Aggregate(context.Background(), s.owner.ID, 11, 2025)
	require.NoError(t, err)
	assert.Equal(t, "110.00", agg.GrossRevenuePF.StringFixed(2))
}

func TestAggregateEmptyOwnerIsZero(t *testing.T) {
	s := newSeed(t, model.PersonPJ)

	agg, err := NewAggregator(s.ms).Aggregate(context.Background(), s.owner.ID, 2, 2025)
	require.NoError(t, err)

	for _, d := range []decimal.Decimal{
		agg.GrossRevenuePF, agg.GrossRevenuePJ, agg.DeductibleExpenses, agg.NonDeductibleExpenses,
		agg.TotalExpenses, agg.NetResult, agg.EstimatedTaxPF, agg.EstimatedTaxPJ, agg.TotalEstimatedTax,
	} {
		assert.True(t, d.IsZero())
	}
	assert.NotNil(t, agg.ExpensesByAccount)
	assert.Equal(t, 2, agg.Month)
	assert.Equal(t, 2025, agg.Year)
}

func TestAggregateNonDeductibleNeverReducesBase(t *testing.T) {
	s := newSeed(t, model.PersonPF)
	s.add(t, rev("2025-11-05", "5000.00", model.RegimePF))
	s.add(t, exp("2025-11-06", "1000.00", s.rent.ID))
	s.add(t, exp("2025-11-07", "700.00", s.private.ID))

	agg, err := NewAggregator(s.ms).Aggregate(context.Background(), s.owner.ID, 11, 2025)
	require.NoError(t, err)
	assert.Equal(t, "1000.00", agg.DeductibleExpenses.StringFixed(2))
	assert.Equal(t, "1000.00", agg.DeductibleExpensesPF.StringFixed(2))
	assert.Equal(t, "700.00", agg.NonDeductibleExpenses.StringFixed(2))
	assert.Equal(t, "1700.00", agg.TotalExpenses.StringFixed(2))
	assert.Equal(t, "3300.00", agg.NetResult.StringFixed(2))

	require.Len(t, agg.ExpensesByAccount, 2)
	assert.Equal(t, "Aluguel", agg.ExpensesByAccount[0].Name)
	assert.True(t, agg.ExpensesByAccount[0].Deductible)
}

func TestAggregateHybridSplitsByTag(t *testing.T) {
	s := newSeed(t, model.PersonHibrido)
	s.add(t, rev("2025-11-05", "800.00", model.RegimePF))
	s.add(t, rev("2025-11-06", "200.00", model.RegimePF))

	agg, err := NewAggregator(s.ms).Aggregate(context.Background(), s.owner.ID, 11, 2025)
	require.NoError(t, err)
	assert.Equal(t, "1000.00", agg.GrossRevenuePF.StringFixed(2))
	assert.Equal(t, "0.00", agg.GrossRevenuePJ.StringFixed(2))

	pj := rev("2025-11-07", "300.00", model.RegimePJ)
	s.add(t, pj)
	agg, err = NewAggregator(s.ms).Aggregate(context.Background(), s.owner.ID, 11, 2025)
	require.NoError(t, err)
	assert.Equal(t, "300.00", agg.GrossRevenuePJ.StringFixed(2))
	assert.Equal(t, 1, agg.PendingDocuments)
}

func TestAggregateStoredTagOutlivesOwnerChange(t *testing.T) {
	s := newSeed(t, model.PersonPJ)
	s.add(t, rev("2025-11-05", "400.00", model.RegimePJ))

	s.owner.PersonType = model.PersonPF
	require.NoError(t, s.ms.UpdateOwner(context.Background(), s.owner))

	agg, err := NewAggregator(s.ms).Aggregate(context.Background(), s.owner.ID, 11, 2025)
	require.NoError(t, err)
	assert.Equal(t, "400.00", agg.GrossRevenuePJ.StringFixed(2))
}

func TestAggregateStableAcrossDeactivation(t *testing.T) {
	ctx := context.Background()
	s := newSeed(t, model.PersonPF)
	s.add(t, rev("2025-11-05", "2000.00", model.RegimePF))
	s.add(t, exp("2025-11-06", "500.00", s.rent.ID))

	agg := NewAggregator(s.ms)
	before, err := agg.Aggregate(ctx, s.owner.ID, 11, 2025)
	require.NoError(t, err)

	s.rent.Active = false
	require.NoError(t, s.ms.UpdateAccount(ctx, s.rent))

	after, err := agg.Aggregate(ctx, s.owner.ID, 11, 2025)
	require.NoError(t, err)
	assert.True(t, before.DeductibleExpenses.Equal(after.DeductibleExpenses))
	assert.True(t, before.NetResult.Equal(after.NetResult))
}

func TestAggregateOrderIndependent(t *testing.T) {
	amounts := []string{"0.01", "1999.99", "0.10", "0.20", "333.33", "12.34", "7.77", "1000.00"}
	var entries []model.Entry
	for i, a := range amounts {
		if i%3 == 0 {
			entries = append(entries, exp("2025-11-15", a, ""))
		} else {
			entries = append(entries, rev("2025-11-15", a, model.RegimePF))
		}
	}

	var results []string
	for _, order := range [][]int{{0, 1, 2, 3, 4, 5, 6, 7}, {7, 6, 5, 4, 3, 2, 1, 0}, rand.New(rand.NewSource(1)).Perm(8)} {
		s := newSeed(t, model.PersonPF)
		for _, i := range order {
			e := entries[i]
			if e.IsExpense() {
				e.AccountID = s.rent.ID
			}
			s.add(t, e)
		}
		agg, err := NewAggregator(s.ms).Aggregate(context.Background(), s.owner.ID, 11, 2025)
		require.NoError(t, err)
		assert.True(t, agg.NetResult.Equal(agg.GrossRevenue().Sub(agg.TotalExpenses)))
		results = append(results, agg.NetResult.StringFixed(2))
	}
	assert.Equal(t, results[0], results[1])
	assert.Equal(t, results[0], results[2])
}

func TestTrailingBucketsByMonth(t *testing.T) {
	s := newSeed(t, model.PersonPJ)
	s.add(t, rev("2024-12-10", "100.00", model.RegimePJ))
	s.add(t, rev("2025-06-10", "200.00", model.RegimePJ))
	s.add(t, rev("2025-11-10", "300.00", model.RegimePJ))
	s.add(t, rev("2024-11-30", "999.00", model.RegimePJ)) // outside the window

	aggs, err := NewAggregator(s.ms).Trailing(context.Background(), s.owner.ID, model.Period{Month: 11, Year: 2025}, 12)
	require.NoError(t, err)
	require.Len(t, aggs, 12)

	assert.Equal(t, model.Period{Month: 12, Year: 2024}, aggs[0].Period())
	assert.Equal(t, "100.00", aggs[0].GrossRevenuePJ.StringFixed(2))
	assert.Equal(t, "200.00", aggs[6].GrossRevenuePJ.StringFixed(2))
	assert.Equal(t, "300.00", aggs[11].GrossRevenuePJ.StringFixed(2))

	total := decimal.Zero
	for _, a := range aggs {
		total = total.Add(a.GrossRevenuePJ)
	}
	assert.Equal(t, "600.00", total.StringFixed(2))
}

func TestAggregateErrors(t *testing.T) {
	s := newSeed(t, model.PersonPF)
	agg := NewAggregator(s.ms)

	_, err := agg.Aggregate(context.Background(), s.owner.ID, 13, 2025)
	assert.True(t, model.IsValidation(err))

	_, err = agg.Aggregate(context.Background(), "ghost", 11, 2025)
	assert.True(t, model.IsNotFound(err))

	_, err = agg.Trailing(context.Background(), s.owner.ID, model.Period{Month: 1, Year: 2025}, 0)
	assert.True(t, model.IsValidation(err))
}
