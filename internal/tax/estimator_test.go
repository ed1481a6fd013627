package tax

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicbooks/clinicbooks/internal/model"
	"github.com/clinicbooks/clinicbooks/internal/period"
	"github.com/clinicbooks/clinicbooks/internal/store"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestEstimatePF(t *testing.T) {
	params := DefaultParameters().PF
	tests := []struct {
		name       string
		revenue    string
		deductible string
		wantBase   string
		wantTax    string
	}{
		{"scenario net 9000", "15000.00", "6000.00", "9000.00", "1566.27"},
		{"exempt", "2000.00", "0", "2000.00", "0.00"},
		{"exempt ceiling", "2428.80", "0", "2428.80", "0.00"},
		{"second bracket", "2800.00", "0", "2800.00", "27.84"},
		{"base clamps at zero", "1000.00", "3000.00", "0.00", "0.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := model.EmptyAggregate("o", model.Period{Month: 11, Year: 2025})
			agg.GrossRevenuePF = dec(tt.revenue)
			agg.DeductibleExpensesPF = dec(tt.deductible)

			fig, base := EstimatePF(agg, params)
			assert.Equal(t, StatusOK, fig.Status)
			assert.Equal(t, tt.wantBase, base.StringFixed(2))
			assert.Equal(t, tt.wantTax, fig.Amount.StringFixed(2))
			assert.False(t, fig.Amount.IsNegative())
		})
	}
}

func TestEstimatePFUsesOnlyPFDeductions(t *testing.T) {
	agg := model.EmptyAggregate("o", model.Period{Month: 11, Year: 2025})
	agg.GrossRevenuePF = dec("5000.00")
	agg.DeductibleExpenses = dec("4000.00") // 3000 of it attributed to PJ
	agg.DeductibleExpensesPF = dec("1000.00")
	agg.NonDeductibleExpenses = dec("2000.00")

	_, base := EstimatePF(agg, DefaultParameters().PF)
	assert.Equal(t, "4000.00", base.StringFixed(2))
}

func TestZeroLiabilityExpense(t *testing.T) {
	params := DefaultParameters().PF

	v := ZeroLiabilityExpense(dec("9000.00"), params)
	require.NotNil(t, v)
	assert.Equal(t, "6571.20", v.StringFixed(2))

	v = ZeroLiabilityExpense(dec("1000.00"), params)
	require.NotNil(t, v)
	assert.True(t, v.IsZero())

	params.ZeroLiability = ""
	assert.Nil(t, ZeroLiabilityExpense(dec("9000.00"), params))
}

func TestEstimatePJ(t *testing.T) {
	params := DefaultParameters().PJ

	fig, rate := EstimatePJ(dec("10000.00"), decimal.Zero, params)
	assert.Equal(t, StatusOK, fig.Status)
	assert.Equal(t, "0.06", rate.String())
	assert.Equal(t, "600.00", fig.Amount.StringFixed(2))

	fig, rate = EstimatePJ(dec("20000.00"), dec("240000.00"), params)
	assert.Equal(t, "0.073", rate.String())
	assert.Equal(t, "1460.00", fig.Amount.StringFixed(2))

	fig, _ = EstimatePJ(dec("20000.00"), dec("5000000.00"), params)
	assert.Equal(t, StatusUnknown, fig.Status)
	assert.True(t, fig.Amount.IsZero())
}

type estimatorFixture struct {
	ms  *store.MemoryStore
	est *Estimator
	agg *period.Aggregator
}

func newEstimatorFixture() *estimatorFixture {
	ms := store.NewMemoryStore()
	agg := period.NewAggregator(ms)
	return &estimatorFixture{ms: ms, est: NewEstimator(agg, ms), agg: agg}
}

func (f *estimatorFixture) owner(t *testing.T, pt model.PersonType, since time.Time) *model.Owner {
	t.Helper()
	o := &model.Owner{Name: "Dr. Caio", ClinicID: "clinic-1", PersonType: pt, ActivityStart: since}
	require.NoError(t, f.ms.CreateOwner(context.Background(), o))
	return o
}

func (f *estimatorFixture) monthlyRevenue(t *testing.T, ownerID string, r model.Regime, from model.Period, months int, amount string) {
	t.Helper()
	for i := 0; i < months; i++ {
		p := from.AddMonths(i)
		require.NoError(t, f.ms.CreateEntry(context.Background(), &model.Entry{
			OwnerID: ownerID, ClinicID: "clinic-1", Kind: model.KindRevenue,
			Date: p.First().AddDate(0, 0, 9), Amount: dec(amount), Regime: r,
		}))
	}
}

func (f *estimatorFixture) estimate(t *testing.T, ownerID string, params Parameters) (model.PeriodAggregate, Estimate) {
	t.Helper()
	ctx := context.Background()
	agg, err := f.agg.Aggregate(ctx, ownerID, 11, 2025)
	require.NoError(t, err)
	est, err := f.est.Estimate(ctx, agg, params)
	require.NoError(t, err)
	return agg, est
}

func TestEstimatorPJFullHistory(t *testing.T) {
	f := newEstimatorFixture()
	o := f.owner(t, model.PersonPJ, model.Date(2023, 1, 1))
	f.monthlyRevenue(t, o.ID, model.RegimePJ, model.Period{Month: 12, Year: 2024}, 12, "20000.00")
	f.monthlyRevenue(t, o.ID, model.RegimePJ, model.Period{Month: 11, Year: 2024}, 1, "99999.00") // outside RBT12

	agg, est := f.estimate(t, o.ID, DefaultParameters())

	assert.Equal(t, StatusNotApplicable, est.PF.Status)
	assert.Equal(t, StatusOK, est.PJ.Status)
	assert.Equal(t, "240000.00", est.RBT12.StringFixed(2))
	assert.Equal(t, "1460.00", est.PJ.Amount.StringFixed(2))
	assert.True(t, est.TotalKnown)
	assert.Equal(t, "1460.00", est.Total.StringFixed(2))
	assert.False(t, est.Annualized)

	est.Apply(&agg)
	assert.Equal(t, "1460.00", agg.TotalEstimatedTax.StringFixed(2))
	assert.Equal(t, "1460.00", agg.EstimatedTaxPJ.StringFixed(2))
	assert.True(t, agg.EstimatedTaxPF.IsZero())
}

func TestEstimatorShortHistoryDegradesToUnknown(t *testing.T) {
	f := newEstimatorFixture()
	o := f.owner(t, model.PersonPJ, model.Date(2025, 6, 15))
	f.monthlyRevenue(t, o.ID, model.RegimePJ, model.Period{Month: 6, Year: 2025}, 6, "10000.00")

	agg, est := f.estimate(t, o.ID, DefaultParameters())
	assert.Equal(t, "10000.00", agg.GrossRevenuePJ.StringFixed(2))
	assert.Equal(t, StatusUnknown, est.PJ.Status)
	assert.Contains(t, est.PJ.Reason, "insufficient data")
	assert.False(t, est.TotalKnown)
	assert.True(t, est.Total.IsZero())
}

func TestEstimatorShortHistoryAnnualized(t *testing.T) {
	f := newEstimatorFixture()
	o := f.owner(t, model.PersonPJ, model.Date(2025, 6, 15))
	f.monthlyRevenue(t, o.ID, model.RegimePJ, model.Period{Month: 6, Year: 2025}, 6, "10000.00")

	params := DefaultParameters()
	params.PJ.AnnualizeShortHistory = true
	_, est := f.estimate(t, o.ID, params)

	assert.Equal(t, StatusOK, est.PJ.Status)
	assert.True(t, est.Annualized)
	assert.Equal(t, "120000.00", est.RBT12.StringFixed(2))
	assert.Equal(t, "600.00", est.PJ.Amount.StringFixed(2))
}

func TestEstimatorHybrid(t *testing.T) {
	f := newEstimatorFixture()
	o := f.owner(t, model.PersonHibrido, model.Date(2020, 1, 1))
	f.monthlyRevenue(t, o.ID, model.RegimePF, model.Period{Month: 11, Year: 2025}, 1, "15000.00")
	f.monthlyRevenue(t, o.ID, model.RegimePJ, model.Period{Month: 11, Year: 2025}, 1, "10000.00")

	_, est := f.estimate(t, o.ID, DefaultParameters())
	assert.Equal(t, StatusOK, est.PF.Status)
	assert.Equal(t, StatusOK, est.PJ.Status)
	// PF: 15000 × 27.5% − 908.73; PJ: RBT12 10000 in the first bracket.
	assert.Equal(t, "3216.27", est.PF.Amount.StringFixed(2))
	assert.Equal(t, "600.00", est.PJ.Amount.StringFixed(2))
	assert.Equal(t, "3816.27", est.Total.StringFixed(2))
	require.NotNil(t, est.ZeroLiabilityExpense)
	assert.Equal(t, "2025-05", est.ParametersVersion)
}

func TestEstimatorZeroEntryOwner(t *testing.T) {
	f := newEstimatorFixture()
	o := f.owner(t, model.PersonPF, model.Date(2020, 1, 1))

	_, est := f.estimate(t, o.ID, DefaultParameters())
	assert.Equal(t, StatusOK, est.PF.Status)
	assert.True(t, est.PF.Amount.IsZero())
	assert.Equal(t, StatusNotApplicable, est.PJ.Status)
	assert.True(t, est.TotalKnown)
}

func TestEstimatorRejectsBadInput(t *testing.T) {
	f := newEstimatorFixture()
	o := f.owner(t, model.PersonPF, model.Date(2020, 1, 1))
	agg := model.EmptyAggregate(o.ID, model.Period{Month: 11, Year: 2025})

	params := DefaultParameters()
	params.Version = ""
	_, err := f.est.Estimate(context.Background(), agg, params)
	assert.True(t, model.IsValidation(err))

	agg.OwnerID = "ghost"
	_, err = f.est.Estimate(context.Background(), agg, DefaultParameters())
	assert.True(t, model.IsNotFound(err))
}
