package tax

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/clinicbooks/clinicbooks/internal/model"
	"github.com/clinicbooks/clinicbooks/internal/store"
)

// Status qualifies an estimated figure.
type Status string

const (
	StatusOK            Status = "ok"
	StatusUnknown       Status = "unknown"
	StatusNotApplicable Status = "not_applicable"
)

// Figure is one advisory liability.
type Figure struct {
	Status Status
	Amount decimal.Decimal // zero unless Status is ok
	Reason string
}

// Known reports whether the figure contributes a definite amount.
func (f Figure) Known() bool {
	return f.Status != StatusUnknown
}

// Estimate is the result of estimating one aggregate.
type Estimate struct {
	PF         Figure
	PJ         Figure
	Total      decimal.Decimal // sum of the known figures
	TotalKnown bool            // false when a figure is unknown

	PFBase decimal.Decimal
	// ZeroLiabilityExpense is the extra deductible spending that would zero
	// the PF liability. Nil when the parameters name no formula.
	ZeroLiabilityExpense *decimal.Decimal

	RBT12         decimal.Decimal
	EffectiveRate decimal.Decimal
	Annualized    bool // RBT12 was projected from a short history

	ParametersVersion string
}

// Apply copies the estimated amounts into agg.
func (e Estimate) Apply(agg *model.PeriodAggregate) {
	agg.EstimatedTaxPF = e.PF.Amount
	agg.EstimatedTaxPJ = e.PJ.Amount
	agg.TotalEstimatedTax = e.Total
}

// History yields an owner's monthly aggregates for a trailing window.
type History interface {
	Trailing(ctx context.Context, ownerID string, p model.Period, months int) ([]model.PeriodAggregate, error)
}

// Estimator computes advisory liabilities. The PJ figure needs the owner's
// trailing revenue, so it reads history through the aggregator.
type Estimator struct {
	history History
	owners  store.OwnerStore
}

// NewEstimator creates an Estimator.
func NewEstimator(history History, owners store.OwnerStore) *Estimator {
	return &Estimator{history: history, owners: owners}
}

// rbtWindow is the Simples Nacional lookback: the current month and the
// eleven before it.
const rbtWindow = 12

// Estimate computes both regime figures for agg under params. An
// incomplete RBT12 history degrades the PJ figure to unknown instead of
// failing; validation, not-found and store errors are returned.
func (e *Estimator) Estimate(ctx context.Context, agg model.PeriodAggregate, params Parameters) (Estimate, error) {
	if err := params.Validate(); err != nil {
		return Estimate{}, err
	}
	p := agg.Period()
	if err := p.Validate(); err != nil {
		return Estimate{}, err
	}

	owner, err := e.owners.GetOwner(ctx, agg.OwnerID)
	if err != nil {
		return Estimate{}, err
	}

	est := Estimate{
		PFBase:            decimal.Zero,
		RBT12:             decimal.Zero,
		EffectiveRate:     decimal.Zero,
		ParametersVersion: params.Version,
	}

	if appliesPF(owner.PersonType, agg) {
		est.PF, est.PFBase = EstimatePF(agg, params.PF)
		est.ZeroLiabilityExpense = ZeroLiabilityExpense(est.PFBase, params.PF)
	} else {
		est.PF = notApplicable("owner is taxed as PJ")
	}

	if appliesPJ(owner.PersonType, agg) {
		rbt12, annualized, err := e.rbt12(ctx, *owner, agg, params.PJ)
		switch {
		case model.IsInsufficientData(err):
			est.PJ = Figure{Status: StatusUnknown, Amount: decimal.Zero, Reason: err.Error()}
		case err != nil:
			return Estimate{}, err
		default:
			est.RBT12 = rbt12
			est.Annualized = annualized
			est.PJ, est.EffectiveRate = EstimatePJ(agg.GrossRevenuePJ, rbt12, params.PJ)
		}
	} else {
		est.PJ = notApplicable("owner is taxed as PF")
	}

	est.Total = decimal.Zero
	est.TotalKnown = true
	for _, f := range []Figure{est.PF, est.PJ} {
		if f.Known() {
			est.Total = est.Total.Add(f.Amount)
		} else {
			est.TotalKnown = false
		}
	}

	zerolog.Ctx(ctx).Debug().
		Str("owner", agg.OwnerID).
		Str("period", p.String()).
		Str("pf", string(est.PF.Status)).
		Str("pj", string(est.PJ.Status)).
		Msg("tax estimated")
	return est, nil
}

func notApplicable(reason string) Figure {
	return Figure{Status: StatusNotApplicable, Amount: decimal.Zero, Reason: reason}
}

// A regime applies when the owner may file under it, or when revenue is
// attributed to it anyway (entries stamped before a change of person type).
func appliesPF(t model.PersonType, agg model.PeriodAggregate) bool {
	return t == model.PersonPF || t == model.PersonHibrido || agg.GrossRevenuePF.IsPositive()
}

func appliesPJ(t model.PersonType, agg model.PeriodAggregate) bool {
	return t == model.PersonPJ || t == model.PersonHibrido || agg.GrossRevenuePJ.IsPositive()
}

// EstimatePF applies the progressive table to the PF base, which is PF
// revenue less PF-attributed deductible expenses, clamped at zero.
func EstimatePF(agg model.PeriodAggregate, params PFParameters) (Figure, decimal.Decimal) {
	base := decimal.Max(decimal.Zero, agg.GrossRevenuePF.Sub(agg.DeductibleExpensesPF))
	b, ok := params.Brackets.Find(base)
	if !ok {
		return Figure{Status: StatusUnknown, Amount: decimal.Zero, Reason: "PF base above the last bracket"}, base
	}
	tax := decimal.Max(decimal.Zero, base.Mul(b.Rate).Sub(b.Deduction))
	return Figure{Status: StatusOK, Amount: model.RoundMoney(tax)}, base
}

// ZeroLiabilityExpense evaluates the formula named by params.ZeroLiability.
func ZeroLiabilityExpense(base decimal.Decimal, params PFParameters) *decimal.Decimal {
	switch params.ZeroLiability {
	case ZeroLiabilityExemptCeiling:
		for _, b := range params.Brackets {
			if b.Rate.IsZero() && !b.Unbounded() {
				v := model.RoundMoney(decimal.Max(decimal.Zero, base.Sub(b.UpTo)))
				return &v
			}
		}
	}
	return nil
}

// EstimatePJ applies the Simples Nacional effective rate for rbt12 to the
// month's PJ revenue. The effective rate is (RBT12 × nominal − deduction) /
// RBT12; with no trailing revenue the first bracket's nominal rate applies.
func EstimatePJ(revenue, rbt12 decimal.Decimal, params PJParameters) (Figure, decimal.Decimal) {
	if len(params.Brackets) == 0 {
		return Figure{Status: StatusUnknown, Amount: decimal.Zero, Reason: "no PJ table"}, decimal.Zero
	}

	var rate decimal.Decimal
	if rbt12.IsZero() {
		rate = params.Brackets[0].Rate
	} else {
		b, ok := params.Brackets.Find(rbt12)
		if !ok {
			reason := fmt.Sprintf("RBT12 %s exceeds the last bracket", model.FormatMoney(rbt12))
			return Figure{Status: StatusUnknown, Amount: decimal.Zero, Reason: reason}, decimal.Zero
		}
		rate = rbt12.Mul(b.Rate).Sub(b.Deduction).Div(rbt12)
		rate = decimal.Max(decimal.Zero, rate)
	}

	tax := model.RoundMoney(revenue.Mul(rate))
	return Figure{Status: StatusOK, Amount: tax}, rate
}

// rbt12 sums PJ revenue over the current month of agg and the eleven before.
// Owners whose activity started inside that window have no full RBT12; the
// result is then projected from the active months when params allow it and
// an *model.InsufficientDataError otherwise.
func (e *Estimator) rbt12(ctx context.Context, owner model.Owner, agg model.PeriodAggregate, params PJParameters) (decimal.Decimal, bool, error) {
	p := agg.Period()
	windowStart := p.AddMonths(-(rbtWindow - 1))

	active := rbtWindow
	if since := owner.Since(); !since.IsZero() {
		start := model.PeriodOf(since)
		if windowStart.Before(start) {
			active = start.MonthsUntil(p)
			if !params.AnnualizeShortHistory {
				return decimal.Zero, false, &model.InsufficientDataError{
					Reason: fmt.Sprintf("activity started %s, RBT12 for %s needs %d months of history, have %d", start, p, rbtWindow, active),
				}
			}
		}
	}
	if active < 1 {
		active = 1
	}

	prior, err := e.history.Trailing(ctx, owner.ID, p.AddMonths(-1), rbtWindow-1)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("loading RBT12 history: %w", err)
	}
	total := agg.GrossRevenuePJ
	for _, m := range prior {
		total = total.Add(m.GrossRevenuePJ)
	}

	if active == rbtWindow {
		return total, false, nil
	}
	projected := total.Div(decimal.NewFromInt(int64(active))).Mul(decimal.NewFromInt(rbtWindow))
	return model.RoundMoney(projected), true, nil
}
