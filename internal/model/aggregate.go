package model

import "github.com/shopspring/decimal"

// AccountTotal is the expense total for one chart account in a period.
type AccountTotal struct {
	AccountID  string
	Name       string
	Deductible bool
	Total      decimal.Decimal
}

// PeriodAggregate is the month-scoped rollup of one owner's ledger. It is
// derived on every request and never stored.
type PeriodAggregate struct {
	OwnerID    string
	PersonType PersonType
	Month      int
	Year       int

	GrossRevenuePF        decimal.Decimal
	GrossRevenuePJ        decimal.Decimal
	DeductibleExpenses    decimal.Decimal
	DeductibleExpensesPF  decimal.Decimal // subset of DeductibleExpenses attributed to PF
	NonDeductibleExpenses decimal.Decimal
	TotalExpenses         decimal.Decimal
	NetResult             decimal.Decimal

	FixedExpenses    decimal.Decimal
	VariableExpenses decimal.Decimal
	RevenueCount     int
	ExpenseCount     int
	PendingDocuments int // PJ revenue without an issued fiscal document

	ExpensesByAccount []AccountTotal

	// Filled by the tax estimator; zero until then.
	EstimatedTaxPF    decimal.Decimal
	EstimatedTaxPJ    decimal.Decimal
	TotalEstimatedTax decimal.Decimal
}

// Period returns the month the aggregate covers.
func (a PeriodAggregate) Period() Period {
	return Period{Month: a.Month, Year: a.Year}
}

// GrossRevenue is PF plus PJ revenue.
func (a PeriodAggregate) GrossRevenue() decimal.Decimal {
	return a.GrossRevenuePF.Add(a.GrossRevenuePJ)
}

// EmptyAggregate returns a fully zeroed aggregate for owner and period.
func EmptyAggregate(ownerID string, p Period) PeriodAggregate {
	return PeriodAggregate{
		OwnerID:               ownerID,
		Month:                 p.Month,
		Year:                  p.Year,
		GrossRevenuePF:        decimal.Zero,
		GrossRevenuePJ:        decimal.Zero,
		DeductibleExpenses:    decimal.Zero,
		DeductibleExpensesPF:  decimal.Zero,
		NonDeductibleExpenses: decimal.Zero,
		TotalExpenses:         decimal.Zero,
		NetResult:             decimal.Zero,
		FixedExpenses:         decimal.Zero,
		VariableExpenses:      decimal.Zero,
		ExpensesByAccount:     []AccountTotal{},
		EstimatedTaxPF:        decimal.Zero,
		EstimatedTaxPJ:        decimal.Zero,
		TotalEstimatedTax:     decimal.Zero,
	}
}

// Add accumulates b's monetary fields and counters into a. Owner and
// period fields of a are kept; per-account breakdowns are merged by id.
func (a PeriodAggregate) Add(b PeriodAggregate) PeriodAggregate {
	a.GrossRevenuePF = a.GrossRevenuePF.Add(b.GrossRevenuePF)
	a.GrossRevenuePJ = a.GrossRevenuePJ.Add(b.GrossRevenuePJ)
	a.DeductibleExpenses = a.DeductibleExpenses.Add(b.DeductibleExpenses)
	a.DeductibleExpensesPF = a.DeductibleExpensesPF.Add(b.DeductibleExpensesPF)
	a.NonDeductibleExpenses = a.NonDeductibleExpenses.Add(b.NonDeductibleExpenses)
	a.TotalExpenses = a.TotalExpenses.Add(b.TotalExpenses)
	a.NetResult = a.NetResult.Add(b.NetResult)
	a.FixedExpenses = a.FixedExpenses.Add(b.FixedExpenses)
	a.VariableExpenses = a.VariableExpenses.Add(b.VariableExpenses)
	a.RevenueCount += b.RevenueCount
	a.ExpenseCount += b.ExpenseCount
	a.PendingDocuments += b.PendingDocuments
	a.EstimatedTaxPF = a.EstimatedTaxPF.Add(b.EstimatedTaxPF)
	a.EstimatedTaxPJ = a.EstimatedTaxPJ.Add(b.EstimatedTaxPJ)
	a.TotalEstimatedTax = a.TotalEstimatedTax.Add(b.TotalEstimatedTax)

	merged := make([]AccountTotal, 0, len(a.ExpensesByAccount)+len(b.ExpensesByAccount))
	index := make(map[string]int, len(a.ExpensesByAccount))
	for _, t := range a.ExpensesByAccount {
		index[t.AccountID] = len(merged)
		merged = append(merged, t)
	}
	for _, t := range b.ExpensesByAccount {
		if i, ok := index[t.AccountID]; ok {
			merged[i].Total = merged[i].Total.Add(t.Total)
			continue
		}
		index[t.AccountID] = len(merged)
		merged = append(merged, t)
	}
	a.ExpensesByAccount = merged
	return a
}
