package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payer is a third party paying for a patient's treatment.
type Payer struct {
	Name       string
	TaxID      string // CPF or CNPJ
	PersonType PersonType
}

// Patient is the beneficiary of a revenue entry.
type Patient struct {
	Name  string
	TaxID string
}

// Entry is a single revenue or expense record owned by one owner and one clinic.
type Entry struct {
	ID            string
	OwnerID       string
	ClinicID      string
	Kind          Kind
	Date          time.Time       // calendar date, UTC midnight
	Amount        decimal.Decimal // always > 0
	Description   string
	Regime        Regime // stamped at creation; authoritative afterwards
	PaymentMethod string
	Notes         string

	// Expense only.
	AccountID    string
	CostBehavior CostBehavior

	// Revenue only.
	Patient        Patient
	Payer          *Payer // nil = the patient paid
	DocumentIssued bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsRevenue reports whether e is a revenue entry.
func (e Entry) IsRevenue() bool { return e.Kind == KindRevenue }

// IsExpense reports whether e is an expense entry.
func (e Entry) IsExpense() bool { return e.Kind == KindExpense }

// PayerName returns the name of whoever paid: the third-party payer when
// present, otherwise the patient.
func (e Entry) PayerName() string {
	if e.Payer != nil && e.Payer.Name != "" {
		return e.Payer.Name
	}
	return e.Patient.Name
}

// EntryFilter narrows a ledger listing. Zero values mean "any".
type EntryFilter struct {
	OwnerID   string
	ClinicID  string
	From      time.Time // inclusive
	To        time.Time // inclusive
	Kind      Kind
	Regime    Regime
	AccountID string
	Text      string // matched against description, payer and patient
}

// InPeriod returns a copy of f restricted to the days of p.
func (f EntryFilter) InPeriod(p Period) EntryFilter {
	f.From = p.First()
	f.To = p.Last()
	return f
}

// MatchesDate reports whether d is within [From, To].
func (f EntryFilter) MatchesDate(d time.Time) bool {
	d = TruncateDate(d)
	if !f.From.IsZero() && d.Before(TruncateDate(f.From)) {
		return false
	}
	if !f.To.IsZero() && d.After(TruncateDate(f.To)) {
		return false
	}
	return true
}
