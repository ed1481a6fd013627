package model

import "strings"

// PersonType is the tax profile of an owner.
type PersonType string

const (
	PersonPF      PersonType = "PF"
	PersonPJ      PersonType = "PJ"
	PersonHibrido PersonType = "HIBRIDO"
)

// Valid reports whether t is a known person type.
func (t PersonType) Valid() bool {
	switch t {
	case PersonPF, PersonPJ, PersonHibrido:
		return true
	}
	return false
}

// ParsePersonType accepts any casing ("hibrido", "Pj").
func ParsePersonType(s string) (PersonType, error) {
	t := PersonType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", &ValidationError{Field: "personType", Reason: "must be PF, PJ or HIBRIDO, got " + quote(s)}
	}
	return t, nil
}

// Regime is the tax regime a single entry is attributed to. HIBRIDO is an
// owner capability, never an entry regime.
type Regime string

const (
	RegimePF Regime = "PF"
	RegimePJ Regime = "PJ"
)

// Valid reports whether r is PF or PJ.
func (r Regime) Valid() bool {
	return r == RegimePF || r == RegimePJ
}

// ParseRegime parses "pf"/"PJ". The empty string yields an empty regime
// without error so callers can distinguish "not supplied".
func ParseRegime(s string) (Regime, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return "", nil
	}
	r := Regime(s)
	if !r.Valid() {
		return "", &ValidationError{Field: "regime", Reason: "must be PF or PJ, got " + quote(s)}
	}
	return r, nil
}

// Kind discriminates revenue from expense entries.
type Kind string

const (
	KindRevenue Kind = "revenue"
	KindExpense Kind = "expense"
)

// Valid reports whether k is revenue or expense.
func (k Kind) Valid() bool {
	return k == KindRevenue || k == KindExpense
}

// CostBehavior classifies an expense as fixed or variable. It is
// independent of the deductible flag on the chart account.
type CostBehavior string

const (
	CostFixed    CostBehavior = "fixed"
	CostVariable CostBehavior = "variable"
)

// Valid reports whether c is fixed or variable.
func (c CostBehavior) Valid() bool {
	return c == CostFixed || c == CostVariable
}

func quote(s string) string {
	return "\"" + s + "\""
}
