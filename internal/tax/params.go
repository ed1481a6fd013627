// Package tax estimates monthly PF (carnê-leão) and PJ (Simples Nacional)
// liabilities from period aggregates. Bracket tables are versioned input
// loaded from YAML, never constants of this package.
package tax

import (
	"fmt"
	"io"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/clinicbooks/clinicbooks/internal/model"
)

// ZeroLiabilityExemptCeiling reports the deductible spending that would bring
// the PF base down to the ceiling of the exempt bracket.
const ZeroLiabilityExemptCeiling = "exempt_ceiling"

// Bracket is one row of a progressive table. A zero UpTo marks the last,
// unbounded row.
type Bracket struct {
	UpTo      decimal.Decimal `yaml:"up_to,omitempty"`
	Rate      decimal.Decimal `yaml:"rate"`
	Deduction decimal.Decimal `yaml:"deduction"`
}

// Unbounded reports whether b has no upper limit.
func (b Bracket) Unbounded() bool {
	return b.UpTo.IsZero()
}

// Table is an ordered bracket list.
type Table []Bracket

// Find returns the bracket containing base, or false when base exceeds every
// bounded bracket and the table has no unbounded row.
func (t Table) Find(base decimal.Decimal) (Bracket, bool) {
	for _, b := range t {
		if b.Unbounded() || base.LessThanOrEqual(b.UpTo) {
			return b, true
		}
	}
	return Bracket{}, false
}

// PFParameters configure the individual (carnê-leão) estimate.
type PFParameters struct {
	Brackets      Table  `yaml:"brackets"`
	ZeroLiability string `yaml:"zero_liability,omitempty"`
}

// PJParameters configure the Simples Nacional estimate.
type PJParameters struct {
	Annex                 string `yaml:"annex"`
	Brackets              Table  `yaml:"brackets"`
	AnnualizeShortHistory bool   `yaml:"annualize_short_history"`
}

// Parameters is the versioned regime configuration blob.
type Parameters struct {
	Version string       `yaml:"version"`
	PF      PFParameters `yaml:"pf"`
	PJ      PJParameters `yaml:"pj"`
}

// Validate checks table shape: ascending limits, only the last row
// unbounded, rates within [0, 1] and non-negative deductions.
func (p Parameters) Validate() error {
	if p.Version == "" {
		return &model.ValidationError{Field: "version", Reason: "required"}
	}
	if err := validateTable("pf.brackets", p.PF.Brackets); err != nil {
		return err
	}
	if err := validateTable("pj.brackets", p.PJ.Brackets); err != nil {
		return err
	}
	switch p.PF.ZeroLiability {
	case "", ZeroLiabilityExemptCeiling:
	default:
		return &model.ValidationError{Field: "pf.zero_liability", Reason: fmt.Sprintf("unknown formula %q", p.PF.ZeroLiability)}
	}
	return nil
}

func validateTable(field string, t Table) error {
	if len(t) == 0 {
		return &model.ValidationError{Field: field, Reason: "at least one bracket required"}
	}
	one := decimal.NewFromInt(1)
	prev := decimal.Zero
	for i, b := range t {
		f := fmt.Sprintf("%s[%d]", field, i)
		if b.Unbounded() && i != len(t)-1 {
			return &model.ValidationError{Field: f, Reason: "only the last bracket may be unbounded"}
		}
		if !b.Unbounded() && !b.UpTo.GreaterThan(prev) {
			return &model.ValidationError{Field: f, Reason: "limits must be ascending"}
		}
		if b.Rate.IsNegative() || b.Rate.GreaterThan(one) {
			return &model.ValidationError{Field: f, Reason: "rate must be within [0, 1]"}
		}
		if b.Deduction.IsNegative() {
			return &model.ValidationError{Field: f, Reason: "deduction must be >= 0"}
		}
		prev = b.UpTo
	}
	return nil
}

// ParseParameters decodes and validates a parameters blob.
func ParseParameters(r io.Reader) (Parameters, error) {
	var p Parameters
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return Parameters{}, fmt.Errorf("parsing tax parameters: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Parameters{}, err
	}
	return p, nil
}

// LoadParameters reads a parameters file.
func LoadParameters(path string) (Parameters, error) {
	f, err := os.Open(path)
	if err != nil {
		return Parameters{}, fmt.Errorf("opening tax parameters: %w", err)
	}
	defer f.Close()
	return ParseParameters(f)
}

// WriteParameters encodes p as YAML.
func WriteParameters(w io.Writer, p Parameters) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("encoding tax parameters: %w", err)
	}
	return enc.Close()
}

// SaveParameters writes p to path.
func SaveParameters(path string, p Parameters) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating tax parameters file: %w", err)
	}
	defer f.Close()
	return WriteParameters(f, p)
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// DefaultParameters returns the 2025 monthly carnê-leão table and the
// Simples Nacional Annex III table (services, including dentistry).
func DefaultParameters() Parameters {
	return Parameters{
		Version: "2025-05",
		PF: PFParameters{
			Brackets: Table{
				{UpTo: d("2428.80"), Rate: d("0"), Deduction: d("0")},
				{UpTo: d("2826.65"), Rate: d("0.075"), Deduction: d("182.16")},
				{UpTo: d("3751.05"), Rate: d("0.15"), Deduction: d("394.16")},
				{UpTo: d("4664.68"), Rate: d("0.225"), Deduction: d("675.49")},
				{Rate: d("0.275"), Deduction: d("908.73")},
			},
			ZeroLiability: ZeroLiabilityExemptCeiling,
		},
		PJ: PJParameters{
			Annex: "III",
			Brackets: Table{
				{UpTo: d("180000"), Rate: d("0.06"), Deduction: d("0")},
				{UpTo: d("360000"), Rate: d("0.112"), Deduction: d("9360")},
				{UpTo: d("720000"), Rate: d("0.135"), Deduction: d("17640")},
				{UpTo: d("1800000"), Rate: d("0.16"), Deduction: d("35640")},
				{UpTo: d("3600000"), Rate: d("0.21"), Deduction: d("125640")},
				{UpTo: d("4800000"), Rate: d("0.33"), Deduction: d("648000")},
			},
		},
	}
}
