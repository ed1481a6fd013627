package ledger

import (
	"fmt"
	"strings"

	"github.com/clinicbooks/clinicbooks/internal/model"
)

// normalize trims text fields, truncates the date and clears fields that do
// not belong to the entry's kind.
func normalize(e *model.Entry) {
	e.Description = strings.TrimSpace(e.Description)
	e.PaymentMethod = strings.TrimSpace(e.PaymentMethod)
	e.Notes = strings.TrimSpace(e.Notes)
	if !e.Date.IsZero() {
		e.Date = model.TruncateDate(e.Date)
	}

	switch e.Kind {
	case model.KindExpense:
		if e.CostBehavior == "" {
			e.CostBehavior = model.CostVariable
		}
		e.Patient = model.Patient{}
		e.Payer = nil
		e.DocumentIssued = false
	case model.KindRevenue:
		e.AccountID = ""
		e.CostBehavior = ""
		if e.Payer != nil {
			payer := *e.Payer
			e.Payer = &payer
			e.Payer.Name = strings.TrimSpace(e.Payer.Name)
			if e.Payer.Name == "" {
				e.Payer = nil
			}
		}
	}
}

// Validate checks the structural rules every stored entry satisfies.
// Regime and account resolution need the store and happen in the Service.
func Validate(e model.Entry) error {
	if e.OwnerID == "" {
		return &model.ValidationError{Field: "ownerId", Reason: "required"}
	}
	if e.ClinicID == "" {
		return &model.ValidationError{Field: "clinicId", Reason: "required"}
	}
	if !e.Kind.Valid() {
		return &model.ValidationError{Field: "kind", Reason: fmt.Sprintf("must be revenue or expense, got %q", e.Kind)}
	}
	if e.Date.IsZero() {
		return &model.ValidationError{Field: "date", Reason: "required"}
	}
	if !e.Amount.IsPositive() {
		return &model.ValidationError{Field: "amount", Reason: fmt.Sprintf("must be > 0, got %s", e.Amount)}
	}
	if !model.HasCents(e.Amount) {
		return &model.ValidationError{Field: "amount", Reason: fmt.Sprintf("%s has more than 2 decimal places", e.Amount)}
	}
	if e.Regime != "" && !e.Regime.Valid() {
		return &model.ValidationError{Field: "regime", Reason: fmt.Sprintf("must be PF or PJ, got %q", e.Regime)}
	}

	if e.IsExpense() {
		if !e.CostBehavior.Valid() {
			return &model.ValidationError{Field: "costBehavior", Reason: fmt.Sprintf("must be fixed or variable, got %q", e.CostBehavior)}
		}
		if e.AccountID == "" {
			return &model.ValidationError{Field: "accountId", Reason: "expense requires a chart account"}
		}
	}
	if e.Payer != nil && e.Payer.PersonType != "" && e.Payer.PersonType != model.PersonPF && e.Payer.PersonType != model.PersonPJ {
		return &model.ValidationError{Field: "payer.personType", Reason: fmt.Sprintf("must be PF or PJ, got %q", e.Payer.PersonType)}
	}
	return nil
}
