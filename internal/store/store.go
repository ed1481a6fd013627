// Package store defines the data-access boundary of the ledger core and its
// in-memory implementation. Concrete backends live in subpackages.
package store

import (
	"context"
	"strings"

	"github.com/clinicbooks/clinicbooks/internal/model"
	"github.com/clinicbooks/clinicbooks/internal/textmatch"
)

// EntryStore persists ledger entries.
type EntryStore interface {
	CreateEntry(ctx context.Context, entry *model.Entry) error
	GetEntry(ctx context.Context, id string) (*model.Entry, error)
	UpdateEntry(ctx context.Context, entry *model.Entry) error
	DeleteEntry(ctx context.Context, id string) error
	// ListEntries returns matching entries ordered by date, then id.
	ListEntries(ctx context.Context, filter model.EntryFilter) ([]model.Entry, error)
	CountEntriesByAccount(ctx context.Context, accountID string) (int, error)
	// ReassignAccount re-points every entry of fromID to toID and returns
	// how many were changed.
	ReassignAccount(ctx context.Context, fromID, toID string) (int, error)
}

// AccountStore persists chart-of-accounts rows.
type AccountStore interface {
	CreateAccount(ctx context.Context, account *model.ChartAccount) error
	GetAccount(ctx context.Context, id string) (*model.ChartAccount, error)
	UpdateAccount(ctx context.Context, account *model.ChartAccount) error
	DeleteAccount(ctx context.Context, id string) error
	// ListAccounts returns a clinic's accounts ordered by name, then id.
	ListAccounts(ctx context.Context, clinicID string) ([]model.ChartAccount, error)
}

// OwnerStore persists owners.
type OwnerStore interface {
	CreateOwner(ctx context.Context, owner *model.Owner) error
	GetOwner(ctx context.Context, id string) (*model.Owner, error)
	UpdateOwner(ctx context.Context, owner *model.Owner) error
	ListOwners(ctx context.Context) ([]model.Owner, error)
}

// Store is the full data-access interface consumed by the core.
type Store interface {
	EntryStore
	AccountStore
	OwnerStore
}

// MatchEntry reports whether e satisfies every set field of f. Backends
// that cannot push a predicate down use it to filter in process.
func MatchEntry(e model.Entry, f model.EntryFilter) bool {
	if f.OwnerID != "" && e.OwnerID != f.OwnerID {
		return false
	}
	if f.ClinicID != "" && e.ClinicID != f.ClinicID {
		return false
	}
	if f.Kind != "" && e.Kind != f.Kind {
		return false
	}
	if f.Regime != "" && e.Regime != f.Regime {
		return false
	}
	if f.AccountID != "" && e.AccountID != f.AccountID {
		return false
	}
	if !f.MatchesDate(e.Date) {
		return false
	}
	return MatchText(e, f.Text)
}

// MatchText applies the free-text search of a ledger listing: description,
// payer name and patient name, plus CPF/CNPJ digits when the query has any.
func MatchText(e model.Entry, query string) bool {
	if query == "" {
		return true
	}
	fields := []string{e.Description, e.Patient.Name}
	if e.Payer != nil {
		fields = append(fields, e.Payer.Name)
	}
	if textmatch.Contains(query, fields...) {
		return true
	}
	digits := textmatch.Digits(query)
	if digits == "" {
		return false
	}
	if e.Payer != nil && containsDigits(e.Payer.TaxID, digits) {
		return true
	}
	return containsDigits(e.Patient.TaxID, digits)
}

func containsDigits(taxID, digits string) bool {
	d := textmatch.Digits(taxID)
	return d != "" && strings.Contains(d, digits)
}
