// Package accounts classifies expenses against a clinic's chart of
// accounts: each account is either deductible or not, and may be retired
// without touching the entries that reference it.
package accounts

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/clinicbooks/clinicbooks/internal/model"
	"github.com/clinicbooks/clinicbooks/internal/store"
)

// Backend is the slice of the data store the classifier needs.
type Backend interface {
	store.AccountStore
	CountEntriesByAccount(ctx context.Context, accountID string) (int, error)
	ReassignAccount(ctx context.Context, fromID, toID string) (int, error)
}

// Service manages chart accounts on top of a Backend.
type Service struct {
	store Backend
}

// NewService creates a Service.
func NewService(b Backend) *Service {
	return &Service{store: b}
}

// List returns every account of a clinic, active or not.
func (s *Service) List(ctx context.Context, clinicID string) ([]model.ChartAccount, error) {
	accts, err := s.store.ListAccounts(ctx, clinicID)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	return accts, nil
}

// ListDeductible returns the active deductible accounts of a clinic, the
// choices offered for new expenses.
func (s *Service) ListDeductible(ctx context.Context, clinicID string) ([]model.ChartAccount, error) {
	return s.listActive(ctx, clinicID, true)
}

// ListNonDeductible returns the active non-deductible accounts of a clinic.
func (s *Service) ListNonDeductible(ctx context.Context, clinicID string) ([]model.ChartAccount, error) {
	return s.listActive(ctx, clinicID, false)
}

func (s *Service) listActive(ctx context.Context, clinicID string, deductible bool) ([]model.ChartAccount, error) {
	all, err := s.List(ctx, clinicID)
	if err != nil {
		return nil, err
	}
	result := []model.ChartAccount{}
	for _, a := range all {
		if a.Active && a.Deductible == deductible {
			result = append(result, a)
		}
	}
	return result, nil
}

// Get returns an account by ID.
func (s *Service) Get(ctx context.Context, id string) (*model.ChartAccount, error) {
	return s.store.GetAccount(ctx, id)
}

// RequireActive returns the account id refers to if it is active and owned
// by clinicID. Anything else is a validation failure of the referencing
// entry.
func (s *Service) RequireActive(ctx context.Context, id, clinicID string) (*model.ChartAccount, error) {
	if id == "" {
		return nil, &model.ValidationError{Field: "accountId", Reason: "expense requires a chart account"}
	}
	acct, err := s.store.GetAccount(ctx, id)
	if model.IsNotFound(err) {
		return nil, &model.ValidationError{Field: "accountId", Reason: fmt.Sprintf("account %q does not exist", id)}
	}
	if err != nil {
		return nil, err
	}
	if acct.ClinicID != clinicID {
		return nil, &model.ValidationError{Field: "accountId", Reason: fmt.Sprintf("account %q belongs to another clinic", id)}
	}
	if !acct.Active {
		return nil, &model.ValidationError{Field: "accountId", Reason: fmt.Sprintf("account %q is inactive", id)}
	}
	return acct, nil
}

// Upsert creates acct when its ID is empty or unknown, and updates it
// otherwise. New accounts start active. The deductible flag of an account
// that entries already reference cannot change, so past aggregates stay
// stable; deactivate it and create a new one instead.
func (s *Service) Upsert(ctx context.Context, acct model.ChartAccount) (*model.ChartAccount, error) {
	acct.Name = strings.TrimSpace(acct.Name)
	if acct.Name == "" {
		return nil, &model.ValidationError{Field: "name", Reason: "required"}
	}
	if acct.ClinicID == "" {
		return nil, &model.ValidationError{Field: "clinicId", Reason: "required"}
	}

	var existing *model.ChartAccount
	if acct.ID != "" {
		got, err := s.store.GetAccount(ctx, acct.ID)
		switch {
		case err == nil:
			existing = got
		case !model.IsNotFound(err):
			return nil, fmt.Errorf("loading account: %w", err)
		}
	}

	if existing == nil {
		acct.Active = true
		if err := s.store.CreateAccount(ctx, &acct); err != nil {
			return nil, fmt.Errorf("creating account: %w", err)
		}
		zerolog.Ctx(ctx).Info().Str("account", acct.ID).Str("clinic", acct.ClinicID).Msg("account created")
		return &acct, nil
	}

	if existing.ClinicID != acct.ClinicID {
		return nil, &model.ValidationError{Field: "clinicId", Reason: "an account cannot move between clinics"}
	}
	if existing.Deductible != acct.Deductible {
		n, err := s.store.CountEntriesByAccount(ctx, acct.ID)
		if err != nil {
			return nil, fmt.Errorf("counting references: %w", err)
		}
		if n > 0 {
			return nil, &model.ReferentialIntegrityError{
				AccountID:  acct.ID,
				References: n,
				Reason:     "deductible flag cannot change while entries reference the account",
			}
		}
	}

	acct.CreatedBy = existing.CreatedBy
	acct.CreatedAt = existing.CreatedAt
	if err := s.store.UpdateAccount(ctx, &acct); err != nil {
		return nil, fmt.Errorf("updating account: %w", err)
	}
	return &acct, nil
}

// Deactivate retires an account for new entries. Entries already pointing at
// it keep their classification. Deactivating twice is a no-op.
func (s *Service) Deactivate(ctx context.Context, id string) error {
	acct, err := s.store.GetAccount(ctx, id)
	if err != nil {
		return err
	}
	if !acct.Active {
		return nil
	}
	acct.Active = false
	if err := s.store.UpdateAccount(ctx, acct); err != nil {
		return fmt.Errorf("deactivating account: %w", err)
	}
	zerolog.Ctx(ctx).Info().Str("account", id).Msg("account deactivated")
	return nil
}

// Delete hard-deletes an account. A referenced account is rejected with a
// ReferentialIntegrityError unless replacementID names another account of
// the same clinic, in which case its entries are re-pointed first.
func (s *Service) Delete(ctx context.Context, id, replacementID string) error {
	acct, err := s.store.GetAccount(ctx, id)
	if err != nil {
		return err
	}

	n, err := s.store.CountEntriesByAccount(ctx, id)
	if err != nil {
		return fmt.Errorf("counting references: %w", err)
	}
	if n > 0 {
		if replacementID == "" {
			return &model.ReferentialIntegrityError{AccountID: id, References: n, Reason: "re-point entries or deactivate instead"}
		}
		if replacementID == id {
			return &model.ValidationError{Field: "replacementId", Reason: "must differ from the deleted account"}
		}
		repl, err := s.store.GetAccount(ctx, replacementID)
		if err != nil {
			return err
		}
		if repl.ClinicID != acct.ClinicID {
			return &model.ValidationError{Field: "replacementId", Reason: "replacement belongs to another clinic"}
		}
		if repl.Deductible != acct.Deductible {
			return &model.ReferentialIntegrityError{AccountID: id, References: n, Reason: "replacement has a different deductible flag"}
		}
		moved, err := s.store.ReassignAccount(ctx, id, replacementID)
		if err != nil {
			return fmt.Errorf("re-pointing entries: %w", err)
		}
		zerolog.Ctx(ctx).Info().Str("account", id).Str("replacement", replacementID).Int("entries", moved).Msg("entries re-pointed")
	}

	if err := s.store.DeleteAccount(ctx, id); err != nil {
		return fmt.Errorf("deleting account: %w", err)
	}
	return nil
}

// SeedDefaults creates DefaultChart for a clinic that has no accounts yet and
// returns how many were created.
func (s *Service) SeedDefaults(ctx context.Context, clinicID string) (int, error) {
	existing, err := s.List(ctx, clinicID)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}
	chart := DefaultChart(clinicID)
	for i := range chart {
		if err := s.store.CreateAccount(ctx, &chart[i]); err != nil {
			return i, fmt.Errorf("seeding %q: %w", chart[i].Name, err)
		}
	}
	return len(chart), nil
}

// Export writes a clinic's chart as CSV.
func (s *Service) Export(ctx context.Context, w io.Writer, clinicID string) error {
	accts, err := s.List(ctx, clinicID)
	if err != nil {
		return err
	}
	return WriteAccounts(w, accts)
}
