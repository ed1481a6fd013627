// Package ledger is the write path for revenue and expense entries. It
// validates, stamps the tax regime and records an audit trail; reads go
// straight to the store.
package ledger

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/clinicbooks/clinicbooks/internal/auditlog"
	"github.com/clinicbooks/clinicbooks/internal/model"
	"github.com/clinicbooks/clinicbooks/internal/regime"
	"github.com/clinicbooks/clinicbooks/internal/store"
)

// AccountChecker resolves the chart account an expense points at. It fails
// with a *model.ValidationError when the account is unknown, inactive or
// owned by another clinic.
type AccountChecker interface {
	RequireActive(ctx context.Context, id, clinicID string) (*model.ChartAccount, error)
}

// Service provides business logic for ledger entries.
type Service struct {
	entries  store.EntryStore
	owners   store.OwnerStore
	accounts AccountChecker
	audit    auditlog.Recorder
	actor    string
}

// Params holds the collaborators of a Service. Audit may be nil.
type Params struct {
	Entries  store.EntryStore
	Owners   store.OwnerStore
	Accounts AccountChecker
	Audit    auditlog.Recorder
	Actor    string // recorded as the author of every mutation
}

// NewService creates a ledger Service.
func NewService(p Params) *Service {
	audit := p.Audit
	if audit == nil {
		audit = auditlog.Discard
	}
	return &Service{
		entries:  p.Entries,
		owners:   p.Owners,
		accounts: p.Accounts,
		audit:    audit,
		actor:    p.Actor,
	}
}

// Patch is a partial update. Nil fields are left unchanged.
type Patch struct {
	Kind           *model.Kind // must match the stored kind when set
	Date           *time.Time
	Amount         *decimal.Decimal
	Description    *string
	Regime         *model.Regime
	PaymentMethod  *string
	Notes          *string
	AccountID      *string
	CostBehavior   *model.CostBehavior
	Patient        *model.Patient
	Payer          *model.Payer
	ClearPayer     bool
	DocumentIssued *bool
}

// Create validates entry, stamps its regime and stores it under a new id.
// The clinic defaults to the owner's clinic and must equal it when set.
func (s *Service) Create(ctx context.Context, entry model.Entry) (*model.Entry, error) {
	entry.ID = ""
	owner, err := s.owners.GetOwner(ctx, entry.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("loading owner: %w", err)
	}
	if entry.ClinicID == "" {
		entry.ClinicID = owner.ClinicID
	}

	normalize(&entry)
	if err := s.check(ctx, *owner, &entry, checkOpts{resolveAccount: true}); err != nil {
		return nil, err
	}

	if err := s.entries.CreateEntry(ctx, &entry); err != nil {
		return nil, fmt.Errorf("creating entry: %w", err)
	}

	s.record(ctx, auditlog.ActionCreate, entry)
	return &entry, nil
}

// Update merges patch into the stored entry and re-validates the result
// under the creation rules. The stored regime tag is kept unless the patch
// sets one. An unchanged reference to a since-deactivated account stays
// valid; a changed reference must point at an active account.
func (s *Service) Update(ctx context.Context, id string, patch Patch) (*model.Entry, error) {
	current, err := s.entries.GetEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	owner, err := s.owners.GetOwner(ctx, current.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("loading owner: %w", err)
	}

	if patch.Kind != nil && *patch.Kind != current.Kind {
		return nil, &model.ValidationError{Field: "kind", Reason: "cannot change between revenue and expense"}
	}

	merged := *current
	applyPatch(&merged, patch)
	normalize(&merged)

	opts := checkOpts{
		resolveAccount: merged.AccountID != current.AccountID,
		keepTag:        patch.Regime == nil,
	}
	if err := s.check(ctx, *owner, &merged, opts); err != nil {
		return nil, err
	}

	if err := s.entries.UpdateEntry(ctx, &merged); err != nil {
		return nil, fmt.Errorf("updating entry: %w", err)
	}

	s.record(ctx, auditlog.ActionUpdate, merged)
	return &merged, nil
}

// Delete removes an entry. Unknown ids fail with *model.NotFoundError.
func (s *Service) Delete(ctx context.Context, id string) error {
	current, err := s.entries.GetEntry(ctx, id)
	if err != nil {
		return err
	}
	if err := s.entries.DeleteEntry(ctx, id); err != nil {
		return fmt.Errorf("deleting entry: %w", err)
	}
	s.record(ctx, auditlog.ActionDelete, *current)
	return nil
}

// Get returns one entry.
func (s *Service) Get(ctx context.Context, id string) (*model.Entry, error) {
	return s.entries.GetEntry(ctx, id)
}

// List returns ownerID's entries matching filter, ordered by date. An
// unknown owner fails with *model.NotFoundError.
func (s *Service) List(ctx context.Context, ownerID string, filter model.EntryFilter) ([]model.Entry, error) {
	if ownerID == "" {
		return nil, &model.ValidationError{Field: "ownerId", Reason: "required"}
	}
	if _, err := s.owners.GetOwner(ctx, ownerID); err != nil {
		return nil, err
	}
	filter.OwnerID = ownerID
	entries, err := s.entries.ListEntries(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}
	return entries, nil
}

// Import creates every entry read from a ledger CSV. Entries are created in
// file order and the first failure stops the import; the returned count
// says how many were stored.
func (s *Service) Import(ctx context.Context, r io.Reader) (int, error) {
	rows, err := ReadEntries(r)
	if err != nil {
		return 0, err
	}
	return s.CreateAll(ctx, rows, "ledger csv")
}

// CreateAll creates entries in order and stops at the first failure. Row
// numbers in errors count a header line. source is written to the audit
// trail.
func (s *Service) CreateAll(ctx context.Context, entries []model.Entry, source string) (int, error) {
	for i, e := range entries {
		e.ID = ""
		if _, err := s.Create(ctx, e); err != nil {
			return i, fmt.Errorf("row %d: %w", i+2, err)
		}
	}
	if err := s.audit.Record(ctx, auditlog.Record{
		Actor:    s.actor,
		Action:   auditlog.ActionImport,
		Resource: "entry",
		Details:  fmt.Sprintf("%d entries from %s", len(entries), source),
	}); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("audit log write failed")
	}
	zerolog.Ctx(ctx).Info().Int("entries", len(entries)).Str("source", source).Msg("ledger import complete")
	return len(entries), nil
}

// Export writes ownerID's entries matching filter as CSV.
func (s *Service) Export(ctx context.Context, w io.Writer, ownerID string, filter model.EntryFilter) error {
	entries, err := s.List(ctx, ownerID, filter)
	if err != nil {
		return err
	}
	return WriteEntries(w, entries)
}

type checkOpts struct {
	resolveAccount bool // look the account up; off for unchanged references
	keepTag        bool // a valid stored regime tag wins over the owner type
}

func (s *Service) check(ctx context.Context, owner model.Owner, e *model.Entry, opts checkOpts) error {
	if e.OwnerID != owner.ID {
		return &model.ValidationError{Field: "ownerId", Reason: "does not match owner"}
	}
	if err := Validate(*e); err != nil {
		return err
	}
	if e.ClinicID != owner.ClinicID {
		return &model.ValidationError{
			Field:  "clinicId",
			Reason: fmt.Sprintf("entry clinic %q differs from the owner's clinic %q", e.ClinicID, owner.ClinicID),
		}
	}

	resolve := regime.Resolve
	if opts.keepTag {
		resolve = regime.Attribute
	}
	r, err := resolve(owner, *e)
	if err != nil {
		return err
	}
	e.Regime = r

	if e.IsExpense() && opts.resolveAccount {
		if _, err := s.accounts.RequireActive(ctx, e.AccountID, e.ClinicID); err != nil {
			return err
		}
	}
	return nil
}

func applyPatch(e *model.Entry, p Patch) {
	if p.Date != nil {
		e.Date = *p.Date
	}
	if p.Amount != nil {
		e.Amount = *p.Amount
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.Regime != nil {
		e.Regime = *p.Regime
	}
	if p.PaymentMethod != nil {
		e.PaymentMethod = *p.PaymentMethod
	}
	if p.Notes != nil {
		e.Notes = *p.Notes
	}
	if p.AccountID != nil {
		e.AccountID = *p.AccountID
	}
	if p.CostBehavior != nil {
		e.CostBehavior = *p.CostBehavior
	}
	if p.Patient != nil {
		e.Patient = *p.Patient
	}
	if p.ClearPayer {
		e.Payer = nil
	}
	if p.Payer != nil {
		payer := *p.Payer
		e.Payer = &payer
	}
	if p.DocumentIssued != nil {
		e.DocumentIssued = *p.DocumentIssued
	}
}

func (s *Service) record(ctx context.Context, action string, e model.Entry) {
	rec := auditlog.Record{
		Actor:      s.actor,
		Action:     action,
		Resource:   "entry",
		ResourceID: e.ID,
		OwnerID:    e.OwnerID,
		Details:    fmt.Sprintf("%s %s %s %s", e.Kind, e.Date.Format(model.DateFormat), model.FormatMoney(e.Amount), e.Regime),
	}
	if err := s.audit.Record(ctx, rec); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("entry", e.ID).Str("action", action).Msg("audit log write failed")
	}
}
