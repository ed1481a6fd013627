package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clinicbooks/clinicbooks/internal/model"
)

// MemoryStore implements Store with in-memory maps. Values are copied on the
// way in and out so callers never share state with the store.
type MemoryStore struct {
	mu sync.RWMutex

	entries  map[string]model.Entry
	accounts map[string]model.ChartAccount
	owners   map[string]model.Owner

	now func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries:  make(map[string]model.Entry),
		accounts: make(map[string]model.ChartAccount),
		owners:   make(map[string]model.Owner),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// duplicateID mirrors the unique-key violation a database reports for a
// caller-chosen id that is already taken.
func duplicateID(resource, id string) error {
	return &model.ValidationError{Field: "id", Reason: fmt.Sprintf("%s %q already exists", resource, id)}
}

func copyEntry(e model.Entry) model.Entry {
	if e.Payer != nil {
		p := *e.Payer
		e.Payer = &p
	}
	return e
}

// Entry operations

func (m *MemoryStore) CreateEntry(ctx context.Context, entry *model.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.New().String()
	} else if _, ok := m.entries[entry.ID]; ok {
		return duplicateID("entry", entry.ID)
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = m.now()
	}
	entry.UpdatedAt = entry.CreatedAt
	m.entries[entry.ID] = copyEntry(*entry)
	return nil
}

func (m *MemoryStore) GetEntry(ctx context.Context, id string) (*model.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[id]
	if !ok {
		return nil, &model.NotFoundError{Resource: "entry", ID: id}
	}
	out := copyEntry(e)
	return &out, nil
}

func (m *MemoryStore) UpdateEntry(ctx context.Context, entry *model.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[entry.ID]; !ok {
		return &model.NotFoundError{Resource: "entry", ID: entry.ID}
	}
	entry.UpdatedAt = m.now()
	m.entries[entry.ID] = copyEntry(*entry)
	return nil
}

func (m *MemoryStore) DeleteEntry(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[id]; !ok {
		return &model.NotFoundError{Resource: "entry", ID: id}
	}
	delete(m.entries, id)
	return nil
}

func (m *MemoryStore) ListEntries(ctx context.Context, filter model.EntryFilter) ([]model.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.Entry
	for _, e := range m.entries {
		if MatchEntry(e, filter) {
			out = append(out, copyEntry(e))
		}
	}
	SortEntries(out)
	return out, nil
}

func (m *MemoryStore) CountEntriesByAccount(ctx context.Context, accountID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, e := range m.entries {
		if e.AccountID == accountID {
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) ReassignAccount(ctx context.Context, fromID, toID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	now := m.now()
	for id, e := range m.entries {
		if e.AccountID != fromID {
			continue
		}
		e.AccountID = toID
		e.UpdatedAt = now
		m.entries[id] = e
		n++
	}
	return n, nil
}

// Account operations

func (m *MemoryStore) CreateAccount(ctx context.Context, account *model.ChartAccount) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if account.ID == "" {
		account.ID = uuid.New().String()
	} else if _, ok := m.accounts[account.ID]; ok {
		return duplicateID("account", account.ID)
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = m.now()
	}
	m.accounts[account.ID] = *account
	return nil
}

func (m *MemoryStore) GetAccount(ctx context.Context, id string) (*model.ChartAccount, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.accounts[id]
	if !ok {
		return nil, &model.NotFoundError{Resource: "account", ID: id}
	}
	return &a, nil
}

func (m *MemoryStore) UpdateAccount(ctx context.Context, account *model.ChartAccount) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.accounts[account.ID]; !ok {
		return &model.NotFoundError{Resource: "account", ID: account.ID}
	}
	m.accounts[account.ID] = *account
	return nil
}

func (m *MemoryStore) DeleteAccount(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.accounts[id]; !ok {
		return &model.NotFoundError{Resource: "account", ID: id}
	}
	delete(m.accounts, id)
	return nil
}

func (m *MemoryStore) ListAccounts(ctx context.Context, clinicID string) ([]model.ChartAccount, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.ChartAccount
	for _, a := range m.accounts {
		if clinicID == "" || a.ClinicID == clinicID {
			out = append(out, a)
		}
	}
	SortAccounts(out)
	return out, nil
}

// Owner operations

func (m *MemoryStore) CreateOwner(ctx context.Context, owner *model.Owner) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if owner.ID == "" {
		owner.ID = uuid.New().String()
	} else if _, ok := m.owners[owner.ID]; ok {
		return duplicateID("owner", owner.ID)
	}
	if owner.CreatedAt.IsZero() {
		owner.CreatedAt = m.now()
	}
	m.owners[owner.ID] = *owner
	return nil
}

func (m *MemoryStore) GetOwner(ctx context.Context, id string) (*model.Owner, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	o, ok := m.owners[id]
	if !ok {
		return nil, &model.NotFoundError{Resource: "owner", ID: id}
	}
	return &o, nil
}

func (m *MemoryStore) UpdateOwner(ctx context.Context, owner *model.Owner) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.owners[owner.ID]; !ok {
		return &model.NotFoundError{Resource: "owner", ID: owner.ID}
	}
	m.owners[owner.ID] = *owner
	return nil
}

func (m *MemoryStore) ListOwners(ctx context.Context) ([]model.Owner, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.Owner, 0, len(m.owners))
	for _, o := range m.owners {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// SortEntries orders entries by date, then id.
func SortEntries(entries []model.Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].Date.Equal(entries[j].Date) {
			return entries[i].Date.Before(entries[j].Date)
		}
		return entries[i].ID < entries[j].ID
	})
}

// SortAccounts orders accounts by name, then id.
func SortAccounts(accounts []model.ChartAccount) {
	sort.Slice(accounts, func(i, j int) bool {
		if accounts[i].Name != accounts[j].Name {
			return accounts[i].Name < accounts[j].Name
		}
		return accounts[i].ID < accounts[j].ID
	})
}

// Snapshot is a copy of every record held by a MemoryStore, each slice in
// listing order.
type Snapshot struct {
	Owners   []model.Owner
	Accounts []model.ChartAccount
	Entries  []model.Entry
}

// Snapshot copies the current contents of the store.
func (m *MemoryStore) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := Snapshot{
		Owners:   make([]model.Owner, 0, len(m.owners)),
		Accounts: make([]model.ChartAccount, 0, len(m.accounts)),
		Entries:  make([]model.Entry, 0, len(m.entries)),
	}
	for _, o := range m.owners {
		s.Owners = append(s.Owners, o)
	}
	for _, a := range m.accounts {
		s.Accounts = append(s.Accounts, a)
	}
	for _, e := range m.entries {
		s.Entries = append(s.Entries, copyEntry(e))
	}
	sort.Slice(s.Owners, func(i, j int) bool { return s.Owners[i].ID < s.Owners[j].ID })
	SortAccounts(s.Accounts)
	SortEntries(s.Entries)
	return s
}

// Restore replaces the contents of the store with s. Records keep their ids
// and timestamps.
func (m *MemoryStore) Restore(s Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.owners = make(map[string]model.Owner, len(s.Owners))
	for _, o := range s.Owners {
		m.owners[o.ID] = o
	}
	m.accounts = make(map[string]model.ChartAccount, len(s.Accounts))
	for _, a := range s.Accounts {
		m.accounts[a.ID] = a
	}
	m.entries = make(map[string]model.Entry, len(s.Entries))
	for _, e := range s.Entries {
		m.entries[e.ID] = copyEntry(e)
	}
}
