// Package filestore keeps the ledger in a directory of CSV files: one file
// each for owners, the chart of accounts and entries. Reads are served from
// memory; every mutation rewrites the files.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/clinicbooks/clinicbooks/internal/accounts"
	"github.com/clinicbooks/clinicbooks/internal/ledger"
	"github.com/clinicbooks/clinicbooks/internal/model"
	"github.com/clinicbooks/clinicbooks/internal/store"
)

// File names inside the data directory.
const (
	OwnersFile   = "owners.csv"
	AccountsFile = "chart-of-accounts.csv"
	EntriesFile  = "entries.csv"
)

// Store is a store.Store persisted under a directory.
type Store struct {
	*store.MemoryStore

	dir string
	mu  sync.Mutex // serializes mutations and flushes
}

var _ store.Store = (*Store)(nil)

// Open loads the CSV files under dir, creating dir if needed. Missing files
// are treated as empty.
func Open(ctx context.Context, dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}

	var snap store.Snapshot
	var err error
	if snap.Owners, err = readFile(dir, OwnersFile, ReadOwners); err != nil {
		return nil, err
	}
	if snap.Accounts, err = readFile(dir, AccountsFile, accounts.ReadAccounts); err != nil {
		return nil, err
	}
	if snap.Entries, err = readFile(dir, EntriesFile, ledger.ReadEntries); err != nil {
		return nil, err
	}

	mem := store.NewMemoryStore()
	mem.Restore(snap)

	zerolog.Ctx(ctx).Debug().
		Str("dir", dir).
		Int("owners", len(snap.Owners)).
		Int("accounts", len(snap.Accounts)).
		Int("entries", len(snap.Entries)).
		Msg("file store opened")
	return &Store{MemoryStore: mem, dir: dir}, nil
}

// Dir returns the data directory.
func (s *Store) Dir() string {
	return s.dir
}

func readFile[T any](dir, name string, read func(io.Reader) ([]T, error)) ([]T, error) {
	path := filepath.Join(dir, name)
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	rows, err := read(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return rows, nil
}

// apply runs mutate against memory and persists the result. Mutations are
// serialized so a failed flush can put memory back to the state before
// mutate ran.
func (s *Store) apply(mutate func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.Snapshot()
	if err := mutate(); err != nil {
		return err
	}
	if err := s.flush(); err != nil {
		s.Restore(before)
		return err
	}
	return nil
}

// flush rewrites all three files from the current contents. Each file is
// written to a temporary name and renamed into place. Callers hold s.mu.
func (s *Store) flush() error {
	snap := s.Snapshot()
	if err := s.writeFile(OwnersFile, func(w io.Writer) error { return WriteOwners(w, snap.Owners) }); err != nil {
		return err
	}
	if err := s.writeFile(AccountsFile, func(w io.Writer) error { return accounts.WriteAccounts(w, snap.Accounts) }); err != nil {
		return err
	}
	return s.writeFile(EntriesFile, func(w io.Writer) error { return ledger.WriteEntries(w, snap.Entries) })
}

func (s *Store) writeFile(name string, write func(io.Writer) error) error {
	path := filepath.Join(s.dir, name)
	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

// Entry operations

func (s *Store) CreateEntry(ctx context.Context, entry *model.Entry) error {
	return s.apply(func() error { return s.MemoryStore.CreateEntry(ctx, entry) })
}

func (s *Store) UpdateEntry(ctx context.Context, entry *model.Entry) error {
	return s.apply(func() error { return s.MemoryStore.UpdateEntry(ctx, entry) })
}

func (s *Store) DeleteEntry(ctx context.Context, id string) error {
	return s.apply(func() error { return s.MemoryStore.DeleteEntry(ctx, id) })
}

func (s *Store) ReassignAccount(ctx context.Context, fromID, toID string) (int, error) {
	var n int
	err := s.apply(func() error {
		var err error
		n, err = s.MemoryStore.ReassignAccount(ctx, fromID, toID)
		return err
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Account operations

func (s *Store) CreateAccount(ctx context.Context, account *model.ChartAccount) error {
	return s.apply(func() error { return s.MemoryStore.CreateAccount(ctx, account) })
}

func (s *Store) UpdateAccount(ctx context.Context, account *model.ChartAccount) error {
	return s.apply(func() error { return s.MemoryStore.UpdateAccount(ctx, account) })
}

func (s *Store) DeleteAccount(ctx context.Context, id string) error {
	return s.apply(func() error { return s.MemoryStore.DeleteAccount(ctx, id) })
}

// Owner operations

func (s *Store) CreateOwner(ctx context.Context, owner *model.Owner) error {
	return s.apply(func() error { return s.MemoryStore.CreateOwner(ctx, owner) })
}

func (s *Store) UpdateOwner(ctx context.Context, owner *model.Owner) error {
	return s.apply(func() error { return s.MemoryStore.UpdateOwner(ctx, owner) })
}
