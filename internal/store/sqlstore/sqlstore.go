// Package sqlstore implements store.Store on PostgreSQL through gorm.
// Amounts are stored as numeric(14,2) and read back as exact decimals.
package sqlstore

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/clinicbooks/clinicbooks/internal/model"
	"github.com/clinicbooks/clinicbooks/internal/store"
)

// Store is a gorm-backed store.Store.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

var _ store.Store = (*Store)(nil)

// Open connects to dsn and migrates the schema.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 newLogger(),
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	s := New(db)
	if err := s.Migrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// New wraps an open gorm handle without touching the schema.
func New(db *gorm.DB) *Store {
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Migrate creates or updates the tables.
func (s *Store) Migrate(ctx context.Context) error {
	for _, m := range []any{&ownerRow{}, &accountRow{}, &entryRow{}} {
		if err := s.db.WithContext(ctx).AutoMigrate(m); err != nil {
			return fmt.Errorf("migrating %T: %w", m, err)
		}
	}
	zerolog.Ctx(ctx).Debug().Msg("schema migrated")
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// translate maps driver failures onto the store's error vocabulary.
func translate(resource, id string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return &model.NotFoundError{Resource: resource, ID: id}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case isTransient(err):
		return store.Transient(err)
	}
	return err
}

// Connection exceptions, serialization failures, deadlocks and server
// shutdowns are safe to retry.
func isTransient(err error) bool {
	if pgconn.SafeToRetry(err) || pgconn.Timeout(err) || errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case len(pgErr.Code) == 5 && pgErr.Code[:2] == "08":
			return true
		case pgErr.Code == "40001", pgErr.Code == "40P01", pgErr.Code == "57P01":
			return true
		}
	}
	return false
}

// Entry operations

func (s *Store) CreateEntry(ctx context.Context, entry *model.Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now()
	}
	entry.UpdatedAt = entry.CreatedAt

	row := toEntryRow(*entry)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("inserting entry: %w", translate("entry", entry.ID, err))
	}
	return nil
}

func (s *Store) GetEntry(ctx context.Context, id string) (*model.Entry, error) {
	var row entryRow
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error; err != nil {
		return nil, translate("entry", id, err)
	}
	e := row.toModel()
	return &e, nil
}

func (s *Store) UpdateEntry(ctx context.Context, entry *model.Entry) error {
	entry.UpdatedAt = s.now()
	row := toEntryRow(*entry)
	res := s.db.WithContext(ctx).Model(&row).Select("*").Omit("id", "created_at").Updates(&row)
	if res.Error != nil {
		return fmt.Errorf("updating entry: %w", translate("entry", entry.ID, res.Error))
	}
	if res.RowsAffected == 0 {
		return &model.NotFoundError{Resource: "entry", ID: entry.ID}
	}
	return nil
}

func (s *Store) DeleteEntry(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&entryRow{})
	if res.Error != nil {
		return fmt.Errorf("deleting entry: %w", translate("entry", id, res.Error))
	}
	if res.RowsAffected == 0 {
		return &model.NotFoundError{Resource: "entry", ID: id}
	}
	return nil
}

// ListEntries pushes every structured predicate into SQL. The free-text
// search is accent-insensitive and runs in process.
func (s *Store) ListEntries(ctx context.Context, f model.EntryFilter) ([]model.Entry, error) {
	q := s.db.WithContext(ctx).Model(&entryRow{})
	if f.OwnerID != "" {
		q = q.Where("owner_id = ?", f.OwnerID)
	}
	if f.ClinicID != "" {
		q = q.Where("clinic_id = ?", f.ClinicID)
	}
	if f.Kind != "" {
		q = q.Where("kind = ?", string(f.Kind))
	}
	if f.Regime != "" {
		q = q.Where("regime = ?", string(f.Regime))
	}
	if f.AccountID != "" {
		q = q.Where("account_id = ?", f.AccountID)
	}
	if !f.From.IsZero() {
		q = q.Where("date >= ?", model.TruncateDate(f.From))
	}
	if !f.To.IsZero() {
		q = q.Where("date <= ?", model.TruncateDate(f.To))
	}

	var rows []entryRow
	if err := q.Order("date").Order("id").Find(&rows).Error; err != nil {
		return nil, translate("entry", "", err)
	}

	out := make([]model.Entry, 0, len(rows))
	for _, r := range rows {
		e := r.toModel()
		if store.MatchText(e, f.Text) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) CountEntriesByAccount(ctx context.Context, accountID string) (int, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&entryRow{}).Where("account_id = ?", accountID).Count(&n).Error
	if err != nil {
		return 0, translate("account", accountID, err)
	}
	return int(n), nil
}

func (s *Store) ReassignAccount(ctx context.Context, fromID, toID string) (int, error) {
	res := s.db.WithContext(ctx).Model(&entryRow{}).
		Where("account_id = ?", fromID).
		Updates(map[string]any{"account_id": toID, "updated_at": s.now()})
	if res.Error != nil {
		return 0, fmt.Errorf("re-pointing entries: %w", translate("account", fromID, res.Error))
	}
	return int(res.RowsAffected), nil
}

// Account operations

func (s *Store) CreateAccount(ctx context.Context, account *model.ChartAccount) error {
	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = s.now()
	}
	row := toAccountRow(*account)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("inserting account: %w", translate("account", account.ID, err))
	}
	return nil
}

func (s *Store) GetAccount(ctx context.Context, id string) (*model.ChartAccount, error) {
	var row accountRow
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error; err != nil {
		return nil, translate("account", id, err)
	}
	a := row.toModel()
	return &a, nil
}

func (s *Store) UpdateAccount(ctx context.Context, account *model.ChartAccount) error {
	row := toAccountRow(*account)
	res := s.db.WithContext(ctx).Model(&row).Select("*").Omit("id", "created_at").Updates(&row)
	if res.Error != nil {
		return fmt.Errorf("updating account: %w", translate("account", account.ID, res.Error))
	}
	if res.RowsAffected == 0 {
		return &model.NotFoundError{Resource: "account", ID: account.ID}
	}
	return nil
}

func (s *Store) DeleteAccount(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&accountRow{})
	if res.Error != nil {
		return fmt.Errorf("deleting account: %w", translate("account", id, res.Error))
	}
	if res.RowsAffected == 0 {
		return &model.NotFoundError{Resource: "account", ID: id}
	}
	return nil
}

func (s *Store) ListAccounts(ctx context.Context, clinicID string) ([]model.ChartAccount, error) {
	q := s.db.WithContext(ctx).Model(&accountRow{})
	if clinicID != "" {
		q = q.Where("clinic_id = ?", clinicID)
	}
	var rows []accountRow
	if err := q.Order("name").Order("id").Find(&rows).Error; err != nil {
		return nil, translate("account", "", err)
	}
	out := make([]model.ChartAccount, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

// Owner operations

func (s *Store) CreateOwner(ctx context.Context, owner *model.Owner) error {
	if owner.ID == "" {
		owner.ID = uuid.New().String()
	}
	if owner.CreatedAt.IsZero() {
		owner.CreatedAt = s.now()
	}
	row := toOwnerRow(*owner)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("inserting owner: %w", translate("owner", owner.ID, err))
	}
	return nil
}

func (s *Store) GetOwner(ctx context.Context, id string) (*model.Owner, error) {
	var row ownerRow
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error; err != nil {
		return nil, translate("owner", id, err)
	}
	o := row.toModel()
	return &o, nil
}

func (s *Store) UpdateOwner(ctx context.Context, owner *model.Owner) error {
	row := toOwnerRow(*owner)
	res := s.db.WithContext(ctx).Model(&row).Select("*").Omit("id", "created_at").Updates(&row)
	if res.Error != nil {
		return fmt.Errorf("updating owner: %w", translate("owner", owner.ID, res.Error))
	}
	if res.RowsAffected == 0 {
		return &model.NotFoundError{Resource: "owner", ID: owner.ID}
	}
	return nil
}

func (s *Store) ListOwners(ctx context.Context) ([]model.Owner, error) {
	var rows []ownerRow
	if err := s.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, translate("owner", "", err)
	}
	out := make([]model.Owner, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}
