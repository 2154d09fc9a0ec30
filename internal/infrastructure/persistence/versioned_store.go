package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// VersionedModel is a tenant-scoped row written through VersionedStore.
// Its writable columns are declared statically.
type VersionedModel interface {
	TableName() string
	EntityName() string
	Key() (id uuid.UUID, tenantID uuid.UUID)
	IdentityColumns() map[string]any
	WriteColumns() map[string]any
	OptionalColumns() []string
}

// StoreOptions configures row locking and optional-column handling
type StoreOptions struct {
	// LockWaitTimeout bounds how long a row lock may be awaited. Zero means NOWAIT.
	LockWaitTimeout time.Duration
	Schema          *SchemaCheck
}

// VersionedStore is the optimistic-concurrency write primitive shared by every
// mutable entity. The compare-and-increment happens in one conditional UPDATE.
type VersionedStore struct {
	db   *gorm.DB
	opts StoreOptions
}

// NewVersionedStore creates a store on db
func NewVersionedStore(db *gorm.DB, opts StoreOptions) *VersionedStore {
	return &VersionedStore{db: db, opts: opts}
}

// WithDB returns a store bound to another handle, typically a transaction
func (s *VersionedStore) WithDB(db *gorm.DB) *VersionedStore {
	return &VersionedStore{db: db, opts: s.opts}
}

// DB returns the handle bound to ctx
func (s *VersionedStore) DB(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// Locked returns a query that takes an exclusive row lock on the selected rows
func (s *VersionedStore) Locked(ctx context.Context) (*gorm.DB, error) {
	return lockForUpdate(ctx, s.db, s.opts.LockWaitTimeout)
}

// Omitted lists the optional columns of table that the live schema lacks
func (s *VersionedStore) Omitted(table string) []string {
	return s.opts.Schema.Missing(table)
}

// Insert creates value with its associations, leaving out missing optional columns
func (s *VersionedStore) Insert(ctx context.Context, table string, value any) error {
	tx := s.DB(ctx)
	if omit := s.Omitted(table); len(omit) > 0 {
		tx = tx.Omit(omit...)
	}
	return classifyError(tx.Create(value).Error, table)
}

type upsertOptions struct {
	resurrect bool
	deletedAt *time.Time
}

// UpsertOption adjusts a single Upsert
type UpsertOption func(*upsertOptions)

// WithResurrect lets the write clear deleted_at. Only explicit restore paths use it.
func WithResurrect() UpsertOption {
	return func(o *upsertOptions) { o.resurrect = true }
}

// WithSoftDelete marks the row deleted as part of the write
func WithSoftDelete(at time.Time) UpsertOption {
	return func(o *upsertOptions) { o.deletedAt = &at }
}

// Upsert writes m and returns the version now stored.
//
// A missing row is inserted with version 1. An existing live row is updated with
// version+1, but only when expected is unset, matches, or the row has no version
// yet. A stale expected version fails with ConflictError and writes nothing.
// A soft-deleted row fails with ErrRecordDeleted unless WithResurrect is given.
func (s *VersionedStore) Upsert(ctx context.Context, m VersionedModel, expected shared.ExpectedVersion, opts ...UpsertOption) (shared.NullableVersion, error) {
	var o upsertOptions
	for _, opt := range opts {
		opt(&o)
	}
	table := m.TableName()
	id, tenantID := m.Key()

	var stored shared.NullableVersion
	err := s.DB(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		cols := s.writable(table, m.WriteColumns())
		cols["version"] = gorm.Expr("COALESCE(version, 0) + 1")
		cols["updated_at"] = now
		if o.resurrect {
			cols["deleted_at"] = nil
		}
		if o.deletedAt != nil {
			cols["deleted_at"] = *o.deletedAt
		}

		q := tx.Table(table).Where("id = ? AND tenant_id = ?", id, tenantID)
		if !o.resurrect {
			q = q.Where("deleted_at IS NULL")
		}
		if want, ok := expected.Get(); ok {
			q = q.Where("(version = ? OR version IS NULL)", want)
		}
		res := q.Updates(cols)
		if res.Error != nil {
			return classifyError(res.Error, m.EntityName())
		}

		if res.RowsAffected == 0 {
			if err := s.explainMiss(tx, m); err != nil {
				return err
			}
			if err := s.insertFirstVersion(tx, m, now); err != nil {
				return err
			}
		}

		v, err := readVersion(tx, table, id, tenantID)
		if err != nil {
			return classifyError(err, m.EntityName())
		}
		stored = v
		return nil
	})
	if err != nil {
		return shared.NoVersion(), err
	}
	return stored, nil
}

// explainMiss decides why the conditional update matched nothing. It returns nil
// only when the row does not exist at all.
func (s *VersionedStore) explainMiss(tx *gorm.DB, m VersionedModel) error {
	id, tenantID := m.Key()
	var (
		current   shared.NullableVersion
		deletedAt sql.NullTime
	)
	err := tx.Table(m.TableName()).
		Select("version", "deleted_at").
		Where("id = ? AND tenant_id = ?", id, tenantID).
		Row().
		Scan(&current, &deletedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil
	case err != nil:
		return classifyError(err, m.EntityName())
	case deletedAt.Valid:
		return fmt.Errorf("%s %s: %w", m.EntityName(), id, shared.ErrRecordDeleted)
	default:
		return shared.NewConflictError(m.EntityName(), id, current)
	}
}

func (s *VersionedStore) insertFirstVersion(tx *gorm.DB, m VersionedModel, now time.Time) error {
	id, _ := m.Key()
	values := s.writable(m.TableName(), m.WriteColumns())
	for k, v := range m.IdentityColumns() {
		values[k] = v
	}
	if created, ok := values["created_at"].(time.Time); !ok || created.IsZero() {
		values["created_at"] = now
	}
	values["updated_at"] = now
	values["version"] = 1

	res := tx.Table(m.TableName()).Clauses(clause.OnConflict{DoNothing: true}).Create(values)
	if res.Error != nil {
		return classifyError(res.Error, m.EntityName())
	}
	if res.RowsAffected == 0 {
		// the id was taken between the lookup and the insert, or by another tenant
		return shared.NewConflictError(m.EntityName(), id, shared.NoVersion())
	}
	return nil
}

// writable drops optional columns the live schema lacks
func (s *VersionedStore) writable(table string, cols map[string]any) map[string]any {
	out := make(map[string]any, len(cols)+3)
	caps := s.opts.Schema.Capabilities()
	for k, v := range cols {
		if caps.Has(table, k) {
			out[k] = v
		}
	}
	return out
}

func readVersion(tx *gorm.DB, table string, id, tenantID uuid.UUID) (shared.NullableVersion, error) {
	var v shared.NullableVersion
	err := tx.Table(table).
		Select("version").
		Where("id = ? AND tenant_id = ?", id, tenantID).
		Row().
		Scan(&v)
	return v, err
}
