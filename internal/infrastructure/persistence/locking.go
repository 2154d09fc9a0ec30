package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Postgres error codes that mean "someone else holds the row"
const (
	pgLockNotAvailable     = "55P03"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgUniqueViolation      = "23505"
)

// lockForUpdate returns a query that takes an exclusive row lock without queueing.
// With a positive wait the lock may be awaited for that long on postgres instead.
// SQLite has no row locks; its single writer serializes the transaction.
func lockForUpdate(ctx context.Context, db *gorm.DB, wait time.Duration) (*gorm.DB, error) {
	tx := db.WithContext(ctx)
	if wait > 0 && tx.Dialector.Name() == "postgres" {
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", wait.Milliseconds())
		if err := tx.Exec(stmt).Error; err != nil {
			return nil, err
		}
		return tx.Clauses(clause.Locking{Strength: "UPDATE"}), nil
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "NOWAIT"}), nil
}

// classifyError maps driver errors onto the domain taxonomy. Lock contention
// becomes a retriable LockTimeoutError naming the resource.
func classifyError(err error, resource string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgLockNotAvailable, pgSerializationFailure, pgDeadlockDetected:
			return &shared.LockTimeoutError{Resource: resource, Cause: err}
		case pgUniqueViolation:
			return fmt.Errorf("%s: %w", pgErr.ConstraintName, shared.ErrAlreadyExists)
		}
		return err
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "database is locked"), strings.Contains(msg, "could not obtain lock"):
		return &shared.LockTimeoutError{Resource: resource, Cause: err}
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return fmt.Errorf("%s: %w", msg, shared.ErrAlreadyExists)
	}
	return err
}
