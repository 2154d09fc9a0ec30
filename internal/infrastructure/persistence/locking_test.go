package persistence

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestLockForPayment_NoWait(t *testing.T) {
	ctx := context.Background()

	t.Run("issues FOR UPDATE NOWAIT scoped to the tenant", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewGormBillRepository(db, StoreOptions{})

		mock.ExpectQuery(`SELECT \* FROM "bills" WHERE \(tenant_id = \$1 AND id = \$2\).*FOR UPDATE NOWAIT`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := repo.LockForPayment(ctx, uuid.New(), uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("lock_not_available becomes a retriable LockTimeoutError", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewGormBillRepository(db, StoreOptions{})

		mock.ExpectQuery(`FOR UPDATE NOWAIT`).
			WillReturnError(&pgconn.PgError{Code: "55P03", Message: "could not obtain lock on row in relation \"bills\""})

		_, err := repo.LockForPayment(ctx, uuid.New(), uuid.New())
		var lockErr *shared.LockTimeoutError
		require.ErrorAs(t, err, &lockErr)
		assert.Equal(t, "bill", lockErr.Resource)
		assert.True(t, shared.IsRetriable(err))
		assert.Equal(t, "LOCK_TIMEOUT", shared.ErrorCode(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("bounded wait sets lock_timeout and waits", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewGormBillRepository(db, StoreOptions{LockWaitTimeout: 250 * time.Millisecond})

		mock.ExpectExec(regexp.QuoteMeta("SET LOCAL lock_timeout = '250ms'")).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`FOR UPDATE$`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := repo.LockForPayment(ctx, uuid.New(), uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLockForSupplier_UsesSupplierPredicate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormPurchaseOrderRepository(db, StoreOptions{})

	mock.ExpectQuery(`FROM "purchase_orders" WHERE \(supplier_tenant_id = \$1 AND id = \$2\).*FOR UPDATE NOWAIT`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.LockForSupplier(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassifyError(t *testing.T) {
	plain := errors.New("connection reset")

	tests := []struct {
		name      string
		err       error
		wantIs    error
		retriable bool
	}{
		{"nil stays nil", nil, nil, false},
		{"record not found", gorm.ErrRecordNotFound, shared.ErrNotFound, false},
		{"lock not available", &pgconn.PgError{Code: "55P03"}, shared.ErrLockTimeout, true},
		{"serialization failure", &pgconn.PgError{Code: "40001"}, shared.ErrLockTimeout, true},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, shared.ErrLockTimeout, true},
		{"unique violation", &pgconn.PgError{Code: "23505", ConstraintName: "idx_bills_source_invoice_id"}, shared.ErrAlreadyExists, false},
		{"other postgres error", &pgconn.PgError{Code: "42P01"}, nil, false},
		{"sqlite busy", errors.New("database is locked"), shared.ErrLockTimeout, true},
		{"sqlite unique", errors.New("UNIQUE constraint failed: bills.source_invoice_id"), shared.ErrAlreadyExists, false},
		{"unrelated", plain, plain, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := classifyError(tc.err, "bill")
			if tc.err == nil {
				assert.NoError(t, got)
				return
			}
			require.Error(t, got)
			if tc.wantIs != nil {
				assert.ErrorIs(t, got, tc.wantIs)
			}
			assert.Equal(t, tc.retriable, shared.IsRetriable(got))
		})
	}
}
