package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erp/backoffice/internal/domain/finance"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAccount(t *testing.T, tenantID uuid.UUID) *finance.Account {
	t.Helper()
	acc, err := finance.NewAccount(tenantID, uuid.New(), "Operating", finance.AccountTypeBank, "usd", decimal.NewFromInt(5000))
	require.NoError(t, err)
	return acc
}

func newTestBill(t *testing.T, tenantID uuid.UUID, total string) *finance.Bill {
	t.Helper()
	b, err := finance.NewBill(finance.NewBillParams{
		TenantID:    tenantID,
		CreatedBy:   uuid.New(),
		BillNumber:  "BILL-" + uuid.NewString()[:8],
		ContactID:   uuid.New(),
		IssueDate:   time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC),
		DueDate:     time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC),
		TotalAmount: decimal.RequireFromString(total),
		Notes:       "office supplies",
	})
	require.NoError(t, err)
	return b
}

func versionOf(t *testing.T, v shared.NullableVersion) int {
	t.Helper()
	n, ok := v.Get()
	require.True(t, ok, "version should be set")
	return n
}

func TestVersionedStore_Upsert(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("inserts a missing row at version 1", func(t *testing.T) {
		repo := NewGormAccountRepository(newTestDB(t), StoreOptions{})
		acc := newTestAccount(t, tenantID)

		require.NoError(t, repo.Save(ctx, acc, shared.AnyVersion()))
		assert.Equal(t, 1, versionOf(t, acc.Version))

		loaded, err := repo.FindByIDForTenant(ctx, tenantID, acc.ID)
		require.NoError(t, err)
		assert.Equal(t, "Operating", loaded.Name)
		assert.Equal(t, 1, versionOf(t, loaded.Version))
	})

	t.Run("blind writes increment by exactly one", func(t *testing.T) {
		repo := NewGormAccountRepository(newTestDB(t), StoreOptions{})
		acc := newTestAccount(t, tenantID)
		require.NoError(t, repo.Create(ctx, acc))

		for want := 2; want <= 4; want++ {
			require.NoError(t, repo.Save(ctx, acc, shared.AnyVersion()))
			assert.Equal(t, want, versionOf(t, acc.Version))
		}
	})

	t.Run("matching expected version applies", func(t *testing.T) {
		repo := NewGormAccountRepository(newTestDB(t), StoreOptions{})
		acc := newTestAccount(t, tenantID)
		require.NoError(t, repo.Create(ctx, acc))

		require.NoError(t, acc.Update("Payroll", finance.AccountTypeBank, "usd"))
		require.NoError(t, repo.Save(ctx, acc, shared.Expect(1)))
		assert.Equal(t, 2, versionOf(t, acc.Version))
	})

	t.Run("stale expected version conflicts and writes nothing", func(t *testing.T) {
		repo := NewGormAccountRepository(newTestDB(t), StoreOptions{})
		acc := newTestAccount(t, tenantID)
		require.NoError(t, repo.Create(ctx, acc))

		first := *acc
		require.NoError(t, first.Update("Payroll", finance.AccountTypeBank, "usd"))
		require.NoError(t, repo.Save(ctx, &first, shared.Expect(1)))

		second := *acc
		require.NoError(t, second.Update("Petty cash", finance.AccountTypeCash, "usd"))
		err := repo.Save(ctx, &second, shared.Expect(1))

		var conflict *shared.ConflictError
		require.ErrorAs(t, err, &conflict)
		require.NotNil(t, conflict.ServerVersion)
		assert.Equal(t, 2, *conflict.ServerVersion)
		assert.Equal(t, "Account", conflict.Entity)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)

		loaded, err := repo.FindByIDForTenant(ctx, tenantID, acc.ID)
		require.NoError(t, err)
		assert.Equal(t, "Payroll", loaded.Name)
		assert.Equal(t, 2, versionOf(t, loaded.Version))
	})

	t.Run("unversioned row matches any expected version and gets version 1", func(t *testing.T) {
		db := newTestDB(t)
		repo := NewGormAccountRepository(db, StoreOptions{})
		acc := newTestAccount(t, tenantID)
		require.NoError(t, repo.Create(ctx, acc))
		require.NoError(t, db.Exec("UPDATE accounts SET version = NULL WHERE id = ?", acc.ID).Error)

		loaded, err := repo.FindByIDForTenant(ctx, tenantID, acc.ID)
		require.NoError(t, err)
		assert.True(t, loaded.Version.IsNull())

		require.NoError(t, repo.Save(ctx, loaded, shared.Expect(7)))
		assert.Equal(t, 1, versionOf(t, loaded.Version))
	})

	t.Run("another tenant cannot write the row", func(t *testing.T) {
		repo := NewGormAccountRepository(newTestDB(t), StoreOptions{})
		acc := newTestAccount(t, tenantID)
		require.NoError(t, repo.Create(ctx, acc))

		foreign := *acc
		foreign.TenantID = uuid.New()
		err := repo.Save(ctx, &foreign, shared.AnyVersion())
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)

		loaded, err := repo.FindByIDForTenant(ctx, tenantID, acc.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, versionOf(t, loaded.Version))
	})
}

func TestVersionedStore_SoftDelete(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	repo := NewGormBillRepository(newTestDB(t), StoreOptions{})

	bill := newTestBill(t, tenantID, "250.00")
	require.NoError(t, repo.Create(ctx, bill))

	require.NoError(t, bill.MarkDeleted())
	require.NoError(t, repo.SoftDelete(ctx, bill, shared.Expect(1)))
	assert.Equal(t, 2, versionOf(t, bill.Version))

	t.Run("deleted rows are excluded from normal queries", func(t *testing.T) {
		_, err := repo.FindByIDForTenant(ctx, tenantID, bill.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)

		list, total, err := repo.FindAllForTenant(ctx, tenantID, finance.BillFilter{Filter: shared.DefaultFilter()})
		require.NoError(t, err)
		assert.Empty(t, list)
		assert.Zero(t, total)
	})

	t.Run("deleted rows remain addressable by id", func(t *testing.T) {
		loaded, err := repo.FindByIDIncludingDeleted(ctx, tenantID, bill.ID)
		require.NoError(t, err)
		assert.True(t, loaded.IsDeleted())
	})

	t.Run("routine writes do not resurrect", func(t *testing.T) {
		stale := *bill
		stale.DeletedAt = nil
		err := repo.Save(ctx, &stale, shared.AnyVersion())
		assert.True(t, errors.Is(err, shared.ErrRecordDeleted))

		_, err = repo.FindByIDForTenant(ctx, tenantID, bill.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("explicit restore resurrects", func(t *testing.T) {
		bill.Restore()
		require.NoError(t, repo.Restore(ctx, bill, shared.Expect(2)))
		assert.Equal(t, 3, versionOf(t, bill.Version))

		loaded, err := repo.FindByIDForTenant(ctx, tenantID, bill.ID)
		require.NoError(t, err)
		assert.False(t, loaded.IsDeleted())
	})
}

func TestSchemaCheck(t *testing.T) {
	ctx := context.Background()

	t.Run("complete schema has no missing columns", func(t *testing.T) {
		check := NewSchemaCheck(newTestDB(t), models.All()...)
		caps, err := check.Refresh(ctx)
		require.NoError(t, err)
		assert.Empty(t, caps.Missing("bills"))
		assert.True(t, caps.Has("bills", "notes"))
	})

	t.Run("missing optional column is recorded and left out of writes", func(t *testing.T) {
		db := newTestDB(t)
		require.NoError(t, db.Migrator().DropColumn(&models.BillModel{}, "notes"))

		check := NewSchemaCheck(db, models.All()...)
		caps, err := check.Refresh(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"notes"}, caps.Missing("bills"))
		assert.Same(t, caps, check.Capabilities())

		repo := NewGormBillRepository(db, StoreOptions{Schema: check})
		bill := newTestBill(t, uuid.New(), "90.00")
		require.NoError(t, repo.Create(ctx, bill))

		bill.TotalAmount = decimal.RequireFromString("120.00")
		require.NoError(t, repo.Save(ctx, bill, shared.Expect(1)))
		assert.Equal(t, 2, versionOf(t, bill.Version))
	})

	t.Run("missing required column fails the check", func(t *testing.T) {
		db := newTestDB(t)
		require.NoError(t, db.Migrator().DropColumn(&models.BillModel{}, "bill_number"))

		check := NewSchemaCheck(db, models.All()...)
		_, err := check.Refresh(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bills.bill_number")
		assert.Nil(t, check.Capabilities())
	})

	t.Run("nil capabilities allow every column", func(t *testing.T) {
		var caps *SchemaCapabilities
		assert.True(t, caps.Has("bills", "notes"))
		assert.Nil(t, caps.Missing("bills"))
	})
}
