package persistence

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/backoffice/internal/infrastructure/config"
	"github.com/erp/backoffice/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens an in-memory sqlite database with every table migrated.
// A single connection keeps all statements on the same in-memory database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

// newMockDB creates a postgres-dialect gorm handle backed by sqlmock
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func TestNewDatabase_SQLite(t *testing.T) {
	cfg := &config.DatabaseConfig{Driver: "sqlite", SQLitePath: ":memory:"}

	d, err := NewDatabase(cfg, nil)
	require.NoError(t, err)
	defer d.Close()

	require.NoError(t, d.AutoMigrate(models.All()...))
	assert.NoError(t, d.Ping(context.Background()))

	stats, err := d.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.MaxOpenConnections)
}

func TestDatabase_Close(t *testing.T) {
	cfg := &config.DatabaseConfig{Driver: "sqlite", SQLitePath: ":memory:"}
	d, err := NewDatabase(cfg, nil)
	require.NoError(t, err)

	require.NoError(t, d.Close())
	assert.Error(t, d.Ping(context.Background()))
}

func TestLogField(t *testing.T) {
	pg := &config.DatabaseConfig{Driver: "postgres", Host: "db", Port: 5432, DBName: "backoffice", Password: "secret"}
	field := LogField(pg)
	assert.Equal(t, "postgres://db:5432/backoffice", field.String)
	assert.NotContains(t, field.String, "secret")

	lite := &config.DatabaseConfig{Driver: "sqlite", SQLitePath: "/tmp/x.db"}
	assert.Equal(t, "sqlite:/tmp/x.db", LogField(lite).String)
}
