package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBMetrics records query counts, latency and connection pool usage
type DBMetrics struct {
	queryTotal    *Counter
	queryErrors   *Counter
	queryDuration *Histogram
	slowQueries   *Counter
	poolConns     *Gauge
	poolMax       *Gauge

	slowThreshold time.Duration
	poolInterval  time.Duration
	sqlDB         *sql.DB
	logger        *zap.Logger

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// DBMetricsConfig tunes DBMetrics
type DBMetricsConfig struct {
	SlowQueryThreshold time.Duration
	PoolStatsInterval  time.Duration
}

// NewDBMetrics creates the database instruments on meter
func NewDBMetrics(meter metric.Meter, cfg DBMetricsConfig, logger *zap.Logger) (*DBMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SlowQueryThreshold <= 0 {
		cfg.SlowQueryThreshold = 200 * time.Millisecond
	}
	if cfg.PoolStatsInterval <= 0 {
		cfg.PoolStatsInterval = 15 * time.Second
	}

	m := &DBMetrics{
		slowThreshold: cfg.SlowQueryThreshold,
		poolInterval:  cfg.PoolStatsInterval,
		logger:        logger,
		stopCh:        make(chan struct{}),
	}
	var err error
	if m.queryTotal, err = NewCounter(meter, "db_query_total", "Database statements by operation", "{query}"); err != nil {
		return nil, err
	}
	if m.queryErrors, err = NewCounter(meter, "db_query_error_total", "Database statements that returned an error", "{query}"); err != nil {
		return nil, err
	}
	if m.queryDuration, err = NewHistogram(meter, "db_query_duration_seconds",
		"Database statement latency", "s", DBDurationBuckets); err != nil {
		return nil, err
	}
	if m.slowQueries, err = NewCounter(meter, "db_slow_query_total", "Statements slower than the threshold", "{query}"); err != nil {
		return nil, err
	}
	if m.poolConns, err = NewGauge(meter, "db_pool_connections", "Pool connections by state", "{connection}"); err != nil {
		return nil, err
	}
	if m.poolMax, err = NewGauge(meter, "db_pool_connections_max", "Maximum open connections", "{connection}"); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordQuery records one finished statement. Record-not-found is not an error here.
func (m *DBMetrics) RecordQuery(ctx context.Context, operation, table string, d time.Duration, err error) {
	operation = strings.ToUpper(operation)
	if operation == "" {
		operation = "OTHER"
	}
	op := AttrDBOperation.String(operation)
	m.queryTotal.Inc(ctx, op)
	m.queryDuration.RecordDuration(ctx, d, op)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		m.queryErrors.Inc(ctx, op)
	}
	if d > m.slowThreshold {
		if table == "" {
			table = "unknown"
		}
		m.slowQueries.Inc(ctx, AttrDBTable.String(table))
	}
}

// StartPoolStats samples sql.DB pool stats until Stop or ctx is done
func (m *DBMetrics) StartPoolStats(ctx context.Context, sqlDB *sql.DB) {
	m.sqlDB = sqlDB
	m.logger.Info("Started database pool stats collection", zap.Duration("interval", m.poolInterval))
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.poolInterval)
		defer ticker.Stop()
		m.collectPoolStats(ctx)
		for {
			select {
			case <-ticker.C:
				m.collectPoolStats(ctx)
			case <-m.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (m *DBMetrics) collectPoolStats(ctx context.Context) {
	stats := m.sqlDB.Stats()
	m.poolMax.Record(ctx, int64(stats.MaxOpenConnections))
	m.poolConns.Record(ctx, int64(stats.Idle), AttrDBPoolState.String("idle"))
	m.poolConns.Record(ctx, int64(stats.InUse), AttrDBPoolState.String("in_use"))
	m.poolConns.Record(ctx, int64(stats.OpenConnections), AttrDBPoolState.String("open"))
}

// Stop ends pool sampling. It is safe to call more than once.
func (m *DBMetrics) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
		m.wg.Wait()
	})
}

type dbMetricsStartKey struct{}

// dbMetricsPlugin times gorm callbacks
type dbMetricsPlugin struct {
	metrics *DBMetrics
}

func (p *dbMetricsPlugin) Name() string { return "backoffice:db_metrics" }

func (p *dbMetricsPlugin) Initialize(db *gorm.DB) error {
	before := func(tx *gorm.DB) {
		ctx := tx.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}
		tx.Statement.Context = context.WithValue(ctx, dbMetricsStartKey{}, time.Now())
	}
	after := func(operation string) func(*gorm.DB) {
		return func(tx *gorm.DB) {
			op := operation
			if op == "" {
				op = detectOperation(tx.Statement.SQL.String())
			}
			p.record(tx, op)
		}
	}

	cb := db.Callback()
	registrations := []struct {
		name     string
		register func() error
	}{
		{"create", func() error {
			if err := cb.Create().Before("gorm:create").Register("db_metrics:before_create", before); err != nil {
				return err
			}
			return cb.Create().After("gorm:create").Register("db_metrics:after_create", after("INSERT"))
		}},
		{"query", func() error {
			if err := cb.Query().Before("gorm:query").Register("db_metrics:before_query", before); err != nil {
				return err
			}
			return cb.Query().After("gorm:query").Register("db_metrics:after_query", after("SELECT"))
		}},
		{"update", func() error {
			if err := cb.Update().Before("gorm:update").Register("db_metrics:before_update", before); err != nil {
				return err
			}
			return cb.Update().After("gorm:update").Register("db_metrics:after_update", after("UPDATE"))
		}},
		{"delete", func() error {
			if err := cb.Delete().Before("gorm:delete").Register("db_metrics:before_delete", before); err != nil {
				return err
			}
			return cb.Delete().After("gorm:delete").Register("db_metrics:after_delete", after("DELETE"))
		}},
		{"row", func() error {
			if err := cb.Row().Before("gorm:row").Register("db_metrics:before_row", before); err != nil {
				return err
			}
			return cb.Row().After("gorm:row").Register("db_metrics:after_row", after(""))
		}},
		{"raw", func() error {
			if err := cb.Raw().Before("gorm:raw").Register("db_metrics:before_raw", before); err != nil {
				return err
			}
			return cb.Raw().After("gorm:raw").Register("db_metrics:after_raw", after(""))
		}},
	}
	for _, r := range registrations {
		if err := r.register(); err != nil {
			return fmt.Errorf("failed to register %s metrics callbacks: %w", r.name, err)
		}
	}
	return nil
}

func (p *dbMetricsPlugin) record(tx *gorm.DB, operation string) {
	ctx := tx.Statement.Context
	if ctx == nil {
		ctx = context.Background()
	}
	var d time.Duration
	if start, ok := ctx.Value(dbMetricsStartKey{}).(time.Time); ok {
		d = time.Since(start)
	}
	p.metrics.RecordQuery(ctx, operation, tx.Statement.Table, d, tx.Error)
}

func detectOperation(sql string) string {
	sql = strings.ToUpper(strings.TrimSpace(sql))
	for _, op := range []string{"SELECT", "INSERT", "UPDATE", "DELETE"} {
		if strings.HasPrefix(sql, op) {
			return op
		}
	}
	return "OTHER"
}

// InstrumentGormMetrics registers the query metrics plugin on db
func InstrumentGormMetrics(db *gorm.DB, metrics *DBMetrics) error {
	return db.Use(&dbMetricsPlugin{metrics: metrics})
}
