// Package scheduler runs periodic background jobs under a fleet-wide lease.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ReconcileLeaseName is the lease that serializes reconciliation passes
const ReconcileLeaseName = "backoffice:reconcile"

// JobExecutor runs one pass of a periodic job
type JobExecutor interface {
	Execute(ctx context.Context) error
}

// JobFunc adapts a function to JobExecutor
type JobFunc func(ctx context.Context) error

// Execute calls f
func (f JobFunc) Execute(ctx context.Context) error { return f(ctx) }

// WorkerConfig holds worker settings
type WorkerConfig struct {
	Name       string
	LeaseName  string
	Interval   time.Duration
	LeaseTTL   time.Duration
	JobTimeout time.Duration
}

// Validate checks the configuration
func (c WorkerConfig) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("%w: interval must be positive", ErrInvalidConfig)
	}
	if c.LeaseName == "" {
		return fmt.Errorf("%w: lease name is required", ErrInvalidConfig)
	}
	if c.LeaseTTL <= 0 {
		return fmt.Errorf("%w: lease ttl must be positive", ErrInvalidConfig)
	}
	return nil
}

// Worker runs a job on a ticker. Each tick takes the lease first and skips the
// tick when another instance holds it.
type Worker struct {
	config   WorkerConfig
	executor JobExecutor
	locker   Locker
	logger   *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewWorker creates a worker
func NewWorker(config WorkerConfig, executor JobExecutor, locker Locker, logger *zap.Logger) (*Worker, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.JobTimeout <= 0 {
		config.JobTimeout = config.LeaseTTL
	}
	if config.Name == "" {
		config.Name = config.LeaseName
	}
	return &Worker{
		config:   config,
		executor: executor,
		locker:   locker,
		logger:   logger.With(zap.String("worker", config.Name)),
	}, nil
}

// Start launches the ticker loop
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.isRunning {
		return nil
	}
	w.isRunning = true

	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.wg.Add(1)
	go w.loop(ctx)

	w.logger.Info("worker started", zap.Duration("interval", w.config.Interval))
	return nil
}

// Stop cancels the loop and waits for the current pass to finish
func (w *Worker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return nil
	}
	w.isRunning = false
	w.cancel()
	w.mu.Unlock()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("worker stopped")
		return nil
	case <-ctx.Done():
		w.logger.Warn("worker stop timed out")
		return ctx.Err()
	}
}

func (w *Worker) loop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				w.logger.Error("worker pass failed", zap.Error(err))
			}
		}
	}
}

// RunOnce runs a single pass under the lease.
// It reports false without error when the lease is held elsewhere.
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	lease, err := w.locker.Obtain(ctx, w.config.LeaseName, w.config.LeaseTTL)
	if errors.Is(err, ErrLeaseHeld) {
		w.logger.Debug("lease held elsewhere, skipping pass")
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer func() {
		// the job context may already be done
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
			w.logger.Warn("release lease", zap.Error(err))
		}
	}()

	jobCtx, cancel := context.WithTimeout(ctx, w.config.JobTimeout)
	defer cancel()

	start := time.Now()
	if err := w.executor.Execute(jobCtx); err != nil {
		return true, err
	}
	w.logger.Debug("worker pass completed", zap.Duration("duration", time.Since(start)))
	return true, nil
}
