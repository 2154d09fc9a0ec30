// Package event carries committed domain events from the application services
// to in-process handlers, and from there to the tenant notification transport.
package event

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/erp/backoffice/internal/domain/shared"
	"go.uber.org/zap"
)

// BusOption configures an InMemoryEventBus
type BusOption func(*InMemoryEventBus)

// WithAsync dispatches events on a background worker with a queue of the given
// size. When the queue is full the event is dropped and logged.
func WithAsync(queueSize int) BusOption {
	return func(b *InMemoryEventBus) {
		if queueSize <= 0 {
			queueSize = 256
		}
		b.queue = make(chan queuedEvent, queueSize)
	}
}

type queuedEvent struct {
	ctx   context.Context
	event shared.DomainEvent
}

// InMemoryEventBus implements EventBus with in-memory pub/sub. Publish never
// returns an error: handler failures and panics are logged and swallowed.
type InMemoryEventBus struct {
	mu       sync.RWMutex
	byType   map[string][]shared.EventHandler
	wildcard []shared.EventHandler

	logger  *zap.Logger
	queue   chan queuedEvent
	sendMu  sync.RWMutex
	running atomic.Bool
	wg      sync.WaitGroup
}

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus(logger *zap.Logger, opts ...BusOption) *InMemoryEventBus {
	b := &InMemoryEventBus{
		byType: make(map[string][]shared.EventHandler),
		logger: logger,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish hands the events to every subscribed handler
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	for _, event := range events {
		if !b.enqueue(ctx, event) {
			b.dispatch(ctx, event)
		}
	}
	return nil
}

// enqueue reports whether the event was taken by the async worker
func (b *InMemoryEventBus) enqueue(ctx context.Context, event shared.DomainEvent) bool {
	b.sendMu.RLock()
	defer b.sendMu.RUnlock()
	if b.queue == nil || !b.running.Load() {
		return false
	}
	// detach from the request so cancellation does not abort delivery
	select {
	case b.queue <- queuedEvent{ctx: context.WithoutCancel(ctx), event: event}:
	default:
		b.logger.Warn("event queue full, dropping event",
			zap.String("event_type", event.EventType()),
			zap.String("event_id", event.EventID().String()),
		)
	}
	return true
}

// Subscribe registers a handler. Without explicit types the handler's own
// EventTypes are used; an empty list subscribes to every event.
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}

	b.mu.Lock()
	if len(eventTypes) == 0 {
		b.wildcard = append(b.wildcard, handler)
	}
	for _, t := range eventTypes {
		b.byType[t] = append(b.byType[t], handler)
	}
	b.mu.Unlock()

	b.logger.Debug("handler subscribed", zap.Strings("event_types", eventTypes))
}

// Unsubscribe removes a handler from every event type
func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.wildcard = without(b.wildcard, handler)
	for t, hs := range b.byType {
		if hs = without(hs, handler); len(hs) == 0 {
			delete(b.byType, t)
		} else {
			b.byType[t] = hs
		}
	}
}

// HandlerCount returns how many handlers receive the event type
func (b *InMemoryEventBus) HandlerCount(eventType string) int {
	return len(b.handlers(eventType))
}

// Start starts the background worker in async mode
func (b *InMemoryEventBus) Start(ctx context.Context) error {
	b.sendMu.Lock()
	defer b.sendMu.Unlock()
	if !b.running.CompareAndSwap(false, true) {
		return nil
	}
	if b.queue != nil {
		b.wg.Add(1)
		go b.work(b.queue)
	}
	b.logger.Info("event bus started", zap.Bool("async", b.queue != nil))
	return nil
}

// Stop stops accepting queued events and drains what is already queued
func (b *InMemoryEventBus) Stop(ctx context.Context) error {
	b.sendMu.Lock()
	if !b.running.CompareAndSwap(true, false) {
		b.sendMu.Unlock()
		return nil
	}
	if b.queue != nil {
		// a fresh queue lets the bus be started again
		close(b.queue)
		b.queue = make(chan queuedEvent, cap(b.queue))
	}
	b.sendMu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	b.logger.Info("event bus stopped")
	return nil
}

func (b *InMemoryEventBus) work(queue <-chan queuedEvent) {
	defer b.wg.Done()
	for qe := range queue {
		b.dispatch(qe.ctx, qe.event)
	}
}

func (b *InMemoryEventBus) handlers(eventType string) []shared.EventHandler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	typed := b.byType[eventType]
	out := make([]shared.EventHandler, 0, len(typed)+len(b.wildcard))
	out = append(out, typed...)
	return append(out, b.wildcard...)
}

func (b *InMemoryEventBus) dispatch(ctx context.Context, event shared.DomainEvent) {
	for _, handler := range b.handlers(event.EventType()) {
		if err := b.safeHandle(ctx, handler, event); err != nil {
			b.logger.Error("handler failed to process event",
				zap.String("event_type", event.EventType()),
				zap.String("event_id", event.EventID().String()),
				zap.String("tenant_id", event.TenantID().String()),
				zap.Error(err),
			)
		}
	}
}

func (b *InMemoryEventBus) safeHandle(ctx context.Context, handler shared.EventHandler, event shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("handler panicked",
				zap.String("event_type", event.EventType()),
				zap.Any("panic", r),
			)
		}
	}()
	return handler.Handle(ctx, event)
}

func without(handlers []shared.EventHandler, target shared.EventHandler) []shared.EventHandler {
	out := handlers[:0]
	for _, h := range handlers {
		if h != target {
			out = append(out, h)
		}
	}
	return out
}

var _ shared.EventBus = (*InMemoryEventBus)(nil)
