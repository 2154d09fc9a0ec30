package shared

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Notification is the tenant-scoped envelope handed to the real-time fan-out component
type Notification struct {
	EventType   string          `json:"event_type"`
	TenantID    uuid.UUID       `json:"tenant_id"`
	ActorUserID uuid.UUID       `json:"actor_user_id"`
	AggregateID uuid.UUID       `json:"aggregate_id"`
	OccurredAt  time.Time       `json:"occurred_at"`
	Payload     json.RawMessage `json:"payload"`
}

// NewNotification builds the envelope for a domain event
func NewNotification(event DomainEvent) (Notification, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return Notification{}, err
	}
	return Notification{
		EventType:   event.EventType(),
		TenantID:    event.TenantID(),
		ActorUserID: event.ActorID(),
		AggregateID: event.AggregateID(),
		OccurredAt:  event.OccurredAt(),
		Payload:     payload,
	}, nil
}

// Notifier delivers notifications to subscribers of a tenant
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
	Close() error
}
