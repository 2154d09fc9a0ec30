package shared

import (
	"time"

	"github.com/google/uuid"
)

// DomainEvent is published after the unit of work that produced it commits.
// Every event names its tenant so notifications never cross tenants.
type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
	AggregateID() uuid.UUID
	AggregateType() string
	TenantID() uuid.UUID
	ActorID() uuid.UUID
}

// BaseDomainEvent is embedded by concrete events
type BaseDomainEvent struct {
	ID            uuid.UUID `json:"id"`
	Type          string    `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggID         uuid.UUID `json:"aggregate_id"`
	AggType       string    `json:"aggregate_type"`
	TenantIDValue uuid.UUID `json:"tenant_id"`
	ActorUserID   uuid.UUID `json:"actor_user_id"`
}

func (e *BaseDomainEvent) EventID() uuid.UUID { return e.ID }
func (e *BaseDomainEvent) EventType() string { return e.Type }
func (e *BaseDomainEvent) OccurredAt() time.Time { return e.Timestamp }
func (e *BaseDomainEvent) AggregateID() uuid.UUID { return e.AggID }
func (e *BaseDomainEvent) AggregateType() string { return e.AggType }
func (e *BaseDomainEvent) TenantID() uuid.UUID { return e.TenantIDValue }
func (e *BaseDomainEvent) ActorID() uuid.UUID { return e.ActorUserID }

// NewBaseDomainEvent stamps a new event id and the current time
func NewBaseDomainEvent(eventType, aggType string, aggID, tenantID, actorID uuid.UUID) BaseDomainEvent {
	return BaseDomainEvent{
		ID:            uuid.New(),
		Type:          eventType,
		Timestamp:     time.Now().UTC(),
		AggID:         aggID,
		AggType:       aggType,
		TenantIDValue: tenantID,
		ActorUserID:   actorID,
	}
}
