package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// DefaultNotifyTimeout bounds one delivery to the transport
const DefaultNotifyTimeout = 3 * time.Second

// NotificationForwarder subscribes to every domain event and hands the tenant
// envelope to a Notifier. Delivery errors are returned to the bus, which logs them.
type NotificationForwarder struct {
	notifier shared.Notifier
	timeout  time.Duration
}

// NewNotificationForwarder creates a forwarder
func NewNotificationForwarder(notifier shared.Notifier) *NotificationForwarder {
	return &NotificationForwarder{notifier: notifier, timeout: DefaultNotifyTimeout}
}

// EventTypes subscribes to all events
func (f *NotificationForwarder) EventTypes() []string { return nil }

// Handle delivers one event
func (f *NotificationForwarder) Handle(ctx context.Context, event shared.DomainEvent) error {
	n, err := shared.NewNotification(event)
	if err != nil {
		return fmt.Errorf("build notification: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()
	return f.notifier.Notify(ctx, n)
}

// LogNotifier writes notifications to the log. It is the default when no
// transport is configured.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a LogNotifier
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs the envelope
func (n *LogNotifier) Notify(ctx context.Context, note shared.Notification) error {
	n.logger.Info("tenant notification",
		zap.String("event_type", note.EventType),
		zap.String("tenant_id", note.TenantID.String()),
		zap.String("actor_user_id", note.ActorUserID.String()),
		zap.String("aggregate_id", note.AggregateID.String()),
	)
	return nil
}

// Close is a no-op
func (n *LogNotifier) Close() error { return nil }

// RedisNotifier publishes notifications on a per-tenant pub/sub channel
type RedisNotifier struct {
	client *redis.Client
	prefix string
}

// NewRedisNotifier creates a RedisNotifier publishing on "<prefix>:<tenantId>"
func NewRedisNotifier(client *redis.Client, prefix string) *RedisNotifier {
	if prefix == "" {
		prefix = "backoffice:notify"
	}
	return &RedisNotifier{client: client, prefix: prefix}
}

// Channel returns the channel of a tenant
func (n *RedisNotifier) Channel(note shared.Notification) string {
	return fmt.Sprintf("%s:%s", n.prefix, note.TenantID)
}

// Notify publishes the envelope as JSON
func (n *RedisNotifier) Notify(ctx context.Context, note shared.Notification) error {
	body, err := json.Marshal(note)
	if err != nil {
		return err
	}
	return n.client.Publish(ctx, n.Channel(note), body).Err()
}

// Close is a no-op; the client is owned by the caller
func (n *RedisNotifier) Close() error { return nil }

// MessageWriter is the part of kafka.Writer the notifier uses
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier writes notifications to a Kafka topic keyed by tenant, so one
// tenant's notifications stay ordered within a partition.
type KafkaNotifier struct {
	writer MessageWriter
}

// NewKafkaNotifier creates a KafkaNotifier on a kafka-go writer
func NewKafkaNotifier(brokers []string, topic string) *KafkaNotifier {
	return NewKafkaNotifierWithWriter(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
	})
}

// NewKafkaNotifierWithWriter wraps an existing writer
func NewKafkaNotifierWithWriter(w MessageWriter) *KafkaNotifier {
	return &KafkaNotifier{writer: w}
}

// Notify writes the envelope
func (n *KafkaNotifier) Notify(ctx context.Context, note shared.Notification) error {
	body, err := json.Marshal(note)
	if err != nil {
		return err
	}
	return n.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(note.TenantID.String()),
		Value: body,
		Time:  note.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(note.EventType)},
		},
	})
}

// Close flushes and closes the writer
func (n *KafkaNotifier) Close() error { return n.writer.Close() }

// NewNotifier builds the notifier selected by configuration
func NewNotifier(cfg config.NotifyConfig, rdb *redis.Client, logger *zap.Logger) (shared.Notifier, error) {
	switch cfg.Driver {
	case "", "log":
		return NewLogNotifier(logger), nil
	case "redis":
		if rdb == nil {
			return nil, fmt.Errorf("notify driver redis requires redis.enabled")
		}
		return NewRedisNotifier(rdb, cfg.ChannelPrefix), nil
	case "kafka":
		if len(cfg.KafkaBrokers) == 0 {
			return nil, fmt.Errorf("notify driver kafka requires notify.kafka_brokers")
		}
		return NewKafkaNotifier(cfg.KafkaBrokers, cfg.KafkaTopic), nil
	default:
		return nil, fmt.Errorf("unknown notify driver %q", cfg.Driver)
	}
}
