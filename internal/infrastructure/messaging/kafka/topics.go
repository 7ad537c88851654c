package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/kamalcharan/contractnest-combined-sub008/internal/infrastructure/monitoring/logging"
	"github.com/kamalcharan/contractnest-combined-sub008/pkg/errors"
)

// Topic Constants
const (
	TopicEventsGenerated    = "contract.events.generated"
	TopicEventsTransitioned = "contract.events.transitioned"
	TopicEventsOverdue      = "contract.events.overdue"
	TopicTicketsCompleted   = "service.tickets.completed"
	TopicDeadLetter         = "contract.dead_letter"
)

const schemaVersion = "v1"

// EventEnvelope standardizes event messages.
type EventEnvelope struct {
	EventID       string            `json:"event_id"`
	EventType     string            `json:"event_type"`
	Source        string            `json:"source"`
	Timestamp     time.Time         `json:"timestamp"`
	SchemaVersion string            `json:"schema_version"`
	TraceID       string            `json:"trace_id,omitempty"`
	Payload       json.RawMessage   `json:"payload"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

func NewEventEnvelope(eventType, source string, payload interface{}) (*EventEnvelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal payload")
	}
	return &EventEnvelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		SchemaVersion: schemaVersion,
		Payload:       data,
	}, nil
}

func (e *EventEnvelope) DecodePayload(target interface{}) error {
	if len(e.Payload) == 0 || string(e.Payload) == "null" {
		return errors.InvalidParam("envelope has no payload")
	}
	if err := json.Unmarshal(e.Payload, target); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to unmarshal payload")
	}
	return nil
}

// ToMessage renders the envelope as a record on topic keyed by key.
func (e *EventEnvelope) ToMessage(topic, key string) (*ProducerMessage, error) {
	val, err := json.Marshal(e)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal envelope")
	}
	headers := map[string]string{
		"event_type":     e.EventType,
		"source_service": e.Source,
		"schema_version": e.SchemaVersion,
	}
	if e.TraceID != "" {
		headers["trace_id"] = e.TraceID
	}
	return &ProducerMessage{
		Topic:     topic,
		Key:       []byte(key),
		Value:     val,
		Headers:   headers,
		Timestamp: e.Timestamp,
	}, nil
}

// DecodeEnvelope parses a consumed record.
func DecodeEnvelope(msg *Message) (*EventEnvelope, error) {
	if len(msg.Value) == 0 {
		return nil, errors.InvalidParam("empty message value")
	}
	var env EventEnvelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to unmarshal envelope")
	}
	return &env, nil
}

// EnvelopeHandler adapts a handler of decoded envelopes to a MessageHandler.
func EnvelopeHandler(fn func(ctx context.Context, env *EventEnvelope) error) MessageHandler {
	return func(ctx context.Context, msg *Message) error {
		env, err := DecodeEnvelope(msg)
		if err != nil {
			return err
		}
		return fn(ctx, env)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// EnvelopePublisher
// ─────────────────────────────────────────────────────────────────────────────

// EnvelopePublisher wraps payloads in an EventEnvelope before writing them.
// The topic doubles as the envelope's event type.
type EnvelopePublisher struct {
	producer Publisher
	source   string
	logger   logging.Logger
}

func NewEnvelopePublisher(producer Publisher, source string, logger logging.Logger) *EnvelopePublisher {
	if source == "" {
		source = "contractnest-scheduler"
	}
	return &EnvelopePublisher{producer: producer, source: source, logger: logger.Named("kafka.publisher")}
}

func (p *EnvelopePublisher) Publish(ctx context.Context, topic, key string, payload interface{}) error {
	env, err := NewEventEnvelope(topic, p.source, payload)
	if err != nil {
		return err
	}
	env.TraceID = logging.RequestIDFromContext(ctx)

	msg, err := env.ToMessage(topic, key)
	if err != nil {
		return err
	}
	if err := p.producer.Publish(ctx, msg); err != nil {
		return err
	}
	p.logger.Debug("envelope published", logging.String("topic", topic), logging.String("envelope_id", env.EventID))
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// TopicManager
// ─────────────────────────────────────────────────────────────────────────────

// TopicConfig describes a topic to create.
type TopicConfig struct {
	Name              string
	NumPartitions     int
	ReplicationFactor int
	RetentionMs       int64
}

// ConnInterface abstracts kafka.Conn for testing.
type ConnInterface interface {
	CreateTopics(topics ...kafka.TopicConfig) error
	ReadPartitions(topics ...string) ([]kafka.Partition, error)
	Close() error
}

// TopicManager creates the engine's topics.
type TopicManager struct {
	conn   ConnInterface
	logger logging.Logger
}

func NewTopicManager(brokers []string, logger logging.Logger) (*TopicManager, error) {
	if len(brokers) == 0 {
		return nil, errors.InvalidParam("kafka brokers are required")
	}
	conn, err := kafka.Dial("tcp", brokers[0])
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMessagingError, "failed to dial kafka")
	}
	return NewTopicManagerWithConn(conn, logger), nil
}

func NewTopicManagerWithConn(conn ConnInterface, logger logging.Logger) *TopicManager {
	return &TopicManager{conn: conn, logger: logger.Named("kafka.topics")}
}

func (m *TopicManager) CreateTopic(cfg TopicConfig) error {
	if cfg.Name == "" {
		return errors.InvalidParam("topic name required")
	}
	if cfg.NumPartitions <= 0 || cfg.ReplicationFactor <= 0 {
		return errors.InvalidParam("partitions and replication factor must be > 0")
	}

	kCfg := kafka.TopicConfig{
		Topic:             cfg.Name,
		NumPartitions:     cfg.NumPartitions,
		ReplicationFactor: cfg.ReplicationFactor,
	}
	if cfg.RetentionMs > 0 {
		kCfg.ConfigEntries = append(kCfg.ConfigEntries, kafka.ConfigEntry{
			ConfigName:  "retention.ms",
			ConfigValue: fmt.Sprintf("%d", cfg.RetentionMs),
		})
	}

	if err := m.conn.CreateTopics(kCfg); err != nil {
		if exists, _ := m.TopicExists(cfg.Name); exists {
			return nil
		}
		return errors.Wrap(err, errors.ErrCodeMessagingError, "create topic "+cfg.Name)
	}
	m.logger.Info("topic created", logging.String("topic", cfg.Name))
	return nil
}

func (m *TopicManager) TopicExists(name string) (bool, error) {
	partitions, err := m.conn.ReadPartitions(name)
	if err != nil {
		return false, nil
	}
	return len(partitions) > 0, nil
}

// EnsureTopics creates every topic that does not exist yet.
func (m *TopicManager) EnsureTopics(topics []TopicConfig) error {
	for _, t := range topics {
		if err := m.CreateTopic(t); err != nil {
			return err
		}
	}
	return nil
}

func (m *TopicManager) Close() error {
	return m.conn.Close()
}

func DefaultTopics(replication int) []TopicConfig {
	if replication <= 0 {
		replication = 1
	}
	const day = int64(24 * 3600 * 1000)
	return []TopicConfig{
		{Name: TopicEventsGenerated, NumPartitions: 6, ReplicationFactor: replication, RetentionMs: 7 * day},
		{Name: TopicEventsTransitioned, NumPartitions: 6, ReplicationFactor: replication, RetentionMs: 30 * day},
		{Name: TopicEventsOverdue, NumPartitions: 3, ReplicationFactor: replication, RetentionMs: 7 * day},
		{Name: TopicTicketsCompleted, NumPartitions: 6, ReplicationFactor: replication, RetentionMs: 30 * day},
		{Name: TopicDeadLetter, NumPartitions: 3, ReplicationFactor: replication, RetentionMs: 30 * day},
	}
}
