// Package kafka carries the engine's integration events: schedule
// generated, event transitioned and overdue notices going out, completed
// service tickets coming in.
package kafka

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/kamalcharan/contractnest-combined-sub008/internal/config"
	"github.com/kamalcharan/contractnest-combined-sub008/internal/infrastructure/monitoring/logging"
	"github.com/kamalcharan/contractnest-combined-sub008/pkg/errors"
)

var ErrProducerClosed = errors.New(errors.ErrCodeMessagingError, "producer closed")

// ProducerMessage is one record to write.
type ProducerMessage struct {
	Topic     string
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
}

// ProducerConfig holds configuration for the Producer.
type ProducerConfig struct {
	Brokers         []string
	Acks            string // "none" | "one" | "all"
	MaxRetries      int
	BatchSize       int
	BatchTimeout    time.Duration
	MaxMessageBytes int
	WriteTimeout    time.Duration
}

// ProducerConfigFrom maps the kafka config section onto ProducerConfig.
func ProducerConfigFrom(c config.KafkaConfig) ProducerConfig {
	return ProducerConfig{
		Brokers:      c.Brokers,
		Acks:         "all",
		MaxRetries:   c.MaxRetries,
		BatchSize:    c.BatchSize,
		BatchTimeout: c.BatchTimeout,
	}
}

// ProducerMetrics counts producer outcomes.
type ProducerMetrics struct {
	MessagesSent   atomic.Int64
	MessagesFailed atomic.Int64
	BytesSent      atomic.Int64
}

// WriterInterface abstracts kafka.Writer for testing.
type WriterInterface interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer writes messages through a kafka-go Writer.
type Producer struct {
	writer  WriterInterface
	config  ProducerConfig
	logger  logging.Logger
	closed  atomic.Bool
	metrics *ProducerMetrics
}

func NewProducer(cfg ProducerConfig, logger logging.Logger) (*Producer, error) {
	if err := ValidateProducerConfig(cfg); err != nil {
		return nil, err
	}
	cfg = withProducerDefaults(cfg)

	var acks kafka.RequiredAcks
	switch cfg.Acks {
	case "none":
		acks = kafka.RequireNone
	case "one":
		acks = kafka.RequireOne
	default:
		acks = kafka.RequireAll
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		MaxAttempts:  cfg.MaxRetries + 1,
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
		WriteTimeout: cfg.WriteTimeout,
		RequiredAcks: acks,
		Transport:    &kafka.Transport{DialTimeout: 10 * time.Second},
	}
	return NewProducerWithWriter(writer, cfg, logger), nil
}

// NewProducerWithWriter wraps an existing writer.
func NewProducerWithWriter(w WriterInterface, cfg ProducerConfig, logger logging.Logger) *Producer {
	return &Producer{
		writer:  w,
		config:  withProducerDefaults(cfg),
		logger:  logger.Named("kafka.producer"),
		metrics: &ProducerMetrics{},
	}
}

func withProducerDefaults(cfg ProducerConfig) ProducerConfig {
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 100
	}
	if cfg.BatchTimeout == 0 {
		cfg.BatchTimeout = 50 * time.Millisecond
	}
	if cfg.MaxMessageBytes == 0 {
		cfg.MaxMessageBytes = 1024 * 1024
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	return cfg
}

// Publish writes one message synchronously.
func (p *Producer) Publish(ctx context.Context, msg *ProducerMessage) error {
	if p.closed.Load() {
		return ErrProducerClosed
	}
	if msg.Topic == "" {
		return errors.InvalidParam("topic is required")
	}
	if len(msg.Value) == 0 {
		return errors.InvalidParam("message value is required")
	}
	if len(msg.Value) > p.config.MaxMessageBytes {
		return errors.Newf(errors.ErrCodeBadRequest, "message of %d bytes exceeds limit %d", len(msg.Value), p.config.MaxMessageBytes)
	}

	start := time.Now()
	if err := p.writer.WriteMessages(ctx, toKafkaMessage(msg)); err != nil {
		p.metrics.MessagesFailed.Add(1)
		return errors.Wrap(err, errors.ErrCodeMessagingError, "publish failed")
	}
	p.metrics.MessagesSent.Add(1)
	p.metrics.BytesSent.Add(int64(len(msg.Value)))

	p.logger.Debug("message published",
		logging.String("topic", msg.Topic),
		logging.Duration("latency", time.Since(start)))
	return nil
}

// Sent returns how many messages were written successfully.
func (p *Producer) Sent() int64 { return p.metrics.MessagesSent.Load() }

// Failed returns how many writes failed.
func (p *Producer) Failed() int64 { return p.metrics.MessagesFailed.Load() }

func (p *Producer) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := p.writer.Close()
	p.logger.Info("kafka producer closed", logging.Int64("sent", p.metrics.MessagesSent.Load()))
	return err
}

func toKafkaMessage(msg *ProducerMessage) kafka.Message {
	headers := make([]kafka.Header, 0, len(msg.Headers))
	for k, v := range msg.Headers {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	ts := msg.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return kafka.Message{
		Topic:   msg.Topic,
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: headers,
		Time:    ts,
	}
}

func ValidateProducerConfig(cfg ProducerConfig) error {
	if len(cfg.Brokers) == 0 {
		return errors.InvalidParam("kafka brokers are required")
	}
	if cfg.MaxRetries < 0 {
		return errors.InvalidParam("kafka max retries must be >= 0")
	}
	return nil
}
