package kafka

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/kamalcharan/contractnest-combined-sub008/internal/config"
	"github.com/kamalcharan/contractnest-combined-sub008/internal/infrastructure/monitoring/logging"
	"github.com/kamalcharan/contractnest-combined-sub008/pkg/errors"
)

var ErrAlreadyRunning = errors.New(errors.ErrCodeConflict, "consumer already running")

// Message is one consumed record.
type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
}

// MessageHandler processes one message. A returned error triggers retries.
type MessageHandler func(ctx context.Context, msg *Message) error

// Publisher is what the consumer needs to dead-letter a message.
type Publisher interface {
	Publish(ctx context.Context, msg *ProducerMessage) error
}

// RetryConfig defines retry behavior.
type RetryConfig struct {
	MaxRetries      int
	RetryBackoff    time.Duration
	MaxRetryBackoff time.Duration
	DeadLetterTopic string
}

// ConsumerConfig holds configuration for the Consumer.
type ConsumerConfig struct {
	Brokers         []string
	GroupID         string
	Topics          []string
	AutoOffsetReset string
	CommitInterval  time.Duration
	SessionTimeout  time.Duration
	MaxWait         time.Duration
	RetryConfig     RetryConfig
}

// ConsumerConfigFrom maps the kafka config section onto ConsumerConfig.
func ConsumerConfigFrom(c config.KafkaConfig, topics ...string) ConsumerConfig {
	return ConsumerConfig{
		Brokers:         c.Brokers,
		GroupID:         c.GroupID,
		Topics:          topics,
		AutoOffsetReset: c.AutoOffsetReset,
		RetryConfig: RetryConfig{
			MaxRetries:      c.MaxRetries,
			DeadLetterTopic: TopicDeadLetter,
		},
	}
}

// ConsumerMetrics counts consumer outcomes.
type ConsumerMetrics struct {
	MessagesConsumed     atomic.Int64
	MessagesProcessed    atomic.Int64
	MessagesFailed       atomic.Int64
	MessagesRetried      atomic.Int64
	MessagesDeadLettered atomic.Int64
}

// ReaderInterface abstracts kafka.Reader for testing.
type ReaderInterface interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads a consumer group and dispatches by topic. Offsets are
// committed after the handler succeeds or the message is dead-lettered, so
// a message is processed at least once.
type Consumer struct {
	reader     ReaderInterface
	deadLetter Publisher
	config     ConsumerConfig
	logger     logging.Logger

	mu       sync.RWMutex
	handlers map[string]MessageHandler

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	metrics *ConsumerMetrics
}

func NewConsumer(cfg ConsumerConfig, deadLetter Publisher, logger logging.Logger) (*Consumer, error) {
	if err := ValidateConsumerConfig(cfg); err != nil {
		return nil, err
	}
	if cfg.CommitInterval == 0 {
		cfg.CommitInterval = time.Second
	}
	if cfg.SessionTimeout == 0 {
		cfg.SessionTimeout = 30 * time.Second
	}
	if cfg.MaxWait == 0 {
		cfg.MaxWait = 5 * time.Second
	}

	readerCfg := kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		GroupID:        cfg.GroupID,
		GroupTopics:    cfg.Topics,
		MaxWait:        cfg.MaxWait,
		CommitInterval: cfg.CommitInterval,
		SessionTimeout: cfg.SessionTimeout,
		StartOffset:    kafka.FirstOffset,
		Dialer:         &kafka.Dialer{Timeout: 10 * time.Second, DualStack: true},
	}
	if cfg.AutoOffsetReset == "latest" {
		readerCfg.StartOffset = kafka.LastOffset
	}

	return NewConsumerWithReader(kafka.NewReader(readerCfg), cfg, deadLetter, logger), nil
}

// NewConsumerWithReader wraps an existing reader.
func NewConsumerWithReader(r ReaderInterface, cfg ConsumerConfig, deadLetter Publisher, logger logging.Logger) *Consumer {
	return &Consumer{
		reader:     r,
		deadLetter: deadLetter,
		config:     cfg,
		logger:     logger.Named("kafka.consumer"),
		handlers:   make(map[string]MessageHandler),
		metrics:    &ConsumerMetrics{},
	}
}

func (c *Consumer) Subscribe(topic string, handler MessageHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[topic] = handler
	c.logger.Info("subscribed to topic", logging.String("topic", topic))
}

// Start launches the consume loop; it stops when ctx ends or Close is called.
func (c *Consumer) Start(ctx context.Context) error {
	if c.running.Swap(true) {
		return ErrAlreadyRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.wg.Add(1)
	go c.consumeLoop(ctx)

	c.logger.Info("kafka consumer started", logging.String("group", c.config.GroupID))
	return nil
}

func (c *Consumer) consumeLoop(ctx context.Context) {
	defer c.wg.Done()

	for ctx.Err() == nil {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("fetch message failed", logging.Err(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		c.metrics.MessagesConsumed.Add(1)

		msg := fromKafkaMessage(m)
		c.mu.RLock()
		handler, ok := c.handlers[m.Topic]
		c.mu.RUnlock()

		if !ok {
			c.logger.Warn("no handler for topic", logging.String("topic", m.Topic))
		} else if err := c.process(ctx, msg, handler); err != nil {
			// Only a cancelled context lands here; leave the offset for redelivery.
			return
		}

		if err := c.reader.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
			c.logger.Error("commit failed", logging.String("topic", m.Topic), logging.Int64("offset", m.Offset), logging.Err(err))
		}
	}
}

// process runs handler with exponential backoff. After the last retry the
// message goes to the dead-letter topic and nil is returned so the
// partition keeps moving.
func (c *Consumer) process(ctx context.Context, msg *Message, handler MessageHandler) error {
	err := handler(ctx, msg)
	if err == nil {
		c.metrics.MessagesProcessed.Add(1)
		return nil
	}

	rc := c.config.RetryConfig
	backoff := rc.RetryBackoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}
	maxBackoff := rc.MaxRetryBackoff
	if maxBackoff <= 0 {
		maxBackoff = 30 * time.Second
	}

	for i := 0; i < rc.MaxRetries; i++ {
		c.metrics.MessagesRetried.Add(1)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		if err = handler(ctx, msg); err == nil {
			c.metrics.MessagesProcessed.Add(1)
			return nil
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}

	c.metrics.MessagesFailed.Add(1)
	c.logger.Error("message processing failed after retries",
		logging.String("topic", msg.Topic),
		logging.Int64("offset", msg.Offset),
		logging.Err(err))

	if c.deadLetter == nil || rc.DeadLetterTopic == "" {
		return nil
	}
	headers := make(map[string]string, len(msg.Headers)+2)
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers["original_topic"] = msg.Topic
	headers["error_message"] = err.Error()

	dl := &ProducerMessage{Topic: rc.DeadLetterTopic, Key: msg.Key, Value: msg.Value, Headers: headers}
	if dlErr := c.deadLetter.Publish(ctx, dl); dlErr != nil {
		c.logger.Error("dead-letter publish failed", logging.Err(dlErr))
		return nil
	}
	c.metrics.MessagesDeadLettered.Add(1)
	return nil
}

// Stats returns a copy of the counters.
func (c *Consumer) Stats() (consumed, processed, failed, deadLettered int64) {
	return c.metrics.MessagesConsumed.Load(),
		c.metrics.MessagesProcessed.Load(),
		c.metrics.MessagesFailed.Load(),
		c.metrics.MessagesDeadLettered.Load()
}

// Close stops the loop and closes the reader.
func (c *Consumer) Close() error {
	if !c.running.CompareAndSwap(true, false) {
		return nil
	}
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()

	err := c.reader.Close()
	c.logger.Info("kafka consumer closed", logging.Int64("consumed", c.metrics.MessagesConsumed.Load()))
	return err
}

func fromKafkaMessage(m kafka.Message) *Message {
	msg := &Message{
		Topic:     m.Topic,
		Partition: m.Partition,
		Offset:    m.Offset,
		Key:       m.Key,
		Value:     m.Value,
		Timestamp: m.Time,
		Headers:   make(map[string]string, len(m.Headers)),
	}
	for _, h := range m.Headers {
		msg.Headers[h.Key] = string(h.Value)
	}
	return msg
}

func ValidateConsumerConfig(cfg ConsumerConfig) error {
	if len(cfg.Brokers) == 0 {
		return errors.InvalidParam("kafka brokers are required")
	}
	if cfg.GroupID == "" {
		return errors.InvalidParam("kafka group id is required")
	}
	if len(cfg.Topics) == 0 {
		return errors.InvalidParam("at least one topic is required")
	}
	if cfg.AutoOffsetReset != "" && cfg.AutoOffsetReset != "earliest" && cfg.AutoOffsetReset != "latest" {
		return errors.InvalidParam("auto offset reset must be earliest or latest")
	}
	if cfg.RetryConfig.MaxRetries < 0 {
		return errors.InvalidParam("kafka max retries must be >= 0")
	}
	return nil
}
