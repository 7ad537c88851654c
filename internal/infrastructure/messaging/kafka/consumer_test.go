package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamalcharan/contractnest-combined-sub008/internal/testutil"
)

// chanReader serves queued messages and then blocks until ctx ends.
type chanReader struct {
	msgs chan kafka.Message

	mu        sync.Mutex
	committed []int64
	closed    bool
}

func newChanReader(msgs ...kafka.Message) *chanReader {
	r := &chanReader{msgs: make(chan kafka.Message, len(msgs))}
	for _, m := range msgs {
		r.msgs <- m
	}
	return r
}

func (r *chanReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case m := <-r.msgs:
		return m, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (r *chanReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *chanReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *chanReader) Committed() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []*ProducerMessage
}

func (p *recordingPublisher) Publish(_ context.Context, msg *ProducerMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return nil
}

func (p *recordingPublisher) Messages() []*ProducerMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*ProducerMessage(nil), p.msgs...)
}

func testConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		Brokers: []string{"localhost:9092"},
		GroupID: "scheduler",
		Topics:  []string{TopicTicketsCompleted},
		RetryConfig: RetryConfig{
			MaxRetries:      2,
			RetryBackoff:    time.Millisecond,
			DeadLetterTopic: TopicDeadLetter,
		},
	}
}

func TestValidateConsumerConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ConsumerConfig)
		wantErr bool
	}{
		{"valid", func(*ConsumerConfig) {}, false},
		{"no brokers", func(c *ConsumerConfig) { c.Brokers = nil }, true},
		{"no group", func(c *ConsumerConfig) { c.GroupID = "" }, true},
		{"no topics", func(c *ConsumerConfig) { c.Topics = nil }, true},
		{"bad offset reset", func(c *ConsumerConfig) { c.AutoOffsetReset = "middle" }, true},
		{"negative retries", func(c *ConsumerConfig) { c.RetryConfig.MaxRetries = -1 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConsumerConfig()
			tt.mutate(&cfg)
			err := ValidateConsumerConfig(cfg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConsumer_DispatchesAndCommits(t *testing.T) {
	reader := newChanReader(
		kafka.Message{Topic: TopicTicketsCompleted, Offset: 1, Value: []byte("a"),
			Headers: []kafka.Header{{Key: "event_type", Value: []byte("x")}}},
		kafka.Message{Topic: TopicTicketsCompleted, Offset: 2, Value: []byte("b")},
	)
	c := NewConsumerWithReader(reader, testConsumerConfig(), nil, testutil.NewMockLogger())

	got := make(chan *Message, 2)
	c.Subscribe(TopicTicketsCompleted, func(_ context.Context, msg *Message) error {
		got <- msg
		return nil
	})
	require.NoError(t, c.Start(context.Background()))
	assert.ErrorIs(t, c.Start(context.Background()), ErrAlreadyRunning)

	first, second := <-got, <-got
	assert.Equal(t, []byte("a"), first.Value)
	assert.Equal(t, "x", first.Headers["event_type"])
	assert.Equal(t, []byte("b"), second.Value)

	assert.Eventually(t, func() bool { return len(reader.Committed()) == 2 }, time.Second, 5*time.Millisecond)
	require.NoError(t, c.Close())
	assert.True(t, reader.closed)

	consumed, processed, failed, dead := c.Stats()
	assert.Equal(t, int64(2), consumed)
	assert.Equal(t, int64(2), processed)
	assert.Zero(t, failed)
	assert.Zero(t, dead)
}

func TestConsumer_RetriesThenSucceeds(t *testing.T) {
	reader := newChanReader(kafka.Message{Topic: TopicTicketsCompleted, Offset: 7, Value: []byte("a")})
	c := NewConsumerWithReader(reader, testConsumerConfig(), nil, testutil.NewMockLogger())

	var mu sync.Mutex
	calls := 0
	c.Subscribe(TopicTicketsCompleted, func(context.Context, *Message) error {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, c.Start(context.Background()))
	defer c.Close()

	assert.Eventually(t, func() bool { return len(reader.Committed()) == 1 }, time.Second, 5*time.Millisecond)
	mu.Lock()
	assert.Equal(t, 3, calls)
	mu.Unlock()
}

func TestConsumer_DeadLettersAfterRetries(t *testing.T) {
	reader := newChanReader(kafka.Message{
		Topic:   TopicTicketsCompleted,
		Offset:  9,
		Key:     []byte("c-1"),
		Value:   []byte("poison"),
		Headers: []kafka.Header{{Key: "trace_id", Value: []byte("r-1")}},
	})
	dlq := &recordingPublisher{}
	log := testutil.NewMockLogger()
	c := NewConsumerWithReader(reader, testConsumerConfig(), dlq, log)
	c.Subscribe(TopicTicketsCompleted, func(context.Context, *Message) error {
		return errors.New("bad payload")
	})
	require.NoError(t, c.Start(context.Background()))

	assert.Eventually(t, func() bool { return len(reader.Committed()) == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, c.Close())

	msgs := dlq.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, TopicDeadLetter, msgs[0].Topic)
	assert.Equal(t, []byte("poison"), msgs[0].Value)
	assert.Equal(t, TopicTicketsCompleted, msgs[0].Headers["original_topic"])
	assert.Equal(t, "bad payload", msgs[0].Headers["error_message"])
	assert.Equal(t, "r-1", msgs[0].Headers["trace_id"])
	assert.True(t, log.HasMessage("error", "message processing failed after retries"))

	_, _, failed, dead := c.Stats()
	assert.Equal(t, int64(1), failed)
	assert.Equal(t, int64(1), dead)
}

func TestConsumer_UnknownTopicIsCommitted(t *testing.T) {
	reader := newChanReader(kafka.Message{Topic: "other.topic", Offset: 3})
	log := testutil.NewMockLogger()
	c := NewConsumerWithReader(reader, testConsumerConfig(), nil, log)
	require.NoError(t, c.Start(context.Background()))
	defer c.Close()

	assert.Eventually(t, func() bool { return len(reader.Committed()) == 1 }, time.Second, 5*time.Millisecond)
	assert.True(t, log.HasMessage("warn", "no handler for topic"))
}
