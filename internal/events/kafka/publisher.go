package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	interfaces "github.com/sheikh-saqib/personal-banking-ledger/internal/interfaces"
	"github.com/sheikh-saqib/personal-banking-ledger/internal/logging"
	"github.com/sheikh-saqib/personal-banking-ledger/internal/models/events"
)

// messageWriter is the subset of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// batchTimeout bounds how long a message waits for its batch to fill.
const batchTimeout = 10 * time.Millisecond

// Publisher writes JSON events to a single Kafka topic. Messages are keyed so
// that every event for one account lands on the same partition, in order.
// Writes are asynchronous: Publish only enqueues, and delivery failures are
// logged from the writer's completion callback.
type Publisher struct {
	writer messageWriter
	logger logging.Logger
}

// NewPublisher creates a publisher for topic on brokers. An empty topic
// defaults to events.TopicTransactionCommitted.
func NewPublisher(brokers []string, topic string, logger logging.Logger) *Publisher {
	if topic == "" {
		topic = events.TopicTransactionCommitted
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	p := &Publisher{logger: logger.WithField(logging.FieldTopic, topic)}
	p.writer = &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: 5 * time.Second,
		BatchTimeout: batchTimeout,
		Async:        true,
		Completion:   p.completion,
	}
	return p
}

// completion reports the outcome of an asynchronous batch.
func (p *Publisher) completion(messages []kafka.Message, err error) {
	if err == nil {
		return
	}
	for _, m := range messages {
		p.logger.WithError(err).Warn("Failed to deliver event",
			logging.F(logging.FieldAccountID, string(m.Key)))
	}
}

func (p *Publisher) Publish(ctx context.Context, key string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: data,
	}); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return nil
}

// Close flushes pending writes and releases the connection.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

var _ interfaces.EventPublisher = (*Publisher)(nil)
