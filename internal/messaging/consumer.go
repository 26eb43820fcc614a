package messaging

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

var consumerTracer = otel.Tracer("surplus/messaging/consumer")

// Message is the decoded envelope a Handler receives. Value is the raw JSON
// event.
type Message struct {
	Key       string
	EventType string
	Value     []byte
}

type Handler func(ctx context.Context, msg Message) error

type ConsumerOption func(*kafka.ReaderConfig)

// WithStartOffset selects where a group without committed offsets begins.
func WithStartOffset(offset int64) ConsumerOption {
	return func(cfg *kafka.ReaderConfig) {
		cfg.StartOffset = offset
	}
}

func WithMaxWait(d time.Duration) ConsumerOption {
	return func(cfg *kafka.ReaderConfig) {
		cfg.MaxWait = d
	}
}

// Consumer reads one topic as part of a consumer group and commits each
// record after its handler returns.
type Consumer struct {
	reader  *kafka.Reader
	topic   string
	groupID string
}

func NewConsumer(brokers []string, topic, groupID string, opts ...ConsumerOption) *Consumer {
	cfg := kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Consumer{
		reader:  kafka.NewReader(cfg),
		topic:   topic,
		groupID: groupID,
	}
}

// Consume blocks until ctx is done or a handler fails. A failed record is
// left uncommitted so the group redelivers it.
func (c *Consumer) Consume(ctx context.Context, handler Handler) error {
	for {
		record, err := c.reader.FetchMessage(ctx)
		if err != nil {
			return err
		}

		if err := c.handle(ctx, &record, handler); err != nil {
			return fmt.Errorf("handle %s offset %d: %w", c.topic, record.Offset, err)
		}

		if err := c.reader.CommitMessages(ctx, record); err != nil {
			return fmt.Errorf("commit %s offset %d: %w", c.topic, record.Offset, err)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, record *kafka.Message, handler Handler) error {
	ctx, span := consumerTracer.Start(extractTraceContext(ctx, record), "process "+c.topic,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			semconv.MessagingSystemKafka,
			semconv.MessagingOperationName("process"),
			semconv.MessagingOperationTypeDeliver,
			semconv.MessagingDestinationName(c.topic),
			semconv.MessagingKafkaConsumerGroup(c.groupID),
			semconv.MessagingKafkaMessageOffset(int(record.Offset)),
			semconv.MessagingDestinationPartitionID(strconv.Itoa(record.Partition)),
			semconv.MessagingKafkaMessageKey(string(record.Key)),
		),
	)
	defer span.End()

	msg := Message{
		Key:       string(record.Key),
		EventType: headerValue(record.Headers, EventTypeHeader),
		Value:     record.Value,
	}
	if err := handler(ctx, msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
