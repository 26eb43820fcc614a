//go:build integration

package messaging_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-fontenele/surplus-delivery/internal/domain"
	"github.com/joao-fontenele/surplus-delivery/internal/messaging"
	"github.com/joao-fontenele/surplus-delivery/internal/testutil"
)

func TestEventPublisher_RoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	brokers, cleanup := testutil.SetupKafka(ctx, t)
	defer cleanup()

	publisher := messaging.NewEventPublisher(brokers, "order.created", "order.status_changed")
	defer func() { _ = publisher.Close() }()

	event := domain.OrderStatusChangedEvent{
		OrderID:   "o-1",
		From:      domain.OrderStatusPending,
		To:        domain.OrderStatusCancelled,
		ActorID:   "biz-1",
		ActorRole: domain.RoleBusiness,
		Timestamp: time.Now().UTC().Truncate(time.Millisecond),
	}
	// The topic is created by the first write, which may fail while the
	// partition leader is elected.
	require.Eventually(t, func() bool {
		return publisher.PublishStatusChanged(ctx, event) == nil
	}, 30*time.Second, time.Second)

	consumer := messaging.NewConsumer(brokers, "order.status_changed", "round-trip-test",
		messaging.WithStartOffset(kafka.FirstOffset),
		messaging.WithMaxWait(500*time.Millisecond),
	)
	defer func() { _ = consumer.Close() }()

	consumeCtx, stop := context.WithCancel(ctx)
	defer stop()

	received := make(chan messaging.Message, 1)
	go func() {
		_ = consumer.Consume(consumeCtx, func(_ context.Context, msg messaging.Message) error {
			received <- msg
			stop()
			return nil
		})
	}()

	select {
	case msg := <-received:
		assert.Equal(t, "o-1", msg.Key)
		assert.Equal(t, domain.EventTypeOrderStatusChanged, msg.EventType)

		var got domain.OrderStatusChangedEvent
		require.NoError(t, json.Unmarshal(msg.Value, &got))
		assert.Equal(t, event.To, got.To)
		assert.Equal(t, event.ActorRole, got.ActorRole)
		assert.True(t, event.Timestamp.Equal(got.Timestamp))
	case <-ctx.Done():
		t.Fatal("timed out waiting for status changed event")
	}
}
