package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/joao-fontenele/surplus-delivery/internal/domain"
	"github.com/joao-fontenele/surplus-delivery/internal/messaging"
)

type Restocker interface {
	RestockCancelledOrder(ctx context.Context, orderID string) (bool, error)
}

// RestockHandler returns the stock of cancelled orders. Restocking is
// idempotent, so redelivered events are harmless.
type RestockHandler struct {
	restocker Restocker
	logger    *slog.Logger
}

func NewRestockHandler(restocker Restocker, logger *slog.Logger) *RestockHandler {
	return &RestockHandler{
		restocker: restocker,
		logger:    logger,
	}
}

func (h *RestockHandler) Handle(ctx context.Context, msg messaging.Message) error {
	if msg.EventType != "" && msg.EventType != domain.EventTypeOrderStatusChanged {
		h.logger.Debug("skipping event", "event_type", msg.EventType)
		return nil
	}

	var event domain.OrderStatusChangedEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		// Malformed events are dropped.
		h.logger.Error("failed to unmarshal status changed event", "error", err, "key", msg.Key)
		return nil
	}

	if event.To != domain.OrderStatusCancelled {
		return nil
	}

	restocked, err := h.restocker.RestockCancelledOrder(ctx, event.OrderID)
	if err != nil {
		return fmt.Errorf("restock cancelled order %s: %w", event.OrderID, err)
	}

	if restocked {
		h.logger.Info("cancelled order restocked", "order_id", event.OrderID)
	} else {
		h.logger.Info("cancelled order already restocked", "order_id", event.OrderID)
	}

	return nil
}
