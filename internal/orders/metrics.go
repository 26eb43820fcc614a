package orders

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/joao-fontenele/surplus-delivery/internal/domain"
)

type serviceMetrics struct {
	checkouts   metric.Int64Counter
	created     metric.Int64Counter
	claims      metric.Int64Counter
	transitions metric.Int64Counter
}

// newServiceMetrics creates the order counters. On any instrument error it
// returns the error and metrics that record nothing.
func newServiceMetrics(m metric.Meter) (serviceMetrics, error) {
	if m == nil {
		return serviceMetrics{}, nil
	}
	checkouts, errCheckouts := m.Int64Counter("orders.service.checkouts", metric.WithDescription("Number of checkouts by outcome"))
	created, errCreated := m.Int64Counter("orders.service.created", metric.WithDescription("Number of orders created"))
	claims, errClaims := m.Int64Counter("orders.service.claims", metric.WithDescription("Number of delivery claims by outcome"))
	transitions, errTransitions := m.Int64Counter("orders.service.transitions", metric.WithDescription("Number of applied status transitions"))
	if err := errors.Join(errCheckouts, errCreated, errClaims, errTransitions); err != nil {
		return serviceMetrics{}, fmt.Errorf("create order metrics: %w", err)
	}
	return serviceMetrics{checkouts: checkouts, created: created, claims: claims, transitions: transitions}, nil
}

func (m serviceMetrics) recordCheckout(ctx context.Context, outcome string) {
	if m.checkouts != nil {
		m.checkouts.Add(ctx, 1, metric.WithAttributes(attribute.String("checkout.outcome", outcome)))
	}
}

func (m serviceMetrics) recordCreated(ctx context.Context, n int) {
	if m.created != nil && n > 0 {
		m.created.Add(ctx, int64(n))
	}
}

func (m serviceMetrics) recordClaim(ctx context.Context, won bool) {
	if m.claims != nil {
		outcome := "lost"
		if won {
			outcome = "won"
		}
		m.claims.Add(ctx, 1, metric.WithAttributes(attribute.String("claim.outcome", outcome)))
	}
}

func (m serviceMetrics) recordTransition(ctx context.Context, role domain.Role, to domain.OrderStatus) {
	if m.transitions != nil {
		m.transitions.Add(ctx, 1, metric.WithAttributes(
			attribute.String("actor.role", string(role)),
			attribute.String("order.status", string(to)),
		))
	}
}
