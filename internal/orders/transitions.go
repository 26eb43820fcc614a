package orders

import (
	"slices"

	"github.com/joao-fontenele/surplus-delivery/internal/domain"
)

type transitionTable map[domain.OrderStatus][]domain.OrderStatus

// Every status has an entry in every table. PENDING -> CONFIRMED is absent:
// only a claim may take it.
var (
	courierTransitions = transitionTable{
		domain.OrderStatusPending:           {},
		domain.OrderStatusBusinessConfirmed: {},
		domain.OrderStatusPreparing:         {},
		domain.OrderStatusReady:             {domain.OrderStatusPickedUp},
		domain.OrderStatusConfirmed:         {domain.OrderStatusPickedUp},
		domain.OrderStatusPickedUp:          {domain.OrderStatusCourierDelivered},
		domain.OrderStatusCourierDelivered:  {},
		domain.OrderStatusDelivered:         {},
		domain.OrderStatusCancelled:         {},
	}

	businessTransitions = transitionTable{
		domain.OrderStatusPending:           {domain.OrderStatusBusinessConfirmed, domain.OrderStatusCancelled},
		domain.OrderStatusBusinessConfirmed: {domain.OrderStatusPreparing, domain.OrderStatusCancelled},
		domain.OrderStatusPreparing:         {domain.OrderStatusReady, domain.OrderStatusCancelled},
		domain.OrderStatusReady:             {domain.OrderStatusCancelled},
		domain.OrderStatusConfirmed:         {},
		domain.OrderStatusPickedUp:          {},
		domain.OrderStatusCourierDelivered:  {},
		domain.OrderStatusDelivered:         {},
		domain.OrderStatusCancelled:         {},
	}

	consumerTransitions = transitionTable{
		domain.OrderStatusPending:           {},
		domain.OrderStatusBusinessConfirmed: {},
		domain.OrderStatusPreparing:         {},
		domain.OrderStatusReady:             {},
		domain.OrderStatusConfirmed:         {},
		domain.OrderStatusPickedUp:          {},
		domain.OrderStatusCourierDelivered:  {domain.OrderStatusDelivered},
		domain.OrderStatusDelivered:         {},
		domain.OrderStatusCancelled:         {},
	}
)

func transitionsFor(role domain.Role) transitionTable {
	switch role {
	case domain.RoleCourier:
		return courierTransitions
	case domain.RoleBusiness:
		return businessTransitions
	case domain.RoleConsumer:
		return consumerTransitions
	default:
		return nil
	}
}

// CanTransition reports whether role may move an order from one status to
// another.
func CanTransition(role domain.Role, from, to domain.OrderStatus) bool {
	return slices.Contains(transitionsFor(role)[from], to)
}

// NextStatuses lists the statuses role may move an order to from status.
func NextStatuses(role domain.Role, status domain.OrderStatus) []domain.OrderStatus {
	return slices.Clone(transitionsFor(role)[status])
}
