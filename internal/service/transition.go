package service

import "food-order-service/internal/entity"

// transitions lists the statuses reachable from each status. Delivered and
// cancelled are terminal.
var transitions = map[entity.OrderStatus][]entity.OrderStatus{
	entity.StatusPending:        {entity.StatusConfirmed, entity.StatusCancelled},
	entity.StatusConfirmed:      {entity.StatusPreparing, entity.StatusCancelled},
	entity.StatusPreparing:      {entity.StatusSentToDelivery, entity.StatusCancelled},
	entity.StatusSentToDelivery: {entity.StatusDelivered, entity.StatusCancelled},
	entity.StatusDelivered:      {},
	entity.StatusCancelled:      {},
}

func CanTransition(from, to entity.OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NextStatuses returns the statuses an order in from may move to.
func NextStatuses(from entity.OrderStatus) []entity.OrderStatus {
	return append([]entity.OrderStatus(nil), transitions[from]...)
}

func IsTerminal(s entity.OrderStatus) bool {
	next, known := transitions[s]
	return known && len(next) == 0
}
