package orders

import (
	"github.com/ttkdelivery/ttk-backend/pkg/enums"
)

// allowedTransitions is the full adjacency of the order lifecycle.
// Completed, rejected and cancelled are terminal.
var allowedTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending: {
		enums.OrderStatusAdminReview,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusAdminReview: {
		enums.OrderStatusConfirmed,
		enums.OrderStatusRejected,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusConfirmed: {
		enums.OrderStatusOutForDelivery,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusOutForDelivery: {
		enums.OrderStatusCompleted,
		enums.OrderStatusCancelled,
	},
}

// CanTransition reports whether the lifecycle permits moving from one
// status to another, role and ownership aside.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NextStatuses returns the statuses reachable from the given one.
func NextStatuses(from enums.OrderStatus) []enums.OrderStatus {
	next := allowedTransitions[from]
	out := make([]enums.OrderStatus, len(next))
	copy(out, next)
	return out
}
