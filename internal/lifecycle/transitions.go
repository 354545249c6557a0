package lifecycle

import (
	"errors"
	"fmt"

	"agency-portal-backend/internal/models"
)

var ErrInvalidTransition = errors.New("invalid order status transition")

var transitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderStatusPending:    {models.OrderStatusInProgress, models.OrderStatusDelivered, models.OrderStatusCancelled},
	models.OrderStatusInProgress: {models.OrderStatusDelivered, models.OrderStatusCancelled},
	models.OrderStatusDelivered: {
		models.OrderStatusApproved,
		models.OrderStatusRevisionRequested,
		models.OrderStatusDelivered,
		models.OrderStatusCompleted,
		models.OrderStatusCancelled,
	},
	models.OrderStatusRevisionRequested: {models.OrderStatusDelivered, models.OrderStatusCancelled},
	models.OrderStatusApproved:          {models.OrderStatusDelivered, models.OrderStatusCompleted},
}

func CanTransition(from, to models.OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition validates from -> to and returns to on success.
func Transition(from, to models.OrderStatus) (models.OrderStatus, error) {
	if !CanTransition(from, to) {
		return from, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return to, nil
}

// AcceptsDelivery reports whether an admin may attach a new delivery while the
// order is in this state.
func AcceptsDelivery(status models.OrderStatus) bool {
	return CanTransition(status, models.OrderStatusDelivered)
}
