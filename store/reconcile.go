package store

import (
	"context"
	"errors"

	"github.com/OTapias/alican-teca/models"

	"go.uber.org/zap"
)

// ErrTransitionNotAllowed marks a status change the lifecycle graph
// forbids, e.g. reviving a refunded order. The webhook transport still
// answers success; the event is just dropped.
var ErrTransitionNotAllowed = errors.New("order status transition not allowed")

// transitions is the webhook-driven lifecycle graph. failed, cancelled and
// refunded are terminal; a settled order can only move on to refunded.
var transitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderStatusPending: {
		models.OrderStatusAuthorized,
		models.OrderStatusPaid,
		models.OrderStatusFailed,
		models.OrderStatusCancelled,
	},
	models.OrderStatusAuthorized: {
		models.OrderStatusPaid,
		models.OrderStatusFailed,
		models.OrderStatusCancelled,
	},
	models.OrderStatusPaid: {
		models.OrderStatusRefunded,
	},
}

func transitionAllowed(from, to models.OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Reconciler applies normalized payment outcomes to stored orders.
// Administrative updates go through OrderStore.Update directly and only
// check the vocabulary; the graph here guards the unattended webhook path.
type Reconciler struct {
	orders *OrderStore
	logger *zap.Logger
}

func NewReconciler(orders *OrderStore, logger *zap.Logger) *Reconciler {
	return &Reconciler{orders: orders, logger: logger}
}

// Apply moves the order to the reported status. Redelivery of the same
// status is a no-op returning the current row. Concurrent applies for one
// order race on the single-row update; last writer wins.
func (r *Reconciler) Apply(ctx context.Context, orderID string, status models.OrderStatus, provider string) (models.Order, error) {
	if !models.ValidStatus(status) {
		return models.Order{}, ErrInvalidStatus
	}

	order, err := r.orders.Get(ctx, orderID)
	if err != nil {
		return models.Order{}, err
	}

	if order.Status == status {
		r.logger.Info("Order already in reported status",
			zap.String("order_id", orderID), zap.String("status", string(status)))
		return order, nil
	}

	if !transitionAllowed(order.Status, status) {
		r.logger.Warn("Dropping disallowed status transition",
			zap.String("order_id", orderID),
			zap.String("from", string(order.Status)),
			zap.String("to", string(status)),
			zap.String("provider", provider),
		)
		return models.Order{}, ErrTransitionNotAllowed
	}

	updated, err := r.orders.Update(ctx, orderID, models.UpdateOrderRequest{
		Status:   string(status),
		Provider: provider,
	})
	if err != nil {
		return models.Order{}, err
	}

	r.logger.Info("Order reconciled",
		zap.String("order_id", orderID),
		zap.String("from", string(order.Status)),
		zap.String("to", string(status)),
		zap.String("provider", provider),
	)
	return updated, nil
}
