package services

import (
	"context"
	"errors"
	"fmt"

	"claudygod/internal/models"
	"claudygod/internal/reply"
	"claudygod/internal/repositories"

	"go.uber.org/zap"
)

// TransitionEngine applies status changes to orders. Every path that changes
// a status (admin action, email reply, auto-confirm) goes through it.
type TransitionEngine struct {
	orderRepo repositories.OrderRepository
	notifier  Notifier
	cache     StatusCache
	log       *zap.Logger
}

// NewTransitionEngine creates a new TransitionEngine. cache may be nil.
func NewTransitionEngine(orderRepo repositories.OrderRepository, notifier Notifier, cache StatusCache, log *zap.Logger) *TransitionEngine {
	return &TransitionEngine{
		orderRepo: orderRepo,
		notifier:  notifier,
		cache:     cache,
		log:       log,
	}
}

// Apply executes a parsed reply command against the pending order that
// carries its transaction id.
func (e *TransitionEngine) Apply(ctx context.Context, cmd reply.Command) (*models.Order, error) {
	var target models.OrderStatus
	switch cmd.Action {
	case reply.ActionConfirm:
		target = models.StatusConfirmed
	case reply.ActionReject:
		target = models.StatusCancelled
	default:
		return nil, fmt.Errorf("unknown action %q", cmd.Action)
	}

	order, err := e.orderRepo.FindPendingByTransactionID(ctx, cmd.TransactionID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			e.log.Info("command matches no pending order",
				zap.String("action", string(cmd.Action)),
				zap.String("transaction_id", cmd.TransactionID))
			return nil, fmt.Errorf("transaction %s: %w", cmd.TransactionID, ErrCommandNotFound)
		}
		return nil, err
	}

	updated, err := e.Transition(ctx, order.OrderID, target, models.SourceEmail)
	if err != nil {
		// Another trigger moved the order between lookup and update.
		if errors.Is(err, repositories.ErrInvalidTransition) {
			return nil, fmt.Errorf("transaction %s: %w", cmd.TransactionID, ErrCommandNotFound)
		}
		return nil, err
	}
	return updated, nil
}

// Transition moves an order to status. On confirmation the customer is notified.
func (e *TransitionEngine) Transition(ctx context.Context, orderID string, status models.OrderStatus, source models.StatusSource) (*models.Order, error) {
	order, err := e.orderRepo.SetStatus(ctx, orderID, status, source)
	if err != nil {
		return nil, err
	}

	e.log.Info("order status changed",
		zap.String("order_id", order.OrderID),
		zap.String("status", string(order.Status)),
		zap.String("source", string(source)))

	if e.cache != nil {
		if err := e.cache.Set(ctx, order.OrderID, order.Status); err != nil {
			e.log.Warn("failed to cache order status", zap.String("order_id", order.OrderID), zap.Error(err))
		}
	}

	if order.Status == models.StatusConfirmed && e.notifier != nil {
		if err := e.notifier.NotifyCustomerConfirmed(ctx, *order); err != nil {
			e.log.Error("failed to notify customer", zap.String("order_id", order.OrderID), zap.Error(err))
		}
	}
	return order, nil
}
