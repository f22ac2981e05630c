package services

import (
	"context"

	"claudygod/internal/models"
)

// Notifier delivers the emails of the confirmation workflow.
// Implementations should not block on slow mail servers.
type Notifier interface {
	NotifyAdminPendingZelle(ctx context.Context, order models.Order) error
	NotifyCustomerConfirmed(ctx context.Context, order models.Order) error
}

// StatusCache keeps the last known status of an order for status polling.
type StatusCache interface {
	Get(ctx context.Context, orderID string) (models.OrderStatus, bool, error)
	Set(ctx context.Context, orderID string, status models.OrderStatus) error
}
