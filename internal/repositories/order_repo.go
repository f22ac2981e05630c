package repositories

import (
	"context"
	"time"

	"claudygod/internal/models"
)

// OrderFilter narrows an admin order listing. Zero values mean "any".
type OrderFilter struct {
	Status models.OrderStatus
	Method models.PaymentMethod
	Limit  int
}

// OrderRepository defines the interface for order data access.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByOrderID(ctx context.Context, orderID string) (*models.Order, error)
	// SetStatus moves a pending order to a terminal status and returns the updated order.
	// It is the only way a status ever changes.
	SetStatus(ctx context.Context, orderID string, status models.OrderStatus, source models.StatusSource) (*models.Order, error)
	// FindPendingByTransactionID looks up pending Zelle orders only.
	FindPendingByTransactionID(ctx context.Context, transactionID string) (*models.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]models.Order, error)
	ListPendingCreatedBefore(ctx context.Context, method models.PaymentMethod, before time.Time) ([]models.Order, error)
	// Orders are never deleted.
}
