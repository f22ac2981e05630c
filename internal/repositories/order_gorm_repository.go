package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"claudygod/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// GORMOrderRepository is a GORM implementation of OrderRepository.
type GORMOrderRepository struct {
	db *gorm.DB
}

// NewGORMOrderRepository creates a new instance of GORMOrderRepository.
func NewGORMOrderRepository(db *gorm.DB) *GORMOrderRepository {
	return &GORMOrderRepository{
		db: db,
	}
}

func persistenceErr(op string, err error) error {
	return fmt.Errorf("failed to %s: %w: %w", op, ErrPersistence, err)
}

// Create persists a new pending order together with its items.
func (r *GORMOrderRepository) Create(ctx context.Context, order *models.Order) error {
	if order.OrderID == "" {
		order.OrderID = uuid.New().String()
	}
	order.Status = models.StatusPending
	order.StatusSource = ""
	order.StatusChangedAt = nil

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var pending int64
		err := tx.Model(&models.Order{}).
			Where("payment_transaction_id = ? AND status = ?", order.Payment.TransactionID, models.StatusPending).
			Count(&pending).Error
		if err != nil {
			return err
		}
		if pending > 0 {
			return ErrDuplicateTransaction
		}
		return tx.Create(order).Error
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrDuplicateTransaction), errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("order with transaction %s: %w", order.Payment.TransactionID, ErrDuplicateTransaction)
	default:
		return persistenceErr("create order", err)
	}
}

// GetByOrderID retrieves an order and its items by the public order id.
func (r *GORMOrderRepository) GetByOrderID(ctx context.Context, orderID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Preload("Items").First(&order, "order_id = ?", orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("order %s: %w", orderID, ErrNotFound)
		}
		return nil, persistenceErr(fmt.Sprintf("get order %s", orderID), err)
	}
	return &order, nil
}

// SetStatus moves a pending order to status with a single conditional update,
// so that of several concurrent callers exactly one wins.
func (r *GORMOrderRepository) SetStatus(ctx context.Context, orderID string, status models.OrderStatus, source models.StatusSource) (*models.Order, error) {
	if !models.CanTransition(models.StatusPending, status) {
		current, err := r.GetByOrderID(ctx, orderID)
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("order %s cannot move from %s to %s: %w", orderID, current.Status, status, ErrInvalidTransition)
	}

	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("order_id = ? AND status = ?", orderID, models.StatusPending).
		Updates(map[string]interface{}{
			"status":            status,
			"status_source":     source,
			"status_changed_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return nil, persistenceErr(fmt.Sprintf("update status of order %s", orderID), res.Error)
	}

	current, err := r.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("order %s cannot move from %s to %s: %w", orderID, current.Status, status, ErrInvalidTransition)
	}
	return current, nil
}

// FindPendingByTransactionID returns the single pending Zelle order carrying the
// confirmation code. Reply commands only ever refer to Zelle codes.
func (r *GORMOrderRepository) FindPendingByTransactionID(ctx context.Context, transactionID string) (*models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).Preload("Items").
		Where("payment_transaction_id = ? AND payment_method = ? AND status = ?",
			transactionID, models.PaymentZelle, models.StatusPending).
		Limit(2).
		Find(&orders).Error
	if err != nil {
		return nil, persistenceErr(fmt.Sprintf("find pending order for transaction %s", transactionID), err)
	}
	switch len(orders) {
	case 0:
		return nil, fmt.Errorf("pending order for transaction %s: %w", transactionID, ErrNotFound)
	case 1:
		return &orders[0], nil
	default:
		return nil, fmt.Errorf("transaction %s: %w", transactionID, ErrAmbiguousTransaction)
	}
}

// List returns orders matching the filter, newest first.
func (r *GORMOrderRepository) List(ctx context.Context, filter OrderFilter) ([]models.Order, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	query := r.db.WithContext(ctx).Preload("Items")
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Method != "" {
		query = query.Where("payment_method = ?", filter.Method)
	}

	var orders []models.Order
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&orders).Error; err != nil {
		return nil, persistenceErr("list orders", err)
	}
	return orders, nil
}

// ListPendingCreatedBefore returns pending orders paid with method and created before the cutoff.
func (r *GORMOrderRepository) ListPendingCreatedBefore(ctx context.Context, method models.PaymentMethod, before time.Time) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Where("status = ? AND payment_method = ? AND created_at < ?", models.StatusPending, method, before).
		Order("created_at ASC").
		Find(&orders).Error
	if err != nil {
		return nil, persistenceErr("list pending orders", err)
	}
	return orders, nil
}
