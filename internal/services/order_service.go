package services

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"claudygod/internal/models"
	"claudygod/internal/reply"
	"claudygod/internal/repositories"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var zelleCodePattern = regexp.MustCompile(`^[A-Z0-9]{9,10}$`)

// OrderService handles business logic related to orders.
type OrderService struct {
	orderRepo repositories.OrderRepository
	engine    *TransitionEngine
	notifier  Notifier
	cache     StatusCache
	pricing   Pricing
	validate  *validator.Validate
	log       *zap.Logger
}

// NewOrderService creates a new OrderService. notifier and cache may be nil.
func NewOrderService(orderRepo repositories.OrderRepository, engine *TransitionEngine, notifier Notifier, cache StatusCache, pricing Pricing, log *zap.Logger) *OrderService {
	return &OrderService{
		orderRepo: orderRepo,
		engine:    engine,
		notifier:  notifier,
		cache:     cache,
		pricing:   pricing,
		validate:  newValidator(),
		log:       log,
	}
}

// newValidator reports field errors by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// CreateOrder validates a draft, prices it and stores it as a pending order.
// Zelle orders trigger a confirmation request to the admin.
func (s *OrderService) CreateOrder(ctx context.Context, draft models.OrderDraft) (*models.Order, error) {
	draft.Payment.TransactionID = strings.TrimSpace(draft.Payment.TransactionID)
	if draft.Payment.Method == models.PaymentZelle {
		draft.Payment.TransactionID = strings.ToUpper(draft.Payment.TransactionID)
	}
	if err := s.validateDraft(draft); err != nil {
		return nil, err
	}

	items := make([]models.OrderItem, 0, len(draft.Items))
	for _, item := range draft.Items {
		items = append(items, models.OrderItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.Round(2),
		})
	}
	totals := s.pricing.Calculate(items)

	order := &models.Order{
		Items:        items,
		Shipping:     draft.Shipping,
		Payment:      draft.Payment,
		Subtotal:     totals.Subtotal,
		Tax:          totals.Tax,
		ShippingCost: totals.Shipping,
		Total:        totals.Total,
		Status:       models.StatusPending,
	}
	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	s.log.Info("order created",
		zap.String("order_id", order.OrderID),
		zap.String("method", string(order.Payment.Method)),
		zap.String("total", order.Total.StringFixed(2)))

	if order.Payment.Method == models.PaymentZelle && s.notifier != nil {
		if err := s.notifier.NotifyAdminPendingZelle(ctx, *order); err != nil {
			s.log.Error("failed to request payment confirmation", zap.String("order_id", order.OrderID), zap.Error(err))
		}
	}
	return order, nil
}

func (s *OrderService) validateDraft(draft models.OrderDraft) error {
	fields := make(map[string]string)

	if err := s.validate.Struct(draft); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return fmt.Errorf("failed to validate order: %w", err)
		}
		for _, e := range validationErrors {
			// Drop the root struct name from "OrderDraft.shipping.email".
			field := e.Namespace()
			if i := strings.Index(field, "."); i >= 0 {
				field = field[i+1:]
			}
			fields[field] = fmt.Sprintf("failed on the '%s' tag", e.Tag())
		}
	}

	for i, item := range draft.Items {
		if item.UnitPrice.IsNegative() {
			fields[fmt.Sprintf("items[%d].unitPrice", i)] = "must not be negative"
		}
	}

	if draft.Payment.Method == models.PaymentZelle && draft.Payment.TransactionID != "" &&
		!zelleCodePattern.MatchString(draft.Payment.TransactionID) {
		fields["payment.transactionId"] = "zelle confirmation code must be 9 or 10 letters or digits"
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// GetOrder retrieves a single order by its public id.
func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	return s.orderRepo.GetByOrderID(ctx, orderID)
}

// GetStatus returns the current status of an order, reading through the cache.
func (s *OrderService) GetStatus(ctx context.Context, orderID string) (models.OrderStatus, error) {
	if s.cache != nil {
		status, ok, err := s.cache.Get(ctx, orderID)
		if err != nil {
			s.log.Warn("failed to read cached status", zap.String("order_id", orderID), zap.Error(err))
		} else if ok {
			return status, nil
		}
	}

	order, err := s.orderRepo.GetByOrderID(ctx, orderID)
	if err != nil {
		return "", err
	}
	s.cacheStatus(ctx, order.OrderID, order.Status)
	return order.Status, nil
}

// ListOrders returns orders for the admin view.
func (s *OrderService) ListOrders(ctx context.Context, filter repositories.OrderFilter) ([]models.Order, error) {
	return s.orderRepo.List(ctx, filter)
}

// ConfirmOrder marks a pending order as paid on behalf of an admin.
func (s *OrderService) ConfirmOrder(ctx context.Context, orderID string) (*models.Order, error) {
	return s.engine.Transition(ctx, orderID, models.StatusConfirmed, models.SourceAdmin)
}

// CancelOrder cancels a pending order on behalf of an admin.
func (s *OrderService) CancelOrder(ctx context.Context, orderID string) (*models.Order, error) {
	return s.engine.Transition(ctx, orderID, models.StatusCancelled, models.SourceAdmin)
}

// EmailResult describes what processing an inbound email did.
type EmailResult struct {
	Outcome reply.Outcome
	Applied bool
	Order   *models.Order
	Reason  string
}

// ProcessEmail parses an admin reply and applies the command it carries.
// Only persistence failures are returned as errors; a reply that matches no
// pending order is reported as not applied.
func (s *OrderService) ProcessEmail(ctx context.Context, text string) (EmailResult, error) {
	parsed := reply.Parse(text)
	result := EmailResult{Outcome: parsed.Outcome}

	switch parsed.Outcome {
	case reply.OutcomeNone:
		result.Reason = "no command found"
		return result, nil
	case reply.OutcomeMalformed:
		s.log.Info("malformed reply command", zap.String("line", parsed.Line))
		result.Reason = "command has no transaction id"
		return result, nil
	}

	order, err := s.engine.Apply(ctx, parsed.Command)
	switch {
	case err == nil:
		result.Applied = true
		result.Order = order
		return result, nil
	case errors.Is(err, ErrCommandNotFound):
		result.Reason = "no pending order for transaction"
		return result, nil
	case errors.Is(err, repositories.ErrAmbiguousTransaction):
		s.log.Warn("reply command matches several pending orders",
			zap.String("transaction_id", parsed.Command.TransactionID))
		result.Reason = "transaction id matches several pending orders"
		return result, nil
	default:
		return result, fmt.Errorf("failed to apply %s %s: %w", parsed.Command.Action, parsed.Command.TransactionID, err)
	}
}

// cacheStatus stores terminal statuses only. A pending value read from the
// store may already be outdated when it is written, while a terminal one never is.
func (s *OrderService) cacheStatus(ctx context.Context, orderID string, status models.OrderStatus) {
	if s.cache == nil || !status.IsTerminal() {
		return
	}
	if err := s.cache.Set(ctx, orderID, status); err != nil {
		s.log.Warn("failed to cache order status", zap.String("order_id", orderID), zap.Error(err))
	}
}
