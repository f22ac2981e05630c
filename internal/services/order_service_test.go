package services_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"claudygod/internal/models"
	"claudygod/internal/reply"
	"claudygod/internal/repositories"
	"claudygod/internal/services"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testPricing = services.Pricing{
	TaxRate:          decimal.RequireFromString("0.08"),
	ShippingFlat:     decimal.RequireFromString("5.99"),
	FreeShippingOver: decimal.RequireFromString("100"),
}

func validDraft(method models.PaymentMethod, txID string) models.OrderDraft {
	return models.OrderDraft{
		Items: []models.OrderItem{
			{ProductID: "album-1", Name: "Live Album", Quantity: 2, UnitPrice: decimal.RequireFromString("15.00")},
			{ProductID: "tee-1", Name: "Tour T-Shirt", Quantity: 1, UnitPrice: decimal.RequireFromString("12.50")},
		},
		Shipping: models.ShippingInfo{Name: "Jane Doe", Email: "jane@example.com", Address: "1 Main St"},
		Payment:  models.PaymentInfo{Method: method, TransactionID: txID},
	}
}

func newMockedService(repo *MockOrderRepository, notifier *MockNotifier, cache *MockStatusCache) *services.OrderService {
	var (
		n services.Notifier
		c services.StatusCache
	)
	if notifier != nil {
		n = notifier
	}
	if cache != nil {
		c = cache
	}
	engine := services.NewTransitionEngine(repo, n, c, zap.NewNop())
	return services.NewOrderService(repo, engine, n, c, testPricing, zap.NewNop())
}

func TestOrderService_CreateOrder_Zelle(t *testing.T) {
	mockRepo := new(MockOrderRepository)
	mockNotifier := new(MockNotifier)
	service := newMockedService(mockRepo, mockNotifier, nil)

	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.Order")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*models.Order).OrderID = "order-1"
		}).
		Return(nil).Once()
	mockNotifier.On("NotifyAdminPendingZelle", mock.Anything, mock.MatchedBy(func(o models.Order) bool {
		return o.OrderID == "order-1"
	})).Return(nil).Once()

	order, err := service.CreateOrder(context.Background(), validDraft(models.PaymentZelle, " abc123456 "))
	require.NoError(t, err)

	assert.Equal(t, "order-1", order.OrderID)
	assert.Equal(t, models.StatusPending, order.Status)
	assert.Equal(t, "ABC123456", order.Payment.TransactionID)
	assert.True(t, decimal.RequireFromString("42.50").Equal(order.Subtotal))
	assert.True(t, decimal.RequireFromString("3.40").Equal(order.Tax))
	assert.True(t, decimal.RequireFromString("5.99").Equal(order.ShippingCost))
	assert.True(t, order.Total.Equal(order.Subtotal.Add(order.Tax).Add(order.ShippingCost)))
	mockRepo.AssertExpectations(t)
	mockNotifier.AssertExpectations(t)
}

func TestOrderService_CreateOrder_PayPalSkipsAdminRequest(t *testing.T) {
	mockRepo := new(MockOrderRepository)
	mockNotifier := new(MockNotifier)
	service := newMockedService(mockRepo, mockNotifier, nil)

	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.Order")).Return(nil).Once()

	order, err := service.CreateOrder(context.Background(), validDraft(models.PaymentPayPal, "PAYID-LXYZ123"))
	require.NoError(t, err)
	assert.Equal(t, "PAYID-LXYZ123", order.Payment.TransactionID)
	mockNotifier.AssertNotCalled(t, "NotifyAdminPendingZelle", mock.Anything, mock.Anything)
}

func TestOrderService_CreateOrder_NotifierFailureDoesNotFail(t *testing.T) {
	mockRepo := new(MockOrderRepository)
	mockNotifier := new(MockNotifier)
	service := newMockedService(mockRepo, mockNotifier, nil)

	mockRepo.On("Create", mock.Anything, mock.Anything).Return(nil).Once()
	mockNotifier.On("NotifyAdminPendingZelle", mock.Anything, mock.Anything).Return(fmt.Errorf("queue full")).Once()

	_, err := service.CreateOrder(context.Background(), validDraft(models.PaymentZelle, "ABC123456"))
	assert.NoError(t, err)
}

func TestOrderService_CreateOrder_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *models.OrderDraft)
		field  string
	}{
		{"missing name", func(d *models.OrderDraft) { d.Shipping.Name = "" }, "shipping.name"},
		{"bad email", func(d *models.OrderDraft) { d.Shipping.Email = "not-an-email" }, "shipping.email"},
		{"missing address", func(d *models.OrderDraft) { d.Shipping.Address = "" }, "shipping.address"},
		{"no items", func(d *models.OrderDraft) { d.Items = nil }, "items"},
		{"zero quantity", func(d *models.OrderDraft) { d.Items[0].Quantity = 0 }, "items[0].quantity"},
		{"negative price", func(d *models.OrderDraft) { d.Items[1].UnitPrice = decimal.RequireFromString("-1") }, "items[1].unitPrice"},
		{"unknown method", func(d *models.OrderDraft) { d.Payment.Method = "bitcoin" }, "payment.method"},
		{"missing transaction", func(d *models.OrderDraft) { d.Payment.TransactionID = "  " }, "payment.transactionId"},
		{"short zelle code", func(d *models.OrderDraft) { d.Payment.TransactionID = "ABC123" }, "payment.transactionId"},
		{"zelle code with symbols", func(d *models.OrderDraft) { d.Payment.TransactionID = "ABC-12345" }, "payment.transactionId"},
		{"long zelle code", func(d *models.OrderDraft) { d.Payment.TransactionID = "ABC12345678" }, "payment.transactionId"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockOrderRepository)
			service := newMockedService(mockRepo, nil, nil)

			draft := validDraft(models.PaymentZelle, "ABC123456")
			tt.mutate(&draft)

			_, err := service.CreateOrder(context.Background(), draft)
			require.Error(t, err)
			assert.ErrorIs(t, err, services.ErrValidation)

			var vErr *services.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Contains(t, vErr.Fields, tt.field)
			mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestOrderService_CreateOrder_Duplicate(t *testing.T) {
	mockRepo := new(MockOrderRepository)
	service := newMockedService(mockRepo, nil, nil)

	mockRepo.On("Create", mock.Anything, mock.Anything).
		Return(fmt.Errorf("order with transaction ABC123456: %w", repositories.ErrDuplicateTransaction)).Once()

	_, err := service.CreateOrder(context.Background(), validDraft(models.PaymentZelle, "ABC123456"))
	assert.ErrorIs(t, err, repositories.ErrDuplicateTransaction)
}

func TestOrderService_GetStatus_ReadsThroughCache(t *testing.T) {
	mockRepo := new(MockOrderRepository)
	mockCache := new(MockStatusCache)
	service := newMockedService(mockRepo, nil, mockCache)
	ctx := context.Background()

	// Cache hit
	mockCache.On("Get", mock.Anything, "order-1").Return(models.StatusConfirmed, true, nil).Once()
	status, err := service.GetStatus(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, status)
	mockRepo.AssertNotCalled(t, "GetByOrderID", mock.Anything, mock.Anything)

	// Cache miss falls back to the store; pending is not cached
	mockCache.On("Get", mock.Anything, "order-2").Return(models.OrderStatus(""), false, nil).Once()
	mockRepo.On("GetByOrderID", mock.Anything, "order-2").Return(&models.Order{OrderID: "order-2", Status: models.StatusPending}, nil).Once()
	status, err = service.GetStatus(ctx, "order-2")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, status)
	mockCache.AssertNotCalled(t, "Set", mock.Anything, "order-2", mock.Anything)

	// Cache errors are ignored
	mockCache.On("Get", mock.Anything, "order-3").Return(models.OrderStatus(""), false, fmt.Errorf("redis down")).Once()
	mockRepo.On("GetByOrderID", mock.Anything, "order-3").Return(&models.Order{OrderID: "order-3", Status: models.StatusCancelled}, nil).Once()
	mockCache.On("Set", mock.Anything, "order-3", models.StatusCancelled).Return(fmt.Errorf("redis down")).Once()
	status, err = service.GetStatus(ctx, "order-3")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, status)

	// Unknown order
	mockCache.On("Get", mock.Anything, "missing").Return(models.OrderStatus(""), false, nil).Once()
	mockRepo.On("GetByOrderID", mock.Anything, "missing").Return(nil, repositories.ErrNotFound).Once()
	_, err = service.GetStatus(ctx, "missing")
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	mockRepo.AssertExpectations(t)
	mockCache.AssertExpectations(t)
}

func TestOrderService_ConfirmAndCancel(t *testing.T) {
	mockRepo := new(MockOrderRepository)
	mockNotifier := new(MockNotifier)
	mockCache := new(MockStatusCache)
	service := newMockedService(mockRepo, mockNotifier, mockCache)
	ctx := context.Background()

	confirmed := &models.Order{OrderID: "order-1", Status: models.StatusConfirmed}
	mockRepo.On("SetStatus", mock.Anything, "order-1", models.StatusConfirmed, models.SourceAdmin).Return(confirmed, nil).Once()
	mockCache.On("Set", mock.Anything, "order-1", models.StatusConfirmed).Return(nil).Once()
	mockNotifier.On("NotifyCustomerConfirmed", mock.Anything, *confirmed).Return(nil).Once()

	order, err := service.ConfirmOrder(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, order.Status)

	cancelled := &models.Order{OrderID: "order-2", Status: models.StatusCancelled}
	mockRepo.On("SetStatus", mock.Anything, "order-2", models.StatusCancelled, models.SourceAdmin).Return(cancelled, nil).Once()
	mockCache.On("Set", mock.Anything, "order-2", models.StatusCancelled).Return(nil).Once()

	order, err = service.CancelOrder(ctx, "order-2")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, order.Status)

	mockRepo.On("SetStatus", mock.Anything, "order-1", models.StatusCancelled, models.SourceAdmin).
		Return(nil, repositories.ErrInvalidTransition).Once()
	_, err = service.CancelOrder(ctx, "order-1")
	assert.ErrorIs(t, err, repositories.ErrInvalidTransition)

	mockRepo.AssertExpectations(t)
	mockCache.AssertExpectations(t)
	mockNotifier.AssertExpectations(t)
	mockNotifier.AssertNumberOfCalls(t, "NotifyCustomerConfirmed", 1)
}

func TestOrderService_ProcessEmail_NoCommand(t *testing.T) {
	mockRepo := new(MockOrderRepository)
	service := newMockedService(mockRepo, nil, nil)

	result, err := service.ProcessEmail(context.Background(), "Thanks, looks good!")
	require.NoError(t, err)
	assert.Equal(t, reply.OutcomeNone, result.Outcome)
	assert.False(t, result.Applied)

	result, err = service.ProcessEmail(context.Background(), "CONFIRM")
	require.NoError(t, err)
	assert.Equal(t, reply.OutcomeMalformed, result.Outcome)
	assert.False(t, result.Applied)

	mockRepo.AssertNotCalled(t, "FindPendingByTransactionID", mock.Anything, mock.Anything)
}

func TestOrderService_ProcessEmail_PersistenceFailure(t *testing.T) {
	mockRepo := new(MockOrderRepository)
	service := newMockedService(mockRepo, nil, nil)

	mockRepo.On("FindPendingByTransactionID", mock.Anything, "ABC123456").
		Return(nil, fmt.Errorf("failed to find: %w", repositories.ErrPersistence)).Once()

	_, err := service.ProcessEmail(context.Background(), "CONFIRM ABC123456")
	assert.ErrorIs(t, err, repositories.ErrPersistence)
	mockRepo.AssertNotCalled(t, "SetStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestOrderService_ProcessEmail_Ambiguous(t *testing.T) {
	mockRepo := new(MockOrderRepository)
	service := newMockedService(mockRepo, nil, nil)

	mockRepo.On("FindPendingByTransactionID", mock.Anything, "ABC123456").
		Return(nil, repositories.ErrAmbiguousTransaction).Once()

	result, err := service.ProcessEmail(context.Background(), "CONFIRM ABC123456")
	require.NoError(t, err)
	assert.False(t, result.Applied)
	mockRepo.AssertNotCalled(t, "SetStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestOrderService_SweepAutoConfirm(t *testing.T) {
	mockRepo := new(MockOrderRepository)
	mockNotifier := new(MockNotifier)
	service := newMockedService(mockRepo, mockNotifier, nil)
	cutoff := time.Now().Add(-time.Hour)

	due := []models.Order{{OrderID: "a"}, {OrderID: "b"}}
	mockRepo.On("ListPendingCreatedBefore", mock.Anything, models.PaymentZelle, cutoff).Return(due, nil).Once()
	mockRepo.On("SetStatus", mock.Anything, "a", models.StatusConfirmed, models.SourceAuto).
		Return(&models.Order{OrderID: "a", Status: models.StatusConfirmed}, nil).Once()
	// Confirmed by an admin in the meantime.
	mockRepo.On("SetStatus", mock.Anything, "b", models.StatusConfirmed, models.SourceAuto).
		Return(nil, repositories.ErrInvalidTransition).Once()
	mockNotifier.On("NotifyCustomerConfirmed", mock.Anything, mock.Anything).Return(nil).Once()

	n, err := service.SweepAutoConfirm(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	mockRepo.AssertExpectations(t)
	mockNotifier.AssertExpectations(t)
}

func TestOrderService_StartAutoConfirm_StopsOnCancel(t *testing.T) {
	mockRepo := new(MockOrderRepository)
	service := newMockedService(mockRepo, nil, nil)
	mockRepo.On("ListPendingCreatedBefore", mock.Anything, models.PaymentZelle, mock.Anything).Return([]models.Order{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- service.StartAutoConfirm(ctx, time.Minute, 5*time.Millisecond) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
