package handlers

import (
	"encoding/json"
	"errors"
	"fmt"

	"claudygod/internal/models"
	"claudygod/internal/repositories"
	"claudygod/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	service *services.OrderService
	log     *zap.Logger
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *services.OrderService, log *zap.Logger) *OrderHandler {
	return &OrderHandler{
		service: service,
		log:     log,
	}
}

// RegisterRoutes registers the order routes. Routes that read full orders or
// change a status are wrapped in adminOnly.
func (h *OrderHandler) RegisterRoutes(router fiber.Router, adminOnly fiber.Handler) {
	orderRoutes := router.Group("/orders")
	orderRoutes.Post("/", h.HandleCreateOrder)
	orderRoutes.Get("/:orderId/status", h.HandleGetOrderStatus)

	orderRoutes.Post("/process-email", adminOnly, h.HandleProcessEmail)
	orderRoutes.Get("/", adminOnly, h.HandleListOrders)
	orderRoutes.Get("/:orderId", adminOnly, h.HandleGetOrder)
	orderRoutes.Patch("/:orderId/confirm", adminOnly, h.HandleConfirmOrder)
	orderRoutes.Patch("/:orderId/cancel", adminOnly, h.HandleCancelOrder)
}

// HandleCreateOrder creates a new pending order from a checkout draft.
func (h *OrderHandler) HandleCreateOrder(c *fiber.Ctx) error {
	var draft models.OrderDraft
	if err := c.BodyParser(&draft); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	order, err := h.service.CreateOrder(c.UserContext(), draft)
	if err != nil {
		var vErr *services.ValidationError
		if errors.As(err, &vErr) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": "Validation failed",
				"errors":  vErr.Fields,
			})
		}
		h.log.Error("failed to create order", zap.Error(err))
		return respondError(c, err, "Could not create order")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"orderId": order.OrderID,
		"status":  order.Status,
		"total":   order.Total.StringFixed(2),
	})
}

// HandleGetOrderStatus returns the status of an order. It is public so the
// customer can poll it.
func (h *OrderHandler) HandleGetOrderStatus(c *fiber.Ctx) error {
	orderID := c.Params("orderId")
	status, err := h.service.GetStatus(c.UserContext(), orderID)
	if err != nil {
		return h.orderError(c, orderID, err, "Could not retrieve order status")
	}
	return c.JSON(fiber.Map{
		"orderId": orderID,
		"status":  status,
	})
}

// HandleGetOrder returns a full order.
func (h *OrderHandler) HandleGetOrder(c *fiber.Ctx) error {
	orderID := c.Params("orderId")
	order, err := h.service.GetOrder(c.UserContext(), orderID)
	if err != nil {
		return h.orderError(c, orderID, err, "Could not retrieve order")
	}
	return c.JSON(order)
}

// HandleListOrders lists orders, optionally filtered by status and payment method.
func (h *OrderHandler) HandleListOrders(c *fiber.Ctx) error {
	filter := repositories.OrderFilter{
		Status: models.OrderStatus(c.Query("status")),
		Method: models.PaymentMethod(c.Query("method")),
		Limit:  c.QueryInt("limit", 0),
	}

	switch filter.Status {
	case "", models.StatusPending, models.StatusConfirmed, models.StatusCancelled:
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": fmt.Sprintf("Unknown status %q", filter.Status),
		})
	}
	switch filter.Method {
	case "", models.PaymentZelle, models.PaymentPayPal:
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": fmt.Sprintf("Unknown payment method %q", filter.Method),
		})
	}

	orders, err := h.service.ListOrders(c.UserContext(), filter)
	if err != nil {
		h.log.Error("failed to list orders", zap.Error(err))
		return respondError(c, err, "Could not retrieve orders")
	}
	return c.JSON(orders)
}

// HandleConfirmOrder confirms a pending order.
func (h *OrderHandler) HandleConfirmOrder(c *fiber.Ctx) error {
	orderID := c.Params("orderId")
	order, err := h.service.ConfirmOrder(c.UserContext(), orderID)
	if err != nil {
		return h.orderError(c, orderID, err, "Could not confirm order")
	}
	return c.JSON(order)
}

// HandleCancelOrder cancels a pending order.
func (h *OrderHandler) HandleCancelOrder(c *fiber.Ctx) error {
	orderID := c.Params("orderId")
	order, err := h.service.CancelOrder(c.UserContext(), orderID)
	if err != nil {
		return h.orderError(c, orderID, err, "Could not cancel order")
	}
	return c.JSON(order)
}

type processEmailRequest struct {
	Text string `json:"text"`
}

// HandleProcessEmail applies the command found in an inbound admin reply.
// The body is the plain email text, or JSON {"text": "..."}.
func (h *OrderHandler) HandleProcessEmail(c *fiber.Ctx) error {
	text := string(c.Body())
	if c.Is("json") {
		var req processEmailRequest
		if err := json.Unmarshal(c.Body(), &req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": "Invalid request body",
				"error":   err.Error(),
			})
		}
		text = req.Text
	}

	result, err := h.service.ProcessEmail(c.UserContext(), text)
	if err != nil {
		h.log.Error("failed to process email reply", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not process email",
			"error":   err.Error(),
		})
	}

	resp := fiber.Map{
		"outcome": result.Outcome.String(),
		"applied": result.Applied,
	}
	if result.Reason != "" {
		resp["reason"] = result.Reason
	}
	if result.Order != nil {
		resp["orderId"] = result.Order.OrderID
		resp["status"] = result.Order.Status
	}
	return c.JSON(resp)
}

func (h *OrderHandler) orderError(c *fiber.Ctx, orderID string, err error, message string) error {
	status := statusFor(err)
	if status == fiber.StatusInternalServerError {
		h.log.Error(message, zap.String("order_id", orderID), zap.Error(err))
	}
	if status == fiber.StatusNotFound {
		message = fmt.Sprintf("Order %s not found", orderID)
	}
	return respondError(c, err, message)
}
