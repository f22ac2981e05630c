package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the payment-confirmation state of an order.
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusConfirmed OrderStatus = "confirmed"
	StatusCancelled OrderStatus = "cancelled"
)

// IsTerminal reports whether no further transition is allowed from s.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusConfirmed || s == StatusCancelled
}

// CanTransition reports whether an order may move from one status to another.
// The only legal moves are pending -> confirmed and pending -> cancelled.
func CanTransition(from, to OrderStatus) bool {
	return from == StatusPending && to.IsTerminal()
}

// PaymentMethod is how the customer claims to have paid.
type PaymentMethod string

const (
	PaymentZelle  PaymentMethod = "zelle"
	PaymentPayPal PaymentMethod = "paypal"
)

// StatusSource records which trigger moved an order out of pending.
type StatusSource string

const (
	SourceAdmin StatusSource = "admin"
	SourceEmail StatusSource = "email"
	SourceAuto  StatusSource = "auto"
)

// OrderItem represents a single line item within an order.
type OrderItem struct {
	ID        uint            `json:"-" gorm:"primaryKey"`
	OrderRef  uint            `json:"-" gorm:"index;not null"`
	ProductID string          `json:"productId" gorm:"type:varchar(100);not null" validate:"required,max=100"`
	Name      string          `json:"name" gorm:"type:varchar(255);not null" validate:"required,max=255"`
	Quantity  int             `json:"quantity" gorm:"not null" validate:"gte=1"`
	UnitPrice decimal.Decimal `json:"unitPrice" gorm:"type:numeric(12,2);not null"` // Price at the time of order
}

// LineTotal is quantity times unit price.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// ShippingInfo is the customer's contact and delivery address.
type ShippingInfo struct {
	Name    string `json:"name" gorm:"type:varchar(255);not null" validate:"required,max=255"`
	Email   string `json:"email" gorm:"type:varchar(255);not null" validate:"required,email"`
	Address string `json:"address" gorm:"type:varchar(500);not null" validate:"required,max=500"`
	Phone   string `json:"phone,omitempty" gorm:"type:varchar(50)" validate:"omitempty,max=50"`
	City    string `json:"city,omitempty" gorm:"type:varchar(100)" validate:"omitempty,max=100"`
	State   string `json:"state,omitempty" gorm:"type:varchar(100)" validate:"omitempty,max=100"`
	Zip     string `json:"zip,omitempty" gorm:"type:varchar(20)" validate:"omitempty,max=20"`
	Country string `json:"country,omitempty" gorm:"type:varchar(100)" validate:"omitempty,max=100"`
}

// PaymentInfo carries the claimed payment. For Zelle the transaction id is
// the bank confirmation code, for PayPal the PayPal transaction id.
type PaymentInfo struct {
	Method        PaymentMethod `json:"method" gorm:"type:varchar(16);not null" validate:"required,oneof=zelle paypal"`
	TransactionID string        `json:"transactionId" gorm:"type:varchar(64);not null;index;uniqueIndex:idx_orders_pending_tx,where:status = 'pending'" validate:"required,max=64"`
}

// Order represents a customer order awaiting or past payment confirmation.
type Order struct {
	ID              uint            `json:"-" gorm:"primaryKey"`
	OrderID         string          `json:"orderId" gorm:"type:varchar(36);uniqueIndex;not null"`
	Items           []OrderItem     `json:"items" gorm:"foreignKey:OrderRef"`
	Shipping        ShippingInfo    `json:"shipping" gorm:"embedded;embeddedPrefix:shipping_"`
	Payment         PaymentInfo     `json:"payment" gorm:"embedded;embeddedPrefix:payment_"`
	Subtotal        decimal.Decimal `json:"subtotal" gorm:"type:numeric(12,2);not null"`
	Tax             decimal.Decimal `json:"tax" gorm:"type:numeric(12,2);not null"`
	ShippingCost    decimal.Decimal `json:"shippingCost" gorm:"type:numeric(12,2);not null"`
	Total           decimal.Decimal `json:"total" gorm:"type:numeric(12,2);not null"`
	Status          OrderStatus     `json:"status" gorm:"type:varchar(16);not null;index"`
	StatusSource    StatusSource    `json:"statusSource,omitempty" gorm:"type:varchar(16)"`
	StatusChangedAt *time.Time      `json:"statusChangedAt,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// OrderDraft is what the checkout form submits.
type OrderDraft struct {
	Items    []OrderItem  `json:"items" validate:"required,min=1,dive"`
	Shipping ShippingInfo `json:"shipping"`
	Payment  PaymentInfo  `json:"payment"`
}
