// Package notify delivers the emails of the payment confirmation workflow:
// the confirmation request sent to the admin and the confirmation sent to
// the customer.
package notify

import (
	"context"
	"errors"
	"fmt"

	"claudygod/internal/models"
)

// Notifier is implemented by every delivery path in this package.
type Notifier interface {
	NotifyAdminPendingZelle(ctx context.Context, order models.Order) error
	NotifyCustomerConfirmed(ctx context.Context, order models.Order) error
}

// Kind names a notification.
type Kind string

const (
	KindAdminPendingZelle Kind = "admin_pending_zelle"
	KindCustomerConfirmed Kind = "customer_confirmed"
)

// Job is one notification waiting to be delivered.
type Job struct {
	Kind  Kind         `json:"kind"`
	Order models.Order `json:"order"`
}

var (
	ErrQueueFull   = errors.New("notification queue is full")
	ErrClosed      = errors.New("notification dispatcher is closed")
	ErrUnknownKind = errors.New("unknown notification kind")
)

// Deliver hands job to n.
func Deliver(ctx context.Context, n Notifier, job Job) error {
	switch job.Kind {
	case KindAdminPendingZelle:
		return n.NotifyAdminPendingZelle(ctx, job.Order)
	case KindCustomerConfirmed:
		return n.NotifyCustomerConfirmed(ctx, job.Order)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, job.Kind)
	}
}
