package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"claudygod/internal/models"

	"go.uber.org/zap"
)

// Publisher puts a message body on the notification queue.
type Publisher interface {
	Publish(ctx context.Context, body []byte) error
}

// QueueNotifier publishes notifications as JSON jobs to a message queue
// instead of delivering them itself.
type QueueNotifier struct {
	publisher Publisher
}

// NewQueueNotifier creates a new QueueNotifier.
func NewQueueNotifier(publisher Publisher) *QueueNotifier {
	return &QueueNotifier{publisher: publisher}
}

// NotifyAdminPendingZelle publishes a confirmation request job.
func (q *QueueNotifier) NotifyAdminPendingZelle(ctx context.Context, order models.Order) error {
	return q.publish(ctx, Job{Kind: KindAdminPendingZelle, Order: order})
}

// NotifyCustomerConfirmed publishes a customer confirmation job.
func (q *QueueNotifier) NotifyCustomerConfirmed(ctx context.Context, order models.Order) error {
	return q.publish(ctx, Job{Kind: KindCustomerConfirmed, Order: order})
}

func (q *QueueNotifier) publish(ctx context.Context, job Job) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal %s job: %w", job.Kind, err)
	}
	if err := q.publisher.Publish(ctx, body); err != nil {
		return fmt.Errorf("failed to publish %s job for order %s: %w", job.Kind, job.Order.OrderID, err)
	}
	return nil
}

// QueueHandler returns a consumer callback that decodes jobs and delivers
// them through next.
func QueueHandler(next Notifier, log *zap.Logger) func(ctx context.Context, body []byte) error {
	return func(ctx context.Context, body []byte) error {
		var job Job
		if err := json.Unmarshal(body, &job); err != nil {
			return fmt.Errorf("failed to decode notification job: %w", err)
		}
		if err := Deliver(ctx, next, job); err != nil {
			return err
		}
		log.Debug("notification delivered",
			zap.String("kind", string(job.Kind)),
			zap.String("order_id", job.Order.OrderID))
		return nil
	}
}
