package notify

import (
	"context"
	"sync"
	"time"

	"claudygod/internal/models"

	"go.uber.org/zap"
)

const deliveryTimeout = 30 * time.Second

// DispatcherConfig sizes the worker pool and the retry policy.
type DispatcherConfig struct {
	Workers      int
	QueueSize    int
	MaxAttempts  int
	RetryBackoff time.Duration
}

// Dispatcher queues notifications and delivers them on a fixed pool of
// workers, so callers never wait for the mail server.
type Dispatcher struct {
	next         Notifier
	jobs         chan Job
	maxAttempts  int
	retryBackoff time.Duration
	log          *zap.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher starts the workers. Call Close to drain and stop them.
func NewDispatcher(next Notifier, cfg DispatcherConfig, log *zap.Logger) *Dispatcher {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 100
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}

	d := &Dispatcher{
		next:         next,
		jobs:         make(chan Job, cfg.QueueSize),
		maxAttempts:  cfg.MaxAttempts,
		retryBackoff: cfg.RetryBackoff,
		log:          log,
	}
	for i := 0; i < cfg.Workers; i++ {
		d.wg.Add(1)
		go d.work()
	}
	return d
}

// NotifyAdminPendingZelle queues a confirmation request for the admin.
func (d *Dispatcher) NotifyAdminPendingZelle(_ context.Context, order models.Order) error {
	return d.enqueue(Job{Kind: KindAdminPendingZelle, Order: order})
}

// NotifyCustomerConfirmed queues a confirmation email for the customer.
func (d *Dispatcher) NotifyCustomerConfirmed(_ context.Context, order models.Order) error {
	return d.enqueue(Job{Kind: KindCustomerConfirmed, Order: order})
}

func (d *Dispatcher) enqueue(job Job) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}

	select {
	case d.jobs <- job:
		return nil
	default:
		d.log.Error("notification dropped, queue full",
			zap.String("kind", string(job.Kind)),
			zap.String("order_id", job.Order.OrderID))
		return ErrQueueFull
	}
}

// Close stops accepting jobs and waits until the queued ones are delivered.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.jobs)
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for job := range d.jobs {
		d.deliver(job)
	}
}

func (d *Dispatcher) deliver(job Job) {
	backoff := d.retryBackoff
	for attempt := 1; ; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
		err := Deliver(ctx, d.next, job)
		cancel()
		if err == nil {
			return
		}

		fields := []zap.Field{
			zap.String("kind", string(job.Kind)),
			zap.String("order_id", job.Order.OrderID),
			zap.Int("attempt", attempt),
			zap.Error(err),
		}
		if attempt >= d.maxAttempts {
			d.log.Error("notification failed, giving up", fields...)
			return
		}
		d.log.Warn("notification failed, retrying", append(fields, zap.Duration("backoff", backoff))...)
		time.Sleep(backoff)
		backoff *= 2
	}
}
