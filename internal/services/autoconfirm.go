package services

import (
	"context"
	"errors"
	"time"

	"claudygod/internal/models"
	"claudygod/internal/repositories"

	"go.uber.org/zap"
)

// StartAutoConfirm confirms Zelle orders that stayed pending longer than after,
// checking every interval until ctx is cancelled. It confirms payments nobody
// has verified and is meant for development only.
func (s *OrderService) StartAutoConfirm(ctx context.Context, after, interval time.Duration) error {
	s.log.Warn("auto-confirmation enabled: pending zelle orders will be confirmed without verification",
		zap.Duration("after", after), zap.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			if _, err := s.SweepAutoConfirm(ctx, now.Add(-after)); err != nil {
				s.log.Error("auto-confirm sweep failed", zap.Error(err))
			}
		}
	}
}

// SweepAutoConfirm confirms pending Zelle orders created before cutoff and
// returns how many it confirmed. Orders moved by someone else meanwhile are skipped.
func (s *OrderService) SweepAutoConfirm(ctx context.Context, cutoff time.Time) (int, error) {
	due, err := s.orderRepo.ListPendingCreatedBefore(ctx, models.PaymentZelle, cutoff)
	if err != nil {
		return 0, err
	}

	confirmed := 0
	for _, order := range due {
		_, err := s.engine.Transition(ctx, order.OrderID, models.StatusConfirmed, models.SourceAuto)
		switch {
		case err == nil:
			confirmed++
		case errors.Is(err, repositories.ErrInvalidTransition):
		default:
			return confirmed, err
		}
	}
	if confirmed > 0 {
		s.log.Info("auto-confirmed orders", zap.Int("count", confirmed))
	}
	return confirmed, nil
}
