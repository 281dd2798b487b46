package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"orderflow/internal/domain"
	"orderflow/internal/dto"
	apperrors "orderflow/internal/errors"
	"orderflow/internal/order/port"
)

func (s *LifecycleService) GetOrder(ctx context.Context, orderID string) (*dto.OrderDetails, error) {
	order, err := s.store.FindOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	lines, err := s.store.FindLines(ctx, orderID)
	if err != nil {
		return nil, err
	}

	logs, err := s.store.FindStatusLogs(ctx, orderID)
	if err != nil {
		return nil, err
	}

	return &dto.OrderDetails{Order: order, Lines: lines, Logs: logs}, nil
}

// Statistics counts orders created in [start, end] per order status. Zero
// bounds select the default window.
func (s *LifecycleService) Statistics(ctx context.Context, start, end time.Time) (*domain.OrderStatistics, error) {
	start, end = domain.StatisticsWindow(start, end, s.now())
	if start.After(end) {
		return nil, apperrors.NewValidationError("validation failed", apperrors.ValidationDetail{
			Field:   "start",
			Message: "start must not be after end",
		})
	}

	counts, err := s.store.CountByStatus(ctx, start, end)
	if err != nil {
		return nil, err
	}

	stats := &domain.OrderStatistics{Start: start, End: end}
	for status, count := range counts {
		stats.Add(status, count)
	}

	return stats, nil
}

// DeleteOrder removes an order and its lines. The status log is kept.
func (s *LifecycleService) DeleteOrder(ctx context.Context, orderID string) (err error) {
	started := time.Now()
	defer func() { s.observe("delete_order", started, err) }()

	err = s.store.WithinRetryableTx(ctx, func(ctx context.Context, tx port.StoreTx) error {
		return tx.DeleteOrder(ctx, orderID)
	})
	if err != nil {
		return err
	}

	s.logger.Info("order deleted", zap.String("orderId", orderID))
	return nil
}
