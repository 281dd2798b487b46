package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"orderflow/internal/domain"
	apperrors "orderflow/internal/errors"
)

type Outcome string

const (
	OutcomeCompleted   Outcome = "COMPLETED"
	OutcomeRescheduled Outcome = "RESCHEDULED"
	OutcomeDropped     Outcome = "DROPPED"
)

type OrderCloser interface {
	CloseOrder(ctx context.Context, orderID string) error
	ScheduleCloseCheck(ctx context.Context, check domain.CloseCheck, delay time.Duration) error
}

// CloseCheckUseCase runs one delivery of a close check and decides whether
// it must be tried again later.
type CloseCheckUseCase struct {
	closer      OrderCloser
	logger      *zap.Logger
	maxAttempts int
	retryDelay  time.Duration
}

func NewCloseCheckUseCase(closer OrderCloser, logger *zap.Logger, maxAttempts int, retryDelay time.Duration) *CloseCheckUseCase {
	return &CloseCheckUseCase{
		closer:      closer,
		logger:      logger,
		maxAttempts: maxAttempts,
		retryDelay:  retryDelay,
	}
}

func (uc *CloseCheckUseCase) Handle(ctx context.Context, check domain.CloseCheck) (Outcome, error) {
	logger := uc.logger.With(zap.String("orderId", check.OrderID), zap.Int("attempt", check.Attempt))

	if check.OrderID == "" {
		logger.Warn("close check without order id dropped")
		return OutcomeDropped, nil
	}

	err := uc.closer.CloseOrder(ctx, check.OrderID)
	if err == nil {
		logger.Debug("close check completed")
		return OutcomeCompleted, nil
	}

	if !isRetryable(err) {
		logger.Warn("close check dropped", zap.Error(err))
		return OutcomeDropped, nil
	}

	if check.Attempt >= uc.maxAttempts {
		logger.Error("close check attempts exhausted, order needs manual reconciliation",
			zap.Int("maxAttempts", uc.maxAttempts), zap.Error(err))
		return OutcomeDropped, nil
	}

	next := domain.CloseCheck{OrderID: check.OrderID, Attempt: check.Attempt + 1}
	if perr := uc.closer.ScheduleCloseCheck(ctx, next, uc.retryDelay); perr != nil {
		logger.Error("failed to reschedule close check", zap.NamedError("cause", err), zap.Error(perr))
		return OutcomeDropped, fmt.Errorf("rescheduling close check for order %s: %w", check.OrderID, perr)
	}

	logger.Warn("close check rescheduled", zap.Duration("retryDelay", uc.retryDelay), zap.Error(err))
	return OutcomeRescheduled, nil
}

// isRetryable reports whether a later delivery may succeed. A missing order
// or bad input never will.
func isRetryable(err error) bool {
	if _, ok := apperrors.IsNotFoundError(err); ok {
		return false
	}
	if _, ok := apperrors.IsValidationError(err); ok {
		return false
	}
	return true
}
