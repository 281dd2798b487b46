package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"orderflow/internal/domain"
	apperrors "orderflow/internal/errors"
)

// CloseOrder reconciles an order whose payment window has elapsed against
// the payment gateway. Paid orders are recorded as paid; unpaid orders are
// closed and their stock returned.
func (s *LifecycleService) CloseOrder(ctx context.Context, orderID string) (err error) {
	started := time.Now()
	defer func() { s.observe("close_order", started, err) }()

	unlock, err := s.locker.Lock(ctx, orderID)
	if err != nil {
		return err
	}
	defer unlock()

	order, err := s.store.FindOrder(ctx, orderID)
	if err != nil {
		return err
	}

	if order.IsPaid() || order.IsClosed() {
		s.logger.Debug("close check skipped",
			zap.String("orderId", orderID),
			zap.String("orderStatus", order.OrderStatus.String()),
			zap.String("payStatus", order.PayStatus.String()),
		)
		return nil
	}

	state, err := s.payments.QueryPaymentState(ctx, orderID)
	if err != nil {
		if _, ok := apperrors.IsPaymentGatewayError(err); ok {
			return err
		}
		return apperrors.NewPaymentGatewayError("querying payment state", err)
	}

	switch state.Status {
	case domain.PaymentPaid:
		s.logger.Info("payment found during close check", zap.String("orderId", orderID), zap.String("transactionRef", state.TransactionRef))
		return s.applyPayment(ctx, order, state.TransactionRef)
	case domain.PaymentUnpaid:
		return s.closeUnpaid(ctx, order)
	default:
		return apperrors.NewPaymentGatewayError(fmt.Sprintf("payment state unknown for order %s", orderID), nil)
	}
}

func (s *LifecycleService) closeUnpaid(ctx context.Context, order *domain.Order) error {
	tr, err := order.Close(s.now())
	if err != nil {
		s.logger.Warn("order cannot be closed", zap.String("orderId", order.ID), zap.Error(err))
		return nil
	}

	// Lines are read first so a committed close always has lines to restore.
	lines, err := s.store.FindLines(ctx, order.ID)
	if err != nil {
		return err
	}

	err = s.applyTransition(ctx, tr, domain.ActorSystem, "closed after payment timeout")
	if _, ok := apperrors.IsConflictError(err); ok {
		s.logger.Info("order moved before close, nothing to do", zap.String("orderId", order.ID))
		return nil
	}
	if err != nil {
		return err
	}

	s.logger.Info("order closed", zap.String("orderId", order.ID), zap.Int("lines", len(lines)))

	s.restoreStock(ctx, order.ID, lines)

	if err := s.payments.ClosePayment(context.WithoutCancel(ctx), order.ID); err != nil {
		s.metrics.IncCompensationFailure("close_payment")
		s.logger.Error("failed to close payment", zap.String("orderId", order.ID), zap.Error(err))
	}

	return nil
}

// UpdatePayStatus records a confirmed payment. Missing, already paid and
// concurrently moved orders are ignored.
func (s *LifecycleService) UpdatePayStatus(ctx context.Context, orderID, transactionRef string) (err error) {
	started := time.Now()
	defer func() { s.observe("update_pay_status", started, err) }()

	order, err := s.store.FindOrder(ctx, orderID)
	if err != nil {
		if _, ok := apperrors.IsNotFoundError(err); ok {
			s.logger.Warn("payment for unknown order", zap.String("orderId", orderID), zap.String("transactionRef", transactionRef))
			return nil
		}
		return err
	}

	return s.applyPayment(ctx, order, transactionRef)
}

func (s *LifecycleService) applyPayment(ctx context.Context, order *domain.Order, transactionRef string) error {
	if order.IsPaid() {
		return nil
	}

	if order.IsClosed() {
		s.logger.Error("payment received for closed order, refund required",
			zap.String("orderId", order.ID),
			zap.String("transactionRef", transactionRef),
		)
		return nil
	}

	tr, err := order.Pay(transactionRef, s.now())
	if err != nil {
		s.logger.Warn("payment not applicable", zap.String("orderId", order.ID), zap.Error(err))
		return nil
	}

	err = s.applyTransition(ctx, tr, domain.ActorSystem, "transaction ref: "+transactionRef)
	if _, ok := apperrors.IsConflictError(err); ok {
		return nil
	}
	if err != nil {
		return err
	}

	s.logger.Info("order paid", zap.String("orderId", order.ID), zap.String("transactionRef", transactionRef))
	return nil
}
