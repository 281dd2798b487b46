package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"orderflow/internal/domain"
	"orderflow/internal/dto"
	apperrors "orderflow/internal/errors"
)

// Confirm marks a shipped order as received by actor.
func (s *LifecycleService) Confirm(ctx context.Context, orderID, actor string) (err error) {
	started := time.Now()
	defer func() { s.observe("confirm", started, err) }()

	if strings.TrimSpace(actor) == "" {
		actor = domain.ActorSystem
	}
	return s.confirm(ctx, orderID, actor)
}

func (s *LifecycleService) confirm(ctx context.Context, orderID, actor string) error {
	order, err := s.store.FindOrder(ctx, orderID)
	if err != nil {
		return err
	}

	tr, err := order.Confirm(s.now())
	if err != nil {
		return apperrors.NewInvalidDeliveryStateError(orderID, int(order.ConsignStatus))
	}

	err = s.applyTransition(ctx, tr, actor, "order received")
	if _, ok := apperrors.IsConflictError(err); ok {
		consign := order.ConsignStatus
		if current, ferr := s.store.FindOrder(ctx, orderID); ferr == nil {
			consign = current.ConsignStatus
		}
		return apperrors.NewInvalidDeliveryStateError(orderID, int(consign))
	}
	if err != nil {
		return err
	}

	s.logger.Info("order confirmed", zap.String("orderId", orderID), zap.String("operator", actor))
	return nil
}

// AutoConfirm confirms every order shipped before the configured receive
// window. Each order is confirmed independently.
func (s *LifecycleService) AutoConfirm(ctx context.Context) (report *dto.SweepReport, err error) {
	started := time.Now()
	defer func() { s.observe("auto_confirm", started, err) }()

	cfg, err := s.store.LifecycleConfig(ctx)
	if err != nil {
		return nil, err
	}

	cutoff := cfg.ConfirmCutoff(s.now())
	orders, err := s.store.FindShippedBefore(ctx, cutoff)
	if err != nil {
		return nil, err
	}

	report = &dto.SweepReport{
		Cutoff:    cutoff,
		Confirmed: []string{},
		Failures:  []dto.OrderFailure{},
	}

	for _, order := range orders {
		if err := s.confirm(ctx, order.ID, domain.ActorSystem); err != nil {
			s.logger.Warn("auto-confirm failed", zap.String("orderId", order.ID), zap.Error(err))
			report.Failures = append(report.Failures, dto.OrderFailure{OrderID: order.ID, Reason: err.Error()})
			continue
		}
		report.Confirmed = append(report.Confirmed, order.ID)
	}

	s.logger.Info("auto-confirm sweep finished",
		zap.Time("cutoff", cutoff),
		zap.Int("confirmed", len(report.Confirmed)),
		zap.Int("failed", len(report.Failures)),
	)

	return report, nil
}

// BatchShip ships each order independently and reports every outcome.
func (s *LifecycleService) BatchShip(ctx context.Context, items []dto.ShipmentItem) (report *dto.ShipmentReport, err error) {
	started := time.Now()
	defer func() { s.observe("batch_ship", started, err) }()

	if len(items) == 0 {
		return nil, apperrors.NewValidationError("validation failed", apperrors.ValidationDetail{
			Field:   "orders",
			Message: "orders must not be empty",
		})
	}

	report = &dto.ShipmentReport{
		Shipped:  []string{},
		Failures: []string{},
	}

	for _, item := range items {
		if msg := s.shipOne(ctx, item); msg != "" {
			s.logger.Warn("shipment failed", zap.String("orderId", item.OrderID), zap.String("reason", msg))
			report.Failures = append(report.Failures, msg)
			continue
		}
		report.Shipped = append(report.Shipped, item.OrderID)
	}

	report.Success = len(report.Failures) == 0
	if report.Success {
		report.Message = fmt.Sprintf("%d orders shipped", len(report.Shipped))
	} else {
		report.Message = fmt.Sprintf("%d of %d orders failed to ship", len(report.Failures), len(items))
	}

	return report, nil
}

// shipOne returns a failure message, or "" when the order shipped.
func (s *LifecycleService) shipOne(ctx context.Context, item dto.ShipmentItem) string {
	if strings.TrimSpace(item.OrderID) == "" {
		return "order id is required"
	}
	if strings.TrimSpace(item.ShippingCode) == "" || strings.TrimSpace(item.ShippingName) == "" {
		return fmt.Sprintf("order %s: shipping code and shipping name are required", item.OrderID)
	}

	order, err := s.store.FindOrder(ctx, item.OrderID)
	if err != nil {
		if _, ok := apperrors.IsNotFoundError(err); ok {
			return fmt.Sprintf("order %s: not found", item.OrderID)
		}
		return fmt.Sprintf("order %s: %v", item.OrderID, err)
	}

	tr, err := order.Ship(item.ShippingCode, item.ShippingName, s.now())
	if err != nil {
		return fmt.Sprintf("order %s: not ready to ship (order %s, consign %s)",
			item.OrderID, order.OrderStatus, order.ConsignStatus)
	}

	remarks := fmt.Sprintf("shipped with %s, tracking %s", item.ShippingName, item.ShippingCode)
	err = s.applyTransition(ctx, tr, domain.ActorAdmin, remarks)
	if _, ok := apperrors.IsConflictError(err); ok {
		return fmt.Sprintf("order %s: status changed concurrently", item.OrderID)
	}
	if err != nil {
		return fmt.Sprintf("order %s: %v", item.OrderID, err)
	}

	s.logger.Info("order shipped",
		zap.String("orderId", item.OrderID),
		zap.String("shippingName", item.ShippingName),
		zap.String("shippingCode", item.ShippingCode),
	)
	return ""
}
