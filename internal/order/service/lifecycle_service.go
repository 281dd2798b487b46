package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"orderflow/internal/domain"
	apperrors "orderflow/internal/errors"
	"orderflow/internal/order/port"
)

// Recorder receives operation metrics.
type Recorder interface {
	ObserveOperation(operation, outcome string, elapsed time.Duration)
	IncCompensationFailure(step string)
	IncPublishFailure(queue string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveOperation(string, string, time.Duration) {}
func (nopRecorder) IncCompensationFailure(string) {}
func (nopRecorder) IncPublishFailure(string) {}

type Options struct {
	CloseCheckTopic  string
	CloseDelay       time.Duration
	PublishAttempts  int
	RestoreAttempts  int
	RetryBackoff     time.Duration
	PointsExchange   string
	PointsRoutingKey string
}

type Dependencies struct {
	Store     port.Store
	Carts     port.CartReader
	Inventory port.InventoryAdjuster
	Payments  port.PaymentGateway
	Queue     port.MessageQueue
	Locker    port.OrderLocker
	IDs       port.IDGenerator
	Metrics   Recorder
}

// LifecycleService drives an order from creation to completion or closure.
type LifecycleService struct {
	store     port.Store
	carts     port.CartReader
	inventory port.InventoryAdjuster
	payments  port.PaymentGateway
	queue     port.MessageQueue
	locker    port.OrderLocker
	ids       port.IDGenerator
	metrics   Recorder
	logger    *zap.Logger
	opts      Options
	now       func() time.Time
}

func NewLifecycleService(deps Dependencies, logger *zap.Logger, opts Options) *LifecycleService {
	if deps.Metrics == nil {
		deps.Metrics = nopRecorder{}
	}
	if opts.PublishAttempts < 1 {
		opts.PublishAttempts = 1
	}
	if opts.RestoreAttempts < 1 {
		opts.RestoreAttempts = 1
	}

	return &LifecycleService{
		store:     deps.Store,
		carts:     deps.Carts,
		inventory: deps.Inventory,
		payments:  deps.Payments,
		queue:     deps.Queue,
		locker:    deps.Locker,
		ids:       deps.IDs,
		metrics:   deps.Metrics,
		logger:    logger,
		opts:      opts,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateOrder turns the user's cart into an unpaid order. The order, its
// lines, the stock decrement and the points task commit together; cart
// invalidation and the delayed close check follow as best-effort steps.
func (s *LifecycleService) CreateOrder(ctx context.Context, userID string, draft domain.OrderDraft) (orderID string, err error) {
	started := time.Now()
	defer func() { s.observe("create_order", started, err) }()

	if strings.TrimSpace(userID) == "" {
		return "", apperrors.NewValidationError("validation failed", apperrors.ValidationDetail{
			Field:   "userId",
			Message: "userId is required",
		})
	}

	cart, err := s.carts.ReadCart(ctx, userID)
	if err != nil {
		s.logger.Error("failed to read cart", zap.String("userId", userID), zap.Error(err))
		return "", err
	}
	if cart.IsEmpty() {
		return "", apperrors.NewEmptyCartError(userID)
	}

	now := s.now()
	order := domain.NewOrder(s.ids.NewID(), userID, draft, cart, now)

	lines := make([]domain.OrderLine, len(cart.Lines))
	for i, cl := range cart.Lines {
		lines[i] = domain.NewOrderLine(s.ids.NewID(), order.ID, cl)
	}

	task, err := domain.NewPointsTask(s.opts.PointsExchange, s.opts.PointsRoutingKey, order, now)
	if err != nil {
		return "", apperrors.NewInternalError("building points task", err)
	}

	decremented := false
	err = s.store.WithinTx(ctx, func(ctx context.Context, tx port.StoreTx) error {
		if err := tx.InsertOrder(ctx, order); err != nil {
			return err
		}
		for _, line := range lines {
			if err := tx.InsertLine(ctx, line); err != nil {
				return err
			}
		}

		if err := s.inventory.DecrementStock(ctx, userID); err != nil {
			if _, ok := apperrors.IsInventoryUnavailableError(err); ok {
				return err
			}
			return apperrors.NewInventoryUnavailableError("decrementing stock", err)
		}
		decremented = true

		return tx.InsertTask(ctx, task)
	})
	if err != nil {
		s.logger.Error("order creation rolled back",
			zap.String("orderId", order.ID),
			zap.String("userId", userID),
			zap.Bool("stockDecremented", decremented),
			zap.Error(err),
		)
		if decremented {
			s.restoreStock(ctx, order.ID, lines)
		}
		return "", err
	}

	s.logger.Info("order created",
		zap.String("orderId", order.ID),
		zap.String("userId", userID),
		zap.Int("totalNum", order.TotalNum),
		zap.Int64("totalMoney", order.TotalMoney),
	)

	afterCommit := context.WithoutCancel(ctx)

	if err := s.carts.InvalidateCart(afterCommit, userID); err != nil {
		s.logger.Warn("failed to invalidate cart", zap.String("orderId", order.ID), zap.String("userId", userID), zap.Error(err))
	}

	s.scheduleCloseCheck(afterCommit, domain.CloseCheck{OrderID: order.ID, Attempt: 1}, s.opts.CloseDelay)

	return order.ID, nil
}

// ScheduleCloseCheck publishes a delayed close check. It is used for
// redelivery, so failures are returned to the caller.
func (s *LifecycleService) ScheduleCloseCheck(ctx context.Context, check domain.CloseCheck, delay time.Duration) error {
	payload, err := json.Marshal(check)
	if err != nil {
		return fmt.Errorf("encoding close check: %w", err)
	}
	return s.queue.PublishDelayed(ctx, s.opts.CloseCheckTopic, payload, delay)
}

func (s *LifecycleService) scheduleCloseCheck(ctx context.Context, check domain.CloseCheck, delay time.Duration) {
	err := retry(ctx, s.opts.PublishAttempts, s.opts.RetryBackoff, func(ctx context.Context) error {
		return s.ScheduleCloseCheck(ctx, check, delay)
	})
	if err != nil {
		s.metrics.IncPublishFailure(s.opts.CloseCheckTopic)
		s.logger.Error("failed to schedule close check, order will not time out on its own",
			zap.String("orderId", check.OrderID),
			zap.String("topic", s.opts.CloseCheckTopic),
			zap.Int("attempts", s.opts.PublishAttempts),
			zap.Error(err),
		)
	}
}

// restoreStock returns every line's quantity to inventory. Failures are
// logged and counted; they never fail the caller.
func (s *LifecycleService) restoreStock(ctx context.Context, orderID string, lines []domain.OrderLine) {
	ctx = context.WithoutCancel(ctx)

	for _, line := range lines {
		err := retry(ctx, s.opts.RestoreAttempts, s.opts.RetryBackoff, func(ctx context.Context) error {
			return s.inventory.RestoreStock(ctx, line.SkuID, line.Quantity)
		})
		if err != nil {
			s.metrics.IncCompensationFailure("restore_stock")
			s.logger.Error("failed to restore stock",
				zap.String("orderId", orderID),
				zap.String("skuId", line.SkuID),
				zap.Int("quantity", line.Quantity),
				zap.Error(err),
			)
		}
	}
}

// applyTransition writes t and its status log entry in one transaction.
func (s *LifecycleService) applyTransition(ctx context.Context, t domain.Transition, actor, remarks string) error {
	entry := domain.NewStatusLogEntry(s.ids.NewID(), t, actor, remarks)

	return s.store.WithinRetryableTx(ctx, func(ctx context.Context, tx port.StoreTx) error {
		if err := tx.ApplyTransition(ctx, t); err != nil {
			return err
		}
		return tx.InsertStatusLog(ctx, entry)
	})
}

func (s *LifecycleService) observe(operation string, started time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	s.metrics.ObserveOperation(operation, outcome, time.Since(started))
}
