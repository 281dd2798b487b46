package port

import (
	"context"
	"time"

	"orderflow/internal/domain"
)

type IDGenerator interface {
	NewID() string
}

type CartReader interface {
	// ReadCart fails with a CartUnavailableError when the cart cannot be read.
	ReadCart(ctx context.Context, userID string) (domain.Cart, error)
	InvalidateCart(ctx context.Context, userID string) error
}

type InventoryAdjuster interface {
	DecrementStock(ctx context.Context, userID string) error
	RestoreStock(ctx context.Context, skuID string, quantity int) error
}

type PaymentGateway interface {
	QueryPaymentState(ctx context.Context, orderID string) (domain.PaymentState, error)
	ClosePayment(ctx context.Context, orderID string) error
}

type MessageQueue interface {
	EnqueueTask(ctx context.Context, exchange, routingKey string, payload []byte) error
	PublishDelayed(ctx context.Context, queue string, payload []byte, delay time.Duration) error
}

// OrderLocker serialises work on a single order across processes.
type OrderLocker interface {
	Lock(ctx context.Context, orderID string) (unlock func(), err error)
}

// StoreTx is the write side of the order store, bound to one transaction.
type StoreTx interface {
	InsertOrder(ctx context.Context, order *domain.Order) error
	InsertLine(ctx context.Context, line domain.OrderLine) error
	InsertTask(ctx context.Context, task domain.DeferredTask) error
	// ApplyTransition fails with a ConflictError when the order no longer
	// holds t.From.
	ApplyTransition(ctx context.Context, t domain.Transition) error
	InsertStatusLog(ctx context.Context, entry domain.StatusLogEntry) error
	DeleteOrder(ctx context.Context, orderID string) error
}

type Store interface {
	// WithinTx runs fn in a single transaction attempt. fn may call remote
	// systems, so it is never retried.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx StoreTx) error) error
	// WithinRetryableTx runs fn in a transaction and retries it on deadlock.
	// fn must only touch the store.
	WithinRetryableTx(ctx context.Context, fn func(ctx context.Context, tx StoreTx) error) error

	FindOrder(ctx context.Context, orderID string) (*domain.Order, error)
	FindLines(ctx context.Context, orderID string) ([]domain.OrderLine, error)
	FindStatusLogs(ctx context.Context, orderID string) ([]domain.StatusLogEntry, error)
	FindShippedBefore(ctx context.Context, cutoff time.Time) ([]domain.Order, error)
	CountByStatus(ctx context.Context, start, end time.Time) (map[domain.OrderStatus]int, error)
	LifecycleConfig(ctx context.Context) (*domain.LifecycleConfig, error)
}

type TaskStore interface {
	FindPendingTasks(ctx context.Context, limit int) ([]domain.DeferredTask, error)
	MarkTaskDone(ctx context.Context, taskID int64, at time.Time) error
}
