package repository

import (
	"context"
	"database/sql"
	"errors"
	"math/rand"
	"time"

	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"orderflow/internal/domain"
	apperrors "orderflow/internal/errors"
	"orderflow/internal/order/port"
)

// Store is the MySQL order store. Reads go straight to the pool; writes run
// through a transaction-bound view of the same repositories.
type Store struct {
	db               *sql.DB
	orders           *MySQLOrderRepository
	lines            *MySQLOrderLineRepository
	logs             *MySQLStatusLogRepository
	tasks            *MySQLTaskRepository
	config           *MySQLLifecycleConfigRepository
	logger           *zap.Logger
	txTimeout        time.Duration
	maxRetryAttempts int
}

func NewStore(db *sql.DB, logger *zap.Logger, txTimeout time.Duration, maxRetryAttempts int) *Store {
	return &Store{
		db:               db,
		orders:           NewMySQLOrderRepository(db),
		lines:            NewMySQLOrderLineRepository(db),
		logs:             NewMySQLStatusLogRepository(db),
		tasks:            NewMySQLTaskRepository(db),
		config:           NewMySQLLifecycleConfigRepository(db),
		logger:           logger,
		txTimeout:        txTimeout,
		maxRetryAttempts: maxRetryAttempts,
	}
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx port.StoreTx) error) error {
	txCtx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(txCtx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
	if err != nil {
		return err
	}
	// MySQL ignores the rollback once the transaction has committed.
	defer tx.Rollback()

	if err := fn(txCtx, &mysqlTx{tx: tx, store: s}); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *Store) WithinRetryableTx(ctx context.Context, fn func(ctx context.Context, tx port.StoreTx) error) error {
	// Backoff intervals: attempt 1 (0ms), attempt 2 (100ms), attempt 3 (200ms), etc.
	backoffs := []time.Duration{0, 100 * time.Millisecond, 200 * time.Millisecond}

	for attempt := 1; attempt <= s.maxRetryAttempts; attempt++ {
		err := s.WithinTx(ctx, fn)
		if err == nil {
			return nil
		}

		if !isDeadlockError(err) {
			return err
		}

		if attempt == s.maxRetryAttempts {
			break
		}

		base := backoffs[min(attempt, len(backoffs)-1)]
		// Jitter: ±20% of backoff base
		wait := time.Duration(float64(base) * (0.8 + rand.Float64()*0.4))
		s.logger.Warn("deadlock detected, retrying", zap.Int("attempt", attempt), zap.Int("maxAttempts", s.maxRetryAttempts))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}

	return apperrors.NewDeadlockError("max retries exceeded")
}

func (s *Store) FindOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	return s.orders.FindByID(ctx, orderID)
}

func (s *Store) FindLines(ctx context.Context, orderID string) ([]domain.OrderLine, error) {
	return s.lines.FindByOrderID(ctx, orderID)
}

func (s *Store) FindStatusLogs(ctx context.Context, orderID string) ([]domain.StatusLogEntry, error) {
	return s.logs.FindByOrderID(ctx, orderID)
}

func (s *Store) FindShippedBefore(ctx context.Context, cutoff time.Time) ([]domain.Order, error) {
	return s.orders.FindShippedBefore(ctx, cutoff)
}

func (s *Store) CountByStatus(ctx context.Context, start, end time.Time) (map[domain.OrderStatus]int, error) {
	return s.orders.CountByStatus(ctx, start, end)
}

func (s *Store) LifecycleConfig(ctx context.Context) (*domain.LifecycleConfig, error) {
	return s.config.Get(ctx)
}

func (s *Store) FindPendingTasks(ctx context.Context, limit int) ([]domain.DeferredTask, error) {
	return s.tasks.FindPending(ctx, limit)
}

func (s *Store) MarkTaskDone(ctx context.Context, taskID int64, at time.Time) error {
	return s.tasks.MarkDone(ctx, taskID, at)
}

type mysqlTx struct {
	tx    *sql.Tx
	store *Store
}

func (t *mysqlTx) InsertOrder(ctx context.Context, order *domain.Order) error {
	return t.store.orders.Insert(ctx, t.tx, order)
}

func (t *mysqlTx) InsertLine(ctx context.Context, line domain.OrderLine) error {
	return t.store.lines.Insert(ctx, t.tx, line)
}

func (t *mysqlTx) InsertTask(ctx context.Context, task domain.DeferredTask) error {
	_, err := t.store.tasks.Insert(ctx, t.tx, task)
	return err
}

func (t *mysqlTx) ApplyTransition(ctx context.Context, tr domain.Transition) error {
	return t.store.orders.ApplyTransition(ctx, t.tx, tr)
}

func (t *mysqlTx) InsertStatusLog(ctx context.Context, entry domain.StatusLogEntry) error {
	return t.store.logs.Insert(ctx, t.tx, entry)
}

// DeleteOrder removes the order and its lines. Status logs are kept.
func (t *mysqlTx) DeleteOrder(ctx context.Context, orderID string) error {
	if err := t.store.lines.DeleteByOrderID(ctx, t.tx, orderID); err != nil {
		return err
	}
	return t.store.orders.Delete(ctx, t.tx, orderID)
}

func isDeadlockError(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1213 || mysqlErr.Number == 1205
	}
	return false
}
