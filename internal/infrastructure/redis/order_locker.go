package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	apperrors "orderflow/internal/errors"
)

const lockKeyPrefix = "lock:order:"

// Only the holder, identified by its token, may release the lock.
var unlockScript = goredis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
    return redis.call("del", KEYS[1])
else
    return 0
end
`)

var errLockNotHeld = errors.New("lock not held by this instance")

// OrderLocker is a SET NX PX lock per order id.
type OrderLocker struct {
	client     goredis.Cmdable
	ttl        time.Duration
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger
}

func NewOrderLocker(client goredis.Cmdable, ttl time.Duration, logger *zap.Logger) *OrderLocker {
	return &OrderLocker{
		client:     client,
		ttl:        ttl,
		maxRetries: 3,
		retryDelay: 50 * time.Millisecond,
		logger:     logger,
	}
}

// Lock fails with a ConflictError when another holder keeps the lock past
// the retry budget.
func (l *OrderLocker) Lock(ctx context.Context, orderID string) (func(), error) {
	key := lockKeyPrefix + orderID
	token := uuid.NewString()

	for attempt := 0; attempt < l.maxRetries; attempt++ {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquiring order lock: %w", err)
		}
		if ok {
			return func() { l.unlock(ctx, key, token) }, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retryDelay):
		}
	}

	return nil, apperrors.NewConflictError(fmt.Sprintf("order %s is being processed by another worker", orderID))
}

func (l *OrderLocker) unlock(ctx context.Context, key, token string) {
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()

	err := l.release(releaseCtx, key, token)
	if err != nil {
		l.logger.Warn("failed to release order lock", zap.String("key", key), zap.Error(err))
	}
}

func (l *OrderLocker) release(ctx context.Context, key, token string) error {
	result, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil {
		return err
	}

	deleted, ok := result.(int64)
	if !ok || deleted == 0 {
		return errLockNotHeld
	}

	return nil
}
