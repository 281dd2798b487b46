package interfaces

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"orderflow/internal/domain"
	mq "orderflow/internal/infrastructure/kafka"
	"orderflow/internal/order/usecase"
)

type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type CloseCheckHandler interface {
	Handle(ctx context.Context, check domain.CloseCheck) (usecase.Outcome, error)
}

// TimeoutConsumer consumes delayed close checks. Each message is held until
// its deliver-at time and committed only once it has been handled.
type TimeoutConsumer struct {
	reader     MessageReader
	handler    CloseCheckHandler
	logger     *zap.Logger
	now        func() time.Time
	fetchPause time.Duration
	retryPause time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	stopped bool
}

func NewTimeoutConsumer(reader MessageReader, handler CloseCheckHandler, logger *zap.Logger) *TimeoutConsumer {
	return &TimeoutConsumer{
		reader:     reader,
		handler:    handler,
		logger:     logger,
		now:        time.Now,
		fetchPause: time.Second,
		retryPause: 5 * time.Second,
	}
}

// Run blocks until ctx is cancelled or Stop is called. Run after Stop
// returns immediately.
func (c *TimeoutConsumer) Run(ctx context.Context) error {
	c.mu.Lock()
	if c.stopped || c.done != nil {
		c.mu.Unlock()
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.cancel, c.done = cancel, done
	c.mu.Unlock()

	defer close(done)
	defer cancel()

	c.consume(ctx)
	return nil
}

// Stop ends Run, waits for it to return, then closes the reader.
func (c *TimeoutConsumer) Stop() error {
	c.mu.Lock()
	c.stopped = true
	cancel, done := c.cancel, c.done
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	return c.reader.Close()
}

func (c *TimeoutConsumer) consume(ctx context.Context) {
	c.logger.Info("close-check consumer started")
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("close-check consumer shutting down")
				return
			}
			c.logger.Error("could not fetch message, retrying", zap.Error(err))
			if !sleep(ctx, c.fetchPause) {
				return
			}
			continue
		}

		// Uncommitted messages are redelivered after restart.
		if !c.waitForDelivery(ctx, msg) {
			return
		}
		if !c.handleUntilSettled(ctx, msg) {
			return
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("failed to commit message", zap.Int64("offset", msg.Offset), zap.Error(err))
		}
	}
}

// handleUntilSettled repeats process until it succeeds. The group reader
// does not redeliver an uncommitted message before a rebalance, so the
// retry happens here. It reports false if ctx ended first.
func (c *TimeoutConsumer) handleUntilSettled(ctx context.Context, msg kafka.Message) bool {
	msgCtx := mq.ExtractTraceContext(ctx, msg)
	for {
		err := c.process(msgCtx, msg)
		if err == nil {
			return true
		}
		c.logger.Warn("close check not settled, offset held",
			zap.Int64("offset", msg.Offset), zap.Duration("retryPause", c.retryPause), zap.Error(err))
		if !sleep(ctx, c.retryPause) {
			return false
		}
	}
}

func (c *TimeoutConsumer) waitForDelivery(ctx context.Context, msg kafka.Message) bool {
	deliverAt, ok := mq.DeliverAt(msg)
	if !ok {
		return ctx.Err() == nil
	}
	return sleep(ctx, deliverAt.Sub(c.now()))
}

// process returns an error only when the check could be neither settled nor
// handed to a later delivery. Malformed messages are dropped.
func (c *TimeoutConsumer) process(ctx context.Context, msg kafka.Message) error {
	var check domain.CloseCheck
	if err := json.Unmarshal(msg.Value, &check); err != nil {
		c.logger.Error("malformed close check dropped", zap.Int64("offset", msg.Offset), zap.Error(err))
		return nil
	}

	outcome, err := c.handler.Handle(ctx, check)
	if err != nil {
		return fmt.Errorf("handling close check for order %s: %w", check.OrderID, err)
	}

	c.logger.Debug("close check handled", zap.String("orderId", check.OrderID), zap.String("outcome", string(outcome)))
	return nil
}

// sleep waits for d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
