package relay

import (
	"context"
	"time"

	"go.uber.org/zap"

	"orderflow/internal/order/port"
)

// TaskRelay forwards deferred tasks committed with their orders to the
// message queue.
type TaskRelay struct {
	tasks     port.TaskStore
	queue     port.MessageQueue
	logger    *zap.Logger
	interval  time.Duration
	batchSize int
	now       func() time.Time
}

func NewTaskRelay(tasks port.TaskStore, queue port.MessageQueue, logger *zap.Logger, interval time.Duration, batchSize int) *TaskRelay {
	return &TaskRelay{
		tasks:     tasks,
		queue:     queue,
		logger:    logger,
		interval:  interval,
		batchSize: batchSize,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Run polls every interval until ctx is cancelled.
func (r *TaskRelay) Run(ctx context.Context) error {
	r.logger.Info("task relay started", zap.Duration("interval", r.interval), zap.Int("batchSize", r.batchSize))

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("task relay stopped")
			return nil
		case <-ticker.C:
			r.RelayPending(ctx)
		}
	}
}

// RelayPending publishes one batch of pending tasks and returns how many
// were marked done. A task that fails stays pending for the next run.
func (r *TaskRelay) RelayPending(ctx context.Context) int {
	tasks, err := r.tasks.FindPendingTasks(ctx, r.batchSize)
	if err != nil {
		r.logger.Error("failed to load pending tasks", zap.Error(err))
		return 0
	}

	relayed := 0
	for _, task := range tasks {
		if err := r.queue.EnqueueTask(ctx, task.Exchange, task.RoutingKey, task.Payload); err != nil {
			r.logger.Warn("failed to publish task", zap.Int64("taskId", task.ID), zap.String("exchange", task.Exchange), zap.Error(err))
			continue
		}

		// A crash here republishes the task; consumers see it at least once.
		if err := r.tasks.MarkTaskDone(ctx, task.ID, r.now()); err != nil {
			r.logger.Error("failed to mark task done", zap.Int64("taskId", task.ID), zap.Error(err))
			continue
		}
		relayed++
	}

	if relayed > 0 {
		r.logger.Info("tasks relayed", zap.Int("count", relayed), zap.Int("pending", len(tasks)))
	}
	return relayed
}
