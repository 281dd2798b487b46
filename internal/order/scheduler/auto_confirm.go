package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"orderflow/internal/dto"
)

type AutoConfirmer interface {
	AutoConfirm(ctx context.Context) (*dto.SweepReport, error)
}

// AutoConfirmScheduler runs the auto-confirm sweep on a fixed interval.
type AutoConfirmScheduler struct {
	confirmer AutoConfirmer
	logger    *zap.Logger
	interval  time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewAutoConfirmScheduler(confirmer AutoConfirmer, logger *zap.Logger, interval time.Duration) *AutoConfirmScheduler {
	return &AutoConfirmScheduler{
		confirmer: confirmer,
		logger:    logger,
		interval:  interval,
	}
}

// Start launches the sweep loop. Calling Start on a running scheduler is a
// no-op.
func (s *AutoConfirmScheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop(ctx)
	}()
}

// Stop ends the loop and waits for a running sweep to finish.
func (s *AutoConfirmScheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

func (s *AutoConfirmScheduler) loop(ctx context.Context) {
	s.logger.Info("auto-confirm scheduler started", zap.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("auto-confirm scheduler stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *AutoConfirmScheduler) sweep(ctx context.Context) {
	report, err := s.confirmer.AutoConfirm(ctx)
	if err != nil {
		s.logger.Error("auto-confirm sweep failed", zap.Error(err))
		return
	}

	fields := []zap.Field{
		zap.Time("cutoff", report.Cutoff),
		zap.Int("confirmed", len(report.Confirmed)),
		zap.Int("failed", len(report.Failures)),
	}
	if len(report.Failures) > 0 {
		s.logger.Warn("auto-confirm sweep finished with failures", fields...)
		return
	}
	s.logger.Info("auto-confirm sweep finished", fields...)
}
