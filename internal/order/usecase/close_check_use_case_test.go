package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"orderflow/internal/domain"
	apperrors "orderflow/internal/errors"
)

type scheduledCheck struct {
	check domain.CloseCheck
	delay time.Duration
}

// Mock implementations
type mockOrderCloser struct {
	CloseOrderFunc         func(ctx context.Context, orderID string) error
	ScheduleCloseCheckFunc func(ctx context.Context, check domain.CloseCheck, delay time.Duration) error
	scheduled              []scheduledCheck
}

func (m *mockOrderCloser) CloseOrder(ctx context.Context, orderID string) error {
	return m.CloseOrderFunc(ctx, orderID)
}

func (m *mockOrderCloser) ScheduleCloseCheck(ctx context.Context, check domain.CloseCheck, delay time.Duration) error {
	m.scheduled = append(m.scheduled, scheduledCheck{check: check, delay: delay})
	if m.ScheduleCloseCheckFunc != nil {
		return m.ScheduleCloseCheckFunc(ctx, check, delay)
	}
	return nil
}

func newTestCloseCheckUseCase(closer OrderCloser) *CloseCheckUseCase {
	return NewCloseCheckUseCase(closer, zap.NewNop(), 3, time.Minute)
}

func failingWith(err error) func(ctx context.Context, orderID string) error {
	return func(ctx context.Context, orderID string) error { return err }
}

func TestHandle_Completed(t *testing.T) {
	closer := &mockOrderCloser{CloseOrderFunc: failingWith(nil)}

	outcome, err := newTestCloseCheckUseCase(closer).Handle(context.Background(), domain.CloseCheck{OrderID: "o-1", Attempt: 1})

	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, outcome)
	assert.Empty(t, closer.scheduled)
}

func TestHandle_RetryableErrorsReschedule(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "gateway", err: apperrors.NewPaymentGatewayError("payment state unknown", nil)},
		{name: "conflict", err: apperrors.NewConflictError("order o-1 is locked")},
		{name: "deadlock", err: apperrors.NewDeadlockError("max retries exceeded")},
		{name: "store", err: &mysql.MySQLError{Number: 2013, Message: "lost connection"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			closer := &mockOrderCloser{CloseOrderFunc: failingWith(tt.err)}

			outcome, err := newTestCloseCheckUseCase(closer).Handle(context.Background(), domain.CloseCheck{OrderID: "o-1", Attempt: 1})

			require.NoError(t, err)
			assert.Equal(t, OutcomeRescheduled, outcome)
			require.Len(t, closer.scheduled, 1)
			assert.Equal(t, domain.CloseCheck{OrderID: "o-1", Attempt: 2}, closer.scheduled[0].check)
			assert.Equal(t, time.Minute, closer.scheduled[0].delay)
		})
	}
}

func TestHandle_AttemptsExhausted(t *testing.T) {
	closer := &mockOrderCloser{CloseOrderFunc: failingWith(apperrors.NewPaymentGatewayError("down", nil))}

	outcome, err := newTestCloseCheckUseCase(closer).Handle(context.Background(), domain.CloseCheck{OrderID: "o-1", Attempt: 3})

	require.NoError(t, err)
	assert.Equal(t, OutcomeDropped, outcome)
	assert.Empty(t, closer.scheduled)
}

func TestHandle_NotFoundDropped(t *testing.T) {
	closer := &mockOrderCloser{CloseOrderFunc: failingWith(apperrors.NewNotFoundError("order with id o-1 not found"))}

	outcome, err := newTestCloseCheckUseCase(closer).Handle(context.Background(), domain.CloseCheck{OrderID: "o-1", Attempt: 1})

	require.NoError(t, err)
	assert.Equal(t, OutcomeDropped, outcome)
	assert.Empty(t, closer.scheduled)
}

func TestHandle_MissingOrderID(t *testing.T) {
	closer := &mockOrderCloser{CloseOrderFunc: func(ctx context.Context, orderID string) error {
		t.Fatal("CloseOrder must not be called")
		return nil
	}}

	outcome, err := newTestCloseCheckUseCase(closer).Handle(context.Background(), domain.CloseCheck{Attempt: 1})

	require.NoError(t, err)
	assert.Equal(t, OutcomeDropped, outcome)
}

func TestHandle_RescheduleFailure(t *testing.T) {
	closer := &mockOrderCloser{
		CloseOrderFunc: failingWith(apperrors.NewConflictError("busy")),
		ScheduleCloseCheckFunc: func(ctx context.Context, check domain.CloseCheck, delay time.Duration) error {
			return errors.New("broker unavailable")
		},
	}

	outcome, err := newTestCloseCheckUseCase(closer).Handle(context.Background(), domain.CloseCheck{OrderID: "o-1", Attempt: 1})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker unavailable")
	assert.Equal(t, OutcomeDropped, outcome)
}
