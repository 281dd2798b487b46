package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderflow/internal/domain"
	apperrors "orderflow/internal/errors"
)

func paymentState(status domain.PaymentStatus, ref string) func(context.Context, string) (domain.PaymentState, error) {
	return func(ctx context.Context, orderID string) (domain.PaymentState, error) {
		return domain.PaymentState{Status: status, TransactionRef: ref}, nil
	}
}

func TestUpdatePayStatus_Idempotent(t *testing.T) {
	env := newTestEnv()
	env.store.put(unpaidOrder("o-1"))

	require.NoError(t, env.svc.UpdatePayStatus(context.Background(), "o-1", "TX1"))
	first, _ := env.store.order("o-1")

	require.NoError(t, env.svc.UpdatePayStatus(context.Background(), "o-1", "TX1"))
	second, _ := env.store.order("o-1")

	assert.Equal(t, domain.PayStatusPaid, first.PayStatus)
	assert.Equal(t, domain.OrderStatusPaid, first.OrderStatus)
	assert.Equal(t, "TX1", first.TransactionID)
	assert.Equal(t, first, second)

	logs := env.store.statusLogs("o-1")
	require.Len(t, logs, 1)
	assert.Equal(t, "transaction ref: TX1", logs[0].Remarks)
	assert.Equal(t, domain.ActorSystem, logs[0].Operator)
}

func TestUpdatePayStatus_MissingOrder(t *testing.T) {
	env := newTestEnv()

	assert.NoError(t, env.svc.UpdatePayStatus(context.Background(), "ghost", "TX1"))
}

func TestUpdatePayStatus_ClosedOrderIsTerminal(t *testing.T) {
	env := newTestEnv()
	closed := unpaidOrder("o-1")
	tr, err := closed.Close(fixedNow)
	require.NoError(t, err)
	closed.Apply(tr)
	env.store.put(closed)

	require.NoError(t, env.svc.UpdatePayStatus(context.Background(), "o-1", "TX-late"))

	got, _ := env.store.order("o-1")
	assert.Equal(t, domain.OrderStatusClosed, got.OrderStatus)
	assert.Equal(t, domain.PayStatusUnpaid, got.PayStatus)
	assert.Empty(t, env.store.statusLogs("o-1"))
}

func TestUpdatePayStatus_LostRace(t *testing.T) {
	env := newTestEnv()
	env.store.put(unpaidOrder("o-1"))
	env.store.onApply = func(state *storeState, tr domain.Transition) {
		o := state.orders[tr.OrderID]
		o.OrderStatus = domain.OrderStatusClosed
		state.orders[tr.OrderID] = o
	}

	require.NoError(t, env.svc.UpdatePayStatus(context.Background(), "o-1", "TX1"))

	got, _ := env.store.order("o-1")
	assert.Equal(t, domain.OrderStatusClosed, got.OrderStatus)
	assert.Equal(t, domain.PayStatusUnpaid, got.PayStatus)
	assert.Empty(t, env.store.statusLogs("o-1"))
}

func TestCloseOrder_AlreadyPaid(t *testing.T) {
	env := newTestEnv()
	env.store.put(paidOrder("o-1"), orderLines("o-1")...)

	require.NoError(t, env.svc.CloseOrder(context.Background(), "o-1"))

	got, _ := env.store.order("o-1")
	assert.Equal(t, domain.OrderStatusPaid, got.OrderStatus)
	assert.Zero(t, env.payments.queries)
	assert.Zero(t, env.inventory.restoreCalls)
	assert.Equal(t, 1, env.locker.unlocked)
}

func TestCloseOrder_AlreadyClosed(t *testing.T) {
	env := newTestEnv()
	closed := unpaidOrder("o-1")
	tr, err := closed.Close(fixedNow)
	require.NoError(t, err)
	closed.Apply(tr)
	env.store.put(closed, orderLines("o-1")...)

	require.NoError(t, env.svc.CloseOrder(context.Background(), "o-1"))

	assert.Zero(t, env.payments.queries)
	assert.Zero(t, env.inventory.restoreCalls)
	assert.Empty(t, env.payments.closed)
}

func TestCloseOrder_GatewayReportsPaid(t *testing.T) {
	env := newTestEnv()
	env.store.put(unpaidOrder("o-1"), orderLines("o-1")...)
	env.payments.QueryPaymentStateFunc = paymentState(domain.PaymentPaid, "TX1")

	require.NoError(t, env.svc.CloseOrder(context.Background(), "o-1"))

	got, _ := env.store.order("o-1")
	assert.Equal(t, domain.PayStatusPaid, got.PayStatus)
	assert.Equal(t, domain.OrderStatusPaid, got.OrderStatus)

	logs := env.store.statusLogs("o-1")
	require.Len(t, logs, 1)
	assert.Contains(t, logs[0].Remarks, "TX1")

	require.NoError(t, env.svc.CloseOrder(context.Background(), "o-1"))

	again, _ := env.store.order("o-1")
	assert.Equal(t, got, again)
	assert.Equal(t, 1, env.payments.queries)
	assert.Len(t, env.store.statusLogs("o-1"), 1)
	assert.Zero(t, env.inventory.restoreCalls)
}

func TestCloseOrder_GatewayReportsUnpaid(t *testing.T) {
	env := newTestEnv()
	lines := orderLines("o-1")
	env.store.put(unpaidOrder("o-1"), lines...)
	env.payments.QueryPaymentStateFunc = paymentState(domain.PaymentUnpaid, "")

	require.NoError(t, env.svc.CloseOrder(context.Background(), "o-1"))

	got, _ := env.store.order("o-1")
	assert.Equal(t, domain.OrderStatusClosed, got.OrderStatus)
	require.NotNil(t, got.ClosedAt)
	assert.Equal(t, fixedNow, *got.ClosedAt)

	require.Len(t, env.inventory.restored, len(lines))
	for i, l := range lines {
		assert.Equal(t, restoreCall{SkuID: l.SkuID, Quantity: l.Quantity}, env.inventory.restored[i])
	}

	logs := env.store.statusLogs("o-1")
	require.Len(t, logs, 1)
	assert.Equal(t, domain.ActorSystem, logs[0].Operator)
	assert.Equal(t, domain.OrderStatusClosed, logs[0].OrderStatus)

	assert.Equal(t, []string{"o-1"}, env.payments.closed)

	// A redelivered close check must not restore stock a second time.
	require.NoError(t, env.svc.CloseOrder(context.Background(), "o-1"))
	assert.Len(t, env.inventory.restored, len(lines))
	assert.Equal(t, 1, env.payments.queries)
}

func TestCloseOrder_ClosePaymentFailureIsCounted(t *testing.T) {
	env := newTestEnv()
	env.store.put(unpaidOrder("o-1"), orderLines("o-1")...)
	env.payments.QueryPaymentStateFunc = paymentState(domain.PaymentUnpaid, "")
	env.payments.ClosePaymentFunc = func(ctx context.Context, orderID string) error {
		return errors.New("gateway timeout")
	}

	require.NoError(t, env.svc.CloseOrder(context.Background(), "o-1"))

	got, _ := env.store.order("o-1")
	assert.Equal(t, domain.OrderStatusClosed, got.OrderStatus)
	assert.Equal(t, 1, env.metrics.compensations["close_payment"])
}

func TestCloseOrder_UnknownState(t *testing.T) {
	env := newTestEnv()
	env.store.put(unpaidOrder("o-1"), orderLines("o-1")...)
	env.payments.QueryPaymentStateFunc = paymentState(domain.PaymentUnknown, "")

	err := env.svc.CloseOrder(context.Background(), "o-1")

	_, ok := apperrors.IsPaymentGatewayError(err)
	require.True(t, ok)
	got, _ := env.store.order("o-1")
	assert.Equal(t, domain.OrderStatusUnpaid, got.OrderStatus)
	assert.Zero(t, env.inventory.restoreCalls)
}

func TestCloseOrder_GatewayFailure(t *testing.T) {
	env := newTestEnv()
	env.store.put(unpaidOrder("o-1"), orderLines("o-1")...)
	env.payments.QueryPaymentStateFunc = func(ctx context.Context, orderID string) (domain.PaymentState, error) {
		return domain.PaymentState{}, errors.New("dial tcp: connection refused")
	}

	err := env.svc.CloseOrder(context.Background(), "o-1")

	_, ok := apperrors.IsPaymentGatewayError(err)
	require.True(t, ok)
	got, _ := env.store.order("o-1")
	assert.Equal(t, domain.OrderStatusUnpaid, got.OrderStatus)
	assert.Empty(t, env.store.statusLogs("o-1"))
}

func TestCloseOrder_NotFound(t *testing.T) {
	env := newTestEnv()

	err := env.svc.CloseOrder(context.Background(), "ghost")

	_, ok := apperrors.IsNotFoundError(err)
	assert.True(t, ok)
	assert.Equal(t, 1, env.locker.unlocked)
}

func TestCloseOrder_LockBusy(t *testing.T) {
	env := newTestEnv()
	env.store.put(unpaidOrder("o-1"))
	env.locker.err = apperrors.NewConflictError("order o-1 is locked")

	err := env.svc.CloseOrder(context.Background(), "o-1")

	_, ok := apperrors.IsConflictError(err)
	assert.True(t, ok)
	assert.Zero(t, env.payments.queries)
}

func TestCloseOrder_LostRaceToPayment(t *testing.T) {
	env := newTestEnv()
	env.store.put(unpaidOrder("o-1"), orderLines("o-1")...)
	env.payments.QueryPaymentStateFunc = paymentState(domain.PaymentUnpaid, "")
	env.store.onApply = func(state *storeState, tr domain.Transition) {
		o := state.orders[tr.OrderID]
		o.OrderStatus = domain.OrderStatusPaid
		o.PayStatus = domain.PayStatusPaid
		o.TransactionID = "TX-race"
		state.orders[tr.OrderID] = o
	}

	require.NoError(t, env.svc.CloseOrder(context.Background(), "o-1"))

	got, _ := env.store.order("o-1")
	assert.Equal(t, domain.OrderStatusPaid, got.OrderStatus)
	assert.Zero(t, env.inventory.restoreCalls)
	assert.Empty(t, env.payments.closed)
	assert.Empty(t, env.store.statusLogs("o-1"))
}
