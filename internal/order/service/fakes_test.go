package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"orderflow/internal/domain"
	apperrors "orderflow/internal/errors"
	"orderflow/internal/order/port"
)

var fixedNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

type storeState struct {
	orders map[string]domain.Order
	lines  map[string][]domain.OrderLine
	logs   map[string][]domain.StatusLogEntry
	tasks  []domain.DeferredTask
}

func (s storeState) clone() storeState {
	c := storeState{
		orders: make(map[string]domain.Order, len(s.orders)),
		lines:  make(map[string][]domain.OrderLine, len(s.lines)),
		logs:   make(map[string][]domain.StatusLogEntry, len(s.logs)),
		tasks:  append([]domain.DeferredTask(nil), s.tasks...),
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.lines {
		c.lines[k] = append([]domain.OrderLine(nil), v...)
	}
	for k, v := range s.logs {
		c.logs[k] = append([]domain.StatusLogEntry(nil), v...)
	}
	return c
}

// fakeStore keeps the order store in memory. Transactions work on the live
// state and restore a snapshot on failure.
type fakeStore struct {
	mu     sync.Mutex
	state  storeState
	config *domain.LifecycleConfig

	commitErr error
	applyErr  map[string]error
	logErr    error
	// onApply runs before the conditional update and may move the order,
	// standing in for a writer that committed first.
	onApply func(state *storeState, t domain.Transition)
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		state: storeState{
			orders: map[string]domain.Order{},
			lines:  map[string][]domain.OrderLine{},
			logs:   map[string][]domain.StatusLogEntry{},
		},
		config:   &domain.LifecycleConfig{ID: domain.LifecycleConfigID, TakeTimeoutDays: 15, OrderTimeoutMinutes: 30},
		applyErr: map[string]error{},
	}
}

func (f *fakeStore) put(order domain.Order, lines ...domain.OrderLine) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.orders[order.ID] = order
	if len(lines) > 0 {
		f.state.lines[order.ID] = lines
	}
}

func (f *fakeStore) order(id string) (domain.Order, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.state.orders[id]
	return o, ok
}

func (f *fakeStore) statusLogs(id string) []domain.StatusLogEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state.logs[id]
}

func (f *fakeStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx port.StoreTx) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	snapshot := f.state.clone()
	if err := fn(ctx, &fakeTx{store: f, snapshot: &snapshot}); err != nil {
		f.state = snapshot
		return err
	}
	if f.commitErr != nil {
		f.state = snapshot
		return f.commitErr
	}
	return nil
}

func (f *fakeStore) WithinRetryableTx(ctx context.Context, fn func(ctx context.Context, tx port.StoreTx) error) error {
	return f.WithinTx(ctx, fn)
}

func (f *fakeStore) FindOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	o, ok := f.order(orderID)
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("order with id %s not found", orderID))
	}
	return &o, nil
}

func (f *fakeStore) FindLines(ctx context.Context, orderID string) ([]domain.OrderLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.OrderLine(nil), f.state.lines[orderID]...), nil
}

func (f *fakeStore) FindStatusLogs(ctx context.Context, orderID string) ([]domain.StatusLogEntry, error) {
	return f.statusLogs(orderID), nil
}

func (f *fakeStore) FindShippedBefore(ctx context.Context, cutoff time.Time) ([]domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []domain.Order
	for _, o := range f.state.orders {
		if o.OrderStatus == domain.OrderStatusShipped && o.ShippedAt != nil && o.ShippedAt.Before(cutoff) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) CountByStatus(ctx context.Context, start, end time.Time) (map[domain.OrderStatus]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	counts := map[domain.OrderStatus]int{}
	for _, o := range f.state.orders {
		if o.CreatedAt.Before(start) || o.CreatedAt.After(end) {
			continue
		}
		counts[o.OrderStatus]++
	}
	return counts, nil
}

func (f *fakeStore) LifecycleConfig(ctx context.Context) (*domain.LifecycleConfig, error) {
	if f.config == nil {
		return nil, apperrors.NewNotFoundError("lifecycle config not found")
	}
	return f.config, nil
}

type fakeTx struct {
	store    *fakeStore
	snapshot *storeState
}

func (t *fakeTx) InsertOrder(ctx context.Context, order *domain.Order) error {
	t.store.state.orders[order.ID] = *order
	return nil
}

func (t *fakeTx) InsertLine(ctx context.Context, line domain.OrderLine) error {
	t.store.state.lines[line.OrderID] = append(t.store.state.lines[line.OrderID], line)
	return nil
}

func (t *fakeTx) InsertTask(ctx context.Context, task domain.DeferredTask) error {
	task.ID = int64(len(t.store.state.tasks) + 1)
	t.store.state.tasks = append(t.store.state.tasks, task)
	return nil
}

func (t *fakeTx) ApplyTransition(ctx context.Context, tr domain.Transition) error {
	if err := t.store.applyErr[tr.OrderID]; err != nil {
		return err
	}
	if t.store.onApply != nil {
		t.store.onApply(&t.store.state, tr)
		// The concurrent write has committed, so it survives our rollback.
		if o, ok := t.store.state.orders[tr.OrderID]; ok {
			t.snapshot.orders[tr.OrderID] = o
		}
	}

	o, ok := t.store.state.orders[tr.OrderID]
	if !ok || o.Statuses() != tr.From {
		return apperrors.NewConflictError("order " + tr.OrderID + " moved")
	}
	o.Apply(tr)
	t.store.state.orders[tr.OrderID] = o
	return nil
}

func (t *fakeTx) InsertStatusLog(ctx context.Context, entry domain.StatusLogEntry) error {
	if t.store.logErr != nil {
		return t.store.logErr
	}
	t.store.state.logs[entry.OrderID] = append(t.store.state.logs[entry.OrderID], entry)
	return nil
}

func (t *fakeTx) DeleteOrder(ctx context.Context, orderID string) error {
	if _, ok := t.store.state.orders[orderID]; !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("order with id %s not found", orderID))
	}
	delete(t.store.state.lines, orderID)
	delete(t.store.state.orders, orderID)
	return nil
}

type fakeCarts struct {
	carts         map[string]domain.Cart
	readErr       error
	invalidateErr error
}

func (f *fakeCarts) ReadCart(ctx context.Context, userID string) (domain.Cart, error) {
	if f.readErr != nil {
		return domain.Cart{}, f.readErr
	}
	return f.carts[userID], nil
}

func (f *fakeCarts) InvalidateCart(ctx context.Context, userID string) error {
	if f.invalidateErr != nil {
		return f.invalidateErr
	}
	delete(f.carts, userID)
	return nil
}

type restoreCall struct {
	SkuID    string
	Quantity int
}

type fakeInventory struct {
	mu           sync.Mutex
	decrementErr error
	restoreErr   error
	decremented  []string
	restored     []restoreCall
	restoreCalls int
}

func (f *fakeInventory) DecrementStock(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.decrementErr != nil {
		return f.decrementErr
	}
	f.decremented = append(f.decremented, userID)
	return nil
}

func (f *fakeInventory) RestoreStock(ctx context.Context, skuID string, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.restoreCalls++
	if f.restoreErr != nil {
		return f.restoreErr
	}
	f.restored = append(f.restored, restoreCall{SkuID: skuID, Quantity: quantity})
	return nil
}

type mockPaymentGateway struct {
	QueryPaymentStateFunc func(ctx context.Context, orderID string) (domain.PaymentState, error)
	ClosePaymentFunc      func(ctx context.Context, orderID string) error
	queries               int
	closed                []string
}

func (m *mockPaymentGateway) QueryPaymentState(ctx context.Context, orderID string) (domain.PaymentState, error) {
	m.queries++
	if m.QueryPaymentStateFunc == nil {
		return domain.PaymentState{}, errors.New("unexpected payment query")
	}
	return m.QueryPaymentStateFunc(ctx, orderID)
}

func (m *mockPaymentGateway) ClosePayment(ctx context.Context, orderID string) error {
	m.closed = append(m.closed, orderID)
	if m.ClosePaymentFunc != nil {
		return m.ClosePaymentFunc(ctx, orderID)
	}
	return nil
}

type publishedMessage struct {
	Queue   string
	Payload []byte
	Delay   time.Duration
}

type fakeQueue struct {
	publishErr   error
	publishCalls int
	published    []publishedMessage
}

func (f *fakeQueue) EnqueueTask(ctx context.Context, exchange, routingKey string, payload []byte) error {
	return nil
}

func (f *fakeQueue) PublishDelayed(ctx context.Context, queue string, payload []byte, delay time.Duration) error {
	f.publishCalls++
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, publishedMessage{Queue: queue, Payload: payload, Delay: delay})
	return nil
}

type fakeLocker struct {
	err      error
	locked   int
	unlocked int
}

func (f *fakeLocker) Lock(ctx context.Context, orderID string) (func(), error) {
	if f.err != nil {
		return nil, f.err
	}
	f.locked++
	return func() { f.unlocked++ }, nil
}

type seqIDs struct {
	n int
}

func (s *seqIDs) NewID() string {
	s.n++
	return fmt.Sprintf("id-%d", s.n)
}

type fakeRecorder struct {
	mu              sync.Mutex
	outcomes        map[string]int
	compensations   map[string]int
	publishFailures map[string]int
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{
		outcomes:        map[string]int{},
		compensations:   map[string]int{},
		publishFailures: map[string]int{},
	}
}

func (r *fakeRecorder) ObserveOperation(operation, outcome string, elapsed time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes[operation+"/"+outcome]++
}

func (r *fakeRecorder) IncCompensationFailure(step string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.compensations[step]++
}

func (r *fakeRecorder) IncPublishFailure(queue string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.publishFailures[queue]++
}

type testEnv struct {
	svc       *LifecycleService
	store     *fakeStore
	carts     *fakeCarts
	inventory *fakeInventory
	payments  *mockPaymentGateway
	queue     *fakeQueue
	locker    *fakeLocker
	metrics   *fakeRecorder
}

func newTestEnv() *testEnv {
	env := &testEnv{
		store:     newFakeStore(),
		carts:     &fakeCarts{carts: map[string]domain.Cart{}},
		inventory: &fakeInventory{},
		payments:  &mockPaymentGateway{},
		queue:     &fakeQueue{},
		locker:    &fakeLocker{},
		metrics:   newFakeRecorder(),
	}

	env.svc = NewLifecycleService(Dependencies{
		Store:     env.store,
		Carts:     env.carts,
		Inventory: env.inventory,
		Payments:  env.payments,
		Queue:     env.queue,
		Locker:    env.locker,
		IDs:       &seqIDs{},
		Metrics:   env.metrics,
	}, zap.NewNop(), Options{
		CloseCheckTopic:  "order-close-check",
		CloseDelay:       30 * time.Minute,
		PublishAttempts:  3,
		RestoreAttempts:  2,
		PointsExchange:   "exchange.addpoint",
		PointsRoutingKey: "addpoint",
	})
	env.svc.now = func() time.Time { return fixedNow }

	return env
}

func sampleCart() domain.Cart {
	return domain.NewCart([]domain.CartLine{
		{SkuID: "sku-1", SpuID: "spu-1", Name: "Mug", Price: 300, Quantity: 2, Money: 600},
		{SkuID: "sku-2", SpuID: "spu-2", Name: "Plate", Price: 400, Quantity: 1, Money: 400},
	})
}

func unpaidOrder(id string) domain.Order {
	return *domain.NewOrder(id, "alice", domain.OrderDraft{}, sampleCart(), fixedNow.Add(-time.Hour))
}

func orderLines(orderID string) []domain.OrderLine {
	var lines []domain.OrderLine
	for i, cl := range sampleCart().Lines {
		lines = append(lines, domain.NewOrderLine(fmt.Sprintf("%s-l%d", orderID, i), orderID, cl))
	}
	return lines
}

func paidOrder(id string) domain.Order {
	o := unpaidOrder(id)
	tr, _ := o.Pay("TX-"+id, fixedNow.Add(-50*time.Minute))
	o.Apply(tr)
	return o
}

func shippedOrder(id string, shippedAt time.Time) domain.Order {
	o := paidOrder(id)
	tr, _ := o.Ship("SF100", "SF Express", shippedAt)
	o.Apply(tr)
	return o
}
