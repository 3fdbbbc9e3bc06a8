package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kiwari-pos/terminal/internal/domain"
	"github.com/kiwari-pos/terminal/internal/enum"
	"github.com/kiwari-pos/terminal/internal/offline"
	"github.com/kiwari-pos/terminal/internal/shift"
	"github.com/kiwari-pos/terminal/internal/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var errConnRefused = errors.New("dial tcp 127.0.0.1:5432: connect: connection refused")

// testClock hands out strictly increasing timestamps.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) tick() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

// fakeStore mimics the orders and shifts tables, including the conditional
// status write. It satisfies store.Orders and shift.Store.
type fakeStore struct {
	mu     sync.Mutex
	clock  *testClock
	orders map[uuid.UUID]domain.Order
	tables []domain.Table
	shifts map[uuid.UUID]domain.Shift
	down   bool
	writes []store.StatusChange
	seq    int
}

func newFakeStore(clock *testClock) *fakeStore {
	return &fakeStore{
		clock:  clock,
		orders: make(map[uuid.UUID]domain.Order),
		shifts: make(map[uuid.UUID]domain.Shift),
	}
}

func (f *fakeStore) setDown(down bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.down = down
}

func (f *fakeStore) unreachable(op string) error {
	if f.down {
		return domain.TransportError(op, errConnRefused)
	}
	return nil
}

// put stores o as if another terminal had written it.
func (f *fakeStore) put(o domain.Order) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders[o.ID] = o
}

func (f *fakeStore) order(id uuid.UUID) domain.Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.orders[id]
}

func (f *fakeStore) statusWrites() []store.StatusChange {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]store.StatusChange(nil), f.writes...)
}

func (f *fakeStore) shift(id uuid.UUID) domain.Shift {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.shifts[id]
}

func (f *fakeStore) CreateOrder(ctx context.Context, req domain.NewOrder, createdBy uuid.UUID) (domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.unreachable("create order"); err != nil {
		return domain.Order{}, err
	}
	f.seq++
	now := f.clock.tick()
	o := domain.Order{
		ID:          uuid.New(),
		BusinessID:  req.BusinessID,
		OrderNumber: fmt.Sprintf("ORD-%03d", f.seq),
		Status:      req.Status,
		OrderType:   req.OrderType,
		Customer:    req.Customer,
		Items:       req.Items,
		TotalAmount: req.Total(),
		Notes:       req.Notes,
		TableID:     req.TableID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	f.orders[o.ID] = o
	return o, nil
}

func (f *fakeStore) UpdateOrderStatus(ctx context.Context, change store.StatusChange) (domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.unreachable("update order status"); err != nil {
		return domain.Order{}, err
	}
	o, ok := f.orders[change.OrderID]
	if !ok {
		return domain.Order{}, fmt.Errorf("update order status: %w", domain.ErrNotFound)
	}
	if o.Status != change.Expected {
		return domain.Order{}, &domain.ConflictError{OrderID: o.ID, Expected: change.Expected, Actual: o.Status}
	}
	f.writes = append(f.writes, change)
	o = o.Clone()
	o.Status = change.Status
	o.UpdatedAt = f.clock.tick()
	if change.Status == enum.OrderStatusNew && o.ApprovedBy == nil {
		by, at := change.ActorID, o.UpdatedAt
		o.ApprovedBy, o.ApprovedAt = &by, &at
	}
	f.orders[o.ID] = o
	return o, nil
}

func (f *fakeStore) GetOrder(ctx context.Context, id uuid.UUID) (domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.unreachable("get order"); err != nil {
		return domain.Order{}, err
	}
	o, ok := f.orders[id]
	if !ok {
		return domain.Order{}, fmt.Errorf("get order: %w", domain.ErrNotFound)
	}
	return o, nil
}

func (f *fakeStore) ListRecentOrders(ctx context.Context, limit int) ([]domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.unreachable("list recent orders"); err != nil {
		return nil, err
	}
	var orders []domain.Order
	for _, o := range f.orders {
		orders = append(orders, o)
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })
	if len(orders) > limit {
		orders = orders[:limit]
	}
	return orders, nil
}

func (f *fakeStore) ListActiveOrderForTable(ctx context.Context, tableID uuid.UUID) (domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.unreachable("active order for table"); err != nil {
		return domain.Order{}, err
	}
	for _, o := range f.orders {
		if o.TableID != nil && *o.TableID == tableID && o.Status.IsActive() {
			return o, nil
		}
	}
	return domain.Order{}, fmt.Errorf("active order for table: %w", domain.ErrNotFound)
}

func (f *fakeStore) ListTables(ctx context.Context) ([]domain.Table, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.unreachable("list tables"); err != nil {
		return nil, err
	}
	return append([]domain.Table(nil), f.tables...), nil
}

func (f *fakeStore) Ping(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.unreachable("ping")
}

func (f *fakeStore) CreateShift(ctx context.Context, staffID uuid.UUID, openingCash decimal.Decimal) (domain.Shift, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.unreachable("create shift"); err != nil {
		return domain.Shift{}, err
	}
	for _, s := range f.shifts {
		if s.StaffID == staffID && s.IsOpen() {
			return domain.Shift{}, domain.ErrShiftAlreadyOpen
		}
	}
	s := domain.Shift{
		ID:          uuid.New(),
		StaffID:     staffID,
		Status:      enum.ShiftStatusOpen,
		StartedAt:   f.clock.tick(),
		OpeningCash: openingCash,
		TotalSales:  decimal.Zero,
	}
	f.shifts[s.ID] = s
	return s, nil
}

func (f *fakeStore) AddShiftTotals(ctx context.Context, shiftID uuid.UUID, delta domain.ShiftDelta) (domain.Shift, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.unreachable("add shift totals"); err != nil {
		return domain.Shift{}, err
	}
	cur, ok := f.shifts[shiftID]
	if !ok || !cur.IsOpen() {
		return domain.Shift{}, domain.ErrShiftNotOpen
	}
	cur.TotalSales = cur.TotalSales.Add(delta.Sales)
	cur.OrderCount += delta.Orders
	f.shifts[shiftID] = cur
	return cur, nil
}

func (f *fakeStore) CloseShift(ctx context.Context, shiftID uuid.UUID, closing domain.ShiftClosing) (domain.Shift, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.unreachable("close shift"); err != nil {
		return domain.Shift{}, err
	}
	cur, ok := f.shifts[shiftID]
	if !ok || !cur.IsOpen() {
		return domain.Shift{}, domain.ErrShiftNotOpen
	}
	ended := f.clock.tick()
	cash := closing.ClosingCash
	cur.Status = enum.ShiftStatusClosed
	cur.EndedAt = &ended
	cur.ClosingCash = &cash
	cur.TotalSales = cur.TotalSales.Add(closing.Delta.Sales)
	cur.OrderCount += closing.Delta.Orders
	cur.Notes = closing.Notes
	f.shifts[shiftID] = cur
	return cur, nil
}

func (f *fakeStore) ListClosedShifts(ctx context.Context, limit int) ([]domain.Shift, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.unreachable("list closed shifts"); err != nil {
		return nil, err
	}
	var closed []domain.Shift
	for _, s := range f.shifts {
		if !s.IsOpen() {
			closed = append(closed, s)
		}
	}
	sort.Slice(closed, func(i, j int) bool { return closed[i].EndedAt.After(*closed[j].EndedAt) })
	if len(closed) > limit {
		closed = closed[:limit]
	}
	return closed, nil
}

func (f *fakeStore) ListOpenShifts(ctx context.Context) ([]domain.Shift, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.unreachable("list open shifts"); err != nil {
		return nil, err
	}
	var open []domain.Shift
	for _, s := range f.shifts {
		if s.IsOpen() {
			open = append(open, s)
		}
	}
	return open, nil
}

// recorder collects notifier outcomes.
type recorder struct {
	mu       sync.Mutex
	outcomes []Outcome
}

func (r *recorder) notify(o Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, o)
}

func (r *recorder) kinds(kind OutcomeKind) []Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Outcome
	for _, o := range r.outcomes {
		if o.Kind == kind {
			out = append(out, o)
		}
	}
	return out
}

type harness struct {
	t      *testing.T
	clock  *testClock
	store  *fakeStore
	buffer *offline.Buffer
	ledger *shift.Ledger
	events *recorder
	ctrl   *Controller
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	clock := newTestClock()
	return newHarnessOn(t, cfg, clock, newFakeStore(clock))
}

// newHarnessOn builds a terminal on an existing store, so that several
// terminals can share one.
func newHarnessOn(t *testing.T, cfg Config, clock *testClock, fs *fakeStore) *harness {
	t.Helper()
	queue, err := offline.OpenQueue(filepath.Join(t.TempDir(), "pending.db"))
	require.NoError(t, err)
	t.Cleanup(func() { queue.Close() })

	if cfg.PingInterval == 0 {
		cfg.PingInterval = time.Hour
	}
	h := &harness{
		t:      t,
		clock:  clock,
		store:  fs,
		buffer: offline.NewBuffer(queue, zap.NewNop()),
		ledger: shift.NewLedger(fs, zap.NewNop()),
		events: &recorder{},
	}
	h.ctrl = New(fs, h.buffer, h.ledger, cfg, zap.NewNop(),
		WithNotifier(h.events.notify), WithClock(clock.tick))
	return h
}

// start runs the loop; seed the store before calling it.
func (h *harness) start() {
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		_ = h.ctrl.Run(ctx)
	}()
	h.t.Cleanup(func() {
		cancel()
		<-stopped
	})
	h.sync()
}

// sync waits until everything posted to the loop so far has been processed.
func (h *harness) sync() {
	h.t.Helper()
	_, err := call(context.Background(), h.ctrl, func(context.Context) (struct{}, error) {
		return struct{}{}, nil
	})
	require.NoError(h.t, err)
}

// seedOrder puts an order for two Es Teh (10000) into the store.
func (h *harness) seedOrder(status enum.OrderStatus, tableID *uuid.UUID) domain.Order {
	now := h.clock.tick()
	o := domain.Order{
		ID:          uuid.New(),
		OrderNumber: fmt.Sprintf("QR-%s", now.Format("150405")),
		Status:      status,
		OrderType:   enum.OrderTypeDineIn,
		Items:       []domain.LineItem{{Name: "Es Teh", UnitPrice: decimal.NewFromInt(5000), Quantity: 2}},
		TotalAmount: decimal.NewFromInt(10000),
		TableID:     tableID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if o.TableID == nil {
		o.OrderType = enum.OrderTypeTakeout
	}
	h.store.put(o)
	return o
}

func (h *harness) seedTable(number string, active bool) domain.Table {
	t := domain.Table{ID: uuid.New(), TableNumber: number, Capacity: 4, IsActive: active}
	h.store.mu.Lock()
	h.store.tables = append(h.store.tables, t)
	h.store.mu.Unlock()
	return t
}

func (h *harness) local(id uuid.UUID) domain.Order {
	h.t.Helper()
	o, ok := h.ctrl.Snapshot().Order(id)
	require.True(h.t, ok, "order %s not in snapshot", id)
	return o
}

func actor(role enum.Role) domain.Actor {
	return domain.Actor{StaffID: uuid.New(), Role: role}
}
