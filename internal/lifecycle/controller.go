// Package lifecycle is the terminal's order state machine. One goroutine owns
// the order set: commands from the API, feed deliveries, resync snapshots and
// connectivity changes all pass through its inbox and are applied one at a
// time. Readers get immutable snapshots.
package lifecycle

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/kiwari-pos/terminal/internal/domain"
	"github.com/kiwari-pos/terminal/internal/feed"
	"github.com/kiwari-pos/terminal/internal/occupancy"
	"github.com/kiwari-pos/terminal/internal/offline"
	"github.com/kiwari-pos/terminal/internal/shift"
	"github.com/kiwari-pos/terminal/internal/store"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrStopped is returned by calls made after Run has returned.
var ErrStopped = errors.New("lifecycle controller stopped")

const (
	defaultResyncLimit   = 50
	defaultPingInterval = 5 * time.Second
)

// Buffer is the offline write queue. Satisfied by *offline.Buffer.
type Buffer interface {
	Enqueue(ctx context.Context, m domain.PendingMutation) (int64, error)
	Replay(ctx context.Context, w offline.Writer) (offline.ReplayResult, error)
	Len(ctx context.Context) (int, error)
}

type Config struct {
	ResyncLimit   int           // terminal orders kept in memory
	PingInterval time.Duration // store ping period while offline
}

// Snapshot is the observable controller state. It is rebuilt after every
// change and never mutated afterwards.
type Snapshot struct {
	Version           uint64                    `json:"version"`
	Orders            []domain.Order            `json:"orders"` // newest first
	Tables            []occupancy.TableView     `json:"tables"`
	Online            bool                      `json:"online"`
	Degraded          bool                      `json:"degraded"` // change feed disconnected
	Pending           int                       `json:"pending"`  // queued offline writes
	UnattributedSales decimal.Decimal           `json:"unattributed_sales"`
	Violations        []domain.ConsistencyError `json:"violations"`
}

// Order returns the order with id from the snapshot.
func (s *Snapshot) Order(id uuid.UUID) (domain.Order, bool) {
	for _, o := range s.Orders {
		if o.ID == id {
			return o, true
		}
	}
	return domain.Order{}, false
}

// CommandResult is the outcome of an accepted status command. Queued is set
// when the write went to the offline buffer instead of the store.
type CommandResult struct {
	Order  domain.Order `json:"order"`
	Queued bool         `json:"queued"`
}

type Option func(*Controller)

// WithNotifier sets the outcome callback. It runs on the loop goroutine and
// must not block.
func WithNotifier(n Notifier) Option {
	return func(c *Controller) { c.notify = n }
}

// WithClock replaces time.Now for optimistic timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// Controller owns the terminal's order state.
type Controller struct {
	store  store.Orders
	buffer Buffer
	ledger *shift.Ledger
	cfg    Config
	logger *zap.Logger
	notify Notifier
	now    func() time.Time

	inbox chan func(context.Context)
	done  chan struct{}

	// Owned by the loop goroutine.
	orders   map[uuid.UUID]domain.Order
	tables   []domain.Table
	loaded   bool
	online   bool
	held     bool // offline by SetOnline(false); pings wait for SetOnline(true)
	degraded bool
	pending  int
	// accruals are completions accrued while offline, by order id, until
	// replay settles them.
	accruals   map[uuid.UUID]accrual
	violations []domain.ConsistencyError
	flagged    map[string]struct{}
	version    uint64

	current atomic.Pointer[Snapshot]

	mu        sync.Mutex
	listeners map[int]func(*Snapshot)
	nextID    int
}

func New(orders store.Orders, buffer Buffer, ledger *shift.Ledger, cfg Config, logger *zap.Logger, opts ...Option) *Controller {
	if cfg.ResyncLimit <= 0 {
		cfg.ResyncLimit = defaultResyncLimit
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = defaultPingInterval
	}
	c := &Controller{
		store:     orders,
		buffer:    buffer,
		ledger:    ledger,
		cfg:       cfg,
		logger:    logger,
		notify:    func(Outcome) {},
		now:       time.Now,
		inbox:     make(chan func(context.Context)),
		done:      make(chan struct{}),
		orders:    make(map[uuid.UUID]domain.Order),
		accruals:  make(map[uuid.UUID]accrual),
		degraded:  true,
		flagged:   make(map[string]struct{}),
		listeners: make(map[int]func(*Snapshot)),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.current.Store(&Snapshot{Degraded: true, UnattributedSales: decimal.Zero})
	return c
}

// Run loads the initial state and processes the inbox until ctx is done.
// Work already taken from the inbox runs to completion: store writes are not
// cancelled by shutdown, only bounded by the store timeout.
func (c *Controller) Run(ctx context.Context) error {
	defer close(c.done)
	work := context.WithoutCancel(ctx)

	c.start(work)

	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-c.inbox:
			fn(work)
		case <-ticker.C:
			if !c.online && !c.held {
				c.ping(work)
			}
		}
	}
}

// start reads the queue depth and tries to reach the store. If that fails
// the terminal starts offline and the ping retries.
func (c *Controller) start(ctx context.Context) {
	if n, err := c.buffer.Len(ctx); err != nil {
		c.logger.Error("read offline queue depth", zap.Error(err))
	} else {
		c.pending = n
	}
	c.goOnline(ctx)
}

// load fetches tables, recent orders and open shifts.
func (c *Controller) load(ctx context.Context) error {
	tables, err := c.store.ListTables(ctx)
	if err != nil {
		return err
	}
	c.tables = tables

	orders, err := c.store.ListRecentOrders(ctx, c.cfg.ResyncLimit)
	if err != nil {
		return err
	}
	for _, o := range orders {
		c.apply(o)
	}
	return c.ledger.Load(ctx)
}

// submit hands fn to the loop. Once accepted, fn runs to completion.
func (c *Controller) submit(ctx context.Context, fn func(context.Context)) error {
	select {
	case c.inbox <- fn:
		return nil
	case <-c.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// call runs fn on the loop and waits for its result. If ctx ends first the
// caller stops waiting but fn still completes.
func call[T any](ctx context.Context, c *Controller, fn func(context.Context) (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	res := make(chan result, 1)
	err := c.submit(ctx, func(loopCtx context.Context) {
		v, err := fn(loopCtx)
		res <- result{v, err}
	})
	if err != nil {
		var zero T
		return zero, err
	}
	select {
	case r := <-res:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// post queues fn without waiting for it. Feed deliveries use it so the
// subscriber keeps arrival order without blocking on command processing.
func (c *Controller) post(fn func(context.Context)) {
	select {
	case c.inbox <- fn:
	case <-c.done:
	}
}

// Snapshot returns the latest published state.
func (c *Controller) Snapshot() *Snapshot {
	return c.current.Load()
}

// Subscribe registers fn to receive every published snapshot. fn is called
// once with the current snapshot, then on the loop goroutine; it must not
// block or call back into the controller.
func (c *Controller) Subscribe(fn func(*Snapshot)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	fn(c.current.Load())
	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// publish rebuilds the snapshot and fans it out. Every mutation path ends here.
func (c *Controller) publish() {
	c.prune()

	orders := make([]domain.Order, 0, len(c.orders))
	for _, o := range c.orders {
		orders = append(orders, o.Clone())
	}
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].OrderNumber > orders[j].OrderNumber
		}
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})

	views, doubleBooked := occupancy.Project(c.tables, orders)
	for _, v := range doubleBooked {
		c.flag(v)
	}

	unattributed, _ := c.ledger.Unattributed()
	c.version++
	snap := &Snapshot{
		Version:           c.version,
		Orders:            orders,
		Tables:            views,
		Online:            c.online,
		Degraded:          c.degraded,
		Pending:           c.pending,
		UnattributedSales: unattributed,
		Violations:        append([]domain.ConsistencyError(nil), c.violations...),
	}
	c.current.Store(snap)

	c.mu.Lock()
	listeners := make([]func(*Snapshot), 0, len(c.listeners))
	for _, fn := range c.listeners {
		listeners = append(listeners, fn)
	}
	c.mu.Unlock()
	for _, fn := range listeners {
		fn(snap)
	}
}

// prune drops the oldest terminal orders beyond the resync limit. Active and
// pending-approval orders are always kept.
func (c *Controller) prune() {
	var terminal []domain.Order
	for _, o := range c.orders {
		if o.Status.IsTerminal() {
			terminal = append(terminal, o)
		}
	}
	if len(terminal) <= c.cfg.ResyncLimit {
		return
	}
	sort.Slice(terminal, func(i, j int) bool {
		return terminal[i].UpdatedAt.Before(terminal[j].UpdatedAt)
	})
	for _, o := range terminal[:len(terminal)-c.cfg.ResyncLimit] {
		delete(c.orders, o.ID)
	}
}

// Deliver implements feed.Sink.
func (c *Controller) Deliver(ev feed.Event) {
	c.post(func(context.Context) {
		if c.apply(ev.Order) && ev.Type == feed.EventInsert {
			c.notify(Outcome{Kind: OutcomeNewOrder, OrderID: ev.Order.ID, Order: ev.Order})
		}
		c.publish()
	})
}

// Resync implements feed.Sink. Shifts are reloaded with the orders so that
// shifts opened or closed on other terminals are picked up.
func (c *Controller) Resync(orders []domain.Order) {
	c.post(func(ctx context.Context) {
		for _, o := range orders {
			c.apply(o)
		}
		if c.online {
			c.reloadShifts(ctx)
		}
		c.logger.Info("resynced from store", zap.Int("orders", len(orders)))
		c.publish()
	})
}

// SetFeedState implements feed.Sink.
func (c *Controller) SetFeedState(connected bool) {
	c.post(func(context.Context) {
		if c.degraded == !connected {
			return
		}
		c.degraded = !connected
		if c.degraded {
			c.logger.Warn("change feed lost, running degraded")
		} else {
			c.logger.Info("change feed connected")
		}
		c.publish()
	})
}
