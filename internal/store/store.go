// Package store is the typed request/response client for the backing
// Postgres store. Every failure is classified into the domain taxonomy:
// ErrNotFound, ErrPreconditionFailed (via domain.ConflictError) or
// ErrTransport, which callers treat as loss of connectivity.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kiwari-pos/terminal/internal/database"
	"github.com/kiwari-pos/terminal/internal/domain"
	"github.com/kiwari-pos/terminal/internal/enum"
	"github.com/shopspring/decimal"
)

const maxOrderNumberRetries = 3

// Pool is the subset of *pgxpool.Pool the client needs.
type Pool interface {
	database.DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
}

// Queries defines the DB methods used by the client.
// Satisfied by *database.Queries (and its WithTx variant).
type Queries interface {
	GetNextOrderNumber(ctx context.Context, businessID uuid.UUID) (int32, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	GetOrder(ctx context.Context, arg database.GetOrderParams) (database.Order, error)
	ListRecentOrders(ctx context.Context, arg database.ListRecentOrdersParams) ([]database.Order, error)
	GetActiveOrderForTable(ctx context.Context, arg database.GetActiveOrderForTableParams) (database.Order, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	ListTables(ctx context.Context, businessID uuid.UUID) ([]database.RestaurantTable, error)
	CreateShift(ctx context.Context, arg database.CreateShiftParams) (database.Shift, error)
	AddShiftTotals(ctx context.Context, arg database.AddShiftTotalsParams) (database.Shift, error)
	CloseShift(ctx context.Context, arg database.CloseShiftParams) (database.Shift, error)
	ListOpenShifts(ctx context.Context, businessID uuid.UUID) ([]database.Shift, error)
	ListClosedShifts(ctx context.Context, arg database.ListClosedShiftsParams) ([]database.Shift, error)
}

// NewQueries creates a Queries from a DBTX (pool or tx).
type NewQueries func(db database.DBTX) Queries

// StatusChange is a conditional status write: it lands only if the stored
// status still equals Expected.
type StatusChange struct {
	OrderID  uuid.UUID
	Status   enum.OrderStatus
	Expected enum.OrderStatus
	ActorID  uuid.UUID // recorded as approver when PENDING_APPROVAL → NEW
}

// Orders is the order/table surface consumed by the lifecycle core.
type Orders interface {
	CreateOrder(ctx context.Context, req domain.NewOrder, createdBy uuid.UUID) (domain.Order, error)
	UpdateOrderStatus(ctx context.Context, change StatusChange) (domain.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (domain.Order, error)
	ListRecentOrders(ctx context.Context, limit int) ([]domain.Order, error)
	ListActiveOrderForTable(ctx context.Context, tableID uuid.UUID) (domain.Order, error)
	ListTables(ctx context.Context) ([]domain.Table, error)
	Ping(ctx context.Context) error
}

// Options configures a Client.
type Options struct {
	BusinessID        uuid.UUID
	OrderNumberPrefix string
	Timeout           time.Duration
}

// Client talks to Postgres on behalf of one business.
type Client struct {
	pool     Pool
	queries  Queries
	newStore NewQueries
	opts     Options
}

// New creates a Client. newStore builds query sets bound to a transaction.
func New(pool Pool, newStore NewQueries, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.OrderNumberPrefix == "" {
		opts.OrderNumberPrefix = "ORD"
	}
	return &Client{
		pool:     pool,
		queries:  newStore(pool),
		newStore: newStore,
		opts:     opts,
	}
}

// NewFromPool is the production wiring over a pgx pool.
func NewFromPool(pool Pool, opts Options) *Client {
	return New(pool, func(db database.DBTX) Queries { return database.New(db) }, opts)
}

// withTimeout bounds a single store round-trip. A write that does not get an
// acknowledgment in time surfaces as ErrTransport.
func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.opts.Timeout)
}

// Ping checks that the store is reachable.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return classify("ping", c.pool.Ping(ctx))
}

// --- Conversions ---

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}

func uuidPtr(u pgtype.UUID) *uuid.UUID {
	if !u.Valid {
		return nil
	}
	id := uuid.UUID(u.Bytes)
	return &id
}

func toPgUUID(id *uuid.UUID) pgtype.UUID {
	if id == nil || *id == uuid.Nil {
		return pgtype.UUID{}
	}
	return pgtype.UUID{Bytes: *id, Valid: true}
}

func toPgText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}
