package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kiwari-pos/terminal/internal/database"
	"github.com/kiwari-pos/terminal/internal/domain"
	"github.com/kiwari-pos/terminal/internal/enum"
)

const orderNumberConstraint = "orders_business_id_order_number_key"

// CreateOrder inserts a new order with the next per-business order number.
func (c *Client) CreateOrder(ctx context.Context, req domain.NewOrder, createdBy uuid.UUID) (domain.Order, error) {
	if err := req.Validate(); err != nil {
		return domain.Order{}, err
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	// Retry loop: handles order_number unique constraint race condition.
	var lastErr error
	for attempt := 0; attempt < maxOrderNumberRetries; attempt++ {
		order, err := c.createOrderTx(ctx, req, createdBy)
		if err == nil {
			return order, nil
		}
		if isUniqueViolation(err, orderNumberConstraint) {
			lastErr = err
			continue
		}
		return domain.Order{}, classify("create order", err)
	}
	return domain.Order{}, classify("create order", lastErr)
}

func (c *Client) createOrderTx(ctx context.Context, req domain.NewOrder, createdBy uuid.UUID) (domain.Order, error) {
	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return domain.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	q := c.newStore(tx)

	seq, err := q.GetNextOrderNumber(ctx, c.opts.BusinessID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("next order number: %w", err)
	}

	items, err := json.Marshal(req.Items)
	if err != nil {
		return domain.Order{}, fmt.Errorf("encode items: %w", err)
	}
	var customer []byte
	if req.Customer != nil {
		if customer, err = json.Marshal(req.Customer); err != nil {
			return domain.Order{}, fmt.Errorf("encode customer: %w", err)
		}
	}

	row, err := q.CreateOrder(ctx, database.CreateOrderParams{
		BusinessID:   c.opts.BusinessID,
		OrderNumber:  fmt.Sprintf("%s-%03d", c.opts.OrderNumberPrefix, seq),
		Status:       string(req.Status),
		OrderType:    string(req.OrderType),
		CustomerInfo: customer,
		Items:        items,
		TotalAmount:  decimalToNumeric(req.Total()),
		Notes:        toPgText(req.Notes),
		TableID:      toPgUUID(req.TableID),
		CreatedBy:    toPgUUID(&createdBy),
	})
	if err != nil {
		return domain.Order{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Order{}, fmt.Errorf("commit tx: %w", err)
	}
	return toDomainOrder(row)
}

// UpdateOrderStatus writes a new status conditioned on the expected one.
// When nothing matched, the order is re-read to tell a missing order
// (ErrNotFound) from a status that moved on (*domain.ConflictError).
func (c *Client) UpdateOrderStatus(ctx context.Context, change StatusChange) (domain.Order, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	row, err := c.queries.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
		Status:         string(change.Status),
		ApprovedBy:     toPgUUID(&change.ActorID),
		ID:             change.OrderID,
		BusinessID:     c.opts.BusinessID,
		ExpectedStatus: string(change.Expected),
	})
	if err == nil {
		return toDomainOrder(row)
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, classify("update order status", err)
	}

	current, err := c.queries.GetOrder(ctx, database.GetOrderParams{ID: change.OrderID, BusinessID: c.opts.BusinessID})
	if err != nil {
		return domain.Order{}, classify("update order status", err)
	}
	return domain.Order{}, &domain.ConflictError{
		OrderID:  change.OrderID,
		Expected: change.Expected,
		Actual:   enum.OrderStatus(current.Status),
	}
}

// GetOrder fetches one order by id.
func (c *Client) GetOrder(ctx context.Context, id uuid.UUID) (domain.Order, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	row, err := c.queries.GetOrder(ctx, database.GetOrderParams{ID: id, BusinessID: c.opts.BusinessID})
	if err != nil {
		return domain.Order{}, classify("get order", err)
	}
	return toDomainOrder(row)
}

// ListRecentOrders returns up to limit orders, newest first.
func (c *Client) ListRecentOrders(ctx context.Context, limit int) ([]domain.Order, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	rows, err := c.queries.ListRecentOrders(ctx, database.ListRecentOrdersParams{
		BusinessID: c.opts.BusinessID,
		Limit:      int32(limit),
	})
	if err != nil {
		return nil, classify("list recent orders", err)
	}
	orders := make([]domain.Order, 0, len(rows))
	for _, r := range rows {
		o, err := toDomainOrder(r)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, nil
}

// ListActiveOrderForTable returns the most recent NEW/PREPARING/READY order
// linked to the table, or ErrNotFound.
func (c *Client) ListActiveOrderForTable(ctx context.Context, tableID uuid.UUID) (domain.Order, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	row, err := c.queries.GetActiveOrderForTable(ctx, database.GetActiveOrderForTableParams{
		TableID:    pgtype.UUID{Bytes: tableID, Valid: true},
		BusinessID: c.opts.BusinessID,
	})
	if err != nil {
		return domain.Order{}, classify("active order for table", err)
	}
	return toDomainOrder(row)
}

// ListTables returns every table of the business.
func (c *Client) ListTables(ctx context.Context) ([]domain.Table, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	rows, err := c.queries.ListTables(ctx, c.opts.BusinessID)
	if err != nil {
		return nil, classify("list tables", err)
	}
	tables := make([]domain.Table, 0, len(rows))
	for _, r := range rows {
		tables = append(tables, domain.Table{
			ID:          r.ID,
			BusinessID:  r.BusinessID,
			TableNumber: r.TableNumber,
			Capacity:    int(r.Capacity),
			Location:    r.LocationArea.String,
			IsActive:    r.IsActive,
			QRPayload:   r.QrCodeUrl.String,
		})
	}
	return tables, nil
}

func toDomainOrder(r database.Order) (domain.Order, error) {
	o := domain.Order{
		ID:          r.ID,
		BusinessID:  r.BusinessID,
		OrderNumber: r.OrderNumber,
		Status:      enum.OrderStatus(r.Status),
		OrderType:   enum.OrderType(r.OrderType),
		TotalAmount: numericToDecimal(r.TotalAmount),
		Notes:       r.Notes.String,
		TableID:     uuidPtr(r.TableID),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
		ApprovedBy:  uuidPtr(r.ApprovedBy),
	}
	if r.ApprovedAt.Valid {
		t := r.ApprovedAt.Time
		o.ApprovedAt = &t
	}
	if len(r.Items) > 0 {
		if err := json.Unmarshal(r.Items, &o.Items); err != nil {
			return domain.Order{}, fmt.Errorf("decode items of order %s: %w", r.ID, err)
		}
	}
	if len(r.CustomerInfo) > 0 && string(r.CustomerInfo) != "null" {
		o.Customer = &domain.CustomerInfo{}
		if err := json.Unmarshal(r.CustomerInfo, o.Customer); err != nil {
			return domain.Order{}, fmt.Errorf("decode customer of order %s: %w", r.ID, err)
		}
	}
	return o, nil
}
