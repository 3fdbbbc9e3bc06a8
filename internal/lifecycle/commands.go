package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/kiwari-pos/terminal/internal/domain"
	"github.com/kiwari-pos/terminal/internal/enum"
	"github.com/kiwari-pos/terminal/internal/store"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var errOffline = errors.New("terminal is offline")

func (c *Controller) Approve(ctx context.Context, actor domain.Actor, orderID uuid.UUID, expected enum.OrderStatus) (CommandResult, error) {
	return c.Do(ctx, actor, ActionApprove, orderID, expected)
}

func (c *Controller) Reject(ctx context.Context, actor domain.Actor, orderID uuid.UUID, expected enum.OrderStatus) (CommandResult, error) {
	return c.Do(ctx, actor, ActionReject, orderID, expected)
}

func (c *Controller) StartPreparing(ctx context.Context, actor domain.Actor, orderID uuid.UUID, expected enum.OrderStatus) (CommandResult, error) {
	return c.Do(ctx, actor, ActionStartPreparing, orderID, expected)
}

func (c *Controller) MarkReady(ctx context.Context, actor domain.Actor, orderID uuid.UUID, expected enum.OrderStatus) (CommandResult, error) {
	return c.Do(ctx, actor, ActionMarkReady, orderID, expected)
}

func (c *Controller) MarkCompleted(ctx context.Context, actor domain.Actor, orderID uuid.UUID, expected enum.OrderStatus) (CommandResult, error) {
	return c.Do(ctx, actor, ActionMarkCompleted, orderID, expected)
}

func (c *Controller) Cancel(ctx context.Context, actor domain.Actor, orderID uuid.UUID, expected enum.OrderStatus) (CommandResult, error) {
	return c.Do(ctx, actor, ActionCancel, orderID, expected)
}

// Do issues action on an order the caller last saw in status expected.
func (c *Controller) Do(ctx context.Context, actor domain.Actor, action Action, orderID uuid.UUID, expected enum.OrderStatus) (CommandResult, error) {
	return call(ctx, c, func(ctx context.Context) (CommandResult, error) {
		return c.transition(ctx, actor, action, orderID, expected)
	})
}

func (c *Controller) transition(ctx context.Context, actor domain.Actor, action Action, id uuid.UUID, expected enum.OrderStatus) (CommandResult, error) {
	if !Permitted(actor.Role, action) {
		return CommandResult{}, fmt.Errorf("%w: %s may not %s", domain.ErrForbidden, actor.Role, action)
	}
	cur, ok := c.orders[id]
	if !ok {
		return CommandResult{}, fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
	}
	if cur.Status != expected {
		return CommandResult{}, &domain.ConflictError{OrderID: id, Expected: expected, Actual: cur.Status}
	}
	to, err := Next(cur.Status, action)
	if err != nil {
		return CommandResult{}, err
	}

	optimistic := cur.Clone()
	optimistic.Status = to
	optimistic.UpdatedAt = c.now()
	if action == ActionApprove {
		staffID, at := actor.StaffID, optimistic.UpdatedAt
		optimistic.ApprovedBy = &staffID
		optimistic.ApprovedAt = &at
	}
	c.orders[id] = optimistic
	c.publish()

	change := store.StatusChange{OrderID: id, Status: to, Expected: expected, ActorID: actor.StaffID}
	if !c.online {
		return c.enqueue(ctx, actor, cur, optimistic, change)
	}

	rec, err := c.store.UpdateOrderStatus(ctx, change)
	switch {
	case err == nil:
		c.adopt(rec)
		if to == enum.OrderStatusCompleted {
			c.accrue(ctx, actor, rec)
			c.flushLedger(ctx)
		}
		c.publish()
		return CommandResult{Order: rec.Clone()}, nil

	case errors.Is(err, domain.ErrTransport):
		c.goOffline(err)
		return c.enqueue(ctx, actor, cur, optimistic, change)

	case errors.Is(err, domain.ErrPreconditionFailed), errors.Is(err, domain.ErrNotFound):
		c.orders[id] = cur
		c.logger.Warn("status write refused by store",
			zap.String("order_id", id.String()),
			zap.String("action", string(action)),
			zap.Error(err))
		c.refresh(ctx, id)
		c.notify(Outcome{Kind: OutcomeConflict, OrderID: id, Err: err})
		c.publish()
		return CommandResult{}, err

	default:
		c.orders[id] = cur
		c.publish()
		return CommandResult{}, err
	}
}

// enqueue keeps the optimistic change and queues the write for replay. If
// the queue itself fails the change is reverted.
func (c *Controller) enqueue(ctx context.Context, actor domain.Actor, prev, optimistic domain.Order, change store.StatusChange) (CommandResult, error) {
	_, err := c.buffer.Enqueue(ctx, domain.PendingMutation{
		OrderID:        change.OrderID,
		TargetStatus:   change.Status,
		ExpectedStatus: change.Expected,
		ActorID:        change.ActorID,
		EnqueuedAt:     optimistic.UpdatedAt,
	})
	if err != nil {
		c.orders[prev.ID] = prev
		c.publish()
		return CommandResult{}, fmt.Errorf("queue offline write: %w", err)
	}
	c.pending++
	if change.Status == enum.OrderStatusCompleted {
		if shiftID := c.accrue(ctx, actor, optimistic); shiftID != uuid.Nil {
			c.accruals[optimistic.ID] = accrual{shiftID: shiftID, amount: optimistic.TotalAmount}
		}
	}
	c.publish()
	return CommandResult{Order: optimistic.Clone(), Queued: true}, nil
}

// refresh re-reads an order after the store refused a write for it.
func (c *Controller) refresh(ctx context.Context, id uuid.UUID) {
	rec, err := c.store.GetOrder(ctx, id)
	switch {
	case err == nil:
		c.adopt(rec)
	case errors.Is(err, domain.ErrNotFound):
		delete(c.orders, id)
	case errors.Is(err, domain.ErrTransport):
		c.goOffline(err)
	default:
		c.logger.Error("refresh order", zap.String("order_id", id.String()), zap.Error(err))
	}
}

// accrual is a sale credited to a shift before the store confirmed it.
type accrual struct {
	shiftID uuid.UUID
	amount  decimal.Decimal
}

// accrue credits a completed order to the actor's open shift and returns the
// shift id, or uuid.Nil when the sale is unattributed. A shift opened on
// another terminal is found by reloading shifts once.
func (c *Controller) accrue(ctx context.Context, actor domain.Actor, o domain.Order) uuid.UUID {
	if _, ok := c.ledger.Current(actor.StaffID); !ok && c.online {
		c.reloadShifts(ctx)
	}
	shiftID, ok := c.ledger.AccrueForStaff(actor.StaffID, o.TotalAmount)
	if !ok {
		c.notify(Outcome{Kind: OutcomeUnattributed, OrderID: o.ID, Order: o})
		return uuid.Nil
	}
	return shiftID
}

// settleAccrual resolves an offline completion once replay has an answer
// for it. A completion the store refused is taken back out of the shift.
func (c *Controller) settleAccrual(orderID uuid.UUID, stands bool) {
	a, ok := c.accruals[orderID]
	if !ok {
		return
	}
	delete(c.accruals, orderID)
	if stands {
		return
	}
	if c.ledger.Reverse(a.shiftID, a.amount) {
		c.logger.Warn("offline completion refused, sale moved to unattributed",
			zap.String("order_id", orderID.String()),
			zap.String("shift_id", a.shiftID.String()),
			zap.String("amount", a.amount.StringFixed(2)))
	}
}

// reloadShifts merges the store's open shifts into the ledger.
func (c *Controller) reloadShifts(ctx context.Context) {
	if err := c.ledger.Load(ctx); err != nil {
		c.logger.Warn("reload open shifts", zap.Error(err))
		c.checkTransport(err)
	}
}

// flushLedger persists accrued shift totals while online. Totals that fail
// to flush stay dirty for the next attempt.
func (c *Controller) flushLedger(ctx context.Context) {
	if !c.online || !c.ledger.Dirty() {
		return
	}
	if err := c.ledger.Flush(ctx); err != nil {
		c.logger.Warn("flush shift totals", zap.Error(err))
		if errors.Is(err, domain.ErrTransport) {
			c.goOffline(err)
		}
	}
}

// CreateOrder places a new order. It needs the store: order numbers are
// assigned there, so creation is refused while offline.
func (c *Controller) CreateOrder(ctx context.Context, actor domain.Actor, req domain.NewOrder) (domain.Order, error) {
	return call(ctx, c, func(ctx context.Context) (domain.Order, error) {
		return c.create(ctx, actor, req)
	})
}

func (c *Controller) create(ctx context.Context, actor domain.Actor, req domain.NewOrder) (domain.Order, error) {
	if !CanCreate(actor.Role) {
		return domain.Order{}, fmt.Errorf("%w: %s may not create orders", domain.ErrForbidden, actor.Role)
	}
	if err := req.Validate(); err != nil {
		return domain.Order{}, err
	}
	if !c.online {
		return domain.Order{}, domain.TransportError("create order", errOffline)
	}
	if req.TableID != nil {
		if err := c.checkTableFree(ctx, *req.TableID); err != nil {
			return domain.Order{}, err
		}
	}

	rec, err := c.store.CreateOrder(ctx, req, actor.StaffID)
	if err != nil {
		if errors.Is(err, domain.ErrTransport) {
			c.goOffline(err)
			c.publish()
		}
		return domain.Order{}, err
	}
	c.apply(rec)
	c.publish()
	c.logger.Info("order created",
		zap.String("order_id", rec.ID.String()),
		zap.String("order_number", rec.OrderNumber),
		zap.String("status", string(rec.Status)))
	return rec.Clone(), nil
}

// checkTableFree refuses a table that is inactive or already has an active
// order, locally or in the store.
func (c *Controller) checkTableFree(ctx context.Context, tableID uuid.UUID) error {
	for _, t := range c.tables {
		if t.ID == tableID && !t.IsActive {
			return domain.InvalidInput("table " + t.TableNumber + " is inactive")
		}
	}
	for _, o := range c.orders {
		if o.TableID != nil && *o.TableID == tableID && o.Status.IsActive() {
			return doubleBooking(o, tableID)
		}
	}

	active, err := c.store.ListActiveOrderForTable(ctx, tableID)
	switch {
	case err == nil:
		return doubleBooking(active, tableID)
	case errors.Is(err, domain.ErrNotFound):
		return nil
	case errors.Is(err, domain.ErrTransport):
		c.goOffline(err)
		c.publish()
		return err
	default:
		return err
	}
}

func doubleBooking(active domain.Order, tableID uuid.UUID) error {
	return &domain.ConsistencyError{
		OrderID: active.ID,
		TableID: &tableID,
		Reason:  "table already has active order " + active.OrderNumber,
	}
}
