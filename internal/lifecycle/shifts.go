package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/kiwari-pos/terminal/internal/domain"
	"github.com/shopspring/decimal"
)

// OpenShift starts a shift for staffID, or for the actor when staffID is
// uuid.Nil. Owners and managers may open shifts for other staff. The store
// must be reachable.
func (c *Controller) OpenShift(ctx context.Context, actor domain.Actor, staffID uuid.UUID, openingCash decimal.Decimal) (domain.Shift, error) {
	if staffID == uuid.Nil {
		staffID = actor.StaffID
	}
	return call(ctx, c, func(ctx context.Context) (domain.Shift, error) {
		if staffID != actor.StaffID && !supervises(actor.Role) {
			return domain.Shift{}, fmt.Errorf("%w: %s may not open a shift for another staff member", domain.ErrForbidden, actor.Role)
		}
		if !c.online {
			return domain.Shift{}, domain.TransportError("open shift", errOffline)
		}
		s, err := c.ledger.Open(ctx, staffID, openingCash)
		c.checkTransport(err)
		return s, err
	})
}

// CloseShift ends a shift. Staff close their own; owners and managers may
// close anyone's.
func (c *Controller) CloseShift(ctx context.Context, actor domain.Actor, shiftID uuid.UUID, closingCash decimal.Decimal, notes string) (domain.Shift, error) {
	return call(ctx, c, func(ctx context.Context) (domain.Shift, error) {
		s, ok := c.ledger.Get(shiftID)
		if !ok && c.online {
			c.reloadShifts(ctx)
			s, ok = c.ledger.Get(shiftID)
		}
		if !ok {
			return domain.Shift{}, fmt.Errorf("shift %s: %w", shiftID, domain.ErrShiftNotOpen)
		}
		if s.StaffID != actor.StaffID && !supervises(actor.Role) {
			return domain.Shift{}, fmt.Errorf("%w: %s may not close another staff member's shift", domain.ErrForbidden, actor.Role)
		}
		if !c.online {
			return domain.Shift{}, domain.TransportError("close shift", errOffline)
		}
		closed, err := c.ledger.Close(ctx, shiftID, closingCash, notes)
		c.checkTransport(err)
		return closed, err
	})
}

// CurrentShift returns the actor's open shift with its running totals.
func (c *Controller) CurrentShift(ctx context.Context, actor domain.Actor) (domain.Shift, error) {
	return call(ctx, c, func(ctx context.Context) (domain.Shift, error) {
		s, ok := c.ledger.Current(actor.StaffID)
		if !ok && c.online {
			c.reloadShifts(ctx)
			s, ok = c.ledger.Current(actor.StaffID)
		}
		if !ok {
			return domain.Shift{}, fmt.Errorf("staff %s: %w", actor.StaffID, domain.ErrShiftNotOpen)
		}
		return s, nil
	})
}

// RecentShifts lists the most recently closed shifts for owners and
// managers. The store must be reachable.
func (c *Controller) RecentShifts(ctx context.Context, actor domain.Actor, limit int) ([]domain.Shift, error) {
	return call(ctx, c, func(ctx context.Context) ([]domain.Shift, error) {
		if !supervises(actor.Role) {
			return nil, fmt.Errorf("%w: %s may not list shifts", domain.ErrForbidden, actor.Role)
		}
		if !c.online {
			return nil, domain.TransportError("list shifts", errOffline)
		}
		shifts, err := c.ledger.History(ctx, limit)
		c.checkTransport(err)
		return shifts, err
	})
}

func (c *Controller) checkTransport(err error) {
	if errors.Is(err, domain.ErrTransport) {
		c.goOffline(err)
		c.publish()
	}
}
