package lifecycle

import (
	"errors"

	"github.com/kiwari-pos/terminal/internal/domain"
	"go.uber.org/zap"
)

// apply reconciles a record from the feed or a resync and reports whether
// the local copy changed. Last write wins on UpdatedAt; terminal orders
// never change status again.
func (c *Controller) apply(rec domain.Order) bool {
	c.checkTotal(rec)

	cur, ok := c.orders[rec.ID]
	if !ok {
		c.orders[rec.ID] = rec
		return true
	}
	if !rec.NewerThan(cur) {
		return false
	}
	if cur.Status.IsTerminal() && rec.Status != cur.Status {
		c.flag(domain.ConsistencyError{
			OrderID: rec.ID,
			TableID: rec.TableID,
			Reason:  "received " + string(rec.Status) + " for order already " + string(cur.Status),
		})
		return false
	}
	c.orders[rec.ID] = rec
	return true
}

// adopt replaces the local copy with a store acknowledgment. The store is
// authoritative for writes this terminal made, whatever the clocks say.
func (c *Controller) adopt(rec domain.Order) {
	c.checkTotal(rec)
	c.orders[rec.ID] = rec
}

func (c *Controller) checkTotal(o domain.Order) {
	var ce *domain.ConsistencyError
	if err := o.CheckTotal(); errors.As(err, &ce) {
		c.flag(*ce)
	}
}

// flag records a consistency violation once and reports it. Nothing is
// corrected automatically.
func (c *Controller) flag(v domain.ConsistencyError) {
	key := v.OrderID.String() + "|" + v.Reason
	if _, seen := c.flagged[key]; seen {
		return
	}
	c.flagged[key] = struct{}{}
	c.violations = append(c.violations, v)

	fields := []zap.Field{zap.String("order_id", v.OrderID.String()), zap.String("reason", v.Reason)}
	if v.TableID != nil {
		fields = append(fields, zap.String("table_id", v.TableID.String()))
	}
	c.logger.Warn("consistency violation", fields...)
	c.notify(Outcome{Kind: OutcomeViolation, OrderID: v.OrderID, Err: &v})
}

// Violations returns every flagged consistency violation, oldest first.
func (c *Controller) Violations() []domain.ConsistencyError {
	return c.Snapshot().Violations
}
