// Package shift tracks open staff shifts and the sales accrued to them.
package shift

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/kiwari-pos/terminal/internal/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Store persists shifts. Satisfied by *store.Client.
type Store interface {
	CreateShift(ctx context.Context, staffID uuid.UUID, openingCash decimal.Decimal) (domain.Shift, error)
	AddShiftTotals(ctx context.Context, shiftID uuid.UUID, delta domain.ShiftDelta) (domain.Shift, error)
	CloseShift(ctx context.Context, shiftID uuid.UUID, closing domain.ShiftClosing) (domain.Shift, error)
	ListOpenShifts(ctx context.Context) ([]domain.Shift, error)
	ListClosedShifts(ctx context.Context, limit int) ([]domain.Shift, error)
}

type entry struct {
	shift   domain.Shift      // stored totals plus pending
	pending domain.ShiftDelta // accrued here, not yet added to the store
}

// Ledger accrues completed sales to open shifts. Accrual is in-memory and
// persisted by Flush as increments, so several terminals can accrue to the
// same shift; Open and Close go to the store directly.
//
// A Ledger has a single writer: the lifecycle loop. It is not safe for
// concurrent use.
type Ledger struct {
	store  Store
	logger *zap.Logger

	open    map[uuid.UUID]*entry    // open shifts by shift id
	byStaff map[uuid.UUID]uuid.UUID // staff id → open shift id

	unattributed      decimal.Decimal
	unattributedCount int
}

func NewLedger(store Store, logger *zap.Logger) *Ledger {
	return &Ledger{
		store:   store,
		logger:  logger,
		open:    make(map[uuid.UUID]*entry),
		byStaff: make(map[uuid.UUID]uuid.UUID),
	}
}

// Load merges the store's open shifts into the in-memory view. Shifts
// opened elsewhere start being tracked, shifts closed elsewhere are dropped
// and every tracked shift takes the stored totals plus its pending delta.
func (l *Ledger) Load(ctx context.Context) error {
	shifts, err := l.store.ListOpenShifts(ctx)
	if err != nil {
		return fmt.Errorf("load open shifts: %w", err)
	}
	seen := make(map[uuid.UUID]bool, len(shifts))
	for _, s := range shifts {
		seen[s.ID] = true
		e, ok := l.open[s.ID]
		if !ok {
			l.track(s)
			continue
		}
		s.TotalSales = s.TotalSales.Add(e.pending.Sales)
		s.OrderCount += e.pending.Orders
		e.shift = s
		l.byStaff[s.StaffID] = s.ID
	}
	for id, e := range l.open {
		if !seen[id] {
			l.closedElsewhere(e)
		}
	}
	return nil
}

func (l *Ledger) track(s domain.Shift) {
	l.open[s.ID] = &entry{shift: s}
	l.byStaff[s.StaffID] = s.ID
}

func (l *Ledger) untrack(s domain.Shift) {
	delete(l.open, s.ID)
	if l.byStaff[s.StaffID] == s.ID {
		delete(l.byStaff, s.StaffID)
	}
}

// Open starts a shift for staffID.
func (l *Ledger) Open(ctx context.Context, staffID uuid.UUID, openingCash decimal.Decimal) (domain.Shift, error) {
	if openingCash.IsNegative() {
		return domain.Shift{}, domain.InvalidInput("opening_cash must be >= 0")
	}
	if _, ok := l.byStaff[staffID]; ok {
		return domain.Shift{}, domain.ErrShiftAlreadyOpen
	}
	s, err := l.store.CreateShift(ctx, staffID, openingCash)
	if err != nil {
		return domain.Shift{}, err
	}
	l.track(s)
	l.logger.Info("shift opened",
		zap.String("shift_id", s.ID.String()),
		zap.String("staff_id", staffID.String()),
		zap.String("opening_cash", openingCash.StringFixed(2)))
	return s, nil
}

// Close ends an open shift. The pending delta is folded into the stored
// totals by the same write.
func (l *Ledger) Close(ctx context.Context, shiftID uuid.UUID, closingCash decimal.Decimal, notes string) (domain.Shift, error) {
	e, ok := l.open[shiftID]
	if !ok {
		return domain.Shift{}, domain.ErrShiftNotOpen
	}
	if closingCash.IsNegative() {
		return domain.Shift{}, domain.InvalidInput("closing_cash must be >= 0")
	}

	closed, err := l.store.CloseShift(ctx, shiftID, domain.ShiftClosing{
		ClosingCash: closingCash,
		Notes:       notes,
		Delta:       e.pending,
	})
	if err != nil {
		if errors.Is(err, domain.ErrShiftNotOpen) {
			l.closedElsewhere(e)
		}
		return domain.Shift{}, err
	}
	l.untrack(e.shift)
	l.logger.Info("shift closed",
		zap.String("shift_id", closed.ID.String()),
		zap.String("total_sales", closed.TotalSales.StringFixed(2)),
		zap.Int("order_count", closed.OrderCount),
		zap.String("variance", closed.Variance().StringFixed(2)))
	return closed, nil
}

// closedElsewhere stops accruing to a shift another terminal closed. Sales
// it never managed to persist become unattributed.
func (l *Ledger) closedElsewhere(e *entry) {
	l.untrack(e.shift)
	l.logger.Warn("shift closed elsewhere", zap.String("shift_id", e.shift.ID.String()))
	if e.pending.IsZero() {
		return
	}
	l.unattributed = l.unattributed.Add(e.pending.Sales)
	l.unattributedCount += e.pending.Orders
	l.logger.Warn("unpersisted shift sales moved to unattributed",
		zap.String("shift_id", e.shift.ID.String()),
		zap.String("amount", e.pending.Sales.StringFixed(2)),
		zap.Int("orders", e.pending.Orders))
}

// Accrue adds a completed order's total to an open shift. For a closed or
// unknown shift the amount is recorded as unattributed and false returned.
func (l *Ledger) Accrue(shiftID uuid.UUID, amount decimal.Decimal) bool {
	e, ok := l.open[shiftID]
	if !ok {
		l.addUnattributed(amount, zap.String("shift_id", shiftID.String()))
		return false
	}
	e.shift.TotalSales = e.shift.TotalSales.Add(amount)
	e.shift.OrderCount++
	e.pending = e.pending.Add(amount, 1)
	return true
}

// Reverse takes back an accrual whose sale did not stand, moving the amount
// to unattributed. It returns false when the shift is no longer tracked here;
// once persisted to a closed shift, an accrual cannot be taken back.
func (l *Ledger) Reverse(shiftID uuid.UUID, amount decimal.Decimal) bool {
	e, ok := l.open[shiftID]
	if !ok {
		l.logger.Warn("cannot reverse accrual, shift not open",
			zap.String("shift_id", shiftID.String()),
			zap.String("amount", amount.StringFixed(2)))
		return false
	}
	e.shift.TotalSales = e.shift.TotalSales.Sub(amount)
	e.shift.OrderCount--
	e.pending = e.pending.Add(amount.Neg(), -1)
	l.addUnattributed(amount, zap.String("shift_id", shiftID.String()))
	return true
}

// AccrueForStaff routes a sale to the staff member's open shift.
func (l *Ledger) AccrueForStaff(staffID uuid.UUID, amount decimal.Decimal) (uuid.UUID, bool) {
	shiftID, ok := l.byStaff[staffID]
	if !ok {
		l.addUnattributed(amount, zap.String("staff_id", staffID.String()))
		return uuid.Nil, false
	}
	return shiftID, l.Accrue(shiftID, amount)
}

func (l *Ledger) addUnattributed(amount decimal.Decimal, field zap.Field) {
	l.unattributed = l.unattributed.Add(amount)
	l.unattributedCount++
	l.logger.Warn("sale completed outside an open shift",
		field, zap.String("amount", amount.StringFixed(2)))
}

// Flush adds every pending delta to the stored totals. It stops at the
// first failure; unflushed deltas stay pending.
func (l *Ledger) Flush(ctx context.Context) error {
	for id, e := range l.open {
		if e.pending.IsZero() {
			continue
		}
		row, err := l.store.AddShiftTotals(ctx, id, e.pending)
		switch {
		case err == nil:
			e.shift = row
			e.pending = domain.ShiftDelta{}
		case errors.Is(err, domain.ErrShiftNotOpen):
			l.closedElsewhere(e)
		default:
			return fmt.Errorf("flush shift %s: %w", id, err)
		}
	}
	return nil
}

// Dirty reports whether any totals await Flush.
func (l *Ledger) Dirty() bool {
	for _, e := range l.open {
		if !e.pending.IsZero() {
			return true
		}
	}
	return false
}

// History returns the most recently closed shifts of the business.
func (l *Ledger) History(ctx context.Context, limit int) ([]domain.Shift, error) {
	shifts, err := l.store.ListClosedShifts(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list closed shifts: %w", err)
	}
	return shifts, nil
}

// Current returns the open shift of staffID.
func (l *Ledger) Current(staffID uuid.UUID) (domain.Shift, bool) {
	id, ok := l.byStaff[staffID]
	if !ok {
		return domain.Shift{}, false
	}
	return l.open[id].shift, true
}

// Get returns an open shift by id.
func (l *Ledger) Get(shiftID uuid.UUID) (domain.Shift, bool) {
	e, ok := l.open[shiftID]
	if !ok {
		return domain.Shift{}, false
	}
	return e.shift, true
}

// Unattributed returns the sales completed with no open shift to carry them.
func (l *Ledger) Unattributed() (decimal.Decimal, int) {
	return l.unattributed, l.unattributedCount
}
