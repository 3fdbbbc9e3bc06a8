package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kiwari-pos/terminal/internal/database"
	"github.com/kiwari-pos/terminal/internal/domain"
	"github.com/kiwari-pos/terminal/internal/enum"
	"github.com/shopspring/decimal"
)

const (
	openShiftConstraint = "shifts_one_open_per_staff"
	shiftStaffFK        = "shifts_staff_id_fkey"
)

// Shifts is the persistence surface of the shift ledger.
type Shifts interface {
	CreateShift(ctx context.Context, staffID uuid.UUID, openingCash decimal.Decimal) (domain.Shift, error)
	AddShiftTotals(ctx context.Context, shiftID uuid.UUID, delta domain.ShiftDelta) (domain.Shift, error)
	CloseShift(ctx context.Context, shiftID uuid.UUID, closing domain.ShiftClosing) (domain.Shift, error)
	ListOpenShifts(ctx context.Context) ([]domain.Shift, error)
	ListClosedShifts(ctx context.Context, limit int) ([]domain.Shift, error)
}

// CreateShift opens a shift. The store enforces one open shift per staff.
func (c *Client) CreateShift(ctx context.Context, staffID uuid.UUID, openingCash decimal.Decimal) (domain.Shift, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	row, err := c.queries.CreateShift(ctx, database.CreateShiftParams{
		BusinessID:  c.opts.BusinessID,
		StaffID:     staffID,
		OpeningCash: decimalToNumeric(openingCash),
	})
	if err != nil {
		if isUniqueViolation(err, openShiftConstraint) {
			return domain.Shift{}, fmt.Errorf("create shift: %w", domain.ErrShiftAlreadyOpen)
		}
		if isForeignKeyViolation(err, shiftStaffFK) {
			return domain.Shift{}, domain.InvalidInput("staff_id does not name a staff member")
		}
		return domain.Shift{}, classify("create shift", err)
	}
	return toDomainShift(row), nil
}

// AddShiftTotals adds delta to the stored totals of an open shift and
// returns the updated row.
func (c *Client) AddShiftTotals(ctx context.Context, shiftID uuid.UUID, delta domain.ShiftDelta) (domain.Shift, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	row, err := c.queries.AddShiftTotals(ctx, database.AddShiftTotalsParams{
		ID:         shiftID,
		TotalSales: decimalToNumeric(delta.Sales),
		OrderCount: int32(delta.Orders),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Shift{}, fmt.Errorf("add shift totals: %w", domain.ErrShiftNotOpen)
		}
		return domain.Shift{}, classify("add shift totals", err)
	}
	return toDomainShift(row), nil
}

// CloseShift stores closing cash and notes, folding the unflushed delta
// into the totals.
func (c *Client) CloseShift(ctx context.Context, shiftID uuid.UUID, closing domain.ShiftClosing) (domain.Shift, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	row, err := c.queries.CloseShift(ctx, database.CloseShiftParams{
		ID:          shiftID,
		ClosingCash: decimalToNumeric(closing.ClosingCash),
		TotalSales:  decimalToNumeric(closing.Delta.Sales),
		OrderCount:  int32(closing.Delta.Orders),
		Notes:       toPgText(closing.Notes),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Shift{}, fmt.Errorf("close shift: %w", domain.ErrShiftNotOpen)
		}
		return domain.Shift{}, classify("close shift", err)
	}
	return toDomainShift(row), nil
}

// ListOpenShifts returns the shifts still open for the business.
func (c *Client) ListOpenShifts(ctx context.Context) ([]domain.Shift, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	rows, err := c.queries.ListOpenShifts(ctx, c.opts.BusinessID)
	if err != nil {
		return nil, classify("list open shifts", err)
	}
	shifts := make([]domain.Shift, 0, len(rows))
	for _, r := range rows {
		shifts = append(shifts, toDomainShift(r))
	}
	return shifts, nil
}

// ListClosedShifts returns the most recently closed shifts, newest first.
func (c *Client) ListClosedShifts(ctx context.Context, limit int) ([]domain.Shift, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	rows, err := c.queries.ListClosedShifts(ctx, database.ListClosedShiftsParams{
		BusinessID: c.opts.BusinessID,
		Limit:      int32(limit),
	})
	if err != nil {
		return nil, classify("list closed shifts", err)
	}
	shifts := make([]domain.Shift, 0, len(rows))
	for _, r := range rows {
		shifts = append(shifts, toDomainShift(r))
	}
	return shifts, nil
}

func toDomainShift(r database.Shift) domain.Shift {
	s := domain.Shift{
		ID:          r.ID,
		StaffID:     r.StaffID,
		Status:      enum.ShiftStatus(r.Status),
		StartedAt:   r.StartedAt,
		OpeningCash: numericToDecimal(r.OpeningCash),
		TotalSales:  numericToDecimal(r.TotalSales),
		OrderCount:  int(r.OrderCount),
		Notes:       r.Notes.String,
	}
	if r.EndedAt.Valid {
		t := r.EndedAt.Time
		s.EndedAt = &t
	}
	if r.ClosingCash.Valid {
		d := numericToDecimal(r.ClosingCash)
		s.ClosingCash = &d
	}
	return s
}
