package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/kiwari-pos/terminal/internal/enum"
	"github.com/shopspring/decimal"
)

// Shift is a bounded work session for one staff member.
type Shift struct {
	ID          uuid.UUID        `json:"id"`
	StaffID     uuid.UUID        `json:"staff_id"`
	Status      enum.ShiftStatus `json:"status"`
	StartedAt   time.Time        `json:"started_at"`
	EndedAt     *time.Time       `json:"ended_at"`
	OpeningCash decimal.Decimal  `json:"opening_cash"`
	ClosingCash *decimal.Decimal `json:"closing_cash"`
	TotalSales  decimal.Decimal  `json:"total_sales"`
	OrderCount  int              `json:"order_count"`
	Notes       string           `json:"notes"`
}

// IsOpen reports whether the shift still accrues sales.
func (s Shift) IsOpen() bool {
	return s.Status == enum.ShiftStatusOpen
}

// Variance is closing cash − opening cash − accrued sales. It is zero until
// the shift is closed and may be negative.
func (s Shift) Variance() decimal.Decimal {
	if s.ClosingCash == nil {
		return decimal.Zero
	}
	return s.ClosingCash.Sub(s.OpeningCash).Sub(s.TotalSales)
}

// ExpectedCash is what the drawer should hold: opening cash plus sales.
func (s Shift) ExpectedCash() decimal.Decimal {
	return s.OpeningCash.Add(s.TotalSales)
}

// ShiftDelta is sales accrued locally and not yet added to the stored totals.
// Terminals only ever send deltas, so concurrent accruals on different
// terminals add up instead of overwriting each other.
type ShiftDelta struct {
	Sales  decimal.Decimal
	Orders int
}

// IsZero reports whether the delta carries nothing to persist.
func (d ShiftDelta) IsZero() bool {
	return d.Sales.IsZero() && d.Orders == 0
}

// Add returns d with one more accrual of amount (or one fewer, for negative n).
func (d ShiftDelta) Add(amount decimal.Decimal, n int) ShiftDelta {
	return ShiftDelta{Sales: d.Sales.Add(amount), Orders: d.Orders + n}
}

// ShiftClosing is what closing a shift records.
type ShiftClosing struct {
	ClosingCash decimal.Decimal
	Notes       string
	// Delta is folded into the stored totals in the same statement.
	Delta ShiftDelta
}
