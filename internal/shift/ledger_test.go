package shift

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kiwari-pos/terminal/internal/domain"
	"github.com/kiwari-pos/terminal/internal/enum"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memStore mimics the shifts table, including the one-open-per-staff index.
type memStore struct {
	shifts   map[uuid.UUID]domain.Shift
	saved    int
	closeErr error
	saveErr  error
}

func newMemStore() *memStore {
	return &memStore{shifts: make(map[uuid.UUID]domain.Shift)}
}

func (m *memStore) CreateShift(ctx context.Context, staffID uuid.UUID, openingCash decimal.Decimal) (domain.Shift, error) {
	for _, s := range m.shifts {
		if s.StaffID == staffID && s.IsOpen() {
			return domain.Shift{}, domain.ErrShiftAlreadyOpen
		}
	}
	s := domain.Shift{
		ID:          uuid.New(),
		StaffID:     staffID,
		Status:      enum.ShiftStatusOpen,
		StartedAt:   time.Now(),
		OpeningCash: openingCash,
		TotalSales:  decimal.Zero,
	}
	m.shifts[s.ID] = s
	return s, nil
}

func (m *memStore) AddShiftTotals(ctx context.Context, shiftID uuid.UUID, delta domain.ShiftDelta) (domain.Shift, error) {
	if m.saveErr != nil {
		return domain.Shift{}, m.saveErr
	}
	cur, ok := m.shifts[shiftID]
	if !ok || !cur.IsOpen() {
		return domain.Shift{}, domain.ErrShiftNotOpen
	}
	cur.TotalSales = cur.TotalSales.Add(delta.Sales)
	cur.OrderCount += delta.Orders
	m.shifts[shiftID] = cur
	m.saved++
	return cur, nil
}

func (m *memStore) CloseShift(ctx context.Context, shiftID uuid.UUID, closing domain.ShiftClosing) (domain.Shift, error) {
	if m.closeErr != nil {
		return domain.Shift{}, m.closeErr
	}
	cur, ok := m.shifts[shiftID]
	if !ok || !cur.IsOpen() {
		return domain.Shift{}, domain.ErrShiftNotOpen
	}
	now := time.Now()
	cash := closing.ClosingCash
	cur.Status = enum.ShiftStatusClosed
	cur.EndedAt = &now
	cur.ClosingCash = &cash
	cur.TotalSales = cur.TotalSales.Add(closing.Delta.Sales)
	cur.OrderCount += closing.Delta.Orders
	cur.Notes = closing.Notes
	m.shifts[shiftID] = cur
	return cur, nil
}

func (m *memStore) ListOpenShifts(ctx context.Context) ([]domain.Shift, error) {
	var out []domain.Shift
	for _, s := range m.shifts {
		if s.IsOpen() {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memStore) ListClosedShifts(ctx context.Context, limit int) ([]domain.Shift, error) {
	var out []domain.Shift
	for _, s := range m.shifts {
		if !s.IsOpen() && len(out) < limit {
			out = append(out, s)
		}
	}
	return out, nil
}

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestLedger_ShiftScenario(t *testing.T) {
	ctx := context.Background()
	l := NewLedger(newMemStore(), zap.NewNop())
	staff := uuid.New()

	s, err := l.Open(ctx, staff, d(100))
	require.NoError(t, err)

	assert.True(t, l.Accrue(s.ID, d(40)))
	assert.True(t, l.Accrue(s.ID, d(25)))

	closed, err := l.Close(ctx, s.ID, d(150), "")
	require.NoError(t, err)

	assert.Equal(t, enum.ShiftStatusClosed, closed.Status)
	assert.True(t, closed.TotalSales.Equal(d(65)), "total sales = %s", closed.TotalSales)
	assert.Equal(t, 2, closed.OrderCount)
	assert.True(t, closed.Variance().Equal(d(-15)), "variance = %s", closed.Variance())
}

func TestLedger_OpenTwiceFails(t *testing.T) {
	ctx := context.Background()
	l := NewLedger(newMemStore(), zap.NewNop())
	staff := uuid.New()

	_, err := l.Open(ctx, staff, d(0))
	require.NoError(t, err)

	_, err = l.Open(ctx, staff, d(50))
	assert.ErrorIs(t, err, domain.ErrShiftAlreadyOpen)
}

func TestLedger_OpenRejectedByStore(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	staff := uuid.New()
	// Opened on another terminal; this ledger has not loaded it.
	_, err := st.CreateShift(ctx, staff, d(0))
	require.NoError(t, err)

	l := NewLedger(st, zap.NewNop())
	_, err = l.Open(ctx, staff, d(10))
	assert.ErrorIs(t, err, domain.ErrShiftAlreadyOpen)
}

func TestLedger_NegativeCashRejected(t *testing.T) {
	ctx := context.Background()
	l := NewLedger(newMemStore(), zap.NewNop())

	_, err := l.Open(ctx, uuid.New(), d(-1))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	s, err := l.Open(ctx, uuid.New(), d(10))
	require.NoError(t, err)
	_, err = l.Close(ctx, s.ID, d(-5), "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestLedger_CloseWhenNotOpen(t *testing.T) {
	ctx := context.Background()
	l := NewLedger(newMemStore(), zap.NewNop())

	_, err := l.Close(ctx, uuid.New(), d(10), "")
	assert.ErrorIs(t, err, domain.ErrShiftNotOpen)

	s, err := l.Open(ctx, uuid.New(), d(10))
	require.NoError(t, err)
	_, err = l.Close(ctx, s.ID, d(10), "")
	require.NoError(t, err)
	_, err = l.Close(ctx, s.ID, d(10), "")
	assert.ErrorIs(t, err, domain.ErrShiftNotOpen)
}

func TestLedger_AccrueAfterCloseIsUnattributed(t *testing.T) {
	ctx := context.Background()
	l := NewLedger(newMemStore(), zap.NewNop())
	staff := uuid.New()

	s, err := l.Open(ctx, staff, d(0))
	require.NoError(t, err)
	_, err = l.Close(ctx, s.ID, d(0), "")
	require.NoError(t, err)

	assert.False(t, l.Accrue(s.ID, d(30)))
	_, ok := l.AccrueForStaff(staff, d(20))
	assert.False(t, ok)

	total, count := l.Unattributed()
	assert.True(t, total.Equal(d(50)))
	assert.Equal(t, 2, count)
}

func TestLedger_AccrueForStaffRoutesToOpenShift(t *testing.T) {
	ctx := context.Background()
	l := NewLedger(newMemStore(), zap.NewNop())
	staff := uuid.New()

	s, err := l.Open(ctx, staff, d(0))
	require.NoError(t, err)

	shiftID, ok := l.AccrueForStaff(staff, d(12))
	require.True(t, ok)
	assert.Equal(t, s.ID, shiftID)

	cur, ok := l.Current(staff)
	require.True(t, ok)
	assert.True(t, cur.TotalSales.Equal(d(12)))
	assert.Equal(t, 1, cur.OrderCount)
}

func TestLedger_FlushPersistsDirtyTotals(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	l := NewLedger(st, zap.NewNop())

	s, err := l.Open(ctx, uuid.New(), d(0))
	require.NoError(t, err)
	require.NoError(t, l.Flush(ctx))
	assert.Zero(t, st.saved, "clean shifts are not written")

	l.Accrue(s.ID, d(7))
	assert.True(t, l.Dirty())

	st.saveErr = domain.TransportError("save shift totals", context.DeadlineExceeded)
	assert.ErrorIs(t, l.Flush(ctx), domain.ErrTransport)
	assert.True(t, l.Dirty(), "failed flush keeps totals dirty")

	st.saveErr = nil
	require.NoError(t, l.Flush(ctx))
	assert.False(t, l.Dirty())
	assert.True(t, st.shifts[s.ID].TotalSales.Equal(d(7)))

	require.NoError(t, l.Flush(ctx))
	assert.Equal(t, 1, st.saved, "a flushed delta is not sent twice")
	assert.True(t, st.shifts[s.ID].TotalSales.Equal(d(7)))
}

func TestLedger_TwoTerminalsAccrueToOneShift(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	staff := uuid.New()

	a := NewLedger(st, zap.NewNop())
	s, err := a.Open(ctx, staff, d(100))
	require.NoError(t, err)
	b := NewLedger(st, zap.NewNop())
	require.NoError(t, b.Load(ctx))

	_, ok := a.AccrueForStaff(staff, d(10000))
	require.True(t, ok)
	_, ok = b.AccrueForStaff(staff, d(10000))
	require.True(t, ok)
	require.NoError(t, a.Flush(ctx))
	require.NoError(t, b.Flush(ctx))

	stored := st.shifts[s.ID]
	assert.True(t, stored.TotalSales.Equal(d(20000)), "total sales = %s", stored.TotalSales)
	assert.Equal(t, 2, stored.OrderCount)

	// b closes with one more sale still pending; a's view catches up on Load.
	b.Accrue(s.ID, d(500))
	closed, err := b.Close(ctx, s.ID, d(20600), "")
	require.NoError(t, err)
	assert.True(t, closed.TotalSales.Equal(d(20500)))
	assert.Equal(t, 3, closed.OrderCount)
	assert.True(t, closed.Variance().Equal(decimal.Zero), "variance = %s", closed.Variance())

	require.NoError(t, a.Load(ctx))
	_, ok = a.Get(s.ID)
	assert.False(t, ok, "shift closed on the other terminal is dropped")
}

func TestLedger_LoadMergesWithPendingTotals(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	l := NewLedger(st, zap.NewNop())
	mine, err := l.Open(ctx, uuid.New(), d(0))
	require.NoError(t, err)
	l.Accrue(mine.ID, d(40))

	// Opened on another terminal after this ledger loaded.
	otherStaff := uuid.New()
	other, err := st.CreateShift(ctx, otherStaff, d(50))
	require.NoError(t, err)
	_, err = st.AddShiftTotals(ctx, mine.ID, domain.ShiftDelta{Sales: d(60), Orders: 1})
	require.NoError(t, err)

	require.NoError(t, l.Load(ctx))

	cur, ok := l.Current(otherStaff)
	require.True(t, ok)
	assert.Equal(t, other.ID, cur.ID)

	got, ok := l.Get(mine.ID)
	require.True(t, ok)
	assert.True(t, got.TotalSales.Equal(d(100)), "stored 60 plus pending 40, got %s", got.TotalSales)
	assert.Equal(t, 2, got.OrderCount)
	assert.True(t, l.Dirty(), "pending delta survives a reload")

	require.NoError(t, l.Flush(ctx))
	assert.True(t, st.shifts[mine.ID].TotalSales.Equal(d(100)))
}

func TestLedger_ClosedElsewhereMovesPendingToUnattributed(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	l := NewLedger(st, zap.NewNop())
	s, err := l.Open(ctx, uuid.New(), d(0))
	require.NoError(t, err)
	l.Accrue(s.ID, d(25))

	_, err = st.CloseShift(ctx, s.ID, domain.ShiftClosing{ClosingCash: d(0)})
	require.NoError(t, err)

	require.NoError(t, l.Flush(ctx))
	_, ok := l.Get(s.ID)
	assert.False(t, ok)
	total, count := l.Unattributed()
	assert.True(t, total.Equal(d(25)))
	assert.Equal(t, 1, count)
}

func TestLedger_ReverseMovesAccrualToUnattributed(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	l := NewLedger(st, zap.NewNop())
	s, err := l.Open(ctx, uuid.New(), d(0))
	require.NoError(t, err)

	l.Accrue(s.ID, d(30))
	l.Accrue(s.ID, d(20))
	require.NoError(t, l.Flush(ctx))

	require.True(t, l.Reverse(s.ID, d(20)))
	got, _ := l.Get(s.ID)
	assert.True(t, got.TotalSales.Equal(d(30)))
	assert.Equal(t, 1, got.OrderCount)

	require.NoError(t, l.Flush(ctx))
	assert.True(t, st.shifts[s.ID].TotalSales.Equal(d(30)), "negative delta reaches the store")
	assert.Equal(t, 1, st.shifts[s.ID].OrderCount)

	total, count := l.Unattributed()
	assert.True(t, total.Equal(d(20)))
	assert.Equal(t, 1, count)

	assert.False(t, l.Reverse(uuid.New(), d(5)))
}

func TestLedger_History(t *testing.T) {
	ctx := context.Background()
	l := NewLedger(newMemStore(), zap.NewNop())
	s, err := l.Open(ctx, uuid.New(), d(0))
	require.NoError(t, err)
	_, err = l.Close(ctx, s.ID, d(0), "")
	require.NoError(t, err)

	shifts, err := l.History(ctx, 10)
	require.NoError(t, err)
	require.Len(t, shifts, 1)
	assert.Equal(t, s.ID, shifts[0].ID)
}

func TestLedger_LoadRestoresOpenShifts(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	staff := uuid.New()
	s, err := st.CreateShift(ctx, staff, d(100))
	require.NoError(t, err)

	l := NewLedger(st, zap.NewNop())
	require.NoError(t, l.Load(ctx))

	cur, ok := l.Current(staff)
	require.True(t, ok)
	assert.Equal(t, s.ID, cur.ID)
	assert.True(t, l.Accrue(s.ID, d(5)))
}

func TestLedger_CloseFailureKeepsShiftOpen(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	l := NewLedger(st, zap.NewNop())
	s, err := l.Open(ctx, uuid.New(), d(0))
	require.NoError(t, err)

	st.closeErr = domain.TransportError("close shift", context.DeadlineExceeded)
	_, err = l.Close(ctx, s.ID, d(0), "")
	assert.ErrorIs(t, err, domain.ErrTransport)

	_, ok := l.Get(s.ID)
	assert.True(t, ok, "shift stays open when the close was not acknowledged")
}
