package lifecycle

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/kiwari-pos/terminal/internal/domain"
	"github.com/kiwari-pos/terminal/internal/enum"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTwoTerminalsAccrueToOneShift(t *testing.T) {
	a := newHarness(t, Config{})
	b := newHarnessOn(t, Config{}, a.clock, a.store)
	first := a.seedOrder(enum.OrderStatusReady, nil)
	second := a.seedOrder(enum.OrderStatusReady, nil)
	a.start()
	b.start()
	ctx := context.Background()
	cashier := actor(enum.RoleCashier)

	// Opened on terminal a after terminal b loaded its shifts.
	opened, err := a.ctrl.OpenShift(ctx, cashier, uuid.Nil, decimal.NewFromInt(100000))
	require.NoError(t, err)

	_, err = a.ctrl.MarkCompleted(ctx, cashier, first.ID, enum.OrderStatusReady)
	require.NoError(t, err)
	_, err = b.ctrl.MarkCompleted(ctx, cashier, second.ID, enum.OrderStatusReady)
	require.NoError(t, err)

	stored := a.store.shift(opened.ID)
	assert.True(t, stored.TotalSales.Equal(decimal.NewFromInt(20000)), "store total_sales %s", stored.TotalSales)
	assert.Equal(t, 2, stored.OrderCount)
	assert.Empty(t, b.events.kinds(OutcomeUnattributed))

	// Closing on a uses the stored totals, including b's sale.
	closed, err := a.ctrl.CloseShift(ctx, cashier, opened.ID, decimal.NewFromInt(120000), "")
	require.NoError(t, err)
	assert.Equal(t, 2, closed.OrderCount)
	assert.True(t, closed.Variance().IsZero(), "variance %s", closed.Variance())
}

func TestShiftOpenedElsewhereIsFound(t *testing.T) {
	h := newHarness(t, Config{})
	order := h.seedOrder(enum.OrderStatusReady, nil)
	h.start()
	ctx := context.Background()
	cashier := actor(enum.RoleCashier)

	opened, err := h.store.CreateShift(ctx, cashier.StaffID, decimal.NewFromInt(50000))
	require.NoError(t, err)

	current, err := h.ctrl.CurrentShift(ctx, cashier)
	require.NoError(t, err)
	assert.Equal(t, opened.ID, current.ID)

	_, err = h.ctrl.MarkCompleted(ctx, cashier, order.ID, enum.OrderStatusReady)
	require.NoError(t, err)
	assert.Empty(t, h.events.kinds(OutcomeUnattributed))
	assert.True(t, h.store.shift(opened.ID).TotalSales.Equal(order.TotalAmount))

	closed, err := h.ctrl.CloseShift(ctx, cashier, opened.ID, decimal.NewFromInt(60000), "")
	require.NoError(t, err)
	assert.True(t, closed.Variance().IsZero(), "variance %s", closed.Variance())
}

func TestShiftClosedElsewhereIsDroppedOnResync(t *testing.T) {
	h := newHarness(t, Config{})
	h.start()
	ctx := context.Background()
	cashier := actor(enum.RoleCashier)

	opened, err := h.ctrl.OpenShift(ctx, cashier, uuid.Nil, decimal.Zero)
	require.NoError(t, err)
	_, err = h.store.CloseShift(ctx, opened.ID, domain.ShiftClosing{ClosingCash: decimal.Zero})
	require.NoError(t, err)

	h.ctrl.Resync(nil)
	h.sync()

	_, err = h.ctrl.CurrentShift(ctx, cashier)
	assert.ErrorIs(t, err, domain.ErrShiftNotOpen)
}

func TestRefusedOfflineCompletionLeavesShift(t *testing.T) {
	h := newHarness(t, Config{})
	order := h.seedOrder(enum.OrderStatusReady, nil)
	h.start()
	ctx := context.Background()
	cashier := actor(enum.RoleCashier)

	opened, err := h.ctrl.OpenShift(ctx, cashier, uuid.Nil, decimal.NewFromInt(50000))
	require.NoError(t, err)

	h.store.setDown(true)
	h.ctrl.SetOnline(false)
	res, err := h.ctrl.MarkCompleted(ctx, cashier, order.ID, enum.OrderStatusReady)
	require.NoError(t, err)
	require.True(t, res.Queued)

	current, err := h.ctrl.CurrentShift(ctx, cashier)
	require.NoError(t, err)
	require.True(t, current.TotalSales.Equal(order.TotalAmount))

	// Another terminal cancelled the order while this one was offline.
	cancelled := order.Clone()
	cancelled.Status = enum.OrderStatusCancelled
	cancelled.UpdatedAt = h.clock.tick()
	h.store.put(cancelled)

	h.store.setDown(false)
	h.ctrl.SetOnline(true)
	h.sync()

	require.Len(t, h.events.kinds(OutcomeConflict), 1)
	current, err = h.ctrl.CurrentShift(ctx, cashier)
	require.NoError(t, err)
	assert.True(t, current.TotalSales.IsZero(), "shift sales %s", current.TotalSales)
	assert.Zero(t, current.OrderCount)
	assert.True(t, h.store.shift(opened.ID).TotalSales.IsZero())
	assert.True(t, h.ctrl.Snapshot().UnattributedSales.Equal(order.TotalAmount))
}

func TestOpenShiftForStaffAndHistory(t *testing.T) {
	h := newHarness(t, Config{})
	h.start()
	ctx := context.Background()
	manager := actor(enum.RoleManager)
	cashier := actor(enum.RoleCashier)

	_, err := h.ctrl.OpenShift(ctx, actor(enum.RoleWaiter), cashier.StaffID, decimal.Zero)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	opened, err := h.ctrl.OpenShift(ctx, manager, cashier.StaffID, decimal.NewFromInt(75000))
	require.NoError(t, err)
	assert.Equal(t, cashier.StaffID, opened.StaffID)

	current, err := h.ctrl.CurrentShift(ctx, cashier)
	require.NoError(t, err)
	assert.Equal(t, opened.ID, current.ID)
	_, err = h.ctrl.CurrentShift(ctx, manager)
	assert.ErrorIs(t, err, domain.ErrShiftNotOpen)

	_, err = h.ctrl.CloseShift(ctx, cashier, opened.ID, decimal.NewFromInt(75000), "")
	require.NoError(t, err)

	history, err := h.ctrl.RecentShifts(ctx, manager, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, opened.ID, history[0].ID)

	_, err = h.ctrl.RecentShifts(ctx, cashier, 10)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	h.store.setDown(true)
	h.ctrl.SetOnline(false)
	_, err = h.ctrl.RecentShifts(ctx, manager, 10)
	assert.ErrorIs(t, err, domain.ErrTransport)
}
