package occupancy

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kiwari-pos/terminal/internal/domain"
	"github.com/kiwari-pos/terminal/internal/enum"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func table(number string, active bool) domain.Table {
	return domain.Table{ID: uuid.New(), TableNumber: number, Capacity: 4, IsActive: active}
}

func orderOn(t domain.Table, number string, status enum.OrderStatus, age time.Duration) domain.Order {
	id := t.ID
	return domain.Order{
		ID:          uuid.New(),
		OrderNumber: number,
		Status:      status,
		TableID:     &id,
		CreatedAt:   base.Add(-age),
	}
}

func TestProject_States(t *testing.T) {
	free := table("A1", true)
	busy := table("A2", true)
	closed := table("B1", false)
	closedBusy := table("B2", false)

	orders := []domain.Order{
		orderOn(busy, "KWR-001", enum.OrderStatusPreparing, time.Minute),
		orderOn(free, "KWR-002", enum.OrderStatusCompleted, time.Hour),
		orderOn(free, "KWR-003", enum.OrderStatusPendingApproval, time.Minute),
		orderOn(closedBusy, "KWR-004", enum.OrderStatusReady, time.Minute),
		{ID: uuid.New(), Status: enum.OrderStatusNew}, // takeout, no table
	}

	views, violations := Project([]domain.Table{free, busy, closed, closedBusy}, orders)
	require.Len(t, views, 4)
	assert.Empty(t, violations)

	assert.Equal(t, StateAvailable, views[0].State, "terminal and pending orders do not occupy")
	assert.Nil(t, views[0].CurrentOrder)
	assert.Equal(t, StateOccupied, views[1].State)
	require.NotNil(t, views[1].CurrentOrder)
	assert.Equal(t, "KWR-001", views[1].CurrentOrder.OrderNumber)
	assert.Equal(t, StateInactive, views[2].State)
	assert.Equal(t, StateInactive, views[3].State, "inactive overrides occupied")
}

func TestProject_OrderCompletionFreesTable(t *testing.T) {
	tbl := table("C3", true)
	o := orderOn(tbl, "KWR-010", enum.OrderStatusReady, time.Minute)

	views, _ := Project([]domain.Table{tbl}, []domain.Order{o})
	assert.Equal(t, StateOccupied, views[0].State)

	o.Status = enum.OrderStatusCompleted
	views, _ = Project([]domain.Table{tbl}, []domain.Order{o})
	assert.Equal(t, StateAvailable, views[0].State)
}

func TestProject_DoubleBookingReported(t *testing.T) {
	tbl := table("D4", true)
	older := orderOn(tbl, "KWR-020", enum.OrderStatusNew, 10*time.Minute)
	newer := orderOn(tbl, "KWR-021", enum.OrderStatusPreparing, time.Minute)

	views, violations := Project([]domain.Table{tbl}, []domain.Order{older, newer})

	require.Len(t, violations, 1)
	assert.Equal(t, older.ID, violations[0].OrderID)
	require.NotNil(t, violations[0].TableID)
	assert.Equal(t, tbl.ID, *violations[0].TableID)
	assert.ErrorIs(t, &violations[0], domain.ErrConsistencyViolation)

	assert.Equal(t, StateOccupied, views[0].State)
	assert.Equal(t, newer.ID, views[0].CurrentOrder.ID)
}

func TestFind(t *testing.T) {
	tbl := table("E5", true)
	views, _ := Project([]domain.Table{tbl}, nil)

	v, ok := Find(views, tbl.ID)
	require.True(t, ok)
	assert.Equal(t, "E5", v.Table.TableNumber)

	_, ok = Find(views, uuid.New())
	assert.False(t, ok)
}
