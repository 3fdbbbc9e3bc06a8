package offline

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kiwari-pos/terminal/internal/domain"
	"github.com/kiwari-pos/terminal/internal/enum"
	"github.com/kiwari-pos/terminal/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeWriter answers conditional writes from an in-memory status table.
type fakeWriter struct {
	statuses map[uuid.UUID]enum.OrderStatus
	calls    []store.StatusChange
	failAt   int // 1-based call index that fails with a transport error; 0 = never
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{statuses: make(map[uuid.UUID]enum.OrderStatus)}
}

func (f *fakeWriter) UpdateOrderStatus(ctx context.Context, c store.StatusChange) (domain.Order, error) {
	f.calls = append(f.calls, c)
	if f.failAt == len(f.calls) {
		return domain.Order{}, domain.TransportError("update order status", context.DeadlineExceeded)
	}
	current, ok := f.statuses[c.OrderID]
	if !ok {
		return domain.Order{}, fmt.Errorf("update order status: %w", domain.ErrNotFound)
	}
	if current != c.Expected {
		return domain.Order{}, &domain.ConflictError{OrderID: c.OrderID, Expected: c.Expected, Actual: current}
	}
	f.statuses[c.OrderID] = c.Status
	return domain.Order{ID: c.OrderID, Status: c.Status, UpdatedAt: time.Now()}, nil
}

func createTestBuffer(t *testing.T) (*Buffer, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pending.db")
	q, err := OpenQueue(path)
	require.NoError(t, err)
	t.Cleanup(func() { q.Close() })
	return NewBuffer(q, zap.NewNop()), path
}

func enqueue(t *testing.T, b *Buffer, orderID uuid.UUID, expected, target enum.OrderStatus) int64 {
	t.Helper()
	seq, err := b.Enqueue(context.Background(), domain.PendingMutation{
		OrderID:        orderID,
		ExpectedStatus: expected,
		TargetStatus:   target,
		ActorID:        uuid.New(),
		EnqueuedAt:     time.Now(),
	})
	require.NoError(t, err)
	return seq
}

func TestEnqueue_AssignsIncreasingSequences(t *testing.T) {
	b, _ := createTestBuffer(t)
	id := uuid.New()

	s1 := enqueue(t, b, id, enum.OrderStatusNew, enum.OrderStatusPreparing)
	s2 := enqueue(t, b, id, enum.OrderStatusPreparing, enum.OrderStatusReady)
	assert.Greater(t, s2, s1)

	pending, err := b.Pending(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, s1, pending[0].Sequence)
	assert.Equal(t, enum.OrderStatusReady, pending[1].TargetStatus)
}

func TestQueue_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pending.db")
	id := uuid.New()

	q1, err := OpenQueue(path)
	require.NoError(t, err)
	b1 := NewBuffer(q1, zap.NewNop())
	enqueue(t, b1, id, enum.OrderStatusReady, enum.OrderStatusCompleted)
	require.NoError(t, q1.Close())

	q2, err := OpenQueue(path)
	require.NoError(t, err)
	defer q2.Close()
	b2 := NewBuffer(q2, zap.NewNop())

	pending, err := b2.Pending(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, id, pending[0].OrderID)
	assert.Equal(t, enum.OrderStatusCompleted, pending[0].TargetStatus)
	assert.NotEqual(t, uuid.Nil, pending[0].ActorID)
}

func TestReplay_CollapsesPerOrder(t *testing.T) {
	b, _ := createTestBuffer(t)
	w := newFakeWriter()
	id := uuid.New()
	w.statuses[id] = enum.OrderStatusNew

	enqueue(t, b, id, enum.OrderStatusNew, enum.OrderStatusPreparing)
	enqueue(t, b, id, enum.OrderStatusPreparing, enum.OrderStatusReady)

	res, err := b.Replay(context.Background(), w)
	require.NoError(t, err)

	// Exactly one write: NEW → READY, conditioned on what the store last had.
	require.Len(t, w.calls, 1)
	assert.Equal(t, enum.OrderStatusNew, w.calls[0].Expected)
	assert.Equal(t, enum.OrderStatusReady, w.calls[0].Status)
	assert.Len(t, res.Synced, 1)
	assert.Equal(t, 1, res.Superseded)
	assert.Empty(t, res.Conflicts)

	n, err := b.Len(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestReplay_PreservesEnqueueOrderAcrossOrders(t *testing.T) {
	b, _ := createTestBuffer(t)
	w := newFakeWriter()
	a, c := uuid.New(), uuid.New()
	w.statuses[a] = enum.OrderStatusReady
	w.statuses[c] = enum.OrderStatusPendingApproval

	enqueue(t, b, a, enum.OrderStatusReady, enum.OrderStatusCompleted)
	enqueue(t, b, c, enum.OrderStatusPendingApproval, enum.OrderStatusNew)

	res, err := b.Replay(context.Background(), w)
	require.NoError(t, err)

	require.Len(t, w.calls, 2)
	assert.Equal(t, a, w.calls[0].OrderID)
	assert.Equal(t, c, w.calls[1].OrderID)
	assert.Len(t, res.Synced, 2)
}

func TestReplay_DropsConflictsAndContinues(t *testing.T) {
	b, _ := createTestBuffer(t)
	w := newFakeWriter()
	cancelled, good, missing := uuid.New(), uuid.New(), uuid.New()
	w.statuses[cancelled] = enum.OrderStatusCancelled
	w.statuses[good] = enum.OrderStatusPreparing

	enqueue(t, b, cancelled, enum.OrderStatusNew, enum.OrderStatusPreparing)
	enqueue(t, b, missing, enum.OrderStatusNew, enum.OrderStatusCancelled)
	enqueue(t, b, good, enum.OrderStatusPreparing, enum.OrderStatusReady)

	res, err := b.Replay(context.Background(), w)
	require.NoError(t, err)

	require.Len(t, res.Conflicts, 2)
	assert.ErrorIs(t, res.Conflicts[0].Err, domain.ErrPreconditionFailed)
	assert.Equal(t, cancelled, res.Conflicts[0].Mutation.OrderID)
	assert.ErrorIs(t, res.Conflicts[1].Err, domain.ErrNotFound)
	require.Len(t, res.Synced, 1)
	assert.Equal(t, enum.OrderStatusReady, res.Synced[0].Status)
	assert.Equal(t, enum.OrderStatusCancelled, w.statuses[cancelled], "store state must be untouched by a rejected write")

	n, err := b.Len(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n, "conflicting entries are dropped")
}

func TestReplay_StopsOnTransportError(t *testing.T) {
	b, _ := createTestBuffer(t)
	w := newFakeWriter()
	first, second, third := uuid.New(), uuid.New(), uuid.New()
	for _, id := range []uuid.UUID{first, second, third} {
		w.statuses[id] = enum.OrderStatusNew
	}
	w.failAt = 2

	enqueue(t, b, first, enum.OrderStatusNew, enum.OrderStatusPreparing)
	enqueue(t, b, second, enum.OrderStatusNew, enum.OrderStatusPreparing)
	enqueue(t, b, second, enum.OrderStatusPreparing, enum.OrderStatusReady)
	enqueue(t, b, third, enum.OrderStatusNew, enum.OrderStatusCancelled)

	res, err := b.Replay(context.Background(), w)
	require.NoError(t, err)

	assert.Len(t, res.Synced, 1)
	assert.Equal(t, 3, res.Remaining)
	assert.Len(t, w.calls, 2, "nothing after the failed write is attempted")

	pending, err := b.Pending(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 3)
	assert.Equal(t, second, pending[0].OrderID)

	// Next pass picks up where the last one stopped.
	w.failAt = 0
	w.calls = nil
	res, err = b.Replay(context.Background(), w)
	require.NoError(t, err)
	assert.Len(t, res.Synced, 2)
	assert.Equal(t, enum.OrderStatusReady, w.statuses[second])
	assert.Equal(t, enum.OrderStatusCancelled, w.statuses[third])
}

func TestReplay_EmptyQueue(t *testing.T) {
	b, _ := createTestBuffer(t)
	res, err := b.Replay(context.Background(), newFakeWriter())
	require.NoError(t, err)
	assert.Empty(t, res.Synced)
	assert.Zero(t, res.Remaining)
}

func TestCollapse_OrdersGroupsByLastWrite(t *testing.T) {
	a, c := uuid.New(), uuid.New()
	groups := collapse([]domain.PendingMutation{
		{Sequence: 1, OrderID: a, ExpectedStatus: enum.OrderStatusNew, TargetStatus: enum.OrderStatusPreparing},
		{Sequence: 2, OrderID: c, ExpectedStatus: enum.OrderStatusReady, TargetStatus: enum.OrderStatusCompleted},
		{Sequence: 3, OrderID: a, ExpectedStatus: enum.OrderStatusPreparing, TargetStatus: enum.OrderStatusReady},
	})

	require.Len(t, groups, 2)
	assert.Equal(t, c, groups[0].write.OrderID)
	assert.Equal(t, a, groups[1].write.OrderID)
	assert.Equal(t, enum.OrderStatusNew, groups[1].write.ExpectedStatus)
	assert.Equal(t, enum.OrderStatusReady, groups[1].write.TargetStatus)
	assert.Equal(t, []int64{1, 3}, groups[1].sequences)
}
