// Package offline holds status writes made while the store is unreachable
// and replays them, in order, once connectivity returns.
package offline

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/kiwari-pos/terminal/internal/domain"
	"github.com/kiwari-pos/terminal/internal/store"
	"go.uber.org/zap"
)

// Writer performs the conditional status write during replay.
type Writer interface {
	UpdateOrderStatus(ctx context.Context, change store.StatusChange) (domain.Order, error)
}

// Conflict is a queued write the store refused. It has been dropped.
type Conflict struct {
	Mutation domain.PendingMutation
	Err      error
}

// ReplayResult summarises one replay pass.
type ReplayResult struct {
	Synced     []domain.Order // store records acknowledged during replay
	Superseded int            // entries folded into a later write for the same order
	Conflicts  []Conflict
	Remaining  int // entries still queued after a transport failure
}

// Buffer is the offline mutation queue of one terminal. It is not safe for
// concurrent use; the lifecycle loop owns it.
type Buffer struct {
	queue  *Queue
	logger *zap.Logger
}

func NewBuffer(queue *Queue, logger *zap.Logger) *Buffer {
	return &Buffer{queue: queue, logger: logger}
}

// Enqueue appends m and returns the sequence it was assigned.
func (b *Buffer) Enqueue(ctx context.Context, m domain.PendingMutation) (int64, error) {
	seq, err := b.queue.Append(ctx, m)
	if err != nil {
		return 0, err
	}
	b.logger.Info("status write queued offline",
		zap.Int64("sequence", seq),
		zap.String("order_id", m.OrderID.String()),
		zap.String("expected_status", string(m.ExpectedStatus)),
		zap.String("target_status", string(m.TargetStatus)))
	return seq, nil
}

// Pending returns the queued mutations in enqueue order.
func (b *Buffer) Pending(ctx context.Context) ([]domain.PendingMutation, error) {
	return b.queue.List(ctx)
}

// Len returns the number of queued mutations.
func (b *Buffer) Len(ctx context.Context) (int, error) {
	return b.queue.Len(ctx)
}

// group is the collapsed form of every queued write for one order.
type group struct {
	write     domain.PendingMutation // last target, earliest expected status
	sequences []int64
}

// collapse folds the queue per order: the last target wins and the earliest
// expected status becomes the precondition, since that is what the store
// last confirmed. Groups are ordered by the sequence of their last write.
func collapse(mutations []domain.PendingMutation) []group {
	byOrder := make(map[uuid.UUID]*group)
	var groups []*group
	for _, m := range mutations {
		g, ok := byOrder[m.OrderID]
		if !ok {
			g = &group{write: m}
			byOrder[m.OrderID] = g
			groups = append(groups, g)
		} else {
			g.write.Sequence = m.Sequence
			g.write.TargetStatus = m.TargetStatus
			g.write.ActorID = m.ActorID
			g.write.EnqueuedAt = m.EnqueuedAt
		}
		g.sequences = append(g.sequences, m.Sequence)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].write.Sequence < groups[j].write.Sequence
	})
	out := make([]group, len(groups))
	for i, g := range groups {
		out[i] = *g
	}
	return out
}

// Replay sends the collapsed queue to w one write at a time, waiting for
// each acknowledgment. Entries are deleted only once the store has answered
// for them. A transport failure stops the pass and leaves the rest queued.
func (b *Buffer) Replay(ctx context.Context, w Writer) (ReplayResult, error) {
	var result ReplayResult

	mutations, err := b.queue.List(ctx)
	if err != nil {
		return result, err
	}
	groups := collapse(mutations)

	for i, g := range groups {
		order, err := w.UpdateOrderStatus(ctx, store.StatusChange{
			OrderID:  g.write.OrderID,
			Status:   g.write.TargetStatus,
			Expected: g.write.ExpectedStatus,
			ActorID:  g.write.ActorID,
		})
		if errors.Is(err, domain.ErrTransport) {
			for _, rest := range groups[i:] {
				result.Remaining += len(rest.sequences)
			}
			b.logger.Warn("replay interrupted, keeping remaining writes",
				zap.Int("remaining", result.Remaining), zap.Error(err))
			return result, nil
		}

		if delErr := b.queue.Delete(ctx, g.sequences...); delErr != nil {
			return result, fmt.Errorf("replay order %s: %w", g.write.OrderID, delErr)
		}
		result.Superseded += len(g.sequences) - 1

		if err != nil {
			// Precondition failures and missing orders cannot succeed on
			// retry. Anything else the store rejected would block the queue
			// forever, so it is dropped and reported the same way.
			b.logger.Warn("queued write rejected by store",
				zap.String("order_id", g.write.OrderID.String()),
				zap.String("target_status", string(g.write.TargetStatus)),
				zap.Error(err))
			result.Conflicts = append(result.Conflicts, Conflict{Mutation: g.write, Err: err})
			continue
		}
		result.Synced = append(result.Synced, order)
	}

	b.logger.Info("replay finished",
		zap.Int("synced", len(result.Synced)),
		zap.Int("superseded", result.Superseded),
		zap.Int("conflicts", len(result.Conflicts)))
	return result, nil
}
