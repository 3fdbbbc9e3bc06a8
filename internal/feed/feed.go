// Package feed delivers the store's order change notifications to a sink,
// reconnecting with backoff and resynchronising after every (re)connect.
// Events that happened while disconnected are never replayed; the resync
// snapshot covers them.
package feed

import (
	"context"

	"github.com/kiwari-pos/terminal/internal/domain"
)

// EventType is the kind of change that produced an event.
type EventType string

const (
	EventInsert EventType = "insert"
	EventUpdate EventType = "update"
)

// Event carries the full post-change order record.
type Event struct {
	Type  EventType
	Order domain.Order
}

// Source opens subscriptions on one transport.
type Source interface {
	Open(ctx context.Context) (Stream, error)
}

// Stream yields events until the transport fails or ctx is done.
type Stream interface {
	Next(ctx context.Context) (Event, error)
	Close() error
}

// Sink receives feed output. Calls come from the subscriber goroutine, one
// at a time, in arrival order.
type Sink interface {
	Deliver(ev Event)
	Resync(orders []domain.Order)
	SetFeedState(connected bool)
}

// Lister fetches the resync snapshot.
type Lister interface {
	ListRecentOrders(ctx context.Context, limit int) ([]domain.Order, error)
}
