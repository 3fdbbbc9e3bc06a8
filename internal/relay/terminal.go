package relay

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/kiwari-pos/terminal/internal/lifecycle"
	"github.com/kiwari-pos/terminal/internal/ws"
	"go.uber.org/zap"
)

// TerminalPublisher pushes a terminal's snapshots and outcomes to its
// websocket clients. Both callbacks run on the controller loop.
type TerminalPublisher struct {
	hub        Broadcaster
	businessID uuid.UUID
	logger     *zap.Logger
}

func NewTerminalPublisher(hub Broadcaster, businessID uuid.UUID, logger *zap.Logger) *TerminalPublisher {
	return &TerminalPublisher{hub: hub, businessID: businessID, logger: logger}
}

// outcomeMessage is the wire form of a lifecycle.Outcome.
type outcomeMessage struct {
	Kind        lifecycle.OutcomeKind `json:"kind"`
	OrderID     *uuid.UUID            `json:"order_id,omitempty"`
	OrderNumber string                `json:"order_number,omitempty"`
	Status      string                `json:"status,omitempty"`
	Synced      int                   `json:"synced,omitempty"`
	Error       string                `json:"error,omitempty"`
}

// Snapshot is a lifecycle.Controller subscriber.
func (p *TerminalPublisher) Snapshot(s *lifecycle.Snapshot) {
	p.send(ws.EventSnapshot, s)
}

// Notify is a lifecycle.Notifier.
func (p *TerminalPublisher) Notify(o lifecycle.Outcome) {
	msg := outcomeMessage{Kind: o.Kind, Synced: o.Synced}
	if o.OrderID != uuid.Nil {
		id := o.OrderID
		msg.OrderID = &id
	}
	if o.Order.ID != uuid.Nil {
		msg.OrderNumber = o.Order.OrderNumber
		msg.Status = string(o.Order.Status)
	}
	if o.Err != nil {
		msg.Error = o.Err.Error()
	}
	p.send(ws.EventOutcome, msg)
}

func (p *TerminalPublisher) send(typ string, v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		p.logger.Error("encode terminal event", zap.String("type", typ), zap.Error(err))
		return
	}
	p.hub.BroadcastToBusiness(p.businessID, ws.Event{Type: typ, Payload: payload})
}
