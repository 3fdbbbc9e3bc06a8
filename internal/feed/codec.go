package feed

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kiwari-pos/terminal/internal/domain"
	"github.com/kiwari-pos/terminal/internal/ws"
)

// notification is the payload of the orders_notify_change trigger. It
// carries only the key of the changed row; pg_notify payloads are capped
// at 8000 bytes, which a large order's items would exceed.
type notification struct {
	Type       string    `json:"type"`
	ID         uuid.UUID `json:"id"`
	BusinessID uuid.UUID `json:"business_id"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// decodeNotification parses a pg_notify payload.
func decodeNotification(payload string) (EventType, notification, error) {
	var n notification
	if err := json.Unmarshal([]byte(payload), &n); err != nil {
		return "", n, fmt.Errorf("decode notification: %w", err)
	}
	if n.ID == uuid.Nil {
		return "", n, fmt.Errorf("decode notification: missing order id")
	}
	switch n.Type {
	case "insert":
		return EventInsert, n, nil
	case "update":
		return EventUpdate, n, nil
	default:
		return "", n, fmt.Errorf("decode notification: unknown type %q", n.Type)
	}
}

// ToWire converts an event to the websocket/redis envelope.
func ToWire(ev Event) (ws.Event, error) {
	payload, err := json.Marshal(ev.Order)
	if err != nil {
		return ws.Event{}, fmt.Errorf("encode order %s: %w", ev.Order.ID, err)
	}
	typ := ws.EventOrderUpdated
	if ev.Type == EventInsert {
		typ = ws.EventOrderInserted
	}
	return ws.Event{Type: typ, Payload: payload}, nil
}

// FromWire converts an envelope back into an event.
func FromWire(we ws.Event) (Event, error) {
	var typ EventType
	switch we.Type {
	case ws.EventOrderInserted:
		typ = EventInsert
	case ws.EventOrderUpdated:
		typ = EventUpdate
	default:
		return Event{}, fmt.Errorf("unknown event type %q", we.Type)
	}
	var order domain.Order
	if err := json.Unmarshal(we.Payload, &order); err != nil {
		return Event{}, fmt.Errorf("decode order payload: %w", err)
	}
	return Event{Type: typ, Order: order}, nil
}

// Encode marshals an event to its wire bytes.
func Encode(ev Event) ([]byte, error) {
	we, err := ToWire(ev)
	if err != nil {
		return nil, err
	}
	return json.Marshal(we)
}

// Decode parses wire bytes produced by Encode.
func Decode(data []byte) (Event, error) {
	var we ws.Event
	if err := json.Unmarshal(data, &we); err != nil {
		return Event{}, fmt.Errorf("decode envelope: %w", err)
	}
	return FromWire(we)
}
