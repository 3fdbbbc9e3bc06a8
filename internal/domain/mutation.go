package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/kiwari-pos/terminal/internal/enum"
)

// PendingMutation is a status write captured while the terminal was offline.
// Sequence is assigned by the durable queue and strictly increases.
type PendingMutation struct {
	Sequence       int64            `json:"sequence"`
	OrderID        uuid.UUID        `json:"order_id"`
	TargetStatus   enum.OrderStatus `json:"target_status"`
	ExpectedStatus enum.OrderStatus `json:"expected_status"`
	ActorID        uuid.UUID        `json:"actor_id"`
	EnqueuedAt     time.Time        `json:"enqueued_at"`
}

// Actor is the staff member issuing a command.
type Actor struct {
	StaffID uuid.UUID
	Role    enum.Role
}
