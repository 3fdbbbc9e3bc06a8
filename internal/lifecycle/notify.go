package lifecycle

import (
	"github.com/google/uuid"
	"github.com/kiwari-pos/terminal/internal/domain"
)

type OutcomeKind string

const (
	OutcomeConflict     OutcomeKind = "conflict"          // a write was refused; local copy refreshed
	OutcomeViolation    OutcomeKind = "violation"         // consistency violation flagged
	OutcomeNewOrder     OutcomeKind = "new_order"         // order inserted by the feed
	OutcomeSynced       OutcomeKind = "synced"            // offline queue replayed
	OutcomeUnattributed OutcomeKind = "unattributed_sale" // completion with no open shift
	OutcomeOffline      OutcomeKind = "offline"
	OutcomeOnline       OutcomeKind = "online"
)

// Outcome is reported to the presentation layer for anything that needs the
// operator's attention.
type Outcome struct {
	Kind    OutcomeKind
	OrderID uuid.UUID
	Order   domain.Order
	Synced  int
	Err     error
}

// Notifier receives outcomes on the loop goroutine.
type Notifier func(Outcome)
