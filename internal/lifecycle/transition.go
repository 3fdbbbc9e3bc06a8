package lifecycle

import (
	"github.com/kiwari-pos/terminal/internal/domain"
	"github.com/kiwari-pos/terminal/internal/enum"
)

// Action is a status-changing command.
type Action string

const (
	ActionApprove        Action = "approve"
	ActionReject         Action = "reject"
	ActionStartPreparing Action = "start-preparing"
	ActionMarkReady      Action = "mark-ready"
	ActionMarkCompleted  Action = "complete"
	ActionCancel         Action = "cancel"
)

type edge struct {
	from   enum.OrderStatus
	action Action
}

// transitions is the complete order state machine. Anything not listed is
// rejected with domain.ErrInvalidTransition.
var transitions = map[edge]enum.OrderStatus{
	{enum.OrderStatusPendingApproval, ActionApprove}:   enum.OrderStatusNew,
	{enum.OrderStatusPendingApproval, ActionReject}:    enum.OrderStatusCancelled,
	{enum.OrderStatusNew, ActionStartPreparing}:        enum.OrderStatusPreparing,
	{enum.OrderStatusNew, ActionCancel}:                enum.OrderStatusCancelled,
	{enum.OrderStatusPreparing, ActionMarkReady}:       enum.OrderStatusReady,
	{enum.OrderStatusPreparing, ActionCancel}:          enum.OrderStatusCancelled,
	{enum.OrderStatusReady, ActionMarkCompleted}:       enum.OrderStatusCompleted,
}

var permissions = map[Action][]enum.Role{
	ActionApprove:        {enum.RoleOwner, enum.RoleManager, enum.RoleCashier, enum.RoleWaiter},
	ActionReject:         {enum.RoleOwner, enum.RoleManager, enum.RoleCashier, enum.RoleWaiter},
	ActionStartPreparing: {enum.RoleOwner, enum.RoleManager, enum.RoleKitchen},
	ActionMarkReady:      {enum.RoleOwner, enum.RoleManager, enum.RoleKitchen},
	ActionMarkCompleted:  {enum.RoleOwner, enum.RoleManager, enum.RoleCashier, enum.RoleWaiter},
	ActionCancel:         {enum.RoleOwner, enum.RoleManager, enum.RoleCashier},
}

// Next returns the status reached by applying action in status from.
func Next(from enum.OrderStatus, action Action) (enum.OrderStatus, error) {
	to, ok := transitions[edge{from, action}]
	if !ok {
		return "", &domain.TransitionError{From: from, Action: string(action)}
	}
	return to, nil
}

// Permitted reports whether role may issue action.
func Permitted(role enum.Role, action Action) bool {
	for _, r := range permissions[action] {
		if r == role {
			return true
		}
	}
	return false
}

// ParseAction maps a URL segment to an Action.
func ParseAction(s string) (Action, bool) {
	a := Action(s)
	_, ok := permissions[a]
	return a, ok
}

var creators = []enum.Role{enum.RoleOwner, enum.RoleManager, enum.RoleCashier, enum.RoleWaiter}

// CanCreate reports whether role may take new orders at the terminal.
func CanCreate(role enum.Role) bool {
	for _, r := range creators {
		if r == role {
			return true
		}
	}
	return false
}

// supervises reports whether role may act on other staff members' shifts.
func supervises(role enum.Role) bool {
	return role == enum.RoleOwner || role == enum.RoleManager
}
