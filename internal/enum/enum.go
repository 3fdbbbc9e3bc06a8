package enum

// ── Group A: State machines (CHECK constrained in DB) ──

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPendingApproval OrderStatus = "PENDING_APPROVAL"
	OrderStatusNew             OrderStatus = "NEW"
	OrderStatusPreparing       OrderStatus = "PREPARING"
	OrderStatusReady           OrderStatus = "READY"
	OrderStatusCompleted       OrderStatus = "COMPLETED"
	OrderStatusCancelled       OrderStatus = "CANCELLED"
)

// IsValid reports whether s is one of the six defined statuses.
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPendingApproval, OrderStatusNew, OrderStatusPreparing,
		OrderStatusReady, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// IsActive reports whether the order occupies the kitchen or a table.
func (s OrderStatus) IsActive() bool {
	switch s {
	case OrderStatusNew, OrderStatusPreparing, OrderStatusReady:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// ShiftStatus is the state of a staff shift.
type ShiftStatus string

const (
	ShiftStatusOpen   ShiftStatus = "OPEN"
	ShiftStatusClosed ShiftStatus = "CLOSED"
)

// ── Group C: Borderline (CHECK constrained in DB) ──

// Role is a staff role, used to gate lifecycle actions.
type Role string

const (
	RoleOwner   Role = "OWNER"
	RoleManager Role = "MANAGER"
	RoleCashier Role = "CASHIER"
	RoleWaiter  Role = "WAITER"
	RoleKitchen Role = "KITCHEN"
)

// IsValid reports whether r is a known staff role.
func (r Role) IsValid() bool {
	switch r {
	case RoleOwner, RoleManager, RoleCashier, RoleWaiter, RoleKitchen:
		return true
	}
	return false
}

// OrderType is how the order is fulfilled.
type OrderType string

const (
	OrderTypeDineIn   OrderType = "DINE_IN"
	OrderTypeTakeout  OrderType = "TAKEOUT"
	OrderTypeDelivery OrderType = "DELIVERY"
)

// IsValid reports whether t is a known order type.
func (t OrderType) IsValid() bool {
	switch t {
	case OrderTypeDineIn, OrderTypeTakeout, OrderTypeDelivery:
		return true
	}
	return false
}

// ── Group B: Configurable labels (no DB constraint) ──

// FeedTransport selects how a terminal receives the order change feed.
type FeedTransport string

const (
	FeedTransportPostgres  FeedTransport = "postgres"
	FeedTransportWebsocket FeedTransport = "websocket"
	FeedTransportRedis     FeedTransport = "redis"
)

// IsValid reports whether t is a supported feed transport.
func (t FeedTransport) IsValid() bool {
	switch t {
	case FeedTransportPostgres, FeedTransportWebsocket, FeedTransportRedis:
		return true
	}
	return false
}
