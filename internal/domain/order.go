package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/kiwari-pos/terminal/internal/enum"
	"github.com/shopspring/decimal"
)

// CustomerInfo is the optional contact attached to an order.
type CustomerInfo struct {
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// LineItem is one ordered line. Prices are captured at order time.
type LineItem struct {
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

// Subtotal returns unit price × quantity.
func (li LineItem) Subtotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Order mirrors a row of the orders table. JSON tags follow the column names
// so change-feed records (row_to_json) decode straight into an Order.
type Order struct {
	ID          uuid.UUID        `json:"id"`
	BusinessID  uuid.UUID        `json:"business_id"`
	OrderNumber string           `json:"order_number"`
	Status      enum.OrderStatus `json:"status"`
	OrderType   enum.OrderType   `json:"order_type"`
	Customer    *CustomerInfo    `json:"customer_info"`
	Items       []LineItem       `json:"items"`
	TotalAmount decimal.Decimal  `json:"total_amount"`
	Notes       string           `json:"notes"`
	TableID     *uuid.UUID       `json:"table_id"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	ApprovedBy  *uuid.UUID       `json:"approved_by"`
	ApprovedAt  *time.Time       `json:"approved_at"`
}

// ComputeTotal returns Σ unit price × quantity over the line items.
func (o Order) ComputeTotal() decimal.Decimal {
	total := decimal.Zero
	for _, li := range o.Items {
		total = total.Add(li.Subtotal())
	}
	return total
}

// CheckTotal verifies the stored total against the derived one.
func (o Order) CheckTotal() error {
	if o.TotalAmount.IsNegative() {
		return &ConsistencyError{OrderID: o.ID, Reason: "total amount is negative"}
	}
	if computed := o.ComputeTotal(); !computed.Equal(o.TotalAmount) {
		return &ConsistencyError{
			OrderID: o.ID,
			Reason:  "total amount " + o.TotalAmount.StringFixed(2) + " does not match items sum " + computed.StringFixed(2),
		}
	}
	return nil
}

// NewerThan reports whether o carries a strictly later update than other.
func (o Order) NewerThan(other Order) bool {
	return o.UpdatedAt.After(other.UpdatedAt)
}

// Clone returns a deep copy so snapshots never alias the controller's state.
func (o Order) Clone() Order {
	c := o
	if o.Customer != nil {
		ci := *o.Customer
		c.Customer = &ci
	}
	if o.Items != nil {
		c.Items = append([]LineItem(nil), o.Items...)
	}
	if o.TableID != nil {
		id := *o.TableID
		c.TableID = &id
	}
	if o.ApprovedBy != nil {
		id := *o.ApprovedBy
		c.ApprovedBy = &id
	}
	if o.ApprovedAt != nil {
		t := *o.ApprovedAt
		c.ApprovedAt = &t
	}
	return c
}

// NewOrder is the validated input for creating an order.
type NewOrder struct {
	BusinessID uuid.UUID
	Status     enum.OrderStatus // NEW from a terminal, PENDING_APPROVAL from the QR menu
	OrderType  enum.OrderType
	Customer   *CustomerInfo
	Items      []LineItem
	Notes      string
	TableID    *uuid.UUID
}

// Validate checks the input before it reaches the store.
func (n NewOrder) Validate() error {
	if !n.OrderType.IsValid() {
		return InvalidInput("invalid order_type")
	}
	if n.Status != enum.OrderStatusNew && n.Status != enum.OrderStatusPendingApproval {
		return InvalidInput("orders start as NEW or PENDING_APPROVAL")
	}
	if len(n.Items) == 0 {
		return InvalidInput("items are required")
	}
	for _, li := range n.Items {
		if li.Name == "" {
			return InvalidInput("item name is required")
		}
		if li.Quantity <= 0 {
			return InvalidInput("quantity must be > 0")
		}
		if li.UnitPrice.IsNegative() {
			return InvalidInput("unit_price must be >= 0")
		}
	}
	if n.TableID != nil && n.OrderType != enum.OrderTypeDineIn {
		return InvalidInput("table_id is only allowed for DINE_IN orders")
	}
	return nil
}

// Total is the amount that will be stored for this order.
func (n NewOrder) Total() decimal.Decimal {
	return Order{Items: n.Items}.ComputeTotal()
}
