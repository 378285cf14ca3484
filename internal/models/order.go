package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderStatus represents the workflow state of an order.
type OrderStatus string

const (
	OrderStatusDraft    OrderStatus = "DRAFT"
	OrderStatusSent     OrderStatus = "SENT"
	OrderStatusApproved OrderStatus = "APPROVED"
	OrderStatusRejected OrderStatus = "REJECTED"
)

// OrderAction is a workflow verb applied to an order.
type OrderAction string

const (
	OrderActionSend    OrderAction = "send"
	OrderActionApprove OrderAction = "approve"
	OrderActionReject  OrderAction = "reject"
)

// transitions lists, per action, the states it may start from and where it leads.
var transitions = map[OrderAction]struct {
	from []OrderStatus
	to   OrderStatus
}{
	OrderActionSend:    {from: []OrderStatus{OrderStatusDraft}, to: OrderStatusSent},
	OrderActionApprove: {from: []OrderStatus{OrderStatusSent}, to: OrderStatusApproved},
	OrderActionReject:  {from: []OrderStatus{OrderStatusDraft, OrderStatusSent}, to: OrderStatusRejected},
}

// Order is a sales order owned by a representative and placed for a client.
type Order struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Number string `gorm:"size:30;uniqueIndex;not null" json:"number"`

	// RepresentativeID is the owner used for visibility scoping. It may be
	// unset when a staff user places an order without naming one.
	RepresentativeID *uint           `gorm:"index" json:"representative_id"`
	Representative   *Representative `gorm:"foreignKey:RepresentativeID" json:"representative,omitempty"`

	ClientID uint    `gorm:"index;not null" json:"client_id"`
	Client   *Client `gorm:"foreignKey:ClientID" json:"client,omitempty"`

	Status OrderStatus `gorm:"size:20;not null;index" json:"status"`

	// Total is derived from the lines and never accepted as input.
	Total decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"total"`

	Lines []OrderLine `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

// IsDraft returns true if the order has not been sent yet.
func (o *Order) IsDraft() bool {
	return o.Status == OrderStatusDraft
}

// IsTerminal returns true once the order was approved or rejected.
func (o *Order) IsTerminal() bool {
	return o.Status == OrderStatusApproved || o.Status == OrderStatusRejected
}

// NextStatus returns the state reached by applying action, and false when
// the action is not allowed from the current state.
func (o *Order) NextStatus(action OrderAction) (OrderStatus, bool) {
	t, ok := transitions[action]
	if !ok {
		return o.Status, false
	}
	for _, from := range t.from {
		if o.Status == from {
			return t.to, true
		}
	}
	return o.Status, false
}

// OrderLine is a product line on an order.
type OrderLine struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	OrderID uint   `gorm:"index;not null" json:"order_id"`
	Order   *Order `gorm:"foreignKey:OrderID" json:"-"`

	ProductID uint     `gorm:"index;not null" json:"product_id"`
	Product   *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`

	Quantity  decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	// Discount is a percentage between 0 and 100.
	Discount decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"discount"`
	Subtotal decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"subtotal"`
}

var hundred = decimal.NewFromInt(100)

// LineSubtotal is quantity × unit price × (1 − discount/100), rounded to cents.
func LineSubtotal(qty, unitPrice, discountPct decimal.Decimal) decimal.Decimal {
	factor := decimal.NewFromInt(1).Sub(discountPct.Div(hundred))
	return qty.Mul(unitPrice).Mul(factor).Round(2)
}

// BeforeSave recomputes the subtotal on every create and save.
func (l *OrderLine) BeforeSave(tx *gorm.DB) error {
	l.Subtotal = LineSubtotal(l.Quantity, l.UnitPrice, l.Discount)
	return nil
}
