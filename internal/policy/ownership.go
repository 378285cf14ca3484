package policy

import (
	"context"

	"github.com/diewo77/sales-portal/auth"
	"github.com/diewo77/sales-portal/gate"
	"github.com/diewo77/sales-portal/internal/models"
)

// OrderPolicy decides what a caller may do with an order.
//
// Staff may do anything. A representative may view, edit, delete and send
// its own orders, and create orders for itself. Approve and reject are
// reserved to staff.
type OrderPolicy struct{}

func NewOrderPolicy() *OrderPolicy {
	return &OrderPolicy{}
}

func (p *OrderPolicy) Can(_ context.Context, c *auth.Caller, action gate.Action, resource any) bool {
	if c.Staff {
		return true
	}
	switch action {
	case gate.ActionApprove, gate.ActionReject:
		return false
	}
	if !c.IsRepresentative() {
		return false
	}
	// list and create carry no resource; the query scope does the rest
	if resource == nil {
		return action == gate.ActionList || action == gate.ActionCreate
	}
	order, ok := resource.(*models.Order)
	if !ok {
		return false
	}
	return order.RepresentativeID != nil && *order.RepresentativeID == *c.RepresentativeID
}

// StaffOnly allows staff and denies everyone else.
func StaffOnly() gate.Policy[*auth.Caller] {
	return gate.PolicyFunc[*auth.Caller](func(_ context.Context, c *auth.Caller, _ gate.Action, _ any) bool {
		return c.Staff
	})
}

// Authenticated allows any resolved caller.
func Authenticated() gate.Policy[*auth.Caller] {
	return gate.PolicyFunc[*auth.Caller](func(context.Context, *auth.Caller, gate.Action, any) bool {
		return true
	})
}

// StaffWrites lets anyone read and only staff write.
func StaffWrites() gate.Policy[*auth.Caller] {
	return gate.PolicyFunc[*auth.Caller](func(_ context.Context, c *auth.Caller, action gate.Action, _ any) bool {
		switch action {
		case gate.ActionView, gate.ActionList:
			return true
		}
		return c.Staff
	})
}
