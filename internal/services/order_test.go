package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/diewo77/sales-portal/auth"
	"github.com/diewo77/sales-portal/gate"
	"github.com/diewo77/sales-portal/internal/models"
	"github.com/shopspring/decimal"
)

func TestFlatSubtotal(t *testing.T) {
	tests := []struct {
		qty, price, discount, want string
	}{
		{"2", "10.00", "0", "20"},
		{"2", "10.00", "5", "15"},
		{"1.5", "3.33", "0.5", "4.5"},
		{"3", "1.00", "5", "-2"},
	}
	for _, tt := range tests {
		got := FlatSubtotal(d(tt.qty), d(tt.price), d(tt.discount))
		if !got.Equal(d(tt.want)) {
			t.Errorf("FlatSubtotal(%s,%s,%s) = %s, want %s", tt.qty, tt.price, tt.discount, got, tt.want)
		}
	}
}

func TestOrderCreate_FlatTotal(t *testing.T) {
	db := setupTestDB(t)
	f := seedFixtures(t, db)
	svc := newOrderService(t, db, f, nil)

	order, err := svc.Create(context.Background(), f.repCaller(), CreateOrderInput{
		ClientID: f.client.ID,
		Items: []OrderItemInput{
			{SKU: "SKU-001", Quantity: d("2"), Discount: d("5")},
			{ProductID: f.p2.ID},
			{SKU: "SKU-001", Quantity: d("3"), UnitPrice: d("12.50")},
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	// 2×10−5 + 1×20 + 3×12.50
	if !order.Total.Equal(d("72.5")) {
		t.Errorf("total = %s, want 72.5", order.Total)
	}
	if order.Status != models.OrderStatusDraft {
		t.Errorf("status = %s, want DRAFT", order.Status)
	}
	if !strings.HasPrefix(order.Number, OrderNumberPrefix) {
		t.Errorf("number %q lacks prefix", order.Number)
	}
	if order.RepresentativeID == nil || *order.RepresentativeID != f.rep.ID {
		t.Errorf("representative not resolved from caller: %v", order.RepresentativeID)
	}
	if len(order.Lines) != 3 {
		t.Fatalf("expected 3 lines got %d", len(order.Lines))
	}
	// Stored line subtotals use the percentage formula.
	if !order.Lines[0].Subtotal.Equal(d("19")) {
		t.Errorf("line subtotal = %s, want 19", order.Lines[0].Subtotal)
	}
}

func TestOrderCreate_DiscountBound(t *testing.T) {
	db := setupTestDB(t)
	f := seedFixtures(t, db)
	svc := newOrderService(t, db, f, nil)

	// 100 is the largest discount a line can carry, flat on the order total
	// and a percentage on the stored line.
	order, err := svc.Create(context.Background(), f.staff(), CreateOrderInput{
		ClientID: f.client.ID,
		Items:    []OrderItemInput{{SKU: "SKU-001", Quantity: d("20"), Discount: d("100")}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !order.Total.Equal(d("100")) {
		t.Errorf("total = %s, want 100", order.Total)
	}
	if !order.Lines[0].Subtotal.IsZero() {
		t.Errorf("line subtotal = %s, want 0", order.Lines[0].Subtotal)
	}

	_, err = svc.Create(context.Background(), f.staff(), CreateOrderInput{
		ClientID: f.client.ID,
		Items:    []OrderItemInput{{SKU: "SKU-001", Quantity: d("100"), Discount: d("150")}},
	})
	var ve *ValidationError
	if !errors.As(err, &ve) || !strings.Contains(ve.Reason, "discount must be between 0 and 100") {
		t.Fatalf("expected discount range error, got %v", err)
	}
}

func TestOrderCreate_KeepsGivenNumberAndStaffWithoutRep(t *testing.T) {
	db := setupTestDB(t)
	f := seedFixtures(t, db)
	svc := newOrderService(t, db, f, nil)

	order, err := svc.Create(context.Background(), f.staff(), CreateOrderInput{
		ClientID: f.client.ID,
		Number:   "PV-MANUAL-1",
		Items:    []OrderItemInput{{SKU: "SKU-002"}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if order.Number != "PV-MANUAL-1" {
		t.Errorf("number = %q", order.Number)
	}
	if order.RepresentativeID != nil {
		t.Errorf("expected no representative, got %d", *order.RepresentativeID)
	}
}

func TestOrderCreate_AllOrNothing(t *testing.T) {
	db := setupTestDB(t)
	f := seedFixtures(t, db)
	svc := newOrderService(t, db, f, nil)

	noPrice := models.Product{SKU: "SKU-003", Description: "Unpriced", Active: true}
	mustCreate(t, db, &noPrice)

	tests := []struct {
		name  string
		items []OrderItemInput
		want  string
	}{
		{"unknown sku", []OrderItemInput{{SKU: "SKU-001"}, {SKU: "NOPE"}}, "not found"},
		{"no product reference", []OrderItemInput{{Quantity: d("1")}}, "product id or sku is required"},
		{"missing price", []OrderItemInput{{SKU: "SKU-001"}, {SKU: "SKU-003"}}, "has no price in table"},
		{"bad discount", []OrderItemInput{{SKU: "SKU-001", Discount: d("101")}}, "discount"},
		{"negative quantity", []OrderItemInput{{SKU: "SKU-001", Quantity: d("-1")}}, "quantity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), f.staff(), CreateOrderInput{ClientID: f.client.ID, Items: tt.items})
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError got %v", err)
			}
			if !strings.Contains(ve.Reason, tt.want) {
				t.Errorf("reason %q does not mention %q", ve.Reason, tt.want)
			}
		})
	}

	var orders, lines int64
	db.Model(&models.Order{}).Count(&orders)
	db.Model(&models.OrderLine{}).Count(&lines)
	if orders != 0 || lines != 0 {
		t.Fatalf("expected rollback, found %d orders and %d lines", orders, lines)
	}
}

func TestOrderCreate_PriceTableResolution(t *testing.T) {
	db := setupTestDB(t)
	f := seedFixtures(t, db)
	svc := newOrderService(t, db, f, nil)

	promo := models.PriceTable{Name: "Promo", Active: true}
	mustCreate(t, db, &promo)
	mustCreate(t, db, &models.Price{ProductID: f.p1.ID, PriceTableID: promo.ID, Amount: d("8.00")})
	closed := models.PriceTable{Name: "Closed", Active: true}
	mustCreate(t, db, &closed)
	db.Model(&closed).Update("active", false)

	ctx := context.Background()
	o, err := svc.Create(ctx, f.staff(), CreateOrderInput{ClientID: f.client.ID, Table: "Promo", Items: []OrderItemInput{{SKU: "SKU-001"}}})
	if err != nil || !o.Total.Equal(d("8")) {
		t.Fatalf("named table: total=%v err=%v", o, err)
	}
	o, err = svc.Create(ctx, f.staff(), CreateOrderInput{ClientID: f.client.ID, Table: "Unknown", Items: []OrderItemInput{{SKU: "SKU-001"}}})
	if err != nil || !o.Total.Equal(d("10")) {
		t.Fatalf("unknown table falls back to default: order=%v err=%v", o, err)
	}
	_, err = svc.Create(ctx, f.staff(), CreateOrderInput{ClientID: f.client.ID, Table: "Closed", Items: []OrderItemInput{{SKU: "SKU-001"}}})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("inactive table: expected ValidationError got %v", err)
	}

	var tables int64
	db.Model(&models.PriceTable{}).Count(&tables)
	if tables != 3 {
		t.Errorf("no table may be created while pricing, have %d", tables)
	}
}

func TestOrderCreate_RepresentativeForOthers(t *testing.T) {
	db := setupTestDB(t)
	f := seedFixtures(t, db)
	svc := newOrderService(t, db, f, nil)

	other := f.otherRep.ID
	_, err := svc.Create(context.Background(), f.repCaller(), CreateOrderInput{
		ClientID: f.client.ID, RepresentativeID: &other, Items: []OrderItemInput{{SKU: "SKU-001"}},
	})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden got %v", err)
	}
	o, err := svc.Create(context.Background(), f.staff(), CreateOrderInput{
		ClientID: f.client.ID, RepresentativeID: &other, Items: []OrderItemInput{{SKU: "SKU-001"}},
	})
	if err != nil {
		t.Fatalf("staff create: %v", err)
	}
	if *o.RepresentativeID != other {
		t.Errorf("representative = %d, want %d", *o.RepresentativeID, other)
	}
}

func TestOrderLines_RecomputeTotal(t *testing.T) {
	db := setupTestDB(t)
	f := seedFixtures(t, db)
	svc := newOrderService(t, db, f, nil)
	ctx := context.Background()
	caller := f.repCaller()

	order, err := svc.Create(ctx, caller, CreateOrderInput{ClientID: f.client.ID, Items: []OrderItemInput{{SKU: "SKU-001", Quantity: d("2"), Discount: d("5")}}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !order.Total.Equal(d("15")) {
		t.Fatalf("flat total = %s, want 15", order.Total)
	}

	price := d("50.00")
	line, total, err := svc.AddLine(ctx, caller, order.ID, LineInput{SKU: "SKU-002", Quantity: d("10"), UnitPrice: &price, Discount: d("12")})
	if err != nil {
		t.Fatalf("add line: %v", err)
	}
	if !line.Subtotal.Equal(d("440")) {
		t.Errorf("subtotal = %s, want 440", line.Subtotal)
	}
	// 19 (first line, percentage formula) + 440
	if !total.Equal(d("459")) {
		t.Errorf("total after add = %s, want 459", total)
	}

	_, total, err = svc.UpdateLine(ctx, caller, order.ID, line.ID, LineInput{SKU: "SKU-002", Quantity: d("1")})
	if err != nil {
		t.Fatalf("update line: %v", err)
	}
	// Default table price 20.00 when no unit price is given.
	if !total.Equal(d("39")) {
		t.Errorf("total after update = %s, want 39", total)
	}

	total, err = svc.DeleteLine(ctx, caller, order.ID, line.ID)
	if err != nil {
		t.Fatalf("delete line: %v", err)
	}
	if !total.Equal(d("19")) {
		t.Errorf("total after delete = %s, want 19", total)
	}

	var stored models.Order
	db.First(&stored, order.ID)
	if !stored.Total.Equal(total) {
		t.Errorf("persisted total %s differs from returned %s", stored.Total, total)
	}

	if _, err := svc.DeleteLine(ctx, caller, order.ID, 9999); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown line: expected ErrNotFound got %v", err)
	}
	if _, _, err := svc.AddLine(ctx, caller, order.ID, LineInput{SKU: "SKU-001", Quantity: decimal.Zero}); err == nil {
		t.Error("zero quantity line must be rejected")
	}
}

func TestOrderTransitions(t *testing.T) {
	db := setupTestDB(t)
	f := seedFixtures(t, db)
	svc := newOrderService(t, db, f, nil)
	ctx := context.Background()
	staff := f.staff()

	newOrder := func() *models.Order {
		o, err := svc.Create(ctx, staff, CreateOrderInput{ClientID: f.client.ID, Items: []OrderItemInput{{SKU: "SKU-001"}}})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		return o
	}

	o := newOrder()
	_, err := svc.Approve(ctx, staff, o.ID)
	var ite *InvalidTransitionError
	if !errors.As(err, &ite) {
		t.Fatalf("approve draft: expected InvalidTransition got %v", err)
	}
	var reloaded models.Order
	db.First(&reloaded, o.ID)
	if reloaded.Status != models.OrderStatusDraft {
		t.Fatalf("status changed to %s", reloaded.Status)
	}

	if got, err := svc.Send(ctx, staff, o.ID); err != nil || got.Status != models.OrderStatusSent {
		t.Fatalf("send: %v %v", got, err)
	}
	if got, err := svc.Approve(ctx, staff, o.ID); err != nil || got.Status != models.OrderStatusApproved {
		t.Fatalf("approve: %v %v", got, err)
	}
	for _, act := range []func(context.Context, *auth.Caller, uint) (*models.Order, error){svc.Send, svc.Approve, svc.Reject} {
		if _, err := act(ctx, staff, o.ID); !errors.As(err, &ite) {
			t.Errorf("terminal order accepted a transition: %v", err)
		}
	}

	o = newOrder()
	if got, err := svc.Reject(ctx, staff, o.ID); err != nil || got.Status != models.OrderStatusRejected {
		t.Fatalf("reject draft: %v %v", got, err)
	}

	o = newOrder()
	if _, err := svc.DeleteLine(ctx, staff, o.ID, o.Lines[0].ID); err != nil {
		t.Fatalf("delete line: %v", err)
	}
	_, err = svc.Send(ctx, staff, o.ID)
	if !errors.As(err, &ite) || ite.Reason != "order has no items" {
		t.Fatalf("send without items: got %v", err)
	}
}

func TestOrderScoping(t *testing.T) {
	db := setupTestDB(t)
	f := seedFixtures(t, db)
	svc := newOrderService(t, db, f, nil)
	ctx := context.Background()

	mine, err := svc.Create(ctx, f.repCaller(), CreateOrderInput{ClientID: f.client.ID, Items: []OrderItemInput{{SKU: "SKU-001"}}})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Create(ctx, f.otherCaller(), CreateOrderInput{ClientID: f.client.ID, Items: []OrderItemInput{{SKU: "SKU-002"}}}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		caller *auth.Caller
		want   int64
	}{
		{"staff", f.staff(), 2},
		{"representative", f.repCaller(), 1},
		{"plain user", &auth.Caller{UserID: 99}, 0},
		{"anonymous", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orders, total, err := svc.List(ctx, tt.caller, "", 1)
			if err != nil {
				t.Fatal(err)
			}
			if total != tt.want || int64(len(orders)) != tt.want {
				t.Errorf("got %d orders (total %d), want %d", len(orders), total, tt.want)
			}
		})
	}

	if _, err := svc.Get(ctx, f.otherCaller(), mine.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("foreign order: expected ErrNotFound got %v", err)
	}
	if _, err := svc.Send(ctx, f.otherCaller(), mine.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("foreign send: expected ErrNotFound got %v", err)
	}

	orders, _, err := svc.List(ctx, f.staff(), "rep002", 1)
	if err != nil || len(orders) != 1 || *orders[0].RepresentativeID != f.otherRep.ID {
		t.Errorf("search by representative code: %v %v", orders, err)
	}
}

type denyAll struct{}

func (denyAll) Authorize(context.Context, *auth.Caller, gate.Action, string, any) error {
	return gate.ErrUnauthorized
}

func TestOrderService_AuthorizerDenies(t *testing.T) {
	db := setupTestDB(t)
	f := seedFixtures(t, db)
	open := newOrderService(t, db, f, nil)
	guarded := newOrderService(t, db, f, denyAll{})
	ctx := context.Background()

	o, err := open.Create(ctx, f.repCaller(), CreateOrderInput{ClientID: f.client.ID, Items: []OrderItemInput{{SKU: "SKU-001"}}})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := guarded.Approve(ctx, f.repCaller(), o.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("approve: expected ErrForbidden got %v", err)
	}
	if err := guarded.Delete(ctx, f.repCaller(), o.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("delete: expected ErrForbidden got %v", err)
	}
	if err := open.Delete(ctx, f.repCaller(), o.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	var lines int64
	db.Model(&models.OrderLine{}).Where("order_id = ?", o.ID).Count(&lines)
	if lines != 0 {
		t.Errorf("lines survived order deletion: %d", lines)
	}
}

func TestNumberGenerator_Unique(t *testing.T) {
	g, err := NewNumberGenerator(7)
	if err != nil {
		t.Fatal(err)
	}
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		n := g.Next()
		if seen[n] {
			t.Fatalf("duplicate number %s", n)
		}
		seen[n] = true
	}
	if _, err := NewNumberGenerator(5000); err == nil {
		t.Error("expected error for out of range node")
	}
}
