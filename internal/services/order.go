package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/diewo77/sales-portal/auth"
	"github.com/diewo77/sales-portal/gate"
	"github.com/diewo77/sales-portal/internal/metrics"
	"github.com/diewo77/sales-portal/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ResourceOrder is the gate resource type for orders.
const ResourceOrder = "order"

// OrderPageSize is the number of orders per list page.
const OrderPageSize = 20

// Authorizer decides whether a caller may act on a resource.
// *gate.Gate[*auth.Caller] satisfies it.
type Authorizer interface {
	Authorize(ctx context.Context, caller *auth.Caller, action gate.Action, resourceType string, resource any) error
}

// ScopeOrders restricts an orders query to what caller may see.
// Staff see everything, a representative sees its own orders and anyone
// else sees nothing.
func ScopeOrders(db *gorm.DB, c *auth.Caller) *gorm.DB {
	switch {
	case c == nil:
		return db.Where("1 = 0")
	case c.Staff:
		return db
	case c.RepresentativeID != nil:
		return db.Where("orders.representative_id = ?", *c.RepresentativeID)
	default:
		return db.Where("1 = 0")
	}
}

// OrderItemInput is one requested line of a new order. The product is
// given by id or by SKU.
type OrderItemInput struct {
	ProductID uint            `json:"product_id"`
	SKU       string          `json:"sku"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Discount  decimal.Decimal `json:"discount"`
}

// CreateOrderInput is the body of an order creation.
type CreateOrderInput struct {
	ClientID         uint             `json:"client_id"`
	RepresentativeID *uint            `json:"representative_id"`
	Table            string           `json:"table"`
	Number           string           `json:"number"`
	Items            []OrderItemInput `json:"items"`
}

// LineInput is the body of the standalone line endpoints. A nil UnitPrice
// takes the product's price in the default table.
type LineInput struct {
	ProductID uint             `json:"product_id"`
	SKU       string           `json:"sku"`
	Quantity  decimal.Decimal  `json:"quantity"`
	UnitPrice *decimal.Decimal `json:"unit_price"`
	Discount  decimal.Decimal  `json:"discount"`
}

// OrderService is the order pricing engine and workflow.
type OrderService struct {
	db             *gorm.DB
	defaultTableID uint
	numbers        *NumberGenerator
	authz          Authorizer
	metrics        *metrics.Metrics
}

// NewOrderService builds the service. defaultTable comes from
// EnsureDefaultTable; authz may be nil, in which case visibility is the only
// check applied.
func NewOrderService(db *gorm.DB, defaultTable *models.PriceTable, numbers *NumberGenerator, authz Authorizer, m *metrics.Metrics) *OrderService {
	if m == nil {
		m = metrics.NewNop()
	}
	return &OrderService{
		db:             db,
		defaultTableID: defaultTable.ID,
		numbers:        numbers,
		authz:          authz,
		metrics:        m,
	}
}

// Create builds an order and all its lines in one transaction.
//
// The order total is Σ(quantity × unit price − discount) with the discount
// taken as a currency amount, while each stored line keeps the percentage
// subtotal computed on save. See FlatSubtotal.
func (s *OrderService) Create(ctx context.Context, caller *auth.Caller, in CreateOrderInput) (*models.Order, error) {
	if in.ClientID == 0 {
		return nil, validationf("client is required")
	}
	if len(in.Items) == 0 {
		return nil, validationf("order needs at least one item")
	}

	db := s.db.WithContext(ctx)
	var client models.Client
	if err := db.First(&client, in.ClientID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, validationf("client %d not found", in.ClientID)
		}
		return nil, err
	}

	repID, err := s.resolveRepresentative(db, caller, in.RepresentativeID)
	if err != nil {
		return nil, err
	}
	table, err := s.resolveTable(db, in.Table)
	if err != nil {
		return nil, err
	}

	number := strings.TrimSpace(in.Number)
	if number == "" {
		number = s.numbers.Next()
	}

	order := models.Order{
		Number:           number,
		RepresentativeID: repID,
		ClientID:         client.ID,
		Status:           models.OrderStatusDraft,
		Total:            decimal.Zero,
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&order).Error; err != nil {
			return err
		}
		total := decimal.Zero
		for i, item := range in.Items {
			line, err := s.buildCreateLine(tx, table, item)
			if err != nil {
				if ve := (*ValidationError)(nil); errors.As(err, &ve) {
					return validationf("item %d: %s", i+1, ve.Reason)
				}
				return err
			}
			line.OrderID = order.ID
			if err := tx.Omit(clause.Associations).Create(line).Error; err != nil {
				return err
			}
			total = total.Add(FlatSubtotal(line.Quantity, line.UnitPrice, line.Discount))
		}
		order.Total = total
		return tx.Model(&order).Update("total", total).Error
	})
	if err != nil {
		return nil, err
	}

	s.metrics.OrdersCreated.Inc()
	return s.load(db, order.ID)
}

func (s *OrderService) resolveRepresentative(db *gorm.DB, caller *auth.Caller, given *uint) (*uint, error) {
	if given == nil {
		if caller.IsRepresentative() {
			id := *caller.RepresentativeID
			return &id, nil
		}
		return nil, nil
	}
	if caller == nil || (!caller.Staff && (caller.RepresentativeID == nil || *caller.RepresentativeID != *given)) {
		return nil, fmt.Errorf("placing an order for another representative: %w", ErrForbidden)
	}
	var rep models.Representative
	if err := db.First(&rep, *given).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, validationf("representative %d not found", *given)
		}
		return nil, err
	}
	id := rep.ID
	return &id, nil
}

// resolveTable returns the named table, or the default table when the name
// is empty or unknown. A named table that is inactive is rejected.
func (s *OrderService) resolveTable(db *gorm.DB, name string) (*models.PriceTable, error) {
	var table models.PriceTable
	name = strings.TrimSpace(name)
	if name != "" {
		err := db.Where("name = ?", name).First(&table).Error
		switch {
		case err == nil:
			if !table.Active {
				return nil, validationf("price table %q is inactive", name)
			}
			return &table, nil
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, err
		}
	}
	if err := db.First(&table, s.defaultTableID).Error; err != nil {
		return nil, fmt.Errorf("load default price table: %w", err)
	}
	return &table, nil
}

func (s *OrderService) buildCreateLine(tx *gorm.DB, table *models.PriceTable, item OrderItemInput) (*models.OrderLine, error) {
	product, err := resolveProduct(tx, item.ProductID, item.SKU)
	if err != nil {
		return nil, err
	}
	var price models.Price
	err = tx.Where("product_id = ? AND price_table_id = ?", product.ID, table.ID).First(&price).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, validationf("product %s has no price in table %q", product.SKU, table.Name)
	}
	if err != nil {
		return nil, err
	}

	qty := item.Quantity
	if qty.IsZero() {
		qty = decimal.NewFromInt(1)
	}
	unitPrice := item.UnitPrice
	if unitPrice.IsZero() {
		unitPrice = price.Amount
	}
	// The order total subtracts the discount as a flat amount, but the line
	// row keeps it in the percentage column that later recomputes read, so
	// it is bounded to [0, 100] like any other line discount.
	if err := checkLineValues(qty, unitPrice, item.Discount); err != nil {
		return nil, err
	}
	return &models.OrderLine{
		ProductID: product.ID,
		Product:   product,
		Quantity:  qty,
		UnitPrice: unitPrice,
		Discount:  item.Discount,
	}, nil
}

func resolveProduct(db *gorm.DB, id uint, sku string) (*models.Product, error) {
	var product models.Product
	sku = strings.TrimSpace(sku)
	switch {
	case id != 0:
		if err := db.First(&product, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, validationf("product %d not found", id)
			}
			return nil, err
		}
	case sku != "":
		if err := db.Where("sku = ?", sku).First(&product).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, validationf("product with sku %q not found", sku)
			}
			return nil, err
		}
	default:
		return nil, validationf("product id or sku is required")
	}
	return &product, nil
}

func checkLineValues(qty, unitPrice, discount decimal.Decimal) error {
	if !qty.IsPositive() {
		return validationf("quantity must be greater than zero")
	}
	if unitPrice.IsNegative() {
		return validationf("unit price must not be negative")
	}
	if discount.IsNegative() || discount.GreaterThan(hundred) {
		return validationf("discount must be between 0 and 100")
	}
	return nil
}

func (s *OrderService) load(db *gorm.DB, id uint) (*models.Order, error) {
	var order models.Order
	err := db.Preload("Lines", func(tx *gorm.DB) *gorm.DB { return tx.Order("order_lines.id") }).
		Preload("Lines.Product").
		Preload("Client").
		Preload("Representative").
		First(&order, id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// Get returns an order visible to caller with its lines.
func (s *OrderService) Get(ctx context.Context, caller *auth.Caller, id uint) (*models.Order, error) {
	db := s.db.WithContext(ctx)
	if _, err := s.findScoped(db, caller, id, false); err != nil {
		return nil, err
	}
	return s.load(db, id)
}

// List returns one page of orders visible to caller, newest first. q
// searches the order number, client name and representative code.
func (s *OrderService) List(ctx context.Context, caller *auth.Caller, q string, page int) ([]models.Order, int64, error) {
	if page < 1 {
		page = 1
	}
	query := ScopeOrders(s.db.WithContext(ctx).Model(&models.Order{}), caller).
		Joins("LEFT JOIN clients ON clients.id = orders.client_id").
		Joins("LEFT JOIN representatives ON representatives.id = orders.representative_id")
	if q = strings.TrimSpace(q); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		query = query.Where("LOWER(orders.number) LIKE ? OR LOWER(clients.name) LIKE ? OR LOWER(representatives.code) LIKE ?", like, like, like)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var orders []models.Order
	err := query.Select("orders.*").
		Preload("Client").
		Preload("Representative").
		Order("orders.created_at DESC, orders.id DESC").
		Limit(OrderPageSize).
		Offset((page - 1) * OrderPageSize).
		Find(&orders).Error
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// Delete removes an order and its lines.
func (s *OrderService) Delete(ctx context.Context, caller *auth.Caller, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.findScoped(tx, caller, id, true)
		if err != nil {
			return err
		}
		if err := s.authorize(ctx, caller, gate.ActionDelete, order); err != nil {
			return err
		}
		if err := tx.Where("order_id = ?", order.ID).Delete(&models.OrderLine{}).Error; err != nil {
			return err
		}
		return tx.Delete(order).Error
	})
}

// findScoped loads an order visible to caller, taking a row lock when lock
// is set and the database supports it.
func (s *OrderService) findScoped(db *gorm.DB, caller *auth.Caller, id uint, lock bool) (*models.Order, error) {
	query := ScopeOrders(db, caller)
	if lock && db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var order models.Order
	if err := query.First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("order %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &order, nil
}

func (s *OrderService) authorize(ctx context.Context, caller *auth.Caller, action gate.Action, order *models.Order) error {
	if s.authz == nil {
		return nil
	}
	if err := s.authz.Authorize(ctx, caller, action, ResourceOrder, order); err != nil {
		return fmt.Errorf("%s order %d: %w", action, order.ID, ErrForbidden)
	}
	return nil
}

// RecomputeTotal sets the order total to the sum of its line subtotals and
// returns it. It must run inside the transaction that changed the lines.
func RecomputeTotal(tx *gorm.DB, orderID uint) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := tx.Model(&models.OrderLine{}).
		Select("COALESCE(SUM(subtotal), 0)").
		Where("order_id = ?", orderID).
		Row().Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum order lines: %w", err)
	}
	total = total.Round(2)
	if err := tx.Model(&models.Order{}).Where("id = ?", orderID).Update("total", total).Error; err != nil {
		return decimal.Zero, fmt.Errorf("update order total: %w", err)
	}
	return total, nil
}

// AddLine appends a line to an order and recomputes its total.
func (s *OrderService) AddLine(ctx context.Context, caller *auth.Caller, orderID uint, in LineInput) (*models.OrderLine, decimal.Decimal, error) {
	var (
		line  *models.OrderLine
		total decimal.Decimal
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.findScoped(tx, caller, orderID, true)
		if err != nil {
			return err
		}
		if err := s.authorize(ctx, caller, gate.ActionUpdate, order); err != nil {
			return err
		}
		line, err = s.buildLine(tx, in)
		if err != nil {
			return err
		}
		line.OrderID = order.ID
		if err := tx.Omit(clause.Associations).Create(line).Error; err != nil {
			return err
		}
		total, err = RecomputeTotal(tx, order.ID)
		return err
	})
	if err != nil {
		return nil, decimal.Zero, err
	}
	s.metrics.OrderLineChanges.WithLabelValues("create").Inc()
	return line, total, nil
}

// UpdateLine replaces the product, quantity, price and discount of a line
// and recomputes the order total.
func (s *OrderService) UpdateLine(ctx context.Context, caller *auth.Caller, orderID, lineID uint, in LineInput) (*models.OrderLine, decimal.Decimal, error) {
	var (
		line  *models.OrderLine
		total decimal.Decimal
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.findScoped(tx, caller, orderID, true)
		if err != nil {
			return err
		}
		if err := s.authorize(ctx, caller, gate.ActionUpdate, order); err != nil {
			return err
		}
		existing, err := findLine(tx, order.ID, lineID)
		if err != nil {
			return err
		}
		line, err = s.buildLine(tx, in)
		if err != nil {
			return err
		}
		line.ID = existing.ID
		line.OrderID = order.ID
		line.CreatedAt = existing.CreatedAt
		if err := tx.Omit(clause.Associations).Save(line).Error; err != nil {
			return err
		}
		total, err = RecomputeTotal(tx, order.ID)
		return err
	})
	if err != nil {
		return nil, decimal.Zero, err
	}
	s.metrics.OrderLineChanges.WithLabelValues("update").Inc()
	return line, total, nil
}

// DeleteLine removes a line and recomputes the order total.
func (s *OrderService) DeleteLine(ctx context.Context, caller *auth.Caller, orderID, lineID uint) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.findScoped(tx, caller, orderID, true)
		if err != nil {
			return err
		}
		if err := s.authorize(ctx, caller, gate.ActionUpdate, order); err != nil {
			return err
		}
		line, err := findLine(tx, order.ID, lineID)
		if err != nil {
			return err
		}
		if err := tx.Delete(line).Error; err != nil {
			return err
		}
		total, err = RecomputeTotal(tx, order.ID)
		return err
	})
	if err != nil {
		return decimal.Zero, err
	}
	s.metrics.OrderLineChanges.WithLabelValues("delete").Inc()
	return total, nil
}

func findLine(tx *gorm.DB, orderID, lineID uint) (*models.OrderLine, error) {
	var line models.OrderLine
	if err := tx.Where("id = ? AND order_id = ?", lineID, orderID).First(&line).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("order line %d: %w", lineID, ErrNotFound)
		}
		return nil, err
	}
	return &line, nil
}

func (s *OrderService) buildLine(tx *gorm.DB, in LineInput) (*models.OrderLine, error) {
	product, err := resolveProduct(tx, in.ProductID, in.SKU)
	if err != nil {
		return nil, err
	}
	var unitPrice decimal.Decimal
	if in.UnitPrice != nil {
		unitPrice = *in.UnitPrice
	} else {
		var price models.Price
		err := tx.Where("product_id = ? AND price_table_id = ?", product.ID, s.defaultTableID).First(&price).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, validationf("product %s has no price in the default table", product.SKU)
		}
		if err != nil {
			return nil, err
		}
		unitPrice = price.Amount
	}
	if err := checkLineValues(in.Quantity, unitPrice, in.Discount); err != nil {
		return nil, err
	}
	return &models.OrderLine{
		ProductID: product.ID,
		Product:   product,
		Quantity:  in.Quantity,
		UnitPrice: unitPrice,
		Discount:  in.Discount,
	}, nil
}

// Send moves a draft order with at least one line to SENT.
func (s *OrderService) Send(ctx context.Context, caller *auth.Caller, id uint) (*models.Order, error) {
	return s.transition(ctx, caller, id, models.OrderActionSend)
}

// Approve moves a sent order to APPROVED.
func (s *OrderService) Approve(ctx context.Context, caller *auth.Caller, id uint) (*models.Order, error) {
	return s.transition(ctx, caller, id, models.OrderActionApprove)
}

// Reject moves a draft or sent order to REJECTED.
func (s *OrderService) Reject(ctx context.Context, caller *auth.Caller, id uint) (*models.Order, error) {
	return s.transition(ctx, caller, id, models.OrderActionReject)
}

func (s *OrderService) transition(ctx context.Context, caller *auth.Caller, id uint, action models.OrderAction) (*models.Order, error) {
	var order *models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = s.findScoped(tx, caller, id, true)
		if err != nil {
			return err
		}
		if err := s.authorize(ctx, caller, gate.Action(action), order); err != nil {
			return err
		}
		next, ok := order.NextStatus(action)
		if !ok {
			return &InvalidTransitionError{From: order.Status, Action: action}
		}
		if action == models.OrderActionSend {
			var lines int64
			if err := tx.Model(&models.OrderLine{}).Where("order_id = ?", order.ID).Count(&lines).Error; err != nil {
				return err
			}
			if lines == 0 {
				return &InvalidTransitionError{From: order.Status, Action: action, Reason: "order has no items"}
			}
		}
		if err := tx.Model(order).Update("status", next).Error; err != nil {
			return err
		}
		order.Status = next
		return nil
	})

	outcome := "ok"
	var ite *InvalidTransitionError
	switch {
	case errors.As(err, &ite):
		outcome = "invalid"
	case err != nil:
		outcome = "error"
	}
	s.metrics.OrderTransitions.WithLabelValues(string(action), outcome).Inc()

	if err != nil {
		return nil, err
	}
	return order, nil
}
