package services

import (
	"context"
	"errors"
	"strings"

	"github.com/diewo77/sales-portal/internal/metrics"
	"github.com/diewo77/sales-portal/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SimulationItemInput is one (sku, quantity) pair to price.
type SimulationItemInput struct {
	SKU      string          `json:"sku"`
	Quantity decimal.Decimal `json:"qty"`
}

// SimulationInput is the body of a pricing preview.
type SimulationInput struct {
	Table string                `json:"table"`
	Items []SimulationItemInput `json:"items"`
}

// SimulationLine is the breakdown of one simulated item. Error is set, and
// every amount left empty, when the item could not be priced.
type SimulationLine struct {
	SKU             string `json:"sku"`
	Description     string `json:"description,omitempty"`
	Quantity        string `json:"qty,omitempty"`
	UnitPrice       string `json:"unit_price,omitempty"`
	DiscountPercent string `json:"discount_percent,omitempty"`
	Gross           string `json:"gross,omitempty"`
	Discount        string `json:"discount,omitempty"`
	Net             string `json:"net,omitempty"`
	Error           string `json:"error,omitempty"`
}

// SimulationResult is the answer of a pricing preview.
type SimulationResult struct {
	Table         string           `json:"table"`
	Items         []SimulationLine `json:"items"`
	TotalGross    string           `json:"total_gross"`
	TotalDiscount string           `json:"total_discount"`
	TotalNet      string           `json:"total_net"`
}

// Simulator previews prices with volume discounts without writing anything.
type Simulator struct {
	db           *gorm.DB
	defaultTable string
	metrics      *metrics.Metrics
}

// NewSimulator creates a Simulator. defaultTable is used when the request
// names no table.
func NewSimulator(db *gorm.DB, defaultTable string, m *metrics.Metrics) *Simulator {
	if m == nil {
		m = metrics.NewNop()
	}
	return &Simulator{db: db, defaultTable: defaultTable, metrics: m}
}

// Simulate prices every item against the named table, falling back to any
// active table that prices the product. Items that cannot be priced are
// reported one by one and left out of the totals.
func (s *Simulator) Simulate(ctx context.Context, in SimulationInput) (*SimulationResult, error) {
	table := strings.TrimSpace(in.Table)
	if table == "" {
		table = s.defaultTable
	}
	db := s.db.WithContext(ctx)
	s.metrics.SimulationsTotal.Inc()

	res := &SimulationResult{Table: table, Items: make([]SimulationLine, 0, len(in.Items))}
	gross, disc, net := decimal.Zero, decimal.Zero, decimal.Zero

	for _, it := range in.Items {
		sku := strings.TrimSpace(it.SKU)
		line, err := s.priceItem(db, table, sku, it.Quantity)
		if err != nil {
			var ve *ValidationError
			if !errors.As(err, &ve) {
				return nil, err
			}
			s.metrics.SimulationMisses.Inc()
			res.Items = append(res.Items, SimulationLine{SKU: sku, Error: ve.Reason})
			continue
		}
		gross = gross.Add(line.gross)
		disc = disc.Add(line.discount)
		net = net.Add(line.net)
		res.Items = append(res.Items, line.SimulationLine)
	}

	res.TotalGross = gross.StringFixed(2)
	res.TotalDiscount = disc.StringFixed(2)
	res.TotalNet = net.StringFixed(2)
	return res, nil
}

type pricedLine struct {
	SimulationLine
	gross, discount, net decimal.Decimal
}

func (s *Simulator) priceItem(db *gorm.DB, table, sku string, qty decimal.Decimal) (*pricedLine, error) {
	if sku == "" {
		return nil, validationf("sku is required")
	}
	if !qty.IsPositive() {
		return nil, validationf("quantity must be greater than zero")
	}
	var product models.Product
	if err := db.Where("sku = ?", sku).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, validationf("sku not found")
		}
		return nil, err
	}

	unit, err := s.findPrice(db, product.ID, table)
	if err != nil {
		return nil, err
	}

	pct := VolumeDiscountPercent(qty)
	gross := unit.Mul(qty).Round(2)
	discount := gross.Mul(pct).Div(hundred).Round(2)
	net := gross.Sub(discount)

	return &pricedLine{
		SimulationLine: SimulationLine{
			SKU:             sku,
			Description:     product.Description,
			Quantity:        qty.String(),
			UnitPrice:       unit.StringFixed(2),
			DiscountPercent: pct.String(),
			Gross:           gross.StringFixed(2),
			Discount:        discount.StringFixed(2),
			Net:             net.StringFixed(2),
		},
		gross:    gross,
		discount: discount,
		net:      net,
	}, nil
}

// findPrice returns the product's price in the named active table, else its
// price in any active table.
func (s *Simulator) findPrice(db *gorm.DB, productID uint, table string) (decimal.Decimal, error) {
	var price models.Price
	err := db.Joins("JOIN price_tables ON price_tables.id = prices.price_table_id").
		Where("prices.product_id = ? AND price_tables.name = ? AND price_tables.active = ?", productID, table, true).
		First(&price).Error
	if err == nil {
		return price.Amount.Round(2), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, err
	}

	err = db.Joins("JOIN price_tables ON price_tables.id = prices.price_table_id").
		Where("prices.product_id = ? AND price_tables.active = ?", productID, true).
		Order("prices.id").
		First(&price).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, validationf("price not found")
	}
	if err != nil {
		return decimal.Zero, err
	}
	return price.Amount.Round(2), nil
}
