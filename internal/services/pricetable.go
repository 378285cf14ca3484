package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/diewo77/sales-portal/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// EnsureDefaultTable returns the price table named name, creating it active
// when it does not exist yet. It runs once at startup; request paths only
// ever read the table it returns.
func EnsureDefaultTable(ctx context.Context, db *gorm.DB, name string) (*models.PriceTable, error) {
	if name == "" {
		return nil, errors.New("default price table name is empty")
	}
	table := models.PriceTable{Name: name, Active: true}
	if err := db.WithContext(ctx).Where("name = ?", name).FirstOrCreate(&table).Error; err != nil {
		return nil, fmt.Errorf("ensure default price table %q: %w", name, err)
	}
	if !table.Active {
		return nil, fmt.Errorf("default price table %q is inactive", name)
	}
	return &table, nil
}

// PriceLookup is the answer of LookupPrice.
type PriceLookup struct {
	SKU         string          `json:"sku"`
	Description string          `json:"description"`
	Table       string          `json:"table"`
	Price       decimal.Decimal `json:"price"`
}

// LookupPrice returns the price of sku in the active table tableID.
func LookupPrice(ctx context.Context, db *gorm.DB, tableID uint, sku string) (*PriceLookup, error) {
	db = db.WithContext(ctx)

	var product models.Product
	if err := db.Where("sku = ?", sku).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("product not found: %w", ErrNotFound)
		}
		return nil, err
	}

	var table models.PriceTable
	if err := db.Where("id = ? AND active = ?", tableID, true).First(&table).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("price table not found or inactive: %w", ErrNotFound)
		}
		return nil, err
	}

	var price models.Price
	if err := db.Where("product_id = ? AND price_table_id = ?", product.ID, table.ID).First(&price).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("no price for this sku/table: %w", ErrNotFound)
		}
		return nil, err
	}

	return &PriceLookup{
		SKU:         product.SKU,
		Description: product.Description,
		Table:       table.Name,
		Price:       price.Amount,
	}, nil
}
