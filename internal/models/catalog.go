package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Client is a buying customer.
type Client struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Code      string    `gorm:"uniqueIndex;size:20;not null" json:"code"`
	Name      string    `gorm:"size:120;not null" json:"name"`
	CNPJ      string    `gorm:"column:cnpj;size:18" json:"cnpj,omitempty"`
	City      string    `gorm:"size:80" json:"city,omitempty"`
	UF        string    `gorm:"column:uf;size:2;index" json:"uf,omitempty"`
}

// Product is a sellable item identified by its SKU.
// The SKU is immutable once created; descriptive fields may change.
type Product struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	SKU         string    `gorm:"column:sku;uniqueIndex;size:30;not null" json:"sku"`
	Description string    `gorm:"size:160;not null" json:"description"`
	Family      string    `gorm:"size:60" json:"family,omitempty"`
	Active      bool      `gorm:"not null" json:"active"`
}

// PriceTable is a named list of prices. Only active tables price new
// orders and simulations.
type PriceTable struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Name      string    `gorm:"uniqueIndex;size:60;not null" json:"name"`
	Active    bool      `gorm:"not null" json:"active"`
}

// Price is the unit price of a product in a table.
// At most one price exists per (product, table) pair.
type Price struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	ProductID    uint            `gorm:"uniqueIndex:idx_price_product_table;not null" json:"product_id"`
	Product      *Product        `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"product,omitempty"`
	PriceTableID uint            `gorm:"uniqueIndex:idx_price_product_table;index;not null" json:"table_id"`
	PriceTable   *PriceTable     `gorm:"foreignKey:PriceTableID;constraint:OnDelete:CASCADE" json:"table,omitempty"`
	Amount       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
}
