package db

import (
	"context"
	"testing"

	"github.com/diewo77/sales-portal/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestSeedIdempotent(t *testing.T) {
	d, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatal(err)
	}
	if err := Migrate(d); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := Seed(ctx, d, "Default"); err != nil {
		t.Fatalf("first seed: %v", err)
	}
	if err := Seed(ctx, d, "Default"); err != nil {
		t.Fatalf("second seed: %v", err)
	}

	counts := map[any]int64{
		&models.User{}:           2,
		&models.Representative{}: 1,
		&models.Client{}:         1,
		&models.Product{}:        2,
		&models.PriceTable{}:     1,
		&models.Price{}:          2,
	}
	for m, want := range counts {
		var got int64
		d.Model(m).Count(&got)
		if got != want {
			t.Errorf("%T: expected %d rows got %d", m, want, got)
		}
	}

	var admin models.User
	if err := d.Where("email = ?", "admin@example.com").First(&admin).Error; err != nil {
		t.Fatal(err)
	}
	if !admin.IsStaff {
		t.Error("admin must be staff")
	}

	var price models.Price
	d.Joins("JOIN products ON products.id = prices.product_id").Where("products.sku = ?", "SKU-002").First(&price)
	if !price.Amount.Equal(decimal.NewFromInt(20)) {
		t.Errorf("SKU-002 price = %s, want 20", price.Amount)
	}
}

func TestModelsMigrate(t *testing.T) {
	d, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatal(err)
	}
	if err := Migrate(d); err != nil {
		t.Fatal(err)
	}
	for _, m := range Models() {
		if !d.Migrator().HasTable(m) {
			t.Errorf("missing table for %T", m)
		}
	}
}
