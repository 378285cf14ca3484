package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/diewo77/sales-portal/internal/models"
	"github.com/diewo77/sales-portal/internal/services"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Seed inserts the demo users, catalog and default price table. Running it
// twice leaves the database unchanged.
func Seed(ctx context.Context, db *gorm.DB, defaultTable string) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := seedUser(tx, "admin@example.com", "Admin", "admin123", true); err != nil {
			return err
		}
		rep, err := seedUser(tx, "rep1@example.com", "Representative 1", "rep123", false)
		if err != nil {
			return err
		}
		r := models.Representative{UserID: rep.ID, Code: "REP001", Active: true}
		if err := tx.Where("user_id = ?", rep.ID).FirstOrCreate(&r).Error; err != nil {
			return fmt.Errorf("seed representative: %w", err)
		}

		c := models.Client{Code: "C001", Name: "Test client", UF: "SP"}
		if err := tx.Where("code = ?", c.Code).FirstOrCreate(&c).Error; err != nil {
			return fmt.Errorf("seed client: %w", err)
		}

		table, err := services.EnsureDefaultTable(ctx, tx, defaultTable)
		if err != nil {
			return err
		}
		for _, p := range []struct {
			sku, desc, price string
		}{
			{"SKU-001", "Product 1", "10.00"},
			{"SKU-002", "Product 2", "20.00"},
		} {
			product := models.Product{SKU: p.sku, Description: p.desc, Active: true}
			if err := tx.Where("sku = ?", p.sku).FirstOrCreate(&product).Error; err != nil {
				return fmt.Errorf("seed product %s: %w", p.sku, err)
			}
			price := models.Price{ProductID: product.ID, PriceTableID: table.ID, Amount: decimal.RequireFromString(p.price)}
			if err := tx.Where("product_id = ? AND price_table_id = ?", product.ID, table.ID).FirstOrCreate(&price).Error; err != nil {
				return fmt.Errorf("seed price %s: %w", p.sku, err)
			}
		}
		return nil
	})
}

func seedUser(tx *gorm.DB, email, name, password string, staff bool) (*models.User, error) {
	var u models.User
	err := tx.Where("email = ?", email).First(&u).Error
	if err == nil {
		return &u, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("seed user %s: %w", email, err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u = models.User{Email: email, Name: name, Password: string(hash), IsStaff: staff}
	if err := tx.Create(&u).Error; err != nil {
		return nil, fmt.Errorf("seed user %s: %w", email, err)
	}
	return &u, nil
}
