package services

import (
	"fmt"
	"strings"
	"testing"

	"github.com/diewo77/sales-portal/auth"
	"github.com/diewo77/sales-portal/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Representative{}, &models.Client{}, &models.Product{},
		&models.PriceTable{}, &models.Price{}, &models.Order{}, &models.OrderLine{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

type fixtures struct {
	table    *models.PriceTable
	client   models.Client
	p1, p2   models.Product
	rep      models.Representative
	otherRep models.Representative
}

func (f fixtures) staff() *auth.Caller { return &auth.Caller{UserID: 1, Staff: true} }

func (f fixtures) repCaller() *auth.Caller {
	id := f.rep.ID
	return &auth.Caller{UserID: f.rep.UserID, RepresentativeID: &id}
}

func (f fixtures) otherCaller() *auth.Caller {
	id := f.otherRep.ID
	return &auth.Caller{UserID: f.otherRep.UserID, RepresentativeID: &id}
}

// seedFixtures creates a default table pricing SKU-001 at 10.00 and SKU-002
// at 20.00, one client and two representatives.
func seedFixtures(t *testing.T, db *gorm.DB) fixtures {
	t.Helper()
	var f fixtures
	table := models.PriceTable{Name: "Default", Active: true}
	mustCreate(t, db, &table)
	f.table = &table

	f.client = models.Client{Code: "C001", Name: "Acme", UF: "SP"}
	mustCreate(t, db, &f.client)

	f.p1 = models.Product{SKU: "SKU-001", Description: "Product 1", Active: true}
	f.p2 = models.Product{SKU: "SKU-002", Description: "Product 2", Active: true}
	mustCreate(t, db, &f.p1)
	mustCreate(t, db, &f.p2)
	mustCreate(t, db, &models.Price{ProductID: f.p1.ID, PriceTableID: table.ID, Amount: d("10.00")})
	mustCreate(t, db, &models.Price{ProductID: f.p2.ID, PriceTableID: table.ID, Amount: d("20.00")})

	u1 := models.User{Email: "rep1@test", Password: "x"}
	u2 := models.User{Email: "rep2@test", Password: "x"}
	mustCreate(t, db, &u1)
	mustCreate(t, db, &u2)
	f.rep = models.Representative{UserID: u1.ID, Code: "REP001", Active: true}
	f.otherRep = models.Representative{UserID: u2.ID, Code: "REP002", Active: true}
	mustCreate(t, db, &f.rep)
	mustCreate(t, db, &f.otherRep)
	return f
}

func mustCreate(t *testing.T, db *gorm.DB, v any) {
	t.Helper()
	if err := db.Create(v).Error; err != nil {
		t.Fatalf("create %T: %v", v, err)
	}
}

func newOrderService(t *testing.T, db *gorm.DB, f fixtures, authz Authorizer) *OrderService {
	t.Helper()
	numbers, err := NewNumberGenerator(1)
	if err != nil {
		t.Fatalf("number generator: %v", err)
	}
	return NewOrderService(db, f.table, numbers, authz, nil)
}
