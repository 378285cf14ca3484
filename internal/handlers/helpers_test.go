package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/diewo77/sales-portal/auth"
	"github.com/diewo77/sales-portal/internal/models"
	"github.com/diewo77/sales-portal/internal/services"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(&models.User{}, &models.Representative{}, &models.Client{}, &models.Product{},
		&models.PriceTable{}, &models.Price{}, &models.Order{}, &models.OrderLine{},
		&models.Job{}, &models.JobLog{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

type fixtures struct {
	table  *models.PriceTable
	client models.Client
	p1, p2 models.Product
	rep    models.Representative
	other  models.Representative
}

var staff = &auth.Caller{UserID: 1000, Staff: true}

func (f fixtures) repCaller() *auth.Caller {
	id := f.rep.ID
	return &auth.Caller{UserID: f.rep.UserID, RepresentativeID: &id}
}

func (f fixtures) otherCaller() *auth.Caller {
	id := f.other.ID
	return &auth.Caller{UserID: f.other.UserID, RepresentativeID: &id}
}

func seed(t *testing.T, db *gorm.DB) fixtures {
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
	mustCreate(t, db, &models.Price{ProductID: f.p1.ID, PriceTableID: table.ID, Amount: decimal.RequireFromString("10.00")})
	mustCreate(t, db, &models.Price{ProductID: f.p2.ID, PriceTableID: table.ID, Amount: decimal.RequireFromString("20.00")})

	u1 := models.User{Email: "rep1@test", Password: "x"}
	u2 := models.User{Email: "rep2@test", Password: "x"}
	mustCreate(t, db, &u1)
	mustCreate(t, db, &u2)
	f.rep = models.Representative{UserID: u1.ID, Code: "REP001", Active: true}
	f.other = models.Representative{UserID: u2.ID, Code: "REP002", Active: true}
	mustCreate(t, db, &f.rep)
	mustCreate(t, db, &f.other)
	return f
}

func mustCreate(t *testing.T, db *gorm.DB, v any) {
	t.Helper()
	if err := db.Create(v).Error; err != nil {
		t.Fatalf("create %T: %v", v, err)
	}
}

func newOrderService(t *testing.T, db *gorm.DB, f fixtures, authz services.Authorizer) *services.OrderService {
	t.Helper()
	numbers, err := services.NewNumberGenerator(1)
	if err != nil {
		t.Fatalf("number generator: %v", err)
	}
	return services.NewOrderService(db, f.table, numbers, authz, nil)
}

// request builds a request carrying caller (when set), a JSON body (when
// set) and path values given as name, value pairs.
func request(method, target string, caller *auth.Caller, body any, pathValues ...string) *http.Request {
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = strings.NewReader(b)
	default:
		raw, _ := json.Marshal(b)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, rd)
	req.Header.Set("Content-Type", "application/json")
	if caller != nil {
		req = req.WithContext(auth.WithCaller(context.Background(), caller))
	}
	for i := 0; i+1 < len(pathValues); i += 2 {
		req.SetPathValue(pathValues[i], pathValues[i+1])
	}
	return req
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	decode(t, rr, &body)
	return body.Error
}
