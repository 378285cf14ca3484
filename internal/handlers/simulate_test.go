package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/diewo77/sales-portal/internal/services"
)

func TestSimulateHandler(t *testing.T) {
	db := setupTestDB(t)
	seed(t, db)
	h := NewSimulateHandler(services.NewSimulator(db, "Default", nil))

	rr := httptest.NewRecorder()
	h.Simulate(rr, request(http.MethodPost, "/simulate", staff, map[string]any{
		"items": []map[string]any{
			{"sku": "SKU-001", "qty": 2},
			{"sku": "NOPE", "qty": 1},
		},
	}))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var res services.SimulationResult
	decode(t, rr, &res)
	if res.Table != "Default" || len(res.Items) != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Items[0].Net != "20.00" || res.Items[1].Error != "sku not found" {
		t.Errorf("unexpected items %+v", res.Items)
	}
	if res.TotalNet != "20.00" {
		t.Errorf("expected total 20.00, got %s", res.TotalNet)
	}

	rr = httptest.NewRecorder()
	h.Simulate(rr, request(http.MethodPost, "/simulate", staff, "{"))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("invalid json: expected 400, got %d", rr.Code)
	}
}
