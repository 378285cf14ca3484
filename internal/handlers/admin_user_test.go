package handlers

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/diewo77/sales-portal/internal/models"
)

type invalidations []uint

func (i *invalidations) Invalidate(userID uint) { *i = append(*i, userID) }

func TestAdminUserHandler_SetStaff(t *testing.T) {
	db := setupTestDB(t)
	user := models.User{Email: "u@test", Password: "x"}
	mustCreate(t, db, &user)
	var inv invalidations
	h := NewAdminUserHandler(db, &inv)
	id := strconv.FormatUint(uint64(user.ID), 10)

	rr := httptest.NewRecorder()
	h.SetStaff(rr, request(http.MethodPut, "/admin/users/"+id+"/staff", staff, map[string]bool{"is_staff": true}, "id", id))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var stored models.User
	db.First(&stored, user.ID)
	if !stored.IsStaff {
		t.Error("expected the user to be staff")
	}
	if len(inv) != 1 || inv[0] != user.ID {
		t.Errorf("expected the caller of user %d to be invalidated, got %v", user.ID, inv)
	}

	rr = httptest.NewRecorder()
	h.SetStaff(rr, request(http.MethodPut, "/admin/users/999/staff", staff, map[string]bool{"is_staff": true}, "id", "999"))
	if rr.Code != http.StatusNotFound {
		t.Errorf("unknown user: expected 404, got %d", rr.Code)
	}
	if len(inv) != 1 {
		t.Errorf("failed updates must not invalidate, got %v", inv)
	}
}

func TestAdminUserHandler_SetRepresentative(t *testing.T) {
	db := setupTestDB(t)
	user := models.User{Email: "u@test", Password: "x"}
	mustCreate(t, db, &user)
	var inv invalidations
	h := NewAdminUserHandler(db, &inv)
	id := strconv.FormatUint(uint64(user.ID), 10)

	rr := httptest.NewRecorder()
	h.SetRepresentative(rr, request(http.MethodPut, "/admin/users/"+id+"/representative", staff, map[string]any{}, "id", id))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("missing code: expected 400, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.SetRepresentative(rr, request(http.MethodPut, "/admin/users/"+id+"/representative", staff, map[string]any{"code": " rep009 "}, "id", id))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var rep models.Representative
	decode(t, rr, &rep)
	if rep.Code != "REP009" || !rep.Active || rep.UserID != user.ID {
		t.Errorf("unexpected representative %+v", rep)
	}

	rr = httptest.NewRecorder()
	h.SetRepresentative(rr, request(http.MethodPut, "/admin/users/"+id+"/representative", staff, map[string]any{"active": false}, "id", id))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var stored models.Representative
	db.Where("user_id = ?", user.ID).First(&stored)
	if stored.Active || stored.Code != "REP009" || stored.ID != rep.ID {
		t.Errorf("expected the same representative deactivated, got %+v", stored)
	}
	if len(inv) != 2 {
		t.Errorf("expected two invalidations, got %v", inv)
	}
}
