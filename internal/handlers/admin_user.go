package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/diewo77/sales-portal/httpx"
	"github.com/diewo77/sales-portal/internal/models"
	"github.com/diewo77/sales-portal/validation"
	"gorm.io/gorm"
)

// CallerInvalidator drops a cached caller. *gate.CachedResolver satisfies it.
type CallerInvalidator interface {
	Invalidate(userID uint)
}

// AdminUserHandler lets staff manage the staff flag and the representative
// link of users. Every change invalidates the user's cached caller.
type AdminUserHandler struct {
	DB      *gorm.DB
	Callers CallerInvalidator
}

func NewAdminUserHandler(db *gorm.DB, callers CallerInvalidator) *AdminUserHandler {
	return &AdminUserHandler{DB: db, Callers: callers}
}

func (h *AdminUserHandler) invalidate(userID uint) {
	if h.Callers != nil {
		h.Callers.Invalidate(userID)
	}
}

// List returns every user with its representative.
func (h *AdminUserHandler) List(w http.ResponseWriter, r *http.Request) {
	var users []models.User
	if err := h.DB.WithContext(r.Context()).Preload("Representative").Order("email").Find(&users).Error; err != nil {
		writeServiceError(w, r, err)
		return
	}
	if users == nil {
		users = []models.User{}
	}
	httpx.JSON(w, http.StatusOK, users)
}

type staffRequest struct {
	IsStaff bool `json:"is_staff"`
}

// SetStaff grants or revokes the staff flag.
func (h *AdminUserHandler) SetStaff(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req staffRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		invalidJSON(w)
		return
	}
	res := h.DB.WithContext(r.Context()).Model(&models.User{}).Where("id = ?", id).Update("is_staff", req.IsStaff)
	if res.Error != nil {
		writeServiceError(w, r, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		writeServiceError(w, r, gorm.ErrRecordNotFound)
		return
	}
	h.invalidate(id)
	httpx.JSON(w, http.StatusOK, map[string]any{"user_id": id, "is_staff": req.IsStaff})
}

type representativeRequest struct {
	Code   string `json:"code"`
	Active *bool  `json:"active"`
}

// SetRepresentative links a user to a representative code, creating the
// representative when the user has none. An inactive representative keeps
// its orders but its user sees none of them.
func (h *AdminUserHandler) SetRepresentative(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req representativeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		invalidJSON(w)
		return
	}
	req.Code = strings.ToUpper(strings.TrimSpace(req.Code))

	var rep models.Representative
	err := h.DB.WithContext(r.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&models.User{}, id).Error; err != nil {
			return err
		}
		err := tx.Where("user_id = ?", id).First(&rep).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			v := make(validation.Violations)
			validation.Required("code", req.Code, v)
			validation.MaxLen("code", req.Code, 20, v)
			if !v.Empty() {
				return violationsError(v)
			}
			rep = models.Representative{UserID: id, Code: req.Code, Active: req.Active == nil || *req.Active}
			return tx.Create(&rep).Error
		case err != nil:
			return err
		}
		if req.Code != "" {
			rep.Code = req.Code
		}
		if req.Active != nil {
			rep.Active = *req.Active
		}
		return tx.Save(&rep).Error
	})
	var ve violationsError
	if errors.As(err, &ve) {
		violations(w, validation.Violations(ve))
		return
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.invalidate(id)
	httpx.JSON(w, http.StatusOK, rep)
}

// violationsError carries field violations out of a transaction.
type violationsError validation.Violations

func (v violationsError) Error() string { return "invalid input" }
