package handlers

import (
	"net/http"
	"strings"

	"github.com/diewo77/sales-portal/httpx"
	"github.com/diewo77/sales-portal/internal/models"
	"github.com/diewo77/sales-portal/validation"
	"gorm.io/gorm"
)

type ClientHandler struct {
	db *gorm.DB
}

func NewClientHandler(db *gorm.DB) *ClientHandler {
	return &ClientHandler{db: db}
}

type clientRequest struct {
	Code string `json:"code"`
	Name string `json:"name"`
	CNPJ string `json:"cnpj"`
	City string `json:"city"`
	UF   string `json:"uf"`
}

func (req *clientRequest) normalize() {
	req.Code = strings.TrimSpace(req.Code)
	req.Name = strings.TrimSpace(req.Name)
	req.CNPJ = strings.TrimSpace(req.CNPJ)
	req.City = strings.TrimSpace(req.City)
	req.UF = strings.ToUpper(strings.TrimSpace(req.UF))
}

func (req clientRequest) validate() validation.Violations {
	v := make(validation.Violations)
	validation.Required("code", req.Code, v)
	validation.MaxLen("code", req.Code, 20, v)
	validation.Required("name", req.Name, v)
	validation.MaxLen("name", req.Name, 120, v)
	validation.MaxLen("cnpj", req.CNPJ, 18, v)
	validation.MaxLen("city", req.City, 80, v)
	validation.ExactLen("uf", req.UF, 2, v)
	return v
}

func (req clientRequest) apply(c *models.Client) {
	c.Code = req.Code
	c.Name = req.Name
	c.CNPJ = req.CNPJ
	c.City = req.City
	c.UF = req.UF
}

func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	page := httpx.PageParam(r)

	db := h.db.WithContext(r.Context()).Model(&models.Client{})
	if query != "" {
		like := "%" + strings.ToLower(query) + "%"
		db = db.Where("LOWER(name) LIKE ? OR LOWER(code) LIKE ? OR LOWER(cnpj) LIKE ? OR LOWER(city) LIKE ? OR LOWER(uf) LIKE ?",
			like, like, like, like, like)
	}
	db = db.Session(&gorm.Session{})

	var total int64
	if err := db.Count(&total).Error; err != nil {
		writeServiceError(w, r, err)
		return
	}
	var clients []models.Client
	if err := db.Order("name").Limit(catalogPageSize).Offset((page - 1) * catalogPageSize).Find(&clients).Error; err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.NewPage(clients, page, catalogPageSize, total))
}

func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req clientRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		invalidJSON(w)
		return
	}
	req.normalize()
	if v := req.validate(); !v.Empty() {
		violations(w, v)
		return
	}
	var client models.Client
	req.apply(&client)
	if err := h.db.WithContext(r.Context()).Create(&client).Error; err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, client)
}

func (h *ClientHandler) View(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var client models.Client
	if err := h.db.WithContext(r.Context()).First(&client, id).Error; err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, client)
}

func (h *ClientHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var client models.Client
	if err := h.db.WithContext(r.Context()).First(&client, id).Error; err != nil {
		writeServiceError(w, r, err)
		return
	}
	var req clientRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		invalidJSON(w)
		return
	}
	req.normalize()
	if v := req.validate(); !v.Empty() {
		violations(w, v)
		return
	}
	req.apply(&client)
	if err := h.db.WithContext(r.Context()).Save(&client).Error; err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, client)
}

// Delete removes a client that has no orders.
func (h *ClientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	db := h.db.WithContext(r.Context())
	var used int64
	if err := db.Model(&models.Order{}).Where("client_id = ?", id).Count(&used).Error; err != nil {
		writeServiceError(w, r, err)
		return
	}
	if used > 0 {
		httpx.JSONError(w, http.StatusConflict, "in_use", nil)
		return
	}
	res := db.Delete(&models.Client{}, id)
	if res.Error != nil {
		writeServiceError(w, r, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		writeServiceError(w, r, gorm.ErrRecordNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
