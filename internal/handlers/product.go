package handlers

import (
	"net/http"
	"strings"

	"github.com/diewo77/sales-portal/httpx"
	"github.com/diewo77/sales-portal/internal/models"
	"github.com/diewo77/sales-portal/validation"
	"gorm.io/gorm"
)

const catalogPageSize = 20

type ProductHandler struct {
	db *gorm.DB
}

func NewProductHandler(db *gorm.DB) *ProductHandler {
	return &ProductHandler{db: db}
}

type productRequest struct {
	SKU         string `json:"sku"`
	Description string `json:"description"`
	Family      string `json:"family"`
	Active      *bool  `json:"active"`
}

func (req productRequest) validate(create bool) validation.Violations {
	v := make(validation.Violations)
	if create {
		validation.Required("sku", req.SKU, v)
		validation.MaxLen("sku", req.SKU, 30, v)
	}
	validation.Required("description", req.Description, v)
	validation.MaxLen("description", req.Description, 160, v)
	validation.MaxLen("family", req.Family, 60, v)
	return v
}

func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	page := httpx.PageParam(r)

	db := h.db.WithContext(r.Context()).Model(&models.Product{})
	if query != "" {
		like := "%" + strings.ToLower(query) + "%"
		db = db.Where("LOWER(sku) LIKE ? OR LOWER(description) LIKE ? OR LOWER(family) LIKE ?", like, like, like)
	}
	db = db.Session(&gorm.Session{})

	var total int64
	if err := db.Count(&total).Error; err != nil {
		writeServiceError(w, r, err)
		return
	}
	var products []models.Product
	if err := db.Order("sku").Limit(catalogPageSize).Offset((page - 1) * catalogPageSize).Find(&products).Error; err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.NewPage(products, page, catalogPageSize, total))
}

func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		invalidJSON(w)
		return
	}
	req.SKU = strings.ToUpper(strings.TrimSpace(req.SKU))
	req.Description = strings.TrimSpace(req.Description)
	if v := req.validate(true); !v.Empty() {
		violations(w, v)
		return
	}

	product := models.Product{
		SKU:         req.SKU,
		Description: req.Description,
		Family:      strings.TrimSpace(req.Family),
		Active:      req.Active == nil || *req.Active,
	}
	if err := h.db.WithContext(r.Context()).Create(&product).Error; err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, product)
}

func (h *ProductHandler) View(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var product models.Product
	if err := h.db.WithContext(r.Context()).First(&product, id).Error; err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

// Update changes the descriptive fields. The SKU is never changed.
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var product models.Product
	if err := h.db.WithContext(r.Context()).First(&product, id).Error; err != nil {
		writeServiceError(w, r, err)
		return
	}

	var req productRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		invalidJSON(w)
		return
	}
	req.Description = strings.TrimSpace(req.Description)
	if v := req.validate(false); !v.Empty() {
		violations(w, v)
		return
	}

	product.Description = req.Description
	product.Family = strings.TrimSpace(req.Family)
	if req.Active != nil {
		product.Active = *req.Active
	}
	if err := h.db.WithContext(r.Context()).Save(&product).Error; err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

// Delete removes a product. Products referenced by order lines cannot be
// deleted.
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	db := h.db.WithContext(r.Context())
	var used int64
	if err := db.Model(&models.OrderLine{}).Where("product_id = ?", id).Count(&used).Error; err != nil {
		writeServiceError(w, r, err)
		return
	}
	if used > 0 {
		httpx.JSONError(w, http.StatusConflict, "in_use", nil)
		return
	}
	res := db.Delete(&models.Product{}, id)
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
