package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/diewo77/sales-portal/httpx"
	"github.com/diewo77/sales-portal/internal/models"
	"github.com/diewo77/sales-portal/internal/services"
	"github.com/diewo77/sales-portal/validation"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PricingHandler serves price tables, prices and the price lookup.
type PricingHandler struct {
	db *gorm.DB
}

func NewPricingHandler(db *gorm.DB) *PricingHandler {
	return &PricingHandler{db: db}
}

type priceTableRequest struct {
	Name   string `json:"name"`
	Active *bool  `json:"active"`
}

func (h *PricingHandler) ListTables(w http.ResponseWriter, r *http.Request) {
	var tables []models.PriceTable
	if err := h.db.WithContext(r.Context()).Order("name").Find(&tables).Error; err != nil {
		writeServiceError(w, r, err)
		return
	}
	if tables == nil {
		tables = []models.PriceTable{}
	}
	httpx.JSON(w, http.StatusOK, tables)
}

func (h *PricingHandler) CreateTable(w http.ResponseWriter, r *http.Request) {
	var req priceTableRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		invalidJSON(w)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	v := make(validation.Violations)
	validation.Required("name", req.Name, v)
	validation.MaxLen("name", req.Name, 60, v)
	if !v.Empty() {
		violations(w, v)
		return
	}
	table := models.PriceTable{Name: req.Name, Active: req.Active == nil || *req.Active}
	if err := h.db.WithContext(r.Context()).Create(&table).Error; err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, table)
}

func (h *PricingHandler) UpdateTable(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var table models.PriceTable
	if err := h.db.WithContext(r.Context()).First(&table, id).Error; err != nil {
		writeServiceError(w, r, err)
		return
	}
	var req priceTableRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		invalidJSON(w)
		return
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		v := make(validation.Violations)
		validation.MaxLen("name", name, 60, v)
		if !v.Empty() {
			violations(w, v)
			return
		}
		table.Name = name
	}
	if req.Active != nil {
		table.Active = *req.Active
	}
	if err := h.db.WithContext(r.Context()).Save(&table).Error; err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, table)
}

// ListPrices pages through prices, optionally filtered by sku or table name.
func (h *PricingHandler) ListPrices(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	page := httpx.PageParam(r)

	db := h.db.WithContext(r.Context()).Model(&models.Price{}).
		Joins("JOIN products ON products.id = prices.product_id").
		Joins("JOIN price_tables ON price_tables.id = prices.price_table_id")
	if query != "" {
		like := "%" + strings.ToLower(query) + "%"
		db = db.Where("LOWER(products.sku) LIKE ? OR LOWER(price_tables.name) LIKE ?", like, like)
	}
	db = db.Session(&gorm.Session{})

	var total int64
	if err := db.Count(&total).Error; err != nil {
		writeServiceError(w, r, err)
		return
	}
	var prices []models.Price
	err := db.Preload("Product").Preload("PriceTable").
		Order("products.sku").Order("price_tables.name").
		Limit(catalogPageSize).Offset((page - 1) * catalogPageSize).
		Find(&prices).Error
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.NewPage(prices, page, catalogPageSize, total))
}

type priceRequest struct {
	ProductID uint            `json:"product_id"`
	TableID   uint            `json:"table_id"`
	Price     decimal.Decimal `json:"price"`
}

// CreatePrice adds a price. An existing (product, table) pair is reported as
// a conflict and left unchanged.
func (h *PricingHandler) CreatePrice(w http.ResponseWriter, r *http.Request) {
	var req priceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		invalidJSON(w)
		return
	}
	v := make(validation.Violations)
	if req.ProductID == 0 {
		v["product_id"] = "required"
	}
	if req.TableID == 0 {
		v["table_id"] = "required"
	}
	validation.NonNegativeDecimal("price", req.Price, v)
	if !v.Empty() {
		violations(w, v)
		return
	}

	db := h.db.WithContext(r.Context())
	if err := db.First(&models.Product{}, req.ProductID).Error; err != nil {
		writeServiceError(w, r, err)
		return
	}
	if err := db.First(&models.PriceTable{}, req.TableID).Error; err != nil {
		writeServiceError(w, r, err)
		return
	}
	price := models.Price{ProductID: req.ProductID, PriceTableID: req.TableID, Amount: req.Price.Round(2)}
	if err := db.Create(&price).Error; err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, price)
}

func (h *PricingHandler) DeletePrice(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	res := h.db.WithContext(r.Context()).Delete(&models.Price{}, id)
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

// Lookup answers the price of ?sku= in the active table ?table=<id>.
func (h *PricingHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	sku := strings.TrimSpace(r.URL.Query().Get("sku"))
	rawTable := strings.TrimSpace(r.URL.Query().Get("table"))
	if sku == "" || rawTable == "" {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed",
			map[string]string{"reason": "table and sku are required"})
		return
	}
	tableID, err := strconv.ParseUint(rawTable, 10, 64)
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed",
			map[string]string{"reason": "table must be a numeric id"})
		return
	}
	res, err := services.LookupPrice(r.Context(), h.db, uint(tableID), sku)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}
