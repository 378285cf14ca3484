package handlers

import (
	"context"
	"net/http"

	"github.com/diewo77/sales-portal/auth"
	"github.com/diewo77/sales-portal/httpx"
	"github.com/diewo77/sales-portal/internal/models"
	"github.com/diewo77/sales-portal/internal/services"
	"github.com/shopspring/decimal"
)

type OrderHandler struct {
	orders *services.OrderService
}

func NewOrderHandler(orders *services.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// lineResponse is the answer of the line endpoints: the line written and
// the order total recomputed in the same transaction.
type lineResponse struct {
	Item  *models.OrderLine `json:"item,omitempty"`
	Total decimal.Decimal   `json:"total"`
}

func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	c, ok := callerOf(w, r)
	if !ok {
		return
	}
	page := httpx.PageParam(r)
	orders, total, err := h.orders.List(r.Context(), c, r.URL.Query().Get("q"), page)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.NewPage(orders, page, services.OrderPageSize, total))
}

func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	c, ok := callerOf(w, r)
	if !ok {
		return
	}
	var in services.CreateOrderInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		invalidJSON(w)
		return
	}
	order, err := h.orders.Create(r.Context(), c, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, order)
}

func (h *OrderHandler) View(w http.ResponseWriter, r *http.Request) {
	c, ok := callerOf(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	order, err := h.orders.Get(r.Context(), c, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	c, ok := callerOf(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.orders.Delete(r.Context(), c, id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *OrderHandler) AddLine(w http.ResponseWriter, r *http.Request) {
	c, ok := callerOf(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in services.LineInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		invalidJSON(w)
		return
	}
	line, total, err := h.orders.AddLine(r.Context(), c, id, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, lineResponse{Item: line, Total: total})
}

func (h *OrderHandler) UpdateLine(w http.ResponseWriter, r *http.Request) {
	c, ok := callerOf(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	lineID, ok := pathID(w, r, "item_id")
	if !ok {
		return
	}
	var in services.LineInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		invalidJSON(w)
		return
	}
	line, total, err := h.orders.UpdateLine(r.Context(), c, id, lineID, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, lineResponse{Item: line, Total: total})
}

func (h *OrderHandler) DeleteLine(w http.ResponseWriter, r *http.Request) {
	c, ok := callerOf(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	lineID, ok := pathID(w, r, "item_id")
	if !ok {
		return
	}
	total, err := h.orders.DeleteLine(r.Context(), c, id, lineID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, lineResponse{Total: total})
}

// Send, Approve and Reject apply a workflow action and return the order.
func (h *OrderHandler) Send(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.orders.Send)
}

func (h *OrderHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.orders.Approve)
}

func (h *OrderHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.orders.Reject)
}

type transitionFunc = func(ctx context.Context, c *auth.Caller, id uint) (*models.Order, error)

func (h *OrderHandler) transition(w http.ResponseWriter, r *http.Request, apply transitionFunc) {
	c, ok := callerOf(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	order, err := apply(r.Context(), c, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}
