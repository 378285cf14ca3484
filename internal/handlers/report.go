package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/diewo77/sales-portal/httpx"
	"github.com/diewo77/sales-portal/internal/services"
)

type ReportHandler struct {
	reports *services.ReportService
	now     func() time.Time
}

func NewReportHandler(reports *services.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports, now: time.Now}
}

func (h *ReportHandler) period(w http.ResponseWriter, r *http.Request) (services.Period, bool) {
	q := r.URL.Query()
	p, err := services.ParsePeriod(q.Get("from"), q.Get("to"), h.now())
	if err != nil {
		writeServiceError(w, r, err)
		return p, false
	}
	return p, true
}

// intParam reads an optional integer query parameter; an empty value is 0.
func intParam(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"reason": "invalid " + name})
		return 0, false
	}
	return n, true
}

func (h *ReportHandler) SalesSummary(w http.ResponseWriter, r *http.Request) {
	c, ok := callerOf(w, r)
	if !ok {
		return
	}
	p, ok := h.period(w, r)
	if !ok {
		return
	}
	clientID, ok := intParam(w, r, "client")
	if !ok {
		return
	}
	f := services.SummaryFilter{
		Rep:      r.URL.Query().Get("rep"),
		ClientID: uint(clientID),
		Status:   r.URL.Query().Get("status"),
	}
	res, err := h.reports.SalesSummary(r.Context(), c, p, f)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *ReportHandler) TopItems(w http.ResponseWriter, r *http.Request) {
	c, ok := callerOf(w, r)
	if !ok {
		return
	}
	p, ok := h.period(w, r)
	if !ok {
		return
	}
	top, ok := intParam(w, r, "top")
	if !ok {
		return
	}
	res, err := h.reports.TopItems(r.Context(), c, p, top)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *ReportHandler) MTDYTD(w http.ResponseWriter, r *http.Request) {
	c, ok := callerOf(w, r)
	if !ok {
		return
	}
	year, ok := intParam(w, r, "year")
	if !ok {
		return
	}
	month, ok := intParam(w, r, "month")
	if !ok {
		return
	}
	res, err := h.reports.MTDYTD(r.Context(), c, year, month)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *ReportHandler) HeatmapByState(w http.ResponseWriter, r *http.Request) {
	c, ok := callerOf(w, r)
	if !ok {
		return
	}
	p, ok := h.period(w, r)
	if !ok {
		return
	}
	res, err := h.reports.HeatmapByState(r.Context(), c, p)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}
