package handlers

import (
	"net/http"

	"github.com/diewo77/sales-portal/httpx"
	"github.com/diewo77/sales-portal/internal/services"
)

type SimulateHandler struct {
	sim *services.Simulator
}

func NewSimulateHandler(sim *services.Simulator) *SimulateHandler {
	return &SimulateHandler{sim: sim}
}

// Simulate prices the posted items without writing anything. Items that
// cannot be priced are reported inline and never fail the request.
func (h *SimulateHandler) Simulate(w http.ResponseWriter, r *http.Request) {
	var in services.SimulationInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		invalidJSON(w)
		return
	}
	res, err := h.sim.Simulate(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}
