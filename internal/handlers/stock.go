package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"gorm.io/gorm"

	"github.com/memo-adelApis/noqta-core/internal/httpx"
	"github.com/memo-adelApis/noqta-core/internal/settlement"
)

type StockHandler struct {
	DB    *gorm.DB
	Coord *settlement.Coordinator
}

func NewStockHandler(db *gorm.DB, coord *settlement.Coordinator) *StockHandler {
	return &StockHandler{DB: db, Coord: coord}
}

// Availability: POST /stock/availability – read-only shortage check before
// submission. Does not reserve stock; settlement re-checks under lock.
func (h *StockHandler) Availability(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantFrom(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "missing_tenant", nil)
		return
	}
	var req struct {
		Items []settlement.DraftLine `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if len(req.Items) == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"items": "required"})
		return
	}
	report, err := h.Coord.CheckAvailability(r.Context(), tenantID, req.Items)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

// Movements: GET /stock/movements?invoice_id= – audit feed for one invoice.
func (h *StockHandler) Movements(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantFrom(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "missing_tenant", nil)
		return
	}
	invoiceID, err := strconv.ParseUint(r.URL.Query().Get("invoice_id"), 10, 64)
	if err != nil || invoiceID == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_invoice_id", nil)
		return
	}
	movements, err := h.Coord.Movements(r.Context(), tenantID, uint(invoiceID))
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": movements})
}
