package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/memo-adelApis/noqta-core/internal/httpx"
	"github.com/memo-adelApis/noqta-core/internal/inventory"
	"github.com/memo-adelApis/noqta-core/internal/ledger"
	"github.com/memo-adelApis/noqta-core/internal/settlement"
)

// InvoiceHandler exposes the settlement engine over JSON. Authentication
// and authorization live in the host application; the acting tenant
// arrives resolved in the X-Tenant-ID header.
type InvoiceHandler struct {
	DB    *gorm.DB
	Coord *settlement.Coordinator
}

func NewInvoiceHandler(db *gorm.DB, coord *settlement.Coordinator) *InvoiceHandler {
	return &InvoiceHandler{DB: db, Coord: coord}
}

func tenantFrom(r *http.Request) (uint, bool) {
	v := strings.TrimSpace(r.Header.Get("X-Tenant-ID"))
	if v == "" {
		return 0, false
	}
	id, err := strconv.ParseUint(v, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// Settle: POST /invoices – settle a draft atomically.
func (h *InvoiceHandler) Settle(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantFrom(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "missing_tenant", nil)
		return
	}
	var draft settlement.InvoiceDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	inv, err := h.Coord.SettleInvoice(r.Context(), tenantID, draft)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, inv)
}

// Plan: GET /installments/plan?balance=&count=&start= – pure preview, no persistence.
func (h *InvoiceHandler) Plan(w http.ResponseWriter, r *http.Request) {
	balance, err := decimal.NewFromString(r.URL.Query().Get("balance"))
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_balance", nil)
		return
	}
	count, err := strconv.Atoi(r.URL.Query().Get("count"))
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_count", nil)
		return
	}
	start := time.Now()
	if v := r.URL.Query().Get("start"); v != "" {
		start, err = time.Parse("2006-01-02", v)
		if err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_start", nil)
			return
		}
	}
	plan, err := ledger.PlanInstallments(balance, count, start)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"installments": plan})
}

// SettleInstallment: POST /installments/settle – pay one installment of a posted invoice.
func (h *InvoiceHandler) SettleInstallment(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantFrom(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "missing_tenant", nil)
		return
	}
	var req struct {
		InvoiceID     uint            `json:"invoice_id"`
		InstallmentID string          `json:"installment_id"`
		PaidAmount    decimal.Decimal `json:"paid_amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	inv, err := h.Coord.SettleInstallment(r.Context(), tenantID, req.InvoiceID, req.InstallmentID, req.PaidAmount)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

// writeEngineError maps the settlement error taxonomy onto HTTP statuses
// with enough structured detail for the caller to render a message.
func writeEngineError(w http.ResponseWriter, err error) {
	var (
		ve       *settlement.ValidationError
		shortage *inventory.ShortageError
		unknown  *inventory.UnknownProductError
		mismatch *settlement.InstallmentMismatchError
		already  *settlement.AlreadySettledError
		exceeds  *settlement.ExceedsInstallmentError
		notFound *settlement.NotFoundError
		conflict *settlement.ConflictError
		timeout  *settlement.TimeoutError
	)
	switch {
	case errors.As(err, &ve):
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", ve.Violations)
	case errors.Is(err, ledger.ErrInvalidScheduleRequest):
		httpx.JSONError(w, http.StatusBadRequest, "invalid_schedule_request", nil)
	case errors.As(err, &shortage):
		httpx.JSONError(w, http.StatusConflict, "insufficient_stock", map[string]any{
			"name": shortage.Name, "available": shortage.Available, "required": shortage.Required,
		})
	case errors.As(err, &unknown):
		httpx.JSONError(w, http.StatusConflict, "unknown_product", map[string]any{
			"name": unknown.Name, "warehouse_id": unknown.WarehouseID,
		})
	case errors.As(err, &mismatch):
		httpx.JSONError(w, http.StatusBadRequest, "installment_mismatch", map[string]any{
			"schedule_total": mismatch.ScheduleTotal, "balance": mismatch.Balance,
		})
	case errors.As(err, &already):
		httpx.JSONError(w, http.StatusConflict, "already_settled", map[string]any{
			"installment_id": already.InstallmentID,
		})
	case errors.As(err, &exceeds):
		httpx.JSONError(w, http.StatusBadRequest, "amount_exceeds_installment", map[string]any{
			"installment_id": exceeds.InstallmentID, "amount": exceeds.Amount, "paid": exceeds.Paid,
		})
	case errors.As(err, &notFound):
		httpx.JSONError(w, http.StatusNotFound, "not_found", map[string]any{
			"entity": notFound.Entity, "ref": notFound.Ref,
		})
	case errors.As(err, &conflict):
		httpx.JSONError(w, http.StatusConflict, "concurrency_conflict", map[string]any{"retryable": true})
	case errors.As(err, &timeout):
		httpx.JSONError(w, http.StatusGatewayTimeout, "settlement_timed_out", map[string]any{"retryable": true})
	default:
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
	}
}
