// Package settlement orchestrates invoice posting: ledger math, invoice
// persistence and inventory adjustment committed as one transaction, plus
// settlement of individual installments afterwards.
package settlement

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/memo-adelApis/noqta-core/internal/inventory"
	"github.com/memo-adelApis/noqta-core/internal/ledger"
	"github.com/memo-adelApis/noqta-core/internal/logger"
	"github.com/memo-adelApis/noqta-core/internal/metrics"
	"github.com/memo-adelApis/noqta-core/internal/models"
	"github.com/memo-adelApis/noqta-core/internal/validation"
)

// scheduleEpsilon is the tolerance between an explicit schedule total and
// the computed balance: one cent of the currency unit.
var scheduleEpsilon = decimal.New(1, -2)

type Coordinator struct {
	db       *gorm.DB
	adjuster *inventory.Adjuster
	timeout  time.Duration
	log      zerolog.Logger
}

func NewCoordinator(db *gorm.DB, timeout time.Duration) *Coordinator {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Coordinator{
		db:       db,
		adjuster: inventory.NewAdjuster(),
		timeout:  timeout,
		log:      logger.WithComponent("settlement"),
	}
}

// SettleInvoice validates the draft, computes its financial summary and
// commits the invoice together with its inventory consequence. Two
// terminal outcomes only: the invoice, or a typed error with zero
// observable side effects.
func (c *Coordinator) SettleInvoice(ctx context.Context, tenantID uint, draft InvoiceDraft) (*models.Invoice, error) {
	timer := time.Now()
	inv, err := c.settleInvoice(ctx, tenantID, draft)
	metrics.SettlementDuration.Observe(time.Since(timer).Seconds())
	if err != nil {
		metrics.SettlementsRejected.WithLabelValues(rejectionReason(err)).Inc()
		return nil, err
	}
	metrics.SettlementsCommitted.WithLabelValues(string(inv.Direction)).Inc()
	return inv, nil
}

func (c *Coordinator) settleInvoice(ctx context.Context, tenantID uint, draft InvoiceDraft) (*models.Invoice, error) {
	if tenantID == 0 {
		return nil, &ValidationError{Violations: validation.Violations{"tenant_id": "required"}}
	}
	if draft.Date.IsZero() {
		draft.Date = time.Now()
	}
	if err := c.validateDraft(tenantID, &draft); err != nil {
		return nil, err
	}

	lines := draft.lines()
	payments := draft.paymentRecords()
	summary := ledger.ComputeSummary(lines, draft.Discount, draft.Extra, draft.TaxRate, draft.Kind, payments)
	if summary.DiscountedSubtotal.IsNegative() {
		return nil, &ValidationError{Violations: validation.Violations{"discount": "exceeds_subtotal"}}
	}

	installments, err := c.buildSchedule(&draft, summary.Balance)
	if err != nil {
		return nil, err
	}

	currency := draft.Currency
	if currency == "" {
		currency = "SAR"
	}
	status := "pending"
	if !summary.Balance.IsPositive() {
		status = "paid"
	}
	inv := models.Invoice{
		TenantID:        tenantID,
		BranchID:        draft.BranchID,
		Number:          draft.Number,
		Direction:       draft.Direction,
		Kind:            draft.Kind,
		CounterpartKind: draft.CounterpartKind,
		CounterpartID:   draft.CounterpartID,
		Items:           lines,
		Payments:        payments,
		Installments:    installments,
		Discount:        draft.Discount,
		Extra:           draft.Extra,
		TaxRate:         draft.TaxRate,
		PaymentType:     draft.PaymentType,
		Currency:        currency,
		Notes:           draft.Notes,
		ItemsSubtotal:   summary.ItemsSubtotal,
		TaxAmount:       summary.TaxAmount,
		GrandTotal:      summary.GrandTotal,
		TotalPaid:       summary.TotalPaid,
		Balance:         summary.Balance,
		Status:          status,
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err = c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&inv).Error; err != nil {
			return err
		}
		results, err := c.adjuster.Apply(tx, tenantID, inv.Direction, inv.Items)
		if err != nil {
			return err
		}
		movements := make([]models.StockMovement, 0, len(results))
		for _, r := range results {
			movements = append(movements, models.StockMovement{
				TenantID:          tenantID,
				InvoiceID:         inv.ID,
				WarehouseID:       r.WarehouseID,
				Name:              r.Name,
				Action:            string(r.Action),
				Quantity:          r.Quantity,
				ResultingQuantity: r.ResultingQuantity,
			})
		}
		if len(movements) > 0 {
			if err := tx.Create(&movements).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		c.log.Warn().Err(err).Uint("tenant_id", tenantID).Str("number", draft.Number).Msg("settlement rolled back")
		return nil, classifyStorageErr(err)
	}

	c.log.Info().
		Uint("tenant_id", tenantID).
		Uint("invoice_id", inv.ID).
		Str("direction", string(inv.Direction)).
		Str("grand_total", inv.GrandTotal.String()).
		Msg("invoice settled")
	return &inv, nil
}

func (c *Coordinator) validateDraft(tenantID uint, draft *InvoiceDraft) error {
	v := validation.Violations{}
	validation.Required("number", draft.Number, v)
	if draft.Direction != models.DirectionRevenue && draft.Direction != models.DirectionExpense {
		v["direction"] = "must_be_revenue_or_expense"
	}
	if draft.Kind == "" {
		draft.Kind = models.KindNormal
	} else if draft.Kind != models.KindNormal && draft.Kind != models.KindTax {
		v["kind"] = "must_be_normal_or_tax"
	}
	if draft.PaymentType == "" {
		draft.PaymentType = models.PaymentCash
	}
	validation.RequiredRef("counterpart_id", draft.CounterpartID, v)
	switch draft.Direction {
	case models.DirectionRevenue:
		if draft.CounterpartKind != models.CounterpartCustomer {
			v["counterpart_kind"] = "revenue_requires_customer"
		}
	case models.DirectionExpense:
		if draft.CounterpartKind != models.CounterpartSupplier {
			v["counterpart_kind"] = "expense_requires_supplier"
		}
	}
	if len(draft.Items) == 0 {
		v["items"] = "required"
	}
	for i, it := range draft.Items {
		if it.Name == "" || it.WarehouseID == 0 || !it.Quantity.IsPositive() || it.UnitPrice.IsNegative() {
			v["items"] = "invalid_line_" + strconv.Itoa(i)
			break
		}
	}
	validation.NonNegativeDecimal("discount", draft.Discount, v)
	validation.NonNegativeDecimal("extra", draft.Extra, v)
	validation.NonNegativeDecimal("tax_rate", draft.TaxRate, v)
	for _, p := range draft.Payments {
		if p.Amount.IsNegative() {
			v["payments"] = "must_not_be_negative"
			break
		}
	}
	if !v.Empty() {
		return &ValidationError{Violations: v}
	}

	// The counterpart must exist for this tenant; the union tag already
	// matches the direction at this point.
	var count int64
	var err error
	if draft.CounterpartKind == models.CounterpartCustomer {
		err = c.db.Model(&models.Customer{}).Where("id = ? AND tenant_id = ?", draft.CounterpartID, tenantID).Count(&count).Error
	} else {
		err = c.db.Model(&models.Supplier{}).Where("id = ? AND tenant_id = ?", draft.CounterpartID, tenantID).Count(&count).Error
	}
	if err != nil {
		return err
	}
	if count == 0 {
		return &ValidationError{Violations: validation.Violations{"counterpart_id": "not_found"}}
	}
	return nil
}

// buildSchedule resolves the installment plan for the draft: explicit
// schedules are verified against the balance, a count is expanded through
// the planner, and non-installment drafts get none.
func (c *Coordinator) buildSchedule(draft *InvoiceDraft, balance decimal.Decimal) ([]models.Installment, error) {
	if draft.PaymentType != models.PaymentInstallment {
		return nil, nil
	}
	if len(draft.Schedule) > 0 {
		total := decimal.Zero
		installments := make([]models.Installment, 0, len(draft.Schedule))
		for i, s := range draft.Schedule {
			if s.Amount.IsNegative() {
				return nil, &ValidationError{Violations: validation.Violations{"schedule": "must_not_be_negative"}}
			}
			total = total.Add(s.Amount)
			installments = append(installments, models.Installment{
				ID:       uuid.NewString(),
				Sequence: i + 1,
				DueDate:  s.DueDate,
				Amount:   s.Amount,
				Status:   models.InstallmentPending,
			})
		}
		if total.Sub(balance).Abs().GreaterThan(scheduleEpsilon) {
			return nil, &InstallmentMismatchError{ScheduleTotal: total, Balance: balance}
		}
		return installments, nil
	}
	if draft.InstallmentCount > 0 {
		plan, err := ledger.PlanInstallments(balance, draft.InstallmentCount, draft.Date)
		if err != nil {
			if errors.Is(err, ledger.ErrInvalidScheduleRequest) {
				return nil, &ValidationError{Violations: validation.Violations{"installment_count": "invalid_for_balance"}}
			}
			return nil, err
		}
		return plan, nil
	}
	return nil, &ValidationError{Violations: validation.Violations{"schedule": "required_for_installment_payment"}}
}

// CheckAvailability is the read-only pre-check UIs call before
// submission. It reserves nothing; settlement re-checks under lock.
func (c *Coordinator) CheckAvailability(ctx context.Context, tenantID uint, items []DraftLine) (inventory.AvailabilityReport, error) {
	lines := make([]models.InvoiceLine, 0, len(items))
	for _, it := range items {
		lines = append(lines, models.InvoiceLine{Name: it.Name, WarehouseID: it.WarehouseID, Quantity: it.Quantity})
	}
	return c.adjuster.CheckAvailability(c.db.WithContext(ctx), tenantID, lines)
}

// Movements returns the audit feed written for one invoice.
func (c *Coordinator) Movements(ctx context.Context, tenantID, invoiceID uint) ([]models.StockMovement, error) {
	var movements []models.StockMovement
	err := c.db.WithContext(ctx).
		Where("tenant_id = ? AND invoice_id = ?", tenantID, invoiceID).
		Order("id").
		Find(&movements).Error
	return movements, err
}

func rejectionReason(err error) string {
	var (
		ve *ValidationError
		se *inventory.ShortageError
		ue *inventory.UnknownProductError
		me *InstallmentMismatchError
		ce *ConflictError
		te *TimeoutError
	)
	switch {
	case errors.As(err, &ve):
		return "validation"
	case errors.As(err, &se):
		return "insufficient_stock"
	case errors.As(err, &ue):
		return "unknown_product"
	case errors.As(err, &me):
		return "installment_mismatch"
	case errors.As(err, &ce):
		return "conflict"
	case errors.As(err, &te):
		return "timeout"
	default:
		return "storage"
	}
}
