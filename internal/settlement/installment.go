package settlement

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/memo-adelApis/noqta-core/internal/ledger"
	"github.com/memo-adelApis/noqta-core/internal/metrics"
	"github.com/memo-adelApis/noqta-core/internal/models"
	"github.com/memo-adelApis/noqta-core/internal/validation"
)

// SettleInstallment records a payment against one pending installment of a
// posted invoice and refreshes the invoice's paid/balance aggregates.
// Installments are addressed by their stable id only. Inventory is never
// touched here.
func (c *Coordinator) SettleInstallment(ctx context.Context, tenantID, invoiceID uint, installmentID string, paidAmount decimal.Decimal) (*models.Invoice, error) {
	if installmentID == "" {
		return nil, &ValidationError{Violations: validation.Violations{"installment_id": "required"}}
	}
	if !paidAmount.IsPositive() {
		return nil, &ValidationError{Violations: validation.Violations{"paid_amount": "must_be_positive"}}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var inv models.Invoice
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx
		if tx.Dialector.Name() == "postgres" {
			q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		if err := q.Where("id = ? AND tenant_id = ?", invoiceID, tenantID).First(&inv).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Entity: "invoice", Ref: strconvUint(invoiceID)}
			}
			return err
		}

		var ins models.Installment
		if err := tx.Where("id = ? AND invoice_id = ?", installmentID, inv.ID).First(&ins).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Entity: "installment", Ref: installmentID}
			}
			return err
		}
		if ins.Status == models.InstallmentPaid {
			return &AlreadySettledError{InstallmentID: ins.ID}
		}
		if paidAmount.GreaterThan(ins.Amount) {
			return &ExceedsInstallmentError{InstallmentID: ins.ID, Amount: ins.Amount, Paid: paidAmount}
		}

		now := time.Now()
		ins.Status = models.InstallmentPaid
		ins.PaidAt = &now
		ins.PaidAmount = paidAmount
		if err := tx.Save(&ins).Error; err != nil {
			return err
		}

		payment := models.PaymentRecord{InvoiceID: inv.ID, Date: now, Amount: paidAmount, Method: "installment"}
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}

		// Recompute the aggregates from the full payment list rather than
		// adjusting in place, so the stored figures cannot drift.
		if err := tx.Where("invoice_id = ?", inv.ID).Find(&inv.Payments).Error; err != nil {
			return err
		}
		if err := tx.Where("invoice_id = ?", inv.ID).Find(&inv.Items).Error; err != nil {
			return err
		}
		summary := ledger.ComputeSummary(inv.Items, inv.Discount, inv.Extra, inv.TaxRate, inv.Kind, inv.Payments)
		inv.TotalPaid = summary.TotalPaid
		inv.Balance = summary.Balance
		if !inv.Balance.IsPositive() {
			inv.Status = "paid"
		}
		if err := tx.Model(&models.Invoice{}).Where("id = ?", inv.ID).
			Updates(map[string]any{"total_paid": inv.TotalPaid, "balance": inv.Balance, "status": inv.Status}).Error; err != nil {
			return err
		}
		return tx.Where("invoice_id = ?", inv.ID).Order("sequence").Find(&inv.Installments).Error
	})
	if err != nil {
		return nil, classifyStorageErr(err)
	}

	metrics.InstallmentsSettled.Inc()
	c.log.Info().
		Uint("tenant_id", tenantID).
		Uint("invoice_id", inv.ID).
		Str("installment_id", installmentID).
		Str("paid", paidAmount.String()).
		Msg("installment settled")
	return &inv, nil
}

func strconvUint(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}
