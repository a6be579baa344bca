package settlement

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/memo-adelApis/noqta-core/internal/models"
)

// settles a 300.00 sale over 3 installments of 100.00 and returns it.
func settleInstallmentFixture(t *testing.T, db *gorm.DB, c *Coordinator) *models.Invoice {
	t.Helper()
	seedStock(t, db, 1, "Widget", "50", "8.00")
	draft := saleDraft("INV-INST", DraftLine{Name: "Widget", UnitPrice: d("100.00"), Quantity: d("3"), WarehouseID: 1})
	draft.PaymentType = models.PaymentInstallment
	draft.InstallmentCount = 3
	draft.Date = time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	inv, err := c.SettleInvoice(context.Background(), testTenant, draft)
	require.NoError(t, err)
	require.Len(t, inv.Installments, 3)
	return inv
}

func TestSettleInstallmentMarksPaidAndUpdatesAggregates(t *testing.T) {
	db, c := setupCoordinator(t)
	inv := settleInstallmentFixture(t, db, c)
	target := inv.Installments[0]

	updated, err := c.SettleInstallment(context.Background(), testTenant, inv.ID, target.ID, d("100.00"))
	require.NoError(t, err)

	assert.True(t, updated.TotalPaid.Equal(d("100.00")), "total paid %s", updated.TotalPaid)
	assert.True(t, updated.Balance.Equal(d("200.00")), "balance %s", updated.Balance)
	assert.Equal(t, "pending", updated.Status)

	var ins models.Installment
	require.NoError(t, db.First(&ins, "id = ?", target.ID).Error)
	assert.Equal(t, models.InstallmentPaid, ins.Status)
	require.NotNil(t, ins.PaidAt)
	assert.True(t, ins.PaidAmount.Equal(d("100.00")))

	// A payment record was appended for the settlement.
	var payments int64
	db.Model(&models.PaymentRecord{}).Where("invoice_id = ? AND method = ?", inv.ID, "installment").Count(&payments)
	assert.EqualValues(t, 1, payments)

	// Inventory is untouched by installment settlement.
	rec := stockOf(t, db, 1, "Widget")
	assert.True(t, rec.Quantity.Equal(d("47")))
}

func TestSettleAllInstallmentsClosesInvoice(t *testing.T) {
	db, c := setupCoordinator(t)
	inv := settleInstallmentFixture(t, db, c)

	var updated *models.Invoice
	var err error
	for _, ins := range inv.Installments {
		updated, err = c.SettleInstallment(context.Background(), testTenant, inv.ID, ins.ID, ins.Amount)
		require.NoError(t, err)
	}
	assert.True(t, updated.Balance.IsZero(), "balance %s", updated.Balance)
	assert.Equal(t, "paid", updated.Status)
}

func TestSettleInstallmentTwiceFails(t *testing.T) {
	db, c := setupCoordinator(t)
	inv := settleInstallmentFixture(t, db, c)
	target := inv.Installments[1]

	_, err := c.SettleInstallment(context.Background(), testTenant, inv.ID, target.ID, d("100.00"))
	require.NoError(t, err)

	_, err = c.SettleInstallment(context.Background(), testTenant, inv.ID, target.ID, d("100.00"))
	var already *AlreadySettledError
	require.ErrorAs(t, err, &already)
	assert.Equal(t, target.ID, already.InstallmentID)

	// Aggregates unchanged by the rejected second call.
	var fresh models.Invoice
	require.NoError(t, db.First(&fresh, inv.ID).Error)
	assert.True(t, fresh.TotalPaid.Equal(d("100.00")), "total paid %s", fresh.TotalPaid)
	assert.True(t, fresh.Balance.Equal(d("200.00")), "balance %s", fresh.Balance)
}

func TestSettleInstallmentOverpaymentRejected(t *testing.T) {
	db, c := setupCoordinator(t)
	inv := settleInstallmentFixture(t, db, c)
	target := inv.Installments[0]

	_, err := c.SettleInstallment(context.Background(), testTenant, inv.ID, target.ID, d("150.00"))
	var exceeds *ExceedsInstallmentError
	require.ErrorAs(t, err, &exceeds)
	assert.True(t, exceeds.Amount.Equal(d("100.00")))
	assert.True(t, exceeds.Paid.Equal(d("150.00")))
}

func TestSettleInstallmentPartialPaymentAllowed(t *testing.T) {
	db, c := setupCoordinator(t)
	inv := settleInstallmentFixture(t, db, c)
	target := inv.Installments[0]

	updated, err := c.SettleInstallment(context.Background(), testTenant, inv.ID, target.ID, d("60.00"))
	require.NoError(t, err)
	assert.True(t, updated.TotalPaid.Equal(d("60.00")))
	assert.True(t, updated.Balance.Equal(d("240.00")))

	var ins models.Installment
	require.NoError(t, db.First(&ins, "id = ?", target.ID).Error)
	assert.Equal(t, models.InstallmentPaid, ins.Status)
	assert.True(t, ins.PaidAmount.Equal(d("60.00")))
}

func TestSettleInstallmentUnknownRefsRejected(t *testing.T) {
	db, c := setupCoordinator(t)
	inv := settleInstallmentFixture(t, db, c)

	var nf *NotFoundError
	_, err := c.SettleInstallment(context.Background(), testTenant, 999, "no-such-id", d("10.00"))
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "invoice", nf.Entity)

	_, err = c.SettleInstallment(context.Background(), testTenant, inv.ID, "no-such-id", d("10.00"))
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "installment", nf.Entity)

	_, err = c.SettleInstallment(context.Background(), testTenant, inv.ID, inv.Installments[0].ID, d("0"))
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
}
