// Package ledger holds the pure financial math of the settlement engine:
// invoice summaries and installment schedules. No I/O, no persisted state.
package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/memo-adelApis/noqta-core/internal/models"
)

var hundred = decimal.NewFromInt(100)

// Summary is the derived financial view of an invoice. All amounts are
// rounded to two decimal places; intermediate math stays in full decimal
// precision so repeated additions cannot drift.
type Summary struct {
	ItemsSubtotal      decimal.Decimal
	DiscountedSubtotal decimal.Decimal
	TaxAmount          decimal.Decimal
	GrandTotal         decimal.Decimal
	TotalPaid          decimal.Decimal
	Balance            decimal.Decimal
}

// ComputeSummary derives the invoice summary from its parts.
//
//	itemsSubtotal      = Σ price_i × quantity_i
//	discountedSubtotal = itemsSubtotal − discount (not floored; the
//	                     coordinator rejects negative results)
//	taxAmount          = discountedSubtotal × taxRate/100 when kind is tax
//	grandTotal         = discountedSubtotal + taxAmount + extra
//	balance            = grandTotal − Σ payments
func ComputeSummary(items []models.InvoiceLine, discount, extra, taxRate decimal.Decimal, kind models.InvoiceKind, payments []models.PaymentRecord) Summary {
	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.UnitPrice.Mul(it.Quantity))
	}
	discounted := subtotal.Sub(discount)

	tax := decimal.Zero
	if kind == models.KindTax {
		tax = discounted.Mul(taxRate).Div(hundred)
	}
	grand := discounted.Add(tax).Add(extra)

	paid := decimal.Zero
	for _, p := range payments {
		paid = paid.Add(p.Amount)
	}

	sub := subtotal.Round(2)
	disc := discounted.Round(2)
	taxR := tax.Round(2)
	// Round tax before summing so grandTotal == discountedSubtotal +
	// taxAmount + extra holds exactly on the rounded figures.
	grand = disc.Add(taxR).Add(extra.Round(2))
	paidR := paid.Round(2)

	return Summary{
		ItemsSubtotal:      sub,
		DiscountedSubtotal: disc,
		TaxAmount:          taxR,
		GrandTotal:         grand,
		TotalPaid:          paidR,
		Balance:            grand.Sub(paidR),
	}
}
