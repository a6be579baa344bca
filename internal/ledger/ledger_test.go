package ledger

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/memo-adelApis/noqta-core/internal/models"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func line(price, qty string) models.InvoiceLine {
	return models.InvoiceLine{Name: "item", UnitPrice: d(price), Quantity: d(qty)}
}

func TestComputeSummaryBasic(t *testing.T) {
	items := []models.InvoiceLine{line("10.00", "3")}
	payments := []models.PaymentRecord{{Amount: d("30.00")}}
	s := ComputeSummary(items, decimal.Zero, decimal.Zero, decimal.Zero, models.KindNormal, payments)

	if !s.ItemsSubtotal.Equal(d("30.00")) {
		t.Fatalf("subtotal: got %s", s.ItemsSubtotal)
	}
	if !s.GrandTotal.Equal(d("30.00")) {
		t.Fatalf("grand total: got %s", s.GrandTotal)
	}
	if !s.Balance.IsZero() {
		t.Fatalf("balance: got %s", s.Balance)
	}
}

func TestComputeSummaryTaxAndExtras(t *testing.T) {
	items := []models.InvoiceLine{line("200.00", "2"), line("50.00", "1")}
	s := ComputeSummary(items, d("50.00"), d("20.00"), d("15"), models.KindTax, nil)

	// 450 - 50 = 400, tax 15% = 60, + extra 20 = 480
	if !s.DiscountedSubtotal.Equal(d("400.00")) {
		t.Fatalf("discounted subtotal: got %s", s.DiscountedSubtotal)
	}
	if !s.TaxAmount.Equal(d("60.00")) {
		t.Fatalf("tax: got %s", s.TaxAmount)
	}
	if !s.GrandTotal.Equal(d("480.00")) {
		t.Fatalf("grand total: got %s", s.GrandTotal)
	}
}

func TestComputeSummaryNormalKindSkipsTax(t *testing.T) {
	items := []models.InvoiceLine{line("100.00", "1")}
	s := ComputeSummary(items, decimal.Zero, decimal.Zero, d("15"), models.KindNormal, nil)
	if !s.TaxAmount.IsZero() {
		t.Fatalf("tax should be zero for normal kind, got %s", s.TaxAmount)
	}
}

// The grand total must equal the sum of its rounded components exactly,
// even for awkward fractional inputs.
func TestComputeSummaryRoundingIdentity(t *testing.T) {
	cases := [][]models.InvoiceLine{
		{line("0.10", "3"), line("19.99", "7")},
		{line("33.335", "3")},
		{line("1.005", "100"), line("2.675", "4")},
	}
	for _, items := range cases {
		s := ComputeSummary(items, d("0.01"), d("0.07"), d("15"), models.KindTax, nil)
		want := s.DiscountedSubtotal.Add(s.TaxAmount).Add(d("0.07"))
		if !s.GrandTotal.Equal(want) {
			t.Fatalf("identity broken: grand=%s components=%s", s.GrandTotal, want)
		}
	}
}

// Repeated evaluation of the same input must be bit-identical; binary
// floats would drift here.
func TestComputeSummaryDeterministic(t *testing.T) {
	items := []models.InvoiceLine{line("0.10", "1"), line("0.20", "1"), line("0.30", "1")}
	first := ComputeSummary(items, decimal.Zero, decimal.Zero, decimal.Zero, models.KindNormal, nil)
	for i := 0; i < 1000; i++ {
		s := ComputeSummary(items, decimal.Zero, decimal.Zero, decimal.Zero, models.KindNormal, nil)
		if !s.GrandTotal.Equal(first.GrandTotal) || !s.GrandTotal.Equal(d("0.60")) {
			t.Fatalf("drift on run %d: %s", i, s.GrandTotal)
		}
	}
}

// A discount larger than the subtotal is passed through negative; the
// coordinator owns the rejection policy, not the math.
func TestComputeSummaryDiscountExceedsSubtotal(t *testing.T) {
	items := []models.InvoiceLine{line("10.00", "1")}
	s := ComputeSummary(items, d("25.00"), decimal.Zero, decimal.Zero, models.KindNormal, nil)
	if !s.DiscountedSubtotal.Equal(d("-15.00")) {
		t.Fatalf("expected -15.00, got %s", s.DiscountedSubtotal)
	}
}
