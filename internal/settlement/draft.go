package settlement

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/memo-adelApis/noqta-core/internal/models"
)

// InvoiceDraft is everything a caller submits to settle an invoice. All
// financial summary fields are derived server-side; the draft never
// carries totals.
type InvoiceDraft struct {
	Number    string                  `json:"number"`
	BranchID  *uint                   `json:"branch_id,omitempty"`
	Direction models.InvoiceDirection `json:"direction"`
	Kind      models.InvoiceKind      `json:"kind"`

	CounterpartKind models.CounterpartKind `json:"counterpart_kind"`
	CounterpartID   uint                   `json:"counterpart_id"`

	Items []DraftLine `json:"items"`

	Discount decimal.Decimal `json:"discount"`
	Extra    decimal.Decimal `json:"extra"`
	TaxRate  decimal.Decimal `json:"tax_rate"`

	PaymentType models.PaymentType `json:"payment_type"`
	Payments    []DraftPayment     `json:"payments"`

	// Either a count (schedule planned server-side) or an explicit
	// schedule; both only when PaymentType is installment.
	InstallmentCount int                `json:"installment_count,omitempty"`
	Schedule         []DraftInstallment `json:"schedule,omitempty"`

	Date     time.Time `json:"date"`
	Currency string    `json:"currency"`
	Notes    string    `json:"notes"`
}

type DraftLine struct {
	Name          string          `json:"name"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	Quantity      decimal.Decimal `json:"quantity"`
	Unit          string          `json:"unit"`
	WarehouseID   uint            `json:"warehouse_id"`
	RemovalReason string          `json:"removal_reason,omitempty"`
}

type DraftPayment struct {
	Date   time.Time       `json:"date"`
	Amount decimal.Decimal `json:"amount"`
	Method string          `json:"method"`
}

type DraftInstallment struct {
	DueDate time.Time       `json:"due_date"`
	Amount  decimal.Decimal `json:"amount"`
}

func (d *InvoiceDraft) lines() []models.InvoiceLine {
	lines := make([]models.InvoiceLine, 0, len(d.Items))
	for _, it := range d.Items {
		lines = append(lines, models.InvoiceLine{
			Name:          it.Name,
			UnitPrice:     it.UnitPrice,
			Quantity:      it.Quantity,
			Unit:          it.Unit,
			WarehouseID:   it.WarehouseID,
			RemovalReason: it.RemovalReason,
		})
	}
	return lines
}

func (d *InvoiceDraft) paymentRecords() []models.PaymentRecord {
	payments := make([]models.PaymentRecord, 0, len(d.Payments))
	for _, p := range d.Payments {
		date := p.Date
		if date.IsZero() {
			date = d.Date
		}
		method := p.Method
		if method == "" {
			method = "cash"
		}
		payments = append(payments, models.PaymentRecord{Date: date, Amount: p.Amount, Method: method})
	}
	return payments
}
