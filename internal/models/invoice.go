package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Invoice direction decides the inventory consequence of posting:
// a sale deducts stock, a purchase adds to it.
type InvoiceDirection string

const (
	DirectionRevenue InvoiceDirection = "revenue" // sale
	DirectionExpense InvoiceDirection = "expense" // purchase
)

// InvoiceKind controls whether VAT is applied on top of the discounted subtotal.
type InvoiceKind string

const (
	KindNormal InvoiceKind = "normal"
	KindTax    InvoiceKind = "tax"
)

// CounterpartKind tags the party on the other side of the invoice.
// Exactly one party is referenced and its kind must match the direction
// (customer for revenue, supplier for expense).
type CounterpartKind string

const (
	CounterpartCustomer CounterpartKind = "customer"
	CounterpartSupplier CounterpartKind = "supplier"
)

type PaymentType string

const (
	PaymentCash        PaymentType = "cash"
	PaymentInstallment PaymentType = "installment"
)

// Invoice is the posted settlement document. The financial fields below the
// payment type are derived by the ledger at settlement time and never
// hand-entered.
type Invoice struct {
	ID       uint   `gorm:"primaryKey"`
	TenantID uint   `gorm:"not null;index:idx_tenant_number,unique,priority:1"`
	BranchID *uint  `gorm:"index"`
	Number   string `gorm:"size:40;not null;index:idx_tenant_number,unique,priority:2"`

	Direction InvoiceDirection `gorm:"type:varchar(10);not null;index"`
	Kind      InvoiceKind      `gorm:"type:varchar(10);not null;default:'normal'"`

	CounterpartKind CounterpartKind `gorm:"type:varchar(10);not null"`
	CounterpartID   uint            `gorm:"not null;index"`

	Items        []InvoiceLine   `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE"`
	Payments     []PaymentRecord `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE"`
	Installments []Installment   `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE"`

	Discount decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Extra    decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	TaxRate  decimal.Decimal `gorm:"type:decimal(6,2);not null"` // percent, e.g. 15.00

	PaymentType PaymentType `gorm:"type:varchar(15);not null;default:'cash'"`
	Currency    string      `gorm:"size:3;not null;default:'SAR'"`
	Notes       string      `gorm:"size:500"`

	// Derived summary, computed once at settlement.
	ItemsSubtotal decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	TaxAmount     decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	GrandTotal    decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	TotalPaid     decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Balance       decimal.Decimal `gorm:"type:decimal(18,2);not null"`

	Status    string `gorm:"size:20;not null;default:'pending'"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type InvoiceLine struct {
	ID            uint            `gorm:"primaryKey"`
	InvoiceID     uint            `gorm:"not null;index"`
	Name          string          `gorm:"size:120;not null"`
	UnitPrice     decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Quantity      decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Unit          string          `gorm:"size:20"`
	WarehouseID   uint            `gorm:"not null;index"`
	RemovalReason string          `gorm:"size:255"`
}

// PaymentRecord is one payment applied against an invoice, either given
// up-front in the draft or appended when an installment is settled.
type PaymentRecord struct {
	ID        uint            `gorm:"primaryKey"`
	InvoiceID uint            `gorm:"not null;index"`
	Date      time.Time       `gorm:"not null"`
	Amount    decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Method    string          `gorm:"size:30;not null;default:'cash'"`
	CreatedAt time.Time
}

type InstallmentStatus string

const (
	InstallmentPending InstallmentStatus = "pending"
	InstallmentPaid    InstallmentStatus = "paid"
)

// Installment carries a stable UUID primary key assigned at planning time.
// Settlement calls address installments by this id only; ordinal addressing
// is rejected because concurrent edits can reorder the schedule.
type Installment struct {
	ID         string            `gorm:"primaryKey;size:36"`
	InvoiceID  uint              `gorm:"not null;index"`
	Sequence   int               `gorm:"not null"`
	DueDate    time.Time         `gorm:"not null"`
	Amount     decimal.Decimal   `gorm:"type:decimal(18,2);not null"`
	Status     InstallmentStatus `gorm:"type:varchar(10);not null;default:'pending'"`
	PaidAt     *time.Time
	PaidAmount decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
