package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockRecord is the quantity on hand for one item name within one
// warehouse of one tenant. Created the first time a purchase invoice
// references an unknown (warehouse, name) pair; never created by a sale.
// Only the inventory adjuster writes to it, always inside the settlement
// transaction.
type StockRecord struct {
	ID             uint            `gorm:"primaryKey"`
	TenantID       uint            `gorm:"not null;index:idx_stock_item,unique,priority:1"`
	WarehouseID    uint            `gorm:"not null;index:idx_stock_item,unique,priority:2"`
	Name           string          `gorm:"size:120;not null;index:idx_stock_item,unique,priority:3"`
	Quantity       decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	ReferencePrice decimal.Decimal `gorm:"type:decimal(18,2);not null"` // last purchase price
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// StockMovement is the audit trail written by the inventory adjuster: one
// row per invoice line, recording the action taken and the resulting
// quantity. Observability only, never read back for control flow.
type StockMovement struct {
	ID                uint            `gorm:"primaryKey"`
	TenantID          uint            `gorm:"not null;index"`
	InvoiceID         uint            `gorm:"not null;index"`
	WarehouseID       uint            `gorm:"not null"`
	Name              string          `gorm:"size:120;not null"`
	Action            string          `gorm:"size:10;not null"` // deducted, added, created
	Quantity          decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	ResultingQuantity decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	CreatedAt         time.Time
}
