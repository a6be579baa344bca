// Package inventory applies the stock-level consequence of posted
// invoices. All mutation of stock records in the system goes through the
// Adjuster, inside the settlement transaction handed to it.
package inventory

import (
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/memo-adelApis/noqta-core/internal/models"
)

type LineAction string

const (
	ActionDeducted LineAction = "deducted"
	ActionAdded    LineAction = "added"
	ActionCreated  LineAction = "created"
)

// LineResult reports what happened to one invoice line. Audit feed only.
type LineResult struct {
	Name              string
	WarehouseID       uint
	Action            LineAction
	Quantity          decimal.Decimal
	ResultingQuantity decimal.Decimal
}

type Adjuster struct{}

func NewAdjuster() *Adjuster { return &Adjuster{} }

// Apply mutates the stock records touched by one invoice's lines, in line
// order, inside the caller's transaction. Sales require an existing record
// with enough quantity; purchases increment or create records, overwriting
// the reference price with the newest purchase price. The first failing
// line aborts the whole call; the enclosing transaction discards any prior
// mutations, so the all-or-nothing contract rests on the caller rolling
// back on error.
func (a *Adjuster) Apply(tx *gorm.DB, tenantID uint, direction models.InvoiceDirection, items []models.InvoiceLine) ([]LineResult, error) {
	results := make([]LineResult, 0, len(items))
	for _, it := range items {
		var rec models.StockRecord
		err := lockForUpdate(tx).
			Where("tenant_id = ? AND warehouse_id = ? AND name = ?", tenantID, it.WarehouseID, it.Name).
			First(&rec).Error

		switch direction {
		case models.DirectionRevenue:
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, &UnknownProductError{Name: it.Name, WarehouseID: it.WarehouseID}
			}
			if err != nil {
				return nil, err
			}
			if rec.Quantity.LessThan(it.Quantity) {
				return nil, &ShortageError{Name: it.Name, Available: rec.Quantity, Required: it.Quantity}
			}
			rec.Quantity = rec.Quantity.Sub(it.Quantity)
			if err := tx.Save(&rec).Error; err != nil {
				return nil, err
			}
			results = append(results, LineResult{Name: it.Name, WarehouseID: it.WarehouseID, Action: ActionDeducted, Quantity: it.Quantity, ResultingQuantity: rec.Quantity})

		case models.DirectionExpense:
			if errors.Is(err, gorm.ErrRecordNotFound) {
				rec = models.StockRecord{
					TenantID:       tenantID,
					WarehouseID:    it.WarehouseID,
					Name:           it.Name,
					Quantity:       it.Quantity,
					ReferencePrice: it.UnitPrice,
				}
				if err := tx.Create(&rec).Error; err != nil {
					return nil, err
				}
				results = append(results, LineResult{Name: it.Name, WarehouseID: it.WarehouseID, Action: ActionCreated, Quantity: it.Quantity, ResultingQuantity: rec.Quantity})
				continue
			}
			if err != nil {
				return nil, err
			}
			rec.Quantity = rec.Quantity.Add(it.Quantity)
			// Last-purchase-price policy: the stored reference price always
			// follows the newest purchase.
			rec.ReferencePrice = it.UnitPrice
			if err := tx.Save(&rec).Error; err != nil {
				return nil, err
			}
			results = append(results, LineResult{Name: it.Name, WarehouseID: it.WarehouseID, Action: ActionAdded, Quantity: it.Quantity, ResultingQuantity: rec.Quantity})

		default:
			return nil, errors.New("unknown invoice direction: " + string(direction))
		}
	}
	return results, nil
}

// Shortage is one unavailable line in an availability report.
type Shortage struct {
	Name      string          `json:"name"`
	Available decimal.Decimal `json:"available"`
	Required  decimal.Decimal `json:"required"`
}

type AvailabilityReport struct {
	Available bool       `json:"available"`
	Shortages []Shortage `json:"shortages"`
}

// CheckAvailability reports whether a sale of the given lines could go
// through right now. Read-only: it takes no locks and reserves nothing, so
// a concurrent settlement can still win the race; the settlement itself
// re-checks under lock.
func (a *Adjuster) CheckAvailability(db *gorm.DB, tenantID uint, items []models.InvoiceLine) (AvailabilityReport, error) {
	report := AvailabilityReport{Available: true, Shortages: []Shortage{}}
	for _, it := range items {
		var rec models.StockRecord
		err := db.
			Where("tenant_id = ? AND warehouse_id = ? AND name = ?", tenantID, it.WarehouseID, it.Name).
			First(&rec).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			report.Available = false
			report.Shortages = append(report.Shortages, Shortage{Name: it.Name, Available: decimal.Zero, Required: it.Quantity})
			continue
		}
		if err != nil {
			return AvailabilityReport{}, err
		}
		if rec.Quantity.LessThan(it.Quantity) {
			report.Available = false
			report.Shortages = append(report.Shortages, Shortage{Name: it.Name, Available: rec.Quantity, Required: it.Quantity})
		}
	}
	return report, nil
}

// Row-level locking for the check-then-mutate sequence. SQLite serializes
// writers at the database level and rejects FOR UPDATE syntax, so the
// clause is applied on postgres only.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}
