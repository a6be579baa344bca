package inventory

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ShortageError rejects a sale line that asks for more than is on hand.
// Not retryable: quantity may legitimately never become available.
type ShortageError struct {
	Name      string
	Available decimal.Decimal
	Required  decimal.Decimal
}

func (e *ShortageError) Error() string {
	return fmt.Sprintf("insufficient stock for %q: available %s, required %s", e.Name, e.Available, e.Required)
}

// UnknownProductError rejects a sale line whose (warehouse, name) pair has
// no stock record. Sales never create stock records.
type UnknownProductError struct {
	Name        string
	WarehouseID uint
}

func (e *UnknownProductError) Error() string {
	return fmt.Sprintf("no stock record for %q in warehouse %d", e.Name, e.WarehouseID)
}
