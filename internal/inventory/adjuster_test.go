package inventory

import (
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/memo-adelApis/noqta-core/internal/models"
)

func setupAdjusterTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.StockRecord{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func seedStock(t *testing.T, db *gorm.DB, tenantID, warehouseID uint, name, qty, price string) models.StockRecord {
	t.Helper()
	rec := models.StockRecord{TenantID: tenantID, WarehouseID: warehouseID, Name: name, Quantity: d(qty), ReferencePrice: d(price)}
	if err := db.Create(&rec).Error; err != nil {
		t.Fatalf("seed stock: %v", err)
	}
	return rec
}

func TestApplySaleDeductsStock(t *testing.T) {
	db := setupAdjusterTestDB(t)
	seedStock(t, db, 1, 1, "Widget", "10", "4.00")
	adj := NewAdjuster()

	var results []LineResult
	err := db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		results, txErr = adj.Apply(tx, 1, models.DirectionRevenue, []models.InvoiceLine{
			{Name: "Widget", WarehouseID: 1, Quantity: d("3"), UnitPrice: d("5.00")},
		})
		return txErr
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(results) != 1 || results[0].Action != ActionDeducted || !results[0].ResultingQuantity.Equal(d("7")) {
		t.Fatalf("unexpected result: %+v", results)
	}

	var rec models.StockRecord
	if err := db.Where("tenant_id = ? AND warehouse_id = ? AND name = ?", 1, 1, "Widget").First(&rec).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !rec.Quantity.Equal(d("7")) {
		t.Fatalf("quantity after sale: got %s", rec.Quantity)
	}
}

func TestApplySaleShortageAbortsWholeCall(t *testing.T) {
	db := setupAdjusterTestDB(t)
	seedStock(t, db, 1, 1, "Widget", "10", "4.00")
	seedStock(t, db, 1, 1, "Gadget", "2", "9.00")
	adj := NewAdjuster()

	err := db.Transaction(func(tx *gorm.DB) error {
		_, txErr := adj.Apply(tx, 1, models.DirectionRevenue, []models.InvoiceLine{
			{Name: "Widget", WarehouseID: 1, Quantity: d("5")}, // fine
			{Name: "Gadget", WarehouseID: 1, Quantity: d("3")}, // short
		})
		return txErr
	})

	var shortage *ShortageError
	if !errors.As(err, &shortage) {
		t.Fatalf("expected ShortageError, got %v", err)
	}
	if shortage.Name != "Gadget" || !shortage.Available.Equal(d("2")) || !shortage.Required.Equal(d("3")) {
		t.Fatalf("wrong shortage details: %+v", shortage)
	}

	// Rollback must also undo the Widget deduction that preceded the failure.
	var widget models.StockRecord
	if err := db.Where("name = ?", "Widget").First(&widget).Error; err != nil {
		t.Fatalf("reload widget: %v", err)
	}
	if !widget.Quantity.Equal(d("10")) {
		t.Fatalf("partial deduction survived rollback: %s", widget.Quantity)
	}
}

func TestApplySaleUnknownProduct(t *testing.T) {
	db := setupAdjusterTestDB(t)
	adj := NewAdjuster()

	err := db.Transaction(func(tx *gorm.DB) error {
		_, txErr := adj.Apply(tx, 1, models.DirectionRevenue, []models.InvoiceLine{
			{Name: "Ghost", WarehouseID: 1, Quantity: d("1")},
		})
		return txErr
	})
	var unknown *UnknownProductError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownProductError, got %v", err)
	}
	if unknown.Name != "Ghost" {
		t.Fatalf("wrong product in error: %+v", unknown)
	}
}

func TestApplyPurchaseCreatesRecordOnce(t *testing.T) {
	db := setupAdjusterTestDB(t)
	adj := NewAdjuster()

	var results []LineResult
	err := db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		results, txErr = adj.Apply(tx, 1, models.DirectionExpense, []models.InvoiceLine{
			{Name: "Widget", WarehouseID: 2, Quantity: d("3"), UnitPrice: d("10.00")},
		})
		return txErr
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if results[0].Action != ActionCreated {
		t.Fatalf("expected created, got %s", results[0].Action)
	}

	var count int64
	db.Model(&models.StockRecord{}).Where("tenant_id = ? AND warehouse_id = ? AND name = ?", 1, 2, "Widget").Count(&count)
	if count != 1 {
		t.Fatalf("expected exactly one stock record, got %d", count)
	}
	var rec models.StockRecord
	db.Where("warehouse_id = ?", 2).First(&rec)
	if !rec.Quantity.Equal(d("3")) || !rec.ReferencePrice.Equal(d("10.00")) {
		t.Fatalf("unexpected record: qty=%s price=%s", rec.Quantity, rec.ReferencePrice)
	}
}

func TestApplyPurchaseIncrementsAndOverwritesPrice(t *testing.T) {
	db := setupAdjusterTestDB(t)
	seedStock(t, db, 1, 1, "Widget", "5", "4.00")
	adj := NewAdjuster()

	err := db.Transaction(func(tx *gorm.DB) error {
		_, txErr := adj.Apply(tx, 1, models.DirectionExpense, []models.InvoiceLine{
			{Name: "Widget", WarehouseID: 1, Quantity: d("7"), UnitPrice: d("4.50")},
		})
		return txErr
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	var rec models.StockRecord
	db.Where("name = ?", "Widget").First(&rec)
	if !rec.Quantity.Equal(d("12")) {
		t.Fatalf("quantity: got %s", rec.Quantity)
	}
	if !rec.ReferencePrice.Equal(d("4.50")) {
		t.Fatalf("reference price should follow last purchase: got %s", rec.ReferencePrice)
	}
}

func TestApplyScopesByTenantAndWarehouse(t *testing.T) {
	db := setupAdjusterTestDB(t)
	seedStock(t, db, 1, 1, "Widget", "10", "4.00")
	seedStock(t, db, 2, 1, "Widget", "10", "4.00")
	adj := NewAdjuster()

	err := db.Transaction(func(tx *gorm.DB) error {
		_, txErr := adj.Apply(tx, 1, models.DirectionRevenue, []models.InvoiceLine{
			{Name: "Widget", WarehouseID: 1, Quantity: d("4")},
		})
		return txErr
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	var other models.StockRecord
	db.Where("tenant_id = ?", 2).First(&other)
	if !other.Quantity.Equal(d("10")) {
		t.Fatalf("other tenant's stock touched: %s", other.Quantity)
	}
}

func TestCheckAvailabilityReportsShortages(t *testing.T) {
	db := setupAdjusterTestDB(t)
	seedStock(t, db, 1, 1, "Widget", "3", "10.00")
	adj := NewAdjuster()

	report, err := adj.CheckAvailability(db, 1, []models.InvoiceLine{
		{Name: "Widget", WarehouseID: 1, Quantity: d("4")},
		{Name: "Ghost", WarehouseID: 1, Quantity: d("1")},
	})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if report.Available {
		t.Fatal("expected unavailable")
	}
	if len(report.Shortages) != 2 {
		t.Fatalf("expected 2 shortages, got %d", len(report.Shortages))
	}
	if report.Shortages[0].Name != "Widget" || !report.Shortages[0].Available.Equal(d("3")) || !report.Shortages[0].Required.Equal(d("4")) {
		t.Fatalf("wrong widget shortage: %+v", report.Shortages[0])
	}
	if report.Shortages[1].Name != "Ghost" || !report.Shortages[1].Available.IsZero() {
		t.Fatalf("wrong ghost shortage: %+v", report.Shortages[1])
	}

	// Enough stock => clean report.
	ok, err := adj.CheckAvailability(db, 1, []models.InvoiceLine{
		{Name: "Widget", WarehouseID: 1, Quantity: d("3")},
	})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !ok.Available || len(ok.Shortages) != 0 {
		t.Fatalf("expected available, got %+v", ok)
	}
}
