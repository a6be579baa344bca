package models

import "time"

// Counterpart entities. Their lifecycle (CRUD, contact details, balances
// per party) belongs to the host application; the core only checks that
// the referenced row exists for the acting tenant.

type Customer struct {
	ID        uint   `gorm:"primaryKey"`
	TenantID  uint   `gorm:"not null;index"`
	Name      string `gorm:"size:120;not null"`
	Phone     string `gorm:"size:30"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Supplier struct {
	ID        uint   `gorm:"primaryKey"`
	TenantID  uint   `gorm:"not null;index"`
	Name      string `gorm:"size:120;not null"`
	Phone     string `gorm:"size:30"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Warehouse struct {
	ID        uint   `gorm:"primaryKey"`
	TenantID  uint   `gorm:"not null;index"`
	BranchID  *uint  `gorm:"index"`
	Name      string `gorm:"size:120;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
