package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is the catalog row read at checkout time. Catalog CRUD lives
// outside this service; orders only read price/stock/commission and apply
// conditional stock updates.
type Product struct {
	ID       uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VendorID uuid.UUID `gorm:"column:vendor_id;type:uuid;not null;index"`

	Name           string           `gorm:"column:name;not null"`
	ImageURL       *string          `gorm:"column:image_url"`
	PriceCents     int              `gorm:"column:price_cents;not null"`
	Stock          int              `gorm:"column:stock;not null;default:0"`
	SalesCount     int              `gorm:"column:sales_count;not null;default:0"`
	CommissionRate *decimal.Decimal `gorm:"column:commission_rate;type:numeric(5,4)"`
	IsActive       bool             `gorm:"column:is_active;not null;default:true"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
