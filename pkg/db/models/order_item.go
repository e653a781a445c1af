package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderItem is a point-in-time snapshot of a purchased product. Price, name
// and image are copied at checkout and never re-read from the live catalog.
type OrderItem struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VendorOrderID uuid.UUID `gorm:"column:vendor_order_id;type:uuid;not null;index"`
	ProductID     uuid.UUID `gorm:"column:product_id;type:uuid;not null"`

	Name           string  `gorm:"column:name;not null"`
	ImageURL       *string `gorm:"column:image_url"`
	UnitPriceCents int     `gorm:"column:unit_price_cents;not null"`
	Qty            int     `gorm:"column:qty;not null"`
	Customization  *string `gorm:"column:customization"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
