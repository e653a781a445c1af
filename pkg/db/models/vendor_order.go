package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/craftora/marketplace-backend/pkg/enums"
)

// VendorOrder is the portion of an order belonging to one vendor. It is
// embedded in its parent order and never addressed independently.
type VendorOrder struct {
	ID       uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID  uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	VendorID uuid.UUID `gorm:"column:vendor_id;type:uuid;not null;index"`

	SubtotalCents       int             `gorm:"column:subtotal_cents;not null"`
	CommissionRate      decimal.Decimal `gorm:"column:commission_rate;type:numeric(5,4);not null"`
	CommissionCents     int             `gorm:"column:commission_cents;not null"`
	VendorEarningsCents int             `gorm:"column:vendor_earnings_cents;not null"`

	Status enums.VendorOrderStatus `gorm:"column:status;type:text;not null;default:'pending'"`

	TrackingNumber    *string    `gorm:"column:tracking_number"`
	EstimatedDelivery *time.Time `gorm:"column:estimated_delivery"`
	ShippedAt         *time.Time `gorm:"column:shipped_at"`
	DeliveredAt       *time.Time `gorm:"column:delivered_at"`
	// CancelledAt doubles as the stock-restoration marker: stock for this
	// sub-order is returned exactly once, when this field is first stamped.
	CancelledAt *time.Time `gorm:"column:cancelled_at"`

	Items []OrderItem `gorm:"foreignKey:VendorOrderID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
