package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/craftora/marketplace-backend/pkg/enums"
)

// LedgerEntry is an append-only record of money movement: simulated vendor
// transfers at payment confirmation, the retained platform fee, and refunds.
type LedgerEntry struct {
	ID            uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Type          enums.LedgerEntryType `gorm:"column:type;type:text;not null"`
	OrderID       uuid.UUID             `gorm:"column:order_id;type:uuid;not null;index"`
	VendorOrderID *uuid.UUID            `gorm:"column:vendor_order_id;type:uuid"`
	VendorID      *uuid.UUID            `gorm:"column:vendor_id;type:uuid;index"`
	AmountCents   int                   `gorm:"column:amount_cents;not null"`
	Reference     string                `gorm:"column:reference;not null"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
