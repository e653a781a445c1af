package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/craftora/marketplace-backend/pkg/enums"
	"github.com/craftora/marketplace-backend/pkg/types"
)

// Order is the root aggregate for one customer checkout. The vendor sub-order
// list is fixed at creation; only statuses and payment fields mutate afterward.
type Order struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber string    `gorm:"column:order_number;uniqueIndex;not null"`
	CustomerID  uuid.UUID `gorm:"column:customer_id;type:uuid;not null;index"`

	ShippingAddress types.Address  `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	BillingAddress  *types.Address `gorm:"column:billing_address;type:jsonb;serializer:json"`

	PaymentMethod     enums.PaymentMethod `gorm:"column:payment_method;type:text;not null;default:'card'"`
	ExternalPaymentID *string             `gorm:"column:external_payment_id;index"`
	PaymentStatus     enums.PaymentStatus `gorm:"column:payment_status;type:text;not null;default:'pending'"`
	PaidAt            *time.Time          `gorm:"column:paid_at"`
	RefundedAt        *time.Time          `gorm:"column:refunded_at"`
	RefundAmountCents int                 `gorm:"column:refund_amount_cents;not null;default:0"`

	SubtotalCents        int `gorm:"column:subtotal_cents;not null"`
	ShippingTotalCents   int `gorm:"column:shipping_total_cents;not null;default:0"`
	TaxCents             int `gorm:"column:tax_cents;not null;default:0"`
	TotalCents           int `gorm:"column:total_cents;not null"`
	TotalCommissionCents int `gorm:"column:total_commission_cents;not null"`

	// Status is a cache of the vendor-status rollup; the rollup rule is the
	// source of truth except after explicit cancel/refund/payment actions.
	Status       enums.OrderStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	CancelReason *string           `gorm:"column:cancel_reason"`

	VendorOrders []VendorOrder `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`

	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
	CancelledAt *time.Time `gorm:"column:cancelled_at"`
	CompletedAt *time.Time `gorm:"column:completed_at"`
}
