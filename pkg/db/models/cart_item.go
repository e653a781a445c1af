package models

import (
	"time"

	"github.com/google/uuid"
)

// CartItem is one line of a customer's cart. Checkout clears the cart after
// creating an order; cart editing itself lives outside this service.
type CartItem struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID uuid.UUID `gorm:"column:customer_id;type:uuid;not null;index"`
	ProductID  uuid.UUID `gorm:"column:product_id;type:uuid;not null"`

	Qty           int     `gorm:"column:qty;not null"`
	Customization *string `gorm:"column:customization"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
