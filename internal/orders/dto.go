package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/craftora/marketplace-backend/pkg/db/models"
	"github.com/craftora/marketplace-backend/pkg/enums"
	"github.com/craftora/marketplace-backend/pkg/types"
)

// All monetary fields are integer cents.

type OrderItemDTO struct {
	ProductID     uuid.UUID `json:"productId"`
	Name          string    `json:"name"`
	ImageURL      *string   `json:"imageUrl,omitempty"`
	UnitPrice     int       `json:"unitPrice"`
	Quantity      int       `json:"quantity"`
	Customization *string   `json:"customization,omitempty"`
}

type VendorOrderDTO struct {
	ID                uuid.UUID               `json:"id"`
	VendorID          uuid.UUID               `json:"vendorId"`
	Items             []OrderItemDTO          `json:"items"`
	Subtotal          int                     `json:"subtotal"`
	CommissionRate    decimal.Decimal         `json:"commissionRate"`
	CommissionAmount  int                     `json:"commissionAmount"`
	VendorEarnings    int                     `json:"vendorEarnings"`
	Status            enums.VendorOrderStatus `json:"status"`
	TrackingNumber    *string                 `json:"trackingNumber,omitempty"`
	EstimatedDelivery *time.Time              `json:"estimatedDelivery,omitempty"`
	ShippedAt         *time.Time              `json:"shippedAt,omitempty"`
	DeliveredAt       *time.Time              `json:"deliveredAt,omitempty"`
	CancelledAt       *time.Time              `json:"cancelledAt,omitempty"`
}

type PaymentInfoDTO struct {
	Method            enums.PaymentMethod `json:"method"`
	ExternalPaymentID *string             `json:"externalPaymentId,omitempty"`
	Status            enums.PaymentStatus `json:"status"`
	PaidAt            *time.Time          `json:"paidAt,omitempty"`
	RefundedAt        *time.Time          `json:"refundedAt,omitempty"`
	RefundAmount      int                 `json:"refundAmount"`
}

type OrderSummaryDTO struct {
	Subtotal        int `json:"subtotal"`
	ShippingTotal   int `json:"shippingTotal"`
	Tax             int `json:"tax"`
	Total           int `json:"total"`
	TotalCommission int `json:"totalCommission"`
}

type OrderDTO struct {
	ID              uuid.UUID         `json:"id"`
	OrderNumber     string            `json:"orderNumber"`
	CustomerID      uuid.UUID         `json:"customerId"`
	VendorOrders    []VendorOrderDTO  `json:"vendorOrders"`
	ShippingAddress types.Address     `json:"shippingAddress"`
	BillingAddress  *types.Address    `json:"billingAddress,omitempty"`
	PaymentInfo     PaymentInfoDTO    `json:"paymentInfo"`
	Summary         OrderSummaryDTO   `json:"orderSummary"`
	Status          enums.OrderStatus `json:"status"`
	CancelReason    *string           `json:"cancelReason,omitempty"`
	CreatedAt       time.Time         `json:"createdAt"`
	CancelledAt     *time.Time        `json:"cancelledAt,omitempty"`
	CompletedAt     *time.Time        `json:"completedAt,omitempty"`
}

type OrderListDTO struct {
	Orders []OrderDTO `json:"orders"`
	Total  int64      `json:"total"`
	Limit  int        `json:"limit"`
	Offset int        `json:"offset"`
}

func ToOrderItemDTO(item models.OrderItem) OrderItemDTO {
	return OrderItemDTO{
		ProductID:     item.ProductID,
		Name:          item.Name,
		ImageURL:      item.ImageURL,
		UnitPrice:     item.UnitPriceCents,
		Quantity:      item.Qty,
		Customization: item.Customization,
	}
}

func ToVendorOrderDTO(vo models.VendorOrder) VendorOrderDTO {
	items := make([]OrderItemDTO, 0, len(vo.Items))
	for _, item := range vo.Items {
		items = append(items, ToOrderItemDTO(item))
	}
	return VendorOrderDTO{
		ID:                vo.ID,
		VendorID:          vo.VendorID,
		Items:             items,
		Subtotal:          vo.SubtotalCents,
		CommissionRate:    vo.CommissionRate,
		CommissionAmount:  vo.CommissionCents,
		VendorEarnings:    vo.VendorEarningsCents,
		Status:            vo.Status,
		TrackingNumber:    vo.TrackingNumber,
		EstimatedDelivery: vo.EstimatedDelivery,
		ShippedAt:         vo.ShippedAt,
		DeliveredAt:       vo.DeliveredAt,
		CancelledAt:       vo.CancelledAt,
	}
}

func ToOrderDTO(order models.Order) OrderDTO {
	vendorOrders := make([]VendorOrderDTO, 0, len(order.VendorOrders))
	for _, vo := range order.VendorOrders {
		vendorOrders = append(vendorOrders, ToVendorOrderDTO(vo))
	}
	return OrderDTO{
		ID:              order.ID,
		OrderNumber:     order.OrderNumber,
		CustomerID:      order.CustomerID,
		VendorOrders:    vendorOrders,
		ShippingAddress: order.ShippingAddress,
		BillingAddress:  order.BillingAddress,
		PaymentInfo: PaymentInfoDTO{
			Method:            order.PaymentMethod,
			ExternalPaymentID: order.ExternalPaymentID,
			Status:            order.PaymentStatus,
			PaidAt:            order.PaidAt,
			RefundedAt:        order.RefundedAt,
			RefundAmount:      order.RefundAmountCents,
		},
		Summary: OrderSummaryDTO{
			Subtotal:        order.SubtotalCents,
			ShippingTotal:   order.ShippingTotalCents,
			Tax:             order.TaxCents,
			Total:           order.TotalCents,
			TotalCommission: order.TotalCommissionCents,
		},
		Status:       order.Status,
		CancelReason: order.CancelReason,
		CreatedAt:    order.CreatedAt,
		CancelledAt:  order.CancelledAt,
		CompletedAt:  order.CompletedAt,
	}
}

func ToOrderListDTO(rows []models.Order, total int64, limit, offset int) OrderListDTO {
	out := make([]OrderDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, ToOrderDTO(row))
	}
	return OrderListDTO{Orders: out, Total: total, Limit: limit, Offset: offset}
}
