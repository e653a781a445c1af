package fulfillment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftora/marketplace-backend/internal/catalog"
	"github.com/craftora/marketplace-backend/internal/orders"
	"github.com/craftora/marketplace-backend/internal/policy"
	"github.com/craftora/marketplace-backend/pkg/auth"
	"github.com/craftora/marketplace-backend/pkg/db/models"
	"github.com/craftora/marketplace-backend/pkg/enums"
	pkgerrors "github.com/craftora/marketplace-backend/pkg/errors"
	"github.com/craftora/marketplace-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// UpdateInput is a vendor's status push for its sub-order.
type UpdateInput struct {
	Status            enums.VendorOrderStatus `json:"status" validate:"required"`
	TrackingNumber    *string                 `json:"trackingNumber,omitempty" validate:"omitempty,max=100"`
	EstimatedDelivery *time.Time              `json:"estimatedDelivery,omitempty"`
}

// nextStatuses is the strict forward chain. Cancelled is reachable from any
// non-terminal state; delivered and cancelled accept nothing further.
var nextStatuses = map[enums.VendorOrderStatus][]enums.VendorOrderStatus{
	enums.VendorOrderStatusPending:    {enums.VendorOrderStatusConfirmed, enums.VendorOrderStatusCancelled},
	enums.VendorOrderStatusConfirmed:  {enums.VendorOrderStatusProcessing, enums.VendorOrderStatusCancelled},
	enums.VendorOrderStatusProcessing: {enums.VendorOrderStatusShipped, enums.VendorOrderStatusCancelled},
	enums.VendorOrderStatusShipped:    {enums.VendorOrderStatusDelivered, enums.VendorOrderStatusCancelled},
	enums.VendorOrderStatusDelivered:  {},
	enums.VendorOrderStatusCancelled:  {},
}

func transitionAllowed(from, to enums.VendorOrderStatus) bool {
	for _, candidate := range nextStatuses[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// Service applies vendor status transitions and keeps the overall order
// status in sync with the sub-order rollup.
type Service struct {
	tx          txRunner
	ordersRepo  orders.Repository
	catalogRepo catalog.Repository
	logg        *logger.Logger
}

func NewService(tx txRunner, ordersRepo orders.Repository, catalogRepo catalog.Repository, logg *logger.Logger) *Service {
	return &Service{tx: tx, ordersRepo: ordersRepo, catalogRepo: catalogRepo, logg: logg}
}

// UpdateVendorStatus moves the calling vendor's sub-order along the chain.
// Shipped stamps ShippedAt, delivered stamps DeliveredAt and bumps each
// product's sales counter, cancelled restores stock exactly once. The overall
// status is recomputed afterward unless an explicit cancel/refund owns it.
func (s *Service) UpdateVendorStatus(ctx context.Context, actor auth.AccessTokenPayload, orderID uuid.UUID, input UpdateInput) (*orders.OrderDTO, error) {
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid vendor order status").
			WithDetails(map[string]any{"status": input.Status})
	}

	order, err := s.ordersRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	var target *models.VendorOrder
	for i := range order.VendorOrders {
		if order.VendorOrders[i].VendorID == actor.UserID {
			target = &order.VendorOrders[i]
			break
		}
	}
	if err := policy.Authorize(actor.Role, policy.ActionVendorStatusUpdate, target != nil); err != nil {
		return nil, err
	}

	switch order.Status {
	case enums.OrderStatusCancelled, enums.OrderStatusRefunded:
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is closed").
			WithDetails(map[string]any{"status": order.Status})
	}

	if !transitionAllowed(target.Status, input.Status) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "transition not allowed").
			WithDetails(map[string]any{"from": target.Status, "to": input.Status})
	}

	now := time.Now().UTC()
	previous := target.Status
	target.Status = input.Status
	if input.TrackingNumber != nil {
		target.TrackingNumber = input.TrackingNumber
	}
	if input.EstimatedDelivery != nil {
		target.EstimatedDelivery = input.EstimatedDelivery
	}
	switch input.Status {
	case enums.VendorOrderStatusShipped:
		target.ShippedAt = &now
	case enums.VendorOrderStatusDelivered:
		target.DeliveredAt = &now
	case enums.VendorOrderStatusCancelled:
		target.CancelledAt = &now
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ordersRepo := s.ordersRepo.WithTx(tx)
		catalogRepo := s.catalogRepo.WithTx(tx)

		if err := ordersRepo.SaveVendorOrder(ctx, target); err != nil {
			return err
		}

		switch input.Status {
		case enums.VendorOrderStatusDelivered:
			for _, item := range target.Items {
				if err := catalogRepo.IncrementSales(ctx, item.ProductID, item.Qty); err != nil {
					return err
				}
			}
		case enums.VendorOrderStatusCancelled:
			for _, item := range target.Items {
				if err := catalogRepo.RestoreStock(ctx, item.ProductID, item.Qty); err != nil {
					return err
				}
			}
		}

		// Sibling sub-orders may have moved since the order was loaded;
		// re-read the statuses inside the transaction so the rollup never
		// folds in a stale snapshot.
		statuses, err := ordersRepo.VendorOrderStatuses(ctx, orderID)
		if err != nil {
			return err
		}
		rolled := orders.DeriveStatus(statuses)

		var completedAt, cancelledAt *time.Time
		if rolled == enums.OrderStatusDelivered {
			completedAt = &now
		}
		if rolled == enums.OrderStatusCancelled {
			cancelledAt = &now
		}
		return ordersRepo.UpdateStatus(ctx, orderID, rolled, completedAt, cancelledAt)
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"order_id":  orderID.String(),
		"vendor_id": actor.UserID.String(),
		"from":      previous,
		"to":        input.Status,
	})
	s.logg.Info(ctx, "vendor order status updated")

	order, err = s.ordersRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	dto := orders.ToOrderDTO(*order)
	return &dto, nil
}
