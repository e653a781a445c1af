package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftora/marketplace-backend/internal/catalog"
	"github.com/craftora/marketplace-backend/internal/policy"
	"github.com/craftora/marketplace-backend/pkg/auth"
	"github.com/craftora/marketplace-backend/pkg/db/models"
	"github.com/craftora/marketplace-backend/pkg/enums"
	pkgerrors "github.com/craftora/marketplace-backend/pkg/errors"
	"github.com/craftora/marketplace-backend/pkg/logger"
	"github.com/craftora/marketplace-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service covers order reads and the cancellation flow. Checkout, payments,
// and fulfillment live in their own services; this one owns everything that
// only needs the aggregate itself.
type Service struct {
	tx      txRunner
	repo    Repository
	catalog catalog.Repository
	logg    *logger.Logger
}

func NewService(tx txRunner, repo Repository, catalogRepo catalog.Repository, logg *logger.Logger) *Service {
	return &Service{tx: tx, repo: repo, catalog: catalogRepo, logg: logg}
}

// Get loads an order and enforces the view policy. Vendors see orders that
// contain one of their sub-orders; customers see their own; admins see all.
func (s *Service) Get(ctx context.Context, actor auth.AccessTokenPayload, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(actor.Role, policy.ActionOrderView, ownsOrder(actor, order)); err != nil {
		return nil, err
	}
	dto := ToOrderDTO(*order)
	return &dto, nil
}

// List returns the actor's order slice: own orders for customers, orders
// containing one of their sub-orders for vendors, everything for admins.
func (s *Service) List(ctx context.Context, actor auth.AccessTokenPayload, p pagination.Params) (*OrderListDTO, error) {
	p = p.Normalize()

	var (
		rows  []models.Order
		total int64
		err   error
	)
	switch actor.Role {
	case enums.ActorRoleCustomer:
		rows, total, err = s.repo.ListByCustomer(ctx, actor.UserID, p)
	case enums.ActorRoleVendor:
		rows, total, err = s.repo.ListByVendor(ctx, actor.UserID, p)
	case enums.ActorRoleAdmin:
		rows, total, err = s.repo.ListAll(ctx, p)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "unknown role")
	}
	if err != nil {
		return nil, err
	}

	dto := ToOrderListDTO(rows, total, p.Limit, p.Offset)
	return &dto, nil
}

// Cancel forces every non-terminal sub-order to cancelled, restores stock for
// each sub-order cancelled by this call, and stamps the order. Sub-orders that
// were already cancelled keep their original CancelledAt and their stock is
// not restored again. Monetary refunds are a separate admin operation.
func (s *Service) Cancel(ctx context.Context, actor auth.AccessTokenPayload, orderID uuid.UUID, reason *string) (*OrderDTO, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(actor.Role, policy.ActionOrderCancel, actor.UserID == order.CustomerID); err != nil {
		return nil, err
	}

	switch order.Status {
	case enums.OrderStatusDelivered, enums.OrderStatusCancelled, enums.OrderStatusRefunded:
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order can no longer be cancelled").
			WithDetails(map[string]any{"status": order.Status})
	}

	now := time.Now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		catalogRepo := s.catalog.WithTx(tx)

		for i := range order.VendorOrders {
			vo := &order.VendorOrders[i]
			if vo.Status == enums.VendorOrderStatusDelivered || vo.Status == enums.VendorOrderStatusCancelled {
				continue
			}
			vo.Status = enums.VendorOrderStatusCancelled
			vo.CancelledAt = &now
			if err := repo.SaveVendorOrder(ctx, vo); err != nil {
				return err
			}
			for _, item := range vo.Items {
				if err := catalogRepo.RestoreStock(ctx, item.ProductID, item.Qty); err != nil {
					return err
				}
			}
		}

		return repo.SetCancelled(ctx, orderID, reason, now)
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithOrderID(ctx, orderID.String())
	s.logg.Info(ctx, "order cancelled")

	order, err = s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	dto := ToOrderDTO(*order)
	return &dto, nil
}

func ownsOrder(actor auth.AccessTokenPayload, order *models.Order) bool {
	switch actor.Role {
	case enums.ActorRoleCustomer:
		return actor.UserID == order.CustomerID
	case enums.ActorRoleVendor:
		for _, vo := range order.VendorOrders {
			if vo.VendorID == actor.UserID {
				return true
			}
		}
		return false
	case enums.ActorRoleAdmin:
		return true
	default:
		return false
	}
}
