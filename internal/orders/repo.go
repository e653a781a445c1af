package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftora/marketplace-backend/pkg/db/models"
	"github.com/craftora/marketplace-backend/pkg/enums"
	pkgerrors "github.com/craftora/marketplace-backend/pkg/errors"
	"github.com/craftora/marketplace-backend/pkg/pagination"
)

// Repository persists the order aggregate. Payment transitions use atomic
// conditional updates so the synchronous confirm path and the webhook path
// cannot both apply the same transition.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByExternalPaymentID(ctx context.Context, externalID string) (*models.Order, error)
	FindVendorOrder(ctx context.Context, orderID, vendorID uuid.UUID) (*models.VendorOrder, error)

	ListByCustomer(ctx context.Context, customerID uuid.UUID, p pagination.Params) ([]models.Order, int64, error)
	ListByVendor(ctx context.Context, vendorID uuid.UUID, p pagination.Params) ([]models.Order, int64, error)
	ListAll(ctx context.Context, p pagination.Params) ([]models.Order, int64, error)

	SetExternalPaymentID(ctx context.Context, orderID uuid.UUID, externalID string) error
	ConfirmPayment(ctx context.Context, orderID uuid.UUID, paidAt time.Time) (bool, error)
	FailPayment(ctx context.Context, orderID uuid.UUID) (bool, error)
	MarkRefunded(ctx context.Context, orderID uuid.UUID, amountCents int, at time.Time) error

	ConfirmPendingVendorOrders(ctx context.Context, orderID uuid.UUID) error
	SaveVendorOrder(ctx context.Context, vo *models.VendorOrder) error
	VendorOrderStatuses(ctx context.Context, orderID uuid.UUID) ([]enums.VendorOrderStatus, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus, completedAt, cancelledAt *time.Time) error
	SetCancelled(ctx context.Context, orderID uuid.UUID, reason *string, at time.Time) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an order repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("VendorOrders").
		Preload("VendorOrders.Items").
		First(&order, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByExternalPaymentID(ctx context.Context, externalID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("VendorOrders").
		Preload("VendorOrders.Items").
		First(&order, "external_payment_id = ?", externalID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found for payment id")
		}
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindVendorOrder(ctx context.Context, orderID, vendorID uuid.UUID) (*models.VendorOrder, error) {
	var vo models.VendorOrder
	err := r.db.WithContext(ctx).
		Preload("Items").
		First(&vo, "order_id = ? AND vendor_id = ?", orderID, vendorID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vendor has no sub-order on this order")
		}
		return nil, err
	}
	return &vo, nil
}

func (r *repository) ListByCustomer(ctx context.Context, customerID uuid.UUID, p pagination.Params) ([]models.Order, int64, error) {
	p = p.Normalize()
	base := r.db.WithContext(ctx).Model(&models.Order{}).Where("customer_id = ?", customerID)
	return r.list(ctx, base, p)
}

func (r *repository) ListByVendor(ctx context.Context, vendorID uuid.UUID, p pagination.Params) ([]models.Order, int64, error) {
	p = p.Normalize()
	base := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id IN (?)", r.db.Model(&models.VendorOrder{}).Select("order_id").Where("vendor_id = ?", vendorID))
	return r.list(ctx, base, p)
}

func (r *repository) ListAll(ctx context.Context, p pagination.Params) ([]models.Order, int64, error) {
	p = p.Normalize()
	base := r.db.WithContext(ctx).Model(&models.Order{})
	return r.list(ctx, base, p)
}

func (r *repository) list(_ context.Context, query *gorm.DB, p pagination.Params) ([]models.Order, int64, error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Order
	err := query.
		Preload("VendorOrders").
		Preload("VendorOrders.Items").
		Order("created_at DESC").
		Limit(p.Limit).
		Offset(p.Offset).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *repository) SetExternalPaymentID(ctx context.Context, orderID uuid.UUID, externalID string) error {
	return r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("external_payment_id", externalID).Error
}

// ConfirmPayment is the compare-and-set between the synchronous confirm call
// and the webhook. Zero rows affected means the transition already happened;
// callers treat that as success without repeating side effects.
func (r *repository) ConfirmPayment(ctx context.Context, orderID uuid.UUID, paidAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND payment_status = ?", orderID, enums.PaymentStatusPending).
		Updates(map[string]any{
			"payment_status": enums.PaymentStatusCompleted,
			"paid_at":        paidAt,
			"status":         enums.OrderStatusConfirmed,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) FailPayment(ctx context.Context, orderID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND payment_status = ?", orderID, enums.PaymentStatusPending).
		Updates(map[string]any{
			"payment_status": enums.PaymentStatusFailed,
			"status":         enums.OrderStatusPaymentFailed,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) MarkRefunded(ctx context.Context, orderID uuid.UUID, amountCents int, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]any{
			"payment_status":      enums.PaymentStatusRefunded,
			"status":              enums.OrderStatusRefunded,
			"refunded_at":         at,
			"refund_amount_cents": amountCents,
		}).Error
}

func (r *repository) ConfirmPendingVendorOrders(ctx context.Context, orderID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&models.VendorOrder{}).
		Where("order_id = ? AND status = ?", orderID, enums.VendorOrderStatusPending).
		Update("status", enums.VendorOrderStatusConfirmed).Error
}

func (r *repository) SaveVendorOrder(ctx context.Context, vo *models.VendorOrder) error {
	return r.db.WithContext(ctx).
		Omit("Items").
		Save(vo).Error
}

// VendorOrderStatuses reads the current sub-order statuses. Rollups call it
// inside the same transaction as the status write so a sibling's concurrent
// update is not folded in from a stale snapshot.
func (r *repository) VendorOrderStatuses(ctx context.Context, orderID uuid.UUID) ([]enums.VendorOrderStatus, error) {
	var statuses []enums.VendorOrderStatus
	err := r.db.WithContext(ctx).Model(&models.VendorOrder{}).
		Where("order_id = ?", orderID).
		Pluck("status", &statuses).Error
	if err != nil {
		return nil, err
	}
	return statuses, nil
}

func (r *repository) UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus, completedAt, cancelledAt *time.Time) error {
	updates := map[string]any{"status": status}
	if completedAt != nil {
		updates["completed_at"] = *completedAt
	}
	if cancelledAt != nil {
		updates["cancelled_at"] = *cancelledAt
	}
	return r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(updates).Error
}

func (r *repository) SetCancelled(ctx context.Context, orderID uuid.UUID, reason *string, at time.Time) error {
	updates := map[string]any{
		"status":       enums.OrderStatusCancelled,
		"cancelled_at": at,
	}
	if reason != nil {
		updates["cancel_reason"] = *reason
	}
	return r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(updates).Error
}
