package orders

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftora/marketplace-backend/internal/catalog"
	"github.com/craftora/marketplace-backend/pkg/auth"
	"github.com/craftora/marketplace-backend/pkg/db/models"
	"github.com/craftora/marketplace-backend/pkg/enums"
	pkgerrors "github.com/craftora/marketplace-backend/pkg/errors"
	"github.com/craftora/marketplace-backend/pkg/logger"
	"github.com/craftora/marketplace-backend/pkg/pagination"
)

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubRepo struct {
	order *models.Order

	savedVendorOrders []*models.VendorOrder
	cancelledReason   *string
	cancelledAt       *time.Time
}

func (s *stubRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubRepo) Create(context.Context, *models.Order) error { return nil }

func (s *stubRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if s.order == nil || s.order.ID != id {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return s.order, nil
}

func (s *stubRepo) FindByExternalPaymentID(context.Context, string) (*models.Order, error) {
	return nil, nil
}
func (s *stubRepo) FindVendorOrder(context.Context, uuid.UUID, uuid.UUID) (*models.VendorOrder, error) {
	return nil, nil
}

func (s *stubRepo) ListByCustomer(ctx context.Context, customerID uuid.UUID, p pagination.Params) ([]models.Order, int64, error) {
	if s.order != nil && s.order.CustomerID == customerID {
		return []models.Order{*s.order}, 1, nil
	}
	return nil, 0, nil
}

func (s *stubRepo) ListByVendor(ctx context.Context, vendorID uuid.UUID, p pagination.Params) ([]models.Order, int64, error) {
	if s.order == nil {
		return nil, 0, nil
	}
	for _, vo := range s.order.VendorOrders {
		if vo.VendorID == vendorID {
			return []models.Order{*s.order}, 1, nil
		}
	}
	return nil, 0, nil
}

func (s *stubRepo) ListAll(ctx context.Context, p pagination.Params) ([]models.Order, int64, error) {
	if s.order == nil {
		return nil, 0, nil
	}
	return []models.Order{*s.order}, 1, nil
}

func (s *stubRepo) SetExternalPaymentID(context.Context, uuid.UUID, string) error { return nil }
func (s *stubRepo) ConfirmPayment(context.Context, uuid.UUID, time.Time) (bool, error) {
	return false, nil
}
func (s *stubRepo) FailPayment(context.Context, uuid.UUID) (bool, error)          { return false, nil }
func (s *stubRepo) MarkRefunded(context.Context, uuid.UUID, int, time.Time) error { return nil }
func (s *stubRepo) ConfirmPendingVendorOrders(context.Context, uuid.UUID) error   { return nil }

func (s *stubRepo) SaveVendorOrder(ctx context.Context, vo *models.VendorOrder) error {
	s.savedVendorOrders = append(s.savedVendorOrders, vo)
	return nil
}

func (s *stubRepo) VendorOrderStatuses(context.Context, uuid.UUID) ([]enums.VendorOrderStatus, error) {
	var statuses []enums.VendorOrderStatus
	for _, vo := range s.order.VendorOrders {
		statuses = append(statuses, vo.Status)
	}
	return statuses, nil
}

func (s *stubRepo) UpdateStatus(context.Context, uuid.UUID, enums.OrderStatus, *time.Time, *time.Time) error {
	return nil
}

func (s *stubRepo) SetCancelled(ctx context.Context, orderID uuid.UUID, reason *string, at time.Time) error {
	s.cancelledReason = reason
	s.cancelledAt = &at
	s.order.Status = enums.OrderStatusCancelled
	s.order.CancelledAt = &at
	s.order.CancelReason = reason
	return nil
}

type stubCatalogRepo struct {
	restored map[uuid.UUID]int
}

func (s *stubCatalogRepo) WithTx(tx *gorm.DB) catalog.Repository { return s }
func (s *stubCatalogRepo) FindActiveByIDs(context.Context, []uuid.UUID) ([]models.Product, error) {
	return nil, nil
}
func (s *stubCatalogRepo) DecrementStock(context.Context, uuid.UUID, int) error { return nil }

func (s *stubCatalogRepo) RestoreStock(ctx context.Context, productID uuid.UUID, qty int) error {
	if s.restored == nil {
		s.restored = map[uuid.UUID]int{}
	}
	s.restored[productID] += qty
	return nil
}

func (s *stubCatalogRepo) IncrementSales(context.Context, uuid.UUID, int) error { return nil }

func newTestLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func customer(id uuid.UUID) auth.AccessTokenPayload {
	return auth.AccessTokenPayload{UserID: id, Role: enums.ActorRoleCustomer}
}

func vendor(id uuid.UUID) auth.AccessTokenPayload {
	return auth.AccessTokenPayload{UserID: id, Role: enums.ActorRoleVendor}
}

func admin() auth.AccessTokenPayload {
	return auth.AccessTokenPayload{UserID: uuid.New(), Role: enums.ActorRoleAdmin}
}

func orderFixture(customerID uuid.UUID) *models.Order {
	return &models.Order{
		ID:         uuid.New(),
		CustomerID: customerID,
		Status:     enums.OrderStatusProcessing,
		VendorOrders: []models.VendorOrder{
			{
				ID:       uuid.New(),
				VendorID: uuid.New(),
				Status:   enums.VendorOrderStatusConfirmed,
				Items: []models.OrderItem{
					{ID: uuid.New(), ProductID: uuid.New(), Name: "Mug", UnitPriceCents: 2000, Qty: 2},
				},
			},
		},
	}
}

func TestGetEnforcesOwnership(t *testing.T) {
	customerID := uuid.New()
	order := orderFixture(customerID)
	svc := NewService(stubTxRunner{}, &stubRepo{order: order}, &stubCatalogRepo{}, newTestLogger())

	if _, err := svc.Get(context.Background(), customer(customerID), order.ID); err != nil {
		t.Fatalf("owner read failed: %v", err)
	}

	_, err := svc.Get(context.Background(), customer(uuid.New()), order.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden for foreign customer, got %v", err)
	}

	vendorID := order.VendorOrders[0].VendorID
	if _, err := svc.Get(context.Background(), vendor(vendorID), order.ID); err != nil {
		t.Fatalf("participating vendor read failed: %v", err)
	}

	_, err = svc.Get(context.Background(), vendor(uuid.New()), order.ID)
	typed = pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden for uninvolved vendor, got %v", err)
	}

	if _, err := svc.Get(context.Background(), admin(), order.ID); err != nil {
		t.Fatalf("admin read failed: %v", err)
	}
}

func TestListScopesByRole(t *testing.T) {
	customerID := uuid.New()
	order := orderFixture(customerID)
	svc := NewService(stubTxRunner{}, &stubRepo{order: order}, &stubCatalogRepo{}, newTestLogger())

	own, err := svc.List(context.Background(), customer(customerID), pagination.Params{})
	if err != nil || own.Total != 1 {
		t.Fatalf("customer list: total=%v err=%v", own, err)
	}

	other, err := svc.List(context.Background(), customer(uuid.New()), pagination.Params{})
	if err != nil || other.Total != 0 {
		t.Fatalf("foreign customer list should be empty: %v %v", other, err)
	}

	vendorList, err := svc.List(context.Background(), vendor(order.VendorOrders[0].VendorID), pagination.Params{})
	if err != nil || vendorList.Total != 1 {
		t.Fatalf("vendor list: %v %v", vendorList, err)
	}

	adminList, err := svc.List(context.Background(), admin(), pagination.Params{})
	if err != nil || adminList.Total != 1 {
		t.Fatalf("admin list: %v %v", adminList, err)
	}
}

func TestCancelRestoresStockOnce(t *testing.T) {
	customerID := uuid.New()
	alreadyCancelledAt := time.Now().Add(-time.Hour)
	cancelledProduct := uuid.New()
	activeProduct := uuid.New()

	order := &models.Order{
		ID:         uuid.New(),
		CustomerID: customerID,
		Status:     enums.OrderStatusProcessing,
		VendorOrders: []models.VendorOrder{
			{
				ID:       uuid.New(),
				VendorID: uuid.New(),
				Status:   enums.VendorOrderStatusConfirmed,
				Items:    []models.OrderItem{{ID: uuid.New(), ProductID: activeProduct, Qty: 3}},
			},
			{
				ID:          uuid.New(),
				VendorID:    uuid.New(),
				Status:      enums.VendorOrderStatusCancelled,
				CancelledAt: &alreadyCancelledAt,
				Items:       []models.OrderItem{{ID: uuid.New(), ProductID: cancelledProduct, Qty: 1}},
			},
		},
	}

	repo := &stubRepo{order: order}
	catalogRepo := &stubCatalogRepo{}
	svc := NewService(stubTxRunner{}, repo, catalogRepo, newTestLogger())

	reason := "changed my mind"
	dto, err := svc.Cancel(context.Background(), customer(customerID), order.ID, &reason)
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if dto.Status != enums.OrderStatusCancelled {
		t.Fatalf("status = %s, want cancelled", dto.Status)
	}
	if repo.cancelledReason == nil || *repo.cancelledReason != reason {
		t.Fatal("cancel reason not stored")
	}

	// Only the sub-order cancelled by this call returns stock.
	if catalogRepo.restored[activeProduct] != 3 {
		t.Fatalf("restored %d for active product, want 3", catalogRepo.restored[activeProduct])
	}
	if catalogRepo.restored[cancelledProduct] != 0 {
		t.Fatal("previously cancelled sub-order must not restore stock again")
	}
	if len(repo.savedVendorOrders) != 1 {
		t.Fatalf("saved %d sub-orders, want 1", len(repo.savedVendorOrders))
	}
}

func TestCancelRejectsTerminalStates(t *testing.T) {
	customerID := uuid.New()
	for _, status := range []enums.OrderStatus{enums.OrderStatusDelivered, enums.OrderStatusCancelled, enums.OrderStatusRefunded} {
		order := orderFixture(customerID)
		order.Status = status
		svc := NewService(stubTxRunner{}, &stubRepo{order: order}, &stubCatalogRepo{}, newTestLogger())

		_, err := svc.Cancel(context.Background(), customer(customerID), order.ID, nil)
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
			t.Fatalf("expected state conflict for %s, got %v", status, err)
		}
	}
}

func TestCancelRejectsVendors(t *testing.T) {
	customerID := uuid.New()
	order := orderFixture(customerID)
	svc := NewService(stubTxRunner{}, &stubRepo{order: order}, &stubCatalogRepo{}, newTestLogger())

	_, err := svc.Cancel(context.Background(), vendor(order.VendorOrders[0].VendorID), order.ID, nil)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestCancelAllowsAdminOnForeignOrder(t *testing.T) {
	order := orderFixture(uuid.New())
	repo := &stubRepo{order: order}
	svc := NewService(stubTxRunner{}, repo, &stubCatalogRepo{}, newTestLogger())

	if _, err := svc.Cancel(context.Background(), admin(), order.ID, nil); err != nil {
		t.Fatalf("admin cancel failed: %v", err)
	}
}
