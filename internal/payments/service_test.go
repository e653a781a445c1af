package payments

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	stripeapi "github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/craftora/marketplace-backend/internal/cart"
	"github.com/craftora/marketplace-backend/internal/ledger"
	"github.com/craftora/marketplace-backend/internal/orders"
	"github.com/craftora/marketplace-backend/pkg/auth"
	"github.com/craftora/marketplace-backend/pkg/db/models"
	"github.com/craftora/marketplace-backend/pkg/enums"
	pkgerrors "github.com/craftora/marketplace-backend/pkg/errors"
	"github.com/craftora/marketplace-backend/pkg/logger"
	"github.com/craftora/marketplace-backend/pkg/pagination"
	stripeclient "github.com/craftora/marketplace-backend/pkg/stripe"
)

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubOrdersRepo struct {
	order *models.Order

	externalIDSet   *string
	confirmCalls    int
	vendorsFannedTo int
	failedCalls     int
	refundedAmount  *int
}

func (s *stubOrdersRepo) WithTx(tx *gorm.DB) orders.Repository { return s }

func (s *stubOrdersRepo) Create(context.Context, *models.Order) error { return nil }

func (s *stubOrdersRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if s.order == nil || s.order.ID != id {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return s.order, nil
}

func (s *stubOrdersRepo) FindByExternalPaymentID(ctx context.Context, externalID string) (*models.Order, error) {
	if s.order != nil && s.order.ExternalPaymentID != nil && *s.order.ExternalPaymentID == externalID {
		return s.order, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found for payment id")
}

func (s *stubOrdersRepo) FindVendorOrder(context.Context, uuid.UUID, uuid.UUID) (*models.VendorOrder, error) {
	return nil, nil
}
func (s *stubOrdersRepo) ListByCustomer(context.Context, uuid.UUID, pagination.Params) ([]models.Order, int64, error) {
	return nil, 0, nil
}
func (s *stubOrdersRepo) ListByVendor(context.Context, uuid.UUID, pagination.Params) ([]models.Order, int64, error) {
	return nil, 0, nil
}
func (s *stubOrdersRepo) ListAll(context.Context, pagination.Params) ([]models.Order, int64, error) {
	return nil, 0, nil
}

func (s *stubOrdersRepo) SetExternalPaymentID(ctx context.Context, orderID uuid.UUID, externalID string) error {
	s.externalIDSet = &externalID
	s.order.ExternalPaymentID = &externalID
	return nil
}

// ConfirmPayment mimics the conditional update: only the first call while
// pending wins.
func (s *stubOrdersRepo) ConfirmPayment(ctx context.Context, orderID uuid.UUID, paidAt time.Time) (bool, error) {
	s.confirmCalls++
	if s.order.PaymentStatus != enums.PaymentStatusPending {
		return false, nil
	}
	s.order.PaymentStatus = enums.PaymentStatusCompleted
	s.order.PaidAt = &paidAt
	s.order.Status = enums.OrderStatusConfirmed
	return true, nil
}

func (s *stubOrdersRepo) FailPayment(ctx context.Context, orderID uuid.UUID) (bool, error) {
	s.failedCalls++
	if s.order.PaymentStatus != enums.PaymentStatusPending {
		return false, nil
	}
	s.order.PaymentStatus = enums.PaymentStatusFailed
	s.order.Status = enums.OrderStatusPaymentFailed
	return true, nil
}

func (s *stubOrdersRepo) MarkRefunded(ctx context.Context, orderID uuid.UUID, amountCents int, at time.Time) error {
	s.refundedAmount = &amountCents
	s.order.PaymentStatus = enums.PaymentStatusRefunded
	s.order.Status = enums.OrderStatusRefunded
	s.order.RefundedAt = &at
	s.order.RefundAmountCents = amountCents
	return nil
}

func (s *stubOrdersRepo) ConfirmPendingVendorOrders(ctx context.Context, orderID uuid.UUID) error {
	for i := range s.order.VendorOrders {
		if s.order.VendorOrders[i].Status == enums.VendorOrderStatusPending {
			s.order.VendorOrders[i].Status = enums.VendorOrderStatusConfirmed
			s.vendorsFannedTo++
		}
	}
	return nil
}

func (s *stubOrdersRepo) SaveVendorOrder(context.Context, *models.VendorOrder) error { return nil }
func (s *stubOrdersRepo) VendorOrderStatuses(context.Context, uuid.UUID) ([]enums.VendorOrderStatus, error) {
	var statuses []enums.VendorOrderStatus
	for _, vo := range s.order.VendorOrders {
		statuses = append(statuses, vo.Status)
	}
	return statuses, nil
}
func (s *stubOrdersRepo) UpdateStatus(context.Context, uuid.UUID, enums.OrderStatus, *time.Time, *time.Time) error {
	return nil
}
func (s *stubOrdersRepo) SetCancelled(context.Context, uuid.UUID, *string, time.Time) error {
	return nil
}

type stubLedgerRepo struct {
	entries []models.LedgerEntry
}

func (s *stubLedgerRepo) WithTx(tx *gorm.DB) ledger.Repository { return s }

func (s *stubLedgerRepo) Append(ctx context.Context, entries []models.LedgerEntry) error {
	s.entries = append(s.entries, entries...)
	return nil
}

func (s *stubLedgerRepo) FindByOrder(context.Context, uuid.UUID) ([]models.LedgerEntry, error) {
	return s.entries, nil
}

type stubCartRepo struct {
	cleared int
}

func (s *stubCartRepo) WithTx(tx *gorm.DB) cart.Repository { return s }
func (s *stubCartRepo) FindByCustomer(context.Context, uuid.UUID) ([]models.CartItem, error) {
	return nil, nil
}
func (s *stubCartRepo) Clear(context.Context, uuid.UUID) error {
	s.cleared++
	return nil
}

type stubProcessor struct {
	intent    *stripeapi.PaymentIntent
	refund    *stripeapi.Refund
	refundErr error

	createCalls   int
	retrieveCalls int
	refundCalls   int
}

func (s *stubProcessor) CreatePaymentIntent(ctx context.Context, input stripeclient.CreateIntentInput) (*stripeapi.PaymentIntent, error) {
	s.createCalls++
	return s.intent, nil
}

func (s *stubProcessor) RetrievePaymentIntent(ctx context.Context, id string) (*stripeapi.PaymentIntent, error) {
	s.retrieveCalls++
	return s.intent, nil
}

func (s *stubProcessor) CreateRefund(ctx context.Context, intentID string, amountCents int) (*stripeapi.Refund, error) {
	s.refundCalls++
	if s.refundErr != nil {
		return nil, s.refundErr
	}
	return s.refund, nil
}

func newTestLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func pendingOrder(customerID uuid.UUID) *models.Order {
	vendorA := uuid.New()
	vendorB := uuid.New()
	return &models.Order{
		ID:                   uuid.New(),
		OrderNumber:          "ORD-TEST-0001",
		CustomerID:           customerID,
		PaymentStatus:        enums.PaymentStatusPending,
		Status:               enums.OrderStatusPending,
		SubtotalCents:        9000,
		TotalCents:           9000,
		TotalCommissionCents: 1150,
		VendorOrders: []models.VendorOrder{
			{ID: uuid.New(), VendorID: vendorA, SubtotalCents: 4000, CommissionCents: 400, VendorEarningsCents: 3600, Status: enums.VendorOrderStatusPending},
			{ID: uuid.New(), VendorID: vendorB, SubtotalCents: 5000, CommissionCents: 750, VendorEarningsCents: 4250, Status: enums.VendorOrderStatusPending},
		},
	}
}

func customerActor(id uuid.UUID) auth.AccessTokenPayload {
	return auth.AccessTokenPayload{UserID: id, Role: enums.ActorRoleCustomer}
}

func adminActor() auth.AccessTokenPayload {
	return auth.AccessTokenPayload{UserID: uuid.New(), Role: enums.ActorRoleAdmin}
}

func newService(repo *stubOrdersRepo, ledgerRepo *stubLedgerRepo, cartRepo *stubCartRepo, processor *stubProcessor) *Service {
	return NewService(stubTxRunner{}, repo, ledgerRepo, cartRepo, processor, newTestLogger())
}

func TestCreatePaymentIntent(t *testing.T) {
	customerID := uuid.New()
	order := pendingOrder(customerID)
	repo := &stubOrdersRepo{order: order}
	processor := &stubProcessor{intent: &stripeapi.PaymentIntent{
		ID:           "pi_123",
		ClientSecret: "pi_123_secret",
		Amount:       int64(order.TotalCents),
	}}
	svc := newService(repo, &stubLedgerRepo{}, &stubCartRepo{}, processor)

	dto, err := svc.CreatePaymentIntent(context.Background(), customerActor(customerID), order.ID)
	if err != nil {
		t.Fatalf("create intent failed: %v", err)
	}
	if dto.PaymentIntentID != "pi_123" || dto.ClientSecret != "pi_123_secret" {
		t.Fatalf("unexpected intent dto: %+v", dto)
	}
	if repo.externalIDSet == nil || *repo.externalIDSet != "pi_123" {
		t.Fatal("external payment id not stored")
	}
	if processor.createCalls != 1 {
		t.Fatalf("create calls = %d, want 1", processor.createCalls)
	}
}

func TestCreatePaymentIntentReturnsExistingIntent(t *testing.T) {
	customerID := uuid.New()
	order := pendingOrder(customerID)
	existing := "pi_existing"
	order.ExternalPaymentID = &existing

	processor := &stubProcessor{intent: &stripeapi.PaymentIntent{
		ID:           existing,
		ClientSecret: existing + "_secret",
		Amount:       int64(order.TotalCents),
	}}
	svc := newService(&stubOrdersRepo{order: order}, &stubLedgerRepo{}, &stubCartRepo{}, processor)

	dto, err := svc.CreatePaymentIntent(context.Background(), customerActor(customerID), order.ID)
	if err != nil {
		t.Fatalf("create intent failed: %v", err)
	}
	if dto.PaymentIntentID != existing {
		t.Fatalf("got intent %s, want the existing one", dto.PaymentIntentID)
	}
	if processor.createCalls != 0 {
		t.Fatal("should not mint a second intent for the same order")
	}
	if processor.retrieveCalls != 1 {
		t.Fatalf("retrieve calls = %d, want 1", processor.retrieveCalls)
	}
}

func TestCreatePaymentIntentRejectsNonPendingOrder(t *testing.T) {
	customerID := uuid.New()
	order := pendingOrder(customerID)
	order.PaymentStatus = enums.PaymentStatusCompleted

	svc := newService(&stubOrdersRepo{order: order}, &stubLedgerRepo{}, &stubCartRepo{}, &stubProcessor{})

	_, err := svc.CreatePaymentIntent(context.Background(), customerActor(customerID), order.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestCreatePaymentIntentRejectsForeignCustomer(t *testing.T) {
	order := pendingOrder(uuid.New())
	svc := newService(&stubOrdersRepo{order: order}, &stubLedgerRepo{}, &stubCartRepo{}, &stubProcessor{})

	_, err := svc.CreatePaymentIntent(context.Background(), customerActor(uuid.New()), order.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestConfirmPaymentAppliesOnce(t *testing.T) {
	customerID := uuid.New()
	order := pendingOrder(customerID)
	intentID := "pi_123"
	order.ExternalPaymentID = &intentID

	repo := &stubOrdersRepo{order: order}
	ledgerRepo := &stubLedgerRepo{}
	cartRepo := &stubCartRepo{}
	processor := &stubProcessor{intent: &stripeapi.PaymentIntent{
		ID:     intentID,
		Status: stripeapi.PaymentIntentStatusSucceeded,
	}}
	svc := newService(repo, ledgerRepo, cartRepo, processor)

	dto, err := svc.ConfirmPayment(context.Background(), customerActor(customerID), order.ID, intentID)
	if err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if dto.PaymentInfo.Status != enums.PaymentStatusCompleted {
		t.Fatalf("payment status = %s, want completed", dto.PaymentInfo.Status)
	}
	if dto.Status != enums.OrderStatusConfirmed {
		t.Fatalf("order status = %s, want confirmed", dto.Status)
	}
	if repo.vendorsFannedTo != 2 {
		t.Fatalf("fanned to %d vendors, want 2", repo.vendorsFannedTo)
	}

	// One transfer per vendor plus the platform fee.
	if len(ledgerRepo.entries) != 3 {
		t.Fatalf("ledger entries = %d, want 3", len(ledgerRepo.entries))
	}
	var transfers, fees int
	var transferTotal, feeTotal int
	for _, entry := range ledgerRepo.entries {
		switch entry.Type {
		case enums.LedgerEntryVendorTransfer:
			transfers++
			transferTotal += entry.AmountCents
		case enums.LedgerEntryPlatformFee:
			fees++
			feeTotal += entry.AmountCents
		}
	}
	if transfers != 2 || fees != 1 {
		t.Fatalf("transfers = %d fees = %d", transfers, fees)
	}
	if transferTotal != 7850 {
		t.Fatalf("transfer total = %d, want 7850", transferTotal)
	}
	if feeTotal != order.TotalCommissionCents {
		t.Fatalf("fee total = %d, want %d", feeTotal, order.TotalCommissionCents)
	}
	if cartRepo.cleared != 1 {
		t.Fatal("defensive cart clear missing")
	}

	// Second confirm: already applied, succeeds, no new side effects.
	_, err = svc.ConfirmPayment(context.Background(), customerActor(customerID), order.ID, intentID)
	if err != nil {
		t.Fatalf("repeat confirm failed: %v", err)
	}
	if len(ledgerRepo.entries) != 3 {
		t.Fatalf("repeat confirm wrote ledger entries: %d", len(ledgerRepo.entries))
	}
	if cartRepo.cleared != 1 {
		t.Fatal("repeat confirm cleared cart again")
	}
}

func TestConfirmPaymentRequiresSucceededIntent(t *testing.T) {
	customerID := uuid.New()
	order := pendingOrder(customerID)
	intentID := "pi_123"
	order.ExternalPaymentID = &intentID

	repo := &stubOrdersRepo{order: order}
	processor := &stubProcessor{intent: &stripeapi.PaymentIntent{
		ID:     intentID,
		Status: stripeapi.PaymentIntentStatusRequiresPaymentMethod,
	}}
	svc := newService(repo, &stubLedgerRepo{}, &stubCartRepo{}, processor)

	_, err := svc.ConfirmPayment(context.Background(), customerActor(customerID), order.ID, intentID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodePaymentNotCompleted {
		t.Fatalf("expected payment not completed, got %v", err)
	}
	if order.PaymentStatus != enums.PaymentStatusPending {
		t.Fatal("order state must not change on a failed verification")
	}
}

func TestConfirmPaymentRejectsMismatchedIntent(t *testing.T) {
	customerID := uuid.New()
	order := pendingOrder(customerID)
	intentID := "pi_123"
	order.ExternalPaymentID = &intentID

	svc := newService(&stubOrdersRepo{order: order}, &stubLedgerRepo{}, &stubCartRepo{}, &stubProcessor{})

	_, err := svc.ConfirmPayment(context.Background(), customerActor(customerID), order.ID, "pi_other")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func succeededEvent(t *testing.T, intentID string) stripeapi.Event {
	t.Helper()
	raw, err := json.Marshal(map[string]any{"id": intentID})
	if err != nil {
		t.Fatalf("marshaling payload: %v", err)
	}
	return stripeapi.Event{
		Type: "payment_intent.succeeded",
		Data: &stripeapi.EventData{Raw: raw},
	}
}

func TestHandleEventSucceededIsIdempotent(t *testing.T) {
	customerID := uuid.New()
	order := pendingOrder(customerID)
	intentID := "pi_123"
	order.ExternalPaymentID = &intentID

	repo := &stubOrdersRepo{order: order}
	ledgerRepo := &stubLedgerRepo{}
	cartRepo := &stubCartRepo{}
	svc := newService(repo, ledgerRepo, cartRepo, &stubProcessor{})

	event := succeededEvent(t, intentID)
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("first delivery failed: %v", err)
	}
	if order.PaymentStatus != enums.PaymentStatusCompleted {
		t.Fatal("payment not completed after webhook")
	}
	if len(ledgerRepo.entries) != 3 {
		t.Fatalf("ledger entries = %d, want 3", len(ledgerRepo.entries))
	}

	// Redelivery applies nothing new.
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("redelivery failed: %v", err)
	}
	if len(ledgerRepo.entries) != 3 {
		t.Fatalf("redelivery wrote ledger entries: %d", len(ledgerRepo.entries))
	}
	if cartRepo.cleared != 1 {
		t.Fatal("redelivery cleared cart again")
	}
}

func TestHandleEventPaymentFailed(t *testing.T) {
	customerID := uuid.New()
	order := pendingOrder(customerID)
	intentID := "pi_123"
	order.ExternalPaymentID = &intentID

	repo := &stubOrdersRepo{order: order}
	svc := newService(repo, &stubLedgerRepo{}, &stubCartRepo{}, &stubProcessor{})

	raw, _ := json.Marshal(map[string]any{"id": intentID})
	event := stripeapi.Event{Type: "payment_intent.payment_failed", Data: &stripeapi.EventData{Raw: raw}}
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handling failed event: %v", err)
	}
	if order.PaymentStatus != enums.PaymentStatusFailed {
		t.Fatalf("payment status = %s, want failed", order.PaymentStatus)
	}
	if order.Status != enums.OrderStatusPaymentFailed {
		t.Fatalf("order status = %s, want payment_failed", order.Status)
	}
}

func TestHandleEventIgnoresUnknownTypes(t *testing.T) {
	repo := &stubOrdersRepo{}
	svc := newService(repo, &stubLedgerRepo{}, &stubCartRepo{}, &stubProcessor{})

	event := stripeapi.Event{Type: "charge.succeeded", Data: &stripeapi.EventData{Raw: []byte(`{}`)}}
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("unknown event type must be accepted, got %v", err)
	}
}

func TestHandleEventUnknownIntentAcknowledged(t *testing.T) {
	repo := &stubOrdersRepo{}
	svc := newService(repo, &stubLedgerRepo{}, &stubCartRepo{}, &stubProcessor{})

	if err := svc.HandleEvent(context.Background(), succeededEvent(t, "pi_unknown")); err != nil {
		t.Fatalf("unknown intent must be acknowledged, got %v", err)
	}
}

func TestRefundDefaultsToFullTotal(t *testing.T) {
	customerID := uuid.New()
	order := pendingOrder(customerID)
	intentID := "pi_123"
	order.ExternalPaymentID = &intentID
	order.PaymentStatus = enums.PaymentStatusCompleted

	repo := &stubOrdersRepo{order: order}
	ledgerRepo := &stubLedgerRepo{}
	processor := &stubProcessor{refund: &stripeapi.Refund{ID: "re_123"}}
	svc := newService(repo, ledgerRepo, &stubCartRepo{}, processor)

	dto, err := svc.Refund(context.Background(), adminActor(), RefundInput{OrderID: order.ID})
	if err != nil {
		t.Fatalf("refund failed: %v", err)
	}
	if repo.refundedAmount == nil || *repo.refundedAmount != order.TotalCents {
		t.Fatalf("refund amount = %v, want full total", repo.refundedAmount)
	}
	if dto.Status != enums.OrderStatusRefunded {
		t.Fatalf("order status = %s, want refunded", dto.Status)
	}
	if len(ledgerRepo.entries) != 1 || ledgerRepo.entries[0].Type != enums.LedgerEntryRefund {
		t.Fatalf("expected one refund ledger entry, got %v", ledgerRepo.entries)
	}
	if ledgerRepo.entries[0].AmountCents != -order.TotalCents {
		t.Fatalf("refund entry amount = %d, want %d", ledgerRepo.entries[0].AmountCents, -order.TotalCents)
	}
}

func TestRefundPartialAmount(t *testing.T) {
	customerID := uuid.New()
	order := pendingOrder(customerID)
	intentID := "pi_123"
	order.ExternalPaymentID = &intentID
	order.PaymentStatus = enums.PaymentStatusCompleted
	order.TotalCents = 12000

	repo := &stubOrdersRepo{order: order}
	ledgerRepo := &stubLedgerRepo{}
	processor := &stubProcessor{refund: &stripeapi.Refund{ID: "re_partial"}}
	svc := newService(repo, ledgerRepo, &stubCartRepo{}, processor)

	amount := 5000
	dto, err := svc.Refund(context.Background(), adminActor(), RefundInput{OrderID: order.ID, AmountCents: &amount})
	if err != nil {
		t.Fatalf("partial refund failed: %v", err)
	}
	if repo.refundedAmount == nil || *repo.refundedAmount != amount {
		t.Fatalf("refund amount = %v, want %d", repo.refundedAmount, amount)
	}
	if dto.PaymentInfo.Status != enums.PaymentStatusRefunded {
		t.Fatalf("payment status = %s, want refunded", dto.PaymentInfo.Status)
	}
	if dto.PaymentInfo.RefundAmount != amount {
		t.Fatalf("refund amount in dto = %d, want %d", dto.PaymentInfo.RefundAmount, amount)
	}
	if dto.Status != enums.OrderStatusRefunded {
		t.Fatalf("order status = %s, want refunded", dto.Status)
	}
	if len(ledgerRepo.entries) != 1 || ledgerRepo.entries[0].Type != enums.LedgerEntryRefund {
		t.Fatalf("expected one refund ledger entry, got %v", ledgerRepo.entries)
	}
	if ledgerRepo.entries[0].AmountCents != -amount {
		t.Fatalf("refund entry amount = %d, want %d", ledgerRepo.entries[0].AmountCents, -amount)
	}
}

func TestRefundRejectsAmountOverTotal(t *testing.T) {
	customerID := uuid.New()
	order := pendingOrder(customerID)
	intentID := "pi_123"
	order.ExternalPaymentID = &intentID
	order.PaymentStatus = enums.PaymentStatusCompleted
	order.TotalCents = 12000

	repo := &stubOrdersRepo{order: order}
	ledgerRepo := &stubLedgerRepo{}
	processor := &stubProcessor{refund: &stripeapi.Refund{ID: "re_never"}}
	svc := newService(repo, ledgerRepo, &stubCartRepo{}, processor)

	amount := 13000
	_, err := svc.Refund(context.Background(), adminActor(), RefundInput{OrderID: order.ID, AmountCents: &amount})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if processor.refundCalls != 0 {
		t.Fatal("processor must not be called for an out-of-range amount")
	}
	if repo.refundedAmount != nil {
		t.Fatal("order must not be marked refunded")
	}
	if len(ledgerRepo.entries) != 0 {
		t.Fatalf("no ledger entries expected, got %d", len(ledgerRepo.entries))
	}
	if order.PaymentStatus != enums.PaymentStatusCompleted {
		t.Fatal("payment status must stay completed")
	}
}

func TestRefundIsAdminOnly(t *testing.T) {
	customerID := uuid.New()
	order := pendingOrder(customerID)
	order.PaymentStatus = enums.PaymentStatusCompleted

	svc := newService(&stubOrdersRepo{order: order}, &stubLedgerRepo{}, &stubCartRepo{}, &stubProcessor{})

	_, err := svc.Refund(context.Background(), customerActor(customerID), RefundInput{OrderID: order.ID})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestRefundSurfacesProcessorFailure(t *testing.T) {
	customerID := uuid.New()
	order := pendingOrder(customerID)
	intentID := "pi_123"
	order.ExternalPaymentID = &intentID
	order.PaymentStatus = enums.PaymentStatusCompleted

	repo := &stubOrdersRepo{order: order}
	processor := &stubProcessor{refundErr: errors.New("card issuer unavailable")}
	svc := newService(repo, &stubLedgerRepo{}, &stubCartRepo{}, processor)

	_, err := svc.Refund(context.Background(), adminActor(), RefundInput{OrderID: order.ID})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodePaymentProvider {
		t.Fatalf("expected payment provider error, got %v", err)
	}
	if repo.refundedAmount != nil {
		t.Fatal("order must not be marked refunded when the processor call fails")
	}
	if order.PaymentStatus != enums.PaymentStatusCompleted {
		t.Fatal("payment status must stay completed on failure")
	}
}

func TestRefundRequiresCompletedPayment(t *testing.T) {
	customerID := uuid.New()
	order := pendingOrder(customerID)

	svc := newService(&stubOrdersRepo{order: order}, &stubLedgerRepo{}, &stubCartRepo{}, &stubProcessor{})

	_, err := svc.Refund(context.Background(), adminActor(), RefundInput{OrderID: order.ID})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}
