package payments

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	stripeapi "github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/craftora/marketplace-backend/internal/cart"
	"github.com/craftora/marketplace-backend/internal/ledger"
	"github.com/craftora/marketplace-backend/internal/orders"
	"github.com/craftora/marketplace-backend/internal/policy"
	"github.com/craftora/marketplace-backend/pkg/auth"
	"github.com/craftora/marketplace-backend/pkg/db/models"
	"github.com/craftora/marketplace-backend/pkg/enums"
	pkgerrors "github.com/craftora/marketplace-backend/pkg/errors"
	"github.com/craftora/marketplace-backend/pkg/logger"
	stripeclient "github.com/craftora/marketplace-backend/pkg/stripe"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type paymentProcessor interface {
	CreatePaymentIntent(ctx context.Context, input stripeclient.CreateIntentInput) (*stripeapi.PaymentIntent, error)
	RetrievePaymentIntent(ctx context.Context, id string) (*stripeapi.PaymentIntent, error)
	CreateRefund(ctx context.Context, intentID string, amountCents int) (*stripeapi.Refund, error)
}

// IntentDTO is the client-facing slice of a payment intent.
type IntentDTO struct {
	PaymentIntentID string `json:"paymentIntentId"`
	ClientSecret    string `json:"clientSecret"`
	AmountCents     int    `json:"amount"`
}

// RefundInput is the admin refund request. A nil amount refunds the full
// order total.
type RefundInput struct {
	OrderID     uuid.UUID `json:"orderId" validate:"required"`
	AmountCents *int      `json:"amount,omitempty" validate:"omitempty,gt=0"`
	Reason      *string   `json:"reason,omitempty" validate:"omitempty,max=500"`
}

// Service reconciles order state with the payment processor. The synchronous
// confirm call and the asynchronous webhook both funnel through
// applyPaymentConfirmed, whose conditional update makes the transition happen
// at most once no matter how the two paths race.
type Service struct {
	tx         txRunner
	ordersRepo orders.Repository
	ledgerRepo ledger.Repository
	cartRepo   cart.Repository
	processor  paymentProcessor
	logg       *logger.Logger
}

func NewService(
	tx txRunner,
	ordersRepo orders.Repository,
	ledgerRepo ledger.Repository,
	cartRepo cart.Repository,
	processor paymentProcessor,
	logg *logger.Logger,
) *Service {
	return &Service{
		tx:         tx,
		ordersRepo: ordersRepo,
		ledgerRepo: ledgerRepo,
		cartRepo:   cartRepo,
		processor:  processor,
		logg:       logg,
	}
}

// CreatePaymentIntent opens (or returns) the intent charging the order total
// with the platform commission as the application fee. Re-invocation while an
// unconfirmed intent exists returns that intent instead of minting another.
func (s *Service) CreatePaymentIntent(ctx context.Context, actor auth.AccessTokenPayload, orderID uuid.UUID) (*IntentDTO, error) {
	order, err := s.ordersRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(actor.Role, policy.ActionPaymentIntent, actor.UserID == order.CustomerID); err != nil {
		return nil, err
	}
	if order.PaymentStatus != enums.PaymentStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not awaiting payment").
			WithDetails(map[string]any{"payment_status": order.PaymentStatus})
	}

	if order.ExternalPaymentID != nil {
		intent, err := s.processor.RetrievePaymentIntent(ctx, *order.ExternalPaymentID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodePaymentProvider, err, "retrieving existing intent").
				WithDetails(providerDetails(err))
		}
		return &IntentDTO{
			PaymentIntentID: intent.ID,
			ClientSecret:    intent.ClientSecret,
			AmountCents:     int(intent.Amount),
		}, nil
	}

	intent, err := s.processor.CreatePaymentIntent(ctx, stripeclient.CreateIntentInput{
		AmountCents:         order.TotalCents,
		ApplicationFeeCents: order.TotalCommissionCents,
		Metadata: map[string]string{
			"order_id":     order.ID.String(),
			"order_number": order.OrderNumber,
		},
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePaymentProvider, err, "creating payment intent").
			WithDetails(providerDetails(err))
	}

	if err := s.ordersRepo.SetExternalPaymentID(ctx, order.ID, intent.ID); err != nil {
		return nil, err
	}

	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	s.logg.Info(ctx, "payment intent created")

	return &IntentDTO{
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
		AmountCents:     int(intent.Amount),
	}, nil
}

// ConfirmPayment verifies with the processor that the intent succeeded, then
// applies the confirmed transition. A repeat call after the transition has
// already happened (here or via webhook) succeeds without new side effects.
func (s *Service) ConfirmPayment(ctx context.Context, actor auth.AccessTokenPayload, orderID uuid.UUID, paymentIntentID string) (*orders.OrderDTO, error) {
	order, err := s.ordersRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(actor.Role, policy.ActionPaymentConfirm, actor.UserID == order.CustomerID); err != nil {
		return nil, err
	}
	if order.ExternalPaymentID == nil || *order.ExternalPaymentID != paymentIntentID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment intent does not match order")
	}

	intent, err := s.processor.RetrievePaymentIntent(ctx, paymentIntentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePaymentProvider, err, "retrieving payment intent").
			WithDetails(providerDetails(err))
	}
	if intent.Status != stripeapi.PaymentIntentStatusSucceeded {
		return nil, pkgerrors.New(pkgerrors.CodePaymentNotCompleted, "payment has not succeeded").
			WithDetails(map[string]any{"intent_status": intent.Status})
	}

	if err := s.applyPaymentConfirmed(ctx, order, paymentIntentID); err != nil {
		return nil, err
	}

	order, err = s.ordersRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	dto := orders.ToOrderDTO(*order)
	return &dto, nil
}

// HandleEvent processes a verified Stripe event. Unknown event types are
// accepted and ignored. Errors bubble up so the HTTP layer returns non-2xx
// and the processor redelivers.
func (s *Service) HandleEvent(ctx context.Context, event stripeapi.Event) error {
	switch event.Type {
	case "payment_intent.succeeded", "payment_intent.payment_failed":
	default:
		return nil
	}
	if event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "event has no payload")
	}

	var intent stripeapi.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decoding event payload")
	}

	order, err := s.ordersRepo.FindByExternalPaymentID(ctx, intent.ID)
	if err != nil {
		// An intent we never issued; acknowledge rather than making Stripe
		// retry forever.
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
			ctx = s.logg.WithField(ctx, "payment_intent_id", intent.ID)
			s.logg.Warn(ctx, "webhook for unknown payment intent")
			return nil
		}
		return err
	}

	ctx = s.logg.WithOrderID(ctx, order.ID.String())

	switch event.Type {
	case "payment_intent.succeeded":
		return s.applyPaymentConfirmed(ctx, order, intent.ID)
	case "payment_intent.payment_failed":
		applied, err := s.ordersRepo.FailPayment(ctx, order.ID)
		if err != nil {
			return err
		}
		if applied {
			s.logg.Warn(ctx, "payment failed")
		}
		return nil
	}
	return nil
}

// Refund issues a refund against the stored intent, full total by default.
// A processor failure is surfaced to the caller and never retried here; raw
// processor details ride along for the admin.
func (s *Service) Refund(ctx context.Context, actor auth.AccessTokenPayload, input RefundInput) (*orders.OrderDTO, error) {
	if err := policy.Authorize(actor.Role, policy.ActionPaymentRefund, false); err != nil {
		return nil, err
	}

	order, err := s.ordersRepo.FindByID(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentStatus != enums.PaymentStatusCompleted {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only completed payments can be refunded").
			WithDetails(map[string]any{"payment_status": order.PaymentStatus})
	}
	if order.ExternalPaymentID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order has no stored payment id")
	}

	amount := order.TotalCents
	if input.AmountCents != nil {
		amount = *input.AmountCents
	}
	if amount <= 0 || amount > order.TotalCents {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund amount out of range").
			WithDetails(map[string]any{"requested": amount, "total": order.TotalCents})
	}

	ref, err := s.processor.CreateRefund(ctx, *order.ExternalPaymentID, amount)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePaymentProvider, err, "refund failed").
			WithDetails(providerDetails(err))
	}

	now := time.Now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.ordersRepo.WithTx(tx).MarkRefunded(ctx, order.ID, amount, now); err != nil {
			return err
		}
		return s.ledgerRepo.WithTx(tx).Append(ctx, []models.LedgerEntry{{
			Type:        enums.LedgerEntryRefund,
			OrderID:     order.ID,
			AmountCents: -amount,
			Reference:   ref.ID,
		}})
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"order_id":     order.ID.String(),
		"amount_cents": amount,
	})
	s.logg.Info(ctx, "payment refunded")

	order, err = s.ordersRepo.FindByID(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	dto := orders.ToOrderDTO(*order)
	return &dto, nil
}

// applyPaymentConfirmed is the single place the pending → completed payment
// transition happens. The conditional update decides the winner; the loser
// sees zero rows affected and returns without repeating the fan-out, ledger
// writes, or cart clear.
func (s *Service) applyPaymentConfirmed(ctx context.Context, order *models.Order, intentID string) error {
	now := time.Now().UTC()
	var applied bool

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ordersRepo := s.ordersRepo.WithTx(tx)

		won, err := ordersRepo.ConfirmPayment(ctx, order.ID, now)
		if err != nil {
			return err
		}
		if !won {
			return nil
		}
		applied = true

		if err := ordersRepo.ConfirmPendingVendorOrders(ctx, order.ID); err != nil {
			return err
		}

		entries := make([]models.LedgerEntry, 0, len(order.VendorOrders)+1)
		for _, vo := range order.VendorOrders {
			voID := vo.ID
			vendorID := vo.VendorID
			entries = append(entries, models.LedgerEntry{
				Type:          enums.LedgerEntryVendorTransfer,
				OrderID:       order.ID,
				VendorOrderID: &voID,
				VendorID:      &vendorID,
				AmountCents:   vo.VendorEarningsCents,
				Reference:     intentID,
			})
		}
		entries = append(entries, models.LedgerEntry{
			Type:        enums.LedgerEntryPlatformFee,
			OrderID:     order.ID,
			AmountCents: order.TotalCommissionCents,
			Reference:   intentID,
		})
		if err := s.ledgerRepo.WithTx(tx).Append(ctx, entries); err != nil {
			return err
		}

		// The cart may have been repopulated while payment was in flight.
		return s.cartRepo.WithTx(tx).Clear(ctx, order.CustomerID)
	})
	if err != nil {
		return err
	}

	if applied {
		s.logg.Info(ctx, "payment confirmed")
	}
	return nil
}

func providerDetails(err error) map[string]any {
	var stripeErr *stripeapi.Error
	if errors.As(err, &stripeErr) {
		return map[string]any{
			"provider_code":    stripeErr.Code,
			"provider_message": stripeErr.Msg,
			"request_id":       stripeErr.RequestID,
		}
	}
	return map[string]any{"provider_message": err.Error()}
}
