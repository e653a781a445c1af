package payments

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/craftora/marketplace-backend/api/middleware"
	"github.com/craftora/marketplace-backend/api/responses"
	"github.com/craftora/marketplace-backend/api/validators"
	internalpayments "github.com/craftora/marketplace-backend/internal/payments"
	"github.com/craftora/marketplace-backend/pkg/logger"
)

type createIntentRequest struct {
	OrderID uuid.UUID `json:"orderId" validate:"required"`
}

type confirmRequest struct {
	OrderID         uuid.UUID `json:"orderId" validate:"required"`
	PaymentIntentID string    `json:"paymentIntentId" validate:"required"`
}

// CreateIntent opens (or returns) the payment intent for an order.
func CreateIntent(svc *internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		actor, err := middleware.ActorFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var body createIntentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		intent, err := svc.CreatePaymentIntent(ctx, actor, body.OrderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, "payment intent ready", intent)
	}
}

// Confirm verifies the intent with the processor and applies the confirmed
// transition.
func Confirm(svc *internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		actor, err := middleware.ActorFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var body confirmRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		order, err := svc.ConfirmPayment(ctx, actor, body.OrderID, body.PaymentIntentID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, "payment confirmed", order)
	}
}

// Refund issues an admin refund, full total by default.
func Refund(svc *internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		actor, err := middleware.ActorFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var body internalpayments.RefundInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		order, err := svc.Refund(ctx, actor, body)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, "payment refunded", order)
	}
}
