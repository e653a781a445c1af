package orders

import (
	"net/http"

	"github.com/craftora/marketplace-backend/api/middleware"
	"github.com/craftora/marketplace-backend/api/responses"
	"github.com/craftora/marketplace-backend/api/validators"
	"github.com/craftora/marketplace-backend/internal/checkout"
	"github.com/craftora/marketplace-backend/internal/fulfillment"
	internalorders "github.com/craftora/marketplace-backend/internal/orders"
	"github.com/craftora/marketplace-backend/internal/policy"
	pkgerrors "github.com/craftora/marketplace-backend/pkg/errors"
	"github.com/craftora/marketplace-backend/pkg/logger"
	"github.com/craftora/marketplace-backend/pkg/pagination"
)

type cancelRequest struct {
	Reason *string `json:"reason,omitempty" validate:"omitempty,max=500"`
}

// Create runs checkout for the authenticated customer.
func Create(svc *checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		actor, err := middleware.ActorFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := policy.Authorize(actor.Role, policy.ActionCheckout, true); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var input checkout.Input
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		order, err := svc.CreateOrder(ctx, actor.UserID, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, "order created", order)
	}
}

// List returns the actor's role-scoped order page.
func List(svc *internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		actor, err := middleware.ActorFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		offset, err := validators.ParseQueryInt(r, "offset", 0, 0, 1<<30)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		list, err := svc.List(ctx, actor, pagination.Params{Limit: limit, Offset: offset})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, "orders retrieved", list)
	}
}

// Get returns one order after the ownership check.
func Get(svc *internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		actor, err := middleware.ActorFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		orderID, err := validators.ParsePathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		order, err := svc.Get(ctx, actor, orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, "order retrieved", order)
	}
}

// Cancel cancels an order for the owning customer or an admin.
func Cancel(svc *internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		actor, err := middleware.ActorFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		orderID, err := validators.ParsePathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var body cancelRequest
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &body); err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
		}

		order, err := svc.Cancel(ctx, actor, orderID, body.Reason)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, "order cancelled", order)
	}
}

// VendorStatus moves the calling vendor's sub-order along the fulfillment
// chain.
func VendorStatus(svc *fulfillment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		actor, err := middleware.ActorFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		orderID, err := validators.ParsePathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var input fulfillment.UpdateInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if !input.Status.IsValid() {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid vendor order status"))
			return
		}

		order, err := svc.UpdateVendorStatus(ctx, actor, orderID, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, "vendor order status updated", order)
	}
}
