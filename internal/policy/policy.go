package policy

import (
	"github.com/craftora/marketplace-backend/pkg/enums"
	pkgerrors "github.com/craftora/marketplace-backend/pkg/errors"
)

// Action names an order-subsystem operation subject to authorization.
type Action string

const (
	ActionCheckout           Action = "order.checkout"
	ActionOrderView          Action = "order.view"
	ActionOrderCancel        Action = "order.cancel"
	ActionVendorStatusUpdate Action = "order.vendor_status"
	ActionPaymentIntent      Action = "payment.intent"
	ActionPaymentConfirm     Action = "payment.confirm"
	ActionPaymentRefund      Action = "payment.refund"
)

// rule describes who may perform an action. requireOwnership means the caller
// must own the targeted resource (customer owns the order, vendor owns the
// sub-order); admins are exempt from ownership checks on allowed actions.
type rule struct {
	roles            map[enums.ActorRole]bool
	requireOwnership bool
}

var rules = map[Action]rule{
	ActionCheckout: {
		roles:            map[enums.ActorRole]bool{enums.ActorRoleCustomer: true},
		requireOwnership: false,
	},
	ActionOrderView: {
		roles:            map[enums.ActorRole]bool{enums.ActorRoleCustomer: true, enums.ActorRoleVendor: true, enums.ActorRoleAdmin: true},
		requireOwnership: true,
	},
	ActionOrderCancel: {
		roles:            map[enums.ActorRole]bool{enums.ActorRoleCustomer: true, enums.ActorRoleAdmin: true},
		requireOwnership: true,
	},
	ActionVendorStatusUpdate: {
		roles:            map[enums.ActorRole]bool{enums.ActorRoleVendor: true},
		requireOwnership: true,
	},
	ActionPaymentIntent: {
		roles:            map[enums.ActorRole]bool{enums.ActorRoleCustomer: true},
		requireOwnership: true,
	},
	ActionPaymentConfirm: {
		roles:            map[enums.ActorRole]bool{enums.ActorRoleCustomer: true},
		requireOwnership: true,
	},
	ActionPaymentRefund: {
		roles:            map[enums.ActorRole]bool{enums.ActorRoleAdmin: true},
		requireOwnership: false,
	},
}

// Authorize checks the (role, action, ownership) tuple against the policy
// table. owns reports whether the caller owns the targeted resource.
func Authorize(role enums.ActorRole, action Action, owns bool) error {
	r, ok := rules[action]
	if !ok {
		return pkgerrors.New(pkgerrors.CodeForbidden, "unknown action")
	}
	if !r.roles[role] {
		return pkgerrors.New(pkgerrors.CodeForbidden, "role not permitted")
	}
	if r.requireOwnership && role != enums.ActorRoleAdmin && !owns {
		return pkgerrors.New(pkgerrors.CodeForbidden, "resource does not belong to caller")
	}
	return nil
}
