package orders

import "github.com/craftora/marketplace-backend/pkg/enums"

// DeriveStatus computes the overall order status from the vendor sub-order
// status multiset. Cancelled and refunded orders are owned by explicit actions
// and must not be fed back through this rule; callers check that first.
func DeriveStatus(statuses []enums.VendorOrderStatus) enums.OrderStatus {
	if len(statuses) == 0 {
		return enums.OrderStatusPending
	}

	allDelivered := true
	anyShippedOrDelivered := false
	allConfirmedOrProcessing := true
	allCancelled := true

	for _, s := range statuses {
		if s != enums.VendorOrderStatusDelivered {
			allDelivered = false
		}
		if s == enums.VendorOrderStatusDelivered || s == enums.VendorOrderStatusShipped {
			anyShippedOrDelivered = true
		}
		if s != enums.VendorOrderStatusConfirmed && s != enums.VendorOrderStatusProcessing {
			allConfirmedOrProcessing = false
		}
		if s != enums.VendorOrderStatusCancelled {
			allCancelled = false
		}
	}

	switch {
	case allDelivered:
		return enums.OrderStatusDelivered
	case anyShippedOrDelivered:
		return enums.OrderStatusPartiallyShipped
	case allConfirmedOrProcessing:
		return enums.OrderStatusProcessing
	case allCancelled:
		return enums.OrderStatusCancelled
	default:
		return enums.OrderStatusPending
	}
}
