package enums

import "fmt"

// VendorOrderStatus tracks the fulfillment lifecycle of one vendor's portion
// of an order: pending -> confirmed -> processing -> shipped -> delivered,
// with cancelled reachable from any non-terminal state.
type VendorOrderStatus string

const (
	VendorOrderStatusPending    VendorOrderStatus = "pending"
	VendorOrderStatusConfirmed  VendorOrderStatus = "confirmed"
	VendorOrderStatusProcessing VendorOrderStatus = "processing"
	VendorOrderStatusShipped    VendorOrderStatus = "shipped"
	VendorOrderStatusDelivered  VendorOrderStatus = "delivered"
	VendorOrderStatusCancelled  VendorOrderStatus = "cancelled"
)

var validVendorOrderStatuses = []VendorOrderStatus{
	VendorOrderStatusPending,
	VendorOrderStatusConfirmed,
	VendorOrderStatusProcessing,
	VendorOrderStatusShipped,
	VendorOrderStatusDelivered,
	VendorOrderStatusCancelled,
}

// String implements fmt.Stringer.
func (s VendorOrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known VendorOrderStatus.
func (s VendorOrderStatus) IsValid() bool {
	for _, candidate := range validVendorOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status accepts no further transitions.
func (s VendorOrderStatus) IsTerminal() bool {
	return s == VendorOrderStatusDelivered || s == VendorOrderStatusCancelled
}

// ParseVendorOrderStatus converts raw input into a VendorOrderStatus.
func ParseVendorOrderStatus(value string) (VendorOrderStatus, error) {
	for _, candidate := range validVendorOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid vendor order status %q", value)
}
