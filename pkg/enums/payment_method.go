package enums

// PaymentMethod identifies how an order is paid.
type PaymentMethod string

const (
	PaymentMethodCard PaymentMethod = "card"
)

// String implements fmt.Stringer.
func (m PaymentMethod) String() string {
	return string(m)
}

// IsValid reports whether the value is a known PaymentMethod.
func (m PaymentMethod) IsValid() bool {
	return m == PaymentMethodCard
}
