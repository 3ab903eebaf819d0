package enums

import "fmt"

// OrderType distinguishes walk-up self-service orders from scheduled pre-orders.
type OrderType string

const (
	OrderTypeSelfService OrderType = "self_service"
	OrderTypePreOrder    OrderType = "pre_order"
)

var validOrderTypes = []OrderType{
	OrderTypeSelfService,
	OrderTypePreOrder,
}

// String implements fmt.Stringer.
func (t OrderType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known OrderType.
func (t OrderType) IsValid() bool {
	for _, candidate := range validOrderTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseOrderType converts raw input into an OrderType.
func ParseOrderType(value string) (OrderType, error) {
	for _, candidate := range validOrderTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order type %q", value)
}
