package enums

import "fmt"

// OrderStatus tracks the lifecycle of an order.
type OrderStatus string

const (
	OrderStatusPendingPayment    OrderStatus = "pending_payment"
	OrderStatusPaid              OrderStatus = "paid"
	OrderStatusFailed            OrderStatus = "failed"
	OrderStatusAccepted          OrderStatus = "accepted"
	OrderStatusCompleted         OrderStatus = "completed"
	OrderStatusCancelled         OrderStatus = "cancelled"
	OrderStatusRefunded          OrderStatus = "refunded"
	OrderStatusPartiallyRefunded OrderStatus = "partially_refunded"

	// OrderStatusLegacySuccess is an old gateway callback value that some
	// historical rows still carry. It is normalized to paid on write and
	// treated as money-in on read.
	OrderStatusLegacySuccess OrderStatus = "success"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPendingPayment,
	OrderStatusPaid,
	OrderStatusFailed,
	OrderStatusAccepted,
	OrderStatusCompleted,
	OrderStatusCancelled,
	OrderStatusRefunded,
	OrderStatusPartiallyRefunded,
	OrderStatusLegacySuccess,
}

// moneyInStatuses is the single canonical "has the platform collected money
// for this order" set. Every consumer must test membership here instead of
// comparing against OrderStatusPaid directly.
var moneyInStatuses = map[OrderStatus]struct{}{
	OrderStatusPaid:              {},
	OrderStatusLegacySuccess:     {},
	OrderStatusAccepted:          {},
	OrderStatusCompleted:         {},
	OrderStatusRefunded:          {},
	OrderStatusPartiallyRefunded: {},
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the order can no longer transition.
func (s OrderStatus) IsTerminal() bool {
	switch s.Canonical() {
	case OrderStatusCompleted, OrderStatusCancelled, OrderStatusRefunded, OrderStatusFailed:
		return true
	default:
		return false
	}
}

// Canonical maps legacy synonyms onto the current status vocabulary.
func (s OrderStatus) Canonical() OrderStatus {
	if s == OrderStatusLegacySuccess {
		return OrderStatusPaid
	}
	return s
}

// IsMoneyIn reports whether payment has been collected for an order in this
// status. Membership here, not equality with OrderStatusPaid, is the contract.
func IsMoneyIn(s OrderStatus) bool {
	_, ok := moneyInStatuses[s]
	return ok
}

// MoneyInStatuses returns the status values considered money-in, for use in
// SQL IN clauses. Callers must not mutate the returned slice.
func MoneyInStatuses() []OrderStatus {
	out := make([]OrderStatus, 0, len(moneyInStatuses))
	for _, s := range validOrderStatuses {
		if _, ok := moneyInStatuses[s]; ok {
			out = append(out, s)
		}
	}
	return out
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
