package ledger

import (
	"strings"

	"github.com/canteenx/canteenx-backend/pkg/enums"
)

// Sale eligibility is defined here and nowhere else. The write side
// (RecordSale) uses EligibleForSale; the read side (reporting,
// reconciliation) uses EligibilityClause. Both must stay in lockstep,
// which is why they share this file and the same status sets.
//
// A self-service order earns its SALE entry as soon as money is in.
// A pre-order earns it only once the vendor has accepted; a paid but
// unaccepted pre-order is pre-authorized money, not a sale.

var preOrderEligibleStatuses = []enums.OrderStatus{
	enums.OrderStatusAccepted,
	enums.OrderStatusCompleted,
	enums.OrderStatusRefunded,
	enums.OrderStatusPartiallyRefunded,
}

// EligibleForSale reports whether an order in the given state should have
// exactly one SALE ledger entry.
func EligibleForSale(orderType enums.OrderType, status enums.OrderStatus) bool {
	if !enums.IsMoneyIn(status) {
		return false
	}
	switch orderType {
	case enums.OrderTypeSelfService:
		return true
	case enums.OrderTypePreOrder:
		for _, s := range preOrderEligibleStatuses {
			if s == status.Canonical() {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// EligibilityClause returns the SQL condition matching EligibleForSale,
// with its bind arguments, for use against the orders table.
func EligibilityClause() (string, []any) {
	moneyIn := enums.MoneyInStatuses()
	clause := "((order_type = ? AND status IN (" + placeholders(len(moneyIn)) + ")) " +
		"OR (order_type = ? AND status IN (" + placeholders(len(preOrderEligibleStatuses)) + ")))"

	args := make([]any, 0, len(moneyIn)+len(preOrderEligibleStatuses)+2)
	args = append(args, enums.OrderTypeSelfService)
	for _, s := range moneyIn {
		args = append(args, s)
	}
	args = append(args, enums.OrderTypePreOrder)
	for _, s := range preOrderEligibleStatuses {
		args = append(args, s)
	}
	return clause, args
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
