package ledger

import (
	"strings"
	"testing"

	"github.com/canteenx/canteenx-backend/pkg/enums"
)

func TestEligibleForSale(t *testing.T) {
	tests := []struct {
		name      string
		orderType enums.OrderType
		status    enums.OrderStatus
		want      bool
	}{
		{"self-service paid", enums.OrderTypeSelfService, enums.OrderStatusPaid, true},
		{"self-service legacy success", enums.OrderTypeSelfService, enums.OrderStatusLegacySuccess, true},
		{"self-service pending", enums.OrderTypeSelfService, enums.OrderStatusPendingPayment, false},
		{"self-service failed", enums.OrderTypeSelfService, enums.OrderStatusFailed, false},
		{"self-service cancelled", enums.OrderTypeSelfService, enums.OrderStatusCancelled, false},
		{"pre-order paid only", enums.OrderTypePreOrder, enums.OrderStatusPaid, false},
		{"pre-order accepted", enums.OrderTypePreOrder, enums.OrderStatusAccepted, true},
		{"pre-order completed", enums.OrderTypePreOrder, enums.OrderStatusCompleted, true},
		{"pre-order refunded", enums.OrderTypePreOrder, enums.OrderStatusRefunded, true},
		{"pre-order pending", enums.OrderTypePreOrder, enums.OrderStatusPendingPayment, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := EligibleForSale(tc.orderType, tc.status); got != tc.want {
				t.Fatalf("EligibleForSale(%s, %s) = %v, want %v", tc.orderType, tc.status, got, tc.want)
			}
		})
	}
}

func TestEligibilityClauseMatchesPredicate(t *testing.T) {
	clause, args := EligibilityClause()

	if !strings.Contains(clause, "order_type = ?") {
		t.Fatalf("clause missing order_type condition: %s", clause)
	}
	if got := strings.Count(clause, "?"); got != len(args) {
		t.Fatalf("placeholder/arg mismatch: %d placeholders, %d args", got, len(args))
	}

	// Both sides of the OR must cover the same statuses the Go predicate does.
	for _, s := range enums.MoneyInStatuses() {
		if !containsArg(args, s) {
			t.Fatalf("money-in status %s missing from clause args", s)
		}
	}
	for _, s := range preOrderEligibleStatuses {
		if !containsArg(args, s) {
			t.Fatalf("pre-order status %s missing from clause args", s)
		}
	}
}

func containsArg(args []any, want enums.OrderStatus) bool {
	for _, a := range args {
		if s, ok := a.(enums.OrderStatus); ok && s == want {
			return true
		}
	}
	return false
}
