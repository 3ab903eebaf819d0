package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateOrder           OutboxAggregateType = "order"
	AggregatePayment         OutboxAggregateType = "payment"
	AggregateLedgerEntry     OutboxAggregateType = "ledger_entry"
	AggregateSettlementBatch OutboxAggregateType = "settlement_batch"
	AggregateNotification    OutboxAggregateType = "notification"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregatePayment,
	AggregateLedgerEntry,
	AggregateSettlementBatch,
	AggregateNotification,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventOrderCreated             OutboxEventType = "order_created"
	EventOrderPaid                OutboxEventType = "order_paid"
	EventOrderAccepted            OutboxEventType = "order_accepted"
	EventOrderCompleted           OutboxEventType = "order_completed"
	EventOrderCancelled           OutboxEventType = "order_cancelled"
	EventPaymentFailed            OutboxEventType = "payment_failed"
	EventSaleRecorded             OutboxEventType = "sale_recorded"
	EventRefundRecorded           OutboxEventType = "refund_recorded"
	EventSettlementGenerated      OutboxEventType = "settlement_generated"
	EventSettlementExported       OutboxEventType = "settlement_exported"
	EventReconciliationDriftFound OutboxEventType = "reconciliation_drift_found"
	EventVendorNotificationQueued OutboxEventType = "vendor_notification_queued"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventOrderPaid,
	EventOrderAccepted,
	EventOrderCompleted,
	EventOrderCancelled,
	EventPaymentFailed,
	EventSaleRecorded,
	EventRefundRecorded,
	EventSettlementGenerated,
	EventSettlementExported,
	EventReconciliationDriftFound,
	EventVendorNotificationQueued,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
