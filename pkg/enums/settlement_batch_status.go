package enums

import "fmt"

// SettlementBatchStatus tracks the export lifecycle of a payout batch.
type SettlementBatchStatus string

const (
	SettlementBatchStatusCreated  SettlementBatchStatus = "created"
	SettlementBatchStatusExported SettlementBatchStatus = "exported"
)

var validSettlementBatchStatuses = []SettlementBatchStatus{
	SettlementBatchStatusCreated,
	SettlementBatchStatusExported,
}

// String implements fmt.Stringer.
func (s SettlementBatchStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SettlementBatchStatus.
func (s SettlementBatchStatus) IsValid() bool {
	for _, candidate := range validSettlementBatchStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSettlementBatchStatus converts raw input into a SettlementBatchStatus.
func ParseSettlementBatchStatus(value string) (SettlementBatchStatus, error) {
	for _, candidate := range validSettlementBatchStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid settlement batch status %q", value)
}
