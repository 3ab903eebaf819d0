package gateway

import (
	"context"
)

// OrderParams describe the gateway-side order created before collecting a
// payment.
type OrderParams struct {
	Receipt     string
	AmountCents int
	Currency    string
	Notes       map[string]string
}

// OrderResult is the gateway's handle for a created order.
type OrderResult struct {
	OrderRef string
	Status   string
}

// RefundParams describe a full or partial refund against a captured payment.
type RefundParams struct {
	PaymentRef  string
	AmountCents int
	Notes       map[string]string
}

// RefundResult is the gateway's record of an issued refund.
type RefundResult struct {
	RefundRef string
	Status    string
}

// Client is the payment gateway surface the platform depends on. Amounts are
// minor units throughout.
type Client interface {
	CreateOrder(ctx context.Context, params OrderParams) (*OrderResult, error)
	Refund(ctx context.Context, params RefundParams) (*RefundResult, error)
	VerifyWebhookSignature(payload []byte, signature string) bool
}
