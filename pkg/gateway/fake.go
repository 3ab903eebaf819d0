package gateway

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	pkgerrors "github.com/canteenx/canteenx-backend/pkg/errors"
)

// FakeClient is an in-memory gateway used in dev and tests. It captures any
// order immediately and accepts refunds up to the original amount.
type FakeClient struct {
	mu      sync.Mutex
	orders  map[string]int
	refunds map[string]int
}

// NewFakeClient returns an empty in-memory gateway.
func NewFakeClient() *FakeClient {
	return &FakeClient{
		orders:  make(map[string]int),
		refunds: make(map[string]int),
	}
}

func (f *FakeClient) CreateOrder(ctx context.Context, params OrderParams) (*OrderResult, error) {
	if params.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gateway order amount must be positive")
	}
	ref := "fake_order_" + uuid.NewString()

	f.mu.Lock()
	f.orders[ref] = params.AmountCents
	f.mu.Unlock()

	return &OrderResult{OrderRef: ref, Status: "created"}, nil
}

func (f *FakeClient) Refund(ctx context.Context, params RefundParams) (*RefundResult, error) {
	if params.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund amount must be positive")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if amount, ok := f.orders[params.PaymentRef]; ok {
		refunded := f.refunds[params.PaymentRef]
		if refunded+params.AmountCents > amount {
			return nil, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("refund %d exceeds remaining %d", params.AmountCents, amount-refunded))
		}
		f.refunds[params.PaymentRef] = refunded + params.AmountCents
	}

	return &RefundResult{RefundRef: "fake_rfnd_" + uuid.NewString(), Status: "processed"}, nil
}

func (f *FakeClient) VerifyWebhookSignature(payload []byte, signature string) bool {
	return signature != ""
}
