package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/canteenx/canteenx-backend/pkg/config"
	apperrors "github.com/canteenx/canteenx-backend/pkg/errors"
)

func newTestClient(t *testing.T, handler http.Handler) (*RazorpayClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewRazorpayClient(context.Background(), config.GatewayConfig{
		Provider:      "razorpay",
		KeyID:         "rzp_test_key",
		KeySecret:     "secret",
		BaseURL:       srv.URL,
		WebhookSecret: "whsec",
		Timeout:       2 * time.Second,
	}, nil)
	if err != nil {
		t.Fatalf("NewRazorpayClient: %v", err)
	}
	return client, srv
}

func TestRazorpayRefund(t *testing.T) {
	var gotPath string
	var gotAmount int
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		user, pass, ok := r.BasicAuth()
		if !ok || user != "rzp_test_key" || pass != "secret" {
			t.Errorf("missing basic auth: %q/%q", user, pass)
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotAmount = int(body["amount"].(float64))
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "rfnd_123", "status": "processed"})
	}))

	result, err := client.Refund(context.Background(), RefundParams{
		PaymentRef:  "pay_abc",
		AmountCents: 5000,
	})
	if err != nil {
		t.Fatalf("Refund: %v", err)
	}
	if gotPath != "/payments/pay_abc/refund" {
		t.Fatalf("unexpected path %s", gotPath)
	}
	if gotAmount != 5000 {
		t.Fatalf("unexpected amount %d", gotAmount)
	}
	if result.RefundRef != "rfnd_123" || result.Status != "processed" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestRazorpayRefundGatewayError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"code": "BAD_REQUEST_ERROR", "description": "payment already refunded"},
		})
	}))

	_, err := client.Refund(context.Background(), RefundParams{PaymentRef: "pay_abc", AmountCents: 100})
	if typed := apperrors.As(err); typed == nil || typed.Code() != apperrors.CodeValidation {
		t.Fatalf("4xx must map to validation, got %v", err)
	}
}

func TestRazorpayServerErrorMapsToDependency(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := client.CreateOrder(context.Background(), OrderParams{Receipt: "r1", AmountCents: 100})
	if typed := apperrors.As(err); typed == nil || typed.Code() != apperrors.CodeDependency {
		t.Fatalf("5xx must map to dependency, got %v", err)
	}
}

func TestVerifyWebhookSignature(t *testing.T) {
	client, _ := newTestClient(t, http.NotFoundHandler())

	payload := []byte(`{"event":"payment.captured"}`)
	mac := hmac.New(sha256.New, []byte("whsec"))
	mac.Write(payload)
	signature := hex.EncodeToString(mac.Sum(nil))

	if !client.VerifyWebhookSignature(payload, signature) {
		t.Fatal("valid signature rejected")
	}
	if client.VerifyWebhookSignature(payload, "deadbeef") {
		t.Fatal("invalid signature accepted")
	}
	if client.VerifyWebhookSignature(payload, "") {
		t.Fatal("empty signature accepted")
	}
}

func TestFakeClientRefundBounds(t *testing.T) {
	fake := NewFakeClient()
	order, err := fake.CreateOrder(context.Background(), OrderParams{Receipt: "r1", AmountCents: 1000})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	if _, err := fake.Refund(context.Background(), RefundParams{PaymentRef: order.OrderRef, AmountCents: 600}); err != nil {
		t.Fatalf("first refund: %v", err)
	}
	if _, err := fake.Refund(context.Background(), RefundParams{PaymentRef: order.OrderRef, AmountCents: 600}); err == nil {
		t.Fatal("over-refund must be rejected")
	}
	if _, err := fake.Refund(context.Background(), RefundParams{PaymentRef: order.OrderRef, AmountCents: 400}); err != nil {
		t.Fatalf("refund up to remaining must pass: %v", err)
	}
}
