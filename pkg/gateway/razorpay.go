package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/canteenx/canteenx-backend/pkg/config"
	pkgerrors "github.com/canteenx/canteenx-backend/pkg/errors"
	"github.com/canteenx/canteenx-backend/pkg/logger"
)

var (
	errKeyIDRequired     = errors.New("gateway key id is required")
	errKeySecretRequired = errors.New("gateway key secret is required")
)

// RazorpayClient talks to the Razorpay REST API with centralized auth,
// logging, and error mapping.
type RazorpayClient struct {
	httpClient    *http.Client
	baseURL       string
	keyID         string
	keySecret     string
	webhookSecret string
	logger        *logger.Logger
}

// NewRazorpayClient validates the credentials and returns a ready client.
func NewRazorpayClient(ctx context.Context, cfg config.GatewayConfig, logg *logger.Logger) (*RazorpayClient, error) {
	keyID := strings.TrimSpace(cfg.KeyID)
	if keyID == "" {
		return nil, errKeyIDRequired
	}
	keySecret := strings.TrimSpace(cfg.KeySecret)
	if keySecret == "" {
		return nil, errKeySecretRequired
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	c := &RazorpayClient{
		httpClient:    &http.Client{Timeout: timeout},
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		keyID:         keyID,
		keySecret:     keySecret,
		webhookSecret: cfg.WebhookSecret,
		logger:        logg,
	}
	if logg != nil {
		logg.Info(ctx, "razorpay client initialized")
	}
	return c, nil
}

type razorpayOrderResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type razorpayRefundResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type razorpayErrorResponse struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

func (c *RazorpayClient) CreateOrder(ctx context.Context, params OrderParams) (*OrderResult, error) {
	if params.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gateway order amount must be positive")
	}
	currency := params.Currency
	if currency == "" {
		currency = "INR"
	}

	body := map[string]any{
		"amount":   params.AmountCents,
		"currency": currency,
		"receipt":  params.Receipt,
	}
	if len(params.Notes) > 0 {
		body["notes"] = params.Notes
	}

	var resp razorpayOrderResponse
	if err := c.post(ctx, "/orders", body, &resp); err != nil {
		return nil, err
	}
	c.log(ctx, "create_order", map[string]any{"order_ref": resp.ID, "status": resp.Status})
	return &OrderResult{OrderRef: resp.ID, Status: resp.Status}, nil
}

func (c *RazorpayClient) Refund(ctx context.Context, params RefundParams) (*RefundResult, error) {
	if strings.TrimSpace(params.PaymentRef) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment reference is required")
	}
	if params.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund amount must be positive")
	}

	body := map[string]any{"amount": params.AmountCents}
	if len(params.Notes) > 0 {
		body["notes"] = params.Notes
	}

	var resp razorpayRefundResponse
	path := fmt.Sprintf("/payments/%s/refund", params.PaymentRef)
	if err := c.post(ctx, path, body, &resp); err != nil {
		return nil, err
	}
	c.log(ctx, "refund", map[string]any{"refund_ref": resp.ID, "status": resp.Status})
	return &RefundResult{RefundRef: resp.ID, Status: resp.Status}, nil
}

// VerifyWebhookSignature checks the HMAC-SHA256 hex signature Razorpay sends
// in X-Razorpay-Signature.
func (c *RazorpayClient) VerifyWebhookSignature(payload []byte, signature string) bool {
	if c.webhookSecret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(c.webhookSecret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func (c *RazorpayClient) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding gateway request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building gateway request")
	}
	req.SetBasicAuth(c.keyID, c.keySecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "calling payment gateway")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var gwErr razorpayErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&gwErr)
		msg := gwErr.Error.Description
		if msg == "" {
			msg = resp.Status
		}
		if resp.StatusCode >= 500 {
			return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("gateway error: %s", msg))
		}
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("gateway rejected request: %s", msg))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding gateway response")
		}
	}
	return nil
}

func (c *RazorpayClient) log(ctx context.Context, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{"operation": op}
	for k, v := range fields {
		logFields[k] = v
	}
	ctx = c.logger.WithFields(ctx, logFields)
	c.logger.Info(ctx, fmt.Sprintf("razorpay %s", op))
}
