package webhooks

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/canteenx/canteenx-backend/api/responses"
	"github.com/canteenx/canteenx-backend/internal/orders"
	pkgerrors "github.com/canteenx/canteenx-backend/pkg/errors"
	"github.com/canteenx/canteenx-backend/pkg/gateway"
	"github.com/canteenx/canteenx-backend/pkg/logger"
)

const maxWebhookBody = 1 << 20

type gatewayEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID               string            `json:"id"`
				OrderID          string            `json:"order_id"`
				Notes            map[string]string `json:"notes"`
				ErrorDescription string            `json:"error_description"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// Gateway receives payment events from the gateway. Capture events confirm
// the order's payment, failure events release it back to the customer.
// Events for unknown orders are acknowledged so the gateway stops retrying.
func Gateway(svc orders.Service, client gateway.Client, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read webhook payload"))
			return
		}

		signature := r.Header.Get("X-Razorpay-Signature")
		if !client.VerifyWebhookSignature(payload, signature) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook signature"))
			return
		}

		var event gatewayEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid webhook payload"))
			return
		}

		orderID, err := uuid.Parse(event.Payload.Payment.Entity.Notes["order_id"])
		if err != nil {
			// Not one of ours. Ack so the gateway stops retrying.
			if logg != nil {
				ctx := logg.WithFields(r.Context(), map[string]any{"event": event.Event})
				logg.Warn(ctx, "webhook without usable order reference")
			}
			responses.WriteSuccess(w, map[string]string{"status": "ignored"})
			return
		}

		switch event.Event {
		case "payment.captured":
			_, err = svc.ConfirmPayment(r.Context(), orders.ConfirmPaymentInput{
				OrderID:         orderID,
				GatewayOrderRef: event.Payload.Payment.Entity.ID,
			})
		case "payment.failed":
			reason := event.Payload.Payment.Entity.ErrorDescription
			if reason == "" {
				reason = "payment failed at gateway"
			}
			err = svc.FailPayment(r.Context(), orders.FailPaymentInput{
				OrderID: orderID,
				Reason:  reason,
			})
		default:
			responses.WriteSuccess(w, map[string]string{"status": "ignored"})
			return
		}

		if err != nil {
			// The order may already be in the target state from a concurrent
			// confirm call. That is a success as far as the gateway cares.
			if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeStateConflict {
				responses.WriteSuccess(w, map[string]string{"status": "already_processed"})
				return
			}
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "processed"})
	}
}
