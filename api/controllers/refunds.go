package controllers

import (
	"net/http"

	"github.com/canteenx/canteenx-backend/api/responses"
	"github.com/canteenx/canteenx-backend/api/validators"
	"github.com/canteenx/canteenx-backend/internal/refunds"
	"github.com/canteenx/canteenx-backend/pkg/logger"
)

type issueRefundBody struct {
	AmountCents int    `json:"amount_cents" validate:"required,min=1"`
	Reason      string `json:"reason" validate:"required,max=500"`
}

// IssueRefund refunds part or all of a paid order. The ledger breakdown in
// the response shows how the refund was split across tax, fee, and vendor net.
func IssueRefund(svc refunds.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := parseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body issueRefundBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.IssueRefund(r.Context(), refunds.IssueRefundInput{
			OrderID:     orderID,
			AmountCents: body.AmountCents,
			Reason:      validators.SanitizeString(body.Reason, 500),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"breakdown":   result.Breakdown,
			"gateway_ref": result.GatewayRef,
		})
	}
}
