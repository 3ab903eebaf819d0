package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/canteenx/canteenx-backend/api/responses"
	"github.com/canteenx/canteenx-backend/api/validators"
	"github.com/canteenx/canteenx-backend/internal/settlement"
	"github.com/canteenx/canteenx-backend/pkg/logger"
)

const maxSettlementListLimit = 100

type generateSettlementBody struct {
	VendorID    string    `json:"vendor_id" validate:"required,uuid"`
	PeriodStart time.Time `json:"period_start" validate:"required"`
	PeriodEnd   time.Time `json:"period_end" validate:"required"`
	GeneratedBy string    `json:"generated_by" validate:"required,uuid"`
}

// GenerateSettlement freezes a vendor's unsettled entries for a period into
// a payout batch. Settling the same vendor and period twice is a conflict.
func GenerateSettlement(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body generateSettlementBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		batch, err := svc.Generate(r.Context(), settlement.GenerateInput{
			VendorID:    uuid.MustParse(body.VendorID),
			PeriodStart: body.PeriodStart,
			PeriodEnd:   body.PeriodEnd,
			GeneratedBy: uuid.MustParse(body.GeneratedBy),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, batch)
	}
}

// ExportSettlement marks a batch as handed to the payout rail. Repeating the
// call returns the batch unchanged.
func ExportSettlement(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		batchID, err := parseUUIDParam(r, "batchId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		batch, err := svc.MarkExported(r.Context(), batchID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, batch)
	}
}

// GetSettlement fetches a single settlement batch with its lines.
func GetSettlement(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		batchID, err := parseUUIDParam(r, "batchId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		batch, err := svc.GetBatch(r.Context(), batchID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, batch)
	}
}

// ListVendorSettlements returns a vendor's settlement batches, newest first.
func ListVendorSettlements(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendorID, err := parseUUIDParam(r, "vendorId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 20, 1, maxSettlementListLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		batches, err := svc.ListBatches(r.Context(), vendorID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"batches": batches, "count": len(batches)})
	}
}
