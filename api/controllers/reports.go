package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/canteenx/canteenx-backend/api/responses"
	"github.com/canteenx/canteenx-backend/internal/reports"
	"github.com/canteenx/canteenx-backend/pkg/enums"
	pkgerrors "github.com/canteenx/canteenx-backend/pkg/errors"
	"github.com/canteenx/canteenx-backend/pkg/logger"
)

// RevenueReport summarizes platform earnings for a period, with GST carved
// out of the collected fees.
func RevenueReport(svc reports.Service, logg *logger.Logger) http.HandlerFunc {
	return reportHandler(svc.Revenue, logg)
}

// LiabilityReport totals what the platform currently owes vendors and the
// tax authority.
func LiabilityReport(svc reports.Service, logg *logger.Logger) http.HandlerFunc {
	return reportHandler(svc.Liabilities, logg)
}

// ReconciliationReport cross-checks eligible orders against ledger entries
// for a period and reports drift and orphans.
func ReconciliationReport(svc reports.Service, logg *logger.Logger) http.HandlerFunc {
	return reportHandler(svc.Reconcile, logg)
}

func reportHandler[T any](fn func(ctx context.Context, r reports.Range) (*T, error), logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rng, err := parseReportRange(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		report, err := fn(r.Context(), rng)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}

// parseReportRange reads the half-open [from, to) window from the query
// string. Both bounds are required; vendor_id, order_type and
// settlement_status narrow the report when present.
func parseReportRange(r *http.Request) (reports.Range, error) {
	query := r.URL.Query()
	from := strings.TrimSpace(query.Get("from"))
	to := strings.TrimSpace(query.Get("to"))
	if from == "" || to == "" {
		return reports.Range{}, pkgerrors.New(pkgerrors.CodeValidation, "from and to query parameters required")
	}

	start, err := time.Parse(time.RFC3339, from)
	if err != nil {
		return reports.Range{}, pkgerrors.New(pkgerrors.CodeValidation, "timestamp must be RFC3339").WithDetails(map[string]any{"param": "from"})
	}
	end, err := time.Parse(time.RFC3339, to)
	if err != nil {
		return reports.Range{}, pkgerrors.New(pkgerrors.CodeValidation, "timestamp must be RFC3339").WithDetails(map[string]any{"param": "to"})
	}

	rng := reports.Range{Start: start, End: end}
	if raw := strings.TrimSpace(query.Get("vendor_id")); raw != "" {
		vendorID, err := uuid.Parse(raw)
		if err != nil {
			return reports.Range{}, pkgerrors.New(pkgerrors.CodeValidation, "vendor_id must be a uuid")
		}
		rng.VendorID = &vendorID
	}
	if raw := strings.TrimSpace(query.Get("order_type")); raw != "" {
		orderType, err := enums.ParseOrderType(raw)
		if err != nil {
			return reports.Range{}, pkgerrors.New(pkgerrors.CodeValidation, "unknown order_type").WithDetails(map[string]any{"param": "order_type"})
		}
		rng.OrderType = &orderType
	}
	if raw := strings.TrimSpace(query.Get("settlement_status")); raw != "" {
		status, err := enums.ParseSettlementStatus(raw)
		if err != nil {
			return reports.Range{}, pkgerrors.New(pkgerrors.CodeValidation, "unknown settlement_status").WithDetails(map[string]any{"param": "settlement_status"})
		}
		rng.SettlementStatus = &status
	}
	return rng, nil
}
