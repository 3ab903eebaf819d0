package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/canteenx/canteenx-backend/internal/reports"
	"github.com/canteenx/canteenx-backend/pkg/enums"
	"github.com/canteenx/canteenx-backend/pkg/logger"
	"github.com/canteenx/canteenx-backend/pkg/outbox"
	"github.com/canteenx/canteenx-backend/pkg/outbox/payloads"
)

type reconciler interface {
	Reconcile(ctx context.Context, r reports.Range) (*reports.ReconciliationReport, error)
}

type driftEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ReconciliationJobParams configures the nightly ledger cross-check.
type ReconciliationJobParams struct {
	Logger     *logger.Logger
	Reconciler reconciler
	Tx         txRunner
	Outbox     driftEmitter
}

// NewReconciliationJob builds the job that reconciles the previous UTC day.
// The reports service only reads; when it reports drift, this job queues the
// operator-facing outbox event.
func NewReconciliationJob(params ReconciliationJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Reconciler == nil {
		return nil, fmt.Errorf("reconciler required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &reconciliationJob{
		logg:       params.Logger,
		reconciler: params.Reconciler,
		tx:         params.Tx,
		outbox:     params.Outbox,
		now:        time.Now,
	}, nil
}

type reconciliationJob struct {
	logg       *logger.Logger
	reconciler reconciler
	tx         txRunner
	outbox     driftEmitter
	now        func() time.Time
}

func (j *reconciliationJob) Name() string { return "ledger-reconciliation" }

func (j *reconciliationJob) Run(ctx context.Context) error {
	start, end := previousDay(j.now())
	report, err := j.reconciler.Reconcile(ctx, reports.Range{Start: start, End: end})
	if err != nil {
		return fmt.Errorf("reconcile %s to %s: %w", start, end, err)
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"period_start":    start,
		"period_end":      end,
		"status":          report.Status,
		"eligible_orders": report.EligibleOrderCount,
		"sale_entries":    report.SaleEntryCount,
		"delta":           report.Delta,
		"drift_cents":     report.DriftCents,
	})
	if report.Status == reports.ReconciliationPass {
		j.logg.Info(logCtx, "nightly reconciliation passed")
		return nil
	}

	// Drift is a finding, not a job failure. Queue the event for operators
	// and let the scheduler run again tomorrow.
	err = j.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return j.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventReconciliationDriftFound,
			AggregateType: enums.AggregateLedgerEntry,
			AggregateID:   uuid.New(),
			Version:       1,
			Data: payloads.ReconciliationDriftEvent{
				PeriodStart:      start,
				PeriodEnd:        end,
				CapturedCents:    report.CapturedCents,
				LedgerGrossCents: report.LedgerGrossCents,
				DriftCents:       report.DriftCents,
			},
		})
	})
	if err != nil {
		return fmt.Errorf("queueing drift event: %w", err)
	}
	j.logg.Warn(logCtx, "nightly reconciliation found drift")
	return nil
}
