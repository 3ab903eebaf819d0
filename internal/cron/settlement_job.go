package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/canteenx/canteenx-backend/internal/settlement"
	"github.com/canteenx/canteenx-backend/pkg/db/models"
	apperrors "github.com/canteenx/canteenx-backend/pkg/errors"
	"github.com/canteenx/canteenx-backend/pkg/logger"
)

// systemActorID marks batches generated by the scheduler rather than an admin.
var systemActorID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

type vendorLister interface {
	ListVendorsWithUnsettled(ctx context.Context, start, end time.Time) ([]uuid.UUID, error)
}

type settlementGenerator interface {
	Generate(ctx context.Context, input settlement.GenerateInput) (*models.SettlementBatch, error)
}

// SettlementJobParams configures the daily settlement sweep.
type SettlementJobParams struct {
	Logger    *logger.Logger
	Vendors   vendorLister
	Generator settlementGenerator
	Actor     uuid.UUID
}

// NewSettlementJob builds the job that settles the previous UTC day for every
// vendor with unsettled ledger entries in it.
func NewSettlementJob(params SettlementJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Vendors == nil {
		return nil, fmt.Errorf("vendor lister required")
	}
	if params.Generator == nil {
		return nil, fmt.Errorf("settlement generator required")
	}
	actor := params.Actor
	if actor == uuid.Nil {
		actor = systemActorID
	}
	return &settlementJob{
		logg:      params.Logger,
		vendors:   params.Vendors,
		generator: params.Generator,
		actor:     actor,
		now:       time.Now,
	}, nil
}

type settlementJob struct {
	logg      *logger.Logger
	vendors   vendorLister
	generator settlementGenerator
	actor     uuid.UUID
	now       func() time.Time
}

func (j *settlementJob) Name() string { return "daily-settlement" }

func (j *settlementJob) Run(ctx context.Context) error {
	start, end := previousDay(j.now())
	vendors, err := j.vendors.ListVendorsWithUnsettled(ctx, start, end)
	if err != nil {
		return fmt.Errorf("list vendors with unsettled entries: %w", err)
	}

	var errs []error
	generated, skipped := 0, 0
	for _, vendorID := range vendors {
		_, err := j.generator.Generate(ctx, settlement.GenerateInput{
			VendorID:    vendorID,
			PeriodStart: start,
			PeriodEnd:   end,
			GeneratedBy: j.actor,
		})
		if err != nil {
			// A conflict means the period was already settled, an empty
			// sweep means another run got there first. Neither is a failure.
			if typed := apperrors.As(err); typed != nil &&
				(typed.Code() == apperrors.CodeConflict || typed.Code() == apperrors.CodeStateConflict) {
				skipped++
				continue
			}
			errs = append(errs, fmt.Errorf("settle vendor %s: %w", vendorID, err))
			continue
		}
		generated++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"period_start": start,
		"period_end":   end,
		"vendors":      len(vendors),
		"generated":    generated,
		"skipped":      skipped,
		"failed":       len(errs),
	})
	j.logg.Info(logCtx, "daily settlement sweep complete")
	return multierr.Combine(errs...)
}
