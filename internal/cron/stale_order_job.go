package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/canteenx/canteenx-backend/pkg/db/models"
	"github.com/canteenx/canteenx-backend/pkg/enums"
	apperrors "github.com/canteenx/canteenx-backend/pkg/errors"
	"github.com/canteenx/canteenx-backend/pkg/logger"
)

const (
	stalePendingTTL   = 30 * time.Minute
	stalePendingLimit = 500
)

type staleOrderReader interface {
	ListStalePendingIDs(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error)
}

type orderCanceler interface {
	Cancel(ctx context.Context, orderID uuid.UUID, reason string) (*models.Order, error)
}

// StaleOrderJobParams configures the pending payment expiry job.
type StaleOrderJobParams struct {
	Logger   *logger.Logger
	Reader   staleOrderReader
	Canceler orderCanceler
	TTL      time.Duration
}

// NewStaleOrderJob builds the job that cancels orders whose payment never
// arrived. Cancellation goes through the orders service so the usual state
// checks and events apply.
func NewStaleOrderJob(params StaleOrderJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Reader == nil {
		return nil, fmt.Errorf("stale order reader required")
	}
	if params.Canceler == nil {
		return nil, fmt.Errorf("order canceler required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = stalePendingTTL
	}
	return &staleOrderJob{
		logg:     params.Logger,
		reader:   params.Reader,
		canceler: params.Canceler,
		ttl:      ttl,
		now:      time.Now,
	}, nil
}

type staleOrderJob struct {
	logg     *logger.Logger
	reader   staleOrderReader
	canceler orderCanceler
	ttl      time.Duration
	now      func() time.Time
}

func (j *staleOrderJob) Name() string { return "stale-order-expiry" }

func (j *staleOrderJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	ids, err := j.reader.ListStalePendingIDs(ctx, cutoff, stalePendingLimit)
	if err != nil {
		return fmt.Errorf("list stale pending orders: %w", err)
	}

	var errs []error
	cancelled, skipped := 0, 0
	for _, orderID := range ids {
		_, err := j.canceler.Cancel(ctx, orderID, "payment window expired")
		if err != nil {
			// The order may have been paid between the read and the cancel.
			if typed := apperrors.As(err); typed != nil && typed.Code() == apperrors.CodeStateConflict {
				skipped++
				continue
			}
			errs = append(errs, fmt.Errorf("cancel order %s: %w", orderID, err))
			continue
		}
		cancelled++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":    cutoff,
		"cancelled": cancelled,
		"skipped":   skipped,
		"failed":    len(errs),
	})
	j.logg.Info(logCtx, "stale order expiry complete")
	return multierr.Combine(errs...)
}

// StaleOrderReader is the gorm-backed reader for the expiry job.
type StaleOrderReader struct {
	db *gorm.DB
}

// NewStaleOrderReader binds the reader to the provided database.
func NewStaleOrderReader(db *gorm.DB) *StaleOrderReader {
	return &StaleOrderReader{db: db}
}

func (r *StaleOrderReader) ListStalePendingIDs(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("status = ? AND placed_at < ?", enums.OrderStatusPendingPayment, cutoff).
		Order("placed_at ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}
