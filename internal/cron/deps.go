package cron

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// previousDay returns the half-open UTC day window that ended most recently.
func previousDay(now time.Time) (time.Time, time.Time) {
	end := now.UTC().Truncate(24 * time.Hour)
	return end.Add(-24 * time.Hour), end
}
