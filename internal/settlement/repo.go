package settlement

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/canteenx/canteenx-backend/pkg/db/models"
	"github.com/canteenx/canteenx-backend/pkg/enums"
)

// Repository manages settlement batches and the sweep over ledger entries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindOverlapping(ctx context.Context, vendorID uuid.UUID, start, end time.Time) (*models.SettlementBatch, error)
	ListUnsettledInWindow(ctx context.Context, vendorID uuid.UUID, start, end time.Time) ([]models.LedgerEntry, error)
	CreateBatch(ctx context.Context, batch *models.SettlementBatch) error
	MarkEntriesSettled(ctx context.Context, entryIDs []uuid.UUID, batchID uuid.UUID) error
	FindBatchByID(ctx context.Context, id uuid.UUID) (*models.SettlementBatch, error)
	UpdateBatch(ctx context.Context, id uuid.UUID, updates map[string]any) error
	ListBatchesByVendor(ctx context.Context, vendorID uuid.UUID, limit int) ([]models.SettlementBatch, error)
	ListVendorsWithUnsettled(ctx context.Context, start, end time.Time) ([]uuid.UUID, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a settlement repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindOverlapping(ctx context.Context, vendorID uuid.UUID, start, end time.Time) (*models.SettlementBatch, error) {
	var batch models.SettlementBatch
	err := r.db.WithContext(ctx).
		Where("vendor_id = ? AND period_start < ? AND period_end > ?", vendorID, end, start).
		First(&batch).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &batch, nil
}

func (r *repository) ListUnsettledInWindow(ctx context.Context, vendorID uuid.UUID, start, end time.Time) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	err := r.db.WithContext(ctx).
		Where("vendor_id = ? AND settlement_status = ? AND occurred_at >= ? AND occurred_at < ?",
			vendorID, enums.SettlementStatusUnsettled, start, end).
		Order("occurred_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) CreateBatch(ctx context.Context, batch *models.SettlementBatch) error {
	return r.db.WithContext(ctx).Create(batch).Error
}

func (r *repository) MarkEntriesSettled(ctx context.Context, entryIDs []uuid.UUID, batchID uuid.UUID) error {
	if len(entryIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Where("id IN ?", entryIDs).
		Updates(map[string]any{
			"settlement_status":   enums.SettlementStatusSettled,
			"settlement_batch_id": batchID,
		}).Error
}

func (r *repository) FindBatchByID(ctx context.Context, id uuid.UUID) (*models.SettlementBatch, error) {
	var batch models.SettlementBatch
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&batch).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &batch, nil
}

func (r *repository) UpdateBatch(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.SettlementBatch{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) ListBatchesByVendor(ctx context.Context, vendorID uuid.UUID, limit int) ([]models.SettlementBatch, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var batches []models.SettlementBatch
	err := r.db.WithContext(ctx).
		Where("vendor_id = ?", vendorID).
		Order("period_start DESC").
		Limit(limit).
		Find(&batches).Error
	if err != nil {
		return nil, err
	}
	return batches, nil
}

func (r *repository) ListVendorsWithUnsettled(ctx context.Context, start, end time.Time) ([]uuid.UUID, error) {
	var vendorIDs []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Distinct("vendor_id").
		Where("settlement_status = ? AND occurred_at >= ? AND occurred_at < ?",
			enums.SettlementStatusUnsettled, start, end).
		Pluck("vendor_id", &vendorIDs).Error
	if err != nil {
		return nil, err
	}
	return vendorIDs, nil
}
