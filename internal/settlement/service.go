package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/canteenx/canteenx-backend/pkg/db"
	"github.com/canteenx/canteenx-backend/pkg/db/models"
	"github.com/canteenx/canteenx-backend/pkg/enums"
	apperrors "github.com/canteenx/canteenx-backend/pkg/errors"
	"github.com/canteenx/canteenx-backend/pkg/logger"
	"github.com/canteenx/canteenx-backend/pkg/metrics"
	"github.com/canteenx/canteenx-backend/pkg/outbox"
	"github.com/canteenx/canteenx-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// GenerateInput identifies the vendor and half-open period to settle.
type GenerateInput struct {
	VendorID    uuid.UUID `json:"vendor_id"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
	GeneratedBy uuid.UUID `json:"generated_by"`
}

// Service freezes unsettled ledger entries into payout batches.
type Service interface {
	Generate(ctx context.Context, input GenerateInput) (*models.SettlementBatch, error)
	MarkExported(ctx context.Context, batchID uuid.UUID) (*models.SettlementBatch, error)
	GetBatch(ctx context.Context, batchID uuid.UUID) (*models.SettlementBatch, error)
	ListBatches(ctx context.Context, vendorID uuid.UUID, limit int) ([]models.SettlementBatch, error)
}

type service struct {
	repo    Repository
	tx      txRunner
	outbox  outboxPublisher
	metrics *metrics.LedgerMetrics
	logg    *logger.Logger
}

// NewService wires the settlement service. Metrics and logger may be nil.
func NewService(repo Repository, tx txRunner, outbox outboxPublisher, m *metrics.LedgerMetrics, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("settlement repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, tx: tx, outbox: outbox, metrics: m, logg: logg}, nil
}

// Generate sweeps the vendor's unsettled entries whose occurred_at falls in
// [PeriodStart, PeriodEnd) into a new batch. The unique and exclusion
// constraints on settlement_batches are the authoritative guard; the overlap
// pre-check only produces a friendlier error for the common case.
func (s *service) Generate(ctx context.Context, input GenerateInput) (*models.SettlementBatch, error) {
	if input.VendorID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "vendor id is required")
	}
	if input.GeneratedBy == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "generated_by is required")
	}
	if input.PeriodStart.IsZero() || input.PeriodEnd.IsZero() {
		return nil, apperrors.New(apperrors.CodeValidation, "period start and end are required")
	}
	if !input.PeriodStart.Before(input.PeriodEnd) {
		return nil, apperrors.New(apperrors.CodeValidation, "period start must be before period end")
	}

	var batch *models.SettlementBatch
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		existing, err := repo.FindOverlapping(ctx, input.VendorID, input.PeriodStart, input.PeriodEnd)
		if err != nil {
			return apperrors.Wrap(apperrors.CodeDependency, err, "checking for overlapping batches")
		}
		if existing != nil {
			return apperrors.New(apperrors.CodeConflict,
				fmt.Sprintf("period overlaps batch %s [%s, %s)", existing.ID,
					existing.PeriodStart.Format(time.RFC3339), existing.PeriodEnd.Format(time.RFC3339)))
		}

		entries, err := repo.ListUnsettledInWindow(ctx, input.VendorID, input.PeriodStart, input.PeriodEnd)
		if err != nil {
			return apperrors.Wrap(apperrors.CodeDependency, err, "sweeping unsettled entries")
		}
		if len(entries) == 0 {
			return apperrors.New(apperrors.CodeStateConflict, "no unsettled entries in period")
		}

		food, tax, fee, payable := 0, 0, 0, 0
		orderIDs := make(map[uuid.UUID]struct{})
		entryIDs := make([]uuid.UUID, 0, len(entries))
		for _, e := range entries {
			food += e.GrossCents - e.TaxCents - e.PlatformFeeCents
			tax += e.TaxCents
			fee += e.PlatformFeeCents
			payable += e.NetCents
			entryIDs = append(entryIDs, e.ID)
			if e.OrderID != nil {
				orderIDs[*e.OrderID] = struct{}{}
			}
		}

		candidate := &models.SettlementBatch{
			VendorID:           input.VendorID,
			PeriodStart:        input.PeriodStart,
			PeriodEnd:          input.PeriodEnd,
			FoodCents:          food,
			TaxCents:           tax,
			PlatformFeeCents:   fee,
			VendorPayableCents: payable,
			OrderCount:         len(orderIDs),
			Status:             enums.SettlementBatchStatusCreated,
			GeneratedBy:        input.GeneratedBy,
		}
		if err := repo.CreateBatch(ctx, candidate); err != nil {
			if dbpkg.IsUniqueViolation(err, "ux_settlement_batches_vendor_period") ||
				dbpkg.IsExclusionViolation(err, "ex_settlement_batches_overlap") {
				s.metrics.IncSettlement("conflict")
				return apperrors.Wrap(apperrors.CodeConflict, err, "period already settled concurrently")
			}
			return apperrors.Wrap(apperrors.CodeDependency, err, "inserting settlement batch")
		}

		if err := repo.MarkEntriesSettled(ctx, entryIDs, candidate.ID); err != nil {
			return apperrors.Wrap(apperrors.CodeDependency, err, "marking entries settled")
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSettlementGenerated,
			AggregateType: enums.AggregateSettlementBatch,
			AggregateID:   candidate.ID,
			Version:       1,
			Data: payloads.SettlementGeneratedEvent{
				BatchID:            candidate.ID,
				VendorID:           candidate.VendorID,
				PeriodStart:        candidate.PeriodStart,
				PeriodEnd:          candidate.PeriodEnd,
				VendorPayableCents: candidate.VendorPayableCents,
				OrderCount:         candidate.OrderCount,
			},
		}); err != nil {
			return err
		}

		batch = candidate
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncSettlement("generated")
	s.metrics.ObservePayable(batch.VendorID.String(), batch.VendorPayableCents)
	if s.logg != nil {
		logCtx := s.logg.WithVendorID(ctx, batch.VendorID.String())
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"batch_id":      batch.ID.String(),
			"payable_cents": batch.VendorPayableCents,
			"order_count":   batch.OrderCount,
		})
		s.logg.Info(logCtx, "settlement batch generated")
	}
	return batch, nil
}

// MarkExported flags the batch as handed to finance. Replays return the
// batch unchanged.
func (s *service) MarkExported(ctx context.Context, batchID uuid.UUID) (*models.SettlementBatch, error) {
	if batchID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "batch id is required")
	}

	var exported *models.SettlementBatch
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		batch, err := repo.FindBatchByID(ctx, batchID)
		if err != nil {
			return apperrors.Wrap(apperrors.CodeDependency, err, "loading batch")
		}
		if batch == nil {
			return apperrors.New(apperrors.CodeNotFound, "settlement batch not found")
		}
		if batch.Status == enums.SettlementBatchStatusExported {
			exported = batch
			return nil
		}

		now := time.Now().UTC()
		if err := repo.UpdateBatch(ctx, batch.ID, map[string]any{
			"status":      enums.SettlementBatchStatusExported,
			"exported_at": now,
		}); err != nil {
			return apperrors.Wrap(apperrors.CodeDependency, err, "marking batch exported")
		}
		batch.Status = enums.SettlementBatchStatusExported
		batch.ExportedAt = &now

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSettlementExported,
			AggregateType: enums.AggregateSettlementBatch,
			AggregateID:   batch.ID,
			Version:       1,
			Data: payloads.SettlementExportedEvent{
				BatchID:    batch.ID,
				VendorID:   batch.VendorID,
				ExportedAt: now,
			},
		}); err != nil {
			return err
		}
		exported = batch
		return nil
	})
	if err != nil {
		return nil, err
	}
	return exported, nil
}

func (s *service) GetBatch(ctx context.Context, batchID uuid.UUID) (*models.SettlementBatch, error) {
	if batchID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "batch id is required")
	}
	batch, err := s.repo.FindBatchByID(ctx, batchID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "loading batch")
	}
	if batch == nil {
		return nil, apperrors.New(apperrors.CodeNotFound, "settlement batch not found")
	}
	return batch, nil
}

func (s *service) ListBatches(ctx context.Context, vendorID uuid.UUID, limit int) ([]models.SettlementBatch, error) {
	if vendorID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "vendor id is required")
	}
	return s.repo.ListBatchesByVendor(ctx, vendorID, limit)
}
