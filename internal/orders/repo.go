package orders

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/canteenx/canteenx-backend/pkg/db/models"
	"github.com/canteenx/canteenx-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Payment").
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Payment").
		Where("idempotency_key = ?", key).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (r *repository) UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("status", status).Error
}

func (r *repository) UpdatePayment(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("order_id = ?", orderID).
		Updates(updates).Error
}

func (r *repository) ListByVendor(ctx context.Context, vendorID uuid.UUID, filters ListFilters) ([]models.Order, error) {
	return r.list(ctx, "vendor_id = ?", vendorID, filters)
}

func (r *repository) ListByCustomer(ctx context.Context, customerID uuid.UUID, filters ListFilters) ([]models.Order, error) {
	return r.list(ctx, "customer_id = ?", customerID, filters)
}

func (r *repository) list(ctx context.Context, cond string, id uuid.UUID, filters ListFilters) ([]models.Order, error) {
	q := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Payment").
		Where(cond, id)

	if filters.Status != nil {
		q = q.Where("status = ?", *filters.Status)
	}
	if filters.OrderType != nil {
		q = q.Where("order_type = ?", *filters.OrderType)
	}
	if filters.PlacedFrom != nil {
		q = q.Where("placed_at >= ?", *filters.PlacedFrom)
	}
	if filters.PlacedTo != nil {
		q = q.Where("placed_at < ?", *filters.PlacedTo)
	}

	limit := filters.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var orders []models.Order
	if err := q.Order("placed_at DESC").Limit(limit).Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}
