package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/canteenx/canteenx-backend/pkg/db/models"
	"github.com/canteenx/canteenx-backend/pkg/enums"
)

// Repository defines persistence operations for orders and their payments.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*models.Order, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) error
	UpdatePayment(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
	ListByVendor(ctx context.Context, vendorID uuid.UUID, filters ListFilters) ([]models.Order, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID, filters ListFilters) ([]models.Order, error)
}
