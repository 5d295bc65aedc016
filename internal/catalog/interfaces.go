package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dmarroquin/kitloop-backend/pkg/db/models"
)

// Repository defines read operations over the unit catalog. Catalog writes
// happen in the shop-owner surface and are out of scope here.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindUnit(ctx context.Context, unitID uuid.UUID) (*models.RentalUnit, error)
	FindUnitForUpdate(ctx context.Context, tx *gorm.DB, unitID uuid.UUID) (*models.RentalUnit, error)
	FindShop(ctx context.Context, shopID uuid.UUID) (*models.Shop, error)
	FindFeePolicy(ctx context.Context, unitID uuid.UUID) (*models.FeePolicy, error)
	UpsertFeePolicy(ctx context.Context, policy *models.FeePolicy) error
}
