package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dmarroquin/kitloop-backend/pkg/db/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a catalog repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindUnit(ctx context.Context, unitID uuid.UUID) (*models.RentalUnit, error) {
	var unit models.RentalUnit
	err := r.db.WithContext(ctx).
		Preload("FeePolicy").
		Where("id = ?", unitID).
		First(&unit).Error
	if err != nil {
		return nil, err
	}
	return &unit, nil
}

// FindUnitForUpdate locks the unit row for the duration of the surrounding
// transaction. Booking writes serialize on this lock.
func (r *repository) FindUnitForUpdate(ctx context.Context, tx *gorm.DB, unitID uuid.UUID) (*models.RentalUnit, error) {
	db := r.db
	if tx != nil {
		db = tx
	}
	var unit models.RentalUnit
	err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", unitID).
		First(&unit).Error
	if err != nil {
		return nil, err
	}
	return &unit, nil
}

func (r *repository) FindShop(ctx context.Context, shopID uuid.UUID) (*models.Shop, error) {
	var shop models.Shop
	err := r.db.WithContext(ctx).
		Where("id = ?", shopID).
		First(&shop).Error
	if err != nil {
		return nil, err
	}
	return &shop, nil
}

func (r *repository) FindFeePolicy(ctx context.Context, unitID uuid.UUID) (*models.FeePolicy, error) {
	var policy models.FeePolicy
	err := r.db.WithContext(ctx).
		Where("unit_id = ?", unitID).
		First(&policy).Error
	if err != nil {
		return nil, err
	}
	return &policy, nil
}

func (r *repository) UpsertFeePolicy(ctx context.Context, policy *models.FeePolicy) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "unit_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"grace_minutes", "late_fee_per_hour", "deposit", "updated_at"}),
		}).
		Create(policy).Error
}
