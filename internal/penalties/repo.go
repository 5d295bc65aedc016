package penalties

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dmarroquin/kitloop-backend/pkg/db/models"
	"github.com/dmarroquin/kitloop-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a penalties repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateFine(ctx context.Context, fine *models.Fine) (*models.Fine, error) {
	if err := r.db.WithContext(ctx).Create(fine).Error; err != nil {
		return nil, err
	}
	return fine, nil
}

func (r *repository) FindFine(ctx context.Context, fineID uuid.UUID) (*models.Fine, error) {
	var fine models.Fine
	err := r.db.WithContext(ctx).
		Preload("Dispute").
		Where("id = ?", fineID).
		First(&fine).Error
	if err != nil {
		return nil, err
	}
	return &fine, nil
}

func (r *repository) FindFineForUpdate(ctx context.Context, tx *gorm.DB, fineID uuid.UUID) (*models.Fine, error) {
	db := r.db
	if tx != nil {
		db = tx
	}
	var fine models.Fine
	err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", fineID).
		First(&fine).Error
	if err != nil {
		return nil, err
	}
	return &fine, nil
}

func (r *repository) FindLateFineByBooking(ctx context.Context, bookingID uuid.UUID) (*models.Fine, error) {
	var fine models.Fine
	err := r.db.WithContext(ctx).
		Where("booking_id = ? AND type = ?", bookingID, enums.FineTypeLate).
		First(&fine).Error
	if err != nil {
		return nil, err
	}
	return &fine, nil
}

func (r *repository) UpdateFine(ctx context.Context, fineID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Fine{}).
		Where("id = ?", fineID).
		Updates(updates).Error
}

func (r *repository) ListFinesByBooking(ctx context.Context, bookingID uuid.UUID) ([]models.Fine, error) {
	var fines []models.Fine
	err := r.db.WithContext(ctx).
		Preload("Dispute").
		Where("booking_id = ?", bookingID).
		Order("created_at ASC").
		Find(&fines).Error
	if err != nil {
		return nil, err
	}
	return fines, nil
}

func (r *repository) ListFinesByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.Fine, error) {
	var fines []models.Fine
	err := r.db.WithContext(ctx).
		Preload("Dispute").
		Joins("JOIN bookings ON bookings.id = fines.booking_id").
		Where("bookings.customer_id = ?", customerID).
		Order("fines.created_at DESC").
		Find(&fines).Error
	if err != nil {
		return nil, err
	}
	return fines, nil
}

func (r *repository) CreateDispute(ctx context.Context, dispute *models.Dispute) (*models.Dispute, error) {
	if err := r.db.WithContext(ctx).Create(dispute).Error; err != nil {
		return nil, err
	}
	return dispute, nil
}

func (r *repository) FindDispute(ctx context.Context, disputeID uuid.UUID) (*models.Dispute, error) {
	var dispute models.Dispute
	err := r.db.WithContext(ctx).
		Where("id = ?", disputeID).
		First(&dispute).Error
	if err != nil {
		return nil, err
	}
	return &dispute, nil
}

func (r *repository) FindDisputeForUpdate(ctx context.Context, tx *gorm.DB, disputeID uuid.UUID) (*models.Dispute, error) {
	db := r.db
	if tx != nil {
		db = tx
	}
	var dispute models.Dispute
	err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", disputeID).
		First(&dispute).Error
	if err != nil {
		return nil, err
	}
	return &dispute, nil
}

func (r *repository) FindOpenDisputeByFine(ctx context.Context, fineID uuid.UUID) (*models.Dispute, error) {
	var dispute models.Dispute
	err := r.db.WithContext(ctx).
		Where("fine_id = ?", fineID).
		Where("status IN ?", []enums.DisputeStatus{enums.DisputeStatusOpen, enums.DisputeStatusInReview}).
		First(&dispute).Error
	if err != nil {
		return nil, err
	}
	return &dispute, nil
}

func (r *repository) UpdateDispute(ctx context.Context, disputeID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Dispute{}).
		Where("id = ?", disputeID).
		Updates(updates).Error
}
