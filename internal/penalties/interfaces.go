package penalties

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dmarroquin/kitloop-backend/pkg/db/models"
)

// Repository defines persistence operations for fines and disputes.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateFine(ctx context.Context, fine *models.Fine) (*models.Fine, error)
	FindFine(ctx context.Context, fineID uuid.UUID) (*models.Fine, error)
	FindFineForUpdate(ctx context.Context, tx *gorm.DB, fineID uuid.UUID) (*models.Fine, error)
	FindLateFineByBooking(ctx context.Context, bookingID uuid.UUID) (*models.Fine, error)
	UpdateFine(ctx context.Context, fineID uuid.UUID, updates map[string]any) error
	ListFinesByBooking(ctx context.Context, bookingID uuid.UUID) ([]models.Fine, error)
	ListFinesByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.Fine, error)
	CreateDispute(ctx context.Context, dispute *models.Dispute) (*models.Dispute, error)
	FindDispute(ctx context.Context, disputeID uuid.UUID) (*models.Dispute, error)
	FindDisputeForUpdate(ctx context.Context, tx *gorm.DB, disputeID uuid.UUID) (*models.Dispute, error)
	FindOpenDisputeByFine(ctx context.Context, fineID uuid.UUID) (*models.Dispute, error)
	UpdateDispute(ctx context.Context, disputeID uuid.UUID, updates map[string]any) error
}
