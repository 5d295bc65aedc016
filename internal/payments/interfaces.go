package payments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dmarroquin/kitloop-backend/pkg/db/models"
)

// Repository defines persistence operations for payment intents.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateIntent(ctx context.Context, intent *models.PaymentIntent) (*models.PaymentIntent, error)
	FindIntent(ctx context.Context, intentID uuid.UUID) (*models.PaymentIntent, error)
	FindIntentByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.PaymentIntent, error)
	FindIntentByGatewayOrderIDForUpdate(ctx context.Context, tx *gorm.DB, gatewayOrderID string) (*models.PaymentIntent, error)
	FindIntentByBooking(ctx context.Context, bookingID uuid.UUID) (*models.PaymentIntent, error)
	UpdateIntent(ctx context.Context, intentID uuid.UUID, updates map[string]any) error
}
