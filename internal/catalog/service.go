package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dmarroquin/kitloop-backend/pkg/config"
	"github.com/dmarroquin/kitloop-backend/pkg/db/models"
	pkgerrors "github.com/dmarroquin/kitloop-backend/pkg/errors"
)

// EffectivePolicy is the resolved penalty parameters for a unit, falling back
// to platform defaults when the unit has no fee policy row.
type EffectivePolicy struct {
	GraceMinutes   int
	LateFeePerHour decimal.Decimal
}

// Service exposes catalog lookups to booking and penalty flows.
type Service interface {
	GetUnit(ctx context.Context, unitID uuid.UUID) (*models.RentalUnit, error)
	GetRentableUnit(ctx context.Context, unitID uuid.UUID) (*models.RentalUnit, error)
	ResolveFeePolicy(ctx context.Context, unitID uuid.UUID) (EffectivePolicy, error)
	SetFeePolicy(ctx context.Context, policy *models.FeePolicy) error
}

type service struct {
	repo     Repo
	defaults EffectivePolicy
}

// Repo is the repository surface the service depends on.
type Repo interface {
	FindUnit(ctx context.Context, unitID uuid.UUID) (*models.RentalUnit, error)
	FindFeePolicy(ctx context.Context, unitID uuid.UUID) (*models.FeePolicy, error)
	UpsertFeePolicy(ctx context.Context, policy *models.FeePolicy) error
}

// NewService builds the catalog service with platform penalty defaults.
func NewService(repo Repo, cfg config.PenaltyConfig) (Service, error) {
	if repo == nil {
		return nil, errors.New("catalog repository required")
	}
	rate, err := decimal.NewFromString(cfg.DefaultLateFeePerHour)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid default late fee")
	}
	return &service{
		repo: repo,
		defaults: EffectivePolicy{
			GraceMinutes:   cfg.DefaultGraceMinutes,
			LateFeePerHour: rate,
		},
	}, nil
}

func (s *service) GetUnit(ctx context.Context, unitID uuid.UUID) (*models.RentalUnit, error) {
	if unitID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit id required")
	}
	unit, err := s.repo.FindUnit(ctx, unitID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "unit not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load unit")
	}
	return unit, nil
}

// GetRentableUnit loads the unit and rejects listings a customer cannot book.
func (s *service) GetRentableUnit(ctx context.Context, unitID uuid.UUID) (*models.RentalUnit, error) {
	unit, err := s.GetUnit(ctx, unitID)
	if err != nil {
		return nil, err
	}
	if !unit.Available {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "unit not available for booking")
	}
	return unit, nil
}

func (s *service) ResolveFeePolicy(ctx context.Context, unitID uuid.UUID) (EffectivePolicy, error) {
	if unitID == uuid.Nil {
		return EffectivePolicy{}, pkgerrors.New(pkgerrors.CodeValidation, "unit id required")
	}
	policy, err := s.repo.FindFeePolicy(ctx, unitID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.defaults, nil
		}
		return EffectivePolicy{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load fee policy")
	}
	return EffectivePolicy{
		GraceMinutes:   policy.GraceMinutes,
		LateFeePerHour: policy.LateFeePerHour,
	}, nil
}

func (s *service) SetFeePolicy(ctx context.Context, policy *models.FeePolicy) error {
	if policy == nil || policy.UnitID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "unit id required")
	}
	if policy.GraceMinutes < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "grace minutes must not be negative")
	}
	if policy.LateFeePerHour.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "late fee must not be negative")
	}
	if err := s.repo.UpsertFeePolicy(ctx, policy); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store fee policy")
	}
	return nil
}
