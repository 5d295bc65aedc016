package search

import (
	"context"
	"errors"
	"sort"

	"github.com/dmarroquin/kitloop-backend/pkg/enums"
	pkgerrors "github.com/dmarroquin/kitloop-backend/pkg/errors"
	"github.com/dmarroquin/kitloop-backend/pkg/geo"
	"github.com/dmarroquin/kitloop-backend/pkg/pagination"
)

// MaxRadiusKm bounds the candidate scan when a radius is supplied.
const MaxRadiusKm = 500.0

// Service answers geo-temporal availability queries.
type Service interface {
	Search(ctx context.Context, q Query) (*ResultPage, error)
}

type service struct {
	repo Repository
}

// NewService builds the search service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, errors.New("search repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Search(ctx context.Context, q Query) (*ResultPage, error) {
	if err := normalizeQuery(&q); err != nil {
		return nil, err
	}

	candidates, err := s.repo.FindCandidates(ctx, q)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "scan candidate units")
	}

	results := make([]UnitResult, 0, len(candidates))
	for _, unit := range candidates {
		distance := geo.HaversineKm(q.Latitude, q.Longitude, unit.Latitude, unit.Longitude)
		if q.RadiusKm != nil && distance > *q.RadiusKm {
			continue
		}
		results = append(results, UnitResult{
			UnitID:            unit.ID,
			ShopID:            unit.ShopID,
			Name:              unit.Name,
			Category:          unit.Category,
			PricePerDay:       unit.PricePerDay,
			DeliveryAvailable: unit.DeliveryAvailable,
			DeliveryFee:       unit.DeliveryFee,
			DistanceKm:        distance,
			CreatedAt:         unit.CreatedAt,
		})
	}

	sortResults(results, q.Sort)

	total := len(results)
	start := q.Offset
	if start > total {
		start = total
	}
	end := start + q.Limit
	if end > total {
		end = total
	}

	return &ResultPage{
		Units:  results[start:end],
		Total:  total,
		Limit:  q.Limit,
		Offset: q.Offset,
	}, nil
}

func normalizeQuery(q *Query) error {
	if !geo.ValidCoordinate(q.Latitude, q.Longitude) {
		return pkgerrors.New(pkgerrors.CodeValidation, "latitude/longitude out of range")
	}
	if q.RadiusKm != nil {
		if *q.RadiusKm <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "radius must be positive")
		}
		if *q.RadiusKm > MaxRadiusKm {
			*q.RadiusKm = MaxRadiusKm
		}
	}
	if q.StartDate.IsZero() != q.EndDate.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "start and end dates must be supplied together")
	}
	if !q.StartDate.IsZero() && !q.EndDate.After(q.StartDate) {
		return pkgerrors.New(pkgerrors.CodeValidation, "end date must be after start date")
	}
	if q.MaxPricePerDay != nil && q.MaxPricePerDay.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "max price must not be negative")
	}
	if q.Sort == "" {
		q.Sort = enums.SearchSortNewest
	}
	if !q.Sort.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid sort")
	}
	q.Limit = pagination.NormalizeLimit(q.Limit)
	if q.Offset < 0 {
		q.Offset = 0
	}
	return nil
}

// sortResults orders ties by unit id so pages are stable between requests.
func sortResults(results []UnitResult, by enums.SearchSort) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		switch by {
		case enums.SearchSortDistance:
			if a.DistanceKm != b.DistanceKm {
				return a.DistanceKm < b.DistanceKm
			}
		case enums.SearchSortPriceAsc:
			if !a.PricePerDay.Equal(b.PricePerDay) {
				return a.PricePerDay.LessThan(b.PricePerDay)
			}
		case enums.SearchSortPriceDesc:
			if !a.PricePerDay.Equal(b.PricePerDay) {
				return a.PricePerDay.GreaterThan(b.PricePerDay)
			}
		default:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
		}
		return a.UnitID.String() < b.UnitID.String()
	})
}
