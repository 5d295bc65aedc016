package search

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmarroquin/kitloop-backend/pkg/db/models"
	"github.com/dmarroquin/kitloop-backend/pkg/enums"
	pkgerrors "github.com/dmarroquin/kitloop-backend/pkg/errors"
)

type stubRepo struct {
	findCandidates func(ctx context.Context, q Query) ([]models.RentalUnit, error)
}

func (s stubRepo) FindCandidates(ctx context.Context, q Query) ([]models.RentalUnit, error) {
	if s.findCandidates != nil {
		return s.findCandidates(ctx, q)
	}
	return nil, nil
}

func testUnit(name string, lat, lng float64, price string, age time.Duration) models.RentalUnit {
	return models.RentalUnit{
		ID:          uuid.New(),
		ShopID:      uuid.New(),
		Name:        name,
		Category:    "drill",
		Latitude:    lat,
		Longitude:   lng,
		PricePerDay: decimal.RequireFromString(price),
		Available:   true,
		Quantity:    1,
		CreatedAt:   time.Now().Add(-age),
	}
}

func km(v float64) *float64 {
	return &v
}

func testQuery() Query {
	return Query{
		Latitude:  52.52,
		Longitude: 13.405,
		RadiusKm:  km(50),
		StartDate: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 4, 5, 0, 0, 0, 0, time.UTC),
	}
}

func TestSearchValidation(t *testing.T) {
	svc, err := NewService(stubRepo{})
	require.NoError(t, err)

	t.Run("rejects bad coordinates", func(t *testing.T) {
		q := testQuery()
		q.Latitude = 95
		_, err := svc.Search(context.Background(), q)
		assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
	})

	t.Run("rejects inverted interval", func(t *testing.T) {
		q := testQuery()
		q.EndDate = q.StartDate
		_, err := svc.Search(context.Background(), q)
		assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
	})

	t.Run("rejects unknown sort", func(t *testing.T) {
		q := testQuery()
		q.Sort = enums.SearchSort("alphabetical")
		_, err := svc.Search(context.Background(), q)
		assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
	})

	t.Run("rejects non-positive radius", func(t *testing.T) {
		q := testQuery()
		q.RadiusKm = km(-1)
		_, err := svc.Search(context.Background(), q)
		assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
	})

	t.Run("rejects a lone start date", func(t *testing.T) {
		q := testQuery()
		q.EndDate = time.Time{}
		_, err := svc.Search(context.Background(), q)
		assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
	})
}

func TestSearchWithoutRadiusKeepsDistantUnits(t *testing.T) {
	near := testUnit("near", 52.53, 13.41, "40", time.Hour)
	distant := testUnit("distant", 52.75, 13.70, "20", 2*time.Hour)

	svc, err := NewService(stubRepo{
		findCandidates: func(ctx context.Context, q Query) ([]models.RentalUnit, error) {
			return []models.RentalUnit{near, distant}, nil
		},
	})
	require.NoError(t, err)

	q := testQuery()
	q.RadiusKm = nil
	page, err := svc.Search(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, page.Units, 2)
	for _, unit := range page.Units {
		assert.Greater(t, unit.DistanceKm, 0.0)
	}
}

func TestSearchWithoutDatesSkipsTemporalFilter(t *testing.T) {
	var seen Query
	svc, err := NewService(stubRepo{
		findCandidates: func(ctx context.Context, q Query) ([]models.RentalUnit, error) {
			seen = q
			return []models.RentalUnit{testUnit("open", 52.53, 13.41, "40", time.Hour)}, nil
		},
	})
	require.NoError(t, err)

	q := testQuery()
	q.StartDate = time.Time{}
	q.EndDate = time.Time{}
	page, err := svc.Search(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, page.Units, 1)
	assert.True(t, seen.StartDate.IsZero())
	assert.True(t, seen.EndDate.IsZero())
}

func TestSearchRadiusCut(t *testing.T) {
	near := testUnit("near", 52.53, 13.41, "40", time.Hour)
	far := testUnit("far", 48.1351, 11.582, "20", time.Hour)

	svc, err := NewService(stubRepo{
		findCandidates: func(ctx context.Context, q Query) ([]models.RentalUnit, error) {
			return []models.RentalUnit{near, far}, nil
		},
	})
	require.NoError(t, err)

	page, err := svc.Search(context.Background(), testQuery())
	require.NoError(t, err)
	require.Len(t, page.Units, 1)
	assert.Equal(t, near.ID, page.Units[0].UnitID)
	assert.Greater(t, page.Units[0].DistanceKm, 0.0)
}

func TestSearchSorting(t *testing.T) {
	closeCheap := testUnit("close-cheap", 52.521, 13.406, "10", 3*time.Hour)
	midPricey := testUnit("mid-pricey", 52.60, 13.50, "90", 2*time.Hour)
	edgeMid := testUnit("edge-mid", 52.80, 13.70, "50", time.Hour)
	all := []models.RentalUnit{midPricey, edgeMid, closeCheap}

	svc, err := NewService(stubRepo{
		findCandidates: func(ctx context.Context, q Query) ([]models.RentalUnit, error) {
			return all, nil
		},
	})
	require.NoError(t, err)

	names := func(page *ResultPage) []string {
		out := make([]string, 0, len(page.Units))
		for _, u := range page.Units {
			out = append(out, u.Name)
		}
		return out
	}

	t.Run("by distance", func(t *testing.T) {
		q := testQuery()
		q.Sort = enums.SearchSortDistance
		page, err := svc.Search(context.Background(), q)
		require.NoError(t, err)
		assert.Equal(t, []string{"close-cheap", "mid-pricey", "edge-mid"}, names(page))
		for i := 1; i < len(page.Units); i++ {
			assert.LessOrEqual(t, page.Units[i-1].DistanceKm, page.Units[i].DistanceKm)
		}
	})

	t.Run("by price ascending", func(t *testing.T) {
		q := testQuery()
		q.Sort = enums.SearchSortPriceAsc
		page, err := svc.Search(context.Background(), q)
		require.NoError(t, err)
		assert.Equal(t, []string{"close-cheap", "edge-mid", "mid-pricey"}, names(page))
	})

	t.Run("by price descending", func(t *testing.T) {
		q := testQuery()
		q.Sort = enums.SearchSortPriceDesc
		page, err := svc.Search(context.Background(), q)
		require.NoError(t, err)
		assert.Equal(t, []string{"mid-pricey", "edge-mid", "close-cheap"}, names(page))
	})

	t.Run("newest by default", func(t *testing.T) {
		page, err := svc.Search(context.Background(), testQuery())
		require.NoError(t, err)
		assert.Equal(t, []string{"edge-mid", "mid-pricey", "close-cheap"}, names(page))
	})
}

func TestSearchPagination(t *testing.T) {
	units := make([]models.RentalUnit, 0, 5)
	for i := 0; i < 5; i++ {
		units = append(units, testUnit("u", 52.52, 13.405, "25", time.Duration(i)*time.Hour))
	}
	svc, err := NewService(stubRepo{
		findCandidates: func(ctx context.Context, q Query) ([]models.RentalUnit, error) {
			return units, nil
		},
	})
	require.NoError(t, err)

	q := testQuery()
	q.Limit = 2
	q.Offset = 4

	page, err := svc.Search(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	assert.Len(t, page.Units, 1)

	q.Offset = 10
	page, err = svc.Search(context.Background(), q)
	require.NoError(t, err)
	assert.Empty(t, page.Units)
}
