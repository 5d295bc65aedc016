package controllers

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dmarroquin/kitloop-backend/api/responses"
	"github.com/dmarroquin/kitloop-backend/api/validators"
	"github.com/dmarroquin/kitloop-backend/internal/search"
	"github.com/dmarroquin/kitloop-backend/pkg/enums"
	pkgerrors "github.com/dmarroquin/kitloop-backend/pkg/errors"
	"github.com/dmarroquin/kitloop-backend/pkg/logger"
)

// SearchUnits answers geo-temporal availability queries. All filters arrive
// as query parameters; the interval, when present, is a pair of calendar
// dates.
func SearchUnits(svc search.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "search service unavailable"))
			return
		}

		lat, _, err := validators.ParseQueryFloat(r, "lat", true)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lng, _, err := validators.ParseQueryFloat(r, "lng", true)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		radius, radiusSet, err := validators.ParseQueryFloat(r, "radius_km", false)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		start, _, err := validators.ParseQueryDate(r, "start_date", false)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		end, _, err := validators.ParseQueryDate(r, "end_date", false)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		offset, err := validators.ParseQueryInt(r, "offset", 0, 0, 10000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		query := search.Query{
			Latitude:     lat,
			Longitude:    lng,
			StartDate:    start,
			EndDate:      end,
			Category:     strings.TrimSpace(r.URL.Query().Get("category")),
			DeliveryOnly: r.URL.Query().Get("delivery_only") == "true",
			Limit:        limit,
			Offset:       offset,
		}
		if radiusSet {
			query.RadiusKm = &radius
		}

		if raw := strings.TrimSpace(r.URL.Query().Get("max_price_per_day")); raw != "" {
			price, err := decimal.NewFromString(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be numeric").WithDetails(map[string]any{"field": "max_price_per_day"}))
				return
			}
			query.MaxPricePerDay = &price
		}

		sort, err := enums.ParseSearchSort(r.URL.Query().Get("sort"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid sort"))
			return
		}
		query.Sort = sort

		page, err := svc.Search(r.Context(), query)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}
