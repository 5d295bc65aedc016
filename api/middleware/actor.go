package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/dmarroquin/kitloop-backend/api/responses"
	pkgerrors "github.com/dmarroquin/kitloop-backend/pkg/errors"
	"github.com/dmarroquin/kitloop-backend/pkg/logger"
)

const (
	customerIDHeader = "X-Customer-Id"
	actorRoleHeader  = "X-Actor-Role"
)

// Actor resolves the caller's identity from the gateway-injected headers.
// Authentication itself happens upstream; this service trusts the perimeter
// and only needs the ids.
func Actor(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get(customerIDHeader))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity missing"))
				return
			}
			customerID, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid customer id"))
				return
			}

			ctx := WithCustomerID(r.Context(), customerID)
			role := strings.TrimSpace(r.Header.Get(actorRoleHeader))
			if role == "" {
				role = "customer"
			}
			ctx = WithRole(ctx, role)
			if logg != nil {
				ctx = logg.WithCustomerID(ctx, customerID.String())
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
