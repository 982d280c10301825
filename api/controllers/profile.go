package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/calderahq/storefront-backend/api/middleware"
	"github.com/calderahq/storefront-backend/api/responses"
	"github.com/calderahq/storefront-backend/internal/auth"
	pkgerrors "github.com/calderahq/storefront-backend/pkg/errors"
	"github.com/calderahq/storefront-backend/pkg/logger"
)

// Me returns the authenticated caller's sanitized profile.
func Me(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		userID, err := uuid.Parse(middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid identity"))
			return
		}

		profile, err := svc.Profile(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, profile)
	}
}
