package controllers

import (
	"net/http"

	"github.com/calderahq/storefront-backend/api/middleware"
	"github.com/calderahq/storefront-backend/api/responses"
)

func AdminPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]string{"scope": "admin", "status": "ok"}
		if userID := middleware.UserIDFromContext(r.Context()); userID != "" {
			payload["user_id"] = userID
		}
		responses.WriteSuccess(w, payload)
	}
}
