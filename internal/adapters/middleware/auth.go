package middleware

import (
	"crypto/subtle"
	"net/http"

	"gitlab.com/simigo/client/datacore/internal/adapters/config"
	"gitlab.com/simigo/client/datacore/internal/domain"
)

const apiKeyHeaderName = "X-API-Key"

// AdminTokenMiddleware guards mutating debug routes. When no admin token is
// configured the routes are left open, which is the local default.
func AdminTokenMiddleware(cfgProvider config.Provider, logger domain.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			want := cfgProvider.Get().Server.AdminToken
			if want == "" {
				next.ServeHTTP(w, r)
				return
			}

			apiKey := r.Header.Get(apiKeyHeaderName)
			if apiKey == "" {
				logger.Warn(r.Context(), "Admin authentication failed: key missing", "path", r.URL.Path)
				errResp := domain.NewErrorResponse(domain.KindInvalidRequest, "API key is required", "Provide the admin key in the X-API-Key header.")
				errResp.WriteJSON(w, http.StatusUnauthorized)
				return
			}
			if subtle.ConstantTimeCompare([]byte(apiKey), []byte(want)) != 1 {
				logger.Warn(r.Context(), "Admin authentication failed: invalid key", "path", r.URL.Path)
				errResp := domain.NewErrorResponse(domain.KindInvalidRequest, "Invalid API key", "")
				errResp.WriteJSON(w, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
