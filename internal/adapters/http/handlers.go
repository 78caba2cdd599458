package http

import (
	"context"
	"encoding/json"
	"net/http"

	"gitlab.com/simigo/client/datacore/internal/domain"
)

// Pinger reports whether a dependency is usable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CacheClearer drops the cached data of the signed-in user.
type CacheClearer interface {
	ClearForUser(ctx context.Context) error
}

// ReadyResponse is the body of GET /ready.
type ReadyResponse struct {
	Status       string            `json:"status"`
	Dependencies map[string]string `json:"dependencies"`
}

// HealthHandler answers liveness probes.
func HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"OK"}` + "\n"))
	}
}

// ReadyHandler reports the blob store, device connectivity and backend
// reachability. Only a broken blob store makes the process not ready: being
// offline is a normal state for the data core.
func ReadyHandler(store Pinger, conn domain.Connectivity, logger domain.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := ReadyResponse{Status: "READY", Dependencies: map[string]string{}}
		code := http.StatusOK

		if err := store.Ping(r.Context()); err != nil {
			logger.Warn(r.Context(), "Readiness check failed: blob store ping failed", "error", err.Error())
			resp.Dependencies["blob_store"] = "unavailable"
			resp.Status = "NOT_READY"
			code = http.StatusServiceUnavailable
		} else {
			resp.Dependencies["blob_store"] = "ok"
		}
		resp.Dependencies["network"] = onOff(conn.IsOnline(), "online", "offline")
		resp.Dependencies["backend"] = onOff(conn.BackendOnline(), "reachable", "unreachable")

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			logger.Error(r.Context(), "Failed to encode readiness response", "error", err)
		}
	}
}

// ClearCacheHandler serves POST /cache/clear.
func ClearCacheHandler(cache CacheClearer, logger domain.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cache.ClearForUser(r.Context()); err != nil {
			logger.Error(r.Context(), "Cache clear failed", "error", err)
			domain.NewErrorResponse(domain.KindServerError, "Failed to clear cache", err.Error()).WriteJSON(w, http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func onOff(ok bool, yes, no string) string {
	if ok {
		return yes
	}
	return no
}
