// internal/scoring/runner/http.go
package runner

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"talent-scoring/internal/common/errors"
	"talent-scoring/internal/common/logger"
)

// Handler exposes the pipeline trigger over HTTP for the external cron
// scheduler.
type Handler struct {
	runner *Runner
	secret string
	logger logger.Logger
}

func NewHandler(r *Runner, secret string, log logger.Logger) *Handler {
	return &Handler{
		runner: r,
		secret: secret,
		logger: log.WithFields(map[string]interface{}{"component": "cron-handler"}),
	}
}

// ServeHTTP handles GET /cron/scoring. The shared secret is checked before
// any work starts; a rejected request has no side effects.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	provided := r.Header.Get("X-Cron-Secret")
	if subtle.ConstantTimeCompare([]byte(provided), []byte(h.secret)) != 1 {
		h.logger.Warn("cron trigger rejected, bad secret", map[string]interface{}{
			"remoteAddr": r.RemoteAddr,
		})
		authErr := errors.NewAuthorizationError("X-Cron-Secret header missing or invalid")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(authErr)
		return
	}

	phase := ParsePhase(r.URL.Query().Get("phase"))
	summary := h.runner.Run(r.Context(), phase)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(summary); err != nil {
		h.logger.Error("failed to encode summary", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
