package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cipherchat/cipherchat-back/internal/apperr"
	"github.com/cipherchat/cipherchat-back/internal/middleware"
)

// Routes assembles the HTTP handler tree with request-id and tracing
// middleware around everything, and rate limiting on the credential
// endpoints.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	var rateLimiter *middleware.RateLimiter
	if s.cache != nil {
		rateLimiter = middleware.NewRateLimiter(s.cache.GetClient())
	}

	// Public endpoints
	mux.Handle("POST /api/register", rateLimiter.Middleware(http.HandlerFunc(s.handleRegister)))
	mux.Handle("POST /api/login", rateLimiter.Middleware(http.HandlerFunc(s.handleLogin)))
	mux.HandleFunc("POST /api/refresh-token", s.handleRefreshToken)
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.Handle("/metrics", promhttp.Handler()) // Prometheus metrics endpoint

	// Pre-key directory
	mux.HandleFunc("POST /api/keys", s.requireAuth(s.handleUploadKeys))
	mux.HandleFunc("GET /api/keys/status/count", s.requireAuth(s.handleKeyCount))
	mux.HandleFunc("GET /api/keys/{username}", s.requireAuth(s.handlePreKeyBundle))

	// Encrypted file transfer
	mux.HandleFunc("POST /api/files", s.requireAuth(s.handleUploadFile))
	mux.HandleFunc("POST /api/files/download", s.requireAuth(s.handleDownloadFile))

	mux.HandleFunc("GET /ws_handler", s.handleWebSocket)

	// Apply Request ID middleware to all requests, then tracing.
	handler := middleware.RequestIDMiddleware(mux)
	handler = middleware.TracingMiddleware(handler)
	return handler
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Health(r.Context()); err != nil {
		s.logger.Error(r.Context(), "healthz: database unreachable: %v", err)
		apperr.RespondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		return
	}
	if s.cache != nil {
		if err := s.cache.Health(r.Context()); err != nil {
			s.logger.Error(r.Context(), "healthz: redis unreachable: %v", err)
			apperr.RespondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
			return
		}
	}
	apperr.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
