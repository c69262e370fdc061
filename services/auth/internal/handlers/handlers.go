package handlers

import (
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/diagnosis/bookfair-stalls/pkg/logger"
	"github.com/diagnosis/bookfair-stalls/pkg/response"
	"github.com/diagnosis/bookfair-stalls/services/auth/internal/repository"
	"github.com/diagnosis/bookfair-stalls/services/auth/internal/service"
)

const (
	loginAttempts = 10
	loginWindow   = time.Minute
)

type Handlers struct {
	authService   service.AuthService
	rateLimitRepo repository.RateLimitRepository
}

func New(authService service.AuthService, rateLimitRepo repository.RateLimitRepository) *Handlers {
	return &Handlers{
		authService:   authService,
		rateLimitRepo: rateLimitRepo,
	}
}

// LoginRateLimit limits login and registration attempts per client IP.
func (h *Handlers) LoginRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := "login:" + getClientIP(r)

		allowed, err := h.rateLimitRepo.CheckRateLimit(r.Context(), key, loginAttempts, loginWindow)
		if err != nil {
			logger.ErrorContext(r.Context(), "Rate limit check failed", "error", err)
			// Allow request on error (fail open)
		} else if !allowed {
			response.RateLimit(w, "Too many requests. Please try again later.")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// getClientIP reads RemoteAddr only. Forwarding headers are applied upstream
// by RealIPFrom for trusted proxies.
func getClientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(dst)
}
