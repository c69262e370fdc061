package handlers

import (
	"io"
	"net/http"

	"github.com/diagnosis/bookfair-stalls/pkg/logger"
	"github.com/diagnosis/bookfair-stalls/pkg/response"
	"github.com/diagnosis/bookfair-stalls/services/gateway/internal/proxy"
)

const maxBodyBytes = 1 << 20

type Handlers struct {
	authProxy         *proxy.ServiceProxy
	reservationsProxy *proxy.ServiceProxy
}

func New(authProxy, reservationsProxy *proxy.ServiceProxy) *Handlers {
	return &Handlers{
		authProxy:         authProxy,
		reservationsProxy: reservationsProxy,
	}
}

// Auth forwards /auth/* to the auth service.
func (h *Handlers) Auth(w http.ResponseWriter, r *http.Request) {
	h.proxyRequest(w, r, h.authProxy)
}

// Reservations forwards /stalls and /reservations traffic.
func (h *Handlers) Reservations(w http.ResponseWriter, r *http.Request) {
	h.proxyRequest(w, r, h.reservationsProxy)
}

func (h *Handlers) proxyRequest(w http.ResponseWriter, r *http.Request, serviceProxy *proxy.ServiceProxy) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		response.BadRequest(w, "Failed to read request body")
		return
	}
	defer r.Body.Close()

	path := r.URL.EscapedPath()
	if r.URL.RawQuery != "" {
		path += "?" + r.URL.RawQuery
	}

	resp, err := serviceProxy.Forward(r.Context(), r.Method, path, body, r.Header, proxy.ClientIP(r))
	if err != nil {
		logger.ErrorContext(r.Context(), "Service proxy error", "error", err, "path", path)
		response.BadGateway(w, "Service unavailable")
		return
	}
	defer resp.Body.Close()

	// RequestID already set ours
	resp.Header.Del("X-Request-ID")
	proxy.CopyHeaders(w.Header(), resp.Header)
	w.WriteHeader(resp.StatusCode)

	if _, err := io.Copy(w, resp.Body); err != nil {
		logger.ErrorContext(r.Context(), "Failed to copy response body", "error", err)
	}
}
