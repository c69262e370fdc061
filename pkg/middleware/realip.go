package middleware

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"

	"github.com/go-chi/chi/v5/middleware"
)

// ParseNetworks parses CIDR strings such as "10.0.0.0/8".
func ParseNetworks(cidrs []string) ([]netip.Prefix, error) {
	nets := make([]netip.Prefix, 0, len(cidrs))
	for _, c := range cidrs {
		p, err := netip.ParsePrefix(c)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted network %q: %w", c, err)
		}
		nets = append(nets, p.Masked())
	}
	return nets, nil
}

// RealIPFrom rewrites RemoteAddr from the forwarding headers, but only for
// requests whose peer is inside one of trusted. Anyone else has those
// headers removed.
func RealIPFrom(trusted []netip.Prefix) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		realIP := middleware.RealIP(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if peerTrusted(r.RemoteAddr, trusted) {
				realIP.ServeHTTP(w, r)
				return
			}
			r.Header.Del("True-Client-IP")
			r.Header.Del("X-Real-IP")
			r.Header.Del("X-Forwarded-For")
			next.ServeHTTP(w, r)
		})
	}
}

func peerTrusted(remoteAddr string, trusted []netip.Prefix) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
