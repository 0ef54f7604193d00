package middleware

import (
	"net"
	"net/http"

	"github.com/nikhilbhutani/washgeo/internal/audit"
)

// ClientIP hands the caller's address to the audit log. Mount it after
// chi's RealIP.
func ClientIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(audit.WithClientIP(r.Context(), hostOnly(r.RemoteAddr))))
	})
}

func hostOnly(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
