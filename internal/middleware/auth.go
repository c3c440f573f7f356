package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/service"
)

type callerKey struct{}

// Authenticator turns a bearer token into a caller
type Authenticator interface {
	Authenticate(ctx context.Context, token, ip string) (service.Caller, error)
}

// Authenticate validates the "Authorization: Bearer <token>" header, loads
// the user and resolves its capabilities once, and stores the resulting
// caller in the request context.
func Authenticate(a Authenticator, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				writeError(w, http.StatusUnauthorized, "Authorization header is required")
				return
			}

			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				writeError(w, http.StatusUnauthorized, "Invalid authorization header format. Use: Bearer <token>")
				return
			}

			caller, err := a.Authenticate(r.Context(), strings.TrimSpace(token), clientIP(r))
			if err != nil {
				if errors.Is(err, service.ErrUnauthenticated) {
					logger.Debug("authentication rejected", "error", err, "path", r.URL.Path)
					writeError(w, http.StatusUnauthorized, "Invalid or expired token")
					return
				}
				logger.Error("authentication failed", "error", err)
				writeError(w, http.StatusInternalServerError, "Internal server error")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
		})
	}
}

// WithCaller returns a copy of ctx carrying c
func WithCaller(ctx context.Context, c service.Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// CallerFrom returns the caller stored by Authenticate
func CallerFrom(ctx context.Context) (service.Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(service.Caller)
	return c, ok
}

// clientIP strips the port from RemoteAddr, which chi's RealIP middleware
// has already replaced with the forwarded address when present.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
