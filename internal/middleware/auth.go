package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"

	"github.com/2beens/gymplanner/internal/telemetry/tracing"
	"github.com/2beens/gymplanner/pkg"
)

type AuthMiddlewareHandler struct {
	token        string
	allowedPaths map[string]bool
}

// NewAuthMiddlewareHandler guards the bridge with a static bearer token.
// An empty token turns the check off.
func NewAuthMiddlewareHandler(token string) *AuthMiddlewareHandler {
	return &AuthMiddlewareHandler{
		token: token,
		allowedPaths: map[string]bool{
			"/":        true,
			"/healthz": true,
			"/version": true,
		},
	}
}

func (h *AuthMiddlewareHandler) AuthCheck() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, span := tracing.GlobalTracer.Start(r.Context(), "middleware.auth")
			defer span.End()

			if h.token == "" || r.Method == http.MethodOptions || h.allowedPaths[r.URL.Path] {
				span.SetStatus(codes.Ok, "ok")
				next.ServeHTTP(w, r)
				return
			}

			authToken, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !found || authToken == "" {
				log.Tracef("[missing token] [auth middleware] unauthorized => %s", r.URL.Path)
				pkg.WriteJSONError(w, "no can do", http.StatusUnauthorized)
				span.SetStatus(codes.Error, "missing-auth-token")
				return
			}
			if subtle.ConstantTimeCompare([]byte(authToken), []byte(h.token)) != 1 {
				log.Tracef("[invalid token] [auth middleware] unauthorized => %s", r.URL.Path)
				pkg.WriteJSONError(w, "no can do", http.StatusUnauthorized)
				span.SetStatus(codes.Error, "invalid-auth-token")
				return
			}

			span.SetStatus(codes.Ok, "ok")
			next.ServeHTTP(w, r)
		})
	}
}
