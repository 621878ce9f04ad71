package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/boddenberg/ledger-insights-go/internal/domain"
	"github.com/boddenberg/ledger-insights-go/internal/service"

	"go.uber.org/zap"
)

type contextKey string

const ownerIDKey contextKey = "ownerID"

// JWTAuthMiddleware admits requests carrying a valid bearer token and scopes
// them to the token's owner. Anything else is a 401.
func JWTAuthMiddleware(verifier *service.TokenVerifier, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				handleServiceError(w, &domain.ErrUnauthorized{Message: "missing bearer token"}, logger.With(zap.String("path", r.URL.Path)))
				return
			}

			claims, err := verifier.ValidateAccessToken(token)
			if err != nil {
				handleServiceError(w, err, logger.With(zap.String("path", r.URL.Path)))
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ownerIDKey, claims.OwnerID())))
		})
	}
}

// bearerToken reads "Bearer <token>"; the scheme is case-insensitive.
func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// OwnerIDFromContext returns the owner admitted by JWTAuthMiddleware, or "".
func OwnerIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ownerIDKey).(string)
	return v
}
