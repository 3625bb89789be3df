package middleware

import (
	"context"
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/carelog-g8/carelog/internal/core/domain"
	"github.com/carelog-g8/carelog/internal/core/services"
)

// TokenVerifier validates a bearer token and returns its claims.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*services.SessionClaims, error)
}

type AuthMiddleware struct {
	verifier TokenVerifier
	log      *zap.Logger
}

func NewAuthMiddleware(verifier TokenVerifier, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
		log:      logger,
	}
}

type contextKey string

const claimsKey contextKey = "claims"

// ClaimsFrom returns the verified session claims stored by RequireRole.
func ClaimsFrom(ctx context.Context) (*services.SessionClaims, bool) {
	c, ok := ctx.Value(claimsKey).(*services.SessionClaims)
	return c, ok
}

// CallerFrom returns the authenticated caller.
func CallerFrom(ctx context.Context) (domain.Caller, bool) {
	c, ok := ClaimsFrom(ctx)
	if !ok {
		return domain.Caller{}, false
	}
	return c.Caller(), true
}

// WithClaims stores claims in ctx the way RequireRole does.
func WithClaims(ctx context.Context, claims *services.SessionClaims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// RequireRole admits requests carrying a valid, unrevoked bearer token whose
// role is one of roles. No roles means any authenticated user.
func (m *AuthMiddleware) RequireRole(roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Claims verified by an enclosing RequireRole are reused.
			if claims, ok := ClaimsFrom(r.Context()); ok {
				m.checkRole(w, r, next, claims, roles)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				m.log.Debug("auth: missing Authorization header")
				http.Error(w, "missing authorization header", http.StatusUnauthorized)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				m.log.Debug("auth: invalid Authorization header format")
				http.Error(w, "invalid authorization header", http.StatusUnauthorized)
				return
			}

			claims, err := m.verifier.Verify(r.Context(), parts[1])
			if err != nil {
				m.log.Info("auth: token rejected", zap.Error(err))
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			m.checkRole(w, r.WithContext(WithClaims(r.Context(), claims)), next, claims, roles)
		})
	}
}

func (m *AuthMiddleware) checkRole(w http.ResponseWriter, r *http.Request, next http.Handler, claims *services.SessionClaims, roles []domain.Role) {
	if len(roles) > 0 && !slices.Contains(roles, claims.Role) {
		m.log.Info("auth: role mismatch",
			zap.String("username", claims.Subject),
			zap.String("role", string(claims.Role)),
		)
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	next.ServeHTTP(w, r)
}

// RequireHospital rejects requests whose {param} URL segment names a hospital
// other than the one the session was issued for. It must run after
// RequireRole inside a route that declares param.
func (m *AuthMiddleware) RequireHospital(param string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFrom(r.Context())
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if hospital := chi.URLParam(r, param); hospital != claims.Hospital {
				m.log.Info("auth: hospital mismatch",
					zap.String("username", claims.Subject),
					zap.String("session_hospital", claims.Hospital),
					zap.String("requested_hospital", hospital),
				)
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
