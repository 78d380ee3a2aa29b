package middleware

import (
	"context"
	"net/http"

	"github.com/vlago/helpdesk-backend/internal/auth"
	"github.com/vlago/helpdesk-backend/internal/core/domain"
	"github.com/vlago/helpdesk-backend/internal/core/ports"
)

// IdentityKey is the key used to store the authenticated identity in the
// request context.
const IdentityKey contextKey = "identity"

// JWTMiddleware validates the JWT token from the Authorization header and
// resolves the token subject against live account state. Tokens whose subject
// was deleted or deactivated since issuance are rejected.
func JWTMiddleware(tm *auth.TokenManager, resolver ports.IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := auth.CleanToken(r.Header.Get("Authorization"))
			if tokenString == "" {
				unauthorized(w, "Authorization header is required")
				return
			}

			claims, err := tm.ValidateToken(tokenString)
			if err != nil {
				unauthorized(w, "Invalid or expired token")
				return
			}

			identity, err := resolver.ResolveIdentity(r.Context(), claims.UserID)
			if err != nil {
				unauthorized(w, "Invalid or expired token")
				return
			}

			// Add the identity to the context for downstream handlers to use.
			ctx := context.WithValue(r.Context(), IdentityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetIdentity retrieves the authenticated identity from the request context.
func GetIdentity(ctx context.Context) (domain.Identity, bool) {
	identity, ok := ctx.Value(IdentityKey).(domain.Identity)
	return identity, ok
}

// RequireTI rejects requests whose authenticated identity is not TI staff.
// It must run after JWTMiddleware.
func RequireTI(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := GetIdentity(r.Context())
		if !ok {
			unauthorized(w, "Authentication required")
			return
		}
		if identity.Role != domain.RoleTI {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"error":"Insufficient permissions","code":"FORBIDDEN"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"` + message + `","code":"UNAUTHORIZED"}`))
}
