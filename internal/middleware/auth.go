package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/hongminglow/bank-ledger-be/internal/auth"
	"github.com/hongminglow/bank-ledger-be/internal/http/respond"
	"github.com/hongminglow/bank-ledger-be/internal/models"
)

// Authenticator resolves a session token to a principal.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (models.Principal, error)
}

// Authenticate requires a valid session token, read from the session cookie
// or an "Authorization: Bearer" header, and stores the principal on the context.
func Authenticate(authn Authenticator, cookieName string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, err := authn.Authenticate(r.Context(), tokenFrom(r, cookieName))
		if err != nil {
			if errors.Is(err, auth.ErrUnauthorized) {
				respond.Error(w, http.StatusUnauthorized, "invalid or expired session")
				return
			}
			log.Printf("authenticate: %v", err)
			respond.Error(w, http.StatusInternalServerError, "internal server error")
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), principal)))
	})
}

// RequireRole rejects principals without role. It must run after Authenticate.
func RequireRole(role string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := auth.PrincipalFrom(r.Context())
		if !ok {
			respond.Error(w, http.StatusUnauthorized, "invalid or expired session")
			return
		}
		if err := auth.RequireRole(principal, role); err != nil {
			respond.Error(w, http.StatusForbidden, "access denied")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func tokenFrom(r *http.Request, cookieName string) string {
	if cookie, err := r.Cookie(cookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	header := r.Header.Get("Authorization")
	if scheme, token, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	return ""
}
