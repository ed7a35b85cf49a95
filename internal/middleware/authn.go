package middleware

import (
	"net/http"

	"github.com/craftfolio/backend/internal/auth"
	"github.com/craftfolio/backend/internal/response"
)

// Authenticate resolves the request through the configured verifier and
// stores the principal in context. Requests without a valid credential
// get a generic 401: the body never reveals which check failed.
func Authenticate(v auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := v.Resolve(r)
			if err != nil {
				response.Err(w, http.StatusInternalServerError, "internal error")
				return
			}
			if p == nil {
				response.Err(w, http.StatusUnauthorized, "authentication required")
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), p)))
		})
	}
}
