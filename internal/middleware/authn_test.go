package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craftfolio/backend/internal/auth"
)

type stubVerifier struct {
	principal *auth.Principal
	err       error
}

func (s *stubVerifier) Resolve(_ *http.Request) (*auth.Principal, error) {
	return s.principal, s.err
}

func TestAuthenticate(t *testing.T) {
	p := &auth.Principal{AccountID: uuid.New(), Email: "sam@example.com"}

	t.Run("valid credential reaches the handler with a principal", func(t *testing.T) {
		var got *auth.Principal
		h := Authenticate(&stubVerifier{principal: p})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = auth.PrincipalFromCtx(r.Context())
			w.WriteHeader(http.StatusNoContent)
		}))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/auth/me", nil))

		require.Equal(t, http.StatusNoContent, rec.Code)
		require.NotNil(t, got)
		assert.Equal(t, p.AccountID, got.AccountID)
	})

	t.Run("missing credential is a generic 401", func(t *testing.T) {
		called := false
		h := Authenticate(&stubVerifier{})(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			called = true
		}))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/auth/me", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.False(t, called)
		assert.Contains(t, rec.Body.String(), "authentication required")
	})

	t.Run("verifier failure is a 500, not a 401", func(t *testing.T) {
		h := Authenticate(&stubVerifier{err: errors.New("redis down")})(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			t.Fatal("handler must not run")
		}))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/auth/me", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}
