package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// Strategy selects which verification path authenticates requests. It is
// resolved once at process start and immutable afterwards.
type Strategy string

const (
	StrategySession Strategy = "session"
	StrategyToken   Strategy = "token"
	StrategyHybrid  Strategy = "hybrid"
)

// ParseStrategy validates a configured strategy value.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategySession, StrategyToken, StrategyHybrid:
		return Strategy(s), nil
	}
	return "", fmt.Errorf("unknown auth strategy %q", s)
}

// Cookie names used by the session and token paths.
const (
	SessionCookie = "sid"
	TokenCookie   = "jwt"
)

// SessionStore is the server-side session backend. Get returns
// (nil, nil) for unknown, expired, or malformed handles; an error means
// the store itself failed.
type SessionStore interface {
	Create(ctx context.Context, p Principal) (handle string, err error)
	Get(ctx context.Context, handle string) (*Principal, error)
	Delete(ctx context.Context, handle string) error
}

// Verifier resolves a request to a principal, or to nil when the request
// carries no valid credential. Store failures surface as errors.
type Verifier interface {
	Resolve(r *http.Request) (*Principal, error)
}

// NewVerifier builds the verification path for the configured strategy.
// Hybrid tries the session path first and falls back to the token path,
// in that fixed order.
func NewVerifier(strategy Strategy, store SessionStore, issuer *TokenIssuer) Verifier {
	switch strategy {
	case StrategySession:
		return &sessionVerifier{store: store}
	case StrategyToken:
		return &tokenVerifier{issuer: issuer}
	default:
		return &hybridVerifier{
			session: &sessionVerifier{store: store},
			token:   &tokenVerifier{issuer: issuer},
		}
	}
}

type ctxPrincipalKey struct{}

// WithPrincipal returns a context carrying the given principal.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, ctxPrincipalKey{}, p)
}

// PrincipalFromCtx returns the authenticated principal or nil.
func PrincipalFromCtx(ctx context.Context) *Principal {
	p, _ := ctx.Value(ctxPrincipalKey{}).(*Principal)
	return p
}

type sessionVerifier struct {
	store SessionStore
}

func (v *sessionVerifier) Resolve(r *http.Request) (*Principal, error) {
	c, err := r.Cookie(SessionCookie)
	if err != nil || c.Value == "" {
		return nil, nil
	}
	return v.store.Get(r.Context(), c.Value)
}

type tokenVerifier struct {
	issuer *TokenIssuer
}

func (v *tokenVerifier) Resolve(r *http.Request) (*Principal, error) {
	raw := extractBearer(r)
	if raw == "" {
		if c, err := r.Cookie(TokenCookie); err == nil {
			raw = c.Value
		}
	}
	if raw == "" {
		return nil, nil
	}
	p, err := v.issuer.Verify(raw)
	if err != nil {
		// Invalid tokens are an authentication miss, not a server fault.
		return nil, nil
	}
	return p, nil
}

type hybridVerifier struct {
	session *sessionVerifier
	token   *tokenVerifier
}

func (v *hybridVerifier) Resolve(r *http.Request) (*Principal, error) {
	p, err := v.session.Resolve(r)
	if err != nil {
		return nil, err
	}
	if p != nil {
		return p, nil
	}
	return v.token.Resolve(r)
}

func extractBearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
