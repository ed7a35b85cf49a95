package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Principal is the authenticated identity attached to a request. It is
// derived per request from a session lookup or token verification and
// never persisted.
type Principal struct {
	AccountID uuid.UUID `json:"account_id"`
	Email     string    `json:"email"`
}

type claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// TokenIssuer creates and verifies self-contained signed bearer tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl}
}

// Issue signs a token embedding the principal with a fixed expiry.
func (t *TokenIssuer) Issue(p Principal) (string, error) {
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.AccountID.String(),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(t.ttl)),
		},
		Email: p.Email,
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return tok.SignedString(t.secret)
}

// Verify parses and checks the token. Any failure (bad signature,
// expired, malformed) yields an error; callers treat that uniformly as
// "no principal".
func (t *TokenIssuer) Verify(token string) (*Principal, error) {
	tok, err := jwt.ParseWithClaims(token, &claims{}, func(_ *jwt.Token) (interface{}, error) {
		return t.secret, nil
	})
	if err != nil {
		return nil, err
	}
	c, ok := tok.Claims.(*claims)
	if !ok || !tok.Valid {
		return nil, errors.New("invalid token")
	}
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return nil, err
	}
	return &Principal{AccountID: id, Email: c.Email}, nil
}
