package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned for a bearer token that fails to verify.
var ErrInvalidToken = errors.New("invalid token")

// Claims are the bearer token claims.
type Claims struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// User converts the claims to a SessionUser.
func (c *Claims) User() *SessionUser {
	return &SessionUser{ID: c.Subject, Name: c.Name, Email: c.Email, Role: c.Role}
}

// Tokens issues and verifies HS256 bearer tokens.
type Tokens struct {
	key    []byte
	issuer string
	ttl    time.Duration
}

// NewTokens creates a token issuer. The secret must be at least 32 bytes.
func NewTokens(secret, issuer string, ttl time.Duration) (*Tokens, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("jwt secret must be at least 32 characters")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Tokens{key: []byte(secret), issuer: issuer, ttl: ttl}, nil
}

// Issue signs a token for u and returns it with its expiry.
func (t *Tokens) Issue(u *SessionUser) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(t.ttl)
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Name:  u.Name,
		Email: u.Email,
		Role:  u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	})
	signed, err := tok.SignedString(t.key)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Parse verifies a token and returns its claims.
func (t *Tokens) Parse(raw string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return t.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
