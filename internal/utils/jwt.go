package utils // package utils provides helpers for token issuing and password hashing

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/classmate-app/classmate/internal/model"
)

// ErrInvalidToken covers every verification failure: malformed tokens,
// wrong signatures, wrong algorithms and expired tokens alike. Callers
// are deliberately not told which, so a stolen-token probe learns
// nothing from the error.
var ErrInvalidToken = errors.New("invalid token")

// AuthToken is a signed JWT plus its expiry. Tokens are stateless:
// there is no server-side revocation list, which trades immediate
// revocation for not needing shared session storage. The default TTL is
// 24 hours.
type AuthToken struct {
	Token string    // the serialized JWT
	Exp   time.Time // UTC expiration time
}

// NewAuthToken builds and signs an HS256 JWT carrying the identity.
// Claims: sub (user id), username, role, exp and iat.
func NewAuthToken(secret string, ident model.Identity, ttl time.Duration) (AuthToken, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := jwt.MapClaims{
		"sub":      ident.ID,
		"username": ident.Username,
		"role":     string(ident.Role),
		"exp":      exp.Unix(),
		"iat":      now.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return AuthToken{}, err
	}
	return AuthToken{Token: signed, Exp: exp}, nil
}

// ParseAuthToken verifies the raw token and returns the identity it
// carries. Only HMAC-signed tokens are accepted; anything else,
// including expired tokens, yields ErrInvalidToken.
func ParseAuthToken(secret, raw string) (model.Identity, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return model.Identity{}, ErrInvalidToken
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return model.Identity{}, ErrInvalidToken
	}

	var ident model.Identity
	// Numeric JSON claims decode as float64.
	sub, ok := claims["sub"].(float64)
	if !ok || sub <= 0 {
		return model.Identity{}, ErrInvalidToken
	}
	ident.ID = uint64(sub)
	if v, ok := claims["username"].(string); ok {
		ident.Username = v
	}
	role, ok := claims["role"].(string)
	if !ok {
		return model.Identity{}, ErrInvalidToken
	}
	ident.Role = model.Role(role)
	if !ident.Role.Valid() {
		return model.Identity{}, ErrInvalidToken
	}
	return ident, nil
}
