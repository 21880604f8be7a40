package utils // package utils provides helpers for token creation, verification and hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/marense/feedline/internal/authz"
)

// ErrInvalidToken is returned for any access token that fails verification:
// bad signature, wrong algorithm, wrong kind, malformed or expired.
var ErrInvalidToken = errors.New("invalid or expired token")

// Claims is the access-token payload. The token kind is pinned to "access"
// so a token of any other kind never verifies, and permissions ride inside
// the token so the guard needs no database lookup.
type Claims struct {
	Email       string             `json:"email"`
	TokenType   string             `json:"typ"`
	Permissions []authz.Permission `json:"permissions"`
	jwt.RegisteredClaims
}

// AccessToken is a signed JWT along with its expiry.
type AccessToken struct {
	Token string
	Exp   time.Time
}

// RefreshToken is a long-lived opaque token. Raw goes back to the client;
// only its SHA-256 hash is ever stored.
type RefreshToken struct {
	Raw string
	Exp time.Time
}

// NewAccessToken builds and signs an HS256 JWT for a user. The claims carry
// the subject id, email, token kind and the permission set.
func NewAccessToken(secret, userID, email string, perms []authz.Permission, ttlSec int) (AccessToken, error) {
	now := time.Now().UTC()
	exp := now.Add(time.Duration(ttlSec) * time.Second)
	claims := Claims{
		Email:       email,
		TokenType:   "access",
		Permissions: perms,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// VerifyAccessToken checks signature, algorithm and expiry (with the given
// clock-skew leeway) and returns the claims. Any failure maps to
// ErrInvalidToken; callers never see parser internals.
func VerifyAccessToken(secret, raw string, skew time.Duration) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithLeeway(skew))
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != "access" || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// NewRefreshToken returns an opaque random token and its expiration. The
// token is a UUIDv4 (122 bits of entropy), not a signed token: it carries no
// claims, so a leaked signing secret cannot forge one.
func NewRefreshToken(ttlDays int) RefreshToken {
	return RefreshToken{
		Raw: uuid.NewString(),
		Exp: time.Now().UTC().Add(time.Duration(ttlDays) * 24 * time.Hour),
	}
}

// HashRefreshRaw returns the SHA-256 hash of a raw refresh token as a hex
// string. The digest is deterministic so the session store can be queried by
// hash; a slow password hash would add nothing for a high-entropy token.
func HashRefreshRaw(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
