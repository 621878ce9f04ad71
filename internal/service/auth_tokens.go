package service

import (
	"fmt"
	"time"

	"github.com/boddenberg/ledger-insights-go/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

// ============================================================
// Bearer tokens: the subject claim is the ledger owner id
// ============================================================

// JWTClaims represents the claims read from access tokens.
type JWTClaims struct {
	jwt.RegisteredClaims
}

// OwnerID is the token subject.
func (c *JWTClaims) OwnerID() string {
	return c.Subject
}

// TokenVerifier validates HS256 bearer tokens.
type TokenVerifier struct {
	secret []byte
	issuer string
}

// NewTokenVerifier creates a verifier for tokens signed with secret.
func NewTokenVerifier(secret []byte) *TokenVerifier {
	return &TokenVerifier{secret: secret, issuer: "ledger-insights"}
}

// ValidateAccessToken parses and checks a token, requiring a subject.
func (v *TokenVerifier) ValidateAccessToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, &domain.ErrUnauthorized{Message: "invalid or expired token"}
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, &domain.ErrUnauthorized{Message: "invalid token"}
	}
	if claims.Subject == "" {
		return nil, &domain.ErrUnauthorized{Message: "token has no subject"}
	}

	return claims, nil
}

// SignAccessToken issues a token for ownerID valid for ttl. Used by the
// seeding tool and tests; production tokens come from the identity provider.
func (v *TokenVerifier) SignAccessToken(ownerID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   ownerID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    v.issuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}
