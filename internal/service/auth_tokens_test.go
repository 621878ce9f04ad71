package service_test

import (
	"errors"
	"testing"
	"time"

	"github.com/boddenberg/ledger-insights-go/internal/domain"
	"github.com/boddenberg/ledger-insights-go/internal/service"

	"github.com/golang-jwt/jwt/v5"
)

func TestTokenVerifier_RoundTrip(t *testing.T) {
	v := service.NewTokenVerifier([]byte("secret"))

	token, err := v.SignAccessToken("owner-1", time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	claims, err := v.ValidateAccessToken(token)
	if err != nil {
		t.Fatalf("expected valid token, got %v", err)
	}
	if claims.OwnerID() != "owner-1" {
		t.Errorf("expected owner-1, got %s", claims.OwnerID())
	}
}

func TestTokenVerifier_Rejects(t *testing.T) {
	v := service.NewTokenVerifier([]byte("secret"))

	expired, _ := v.SignAccessToken("owner-1", -time.Minute)
	wrongKey, _ := service.NewTokenVerifier([]byte("other")).SignAccessToken("owner-1", time.Hour)
	noSubject, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("secret"))
	hs512, _ := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{
		Subject:   "owner-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("secret"))

	for name, token := range map[string]string{
		"expired":    expired,
		"wrong key":  wrongKey,
		"no subject": noSubject,
		"hs512":      hs512,
		"garbage":    "not.a.token",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := v.ValidateAccessToken(token)
			var unauth *domain.ErrUnauthorized
			if !errors.As(err, &unauth) {
				t.Fatalf("expected ErrUnauthorized, got %T: %v", err, err)
			}
		})
	}
}
