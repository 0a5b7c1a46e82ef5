package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"voiceagent-platform/internal/config"
)

func signToken(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := tok.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func operatorClaims(now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "issuer",
			Audience:  jwt.ClaimStrings{"aud"},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(15 * time.Minute)),
		},
		UserID: "op-1",
		Role:   "operator",
	}
}

func TestVerifyAcceptsWellFormedToken(t *testing.T) {
	m, err := NewManager(config.AuthConfig{JWTSecret: "secret", JWTIssuer: "issuer", JWTAudience: "aud"})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}

	now := time.Unix(1700000000, 0).UTC()
	raw := signToken(t, "secret", operatorClaims(now))

	claims, err := m.Verify(raw, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.UserID != "op-1" || claims.Role != "operator" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	m, _ := NewManager(config.AuthConfig{JWTSecret: "secret", JWTIssuer: "issuer", JWTAudience: "aud"})
	now := time.Unix(1700000000, 0).UTC()
	raw := signToken(t, "secret", operatorClaims(now))

	if _, err := m.Verify(raw, now.Add(16*time.Minute)); err == nil {
		t.Fatalf("expected expiry error")
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	m, _ := NewManager(config.AuthConfig{JWTSecret: "secret"})
	now := time.Unix(1700000000, 0).UTC()
	raw := signToken(t, "other-secret", operatorClaims(now))

	if _, err := m.Verify(raw, now); err == nil {
		t.Fatalf("expected signature error")
	}
}

func TestVerifyRequiresIdentityClaims(t *testing.T) {
	m, _ := NewManager(config.AuthConfig{JWTSecret: "secret", JWTIssuer: "issuer", JWTAudience: "aud"})
	now := time.Unix(1700000000, 0).UTC()
	c := operatorClaims(now)
	c.UserID = ""
	raw := signToken(t, "secret", c)

	if _, err := m.Verify(raw, now); err == nil {
		t.Fatalf("expected user_id error")
	}
}
