package httpapi

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("test-secret", time.Hour)

	token, err := tm.Generate("alice")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if token == "" {
		t.Fatalf("Generate() returned empty token")
	}

	claims, err := tm.Validate(token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if claims.ParticipantID != "alice" {
		t.Fatalf("expected participant alice, got %q", claims.ParticipantID)
	}
}

func TestTokenRejectsWrongSecret(t *testing.T) {
	issuer := NewTokenManager("secret-a", time.Hour)
	verifier := NewTokenManager("secret-b", time.Hour)

	token, err := issuer.Generate("alice")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if _, err := verifier.Validate(token); err == nil {
		t.Fatalf("expected validation to fail for wrong secret")
	}
}

func TestTokenRejectsExpired(t *testing.T) {
	tm := NewTokenManager("test-secret", -time.Minute)

	token, err := tm.Generate("alice")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if _, err := tm.Validate(token); err == nil {
		t.Fatalf("expected validation to fail for expired token")
	}
}

func TestTokenRejectsGarbage(t *testing.T) {
	tm := NewTokenManager("test-secret", time.Hour)

	if _, err := tm.Validate("definitely-not-a-token"); err == nil {
		t.Fatalf("expected validation to fail for malformed token")
	}
}

func TestTokenRejectsMissingParticipant(t *testing.T) {
	tm := NewTokenManager("test-secret", time.Hour)

	// Signed with the right secret but carrying no participant identity.
	raw := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	})
	token, err := raw.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	if _, err := tm.Validate(token); err == nil {
		t.Fatalf("expected validation to fail for missing participant")
	}
}
