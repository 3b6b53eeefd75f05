package httpapi

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("httpapi: invalid or expired token")
	ErrMissingToken = errors.New("httpapi: authorization token required")
)

// TokenManager handles bearer token generation and validation for the API.
type TokenManager struct {
	secretKey []byte
	tokenTTL  time.Duration
}

// Claims represents the custom JWT claims for an API caller.
type Claims struct {
	ParticipantID string `json:"participant_id"`
	jwt.RegisteredClaims
}

// NewTokenManager creates a TokenManager with the given secret and token TTL.
// The secret should be a strong random string (e.g., 32 bytes).
func NewTokenManager(secret string, tokenTTL time.Duration) *TokenManager {
	return &TokenManager{
		secretKey: []byte(secret),
		tokenTTL:  tokenTTL,
	}
}

// Generate creates a signed token for the given participant.
func (m *TokenManager) Generate(participantID string) (string, error) {
	now := time.Now()
	claims := &Claims{
		ParticipantID: participantID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secretKey)
	if err != nil {
		return "", fmt.Errorf("httpapi: failed to sign token: %w", err)
	}

	return signed, nil
}

// Validate parses and validates a token, returning the claims if valid.
func (m *TokenManager) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return m.secretKey, nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.ParticipantID == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
