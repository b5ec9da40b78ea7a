package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the payload of an access token as far as the client cares.
// The signature is not verified here; the backend does that on every call.
type Claims struct {
	UserID string `json:"id"`
	jwt.RegisteredClaims
}

// ParseClaims decodes the payload of a JWT access token without verifying
// its signature.
func ParseClaims(accessToken string) (*Claims, error) {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, &claims); err != nil {
		return nil, fmt.Errorf("failed to decode access token: %w", err)
	}
	return &claims, nil
}

// expiryOf returns the exp claim of accessToken, or the zero time when the
// token is opaque or carries no expiry.
func expiryOf(accessToken string) time.Time {
	claims, err := ParseClaims(accessToken)
	if err != nil || claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}
