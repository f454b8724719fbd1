package auth

import (
	"fmt"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/foodrescue/pkg/errors"
	"github.com/golang-jwt/jwt/v5"
)

// BearerClaims is the subset of the gateway-issued access token the client reads.
type BearerClaims struct {
	UserID string `json:"userId,omitempty"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// ParseBearer decodes the token without verifying its signature. The client
// never holds the signing key; the gateway remains the authority.
func ParseBearer(tokenString string) (*BearerClaims, error) {
	tokenString = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(tokenString), "Bearer "))
	if tokenString == "" {
		return nil, fmt.Errorf("token is empty")
	}
	claims := &BearerClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
		return nil, fmt.Errorf("parse bearer token: %w", err)
	}
	return claims, nil
}

// CheckExpiry returns an UNAUTHORIZED error when the token is malformed or
// expires within leeway of now. Tokens without an exp claim pass.
func CheckExpiry(tokenString string, now time.Time, leeway time.Duration) error {
	claims, err := ParseBearer(tokenString)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid access token")
	}
	if claims.ExpiresAt == nil {
		return nil
	}
	if !now.Add(leeway).Before(claims.ExpiresAt.Time) {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "access token expired")
	}
	return nil
}
