package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims decodes a bearer token's claim set without verifying its signature.
// The token was just handed to us by the issuer; only its payload matters
// here (expiry, tenant id).
func Claims(token string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("decode token claims: %w", err)
	}
	return claims, nil
}

// TenantID extracts the tenant id ("tid") claim from a bearer token.
func TenantID(token string) (string, error) {
	claims, err := Claims(token)
	if err != nil {
		return "", err
	}
	tid, ok := claims["tid"].(string)
	if !ok || tid == "" {
		return "", fmt.Errorf("token has no tenant id claim")
	}
	return tid, nil
}

func tokenExpiry(token string) (time.Time, error) {
	claims, err := Claims(token)
	if err != nil {
		return time.Time{}, err
	}
	expiry, err := claims.GetExpirationTime()
	if err != nil || expiry == nil {
		return time.Time{}, fmt.Errorf("token has no expiry claim")
	}
	return expiry.Time, nil
}
