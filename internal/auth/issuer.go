// Package auth supplies short-lived bearer tokens per target resource and
// caches them across the reconciliation and webhook fan-out paths.
package auth

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/oauth2/clientcredentials"
)

// Issuer obtains a bearer token scoped to a resource audience.
type Issuer interface {
	Issue(ctx context.Context, resource string) (string, error)
}

// ClientCredentialsIssuer issues tokens through the OAuth2 client-credentials
// flow, one scope per resource audience.
type ClientCredentialsIssuer struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
}

func (i ClientCredentialsIssuer) Issue(ctx context.Context, resource string) (string, error) {
	resource = strings.TrimSpace(resource)
	if resource == "" {
		return "", fmt.Errorf("resource is required")
	}
	cfg := clientcredentials.Config{
		ClientID:     i.ClientID,
		ClientSecret: i.ClientSecret,
		TokenURL:     i.TokenURL,
		Scopes:       []string{fmt.Sprintf("https://%s/.default", resource)},
	}
	token, err := cfg.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("request token for %s: %w", resource, err)
	}
	return token.AccessToken, nil
}
