package providers

import (
	"context"
	"os"
	"strings"

	"golang.org/x/oauth2"

	apperrors "seo-agents/backend/internal/errors"
	"seo-agents/backend/pkg/models"
)

// SecretResolver turns a client's credential reference into a refresh token.
type SecretResolver interface {
	Resolve(ctx context.Context, ref string) (string, error)
}

// EnvSecrets resolves references of the form "env:NAME".
type EnvSecrets struct{}

// Resolve implements SecretResolver.
func (EnvSecrets) Resolve(_ context.Context, ref string) (string, error) {
	name, ok := strings.CutPrefix(ref, "env:")
	if !ok {
		return "", apperrors.Newf(apperrors.CodeCredentials, "unsupported credential reference %q", ref)
	}
	v := os.Getenv(name)
	if v == "" {
		return "", apperrors.Newf(apperrors.CodeCredentials, "credential %s is not set", name)
	}
	return v, nil
}

// OAuthCredentials refreshes client tokens against an OAuth2 token endpoint.
type OAuthCredentials struct {
	config  *oauth2.Config
	secrets SecretResolver
}

// NewOAuthCredentials creates a credential refresher.
func NewOAuthCredentials(clientID, clientSecret, tokenURL string, secrets SecretResolver) *OAuthCredentials {
	return &OAuthCredentials{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     oauth2.Endpoint{TokenURL: tokenURL},
		},
		secrets: secrets,
	}
}

// TokenSource returns a refreshing token source for the client, or nil when
// the client has no credentials on file.
func (c *OAuthCredentials) TokenSource(ctx context.Context, client models.Client) (oauth2.TokenSource, error) {
	if client.CredentialRef == "" {
		return nil, nil
	}
	refresh, err := c.secrets.Resolve(ctx, client.CredentialRef)
	if err != nil {
		return nil, err
	}
	return c.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refresh}), nil
}

// Refresh exchanges the client's refresh token for a fresh access token.
// Clients without credentials have nothing to refresh.
func (c *OAuthCredentials) Refresh(ctx context.Context, client models.Client) error {
	ts, err := c.TokenSource(ctx, client)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeCredentials, "resolve client credentials", err).
			WithDetail("client_id", client.ID)
	}
	if ts == nil {
		return nil
	}
	if _, err := ts.Token(); err != nil {
		return apperrors.Wrap(apperrors.CodeCredentials, "refresh client credentials", err).
			WithDetail("client_id", client.ID)
	}
	return nil
}
