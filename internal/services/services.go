package services

import (
	"context"

	"golang.org/x/oauth2"
)

// OAuthService is implemented by clients that authorize through the OAuth2 authorization code flow.
type OAuthService interface {
	// GetAuthURL returns the provider URL the user must visit to grant access.
	GetAuthURL(state string) string

	// GetOAuthConfig exposes the client configuration for the callback handler.
	GetOAuthConfig() *oauth2.Config

	// OAuthenticate installs a token obtained from the authorization flow.
	OAuthenticate(ctx context.Context, token *oauth2.Token) error
}

// Refresher is implemented by clients that can re-acquire credentials before a long job.
type Refresher interface {
	Refresh(ctx context.Context) error
}
