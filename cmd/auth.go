package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/desertthunder/tunegraph/internal/server"
	"github.com/desertthunder/tunegraph/internal/services"
	"github.com/desertthunder/tunegraph/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

const authTimeout = 2 * time.Minute

// Auth performs the OAuth2 authorization code flow for Spotify and saves the tokens to the config file.
//
// Starts a local HTTP server, opens browser for user authorization, and exchanges auth code for tokens.
func (r *Runner) Auth(ctx context.Context, cmd *cli.Command) error {
	if r.oauth == nil {
		return fmt.Errorf("%w: Spotify client_id and client_secret must be set in %s", shared.ErrMissingCredentials, r.configPath)
	}

	if err := r.authorize(ctx, "authorization"); err != nil {
		return err
	}

	user, err := r.spotify.CurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("token saved but profile lookup failed: %w", err)
	}
	name := user.DisplayName
	if name == "" {
		name = user.ID
	}
	return r.writePlain("✓ Authorized as %s\n", name)
}

// authorize runs the browser flow, installs the token and persists it.
func (r *Runner) authorize(ctx context.Context, purpose string) error {
	token, err := r.doOAuth(ctx, r.oauth, purpose)
	if err != nil {
		return err
	}

	if err := r.config.Credentials.Spotify.Update(token); err != nil {
		return fmt.Errorf("failed to update spotify configuration: %w", err)
	}
	if err := shared.SaveConfig(r.configPath, r.config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	if err := r.oauth.OAuthenticate(ctx, token); err != nil {
		return fmt.Errorf("failed to authenticate with new tokens: %w", err)
	}

	r.writePlain("✓ Tokens saved to %s\n", r.configPath)
	return nil
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server
func (r *Runner) doOAuth(ctx context.Context, oauthSrv services.OAuthService, purpose string) (*oauth2.Token, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	authURL := oauthSrv.GetAuthURL(state)
	oauthHandler := server.NewOAuthHandler(oauthSrv.GetOAuthConfig(), state)
	router := server.NewBasicRouter()
	router.Use(server.LogRequests(r.logger), server.Recover(r.logger))
	router.Handler(oauthHandler)

	addr := net.JoinHostPort(r.config.Server.Host, strconv.Itoa(r.config.Server.Port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	httpServer := &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second}
	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting OAuth server for %s at %v", purpose, addr)
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn("error shutting down server", "error", err)
		}
	}()

	r.writePlain("→ Opening browser for Spotify %s...\n", purpose)
	if err := r.openBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (%s timeout)...\n", authTimeout)

	timeout := time.NewTimer(authTimeout)
	defer timeout.Stop()

	var result server.OAuthResult
	select {
	case result = <-oauthHandler.Result():
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return nil, fmt.Errorf("%w: authorization timed out after %s", shared.ErrTimeout, authTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Error())
	}
	if result.Token == nil {
		return nil, fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
	}

	return result.Token, nil
}

// needsReauth reports whether err means the stored credentials can no longer be used.
func needsReauth(err error) bool {
	return errors.Is(err, shared.ErrNotAuthenticated) ||
		errors.Is(err, shared.ErrRefreshFailed) ||
		errors.Is(err, shared.ErrNoRefreshToken) ||
		errors.Is(err, shared.ErrTokenExpired)
}

// withReauth runs fn and, when it fails on unusable credentials, reauthorizes once and runs it again.
func (r *Runner) withReauth(ctx context.Context, fn func() error) error {
	err := fn()
	if err == nil || !needsReauth(err) || r.oauth == nil {
		return err
	}

	r.logger.Warn("spotify credentials rejected", "error", err)
	r.writePlainln("⚠ Spotify credentials are no longer valid. Starting reauthorization...")
	if authErr := r.authorize(ctx, "reauthorization"); authErr != nil {
		return fmt.Errorf("reauthorization failed: %w", authErr)
	}
	r.writePlainln("✓ Successfully reauthenticated. Retrying operation...")
	return fn()
}
