package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/tunegraph/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

func TestSpotifyService(t *testing.T) {
	ctx := context.Background()

	t.Run("Refresh", func(t *testing.T) {
		t.Run("keeps the refresh token when the server omits it", func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("POST /token", func(w http.ResponseWriter, r *http.Request) {
				if err := r.ParseForm(); err != nil {
					t.Errorf("failed to parse form: %v", err)
				}
				if got := r.PostForm.Get("refresh_token"); got != "refresh" {
					t.Errorf("expected refresh_token=refresh, got %q", got)
				}
				respondJSON(t, w, map[string]any{"access_token": "second", "token_type": "Bearer", "expires_in": 3600})
			})
			svc, _ := newTestService(t, mux, nil)

			var saved *oauth2.Token
			svc.SetTokenRefreshCallback(func(token *oauth2.Token) { saved = token })

			if err := svc.Refresh(ctx); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if svc.token.AccessToken != "second" || svc.token.RefreshToken != "refresh" {
				t.Errorf("expected second/refresh, got %s/%s", svc.token.AccessToken, svc.token.RefreshToken)
			}
			if saved == nil || saved.RefreshToken != "refresh" {
				t.Errorf("expected callback with the kept refresh token, got %+v", saved)
			}
		})

		t.Run("rejected grant is ErrRefreshFailed", func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("POST /token", func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadRequest)
				fmt.Fprint(w, `{"error":"invalid_grant"}`)
			})
			svc, _ := newTestService(t, mux, nil)

			if err := svc.Refresh(ctx); !errors.Is(err, shared.ErrRefreshFailed) {
				t.Errorf("expected ErrRefreshFailed, got %v", err)
			}
			if svc.token.AccessToken != "token" {
				t.Errorf("expected the old token to stay installed, got %s", svc.token.AccessToken)
			}
		})
	})

	t.Run("WithRateLimit", func(t *testing.T) {
		t.Run("non-positive rate disables pacing", func(t *testing.T) {
			svc, err := NewSpotifyService(map[string]string{"client_id": "id", "client_secret": "secret"}, WithRateLimit(0, 5))
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if svc.limiter.Limit() != rate.Inf {
				t.Errorf("expected unlimited pacing, got %v", svc.limiter.Limit())
			}
		})

		t.Run("burst is at least one", func(t *testing.T) {
			svc, err := NewSpotifyService(map[string]string{"client_id": "id", "client_secret": "secret"}, WithRateLimit(10, 0))
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if svc.limiter.Limit() != 10 || svc.limiter.Burst() != 1 {
				t.Errorf("expected 10 rps with burst 1, got %v/%d", svc.limiter.Limit(), svc.limiter.Burst())
			}
		})

		t.Run("requests are spaced out", func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("GET /me", func(w http.ResponseWriter, r *http.Request) {
				respondJSON(t, w, map[string]any{"id": "me"})
			})
			svc, _ := newTestService(t, mux, nil)
			WithRateLimit(20, 1)(svc)

			start := time.Now()
			for range 3 {
				if _, err := svc.CurrentUser(ctx); err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
			}
			if elapsed := time.Since(start); elapsed < 90*time.Millisecond {
				t.Errorf("expected three requests at 20 rps to take about 100ms, took %s", elapsed)
			}
		})
	})

	t.Run("circuit breaker", func(t *testing.T) {
		var healthy atomic.Bool
		var calls atomic.Int32
		mux := http.NewServeMux()
		mux.HandleFunc("GET /me", func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			if !healthy.Load() {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			respondJSON(t, w, map[string]any{"id": "me"})
		})
		svc, _ := newTestService(t, mux, nil)
		svc.breaker = newBreaker("test", 50*time.Millisecond, svc.logger)

		for range breakerFailures {
			if _, err := svc.CurrentUser(ctx); !errors.Is(err, shared.ErrServiceUnavailable) {
				t.Fatalf("expected ErrServiceUnavailable, got %v", err)
			}
		}

		t.Run("trips after consecutive failures", func(t *testing.T) {
			before := calls.Load()
			if _, err := svc.CurrentUser(ctx); !errors.Is(err, shared.ErrServiceUnavailable) {
				t.Errorf("expected ErrServiceUnavailable, got %v", err)
			}
			if calls.Load() != before {
				t.Error("expected the open breaker to short-circuit the request")
			}
		})

		t.Run("recovers once the provider answers", func(t *testing.T) {
			healthy.Store(true)
			time.Sleep(60 * time.Millisecond)

			user, err := svc.CurrentUser(ctx)
			if err != nil {
				t.Fatalf("expected the half-open request to succeed, got %v", err)
			}
			if user.ID != "me" {
				t.Errorf("expected user me, got %s", user.ID)
			}
			if _, err := svc.CurrentUser(ctx); err != nil {
				t.Errorf("expected the breaker to be closed again, got %v", err)
			}
		})
	})

	t.Run("client errors leave the breaker closed", func(t *testing.T) {
		svc, _ := newTestService(t, http.NotFoundHandler(), nil)
		for range breakerFailures + 1 {
			if _, err := svc.Track(ctx, "gone"); !errors.Is(err, shared.ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		}
	})

	t.Run("several", func(t *testing.T) {
		svc, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Errorf("expected no request, got %s", r.URL)
		}), nil)

		tests := []struct {
			name string
			call func() error
		}{
			{"no track ids", func() error { _, err := svc.SeveralTracks(ctx, nil); return err }},
			{"51 track ids", func() error { _, err := svc.SeveralTracks(ctx, make([]string, MaxTrackLookup+1)); return err }},
			{"21 album ids", func() error { _, err := svc.SeveralAlbums(ctx, make([]string, MaxAlbumLookup+1)); return err }},
			{"51 artist ids", func() error { _, err := svc.SeveralArtists(ctx, make([]string, MaxArtistLookup+1)); return err }},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				if err := tt.call(); !errors.Is(err, shared.ErrInvalidArgument) {
					t.Errorf("expected ErrInvalidArgument, got %v", err)
				}
			})
		}
	})

	t.Run("token source reports only new access tokens", func(t *testing.T) {
		src := &stubTokenSource{token: &oauth2.Token{AccessToken: "a"}}
		var seen []string
		rts := &refreshableTokenSource{source: src, last: "a", callback: func(tok *oauth2.Token) {
			seen = append(seen, tok.AccessToken)
		}}

		rts.Token()
		src.token = &oauth2.Token{AccessToken: "b"}
		rts.Token()
		rts.Token()

		if len(seen) != 1 || seen[0] != "b" {
			t.Errorf("expected one callback for b, got %v", seen)
		}

		src.err = errors.New("boom")
		if _, err := rts.Token(); err == nil {
			t.Error("expected the source error")
		}
	})
}

type stubTokenSource struct {
	token *oauth2.Token
	err   error
}

func (s *stubTokenSource) Token() (*oauth2.Token, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.token, nil
}
