package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/desertthunder/tunegraph/internal/shared"
	th "github.com/desertthunder/tunegraph/internal/testing"
	"golang.org/x/oauth2"
)

func newTestService(t *testing.T, handler http.Handler, credentials map[string]string) (*SpotifyService, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	creds := map[string]string{"client_id": "id", "client_secret": "secret", "access_token": "token", "refresh_token": "refresh"}
	for k, v := range credentials {
		creds[k] = v
	}

	svc, err := NewSpotifyService(creds,
		WithBaseURL(server.URL),
		WithTokenURL(server.URL+"/token"),
		WithLogger(shared.NewLogger(io.Discard)),
	)
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return svc, server
}

func respondJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("failed to encode response: %v", err)
	}
}

func TestSpotifyHTTP(t *testing.T) {
	ctx := context.Background()

	t.Run("SavedTracks follows next cursors", func(t *testing.T) {
		var base string
		calls := 0
		mux := http.NewServeMux()
		mux.HandleFunc("/me/tracks", func(w http.ResponseWriter, r *http.Request) {
			calls++
			if got := r.Header.Get("Authorization"); got != "Bearer token" {
				t.Errorf("expected bearer token, got %q", got)
			}
			if r.URL.Query().Get("page") == "2" {
				respondJSON(t, w, map[string]any{"items": []any{map[string]any{"track": map[string]any{"id": "t3"}}}, "next": nil})
				return
			}
			next := base + "/me/tracks?page=2"
			respondJSON(t, w, map[string]any{
				"items": []any{
					map[string]any{"track": map[string]any{"id": "t1"}},
					map[string]any{"track": map[string]any{"id": "t2"}},
				},
				"next":  next,
				"total": 3,
			})
		})
		svc, server := newTestService(t, mux, nil)
		base = server.URL

		tracks, err := svc.SavedTracks(ctx)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(tracks) != 3 || tracks[2].Track.ID != "t3" {
			t.Errorf("expected t1..t3, got %+v", tracks)
		}
		if calls != 2 {
			t.Errorf("expected 2 requests, got %d", calls)
		}
	})

	t.Run("PlaylistTracks keeps local files and added_by", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/playlists/p1/tracks", func(w http.ResponseWriter, r *http.Request) {
			respondJSON(t, w, map[string]any{"items": []any{
				map[string]any{"added_at": "2021-01-01T00:00:00Z", "added_by": map[string]any{"id": "u1"}, "track": map[string]any{"id": "s1"}},
				map[string]any{"is_local": true, "track": map[string]any{"id": nil, "name": "demo.mp3", "is_local": true}},
			}})
		})
		svc, _ := newTestService(t, mux, nil)

		items, err := svc.PlaylistTracks(ctx, "p1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(items) != 2 {
			t.Fatalf("expected 2 items, got %d", len(items))
		}
		if items[0].AddedBy == nil || items[0].AddedBy.ID != "u1" {
			t.Errorf("expected added_by u1, got %+v", items[0].AddedBy)
		}
		if !items[1].IsLocal || items[1].Track.ID != "" {
			t.Errorf("expected second item to be a local file, got %+v", items[1])
		}
	})

	t.Run("Tracks skips null entries and failed chunks", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/tracks", func(w http.ResponseWriter, r *http.Request) {
			ids := strings.Split(r.URL.Query().Get("ids"), ",")
			if len(ids) > MaxTrackLookup {
				t.Errorf("expected at most %d ids, got %d", MaxTrackLookup, len(ids))
			}
			if ids[0] == "t050" {
				http.Error(w, `{"error":{"status":400,"message":"invalid id"}}`, http.StatusBadRequest)
				return
			}
			out := make([]any, len(ids))
			for i, id := range ids {
				if id == "t003" {
					continue
				}
				out[i] = map[string]any{"id": id}
			}
			respondJSON(t, w, map[string]any{"tracks": out})
		})
		svc, _ := newTestService(t, mux, nil)

		ids := make([]string, 60)
		for i := range ids {
			ids[i] = fmt.Sprintf("t%03d", i)
		}

		batch, err := svc.Tracks(ctx, ids)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(batch.Items) != 49 {
			t.Errorf("expected 49 items, got %d", len(batch.Items))
		}
		if len(batch.Skipped) != 11 || batch.Skipped[0] != "t003" {
			t.Errorf("expected t003 plus the failed chunk to be skipped, got %v", batch.Skipped)
		}
	})

	t.Run("Tracks stops on an unavailable provider", func(t *testing.T) {
		calls := 0
		mux := http.NewServeMux()
		mux.HandleFunc("/tracks", func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.WriteHeader(http.StatusServiceUnavailable)
		})
		svc, _ := newTestService(t, mux, nil)

		ids := make([]string, 120)
		for i := range ids {
			ids[i] = fmt.Sprintf("t%03d", i)
		}

		batch, err := svc.Tracks(ctx, ids)
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
		if batch != nil || calls != 1 {
			t.Errorf("expected no batch after one request, got %+v after %d", batch, calls)
		}
	})

	t.Run("refreshes once on 401", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
			respondJSON(t, w, map[string]any{"access_token": "fresh", "token_type": "Bearer", "refresh_token": "refresh2", "expires_in": 3600})
		})
		mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer fresh" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			respondJSON(t, w, map[string]any{"id": "me", "display_name": "Me"})
		})
		svc, _ := newTestService(t, mux, nil)

		var refreshed *oauth2.Token
		svc.SetTokenRefreshCallback(func(token *oauth2.Token) { refreshed = token })

		user, err := svc.CurrentUser(ctx)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if user.ID != "me" {
			t.Errorf("expected user me, got %s", user.ID)
		}
		if refreshed == nil || refreshed.AccessToken != "fresh" {
			t.Errorf("expected refresh callback with fresh token, got %+v", refreshed)
		}
	})

	t.Run("401 without refresh token", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})
		svc, _ := newTestService(t, mux, map[string]string{"refresh_token": ""})

		if _, err := svc.CurrentUser(ctx); !errors.Is(err, shared.ErrTokenExpired) {
			t.Errorf("expected ErrTokenExpired, got %v", err)
		}
		if err := svc.Refresh(ctx); !errors.Is(err, shared.ErrNoRefreshToken) {
			t.Errorf("expected ErrNoRefreshToken, got %v", err)
		}
	})

	t.Run("waits out a 429 once", func(t *testing.T) {
		calls := 0
		mux := http.NewServeMux()
		mux.HandleFunc("/users/u1", func(w http.ResponseWriter, r *http.Request) {
			calls++
			if calls == 1 {
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			respondJSON(t, w, map[string]any{"id": "u1", "display_name": "Ada"})
		})
		svc, _ := newTestService(t, mux, nil)

		user, err := svc.User(ctx, "u1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if user.DisplayName != "Ada" || calls != 2 {
			t.Errorf("expected Ada after 2 calls, got %s after %d", user.DisplayName, calls)
		}
	})

	t.Run("maps 404 to ErrNotFound", func(t *testing.T) {
		svc, _ := newTestService(t, http.NotFoundHandler(), nil)
		if _, err := svc.Playlist(ctx, "missing"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Playlists lookup skips missing playlists", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/playlists/p1", func(w http.ResponseWriter, r *http.Request) {
			respondJSON(t, w, map[string]any{"id": "p1", "name": "One"})
		})
		svc, _ := newTestService(t, mux, nil)

		batch, err := svc.Playlists(ctx, []string{"p1", "p2"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(batch.Items) != 1 || len(batch.Skipped) != 1 || batch.Skipped[0] != "p2" {
			t.Errorf("expected p1 found and p2 skipped, got %+v", batch)
		}
	})

	t.Run("AddTracks sends chunks of 100", func(t *testing.T) {
		var sizes []int
		mux := http.NewServeMux()
		mux.HandleFunc("/playlists/p1/tracks", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				t.Errorf("expected POST, got %s", r.Method)
			}
			var body struct {
				URIs []string `json:"uris"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("failed to decode body: %v", err)
			}
			if len(body.URIs) > 0 && !strings.HasPrefix(body.URIs[0], "spotify:track:") {
				t.Errorf("expected track URIs, got %s", body.URIs[0])
			}
			sizes = append(sizes, len(body.URIs))
			w.WriteHeader(http.StatusCreated)
			respondJSON(t, w, map[string]any{"snapshot_id": "x"})
		})
		svc, _ := newTestService(t, mux, nil)

		ids := make([]string, 150)
		for i := range ids {
			ids[i] = fmt.Sprintf("s%d", i)
		}
		if err := svc.AddTracks(ctx, "p1", ids); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if fmt.Sprint(sizes) != "[100 50]" {
			t.Errorf("expected chunks [100 50], got %v", sizes)
		}
	})

	t.Run("CreatePlaylist", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/users/me/playlists", func(w http.ResponseWriter, r *http.Request) {
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body["name"] != "All the Lonely Songs" || body["public"] != false {
				t.Errorf("unexpected body %v", body)
			}
			respondJSON(t, w, map[string]any{"id": "new", "name": body["name"]})
		})
		svc, _ := newTestService(t, mux, nil)

		pl, err := svc.CreatePlaylist(ctx, "me", "All the Lonely Songs", "", false)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if pl.ID != "new" {
			t.Errorf("expected id new, got %s", pl.ID)
		}
	})

	t.Run("unauthenticated client", func(t *testing.T) {
		svc, err := NewSpotifyService(map[string]string{"client_id": "id", "client_secret": "secret"})
		if err != nil {
			t.Fatalf("failed to create service: %v", err)
		}
		if _, err := svc.CurrentUser(ctx); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("several rejects oversize requests", func(t *testing.T) {
		svc, _ := newTestService(t, http.NotFoundHandler(), nil)
		if _, err := svc.SeveralAlbums(ctx, make([]string, 21)); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("transport failures", func(t *testing.T) {
		cases := []struct {
			name string
			rt   *th.MockRoundTripper
			want error
		}{
			{"connection error", th.NewMockRoundTripper(nil, errors.New("connection refused")), shared.ErrServiceUnavailable},
			{"unreadable body", th.NewMockRoundTripper(&http.Response{StatusCode: http.StatusOK, Body: &th.FCloser{}, Header: http.Header{}}, nil), shared.ErrAPIRequest},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				svc, err := NewSpotifyService(
					map[string]string{"client_id": "id", "client_secret": "secret", "access_token": "token"},
					WithHTTPClient(&http.Client{Transport: tc.rt}),
					WithLogger(shared.NewLogger(io.Discard)),
				)
				if err != nil {
					t.Fatalf("failed to create service: %v", err)
				}
				if _, err := svc.CurrentUser(ctx); !errors.Is(err, tc.want) {
					t.Errorf("expected %v, got %v", tc.want, err)
				}
			})
		}
	})
}

func TestSpotifyCredentials(t *testing.T) {
	t.Run("client id and secret are required", func(t *testing.T) {
		tests := []struct {
			name  string
			creds map[string]string
		}{
			{"no client id", map[string]string{"client_secret": "secret"}},
			{"empty client id", map[string]string{"client_id": "", "client_secret": "secret"}},
			{"no client secret", map[string]string{"client_id": "id"}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				if _, err := NewSpotifyService(tt.creds); !errors.Is(err, shared.ErrMissingCredentials) {
					t.Errorf("expected ErrMissingCredentials, got %v", err)
				}
			})
		}
	})

	t.Run("without tokens the client is configured but unauthenticated", func(t *testing.T) {
		svc, err := NewSpotifyService(map[string]string{"client_id": "id", "client_secret": "secret"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if svc.GetOAuthConfig().RedirectURL != defaultRedirectURI {
			t.Errorf("expected default redirect %s, got %s", defaultRedirectURI, svc.GetOAuthConfig().RedirectURL)
		}
		if _, err := svc.CurrentUser(context.Background()); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
		if err := svc.Refresh(context.Background()); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated from Refresh, got %v", err)
		}
	})

	t.Run("auth URL asks for offline access", func(t *testing.T) {
		svc, err := NewSpotifyService(map[string]string{
			"client_id":     "id",
			"client_secret": "secret",
			"redirect_uri":  "http://127.0.0.1:9000/callback",
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		authURL := svc.GetAuthURL("xyz")
		for _, want := range []string{"client_id=id", "state=xyz", "access_type=offline", "playlist-modify-private", "redirect_uri=http%3A%2F%2F127.0.0.1%3A9000%2Fcallback"} {
			if !strings.Contains(authURL, want) {
				t.Errorf("expected %q in %s", want, authURL)
			}
		}
	})

	t.Run("tokens are installed from credentials or the OAuth flow", func(t *testing.T) {
		svc, err := NewSpotifyService(map[string]string{"client_id": "id", "client_secret": "secret"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if err := svc.Authenticate(context.Background(), map[string]string{}); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
		if err := svc.OAuthenticate(context.Background(), &oauth2.Token{}); !errors.Is(err, shared.ErrInvalidCredentials) {
			t.Errorf("expected ErrInvalidCredentials for an empty token, got %v", err)
		}
		if err := svc.OAuthenticate(context.Background(), &oauth2.Token{AccessToken: "a", RefreshToken: "r"}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if svc.client() == nil || !svc.canRefresh() {
			t.Error("expected an authenticated client able to refresh")
		}
	})
}
