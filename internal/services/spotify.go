// Spotify Web API client
//
// Response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunegraph/internal/shared"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	defaultRedirectURI = "http://127.0.0.1:3000/callback"
	maxTracksPerAdd    = 100
	maxRetryAfter      = 30 * time.Second
)

type followers struct {
	Total int `json:"total"`
}

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"display_name"`
	Email       string         `json:"email"`
	Country     string         `json:"country"`
	Product     string         `json:"product"` // premium, free, etc.
	Followers   followers      `json:"followers"`
	Images      []SpotifyImage `json:"images"`
}

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

type externalIDs struct {
	ISRC string `json:"isrc"`
}

// SpotifyTrack represents a Spotify track.
//
// Local files have IsLocal set and an empty ID.
type SpotifyTrack struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Artists     []SpotifyArtist `json:"artists"`
	Album       SpotifyAlbum    `json:"album"`
	DurationMS  int             `json:"duration_ms"`
	Explicit    bool            `json:"explicit"`
	ExternalIDs externalIDs     `json:"external_ids"`
	Popularity  int             `json:"popularity"`
	IsLocal     bool            `json:"is_local"`
	URI         string          `json:"uri"`
}

// ArtistIDs returns the ids of the credited artists in credit order.
func (t SpotifyTrack) ArtistIDs() []string {
	ids := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		if a.ID != "" {
			ids = append(ids, a.ID)
		}
	}
	return ids
}

// SpotifyArtist represents a Spotify artist. Simplified artist objects leave Genres and Popularity empty.
type SpotifyArtist struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Genres     []string       `json:"genres"`
	Popularity int            `json:"popularity"`
	Images     []SpotifyImage `json:"images"`
	URI        string         `json:"uri"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID                   string          `json:"id"`
	Name                 string          `json:"name"`
	AlbumType            string          `json:"album_type"`
	AlbumGroup           string          `json:"album_group"`
	Artists              []SpotifyArtist `json:"artists"`
	Genres               []string        `json:"genres"`
	Popularity           int             `json:"popularity"`
	ReleaseDate          string          `json:"release_date"`
	ReleaseDatePrecision string          `json:"release_date_precision"`
	TotalTracks          int             `json:"total_tracks"`
	Images               []SpotifyImage  `json:"images"`
	URI                  string          `json:"uri"`
}

// ArtistIDs returns the ids of the credited artists in credit order.
func (a SpotifyAlbum) ArtistIDs() []string {
	ids := make([]string, 0, len(a.Artists))
	for _, ar := range a.Artists {
		if ar.ID != "" {
			ids = append(ids, ar.ID)
		}
	}
	return ids
}

type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// SpotifyPlaylist represents a full Spotify playlist object.
type SpotifyPlaylist struct {
	ID          string                     `json:"id"`
	Name        string                     `json:"name"`
	Description string                     `json:"description"`
	Owner       Owner                      `json:"owner"`
	Public      bool                       `json:"public"`
	Tracks      Page[SpotifyPlaylistTrack] `json:"tracks"`
	Images      []SpotifyImage             `json:"images"`
	URI         string                     `json:"uri"`
}

// SpotifyPlaylistTrack represents a track within a playlist context.
//
// Track is nil when the underlying item was removed from the catalog.
type SpotifyPlaylistTrack struct {
	AddedAt string        `json:"added_at"`
	AddedBy *Owner        `json:"added_by"`
	IsLocal bool          `json:"is_local"`
	Track   *SpotifyTrack `json:"track"`
}

// SpotifySavedTrack represents a track saved in the user's library.
type SpotifySavedTrack struct {
	AddedAt string       `json:"added_at"`
	Track   SpotifyTrack `json:"track"`
}

type simplePlaylistTrack struct {
	Total int `json:"total"`
}

// SpotifySimplePlaylist represents a simplified playlist object (used in lists).
type SpotifySimplePlaylist struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Owner       Owner               `json:"owner"`
	Public      bool                `json:"public"`
	Tracks      simplePlaylistTrack `json:"tracks"`
	Images      []SpotifyImage      `json:"images"`
	URI         string              `json:"uri"`
}

// SpotifyService is a Spotify Web API client.
//
// Requests are paced by a token-bucket limiter and guarded by a circuit breaker.
// A 401 answer triggers one token refresh and a single retry; a 429 answer waits for Retry-After once.
type SpotifyService struct {
	config         *oauth2.Config
	token          *oauth2.Token
	httpClient     *http.Client
	base           *http.Client
	credentials    map[string]string
	baseURL        string
	limiter        *rate.Limiter
	breaker        *gobreaker.CircuitBreaker[[]byte]
	breakerTimeout time.Duration
	logger         *log.Logger
	onTokenRefresh func(*oauth2.Token)
	mu             sync.Mutex
}

// Option configures a [SpotifyService].
type Option func(*SpotifyService)

// WithLogger sets the logger used for retries, skipped chunks and breaker transitions.
func WithLogger(l *log.Logger) Option {
	return func(s *SpotifyService) { s.logger = l }
}

// WithRateLimit paces requests to rps with the given burst. A non-positive rps disables pacing.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *SpotifyService) {
		if rps <= 0 {
			s.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		s.limiter = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
	}
}

// WithBreakerTimeout sets how long the circuit breaker stays open before probing the API again.
func WithBreakerTimeout(d time.Duration) Option {
	return func(s *SpotifyService) { s.breakerTimeout = d }
}

// WithHTTPClient sets the client that carries requests underneath the OAuth2 transport.
func WithHTTPClient(c *http.Client) Option {
	return func(s *SpotifyService) { s.base = c }
}

// WithBaseURL points the client at another API root, e.g. a test server.
func WithBaseURL(u string) Option {
	return func(s *SpotifyService) { s.baseURL = strings.TrimSuffix(u, "/") }
}

// WithTokenURL overrides the OAuth2 token endpoint.
func WithTokenURL(u string) Option {
	return func(s *SpotifyService) { s.config.Endpoint.TokenURL = u }
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
//
// When credentials carry an access_token the client is authenticated immediately.
func NewSpotifyService(credentials map[string]string, opts ...Option) (*SpotifyService, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	clientSecret, ok := credentials["client_secret"]
	if !ok || clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	redirectURI, ok := credentials["redirect_uri"]
	if !ok || redirectURI == "" {
		redirectURI = defaultRedirectURI
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes: []string{
			"user-read-private",
			"user-read-email",
			"user-follow-read",
			"playlist-read-private",
			"playlist-read-collaborative",
			"playlist-modify-private",
			"playlist-modify-public",
			"user-library-read",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	s := &SpotifyService{
		config:      config,
		httpClient:  http.DefaultClient,
		credentials: credentials,
		baseURL:     spotifyBaseURL,
		limiter:     rate.NewLimiter(rate.Inf, 1),

		breakerTimeout: breakerTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = shared.NewLogger(nil)
	}
	s.breaker = newBreaker("spotify-api", s.breakerTimeout, s.logger)

	if credentials["access_token"] != "" {
		if err := s.Authenticate(context.Background(), credentials); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Authenticate installs credentials. Expects either an "access_token" (optionally with "refresh_token") or an "auth_code".
func (s *SpotifyService) Authenticate(ctx context.Context, credentials map[string]string) error {
	if accessToken, ok := credentials["access_token"]; ok && accessToken != "" {
		s.setToken(&oauth2.Token{
			AccessToken:  accessToken,
			RefreshToken: credentials["refresh_token"],
			TokenType:    "Bearer",
		})
		return nil
	}

	if authCode, ok := credentials["auth_code"]; ok && authCode != "" {
		token, err := s.config.Exchange(ctx, authCode)
		if err != nil {
			return fmt.Errorf("%w: failed to exchange auth code: %v", shared.ErrAuthFailed, err)
		}
		s.setToken(token)
		return nil
	}

	return fmt.Errorf("%w: missing access_token or auth_code", shared.ErrMissingCredentials)
}

// OAuthenticate installs a token obtained from the authorization code flow.
func (s *SpotifyService) OAuthenticate(ctx context.Context, token *oauth2.Token) error {
	if token == nil || token.AccessToken == "" {
		return fmt.Errorf("%w: empty token", shared.ErrInvalidCredentials)
	}
	s.setToken(token)
	return nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// GetAuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) GetAuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// GetOAuthConfig returns the underlying [oauth2.Config].
func (s *SpotifyService) GetOAuthConfig() *oauth2.Config {
	return s.config
}

// SetTokenRefreshCallback registers fn to be called whenever a new access token is obtained.
func (s *SpotifyService) SetTokenRefreshCallback(fn func(*oauth2.Token)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onTokenRefresh = fn
	if s.token != nil {
		s.rebuildClient()
	}
}

// Refresh exchanges the stored refresh token for a new access token.
func (s *SpotifyService) Refresh(ctx context.Context) error {
	s.mu.Lock()
	current := s.token
	s.mu.Unlock()

	if current == nil {
		return shared.ErrNotAuthenticated
	}
	if current.RefreshToken == "" {
		return shared.ErrNoRefreshToken
	}

	fresh, err := s.config.TokenSource(ctx, &oauth2.Token{RefreshToken: current.RefreshToken}).Token()
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = current.RefreshToken
	}

	s.setToken(fresh)
	s.mu.Lock()
	callback := s.onTokenRefresh
	s.mu.Unlock()
	if callback != nil {
		callback(fresh)
	}
	s.logger.Debug("refreshed spotify access token", "expiry", fresh.Expiry)
	return nil
}

func (s *SpotifyService) setToken(token *oauth2.Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.rebuildClient()
}

// rebuildClient must be called with s.mu held.
func (s *SpotifyService) rebuildClient() {
	ctx := context.Background()
	if s.base != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, s.base)
	}
	src := &refreshableTokenSource{
		source:   s.config.TokenSource(ctx, s.token),
		callback: s.onTokenRefresh,
		last:     s.token.AccessToken,
	}
	s.httpClient = oauth2.NewClient(ctx, src)
}

func (s *SpotifyService) client() *http.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == nil {
		return nil
	}
	return s.httpClient
}

func (s *SpotifyService) canRefresh() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token != nil && s.token.RefreshToken != ""
}

// refreshableTokenSource reports each newly seen access token to callback.
type refreshableTokenSource struct {
	source   oauth2.TokenSource
	callback func(*oauth2.Token)
	last     string
	mu       sync.Mutex
}

func (r *refreshableTokenSource) Token() (*oauth2.Token, error) {
	token, err := r.source.Token()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	changed := token.AccessToken != r.last
	r.last = token.AccessToken
	r.mu.Unlock()

	if changed && r.callback != nil {
		r.callback(token)
	}
	return token, nil
}

// rateLimitError carries the server's Retry-After hint.
type rateLimitError struct {
	wait time.Duration
}

func (e *rateLimitError) Error() string {
	return fmt.Sprintf("%v: retry after %s", shared.ErrRateLimited, e.wait)
}

func (e *rateLimitError) Unwrap() error {
	return shared.ErrRateLimited
}

func parseRetryAfter(h string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(h))
	if err != nil || secs < 1 {
		return time.Second
	}
	return min(time.Duration(secs)*time.Second, maxRetryAfter)
}

// doRequest performs an authenticated request, refreshing the token and retrying once on 401.
//
// endpoint is either a path below the API root or an absolute URL such as a paging cursor.
func (s *SpotifyService) doRequest(ctx context.Context, method, endpoint string, body any, result any) error {
	err := s.send(ctx, method, endpoint, body, result)
	if errors.Is(err, shared.ErrTokenExpired) && s.canRefresh() {
		s.logger.Warn("access token rejected, refreshing", "endpoint", endpoint)
		if rerr := s.Refresh(ctx); rerr != nil {
			return rerr
		}
		return s.send(ctx, method, endpoint, body, result)
	}
	return err
}

func (s *SpotifyService) send(ctx context.Context, method, endpoint string, body any, result any) error {
	httpClient := s.client()
	if httpClient == nil {
		return fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}

	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	target := endpoint
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		target = s.baseURL + endpoint
	}

	for attempt := 0; ; attempt++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}

		data, err := s.breaker.Execute(func() ([]byte, error) {
			return s.roundTrip(ctx, httpClient, method, target, payload)
		})

		var limited *rateLimitError
		if errors.As(err, &limited) && attempt == 0 {
			s.logger.Warn("rate limited by spotify", "retry_after", limited.wait, "endpoint", endpoint)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(limited.wait):
			}
			continue
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
		}
		if err != nil {
			return err
		}

		if result != nil && len(data) > 0 {
			if err := json.Unmarshal(data, result); err != nil {
				return fmt.Errorf("failed to decode response: %w", err)
			}
		}
		return nil
	}
}

func (s *SpotifyService) roundTrip(ctx context.Context, httpClient *http.Client, method, target string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return nil, fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
		}
		return nil, fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", shared.ErrAPIRequest, err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return data, nil
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, shared.ErrTokenExpired
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", shared.ErrNotFound, req.URL.Path)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &rateLimitError{wait: parseRetryAfter(resp.Header.Get("Retry-After"))}
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", shared.ErrServiceUnavailable, resp.StatusCode)
	default:
		return nil, fmt.Errorf("%w: status %d: %s", shared.ErrAPIRequest, resp.StatusCode, truncate(string(data), 200))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// collect aggregates every page of a listing endpoint.
func collect[T any](ctx context.Context, s *SpotifyService, endpoint string) ([]T, error) {
	return Collect(ctx, endpoint, func(ctx context.Context, cursor string) (*Page[T], error) {
		var page Page[T]
		if err := s.doRequest(ctx, http.MethodGet, cursor, nil, &page); err != nil {
			return nil, err
		}
		return &page, nil
	})
}

// CurrentUser retrieves the authenticated user's profile.
func (s *SpotifyService) CurrentUser(ctx context.Context) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := s.doRequest(ctx, http.MethodGet, "/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// User retrieves a public user profile.
func (s *SpotifyService) User(ctx context.Context, userID string) (*SpotifyUser, error) {
	var user SpotifyUser
	endpoint := fmt.Sprintf("/users/%s", url.PathEscape(userID))
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UserPlaylists retrieves every playlist a user owns or follows.
func (s *SpotifyService) UserPlaylists(ctx context.Context, userID string) ([]SpotifySimplePlaylist, error) {
	endpoint := fmt.Sprintf("/users/%s/playlists?limit=50", url.PathEscape(userID))
	return collect[SpotifySimplePlaylist](ctx, s, endpoint)
}

// CurrentUserPlaylists retrieves every playlist of the authenticated user.
func (s *SpotifyService) CurrentUserPlaylists(ctx context.Context) ([]SpotifySimplePlaylist, error) {
	return collect[SpotifySimplePlaylist](ctx, s, "/me/playlists?limit=50")
}

// PlaylistTracks retrieves every item of a playlist, local files included.
func (s *SpotifyService) PlaylistTracks(ctx context.Context, playlistID string) ([]SpotifyPlaylistTrack, error) {
	endpoint := fmt.Sprintf("/playlists/%s/tracks?limit=100", url.PathEscape(playlistID))
	return collect[SpotifyPlaylistTrack](ctx, s, endpoint)
}

// SavedTracks retrieves every track saved in the user's library.
func (s *SpotifyService) SavedTracks(ctx context.Context) ([]SpotifySavedTrack, error) {
	return collect[SpotifySavedTrack](ctx, s, "/me/tracks?limit=50")
}

// ArtistAlbums retrieves every album an artist appears on, across all album groups.
func (s *SpotifyService) ArtistAlbums(ctx context.Context, artistID string) ([]SpotifyAlbum, error) {
	endpoint := fmt.Sprintf("/artists/%s/albums?limit=50", url.PathEscape(artistID))
	return collect[SpotifyAlbum](ctx, s, endpoint)
}

// Track retrieves a single track by ID.
func (s *SpotifyService) Track(ctx context.Context, trackID string) (*SpotifyTrack, error) {
	var track SpotifyTrack
	endpoint := fmt.Sprintf("/tracks/%s", url.PathEscape(trackID))
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &track); err != nil {
		return nil, err
	}
	return &track, nil
}

// Playlist retrieves a playlist by ID. Only the first page of its tracks is included.
func (s *SpotifyService) Playlist(ctx context.Context, playlistID string) (*SpotifyPlaylist, error) {
	endpoint := fmt.Sprintf("/playlists/%s", url.PathEscape(playlistID))

	var playlist SpotifyPlaylist
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &playlist); err != nil {
		return nil, err
	}

	return &playlist, nil
}

func several[T any](ctx context.Context, s *SpotifyService, resource string, ids []string, limit int) ([]*T, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no %s IDs provided", shared.ErrInvalidArgument, resource)
	}
	if len(ids) > limit {
		return nil, fmt.Errorf("%w: maximum %d %s IDs allowed", shared.ErrInvalidArgument, limit, resource)
	}

	endpoint := fmt.Sprintf("/%s?ids=%s", resource, url.QueryEscape(strings.Join(ids, ",")))

	var response map[string][]*T
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}
	return response[resource], nil
}

// SeveralTracks retrieves up to 50 tracks. The result is aligned with trackIDs; unknown ids yield nil.
func (s *SpotifyService) SeveralTracks(ctx context.Context, trackIDs []string) ([]*SpotifyTrack, error) {
	return several[SpotifyTrack](ctx, s, "tracks", trackIDs, MaxTrackLookup)
}

// SeveralAlbums retrieves up to 20 albums. The result is aligned with albumIDs; unknown ids yield nil.
func (s *SpotifyService) SeveralAlbums(ctx context.Context, albumIDs []string) ([]*SpotifyAlbum, error) {
	return several[SpotifyAlbum](ctx, s, "albums", albumIDs, MaxAlbumLookup)
}

// SeveralArtists retrieves up to 50 artists. The result is aligned with artistIDs; unknown ids yield nil.
func (s *SpotifyService) SeveralArtists(ctx context.Context, artistIDs []string) ([]*SpotifyArtist, error) {
	return several[SpotifyArtist](ctx, s, "artists", artistIDs, MaxArtistLookup)
}

// Tracks looks up any number of tracks in batches of 50.
func (s *SpotifyService) Tracks(ctx context.Context, ids []string) (*Batch[SpotifyTrack], error) {
	return Lookup(ctx, ids, MaxTrackLookup, s.SeveralTracks, s.logger)
}

// Albums looks up any number of albums in batches of 20.
func (s *SpotifyService) Albums(ctx context.Context, ids []string) (*Batch[SpotifyAlbum], error) {
	return Lookup(ctx, ids, MaxAlbumLookup, s.SeveralAlbums, s.logger)
}

// Artists looks up any number of artists in batches of 50.
func (s *SpotifyService) Artists(ctx context.Context, ids []string) (*Batch[SpotifyArtist], error) {
	return Lookup(ctx, ids, MaxArtistLookup, s.SeveralArtists, s.logger)
}

// Playlists looks up playlists one at a time; the API has no multi-get for them.
func (s *SpotifyService) Playlists(ctx context.Context, ids []string) (*Batch[SpotifyPlaylist], error) {
	return Lookup(ctx, ids, MaxPlaylistLookup, func(ctx context.Context, chunk []string) ([]*SpotifyPlaylist, error) {
		found := make([]*SpotifyPlaylist, 0, len(chunk))
		for _, id := range chunk {
			p, err := s.Playlist(ctx, id)
			if err != nil {
				return nil, err
			}
			found = append(found, p)
		}
		return found, nil
	}, s.logger)
}

// CreatePlaylist creates a playlist owned by userID.
func (s *SpotifyService) CreatePlaylist(ctx context.Context, userID, name, description string, public bool) (*SpotifySimplePlaylist, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: playlist name", shared.ErrMissingArgument)
	}

	body := map[string]any{"name": name, "description": description, "public": public}
	endpoint := fmt.Sprintf("/users/%s/playlists", url.PathEscape(userID))

	var playlist SpotifySimplePlaylist
	if err := s.doRequest(ctx, http.MethodPost, endpoint, body, &playlist); err != nil {
		return nil, err
	}
	return &playlist, nil
}

// AddTracks appends tracks to a playlist in requests of at most 100 items.
func (s *SpotifyService) AddTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))

	for i, chunk := range shared.Chunk(trackIDs, maxTracksPerAdd) {
		uris := make([]string, len(chunk))
		for j, id := range chunk {
			uris[j] = "spotify:track:" + id
		}
		if err := s.doRequest(ctx, http.MethodPost, endpoint, map[string]any{"uris": uris}, nil); err != nil {
			return fmt.Errorf("failed to add chunk %d: %w", i+1, err)
		}
	}
	return nil
}
