package server

import (
	"fmt"
	"html/template"
	"net/http"
	"sync"

	"github.com/desertthunder/tunegraph/internal/shared"
	"golang.org/x/oauth2"
)

// CallbackPath is where the authorization server redirects the browser.
const CallbackPath = "/callback"

var successPage = template.Must(template.New("success").Parse(`<!DOCTYPE html>
<html>
<head>
  <title>tunegraph</title>
  <style>
    body { font-family: system-ui, sans-serif; display: flex; align-items: center; justify-content: center;
           height: 100vh; margin: 0; background: #121212; color: #eee; }
    h1 { color: #1DB954; }
  </style>
</head>
<body>
  <div>
    <h1>✓ Connected to {{.}}</h1>
    <p>Return to the terminal; this tab can be closed.</p>
  </div>
</body>
</html>
`))

// OAuthResult is the outcome of one authorization code callback.
type OAuthResult struct {
	Token *oauth2.Token
	err   error
}

func (o *OAuthResult) Error() error {
	return o.err
}

// OAuthHandler serves the authorization code callback exactly once and reports the exchanged token.
type OAuthHandler struct {
	config   *oauth2.Config
	state    string
	provider string
	results  chan OAuthResult
	once     sync.Once

	mu   sync.Mutex
	used bool
}

// NewOAuthHandler creates a handler expecting state, which should come from [shared.GenerateState].
func NewOAuthHandler(config *oauth2.Config, state string) *OAuthHandler {
	return &OAuthHandler{
		config:   config,
		state:    state,
		provider: "Spotify",
		results:  make(chan OAuthResult, 1),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *OAuthHandler) Routes() []string {
	return []string{CallbackPath}
}

// ServeHTTP checks the state parameter, exchanges the code and reports the result.
// Later requests are rejected so a leaked callback URL cannot be replayed.
func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	used := h.used
	h.used = true
	h.mu.Unlock()
	if used {
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}

	query := r.URL.Query()
	if query.Get("state") != h.state {
		h.Send(OAuthResult{err: fmt.Errorf("%w: state mismatch", shared.ErrAuthFailed)})
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	code := query.Get("code")
	if code == "" {
		h.Send(OAuthResult{err: fmt.Errorf("%w: %s %s", shared.ErrAuthFailed, query.Get("error"), query.Get("error_description"))})
		http.Error(w, "Authorization failed", http.StatusBadRequest)
		return
	}

	token, err := h.config.Exchange(r.Context(), code)
	if err != nil {
		h.Send(OAuthResult{err: fmt.Errorf("%w: token exchange: %v", shared.ErrAuthFailed, err)})
		http.Error(w, "Token exchange failed", http.StatusInternalServerError)
		return
	}

	h.Send(OAuthResult{Token: token})

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = successPage.Execute(w, h.provider)
}

// Send delivers result unless one was already delivered.
func (h *OAuthHandler) Send(result OAuthResult) {
	h.once.Do(func() {
		h.results <- result
		close(h.results)
	})
}

// Result receives exactly one result and is then closed.
func (h *OAuthHandler) Result() <-chan OAuthResult {
	return h.results
}
