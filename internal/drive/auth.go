// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package drive

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// ReadOnlyScope grants read access to file metadata and content.
const ReadOnlyScope = "https://www.googleapis.com/auth/drive.readonly"

// Authorizer produces an authorized HTTP client for the Drive API using the
// installed-app OAuth flow. The token is cached in TokenFile; when it is
// missing the user is sent to the consent page and the code is received on
// a loopback listener.
type Authorizer struct {
	CredentialsFile string
	TokenFile       string

	// Prompt receives the consent URL when interactive authorization is
	// needed.
	Prompt io.Writer
}

// Client returns an HTTP client whose requests carry a valid access token.
// base, when non-nil, is the transport the oauth2 client wraps. Tokens
// refreshed during the client's lifetime are written back to TokenFile.
func (a *Authorizer) Client(ctx context.Context, base *http.Client) (*http.Client, error) {
	data, err := os.ReadFile(a.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("reading client secrets: %w", err)
	}
	cfg, err := google.ConfigFromJSON(data, ReadOnlyScope)
	if err != nil {
		return nil, fmt.Errorf("parsing client secrets %s: %w", a.CredentialsFile, err)
	}
	if base != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	}

	tok, err := LoadToken(a.TokenFile)
	if errors.Is(err, os.ErrNotExist) {
		tok, err = a.authorize(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if err := SaveToken(a.TokenFile, tok); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	src := &savingTokenSource{base: cfg.TokenSource(ctx, tok), path: a.TokenFile, last: tok.AccessToken}
	return oauth2.NewClient(ctx, oauth2.ReuseTokenSource(tok, src)), nil
}

// authorize runs the consent flow with a loopback redirect.
func (a *Authorizer) authorize(ctx context.Context, cfg *oauth2.Config) (*oauth2.Token, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("starting loopback listener: %w", err)
	}
	defer ln.Close()

	state, err := randomState()
	if err != nil {
		return nil, err
	}
	cfg.RedirectURL = "http://" + ln.Addr().String() + "/"

	if a.Prompt != nil {
		fmt.Fprintf(a.Prompt, "Open this URL in a browser to authorize Drive access:\n\n  %s\n\n",
			cfg.AuthCodeURL(state, oauth2.AccessTypeOffline))
	}

	code, err := receiveCode(ctx, ln, state)
	if err != nil {
		return nil, err
	}
	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchanging authorization code: %w", err)
	}
	return tok, nil
}

// receiveCode serves ln until a redirect carrying state and a code arrives.
func receiveCode(ctx context.Context, ln net.Listener, state string) (string, error) {
	type result struct {
		code string
		err  error
	}
	done := make(chan result, 1)
	var once sync.Once
	finish := func(r result) { once.Do(func() { done <- r }) }

	srv := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("error") != "":
			http.Error(w, "Authorization failed. You can close this window.", http.StatusBadRequest)
			finish(result{err: fmt.Errorf("authorization denied: %s", q.Get("error"))})
		case q.Get("state") != state:
			http.Error(w, "State mismatch.", http.StatusBadRequest)
		case q.Get("code") == "":
			http.Error(w, "Missing code.", http.StatusBadRequest)
		default:
			fmt.Fprintln(w, "Authorization complete. You can close this window.")
			finish(result{code: q.Get("code")})
		}
	})}
	go func() { _ = srv.Serve(ln) }()
	defer srv.Close()

	select {
	case r := <-done:
		return r.code, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating oauth state: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// LoadToken reads a cached token. A missing file yields an error matching
// os.ErrNotExist.
func LoadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("parsing token file %s: %w", path, err)
	}
	return &tok, nil
}

// SaveToken writes tok to path with owner-only permissions.
func SaveToken(path string, tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating token directory: %w", err)
	}
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding token: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing token file: %w", err)
	}
	return nil
}

// savingTokenSource persists every token whose access token differs from the
// last one seen.
type savingTokenSource struct {
	base oauth2.TokenSource
	path string

	mu   sync.Mutex
	last string
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last {
		if err := SaveToken(s.path, tok); err != nil {
			return nil, err
		}
		s.last = tok.AccessToken
	}
	return tok, nil
}
