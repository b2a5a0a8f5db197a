// Package ticketing implements the outbound client for the external
// ticketing API, with pluggable request authentication strategies mirroring
// the credential setups the API supports (basic, bearer token, and a
// composite that trades basic credentials for a bearer token).
package ticketing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// AuthStrategy mutates an outbound request with authentication material.
// Implementations must be safe for concurrent use.
type AuthStrategy interface {
	// Authenticate adds credentials to req before it is sent.
	Authenticate(req *http.Request) error
}

// BasicStrategy applies HTTP basic authentication.
type BasicStrategy struct {
	Username string
	Password string
}

// Authenticate sets the Authorization header to the base64-encoded
// credentials.
func (s BasicStrategy) Authenticate(req *http.Request) error {
	req.SetBasicAuth(s.Username, s.Password)
	return nil
}

// TokenStrategy applies a fixed bearer token.
type TokenStrategy struct {
	Token string
}

// Authenticate sets "Authorization: Bearer <token>".
func (s TokenStrategy) Authenticate(req *http.Request) error {
	req.Header.Set("Authorization", "Bearer "+s.Token)
	return nil
}

// BasicAndTokenStrategy obtains a bearer token from a token-issuing endpoint
// using basic credentials, caches it, and applies it to subsequent requests.
//
// The token endpoint is expected to respond with {"data":{"token":"..."}}.
// The cached token is reused until Invalidate is called (e.g. after a 401).
type BasicAndTokenStrategy struct {
	// AuthURL is the token-issuing endpoint, called with basic auth.
	AuthURL  string
	Username string
	Password string
	// HTTPClient performs the token fetch; its Timeout bounds the call.
	HTTPClient *http.Client

	mu    sync.Mutex
	token string
}

// NewBasicAndToken constructs a BasicAndTokenStrategy with an explicit
// timeout on the token fetch.
func NewBasicAndToken(authURL, username, password string, timeout time.Duration) *BasicAndTokenStrategy {
	return &BasicAndTokenStrategy{
		AuthURL:    authURL,
		Username:   username,
		Password:   password,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// tokenResponse is the token-issuing endpoint's body.
type tokenResponse struct {
	Data struct {
		Token string `json:"token"`
	} `json:"data"`
}

// Authenticate ensures a token is cached (fetching one if needed) and sets
// "Authorization: Bearer <token>" on req.
func (s *BasicAndTokenStrategy) Authenticate(req *http.Request) error {
	tok, err := s.currentToken(req.Context())
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	return nil
}

// Invalidate discards the cached token so the next request fetches a fresh
// one.
func (s *BasicAndTokenStrategy) Invalidate() {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
}

// currentToken returns the cached token or fetches one from AuthURL.
func (s *BasicAndTokenStrategy) currentToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token != "" {
		return s.token, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.AuthURL, nil)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(s.Username, s.Password)

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ticketing: token fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ticketing: token fetch returned status %d", resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("ticketing: token fetch: decode: %w", err)
	}
	if tr.Data.Token == "" {
		return "", fmt.Errorf("ticketing: token fetch: empty token in response")
	}

	s.token = tr.Data.Token
	return s.token, nil
}
