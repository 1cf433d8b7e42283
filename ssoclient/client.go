// Package ssoclient lets a downstream Go service finish the SSO handoff, keep its session
// fresh through refresh rotation and verify access tokens against the published keys.
package ssoclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"github.com/jrsteele09/go-sso-server/users"
)

const (
	pathSSOToken     = "/sso-token"
	pathRefreshToken = "/users/refresh-token"

	headerAccessToken  = "X-Access-Token"
	headerRefreshToken = "X-Refresh-Token"

	maxErrorBody = 4 << 10
)

// Session is the result of an SSO exchange or a refresh
type Session struct {
	User         users.Profile
	AccessToken  string
	RefreshToken string
	Expiry       time.Time // Zero when the access token carries no exp claim
}

// Token converts the session to an oauth2 token
func (s *Session) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  s.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: s.RefreshToken,
		Expiry:       s.Expiry,
	}
}

// APIError is a non-2xx answer from the SSO server
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("sso server responded %d: %s", e.StatusCode, e.Message)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// New creates a client for the SSO server at baseURL (e.g., "https://auth.example.com")
func New(baseURL string, options ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// ExchangeSSOToken trades the SSO cookie issued by the auth server for a session
func (c *Client) ExchangeSSOToken(ctx context.Context, cookies ...*http.Cookie) (*Session, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+pathSSOToken, nil)
	if err != nil {
		return nil, fmt.Errorf("[ExchangeSSOToken] %w", err)
	}
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	return c.doSession(req)
}

// Refresh rotates refreshToken. The returned session carries its replacement.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	body, err := json.Marshal(map[string]string{"token": refreshToken})
	if err != nil {
		return nil, fmt.Errorf("[Refresh] %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+pathRefreshToken, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("[Refresh] %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.doSession(req)
}

func (c *Client) doSession(req *http.Request) (*Session, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sso request %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}

	s := &Session{
		AccessToken:  resp.Header.Get(headerAccessToken),
		RefreshToken: resp.Header.Get(headerRefreshToken),
	}
	if s.AccessToken == "" {
		return nil, fmt.Errorf("sso request %s: response carries no access token", req.URL.Path)
	}
	if err := json.NewDecoder(resp.Body).Decode(&s.User); err != nil {
		return nil, fmt.Errorf("sso request %s: decode profile: %w", req.URL.Path, err)
	}
	s.Expiry = tokenExpiry(s.AccessToken)
	return s, nil
}

// tokenExpiry reads exp without verifying the signature; it only schedules renewal
func tokenExpiry(raw string) time.Time {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil || claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}
