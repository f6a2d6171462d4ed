// Package authflow drives the authorization-code-with-PKCE flow against the
// Cognito hosted UI, plus the token-endpoint calls (code exchange, refresh)
// and revocation. A Client carries only static configuration; no state is
// retained across calls.
package authflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	retry "github.com/appleboy/go-httpretry"
)

// Timeout configuration for different operations
const (
	// AuthorizeTimeout bounds the whole interactive flow, including the time
	// the user spends in the browser.
	AuthorizeTimeout = 5 * time.Minute

	tokenExchangeTimeout = 10 * time.Second
	refreshTimeout       = 10 * time.Second
	revokeTimeout        = 10 * time.Second
)

// ErrInvalidGrant indicates that the refresh token was rejected by the token
// endpoint (expired, revoked, or already rotated away). The caller must
// re-authenticate.
var ErrInvalidGrant = errors.New("refresh token expired or invalid")

// ErrorResponse is the OAuth error payload returned by Cognito endpoints.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// Token is a token-endpoint response. RefreshToken and IDToken are empty when
// the endpoint did not include them (the refresh grant usually omits both).
type Token struct {
	AccessToken  string
	IDToken      string
	RefreshToken string
	TokenType    string
	Expiry       time.Time
}

// Client performs the protocol calls against one Cognito hosted-UI domain.
type Client struct {
	clientID         string
	domain           string
	scopes           []string
	identityProvider string
	http             *retry.Client
	prompt           func(authorizeURL string)
	openBrowser      func(authorizeURL string)
}

// Option configures optional Client behaviour.
type Option func(*Client)

// WithScopes overrides the requested scopes (default: openid email).
func WithScopes(scopes ...string) Option {
	return func(c *Client) { c.scopes = scopes }
}

// WithIdentityProvider overrides the federated identity provider requested
// from the hosted UI (default: Google).
func WithIdentityProvider(provider string) Option {
	return func(c *Client) { c.identityProvider = provider }
}

// WithPrompt sets the callback invoked with the authorization URL once the
// interactive flow is ready for the user.
func WithPrompt(prompt func(authorizeURL string)) Option {
	return func(c *Client) { c.prompt = prompt }
}

// WithBrowserOpener overrides how the authorization URL is opened in a
// browser (default: the platform opener). Pass a no-op to disable.
func WithBrowserOpener(open func(authorizeURL string)) Option {
	return func(c *Client) { c.openBrowser = open }
}

// New creates a Client for the given Cognito app client and hosted-UI domain.
// domain is a base URL such as https://example.auth.eu-west-1.amazoncognito.com.
func New(clientID, domain string, httpClient *retry.Client, opts ...Option) *Client {
	c := &Client{
		clientID:         clientID,
		domain:           strings.TrimSuffix(domain, "/"),
		scopes:           []string{"openid", "email"},
		identityProvider: "Google",
		http:             httpClient,
		openBrowser:      systemBrowserOpener,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) authorizeEndpoint() string { return c.domain + "/oauth2/authorize" }
func (c *Client) tokenEndpoint() string     { return c.domain + "/oauth2/token" }
func (c *Client) revokeEndpoint() string    { return c.domain + "/oauth2/revoke" }

// ExchangeCode posts the authorization code and PKCE verifier to the token
// endpoint and returns the issued tokens.
func (c *Client) ExchangeCode(
	ctx context.Context,
	code, verifier, redirectURI string,
) (*Token, error) {
	data := url.Values{}
	data.Set("grant_type", "authorization_code")
	data.Set("client_id", c.clientID)
	data.Set("code", code)
	data.Set("redirect_uri", redirectURI)
	data.Set("code_verifier", verifier)

	token, err := c.postTokenForm(ctx, data, tokenExchangeTimeout)
	if err != nil {
		return nil, fmt.Errorf("code exchange failed: %w", err)
	}
	return token, nil
}

// Refresh posts a refresh-token grant. A rejected refresh token surfaces as
// ErrInvalidGrant; the caller decides whether to force a new login.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Token, error) {
	data := url.Values{}
	data.Set("grant_type", "refresh_token")
	data.Set("client_id", c.clientID)
	data.Set("refresh_token", refreshToken)

	token, err := c.postTokenForm(ctx, data, refreshTimeout)
	if err != nil {
		if errors.Is(err, ErrInvalidGrant) {
			return nil, err
		}
		return nil, fmt.Errorf("refresh request failed: %w", err)
	}
	return token, nil
}

// Revoke revokes an access or refresh token. Any non-2xx response is an
// error; silently swallowing a failed revocation would leave the caller
// believing the token is dead when it is not.
func (c *Client) Revoke(ctx context.Context, token string) error {
	reqCtx, cancel := context.WithTimeout(ctx, revokeTimeout)
	defer cancel()

	data := url.Values{}
	data.Set("token", token)
	data.Set("client_id", c.clientID)

	req, err := http.NewRequestWithContext(
		reqCtx,
		http.MethodPost,
		c.revokeEndpoint(),
		strings.NewReader(data.Encode()),
	)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.DoWithContext(reqCtx, req)
	if err != nil {
		return fmt.Errorf("revocation request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errResp ErrorResponse
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
			return fmt.Errorf("revocation rejected: %s: %s", errResp.Error, errResp.ErrorDescription)
		}
		return fmt.Errorf("revocation failed with status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}

// postTokenForm posts a form to the token endpoint and parses the response.
func (c *Client) postTokenForm(
	ctx context.Context,
	data url.Values,
	timeout time.Duration,
) (*Token, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(
		reqCtx,
		http.MethodPost,
		c.tokenEndpoint(),
		strings.NewReader(data.Encode()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.DoWithContext(reqCtx, req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp ErrorResponse
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
			if errResp.Error == "invalid_grant" || errResp.Error == "invalid_token" {
				return nil, ErrInvalidGrant
			}
			return nil, fmt.Errorf("%s: %s", errResp.Error, errResp.ErrorDescription)
		}
		return nil, fmt.Errorf(
			"token endpoint returned status %d: %s",
			resp.StatusCode,
			string(body),
		)
	}

	var tokenResp struct {
		AccessToken  string `json:"access_token"`
		IDToken      string `json:"id_token"`
		RefreshToken string `json:"refresh_token"`
		TokenType    string `json:"token_type"`
		ExpiresIn    int    `json:"expires_in"`
	}

	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}

	if err := validateTokenResponse(
		tokenResp.AccessToken,
		tokenResp.TokenType,
		tokenResp.ExpiresIn,
	); err != nil {
		return nil, fmt.Errorf("invalid token response: %w", err)
	}

	return &Token{
		AccessToken:  tokenResp.AccessToken,
		IDToken:      tokenResp.IDToken,
		RefreshToken: tokenResp.RefreshToken,
		TokenType:    tokenResp.TokenType,
		Expiry:       time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second),
	}, nil
}

// validateTokenResponse validates the OAuth token response
func validateTokenResponse(accessToken, tokenType string, expiresIn int) error {
	if accessToken == "" {
		return errors.New("access_token is empty")
	}

	if len(accessToken) < 10 {
		return fmt.Errorf("access_token is too short (length: %d)", len(accessToken))
	}

	if expiresIn <= 0 {
		return fmt.Errorf("expires_in must be positive, got: %d", expiresIn)
	}

	// Token type is optional in OAuth 2.0, but if present, should be "Bearer"
	if tokenType != "" && tokenType != "Bearer" {
		return fmt.Errorf("unexpected token_type: %s (expected Bearer)", tokenType)
	}

	return nil
}
