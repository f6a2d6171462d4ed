// Package session implements the token lifecycle: acquiring tokens through
// the interactive login, keeping the access token fresh via the refresh
// grant, and revoking everything on logout.
//
// The access token lives only in volatile memory and is never written to
// disk. The refresh token lives only in the secure store and is never handed
// to callers; every use reads it back for the duration of a single operation.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/go-cognito/pkce-cli/authflow"
	"github.com/go-cognito/pkce-cli/secrets"
)

// AuthClient is the protocol half of the lifecycle, implemented by
// authflow.Client.
type AuthClient interface {
	Authorize(ctx context.Context) (*authflow.AuthCode, error)
	ExchangeCode(ctx context.Context, code, verifier, redirectURI string) (*authflow.Token, error)
	Refresh(ctx context.Context, refreshToken string) (*authflow.Token, error)
	Revoke(ctx context.Context, token string) error
}

// IDTokenVerifier optionally checks the ID token returned by the code
// exchange before the session is accepted.
type IDTokenVerifier interface {
	Verify(ctx context.Context, rawIDToken string) error
}

// Manager owns one user session on one device.
type Manager struct {
	client   AuthClient
	store    secrets.Store
	storeKey string
	verifier IDTokenVerifier
	logger   zerolog.Logger
	now      func() time.Time

	mu          sync.Mutex
	accessToken string

	// Coalesces concurrent refresh attempts into one network call. Cognito
	// invalidates the previous grant when rotation is enabled, so duplicate
	// in-flight refreshes risk handing one caller a dead token.
	refreshGroup singleflight.Group
}

// Option configures optional Manager behaviour.
type Option func(*Manager)

// WithLogger sets the logger (default: no-op).
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithNow overrides the clock, for tests.
func WithNow(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithIDTokenVerifier enables ID-token verification during login.
func WithIDTokenVerifier(v IDTokenVerifier) Option {
	return func(m *Manager) { m.verifier = v }
}

// New creates a Manager for the given app scheme with injected collaborators.
// The session starts empty; a persisted refresh token from an earlier process
// is picked up lazily on the first GetAccessToken or ForceRefresh.
func New(client AuthClient, store secrets.Store, appScheme string, opts ...Option) *Manager {
	m := &Manager{
		client:   client,
		store:    store,
		storeKey: secrets.Key(appScheme),
		logger:   zerolog.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// GetAccessToken returns an access token that is valid for at least
// expirySkew. The fast path returns the in-memory token without any network
// or storage I/O; otherwise a refresh-grant request is made using the
// persisted refresh token.
//
// ErrNoRefreshToken and ErrRefreshFailed both mean re-authentication is
// required.
func (m *Manager) GetAccessToken(ctx context.Context) (string, error) {
	if token, ok := m.freshToken(); ok {
		return token, nil
	}
	return m.refresh(ctx, false)
}

// ForceRefresh renews the access token regardless of its remaining lifetime.
// Call sites use it on application focus to opportunistically renew; with no
// prior session it reports ErrNoRefreshToken, which callers may treat as
// "not logged in yet".
func (m *Manager) ForceRefresh(ctx context.Context) error {
	_, err := m.refresh(ctx, true)
	return err
}

// LoginWithGoogle runs the interactive authorization and code exchange, then
// stores the session: access token in memory, refresh token in the secure
// store. A persistence failure is returned as a non-fatal ErrStorage — the
// access token stays usable for the current process.
func (m *Manager) LoginWithGoogle(ctx context.Context) error {
	auth, err := m.client.Authorize(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuthorizationFailed, err)
	}

	token, err := m.client.ExchangeCode(ctx, auth.Code, auth.Verifier, auth.RedirectURI)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTokenExchangeFailed, err)
	}

	if m.verifier != nil && token.IDToken != "" {
		if err := m.verifier.Verify(ctx, token.IDToken); err != nil {
			return fmt.Errorf("%w: %v", ErrTokenExchangeFailed, err)
		}
	}

	m.setAccessToken(token.AccessToken)
	m.logger.Info().Time("expiry", token.Expiry).Msg("login completed")

	if token.RefreshToken != "" {
		if err := m.store.Set(m.storeKey, token.RefreshToken); err != nil {
			m.logger.Warn().Err(err).Msg("failed to persist refresh token")
			return nonFatal(fmt.Errorf("%w: persisting refresh token: %v", ErrStorage, err))
		}
	}

	return nil
}

// Logout revokes both tokens remotely and erases both copies locally. Local
// state always ends empty regardless of remote outcomes: a user who logged
// out must never be left logged in on the device. Remote failures are
// collected and returned as a non-fatal warning. Calling Logout with no
// session at all is a no-op success.
func (m *Manager) Logout(ctx context.Context) error {
	var warnings []error

	refreshToken, err := m.store.Get(m.storeKey)
	switch {
	case err != nil:
		warnings = append(warnings, fmt.Errorf("%w: reading refresh token: %v", ErrStorage, err))
	case refreshToken != "":
		if err := m.client.Revoke(ctx, refreshToken); err != nil {
			m.logger.Warn().Err(err).Msg("failed to revoke refresh token")
			warnings = append(warnings, fmt.Errorf("%w: refresh token: %v", ErrRevocationFailed, err))
		}
	}

	if err := m.store.Delete(m.storeKey); err != nil {
		warnings = append(warnings, fmt.Errorf("%w: deleting refresh token: %v", ErrStorage, err))
	}

	m.mu.Lock()
	accessToken := m.accessToken
	m.accessToken = ""
	m.mu.Unlock()

	if accessToken != "" {
		if err := m.client.Revoke(ctx, accessToken); err != nil {
			m.logger.Warn().Err(err).Msg("failed to revoke access token")
			warnings = append(warnings, fmt.Errorf("%w: access token: %v", ErrRevocationFailed, err))
		}
	}

	if len(warnings) > 0 {
		return nonFatal(errors.Join(warnings...))
	}
	m.logger.Info().Msg("logout completed")
	return nil
}

// HasPersistedSession reports whether a refresh token is stored for this app
// scheme. The token value itself is never handed out.
func (m *Manager) HasPersistedSession() bool {
	value, err := m.store.Get(m.storeKey)
	return err == nil && value != ""
}

// freshToken returns the in-memory access token when its expiry claim is more
// than expirySkew in the future. A token that cannot be decoded is treated as
// expired.
func (m *Manager) freshToken() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.accessToken == "" {
		return "", false
	}
	expiry, err := TokenExpiry(m.accessToken)
	if err != nil {
		return "", false
	}
	if m.now().Add(expirySkew).Before(expiry) {
		return m.accessToken, true
	}
	return "", false
}

// refresh runs the refresh-grant path through the single-flight group so
// concurrent callers share one network call. Unless force is set, the token
// freshness is re-checked inside the flight: a caller arriving right after a
// completed refresh gets the new token without another request.
func (m *Manager) refresh(ctx context.Context, force bool) (string, error) {
	result, err, _ := m.refreshGroup.Do("refresh", func() (any, error) {
		if !force {
			if token, ok := m.freshToken(); ok {
				return token, nil
			}
		}

		refreshToken, err := m.store.Get(m.storeKey)
		if err != nil {
			return nil, fmt.Errorf("%w: reading refresh token: %v", ErrStorage, err)
		}
		if refreshToken == "" {
			return nil, ErrNoRefreshToken
		}

		token, err := m.client.Refresh(ctx, refreshToken)
		if err != nil {
			// The persisted refresh token stays put: re-authentication is the
			// user's choice, not forced by a transient failure.
			return nil, fmt.Errorf("%w: %v", ErrRefreshFailed, err)
		}

		m.setAccessToken(token.AccessToken)
		m.logger.Debug().Time("expiry", token.Expiry).Msg("access token refreshed")

		// Rotation policy: when the endpoint issues a new refresh token the
		// previous grant is dead, so the replacement is persisted immediately.
		// When none is issued the stored token stays valid and is kept.
		if token.RefreshToken != "" && token.RefreshToken != refreshToken {
			if err := m.store.Set(m.storeKey, token.RefreshToken); err != nil {
				// The fresh access token keeps this process working; the next
				// start will need an interactive login.
				m.logger.Warn().Err(err).Msg("failed to persist rotated refresh token")
			}
		}

		return token.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (m *Manager) setAccessToken(token string) {
	m.mu.Lock()
	m.accessToken = token
	m.mu.Unlock()
}
