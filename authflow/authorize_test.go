package authflow

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	retry "github.com/appleboy/go-httpretry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// startAuthorize runs Authorize in a goroutine and returns the captured
// authorization URL plus a channel carrying the final result.
func startAuthorize(
	t *testing.T,
	ctx context.Context,
	opts ...Option,
) (*url.URL, chan authorizeResult) {
	t.Helper()

	urls := make(chan string, 1)
	opts = append(opts,
		WithPrompt(func(authorizeURL string) { urls <- authorizeURL }),
		WithBrowserOpener(func(string) {}),
	)

	retryClient, err := retry.NewClient()
	require.NoError(t, err)
	client := New("test-client", "https://auth.example.com", retryClient, opts...)

	results := make(chan authorizeResult, 1)
	go func() {
		auth, err := client.Authorize(ctx)
		results <- authorizeResult{auth: auth, err: err}
	}()

	select {
	case raw := <-urls:
		parsed, err := url.Parse(raw)
		require.NoError(t, err)
		return parsed, results
	case <-time.After(5 * time.Second):
		t.Fatal("prompt was never invoked")
		return nil, nil
	}
}

type authorizeResult struct {
	auth *AuthCode
	err  error
}

// redirect simulates the hosted UI redirecting the browser back to the
// loopback listener.
func redirect(t *testing.T, authorizeURL *url.URL, params url.Values) {
	t.Helper()
	q := authorizeURL.Query()
	callbackURL := q.Get("redirect_uri") + "?" + params.Encode()
	resp, err := http.Get(callbackURL)
	require.NoError(t, err)
	resp.Body.Close()
}

func waitResult(t *testing.T, results chan authorizeResult) authorizeResult {
	t.Helper()
	select {
	case result := <-results:
		return result
	case <-time.After(5 * time.Second):
		t.Fatal("authorize did not return")
		return authorizeResult{}
	}
}

func TestAuthorize(t *testing.T) {
	authorizeURL, results := startAuthorize(t, context.Background())

	q := authorizeURL.Query()
	assert.Equal(t, "https", authorizeURL.Scheme)
	assert.Equal(t, "auth.example.com", authorizeURL.Host)
	assert.Equal(t, "/oauth2/authorize", authorizeURL.Path)
	assert.Equal(t, "test-client", q.Get("client_id"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "openid email", q.Get("scope"))
	assert.Equal(t, "Google", q.Get("identity_provider"))
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
	assert.NotEmpty(t, q.Get("state"))
	assert.NotEmpty(t, q.Get("code_challenge"))
	assert.Contains(t, q.Get("redirect_uri"), "http://127.0.0.1:")

	redirect(t, authorizeURL, url.Values{
		"code":  {"auth-code-1"},
		"state": {q.Get("state")},
	})

	result := waitResult(t, results)
	require.NoError(t, result.err)
	assert.Equal(t, "auth-code-1", result.auth.Code)
	assert.Equal(t, q.Get("redirect_uri"), result.auth.RedirectURI)

	// The challenge in the URL must be derived from the returned verifier.
	assert.Equal(
		t,
		q.Get("code_challenge"),
		oauth2.S256ChallengeFromVerifier(result.auth.Verifier),
	)
}

func TestAuthorize_CustomScopesAndProvider(t *testing.T) {
	authorizeURL, results := startAuthorize(
		t,
		context.Background(),
		WithScopes("openid", "email", "profile"),
		WithIdentityProvider("SignInWithApple"),
	)

	q := authorizeURL.Query()
	assert.Equal(t, "openid email profile", q.Get("scope"))
	assert.Equal(t, "SignInWithApple", q.Get("identity_provider"))

	redirect(t, authorizeURL, url.Values{
		"code":  {"auth-code-1"},
		"state": {q.Get("state")},
	})
	require.NoError(t, waitResult(t, results).err)
}

func TestAuthorize_UserDenied(t *testing.T) {
	authorizeURL, results := startAuthorize(t, context.Background())

	redirect(t, authorizeURL, url.Values{
		"error":             {"access_denied"},
		"error_description": {"User did not authorize the request"},
		"state":             {authorizeURL.Query().Get("state")},
	})

	result := waitResult(t, results)
	require.Error(t, result.err)
	assert.Contains(t, result.err.Error(), "access_denied")
	assert.Nil(t, result.auth)
}

func TestAuthorize_StateMismatch(t *testing.T) {
	authorizeURL, results := startAuthorize(t, context.Background())

	redirect(t, authorizeURL, url.Values{
		"code":  {"auth-code-1"},
		"state": {"forged-state"},
	})

	result := waitResult(t, results)
	require.Error(t, result.err)
	assert.Contains(t, result.err.Error(), "state mismatch")
}

func TestAuthorize_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	_, results := startAuthorize(t, ctx)

	cancel()

	result := waitResult(t, results)
	require.ErrorIs(t, result.err, context.Canceled)
}
