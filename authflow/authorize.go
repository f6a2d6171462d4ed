package authflow

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os/exec"
	"runtime"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// AuthCode is the outcome of a successful interactive authorization: the
// one-time code plus the PKCE verifier and redirect URI needed to exchange it.
type AuthCode struct {
	Code        string
	Verifier    string
	RedirectURI string
}

// Authorize runs the interactive PKCE flow. It generates a verifier/challenge
// pair and a state value, starts a loopback redirect listener, hands the
// authorization URL to the prompt callback and makes a best-effort attempt to
// open it in the default browser, then waits for the hosted UI to redirect
// back. Every outcome resolves: user denial, a state mismatch,
// context cancellation, and the overall AuthorizeTimeout all return an error
// rather than hanging.
func (c *Client) Authorize(ctx context.Context) (*AuthCode, error) {
	ctx, cancel := context.WithTimeout(ctx, AuthorizeTimeout)
	defer cancel()

	verifier := oauth2.GenerateVerifier()
	challenge := oauth2.S256ChallengeFromVerifier(verifier)
	state := uuid.NewString()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to start redirect listener: %w", err)
	}
	redirectURI := fmt.Sprintf("http://%s/callback", ln.Addr().String())

	type callback struct {
		code string
		err  error
	}
	results := make(chan callback, 1)
	deliver := func(cb callback) {
		// Only the first redirect counts.
		select {
		case results <- cb:
		default:
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("state") != state:
			http.Error(w, "state mismatch", http.StatusBadRequest)
			deliver(callback{err: errors.New("state mismatch in redirect")})
		case q.Get("error") != "":
			fmt.Fprintln(w, "Authorization was not completed. You can close this window.")
			deliver(callback{err: fmt.Errorf(
				"authorization not completed: %s: %s",
				q.Get("error"),
				q.Get("error_description"),
			)})
		case q.Get("code") == "":
			http.Error(w, "missing code", http.StatusBadRequest)
			deliver(callback{err: errors.New("redirect carried no authorization code")})
		default:
			fmt.Fprintln(w, "Authorization complete. You can close this window.")
			deliver(callback{code: q.Get("code")})
		}
	})

	srv := &http.Server{Handler: mux}
	go srv.Serve(ln)
	defer srv.Close()

	authorizeURL := c.authorizeURL(redirectURI, state, challenge)
	if c.prompt != nil {
		c.prompt(authorizeURL)
	}
	c.openBrowser(authorizeURL)

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("authorization not completed: %w", ctx.Err())
	case cb := <-results:
		if cb.err != nil {
			return nil, cb.err
		}
		return &AuthCode{
			Code:        cb.code,
			Verifier:    verifier,
			RedirectURI: redirectURI,
		}, nil
	}
}

// systemBrowserOpener launches the platform's default browser. Failures are
// ignored: the URL is always shown to the user, so a headless machine or a
// missing opener just means a manual copy-paste.
func systemBrowserOpener(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	_ = cmd.Start()
}

// authorizeURL builds the hosted-UI authorization URL.
func (c *Client) authorizeURL(redirectURI, state, challenge string) string {
	q := url.Values{}
	q.Set("client_id", c.clientID)
	q.Set("redirect_uri", redirectURI)
	q.Set("response_type", "code")
	q.Set("scope", strings.Join(c.scopes, " "))
	q.Set("identity_provider", c.identityProvider)
	q.Set("state", state)
	q.Set("code_challenge", challenge)
	q.Set("code_challenge_method", "S256")
	return c.authorizeEndpoint() + "?" + q.Encode()
}
