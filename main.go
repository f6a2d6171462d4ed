package main

import (
	"context"
	"crypto/tls"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	retry "github.com/appleboy/go-httpretry"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	tea "charm.land/bubbletea/v2"
	"github.com/go-cognito/pkce-cli/authflow"
	"github.com/go-cognito/pkce-cli/secrets"
	"github.com/go-cognito/pkce-cli/session"
	"github.com/go-cognito/pkce-cli/tui"
)

var (
	cognitoDomain     string
	cognitoClientID   string
	cognitoIssuer     string
	apiURL            string
	appScheme         string
	tokenFile         string
	flagDomain        *string
	flagClientID      *string
	flagIssuer        *string
	flagAPIURL        *string
	flagAppScheme     *string
	flagTokenFile     *string
	flagLogout        *bool
	configInitialized bool
	retryClient       *retry.Client
	logger            zerolog.Logger
)

func init() {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	// Define flags (but don't parse yet to avoid conflicts with test flags)
	flagDomain = flag.String(
		"cognito-domain",
		"",
		"Cognito hosted-UI domain base URL (required, or set COGNITO_DOMAIN env)",
	)
	flagClientID = flag.String(
		"client-id",
		"",
		"Cognito app client ID (required, or set COGNITO_CLIENT_ID env)",
	)
	flagIssuer = flag.String(
		"cognito-issuer",
		"",
		"Cognito user pool issuer URL for ID-token verification (optional, or COGNITO_ISSUER env)",
	)
	flagAPIURL = flag.String(
		"api-url",
		"",
		"Demo protected API base URL (required, or set API_URL env)",
	)
	flagAppScheme = flag.String(
		"app-scheme",
		"",
		"Application scheme used to namespace stored secrets (default: pkcecli or APP_SCHEME env)",
	)
	flagTokenFile = flag.String(
		"token-file",
		"",
		"Store the refresh token in this file instead of the OS keyring (or TOKEN_FILE env)",
	)
	flagLogout = flag.Bool("logout", false, "Revoke tokens and clear the local session")
}

// initConfig parses flags and initializes configuration
// Separated from init() to avoid conflicts with test flag parsing
func initConfig() {
	if configInitialized {
		return
	}
	configInitialized = true

	flag.Parse()

	// Priority: flag > env > default
	cognitoDomain = getConfig(*flagDomain, "COGNITO_DOMAIN", "")
	cognitoClientID = getConfig(*flagClientID, "COGNITO_CLIENT_ID", "")
	cognitoIssuer = getConfig(*flagIssuer, "COGNITO_ISSUER", "")
	apiURL = getConfig(*flagAPIURL, "API_URL", "")
	appScheme = getConfig(*flagAppScheme, "APP_SCHEME", "pkcecli")
	tokenFile = getConfig(*flagTokenFile, "TOKEN_FILE", "")

	for name, value := range map[string]string{
		"COGNITO_DOMAIN":    cognitoDomain,
		"COGNITO_CLIENT_ID": cognitoClientID,
		"API_URL":           apiURL,
	} {
		if value == "" {
			fmt.Fprintf(os.Stderr, "Error: %s not set. Provide it via flag, env, or .env file.\n", name)
			os.Exit(1)
		}
	}

	if err := validateBaseURL(cognitoDomain); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Invalid COGNITO_DOMAIN: %v\n", err)
		os.Exit(1)
	}
	if err := validateBaseURL(apiURL); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Invalid API_URL: %v\n", err)
		os.Exit(1)
	}

	// Warn if the hosted UI is reached over HTTP
	if strings.HasPrefix(strings.ToLower(cognitoDomain), "http://") {
		fmt.Fprintln(
			os.Stderr,
			"⚠️  WARNING: Using HTTP instead of HTTPS. Tokens will be transmitted in plaintext!",
		)
		fmt.Fprintln(
			os.Stderr,
			"⚠️  This is only safe for local development. Use HTTPS in production.",
		)
		fmt.Fprintln(os.Stderr)
	}

	logger = newLogger()

	// Initialize HTTP client with retry support
	baseHTTPClient := &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
			MaxIdleConns:        10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			DisableKeepAlives:   false,
		},
	}

	// Wrap with retry logic using go-httpretry
	var err error
	retryClient, err = retry.NewBackgroundClient(
		retry.WithHTTPClient(baseHTTPClient),
	)
	if err != nil {
		panic(fmt.Sprintf("failed to create retry client: %v", err))
	}
}

// getConfig returns value with priority: flag > env > default
func getConfig(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return getEnv(envKey, defaultValue)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// newLogger builds the diagnostic logger. The TUI owns the terminal, so logs
// only go somewhere when LOG_FILE is set.
func newLogger() zerolog.Logger {
	path := os.Getenv("LOG_FILE")
	if path == "" {
		return zerolog.Nop()
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: cannot open LOG_FILE: %v\n", err)
		return zerolog.Nop()
	}
	return zerolog.New(f).With().Timestamp().Logger()
}

// validateBaseURL validates that a base URL is properly formatted
func validateBaseURL(rawURL string) error {
	if rawURL == "" {
		return errors.New("URL cannot be empty")
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got: %s", u.Scheme)
	}

	if u.Host == "" {
		return errors.New("URL must include a host")
	}

	return nil
}

// newSecretStore picks the secret backend: the OS keyring by default, a
// locked JSON file when TOKEN_FILE is set (headless machines, CI).
func newSecretStore() secrets.Store {
	if tokenFile != "" {
		return secrets.NewFileStore(tokenFile)
	}
	return secrets.NewKeyringStore()
}

// isTTY reports whether stderr is a character device (interactive terminal).
// We check stderr because the TUI renders to stderr, allowing stdout to be piped.
func isTTY() bool {
	fi, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

func main() {
	initConfig()

	if isTTY() {
		// Run TUI program on stderr so stdout pipes are not corrupted
		m := tui.NewModel()
		// WithInput(nil): disable stdin/keyboard input so BubbleTea skips terminal
		// capability queries (?2026/?2027). Ctrl+C is handled by signal.NotifyContext.
		p := tea.NewProgram(m, tea.WithOutput(os.Stderr), tea.WithInput(nil))

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := p.Run(); err != nil {
				fmt.Fprintf(os.Stderr, "TUI error: %v\n", err)
			}
		}()

		d := tui.NewProgramDisplayer(p)
		d.Banner()
		runErr := run(d)
		p.Quit() // let BubbleTea drain terminal query responses before exiting
		wg.Wait()
		if runErr != nil {
			os.Exit(1)
		}
	} else {
		d := tui.NewPlainDisplayer(os.Stderr)
		d.Banner()
		if err := run(d); err != nil {
			os.Exit(1)
		}
	}
}

func run(d tui.Displayer) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := authflow.New(cognitoClientID, cognitoDomain, retryClient,
		authflow.WithPrompt(func(authorizeURL string) {
			d.AuthURLReady(authorizeURL, time.Now().Add(authflow.AuthorizeTimeout))
		}),
	)

	opts := []session.Option{session.WithLogger(logger)}
	if cognitoIssuer != "" {
		verifier, err := authflow.NewIDTokenVerifier(ctx, cognitoIssuer, cognitoClientID)
		if err != nil {
			// Discovery needs the network; a signed-out demo should still work
			// offline, so verification is skipped rather than aborting.
			logger.Warn().Err(err).Msg("id-token verification disabled")
		} else {
			opts = append(opts, session.WithIDTokenVerifier(verifier))
		}
	}

	manager := session.New(client, newSecretStore(), appScheme, opts...)

	if *flagLogout {
		return doLogout(ctx, manager, d)
	}

	// Opportunistic renewal of a session persisted by an earlier run, the
	// same way the app refreshes when it comes back to the foreground.
	if manager.HasPersistedSession() {
		d.SessionFound()
		d.Refreshing()
		if err := manager.ForceRefresh(ctx); err != nil {
			d.RefreshFailed(err)
		} else {
			d.RefreshOK()
		}
	} else {
		d.SessionNotFound()
	}

	accessToken, err := manager.GetAccessToken(ctx)
	if err != nil {
		// No usable session: interactive login.
		accessToken, err = login(ctx, manager, d)
		if err != nil {
			d.Fatal(err)
			return err
		}
	}

	showToken(accessToken, d)

	api := newAPIClient(apiURL)

	d.APIRequest(routeHealth)
	if err := api.Health(ctx); err != nil {
		d.APICallFailed(routeHealth, err)
	} else {
		d.APICallOK(routeHealth)
	}

	d.APIRequest(routeSecure)
	if err := callSecureWithAutoRefresh(ctx, api, manager, d); err != nil {
		if errors.Is(err, session.ErrNoRefreshToken) || errors.Is(err, session.ErrRefreshFailed) {
			// The refresh grant is gone; a new interactive login is the only
			// way forward.
			d.ReAuthRequired()
			if _, err := login(ctx, manager, d); err != nil {
				d.Fatal(err)
				return err
			}
			d.TokenRefreshedRetrying()
			if err := callSecureWithAutoRefresh(ctx, api, manager, d); err != nil {
				d.APICallFailed(routeSecure, err)
				return err
			}
			d.APICallOK(routeSecure)
		} else {
			d.APICallFailed(routeSecure, err)
		}
	} else {
		d.APICallOK(routeSecure)
	}

	return nil
}

// login runs the interactive flow and returns a valid access token.
func login(ctx context.Context, manager *session.Manager, d tui.Displayer) (string, error) {
	if err := manager.LoginWithGoogle(ctx); err != nil {
		if !session.IsNonFatal(err) {
			return "", err
		}
		// Login succeeded but the refresh token could not be persisted; the
		// session works until this process exits.
		d.SessionSaveFailed(err)
	} else {
		d.SessionSaved()
	}
	d.AuthSuccess()

	return manager.GetAccessToken(ctx)
}

// doLogout revokes both tokens and clears local state. Remote revocation
// failures are reported as warnings, never as reasons to keep the session.
func doLogout(ctx context.Context, manager *session.Manager, d tui.Displayer) error {
	d.LoggingOut()
	if err := manager.Logout(ctx); err != nil {
		if !session.IsNonFatal(err) {
			d.Fatal(err)
			return err
		}
		d.RevocationWarning(err)
	}
	d.LoggedOut()
	return nil
}

// showToken displays a preview of the current access token.
func showToken(accessToken string, d tui.Displayer) {
	preview := accessToken
	if len(preview) > 50 {
		preview = preview[:50]
	}
	expiresIn := time.Duration(0)
	if expiry, err := session.TokenExpiry(accessToken); err == nil {
		expiresIn = time.Until(expiry)
	}
	d.Done(preview, "Bearer", expiresIn.Round(time.Second))
}
