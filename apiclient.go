package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/go-cognito/pkce-cli/tui"
)

const (
	routeHealth = "/health"
	routeSecure = "/secure"

	apiRequestTimeout = 10 * time.Second
)

// apiClient calls the demo protected API.
type apiClient struct {
	http *resty.Client
}

func newAPIClient(baseURL string) *apiClient {
	return &apiClient{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(apiRequestTimeout),
	}
}

// Health calls the unauthenticated health route.
func (a *apiClient) Health(ctx context.Context) error {
	resp, err := a.http.R().SetContext(ctx).Get(routeHealth)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("API call failed with status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

// Secure calls the bearer-protected route and returns the response status.
func (a *apiClient) Secure(ctx context.Context, accessToken string) (int, error) {
	resp, err := a.http.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		Get(routeSecure)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	return resp.StatusCode(), nil
}

// tokenSource is the slice of the session manager the API caller needs.
type tokenSource interface {
	GetAccessToken(ctx context.Context) (string, error)
	ForceRefresh(ctx context.Context) error
}

// callSecureWithAutoRefresh calls the protected route and, on a 401, forces
// one token refresh and retries.
func callSecureWithAutoRefresh(
	ctx context.Context,
	api *apiClient,
	tokens tokenSource,
	d tui.Displayer,
) error {
	accessToken, err := tokens.GetAccessToken(ctx)
	if err != nil {
		return err
	}

	status, err := api.Secure(ctx, accessToken)
	if err != nil {
		return err
	}

	if status == http.StatusUnauthorized {
		d.AccessTokenRejected()

		if err := tokens.ForceRefresh(ctx); err != nil {
			return err
		}
		accessToken, err = tokens.GetAccessToken(ctx)
		if err != nil {
			return err
		}
		d.TokenRefreshedRetrying()

		status, err = api.Secure(ctx, accessToken)
		if err != nil {
			return err
		}
	}

	if status != http.StatusOK {
		return fmt.Errorf("API call failed with status %d", status)
	}
	return nil
}
