package authflow

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
)

// IDTokenVerifier checks the ID token issued alongside the access token
// against the Cognito user pool's published signing keys.
type IDTokenVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewIDTokenVerifier discovers the issuer's OIDC configuration and builds a
// verifier bound to the given client ID. issuer is the user pool issuer URL,
// e.g. https://cognito-idp.eu-west-1.amazonaws.com/eu-west-1_XXXX.
func NewIDTokenVerifier(ctx context.Context, issuer, clientID string) (*IDTokenVerifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover issuer: %w", err)
	}
	return &IDTokenVerifier{
		verifier: provider.Verifier(&oidc.Config{ClientID: clientID}),
	}, nil
}

// Verify validates the raw ID token's signature, issuer, audience, and expiry.
func (v *IDTokenVerifier) Verify(ctx context.Context, rawIDToken string) error {
	if _, err := v.verifier.Verify(ctx, rawIDToken); err != nil {
		return fmt.Errorf("id token verification failed: %w", err)
	}
	return nil
}
