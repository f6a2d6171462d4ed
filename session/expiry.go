package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// expirySkew is the safety margin applied when judging freshness: a token
// within expirySkew of its expiry is treated as already expired, so it is
// never handed to an API call that would race the clock.
const expirySkew = 30 * time.Second

// TokenExpiry decodes the expiration claim embedded in an access token. The
// signature is deliberately not checked here: only the resource server needs
// to trust the token, the lifecycle manager merely schedules refreshes by it.
func TokenExpiry(raw string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return time.Time{}, fmt.Errorf("failed to decode access token: %w", err)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read expiration claim: %w", err)
	}
	if exp == nil {
		return time.Time{}, errors.New("access token has no expiration claim")
	}
	return exp.Time, nil
}
