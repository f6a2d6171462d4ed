// Command demo-api serves the demo protected API: a public health route and a
// /secure route that requires a Cognito access token. Tokens are validated
// against the user pool's JWKS.
package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"github.com/kelseyhightower/envconfig"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

type Env struct {
	CognitoUserPoolID string `envconfig:"COGNITO_USER_POOL_ID" required:"true"`
	Region            string `envconfig:"AWS_DEFAULT_REGION" required:"true"`
	Port              string `envconfig:"PORT" default:"8080"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func main() {
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	var env Env
	if err := envconfig.Process("", &env); err != nil {
		logger.Fatal().Err(err).Msg("failed to parse env")
	}

	validator, err := newAccessTokenValidator(env.Region, env.CognitoUserPoolID)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialise token validator")
	}

	e := echo.New()
	e.HideBanner = true

	e.GET("/health", handleHealth)
	e.GET("/secure", handleSecure(validator, logger))

	logger.Info().Str("port", env.Port).Msg("demo API listening")
	if err := e.Start(":" + env.Port); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}

func handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, messageResponse{Message: "ok"})
}

// handleSecure validates the bearer token before answering. A missing header
// is a 400; an invalid or expired token is a 401 so clients know to refresh.
func handleSecure(validator *accessTokenValidator, logger zerolog.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get("Authorization")
		if header == "" {
			return c.String(http.StatusBadRequest, "BadRequest")
		}
		accessToken := strings.TrimPrefix(header, "Bearer ")

		claims, err := validator.Parse(accessToken)
		if err != nil {
			logger.Warn().Err(err).Msg("rejected access token")
			return c.String(http.StatusUnauthorized, "Unauthorized")
		}

		logger.Info().
			Interface("sub", claims["sub"]).
			Msg("authorized request")

		return c.JSON(http.StatusOK, messageResponse{Message: "ok"})
	}
}

// accessTokenValidator checks token signatures against the user pool's JWKS.
// The keyfunc refreshes the key set in the background, so it is built once at
// startup.
type accessTokenValidator struct {
	keys keyfunc.Keyfunc
}

func newAccessTokenValidator(region, userPoolID string) (*accessTokenValidator, error) {
	jwksURL := fmt.Sprintf(
		"https://cognito-idp.%s.amazonaws.com/%s/.well-known/jwks.json",
		region, userPoolID,
	)
	return newAccessTokenValidatorFromURL(jwksURL)
}

func newAccessTokenValidatorFromURL(jwksURL string) (*accessTokenValidator, error) {
	keys, err := keyfunc.NewDefault([]string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("failed to load JWKS: %w", err)
	}
	return &accessTokenValidator{keys: keys}, nil
}

// Parse validates the token and returns its claims.
func (v *accessTokenValidator) Parse(accessToken string) (jwt.MapClaims, error) {
	token, err := jwt.ParseWithClaims(accessToken, jwt.MapClaims{}, v.keys.Keyfunc)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("unexpected claims type %T", token.Claims)
	}
	return claims, nil
}
