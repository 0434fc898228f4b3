package config

import (
	"log/slog"

	"github.com/carelens/carelens/pkg/domain/model"
	"github.com/carelens/carelens/pkg/usecase"
	"github.com/carelens/carelens/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// Auth holds bearer token verification settings
type Auth struct {
	hmacSecret string
	jwksURL    string
	issuer     string
	audience   string
	noAuthUser string
}

// Flags returns CLI flags for authentication
func (a *Auth) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "auth-hmac-secret",
			Category:    "Authentication",
			Usage:       "Shared secret for HS256 bearer tokens",
			Sources:     cli.EnvVars("CARELENS_AUTH_HMAC_SECRET"),
			Destination: &a.hmacSecret,
		},
		&cli.StringFlag{
			Name:        "auth-jwks-url",
			Category:    "Authentication",
			Usage:       "JWKS URL of the token issuer",
			Sources:     cli.EnvVars("CARELENS_AUTH_JWKS_URL"),
			Destination: &a.jwksURL,
		},
		&cli.StringFlag{
			Name:        "auth-issuer",
			Category:    "Authentication",
			Usage:       "Required iss claim",
			Sources:     cli.EnvVars("CARELENS_AUTH_ISSUER"),
			Destination: &a.issuer,
		},
		&cli.StringFlag{
			Name:        "auth-audience",
			Category:    "Authentication",
			Usage:       "Required aud claim",
			Sources:     cli.EnvVars("CARELENS_AUTH_AUDIENCE"),
			Destination: &a.audience,
		},
		&cli.StringFlag{
			Name:        "no-auth",
			Category:    "Authentication",
			Usage:       "Skip authentication and run every request as the given owner (development only)",
			Sources:     cli.EnvVars("CARELENS_NO_AUTH"),
			Destination: &a.noAuthUser,
		},
	}
}

// LogAttrs returns log attributes without secrets
func (a *Auth) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.Bool("hmac", a.hmacSecret != ""),
		slog.String("jwks_url", a.jwksURL),
		slog.String("issuer", a.issuer),
		slog.String("audience", a.audience),
		slog.String("no_auth", a.noAuthUser),
	}
}

// IsNoAuthMode returns true if authentication is skipped
func (a *Auth) IsNoAuthMode() bool {
	return a.noAuthUser != ""
}

// Configure returns the authentication use case for the configured mode
func (a *Auth) Configure() (usecase.AuthUseCaseInterface, error) {
	if a.IsNoAuthMode() {
		if a.hmacSecret != "" || a.jwksURL != "" {
			return nil, goerr.Wrap(ErrInvalidConfig, "--no-auth cannot be combined with token verification settings")
		}
		logging.Default().Warn("Running in no-auth mode (development only)", "owner", a.noAuthUser)
		return usecase.NewNoAuthnUseCase(model.OwnerID(a.noAuthUser)), nil
	}

	var opts []usecase.AuthOption
	switch {
	case a.hmacSecret != "" && a.jwksURL != "":
		return nil, goerr.Wrap(ErrInvalidConfig, "--auth-hmac-secret and --auth-jwks-url are mutually exclusive")
	case a.hmacSecret != "":
		opts = append(opts, usecase.WithHMACSecret([]byte(a.hmacSecret)))
	case a.jwksURL != "":
		opts = append(opts, usecase.WithJWKSURL(a.jwksURL))
	default:
		return nil, goerr.Wrap(ErrInvalidConfig, "authentication requires --auth-hmac-secret, --auth-jwks-url or --no-auth")
	}
	if a.issuer != "" {
		opts = append(opts, usecase.WithIssuer(a.issuer))
	}
	if a.audience != "" {
		opts = append(opts, usecase.WithAudience(a.audience))
	}

	authUC, err := usecase.NewAuthUseCase(opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to configure authentication")
	}
	return authUC, nil
}

// LogValue implements slog.LogValuer
func (a *Auth) LogValue() slog.Value {
	return slog.GroupValue(a.LogAttrs()...)
}
