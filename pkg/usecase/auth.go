package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/carelens/carelens/pkg/domain/model"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/m-mizutani/goerr/v2"
)

// tokenSkew tolerates clock differences between the issuer and this service
const tokenSkew = 10 * time.Second

// AuthUseCaseInterface resolves a bearer token to the owner of the request
type AuthUseCaseInterface interface {
	Authenticate(ctx context.Context, token string) (model.OwnerID, error)
	IsNoAuthn() bool
}

// AuthUseCase verifies JWTs signed with a shared HMAC secret or by keys published at a JWKS URL.
// The sub claim becomes the owner.
type AuthUseCase struct {
	secret   []byte
	keys     *keySetCache
	issuer   string
	audience string
	now      func() time.Time
}

var _ AuthUseCaseInterface = &AuthUseCase{}

// AuthOption is a functional option for AuthUseCase
type AuthOption func(*AuthUseCase)

// WithHMACSecret verifies tokens with HS256 and the secret
func WithHMACSecret(secret []byte) AuthOption {
	return func(uc *AuthUseCase) {
		uc.secret = secret
	}
}

// WithJWKSURL verifies tokens with the key set published at url
func WithJWKSURL(url string) AuthOption {
	return func(uc *AuthUseCase) {
		uc.keys = newKeySetCache(url)
	}
}

func WithIssuer(issuer string) AuthOption {
	return func(uc *AuthUseCase) {
		uc.issuer = issuer
	}
}

func WithAudience(audience string) AuthOption {
	return func(uc *AuthUseCase) {
		uc.audience = audience
	}
}

// WithAuthClock overrides the clock used for exp/nbf checks
func WithAuthClock(now func() time.Time) AuthOption {
	return func(uc *AuthUseCase) {
		uc.now = now
	}
}

func NewAuthUseCase(options ...AuthOption) (*AuthUseCase, error) {
	uc := &AuthUseCase{now: time.Now}
	for _, opt := range options {
		opt(uc)
	}

	if len(uc.secret) == 0 && uc.keys == nil {
		return nil, goerr.New("either an HMAC secret or a JWKS URL is required")
	}
	if len(uc.secret) > 0 && uc.keys != nil {
		return nil, goerr.New("HMAC secret and JWKS URL are mutually exclusive")
	}
	return uc, nil
}

// IsNoAuthn returns false for regular AuthUseCase
func (uc *AuthUseCase) IsNoAuthn() bool {
	return false
}

// Authenticate verifies the token and returns its subject. Any verification failure is ErrUnauthenticated.
func (uc *AuthUseCase) Authenticate(ctx context.Context, token string) (model.OwnerID, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", goerr.Wrap(ErrUnauthenticated, "token is empty")
	}

	opts := []jwt.ParseOption{
		jwt.WithValidate(true),
		jwt.WithAcceptableSkew(tokenSkew),
		jwt.WithClock(jwt.ClockFunc(uc.now)),
	}
	if uc.issuer != "" {
		opts = append(opts, jwt.WithIssuer(uc.issuer))
	}
	if uc.audience != "" {
		opts = append(opts, jwt.WithAudience(uc.audience))
	}

	if uc.keys != nil {
		set, err := uc.keys.get(ctx)
		if err != nil {
			return "", goerr.Wrap(err, "failed to get verification keys")
		}
		opts = append(opts, jwt.WithKeySet(set))
	} else {
		opts = append(opts, jwt.WithKey(jwa.HS256, uc.secret))
	}

	parsed, err := jwt.Parse([]byte(token), opts...)
	if err != nil {
		return "", goerr.Wrap(ErrUnauthenticated, "failed to verify token", goerr.V("cause", err.Error()))
	}

	sub := parsed.Subject()
	if sub == "" {
		return "", goerr.Wrap(ErrUnauthenticated, "sub claim not found in token")
	}
	return model.OwnerID(sub), nil
}
