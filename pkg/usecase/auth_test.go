package usecase_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/carelens/carelens/pkg/domain/model"
	"github.com/carelens/carelens/pkg/usecase"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/m-mizutani/gt"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func signHMAC(t *testing.T, secret []byte, build func(b *jwt.Builder) *jwt.Builder) string {
	t.Helper()
	tok, err := build(jwt.NewBuilder()).Build()
	gt.NoError(t, err).Required()
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, secret))
	gt.NoError(t, err).Required()
	return string(signed)
}

func TestAuthUseCase_HMAC(t *testing.T) {
	now := time.Now()
	uc, err := usecase.NewAuthUseCase(
		usecase.WithHMACSecret(testSecret),
		usecase.WithIssuer("carelens-test"),
		usecase.WithAudience("carelens"),
	)
	gt.NoError(t, err).Required()
	gt.Bool(t, uc.IsNoAuthn()).False()

	valid := func(b *jwt.Builder) *jwt.Builder {
		return b.Subject("user-1").
			Issuer("carelens-test").
			Audience([]string{"carelens"}).
			IssuedAt(now).
			Expiration(now.Add(time.Hour))
	}

	t.Run("valid token returns the subject", func(t *testing.T) {
		owner, err := uc.Authenticate(context.Background(), signHMAC(t, testSecret, valid))
		gt.NoError(t, err).Required()
		gt.Value(t, owner).Equal(model.OwnerID("user-1"))
	})

	testCases := []struct {
		name  string
		token func(t *testing.T) string
	}{
		{
			name:  "empty token",
			token: func(t *testing.T) string { return "" },
		},
		{
			name:  "not a JWT",
			token: func(t *testing.T) string { return "not-a-token" },
		},
		{
			name: "wrong secret",
			token: func(t *testing.T) string {
				return signHMAC(t, []byte("another-secret-another-secret-xx"), valid)
			},
		},
		{
			name: "expired",
			token: func(t *testing.T) string {
				return signHMAC(t, testSecret, func(b *jwt.Builder) *jwt.Builder {
					return valid(b).Expiration(now.Add(-time.Hour))
				})
			},
		},
		{
			name: "wrong issuer",
			token: func(t *testing.T) string {
				return signHMAC(t, testSecret, func(b *jwt.Builder) *jwt.Builder {
					return valid(b).Issuer("someone-else")
				})
			},
		},
		{
			name: "wrong audience",
			token: func(t *testing.T) string {
				return signHMAC(t, testSecret, func(b *jwt.Builder) *jwt.Builder {
					return valid(b).Audience([]string{"other"})
				})
			},
		},
		{
			name: "missing subject",
			token: func(t *testing.T) string {
				return signHMAC(t, testSecret, func(b *jwt.Builder) *jwt.Builder {
					return b.Issuer("carelens-test").Audience([]string{"carelens"}).Expiration(now.Add(time.Hour))
				})
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := uc.Authenticate(context.Background(), tc.token(t))
			gt.Error(t, err).Is(usecase.ErrUnauthenticated)
		})
	}
}

func TestAuthUseCase_Skew(t *testing.T) {
	now := time.Now()
	token := signHMAC(t, testSecret, func(b *jwt.Builder) *jwt.Builder {
		return b.Subject("user-1").Expiration(now)
	})

	t.Run("within skew", func(t *testing.T) {
		uc, err := usecase.NewAuthUseCase(
			usecase.WithHMACSecret(testSecret),
			usecase.WithAuthClock(func() time.Time { return now.Add(5 * time.Second) }),
		)
		gt.NoError(t, err).Required()
		_, err = uc.Authenticate(context.Background(), token)
		gt.NoError(t, err)
	})

	t.Run("beyond skew", func(t *testing.T) {
		uc, err := usecase.NewAuthUseCase(
			usecase.WithHMACSecret(testSecret),
			usecase.WithAuthClock(func() time.Time { return now.Add(time.Minute) }),
		)
		gt.NoError(t, err).Required()
		_, err = uc.Authenticate(context.Background(), token)
		gt.Error(t, err).Is(usecase.ErrUnauthenticated)
	})
}

func TestAuthUseCase_KeySet(t *testing.T) {
	raw, err := rsa.GenerateKey(rand.Reader, 2048)
	gt.NoError(t, err).Required()
	priv, err := jwk.FromRaw(raw)
	gt.NoError(t, err).Required()
	gt.NoError(t, priv.Set(jwk.KeyIDKey, "key-1"))
	gt.NoError(t, priv.Set(jwk.AlgorithmKey, jwa.RS256))

	pub, err := jwk.PublicKeyOf(priv)
	gt.NoError(t, err).Required()
	set := jwk.NewSet()
	gt.NoError(t, set.AddKey(pub))

	fetches := 0
	uc, err := usecase.NewAuthUseCase(usecase.WithStaticKeySet(set, &fetches))
	gt.NoError(t, err).Required()

	tok, err := jwt.NewBuilder().Subject("user-2").Expiration(time.Now().Add(time.Hour)).Build()
	gt.NoError(t, err).Required()
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.RS256, priv))
	gt.NoError(t, err).Required()

	for range 3 {
		owner, err := uc.Authenticate(context.Background(), string(signed))
		gt.NoError(t, err).Required()
		gt.Value(t, owner).Equal(model.OwnerID("user-2"))
	}
	gt.Value(t, fetches).Equal(1)

	_, err = uc.Authenticate(context.Background(), signHMAC(t, testSecret, func(b *jwt.Builder) *jwt.Builder {
		return b.Subject("user-2")
	}))
	gt.Error(t, err).Is(usecase.ErrUnauthenticated)
}

func TestNewAuthUseCase_RequiresOneKeySource(t *testing.T) {
	_, err := usecase.NewAuthUseCase()
	gt.Error(t, err)

	_, err = usecase.NewAuthUseCase(usecase.WithHMACSecret(testSecret), usecase.WithJWKSURL("https://example.com/jwks.json"))
	gt.Error(t, err)
}
