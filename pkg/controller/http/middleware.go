package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/carelens/carelens/pkg/domain/model"
	"github.com/carelens/carelens/pkg/usecase"
	"github.com/carelens/carelens/pkg/utils/logging"
	"github.com/go-chi/httprate"
	"github.com/m-mizutani/goerr/v2"
)

type AuthUseCase = usecase.AuthUseCaseInterface

// authMiddleware resolves the bearer token to an owner and stores it in the request context
func authMiddleware(authUC AuthUseCase) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if authUC == nil {
				handleError(w, r, goerr.Wrap(usecase.ErrUnauthenticated, "authentication is not configured"))
				return
			}

			token, ok := bearerToken(r)
			if !ok && !authUC.IsNoAuthn() {
				handleError(w, r, goerr.Wrap(usecase.ErrUnauthenticated, "bearer token required"))
				return
			}

			owner, err := authUC.Authenticate(r.Context(), token)
			if err != nil {
				handleError(w, r, err)
				return
			}

			ctx := model.ContextWithOwner(r.Context(), owner)
			ctx = logging.With(ctx, logging.From(ctx).With(usecase.OwnerKey, owner))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// rateLimitMiddleware admits at most limit submissions per owner within window. It must run after authMiddleware.
// A non-positive limit disables limiting.
func rateLimitMiddleware(limit int, window time.Duration) func(http.Handler) http.Handler {
	if limit <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	return httprate.Limit(limit, window,
		httprate.WithKeyFuncs(ownerKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			owner, _ := model.OwnerFromContext(r.Context())
			handleError(w, r, goerr.Wrap(usecase.ErrRateLimited, "too many submissions",
				goerr.V(usecase.OwnerKey, owner),
				goerr.V("retry_after", w.Header().Get("Retry-After"))))
		}),
		httprate.WithErrorHandler(handleError),
	)
}

func ownerKey(r *http.Request) (string, error) {
	owner, ok := model.OwnerFromContext(r.Context())
	if !ok {
		return "", goerr.Wrap(usecase.ErrUnauthenticated, "owner missing before rate limit")
	}
	return owner.String(), nil
}
