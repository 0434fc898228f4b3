package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/carelens/carelens/pkg/usecase"
	"github.com/carelens/carelens/pkg/utils/errutil"
	"github.com/carelens/carelens/pkg/utils/logging"
	"github.com/carelens/carelens/pkg/utils/safe"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/m-mizutani/goerr/v2"
)

// maxBodyBytes bounds request bodies of submission endpoints
const maxBodyBytes = 64 << 10

type Server struct {
	router     *chi.Mux
	search     *usecase.SearchUseCase
	authUC     AuthUseCase
	rateLimit  int
	rateWindow time.Duration
}

type Options func(*Server)

func WithAuth(authUC AuthUseCase) Options {
	return func(s *Server) {
		s.authUC = authUC
	}
}

// WithRateLimit allows at most limit submissions per owner within window. Zero disables limiting.
func WithRateLimit(limit int, window time.Duration) Options {
	return func(s *Server) {
		s.rateLimit = limit
		s.rateWindow = window
	}
}

func New(uc *usecase.UseCases, opts ...Options) (*Server, error) {
	if uc == nil || uc.Search == nil {
		return nil, goerr.New("search use case is required")
	}

	r := chi.NewRouter()
	s := &Server{
		router: r,
		search: uc.Search,
		authUC: uc.Auth,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", healthHandler)

	r.Route("/api/searches", func(r chi.Router) {
		r.Use(authMiddleware(s.authUC))

		r.Group(func(r chi.Router) {
			r.Use(rateLimitMiddleware(s.rateLimit, s.rateWindow))
			r.Post("/symptoms", s.submitSymptomsHandler)
			r.Post("/medicines", s.submitMedicineHandler)
		})

		r.Get("/", s.listSearchesHandler)
		r.Get("/{searchId}", s.getSearchHandler)
		r.Delete("/{searchId}", s.deleteSearchHandler)
	})

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// accessLogger is a middleware that logs HTTP requests
func accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		logger := logging.From(r.Context()).With("request_id", middleware.GetReqID(r.Context()))
		r = r.WithContext(logging.With(r.Context(), logger))

		defer func() {
			logger.Info("access",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
				"user_agent", r.UserAgent(),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "failed to marshal response"), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	safe.Write(r.Context(), w, data)
}
