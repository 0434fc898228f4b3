package usecase

import (
	"time"

	"github.com/carelens/carelens/pkg/domain/interfaces"
	"github.com/carelens/carelens/pkg/service/genai"
	"github.com/carelens/carelens/pkg/service/schema"
	"github.com/carelens/carelens/pkg/service/worker"
	"github.com/carelens/carelens/pkg/utils/retry"
)

type UseCases struct {
	repo       interfaces.Repository
	executor   genai.Executor
	dispatcher worker.Dispatcher
	retrier    *retry.Retrier
	profiles   ProfileProvider
	now        func() time.Time

	Search *SearchUseCase
	Auth   AuthUseCaseInterface
}

type Option func(*UseCases)

// WithExecutor sets the generative call executor. Without one every generation ends errored.
func WithExecutor(executor genai.Executor) Option {
	return func(uc *UseCases) {
		uc.executor = executor
	}
}

func WithDispatcher(dispatcher worker.Dispatcher) Option {
	return func(uc *UseCases) {
		uc.dispatcher = dispatcher
	}
}

func WithRetrier(retrier *retry.Retrier) Option {
	return func(uc *UseCases) {
		uc.retrier = retrier
	}
}

func WithProfileProvider(profiles ProfileProvider) Option {
	return func(uc *UseCases) {
		uc.profiles = profiles
	}
}

func WithClock(now func() time.Time) Option {
	return func(uc *UseCases) {
		uc.now = now
	}
}

func WithAuth(auth AuthUseCaseInterface) Option {
	return func(uc *UseCases) {
		uc.Auth = auth
	}
}

func New(repo interfaces.Repository, opts ...Option) *UseCases {
	uc := &UseCases{
		repo:       repo,
		dispatcher: worker.Inline{},
		retrier:    retry.New(),
		profiles:   noProfile{},
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(uc)
	}

	dedup := newDedupResolver(repo)
	generator := &Generator{
		repo:     repo,
		executor: uc.executor,
		retrier:  uc.retrier,
		registry: schema.NewRegistry(),
		profiles: uc.profiles,
		dedup:    dedup,
		now:      uc.now,
	}

	uc.Search = &SearchUseCase{
		repo:       repo,
		dispatcher: uc.dispatcher,
		generator:  generator,
		dedup:      dedup,
		now:        uc.now,
	}

	return uc
}
