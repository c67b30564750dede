package web

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

const defaultGuardTimeout = 3 * time.Second

var ErrResolveTimeout = errors.New("session resolution timed out")

// GuardState is where a page request stands with respect to its session.
type GuardState int

const (
	StateLoading GuardState = iota
	StateAuthorized
	StateUnauthorized
)

func (s GuardState) String() string {
	switch s {
	case StateAuthorized:
		return "authorized"
	case StateUnauthorized:
		return "unauthorized"
	default:
		return "loading"
	}
}

// SessionResolver reports whether the request carries a live session.
type SessionResolver func(ctx context.Context, r *http.Request) (bool, error)

type Guard struct {
	resolve SessionResolver
	timeout time.Duration
	logger  *zap.Logger
}

func NewGuard(resolve SessionResolver, timeout time.Duration, logger *zap.Logger) *Guard {
	if timeout <= 0 {
		timeout = defaultGuardTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{resolve: resolve, timeout: timeout, logger: logger}
}

// resolution leaves Loading at most once; later settles are ignored.
type resolution struct {
	once  sync.Once
	mu    sync.Mutex
	state GuardState
}

func (r *resolution) settle(state GuardState) {
	r.once.Do(func() {
		r.mu.Lock()
		r.state = state
		r.mu.Unlock()
	})
}

func (r *resolution) current() GuardState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Resolve returns Authorized or Unauthorized once the resolver answers. If it
// does not answer within the timeout the state stays Loading and
// ErrResolveTimeout is returned. Resolver errors count as no session.
func (g *Guard) Resolve(ctx context.Context, r *http.Request) (GuardState, error) {
	res := &resolution{state: StateLoading}
	if g == nil || g.resolve == nil {
		res.settle(StateUnauthorized)
		return res.current(), nil
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		ok, err := g.resolve(ctx, r)
		switch {
		case err != nil:
			if ctx.Err() == nil {
				g.logger.Warn("page session resolution failed", zap.Error(err))
			}
			res.settle(StateUnauthorized)
		case ok:
			res.settle(StateAuthorized)
		default:
			res.settle(StateUnauthorized)
		}
	}()

	select {
	case <-done:
		return res.current(), nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return StateLoading, ErrResolveTimeout
		}
		return StateLoading, ctx.Err()
	}
}
