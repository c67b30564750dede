package rate

import (
	"context"
	"errors"
	"strings"
	"time"
)

const (
	signInMinuteWindow = time.Minute
	signIn10SecWindow  = 10 * time.Second
)

var errNoStore = errors.New("rate limiter store is nil")

type WindowStore interface {
	IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	Peek(ctx context.Context, key string) (int64, time.Duration, error)
}

// Limiter throttles sign-in attempts per account key with two fixed windows.
// A zero limit disables that window.
type Limiter struct {
	store     WindowStore
	perMinute int
	per10Sec  int
}

func NewLimiter(store WindowStore, perMinute, per10Sec int) *Limiter {
	return &Limiter{
		store:     store,
		perMinute: max(perMinute, 0),
		per10Sec:  max(per10Sec, 0),
	}
}

func (l *Limiter) AllowSignIn(ctx context.Context, key string) (int64, bool, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return 0, false, errors.New("rate key is required")
	}
	if l.store == nil {
		return 0, false, errNoStore
	}

	var retryAfterSec int64
	for _, w := range l.windows(key) {
		count, ttl, err := l.store.IncrementWindow(ctx, w.key, w.window)
		if err != nil {
			return 0, false, err
		}
		if count > int64(w.limit) {
			retryAfterSec = max(retryAfterSec, ceilSeconds(ttl))
		}
	}

	if retryAfterSec > 0 {
		return retryAfterSec, false, nil
	}
	return 0, true, nil
}

// RetryAfterSignIn reports the current wait without consuming an attempt.
func (l *Limiter) RetryAfterSignIn(ctx context.Context, key string) (int64, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return 0, errors.New("rate key is required")
	}
	if l.store == nil {
		return 0, errNoStore
	}

	var retryAfterSec int64
	for _, w := range l.windows(key) {
		count, ttl, err := l.store.Peek(ctx, w.key)
		if err != nil {
			return 0, err
		}
		if count >= int64(w.limit) {
			retryAfterSec = max(retryAfterSec, ceilSeconds(ttl))
		}
	}
	return retryAfterSec, nil
}

type window struct {
	key    string
	window time.Duration
	limit  int
}

func (l *Limiter) windows(key string) []window {
	out := make([]window, 0, 2)
	if l.perMinute > 0 {
		out = append(out, window{key: "rate:signin:min:" + key, window: signInMinuteWindow, limit: l.perMinute})
	}
	if l.per10Sec > 0 {
		out = append(out, window{key: "rate:signin:10s:" + key, window: signIn10SecWindow, limit: l.per10Sec})
	}
	return out
}

func ceilSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	sec := int64(d / time.Second)
	if d%time.Second != 0 {
		sec++
	}
	return max(sec, 1)
}
