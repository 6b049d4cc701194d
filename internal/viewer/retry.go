package viewer

import (
	"context"
	"errors"
	"time"

	"github.com/couchcryptid/quake-timeline/internal/domain"
	"github.com/jonboulle/clockwork"
)

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// fetchWithRetry calls the feed until it succeeds, the error is permanent,
// or the attempt budget runs out. Backoff starts at 200ms and doubles, capped at 5s.
func (s *Session) fetchWithRetry(ctx context.Context, q domain.Query) ([]domain.Event, error) {
	backoff := initialBackoff
	for attempt := 1; ; attempt++ {
		events, err := s.feed.Fetch(ctx, q)
		if err == nil {
			return events, nil
		}
		if attempt >= s.attempts || !retryable(ctx, err) {
			return nil, err
		}

		s.metrics.FeedRetries.Inc()
		s.logger.Warn("feed fetch failed, retrying", "error", err, "attempt", attempt, "backoff", backoff)
		if !sleepWithContext(ctx, s.clock, backoff) {
			return nil, ctx.Err()
		}
		backoff = nextBackoff(backoff, maxBackoff)
	}
}

// retryable reports whether a fetch error is worth another attempt.
// Cancellation and malformed payloads are final; errors that classify
// themselves (HTTP status) decide for themselves; anything else is treated
// as a transport failure and retried.
func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, domain.ErrMalformedFeed) {
		return false
	}
	var classified interface{ Retryable() bool }
	if errors.As(err, &classified) {
		return classified.Retryable()
	}
	return true
}

func nextBackoff(current, limit time.Duration) time.Duration {
	next := current * 2
	if next > limit {
		return limit
	}
	return next
}

func sleepWithContext(ctx context.Context, clock clockwork.Clock, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}

// FetchBudget is the longest one SetQuery fetch can run: every attempt using
// its full timeout plus the backoff between attempts.
func FetchBudget(attemptTimeout time.Duration, attempts int) time.Duration {
	var total time.Duration
	backoff := initialBackoff
	for i := range attempts {
		total += attemptTimeout
		if i < attempts-1 {
			total += backoff
			backoff = nextBackoff(backoff, maxBackoff)
		}
	}
	return total
}
