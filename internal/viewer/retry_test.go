package viewer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/couchcryptid/quake-timeline/internal/domain"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

type classifiedErr bool

func (e classifiedErr) Error() string   { return "classified" }
func (e classifiedErr) Retryable() bool { return bool(e) }

func TestRetryable(t *testing.T) {
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name string
		ctx  context.Context
		err  error
		want bool
	}{
		{"transport error", context.Background(), &net.OpError{Op: "dial", Err: errors.New("refused")}, true},
		{"retryable status", context.Background(), fmt.Errorf("fetch: %w", classifiedErr(true)), true},
		{"permanent status", context.Background(), fmt.Errorf("fetch: %w", classifiedErr(false)), false},
		{"malformed payload", context.Background(), fmt.Errorf("decode: %w", domain.ErrMalformedFeed), false},
		{"cancelled error", context.Background(), fmt.Errorf("get: %w", context.Canceled), false},
		{"cancelled context", cancelled, errors.New("anything"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, retryable(tt.ctx, tt.err))
		})
	}
}

func TestNextBackoff(t *testing.T) {
	b := initialBackoff
	var seen []time.Duration
	for range 7 {
		seen = append(seen, b)
		b = nextBackoff(b, maxBackoff)
	}
	assert.Equal(t, []time.Duration{
		200 * time.Millisecond,
		400 * time.Millisecond,
		800 * time.Millisecond,
		1600 * time.Millisecond,
		3200 * time.Millisecond,
		5 * time.Second,
		5 * time.Second,
	}, seen)
}

func TestSleepWithContext(t *testing.T) {
	clock := clockwork.NewFakeClock()

	t.Run("zero duration returns immediately", func(t *testing.T) {
		assert.True(t, sleepWithContext(context.Background(), clock, 0))
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.False(t, sleepWithContext(ctx, clock, time.Minute))
	})

	t.Run("timer fires", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		result := make(chan bool, 1)
		go func() { result <- sleepWithContext(ctx, clock, time.Second) }()

		assert.NoError(t, clock.BlockUntilContext(ctx, 1))
		clock.Advance(time.Second)
		assert.True(t, <-result)
	})
}

func TestFetchBudget(t *testing.T) {
	assert.Equal(t, 15*time.Second, FetchBudget(15*time.Second, 1))
	assert.Equal(t, 45*time.Second+600*time.Millisecond, FetchBudget(15*time.Second, 3))
	assert.Equal(t, 10*time.Second+(200+400+800+1600+3200+5000+5000+5000+5000)*time.Millisecond,
		FetchBudget(time.Second, 10))
	assert.Zero(t, FetchBudget(time.Second, 0))
}
