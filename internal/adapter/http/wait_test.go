package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	httpadapter "github.com/couchcryptid/quake-timeline/internal/adapter/http"
	"github.com/couchcryptid/quake-timeline/internal/domain"
	"github.com/couchcryptid/quake-timeline/internal/observability"
	"github.com/couchcryptid/quake-timeline/internal/viewer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// slowFeed answers after delay unless the fetch is cancelled first.
type slowFeed struct {
	delay  time.Duration
	events []domain.Event
}

func (f slowFeed) Fetch(ctx context.Context, _ domain.Query) ([]domain.Event, error) {
	select {
	case <-time.After(f.delay):
		return f.events, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

// startServer runs a real listener so the server's WriteTimeout applies.
func startServer(t *testing.T, feed viewer.Feed, opts ...httpadapter.Option) string {
	t.Helper()
	metrics := observability.NewMetricsForTesting()
	session := viewer.New(feed, slog.Default(), metrics, viewer.Options{})
	addr := freeAddr(t)
	srv := httpadapter.NewServer(addr, session, metrics, slog.Default(), opts...)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.Errorf("server: %v", err)
		}
	}()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
		_ = session.Close()
	})

	require.Eventually(t, func() bool {
		conn, err := net.Dial("tcp", addr)
		if err != nil {
			return false
		}
		conn.Close()
		return true
	}, 5*time.Second, 10*time.Millisecond)
	return "http://" + addr
}

func putQueryAndWait(t *testing.T, baseURL string) domain.Frame {
	t.Helper()
	req, err := http.NewRequest(http.MethodPut, baseURL+"/api/query?wait=true", strings.NewReader(loadQuery))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	require.NoError(t, err, "the held response must not be cut off by the write timeout")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var frame domain.Frame
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&frame))
	return frame
}

func TestPutQueryWait_OutlivesWriteTimeout(t *testing.T) {
	feed := slowFeed{delay: 600 * time.Millisecond, events: []domain.Event{
		quake("a", 100, 2.4, "Central Alaska"),
		quake("b", 200, 4.8, "Honshu, Japan"),
	}}
	baseURL := startServer(t, feed,
		httpadapter.WithWriteTimeout(200*time.Millisecond),
		httpadapter.WithQueryWait(3*time.Second),
	)

	frame := putQueryAndWait(t, baseURL)
	assert.False(t, frame.Loading)
	assert.Equal(t, []string{"a", "b"}, ids(frame))
}

func TestPutQueryWait_ReturnsLoadingFrameWhenWaitElapses(t *testing.T) {
	feed := slowFeed{delay: 3 * time.Second}
	baseURL := startServer(t, feed,
		httpadapter.WithWriteTimeout(200*time.Millisecond),
		httpadapter.WithQueryWait(400*time.Millisecond),
	)

	frame := putQueryAndWait(t, baseURL)
	assert.True(t, frame.Loading, "fetch is still in flight")
	assert.Equal(t, uint64(1), frame.Generation)
}
