package usgs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/couchcryptid/quake-timeline/internal/domain"
	"github.com/couchcryptid/quake-timeline/internal/observability"
)

// maxBodyBytes caps a feed response; 20000 features is roughly 12 MiB.
const maxBodyBytes = 64 << 20

// StatusError is a non-200 response from the feed.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("usgs feed error: status %d: %s", e.Code, e.Body)
}

// Retryable reports whether the request may succeed if repeated.
func (e *StatusError) Retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// Client fetches events from the USGS FDSN event service.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a feed client for baseURL (the fdsnws/event/1/query endpoint).
func NewClient(baseURL, userAgent string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		userAgent:  userAgent,
		httpClient: newHTTPClient(timeout),
		metrics:    metrics,
		logger:     logger,
	}
}

func newHTTPClient(timeout time.Duration) *http.Client {
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 60 * time.Second}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &http.Client{Timeout: timeout, Transport: tr}
}

// URL returns the request URL for q.
func (c *Client) URL(q domain.Query) string {
	return c.baseURL + "?" + q.Values().Encode()
}

// FetchRaw issues the feed request and returns the undecoded body.
func (c *Client) FetchRaw(ctx context.Context, q domain.Query) (domain.RawFeed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(q), nil)
	if err != nil {
		return domain.RawFeed{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/geo+json, application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.RawFeed{}, fmt.Errorf("feed request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.RawFeed{}, &StatusError{Code: resp.StatusCode, Body: string(body)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return domain.RawFeed{}, fmt.Errorf("read response: %w", err)
	}
	return domain.RawFeed{Body: body, Query: q, ReceivedAt: domain.Now().UTC()}, nil
}

// Fetch issues the feed request and decodes the events in feed order.
func (c *Client) Fetch(ctx context.Context, q domain.Query) ([]domain.Event, error) {
	raw, err := c.FetchRaw(ctx, q)
	if err != nil {
		return nil, err
	}

	events, stats, err := domain.ParseFeatureCollection(raw.Body)
	if err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	c.metrics.InvalidCoordinates.Add(float64(stats.InvalidCoordinates))
	c.metrics.SkippedFeatures.Add(float64(stats.Skipped + stats.Duplicates))
	if stats.Skipped > 0 || stats.Duplicates > 0 || stats.InvalidCoordinates > 0 {
		c.logger.Debug("feed features degraded",
			"query", q.String(),
			"features", stats.Features,
			"invalid_coordinates", stats.InvalidCoordinates,
			"skipped", stats.Skipped,
			"duplicates", stats.Duplicates,
		)
	}
	return events, nil
}
