package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/quake-timeline/internal/domain"
	"github.com/couchcryptid/quake-timeline/internal/observability"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Viewer is the session state the HTTP surface renders and controls.
type Viewer interface {
	sharedobs.ReadinessChecker

	Frame() domain.Frame
	SetQuery(q domain.Query) (<-chan struct{}, error)
	SetText(text string) error
	SetCursor(cursor int) (int, error)
	SetMode(mode domain.ViewMode) error
	SetTheme(theme domain.Theme) error
	Play() error
	Pause() error
	TogglePlayback() error
	Subscribe() (<-chan struct{}, func())
}

const (
	defaultWriteTimeout = 10 * time.Second
	defaultQueryWait    = time.Minute
)

// Option tunes a Server.
type Option func(*Server)

// WithWriteTimeout sets the write deadline for ordinary responses.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *Server) { s.httpServer.WriteTimeout = d }
}

// WithQueryWait bounds how long PUT /api/query?wait=true holds its response.
// Size it to the feed's full retry budget; the write deadline of that one
// response is extended to match.
func WithQueryWait(d time.Duration) Option {
	return func(s *Server) { s.queryWait = d }
}

// Server exposes the map page, the control API, the frame stream, and the
// health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	viewer     Viewer
	queryWait  time.Duration
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewServer wires every route onto a fresh mux.
func NewServer(addr string, v Viewer, metrics *observability.Metrics, logger *slog.Logger, opts ...Option) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: defaultWriteTimeout,
			IdleTimeout:  60 * time.Second,
		},
		viewer:    v,
		queryWait: defaultQueryWait,
		metrics:   metrics,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	mux.HandleFunc("GET /{$}", handleIndex)
	mux.HandleFunc("GET /api/frame", s.handleFrame)
	mux.HandleFunc("GET /api/events.geojson", s.handleGeoJSON)
	mux.HandleFunc("PUT /api/query", s.handleQuery)
	mux.HandleFunc("PUT /api/filter", s.handleFilter)
	mux.HandleFunc("PUT /api/cursor", s.handleCursor)
	mux.HandleFunc("PUT /api/mode", s.handleMode)
	mux.HandleFunc("PUT /api/theme", s.handleTheme)
	mux.HandleFunc("POST /api/playback", s.handlePlayback)
	mux.HandleFunc("GET /ws", s.handleWebSocket)

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(v))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
// Upgraded stream connections end when the viewer closes its subscriptions.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}
