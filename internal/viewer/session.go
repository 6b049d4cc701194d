// Package viewer owns the state of one map view: the event store, timeline
// cursor, text filter, playback, and the fetch generation that keeps stale
// feed responses out of the store.
//
// Every mutation is serialized by the session mutex, which plays the role of
// a single UI thread. Fetches and the playback ticker run in their own
// goroutines and only touch state through locked methods. Readers derive the
// render frame with [Session.Frame] after a change notification.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/quake-timeline/internal/domain"
	"github.com/couchcryptid/quake-timeline/internal/observability"
	"github.com/jonboulle/clockwork"
)

// ErrClosed is returned by mutations on a closed session.
var ErrClosed = errors.New("session closed")

const sinkPublishTimeout = 10 * time.Second

// Feed fetches the event collection for a query.
type Feed interface {
	Fetch(ctx context.Context, q domain.Query) ([]domain.Event, error)
}

// SnapshotSink receives every successfully applied collection.
type SnapshotSink interface {
	PublishSnapshot(ctx context.Context, snap domain.Snapshot) error
}

// Options tunes a Session. Zero values fall back to defaults.
type Options struct {
	Clock            clockwork.Clock
	PlaybackInterval time.Duration
	MaxAttempts      int
	MaxResultLimit   int
	Sink             SnapshotSink
}

// Session is the state behind one map view.
type Session struct {
	feed     Feed
	sink     SnapshotSink
	logger   *slog.Logger
	metrics  *observability.Metrics
	clock    clockwork.Clock
	interval time.Duration
	attempts int
	maxLimit int

	baseCtx   context.Context
	cancelAll context.CancelFunc
	wg        sync.WaitGroup

	mu          sync.Mutex
	query       domain.Query
	timeline    domain.Timeline
	text        string
	cursor      int
	mode        domain.ViewMode
	theme       domain.Theme
	loading     bool
	lastErr     string
	generation  uint64
	cancelFetch context.CancelFunc
	ready       bool
	playing     bool
	playToken   uint64
	stopTicker  context.CancelFunc
	closed      bool
	subscribers map[int]chan struct{}
	nextSubID   int
}

// New creates a Session with an empty collection in circles mode.
func New(feed Feed, logger *slog.Logger, metrics *observability.Metrics, opts Options) *Session {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.PlaybackInterval <= 0 {
		opts.PlaybackInterval = 500 * time.Millisecond
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.MaxResultLimit <= 0 {
		opts.MaxResultLimit = domain.MaxResultLimit
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		feed:        feed,
		sink:        opts.Sink,
		logger:      logger,
		metrics:     metrics,
		clock:       opts.Clock,
		interval:    opts.PlaybackInterval,
		attempts:    opts.MaxAttempts,
		maxLimit:    opts.MaxResultLimit,
		baseCtx:     ctx,
		cancelAll:   cancel,
		timeline:    domain.BuildTimeline(nil),
		mode:        domain.ModeCircles,
		theme:       domain.ThemeLight,
		subscribers: make(map[int]chan struct{}),
	}
}

// SetQuery validates q and starts fetching it. The returned channel is closed
// once that fetch has either been applied or discarded as stale. Any fetch
// still outstanding is superseded: its context is cancelled and its result,
// should it arrive anyway, is ignored.
func (s *Session) SetQuery(q domain.Query) (<-chan struct{}, error) {
	if err := q.Validate(s.maxLimit); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	if s.cancelFetch != nil {
		s.cancelFetch()
	}
	s.generation++
	gen := s.generation
	ctx, cancel := context.WithCancel(s.baseCtx)
	s.cancelFetch = cancel
	s.query = q
	s.loading = true
	s.lastErr = ""
	s.wg.Add(1)
	s.notifyLocked()
	s.mu.Unlock()

	s.logger.Info("fetching events", "query", q.String(), "generation", gen)

	done := make(chan struct{})
	go s.fetch(ctx, gen, q, done)
	return done, nil
}

func (s *Session) fetch(ctx context.Context, gen uint64, q domain.Query, done chan<- struct{}) {
	defer s.wg.Done()
	defer close(done)

	start := s.clock.Now()
	events, err := s.fetchWithRetry(ctx, q)
	s.metrics.FeedFetchDuration.Observe(s.clock.Since(start).Seconds())

	if !s.apply(gen, q, events, err) || err != nil || s.sink == nil {
		return
	}
	s.publish(domain.Snapshot{Generation: gen, Query: q, Events: events, FetchedAt: s.clock.Now()})
}

// apply replaces the store with the fetch result if gen is still current.
// A failed fetch empties the store. Returns false for a stale result.
func (s *Session) apply(gen uint64, q domain.Query, events []domain.Event, fetchErr error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || gen != s.generation {
		s.metrics.FeedFetches.WithLabelValues("stale").Inc()
		s.logger.Debug("discarding stale feed response", "generation", gen, "current", s.generation)
		return false
	}

	if fetchErr != nil {
		s.metrics.FeedFetches.WithLabelValues("error").Inc()
		s.logger.Warn("feed fetch failed", "error", fetchErr, "query", q.String(), "generation", gen)
		s.timeline = domain.BuildTimeline(nil)
		s.lastErr = fetchErr.Error()
	} else {
		s.metrics.FeedFetches.WithLabelValues("success").Inc()
		s.logger.Info("events loaded", "count", len(events), "query", q.String(), "generation", gen)
		s.timeline = domain.BuildTimeline(events)
		s.lastErr = ""
		s.ready = true
	}

	// A new collection starts at the beginning, then reveals everything
	// once its timestamps are known.
	s.cursor = 0
	s.cursor = s.timeline.LastIndex()

	s.loading = false
	s.cancelFetch = nil
	s.metrics.EventsLoaded.Set(float64(s.timeline.Len()))
	s.notifyLocked()
	return true
}

func (s *Session) publish(snap domain.Snapshot) {
	ctx, cancel := context.WithTimeout(s.baseCtx, sinkPublishTimeout)
	defer cancel()

	if err := s.sink.PublishSnapshot(ctx, snap); err != nil {
		s.metrics.SinkErrors.Inc()
		s.logger.Warn("snapshot publish failed", "error", err, "generation", snap.Generation)
		return
	}
	s.metrics.SinkPublished.Add(float64(len(snap.Events)))
}

// SetText sets the free-text place filter.
func (s *Session) SetText(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.text = text
	s.notifyLocked()
	return nil
}

// SetCursor moves the timeline cursor, clamped to the timeline bounds.
// It is allowed while playing; the next tick continues from the new position.
func (s *Session) SetCursor(cursor int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	s.cursor = s.timeline.ClampCursor(cursor)
	s.notifyLocked()
	return s.cursor, nil
}

// SetMode switches between circle markers and the heat layer.
func (s *Session) SetMode(mode domain.ViewMode) error {
	if _, err := domain.ParseViewMode(string(mode)); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.mode = mode
	s.notifyLocked()
	return nil
}

// SetTheme switches the page colour scheme.
func (s *Session) SetTheme(theme domain.Theme) error {
	if _, err := domain.ParseTheme(string(theme)); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.theme = theme
	s.notifyLocked()
	return nil
}

// Frame derives the current render frame.
func (s *Session) Frame() domain.Frame {
	s.mu.Lock()
	state := domain.ViewState{
		Timeline:   s.timeline,
		Text:       s.text,
		Cursor:     s.cursor,
		Mode:       s.mode,
		Theme:      s.theme,
		Playing:    s.playing,
		Loading:    s.loading,
		LastError:  s.lastErr,
		Query:      s.query,
		Generation: s.generation,
	}
	s.mu.Unlock()

	frame, _ := domain.BuildFrame(state)
	s.metrics.VisibleEvents.Set(float64(len(frame.Events)))
	return frame
}

// CheckReadiness returns nil once a feed response has been applied.
func (s *Session) CheckReadiness(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return errors.New("no feed response applied yet")
	}
	return nil
}

// Subscribe returns a channel that receives a signal after every state
// change. Signals coalesce: a slow reader sees one pending signal and should
// call Frame for the latest state. The channel is closed by the returned
// cancel function or when the session closes.
func (s *Session) Subscribe() (<-chan struct{}, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan struct{}, 1)
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = ch

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if sub, ok := s.subscribers[id]; ok {
			delete(s.subscribers, id)
			close(sub)
		}
	}
}

func (s *Session) notifyLocked() {
	for _, ch := range s.subscribers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Close stops playback, abandons any outstanding fetch, closes subscriber
// channels, and waits for background goroutines to exit.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.stopPlaybackLocked()
	if s.cancelFetch != nil {
		s.cancelFetch()
		s.cancelFetch = nil
	}
	for id, ch := range s.subscribers {
		delete(s.subscribers, id)
		close(ch)
	}
	s.mu.Unlock()

	s.cancelAll()
	s.wg.Wait()
	return nil
}

func (s *Session) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fmt.Sprintf("session(gen=%d events=%d cursor=%d playing=%t)", s.generation, s.timeline.Len(), s.cursor, s.playing)
}
