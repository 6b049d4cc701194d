package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the viewer.
type Metrics struct {
	// Feed fetch metrics.
	FeedFetches       *prometheus.CounterVec // labels: outcome={success,error,stale}
	FeedFetchDuration prometheus.Histogram
	FeedRetries       prometheus.Counter

	// Event store and render metrics.
	EventsLoaded       prometheus.Gauge
	VisibleEvents      prometheus.Gauge
	InvalidCoordinates prometheus.Counter
	SkippedFeatures    prometheus.Counter

	// Playback metrics.
	PlaybackActive prometheus.Gauge
	AnimationTicks prometheus.Counter

	// Render surface metrics.
	WebSocketClients prometheus.Gauge

	// Snapshot sink metrics.
	SinkPublished prometheus.Counter
	SinkErrors    prometheus.Counter
}

// NewMetrics creates and registers all viewer metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		FeedFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quake_viewer",
			Name:      "feed_fetches_total",
			Help:      "Feed fetches by outcome; stale results were superseded by a newer query.",
		}, []string{"outcome"}),
		FeedFetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "quake_viewer",
			Name:      "feed_fetch_duration_seconds",
			Help:      "Duration of a feed fetch including retries.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		FeedRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quake_viewer",
			Name:      "feed_retries_total",
			Help:      "Feed requests retried after a transient failure.",
		}),
		EventsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "quake_viewer",
			Name:      "events_loaded",
			Help:      "Events in the current collection.",
		}),
		VisibleEvents: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "quake_viewer",
			Name:      "visible_events",
			Help:      "Events drawn in the most recent frame.",
		}),
		InvalidCoordinates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quake_viewer",
			Name:      "invalid_coordinates_total",
			Help:      "Fetched events without usable coordinates.",
		}),
		SkippedFeatures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quake_viewer",
			Name:      "skipped_features_total",
			Help:      "Feed features dropped as unusable or duplicate.",
		}),
		PlaybackActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "quake_viewer",
			Name:      "playback_active",
			Help:      "1 while the timeline is playing, 0 when stopped.",
		}),
		AnimationTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quake_viewer",
			Name:      "animation_ticks_total",
			Help:      "Playback ticks that advanced the cursor.",
		}),
		WebSocketClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "quake_viewer",
			Name:      "websocket_clients",
			Help:      "Connected frame stream clients.",
		}),
		SinkPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quake_viewer",
			Name:      "sink_events_published_total",
			Help:      "Events published to the snapshot topic.",
		}),
		SinkErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quake_viewer",
			Name:      "sink_errors_total",
			Help:      "Snapshot publishes that failed.",
		}),
	}

	prometheus.MustRegister(
		m.FeedFetches,
		m.FeedFetchDuration,
		m.FeedRetries,
		m.EventsLoaded,
		m.VisibleEvents,
		m.InvalidCoordinates,
		m.SkippedFeatures,
		m.PlaybackActive,
		m.AnimationTicks,
		m.WebSocketClients,
		m.SinkPublished,
		m.SinkErrors,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		FeedFetches:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "quake_viewer", Name: "feed_fetches_total"}, []string{"outcome"}),
		FeedFetchDuration:  prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "quake_viewer", Name: "feed_fetch_duration_seconds"}),
		FeedRetries:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "quake_viewer", Name: "feed_retries_total"}),
		EventsLoaded:       prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "quake_viewer", Name: "events_loaded"}),
		VisibleEvents:      prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "quake_viewer", Name: "visible_events"}),
		InvalidCoordinates: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "quake_viewer", Name: "invalid_coordinates_total"}),
		SkippedFeatures:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "quake_viewer", Name: "skipped_features_total"}),
		PlaybackActive:     prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "quake_viewer", Name: "playback_active"}),
		AnimationTicks:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: "quake_viewer", Name: "animation_ticks_total"}),
		WebSocketClients:   prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "quake_viewer", Name: "websocket_clients"}),
		SinkPublished:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "quake_viewer", Name: "sink_events_published_total"}),
		SinkErrors:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: "quake_viewer", Name: "sink_errors_total"}),
	}
}
