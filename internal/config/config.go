package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Feed configuration.
	FeedURL         string
	FeedTimeout     time.Duration
	FeedMaxAttempts int
	UserAgent       string

	// Initial query and control bounds.
	DefaultLookback     time.Duration
	DefaultMinMagnitude float64
	DefaultResultLimit  int
	MaxResultLimit      int

	PlaybackInterval time.Duration

	// Snapshot sink configuration.
	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	feedTimeout, err := parsePositiveDuration("FEED_TIMEOUT", "15s")
	if err != nil {
		return nil, err
	}
	lookback, err := parsePositiveDuration("DEFAULT_LOOKBACK", "168h")
	if err != nil {
		return nil, err
	}
	playbackInterval, err := parsePositiveDuration("PLAYBACK_INTERVAL", "500ms")
	if err != nil {
		return nil, err
	}

	maxAttempts, err := strconv.Atoi(sharedcfg.EnvOrDefault("FEED_MAX_ATTEMPTS", "3"))
	if err != nil || maxAttempts < 1 || maxAttempts > 10 {
		return nil, errors.New("invalid FEED_MAX_ATTEMPTS: must be between 1 and 10")
	}

	minMagnitude, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("DEFAULT_MIN_MAGNITUDE", "2.5"), 64)
	if err != nil || minMagnitude < 0 || minMagnitude > 8 {
		return nil, errors.New("invalid DEFAULT_MIN_MAGNITUDE: must be between 0 and 8")
	}

	maxLimit, err := strconv.Atoi(sharedcfg.EnvOrDefault("MAX_RESULT_LIMIT", "20000"))
	if err != nil || maxLimit < 1 || maxLimit > 20000 {
		return nil, errors.New("invalid MAX_RESULT_LIMIT: must be between 1 and 20000")
	}

	defaultLimit, err := strconv.Atoi(sharedcfg.EnvOrDefault("DEFAULT_RESULT_LIMIT", "1000"))
	if err != nil || defaultLimit < 1 || defaultLimit > maxLimit {
		return nil, errors.New("invalid DEFAULT_RESULT_LIMIT: must be between 1 and MAX_RESULT_LIMIT")
	}

	var brokers []string
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		brokers = sharedcfg.ParseBrokers(v)
	}
	kafkaEnabled := len(brokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		FeedURL:         sharedcfg.EnvOrDefault("FEED_URL", "https://earthquake.usgs.gov/fdsnws/event/1/query"),
		FeedTimeout:     feedTimeout,
		FeedMaxAttempts: maxAttempts,
		UserAgent:       sharedcfg.EnvOrDefault("USER_AGENT", "quake-timeline/1.0"),

		DefaultLookback:     lookback,
		DefaultMinMagnitude: minMagnitude,
		DefaultResultLimit:  defaultLimit,
		MaxResultLimit:      maxLimit,

		PlaybackInterval: playbackInterval,

		KafkaEnabled: kafkaEnabled,
		KafkaBrokers: brokers,
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "earthquake-snapshots"),
	}

	if cfg.FeedURL == "" {
		return nil, errors.New("FEED_URL is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.KafkaEnabled && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required when KAFKA_ENABLED is true")
	}

	return cfg, nil
}

func parsePositiveDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, errors.New("invalid " + key)
	}
	return d, nil
}
