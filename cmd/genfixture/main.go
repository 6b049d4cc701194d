// Command genfixture fetches a live USGS event query and saves the raw
// GeoJSON body as a test fixture, then prints what the parser makes of it.
//
// Usage:
//
//	go run ./cmd/genfixture \
//	  -start 2024-04-20 -end 2024-04-27 -min-mag 4.5 -limit 200 \
//	  -out internal/domain/testdata/feed_live.json
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/quake-timeline/internal/adapter/usgs"
	"github.com/couchcryptid/quake-timeline/internal/domain"
	"github.com/couchcryptid/quake-timeline/internal/observability"
)

const feedURL = "https://earthquake.usgs.gov/fdsnws/event/1/query"

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	start := flag.String("start", "", "start date (YYYY-MM-DD)")
	end := flag.String("end", "", "end date (YYYY-MM-DD)")
	minMag := flag.Float64("min-mag", 2.5, "minimum magnitude")
	limit := flag.Int("limit", 200, "maximum number of events")
	out := flag.String("out", "", "output path for the raw GeoJSON fixture")
	flag.Parse()

	if *start == "" || *end == "" || *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -start, -end, -out")
	}

	q, err := domain.ParseQuery(*start, *end, *minMag, *limit)
	if err != nil {
		return err
	}
	if err := q.Validate(domain.MaxResultLimit); err != nil {
		return err
	}

	client := usgs.NewClient(feedURL, "quake-timeline-genfixture/1.0", 30*time.Second,
		observability.NewMetricsForTesting(), slog.Default())
	log.Printf("fetching %s", client.URL(q))

	raw, err := client.FetchRaw(context.Background(), q)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	if err := os.WriteFile(*out, raw.Body, 0o600); err != nil {
		return fmt.Errorf("write fixture: %w", err)
	}
	log.Printf("wrote %d bytes to %s", len(raw.Body), *out)

	events, stats, err := domain.ParseFeatureCollection(raw.Body)
	if err != nil {
		return fmt.Errorf("parse fixture: %w", err)
	}
	printStats(events, stats)
	return nil
}

func printStats(events []domain.Event, stats domain.ParseStats) {
	fmt.Printf("\n=== Fixture Stats ===\n")
	fmt.Printf("Features:            %d\n", stats.Features)
	fmt.Printf("Events:              %d\n", len(events))
	fmt.Printf("Invalid coordinates: %d\n", stats.InvalidCoordinates)
	fmt.Printf("Skipped:             %d\n", stats.Skipped)
	fmt.Printf("Duplicates:          %d\n", stats.Duplicates)

	tl := domain.BuildTimeline(events)
	if tl.Empty() {
		return
	}
	first, _ := tl.Cutoff(0)
	last, _ := tl.Cutoff(tl.LastIndex())
	fmt.Printf("Time range:          %s .. %s\n",
		time.UnixMilli(first).UTC().Format(time.RFC3339), time.UnixMilli(last).UTC().Format(time.RFC3339))

	bands := map[string]int{}
	for _, e := range events {
		bands[domain.MagnitudeStyle(e.Mag()).Color]++
	}
	fmt.Printf("\n=== Colour Bands ===\n")
	for _, color := range []string{"#7f0000", "#d7301f", "#fc8d59", "#fdcc8a", "#fef0d9", "#9ecae1", "#3182bd"} {
		if n := bands[color]; n > 0 {
			fmt.Printf("  %s  %d\n", color, n)
		}
	}
}
