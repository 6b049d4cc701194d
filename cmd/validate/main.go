// Command validate checks a saved feed fixture against the viewer's data
// invariants: unique IDs, a sorted timeline, monotone cursor prefixes, text
// filtering as a subset of the cursor prefix, and render frames that only
// carry placeable events.
//
// Usage:
//
//	go run ./cmd/validate -fixture internal/domain/testdata/feed_sample.json -terms japan,alaska
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/couchcryptid/quake-timeline/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	fixture := flag.String("fixture", "", "path to a raw GeoJSON feed fixture")
	terms := flag.String("terms", "", "comma-separated place filter terms to exercise")
	flag.Parse()

	if *fixture == "" {
		flag.Usage()
		os.Exit(1)
	}

	os.Exit(run(*fixture, splitTerms(*terms)))
}

func run(path string, terms []string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read fixture: %v\n", err)
		return 1
	}
	events, stats, err := domain.ParseFeatureCollection(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse fixture: %v\n", err)
		return 1
	}
	fmt.Printf("parsed %d events from %d features (%d invalid coordinates, %d skipped, %d duplicates)\n",
		len(events), stats.Features, stats.InvalidCoordinates, stats.Skipped, stats.Duplicates)

	tl := domain.BuildTimeline(events)
	phases := []*phase{
		validateIDs(events),
		validateTimeline(tl, len(events)),
		validateCursorPrefixes(tl),
		validateTextFilter(tl, append([]string{""}, terms...)),
		validateFrames(tl, stats),
	}

	failed := 0
	for _, p := range phases {
		if p.passed() {
			fmt.Printf("PASS  %s\n", p.name)
			continue
		}
		failed++
		fmt.Printf("FAIL  %s (%d errors)\n", p.name, len(p.errors))
		for i, msg := range p.errors {
			if i == 10 {
				fmt.Printf("      ... %d more\n", len(p.errors)-i)
				break
			}
			fmt.Printf("      %s\n", msg)
		}
	}
	if failed > 0 {
		return 2
	}
	return 0
}

func splitTerms(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func validateIDs(events []domain.Event) *phase {
	p := &phase{name: "unique event IDs"}
	seen := make(map[string]int, len(events))
	for i, e := range events {
		if e.ID == "" {
			p.errorf("event %d has an empty ID", i)
			continue
		}
		if j, dup := seen[e.ID]; dup {
			p.errorf("ID %s at %d repeats index %d", e.ID, i, j)
		}
		seen[e.ID] = i
	}
	return p
}

func validateTimeline(tl domain.Timeline, n int) *phase {
	p := &phase{name: "timeline sorted and complete"}
	if tl.Len() != n {
		p.errorf("timeline has %d positions for %d events", tl.Len(), n)
	}
	for i := range tl.Timestamps {
		if tl.Timestamps[i] != tl.Events[i].TimeMs {
			p.errorf("timestamp %d is %d, event time is %d", i, tl.Timestamps[i], tl.Events[i].TimeMs)
		}
		if i > 0 && tl.Timestamps[i] < tl.Timestamps[i-1] {
			p.errorf("timestamp %d (%d) precedes timestamp %d (%d)", i, tl.Timestamps[i], i-1, tl.Timestamps[i-1])
		}
	}
	return p
}

func validateCursorPrefixes(tl domain.Timeline) *phase {
	p := &phase{name: "cursor prefixes grow monotonically"}
	prev := 0
	for cursor := range tl.Len() {
		cutoff, _ := tl.Cutoff(cursor)
		visible := domain.VisibleEvents(tl, "", cursor)
		if len(visible) < prev {
			p.errorf("cursor %d shows %d events, cursor %d showed %d", cursor, len(visible), cursor-1, prev)
		}
		for _, e := range visible {
			if e.TimeMs > cutoff {
				p.errorf("cursor %d shows %s at %d past cutoff %d", cursor, e.ID, e.TimeMs, cutoff)
			}
		}
		prev = len(visible)
	}
	if tl.Len() > 0 && prev != tl.Len() {
		p.errorf("last cursor shows %d of %d events", prev, tl.Len())
	}
	return p
}

func validateTextFilter(tl domain.Timeline, terms []string) *phase {
	p := &phase{name: "text filter narrows the cursor prefix"}
	cursor := tl.LastIndex()
	all := domain.VisibleEvents(tl, "", cursor)
	allIDs := make(map[string]bool, len(all))
	for _, e := range all {
		allIDs[e.ID] = true
	}
	for _, term := range terms {
		matched := domain.VisibleEvents(tl, term, cursor)
		for _, e := range matched {
			if !allIDs[e.ID] {
				p.errorf("term %q shows %s outside the unfiltered prefix", term, e.ID)
			}
			if !strings.Contains(strings.ToLower(e.Place), strings.ToLower(term)) {
				p.errorf("term %q matched %s with place %q", term, e.ID, e.Place)
			}
		}
		fmt.Printf("      term %-12q %d events\n", term, len(matched))
	}
	return p
}

func validateFrames(tl domain.Timeline, stats domain.ParseStats) *phase {
	p := &phase{name: "frames carry only placeable events"}
	frame, hidden := domain.BuildFrame(domain.ViewState{
		Timeline: tl,
		Cursor:   tl.LastIndex(),
		Mode:     domain.ModeCircles,
		Theme:    domain.ThemeLight,
	})
	for _, e := range frame.Events {
		ev := domain.Event{Latitude: e.Latitude, Longitude: e.Longitude}
		if !ev.HasValidCoordinates() {
			p.errorf("frame includes %s at (%g, %g)", e.ID, e.Latitude, e.Longitude)
		}
	}
	if hidden != stats.InvalidCoordinates {
		p.errorf("frame hid %d events, parser flagged %d", hidden, stats.InvalidCoordinates)
	}
	if len(frame.Events)+hidden != tl.Len() {
		p.errorf("frame shows %d + hides %d, timeline has %d", len(frame.Events), hidden, tl.Len())
	}
	return p
}
