package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"

	geojson "github.com/paulmach/go.geojson"
)

// ErrMalformedFeed is returned when the response body is not a GeoJSON FeatureCollection.
var ErrMalformedFeed = errors.New("malformed feed")

// ParseStats counts the features a parse kept, degraded, or dropped.
type ParseStats struct {
	Features           int
	InvalidCoordinates int // kept, but not renderable
	Skipped            int // unusable feature (no time or not a feature object)
	Duplicates         int // later features repeating an earlier ID
}

// feedEnvelope defers feature decoding so one bad feature does not fail the whole collection.
type feedEnvelope struct {
	Type     string            `json:"type"`
	Features []json.RawMessage `json:"features"`
}

// ParseFeatureCollection decodes a feed response into events in feed order.
// Features with unusable coordinates are kept with NaN coordinates; features
// without an origin time are dropped. IDs are unique in the result.
func ParseFeatureCollection(data []byte) ([]Event, ParseStats, error) {
	var env feedEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, ParseStats{}, fmt.Errorf("%w: %v", ErrMalformedFeed, err)
	}
	if env.Type != "FeatureCollection" {
		return nil, ParseStats{}, fmt.Errorf("%w: unexpected type %q", ErrMalformedFeed, env.Type)
	}

	stats := ParseStats{Features: len(env.Features)}
	events := make([]Event, 0, len(env.Features))
	seen := make(map[string]struct{}, len(env.Features))

	for _, rawFeature := range env.Features {
		f, err := decodeFeature(rawFeature)
		if err != nil {
			stats.Skipped++
			continue
		}
		event, ok := eventFromFeature(f)
		if !ok {
			stats.Skipped++
			continue
		}
		if _, dup := seen[event.ID]; dup {
			stats.Duplicates++
			continue
		}
		seen[event.ID] = struct{}{}
		if !event.HasValidCoordinates() {
			stats.InvalidCoordinates++
		}
		events = append(events, event)
	}
	return events, stats, nil
}

// decodeFeature decodes one feature. go.geojson rejects a whole feature when a
// coordinate is not a number, so on failure the geometry is dropped and the
// properties are decoded on their own.
func decodeFeature(raw json.RawMessage) (*geojson.Feature, error) {
	f, err := geojson.UnmarshalFeature(raw)
	if err == nil {
		return f, nil
	}

	var fields map[string]json.RawMessage
	if jsonErr := json.Unmarshal(raw, &fields); jsonErr != nil {
		return nil, fmt.Errorf("decode feature: %w", jsonErr)
	}
	delete(fields, "geometry")
	stripped, jsonErr := json.Marshal(fields)
	if jsonErr != nil {
		return nil, fmt.Errorf("decode feature: %w", jsonErr)
	}
	f, err = geojson.UnmarshalFeature(stripped)
	if err != nil {
		return nil, fmt.Errorf("decode feature: %w", err)
	}
	return f, nil
}

func eventFromFeature(f *geojson.Feature) (Event, bool) {
	timeMs, err := f.PropertyFloat64("time")
	if err != nil || math.IsNaN(timeMs) || math.IsInf(timeMs, 0) {
		return Event{}, false
	}

	event := Event{
		TimeMs:    int64(timeMs),
		Latitude:  math.NaN(),
		Longitude: math.NaN(),
	}
	if mag, err := f.PropertyFloat64("mag"); err == nil {
		event.Magnitude = &mag
	}
	if place, err := f.PropertyString("place"); err == nil {
		event.Place = place
	}
	if detail, err := f.PropertyString("url"); err == nil && isWebURL(detail) {
		event.DetailURL = detail
	}
	if f.Geometry != nil && f.Geometry.IsPoint() && len(f.Geometry.Point) >= 2 {
		event.Longitude = f.Geometry.Point[0]
		event.Latitude = f.Geometry.Point[1]
		if len(f.Geometry.Point) >= 3 {
			event.DepthKm = f.Geometry.Point[2]
		}
	}

	event.ID = featureID(f.ID)
	if event.ID == "" {
		event.ID = generateID(event)
	}
	return event, true
}

// isWebURL accepts absolute http(s) links only; anything else is not
// rendered as a link.
func isWebURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

func featureID(id interface{}) string {
	switch v := id.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

// generateID produces a deterministic ID for features the feed sent without one,
// so re-fetching the same window yields the same rendering keys.
func generateID(e Event) string {
	input := fmt.Sprintf("%d|%.4f|%.4f|%s|%g", e.TimeMs, e.Latitude, e.Longitude, e.Place, e.Mag())
	hash := sha256.Sum256([]byte(input))
	return "gen-" + hex.EncodeToString(hash[:8])
}
