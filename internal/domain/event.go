package domain

import (
	"encoding/json"
	"math"
	"time"
)

// Event is a single seismic occurrence as reported by the feed.
type Event struct {
	ID        string   `json:"id"`
	TimeMs    int64    `json:"time_ms"`
	Magnitude *float64 `json:"magnitude"` // nil when the feed reports no magnitude
	DepthKm   float64  `json:"depth_km"`
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Place     string   `json:"place,omitempty"`
	DetailURL string   `json:"detail_url,omitempty"`
}

// Mag returns the magnitude, treating an absent value as 0.
func (e Event) Mag() float64 {
	if e.Magnitude == nil {
		return 0
	}
	return *e.Magnitude
}

// Time returns the origin time in UTC.
func (e Event) Time() time.Time {
	return time.UnixMilli(e.TimeMs).UTC()
}

// HasValidCoordinates reports whether the event can be placed on a map.
func (e Event) HasValidCoordinates() bool {
	return isCoordinate(e.Latitude, 90) && isCoordinate(e.Longitude, 180)
}

func isCoordinate(v, limit float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= -limit && v <= limit
}

// MarshalJSON writes unusable coordinates as null; encoding/json rejects NaN.
func (e Event) MarshalJSON() ([]byte, error) {
	type plain Event
	return json.Marshal(struct {
		plain
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	}{
		plain:     plain(e),
		Latitude:  finiteOrNil(e.Latitude),
		Longitude: finiteOrNil(e.Longitude),
	})
}

// UnmarshalJSON restores null coordinates as NaN.
func (e *Event) UnmarshalJSON(data []byte) error {
	type plain Event
	aux := struct {
		*plain
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	}{plain: (*plain)(e)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	e.Latitude, e.Longitude = math.NaN(), math.NaN()
	if aux.Latitude != nil {
		e.Latitude = *aux.Latitude
	}
	if aux.Longitude != nil {
		e.Longitude = *aux.Longitude
	}
	return nil
}

func finiteOrNil(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// RawFeed is an undecoded feed response together with the query that produced it.
type RawFeed struct {
	Body       []byte
	Query      Query
	ReceivedAt time.Time
}

// Snapshot is one applied event collection, as handed to downstream sinks.
type Snapshot struct {
	Generation uint64
	Query      Query
	Events     []Event
	FetchedAt  time.Time
}
