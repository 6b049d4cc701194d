package domain

import (
	geojson "github.com/paulmach/go.geojson"
)

// ViewState is the explicit input the render surface is derived from.
type ViewState struct {
	Timeline   Timeline
	Text       string
	Cursor     int
	Mode       ViewMode
	Theme      Theme
	Playing    bool
	Loading    bool
	LastError  string
	Query      Query
	Generation uint64
}

// RenderEvent is an event as the map draws it.
type RenderEvent struct {
	ID        string   `json:"id"`
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Magnitude *float64 `json:"magnitude"`
	DepthKm   float64  `json:"depth_km"`
	Place     string   `json:"place,omitempty"`
	TimeMs    int64    `json:"time_ms"`
	DetailURL string   `json:"detail_url,omitempty"`
	Style
	Intensity float64 `json:"intensity"`
}

// Frame is everything the render surface needs for one redraw.
type Frame struct {
	Events         []RenderEvent `json:"events"`
	Mode           ViewMode      `json:"mode"`
	Theme          Theme         `json:"theme"`
	Cursor         int           `json:"cursor"`
	TimelineLength int           `json:"timeline_length"`
	CutoffMs       int64         `json:"cutoff_ms"`
	ShowTimeline   bool          `json:"show_timeline"`
	Playing        bool          `json:"playing"`
	Loading        bool          `json:"loading"`
	LastError      string        `json:"last_error,omitempty"`
	Query          Query         `json:"query"`
	Text           string        `json:"text"`
	TotalEvents    int           `json:"total_events"`
	Generation     uint64        `json:"generation"`
}

// BuildFrame derives the render frame from state. Events without usable
// coordinates pass the filter but are left out of Events; hidden counts them.
func BuildFrame(state ViewState) (frame Frame, hidden int) {
	frame = Frame{
		Events:         []RenderEvent{},
		Mode:           state.Mode,
		Theme:          state.Theme,
		Cursor:         state.Cursor,
		TimelineLength: state.Timeline.Len(),
		ShowTimeline:   !state.Timeline.Empty(),
		Playing:        state.Playing,
		Loading:        state.Loading,
		LastError:      state.LastError,
		Query:          state.Query,
		Text:           state.Text,
		TotalEvents:    state.Timeline.Len(),
		Generation:     state.Generation,
	}
	if cutoff, ok := state.Timeline.Cutoff(state.Cursor); ok {
		frame.CutoffMs = cutoff
	}

	for _, e := range VisibleEvents(state.Timeline, state.Text, state.Cursor) {
		if !e.HasValidCoordinates() {
			hidden++
			continue
		}
		frame.Events = append(frame.Events, RenderEvent{
			ID:        e.ID,
			Latitude:  e.Latitude,
			Longitude: e.Longitude,
			Magnitude: e.Magnitude,
			DepthKm:   e.DepthKm,
			Place:     e.Place,
			TimeMs:    e.TimeMs,
			DetailURL: e.DetailURL,
			Style:     MagnitudeStyle(e.Mag()),
			Intensity: HeatIntensity(e.Mag()),
		})
	}
	return frame, hidden
}

// FeatureCollection renders the frame's events as GeoJSON points, the shape
// map libraries load directly.
func (f Frame) FeatureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, e := range f.Events {
		feature := geojson.NewPointFeature([]float64{e.Longitude, e.Latitude, e.DepthKm})
		feature.ID = e.ID
		if e.Magnitude != nil {
			feature.SetProperty("mag", *e.Magnitude)
		} else {
			feature.SetProperty("mag", nil)
		}
		feature.SetProperty("place", e.Place)
		feature.SetProperty("time", e.TimeMs)
		feature.SetProperty("url", e.DetailURL)
		feature.SetProperty("color", e.Color)
		feature.SetProperty("radius", e.Radius)
		feature.SetProperty("intensity", e.Intensity)
		fc.AddFeature(feature)
	}
	return fc
}
