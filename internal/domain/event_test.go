package domain

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvent_HasValidCoordinates(t *testing.T) {
	tests := []struct {
		name     string
		lat, lon float64
		want     bool
	}{
		{"valid", 35.6, 139.7, true},
		{"edges", -90, 180, true},
		{"nan latitude", math.NaN(), 10, false},
		{"nan longitude", 10, math.NaN(), false},
		{"infinite", math.Inf(1), 10, false},
		{"latitude out of range", 91, 10, false},
		{"longitude out of range", 10, -181, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := Event{Latitude: tc.lat, Longitude: tc.lon}
			assert.Equal(t, tc.want, e.HasValidCoordinates())
		})
	}
}

func TestEvent_JSONWithInvalidCoordinates(t *testing.T) {
	mag := 3.2
	e := Event{ID: "a", TimeMs: 100, Magnitude: &mag, Latitude: math.NaN(), Longitude: 12.5, Place: "x"}

	data, err := json.Marshal(e)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"latitude":null`)
	assert.Contains(t, string(data), `"longitude":12.5`)

	var back Event
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, "a", back.ID)
	assert.Equal(t, int64(100), back.TimeMs)
	assert.True(t, math.IsNaN(back.Latitude))
	assert.Equal(t, 12.5, back.Longitude)
	require.NotNil(t, back.Magnitude)
	assert.Equal(t, 3.2, *back.Magnitude)
}

func TestEvent_Time(t *testing.T) {
	e := Event{TimeMs: 1714150000000}
	assert.Equal(t, "2024-04-26T16:46:40Z", e.Time().Format("2006-01-02T15:04:05Z07:00"))
}
