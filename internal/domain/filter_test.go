package domain

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterEvents_CutoffIncludesTies(t *testing.T) {
	tl := BuildTimeline([]Event{
		eventAt("a", 100, ""),
		eventAt("b1", 200, ""),
		eventAt("b2", 200, ""),
		eventAt("c", 300, ""),
	})

	got := VisibleEvents(tl, "", 2)

	assert.Equal(t, []string{"a", "b1", "b2"}, eventIDs(got))
}

func TestFilterEvents_TextCaseInsensitive(t *testing.T) {
	tl := BuildTimeline([]Event{
		eventAt("tokyo", 100, "Near Tokyo, Japan"),
		eventAt("alaska", 200, "Alaska"),
	})

	got := VisibleEvents(tl, "japan", tl.LastIndex())
	assert.Equal(t, []string{"tokyo"}, eventIDs(got))

	got = VisibleEvents(tl, "JAPAN", tl.LastIndex())
	assert.Equal(t, []string{"tokyo"}, eventIDs(got))
}

func TestFilterEvents_EmptyTextMatchesAll(t *testing.T) {
	tl := BuildTimeline([]Event{
		eventAt("a", 100, "Alaska"),
		eventAt("b", 200, ""),
	})

	got := VisibleEvents(tl, "", tl.LastIndex())
	assert.Equal(t, []string{"a", "b"}, eventIDs(got))
}

func TestFilterEvents_MissingPlaceNeverMatchesText(t *testing.T) {
	tl := BuildTimeline([]Event{eventAt("a", 100, "")})

	assert.Empty(t, VisibleEvents(tl, "alaska", 0))
}

func TestFilterEvents_EmptyTimeline(t *testing.T) {
	got := VisibleEvents(BuildTimeline(nil), "", 0)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestFilterEvents_SingleEvent(t *testing.T) {
	tl := BuildTimeline([]Event{eventAt("only", 5, "Chile")})

	assert.Equal(t, []string{"only"}, eventIDs(VisibleEvents(tl, "", 0)))
	assert.Equal(t, []string{"only"}, eventIDs(VisibleEvents(tl, "chi", 0)))
	assert.Empty(t, VisibleEvents(tl, "peru", 0))
}

func TestFilterEvents_Properties(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 11))
	places := []string{"Alaska", "Near Tokyo, Japan", "Chile", ""}

	for round := 0; round < 30; round++ {
		events := randomEvents(r, 1+r.IntN(30))
		for i := range events {
			events[i].Place = places[r.IntN(len(places))]
		}
		tl := BuildTimeline(events)
		text := []string{"", "a", "japan"}[r.IntN(3)]

		var previous map[string]bool
		for cursor := 0; cursor < tl.Len(); cursor++ {
			cutoff, ok := tl.Cutoff(cursor)
			require.True(t, ok)

			got := VisibleEvents(tl, text, cursor)
			again := VisibleEvents(tl, text, cursor)
			require.Equal(t, got, again, "filtering is a pure function of its inputs")

			current := make(map[string]bool, len(got))
			for i, e := range got {
				require.LessOrEqual(t, e.TimeMs, cutoff)
				if i > 0 {
					require.LessOrEqual(t, got[i-1].TimeMs, e.TimeMs, "output stays chronological")
				}
				current[e.ID] = true
			}
			for id := range previous {
				require.True(t, current[id], "cursor %d lost event %s visible at an earlier cursor", cursor, id)
			}
			previous = current
		}
	}
}
