package domain

import "slices"

// Timeline is the chronological view of one event collection.
// Timestamps[i] is Events[i].TimeMs; duplicates are kept.
type Timeline struct {
	Events     []Event
	Timestamps []int64
}

// BuildTimeline sorts a copy of events ascending by time. Equal times keep
// their input order. The input slice is not modified.
func BuildTimeline(events []Event) Timeline {
	sorted := slices.Clone(events)
	slices.SortStableFunc(sorted, func(a, b Event) int {
		switch {
		case a.TimeMs < b.TimeMs:
			return -1
		case a.TimeMs > b.TimeMs:
			return 1
		default:
			return 0
		}
	})

	timestamps := make([]int64, len(sorted))
	for i := range sorted {
		timestamps[i] = sorted[i].TimeMs
	}
	return Timeline{Events: sorted, Timestamps: timestamps}
}

// Len is the number of cursor positions.
func (t Timeline) Len() int { return len(t.Timestamps) }

// Empty reports whether there is nothing to scrub through.
func (t Timeline) Empty() bool { return len(t.Timestamps) == 0 }

// LastIndex is the cursor position that reveals every event, or 0 when empty.
func (t Timeline) LastIndex() int {
	if t.Empty() {
		return 0
	}
	return len(t.Timestamps) - 1
}

// ClampCursor bounds i to [0, LastIndex].
func (t Timeline) ClampCursor(i int) int {
	return max(0, min(i, t.LastIndex()))
}

// Cutoff returns the timestamp at cursor. ok is false when the timeline is
// empty or cursor is out of range.
func (t Timeline) Cutoff(cursor int) (cutoffMs int64, ok bool) {
	if cursor < 0 || cursor >= len(t.Timestamps) {
		return 0, false
	}
	return t.Timestamps[cursor], true
}
