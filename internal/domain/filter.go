package domain

import "strings"

// FilterEvents keeps the events whose place contains text (case-insensitive;
// empty text matches everything) and whose time is at or before cutoffMs.
// Output order follows the input order.
func FilterEvents(sorted []Event, text string, cutoffMs int64) []Event {
	needle := strings.ToLower(text)
	out := make([]Event, 0, len(sorted))
	for _, e := range sorted {
		if e.TimeMs > cutoffMs {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(e.Place), needle) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// VisibleEvents applies FilterEvents at the timeline cursor. An empty
// timeline or out-of-range cursor yields no events.
func VisibleEvents(tl Timeline, text string, cursor int) []Event {
	cutoff, ok := tl.Cutoff(cursor)
	if !ok {
		return []Event{}
	}
	return FilterEvents(tl.Events, text, cutoff)
}
