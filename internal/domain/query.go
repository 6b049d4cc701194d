package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

const (
	// DateLayout is the calendar date format the feed accepts for starttime/endtime.
	DateLayout = "2006-01-02"

	MinMagnitudeFloor   = 0.0
	MinMagnitudeCeiling = 8.0

	DefaultResultLimit = 1000
	// MaxResultLimit is the hard cap the USGS service enforces per request.
	MaxResultLimit = 20000
)

// ErrInvalidQuery is returned by Query.Validate for out-of-range parameters.
var ErrInvalidQuery = errors.New("invalid query")

// Query holds the user-selected parameters sent to the feed.
type Query struct {
	StartDate    time.Time
	EndDate      time.Time
	MinMagnitude float64
	Limit        int
}

// DefaultQuery covers the last lookback window ending today (UTC).
func DefaultQuery(lookback time.Duration, minMagnitude float64, limit int) Query {
	today := truncateDay(clock.Now())
	return Query{
		StartDate:    truncateDay(today.Add(-lookback)),
		EndDate:      today,
		MinMagnitude: minMagnitude,
		Limit:        limit,
	}
}

// ParseQuery builds a Query from the string form used by the HTTP API.
func ParseQuery(start, end string, minMagnitude float64, limit int) (Query, error) {
	s, err := time.Parse(DateLayout, start)
	if err != nil {
		return Query{}, fmt.Errorf("%w: start date %q", ErrInvalidQuery, start)
	}
	e, err := time.Parse(DateLayout, end)
	if err != nil {
		return Query{}, fmt.Errorf("%w: end date %q", ErrInvalidQuery, end)
	}
	return Query{StartDate: s, EndDate: e, MinMagnitude: minMagnitude, Limit: limit}, nil
}

// Validate checks the query against the constraints the controls enforce.
// maxLimit bounds Limit; values <= 0 fall back to MaxResultLimit.
func (q Query) Validate(maxLimit int) error {
	if maxLimit <= 0 || maxLimit > MaxResultLimit {
		maxLimit = MaxResultLimit
	}
	switch {
	case q.StartDate.IsZero() || q.EndDate.IsZero():
		return fmt.Errorf("%w: start and end dates are required", ErrInvalidQuery)
	case truncateDay(q.StartDate).After(truncateDay(q.EndDate)):
		return fmt.Errorf("%w: start date %s is after end date %s", ErrInvalidQuery, q.Start(), q.End())
	case q.MinMagnitude < MinMagnitudeFloor || q.MinMagnitude > MinMagnitudeCeiling:
		return fmt.Errorf("%w: min magnitude %g outside [%g, %g]", ErrInvalidQuery, q.MinMagnitude, MinMagnitudeFloor, MinMagnitudeCeiling)
	case q.Limit < 1 || q.Limit > maxLimit:
		return fmt.Errorf("%w: limit %d outside [1, %d]", ErrInvalidQuery, q.Limit, maxLimit)
	}
	return nil
}

// Start returns StartDate in the feed's date format.
func (q Query) Start() string { return q.StartDate.Format(DateLayout) }

// End returns EndDate in the feed's date format.
func (q Query) End() string { return q.EndDate.Format(DateLayout) }

// Values encodes the query as feed request parameters.
func (q Query) Values() url.Values {
	return url.Values{
		"format":       {"geojson"},
		"orderby":      {"time"},
		"starttime":    {q.Start()},
		"endtime":      {q.End()},
		"minmagnitude": {strconv.FormatFloat(q.MinMagnitude, 'f', -1, 64)},
		"limit":        {strconv.Itoa(q.Limit)},
	}
}

// String is used for logs and the sink's query header.
func (q Query) String() string {
	return fmt.Sprintf("%s..%s mag>=%g limit=%d", q.Start(), q.End(), q.MinMagnitude, q.Limit)
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

type queryJSON struct {
	StartDate    string  `json:"start_date"`
	EndDate      string  `json:"end_date"`
	MinMagnitude float64 `json:"min_magnitude"`
	Limit        int     `json:"limit"`
}

// MarshalJSON renders dates as YYYY-MM-DD.
func (q Query) MarshalJSON() ([]byte, error) {
	return json.Marshal(queryJSON{StartDate: q.Start(), EndDate: q.End(), MinMagnitude: q.MinMagnitude, Limit: q.Limit})
}

// UnmarshalJSON accepts the same shape MarshalJSON produces.
func (q *Query) UnmarshalJSON(data []byte) error {
	var raw queryJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}
	parsed, err := ParseQuery(raw.StartDate, raw.EndDate, raw.MinMagnitude, raw.Limit)
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}
