// Package domain models earthquake events from the USGS FDSN event service
// and the pure derivations the viewer runs over them.
//
// # Data Source
//
// Events come from the USGS FDSN event web service at
// https://earthquake.usgs.gov/fdsnws/event/1/query. The viewer always asks for
// GeoJSON ordered by time:
//
//	?format=geojson&orderby=time&starttime=2024-01-01&endtime=2024-01-08&minmagnitude=2.5&limit=1000
//
// # Feed Conventions
//
// Coordinates:
//
//	geometry.coordinates = [longitude, latitude, depth]
//	Longitude comes first (GeoJSON order). Depth is kilometres below sea level.
//	A feature whose coordinates are missing or non-numeric is kept in the
//	collection with NaN coordinates and skipped at render time. See
//	[Event.HasValidCoordinates].
//
// Properties used:
//
//	mag    magnitude, may be null for very small or unreviewed events
//	place  free-text location, e.g. "10 km SSW of Tokyo, Japan", may be null
//	time   origin time in epoch milliseconds (UTC)
//	url    event detail page
//
// Ordering:
//
//	The feed returns orderby=time as newest first. The timeline sorts
//	ascending by time with a stable sort, so events sharing a millisecond
//	keep the order the feed listed them in.
//
// # Timeline
//
// [BuildTimeline] produces the ascending event list and a parallel slice of
// timestamps, one per event, duplicates retained. A cursor indexes that slice;
// the timestamp at the cursor is the cutoff used by [FilterEvents].
//
// # Styling
//
// [MagnitudeStyle] maps a magnitude to a marker radius (monotonic) and a colour
// band with thresholds at 2, 3, 4, 5, 6 and 7. Absent magnitudes style as 0.
package domain
