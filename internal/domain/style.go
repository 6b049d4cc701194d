package domain

import "fmt"

// ViewMode selects how the render surface draws events.
type ViewMode string

const (
	ModeCircles ViewMode = "circles"
	ModeHeat    ViewMode = "heat"
)

// ParseViewMode validates a mode string from the controls.
func ParseViewMode(s string) (ViewMode, error) {
	switch ViewMode(s) {
	case ModeCircles, ModeHeat:
		return ViewMode(s), nil
	default:
		return "", fmt.Errorf("unknown view mode %q", s)
	}
}

// Theme is the map page colour scheme.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// ParseTheme validates a theme string from the controls.
func ParseTheme(s string) (Theme, error) {
	switch Theme(s) {
	case ThemeLight, ThemeDark:
		return Theme(s), nil
	default:
		return "", fmt.Errorf("unknown theme %q", s)
	}
}

// Style is the circle-marker appearance for one magnitude.
type Style struct {
	Color  string  `json:"color"`
	Radius float64 `json:"radius"`
}

// magnitudeBands lists colour bands by lower bound, highest first.
var magnitudeBands = []struct {
	min   float64
	color string
}{
	{7, "#7f0000"},
	{6, "#d7301f"},
	{5, "#fc8d59"},
	{4, "#fdcc8a"},
	{3, "#fef0d9"},
	{2, "#9ecae1"},
}

const lowMagnitudeColor = "#3182bd"

// MagnitudeStyle maps a magnitude to a colour band (thresholds 2..7) and a
// radius that grows with magnitude. Negative magnitudes style as 0.
func MagnitudeStyle(mag float64) Style {
	m := max(mag, 0)
	color := lowMagnitudeColor
	for _, band := range magnitudeBands {
		if m >= band.min {
			color = band.color
			break
		}
	}
	return Style{Color: color, Radius: 4 + 3*m}
}

// HeatIntensity scales a magnitude into [0, 1] for the heat layer.
func HeatIntensity(mag float64) float64 {
	return max(0, min(mag/MinMagnitudeCeiling, 1))
}
