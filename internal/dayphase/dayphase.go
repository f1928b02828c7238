// Package dayphase buckets local time into the coarse phases used to pick a
// greeting.
package dayphase

import (
	"strings"
	"time"
)

type Phase string

const (
	Morning Phase = "morning"
	Day     Phase = "day"
	Evening Phase = "evening"
	Night   Phase = "night"
)

// All lists the phases in chronological order.
var All = []Phase{Morning, Day, Evening, Night}

// FromHour maps an hour of the day (0-23) onto a phase.
func FromHour(hour int) Phase {
	switch {
	case hour >= 5 && hour < 12:
		return Morning
	case hour >= 12 && hour < 17:
		return Day
	case hour >= 17 && hour < 21:
		return Evening
	default:
		return Night
	}
}

// At returns the phase for t in its own location.
func At(t time.Time) Phase {
	return FromHour(t.Hour())
}

// Parse reads a phase, defaulting to Day when empty or unrecognized.
func Parse(value string) Phase {
	switch Phase(strings.ToLower(strings.TrimSpace(value))) {
	case Morning:
		return Morning
	case Evening:
		return Evening
	case Night:
		return Night
	default:
		return Day
	}
}
