package prompts

import (
	"fmt"
	"time"
)

const (
	UnknownPlace      = "Unknown"
	UnknownCoordinate = "0.00"
)

// Location is the caller's coarse position. Empty fields fall back to
// UnknownPlace and UnknownCoordinate.
type Location struct {
	City    string
	Country string
	Lat     string
	Lon     string
}

// Vars builds the placeholder values for a request made at now.
func Vars(now time.Time, loc Location) map[string]string {
	country := orDefault(loc.Country, UnknownPlace)
	location := country
	if loc.City != "" {
		location = loc.City + ", " + country
	}
	return map[string]string{
		"date":     fmt.Sprintf("%d %s %d, %s", now.Day(), now.Month(), now.Year(), now.Weekday()),
		"day":      now.Weekday().String(),
		"time":     now.Format("3:04:05 PM"),
		"location": location,
		"country":  country,
		"city":     orDefault(loc.City, UnknownPlace),
		"lat":      orDefault(loc.Lat, UnknownCoordinate),
		"lon":      orDefault(loc.Lon, UnknownCoordinate),
	}
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
