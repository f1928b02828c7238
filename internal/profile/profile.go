// Package profile selects the quality tier that controls analysis and
// rendering cost.
package profile

import "strings"

// Profile is the performance tier for the lifetime of the process.
type Profile string

const (
	Standard Profile = "standard"
	Low      Profile = "low"
	VeryLow  Profile = "very-low"
)

// Hints are the device capability signals used for selection.
type Hints struct {
	// MemoryGB is the total device memory; zero when unknown.
	MemoryGB float64
	Mobile   bool
	// Override forces a tier when non-empty.
	Override Profile
}

// Select derives the profile from hints. An override always wins.
func Select(h Hints) Profile {
	switch h.Override {
	case Standard, Low, VeryLow:
		return h.Override
	}

	selected := Standard
	switch {
	case h.MemoryGB <= 0:
	case h.MemoryGB < 4:
		selected = VeryLow
	case h.MemoryGB < 8:
		selected = Low
	}

	if h.Mobile && selected == Standard {
		selected = Low
	}
	return selected
}

// ParseOverride reads a user supplied override. Unknown values yield "".
func ParseOverride(value string) Profile {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "low", "true":
		return Low
	case "very-low", "verylow", "very_low":
		return VeryLow
	case "standard", "false":
		return Standard
	default:
		return ""
	}
}

// UsesBadge reports whether the canvas is replaced by the state badge.
func (p Profile) UsesBadge() bool {
	return p == VeryLow
}

// Analysis holds analyser settings for a tier.
type Analysis struct {
	FFTSize   int
	Smoothing float64
}

// AnalysisFor returns the analyser resolution for p.
func AnalysisFor(p Profile) Analysis {
	if p == Standard {
		return Analysis{FFTSize: 256, Smoothing: 0.64}
	}
	return Analysis{FFTSize: 64, Smoothing: 0.45}
}

// Render holds the visual constants for a tier.
type Render struct {
	CircleRadius float64
	Multiplier   float64
	Coef         float64
	Glow         float64
	ColorSpeed   float64
	HueStart     float64
}

// RenderFor returns the render constants for p.
func RenderFor(p Profile) Render {
	r := Render{
		CircleRadius: 80,
		Multiplier:   38,
		Coef:         0.15,
		Glow:         12,
		ColorSpeed:   10,
		HueStart:     0,
	}
	if p != Standard {
		r.Glow = 0
		r.Multiplier = 10
		r.Coef = 0.05
		r.ColorSpeed = 0
	}
	return r
}
