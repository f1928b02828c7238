// Package devices enumerates and opens capture endpoints through miniaudio.
package devices

import (
	"strings"

	"voicefront/internal/domain"
)

// loopbackNames are virtual or loopback inputs that carry system audio
// rather than a microphone.
var loopbackNames = []string{
	"Stereo Mix",
	"What U Hear",
	"Loopback",
	"VB-Audio Virtual Cable",
	"VB-Audio VoiceMeeter",
	"Virtual Audio Cable",
	"BlackHole",
	"Soundflower",
	"Jack Audio Connection Kit",
	"ASIO4ALL",
	"Rogue Amoeba Loopback",
	"Dante Virtual Soundcard",
	"Sunflower",
}

// IsStereoMix reports whether name looks like a loopback device. A name
// matches when either string contains the other.
func IsStereoMix(name string) bool {
	if name == "" {
		return false
	}
	for _, candidate := range loopbackNames {
		if strings.Contains(name, candidate) || strings.Contains(candidate, name) {
			return true
		}
	}
	return false
}

// Select picks the device matching want by id or name, then the default
// device, then the first one. ok is false when devices is empty.
func Select(devices []domain.Device, want string) (domain.Device, bool) {
	if len(devices) == 0 {
		return domain.Device{}, false
	}
	want = strings.TrimSpace(want)
	if want != "" && want != "default" {
		for _, d := range devices {
			if d.ID == want || d.Name == want {
				return d, true
			}
		}
	}
	for _, d := range devices {
		if d.IsDefault {
			return d, true
		}
	}
	return devices[0], true
}

// ClassifyError maps a backend failure message onto a microphone category.
func ClassifyError(err error) domain.MicErrorKind {
	if err == nil {
		return domain.MicErrorUnknown
	}
	lower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lower, "access denied"), strings.Contains(lower, "permission"):
		return domain.MicErrorPermissionDenied
	case strings.Contains(lower, "busy"), strings.Contains(lower, "in use"):
		return domain.MicErrorBusy
	case strings.Contains(lower, "no device"), strings.Contains(lower, "does not exist"), strings.Contains(lower, "device not found"):
		return domain.MicErrorNotFound
	case strings.Contains(lower, "format not supported"), strings.Contains(lower, "invalid device config"):
		return domain.MicErrorOverconstrained
	case strings.Contains(lower, "invalid arg"):
		return domain.MicErrorInvalidConstraints
	case strings.Contains(lower, "no backend"), strings.Contains(lower, "api not found"), strings.Contains(lower, "failed to init backend"):
		return domain.MicErrorUnavailable
	case strings.Contains(lower, "cancel"), strings.Contains(lower, "abort"), strings.Contains(lower, "interrupt"):
		return domain.MicErrorAborted
	default:
		return domain.MicErrorUnknown
	}
}
