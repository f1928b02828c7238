package usecase

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var ErrInvalidLink = errors.New("invalid link")

// NormalizeLink accepts a bare string or an object carrying url or href,
// defaults the scheme to https and only allows http and https targets.
func NormalizeLink(args any) (string, error) {
	var raw string
	switch v := args.(type) {
	case string:
		raw = v
	case map[string]any:
		raw = stringField(v, "url")
		if strings.TrimSpace(raw) == "" {
			raw = stringField(v, "href")
		}
	case map[string]string:
		raw = v["url"]
		if strings.TrimSpace(raw) == "" {
			raw = v["href"]
		}
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidLink)
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidLink, err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", fmt.Errorf("%w: scheme %q not allowed", ErrInvalidLink, u.Scheme)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("%w: missing host", ErrInvalidLink)
	}
	u.Scheme = scheme
	return u.String(), nil
}

func stringField(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}
