package usecase

import (
	"errors"
	"testing"
)

func TestNormalizeLink(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args any
		want string
		err  bool
	}{
		{name: "bare host", args: "example.com", want: "https://example.com"},
		{name: "http kept", args: "http://example.com/a?b=1", want: "http://example.com/a?b=1"},
		{name: "scheme lowercased", args: "HTTPS://example.com", want: "https://example.com"},
		{name: "url field", args: map[string]any{"url": " example.com/x "}, want: "https://example.com/x"},
		{name: "href fallback", args: map[string]any{"url": "", "href": "example.org"}, want: "https://example.org"},
		{name: "string map", args: map[string]string{"href": "example.net"}, want: "https://example.net"},
		{name: "empty", args: "  ", err: true},
		{name: "wrong type", args: 42, err: true},
		{name: "non string field", args: map[string]any{"url": 3}, err: true},
		{name: "ftp", args: "ftp://example.com", err: true},
		{name: "file", args: "file:///etc/passwd", err: true},
		{name: "no host", args: "https://", err: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := NormalizeLink(tt.args)
			if tt.err {
				if !errors.Is(err, ErrInvalidLink) {
					t.Fatalf("expected ErrInvalidLink, got %q, %v", got, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %q want %q", got, tt.want)
			}
		})
	}
}
