// Package prompts renders the system prompt and picks greetings for the
// credential server.
package prompts

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
)

var placeholder = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// Template is a system prompt with {{key}} placeholders.
type Template struct {
	text      string
	loopLimit int
}

// NewTemplate wraps text. Values that themselves contain placeholders are
// expanded again, at most loopLimit times.
func NewTemplate(text string, loopLimit int) *Template {
	if loopLimit <= 0 {
		loopLimit = 5
	}
	return &Template{text: strings.TrimSpace(text), loopLimit: loopLimit}
}

// LoadTemplate reads a template file. A blank path or a missing file yields
// an empty template.
func LoadTemplate(path string, loopLimit int) (*Template, error) {
	if strings.TrimSpace(path) == "" {
		return NewTemplate("", loopLimit), nil
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewTemplate("", loopLimit), nil
		}
		return nil, fmt.Errorf("failed to read prompt file %q: %w", path, err)
	}
	return NewTemplate(string(contents), loopLimit), nil
}

// Text returns the raw template.
func (t *Template) Text() string { return t.text }

// Render substitutes vars. Unknown keys render as empty strings.
func (t *Template) Render(vars map[string]string) string {
	result := t.text
	for i := 0; i < t.loopLimit; i++ {
		next := placeholder.ReplaceAllStringFunc(result, func(match string) string {
			key := strings.TrimSpace(match[2 : len(match)-2])
			return vars[key]
		})
		if next == result {
			return next
		}
		result = next
	}
	return result
}
