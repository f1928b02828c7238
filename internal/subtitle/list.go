package subtitle

import (
	"regexp"
	"strings"

	"voicefront/internal/domain"
)

var (
	numberedItem = regexp.MustCompile(`^\d+\.\s*(.+)$`)
	bulletItem   = regexp.MustCompile(`^[-*•]\s*(.+)$`)
)

// IsListMessage reports whether an agent message belongs in the list panel
// instead of the subtitle line.
func IsListMessage(text string) bool {
	return strings.Contains(text, "\n\n")
}

// ParseList extracts list items. The first numbered or bullet line decides
// the list kind. Without either, the lines after a "label:\n\n" intro are
// used. ok is false when nothing could be extracted.
func ParseList(text string) (panel domain.ListPanel, ok bool) {
	lines := nonEmptyLines(text)

	var pattern *regexp.Regexp
	for _, line := range lines {
		if numberedItem.MatchString(line) {
			pattern = numberedItem
			panel.Ordered = true
			break
		}
		if bulletItem.MatchString(line) {
			pattern = bulletItem
			break
		}
	}

	if pattern != nil {
		for _, line := range lines {
			if m := pattern.FindStringSubmatch(line); m != nil {
				panel.Items = append(panel.Items, strings.TrimSpace(m[1]))
			}
		}
		return panel, len(panel.Items) > 0
	}

	idx := strings.Index(text, ":\n\n")
	if idx < 0 {
		return domain.ListPanel{}, false
	}
	for _, line := range nonEmptyLines(text[idx+3:]) {
		panel.Items = append(panel.Items, strings.TrimSpace(line))
	}
	return panel, len(panel.Items) > 0
}

func nonEmptyLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
