package usecase

import (
	"strings"

	"voicefront/internal/domain"
)

// transcriptAggregator keeps the conversation's messages in order. Repeated
// deliveries of the same message from the same speaker are collapsed.
type transcriptAggregator struct {
	lines []domain.Message
}

func newTranscriptAggregator() *transcriptAggregator {
	return &transcriptAggregator{}
}

func (a *transcriptAggregator) Add(msg domain.Message) {
	text := strings.TrimSpace(msg.Message)
	if text == "" {
		return
	}
	if n := len(a.lines); n > 0 {
		last := a.lines[n-1]
		if last.Source == msg.Source && last.Message == text {
			return
		}
	}
	a.lines = append(a.lines, domain.Message{Source: msg.Source, Message: text})
}

func (a *transcriptAggregator) Len() int { return len(a.lines) }

// Text renders one "Speaker: message" line per message.
func (a *transcriptAggregator) Text() string {
	var b strings.Builder
	for i, line := range a.lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		switch line.Source {
		case domain.MessageSourceUser:
			b.WriteString("You: ")
		default:
			b.WriteString("Agent: ")
		}
		b.WriteString(line.Message)
	}
	return b.String()
}
