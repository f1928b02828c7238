package usecase

import (
	"context"
	"errors"
	"fmt"

	"voicefront/internal/domain"
	"voicefront/internal/ports"
)

var ErrEmptyTranscript = errors.New("transcript is empty")

type transcriptFinalizer struct {
	clipboard ports.Clipboard
	events    ports.EventSink
}

func newTranscriptFinalizer(clipboard ports.Clipboard, events ports.EventSink) transcriptFinalizer {
	return transcriptFinalizer{clipboard: clipboard, events: events}
}

// Copy writes text to the clipboard. Failures are reported to the UI and
// returned.
func (f transcriptFinalizer) Copy(ctx context.Context, text string) error {
	if text == "" {
		return ErrEmptyTranscript
	}
	if f.clipboard == nil {
		return errors.New("clipboard is not available")
	}
	if err := f.clipboard.SetText(ctx, text); err != nil {
		f.events.SessionError(domain.ErrorCodeClipboard, "transcript ready but clipboard write failed")
		return fmt.Errorf("copy transcript: %w", err)
	}
	return nil
}
