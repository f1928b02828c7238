package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"voicefront/internal/domain"
	"voicefront/internal/profile"
	"voicefront/internal/render"
)

func TestBuildSuccess(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("VOICEFRONT_PROFILE", "very-low")
	t.Setenv("VOICEFRONT_AUDIO_BACKEND", "ffmpeg")

	services, err := Build(noopEventSink{}, noopClipboard{}, noopLinks{}, nil)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	defer services.Close()

	if services.Controller == nil {
		t.Fatalf("expected controller")
	}
	if services.Profile != profile.VeryLow {
		t.Fatalf("expected very-low override, got %s", services.Profile)
	}
	if services.Loop == nil || services.Cues == nil {
		t.Fatalf("expected loop and cue player")
	}
}

func TestBuildFailsOnInvalidScript(t *testing.T) {
	home := t.TempDir()
	script := filepath.Join(home, "conversation.yaml")
	if err := os.WriteFile(script, []byte("turns:\n  - mode: singing\n"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	t.Setenv("HOME", home)
	t.Setenv("VOICEFRONT_SCRIPT_FILE", script)

	_, err := Build(noopEventSink{}, noopClipboard{}, noopLinks{}, nil)
	if err == nil {
		t.Fatalf("expected build error due to invalid script")
	}
}

type noopEventSink struct{}

func (noopEventSink) SessionStateChanged(domain.SessionState, domain.SessionStateReason) {}
func (noopEventSink) SessionError(domain.ErrorCode, string)                              {}
func (noopEventSink) Subtitle(string)                                                    {}
func (noopEventSink) Notice(domain.Notice, string)                                       {}
func (noopEventSink) ListPanel(domain.ListPanel)                                         {}
func (noopEventSink) HideListPanel()                                                     {}
func (noopEventSink) ReconnectControl(bool)                                              {}
func (noopEventSink) SpeechStateChanged(domain.SpeechState)                              {}
func (noopEventSink) EndOfUtterance()                                                    {}
func (noopEventSink) Frame(render.Frame)                                                 {}
func (noopEventSink) Loader(bool)                                                        {}
func (noopEventSink) LoaderFrame(render.LoaderFrame)                                     {}
func (noopEventSink) Badge(domain.Badge)                                                 {}

type noopClipboard struct{}

func (noopClipboard) SetText(context.Context, string) error { return nil }

type noopLinks struct{}

func (noopLinks) OpenURL(string) {}
