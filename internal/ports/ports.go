package ports

import (
	"context"
	"io"

	"voicefront/internal/audiograph"
	"voicefront/internal/dayphase"
	"voicefront/internal/domain"
	"voicefront/internal/render"
)

// AudioConfig describes how the microphone should be captured.
type AudioConfig struct {
	SampleRate  int
	Channels    int
	InputFormat string
	InputDevice string
}

// AudioSession is a live capture session producing s16le PCM.
type AudioSession interface {
	io.ReadCloser
	Stop() error
}

// AudioCapture creates microphone capture sessions. Start failures are
// *domain.MicError values.
type AudioCapture interface {
	Start(ctx context.Context, cfg AudioConfig) (AudioSession, error)
}

// DeviceLister enumerates capture endpoints.
type DeviceLister interface {
	ListDevices(ctx context.Context) ([]domain.Device, error)
}

// ClientTool is a function the remote agent may invoke. args is whatever the
// agent sent: a bare string or an object.
type ClientTool func(args any) (any, error)

// SessionConfig carries the credentials and overrides for one conversation.
type SessionConfig struct {
	SignedURL    string
	SystemPrompt string
	FirstMessage string
	ToolIDs      []string
	ClientTools  map[string]ClientTool
	SampleRate   int
}

// SessionCallbacks receive remote session events. Providers may call them
// from any goroutine.
type SessionCallbacks struct {
	OnConnect    func()
	OnDisconnect func()
	OnError      func(reason string)
	OnModeChange func(mode domain.AgentMode)
	OnMessage    func(msg domain.Message)
}

// SessionOutput exposes the agent's playback graph.
type SessionOutput struct {
	Context  *audiograph.Context
	Analyser *audiograph.AnalyserNode
}

// ConversationSession is an established remote conversation.
type ConversationSession interface {
	Output() SessionOutput
	End() error
}

// ConversationProvider opens remote conversation sessions.
type ConversationProvider interface {
	StartSession(ctx context.Context, cfg SessionConfig, callbacks SessionCallbacks) (ConversationSession, error)
}

// CredentialSource issues session credentials for a day phase.
type CredentialSource interface {
	Fetch(ctx context.Context, phase dayphase.Phase) (domain.Credentials, error)
}

// CuePlayer plays short notification clips.
type CuePlayer interface {
	Cue(source string)
}

// LinkOpener opens URLs in the system browser.
type LinkOpener interface {
	OpenURL(url string)
}

// Clipboard writes text into the system clipboard.
type Clipboard interface {
	SetText(ctx context.Context, text string) error
}

// EventSink emits backend state/events to the UI.
type EventSink interface {
	SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason)
	SessionError(code domain.ErrorCode, detail string)

	Subtitle(text string)
	Notice(notice domain.Notice, detail string)
	ListPanel(panel domain.ListPanel)
	HideListPanel()
	ReconnectControl(visible bool)

	SpeechStateChanged(state domain.SpeechState)
	EndOfUtterance()

	Frame(frame render.Frame)
	Loader(visible bool)
	LoaderFrame(frame render.LoaderFrame)
	Badge(badge domain.Badge)
}
