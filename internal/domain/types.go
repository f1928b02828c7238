package domain

import (
	"errors"
	"fmt"
)

// SessionState models the conversation lifecycle.
type SessionState string

const (
	SessionStateIdle         SessionState = "idle"
	SessionStateConnecting   SessionState = "connecting"
	SessionStateConnected    SessionState = "connected"
	SessionStateDisconnected SessionState = "disconnected"
	SessionStateError        SessionState = "error"
)

// SessionStateReason provides a structured reason for state transitions.
type SessionStateReason string

const (
	SessionReasonBooting            SessionStateReason = "booting"
	SessionReasonFetchingCredential SessionStateReason = "fetching_credentials"
	SessionReasonAgentConnected     SessionStateReason = "agent_connected"
	SessionReasonAgentDisconnected  SessionStateReason = "agent_disconnected"
	SessionReasonCredentialFailed   SessionStateReason = "credentials_failed"
	SessionReasonSessionFailed      SessionStateReason = "session_failed"
	SessionReasonSessionError       SessionStateReason = "session_error"
	SessionReasonMicrophoneFailed   SessionStateReason = "microphone_failed"
	SessionReasonSettled            SessionStateReason = "settled"
	SessionReasonClosed             SessionStateReason = "closed"
)

// ConnectionState is the coarse view of the remote session used for rendering.
type ConnectionState string

const (
	ConnectionDisconnected ConnectionState = "disconnected"
	ConnectionConnected    ConnectionState = "connected"
)

// SpeechState is the local speech-activity state.
type SpeechState string

const (
	SpeechIdle     SpeechState = "idle"
	SpeechSpeaking SpeechState = "speaking"
)

// AgentMode is reported by the remote session on mode changes.
type AgentMode string

const (
	AgentModeSpeaking  AgentMode = "speaking"
	AgentModeListening AgentMode = "listening"
)

// MessageSource identifies who produced a conversation message.
type MessageSource string

const (
	MessageSourceAI   MessageSource = "ai"
	MessageSourceUser MessageSource = "user"
)

// Message is a text message observed on the remote session.
type Message struct {
	Source  MessageSource `json:"source"`
	Message string        `json:"message"`
}

// Credentials are issued by the credential endpoint for one session.
type Credentials struct {
	SignedURL    string   `json:"signedUrl"`
	System       string   `json:"system"`
	FirstMessage string   `json:"firstMessage"`
	ToolIDs      []string `json:"tool_ids,omitempty"`
}

// ErrorCode identifies backend errors surfaced to the UI.
type ErrorCode string

const (
	ErrorCodeStartup     ErrorCode = "startup"
	ErrorCodeAudioStream ErrorCode = "audio_stream"
	ErrorCodeSession     ErrorCode = "session"
	ErrorCodeClip        ErrorCode = "clip"
	ErrorCodeClipboard   ErrorCode = "clipboard"
)

// Notice is a short status shown on the subtitle line.
type Notice string

const (
	NoticeNone                    Notice = ""
	NoticeAudioUnsupported        Notice = "audio_unsupported"
	NoticeMediaUnavailable        Notice = "media_unavailable"
	NoticeNoInputSource           Notice = "no_input_source"
	NoticeNoMicrophone            Notice = "no_microphone"
	NoticeMicPermissionDenied     Notice = "mic_permission_denied"
	NoticeMicBusy                 Notice = "mic_busy"
	NoticeMicOverconstrained      Notice = "mic_overconstrained"
	NoticeMicAborted              Notice = "mic_aborted"
	NoticeMicInsecure             Notice = "mic_insecure"
	NoticeMicInvalidConstraints   Notice = "mic_invalid_constraints"
	NoticeMicUnknown              Notice = "mic_unknown"
	NoticeVoiceServiceUnavailable Notice = "voice_service_unavailable"
	NoticeWebsocketUnavailable    Notice = "websocket_unavailable"
	NoticeErrorOccurred           Notice = "error_occurred"
	NoticeAgentDisconnected       Notice = "agent_disconnected"
)

// MicErrorKind classifies microphone acquisition failures.
type MicErrorKind string

const (
	MicErrorPermissionDenied   MicErrorKind = "permission_denied"
	MicErrorNotFound           MicErrorKind = "not_found"
	MicErrorBusy               MicErrorKind = "busy"
	MicErrorOverconstrained    MicErrorKind = "overconstrained"
	MicErrorAborted            MicErrorKind = "aborted"
	MicErrorInsecure           MicErrorKind = "insecure"
	MicErrorInvalidConstraints MicErrorKind = "invalid_constraints"
	MicErrorUnavailable        MicErrorKind = "unavailable"
	MicErrorUnknown            MicErrorKind = "unknown"
)

// MicError wraps a capture failure with its category.
type MicError struct {
	Kind MicErrorKind
	Err  error
}

func (e *MicError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("microphone %s", e.Kind)
	}
	return fmt.Sprintf("microphone %s: %v", e.Kind, e.Err)
}

func (e *MicError) Unwrap() error {
	return e.Err
}

// MicErrorKindOf extracts the category of err, or MicErrorUnknown.
func MicErrorKindOf(err error) MicErrorKind {
	var micErr *MicError
	if errors.As(err, &micErr) {
		return micErr.Kind
	}
	return MicErrorUnknown
}

// Notice maps the category onto the status shown to the user.
func (k MicErrorKind) Notice() Notice {
	switch k {
	case MicErrorPermissionDenied:
		return NoticeMicPermissionDenied
	case MicErrorNotFound:
		return NoticeNoInputSource
	case MicErrorBusy:
		return NoticeMicBusy
	case MicErrorOverconstrained:
		return NoticeMicOverconstrained
	case MicErrorAborted:
		return NoticeMicAborted
	case MicErrorInsecure:
		return NoticeMicInsecure
	case MicErrorInvalidConstraints:
		return NoticeMicInvalidConstraints
	case MicErrorUnavailable:
		return NoticeMediaUnavailable
	default:
		return NoticeMicUnknown
	}
}

// Device describes an audio capture endpoint.
type Device struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsDefault bool   `json:"isDefault"`
}

// BadgeState is the discrete indicator used on constrained devices.
type BadgeState string

const (
	BadgeLoading BadgeState = "loading"
	BadgeIdle    BadgeState = "idle"
	BadgeUser    BadgeState = "user"
	BadgeAgent   BadgeState = "agent"
)

// Badge is the rendered form of a BadgeState.
type Badge struct {
	State BadgeState `json:"state"`
	Color string     `json:"color"`
	Label string     `json:"label"`
}

// ListPanel is a structured list extracted from an agent message.
type ListPanel struct {
	Ordered bool     `json:"ordered"`
	Items   []string `json:"items"`
}

// Status summarizes the current runtime status.
type Status struct {
	State        SessionState    `json:"state"`
	Connection   ConnectionState `json:"connection"`
	AgentTalking bool            `json:"agentTalking"`
	Speaking     bool            `json:"speaking"`
	Profile      string          `json:"profile"`
	Message      string          `json:"message,omitempty"`
}
