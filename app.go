package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/wailsapp/wails/v2/pkg/runtime"
	"go.uber.org/zap"

	"voicefront/internal/bootstrap"
	"voicefront/internal/domain"
	"voicefront/internal/logging"
	"voicefront/internal/render"
	"voicefront/internal/render/raster"
	"voicefront/internal/usecase"
)

const (
	eventSession     = "voicefront:session"
	eventError       = "voicefront:error"
	eventSubtitle    = "voicefront:subtitle"
	eventNotice      = "voicefront:notice"
	eventListPanel   = "voicefront:list"
	eventListHide    = "voicefront:list-hide"
	eventReconnect   = "voicefront:reconnect"
	eventSpeech      = "voicefront:speech"
	eventUtterance   = "voicefront:utterance-end"
	eventFrame       = "voicefront:frame"
	eventLoader      = "voicefront:loader"
	eventLoaderFrame = "voicefront:loader-frame"
	eventBadge       = "voicefront:badge"
)

var errNoFrame = errors.New("no frame rendered yet")

// App is the Wails application root.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	services   bootstrap.Services
	controller *usecase.SessionController
	bootErr    error
}

func NewApp() *App {
	return &App{}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	services, err := bootstrap.Build(a, &wailsClipboard{}, &wailsBrowser{app: a}, logging.Logger)
	if err != nil {
		a.bootErr = err
		logging.Logger.Error("startup failed", zap.Error(err))
		a.SessionError(domain.ErrorCodeStartup, err.Error())
		return
	}

	a.services = services
	a.controller = services.Controller

	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	go services.Loop.Run(runCtx)
	services.Loop.Post(func() { a.controller.Boot(runCtx) })
}

func (a *App) shutdown(ctx context.Context) {
	if a.controller != nil {
		if err := a.services.Loop.Do(ctx, a.controller.Close); err != nil {
			logging.Logger.Warn("controller close failed", zap.Error(err))
		}
	}
	if a.cancel != nil {
		a.cancel()
	}
	a.services.Close()
	logging.Sync()
}

// Reconnect starts a new session after a disconnect or failure. It reports
// whether an attempt was made.
func (a *App) Reconnect() (bool, error) {
	if err := a.requireReady(); err != nil {
		return false, err
	}
	var started bool
	err := a.onLoop(func() { started = a.controller.Reconnect(a.ctx) })
	return started, err
}

// GetStatus returns the current session status.
func (a *App) GetStatus() domain.Status {
	if a.controller == nil {
		if a.bootErr != nil {
			return domain.Status{State: domain.SessionStateError, Message: a.bootErr.Error()}
		}
		return domain.Status{State: domain.SessionStateIdle}
	}
	var status domain.Status
	if err := a.onLoop(func() { status = a.controller.Status() }); err != nil {
		return domain.Status{State: domain.SessionStateError, Message: err.Error()}
	}
	return status
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	if a.bootErr != nil {
		return map[string]string{"error": a.bootErr.Error()}
	}

	cfg := a.services.Config
	return map[string]string{
		"profile":          string(a.services.Profile),
		"credentials":      cfg.Credentials.BaseURL,
		"audioBackend":     cfg.Audio.Backend,
		"audioInput":       cfg.Audio.InputDevice,
		"audioInputFormat": cfg.Audio.InputFormat,
		"script":           cfg.Provider.ScriptPath,
	}
}

// SetViewport resizes the visualization.
func (a *App) SetViewport(width, height int) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.onLoop(func() { a.controller.SetViewport(width, height) })
}

// Snapshot returns the latest frame as a PNG data URL.
func (a *App) Snapshot() (string, error) {
	if err := a.requireReady(); err != nil {
		return "", err
	}
	var (
		frame render.Frame
		ok    bool
	)
	if err := a.onLoop(func() { frame, ok = a.controller.LastFrame() }); err != nil {
		return "", err
	}
	if !ok {
		return "", errNoFrame
	}
	return raster.DataURL(frame)
}

// CopyTranscript copies the conversation so far to the clipboard.
func (a *App) CopyTranscript() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	var copyErr error
	if err := a.onLoop(func() { copyErr = a.controller.CopyTranscript(a.ctx) }); err != nil {
		return err
	}
	return copyErr
}

func (a *App) onLoop(fn func()) error {
	return a.services.Loop.Do(a.ctx, fn)
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.controller == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

func (a *App) emit(name string, data any) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, name, data)
}

// SessionStateChanged emits session lifecycle updates to the frontend.
func (a *App) SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason) {
	a.emit(eventSession, map[string]string{
		"state":   string(state),
		"reason":  string(reason),
		"message": sessionReasonMessage(reason),
	})
}

// SessionError emits backend errors to the UI.
func (a *App) SessionError(code domain.ErrorCode, detail string) {
	a.emit(eventError, map[string]string{
		"code":    string(code),
		"message": errorMessage(code, detail),
		"detail":  detail,
	})
}

func (a *App) Subtitle(text string) {
	a.emit(eventSubtitle, map[string]string{"text": text})
}

// Notice shows a status in the subtitle line.
func (a *App) Notice(notice domain.Notice, detail string) {
	a.emit(eventNotice, map[string]string{
		"code": string(notice),
		"text": noticeMessage(notice, detail),
	})
}

func (a *App) ListPanel(panel domain.ListPanel) {
	a.emit(eventListPanel, panel)
}

func (a *App) HideListPanel() {
	a.emit(eventListHide, nil)
}

func (a *App) ReconnectControl(visible bool) {
	a.emit(eventReconnect, map[string]bool{"visible": visible})
}

func (a *App) SpeechStateChanged(state domain.SpeechState) {
	a.emit(eventSpeech, map[string]string{"state": string(state)})
}

func (a *App) EndOfUtterance() {
	a.emit(eventUtterance, nil)
}

func (a *App) Frame(frame render.Frame) {
	a.emit(eventFrame, frame)
}

func (a *App) Loader(visible bool) {
	a.emit(eventLoader, map[string]bool{"visible": visible})
}

func (a *App) LoaderFrame(frame render.LoaderFrame) {
	a.emit(eventLoaderFrame, frame)
}

func (a *App) Badge(badge domain.Badge) {
	a.emit(eventBadge, badge)
}

func sessionReasonMessage(reason domain.SessionStateReason) string {
	switch reason {
	case domain.SessionReasonBooting:
		return "Starting up"
	case domain.SessionReasonFetchingCredential:
		return "Connecting..."
	case domain.SessionReasonAgentConnected:
		return "Agent connected"
	case domain.SessionReasonAgentDisconnected:
		return "Agent disconnected"
	case domain.SessionReasonCredentialFailed:
		return "Could not get session credentials"
	case domain.SessionReasonSessionFailed:
		return "Could not start the conversation"
	case domain.SessionReasonSessionError:
		return "Conversation error"
	case domain.SessionReasonMicrophoneFailed:
		return "Microphone unavailable"
	case domain.SessionReasonSettled:
		return "Ready to reconnect"
	case domain.SessionReasonClosed:
		return "Closed"
	default:
		return ""
	}
}

func errorMessage(code domain.ErrorCode, detail string) string {
	switch code {
	case domain.ErrorCodeStartup:
		return "Startup failed"
	case domain.ErrorCodeAudioStream:
		return "Audio streaming issue"
	case domain.ErrorCodeSession:
		return "Voice session error"
	case domain.ErrorCodeClip:
		return "Notification sound failed"
	case domain.ErrorCodeClipboard:
		return "Clipboard write failed"
	default:
		if detail == "" {
			return "Unknown error"
		}
		return detail
	}
}

// noticeMessage renders a notice as the bracketed status line. A detail on
// error_occurred replaces the generic text.
func noticeMessage(notice domain.Notice, detail string) string {
	switch notice {
	case domain.NoticeMicPermissionDenied:
		return "[microphone permission denied]"
	case domain.NoticeNoInputSource:
		return "[no input audio source detected]"
	case domain.NoticeMicBusy:
		return "[microphone is in use or unavailable]"
	case domain.NoticeMicOverconstrained:
		return "[audio constraints not satisfied]"
	case domain.NoticeMicAborted:
		return "[audio capture aborted]"
	case domain.NoticeMicInsecure:
		return "[secure context required for microphone]"
	case domain.NoticeMicInvalidConstraints:
		return "[invalid audio constraints]"
	case domain.NoticeMicUnknown:
		return "[cannot access microphone]"
	case domain.NoticeNoMicrophone:
		return "[no microphone detected]"
	case domain.NoticeMediaUnavailable:
		return "[media devices API unavailable]"
	case domain.NoticeAudioUnsupported:
		return "[audio not supported]"
	case domain.NoticeVoiceServiceUnavailable:
		return "[unable to connect to voice service]"
	case domain.NoticeWebsocketUnavailable:
		return "[unable to connect to websocket service]"
	case domain.NoticeErrorOccurred:
		if detail != "" {
			return "[" + detail + "]"
		}
		return "[error occurred]"
	case domain.NoticeAgentDisconnected:
		return "[agent disconnected]"
	default:
		return ""
	}
}

type wailsClipboard struct{}

func (c *wailsClipboard) SetText(ctx context.Context, text string) error {
	return runtime.ClipboardSetText(ctx, text)
}

type wailsBrowser struct {
	app *App
}

func (b *wailsBrowser) OpenURL(url string) {
	if b.app.ctx == nil {
		return
	}
	runtime.BrowserOpenURL(b.app.ctx, url)
}
