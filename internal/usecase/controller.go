package usecase

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"voicefront/internal/audiograph"
	"voicefront/internal/dayphase"
	"voicefront/internal/devices"
	"voicefront/internal/domain"
	"voicefront/internal/effects"
	"voicefront/internal/logging"
	"voicefront/internal/ports"
	"voicefront/internal/profile"
	"voicefront/internal/render"
	"voicefront/internal/reverb"
	"voicefront/internal/sched"
	"voicefront/internal/speech"
	"voicefront/internal/subtitle"
)

// OpenLinkTool is the client tool name the agent uses to open URLs.
const OpenLinkTool = "open_link"

// wsToken matches a standalone "ws" word in an error message.
var wsToken = regexp.MustCompile(`\bws\b`)

// Cues are the notification clip sources.
type Cues struct {
	Join  string
	Leave string
	Error string
}

// Config controls the conversation front-end.
type Config struct {
	Profile         profile.Profile
	Overdrive       bool
	Audio           ports.AudioConfig
	ChunkSize       int
	Speech          speech.Params
	RenderInterval  time.Duration
	SubtitlePerChar time.Duration
	Cues            Cues
	NoiseSeed       int64
}

// Deps are the collaborators the controller drives.
type Deps struct {
	Scheduler   sched.Scheduler
	Devices     ports.DeviceLister
	Capture     ports.AudioCapture
	Credentials ports.CredentialSource
	Provider    ports.ConversationProvider
	Cues        ports.CuePlayer
	Links       ports.LinkOpener
	Clipboard   ports.Clipboard
	Events      ports.EventSink
	// Random seeds reverb impulses. Nil uses math/rand.
	Random reverb.Source
	Logger *zap.Logger
}

// SessionController runs the conversation lifecycle. Every method except
// the constructor must be called on the scheduler's loop.
type SessionController struct {
	sched     sched.Scheduler
	deps      Deps
	cfg       Config
	logger    *zap.Logger
	state     *SessionContext
	finalizer transcriptFinalizer

	micGraph    *audiograph.Context
	micSource   *audiograph.SourceNode
	micAnalyser *audiograph.AnalyserNode

	detector   *speech.Detector
	loop       *render.Loop
	loader     *render.Loader
	badge      *render.Badge
	subtitles  *subtitle.Queue
	effects    *effects.Manager
	transcript *transcriptAggregator

	capture  ports.AudioSession
	pumpDone chan struct{}

	session    ports.ConversationSession
	generation int
	cancel     context.CancelFunc
	booted     bool
	closed     bool
}

func NewSessionController(deps Deps, cfg Config) (*SessionController, error) {
	if deps.Scheduler == nil || deps.Events == nil {
		return nil, errors.New("scheduler and event sink are required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if cfg.Profile == "" {
		cfg.Profile = profile.Standard
	}
	if cfg.Audio.SampleRate <= 0 {
		cfg.Audio.SampleRate = 48000
	}
	if cfg.Audio.Channels <= 0 {
		cfg.Audio.Channels = 1
	}
	if cfg.ChunkSize < 256 {
		cfg.ChunkSize = 4096
	}

	c := &SessionController{
		sched:      deps.Scheduler,
		deps:       deps,
		cfg:        cfg,
		logger:     deps.Logger,
		state:      newSessionContext(cfg.Profile),
		finalizer:  newTranscriptFinalizer(deps.Clipboard, deps.Events),
		transcript: newTranscriptAggregator(),
	}

	analysis := profile.AnalysisFor(cfg.Profile)
	c.micGraph = audiograph.NewContext(cfg.Audio.SampleRate)
	c.micSource = c.micGraph.NewSource()
	c.micAnalyser = c.micGraph.NewAnalyser()
	if err := c.micAnalyser.SetFFTSize(analysis.FFTSize); err != nil {
		return nil, err
	}
	if err := c.micAnalyser.SetSmoothingTimeConstant(analysis.Smoothing); err != nil {
		return nil, err
	}
	if err := c.micAnalyser.SetDecibelRange(effects.MinDecibels, effects.MaxDecibels); err != nil {
		return nil, err
	}
	if err := c.micSource.Connect(c.micAnalyser); err != nil {
		return nil, err
	}

	detector, err := speech.NewDetector(cfg.Speech, c.sched, c.state, speech.Hooks{
		OnSpeechStart:    c.onSpeechStart,
		OnEndOfUtterance: c.onEndOfUtterance,
	}, c.logger.Named("speech"))
	if err != nil {
		return nil, err
	}
	c.detector = detector

	noise := render.NewNoise(cfg.NoiseSeed)
	phases := &render.Phases{}
	c.loader = render.NewLoader(c.sched, noise, phases, deps.Events, cfg.RenderInterval)
	c.badge = render.NewBadge(c.sched, deps.Events, c.state, cfg.Profile.UsesBadge())
	if !cfg.Profile.UsesBadge() {
		c.loop = render.NewLoop(c.sched, render.Config{
			Interval:        cfg.RenderInterval,
			Render:          profile.RenderFor(cfg.Profile),
			Bins:            c.micAnalyser.FrequencyBinCount(),
			SpeechThreshold: cfg.Speech.SpeechOn,
		}, c.state, c.micAnalyser, c.detector, noise, phases, deps.Events, c.logger.Named("render"))
		c.loop.OnFirstFrame(c.loader.Dismiss)
	}
	c.subtitles = subtitle.NewQueue(c.sched, deps.Events, cfg.SubtitlePerChar)
	c.effects = effects.NewManager(effects.ParamsFor(cfg.Profile, cfg.Overdrive), deps.Random, c.logger.Named("effects"))

	return c, nil
}

// Boot acquires the microphone, starts the visual and opens the first
// session. It runs once.
func (c *SessionController) Boot(ctx context.Context) {
	if c.booted || c.closed {
		return
	}
	c.booted = true
	c.setState(domain.SessionStateIdle, domain.SessionReasonBooting)
	if c.badge.Enabled() {
		c.badge.Set(domain.BadgeLoading)
	} else {
		c.loader.Show()
	}

	if c.deps.Capture == nil || c.deps.Devices == nil {
		c.micFailed(domain.NoticeMediaUnavailable, errors.New("audio capture is not available"))
		return
	}

	lister, capture, audioCfg := c.deps.Devices, c.deps.Capture, c.cfg.Audio
	c.sched.Go(func() {
		res := acquireMicrophone(ctx, lister, capture, audioCfg)
		c.sched.Post(func() { c.micAcquired(ctx, res) })
	})
}

type micResult struct {
	device  domain.Device
	session ports.AudioSession
	notice  domain.Notice
	err     error
}

func acquireMicrophone(ctx context.Context, lister ports.DeviceLister, capture ports.AudioCapture, cfg ports.AudioConfig) micResult {
	list, err := lister.ListDevices(ctx)
	if err != nil {
		return micResult{notice: domain.MicErrorKindOf(err).Notice(), err: err}
	}
	device, ok := devices.Select(list, cfg.InputDevice)
	if !ok {
		return micResult{notice: domain.NoticeNoInputSource, err: errors.New("no capture devices")}
	}
	cfg.InputDevice = device.ID
	session, err := capture.Start(ctx, cfg)
	if err != nil {
		return micResult{notice: domain.MicErrorKindOf(err).Notice(), err: err}
	}
	if devices.IsStereoMix(device.Name) {
		_ = session.Stop()
		return micResult{device: device, notice: domain.NoticeNoMicrophone, err: fmt.Errorf("device %q is a loopback input", device.Name)}
	}
	return micResult{device: device, session: session}
}

func (c *SessionController) micAcquired(ctx context.Context, res micResult) {
	if c.closed {
		if res.session != nil {
			session := res.session
			c.sched.Go(func() { _ = session.Stop() })
		}
		return
	}
	if res.err != nil {
		c.micFailed(res.notice, res.err)
		return
	}

	logging.LogAudioEvent("microphone_acquired",
		zap.String("device", res.device.Name),
		zap.Int("sample_rate", c.cfg.Audio.SampleRate),
	)
	c.capture = res.session
	c.pumpDone = make(chan struct{})
	go pumpMicrophone(res.session, c.micGraph, c.micSource, c.cfg.ChunkSize, c.cfg.Audio.Channels, func(err error) {
		c.sched.Post(func() { c.captureFailed(err) })
	}, c.pumpDone)

	if c.loop != nil {
		c.loop.Start()
	}
	c.Start(ctx)
}

func (c *SessionController) micFailed(notice domain.Notice, err error) {
	c.logger.Warn("microphone unavailable", zap.String("notice", string(notice)), zap.Error(err))
	c.loader.Dismiss()
	c.badge.Set(domain.BadgeIdle)
	c.subtitles.Notice(notice, "", false, nil)
	c.setState(domain.SessionStateError, domain.SessionReasonMicrophoneFailed)
}

// captureFailed handles the microphone going away mid-session. The detector
// and mic analyser are cleared so no stale speech state survives.
func (c *SessionController) captureFailed(err error) {
	if c.closed {
		return
	}
	c.logger.Warn("audio capture stopped", zap.Error(err))
	wasSpeaking := c.detector.Speaking()
	c.detector.Reset()
	c.micAnalyser.Reset()
	if wasSpeaking {
		c.deps.Events.SpeechStateChanged(domain.SpeechIdle)
	}
	c.subtitles.Notice(domain.MicErrorKindOf(err).Notice(), "", false, nil)
	c.deps.Events.SessionError(domain.ErrorCodeAudioStream, fmt.Sprintf("audio capture error: %v", err))
}

// Start opens a conversation session for the current day phase. It is
// ignored while a session is connecting or connected.
func (c *SessionController) Start(ctx context.Context) {
	if c.closed || c.state.busy() {
		return
	}
	c.generation++
	gen := c.generation

	sessionCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.setState(domain.SessionStateConnecting, domain.SessionReasonFetchingCredential)

	phase := dayphase.At(c.sched.Now())
	callbacks := c.callbacks(gen)
	tools := map[string]ports.ClientTool{OpenLinkTool: c.openLink}
	creds, provider := c.deps.Credentials, c.deps.Provider

	c.sched.Go(func() {
		cred, err := creds.Fetch(sessionCtx, phase)
		if err != nil {
			c.sched.Post(func() { c.startFailed(gen, domain.SessionReasonCredentialFailed, err) })
			return
		}
		session, err := provider.StartSession(sessionCtx, ports.SessionConfig{
			SignedURL:    cred.SignedURL,
			SystemPrompt: cred.System,
			FirstMessage: cred.FirstMessage,
			ToolIDs:      cred.ToolIDs,
			ClientTools:  tools,
		}, callbacks)
		c.sched.Post(func() { c.sessionStarted(gen, session, err) })
	})
}

// Reconnect starts a new session after a disconnect or failure. It reports
// whether an attempt was made.
func (c *SessionController) Reconnect(ctx context.Context) bool {
	if c.closed || !c.booted || c.capture == nil || c.state.busy() {
		return false
	}
	c.deps.Events.ReconnectControl(false)
	c.Start(ctx)
	return true
}

func (c *SessionController) callbacks(gen int) ports.SessionCallbacks {
	return ports.SessionCallbacks{
		OnConnect:    func() { c.post(gen, c.onConnect) },
		OnDisconnect: func() { c.post(gen, c.onDisconnect) },
		OnError: func(reason string) {
			c.post(gen, func() { c.onError(reason) })
		},
		OnModeChange: func(mode domain.AgentMode) {
			c.post(gen, func() { c.onModeChange(mode) })
		},
		OnMessage: func(msg domain.Message) {
			c.post(gen, func() { c.onMessage(msg) })
		},
	}
}

// post queues fn on the loop unless the session that produced it is gone.
// Callbacks from one provider goroutine run in the order they were made.
func (c *SessionController) post(gen int, fn func()) {
	c.sched.Post(func() {
		if gen != c.generation || c.closed {
			return
		}
		fn()
	})
}

func (c *SessionController) sessionStarted(gen int, session ports.ConversationSession, err error) {
	if gen != c.generation || c.closed {
		if session != nil {
			c.sched.Go(func() { _ = session.End() })
		}
		return
	}
	if err != nil {
		c.startFailed(gen, domain.SessionReasonSessionFailed, err)
		return
	}

	c.session = session
	out := session.Output()
	if out.Context == nil || out.Analyser == nil {
		c.logger.Warn("session has no audio output")
		return
	}
	graph, err := c.effects.Rebuild(out.Context, out.Analyser)
	if err != nil {
		c.logger.Warn("effects disabled for session", zap.Error(err))
	}
	if c.loop != nil {
		if graph != nil {
			c.loop.SetAgentAnalyser(graph.Analyser())
		} else {
			c.loop.SetAgentAnalyser(out.Analyser)
		}
	}
}

func (c *SessionController) startFailed(gen int, reason domain.SessionStateReason, err error) {
	if gen != c.generation || c.closed {
		return
	}
	c.logger.Warn("session start failed", zap.String("reason", string(reason)), zap.Error(err))
	c.releaseSessionContext()
	c.state.connection = domain.ConnectionDisconnected

	notice := domain.NoticeVoiceServiceUnavailable
	if isTransportError(err) {
		notice = domain.NoticeWebsocketUnavailable
	}
	c.loader.Dismiss()
	c.badge.Set(domain.BadgeIdle)
	c.subtitles.Notice(notice, "", false, nil)
	c.cue(c.cfg.Cues.Error)
	c.deps.Events.ReconnectControl(true)
	c.deps.Events.SessionError(domain.ErrorCodeSession, err.Error())
	c.setState(domain.SessionStateError, reason)
}

// isTransportError reports whether err names the websocket transport.
func isTransportError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "websocket") || wsToken.MatchString(msg)
}

func (c *SessionController) onConnect() {
	c.state.connection = domain.ConnectionConnected
	c.cue(c.cfg.Cues.Join)
	c.deps.Events.ReconnectControl(false)
	c.badge.Set(domain.BadgeIdle)
	c.setState(domain.SessionStateConnected, domain.SessionReasonAgentConnected)
}

func (c *SessionController) onModeChange(mode domain.AgentMode) {
	if mode == domain.AgentModeSpeaking {
		c.state.agentTalking = true
		c.badge.Set(domain.BadgeAgent)
		return
	}
	c.state.agentTalking = false
	c.subtitles.Clear()
	c.badge.Set(domain.BadgeIdle)
}

func (c *SessionController) onMessage(msg domain.Message) {
	c.transcript.Add(msg)
	switch msg.Source {
	case domain.MessageSourceAI:
		if subtitle.IsListMessage(msg.Message) {
			if panel, ok := subtitle.ParseList(msg.Message); ok {
				c.subtitles.Clear()
				c.deps.Events.ListPanel(panel)
				return
			}
		}
		c.subtitles.Replace(msg.Message)
	case domain.MessageSourceUser:
		c.deps.Events.HideListPanel()
		c.badge.User()
	}
}

func (c *SessionController) onError(reason string) {
	c.logger.Warn("session error", zap.String("reason", reason))
	c.cue(c.cfg.Cues.Error)
	c.teardown()
	c.subtitles.Notice(domain.NoticeErrorOccurred, strings.TrimSpace(reason), true, c.settle)
	c.deps.Events.ReconnectControl(true)
	c.badge.Set(domain.BadgeIdle)
	c.deps.Events.SessionError(domain.ErrorCodeSession, reason)
	c.setState(domain.SessionStateError, domain.SessionReasonSessionError)
}

func (c *SessionController) onDisconnect() {
	c.cue(c.cfg.Cues.Leave)
	c.teardown()
	c.subtitles.Notice(domain.NoticeAgentDisconnected, "", true, c.settle)
	c.deps.Events.ReconnectControl(true)
	c.badge.Set(domain.BadgeLoading)
	c.setState(domain.SessionStateDisconnected, domain.SessionReasonAgentDisconnected)
}

// settle returns a finished session to idle once its notice has cleared.
func (c *SessionController) settle() {
	switch c.state.state {
	case domain.SessionStateDisconnected, domain.SessionStateError:
		c.setState(domain.SessionStateIdle, domain.SessionReasonSettled)
	}
}

// openLink runs on the provider's goroutine.
func (c *SessionController) openLink(args any) (any, error) {
	link, err := NormalizeLink(args)
	if err != nil {
		c.logger.Warn("open_link rejected", zap.Error(err))
		return false, err
	}
	c.logger.Info("opening link", zap.String("url", link))
	if c.deps.Links != nil {
		c.deps.Links.OpenURL(link)
	}
	c.sched.Post(func() {
		if !c.closed {
			c.cue(c.cfg.Cues.Join)
		}
	})
	return true, nil
}

func (c *SessionController) onSpeechStart() {
	c.deps.Events.HideListPanel()
	c.deps.Events.SpeechStateChanged(domain.SpeechSpeaking)
}

func (c *SessionController) onEndOfUtterance() {
	c.deps.Events.EndOfUtterance()
	c.deps.Events.SpeechStateChanged(domain.SpeechIdle)
}

// teardown drops everything tied to the current session.
func (c *SessionController) teardown() {
	c.state.agentTalking = false
	c.state.connection = domain.ConnectionDisconnected
	c.subtitles.Cancel()
	if c.loop != nil {
		c.loop.Flush()
		c.loop.SetAgentAnalyser(nil)
	} else {
		c.micAnalyser.Reset()
	}
	c.effects.Release()
	c.releaseSessionContext()

	session := c.session
	c.session = nil
	c.generation++
	if session != nil {
		c.sched.Go(func() {
			if err := session.End(); err != nil {
				c.logger.Warn("session end failed", zap.Error(err))
			}
		})
	}
}

func (c *SessionController) releaseSessionContext() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

func (c *SessionController) cue(source string) {
	if c.deps.Cues == nil || source == "" {
		return
	}
	c.deps.Cues.Cue(source)
}

func (c *SessionController) setState(state domain.SessionState, reason domain.SessionStateReason) {
	from := c.state.state
	c.state.state = state
	logging.LogSessionTransition(string(from), string(state), string(reason),
		zap.String("profile", string(c.state.profile)),
	)
	c.deps.Events.SessionStateChanged(state, reason)
}

// Close ends the session, stops the visual and releases the microphone.
func (c *SessionController) Close() {
	if c.closed {
		return
	}
	c.teardown()
	c.closed = true
	if c.loop != nil {
		c.loop.Stop()
	}
	c.loader.Dismiss()
	c.detector.Reset()

	if c.capture != nil {
		if err := c.capture.Stop(); err != nil {
			c.logger.Warn("capture stop failed", zap.Error(err))
		}
		c.capture = nil
	}
	if c.pumpDone != nil {
		<-c.pumpDone
		c.pumpDone = nil
	}
	c.micGraph.Close()
	c.setState(domain.SessionStateIdle, domain.SessionReasonClosed)
}

// Status summarizes the runtime state.
func (c *SessionController) Status() domain.Status {
	return domain.Status{
		State:        c.state.state,
		Connection:   c.state.connection,
		AgentTalking: c.state.agentTalking,
		Speaking:     c.detector.Speaking(),
		Profile:      string(c.state.profile),
		Message:      c.state.message,
	}
}

// Transcript returns the conversation so far.
func (c *SessionController) Transcript() string { return c.transcript.Text() }

// CopyTranscript puts the conversation on the clipboard.
func (c *SessionController) CopyTranscript(ctx context.Context) error {
	return c.finalizer.Copy(ctx, c.transcript.Text())
}

// SetViewport resizes the visual.
func (c *SessionController) SetViewport(width, height int) {
	if c.loop != nil {
		c.loop.SetViewport(width, height)
	}
}

// LastFrame returns the latest rendered frame. ok is false on the badge
// tier, which does not render frames.
func (c *SessionController) LastFrame() (render.Frame, bool) {
	if c.loop == nil {
		return render.Frame{}, false
	}
	return c.loop.LastFrame(), true
}

// Profile is the performance tier in effect.
func (c *SessionController) Profile() profile.Profile { return c.state.profile }
