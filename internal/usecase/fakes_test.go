package usecase

import (
	"context"
	"io"
	"sync"

	"voicefront/internal/audiograph"
	"voicefront/internal/dayphase"
	"voicefront/internal/domain"
	"voicefront/internal/ports"
	"voicefront/internal/render"
)

type fakeAudioSession struct {
	mu      sync.Mutex
	chunks  [][]byte
	err     error
	stopped bool
}

func (s *fakeAudioSession) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.chunks) == 0 {
		if s.err != nil {
			return 0, s.err
		}
		return 0, io.EOF
	}
	n := copy(p, s.chunks[0])
	if n == len(s.chunks[0]) {
		s.chunks = s.chunks[1:]
	} else {
		s.chunks[0] = s.chunks[0][n:]
	}
	return n, nil
}

func (s *fakeAudioSession) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	return nil
}

func (s *fakeAudioSession) Close() error { return s.Stop() }

func (s *fakeAudioSession) wasStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

type fakeAudioCapture struct {
	session ports.AudioSession
	err     error
	starts  int
}

func (c *fakeAudioCapture) Start(context.Context, ports.AudioConfig) (ports.AudioSession, error) {
	c.starts++
	if c.err != nil {
		return nil, c.err
	}
	return c.session, nil
}

type fakeDevices struct {
	list []domain.Device
	err  error
}

func (d fakeDevices) ListDevices(context.Context) ([]domain.Device, error) {
	return d.list, d.err
}

type fakeCredentials struct {
	err    error
	phases []dayphase.Phase
}

func (f *fakeCredentials) Fetch(_ context.Context, phase dayphase.Phase) (domain.Credentials, error) {
	f.phases = append(f.phases, phase)
	if f.err != nil {
		return domain.Credentials{}, f.err
	}
	return domain.Credentials{
		SignedURL:    "wss://agent.example/convai?token=1",
		System:       "be brief",
		FirstMessage: "Good " + string(phase),
	}, nil
}

type fakeConversation struct {
	graph    *audiograph.Context
	analyser *audiograph.AnalyserNode

	mu    sync.Mutex
	ended int
}

func newFakeConversation() *fakeConversation {
	graph := audiograph.NewContext(16000)
	analyser := graph.NewAnalyser()
	_ = analyser.Connect(graph.Destination())
	return &fakeConversation{graph: graph, analyser: analyser}
}

func (s *fakeConversation) Output() ports.SessionOutput {
	return ports.SessionOutput{Context: s.graph, Analyser: s.analyser}
}

func (s *fakeConversation) End() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ended++
	return nil
}

func (s *fakeConversation) endCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ended
}

type fakeProvider struct {
	mu        sync.Mutex
	err       error
	sessions  []*fakeConversation
	configs   []ports.SessionConfig
	callbacks []ports.SessionCallbacks
}

func (p *fakeProvider) StartSession(_ context.Context, cfg ports.SessionConfig, callbacks ports.SessionCallbacks) (ports.ConversationSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.configs = append(p.configs, cfg)
	p.callbacks = append(p.callbacks, callbacks)
	if p.err != nil {
		return nil, p.err
	}
	s := newFakeConversation()
	p.sessions = append(p.sessions, s)
	return s, nil
}

func (p *fakeProvider) last() ports.SessionCallbacks {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.callbacks[len(p.callbacks)-1]
}

func (p *fakeProvider) started() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sessions)
}

type fakeCues struct {
	mu      sync.Mutex
	sources []string
}

func (c *fakeCues) Cue(source string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sources = append(c.sources, source)
}

func (c *fakeCues) played() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.sources...)
}

type fakeLinks struct {
	mu   sync.Mutex
	urls []string
}

func (l *fakeLinks) OpenURL(url string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.urls = append(l.urls, url)
}

type fakeClipboard struct {
	err      error
	lastText string
}

func (c *fakeClipboard) SetText(_ context.Context, text string) error {
	if c.err != nil {
		return c.err
	}
	c.lastText = text
	return nil
}

type stateEvent struct {
	state  domain.SessionState
	reason domain.SessionStateReason
}

type noticeEvent struct {
	notice domain.Notice
	detail string
}

type errorEvent struct {
	code   domain.ErrorCode
	detail string
}

type fakeEventSink struct {
	mu        sync.Mutex
	states    []stateEvent
	errors    []errorEvent
	subtitles []string
	notices   []noticeEvent
	panels    []domain.ListPanel
	hidden    int
	reconnect []bool
	speech    []domain.SpeechState
	utterance int
	frames    int
	loader    []bool
	badges    []domain.BadgeState
}

func (s *fakeEventSink) SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = append(s.states, stateEvent{state: state, reason: reason})
}

func (s *fakeEventSink) SessionError(code domain.ErrorCode, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, errorEvent{code: code, detail: detail})
}

func (s *fakeEventSink) Subtitle(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subtitles = append(s.subtitles, text)
}

func (s *fakeEventSink) Notice(notice domain.Notice, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notices = append(s.notices, noticeEvent{notice: notice, detail: detail})
}

func (s *fakeEventSink) ListPanel(panel domain.ListPanel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.panels = append(s.panels, panel)
}

func (s *fakeEventSink) HideListPanel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hidden++
}

func (s *fakeEventSink) ReconnectControl(visible bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reconnect = append(s.reconnect, visible)
}

func (s *fakeEventSink) SpeechStateChanged(state domain.SpeechState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.speech = append(s.speech, state)
}

func (s *fakeEventSink) EndOfUtterance() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.utterance++
}

func (s *fakeEventSink) Frame(render.Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames++
}

func (s *fakeEventSink) Loader(visible bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loader = append(s.loader, visible)
}

func (s *fakeEventSink) LoaderFrame(render.LoaderFrame) {}

func (s *fakeEventSink) Badge(badge domain.Badge) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.badges = append(s.badges, badge.State)
}

func (s *fakeEventSink) lastState() stateEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.states) == 0 {
		return stateEvent{}
	}
	return s.states[len(s.states)-1]
}

func (s *fakeEventSink) lastNotice() noticeEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.notices) == 0 {
		return noticeEvent{}
	}
	return s.notices[len(s.notices)-1]
}

func (s *fakeEventSink) lastSubtitle() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.subtitles) == 0 {
		return ""
	}
	return s.subtitles[len(s.subtitles)-1]
}

func (s *fakeEventSink) lastReconnect() (bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.reconnect) == 0 {
		return false, false
	}
	return s.reconnect[len(s.reconnect)-1], true
}

func (s *fakeEventSink) lastBadge() domain.BadgeState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.badges) == 0 {
		return ""
	}
	return s.badges[len(s.badges)-1]
}

func (s *fakeEventSink) frameCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}
