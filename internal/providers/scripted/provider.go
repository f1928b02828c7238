package scripted

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/youpy/go-wav"
	"go.uber.org/zap"

	"voicefront/internal/audiograph"
	"voicefront/internal/domain"
	"voicefront/internal/ports"
)

// speechPerChar paces the synthetic voice under a first message.
const speechPerChar = 45 * time.Millisecond

// Output plays the agent's audio graph.
type Output interface {
	Play(st beep.Streamer) error
}

// Provider implements ports.ConversationProvider by replaying a Script.
type Provider struct {
	script     Script
	out        Output
	sampleRate int
	logger     *zap.Logger
}

func NewProvider(script Script, out Output, sampleRate int, logger *zap.Logger) *Provider {
	if sampleRate <= 0 {
		sampleRate = 44100
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{script: script, out: out, sampleRate: sampleRate, logger: logger}
}

func (p *Provider) StartSession(ctx context.Context, cfg ports.SessionConfig, callbacks ports.SessionCallbacks) (ports.ConversationSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.SignedURL) == "" {
		return nil, errors.New("signed url is required")
	}
	if p.script.FailConnect != "" {
		return nil, fmt.Errorf("failed to connect to conversation websocket: %s", p.script.FailConnect)
	}

	rate := cfg.SampleRate
	if rate <= 0 {
		rate = p.sampleRate
	}
	graph := audiograph.NewContext(rate)
	source := graph.NewSource()
	analyser := graph.NewAnalyser()
	if err := source.Connect(analyser); err != nil {
		graph.Close()
		return nil, fmt.Errorf("wire agent output: %w", err)
	}
	if err := analyser.Connect(graph.Destination()); err != nil {
		graph.Close()
		return nil, fmt.Errorf("wire agent output: %w", err)
	}
	if p.out != nil {
		if err := p.out.Play(graph.Streamer()); err != nil {
			graph.Close()
			return nil, fmt.Errorf("start agent playback: %w", err)
		}
	}

	s := &session{
		script:    p.script,
		cfg:       cfg,
		callbacks: callbacks,
		graph:     graph,
		source:    source,
		analyser:  analyser,
		logger:    p.logger,
		done:      make(chan struct{}),
	}

	p.logger.Info("scripted session started",
		zap.Int("turns", len(p.script.Turns)),
		zap.Int("system_prompt_len", len(cfg.SystemPrompt)),
		zap.Strings("tool_ids", cfg.ToolIDs),
	)

	go s.run()
	go func() {
		select {
		case <-ctx.Done():
			_ = s.End()
		case <-s.done:
		}
	}()
	return s, nil
}

type session struct {
	script    Script
	cfg       ports.SessionConfig
	callbacks ports.SessionCallbacks
	graph     *audiograph.Context
	source    *audiograph.SourceNode
	analyser  *audiograph.AnalyserNode
	logger    *zap.Logger

	done    chan struct{}
	endOnce sync.Once
}

func (s *session) Output() ports.SessionOutput {
	return ports.SessionOutput{Context: s.graph, Analyser: s.analyser}
}

// End stops the script and silences the output. It is safe to call more
// than once and from inside a callback.
func (s *session) End() error {
	s.endOnce.Do(func() {
		close(s.done)
		s.graph.Close()
		s.logger.Info("scripted session ended")
	})
	return nil
}

func (s *session) run() {
	if !s.wait(s.script.ConnectDelay) {
		return
	}
	s.connect()

	if first := strings.TrimSpace(s.cfg.FirstMessage); first != "" {
		s.mode(domain.AgentModeSpeaking)
		s.message(domain.MessageSourceAI, first)
		d := time.Duration(len(first)) * speechPerChar
		s.source.Push(voice(s.graph.SampleRate(), d))
		if !s.wait(d) {
			return
		}
		s.mode(domain.AgentModeListening)
	}

	for i, turn := range s.script.Turns {
		if !s.wait(turn.After) {
			return
		}
		if !s.play(i, turn) {
			return
		}
	}
}

// play applies one turn and reports whether the script continues.
func (s *session) play(index int, turn Turn) bool {
	if turn.Mode != "" {
		s.mode(domain.AgentMode(turn.Mode))
	}
	if turn.Message != "" {
		source := domain.MessageSourceAI
		if turn.Source == string(domain.MessageSourceUser) {
			source = domain.MessageSourceUser
		}
		s.message(source, turn.Message)
	}
	if turn.Audio != "" {
		samples, err := loadWAV(s.script.resolve(turn.Audio), s.graph.SampleRate())
		if err != nil {
			s.logger.Warn("scripted audio unavailable", zap.Int("turn", index), zap.Error(err))
		} else {
			s.source.Push(samples)
			if !s.wait(frames(len(samples), s.graph.SampleRate())) {
				return false
			}
		}
	}
	if turn.Tone != nil {
		samples := tone(s.graph.SampleRate(), *turn.Tone)
		s.source.Push(samples)
		if !s.wait(turn.Tone.Duration) {
			return false
		}
	}
	if turn.Tool != nil {
		s.invoke(*turn.Tool)
	}
	if turn.Error != "" {
		if fn := s.callbacks.OnError; fn != nil && !s.ended() {
			fn(turn.Error)
		}
		return false
	}
	if turn.Disconnect {
		if fn := s.callbacks.OnDisconnect; fn != nil && !s.ended() {
			fn()
		}
		return false
	}
	return true
}

func (s *session) connect() {
	if fn := s.callbacks.OnConnect; fn != nil && !s.ended() {
		fn()
	}
}

func (s *session) mode(mode domain.AgentMode) {
	if fn := s.callbacks.OnModeChange; fn != nil && !s.ended() {
		fn(mode)
	}
}

func (s *session) message(source domain.MessageSource, text string) {
	if fn := s.callbacks.OnMessage; fn != nil && !s.ended() {
		fn(domain.Message{Source: source, Message: text})
	}
}

func (s *session) invoke(call ToolCall) {
	tool, ok := s.cfg.ClientTools[call.Name]
	if !ok {
		s.logger.Warn("client tool not registered", zap.String("tool", call.Name))
		return
	}
	result, err := tool(call.Args)
	if err != nil {
		s.logger.Warn("client tool failed", zap.String("tool", call.Name), zap.Error(err))
		return
	}
	s.logger.Debug("client tool returned", zap.String("tool", call.Name), zap.Any("result", result))
}

func (s *session) ended() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// wait sleeps for d and reports false when the session ended first.
func (s *session) wait(d time.Duration) bool {
	if d <= 0 {
		return !s.ended()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-s.done:
		return false
	}
}

func frames(n, rate int) time.Duration {
	return time.Duration(n) * time.Second / time.Duration(rate)
}

func tone(rate int, t Tone) []float64 {
	amplitude := t.Amplitude
	if amplitude <= 0 || amplitude > 1 {
		amplitude = 0.2
	}
	n := int(t.Duration.Seconds() * float64(rate))
	out := make([]float64, n)
	for i := range out {
		out[i] = amplitude * math.Sin(2*math.Pi*t.Frequency*float64(i)/float64(rate))
	}
	return out
}

// voice is a tone with a syllable-rate envelope.
func voice(rate int, d time.Duration) []float64 {
	samples := tone(rate, Tone{Frequency: 180, Duration: d, Amplitude: 0.25})
	for i := range samples {
		env := 0.5 + 0.5*math.Sin(2*math.Pi*4*float64(i)/float64(rate))
		samples[i] *= env
	}
	return samples
}

// loadWAV decodes a WAV file into mono samples at rate.
func loadWAV(path string, rate int) ([]float64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open wav: %w", err)
	}
	defer file.Close()

	reader := wav.NewReader(file)
	format, err := reader.Format()
	if err != nil {
		return nil, fmt.Errorf("read wav format: %w", err)
	}
	channels := uint(format.NumChannels)
	if channels == 0 {
		return nil, errors.New("wav has no channels")
	}

	var mono []float64
	for {
		samples, err := reader.ReadSamples(4096)
		for _, sample := range samples {
			var sum float64
			for c := uint(0); c < channels; c++ {
				sum += reader.FloatValue(sample, c)
			}
			mono = append(mono, sum/float64(channels))
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read wav samples: %w", err)
		}
	}

	from := int(format.SampleRate)
	if from == rate || from <= 0 {
		return mono, nil
	}
	return resample(mono, from, rate), nil
}

func resample(samples []float64, from, to int) []float64 {
	st := beep.Resample(4, beep.SampleRate(from), beep.SampleRate(to), &monoStreamer{samples: samples})
	out := make([]float64, 0, len(samples)*to/from+1)
	buf := make([][2]float64, 512)
	for {
		n, ok := st.Stream(buf)
		for _, frame := range buf[:n] {
			out = append(out, frame[0])
		}
		if !ok {
			return out
		}
	}
}

type monoStreamer struct {
	samples []float64
	pos     int
}

func (m *monoStreamer) Stream(buf [][2]float64) (int, bool) {
	if m.pos >= len(m.samples) {
		return 0, false
	}
	n := 0
	for n < len(buf) && m.pos < len(m.samples) {
		v := m.samples[m.pos]
		buf[n] = [2]float64{v, v}
		n++
		m.pos++
	}
	return n, true
}

func (m *monoStreamer) Err() error { return nil }
