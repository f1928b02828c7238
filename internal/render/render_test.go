package render

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicefront/internal/domain"
	"voicefront/internal/profile"
	"voicefront/internal/sched"
)

type flatNoise struct{}

func (flatNoise) Rotation(_, _ float64) float64 { return 0 }
func (flatNoise) Jitter(_, _ float64) float64   { return 0 }

type fakeState struct {
	connected bool
	talking   bool
}

func (s *fakeState) Connected() bool    { return s.connected }
func (s *fakeState) AgentTalking() bool { return s.talking }

type fakeAnalyser struct {
	level  byte
	reads  int
	resets int
}

func (a *fakeAnalyser) GetByteFrequencyData(dst []byte) int {
	a.reads++
	for i := range dst {
		dst[i] = a.level
	}
	return len(dst)
}

func (a *fakeAnalyser) Reset() { a.resets++ }

type fakeSpeech struct {
	processed int
	speaking  bool
	energy    float64
}

func (s *fakeSpeech) Process([]byte)  { s.processed++ }
func (s *fakeSpeech) Speaking() bool  { return s.speaking }
func (s *fakeSpeech) Energy() float64 { return s.energy }

type frameSink struct {
	frames []Frame
	loader []bool
	dots   []LoaderFrame
	badges []domain.Badge
}

func (s *frameSink) Frame(f Frame)             { s.frames = append(s.frames, f) }
func (s *frameSink) Loader(v bool)             { s.loader = append(s.loader, v) }
func (s *frameSink) LoaderFrame(f LoaderFrame) { s.dots = append(s.dots, f) }
func (s *frameSink) Badge(b domain.Badge)      { s.badges = append(s.badges, b) }

type fixture struct {
	sched  *sched.Manual
	state  *fakeState
	mic    *fakeAnalyser
	agent  *fakeAnalyser
	speech *fakeSpeech
	sink   *frameSink
	loop   *Loop
}

func newFixture() *fixture {
	f := &fixture{
		sched:  sched.NewManual(time.Unix(0, 0)),
		state:  &fakeState{},
		mic:    &fakeAnalyser{level: 30},
		agent:  &fakeAnalyser{level: 90},
		speech: &fakeSpeech{},
		sink:   &frameSink{},
	}
	cfg := Config{Render: profile.RenderFor(profile.Standard), Bins: 128, SpeechThreshold: 15}
	f.loop = NewLoop(f.sched, cfg, f.state, f.mic, f.speech, flatNoise{}, nil, f.sink, nil)
	f.loop.SetAgentAnalyser(f.agent)
	return f
}

func TestColorCSS(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "rgba(255, 0, 0, 1)", HSL(0, 100, 50).CSS())
	assert.Equal(t, "rgba(255, 0, 0, 1)", HSL(720, 100, 50).CSS())
	assert.Equal(t, "rgba(255, 255, 255, 1)", HSL(128, 50, 400).CSS(), "lightness clamps")
	assert.Equal(t, "rgba(200, 32, 16, 0.5)", RGBA(200, 32, 16, 0.5).CSS())

	raw, err := json.Marshal(struct{ C Color }{C: RGBA(1, 2, 3, 0.3)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"C":"rgba(1, 2, 3, 0.3)"}`, string(raw))

	c, err := Hex("#2a6f97")
	require.NoError(t, err)
	assert.Equal(t, "rgba(42, 111, 151, 1)", c.CSS())
}

func TestDrawDisconnected(t *testing.T) {
	t.Parallel()

	f := newFixture()
	frame := f.loop.Draw()

	assert.InDelta(t, 512.0/100000, f.loop.phases.Noise, 1e-12)
	assert.InDelta(t, 512.0/300000, f.loop.phases.Rotation, 1e-12)
	assert.Zero(t, f.mic.reads)
	assert.Zero(t, f.speech.processed)

	// 128 bins leave round(128 - 128/3) = 85 points with two strokes each.
	require.Len(t, frame.Segments, 170)
	assert.Equal(t, HSL(180, 20, 30).CSS(), frame.Segments[1].Color.CSS())
	assert.Equal(t, 4.0, frame.Segments[1].Width)
	assert.Equal(t, 1.0, frame.Segments[0].Width)
	assert.Equal(t, 12.0, frame.Glow)

	// First point sits straight above the centre at the base radius.
	assert.InDelta(t, 400, frame.Segments[0].From.X, 1e-9)
	assert.InDelta(t, 300-80, frame.Segments[0].From.Y, 1e-9)
	require.NotNil(t, frame.Meter)
}

func TestDrawConnectedSamplesMic(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.state.connected = true

	first := f.loop.Draw()
	assert.Equal(t, 1, f.mic.reads)
	assert.Equal(t, 1, f.speech.processed)
	assert.Zero(t, f.loop.phases.Noise, "noise speed uses the buffer before sampling")

	f.loop.Draw()
	sum := 30.0 * 128
	assert.InDelta(t, sum/1000000, f.loop.phases.Noise, 1e-12)
	assert.InDelta(t, sum/3000000, f.loop.phases.Rotation, 1e-12)

	base := 80 + (sum/4)/85
	assert.InDelta(t, 300-base, first.Segments[0].From.Y, 1e-9)
	assert.Equal(t, HSL(35, 50, 50+math.Pow(30.0/85*3, 2)).CSS(), first.Segments[1].Color.CSS())
}

func TestDrawAgentTalkingUsesAgentAnalyser(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.state.connected = true
	f.state.talking = true

	frame := f.loop.Draw()
	assert.Equal(t, 1, f.agent.reads)
	assert.Zero(t, f.mic.reads)
	assert.Zero(t, f.speech.processed)
	assert.Nil(t, frame.Meter)
	assert.Equal(t, byte(90), f.loop.Frequencies()[0])

	f.loop.SetAgentAnalyser(nil)
	f.loop.Draw()
	assert.Equal(t, byte(0), f.loop.Frequencies()[0])
}

func TestMeter(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.speech.energy = 40
	frame := f.loop.Draw()
	require.NotNil(t, frame.Meter)
	assert.Equal(t, 120.0, frame.Meter.Fill.W)
	assert.Equal(t, 570.0, frame.Meter.Fill.Y)
	assert.Equal(t, RGBA(235, 235, 235, 0.3).CSS(), frame.Meter.FillColor.CSS())
	assert.Equal(t, 65.0, frame.Meter.Threshold.From.X)

	f.speech.energy = 500
	f.speech.speaking = true
	frame = f.loop.Draw()
	assert.Equal(t, 200.0, frame.Meter.Fill.W)
	assert.Equal(t, RGBA(200, 32, 16, 0.5).CSS(), frame.Meter.FillColor.CSS())
	assert.Equal(t, HSL(230, 10, 10).CSS(), frame.Segments[0].Color.CSS())
}

func TestLoopTicksAndFirstFrame(t *testing.T) {
	t.Parallel()

	f := newFixture()
	first := 0
	f.loop.OnFirstFrame(func() { first++ })

	f.loop.Start()
	assert.Len(t, f.sink.frames, 1)
	assert.True(t, f.loop.Running())

	f.sched.Advance(5 * DefaultInterval)
	assert.Len(t, f.sink.frames, 6)
	assert.Equal(t, 1, first)

	f.loop.Start()
	assert.Equal(t, 1, f.sched.PendingTimers(), "restart keeps a single timer")

	f.loop.Stop()
	assert.False(t, f.loop.Running())
	f.sched.Advance(time.Second)
	assert.Len(t, f.sink.frames, 7)
}

func TestFlushAndViewport(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.state.connected = true
	f.loop.Draw()
	f.loop.Flush()

	assert.Equal(t, make([]byte, 128), f.loop.Frequencies())
	assert.Equal(t, 1, f.mic.resets)
	assert.Equal(t, 1, f.agent.resets)

	f.loop.SetViewport(1024, 768)
	f.loop.SetViewport(0, 10)
	frame := f.loop.Draw()
	assert.Equal(t, 1024, frame.Width)
	assert.Equal(t, 768, frame.Height)
}

func TestLoader(t *testing.T) {
	t.Parallel()

	m := sched.NewManual(time.Unix(0, 0))
	sink := &frameSink{}
	phases := &Phases{}
	l := NewLoader(m, flatNoise{}, phases, sink, 0)

	l.Show()
	l.Show()
	assert.Equal(t, []bool{true}, sink.loader)
	require.Len(t, sink.dots, 1)
	require.Len(t, sink.dots[0].Dots, LoaderDots)
	assert.InDelta(t, 0, sink.dots[0].Dots[0].X, 1e-9)
	assert.InDelta(t, -LoaderRadius, sink.dots[0].Dots[0].Y, 1e-9)
	assert.InDelta(t, 512.0/100000, phases.Noise, 1e-12)

	m.Advance(3 * DefaultInterval)
	assert.Len(t, sink.dots, 4)

	l.Dismiss()
	l.Dismiss()
	assert.Equal(t, []bool{true, false}, sink.loader)
	assert.Zero(t, m.PendingTimers())
	assert.False(t, l.Active())
}

func TestBadgeFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		state domain.BadgeState
		color string
		label string
	}{
		{domain.BadgeLoading, "#555555", "Loading"},
		{domain.BadgeIdle, "#2a6f97", "Idle"},
		{domain.BadgeUser, "#1b5b01", "You"},
		{domain.BadgeAgent, "#c02112", "Agent"},
	}
	for _, tt := range tests {
		b := BadgeFor(tt.state)
		assert.Equal(t, tt.color, b.Color)
		assert.Equal(t, tt.label, b.Label)
	}
}

func TestBadgeUserReverts(t *testing.T) {
	t.Parallel()

	m := sched.NewManual(time.Unix(0, 0))
	sink := &frameSink{}
	state := &fakeState{}
	b := NewBadge(m, sink, state, true)

	b.User()
	assert.Equal(t, domain.BadgeUser, b.Current())
	m.Advance(UserBadgeHold)
	assert.Equal(t, domain.BadgeIdle, b.Current())

	b.User()
	state.talking = true
	m.Advance(UserBadgeHold)
	assert.Equal(t, domain.BadgeUser, b.Current(), "no revert while the agent talks")

	b.User()
	b.Set(domain.BadgeAgent)
	m.Advance(UserBadgeHold)
	assert.Equal(t, domain.BadgeAgent, b.Current())
}

func TestDisabledBadgeIgnoresUpdates(t *testing.T) {
	t.Parallel()

	m := sched.NewManual(time.Unix(0, 0))
	sink := &frameSink{}
	b := NewBadge(m, sink, &fakeState{}, false)

	b.Set(domain.BadgeLoading)
	b.User()
	assert.Empty(t, sink.badges)
	assert.Zero(t, m.PendingTimers())
}
