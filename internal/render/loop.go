// Package render produces the audio reactive visual as display lists on a
// self rescheduling tick.
package render

import (
	"math"
	"time"

	"go.uber.org/zap"

	"voicefront/internal/profile"
	"voicefront/internal/sched"
)

const (
	DefaultInterval = 16 * time.Millisecond
	DefaultWidth    = 800
	DefaultHeight   = 600
)

// Energy meter geometry.
const (
	meterX      = 20
	meterOffset = 30
	meterWidth  = 200
	meterHeight = 15
	meterScale  = 3
)

// StateReader is the session state the loop needs each tick.
type StateReader interface {
	Connected() bool
	AgentTalking() bool
}

// Analyser is a frequency source.
type Analyser interface {
	GetByteFrequencyData(dst []byte) int
	Reset()
}

// SpeechSource is fed the mic spectrum while the user has the floor.
type SpeechSource interface {
	Process(freq []byte)
	Speaking() bool
	Energy() float64
}

// Sink receives rendered frames.
type Sink interface {
	Frame(Frame)
}

type Config struct {
	Interval time.Duration
	Render   profile.Render
	// Bins is the number of frequency bins read per tick.
	Bins int
	// SpeechThreshold positions the meter's threshold tick.
	SpeechThreshold float64
}

// Loop owns the frequency buffer and noise phases. Methods run on the
// scheduler's loop.
type Loop struct {
	sched  sched.Scheduler
	cfg    Config
	state  StateReader
	mic    Analyser
	agent  Analyser
	speech SpeechSource
	noise  Noise
	phases *Phases
	sink   Sink
	logger *zap.Logger

	freq    []byte
	width   int
	height  int
	timer   sched.Timer
	drawn   bool
	onFirst func()
	last    Frame
}

func NewLoop(
	s sched.Scheduler,
	cfg Config,
	state StateReader,
	mic Analyser,
	speech SpeechSource,
	noise Noise,
	phases *Phases,
	sink Sink,
	logger *zap.Logger,
) *Loop {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Bins <= 0 {
		cfg.Bins = 128
	}
	if phases == nil {
		phases = &Phases{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loop{
		sched:  s,
		cfg:    cfg,
		state:  state,
		mic:    mic,
		speech: speech,
		noise:  noise,
		phases: phases,
		sink:   sink,
		logger: logger,
		freq:   make([]byte, cfg.Bins),
		width:  DefaultWidth,
		height: DefaultHeight,
	}
}

// OnFirstFrame registers fn to run once after the first frame is emitted.
func (l *Loop) OnFirstFrame(fn func()) { l.onFirst = fn }

// Start begins ticking. Starting a running loop restarts its timer.
func (l *Loop) Start() {
	l.timer = sched.Stop(l.timer)
	l.tick()
}

func (l *Loop) Stop() {
	l.timer = sched.Stop(l.timer)
}

func (l *Loop) Running() bool { return l.timer != nil }

// SetAgentAnalyser switches the source used while the agent talks. Nil
// detaches it.
func (l *Loop) SetAgentAnalyser(a Analyser) { l.agent = a }

// Flush zeroes the frequency buffer and analyser history.
func (l *Loop) Flush() {
	clear(l.freq)
	if l.mic != nil {
		l.mic.Reset()
	}
	if l.agent != nil {
		l.agent.Reset()
	}
}

func (l *Loop) SetViewport(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	l.width = width
	l.height = height
}

// LastFrame is the most recently rendered frame.
func (l *Loop) LastFrame() Frame { return l.last }

// Frequencies exposes the current buffer.
func (l *Loop) Frequencies() []byte { return l.freq }

func (l *Loop) tick() {
	l.timer = nil
	l.last = l.Draw()
	l.sink.Frame(l.last)
	if !l.drawn {
		l.drawn = true
		if l.onFirst != nil {
			l.onFirst()
		}
	}
	l.timer = l.sched.AfterFunc(l.cfg.Interval, l.tick)
}

// Draw advances the phases by one tick and builds a frame.
func (l *Loop) Draw() Frame {
	rc := l.cfg.Render
	connected := l.state.Connected()
	talking := l.state.AgentTalking()

	rotSeed := 10.0
	if !connected {
		l.phases.Noise += 512.0 / 100000
		l.phases.Rotation += 512.0 / 300000
		rotSeed = 5
	} else {
		speed := sum(l.freq)
		l.phases.Noise += speed / 1000000
		l.phases.Rotation += speed / 3000000
		l.sample(talking)
	}

	w, h := float64(l.width), float64(l.height)
	hue := rc.HueStart + l.phases.Noise*rc.ColorSpeed
	frame := Frame{
		Width:  l.width,
		Height: l.height,
		Background: Gradient{
			Top:    HSL(hue, 35, 10),
			Bottom: HSL(hue, 75, 5),
		},
		Glow: rc.Glow,
	}

	rotate := l.noise.Rotation(rotSeed, l.phases.Rotation)
	points := int(math.Round(float64(len(l.freq)) - float64(len(l.freq))/3))
	if points <= 0 {
		return frame
	}
	total := sum(l.freq)
	base := rc.CircleRadius + (total/4)/float64(points)

	speakingHue := 35.0
	if l.speech != nil && l.speech.Speaking() {
		speakingHue = 230
	}

	frame.Segments = make([]Segment, 0, 2*points)
	avg := 0.0
	for i := 0; i < points; i++ {
		avg += float64(l.freq[i])
		avg /= float64(points)

		angle := -math.Pi/2 + 2*math.Pi*float64(i)/float64(points) + rotate
		cos, sin := math.Cos(angle), math.Sin(angle)
		r2 := base + avg*rc.Multiplier
		r3 := base + math.Pow(avg*rc.Multiplier*rc.Coef, 2)

		y1 := h/2 + base*sin
		jitter := l.noise.Jitter(y1/100, l.phases.Noise) * 10
		p1 := Point{X: w/2 + base*cos + jitter, Y: y1 + jitter}
		p2 := Point{X: w/2 + r2*cos + jitter, Y: h/2 + r2*sin + jitter}
		p3 := Point{X: w/2 + r3*cos + jitter, Y: h/2 + r3*sin + jitter}

		lift := math.Pow(avg*3, 2)
		inner := HSL(speakingHue, 10, 10+lift)
		if talking {
			inner = HSL(128, 50, 20+lift)
		}
		var outer Color
		switch {
		case !connected:
			outer = HSL(180, 20, 30+lift)
		case talking:
			outer = HSL(128, 50, 30+lift)
		default:
			outer = HSL(speakingHue, 50, 50+lift)
		}

		frame.Segments = append(frame.Segments,
			Segment{From: p1, To: p2, Width: 1, Color: inner},
			Segment{From: p1, To: p3, Width: 4, Color: outer},
		)
	}

	if !talking {
		frame.Meter = l.meter(h)
	}
	return frame
}

func (l *Loop) sample(talking bool) {
	if talking {
		if l.agent != nil {
			l.agent.GetByteFrequencyData(l.freq)
		} else {
			clear(l.freq)
		}
		return
	}
	if l.mic != nil {
		l.mic.GetByteFrequencyData(l.freq)
	}
	if l.speech != nil {
		l.speech.Process(l.freq)
	}
}

func (l *Loop) meter(h float64) *Meter {
	energy, speaking := 0.0, false
	if l.speech != nil {
		energy = l.speech.Energy()
		speaking = l.speech.Speaking()
	}
	fill := RGBA(235, 235, 235, 0.3)
	if speaking {
		fill = RGBA(200, 32, 16, 0.5)
	}
	top := h - meterOffset
	tick := meterX + l.cfg.SpeechThreshold*meterScale
	return &Meter{
		Fill:         Rect{X: meterX, Y: top, W: math.Min(energy*meterScale, meterWidth), H: meterHeight},
		FillColor:    fill,
		Outline:      Rect{X: meterX, Y: top, W: meterWidth, H: meterHeight},
		OutlineColor: RGBA(255, 255, 255, 1),
		Threshold: Segment{
			From:  Point{X: tick, Y: top},
			To:    Point{X: tick, Y: top + meterHeight},
			Width: 1,
			Color: RGBA(255, 255, 255, 0.5),
		},
		ThresholdValue: l.cfg.SpeechThreshold,
	}
}

func sum(freq []byte) float64 {
	var total float64
	for _, v := range freq {
		total += float64(v)
	}
	return total
}
