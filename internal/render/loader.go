package render

import (
	"math"
	"time"

	"voicefront/internal/sched"
)

const (
	LoaderDots   = 90
	LoaderRadius = 80
)

// LoaderSink receives loader animation updates.
type LoaderSink interface {
	Loader(visible bool)
	LoaderFrame(LoaderFrame)
}

// Loader animates a ring of dots on the shared noise field until dismissed.
type Loader struct {
	sched    sched.Scheduler
	noise    Noise
	phases   *Phases
	sink     LoaderSink
	interval time.Duration

	active bool
	timer  sched.Timer
}

func NewLoader(s sched.Scheduler, noise Noise, phases *Phases, sink LoaderSink, interval time.Duration) *Loader {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if phases == nil {
		phases = &Phases{}
	}
	return &Loader{sched: s, noise: noise, phases: phases, sink: sink, interval: interval}
}

// Show displays the overlay and starts animating. It is a no-op when the
// loader is already visible.
func (l *Loader) Show() {
	if l.active {
		return
	}
	l.active = true
	l.sink.Loader(true)
	l.tick()
}

// Dismiss hides the overlay. Only the first call after Show has an effect.
func (l *Loader) Dismiss() {
	if !l.active {
		return
	}
	l.active = false
	l.timer = sched.Stop(l.timer)
	l.sink.Loader(false)
}

func (l *Loader) Active() bool { return l.active }

func (l *Loader) tick() {
	l.timer = nil
	if !l.active {
		return
	}
	l.sink.LoaderFrame(l.Frame())
	l.timer = l.sched.AfterFunc(l.interval, l.tick)
}

// Frame advances the shared phases and places the dots.
func (l *Loader) Frame() LoaderFrame {
	l.phases.Noise += 512.0 / 100000
	l.phases.Rotation += 512.0 / 300000
	rotate := l.noise.Rotation(5, l.phases.Rotation)

	frame := LoaderFrame{Dots: make([]Point, LoaderDots)}
	for i := range frame.Dots {
		angle := -math.Pi/2 + 2*math.Pi*float64(i)/LoaderDots + rotate
		x := math.Cos(angle) * LoaderRadius
		y := math.Sin(angle) * LoaderRadius
		offset := l.noise.Jitter(y/100, l.phases.Noise) * 10
		frame.Dots[i] = Point{X: x + offset, Y: y + offset}
	}
	return frame
}
