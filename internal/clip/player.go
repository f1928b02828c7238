// Package clip plays short notification cues (join, leave, error).
package clip

import (
	"context"
	"errors"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"go.uber.org/zap"

	"voicefront/internal/sched"
)

const (
	FadeStep        = 50 * time.Millisecond
	CueFadeDuration = 1500 * time.Millisecond
	DefaultTimeout  = 10 * time.Second
)

var ErrNotLoaded = errors.New("no clip loaded")

// Sink is the audio output the player mixes into.
type Sink interface {
	SampleRate() beep.SampleRate
	Play(beep.Streamer) error
	Lock()
	Unlock()
}

// Player holds one decoded clip. All methods must be called on the
// scheduler's loop.
type Player struct {
	sched   sched.Scheduler
	sink    Sink
	fetcher Fetcher
	timeout time.Duration
	logger  *zap.Logger

	buffer  *beep.Buffer
	source  string
	loadSeq int

	playID  int
	playing bool
	volume  float64
	ctrl    *beep.Ctrl
	gain    *effects.Gain

	fading     bool
	fadeTimer  sched.Timer
	fadeDone   func()
	fadeSteps  int
	fadeAmount float64
}

type Option func(*Player)

func WithFetcher(f Fetcher) Option {
	return func(p *Player) { p.fetcher = f }
}

func WithLogger(logger *zap.Logger) Option {
	return func(p *Player) { p.logger = logger }
}

func WithTimeout(d time.Duration) Option {
	return func(p *Player) { p.timeout = d }
}

func NewPlayer(s sched.Scheduler, sink Sink, opts ...Option) *Player {
	p := &Player{
		sched:   s,
		sink:    sink,
		timeout: DefaultTimeout,
		logger:  zap.NewNop(),
		volume:  1,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.fetcher == nil {
		p.fetcher = NewSourceFetcher(p.timeout)
	}
	return p
}

// Load fetches and decodes source off the loop, then swaps it in and calls
// cb on the loop. A newer Load supersedes an older one still in flight.
func (p *Player) Load(source string, cb func(error)) {
	p.loadSeq++
	seq := p.loadSeq
	rate := p.sink.SampleRate()

	p.sched.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()

		var buffer *beep.Buffer
		data, err := p.fetcher.Fetch(ctx, source)
		if err == nil {
			buffer, err = Decode(data, rate)
		}

		p.sched.Post(func() {
			if seq != p.loadSeq {
				return
			}
			if err != nil {
				p.logger.Warn("clip load failed", zap.String("source", source), zap.Error(err))
			} else {
				p.release()
				p.buffer = buffer
				p.source = source
			}
			if cb != nil {
				cb(err)
			}
		})
	})
}

func (p *Player) release() {
	p.Stop()
	p.buffer = nil
	p.source = ""
}

// Play starts the loaded clip from the beginning at full volume.
func (p *Player) Play() error {
	if p.buffer == nil {
		return ErrNotLoaded
	}
	p.Stop()

	p.playID++
	id := p.playID
	p.volume = 1
	p.gain = &effects.Gain{Streamer: p.buffer.Streamer(0, p.buffer.Len())}
	p.ctrl = &beep.Ctrl{Streamer: p.gain}

	// The callback runs on the speaker goroutine while it holds its lock.
	done := beep.Callback(func() {
		p.sched.Go(func() {
			p.sched.Post(func() { p.ended(id) })
		})
	})
	if err := p.sink.Play(beep.Seq(p.ctrl, done)); err != nil {
		p.ctrl = nil
		p.gain = nil
		return err
	}
	p.playing = true
	return nil
}

// PlaySource loads source and plays it once ready.
func (p *Player) PlaySource(source string) {
	p.Load(source, func(err error) {
		if err != nil {
			return
		}
		if err := p.Play(); err != nil {
			p.logger.Warn("clip play failed", zap.String("source", source), zap.Error(err))
		}
	})
}

// Stop halts playback. A fade in progress is cut short and its completion
// runs after the player has stopped.
func (p *Player) Stop() {
	p.fadeTimer = sched.Stop(p.fadeTimer)
	p.fading = false
	cb := p.fadeDone
	p.fadeDone = nil

	if p.ctrl != nil {
		p.sink.Lock()
		p.ctrl.Streamer = nil
		p.sink.Unlock()
		p.ctrl = nil
		p.gain = nil
	}
	p.playID++
	p.playing = false
	p.volume = 1

	if cb != nil {
		cb()
	}
}

// FadeOut ramps the volume to zero over d in fixed steps, stops, and calls
// cb. It does nothing when idle or already fading.
func (p *Player) FadeOut(d time.Duration, cb func()) {
	if !p.playing || p.fading {
		return
	}
	steps := int(d / FadeStep)
	if steps < 1 {
		steps = 1
	}
	p.fading = true
	p.fadeDone = cb
	p.fadeSteps = steps
	p.fadeAmount = p.volume / float64(steps)
	p.fadeTimer = p.sched.AfterFunc(FadeStep, p.fadeTick)
}

func (p *Player) fadeTick() {
	p.fadeTimer = nil
	p.fadeSteps--
	if p.fadeSteps <= 0 {
		p.setVolume(0)
		p.Stop()
		return
	}
	p.setVolume(p.volume - p.fadeAmount)
	p.fadeTimer = p.sched.AfterFunc(FadeStep, p.fadeTick)
}

func (p *Player) setVolume(v float64) {
	if v < 0 {
		v = 0
	}
	p.volume = v
	if p.gain == nil {
		return
	}
	p.sink.Lock()
	p.gain.Gain = v - 1
	p.sink.Unlock()
}

// ended handles the natural end of playback. A fade in progress completes.
func (p *Player) ended(id int) {
	if id != p.playID || !p.playing {
		return
	}
	if p.fading {
		p.Stop()
		return
	}
	p.ctrl = nil
	p.gain = nil
	p.playing = false
}

// Cue fades out whatever is playing before starting source.
func (p *Player) Cue(source string) {
	if p.playing {
		p.FadeOut(CueFadeDuration, func() { p.PlaySource(source) })
		return
	}
	p.PlaySource(source)
}

func (p *Player) Playing() bool { return p.playing }

func (p *Player) Fading() bool { return p.fading }

func (p *Player) Ready() bool { return p.buffer != nil }

// Volume is the current linear volume of the playing clip.
func (p *Player) Volume() float64 { return p.volume }

// Source is the location of the loaded clip.
func (p *Player) Source() string { return p.source }
