// Package audiograph is a small pull-based audio node graph modelled on the
// Web Audio API: nodes are processed in fixed render quanta, fan-out nodes are
// processed once per quantum, and a context renders its destination either
// for a beep speaker or on the capture clock.
package audiograph

import (
	"errors"
	"sync"

	"github.com/gopxl/beep/v2"
)

// RenderQuantum is the number of frames processed per graph pull.
const RenderQuantum = 128

var (
	ErrContextMismatch = errors.New("nodes belong to different audio contexts")
	ErrContextClosed   = errors.New("audio context is closed")
)

// Context owns a node graph and its render clock.
type Context struct {
	mu         sync.Mutex
	sampleRate int
	quantum    int64
	closed     bool

	destination *Destination
	analysers   []*AnalyserNode

	// leftover frames of the last rendered quantum, for the speaker streamer
	frame    [RenderQuantum][2]float64
	framePos int

	pendingFrames int
}

func NewContext(sampleRate int) *Context {
	if sampleRate <= 0 {
		sampleRate = 44100
	}
	c := &Context{sampleRate: sampleRate, framePos: RenderQuantum}
	c.destination = &Destination{}
	c.destination.init(c, passthrough{})
	return c
}

func (c *Context) SampleRate() int { return c.sampleRate }

// Destination is the graph's sink.
func (c *Context) Destination() *Destination { return c.destination }

// CurrentFrame is the number of frames rendered so far.
func (c *Context) CurrentFrame() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.quantum * RenderQuantum
}

// Close stops rendering. A closed context streams nothing and its streamer
// reports completion so the speaker drops it.
func (c *Context) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *Context) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Advance renders frames on behalf of a capture clock, discarding the
// destination output. Partial quanta carry over to the next call.
func (c *Context) Advance(frames int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || frames <= 0 {
		return
	}
	c.pendingFrames += frames
	for c.pendingFrames >= RenderQuantum {
		c.renderQuantumLocked()
		c.pendingFrames -= RenderQuantum
	}
}

// Streamer exposes the destination as a stereo beep.Streamer.
func (c *Context) Streamer() beep.Streamer {
	return contextStreamer{ctx: c}
}

func (c *Context) renderQuantumLocked() [][]float64 {
	q := c.quantum
	c.quantum++
	out := c.destination.pull(q)
	for _, a := range c.analysers {
		a.pull(q)
	}
	return out
}

type contextStreamer struct {
	ctx *Context
}

func (s contextStreamer) Stream(samples [][2]float64) (int, bool) {
	c := s.ctx
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, false
	}
	for i := range samples {
		if c.framePos >= RenderQuantum {
			out := c.renderQuantumLocked()
			left, right := out[0], out[0]
			if len(out) > 1 {
				right = out[1]
			}
			for f := 0; f < RenderQuantum; f++ {
				c.frame[f] = [2]float64{left[f], right[f]}
			}
			c.framePos = 0
		}
		samples[i] = c.frame[c.framePos]
		c.framePos++
	}
	return len(samples), true
}

func (s contextStreamer) Err() error { return nil }
