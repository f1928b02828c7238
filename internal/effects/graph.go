// Package effects builds the per-session processing chain applied to agent
// speech: a dry path and a convolution reverb path mixed into a master gain.
package effects

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"voicefront/internal/audiograph"
	"voicefront/internal/profile"
	"voicefront/internal/reverb"
)

// Analyser decibel range used for every profile.
const (
	MinDecibels = -100
	MaxDecibels = 0
)

// Params configures one graph.
type Params struct {
	FFTSize   int
	Smoothing float64
	MinDB     float64
	MaxDB     float64

	Wet    float64
	Dry    float64
	Master float64

	Reverb reverb.Params
	// Convolve is false on the lowest tier, which keeps only the dry path.
	Convolve bool
}

// ParamsFor returns the mix for a profile. Overdrive raises the wet share.
func ParamsFor(p profile.Profile, overdrive bool) Params {
	analysis := profile.AnalysisFor(p)
	params := Params{
		FFTSize:   analysis.FFTSize,
		Smoothing: analysis.Smoothing,
		MinDB:     MinDecibels,
		MaxDB:     MaxDecibels,
		Wet:       0.3,
		Dry:       0.7,
		Master:    1.0,
		Reverb:    reverb.DefaultParams(),
		Convolve:  true,
	}
	if overdrive {
		params.Wet = 0.5
		params.Dry = 0.5
	}
	if p == profile.VeryLow {
		params.Convolve = false
		params.Wet = 0
		params.Dry = 1.0
	}
	return params
}

// Graph is the wiring between a session's analyser and its destination.
type Graph struct {
	ctx       *audiograph.Context
	analyser  *audiograph.AnalyserNode
	dry       *audiograph.GainNode
	wet       *audiograph.GainNode
	master    *audiograph.GainNode
	convolver *audiograph.ConvolverNode
	released  bool
}

// Build reroutes analyser through the effects chain into the context's
// destination. Whatever the analyser fed before is disconnected. Invalid
// reverb params fail before any routing changes; if wiring fails the
// analyser is left feeding the destination directly.
func Build(ctx *audiograph.Context, analyser *audiograph.AnalyserNode, params Params, rng reverb.Source) (*Graph, error) {
	if ctx == nil || analyser == nil {
		return nil, errors.New("effects graph needs a context and an analyser")
	}
	if err := analyser.SetFFTSize(params.FFTSize); err != nil {
		return nil, err
	}
	if err := analyser.SetSmoothingTimeConstant(params.Smoothing); err != nil {
		return nil, err
	}
	if err := analyser.SetDecibelRange(params.MinDB, params.MaxDB); err != nil {
		return nil, err
	}

	g := &Graph{
		ctx:      ctx,
		analyser: analyser,
		dry:      ctx.NewGain(params.Dry),
		master:   ctx.NewGain(params.Master),
	}
	if params.Convolve {
		impulse, err := reverb.Generate(params.Reverb, ctx.SampleRate(), rng)
		if err != nil {
			return nil, fmt.Errorf("generate impulse: %w", err)
		}
		g.convolver = ctx.NewConvolver()
		if err := g.convolver.SetBuffer(impulse.Data[:], impulse.SampleRate); err != nil {
			return nil, fmt.Errorf("set impulse: %w", err)
		}
		g.wet = ctx.NewGain(params.Wet)
	}

	analyser.Disconnect()
	if err := g.wire(); err != nil {
		g.Release()
		// Keep the agent audible without effects.
		if restoreErr := analyser.Connect(ctx.Destination()); restoreErr != nil {
			err = errors.Join(err, restoreErr)
		}
		return nil, err
	}
	return g, nil
}

func (g *Graph) wire() error {
	links := [][2]audiograph.Node{
		{g.analyser, g.dry},
		{g.dry, g.master},
	}
	if g.convolver != nil {
		links = append(links,
			[2]audiograph.Node{g.analyser, g.convolver},
			[2]audiograph.Node{g.convolver, g.wet},
			[2]audiograph.Node{g.wet, g.master},
		)
	}
	links = append(links, [2]audiograph.Node{g.master, g.ctx.Destination()})
	for _, link := range links {
		if err := link[0].Connect(link[1]); err != nil {
			return err
		}
	}
	return nil
}

// Release disconnects every node of the graph. The graph is not reusable.
func (g *Graph) Release() {
	if g == nil || g.released {
		return
	}
	g.released = true
	g.analyser.Disconnect()
	for _, n := range g.nodes() {
		n.Disconnect()
	}
}

func (g *Graph) nodes() []audiograph.Node {
	nodes := []audiograph.Node{g.dry, g.master}
	if g.convolver != nil {
		nodes = append(nodes, g.convolver, g.wet)
	}
	return nodes
}

func (g *Graph) Released() bool { return g.released }

func (g *Graph) Analyser() *audiograph.AnalyserNode { return g.analyser }

func (g *Graph) Dry() *audiograph.GainNode { return g.dry }

// Wet is nil when the graph has no reverb path.
func (g *Graph) Wet() *audiograph.GainNode { return g.wet }

func (g *Graph) Master() *audiograph.GainNode { return g.master }

// Convolver is nil when the graph has no reverb path.
func (g *Graph) Convolver() *audiograph.ConvolverNode { return g.convolver }

// Manager keeps at most one live graph.
type Manager struct {
	params Params
	rng    reverb.Source
	logger *zap.Logger

	current *Graph
}

func NewManager(params Params, rng reverb.Source, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{params: params, rng: rng, logger: logger}
}

// Rebuild releases the current graph and builds a fresh one for a session.
func (m *Manager) Rebuild(ctx *audiograph.Context, analyser *audiograph.AnalyserNode) (*Graph, error) {
	m.Release()
	g, err := Build(ctx, analyser, m.params, m.rng)
	if err != nil {
		m.logger.Warn("effects graph build failed", zap.Error(err))
		return nil, err
	}
	m.current = g
	m.logger.Debug("effects graph built",
		zap.Bool("convolve", m.params.Convolve),
		zap.Float64("wet", m.params.Wet),
		zap.Float64("dry", m.params.Dry),
	)
	return g, nil
}

// Release disconnects the current graph, if any.
func (m *Manager) Release() {
	if m.current == nil {
		return
	}
	m.current.Release()
	m.current = nil
}

// Current returns the live graph or nil.
func (m *Manager) Current() *Graph { return m.current }

func (m *Manager) Params() Params { return m.params }
