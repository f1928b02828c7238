package audiograph

// Node is a vertex of the graph.
type Node interface {
	Context() *Context
	// Connect routes this node's output into dst.
	Connect(dst Node) error
	// Disconnect removes every outgoing connection.
	Disconnect()
	// DisconnectFrom removes the connection to dst only.
	DisconnectFrom(dst Node)
	// OutputCount reports the number of outgoing connections.
	OutputCount() int
	core() *node
}

type processor interface {
	process(in [][]float64) [][]float64
}

type node struct {
	ctx     *Context
	proc    processor
	inputs  []*node
	outputs []*node

	lastQuantum int64
	out         [][]float64
	mix         [][]float64
}

func (n *node) init(ctx *Context, proc processor) {
	n.ctx = ctx
	n.proc = proc
	n.lastQuantum = -1
}

func (n *node) core() *node { return n }

func (n *node) Context() *Context { return n.ctx }

func (n *node) Connect(dst Node) error {
	target := dst.core()
	if target.ctx != n.ctx {
		return ErrContextMismatch
	}
	n.ctx.mu.Lock()
	defer n.ctx.mu.Unlock()
	if n.ctx.closed {
		return ErrContextClosed
	}
	for _, existing := range n.outputs {
		if existing == target {
			return nil
		}
	}
	n.outputs = append(n.outputs, target)
	target.inputs = append(target.inputs, n)
	return nil
}

func (n *node) Disconnect() {
	n.ctx.mu.Lock()
	defer n.ctx.mu.Unlock()
	for _, target := range n.outputs {
		target.inputs = removeNode(target.inputs, n)
	}
	n.outputs = nil
}

func (n *node) DisconnectFrom(dst Node) {
	target := dst.core()
	n.ctx.mu.Lock()
	defer n.ctx.mu.Unlock()
	n.outputs = removeNode(n.outputs, target)
	target.inputs = removeNode(target.inputs, n)
}

func (n *node) OutputCount() int {
	n.ctx.mu.Lock()
	defer n.ctx.mu.Unlock()
	return len(n.outputs)
}

func (n *node) inputCount() int {
	n.ctx.mu.Lock()
	defer n.ctx.mu.Unlock()
	return len(n.inputs)
}

// pull renders quantum q once and caches the result for other consumers.
// Callers hold ctx.mu.
func (n *node) pull(q int64) [][]float64 {
	if n.lastQuantum == q {
		return n.out
	}
	n.lastQuantum = q
	n.out = n.proc.process(n.mixInputs(q))
	return n.out
}

// mixInputs sums all inputs, up-mixing mono into wider inputs.
func (n *node) mixInputs(q int64) [][]float64 {
	rendered := make([][][]float64, 0, len(n.inputs))
	channels := 1
	for _, in := range n.inputs {
		out := in.pull(q)
		rendered = append(rendered, out)
		if len(out) > channels {
			channels = len(out)
		}
	}

	n.mix = ensureChannels(n.mix, channels)
	for _, ch := range n.mix {
		clear(ch)
	}
	for _, out := range rendered {
		for c := 0; c < channels; c++ {
			src := out[0]
			if c < len(out) {
				src = out[c]
			}
			dst := n.mix[c]
			for f := range dst {
				dst[f] += src[f]
			}
		}
	}
	return n.mix
}

func ensureChannels(buf [][]float64, channels int) [][]float64 {
	if len(buf) == channels {
		return buf
	}
	buf = make([][]float64, channels)
	for c := range buf {
		buf[c] = make([]float64, RenderQuantum)
	}
	return buf
}

func removeNode(list []*node, target *node) []*node {
	kept := list[:0]
	for _, n := range list {
		if n != target {
			kept = append(kept, n)
		}
	}
	return kept
}

type passthrough struct{}

func (passthrough) process(in [][]float64) [][]float64 { return in }

// Destination is the context's output sink.
type Destination struct {
	node
}

// GainNode scales its input.
type GainNode struct {
	node
	gain float64
	buf  [][]float64
}

func (c *Context) NewGain(gain float64) *GainNode {
	g := &GainNode{gain: gain}
	g.init(c, g)
	return g
}

func (g *GainNode) SetGain(v float64) {
	g.ctx.mu.Lock()
	defer g.ctx.mu.Unlock()
	g.gain = v
}

func (g *GainNode) Gain() float64 {
	g.ctx.mu.Lock()
	defer g.ctx.mu.Unlock()
	return g.gain
}

func (g *GainNode) process(in [][]float64) [][]float64 {
	g.buf = ensureChannels(g.buf, len(in))
	for c := range in {
		for f, v := range in[c] {
			g.buf[c][f] = v * g.gain
		}
	}
	return g.buf
}
