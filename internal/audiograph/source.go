package audiograph

// SourceNode plays mono PCM pushed from outside the render thread. It emits
// silence on underrun.
type SourceNode struct {
	node
	queue []float64
	buf   [][]float64
}

func (c *Context) NewSource() *SourceNode {
	s := &SourceNode{}
	s.init(c, s)
	return s
}

// Push appends samples in [-1, 1].
func (s *SourceNode) Push(samples []float64) {
	s.ctx.mu.Lock()
	defer s.ctx.mu.Unlock()
	if s.ctx.closed {
		return
	}
	s.queue = append(s.queue, samples...)
}

// Buffered reports how many frames are waiting to be rendered.
func (s *SourceNode) Buffered() int {
	s.ctx.mu.Lock()
	defer s.ctx.mu.Unlock()
	return len(s.queue)
}

// Clear drops queued frames.
func (s *SourceNode) Clear() {
	s.ctx.mu.Lock()
	defer s.ctx.mu.Unlock()
	s.queue = s.queue[:0]
}

func (s *SourceNode) process(_ [][]float64) [][]float64 {
	s.buf = ensureChannels(s.buf, 1)
	out := s.buf[0]
	n := copy(out, s.queue)
	clear(out[n:])
	if n == len(s.queue) {
		s.queue = s.queue[:0]
	} else {
		s.queue = append(s.queue[:0], s.queue[n:]...)
	}
	return s.buf
}
