package audiograph

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

const (
	MinFFTSize = 32
	MaxFFTSize = 32768
)

// AnalyserNode passes audio through unchanged while keeping the most recent
// fftSize frames for frequency analysis.
type AnalyserNode struct {
	node

	fftSize   int
	smoothing float64
	minDB     float64
	maxDB     float64

	ring     []float64
	writePos int

	fft       *fourier.FFT
	window    []float64
	windowed  []float64
	coeffs    []complex128
	smoothed  []float64
	bytes     []byte
	analyzedQ int64
}

// NewAnalyser creates an analyser with the Web Audio defaults (2048, 0.8,
// -100dB..-30dB) and registers it for automatic pulling.
func (c *Context) NewAnalyser() *AnalyserNode {
	a := &AnalyserNode{smoothing: 0.8, minDB: -100, maxDB: -30}
	a.init(c, a)
	a.resize(2048)
	c.mu.Lock()
	c.analysers = append(c.analysers, a)
	c.mu.Unlock()
	return a
}

func (a *AnalyserNode) resize(size int) {
	a.fftSize = size
	a.ring = make([]float64, size)
	a.writePos = 0
	a.fft = fourier.NewFFT(size)
	a.window = blackman(size)
	a.windowed = make([]float64, size)
	a.coeffs = make([]complex128, size/2+1)
	a.smoothed = make([]float64, size/2)
	a.bytes = make([]byte, size/2)
	a.analyzedQ = -1
}

// SetFFTSize changes the analysis window; size must be a power of two.
func (a *AnalyserNode) SetFFTSize(size int) error {
	if size < MinFFTSize || size > MaxFFTSize || size&(size-1) != 0 {
		return fmt.Errorf("fft size %d must be a power of two between %d and %d", size, MinFFTSize, MaxFFTSize)
	}
	a.ctx.mu.Lock()
	defer a.ctx.mu.Unlock()
	if size != a.fftSize {
		a.resize(size)
	}
	return nil
}

func (a *AnalyserNode) SetSmoothingTimeConstant(v float64) error {
	if v < 0 || v > 1 || math.IsNaN(v) {
		return fmt.Errorf("smoothing time constant %v out of range [0, 1]", v)
	}
	a.ctx.mu.Lock()
	defer a.ctx.mu.Unlock()
	a.smoothing = v
	return nil
}

func (a *AnalyserNode) SetDecibelRange(minDB, maxDB float64) error {
	if minDB >= maxDB {
		return fmt.Errorf("min decibels %v must be below max decibels %v", minDB, maxDB)
	}
	a.ctx.mu.Lock()
	defer a.ctx.mu.Unlock()
	a.minDB = minDB
	a.maxDB = maxDB
	return nil
}

func (a *AnalyserNode) FFTSize() int {
	a.ctx.mu.Lock()
	defer a.ctx.mu.Unlock()
	return a.fftSize
}

func (a *AnalyserNode) SmoothingTimeConstant() float64 {
	a.ctx.mu.Lock()
	defer a.ctx.mu.Unlock()
	return a.smoothing
}

func (a *AnalyserNode) DecibelRange() (float64, float64) {
	a.ctx.mu.Lock()
	defer a.ctx.mu.Unlock()
	return a.minDB, a.maxDB
}

// FrequencyBinCount is half the FFT size.
func (a *AnalyserNode) FrequencyBinCount() int {
	a.ctx.mu.Lock()
	defer a.ctx.mu.Unlock()
	return a.fftSize / 2
}

// GetByteFrequencyData writes the smoothed magnitude spectrum scaled onto
// 0..255 between the decibel bounds. It returns the number of bins written.
func (a *AnalyserNode) GetByteFrequencyData(dst []byte) int {
	a.ctx.mu.Lock()
	defer a.ctx.mu.Unlock()

	// Smoothing advances at most once per rendered quantum.
	if a.analyzedQ != a.ctx.quantum {
		a.analyzedQ = a.ctx.quantum
		a.analyze()
	}
	return copy(dst, a.bytes)
}

func (a *AnalyserNode) analyze() {
	n := a.fftSize
	for i := 0; i < n; i++ {
		a.windowed[i] = a.ring[(a.writePos+i)%n] * a.window[i]
	}
	a.coeffs = a.fft.Coefficients(a.coeffs, a.windowed)

	scale := 255 / (a.maxDB - a.minDB)
	for k := range a.smoothed {
		magnitude := cmplx.Abs(a.coeffs[k]) / float64(n)
		v := a.smoothing*a.smoothed[k] + (1-a.smoothing)*magnitude
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = 0
		}
		a.smoothed[k] = v

		if v <= 0 {
			a.bytes[k] = 0
			continue
		}
		scaled := (20*math.Log10(v) - a.minDB) * scale
		switch {
		case scaled < 0:
			a.bytes[k] = 0
		case scaled > 255:
			a.bytes[k] = 255
		default:
			a.bytes[k] = byte(scaled)
		}
	}
}

// Reset clears the sample history and smoothing state so the next reading
// is silence.
func (a *AnalyserNode) Reset() {
	a.ctx.mu.Lock()
	defer a.ctx.mu.Unlock()
	clear(a.ring)
	clear(a.smoothed)
	clear(a.bytes)
	a.writePos = 0
	a.analyzedQ = a.ctx.quantum
}

func (a *AnalyserNode) process(in [][]float64) [][]float64 {
	channels := float64(len(in))
	for f := 0; f < RenderQuantum; f++ {
		var sum float64
		for c := range in {
			sum += in[c][f]
		}
		a.ring[a.writePos] = sum / channels
		a.writePos = (a.writePos + 1) % a.fftSize
	}
	return in
}

func blackman(n int) []float64 {
	const (
		a0 = 0.42
		a1 = 0.5
		a2 = 0.08
	)
	w := make([]float64, n)
	for i := range w {
		x := float64(i) / float64(n)
		w[i] = a0 - a1*math.Cos(2*math.Pi*x) + a2*math.Cos(4*math.Pi*x)
	}
	return w
}
