package audiograph

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Impulse normalization constants used by browsers so that generated
// impulses play back at a comparable loudness.
const (
	gainCalibration           = 0.00125
	gainCalibrationSampleRate = 44100.0
	minPower                  = 0.000125
)

const (
	partitionSize = RenderQuantum
	blockFFTSize  = 2 * partitionSize
	maxChannels   = 2
)

// ConvolverNode applies an impulse response with uniformly partitioned
// overlap-save FFT convolution, one partition per render quantum.
type ConvolverNode struct {
	node

	normalize bool
	kernels   [][][]complex128 // [irChannel][partition][bin]
	fdl       [maxChannels][][]complex128
	fdlPos    int
	prev      [maxChannels][]float64

	fft     *fourier.FFT
	block   []float64
	acc     []complex128
	timeOut []float64
	buf     [][]float64
}

func (c *Context) NewConvolver() *ConvolverNode {
	cv := &ConvolverNode{normalize: true, fft: fourier.NewFFT(blockFFTSize)}
	cv.init(c, cv)
	cv.block = make([]float64, blockFFTSize)
	cv.timeOut = make([]float64, blockFFTSize)
	cv.acc = make([]complex128, blockFFTSize/2+1)
	for ch := range cv.prev {
		cv.prev[ch] = make([]float64, partitionSize)
	}
	return cv
}

// SetNormalize controls loudness normalization of buffers set afterwards.
func (cv *ConvolverNode) SetNormalize(v bool) {
	cv.ctx.mu.Lock()
	defer cv.ctx.mu.Unlock()
	cv.normalize = v
}

// SetBuffer installs a one or two channel impulse response recorded at the
// context's sample rate. A nil buffer silences the node.
func (cv *ConvolverNode) SetBuffer(channels [][]float64, sampleRate int) error {
	if channels == nil {
		cv.ctx.mu.Lock()
		cv.kernels = nil
		cv.ctx.mu.Unlock()
		return nil
	}
	if len(channels) == 0 || len(channels) > maxChannels {
		return fmt.Errorf("impulse must have 1 or 2 channels, got %d", len(channels))
	}
	if sampleRate != cv.ctx.sampleRate {
		return fmt.Errorf("impulse sample rate %d does not match context rate %d", sampleRate, cv.ctx.sampleRate)
	}
	length := len(channels[0])
	if length == 0 {
		return errors.New("impulse is empty")
	}
	for _, ch := range channels {
		if len(ch) != length {
			return errors.New("impulse channels differ in length")
		}
	}

	cv.ctx.mu.Lock()
	defer cv.ctx.mu.Unlock()

	scale := 1.0
	if cv.normalize {
		scale = NormalizationScale(channels, sampleRate)
	}

	partitions := (length + partitionSize - 1) / partitionSize
	kernels := make([][][]complex128, len(channels))
	padded := make([]float64, blockFFTSize)
	for ch, data := range channels {
		kernels[ch] = make([][]complex128, partitions)
		for p := 0; p < partitions; p++ {
			clear(padded)
			start := p * partitionSize
			end := min(start+partitionSize, length)
			for i := start; i < end; i++ {
				padded[i-start] = data[i] * scale
			}
			kernels[ch][p] = cv.fft.Coefficients(nil, padded)
		}
	}

	cv.kernels = kernels
	for ch := range cv.fdl {
		cv.fdl[ch] = make([][]complex128, partitions)
		for p := range cv.fdl[ch] {
			cv.fdl[ch][p] = make([]complex128, blockFFTSize/2+1)
		}
		clear(cv.prev[ch])
	}
	cv.fdlPos = 0
	return nil
}

// NormalizationScale is the factor applied to an impulse before use.
func NormalizationScale(channels [][]float64, sampleRate int) float64 {
	var power float64
	frames := 0
	for _, ch := range channels {
		for _, v := range ch {
			power += v * v
		}
		frames += len(ch)
	}
	if frames > 0 {
		power = math.Sqrt(power / float64(frames))
	}
	if math.IsNaN(power) || math.IsInf(power, 0) || power < minPower {
		power = minPower
	}

	scale := 1 / power
	scale *= gainCalibration
	if sampleRate > 0 {
		scale *= gainCalibrationSampleRate / float64(sampleRate)
	}
	return scale
}

func (cv *ConvolverNode) process(in [][]float64) [][]float64 {
	inChannels := min(len(in), maxChannels)
	if cv.kernels == nil {
		cv.buf = ensureChannels(cv.buf, maxChannels)
		for _, ch := range cv.buf {
			clear(ch)
		}
		return cv.buf
	}

	outChannels := max(inChannels, len(cv.kernels))
	cv.buf = ensureChannels(cv.buf, outChannels)
	partitions := len(cv.kernels[0])

	// Spectrum of [previous block, current block] for each input channel.
	cv.fdlPos = (cv.fdlPos + 1) % partitions
	for ch := 0; ch < inChannels; ch++ {
		copy(cv.block[:partitionSize], cv.prev[ch])
		copy(cv.block[partitionSize:], in[ch])
		cv.fft.Coefficients(cv.fdl[ch][cv.fdlPos], cv.block)
		copy(cv.prev[ch], in[ch])
	}

	for out := 0; out < outChannels; out++ {
		src := min(out, inChannels-1)
		kernel := cv.kernels[min(out, len(cv.kernels)-1)]

		clear(cv.acc)
		for p := 0; p < partitions; p++ {
			x := cv.fdl[src][(cv.fdlPos-p+partitions)%partitions]
			h := kernel[p]
			for k := range cv.acc {
				cv.acc[k] += x[k] * h[k]
			}
		}
		cv.fft.Sequence(cv.timeOut, cv.acc)
		dst := cv.buf[out]
		for f := 0; f < partitionSize; f++ {
			dst[f] = cv.timeOut[partitionSize+f] / blockFFTSize
		}
	}
	return cv.buf
}
