// Package reverb synthesizes impulse responses for the convolution branch.
package reverb

import (
	"errors"
	"math"
	"math/rand/v2"
)

const Channels = 2

// Params shapes the generated impulse.
type Params struct {
	Duration float64 // seconds
	Decay    float64 // envelope exponent
	Reverse  bool
}

// DefaultParams is the room used for agent speech.
func DefaultParams() Params {
	return Params{Duration: 0.75, Decay: 1.25}
}

// Impulse is a two channel impulse response.
type Impulse struct {
	SampleRate int
	Data       [Channels][]float64
}

// Len is the number of frames per channel.
func (i *Impulse) Len() int {
	return len(i.Data[0])
}

// Source produces uniform values in [0, 1).
type Source interface {
	Float64() float64
}

// Generate fills a fresh impulse with exponentially decaying noise. Each
// channel gets independent noise under the same envelope.
func Generate(p Params, sampleRate int, rng Source) (*Impulse, error) {
	if sampleRate <= 0 {
		return nil, errors.New("sample rate must be positive")
	}
	if p.Duration <= 0 {
		return nil, errors.New("duration must be positive")
	}
	if p.Decay < 0 {
		return nil, errors.New("decay must not be negative")
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	length := int(math.Round(p.Duration * float64(sampleRate)))
	if length < 1 {
		length = 1
	}

	impulse := &Impulse{SampleRate: sampleRate}
	for ch := range impulse.Data {
		impulse.Data[ch] = make([]float64, length)
	}
	for i := 0; i < length; i++ {
		env := Envelope(i, length, p.Decay, p.Reverse)
		for ch := range impulse.Data {
			impulse.Data[ch][i] = (rng.Float64()*2 - 1) * env
		}
	}
	return impulse, nil
}

// Envelope is the amplitude bound applied at index i.
func Envelope(i, length int, decay float64, reverse bool) float64 {
	n := i
	if reverse {
		n = length - i
	}
	return math.Pow(1-float64(n)/float64(length), decay)
}
