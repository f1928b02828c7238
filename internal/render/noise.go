package render

import (
	"github.com/aquilax/go-perlin"
	"github.com/ojrac/opensimplex-go"
)

// Noise supplies the smooth fields that move the visual.
type Noise interface {
	// Rotation is a slowly varying angle offset.
	Rotation(seed, t float64) float64
	// Jitter is a per point displacement in [-1, 1].
	Jitter(x, t float64) float64
}

// Phases are the time coordinates advanced every tick. The loader and the
// spectrum share them so the handover is seamless.
type Phases struct {
	Noise    float64
	Rotation float64
}

type fieldNoise struct {
	perlin  *perlin.Perlin
	simplex opensimplex.Noise
}

// NewNoise builds the perlin rotation and simplex jitter fields.
func NewNoise(seed int64) Noise {
	return &fieldNoise{
		perlin:  perlin.NewPerlin(2, 2, 3, seed),
		simplex: opensimplex.New(seed),
	}
}

func (n *fieldNoise) Rotation(seed, t float64) float64 {
	return n.perlin.Noise2D(seed, t)
}

func (n *fieldNoise) Jitter(x, t float64) float64 {
	return n.simplex.Eval2(x, t)
}
