// Package mc holds the Monte Carlo machinery: injected Gaussian-vector sources, the
// single-step terminal sampler of the displaced-diffusion LMM and a correlated
// two-factor terminal sampler used as an accuracy cross-check.
package mc

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// GaussianSource produces vectors of independent standard Gaussian variates. It is an
// injected capability, never a global generator, so block-wise simulation stays
// deterministic for a given seed. Sources are consumed sequentially and are not safe
// for concurrent use.
type GaussianSource interface {
	// Draw fills dst with independent standard normal variates.
	Draw(dst []float64)
}

// NormalSource draws from a seeded standard normal distribution.
type NormalSource struct {
	dist distuv.Normal
}

// NewNormalSource returns a source seeded deterministically.
func NewNormalSource(seed uint64) *NormalSource {
	return &NormalSource{dist: distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewSource(seed)}}
}

// Draw implements GaussianSource.
func (s *NormalSource) Draw(dst []float64) {
	for i := range dst {
		dst[i] = s.dist.Rand()
	}
}
