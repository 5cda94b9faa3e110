package mc

import (
	"fmt"
	"math"

	"github.com/marc-henrard/murisq-ir-models/model"
)

// DefaultBlockSize bounds the number of paths held in memory at once.
const DefaultBlockSize = 4096

// Evolution is the single-step terminal sampler of the displaced-diffusion LMM.
// Because the volatility structure is piecewise constant and its integrals are known in
// closed form, the sampler jumps directly from the valuation date to the decision date:
// no time discretization error is introduced. The engine holds no mutable state;
// identical (source seed, path count, block size) inputs reproduce identical outputs.
type Evolution struct {
	model     *model.LMM
	blockSize int
}

// NewEvolution builds a sampler over the given LMM. blockSize <= 0 selects
// DefaultBlockSize.
func NewEvolution(m *model.LMM, blockSize int) *Evolution {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	return &Evolution{model: m, blockSize: blockSize}
}

// BlockSize returns the configured block size.
func (e *Evolution) BlockSize() int { return e.blockSize }

// Evolve draws paths independent terminal discounting-curve forward vectors at the
// decision date and hands them to fn block by block (full blocks then a residual
// block). initial holds the discounting-curve forwards per period at the valuation
// date. The block slice passed to fn is reused between blocks; aggregate, don't retain.
//
// The displaced log-normal update requires 1 + accrual*forward > 0 for every period;
// violating inputs are rejected rather than clamped. The decision date must not
// exceed the first period start, past which that period's forward is expired.
func (e *Evolution) Evolve(initial []float64, decision float64, paths int, src GaussianSource, fn func(block [][]float64)) error {
	m := e.model
	n := m.PeriodCount()
	nf := m.FactorCount()
	if len(initial) != n {
		return fmt.Errorf("mc: got %d initial forwards for %d periods", len(initial), n)
	}
	if paths <= 0 {
		return fmt.Errorf("mc: path count must be positive, got %d", paths)
	}
	if decision <= 0 {
		return fmt.Errorf("mc: decision time must be positive, got %v", decision)
	}
	if start := m.PeriodTimes()[0]; decision > start {
		return fmt.Errorf("mc: decision time %v is past the first period start %v", decision, start)
	}

	// Displaced initial states and frozen drift weights.
	x0 := make([]float64, n)
	weights := make([]float64, n)
	for j := 0; j < n; j++ {
		delta := m.Accrual(j)
		if 1+delta*initial[j] <= 0 {
			return fmt.Errorf("mc: 1 + accrual*forward must be positive, period %d has %v", j, 1+delta*initial[j])
		}
		x0[j] = initial[j] + m.Displacement(j)
		weights[j] = delta * x0[j] / (1 + delta*initial[j])
	}

	// Exact integrated covariance of the displaced log updates to the decision date,
	// and the drift making every rebased pseudo discount factor a martingale under the
	// terminal measure, with weights frozen at the valuation date.
	cov := m.IntegratedCovariance(0, decision)
	drift := make([]float64, n)
	for j := 0; j < n; j++ {
		d := -0.5 * cov.At(j, j)
		for k := j + 1; k < n; k++ {
			d -= weights[k] * cov.At(j, k)
		}
		drift[j] = d
	}
	scale := math.Sqrt(m.ScaleIntegral(0, decision))

	block := make([][]float64, e.blockSize)
	for i := range block {
		block[i] = make([]float64, n)
	}
	z := make([]float64, nf)

	remaining := paths
	for remaining > 0 {
		size := e.blockSize
		if remaining < size {
			size = remaining
		}
		for p := 0; p < size; p++ {
			src.Draw(z)
			out := block[p]
			for j := 0; j < n; j++ {
				g := m.Loading(j)
				eps := 0.0
				for f := 0; f < nf; f++ {
					eps += g[f] * z[f]
				}
				out[j] = x0[j]*math.Exp(drift[j]+scale*eps) - m.Displacement(j)
			}
		}
		fn(block[:size])
		remaining -= size
	}
	return nil
}
