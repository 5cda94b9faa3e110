// Package model holds the parameter sets of the interest rate models priced by this
// service (Hull-White one-factor, two-factor additive Gaussian, rational one- and
// two-factor, displaced-diffusion LMM) together with the closed-form variance and
// covariance integrals of their piecewise constant volatility structures.
package model

import (
	"fmt"
	"math"
	"sort"
)

// TimeInfinity is the sentinel last pillar of every volatility time grid.
var TimeInfinity = math.Inf(1)

// ParameterKind classifies an entry of the flat parameter view.
type ParameterKind string

const (
	KindMeanReversion ParameterKind = "mean reversion"
	KindVolatility    ParameterKind = "volatility"
	KindCorrelation   ParameterKind = "correlation"
	KindDisplacement  ParameterKind = "displacement"
	KindLoading       ParameterKind = "loading"
	KindShape         ParameterKind = "shape"
)

// Metadata describes one entry of the flat parameter view.
type Metadata struct {
	Kind ParameterKind
	// Time is the start of the volatility bucket the parameter applies to,
	// zero for scalar parameters.
	Time float64
}

// ParameterizedModel is the flat indexed view every model exposes, independent of its
// internal structure. Calibrators and bump sensitivities only ever see this interface.
type ParameterizedModel interface {
	// ParameterCount returns the number of entries of the flat view.
	ParameterCount() int
	// Parameter returns the value at index i. It panics if i is out of range,
	// matching slice semantics.
	Parameter(i int) float64
	// ParameterMetadata returns the metadata at index i.
	ParameterMetadata(i int) Metadata
	// WithParameter returns a new validated instance with only index i changed.
	// The receiver is never mutated.
	WithParameter(i int, v float64) (ParameterizedModel, error)
}

// validateGrid checks the shared grid contract: times strictly increasing, times[0] = 0,
// last pillar the infinity sentinel, len(times) = len(vols)+1, all vols finite.
func validateGrid(times, vols []float64) error {
	if len(times) != len(vols)+1 {
		return fmt.Errorf("model: grid size %d must be volatility size %d + 1", len(times), len(vols))
	}
	if len(vols) == 0 {
		return fmt.Errorf("model: empty volatility grid")
	}
	if times[0] != 0 {
		return fmt.Errorf("model: grid must start at 0, got %v", times[0])
	}
	for i := 1; i < len(times); i++ {
		if !(times[i] > times[i-1]) {
			return fmt.Errorf("model: grid not strictly increasing at index %d", i)
		}
	}
	if !math.IsInf(times[len(times)-1], 1) {
		return fmt.Errorf("model: last grid pillar must be +Inf, got %v", times[len(times)-1])
	}
	for i, v := range vols {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("model: volatility at index %d is not finite", i)
		}
	}
	return nil
}

// bucketIndex returns the index of the grid bucket [times[i], times[i+1]) containing u.
func bucketIndex(times []float64, u float64) int {
	// SearchFloat64s returns the insertion point: the smallest i with times[i] >= u.
	i := sort.SearchFloat64s(times, u)
	if i < len(times) && times[i] == u {
		return i
	}
	return i - 1
}

// partition builds the refined partition {s, interior pillars, t} of [s, t].
// s = t yields a zero-length partition.
func partition(times []float64, s, t float64) []float64 {
	if t <= s {
		return nil
	}
	p := make([]float64, 0, 4)
	p = append(p, s)
	for _, u := range times {
		if u > s && u < t {
			p = append(p, u)
		}
	}
	p = append(p, t)
	return p
}

// pcIntegral computes the closed-form integral of a(u)*b(u)*exp(k*u) over [s, t] where
// a and b are piecewise constant on the grid. A single enclosing bucket degenerates to
// the constant-volatility antiderivative over [s, t].
func pcIntegral(times, a, b []float64, k, s, t float64) float64 {
	p := partition(times, s, t)
	sum := 0.0
	for i := 0; i+1 < len(p); i++ {
		j := bucketIndex(times, p[i])
		ab := a[j] * b[j]
		if k == 0 {
			sum += ab * (p[i+1] - p[i])
		} else {
			sum += ab * (math.Exp(k*p[i+1]) - math.Exp(k*p[i])) / k
		}
	}
	return sum
}

func cloneFloats(x []float64) []float64 {
	c := make([]float64, len(x))
	copy(c, x)
	return c
}
