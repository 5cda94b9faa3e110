package model

import (
	"fmt"
	"math"
)

// HullWhite is the one-factor Hull-White (extended Vasicek) parameter set with a
// piecewise constant volatility on a fixed time grid. Instances are immutable; the
// only way to change a parameter is WithParameter, which returns a new validated copy.
type HullWhite struct {
	meanReversion float64
	times         []float64
	vols          []float64
}

// NewHullWhite validates and builds a Hull-White parameter set.
// times must be strictly increasing, start at 0 and end at the infinity sentinel;
// vols has one entry per bucket; meanReversion must be strictly positive.
func NewHullWhite(meanReversion float64, times, vols []float64) (*HullWhite, error) {
	if !(meanReversion > 0) {
		return nil, fmt.Errorf("model: mean reversion must be positive, got %v", meanReversion)
	}
	if err := validateGrid(times, vols); err != nil {
		return nil, err
	}
	return &HullWhite{
		meanReversion: meanReversion,
		times:         cloneFloats(times),
		vols:          cloneFloats(vols),
	}, nil
}

// NewHullWhiteConstant builds a Hull-White set with a single volatility bucket.
func NewHullWhiteConstant(meanReversion, vol float64) (*HullWhite, error) {
	return NewHullWhite(meanReversion, []float64{0, TimeInfinity}, []float64{vol})
}

// MeanReversion returns the mean reversion speed.
func (hw *HullWhite) MeanReversion() float64 { return hw.meanReversion }

// Times returns a copy of the volatility time grid.
func (hw *HullWhite) Times() []float64 { return cloneFloats(hw.times) }

// Volatilities returns a copy of the per-bucket volatilities.
func (hw *HullWhite) Volatilities() []float64 { return cloneFloats(hw.vols) }

// FutureConvexityIntegral returns the integral of eta^2 exp(2 kappa u) over [s, t],
// the common building block of all Hull-White log discount factor variances.
func (hw *HullWhite) FutureConvexityIntegral(s, t float64) float64 {
	return pcIntegral(hw.times, hw.vols, hw.vols, 2*hw.meanReversion, s, t)
}

// maturityFactor is (exp(-kappa u) - exp(-kappa v)) / kappa.
func (hw *HullWhite) maturityFactor(u, v float64) float64 {
	k := hw.meanReversion
	return (math.Exp(-k*u) - math.Exp(-k*v)) / k
}

// Alpha2 returns the variance over the expiry interval [s, t] of the Gaussian factor
// contribution to ln(P(., v)/P(., u)), the log pseudo discount factor ratio between
// maturities u and v. s = t returns zero.
func (hw *HullWhite) Alpha2(s, t, u, v float64) float64 {
	f := hw.maturityFactor(u, v)
	return f * f * hw.FutureConvexityIntegral(s, t)
}

// Alpha is the square root of Alpha2 with the sign convention of the maturity pair:
// it is positive when v > u.
func (hw *HullWhite) Alpha(s, t, u, v float64) float64 {
	f := hw.maturityFactor(u, v)
	return f * math.Sqrt(hw.FutureConvexityIntegral(s, t))
}

// Alpha2Partials returns Alpha2(s,t,u,v) and its partial derivatives with respect to
// each volatility bucket, as an explicit backward sweep over the named intermediates
// of Alpha2. The partials line up with the volatility entries of the parameter view.
func (hw *HullWhite) Alpha2Partials(s, t, u, v float64) (float64, []float64) {
	f := hw.maturityFactor(u, v)
	k := 2 * hw.meanReversion
	p := partition(hw.times, s, t)

	// Forward sweep: per-bucket integral contributions.
	integral := 0.0
	contrib := make([]float64, len(hw.vols))
	for i := 0; i+1 < len(p); i++ {
		j := bucketIndex(hw.times, p[i])
		w := (math.Exp(k*p[i+1]) - math.Exp(k*p[i])) / k
		contrib[j] += hw.vols[j] * hw.vols[j] * w
		integral += hw.vols[j] * hw.vols[j] * w
	}
	alpha2 := f * f * integral

	// Backward sweep: alpha2Bar = 1, integralBar = f^2, etaBar_j = integralBar * 2 eta_j w_j.
	integralBar := f * f
	etaBar := make([]float64, len(hw.vols))
	for j := range hw.vols {
		if hw.vols[j] != 0 {
			etaBar[j] = integralBar * 2 * contrib[j] / hw.vols[j]
		}
	}
	return alpha2, etaBar
}

// ParameterCount implements ParameterizedModel. The view is the mean reversion
// followed by the volatility buckets.
func (hw *HullWhite) ParameterCount() int { return 1 + len(hw.vols) }

// Parameter implements ParameterizedModel.
func (hw *HullWhite) Parameter(i int) float64 {
	if i == 0 {
		return hw.meanReversion
	}
	return hw.vols[i-1]
}

// ParameterMetadata implements ParameterizedModel.
func (hw *HullWhite) ParameterMetadata(i int) Metadata {
	if i == 0 {
		return Metadata{Kind: KindMeanReversion}
	}
	return Metadata{Kind: KindVolatility, Time: hw.times[i-1]}
}

// WithParameter implements ParameterizedModel.
func (hw *HullWhite) WithParameter(i int, v float64) (ParameterizedModel, error) {
	return hw.WithParameterTyped(i, v)
}

// WithParameterTyped is WithParameter returning the concrete type.
func (hw *HullWhite) WithParameterTyped(i int, v float64) (*HullWhite, error) {
	if i < 0 || i >= hw.ParameterCount() {
		return nil, fmt.Errorf("model: parameter index %d out of range [0,%d)", i, hw.ParameterCount())
	}
	mr := hw.meanReversion
	vols := cloneFloats(hw.vols)
	if i == 0 {
		mr = v
	} else {
		vols[i-1] = v
	}
	return NewHullWhite(mr, hw.times, vols)
}

// WithVolatilities returns a new instance with the full volatility vector replaced.
func (hw *HullWhite) WithVolatilities(vols []float64) (*HullWhite, error) {
	return NewHullWhite(hw.meanReversion, hw.times, vols)
}
