package model

import (
	"fmt"
	"math"
)

// RationalOneFactor is the parameter set of the rational multi-curve model driven by a
// single Gaussian factor. On top of the grid contract it carries the b0 shape function
// coefficient linking maturities to the factor exposure of the pseudo discount factors.
type RationalOneFactor struct {
	meanReversion float64
	b00           float64
	times         []float64
	vols          []float64
}

// NewRationalOneFactor validates and builds a rational one-factor parameter set.
func NewRationalOneFactor(meanReversion, b00 float64, times, vols []float64) (*RationalOneFactor, error) {
	if !(meanReversion > 0) {
		return nil, fmt.Errorf("model: mean reversion must be positive, got %v", meanReversion)
	}
	if err := validateGrid(times, vols); err != nil {
		return nil, err
	}
	return &RationalOneFactor{
		meanReversion: meanReversion,
		b00:           b00,
		times:         cloneFloats(times),
		vols:          cloneFloats(vols),
	}, nil
}

// MeanReversion returns the mean reversion speed.
func (r *RationalOneFactor) MeanReversion() float64 { return r.meanReversion }

// B0 is the maturity-dependent shape function: the exposure of the pseudo discount
// factor of maturity u to the driving martingale.
func (r *RationalOneFactor) B0(u float64) float64 {
	return r.b00 * math.Exp(-r.meanReversion*u)
}

// VarianceIntegral returns the integral of eta^2 exp(2 kappa u) over [s, t] for the
// driving factor, sharing the piecewise closed form of the Gaussian models.
func (r *RationalOneFactor) VarianceIntegral(s, t float64) float64 {
	return pcIntegral(r.times, r.vols, r.vols, 2*r.meanReversion, s, t)
}

// ParameterCount implements ParameterizedModel: mean reversion, b00, then volatilities.
func (r *RationalOneFactor) ParameterCount() int { return 2 + len(r.vols) }

// Parameter implements ParameterizedModel.
func (r *RationalOneFactor) Parameter(i int) float64 {
	switch i {
	case 0:
		return r.meanReversion
	case 1:
		return r.b00
	default:
		return r.vols[i-2]
	}
}

// ParameterMetadata implements ParameterizedModel.
func (r *RationalOneFactor) ParameterMetadata(i int) Metadata {
	switch i {
	case 0:
		return Metadata{Kind: KindMeanReversion}
	case 1:
		return Metadata{Kind: KindShape}
	default:
		return Metadata{Kind: KindVolatility, Time: r.times[i-2]}
	}
}

// WithParameter implements ParameterizedModel.
func (r *RationalOneFactor) WithParameter(i int, v float64) (ParameterizedModel, error) {
	if i < 0 || i >= r.ParameterCount() {
		return nil, fmt.Errorf("model: parameter index %d out of range [0,%d)", i, r.ParameterCount())
	}
	mr, b00 := r.meanReversion, r.b00
	vols := cloneFloats(r.vols)
	switch i {
	case 0:
		mr = v
	case 1:
		b00 = v
	default:
		vols[i-2] = v
	}
	return NewRationalOneFactor(mr, b00, r.times, vols)
}

// RationalTwoFactor extends the rational model with a second Gaussian factor, a factor
// correlation and a second shape coefficient.
type RationalTwoFactor struct {
	kappa1, kappa2 float64
	correlation    float64
	b00, b20       float64
	times          []float64
	vol1, vol2     []float64
}

// NewRationalTwoFactor validates and builds a rational two-factor parameter set.
func NewRationalTwoFactor(kappa1, kappa2, correlation, b00, b20 float64, times, vol1, vol2 []float64) (*RationalTwoFactor, error) {
	if !(kappa1 > 0) || !(kappa2 > 0) {
		return nil, fmt.Errorf("model: mean reversions must be positive, got %v, %v", kappa1, kappa2)
	}
	if correlation < -1 || correlation > 1 {
		return nil, fmt.Errorf("model: correlation %v outside [-1,1]", correlation)
	}
	if err := validateGrid(times, vol1); err != nil {
		return nil, err
	}
	if err := validateGrid(times, vol2); err != nil {
		return nil, err
	}
	return &RationalTwoFactor{
		kappa1: kappa1, kappa2: kappa2, correlation: correlation,
		b00: b00, b20: b20,
		times: cloneFloats(times),
		vol1:  cloneFloats(vol1), vol2: cloneFloats(vol2),
	}, nil
}

// B0 is the first factor shape function.
func (r *RationalTwoFactor) B0(u float64) float64 { return r.b00 * math.Exp(-r.kappa1*u) }

// B2 is the second factor shape function, driving the multi-curve spread dynamics.
func (r *RationalTwoFactor) B2(u float64) float64 { return r.b20 * math.Exp(-r.kappa2*u) }

// Correlation returns the factor correlation.
func (r *RationalTwoFactor) Correlation() float64 { return r.correlation }

// CovarianceIntegrals returns the three integrated (co)variance terms of the two
// driving factors over [s, t].
func (r *RationalTwoFactor) CovarianceIntegrals(s, t float64) [3]float64 {
	v1 := pcIntegral(r.times, r.vol1, r.vol1, 2*r.kappa1, s, t)
	v2 := pcIntegral(r.times, r.vol2, r.vol2, 2*r.kappa2, s, t)
	c := r.correlation * pcIntegral(r.times, r.vol1, r.vol2, r.kappa1+r.kappa2, s, t)
	return [3]float64{v1, v2, c}
}

// ParameterCount implements ParameterizedModel.
func (r *RationalTwoFactor) ParameterCount() int { return 5 + len(r.vol1) + len(r.vol2) }

// Parameter implements ParameterizedModel.
func (r *RationalTwoFactor) Parameter(i int) float64 {
	switch {
	case i == 0:
		return r.kappa1
	case i == 1:
		return r.kappa2
	case i == 2:
		return r.correlation
	case i == 3:
		return r.b00
	case i == 4:
		return r.b20
	case i < 5+len(r.vol1):
		return r.vol1[i-5]
	default:
		return r.vol2[i-5-len(r.vol1)]
	}
}

// ParameterMetadata implements ParameterizedModel.
func (r *RationalTwoFactor) ParameterMetadata(i int) Metadata {
	switch {
	case i == 0 || i == 1:
		return Metadata{Kind: KindMeanReversion}
	case i == 2:
		return Metadata{Kind: KindCorrelation}
	case i == 3 || i == 4:
		return Metadata{Kind: KindShape}
	case i < 5+len(r.vol1):
		return Metadata{Kind: KindVolatility, Time: r.times[i-5]}
	default:
		return Metadata{Kind: KindVolatility, Time: r.times[i-5-len(r.vol1)]}
	}
}

// WithParameter implements ParameterizedModel.
func (r *RationalTwoFactor) WithParameter(i int, v float64) (ParameterizedModel, error) {
	if i < 0 || i >= r.ParameterCount() {
		return nil, fmt.Errorf("model: parameter index %d out of range [0,%d)", i, r.ParameterCount())
	}
	k1, k2, rho, b00, b20 := r.kappa1, r.kappa2, r.correlation, r.b00, r.b20
	vol1 := cloneFloats(r.vol1)
	vol2 := cloneFloats(r.vol2)
	switch {
	case i == 0:
		k1 = v
	case i == 1:
		k2 = v
	case i == 2:
		rho = v
	case i == 3:
		b00 = v
	case i == 4:
		b20 = v
	case i < 5+len(vol1):
		vol1[i-5] = v
	default:
		vol2[i-5-len(vol1)] = v
	}
	return NewRationalTwoFactor(k1, k2, rho, b00, b20, r.times, vol1, vol2)
}
