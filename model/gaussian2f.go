package model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Gaussian2F is the two-factor additive Gaussian (G2++) parameter set: two mean
// reversion speeds, a factor correlation and two piecewise constant volatility
// vectors sharing one time grid.
type Gaussian2F struct {
	kappa1, kappa2 float64
	correlation    float64
	times          []float64
	vol1, vol2     []float64
}

// NewGaussian2F validates and builds a two-factor Gaussian parameter set.
func NewGaussian2F(kappa1, kappa2, correlation float64, times, vol1, vol2 []float64) (*Gaussian2F, error) {
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
	return &Gaussian2F{
		kappa1:      kappa1,
		kappa2:      kappa2,
		correlation: correlation,
		times:       cloneFloats(times),
		vol1:        cloneFloats(vol1),
		vol2:        cloneFloats(vol2),
	}, nil
}

// MeanReversions returns both mean reversion speeds.
func (g *Gaussian2F) MeanReversions() (float64, float64) { return g.kappa1, g.kappa2 }

// Correlation returns the factor correlation.
func (g *Gaussian2F) Correlation() float64 { return g.correlation }

// Times returns a copy of the shared time grid.
func (g *Gaussian2F) Times() []float64 { return cloneFloats(g.times) }

func maturityFactor(k, u, v float64) float64 {
	return (math.Exp(-k*u) - math.Exp(-k*v)) / k
}

// Covariance returns the three variance components over the expiry interval [s, t]
// of the log pseudo discount factor ratio between maturities u and v: the first and
// second factor variances and the correlation-scaled cross term. The total variance
// is the sum of the three.
func (g *Gaussian2F) Covariance(s, t, u, v float64) [3]float64 {
	f1 := maturityFactor(g.kappa1, u, v)
	f2 := maturityFactor(g.kappa2, u, v)
	v1 := f1 * f1 * pcIntegral(g.times, g.vol1, g.vol1, 2*g.kappa1, s, t)
	v2 := f2 * f2 * pcIntegral(g.times, g.vol2, g.vol2, 2*g.kappa2, s, t)
	cross := 2 * g.correlation * f1 * f2 * pcIntegral(g.times, g.vol1, g.vol2, g.kappa1+g.kappa2, s, t)
	return [3]float64{v1, v2, cross}
}

// TotalVariance sums the variance components of Covariance.
func (g *Gaussian2F) TotalVariance(s, t, u, v float64) float64 {
	c := g.Covariance(s, t, u, v)
	return c[0] + c[1] + c[2]
}

// FactorCovariance returns the 2x2 integrated covariance matrix of the driving factor
// realizations over [s, t], before any maturity-dependent scaling. It is the input of
// the correlated terminal factor sampler.
func (g *Gaussian2F) FactorCovariance(s, t float64) *mat.SymDense {
	c11 := pcIntegral(g.times, g.vol1, g.vol1, 2*g.kappa1, s, t)
	c22 := pcIntegral(g.times, g.vol2, g.vol2, 2*g.kappa2, s, t)
	c12 := g.correlation * pcIntegral(g.times, g.vol1, g.vol2, g.kappa1+g.kappa2, s, t)
	return mat.NewSymDense(2, []float64{c11, c12, c12, c22})
}

// DiscountFactorShift returns the deterministic and linear coefficients of the factor
// realizations in ln P(theta, m) under the theta-forward measure: given terminal
// factors (y1, y2) sampled with FactorCovariance(0, theta),
// P(theta, m) = P(0,m)/P(0,theta) * exp(-0.5 tv - h1 y1 - h2 y2)
// with tv = TotalVariance(0, theta, theta, m).
func (g *Gaussian2F) DiscountFactorShift(theta, m float64) (h1, h2 float64) {
	h1 = maturityFactor(g.kappa1, theta, m)
	h2 = maturityFactor(g.kappa2, theta, m)
	return h1, h2
}

// ParameterCount implements ParameterizedModel: kappa1, kappa2, correlation, then the
// first and second factor volatility buckets.
func (g *Gaussian2F) ParameterCount() int { return 3 + len(g.vol1) + len(g.vol2) }

// Parameter implements ParameterizedModel.
func (g *Gaussian2F) Parameter(i int) float64 {
	switch {
	case i == 0:
		return g.kappa1
	case i == 1:
		return g.kappa2
	case i == 2:
		return g.correlation
	case i < 3+len(g.vol1):
		return g.vol1[i-3]
	default:
		return g.vol2[i-3-len(g.vol1)]
	}
}

// ParameterMetadata implements ParameterizedModel.
func (g *Gaussian2F) ParameterMetadata(i int) Metadata {
	switch {
	case i == 0 || i == 1:
		return Metadata{Kind: KindMeanReversion}
	case i == 2:
		return Metadata{Kind: KindCorrelation}
	case i < 3+len(g.vol1):
		return Metadata{Kind: KindVolatility, Time: g.times[i-3]}
	default:
		return Metadata{Kind: KindVolatility, Time: g.times[i-3-len(g.vol1)]}
	}
}

// WithParameter implements ParameterizedModel.
func (g *Gaussian2F) WithParameter(i int, v float64) (ParameterizedModel, error) {
	if i < 0 || i >= g.ParameterCount() {
		return nil, fmt.Errorf("model: parameter index %d out of range [0,%d)", i, g.ParameterCount())
	}
	k1, k2, rho := g.kappa1, g.kappa2, g.correlation
	vol1 := cloneFloats(g.vol1)
	vol2 := cloneFloats(g.vol2)
	switch {
	case i == 0:
		k1 = v
	case i == 1:
		k2 = v
	case i == 2:
		rho = v
	case i < 3+len(vol1):
		vol1[i-3] = v
	default:
		vol2[i-3-len(vol1)] = v
	}
	return NewGaussian2F(k1, k2, rho, g.times, vol1, vol2)
}
