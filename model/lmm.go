package model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// LMM is the displaced-diffusion Libor Market Model parameter set. Each forward period
// [periods[j], periods[j+1]) carries an accrual fraction, a displacement, a deterministic
// multiplicative discount-to-Ibor spread and a factor loading vector. Time dependence of
// all loadings is a common piecewise constant scale on its own grid, so the integrated
// factor covariance reuses the closed-form bucket integrals of the Gaussian models.
type LMM struct {
	periods       []float64
	accruals      []float64
	displacements []float64
	spreads       []float64
	loadings      [][]float64
	meanReversion float64
	volTimes      []float64
	volScale      []float64
}

// NewLMM validates and builds an LMM parameter set. periods must be strictly increasing
// with at least two entries; accruals, displacements, spreads and loadings have one entry
// per period; meanReversion may be zero (flat loading scale in time) but not negative.
func NewLMM(periods, accruals, displacements, spreads []float64, loadings [][]float64, meanReversion float64, volTimes, volScale []float64) (*LMM, error) {
	n := len(periods) - 1
	if n < 1 {
		return nil, fmt.Errorf("model: LMM needs at least one forward period")
	}
	for j := 1; j < len(periods); j++ {
		if !(periods[j] > periods[j-1]) {
			return nil, fmt.Errorf("model: LMM period times not strictly increasing at index %d", j)
		}
	}
	if len(accruals) != n || len(displacements) != n || len(spreads) != n || len(loadings) != n {
		return nil, fmt.Errorf("model: LMM per-period vectors must have length %d", n)
	}
	nf := len(loadings[0])
	for j := 0; j < n; j++ {
		if !(accruals[j] > 0) {
			return nil, fmt.Errorf("model: LMM accrual %d must be positive", j)
		}
		if !(spreads[j] > 0) {
			return nil, fmt.Errorf("model: LMM spread %d must be positive", j)
		}
		if math.IsNaN(displacements[j]) || math.IsInf(displacements[j], 0) {
			return nil, fmt.Errorf("model: LMM displacement %d is not finite", j)
		}
		if len(loadings[j]) != nf {
			return nil, fmt.Errorf("model: LMM loading %d has %d factors, want %d", j, len(loadings[j]), nf)
		}
	}
	if meanReversion < 0 {
		return nil, fmt.Errorf("model: LMM loading scale exponent must not be negative")
	}
	if err := validateGrid(volTimes, volScale); err != nil {
		return nil, err
	}
	cl := make([][]float64, n)
	for j := range loadings {
		cl[j] = cloneFloats(loadings[j])
	}
	return &LMM{
		periods:       cloneFloats(periods),
		accruals:      cloneFloats(accruals),
		displacements: cloneFloats(displacements),
		spreads:       cloneFloats(spreads),
		loadings:      cl,
		meanReversion: meanReversion,
		volTimes:      cloneFloats(volTimes),
		volScale:      cloneFloats(volScale),
	}, nil
}

// LMMFromHullWhite builds the displaced-diffusion LMM that reproduces the Hull-White
// model hw on the forward period grid times: displacement 1/accrual, a single factor
// with loading (exp(-kappa t_j) - exp(-kappa t_j+1))/kappa and the Hull-White volatility
// as time scale. Spreads are the deterministic multiplicative Ibor spreads per period;
// nil means a single-curve setup (all ones).
func LMMFromHullWhite(hw *HullWhite, times []float64, spreads []float64) (*LMM, error) {
	n := len(times) - 1
	if n < 1 {
		return nil, fmt.Errorf("model: LMMFromHullWhite needs at least one period")
	}
	accruals := make([]float64, n)
	displacements := make([]float64, n)
	loadings := make([][]float64, n)
	k := hw.MeanReversion()
	for j := 0; j < n; j++ {
		accruals[j] = times[j+1] - times[j]
		displacements[j] = 1 / accruals[j]
		loadings[j] = []float64{(math.Exp(-k*times[j]) - math.Exp(-k*times[j+1])) / k}
	}
	if spreads == nil {
		spreads = make([]float64, n)
		for j := range spreads {
			spreads[j] = 1
		}
	}
	return NewLMM(times, accruals, displacements, spreads, loadings, k, hw.times, hw.vols)
}

// PeriodCount returns the number of forward periods.
func (l *LMM) PeriodCount() int { return len(l.periods) - 1 }

// FactorCount returns the number of driving factors.
func (l *LMM) FactorCount() int { return len(l.loadings[0]) }

// PeriodTimes returns a copy of the accrual boundary times.
func (l *LMM) PeriodTimes() []float64 { return cloneFloats(l.periods) }

// Accrual returns the accrual fraction of period j.
func (l *LMM) Accrual(j int) float64 { return l.accruals[j] }

// Displacement returns the displacement of period j.
func (l *LMM) Displacement(j int) float64 { return l.displacements[j] }

// Spread returns the multiplicative discount-to-Ibor spread of period j.
func (l *LMM) Spread(j int) float64 { return l.spreads[j] }

// PeriodIndex returns the index of the accrual boundary matching t, or an error when t
// is not on the period grid.
func (l *LMM) PeriodIndex(t float64) (int, error) {
	for j, u := range l.periods {
		if math.Abs(u-t) < 1e-8 {
			return j, nil
		}
	}
	return 0, fmt.Errorf("model: time %v not on the LMM period grid", t)
}

// IntegratedCovariance returns the exact integrated covariance matrix over [s, t] of the
// displaced log forward updates: C[j][k] = loading_j . loading_k * Integral(eta^2 e^{2 kappa u}).
func (l *LMM) IntegratedCovariance(s, t float64) *mat.SymDense {
	integral := pcIntegral(l.volTimes, l.volScale, l.volScale, 2*l.meanReversion, s, t)
	n := l.PeriodCount()
	c := mat.NewSymDense(n, nil)
	for j := 0; j < n; j++ {
		for k := j; k < n; k++ {
			dot := 0.0
			for f := range l.loadings[j] {
				dot += l.loadings[j][f] * l.loadings[k][f]
			}
			c.SetSym(j, k, dot*integral)
		}
	}
	return c
}

// Loading returns the factor loading vector of period j. The returned slice is shared;
// callers must not modify it.
func (l *LMM) Loading(j int) []float64 { return l.loadings[j] }

// ScaleIntegral returns the integral of eta^2 e^{2 kappa u} over [s, t], the common
// time scale of all loadings.
func (l *LMM) ScaleIntegral(s, t float64) float64 {
	return pcIntegral(l.volTimes, l.volScale, l.volScale, 2*l.meanReversion, s, t)
}

// IborRate inverts the multiplicative spread of period j: the economically quoted rate
// implied by the discounting-curve forward.
func (l *LMM) IborRate(j int, dscForward float64) float64 {
	return (l.spreads[j]*(1+l.accruals[j]*dscForward) - 1) / l.accruals[j]
}

// ParameterCount implements ParameterizedModel: the volatility scale buckets, then the
// per-period displacements, then the flattened loadings.
func (l *LMM) ParameterCount() int {
	return len(l.volScale) + l.PeriodCount() + l.PeriodCount()*l.FactorCount()
}

// Parameter implements ParameterizedModel.
func (l *LMM) Parameter(i int) float64 {
	nv, n, f := len(l.volScale), l.PeriodCount(), l.FactorCount()
	switch {
	case i < nv:
		return l.volScale[i]
	case i < nv+n:
		return l.displacements[i-nv]
	default:
		j := i - nv - n
		return l.loadings[j/f][j%f]
	}
}

// ParameterMetadata implements ParameterizedModel.
func (l *LMM) ParameterMetadata(i int) Metadata {
	nv, n := len(l.volScale), l.PeriodCount()
	switch {
	case i < nv:
		return Metadata{Kind: KindVolatility, Time: l.volTimes[i]}
	case i < nv+n:
		return Metadata{Kind: KindDisplacement, Time: l.periods[i-nv]}
	default:
		j := (i - nv - n) / l.FactorCount()
		return Metadata{Kind: KindLoading, Time: l.periods[j]}
	}
}

// WithParameter implements ParameterizedModel.
func (l *LMM) WithParameter(i int, v float64) (ParameterizedModel, error) {
	if i < 0 || i >= l.ParameterCount() {
		return nil, fmt.Errorf("model: parameter index %d out of range [0,%d)", i, l.ParameterCount())
	}
	nv, n, f := len(l.volScale), l.PeriodCount(), l.FactorCount()
	volScale := cloneFloats(l.volScale)
	displacements := cloneFloats(l.displacements)
	loadings := make([][]float64, n)
	for j := range l.loadings {
		loadings[j] = cloneFloats(l.loadings[j])
	}
	switch {
	case i < nv:
		volScale[i] = v
	case i < nv+n:
		displacements[i-nv] = v
	default:
		j := i - nv - n
		loadings[j/f][j%f] = v
	}
	return NewLMM(l.periods, l.accruals, displacements, l.spreads, loadings, l.meanReversion, l.volTimes, volScale)
}
