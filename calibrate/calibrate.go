// Package calibrate fits model volatility parameters to target Bachelier implied
// volatilities of European swaptions. Three granularities exist: a single overall
// volatility level, a two-level fit split at the first expiry and a bucket-by-bucket
// term structure bootstrap. Calibrators never mutate their input model; they return
// new parameter instances, and non-convergence is surfaced rather than retried.
package calibrate

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"

	"github.com/marc-henrard/murisq-ir-models/model"
	"github.com/marc-henrard/murisq-ir-models/product"
	"github.com/marc-henrard/murisq-ir-models/rates"
	"github.com/marc-henrard/murisq-ir-models/swaption"
)

// DefaultTolerance is the maximum absolute implied volatility residual accepted as
// converged.
const DefaultTolerance = 1e-8

var (
	// ErrInstrumentOrder reports instruments supplied out of the required monotonic
	// (expiry, tenor) order.
	ErrInstrumentOrder = errors.New("calibrate: instruments must be ordered by expiry then tenor")
	// ErrNoConvergence reports a residual above tolerance after the search finished.
	ErrNoConvergence = errors.New("calibrate: residual above tolerance")
)

// Instrument pairs a calibration swaption with its target Bachelier implied volatility.
type Instrument struct {
	Swaption  product.Swaption
	TargetVol float64
}

func checkOrder(ins []Instrument, env *rates.Environment) error {
	if len(ins) == 0 {
		return fmt.Errorf("calibrate: no instruments supplied")
	}
	for i := 1; i < len(ins); i++ {
		prev, cur := ins[i-1].Swaption, ins[i].Swaption
		tPrev, tCur := env.Time(prev.Expiry), env.Time(cur.Expiry)
		if tCur < tPrev || (tCur == tPrev && cur.TenorYears <= prev.TenorYears) {
			return fmt.Errorf("%w: instrument %d", ErrInstrumentOrder, i)
		}
	}
	return nil
}

// volIndices lists the KindVolatility parameter indices of m whose bucket time passes
// the filter; a nil filter selects all of them.
func volIndices(m model.ParameterizedModel, filter func(t float64) bool) []int {
	var out []int
	for i := 0; i < m.ParameterCount(); i++ {
		md := m.ParameterMetadata(i)
		if md.Kind == model.KindVolatility && (filter == nil || filter(md.Time)) {
			out = append(out, i)
		}
	}
	return out
}

// scaleVols multiplies the parameters at the given indices by factor, returning a new
// instance.
func scaleVols(m model.ParameterizedModel, indices []int, factor float64) (model.ParameterizedModel, error) {
	out := m
	for _, i := range indices {
		next, err := out.WithParameter(i, out.Parameter(i)*factor)
		if err != nil {
			return nil, err
		}
		out = next
	}
	return out, nil
}

// sumSquares is the least-squares objective over the implied volatility residuals;
// an invalid trial model evaluates to +Inf so the simplex backs away from it.
func sumSquares(m model.ParameterizedModel, ins []Instrument, env *rates.Environment) float64 {
	sum := 0.0
	for _, in := range ins {
		vol, err := swaption.ImpliedVol(m, in.Swaption, env)
		if err != nil {
			return math.Inf(1)
		}
		d := vol - in.TargetVol
		sum += d * d
	}
	return sum
}

func minimize(f func(x []float64) float64, init []float64) ([]float64, error) {
	problem := optimize.Problem{Func: f}
	settings := &optimize.Settings{
		Converger: &optimize.FunctionConverge{Absolute: 1e-20, Iterations: 500},
	}
	result, err := optimize.Minimize(problem, init, settings, &optimize.NelderMead{})
	if err != nil {
		return nil, fmt.Errorf("calibrate: %w", err)
	}
	return result.X, nil
}

func checkConverged(m model.ParameterizedModel, ins []Instrument, env *rates.Environment) error {
	worst := 0.0
	for _, in := range ins {
		vol, err := swaption.ImpliedVol(m, in.Swaption, env)
		if err != nil {
			return err
		}
		if d := math.Abs(vol - in.TargetVol); d > worst {
			worst = d
		}
	}
	if worst > DefaultTolerance {
		return fmt.Errorf("%w: worst implied volatility residual %.3e", ErrNoConvergence, worst)
	}
	return nil
}

// Level scales every volatility parameter of m by one common factor so the analytic
// pricer reproduces the instruments' target implied volatilities. The factor is
// searched in log space, keeping trial volatilities positive.
func Level(m model.ParameterizedModel, ins []Instrument, env *rates.Environment) (model.ParameterizedModel, error) {
	if err := checkOrder(ins, env); err != nil {
		return nil, err
	}
	idx := volIndices(m, nil)
	if len(idx) == 0 {
		return nil, fmt.Errorf("calibrate: model has no volatility parameters")
	}
	objective := func(x []float64) float64 {
		scaled, err := scaleVols(m, idx, math.Exp(x[0]))
		if err != nil {
			return math.Inf(1)
		}
		return sumSquares(scaled, ins, env)
	}
	best, err := minimize(objective, []float64{0})
	if err != nil {
		return nil, err
	}
	out, err := scaleVols(m, idx, math.Exp(best[0]))
	if err != nil {
		return nil, err
	}
	if err := checkConverged(out, ins, env); err != nil {
		return nil, err
	}
	return out, nil
}

// Skew fits two volatility scales to two instruments: one scale for the buckets
// starting before the first instrument's expiry and one for the rest. The volatility
// grid must have a bucket boundary at the first expiry for the split to bite.
func Skew(m model.ParameterizedModel, ins []Instrument, env *rates.Environment) (model.ParameterizedModel, error) {
	if err := checkOrder(ins, env); err != nil {
		return nil, err
	}
	if len(ins) != 2 {
		return nil, fmt.Errorf("calibrate: two-level fit needs exactly two instruments, got %d", len(ins))
	}
	pivot := env.Time(ins[0].Swaption.Expiry)
	short := volIndices(m, func(t float64) bool { return t < pivot })
	long := volIndices(m, func(t float64) bool { return t >= pivot })
	if len(short) == 0 || len(long) == 0 {
		return nil, fmt.Errorf("calibrate: volatility grid has no bucket boundary at the first expiry (t=%v)", pivot)
	}
	apply := func(x []float64) (model.ParameterizedModel, error) {
		scaled, err := scaleVols(m, short, math.Exp(x[0]))
		if err != nil {
			return nil, err
		}
		return scaleVols(scaled, long, math.Exp(x[1]))
	}
	objective := func(x []float64) float64 {
		scaled, err := apply(x)
		if err != nil {
			return math.Inf(1)
		}
		return sumSquares(scaled, ins, env)
	}
	best, err := minimize(objective, []float64{0, 0})
	if err != nil {
		return nil, err
	}
	out, err := apply(best)
	if err != nil {
		return nil, err
	}
	if err := checkConverged(out, ins, env); err != nil {
		return nil, err
	}
	return out, nil
}

// TermStructure bootstraps a Hull-White volatility term structure on the instrument
// expiry grid: the grid has one bucket per instrument with boundaries at the first
// N-1 expiries, and bucket i is solved against instrument i with earlier buckets held
// fixed and later buckets extrapolated flat at the current value. Expiries must be
// distinct; the mean reversion of hw is kept.
func TermStructure(hw *model.HullWhite, ins []Instrument, env *rates.Environment) (*model.HullWhite, error) {
	if err := checkOrder(ins, env); err != nil {
		return nil, err
	}
	n := len(ins)
	times := make([]float64, 0, n+1)
	times = append(times, 0)
	for i := 0; i < n-1; i++ {
		theta := env.Time(ins[i].Swaption.Expiry)
		if theta <= times[len(times)-1] {
			return nil, fmt.Errorf("%w: term structure needs distinct future expiries", ErrInstrumentOrder)
		}
		times = append(times, theta)
	}
	times = append(times, model.TimeInfinity)

	vols := make([]float64, n)
	for i := range vols {
		vols[i] = hw.Volatilities()[0]
	}
	for i := 0; i < n; i++ {
		in := ins[i]
		trial := make([]float64, n)
		objective := func(x []float64) float64 {
			copy(trial, vols)
			v := math.Exp(x[0])
			for j := i; j < n; j++ {
				trial[j] = v
			}
			candidate, err := model.NewHullWhite(hw.MeanReversion(), times, trial)
			if err != nil {
				return math.Inf(1)
			}
			vol, err := swaption.ImpliedVol(candidate, in.Swaption, env)
			if err != nil {
				return math.Inf(1)
			}
			d := vol - in.TargetVol
			return d * d
		}
		best, err := minimize(objective, []float64{math.Log(vols[i])})
		if err != nil {
			return nil, err
		}
		v := math.Exp(best[0])
		for j := i; j < n; j++ {
			vols[j] = v
		}
	}
	out, err := model.NewHullWhite(hw.MeanReversion(), times, vols)
	if err != nil {
		return nil, err
	}
	if err := checkConverged(out, ins, env); err != nil {
		return nil, err
	}
	return out, nil
}
