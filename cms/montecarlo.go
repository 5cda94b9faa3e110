package cms

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/marc-henrard/murisq-ir-models/mc"
	"github.com/marc-henrard/murisq-ir-models/model"
	"github.com/marc-henrard/murisq-ir-models/product"
	"github.com/marc-henrard/murisq-ir-models/rates"
)

// MonteCarlo prices CMS and CMS spread periods by sampling the displaced-diffusion LMM
// forwards at the fixing date under the terminal measure. Every equivalent payment of
// the underlying swaps must fall on the model's forward period grid.
type MonteCarlo struct {
	Model     *model.LMM
	Paths     int
	BlockSize int
	Seed      uint64
	// Progress, when set, is called with the size of every finished block.
	Progress func(paths int)
}

// gridFlow is one equivalent payment mapped onto the forward period grid.
type gridFlow struct {
	idx    int
	amount float64
}

// gridRatio is a swap rate expressed in grid flows: rate = sum(num)/sum(den) with every
// flow rebased by the terminal numeraire.
type gridRatio struct {
	num, den []gridFlow
}

func (m MonteCarlo) mapFlows(cfe rates.CashFlowEquivalent, env *rates.Environment) ([]gridFlow, error) {
	out := make([]gridFlow, 0, len(cfe.Payments))
	for _, p := range cfe.Payments {
		idx, err := m.Model.PeriodIndex(env.Time(p.Date))
		if err != nil {
			return nil, err
		}
		out = append(out, gridFlow{idx: idx, amount: p.Amount})
	}
	return out, nil
}

func (m MonteCarlo) mapSwap(s product.Swap, env *rates.Environment) (gridRatio, error) {
	numCfe, denCfe, err := rates.SwapRateEquivalent(s)
	if err != nil {
		return gridRatio{}, err
	}
	num, err := m.mapFlows(numCfe, env)
	if err != nil {
		return gridRatio{}, err
	}
	den, err := m.mapFlows(denCfe, env)
	if err != nil {
		return gridRatio{}, err
	}
	return gridRatio{num: num, den: den}, nil
}

// rate evaluates the swap rate on one path given the rebasing factors rebase, where
// rebase[i] is the pseudo discount factor P(theta, t_i) / P(theta, t_N).
func (g gridRatio) rate(rebase []float64) float64 {
	num, den := 0.0, 0.0
	for _, f := range g.num {
		num += f.amount * rebase[f.idx]
	}
	for _, f := range g.den {
		den += f.amount * rebase[f.idx]
	}
	return num / den
}

// initialForwards reads the discounting-curve forwards per model period off the curve.
func (m MonteCarlo) initialForwards(env *rates.Environment) []float64 {
	times := m.Model.PeriodTimes()
	fwd := make([]float64, m.Model.PeriodCount())
	for j := range fwd {
		p0 := env.Discount.Discount(times[j])
		p1 := env.Discount.Discount(times[j+1])
		fwd[j] = (p0/p1 - 1) / m.Model.Accrual(j)
	}
	return fwd
}

// simulate runs the terminal sampler and returns the mean and standard error of
// value(rebase) across paths, discounted from the terminal date.
func (m MonteCarlo) simulate(decision float64, env *rates.Environment, value func(rebase []float64) float64) (mean, stderr float64, err error) {
	n := m.Model.PeriodCount()
	times := m.Model.PeriodTimes()
	paths := m.Paths
	if paths <= 0 {
		return 0, 0, fmt.Errorf("cms: monte carlo path count must be positive, got %d", paths)
	}

	rebase := make([]float64, n+1)
	draws := make([]float64, 0, paths)
	e := mc.NewEvolution(m.Model, m.BlockSize)
	err = e.Evolve(m.initialForwards(env), decision, paths, mc.NewNormalSource(m.Seed), func(block [][]float64) {
		for _, fwd := range block {
			rebase[n] = 1
			for j := n - 1; j >= 0; j-- {
				rebase[j] = rebase[j+1] * (1 + m.Model.Accrual(j)*fwd[j])
			}
			draws = append(draws, value(rebase))
		}
		if m.Progress != nil {
			m.Progress(len(block))
		}
	})
	if err != nil {
		return 0, 0, err
	}

	dfN := env.Discount.Discount(times[n])
	mean = dfN * stat.Mean(draws, nil)
	stderr = dfN * stat.StdDev(draws, nil) / math.Sqrt(float64(paths))
	return mean, stderr, nil
}

// Price implements Pricer.
func (m MonteCarlo) Price(p product.CMSPeriod, env *rates.Environment) (rates.Amount, error) {
	amt, _, err := m.PriceWithError(p, env)
	return amt, err
}

// PriceWithError prices the period and reports the Monte Carlo standard error of the
// estimate in the same currency.
func (m MonteCarlo) PriceWithError(p product.CMSPeriod, env *rates.Environment) (rates.Amount, float64, error) {
	if handled, amt, err := resolve(p, env); handled {
		return amt, 0, err
	}
	g, err := m.mapSwap(p.Underlying, env)
	if err != nil {
		return rates.Amount{}, 0, err
	}
	payIdx, err := m.Model.PeriodIndex(env.Time(p.PayDate))
	if err != nil {
		return rates.Amount{}, 0, err
	}
	mean, stderr, err := m.simulate(env.Time(p.FixingDate), env, func(rebase []float64) float64 {
		return payoff(p.Payoff, p.Strike, g.rate(rebase)) * rebase[payIdx]
	})
	if err != nil {
		return rates.Amount{}, 0, err
	}
	scale := p.Notional * p.YearFraction
	return env.Amount(scale * mean), math.Abs(scale) * stderr, nil
}

// PriceSpread prices a CMS spread period on the rate difference of its two underlying
// swaps. A historical fixing of the spread itself is looked up under the period index.
func (m MonteCarlo) PriceSpread(p product.CMSSpreadPeriod, env *rates.Environment) (rates.Amount, float64, error) {
	if p.PayDate.Before(env.ValuationDate) {
		return env.Amount(0), 0, nil
	}
	if !p.FixingDate.After(env.ValuationDate) {
		fixing, ok := env.Fixings.Fixing(p.Index, p.FixingDate)
		if !ok {
			return rates.Amount{}, 0, fmt.Errorf("cms: missing %s fixing on %s",
				p.Index, p.FixingDate.Format("2006-01-02"))
		}
		v := p.Notional * p.YearFraction * payoff(p.Payoff, p.Strike, fixing) * env.DiscountFactor(p.PayDate)
		return env.Amount(v), 0, nil
	}
	first, err := m.mapSwap(p.First, env)
	if err != nil {
		return rates.Amount{}, 0, err
	}
	second, err := m.mapSwap(p.Second, env)
	if err != nil {
		return rates.Amount{}, 0, err
	}
	payIdx, err := m.Model.PeriodIndex(env.Time(p.PayDate))
	if err != nil {
		return rates.Amount{}, 0, err
	}
	mean, stderr, err := m.simulate(env.Time(p.FixingDate), env, func(rebase []float64) float64 {
		return payoff(p.Payoff, p.Strike, first.rate(rebase)-second.rate(rebase)) * rebase[payIdx]
	})
	if err != nil {
		return rates.Amount{}, 0, err
	}
	scale := p.Notional * p.YearFraction
	return env.Amount(scale * mean), math.Abs(scale) * stderr, nil
}
