// Package rates holds the market-facing collaborators of the pricers: discount curves
// queryable by date, day-count year fractions, historical fixings, currency amounts and
// the cash-flow-equivalent decomposition of swap legs.
package rates

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Amount is a present value in a single currency.
type Amount struct {
	Currency string  `json:"currency"`
	Value    float64 `json:"value"`
}

// Curve returns discount factors by time measured in years from the valuation date.
type Curve interface {
	Discount(t float64) float64
}

// FlatCurve is a continuously compounded flat zero curve.
type FlatCurve struct {
	Rate float64
}

// Discount implements Curve.
func (c FlatCurve) Discount(t float64) float64 { return math.Exp(-c.Rate * t) }

// ZeroCurve interpolates discount factors log-linearly between pillars, with flat
// forward extrapolation beyond the last pillar.
type ZeroCurve struct {
	times []float64
	dfs   []float64
}

// NewZeroCurve builds a curve from pillar times and discount factors. Times must be
// strictly increasing and positive, discount factors positive.
func NewZeroCurve(times, dfs []float64) (*ZeroCurve, error) {
	if len(times) != len(dfs) || len(times) < 2 {
		return nil, fmt.Errorf("rates: need at least two pillars, got %d/%d", len(times), len(dfs))
	}
	for i := range times {
		if i > 0 && !(times[i] > times[i-1]) {
			return nil, fmt.Errorf("rates: pillar times not strictly increasing at %d", i)
		}
		if !(times[i] > 0) {
			return nil, fmt.Errorf("rates: pillar time %d must be positive", i)
		}
		if !(dfs[i] > 0) {
			return nil, fmt.Errorf("rates: discount factor %d must be positive", i)
		}
	}
	c := &ZeroCurve{times: make([]float64, len(times)), dfs: make([]float64, len(dfs))}
	copy(c.times, times)
	copy(c.dfs, dfs)
	return c, nil
}

// Discount implements Curve.
func (c *ZeroCurve) Discount(t float64) float64 {
	if t <= 0 {
		return 1
	}
	n := len(c.times)
	i := sort.SearchFloat64s(c.times, t)
	switch {
	case i == 0:
		// Log-linear between (0, 1) and the first pillar.
		return math.Exp(math.Log(c.dfs[0]) * t / c.times[0])
	case i >= n:
		// Flat forward beyond the last pillar.
		fwd := math.Log(c.dfs[n-2]/c.dfs[n-1]) / (c.times[n-1] - c.times[n-2])
		return c.dfs[n-1] * math.Exp(-fwd*(t-c.times[n-1]))
	default:
		w := (t - c.times[i-1]) / (c.times[i] - c.times[i-1])
		return math.Exp((1-w)*math.Log(c.dfs[i-1]) + w*math.Log(c.dfs[i]))
	}
}

// FixingSeries stores historical index fixings by index name and fixing date.
type FixingSeries map[string]map[time.Time]float64

// Fixing returns the fixing of index on date, with ok reporting presence.
func (fs FixingSeries) Fixing(index string, date time.Time) (float64, bool) {
	m, ok := fs[index]
	if !ok {
		return 0, false
	}
	v, ok := m[date]
	return v, ok
}

// Environment bundles the valuation date, day count, discount curve and fixings a
// pricing call needs. It is read-only for the duration of the call.
type Environment struct {
	ValuationDate time.Time
	Currency      string
	Discount      Curve
	Fixings       FixingSeries
}

// Time converts a date to a year fraction from the valuation date on ACT/365F, the
// time basis of the model grids.
func (env *Environment) Time(d time.Time) float64 {
	return d.Sub(env.ValuationDate).Hours() / 24 / 365
}

// DiscountFactor returns the discount factor of a date.
func (env *Environment) DiscountFactor(d time.Time) float64 {
	return env.Discount.Discount(env.Time(d))
}

// Amount wraps a value in the environment currency.
func (env *Environment) Amount(v float64) Amount {
	return Amount{Currency: env.Currency, Value: v}
}
