// Package cms prices CMS coupons, caplets and floorlets with three interchangeable
// strategies sharing one cash-flow-equivalent decomposition: a closed-form Taylor
// expansion (the default), Gauss-Legendre quadrature of the exact payoff (the accuracy
// oracle) and Monte Carlo on the displaced-diffusion LMM terminal sampler.
package cms

import (
	"fmt"
	"math"

	"github.com/marc-henrard/murisq-ir-models/model"
	"github.com/marc-henrard/murisq-ir-models/product"
	"github.com/marc-henrard/murisq-ir-models/rates"
)

// Pricer is the common contract of the three strategies.
type Pricer interface {
	Price(p product.CMSPeriod, env *rates.Environment) (rates.Amount, error)
}

// payoff applies the period payoff to an observed swap rate.
func payoff(p product.CMSPayoff, strike, rate float64) float64 {
	switch p {
	case product.CMSCaplet:
		return math.Max(rate-strike, 0)
	case product.CMSFloorlet:
		return math.Max(strike-rate, 0)
	default:
		return rate
	}
}

// resolve handles the degenerate period states shared by all pricers: a period whose
// payment date has passed prices to zero, and a period already fixed prices off the
// historical fixing, which must be present.
func resolve(p product.CMSPeriod, env *rates.Environment) (handled bool, amt rates.Amount, err error) {
	if p.PayDate.Before(env.ValuationDate) {
		return true, env.Amount(0), nil
	}
	if !p.FixingDate.After(env.ValuationDate) {
		fixing, ok := env.Fixings.Fixing(p.Index, p.FixingDate)
		if !ok {
			return true, rates.Amount{}, fmt.Errorf("cms: missing %s fixing on %s",
				p.Index, p.FixingDate.Format("2006-01-02"))
		}
		v := p.Notional * p.YearFraction * payoff(p.Payoff, p.Strike, fixing) * env.DiscountFactor(p.PayDate)
		return true, env.Amount(v), nil
	}
	return false, rates.Amount{}, nil
}

// coef is one exponential term of the rebased flow sums.
type coef struct {
	w     float64 // amount x P(0,t_i) / P(0,t_pay)
	alpha float64 // volatility of ln P(theta, t_i) relative to the payment-date numeraire
}

// ratio is the swap rate at expiry as a ratio of two sums of exponential terms in the
// standardized driving factor, A(x) = B(x)/C(x), under the payment-date forward measure.
type ratio struct {
	b, c []coef
}

// newRatio builds the B/C construction of the period's underlying swap rate from its
// cash-flow-equivalent decomposition under the Hull-White model.
func newRatio(p product.CMSPeriod, env *rates.Environment, hw *model.HullWhite) (*ratio, error) {
	num, den, err := rates.SwapRateEquivalent(p.Underlying)
	if err != nil {
		return nil, err
	}
	theta := env.Time(p.FixingDate)
	tp := env.Time(p.PayDate)
	dfPay := env.Discount.Discount(tp)
	build := func(cfe rates.CashFlowEquivalent) []coef {
		out := make([]coef, 0, len(cfe.Payments))
		for _, pay := range cfe.Payments {
			ti := env.Time(pay.Date)
			out = append(out, coef{
				w:     pay.Amount * env.Discount.Discount(ti) / dfPay,
				alpha: hw.Alpha(0, theta, tp, ti),
			})
		}
		return out
	}
	return &ratio{b: build(num), c: build(den)}, nil
}

// sums evaluates a coefficient list and its first three derivatives at x.
func sums(cs []coef, x float64) (s, d1, d2, d3 float64) {
	for _, c := range cs {
		e := c.w * math.Exp(-c.alpha*x-0.5*c.alpha*c.alpha)
		a := c.alpha
		s += e
		d1 -= a * e
		d2 += a * a * e
		d3 -= a * a * a * e
	}
	return s, d1, d2, d3
}

// Value returns A(x).
func (r *ratio) Value(x float64) float64 {
	b, _, _, _ := sums(r.b, x)
	c, _, _, _ := sums(r.c, x)
	return b / c
}

// Derivatives returns A(x), A'(x) and A''(x) in closed form.
func (r *ratio) Derivatives(x float64) (a0, a1, a2 float64) {
	b, b1, b2, _ := sums(r.b, x)
	c, c1, c2, _ := sums(r.c, x)
	a0 = b / c
	a1 = b1/c - b*c1/(c*c)
	a2 = b2/c - (2*b1*c1+b*c2)/(c*c) + 2*b*c1*c1/(c*c*c)
	return a0, a1, a2
}

// ThirdDerivative approximates A'''(x) by a central finite difference of A'' with
// shift 1e-4; no analytic third derivative is implemented.
func (r *ratio) ThirdDerivative(x float64) float64 {
	const shift = 1e-4
	_, _, up := r.Derivatives(x + shift)
	_, _, dn := r.Derivatives(x - shift)
	return (up - dn) / (2 * shift)
}
