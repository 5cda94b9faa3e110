package cms

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/marc-henrard/murisq-ir-models/model"
	"github.com/marc-henrard/murisq-ir-models/product"
	"github.com/marc-henrard/murisq-ir-models/rates"
)

var stdNormal = distuv.Normal{Mu: 0, Sigma: 1}

// Analytic is the default CMS pricer: a second-order Taylor expansion of the swap rate
// ratio for coupons, and closed-form Gaussian integrals of the order 1-3 Taylor terms
// around the exercise boundary for caplets and floorlets. A fourth-order term is
// deliberately not implemented; the quadrature pricer is the accuracy oracle.
type Analytic struct {
	Model *model.HullWhite
}

// Price implements Pricer.
func (a Analytic) Price(p product.CMSPeriod, env *rates.Environment) (rates.Amount, error) {
	if handled, amt, err := resolve(p, env); handled {
		return amt, err
	}
	r, err := newRatio(p, env, a.Model)
	if err != nil {
		return rates.Amount{}, err
	}
	scale := p.Notional * p.YearFraction * env.DiscountFactor(p.PayDate)

	if p.Payoff == product.CMSCoupon {
		a0, _, a2 := r.Derivatives(0)
		// E[A(X)] to second order: A(0) + A''(0)/2, X standard normal.
		return env.Amount(scale * (a0 + 0.5*a2)), nil
	}

	kappa, err := r.exerciseBoundary(p.Strike)
	if err != nil {
		// The rate never crosses the strike on the integration domain: the option is
		// either worthless or a pure forward, priced off the coupon expansion.
		a0, _, a2 := r.Derivatives(0)
		expected := a0 + 0.5*a2
		v := 0.0
		switch p.Payoff {
		case product.CMSCaplet:
			if r.Value(0) > p.Strike {
				v = expected - p.Strike
			}
		case product.CMSFloorlet:
			if r.Value(0) < p.Strike {
				v = p.Strike - expected
			}
		}
		return env.Amount(scale * v), nil
	}

	_, a1, a2 := r.Derivatives(kappa)
	a3 := r.ThirdDerivative(kappa)

	// Integration region: where the payoff is positive. For a caplet that is the side
	// of kappa where A exceeds the strike.
	capAbove := a1 > 0
	above := capAbove
	if p.Payoff == product.CMSFloorlet {
		above = !above
	}
	sign := 1.0
	if p.Payoff == product.CMSFloorlet {
		sign = -1.0
	}

	m1 := partialMoment(1, kappa, above)
	m2 := partialMoment(2, kappa, above)
	m3 := partialMoment(3, kappa, above)
	v := sign * (a1*m1 + a2*m2/2 + a3*m3/6)
	return env.Amount(scale * v), nil
}

// exerciseBoundary solves A(kappa) = strike by Newton iterations with a bisection
// fallback over the effective integration domain.
func (r *ratio) exerciseBoundary(strike float64) (float64, error) {
	x := 0.0
	for i := 0; i < 50; i++ {
		a0, a1, _ := r.Derivatives(x)
		diff := a0 - strike
		if math.Abs(diff) < 1e-14 {
			return x, nil
		}
		if a1 == 0 || math.Abs(x) > 1e3 {
			break
		}
		x -= diff / a1
	}
	const bound = 60.0
	lo, hi := -bound, bound
	flo := r.Value(lo) - strike
	if flo*(r.Value(hi)-strike) > 0 {
		return 0, fmt.Errorf("cms: swap rate does not cross strike %v on the integration domain", strike)
	}
	for i := 0; i < 200; i++ {
		mid := 0.5 * (lo + hi)
		if flo*(r.Value(mid)-strike) <= 0 {
			hi = mid
		} else {
			lo, flo = mid, r.Value(mid)-strike
		}
		if hi-lo < 1e-13 {
			break
		}
	}
	return 0.5 * (lo + hi), nil
}

// partialMoment returns the integral of (x-kappa)^n against the standard Gaussian
// density over (-inf, kappa] or [kappa, +inf).
func partialMoment(n int, kappa float64, above bool) float64 {
	phi := stdNormal.Prob(kappa)
	cdf := stdNormal.CDF(kappa)
	var below, full float64
	switch n {
	case 1:
		below = -phi - kappa*cdf
		full = -kappa
	case 2:
		below = (1+kappa*kappa)*cdf + kappa*phi
		full = 1 + kappa*kappa
	case 3:
		below = -(kappa*kappa+2)*phi - (3*kappa+kappa*kappa*kappa)*cdf
		full = -(3*kappa + kappa*kappa*kappa)
	default:
		below = cdf
		full = 1
	}
	if above {
		return full - below
	}
	return below
}
