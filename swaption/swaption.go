// Package swaption prices European swaptions in the Gaussian short-rate models via the
// explicit exercise-boundary formula, exposes implied Bachelier volatility queries and
// the backward-sweep volatility sensitivities used by calibration and risk.
package swaption

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/marc-henrard/murisq-ir-models/bachelier"
	"github.com/marc-henrard/murisq-ir-models/model"
	"github.com/marc-henrard/murisq-ir-models/product"
	"github.com/marc-henrard/murisq-ir-models/rates"
)

var stdNormal = distuv.Normal{Mu: 0, Sigma: 1}

// flowTerm is one rebased payment of the underlying swap with its factor exposure.
type flowTerm struct {
	t     float64 // payment time
	pv    float64 // amount x P(0, t_i)
	gamma float64 // pv / P(0, theta)
	alpha float64 // factor volatility of ln P(theta, t_i) under the theta-forward measure
}

// terms decomposes the swaption's underlying into rebased flows under the expiry
// forward measure. alphaOf maps a payment time to its signed alpha.
func terms(sw product.Swaption, env *rates.Environment, alphaOf func(theta, ti float64) float64) (theta float64, flows []flowTerm, err error) {
	theta = env.Time(sw.Expiry)
	if theta <= 0 {
		return 0, nil, fmt.Errorf("swaption: expiry %s is not after the valuation date", sw.Expiry.Format("2006-01-02"))
	}
	cfe, err := rates.SwapEquivalent(sw.Underlying, sw.Receiver)
	if err != nil {
		return 0, nil, err
	}
	dfTheta := env.Discount.Discount(theta)
	flows = make([]flowTerm, 0, len(cfe.Payments))
	for _, p := range cfe.Payments {
		ti := env.Time(p.Date)
		pv := p.Amount * env.Discount.Discount(ti)
		flows = append(flows, flowTerm{
			t:     ti,
			pv:    pv,
			gamma: pv / dfTheta,
			alpha: alphaOf(theta, ti),
		})
	}
	return theta, flows, nil
}

// rebasedSum is B(x) = sum gamma_i exp(-alpha_i x - alpha_i^2/2), the value of the
// underlying at expiry as a function of the standardized factor.
func rebasedSum(flows []flowTerm, x float64) float64 {
	sum := 0.0
	for _, f := range flows {
		sum += f.gamma * math.Exp(-f.alpha*x-0.5*f.alpha*f.alpha)
	}
	return sum
}

// exerciseBoundary locates the root of the rebased flow sum by bisection. ok is false
// when the payoff does not change sign on the search interval, in which case the
// option is degenerate (worthless or pure forward).
func exerciseBoundary(flows []flowTerm) (kappa float64, below bool, ok bool) {
	const bound = 60.0
	lo, hi := -bound, bound
	blo, bhi := rebasedSum(flows, lo), rebasedSum(flows, hi)
	if blo*bhi > 0 {
		return 0, false, false
	}
	for i := 0; i < 200; i++ {
		mid := 0.5 * (lo + hi)
		bm := rebasedSum(flows, mid)
		if blo*bm <= 0 {
			hi = mid
		} else {
			lo, blo = mid, bm
		}
		if hi-lo < 1e-14 {
			break
		}
	}
	kappa = 0.5 * (lo + hi)
	// The payoff is positive below kappa when the sum is positive on the left.
	return kappa, blo > 0, true
}

// price prices the decomposed flows: sum c_i P(0,t_i) Phi(omega (kappa + alpha_i)).
func price(flows []flowTerm) float64 {
	kappa, below, ok := exerciseBoundary(flows)
	if !ok {
		intrinsic := 0.0
		for _, f := range flows {
			intrinsic += f.pv
		}
		return math.Max(intrinsic, 0)
	}
	omega := 1.0
	if !below {
		omega = -1.0
	}
	pv := 0.0
	for _, f := range flows {
		pv += f.pv * stdNormal.CDF(omega*(kappa+f.alpha))
	}
	return pv
}

// Price prices a European swaption in the one-factor Hull-White model.
func Price(hw *model.HullWhite, sw product.Swaption, env *rates.Environment) (rates.Amount, error) {
	_, flows, err := terms(sw, env, func(theta, ti float64) float64 {
		return hw.Alpha(0, theta, theta, ti)
	})
	if err != nil {
		return rates.Amount{}, err
	}
	return env.Amount(price(flows)), nil
}

// PriceGaussian2F prices a European swaption in the two-factor additive Gaussian model
// by projecting each flow's two-factor variance onto a single signed volatility. The
// projection is exact when the flow exposures are proportional across factors and is
// the standard efficient approximation otherwise.
func PriceGaussian2F(g *model.Gaussian2F, sw product.Swaption, env *rates.Environment) (rates.Amount, error) {
	_, flows, err := terms(sw, env, func(theta, ti float64) float64 {
		tv := g.TotalVariance(0, theta, theta, ti)
		if ti < theta {
			return -math.Sqrt(tv)
		}
		return math.Sqrt(tv)
	})
	if err != nil {
		return rates.Amount{}, err
	}
	return env.Amount(price(flows)), nil
}

// ModelPrice prices the swaption under any supported model variant.
func ModelPrice(m model.ParameterizedModel, sw product.Swaption, env *rates.Environment) (rates.Amount, error) {
	switch mm := m.(type) {
	case *model.HullWhite:
		return Price(mm, sw, env)
	case *model.Gaussian2F:
		return PriceGaussian2F(mm, sw, env)
	default:
		return rates.Amount{}, fmt.Errorf("swaption: no analytic pricer for model %T", m)
	}
}

// ImpliedVol returns the Bachelier implied volatility of the swaption's model price.
func ImpliedVol(m model.ParameterizedModel, sw product.Swaption, env *rates.Environment) (float64, error) {
	pv, err := ModelPrice(m, sw, env)
	if err != nil {
		return 0, err
	}
	forward, annuity, err := rates.ForwardSwapRate(sw.Underlying, env)
	if err != nil {
		return 0, err
	}
	theta := env.Time(sw.Expiry)
	// A payer swaption is a call on the swap rate, a receiver a put.
	return bachelier.ImpliedVol(pv.Value/annuity, forward, sw.Underlying.Fixed.Coupon, theta, !sw.Receiver)
}

// VolBucketSensitivities prices the swaption in the Hull-White model and accumulates
// the derivative of the price with respect to every volatility bucket by an explicit
// backward sweep through the named intermediates (alphaBar, then etaBar). The exercise
// boundary contributes nothing: the kappa partial is a multiple of the rebased flow
// sum, which is zero at the boundary by construction.
func VolBucketSensitivities(hw *model.HullWhite, sw product.Swaption, env *rates.Environment) (float64, []float64, error) {
	theta, flows, err := terms(sw, env, func(th, ti float64) float64 {
		return hw.Alpha(0, th, th, ti)
	})
	if err != nil {
		return 0, nil, err
	}
	kappa, below, ok := exerciseBoundary(flows)
	nVols := len(hw.Volatilities())
	if !ok {
		intrinsic := 0.0
		for _, f := range flows {
			intrinsic += f.pv
		}
		return math.Max(intrinsic, 0), make([]float64, nVols), nil
	}
	omega := 1.0
	if !below {
		omega = -1.0
	}

	// Forward sweep.
	pv := 0.0
	for _, f := range flows {
		pv += f.pv * stdNormal.CDF(omega*(kappa+f.alpha))
	}

	// Backward sweep. pvBar = 1.
	etaBar := make([]float64, nVols)
	for _, f := range flows {
		alphaBar := f.pv * omega * stdNormal.Prob(omega*(kappa+f.alpha))
		if f.alpha == 0 {
			continue
		}
		_, alpha2Partials := hw.Alpha2Partials(0, theta, theta, f.t)
		// d alpha / d eta_b = d alpha^2 / d eta_b / (2 alpha), valid for signed alpha.
		for b := range etaBar {
			etaBar[b] += alphaBar * alpha2Partials[b] / (2 * f.alpha)
		}
	}
	return pv, etaBar, nil
}
