// Package bachelier prices options under the normal model and inverts prices into
// implied normal volatilities, the quotation basis of the calibrators.
package bachelier

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

var stdNormal = distuv.Normal{Mu: 0, Sigma: 1}

// Price returns the undiscounted normal-model option price on a forward.
func Price(forward, strike, vol, expiry float64, call bool) float64 {
	omega := 1.0
	if !call {
		omega = -1.0
	}
	sd := vol * math.Sqrt(expiry)
	if sd <= 0 {
		return math.Max(omega*(forward-strike), 0)
	}
	d := omega * (forward - strike) / sd
	return omega*(forward-strike)*stdNormal.CDF(d) + sd*stdNormal.Prob(d)
}

// Vega returns the derivative of Price with respect to vol.
func Vega(forward, strike, vol, expiry float64) float64 {
	sd := vol * math.Sqrt(expiry)
	if sd <= 0 {
		return 0
	}
	d := (forward - strike) / sd
	return math.Sqrt(expiry) * stdNormal.Prob(d)
}

// ImpliedVol inverts Price for the volatility via Newton iterations with a bisection
// fallback. A price below intrinsic or failure to converge is an error.
func ImpliedVol(price, forward, strike, expiry float64, call bool) (float64, error) {
	omega := 1.0
	if !call {
		omega = -1.0
	}
	intrinsic := math.Max(omega*(forward-strike), 0)
	if price < intrinsic-1e-14 {
		return 0, fmt.Errorf("bachelier: price %v below intrinsic %v", price, intrinsic)
	}
	if expiry <= 0 {
		return 0, fmt.Errorf("bachelier: expiry must be positive, got %v", expiry)
	}

	// ATM expansion as starting point.
	vol := (price - intrinsic + 1e-12) * math.Sqrt(2*math.Pi/expiry)
	const tol = 1e-12
	for i := 0; i < 50; i++ {
		diff := Price(forward, strike, vol, expiry, call) - price
		if math.Abs(diff) < tol {
			return vol, nil
		}
		vega := Vega(forward, strike, vol, expiry)
		if vega < 1e-14 {
			break
		}
		step := diff / vega
		if vol-step <= 0 {
			vol /= 2
			continue
		}
		vol -= step
	}

	// Bisection fallback over a wide bracket.
	lo, hi := 0.0, math.Max(vol, 1.0)
	for Price(forward, strike, hi, expiry, call) < price {
		hi *= 2
		if hi > 1e6 {
			return 0, fmt.Errorf("bachelier: implied volatility search failed for price %v", price)
		}
	}
	for i := 0; i < 200; i++ {
		mid := 0.5 * (lo + hi)
		if Price(forward, strike, mid, expiry, call) < price {
			lo = mid
		} else {
			hi = mid
		}
		if hi-lo < tol {
			return 0.5 * (lo + hi), nil
		}
	}
	return 0, fmt.Errorf("bachelier: implied volatility did not converge for price %v", price)
}
