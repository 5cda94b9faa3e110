package swaption

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"

	"github.com/marc-henrard/murisq-ir-models/mc"
	"github.com/marc-henrard/murisq-ir-models/model"
	"github.com/marc-henrard/murisq-ir-models/product"
	"github.com/marc-henrard/murisq-ir-models/rates"
)

const testIndex = "EUR-EURIBOR-6M"

func testEnv() *rates.Environment {
	return &rates.Environment{
		ValuationDate: time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC),
		Currency:      "EUR",
		Discount:      rates.FlatCurve{Rate: 0.02},
		Fixings:       rates.FixingSeries{},
	}
}

func testSwaption(env *rates.Environment, expiryYears, tenorYears int, coupon float64, receiver bool) product.Swaption {
	expiry := env.ValuationDate.AddDate(expiryYears, 0, 0)
	return product.Swaption{
		Expiry:     expiry,
		Underlying: product.VanillaSwap(expiry, tenorYears, 2, coupon, 100, testIndex),
		Receiver:   receiver,
		TenorYears: tenorYears,
	}
}

func testHullWhite(t *testing.T) *model.HullWhite {
	t.Helper()
	hw, err := model.NewHullWhite(0.02, []float64{0, 2, 5, model.TimeInfinity}, []float64{0.009, 0.01, 0.011})
	require.NoError(t, err)
	return hw
}

func TestPriceReceiverPayerParity(t *testing.T) {
	env := testEnv()
	hw := testHullWhite(t)
	const coupon = 0.022

	payer := testSwaption(env, 3, 7, coupon, false)
	receiver := testSwaption(env, 3, 7, coupon, true)

	pvPayer, err := Price(hw, payer, env)
	require.NoError(t, err)
	pvReceiver, err := Price(hw, receiver, env)
	require.NoError(t, err)

	// Receiver minus payer is the forward receiver swap value.
	cfe, err := rates.SwapEquivalent(payer.Underlying, true)
	require.NoError(t, err)
	require.InDelta(t, cfe.PresentValue(env), pvReceiver.Value-pvPayer.Value, 1e-9)
}

func TestPriceMonotoneInStrike(t *testing.T) {
	env := testEnv()
	hw := testHullWhite(t)

	var prev float64
	for i, coupon := range []float64{0.015, 0.02, 0.025, 0.03} {
		pv, err := Price(hw, testSwaption(env, 5, 5, coupon, true), env)
		require.NoError(t, err)
		require.Greater(t, pv.Value, 0.0)
		if i > 0 {
			// A receiver swaption gains value as the fixed coupon rises.
			require.Greater(t, pv.Value, prev)
		}
		prev = pv.Value
	}
}

func TestPriceRejectsPastExpiry(t *testing.T) {
	env := testEnv()
	sw := testSwaption(env, 3, 5, 0.02, true)
	sw.Expiry = env.ValuationDate.AddDate(0, 0, -1)
	_, err := Price(testHullWhite(t), sw, env)
	require.Error(t, err)
}

func TestImpliedVolRoundTrip(t *testing.T) {
	env := testEnv()
	hw := testHullWhite(t)

	for _, receiver := range []bool{true, false} {
		sw := testSwaption(env, 4, 6, 0.021, receiver)
		vol, err := ImpliedVol(hw, sw, env)
		require.NoError(t, err)
		// The normal vol of the swap rate is of the order of the short-rate vols
		// amplified by the exercise decay; a loose sanity band is enough.
		require.Greater(t, vol, 1e-4)
		require.Less(t, vol, 0.1)
	}
}

func TestGaussian2FCollapsesToHullWhite(t *testing.T) {
	env := testEnv()
	hw := testHullWhite(t)

	// A second factor with negligible volatility reproduces the one-factor price.
	g, err := model.NewGaussian2F(0.02, 0.5, 0,
		[]float64{0, 2, 5, model.TimeInfinity},
		[]float64{0.009, 0.01, 0.011},
		[]float64{1e-9, 1e-9, 1e-9})
	require.NoError(t, err)

	sw := testSwaption(env, 3, 7, 0.022, true)
	want, err := Price(hw, sw, env)
	require.NoError(t, err)
	got, err := PriceGaussian2F(g, sw, env)
	require.NoError(t, err)
	require.InEpsilon(t, want.Value, got.Value, 1e-6)
}

func TestPriceGaussian2FMatchesMonteCarlo(t *testing.T) {
	env := testEnv()
	g, err := model.NewGaussian2F(0.02, 0.3, -0.3,
		[]float64{0, 2, 5, model.TimeInfinity},
		[]float64{0.009, 0.01, 0.011},
		[]float64{0.005, 0.006, 0.006})
	require.NoError(t, err)

	sw := testSwaption(env, 5, 5, 0.021, true)
	want, err := PriceGaussian2F(g, sw, env)
	require.NoError(t, err)

	// Rebuild the payoff from the rebased flows under the expiry forward measure and
	// price it on correlated terminal factor draws.
	theta := env.Time(sw.Expiry)
	cfe, err := rates.SwapEquivalent(sw.Underlying, sw.Receiver)
	require.NoError(t, err)
	type mcTerm struct{ pv, halfVar, h1, h2 float64 }
	rebased := make([]mcTerm, 0, len(cfe.Payments))
	for _, p := range cfe.Payments {
		ti := env.Time(p.Date)
		h1, h2 := g.DiscountFactorShift(theta, ti)
		rebased = append(rebased, mcTerm{
			pv:      p.Amount * env.Discount.Discount(ti),
			halfVar: 0.5 * g.TotalVariance(0, theta, theta, ti),
			h1:      h1,
			h2:      h2,
		})
	}

	draws, err := mc.TwoFactorSampler{Model: g}.Sample(theta, 200000, rand.NewSource(3))
	require.NoError(t, err)
	sum := 0.0
	for _, d := range draws {
		v := 0.0
		for _, tm := range rebased {
			v += tm.pv * math.Exp(-tm.halfVar-tm.h1*d[0]-tm.h2*d[1])
		}
		if v > 0 {
			sum += v
		}
	}
	got := sum / float64(len(draws))
	require.InEpsilon(t, want.Value, got, 2e-2)
}

func TestModelPriceDispatch(t *testing.T) {
	env := testEnv()
	sw := testSwaption(env, 3, 5, 0.02, true)

	hw := testHullWhite(t)
	fromDispatch, err := ModelPrice(hw, sw, env)
	require.NoError(t, err)
	direct, err := Price(hw, sw, env)
	require.NoError(t, err)
	require.Equal(t, direct, fromDispatch)

	lmm, err := model.LMMFromHullWhite(hw, []float64{1, 2}, nil)
	require.NoError(t, err)
	_, err = ModelPrice(lmm, sw, env)
	require.Error(t, err)
}

func TestVolBucketSensitivitiesMatchBumps(t *testing.T) {
	env := testEnv()
	hw := testHullWhite(t)
	sw := testSwaption(env, 3, 7, 0.022, true)

	pv, grad, err := VolBucketSensitivities(hw, sw, env)
	require.NoError(t, err)
	require.Len(t, grad, 3)

	base, err := Price(hw, sw, env)
	require.NoError(t, err)
	require.InDelta(t, base.Value, pv, 1e-12)

	const shift = 1e-6
	for b := 0; b < 3; b++ {
		// Volatility buckets sit after the mean reversion in the parameter order.
		up, err := hw.WithParameterTyped(1+b, hw.Parameter(1+b)+shift)
		require.NoError(t, err)
		dn, err := hw.WithParameterTyped(1+b, hw.Parameter(1+b)-shift)
		require.NoError(t, err)
		pvUp, err := Price(up, sw, env)
		require.NoError(t, err)
		pvDn, err := Price(dn, sw, env)
		require.NoError(t, err)
		fd := (pvUp.Value - pvDn.Value) / (2 * shift)
		if fd == 0 {
			// A bucket wholly past expiry carries no sensitivity; InEpsilon
			// cannot compare against an expected value of zero.
			require.InDelta(t, fd, grad[b], 1e-9)
		} else {
			require.InEpsilon(t, fd, grad[b], 1e-4)
		}
	}
}
