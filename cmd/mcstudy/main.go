// Command mcstudy runs the Monte Carlo convergence study of the CMS pricers: a flat
// curve, a constant-volatility Hull-White model and a 5y-fixing CMS coupon, priced
// analytically, by quadrature and by Monte Carlo over increasing path counts.
package main

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/marc-henrard/murisq-ir-models/cms"
	"github.com/marc-henrard/murisq-ir-models/model"
	"github.com/marc-henrard/murisq-ir-models/product"
	"github.com/marc-henrard/murisq-ir-models/rates"
)

const (
	meanReversion = 0.02
	volatility    = 0.01
	flatRate      = 0.02
	notional      = 1000000.0
	index         = "EUR-EURIBOR-3M"
)

var pathCounts = []int{1000, 10000, 100000, 1000000}

func main() {
	env := &rates.Environment{
		ValuationDate: time.Now().UTC().Truncate(24 * time.Hour),
		Currency:      "EUR",
		Discount:      rates.FlatCurve{Rate: flatRate},
		Fixings:       rates.FixingSeries{},
	}

	fixing := env.ValuationDate.AddDate(5, 0, 0)
	period := product.CMSPeriod{
		Payoff:       product.CMSCoupon,
		Notional:     notional,
		YearFraction: 1,
		FixingDate:   fixing,
		StartDate:    fixing,
		PayDate:      fixing.AddDate(0, 3, 0),
		Index:        index,
		Underlying:   product.VanillaSwap(fixing, 1, 4, flatRate, 1, index),
	}

	hw, err := model.NewHullWhiteConstant(meanReversion, volatility)
	if err != nil {
		fmt.Println(err)
		os.Exit(-1)
	}

	analytic, err := cms.Analytic{Model: hw}.Price(period, env)
	if err != nil {
		fmt.Println(err)
		os.Exit(-1)
	}
	oracle, err := cms.Quadrature{Model: hw}.Price(period, env)
	if err != nil {
		fmt.Println(err)
		os.Exit(-1)
	}
	fmt.Printf("analytic   %12.2f\n", analytic.Value)
	fmt.Printf("quadrature %12.2f\n", oracle.Value)

	times := []float64{env.Time(period.Underlying.Floating.Periods[0].Start)}
	for _, p := range period.Underlying.Floating.Periods {
		times = append(times, env.Time(p.Pay))
	}
	lmm, err := model.LMMFromHullWhite(hw, times, nil)
	if err != nil {
		fmt.Println(err)
		os.Exit(-1)
	}

	for _, paths := range pathCounts {
		bar := progressbar.Default(int64(paths), fmt.Sprintf("%d paths", paths))
		pricer := cms.MonteCarlo{
			Model: lmm,
			Paths: paths,
			Seed:  42,
			Progress: func(done int) {
				bar.Add(done)
			},
		}
		price, stderr, err := pricer.PriceWithError(period, env)
		if err != nil {
			fmt.Println(err)
			os.Exit(-1)
		}
		fmt.Printf("mc %8d  %12.2f  stderr %10.2f  |err| %10.2f\n",
			paths, price.Value, stderr, math.Abs(price.Value-analytic.Value))
	}
}
