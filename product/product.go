// Package product holds the resolved, immutable product descriptions consumed by the
// pricers: swap legs, swaptions and CMS periods. Schedule and calendar generation is an
// external concern; products arrive here with their dates already resolved.
package product

import (
	"fmt"
	"time"
)

// Period is one accrual period of a leg with its resolved dates and accrual fraction.
type Period struct {
	Start         time.Time
	End           time.Time
	Pay           time.Time
	AccrualFactor float64
}

// FixedLeg pays Coupon on Notional over its periods.
type FixedLeg struct {
	Notional float64
	Coupon   float64
	Periods  []Period
}

// FloatingLeg pays the index rate on Notional over its periods. Spreads are the
// deterministic multiplicative discount-to-Ibor spreads, one per period; an empty
// slice means a single-curve setup.
type FloatingLeg struct {
	Notional float64
	Index    string
	Spreads  []float64
	Periods  []Period
}

// Spread returns the multiplicative spread of period j, defaulting to 1.
func (l FloatingLeg) Spread(j int) float64 {
	if len(l.Spreads) == 0 {
		return 1
	}
	return l.Spreads[j]
}

// Swap is a fixed-for-floating interest rate swap. Exactly one leg of each kind; pricers
// reject anything else.
type Swap struct {
	Fixed    FixedLeg
	Floating FloatingLeg
}

// Validate checks the leg structure of the swap.
func (s Swap) Validate() error {
	if len(s.Fixed.Periods) == 0 {
		return fmt.Errorf("product: swap fixed leg has no periods")
	}
	if len(s.Floating.Periods) == 0 {
		return fmt.Errorf("product: swap floating leg has no periods")
	}
	if len(s.Floating.Spreads) != 0 && len(s.Floating.Spreads) != len(s.Floating.Periods) {
		return fmt.Errorf("product: floating leg has %d spreads for %d periods",
			len(s.Floating.Spreads), len(s.Floating.Periods))
	}
	return nil
}

// Start returns the first accrual start across both legs.
func (s Swap) Start() time.Time {
	start := s.Fixed.Periods[0].Start
	if f := s.Floating.Periods[0].Start; f.Before(start) {
		start = f
	}
	return start
}

// Swaption is a European option to enter the underlying swap at Expiry.
// Receiver means the right to receive the fixed leg.
type Swaption struct {
	Expiry     time.Time
	Underlying Swap
	Receiver   bool
	// Tenor in years of the underlying, used for calibration instrument ordering.
	TenorYears int
}

// CMSPayoff selects the payoff applied to the observed swap rate.
type CMSPayoff int

const (
	// CMSCoupon pays the swap rate itself.
	CMSCoupon CMSPayoff = iota
	// CMSCaplet pays max(rate - Strike, 0).
	CMSCaplet
	// CMSFloorlet pays max(Strike - rate, 0).
	CMSFloorlet
)

// CMSPeriod is a coupon paying (a function of) the prevailing swap rate of a fixed
// tenor, observed at FixingDate and paid at PayDate on Notional x YearFraction.
type CMSPeriod struct {
	Payoff       CMSPayoff
	Notional     float64
	YearFraction float64
	Strike       float64
	FixingDate   time.Time
	StartDate    time.Time
	PayDate      time.Time
	Index        string
	Underlying   Swap
}

// CMSSpreadPeriod pays a function of the difference between two swap rates of distinct
// tenors, both observed at FixingDate. The strike applies to the rate difference
// First - Second.
type CMSSpreadPeriod struct {
	Payoff       CMSPayoff
	Notional     float64
	YearFraction float64
	Strike       float64
	FixingDate   time.Time
	StartDate    time.Time
	PayDate      time.Time
	Index        string
	First        Swap
	Second       Swap
}

// Schedule generates years x periodsPerYear consecutive periods from start with equal
// calendar spacing and ACT/365F accrual factors. It is a convenience for tests and
// demos; production schedules come resolved from the trade system.
func Schedule(start time.Time, years, periodsPerYear int) []Period {
	n := years * periodsPerYear
	months := 12 / periodsPerYear
	periods := make([]Period, n)
	prev := start
	for i := 0; i < n; i++ {
		next := start.AddDate(0, months*(i+1), 0)
		periods[i] = Period{
			Start:         prev,
			End:           next,
			Pay:           next,
			AccrualFactor: next.Sub(prev).Hours() / 24 / 365,
		}
		prev = next
	}
	return periods
}

// VanillaSwap builds a fixed-for-floating swap with annual fixed periods and the given
// floating frequency, both legs starting at start.
func VanillaSwap(start time.Time, tenorYears int, floatPeriodsPerYear int, coupon, notional float64, index string) Swap {
	return Swap{
		Fixed: FixedLeg{
			Notional: notional,
			Coupon:   coupon,
			Periods:  Schedule(start, tenorYears, 1),
		},
		Floating: FloatingLeg{
			Notional: notional,
			Index:    index,
			Periods:  Schedule(start, tenorYears, floatPeriodsPerYear),
		},
	}
}
