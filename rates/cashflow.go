package rates

import (
	"sort"
	"time"

	"github.com/marc-henrard/murisq-ir-models/product"
)

// Payment is a fixed amount paid on a date. Amounts multiply discount factors, so a
// floating leg decomposes into notional-style payments at its accrual boundaries.
type Payment struct {
	Date   time.Time
	Amount float64
}

// RateEvent records a rate computation the decomposition implies: the forward over
// [Effective, Maturity] of Index is observed even though the value is carried by the
// equivalent payments.
type RateEvent struct {
	Effective time.Time
	Maturity  time.Time
	Index     string
}

// CashFlowEquivalent is the dated-payment decomposition of a leg or swap: a list of
// discount-factor payments plus the rate events behind them. It is derived once per
// pricing call and discarded after use.
type CashFlowEquivalent struct {
	Payments []Payment
	Events   []RateEvent
}

func (cfe *CashFlowEquivalent) sortPayments() {
	sort.SliceStable(cfe.Payments, func(i, j int) bool {
		return cfe.Payments[i].Date.Before(cfe.Payments[j].Date)
	})
}

// PresentValue discounts the payments on the environment curve.
func (cfe CashFlowEquivalent) PresentValue(env *Environment) float64 {
	pv := 0.0
	for _, p := range cfe.Payments {
		pv += p.Amount * env.DiscountFactor(p.Date)
	}
	return pv
}

// Scaled returns a copy with every payment amount multiplied by k.
func (cfe CashFlowEquivalent) Scaled(k float64) CashFlowEquivalent {
	out := CashFlowEquivalent{
		Payments: make([]Payment, len(cfe.Payments)),
		Events:   cfe.Events,
	}
	for i, p := range cfe.Payments {
		out.Payments[i] = Payment{Date: p.Date, Amount: k * p.Amount}
	}
	return out
}

// FixedLegEquivalent decomposes a fixed leg into its coupon payments.
func FixedLegEquivalent(leg product.FixedLeg) CashFlowEquivalent {
	cfe := CashFlowEquivalent{Payments: make([]Payment, 0, len(leg.Periods))}
	for _, p := range leg.Periods {
		cfe.Payments = append(cfe.Payments, Payment{
			Date:   p.Pay,
			Amount: leg.Notional * leg.Coupon * p.AccrualFactor,
		})
	}
	return cfe
}

// FloatingLegEquivalent decomposes a floating leg into notional-style payments: each
// period contributes +spread x notional at its start and -notional at its payment date,
// the multiplicative-spread equivalent of receiving the index over the period.
func FloatingLegEquivalent(leg product.FloatingLeg) CashFlowEquivalent {
	cfe := CashFlowEquivalent{
		Payments: make([]Payment, 0, 2*len(leg.Periods)),
		Events:   make([]RateEvent, 0, len(leg.Periods)),
	}
	for j, p := range leg.Periods {
		cfe.Payments = append(cfe.Payments,
			Payment{Date: p.Start, Amount: leg.Notional * leg.Spread(j)},
			Payment{Date: p.Pay, Amount: -leg.Notional},
		)
		cfe.Events = append(cfe.Events, RateEvent{Effective: p.Start, Maturity: p.End, Index: leg.Index})
	}
	cfe.sortPayments()
	return cfe
}

// SwapEquivalent decomposes a swap into one dated payment list. Receiver means fixed
// flows enter positively and floating flows negatively.
func SwapEquivalent(s product.Swap, receiver bool) (CashFlowEquivalent, error) {
	if err := s.Validate(); err != nil {
		return CashFlowEquivalent{}, err
	}
	sign := 1.0
	if !receiver {
		sign = -1.0
	}
	fixed := FixedLegEquivalent(s.Fixed).Scaled(sign)
	float := FloatingLegEquivalent(s.Floating).Scaled(-sign)
	out := CashFlowEquivalent{
		Payments: append(fixed.Payments, float.Payments...),
		Events:   float.Events,
	}
	out.sortPayments()
	return out, nil
}

// SwapRateEquivalent decomposes the forward swap rate of s into a numerator (the
// floating leg payments) and a denominator (the fixed-leg annuity payments), both
// notional-scaled so the ratio is the swap rate.
func SwapRateEquivalent(s product.Swap) (num, den CashFlowEquivalent, err error) {
	if err := s.Validate(); err != nil {
		return CashFlowEquivalent{}, CashFlowEquivalent{}, err
	}
	num = FloatingLegEquivalent(s.Floating)
	den = CashFlowEquivalent{Payments: make([]Payment, 0, len(s.Fixed.Periods))}
	for _, p := range s.Fixed.Periods {
		den.Payments = append(den.Payments, Payment{
			Date:   p.Pay,
			Amount: s.Floating.Notional * p.AccrualFactor,
		})
	}
	return num, den, nil
}

// ForwardSwapRate returns the forward swap rate and the (undiscounted-by-notional)
// annuity present value of s on the environment curve.
func ForwardSwapRate(s product.Swap, env *Environment) (rate, annuity float64, err error) {
	num, den, err := SwapRateEquivalent(s)
	if err != nil {
		return 0, 0, err
	}
	annuity = den.PresentValue(env)
	rate = num.PresentValue(env) / annuity
	return rate, annuity, nil
}
