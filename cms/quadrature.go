package cms

import (
	"gonum.org/v1/gonum/integrate/quad"

	"github.com/marc-henrard/murisq-ir-models/model"
	"github.com/marc-henrard/murisq-ir-models/product"
	"github.com/marc-henrard/murisq-ir-models/rates"
)

const defaultQuadNodes = 200

// Quadrature prices CMS periods by Gauss-Legendre integration of the exact payoff of
// the swap rate ratio against the standard Gaussian density. It is the accuracy oracle
// the Taylor expansion is checked against.
type Quadrature struct {
	Model *model.HullWhite
	// Nodes is the Gauss-Legendre node count; <= 0 selects defaultQuadNodes.
	Nodes int
}

// Price implements Pricer.
func (q Quadrature) Price(p product.CMSPeriod, env *rates.Environment) (rates.Amount, error) {
	if handled, amt, err := resolve(p, env); handled {
		return amt, err
	}
	r, err := newRatio(p, env, q.Model)
	if err != nil {
		return rates.Amount{}, err
	}
	nodes := q.Nodes
	if nodes <= 0 {
		nodes = defaultQuadNodes
	}
	// The integrand decays like the Gaussian density; twelve standard deviations is
	// far beyond double-precision support.
	const bound = 12.0
	v := quad.Fixed(func(x float64) float64 {
		return payoff(p.Payoff, p.Strike, r.Value(x)) * stdNormal.Prob(x)
	}, -bound, bound, nodes, quad.Legendre{}, 0)
	scale := p.Notional * p.YearFraction * env.DiscountFactor(p.PayDate)
	return env.Amount(scale * v), nil
}
