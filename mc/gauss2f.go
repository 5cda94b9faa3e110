package mc

import (
	"errors"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distmv"

	"github.com/marc-henrard/murisq-ir-models/model"
)

// TwoFactorSampler draws correlated terminal realizations of the two Gaussian factors
// of a two-factor additive Gaussian model, directly from their integrated covariance.
// It backs the Monte Carlo cross-checks of the analytic formulas.
type TwoFactorSampler struct {
	Model *model.Gaussian2F
}

// Sample returns paths draws of the factor pair integrated over [0, t].
func (s TwoFactorSampler) Sample(t float64, paths int, src rand.Source) ([][2]float64, error) {
	cov := s.Model.FactorCovariance(0, t)
	dist, ok := distmv.NewNormal([]float64{0, 0}, cov, src)
	if !ok {
		return nil, errors.New("mc: factor covariance is not positive definite")
	}
	out := make([][2]float64, paths)
	buf := make([]float64, 2)
	for i := range out {
		dist.Rand(buf)
		out[i][0], out[i][1] = buf[0], buf[1]
	}
	return out, nil
}
