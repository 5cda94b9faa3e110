package api

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/marc-henrard/murisq-ir-models/cms"
	db "github.com/marc-henrard/murisq-ir-models/db/sqlc"
	"github.com/marc-henrard/murisq-ir-models/model"
	"github.com/marc-henrard/murisq-ir-models/product"
	"github.com/marc-henrard/murisq-ir-models/rates"
	"github.com/marc-henrard/murisq-ir-models/swaption"
)

const (
	dateLayout     = "2006-01-02"
	defaultModelID = "hull-white"
)

// hullWhiteFromSet rebuilds the model grid around the stored interior boundaries.
func hullWhiteFromSet(ps db.ParameterSet) (*model.HullWhite, error) {
	grid := make([]float64, 0, len(ps.Times)+2)
	grid = append(grid, 0)
	grid = append(grid, ps.Times...)
	grid = append(grid, model.TimeInfinity)
	return model.NewHullWhite(ps.MeanReversion, grid, ps.Vols)
}

// loadHullWhite fetches the latest parameter set for modelID and rebuilds the model.
func (server *Server) loadHullWhite(c *gin.Context, modelID string) (*model.HullWhite, bool) {
	if modelID == "" {
		modelID = defaultModelID
	}
	ps, err := server.store.GetLatestParameterSet(c, modelID)
	if err != nil {
		if err == sql.ErrNoRows {
			c.AbortWithStatusJSON(http.StatusNotFound, errorResponse(err))
			return nil, false
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse(err))
		return nil, false
	}
	hw, err := hullWhiteFromSet(ps)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse(err))
		return nil, false
	}
	return hw, true
}

// pillarCurve is a discount curve given as pillar times (in years) and discount
// factors, interpolated log-linearly.
type pillarCurve struct {
	Times []float64 `json:"times" binding:"required,min=2"`
	Dfs   []float64 `json:"dfs" binding:"required,min=2"`
}

// environment builds the pricing environment: valuation today, the pillar discount
// curve when one is given (the flat rate otherwise) and the request currency (EUR by
// default).
func environment(flatRate float64, curve *pillarCurve, currency string) (*rates.Environment, error) {
	if currency == "" {
		currency = "EUR"
	}
	var discount rates.Curve = rates.FlatCurve{Rate: flatRate}
	if curve != nil {
		zc, err := rates.NewZeroCurve(curve.Times, curve.Dfs)
		if err != nil {
			return nil, err
		}
		discount = zc
	}
	today, _ := time.Parse(dateLayout, time.Now().Format(dateLayout))
	return &rates.Environment{
		ValuationDate: today,
		Currency:      currency,
		Discount:      discount,
		Fixings:       rates.FixingSeries{},
	}, nil
}

func parsePayoff(s string) (product.CMSPayoff, error) {
	switch s {
	case "coupon":
		return product.CMSCoupon, nil
	case "caplet":
		return product.CMSCaplet, nil
	case "floorlet":
		return product.CMSFloorlet, nil
	default:
		return 0, fmt.Errorf("unknown payoff %q", s)
	}
}

type cmsRequest struct {
	Payoff       string       `json:"payoff" binding:"required,oneof=coupon caplet floorlet"`
	Notional     float64      `json:"notional" binding:"required,gt=0"`
	YearFraction float64      `json:"year_fraction" binding:"required,gt=0"`
	Strike       float64      `json:"strike"`
	FixingDate   string       `json:"fixing_date" binding:"required"`
	PayDate      string       `json:"pay_date" binding:"required"`
	TenorYears   int          `json:"tenor_years" binding:"required,min=1"`
	Index        string       `json:"index" binding:"required"`
	FlatRate     float64      `json:"flat_rate"`
	Curve        *pillarCurve `json:"curve"`
	Currency     string       `json:"currency"`
	ModelID      string       `json:"model_id"`
}

func (server *Server) priceCMS(c *gin.Context) {
	var req cmsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse(err))
		return
	}
	payoff, err := parsePayoff(req.Payoff)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse(err))
		return
	}
	fixing, err := time.Parse(dateLayout, req.FixingDate)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse(err))
		return
	}
	pay, err := time.Parse(dateLayout, req.PayDate)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse(err))
		return
	}

	hw, ok := server.loadHullWhite(c, req.ModelID)
	if !ok {
		return
	}
	env, err := environment(req.FlatRate, req.Curve, req.Currency)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse(err))
		return
	}

	period := product.CMSPeriod{
		Payoff:       payoff,
		Notional:     req.Notional,
		YearFraction: req.YearFraction,
		Strike:       req.Strike,
		FixingDate:   fixing,
		StartDate:    fixing,
		PayDate:      pay,
		Index:        req.Index,
		Underlying:   product.VanillaSwap(fixing, req.TenorYears, 2, req.FlatRate, 1, req.Index),
	}
	price, err := cms.Analytic{Model: hw}.Price(period, env)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"contract": req, "price": price})
}

type swaptionRequest struct {
	ExpiryDate string       `json:"expiry_date" binding:"required"`
	TenorYears int          `json:"tenor_years" binding:"required,min=1"`
	Coupon     float64      `json:"coupon" binding:"required"`
	Receiver   bool         `json:"receiver"`
	Notional   float64      `json:"notional" binding:"required,gt=0"`
	Index      string       `json:"index" binding:"required"`
	FlatRate   float64      `json:"flat_rate"`
	Curve      *pillarCurve `json:"curve"`
	Currency   string       `json:"currency"`
	ModelID    string       `json:"model_id"`
}

func (server *Server) priceSwaption(c *gin.Context) {
	var req swaptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse(err))
		return
	}
	expiry, err := time.Parse(dateLayout, req.ExpiryDate)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse(err))
		return
	}

	hw, ok := server.loadHullWhite(c, req.ModelID)
	if !ok {
		return
	}
	env, err := environment(req.FlatRate, req.Curve, req.Currency)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse(err))
		return
	}

	sw := product.Swaption{
		Expiry:     expiry,
		Underlying: product.VanillaSwap(expiry, req.TenorYears, 2, req.Coupon, req.Notional, req.Index),
		Receiver:   req.Receiver,
		TenorYears: req.TenorYears,
	}
	price, err := swaption.Price(hw, sw, env)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse(err))
		return
	}
	vol, err := swaption.ImpliedVol(hw, sw, env)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"contract": req, "price": price, "implied_vol": vol})
}
