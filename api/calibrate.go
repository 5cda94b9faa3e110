package api

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/marc-henrard/murisq-ir-models/calibrate"
	db "github.com/marc-henrard/murisq-ir-models/db/sqlc"
	"github.com/marc-henrard/murisq-ir-models/model"
	"github.com/marc-henrard/murisq-ir-models/product"
	"github.com/marc-henrard/murisq-ir-models/rates"
)

// Calibration runs are far more expensive than pricing calls, so each API key gets
// its own limiter.
var calibrateLimiters = struct {
	sync.Mutex
	m map[string]*rate.Limiter
}{m: make(map[string]*rate.Limiter)}

func getCalibrateLimiter(prefix string) *rate.Limiter {
	calibrateLimiters.Lock()
	defer calibrateLimiters.Unlock()
	limiter, ok := calibrateLimiters.m[prefix]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(time.Second), 2)
		calibrateLimiters.m[prefix] = limiter
	}
	return limiter
}

type calibrateInstrument struct {
	ExpiryDate string  `json:"expiry_date" binding:"required"`
	TenorYears int     `json:"tenor_years" binding:"required,min=1"`
	TargetVol  float64 `json:"target_vol" binding:"required,gt=0"`
}

type calibrateRequest struct {
	Mode          string                `json:"mode" binding:"required,oneof=level skew term"`
	MeanReversion float64               `json:"mean_reversion" binding:"required,gt=0"`
	Instruments   []calibrateInstrument `json:"instruments" binding:"required,min=1,dive"`
	Index         string                `json:"index" binding:"required"`
	FlatRate      float64               `json:"flat_rate"`
	Curve         *pillarCurve          `json:"curve"`
	Currency      string                `json:"currency"`
	ModelID       string                `json:"model_id"`
}

func (server *Server) calibrate(c *gin.Context) {
	prefix, exists := c.Get(prefixContextKey)
	if !exists {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse(errors.New("authentication error")))
		return
	}
	if !getCalibrateLimiter(prefix.(string)).Allow() {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, errorResponse(errors.New("too many requests")))
		return
	}

	var req calibrateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse(err))
		return
	}

	env, err := environment(req.FlatRate, req.Curve, req.Currency)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse(err))
		return
	}
	ins := make([]calibrate.Instrument, len(req.Instruments))
	for i, in := range req.Instruments {
		expiry, err := time.Parse(dateLayout, in.ExpiryDate)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse(err))
			return
		}
		ins[i] = calibrate.Instrument{
			Swaption: product.Swaption{
				Expiry:     expiry,
				Underlying: product.VanillaSwap(expiry, in.TenorYears, 2, req.FlatRate, 1, req.Index),
				Receiver:   true,
				TenorYears: in.TenorYears,
			},
			TargetVol: in.TargetVol,
		}
	}

	fitted, err := server.runCalibration(req, ins, env)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse(err))
		return
	}

	grid := fitted.Times()
	modelID := req.ModelID
	if modelID == "" {
		modelID = defaultModelID
	}
	saved, err := server.store.SaveParameterSet(c, db.SaveParameterSetParams{
		Date:          env.ValuationDate.Format(dateLayout),
		ModelID:       modelID,
		MeanReversion: fitted.MeanReversion(),
		Times:         grid[1 : len(grid)-1],
		Vols:          fitted.Volatilities(),
	})
	if err != nil {
		if err == sql.ErrNoRows {
			c.AbortWithStatusJSON(http.StatusNotFound, errorResponse(err))
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"parameters": saved})
}

func (server *Server) runCalibration(req calibrateRequest, ins []calibrate.Instrument, env *rates.Environment) (*model.HullWhite, error) {
	switch req.Mode {
	case "level":
		start, err := model.NewHullWhiteConstant(req.MeanReversion, 0.01)
		if err != nil {
			return nil, err
		}
		fitted, err := calibrate.Level(start, ins, env)
		if err != nil {
			return nil, err
		}
		return fitted.(*model.HullWhite), nil
	case "skew":
		if len(ins) != 2 {
			return nil, fmt.Errorf("skew calibration needs exactly two instruments, got %d", len(ins))
		}
		pivot := env.Time(ins[0].Swaption.Expiry)
		start, err := model.NewHullWhite(req.MeanReversion,
			[]float64{0, pivot, model.TimeInfinity}, []float64{0.01, 0.01})
		if err != nil {
			return nil, err
		}
		fitted, err := calibrate.Skew(start, ins, env)
		if err != nil {
			return nil, err
		}
		return fitted.(*model.HullWhite), nil
	case "term":
		start, err := model.NewHullWhiteConstant(req.MeanReversion, 0.01)
		if err != nil {
			return nil, err
		}
		return calibrate.TermStructure(start, ins, env)
	default:
		return nil, fmt.Errorf("unknown calibration mode %q", req.Mode)
	}
}
