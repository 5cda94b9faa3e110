package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	db "github.com/marc-henrard/murisq-ir-models/db/sqlc"
)

type parametersRequest struct {
	ModelID string `form:"model_id"`
	Date    string `form:"date"`
}

// getParameters returns a stored parameter set: the one calibrated on the requested
// date, or the latest one when no date is given.
func (server *Server) getParameters(c *gin.Context) {
	var req parametersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse(err))
		return
	}
	modelID := req.ModelID
	if modelID == "" {
		modelID = defaultModelID
	}

	var (
		ps  db.ParameterSet
		err error
	)
	if req.Date == "" {
		ps, err = server.store.GetLatestParameterSet(c, modelID)
	} else {
		if _, perr := time.Parse(dateLayout, req.Date); perr != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse(perr))
			return
		}
		ps, err = server.store.GetParameterSet(c, modelID, req.Date)
	}
	if err != nil {
		if err == sql.ErrNoRows {
			c.AbortWithStatusJSON(http.StatusNotFound, errorResponse(err))
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"parameters": ps})
}
