// Package api exposes the pricing and calibration operations over HTTP: CMS period
// and swaption pricing off the latest stored parameter set, calibration runs that
// persist their result, and retrieval of stored parameter sets by model and date.
// Access is controlled by bearer API keys checked against the registrar table.
package api

import (
	"github.com/gin-gonic/gin"

	db "github.com/marc-henrard/murisq-ir-models/db/sqlc"
)

// Server serves HTTP requests for the rates pricing service.
type Server struct {
	store  db.Store
	router *gin.Engine
}

// NewServer creates a new HTTP server and sets up routing.
func NewServer(store db.Store) *Server {
	server := &Server{store: store}
	server.setupRouter()
	return server
}

func (server *Server) setupRouter() {
	router := gin.Default()

	authRoutes := router.Group("/v1").Use(server.authentication)
	authRoutes.POST("/cms/price", server.priceCMS)
	authRoutes.POST("/swaption/price", server.priceSwaption)
	authRoutes.POST("/calibrate", server.calibrate)
	authRoutes.GET("/parameters", server.getParameters)
	server.router = router
}

// Start runs the HTTP server on a specific address.
func (server *Server) Start(address string) error {
	return server.router.Run(address)
}

func errorResponse(err error) gin.H {
	return gin.H{"error": err.Error()}
}
