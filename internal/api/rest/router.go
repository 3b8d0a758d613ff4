// Package rest provides the Gin-based HTTP surface: camera queries,
// refresh, the anonymous-submission relay, and metrics.
package rest

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/DukesR8/Camera-Database/internal/config"
	"github.com/DukesR8/Camera-Database/internal/metrics"
	"github.com/DukesR8/Camera-Database/internal/model"
	"github.com/DukesR8/Camera-Database/internal/query"
	"github.com/DukesR8/Camera-Database/internal/store"
)

// Server is the REST API server.
type Server struct {
	engine *gin.Engine
	store  *store.CameraStore
	cfg    *config.Settings
	relay  *Relay
	logger *zap.Logger
}

// New creates a REST Server.
func New(cs *store.CameraStore, cfg *config.Settings, logger *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	// Non-POST hits on /api/submit must get 405, not 404.
	engine.HandleMethodNotAllowed = true

	s := &Server{
		engine: engine,
		store:  cs,
		cfg:    cfg,
		relay:  NewRelay(cfg.Relay, logger),
		logger: logger,
	}
	s.registerRoutes()
	return s
}

// Start starts the REST server on addr.
func (s *Server) Start(addr string) error {
	s.logger.Info("REST API listening", zap.String("addr", addr))
	return s.engine.Run(addr)
}

// Handler exposes the router for tests and custom http.Server wiring.
func (s *Server) Handler() http.Handler { return s.engine }

// registerRoutes sets up the /camdb context path plus the relay.
func (s *Server) registerRoutes() {
	camdb := s.engine.Group("/camdb")

	// Swagger UI
	camdb.GET("/swagger-ui/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	cameras := camdb.Group("/cameras")
	{
		cameras.GET("", s.allCameras)
		cameras.GET("/near", s.camerasNear)
		cameras.GET("/type/:type", s.camerasByType)
		cameras.GET("/display", s.displayItems)
	}

	camdb.GET("/status", s.status)
	camdb.POST("/location", s.locationUpdate)
	camdb.POST("/refresh", s.refresh)

	// Anonymous submission relay; the POST-only constraint comes from
	// routing.
	s.engine.POST("/api/submit", s.relay.Submit)

	s.engine.GET("/metrics", gin.WrapH(metrics.Handler()))
}

// --- Camera handlers ---

// @Summary Current active camera dataset
// @Tags cameras
// @Produce json
// @Success 200 {array} model.Entry
// @Router /camdb/cameras [get]
func (s *Server) allCameras(c *gin.Context) {
	c.JSON(http.StatusOK, s.store.Snapshot().Entries)
}

func (s *Server) camerasNear(c *gin.Context) {
	loc, ok := s.parseLocation(c)
	if !ok {
		return
	}
	radius := s.cfg.Query.DefaultRadiusM
	if raw := c.Query("radius"); raw != "" {
		r, err := strconv.ParseFloat(raw, 64)
		if err != nil || r <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid radius"})
			return
		}
		radius = r
	}
	c.JSON(http.StatusOK, query.Near(s.store.Snapshot().Entries, loc, radius))
}

func (s *Server) camerasByType(c *gin.Context) {
	t := model.CameraType(c.Param("type"))
	if !t.Known() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown camera type"})
		return
	}
	c.JSON(http.StatusOK, query.ByType(s.store.Snapshot().Entries, t))
}

func (s *Server) displayItems(c *gin.Context) {
	loc, ok := s.parseLocation(c)
	if !ok {
		return
	}
	radius := s.cfg.Query.DefaultRadiusM
	if raw := c.Query("radius"); raw != "" {
		if r, err := strconv.ParseFloat(raw, 64); err == nil && r > 0 {
			radius = r
		}
	}
	limit := s.cfg.Query.DisplayCap
	if raw := c.Query("cap"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	c.JSON(http.StatusOK, query.ToDisplayItems(s.store.Snapshot().Entries, loc, radius, limit))
}

// --- Session handlers ---

func (s *Server) status(c *gin.Context) {
	snap := s.store.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"region":    snap.Region,
		"cameras":   len(snap.Entries),
		"loading":   snap.Loading,
		"error":     snap.ErrorMessage,
		"fetchedAt": snap.FetchedAt,
	})
}

func (s *Server) locationUpdate(c *gin.Context) {
	var loc model.Coordinate
	if err := c.ShouldBindJSON(&loc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if loc.Latitude < -90 || loc.Latitude > 90 || loc.Longitude < -180 || loc.Longitude > 180 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "coordinate out of range"})
		return
	}
	// A region change starts a load that outlives this request, and
	// net/http cancels the request context once the 202 is written.
	s.store.CheckLocationUpdate(context.WithoutCancel(c.Request.Context()), loc)
	c.JSON(http.StatusAccepted, gin.H{"result": true})
}

func (s *Server) refresh(c *gin.Context) {
	s.store.Refresh(c.Request.Context())
	snap := s.store.Snapshot()
	if snap.ErrorMessage != "" {
		c.JSON(http.StatusBadGateway, gin.H{"error": snap.ErrorMessage})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cameras": len(snap.Entries), "region": snap.Region})
}

func (s *Server) parseLocation(c *gin.Context) (model.Coordinate, bool) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lon, errLon := strconv.ParseFloat(c.Query("lon"), 64)
	if errLat != nil || errLon != nil || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat and lon query parameters are required"})
		return model.Coordinate{}, false
	}
	return model.Coordinate{Latitude: lat, Longitude: lon}, true
}
