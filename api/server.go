// Package api exposes the HTTP boundary: the REST endpoints, the
// websocket push endpoint, and Prometheus metrics.
package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"weatherhub.app/cache"
	"weatherhub.app/distributor"
	"weatherhub.app/providers"
)

// Server holds the HTTP routing and its dependencies.
type Server struct {
	router      *gin.Engine
	cache       *cache.FreshnessCache
	failover    *providers.FailoverManager
	distributor *distributor.Distributor
}

// NewServer creates the server and registers all routes.
func NewServer(c *cache.FreshnessCache, fm *providers.FailoverManager, dist *distributor.Distributor) *Server {
	s := &Server{
		router:      gin.New(),
		cache:       c,
		failover:    fm,
		distributor: dist,
	}
	s.router.Use(gin.Recovery())
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.Group("/api")
	{
		api.GET("/weather", s.handleWeather)
		api.GET("/cache/stats", s.handleCacheStats)
		api.GET("/providers", s.handleProviders)
		api.POST("/providers/switch", s.handleProviderSwitch)
		api.POST("/sessions", s.handleCreateSession)
		api.GET("/sessions/:id/updates", s.handlePollUpdates)
		api.DELETE("/sessions/:id", s.handleDeleteSession)
	}

	s.router.GET("/ws", s.handleWebSocket)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// Router returns the configured gin engine.
func (s *Server) Router() *gin.Engine {
	return s.router
}
