package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/use-agent/cfmarkdown/api/handler"
	"github.com/use-agent/cfmarkdown/api/middleware"
	"github.com/use-agent/cfmarkdown/config"
	"github.com/use-agent/cfmarkdown/emulator"
	"github.com/use-agent/cfmarkdown/metrics"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger → RequestID
//	API:     Auth (if enabled)
//
// Health, metrics and the emulator sit outside auth; the emulator checks its
// own bearer token the way the real provider does.
func NewRouter(fwd handler.Forwarder, cfg *config.Config, reg *prometheus.Registry, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())
	r.Use(middleware.RequestID())

	m := metrics.New(reg)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	apiGroup := r.Group("/api")
	apiGroup.GET("/health", handler.Health(startTime))

	protected := apiGroup.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.POST("/scrape", handler.Scrape(fwd, m))

	if cfg.Emulator.Enabled {
		emulator.Register(r.Group("/emulator/client/v4"), cfg.Emulator)
	}

	return r
}
