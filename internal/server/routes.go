package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/overlayctl/internal/observability"
)

const version = "0.1.0"

func newEngine(id string, corsOrigins []string) *gin.Engine {
	observability.RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger.With().Str("service", id).Logger()))
	r.Use(observability.RequestMetricsMiddleware())
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(corsOrigins),
		AllowMethods: []string{"GET"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})
	return r
}

func (s *Service) registerRoutes() {
	r := s.http
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.started).String(),
			"service": s.cfg.ServiceID,
			"version": version,
		})
	})

	r.GET("/ready", func(c *gin.Context) {
		ready, reason := s.ready(c)
		status := http.StatusOK
		if !ready {
			status = http.StatusServiceUnavailable
		}
		body := gin.H{
			"ready":   ready,
			"service": s.cfg.ServiceID,
			"clients": s.hub.Len(),
		}
		if reason != "" {
			body["reason"] = reason
		}
		c.JSON(status, body)
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/worlds", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"worlds": s.worlds.Names()})
	})

	r.GET("/catalog", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"appearances": s.catalog.Tags()})
	})

	r.GET("/sessions", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"sessions":  s.sessions.Snapshot(),
			"connected": s.hub.Clients(),
		})
	})

	r.GET("/ws", gin.WrapH(s.hub))
}

// ready reports whether the external store, when enabled, answers.
func (s *Service) ready(c *gin.Context) (bool, string) {
	if s.rdb == nil {
		return true, ""
	}
	if err := s.rdb.Ping(c.Request.Context()).Err(); err != nil {
		return false, err.Error()
	}
	return true, ""
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
