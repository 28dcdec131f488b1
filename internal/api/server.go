// Package api exposes import and reporting over HTTP.
package api

import (
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/cleared-dev/tally/internal/ingest"
	"github.com/cleared-dev/tally/internal/logger"
	"github.com/cleared-dev/tally/internal/report"
)

// Config wires the router.
type Config struct {
	Ingest         *ingest.Service
	Reports        *report.Service
	Gatherer       prometheus.Gatherer // nil disables /metrics
	AllowedOrigins []string            // "*" allows any origin
	Logger         zerolog.Logger
}

// Handler serves the JSON endpoints.
type Handler struct {
	ingest  *ingest.Service
	reports *report.Service
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(cfg Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(cfg.Logger), cors(cfg.AllowedOrigins))

	h := &Handler{ingest: cfg.Ingest, reports: cfg.Reports}
	RegisterRoutes(r, h)

	if cfg.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}
	return r
}

// RegisterRoutes mounts the /api endpoints on r.
func RegisterRoutes(r gin.IRouter, h *Handler) {
	api := r.Group("/api")
	api.GET("/health", h.Health)
	api.POST("/import/csv", h.ImportCSV)
	api.GET("/summary/monthly", h.MonthlySummary)
	api.GET("/top/merchants", h.TopMerchants)
	api.GET("/biggest", h.Biggest)
	api.GET("/fraud", h.Fraud)
}

// requestLogger logs one line per request and puts the logger on the
// request context for downstream code.
func requestLogger(base zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context(), base))
		c.Next()

		base.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

func cors(allowed []string) gin.HandlerFunc {
	allowAll := slices.Contains(allowed, "*")
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" && (allowAll || slices.Contains(allowed, origin)) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Vary", "Origin")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
