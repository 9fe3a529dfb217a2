package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pagepulse/web-analytics-service/internal/auth"
	"github.com/pagepulse/web-analytics-service/internal/config"
	"github.com/pagepulse/web-analytics-service/internal/handlers"
	"github.com/pagepulse/web-analytics-service/internal/ws"
)

const (
	serviceName    = "web-analytics-collector"
	serviceVersion = "1.0.0"
)

// NewRouter wires the HTTP surface.
//
// Public:        GET /api/health, GET /ready, GET / (websocket upgrade),
//                GET /api/dashboard and the four listing endpoints
// Keyed (X-API-Key): POST /api/track
//
// Only ingestion is keyed; the read side serves the dashboard, which sits
// in the same trust zone as the collector.
func NewRouter(cfg config.Config, st handlers.Store, hub *ws.Hub, log logrus.FieldLogger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())

	// Liveness plus a best-effort database probe. A dead database is
	// reported in the body, not as a failed endpoint.
	r.GET("/api/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()

		dbStatus := "ok"
		if err := st.Ping(ctx); err != nil {
			dbStatus = "unreachable"
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"service":   serviceName,
			"version":   serviceVersion,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"database":  dbStatus,
		})
	})

	// Readiness: confirms the DB dependency is reachable.
	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()

		if err := st.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	// Push channel for dashboard refresh hints.
	r.GET("/", func(c *gin.Context) {
		hub.HandleConnection(c.Writer, c.Request)
	})

	handlers.RegisterDashboardRoutes(r, st, log)

	ingestGroup := r.Group("/")
	ingestGroup.Use(auth.APIKeyMiddleware(cfg.APIKeys))
	handlers.RegisterTrackRoutes(ingestGroup, st, hub, cfg.NotifyOnIngest, log)

	return r
}

// New builds the http.Server that serves the router. Write deadlines do not
// affect websocket connections; the upgrader clears them after hijacking.
func New(addr string, router *gin.Engine) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}
