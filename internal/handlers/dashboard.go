package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// RegisterDashboardRoutes registers the serving-path endpoints.
//
// GET /api/dashboard      today's aggregates (server-local day)
// GET /api/performance    most recent 100 performance rows
// GET /api/seo            most recent 100 seo rows
// GET /api/forms          most recent 100 form submissions
// GET /api/users          most recent 100 session rows
//
// Any store failure surfaces as 500; the summary is all-or-nothing so the
// dashboard never renders a partially-populated object.
func RegisterDashboardRoutes(r gin.IRoutes, st Store, log logrus.FieldLogger) {
	log = log.WithField("component", "dashboard-handler")

	r.GET("/api/dashboard", func(c *gin.Context) {
		summary, err := st.DashboardSummary(c.Request.Context(), time.Now())
		if err != nil {
			log.WithError(err).Error("dashboard summary failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db query failed"})
			return
		}
		c.JSON(http.StatusOK, summary)
	})

	r.GET("/api/performance", func(c *gin.Context) {
		rows, err := st.ListPerformance(c.Request.Context(), listLimit)
		if err != nil {
			log.WithError(err).Error("performance listing failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db query failed"})
			return
		}
		c.JSON(http.StatusOK, rows)
	})

	r.GET("/api/seo", func(c *gin.Context) {
		rows, err := st.ListSEO(c.Request.Context(), listLimit)
		if err != nil {
			log.WithError(err).Error("seo listing failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db query failed"})
			return
		}
		c.JSON(http.StatusOK, rows)
	})

	r.GET("/api/forms", func(c *gin.Context) {
		rows, err := st.ListForms(c.Request.Context(), listLimit)
		if err != nil {
			log.WithError(err).Error("form listing failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db query failed"})
			return
		}
		c.JSON(http.StatusOK, rows)
	})

	r.GET("/api/users", func(c *gin.Context) {
		rows, err := st.ListSessions(c.Request.Context(), listLimit)
		if err != nil {
			log.WithError(err).Error("session listing failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db query failed"})
			return
		}
		c.JSON(http.StatusOK, rows)
	})
}
