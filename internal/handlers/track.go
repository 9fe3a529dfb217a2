package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pagepulse/web-analytics-service/internal/models"
)

// RegisterTrackRoutes registers the ingestion-path endpoint.
//
// POST /api/track
// - Requires X-API-Key (enforced by the surrounding route group)
// - Body: {"type": "performance"|"seo"|"form"|"user", "data": {...}}
// - Durable: returns success only after the insert completes
// - A failed write is dropped; there is no retry or replay queue
func RegisterTrackRoutes(r gin.IRoutes, st Store, notifier Notifier, notifyOnIngest bool, log logrus.FieldLogger) {
	log = log.WithField("component", "track-handler")

	r.POST("/api/track", func(c *gin.Context) {
		var req models.TrackRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON payload"})
			return
		}

		ev, err := models.DecodeEvent(req)
		if err != nil {
			if errors.Is(err, models.ErrUnknownKind) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "unknown event type"})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx := c.Request.Context()
		var id int64
		switch ev.Kind {
		case models.KindPerformance:
			id, err = st.InsertPerformance(ctx, *ev.Performance)
		case models.KindSEO:
			id, err = st.InsertSEO(ctx, *ev.SEO)
		case models.KindForm:
			id, err = st.InsertForm(ctx, *ev.Form)
		case models.KindUser:
			id, err = st.InsertSession(ctx, *ev.User)
		}
		if err != nil {
			log.WithError(err).WithField("type", ev.Kind).Error("event insert failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db insert failed"})
			return
		}

		log.WithFields(logrus.Fields{"type": ev.Kind, "id": id}).Debug("event stored")

		// Optional push hint; the dashboard polls regardless.
		if notifyOnIngest && notifier != nil {
			notifier.NotifyRefresh()
		}

		c.JSON(http.StatusOK, gin.H{"success": true})
	})
}
