package handlers

import (
	"context"
	"time"

	"github.com/pagepulse/web-analytics-service/internal/models"
)

// Store is the persistence surface the handlers depend on. The concrete
// implementation is store.PostgresStore; tests substitute a fake.
type Store interface {
	InsertPerformance(ctx context.Context, ev models.PerformancePayload) (int64, error)
	InsertSEO(ctx context.Context, ev models.SEOPayload) (int64, error)
	InsertForm(ctx context.Context, ev models.FormPayload) (int64, error)
	InsertSession(ctx context.Context, ev models.UserPayload) (int64, error)

	ListPerformance(ctx context.Context, limit int) ([]models.PerformanceRow, error)
	ListSEO(ctx context.Context, limit int) ([]models.SEORow, error)
	ListForms(ctx context.Context, limit int) ([]models.FormRow, error)
	ListSessions(ctx context.Context, limit int) ([]models.SessionRow, error)

	DashboardSummary(ctx context.Context, day time.Time) (models.DashboardSummary, error)
	Ping(ctx context.Context) error
}

// Notifier is the push channel used to hint connected dashboards that
// fresher data may be available.
type Notifier interface {
	NotifyRefresh()
}

// listLimit is the fixed page size for the listing endpoints. There is no
// cursor; the dashboard only shows the latest page.
const listLimit = 100
