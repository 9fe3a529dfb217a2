package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/pagepulse/web-analytics-service/internal/models"
)

// fakeStore is an in-memory Store used by handler tests. Setting failAll
// makes every operation return the given error, mimicking a dead database.
type fakeStore struct {
	mu sync.Mutex

	performance []models.PerformanceRow
	seo         []models.SEORow
	forms       []models.FormRow
	sessions    []models.SessionRow

	summary models.DashboardSummary
	failAll error

	nextID int64
}

func newFakeStore() *fakeStore { return &fakeStore{} }

func (f *fakeStore) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) rowCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.performance) + len(f.seo) + len(f.forms) + len(f.sessions)
}

func (f *fakeStore) InsertPerformance(_ context.Context, ev models.PerformancePayload) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return 0, f.failAll
	}
	id := f.id()
	f.performance = append(f.performance, models.PerformanceRow{
		ID:         id,
		PageURL:    ev.PageURL,
		LoadTime:   ev.LoadTime,
		DeviceType: ev.DeviceType,
		CreatedAt:  time.Now(),
	})
	return id, nil
}

func (f *fakeStore) InsertSEO(_ context.Context, ev models.SEOPayload) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return 0, f.failAll
	}
	id := f.id()
	f.seo = append(f.seo, models.SEORow{
		ID:        id,
		PageURL:   ev.PageURL,
		Title:     ev.Title,
		CreatedAt: time.Now(),
	})
	return id, nil
}

func (f *fakeStore) InsertForm(_ context.Context, ev models.FormPayload) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return 0, f.failAll
	}
	id := f.id()
	f.forms = append(f.forms, models.FormRow{
		ID:               id,
		FormType:         ev.FormType,
		PageURL:          ev.PageURL,
		Referrer:         ev.Referrer,
		DeviceType:       ev.DeviceType,
		ConversionSource: ev.ConversionSource,
		CreatedAt:        time.Now(),
	})
	return id, nil
}

func (f *fakeStore) InsertSession(_ context.Context, ev models.UserPayload) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return 0, f.failAll
	}
	id := f.id()
	f.sessions = append(f.sessions, models.SessionRow{
		ID:        id,
		SessionID: ev.SessionID,
		PageURL:   ev.PageURL,
		CreatedAt: time.Now(),
	})
	return id, nil
}

// listTail returns the newest rows first, capped at limit, matching the
// store's descending-timestamp contract.
func listTail[T any](rows []T, limit int) []T {
	out := make([]T, 0, limit)
	for i := len(rows) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, rows[i])
	}
	return out
}

func (f *fakeStore) ListPerformance(_ context.Context, limit int) ([]models.PerformanceRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return nil, f.failAll
	}
	return listTail(f.performance, limit), nil
}

func (f *fakeStore) ListSEO(_ context.Context, limit int) ([]models.SEORow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return nil, f.failAll
	}
	return listTail(f.seo, limit), nil
}

func (f *fakeStore) ListForms(_ context.Context, limit int) ([]models.FormRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return nil, f.failAll
	}
	return listTail(f.forms, limit), nil
}

func (f *fakeStore) ListSessions(_ context.Context, limit int) ([]models.SessionRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return nil, f.failAll
	}
	return listTail(f.sessions, limit), nil
}

func (f *fakeStore) DashboardSummary(_ context.Context, day time.Time) (models.DashboardSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return models.DashboardSummary{}, f.failAll
	}
	s := f.summary
	s.Date = day.Format("2006-01-02")
	return s, nil
}

func (f *fakeStore) Ping(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failAll
}

// fakeNotifier counts refresh broadcasts.
type fakeNotifier struct {
	mu    sync.Mutex
	calls int
}

func (n *fakeNotifier) NotifyRefresh() {
	n.mu.Lock()
	n.calls++
	n.mu.Unlock()
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls
}
