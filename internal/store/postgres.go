package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pagepulse/web-analytics-service/internal/models"
)

// schemaSQL is embedded so the service can self-bootstrap its database schema.
//
//go:embed schema.sql
var schemaSQL string

// maxListLimit caps every listing query. There is no cursor or offset;
// the dashboard only ever shows the most recent page.
const maxListLimit = 100

var (
	// ErrWriteFailed marks a failed insert. The event is dropped; the
	// service never retries or queues writes.
	ErrWriteFailed = errors.New("storage write failed")

	// ErrAggregation marks a failed read or aggregate query.
	ErrAggregation = errors.New("aggregation unavailable")
)

// PostgresStore is the durable persistence layer for telemetry events.
// It owns the only shared mutable state in the process; pgxpool handles
// concurrent writers.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a connection pool and fails fast if the
// database is unreachable.
func NewPostgresStore(ctx context.Context, dbURL string) (*PostgresStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// EnsureSchema applies schema.sql. Safe to run multiple times.
func (p *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, schemaSQL)
	return err
}

// Ping validates database connectivity for health reporting.
func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close shuts down the connection pool.
func (p *PostgresStore) Close() {
	p.pool.Close()
}

// InsertPerformance appends one performance metric row. The timestamp is
// assigned by the database, never taken from the client.
func (p *PostgresStore) InsertPerformance(ctx context.Context, ev models.PerformancePayload) (int64, error) {
	var id int64
	err := p.pool.QueryRow(ctx, `
		INSERT INTO performance_metrics
			(page_url, load_time, fcp, lcp, cls, fid, ttfb, dom_ready, device_type)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING id
	`, ev.PageURL, ev.LoadTime, ev.FirstContentfulPaint, ev.LargestContentfulPaint,
		ev.CumulativeLayoutShift, ev.FirstInputDelay, ev.TTFB, ev.DOMReady, ev.DeviceType,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%w: insert performance: %v", ErrWriteFailed, err)
	}
	return id, nil
}

// InsertSEO appends one SEO metric row.
func (p *PostgresStore) InsertSEO(ctx context.Context, ev models.SEOPayload) (int64, error) {
	var id int64
	err := p.pool.QueryRow(ctx, `
		INSERT INTO seo_metrics
			(page_url, title, meta_description, h1_count, lighthouse_score,
			 images_without_alt, internal_links, external_links)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING id
	`, ev.PageURL, ev.Title, ev.MetaDescription, ev.H1Count, ev.LighthouseScore,
		ev.ImagesWithoutAlt, ev.InternalLinks, ev.ExternalLinks,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%w: insert seo: %v", ErrWriteFailed, err)
	}
	return id, nil
}

// InsertForm appends one form submission row.
func (p *PostgresStore) InsertForm(ctx context.Context, ev models.FormPayload) (int64, error) {
	var id int64
	err := p.pool.QueryRow(ctx, `
		INSERT INTO form_submissions
			(form_type, page_url, referrer, device_type, conversion_source)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id
	`, ev.FormType, ev.PageURL, ev.Referrer, ev.DeviceType, ev.ConversionSource,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%w: insert form: %v", ErrWriteFailed, err)
	}
	return id, nil
}

// InsertSession appends one user session row. Session IDs are stored as
// given; duplicates are expected and resolved at aggregation time.
func (p *PostgresStore) InsertSession(ctx context.Context, ev models.UserPayload) (int64, error) {
	var id int64
	err := p.pool.QueryRow(ctx, `
		INSERT INTO user_sessions
			(session_id, page_url, referrer, device_type, screen_resolution,
			 user_agent, time_on_page)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id
	`, ev.SessionID, ev.PageURL, ev.Referrer, ev.DeviceType, ev.ScreenResolution,
		ev.UserAgent, ev.TimeOnPage,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%w: insert session: %v", ErrWriteFailed, err)
	}
	return id, nil
}

// clampLimit keeps listing sizes inside the fixed page bound.
func clampLimit(limit int) int {
	if limit <= 0 || limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

// ListPerformance returns the most recent performance rows, newest first.
func (p *PostgresStore) ListPerformance(ctx context.Context, limit int) ([]models.PerformanceRow, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, page_url, load_time, fcp, lcp, cls, fid, ttfb, dom_ready,
		       device_type, created_at
		FROM performance_metrics
		ORDER BY created_at DESC
		LIMIT $1
	`, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("%w: list performance: %v", ErrAggregation, err)
	}
	defer rows.Close()

	out := []models.PerformanceRow{}
	for rows.Next() {
		var r models.PerformanceRow
		if err := rows.Scan(&r.ID, &r.PageURL, &r.LoadTime, &r.FirstContentfulPaint,
			&r.LargestContentfulPaint, &r.CumulativeLayoutShift, &r.FirstInputDelay,
			&r.TTFB, &r.DOMReady, &r.DeviceType, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan performance: %v", ErrAggregation, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list performance: %v", ErrAggregation, err)
	}
	return out, nil
}

// ListSEO returns the most recent SEO rows, newest first.
func (p *PostgresStore) ListSEO(ctx context.Context, limit int) ([]models.SEORow, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, page_url, title, meta_description, h1_count, lighthouse_score,
		       images_without_alt, internal_links, external_links, created_at
		FROM seo_metrics
		ORDER BY created_at DESC
		LIMIT $1
	`, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("%w: list seo: %v", ErrAggregation, err)
	}
	defer rows.Close()

	out := []models.SEORow{}
	for rows.Next() {
		var r models.SEORow
		if err := rows.Scan(&r.ID, &r.PageURL, &r.Title, &r.MetaDescription,
			&r.H1Count, &r.LighthouseScore, &r.ImagesWithoutAlt,
			&r.InternalLinks, &r.ExternalLinks, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan seo: %v", ErrAggregation, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list seo: %v", ErrAggregation, err)
	}
	return out, nil
}

// ListForms returns the most recent form submissions, newest first.
func (p *PostgresStore) ListForms(ctx context.Context, limit int) ([]models.FormRow, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, form_type, page_url, referrer, device_type, conversion_source, created_at
		FROM form_submissions
		ORDER BY created_at DESC
		LIMIT $1
	`, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("%w: list forms: %v", ErrAggregation, err)
	}
	defer rows.Close()

	out := []models.FormRow{}
	for rows.Next() {
		var r models.FormRow
		if err := rows.Scan(&r.ID, &r.FormType, &r.PageURL, &r.Referrer,
			&r.DeviceType, &r.ConversionSource, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan form: %v", ErrAggregation, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list forms: %v", ErrAggregation, err)
	}
	return out, nil
}

// ListSessions returns the most recent user session rows, newest first.
func (p *PostgresStore) ListSessions(ctx context.Context, limit int) ([]models.SessionRow, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, session_id, page_url, referrer, device_type, screen_resolution,
		       user_agent, time_on_page, created_at
		FROM user_sessions
		ORDER BY created_at DESC
		LIMIT $1
	`, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("%w: list sessions: %v", ErrAggregation, err)
	}
	defer rows.Close()

	out := []models.SessionRow{}
	for rows.Next() {
		var r models.SessionRow
		if err := rows.Scan(&r.ID, &r.SessionID, &r.PageURL, &r.Referrer,
			&r.DeviceType, &r.ScreenResolution, &r.UserAgent,
			&r.TimeOnPage, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan session: %v", ErrAggregation, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list sessions: %v", ErrAggregation, err)
	}
	return out, nil
}

// DashboardSummary computes the aggregates for the calendar day containing
// `day` in its own location, as the half-open window [midnight, midnight+24h).
// The half-open interval avoids double counting at window boundaries.
//
// The sub-queries run independently with no wrapping transaction, so
// the numbers may be mutually inconsistent under concurrent writes. Any
// sub-query failure fails the whole summary; callers must never see a
// partially-populated object.
func (p *PostgresStore) DashboardSummary(ctx context.Context, day time.Time) (models.DashboardSummary, error) {
	year, month, dom := day.Date()
	from := time.Date(year, month, dom, 0, 0, 0, 0, day.Location())
	to := from.Add(24 * time.Hour)

	var s models.DashboardSummary
	s.Date = from.Format("2006-01-02")

	err := p.pool.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(AVG(load_time), 0)
		FROM performance_metrics
		WHERE created_at >= $1 AND created_at < $2
	`, from, to).Scan(&s.Performance.Total, &s.Performance.AvgLoadTime)
	if err != nil {
		return models.DashboardSummary{}, fmt.Errorf("%w: performance summary: %v", ErrAggregation, err)
	}

	err = p.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM form_submissions
		WHERE created_at >= $1 AND created_at < $2
	`, from, to).Scan(&s.Forms.Total)
	if err != nil {
		return models.DashboardSummary{}, fmt.Errorf("%w: form summary: %v", ErrAggregation, err)
	}

	err = p.pool.QueryRow(ctx, `
		SELECT COUNT(DISTINCT session_id)
		FROM user_sessions
		WHERE created_at >= $1 AND created_at < $2
	`, from, to).Scan(&s.Sessions.Unique)
	if err != nil {
		return models.DashboardSummary{}, fmt.Errorf("%w: session summary: %v", ErrAggregation, err)
	}

	return s, nil
}
