package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// EventKind selects one of the four telemetry categories accepted by
// POST /api/track.
type EventKind string

const (
	KindPerformance EventKind = "performance"
	KindSEO         EventKind = "seo"
	KindForm        EventKind = "form"
	KindUser        EventKind = "user"
)

// ErrUnknownKind is returned when the type tag matches no event kind.
var ErrUnknownKind = errors.New("unknown event type")

// TrackRequest is the POST /api/track envelope. Data stays raw until the
// type tag has selected the target payload struct.
type TrackRequest struct {
	Type EventKind       `json:"type"`
	Data json.RawMessage `json:"data"`
}

// deviceTypes is the accepted device class vocabulary.
var deviceTypes = map[string]bool{
	"mobile":  true,
	"tablet":  true,
	"desktop": true,
	"unknown": true,
}

// PerformancePayload carries browser timing metrics for one page view.
// Every metric is optional; absent fields are stored as NULL.
type PerformancePayload struct {
	PageURL                *string  `json:"pageUrl,omitempty"`
	LoadTime               *float64 `json:"loadTime,omitempty"`
	FirstContentfulPaint   *float64 `json:"firstContentfulPaint,omitempty"`
	LargestContentfulPaint *float64 `json:"largestContentfulPaint,omitempty"`
	CumulativeLayoutShift  *float64 `json:"cumulativeLayoutShift,omitempty"`
	FirstInputDelay        *float64 `json:"firstInputDelay,omitempty"`
	TTFB                   *float64 `json:"ttfb,omitempty"`
	DOMReady               *float64 `json:"domReady,omitempty"`
	DeviceType             *string  `json:"deviceType,omitempty"`
}

// Validate rejects payloads the schema cannot represent: negative timings
// and device classes outside the vocabulary.
func (p PerformancePayload) Validate() error {
	metrics := map[string]*float64{
		"loadTime":               p.LoadTime,
		"firstContentfulPaint":   p.FirstContentfulPaint,
		"largestContentfulPaint": p.LargestContentfulPaint,
		"cumulativeLayoutShift":  p.CumulativeLayoutShift,
		"firstInputDelay":        p.FirstInputDelay,
		"ttfb":                   p.TTFB,
		"domReady":               p.DOMReady,
	}
	for name, v := range metrics {
		if v != nil && *v < 0 {
			return fmt.Errorf("%s must be non-negative", name)
		}
	}
	if p.DeviceType != nil && !deviceTypes[*p.DeviceType] {
		return fmt.Errorf("deviceType must be one of mobile, tablet, desktop, unknown")
	}
	return nil
}

// SEOPayload carries on-page SEO measurements for one URL.
type SEOPayload struct {
	PageURL          *string `json:"pageUrl,omitempty"`
	Title            *string `json:"title,omitempty"`
	MetaDescription  *string `json:"metaDescription,omitempty"`
	H1Count          *int    `json:"h1Count,omitempty"`
	LighthouseScore  *int    `json:"lighthouseScore,omitempty"`
	ImagesWithoutAlt *int    `json:"imagesWithoutAlt,omitempty"`
	InternalLinks    *int    `json:"internalLinks,omitempty"`
	ExternalLinks    *int    `json:"externalLinks,omitempty"`
}

// Validate enforces non-negative counts and the 0-100 lighthouse range.
func (p SEOPayload) Validate() error {
	counts := map[string]*int{
		"h1Count":          p.H1Count,
		"imagesWithoutAlt": p.ImagesWithoutAlt,
		"internalLinks":    p.InternalLinks,
		"externalLinks":    p.ExternalLinks,
	}
	for name, v := range counts {
		if v != nil && *v < 0 {
			return fmt.Errorf("%s must be non-negative", name)
		}
	}
	if p.LighthouseScore != nil && (*p.LighthouseScore < 0 || *p.LighthouseScore > 100) {
		return fmt.Errorf("lighthouseScore must be between 0 and 100")
	}
	return nil
}

// FormPayload describes a form submission. All fields are free text.
type FormPayload struct {
	FormType         *string `json:"formType,omitempty"`
	PageURL          *string `json:"pageUrl,omitempty"`
	Referrer         *string `json:"referrer,omitempty"`
	DeviceType       *string `json:"deviceType,omitempty"`
	ConversionSource *string `json:"conversionSource,omitempty"`
}

// UserPayload describes a page view within a client-generated session.
// SessionID is opaque; the server does not check its format or uniqueness.
type UserPayload struct {
	SessionID        *string  `json:"sessionId,omitempty"`
	PageURL          *string  `json:"pageUrl,omitempty"`
	Referrer         *string  `json:"referrer,omitempty"`
	DeviceType       *string  `json:"deviceType,omitempty"`
	ScreenResolution *string  `json:"screenResolution,omitempty"`
	UserAgent        *string  `json:"userAgent,omitempty"`
	TimeOnPage       *float64 `json:"timeOnPage,omitempty"`
}

// Validate rejects negative time-on-page values.
func (p UserPayload) Validate() error {
	if p.TimeOnPage != nil && *p.TimeOnPage < 0 {
		return fmt.Errorf("timeOnPage must be non-negative")
	}
	return nil
}

// Event is one decoded, validated telemetry event ready for insertion.
// Exactly one payload field is non-nil, matching Kind.
type Event struct {
	Kind        EventKind
	Performance *PerformancePayload
	SEO         *SEOPayload
	Form        *FormPayload
	User        *UserPayload
}

// DecodeEvent turns the raw envelope into a typed event. Unknown data keys
// are dropped by encoding/json; unknown type tags fail with ErrUnknownKind.
func DecodeEvent(req TrackRequest) (Event, error) {
	data := req.Data
	if len(data) == 0 {
		data = json.RawMessage("{}")
	}

	ev := Event{Kind: req.Type}
	switch req.Type {
	case KindPerformance:
		var p PerformancePayload
		if err := json.Unmarshal(data, &p); err != nil {
			return Event{}, fmt.Errorf("decode performance payload: %w", err)
		}
		if err := p.Validate(); err != nil {
			return Event{}, err
		}
		ev.Performance = &p
	case KindSEO:
		var p SEOPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return Event{}, fmt.Errorf("decode seo payload: %w", err)
		}
		if err := p.Validate(); err != nil {
			return Event{}, err
		}
		ev.SEO = &p
	case KindForm:
		var p FormPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return Event{}, fmt.Errorf("decode form payload: %w", err)
		}
		ev.Form = &p
	case KindUser:
		var p UserPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return Event{}, fmt.Errorf("decode user payload: %w", err)
		}
		if err := p.Validate(); err != nil {
			return Event{}, err
		}
		ev.User = &p
	default:
		return Event{}, fmt.Errorf("%w: %q", ErrUnknownKind, string(req.Type))
	}
	return ev, nil
}

// PerformanceRow is a stored performance metric as returned by listings.
type PerformanceRow struct {
	ID                     int64     `json:"id"`
	PageURL                *string   `json:"page_url"`
	LoadTime               *float64  `json:"load_time"`
	FirstContentfulPaint   *float64  `json:"fcp"`
	LargestContentfulPaint *float64  `json:"lcp"`
	CumulativeLayoutShift  *float64  `json:"cls"`
	FirstInputDelay        *float64  `json:"fid"`
	TTFB                   *float64  `json:"ttfb"`
	DOMReady               *float64  `json:"dom_ready"`
	DeviceType             *string   `json:"device_type"`
	CreatedAt              time.Time `json:"created_at"`
}

// SEORow is a stored SEO metric as returned by listings.
type SEORow struct {
	ID               int64     `json:"id"`
	PageURL          *string   `json:"page_url"`
	Title            *string   `json:"title"`
	MetaDescription  *string   `json:"meta_description"`
	H1Count          *int      `json:"h1_count"`
	LighthouseScore  *int      `json:"lighthouse_score"`
	ImagesWithoutAlt *int      `json:"images_without_alt"`
	InternalLinks    *int      `json:"internal_links"`
	ExternalLinks    *int      `json:"external_links"`
	CreatedAt        time.Time `json:"created_at"`
}

// FormRow is a stored form submission as returned by listings.
type FormRow struct {
	ID               int64     `json:"id"`
	FormType         *string   `json:"form_type"`
	PageURL          *string   `json:"page_url"`
	Referrer         *string   `json:"referrer"`
	DeviceType       *string   `json:"device_type"`
	ConversionSource *string   `json:"conversion_source"`
	CreatedAt        time.Time `json:"created_at"`
}

// SessionRow is a stored user session event as returned by listings.
type SessionRow struct {
	ID               int64     `json:"id"`
	SessionID        *string   `json:"session_id"`
	PageURL          *string   `json:"page_url"`
	Referrer         *string   `json:"referrer"`
	DeviceType       *string   `json:"device_type"`
	ScreenResolution *string   `json:"screen_resolution"`
	UserAgent        *string   `json:"user_agent"`
	TimeOnPage       *float64  `json:"time_on_page"`
	CreatedAt        time.Time `json:"created_at"`
}

// DashboardSummary aggregates today's activity for GET /api/dashboard.
// The four numbers come from independent queries and are not guaranteed
// mutually consistent under concurrent writes.
type DashboardSummary struct {
	Performance PerformanceSummary `json:"performance"`
	Forms       FormSummary        `json:"forms"`
	Sessions    SessionSummary     `json:"sessions"`
	Date        string             `json:"date"`
}

// PerformanceSummary holds today's performance aggregates.
type PerformanceSummary struct {
	Total       int64   `json:"total"`
	AvgLoadTime float64 `json:"avg_load_time"`
}

// FormSummary holds today's form submission count.
type FormSummary struct {
	Total int64 `json:"total"`
}

// SessionSummary holds today's distinct session count.
type SessionSummary struct {
	Unique int64 `json:"unique"`
}
