// Package scraper extracts the racing record of a single horse from the
// racing authority's horse detail page.
//
// Acquisition and extraction are separate: HorseScraper drives a browser
// session to obtain the rendered HTML, while GoqueryParser, ResolveSchema,
// RowClassifier, ResolvePedigree and ParseStatistics are pure and can be
// exercised with fixture HTML alone.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/toozej/go-thoroughbred/internal/services/browser"
	"github.com/toozej/go-thoroughbred/internal/types"
	"github.com/toozej/go-thoroughbred/pkg/logging"
)

// ErrInvalidHorseID is returned when the external id is not a positive number.
var ErrInvalidHorseID = errors.New("invalid horse id")

var horseIDPattern = regexp.MustCompile(`^[0-9]{1,12}$`)

// PageOpener loads a URL in a page and returns the settled HTML.
type PageOpener interface {
	Open(ctx context.Context, page browser.Page, url string) (string, error)
}

// MetricsRecorder receives fetch and extraction counters.
type MetricsRecorder interface {
	ObserveFetch(outcome string, d time.Duration)
	RecordRows(kind string, n int)
	RecordAnomaly(kind string)
}

type nopMetrics struct{}

func (nopMetrics) ObserveFetch(string, time.Duration) {}
func (nopMetrics) RecordRows(string, int)             {}
func (nopMetrics) RecordAnomaly(string)               {}

// ScraperConfig describes where horse pages live.
type ScraperConfig struct {
	BaseURL      string
	IDParam      string
	IncludeParam string
	Location     *time.Location
}

// DefaultScraperConfig returns the default scraper configuration.
func DefaultScraperConfig() ScraperConfig {
	loc, err := time.LoadLocation(DefaultLocation)
	if err != nil {
		loc = time.Local
	}
	return ScraperConfig{
		BaseURL:      "https://www.tjk.org/TR/YarisSever/Query/ConnectedPage/AtKosuBilgileri",
		IDParam:      "QueryParameter_AtId",
		IncludeParam: "QueryParameter_KosmazGoster",
		Location:     loc,
	}
}

// HorseScraper implements types.HorseDetailFetcher.
type HorseScraper struct {
	config   ScraperConfig
	sessions browser.SessionProvider
	opener   PageOpener
	parser   HTMLParser
	logger   *logging.Logger
	metrics  MetricsRecorder
	now      func() time.Time
}

// Option customises a HorseScraper.
type Option func(*HorseScraper)

// WithMetrics sets the metrics recorder.
func WithMetrics(m MetricsRecorder) Option {
	return func(h *HorseScraper) {
		if m != nil {
			h.metrics = m
		}
	}
}

// WithClock replaces time.Now, which decides whether a race date is in the future.
func WithClock(now func() time.Time) Option {
	return func(h *HorseScraper) {
		if now != nil {
			h.now = now
		}
	}
}

// NewHorseScraper creates a new HorseScraper with the provided dependencies.
func NewHorseScraper(
	config ScraperConfig,
	sessions browser.SessionProvider,
	opener PageOpener,
	parser HTMLParser,
	logger *logging.Logger,
	opts ...Option,
) *HorseScraper {
	if config.Location == nil {
		config.Location = DefaultScraperConfig().Location
	}
	h := &HorseScraper{
		config:   config,
		sessions: sessions,
		opener:   opener,
		parser:   parser,
		logger:   logger,
		metrics:  nopMetrics{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

var _ types.HorseDetailFetcher = (*HorseScraper)(nil)

// HorseURL builds the detail page URL for externalID, asking for
// non-running and future entries to be included.
func (h *HorseScraper) HorseURL(externalID string) (string, error) {
	u, err := url.Parse(h.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	q := u.Query()
	q.Set(h.config.IDParam, externalID)
	if h.config.IncludeParam != "" {
		q.Set(h.config.IncludeParam, "on")
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// FetchHorseDetail loads the horse page in a fresh browser session and
// extracts its races, registrations, statistics and pedigree. Any
// acquisition failure aborts the fetch; no partial data is returned.
func (h *HorseScraper) FetchHorseDetail(ctx context.Context, externalID string) (*types.HorseDetailData, error) {
	start := time.Now()
	summary := logging.FetchSummary{ExternalID: externalID}

	fail := func(outcome string, err error) (*types.HorseDetailData, error) {
		summary.Duration = time.Since(start)
		h.metrics.ObserveFetch(outcome, summary.Duration)
		h.logger.LogFetch(ctx, summary, err)
		return nil, err
	}

	if !horseIDPattern.MatchString(externalID) {
		return fail("invalid_id", fmt.Errorf("%w: %q", ErrInvalidHorseID, externalID))
	}

	pageURL, err := h.HorseURL(externalID)
	if err != nil {
		return fail("error", err)
	}

	h.logger.WithContext(ctx).WithFields(logrus.Fields{
		"component":   "scraper",
		"operation":   "fetch_start",
		"external_id": externalID,
		"url":         pageURL,
	}).Info("Fetching horse detail page")

	var html string
	err = h.sessions.WithSession(ctx, func(ctx context.Context, page browser.Page) error {
		var openErr error
		html, openErr = h.opener.Open(ctx, page, pageURL)
		return openErr
	})
	if err != nil {
		return fail("error", fmt.Errorf("failed to load horse %s: %w", externalID, err))
	}

	content, err := h.parser.Parse(html)
	if err != nil {
		return fail("error", fmt.Errorf("failed to parse horse %s: %w", externalID, err))
	}

	base, _ := url.Parse(pageURL)
	classifier := RowClassifier{Now: h.now, Location: h.config.Location, BaseURL: base}
	detail, report := NewDetailParser(classifier).ParseHorseDetail(content)
	detail.ExternalID = externalID
	detail.FetchedAt = h.now()

	h.report(ctx, externalID, report)

	summary.Races = len(detail.Races)
	summary.Registrations = len(detail.Registrations)
	summary.Skipped = len(report.Skipped)
	summary.Cancelled = report.Cancelled
	summary.Duration = time.Since(start)

	h.metrics.RecordRows(RowRace.String(), summary.Races)
	h.metrics.RecordRows(RowRegistration.String(), summary.Registrations)
	h.metrics.RecordRows(RowCancelled.String(), summary.Cancelled)
	h.metrics.RecordRows(RowSkipped.String(), summary.Skipped)
	h.metrics.ObserveFetch("success", summary.Duration)
	h.logger.LogFetch(ctx, summary, nil)

	return detail, nil
}

// report logs and counts the page drift warnings of one parse.
func (h *HorseScraper) report(ctx context.Context, externalID string, report *ParseReport) {
	if !report.RaceTable {
		h.metrics.RecordAnomaly("missing_race_table")
		h.logger.LogSchemaAnomaly(ctx, externalID, "no race table found on page")
	}
	for _, anomaly := range report.Schema.Anomalies {
		h.metrics.RecordAnomaly("schema_collision")
		h.logger.LogSchemaAnomaly(ctx, externalID, anomaly)
	}
	for _, anomaly := range report.RowAnomalies {
		h.metrics.RecordAnomaly("time_formatted_position")
		h.logger.LogSchemaAnomaly(ctx, externalID, anomaly)
	}
	for _, row := range report.Skipped {
		h.logger.LogRowSkipped(ctx, externalID, row.Reason, row.Cells)
	}
}
