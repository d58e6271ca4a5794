// Package programme turns programme stubs into canonical records by fetching
// and extracting detail pages.
package programme

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gkertesz/tvgrab/internal/guide"
	"github.com/gkertesz/tvgrab/internal/markup"
	"github.com/gkertesz/tvgrab/internal/metrics"
)

// Config controls detail-page extraction.
type Config struct {
	// DetailBaseURL is joined with each stub's site-relative detail link.
	DetailBaseURL string
}

// Extractor fetches detail pages and builds ProgrammeRecords. Every field
// except the title is best-effort: a missing optional element yields an
// absent field, never an error.
type Extractor struct {
	fetcher guide.Fetcher
	page    PageExtractor
	cfg     Config
	logger  *zap.Logger
}

// New builds an Extractor using the live site's page markup.
func New(fetcher guide.Fetcher, cfg Config, logger *zap.Logger) *Extractor {
	return NewWithPage(fetcher, NewSitePage(), cfg, logger)
}

// NewWithPage builds an Extractor with a custom PageExtractor.
func NewWithPage(fetcher guide.Fetcher, page PageExtractor, cfg Config, logger *zap.Logger) *Extractor {
	return &Extractor{fetcher: fetcher, page: page, cfg: cfg, logger: logger}
}

// Extract fetches the stub's detail page and builds the canonical record.
// A nil record with a nil error means the page is not a programme page
// (the site redirected to a landing page); the stub is simply skipped.
// Only the fetch itself failing is an error.
func (e *Extractor) Extract(ctx context.Context, stub guide.ProgrammeStub, channelID string, day guide.Day) (*guide.ProgrammeRecord, error) {
	detailURL := e.cfg.DetailBaseURL + ensureLeadingSlash(stub.DetailLink)

	start := time.Now()
	body, err := e.fetcher.Fetch(ctx, detailURL)
	metrics.ObservePage(metrics.PageDetail, metrics.Outcome(err), time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("fetch detail page: %w", err)
	}
	doc := markup.Parse(body)

	title, subtitle, ok := e.page.Heading(doc)
	if !ok {
		e.logger.Debug("not a programme page", zap.String("url", detailURL))
		return nil, nil
	}

	desc, icon := e.page.Description(doc)
	categories, rating := e.page.Meta(doc)
	cast, directors := e.page.Credits(doc)
	episode := e.page.Episode(doc)

	startAt, stopAt, err := guide.ProgrammeTimes(day, stub.Start, stub.End)
	if err != nil {
		return nil, fmt.Errorf("programme times: %w", err)
	}
	if !stopAt.After(startAt) {
		// The rollover rule only advances the stop date when the end hour is
		// strictly lower; a degenerate row can still come out non-positive.
		e.logger.Debug("programme with non-positive duration skipped",
			zap.String("url", detailURL),
			zap.String("start", stub.Start),
			zap.String("end", stub.End))
		return nil, nil
	}

	return &guide.ProgrammeRecord{
		ChannelID:   channelID,
		Title:       title,
		Subtitle:    subtitle,
		Description: desc,
		Categories:  categories,
		Cast:        cast,
		Directors:   directors,
		Episode:     episode,
		StarRating:  rating,
		IconURL:     icon,
		Start:       startAt,
		Stop:        stopAt,
	}, nil
}

func ensureLeadingSlash(link string) string {
	if strings.HasPrefix(link, "/") {
		return link
	}
	return "/" + link
}
