// Package schedule crawls one channel-day listing page into programme stubs.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/gkertesz/tvgrab/internal/guide"
	"github.com/gkertesz/tvgrab/internal/markup"
	"github.com/gkertesz/tvgrab/internal/metrics"
)

// ErrNoListing reports a day page without the listing container. The site
// occasionally serves a malformed shell page; this is the retryable case, as
// opposed to a present-but-empty container, which is a genuinely empty day.
var ErrNoListing = errors.New("listing container not found")

// Structural markers of the day listing page.
const (
	listClass     = "epglist"
	timeClass     = "airtime"
	attrStartTime = "data-start"
	attrEndTime   = "data-end"
)

const defaultMaxAttempts = 10

// Config controls day-page crawling.
type Config struct {
	// DayURL is a printf pattern taking the channel ID and the YYYYMMDD day.
	DayURL      string
	MaxAttempts int
}

// Crawler extracts programme stubs from day listing pages.
type Crawler struct {
	fetcher guide.Fetcher
	cfg     Config
	logger  *zap.Logger
}

// New builds a Crawler.
func New(fetcher guide.Fetcher, cfg Config, logger *zap.Logger) *Crawler {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	return &Crawler{fetcher: fetcher, cfg: cfg, logger: logger}
}

// CrawlDay fetches one channel-day page and extracts its stubs. It returns
// ErrNoListing when the listing container is absent; an empty slice with a
// nil error means the day legitimately has no programmes. Rows missing
// either time attribute are malformed and skipped, never retried.
func (c *Crawler) CrawlDay(ctx context.Context, channelID string, day guide.Day) ([]guide.ProgrammeStub, error) {
	pageURL := fmt.Sprintf(c.cfg.DayURL, channelID, day.Format())

	start := time.Now()
	body, err := c.fetcher.Fetch(ctx, pageURL)
	metrics.ObservePage(metrics.PageListing, metrics.Outcome(err), time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("fetch day page: %w", err)
	}

	doc := markup.Parse(body)
	container, ok := doc.Root().FindFirst("", listClass)
	if !ok {
		return nil, ErrNoListing
	}

	stubs := []guide.ProgrammeStub{}
	for _, link := range container.Links("a") {
		timeNode, ok := link.Node.FindFirst("", timeClass)
		if !ok {
			c.logger.Debug("row without airtime element skipped", zap.String("href", link.Href))
			continue
		}
		from, okFrom := timeNode.Attr(attrStartTime)
		until, okUntil := timeNode.Attr(attrEndTime)
		if !okFrom || !okUntil {
			c.logger.Debug("row missing time attribute skipped", zap.String("href", link.Href))
			continue
		}
		if !validHHMM(from) || !validHHMM(until) {
			c.logger.Debug("row with unparseable time skipped",
				zap.String("href", link.Href), zap.String("from", from), zap.String("until", until))
			continue
		}
		stubs = append(stubs, guide.ProgrammeStub{DetailLink: link.Href, Start: from, End: until})
	}
	return stubs, nil
}

// crawlState is the explicit retry state machine for one channel-day:
// attempting(n) moves to succeeded, attempting(n+1), or abandoned.
type crawlState int

const (
	stateAttempting crawlState = iota
	stateSucceeded
	stateAbandoned
)

// CrawlDayWithRetry wraps CrawlDay with a bounded attempt counter. The day
// is abandoned with zero stubs once the bound is reached or the context is
// done; the run continues either way.
func (c *Crawler) CrawlDayWithRetry(ctx context.Context, channelID string, day guide.Day) []guide.ProgrammeStub {
	var (
		stubs   []guide.ProgrammeStub
		attempt int
	)
	state := stateAttempting
	for state == stateAttempting {
		attempt++
		var err error
		stubs, err = c.CrawlDay(ctx, channelID, day)
		switch {
		case err == nil:
			state = stateSucceeded
		case ctx.Err() != nil || attempt >= c.cfg.MaxAttempts:
			state = stateAbandoned
		default:
			metrics.ObserveListingRetry()
			c.logger.Debug("day listing attempt failed",
				zap.String("channel", channelID),
				zap.Stringer("day", day),
				zap.Int("attempt", attempt),
				zap.Error(err))
		}
	}

	if state == stateAbandoned {
		metrics.ObserveAbandonedDay()
		c.logger.Warn("day abandoned after repeated listing failures",
			zap.String("channel", channelID),
			zap.Stringer("day", day),
			zap.Int("attempts", attempt))
		return nil
	}
	c.logger.Debug("day listing crawled",
		zap.String("channel", channelID),
		zap.Stringer("day", day),
		zap.Int("stubs", len(stubs)),
		zap.Int("attempts", attempt))
	return stubs
}

func validHHMM(s string) bool {
	_, _, err := guide.ParseHHMM(s)
	return err == nil
}
