// Package grab drives the date range × channel set over the crawler and
// extractor, forwarding completed records to the sink.
package grab

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/gkertesz/tvgrab/internal/guide"
	"github.com/gkertesz/tvgrab/internal/metrics"
	"github.com/gkertesz/tvgrab/internal/progress"
)

// MaxDays caps the grabbed range regardless of what was requested; the
// source site does not publish reliable data further ahead.
const MaxDays = 4

// DayCrawler produces the stubs for one channel-day, absorbing transient
// listing failures internally.
type DayCrawler interface {
	CrawlDayWithRetry(ctx context.Context, channelID string, day guide.Day) []guide.ProgrammeStub
}

// RecordExtractor resolves one stub into a canonical record.
type RecordExtractor interface {
	Extract(ctx context.Context, stub guide.ProgrammeStub, channelID string, day guide.Day) (*guide.ProgrammeRecord, error)
}

// Config controls orchestration.
type Config struct {
	// Concurrency bounds how many channels are crawled at once. The crawls
	// share one fetcher and one rate limiter, so raising this does not raise
	// the request rate against the site.
	Concurrency int

	// Tracker receives live run counters. May be nil.
	Tracker *progress.Tracker
}

// Orchestrator sequences the grab.
type Orchestrator struct {
	crawler   DayCrawler
	extractor RecordExtractor
	sink      guide.Sink
	cfg       Config
	logger    *zap.Logger
}

// New builds an Orchestrator.
func New(crawler DayCrawler, extractor RecordExtractor, sink guide.Sink, cfg Config, logger *zap.Logger) *Orchestrator {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &Orchestrator{
		crawler:   crawler,
		extractor: extractor,
		sink:      sink,
		cfg:       cfg,
		logger:    logger,
	}
}

// Run grabs dayCount days starting at startDay for every channel, in the
// caller-supplied channel order. The channel list is written to the sink
// before any programme. Within a channel, days advance strictly and stub
// order is preserved; abandoned days and failed detail pages are logged and
// skipped, never fatal.
func (o *Orchestrator) Run(ctx context.Context, channels []guide.Channel, startDay guide.Day, dayCount int) error {
	if dayCount > MaxDays {
		o.logger.Warn("day count clamped", zap.Int("requested", dayCount), zap.Int("max", MaxDays))
		dayCount = MaxDays
	}
	if dayCount < 0 {
		dayCount = 0
	}

	if err := o.sink.WriteChannels(ctx, channels); err != nil {
		return err
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, o.cfg.Concurrency)
	for _, ch := range channels {
		wg.Add(1)
		sem <- struct{}{}
		go func(ch guide.Channel) {
			defer wg.Done()
			defer func() { <-sem }()
			o.grabChannel(ctx, ch, startDay, dayCount)
		}(ch)
	}
	wg.Wait()
	return nil
}

func (o *Orchestrator) grabChannel(ctx context.Context, ch guide.Channel, startDay guide.Day, dayCount int) {
	written := 0
	for i := 0; i < dayCount; i++ {
		if ctx.Err() != nil {
			o.logger.Warn("channel grab interrupted", zap.String("channel", ch.ID), zap.Error(ctx.Err()))
			return
		}
		day := startDay.AddDays(i)
		stubs := o.crawler.CrawlDayWithRetry(ctx, ch.ID, day)
		if stubs == nil {
			o.cfg.Tracker.DayAbandoned()
		} else {
			o.cfg.Tracker.DayCompleted()
		}
		for _, stub := range stubs {
			rec, err := o.extractor.Extract(ctx, stub, ch.ID, day)
			if err != nil {
				o.logger.Warn("detail extraction failed",
					zap.String("channel", ch.ID),
					zap.Stringer("day", day),
					zap.String("link", stub.DetailLink),
					zap.Error(err))
				continue
			}
			if rec == nil {
				continue
			}
			if err := o.sink.WriteProgramme(ctx, *rec); err != nil {
				o.logger.Error("sink write failed",
					zap.String("channel", ch.ID),
					zap.String("title", rec.Title),
					zap.Error(err))
				continue
			}
			metrics.ObserveProgramme(ch.ID)
			o.cfg.Tracker.ProgrammeWritten()
			written++
		}
	}
	o.cfg.Tracker.ChannelDone()
	o.logger.Info("channel grabbed",
		zap.String("channel", ch.ID),
		zap.Int("days", dayCount),
		zap.Int("programmes", written))
}
