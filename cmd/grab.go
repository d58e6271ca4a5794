package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"cloud.google.com/go/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gkertesz/tvgrab/internal/api"
	"github.com/gkertesz/tvgrab/internal/catalog"
	"github.com/gkertesz/tvgrab/internal/clock/system"
	"github.com/gkertesz/tvgrab/internal/config"
	collyfetcher "github.com/gkertesz/tvgrab/internal/fetcher/colly"
	"github.com/gkertesz/tvgrab/internal/grab"
	"github.com/gkertesz/tvgrab/internal/guide"
	"github.com/gkertesz/tvgrab/internal/hash/sha256"
	"github.com/gkertesz/tvgrab/internal/id/uuid"
	"github.com/gkertesz/tvgrab/internal/policy/ratelimit"
	"github.com/gkertesz/tvgrab/internal/programme"
	"github.com/gkertesz/tvgrab/internal/progress"
	"github.com/gkertesz/tvgrab/internal/schedule"
	"github.com/gkertesz/tvgrab/internal/sink/xmltv"
	"github.com/gkertesz/tvgrab/internal/store/gcs"
)

// newGrabCmd creates and configures the 'grab' subcommand.
func newGrabCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grab",
		Short: "Grabs listings and writes an XMLTV document",
		Long: `Crawls the schedule pages of the configured channels for the requested
date range, resolves every programme's detail page and writes the
collected records as an XMLTV document.`,

		RunE: runGrabCommand,
	}

	cmd.Flags().Int("days", 0, "number of days to grab (overrides configuration)")
	cmd.Flags().Int("offset", 0, "days to skip from today (overrides configuration)")
	cmd.Flags().String("output", "", "output file (overrides configuration)")

	return cmd
}

func runGrabCommand(cmd *cobra.Command, _ []string) error {
	app, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}

	cfg := app.cfg
	if v, err := cmd.Flags().GetInt("days"); err == nil && v > 0 {
		cfg.Grab.Days = v
	}
	if cmd.Flags().Changed("offset") {
		if v, err := cmd.Flags().GetInt("offset"); err == nil && v >= 0 {
			cfg.Grab.Offset = v
		}
	}
	if v, err := cmd.Flags().GetString("output"); err == nil && v != "" {
		cfg.Output.File = v
	}

	if len(cfg.Grab.Channels) == 0 {
		return errors.New("no channels configured; set grab.channels or run 'tvgrab channels' to list them")
	}

	gen := uuid.NewGenerator()
	runID, err := gen.NewID()
	if err != nil {
		return fmt.Errorf("generate run id: %w", err)
	}
	logger := app.logger.With(zap.String("run_id", runID))

	ctx := cmd.Context()
	if budget := cfg.Budget(); budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, budget)
		defer cancel()
	}

	loc, err := guide.LoadTargetZone()
	if err != nil {
		return fmt.Errorf("load target zone: %w", err)
	}
	clk := system.New()
	startDay := guide.NewDay(clk.Now().In(loc), loc).AddDays(cfg.Grab.Offset)

	fetcher := buildFetcher(cfg, logger)
	cat := catalog.New(fetcher, catalog.Config{
		URL:        cfg.Site.CatalogURL,
		PathPrefix: cfg.Site.ChannelPathPrefix,
	}, logger)
	known, err := cat.Discover(ctx)
	if err != nil {
		return fmt.Errorf("discover channels: %w", err)
	}

	selected := make([]guide.Channel, 0, len(cfg.Grab.Channels))
	for _, id := range cfg.Grab.Channels {
		ch, ok := known[id]
		if !ok {
			logger.Warn("configured channel not in catalog", zap.String("channel", id))
			continue
		}
		selected = append(selected, ch)
	}
	if len(selected) == 0 {
		return errors.New("none of the configured channels exist in the catalog")
	}

	tracker := progress.New()
	if cfg.Metrics.Listen != "" {
		stop := startDebugListener(cfg, api.RunInfo{
			RunID:     runID,
			StartedAt: clk.Now(),
			Channels:  len(selected),
			Days:      cfg.Grab.Days,
		}, tracker, logger)
		defer stop()
	}

	out, err := os.Create(cfg.Output.File)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	writer := xmltv.New(out, xmltv.Config{
		Language:      cfg.Output.Language,
		GeneratorName: "tvgrab/" + version,
		SourceInfoURL: cfg.Site.DetailBaseURL,
	})

	crawler := schedule.New(fetcher, schedule.Config{DayURL: cfg.Site.DayURL}, logger)
	extractor := programme.New(fetcher, programme.Config{DetailBaseURL: cfg.Site.DetailBaseURL}, logger)
	orch := grab.New(crawler, extractor, writer, grab.Config{
		Concurrency: cfg.Grab.Concurrency,
		Tracker:     tracker,
	}, logger)

	runErr := orch.Run(ctx, selected, startDay, cfg.Grab.Days)
	if err := writer.Close(); err != nil && runErr == nil {
		runErr = fmt.Errorf("close document: %w", err)
	}
	if err := out.Close(); err != nil && runErr == nil {
		runErr = fmt.Errorf("close output file: %w", err)
	}
	if runErr != nil {
		return fmt.Errorf("grab: %w", runErr)
	}

	logDocumentChecksum(cfg.Output.File, logger)

	if cfg.Output.GCSBucket != "" {
		if err := uploadGuide(ctx, cfg, runID, logger); err != nil {
			return fmt.Errorf("upload guide: %w", err)
		}
	}

	logger.Info("grab finished", zap.String("output", cfg.Output.File))
	return nil
}

// buildFetcher assembles the shared rate-limited fetcher.
func buildFetcher(cfg config.Config, logger *zap.Logger) *collyfetcher.Fetcher {
	limiter := ratelimit.New(ratelimit.Config{
		RequestsPerSecond: cfg.HTTP.RequestsPerSecond,
		Burst:             cfg.HTTP.Burst,
	})
	return collyfetcher.New(collyfetcher.Config{
		UserAgent: cfg.HTTP.UserAgent,
		Timeout:   cfg.Timeout(),
	}, limiter, logger)
}

func startDebugListener(cfg config.Config, info api.RunInfo, tracker *progress.Tracker, logger *zap.Logger) func() {
	srv := &http.Server{
		Addr:              cfg.Metrics.Listen,
		Handler:           api.NewServer(info, tracker, logger).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("debug listener started", zap.String("addr", cfg.Metrics.Listen))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("debug listener failed", zap.Error(err))
		}
	}()
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
}

// logDocumentChecksum records the digest of the written document so runs
// can be compared without diffing the files.
func logDocumentChecksum(path string, logger *zap.Logger) {
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("read document for checksum", zap.Error(err))
		return
	}
	digest, err := sha256.New().Hash(data)
	if err != nil {
		logger.Warn("hash document", zap.Error(err))
		return
	}
	logger.Info("document written",
		zap.String("file", path),
		zap.Int("bytes", len(data)),
		zap.String("sha256", digest))
}

func uploadGuide(ctx context.Context, cfg config.Config, runID string, logger *zap.Logger) error {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("create storage client: %w", err)
	}
	defer func() {
		if cerr := client.Close(); cerr != nil {
			logger.Warn("close storage client", zap.Error(cerr))
		}
	}()

	uploader, err := gcs.New(client, gcs.Config{
		Bucket: cfg.Output.GCSBucket,
		Prefix: cfg.Output.GCSPrefix,
	})
	if err != nil {
		return err
	}

	f, err := os.Open(cfg.Output.File)
	if err != nil {
		return fmt.Errorf("open guide: %w", err)
	}
	defer f.Close()

	uri, err := uploader.Upload(ctx, fmt.Sprintf("tvguide-%s.xml", runID), f)
	if err != nil {
		return err
	}
	logger.Info("guide uploaded", zap.String("uri", uri))
	return nil
}
