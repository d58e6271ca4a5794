// Package collyfetcher implements guide.Fetcher using gocolly.
package collyfetcher

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

const defaultAccept = "text/html"

// Config controls collector behavior.
type Config struct {
	UserAgent string
	Accept    string
	Timeout   time.Duration
}

// Waiter gates requests before they leave, typically a rate limiter.
type Waiter interface {
	Wait(ctx context.Context, url string) error
}

// Fetcher performs single GET requests through a Colly collector sharing one
// pooled transport across the whole run. It performs no retries and no
// caching; every call is a live request.
type Fetcher struct {
	cfg           Config
	limiter       Waiter
	transport     http.RoundTripper
	baseCollector *colly.Collector
	logger        *zap.Logger
}

// New builds a Fetcher. limiter may be nil to disable throttling.
func New(cfg Config, limiter Waiter, logger *zap.Logger) *Fetcher {
	if cfg.Accept == "" {
		cfg.Accept = defaultAccept
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	transport := newHTTPTransport()
	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = true
	c.WithTransport(transport)

	return &Fetcher{
		cfg:           cfg,
		limiter:       limiter,
		transport:     transport,
		baseCollector: c,
		logger:        logger,
	}
}

// Fetch executes a single HTTP GET and returns the body. A non-2xx status or
// an empty body is an error; retry policy belongs to the caller.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx, url); err != nil {
			return nil, err
		}
	}

	var (
		body     []byte
		fetchErr error
	)
	collector := f.baseCollector.Clone()
	collector.WithTransport(f.transport)
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.SetRequestTimeout(f.cfg.Timeout)
	collector.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", f.cfg.Accept)
	})
	collector.OnResponse(func(r *colly.Response) {
		body = append([]byte(nil), r.Body...)
	})
	collector.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	if err := f.runCollector(ctx, collector, url, &fetchErr); err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("fetch %s: empty body", url)
	}
	f.logger.Debug("page fetched", zap.String("url", url), zap.Int("bytes", len(body)))
	return body, nil
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, url string, fetchErr *error) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("visit %s: %w", url, err)
		}
		if *fetchErr != nil {
			return fmt.Errorf("fetch %s: %w", url, *fetchErr)
		}
		return nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
