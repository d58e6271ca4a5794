// Package catalog discovers the set of available channels from the site's
// catalog page.
package catalog

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gkertesz/tvgrab/internal/guide"
	"github.com/gkertesz/tvgrab/internal/markup"
	"github.com/gkertesz/tvgrab/internal/metrics"
)

// Structural markers of the catalog page. Selector changes on the site land
// here and nowhere else.
const (
	rowLinkClass = "channellink"
	nameClass    = "channelname"
	logoClass    = "channellogo"
)

// Config locates the catalog page and the link shape of its rows.
type Config struct {
	URL string
	// PathPrefix is the fixed leading path of every channel link; the
	// remainder becomes the channel ID.
	PathPrefix string
}

// Catalog discovers channels. Discovery runs once per grab; the result is
// immutable afterwards.
type Catalog struct {
	fetcher guide.Fetcher
	cfg     Config
	logger  *zap.Logger
}

// New builds a Catalog.
func New(fetcher guide.Fetcher, cfg Config, logger *zap.Logger) *Catalog {
	return &Catalog{fetcher: fetcher, cfg: cfg, logger: logger}
}

// Discover fetches the catalog page and extracts every channel row. A fetch
// failure is fatal to the caller (there is no channel data to work with at
// all); rows missing a name or logo are skipped silently, since the catalog
// only seeds channel identity.
func (c *Catalog) Discover(ctx context.Context) (map[string]guide.Channel, error) {
	start := time.Now()
	body, err := c.fetcher.Fetch(ctx, c.cfg.URL)
	metrics.ObservePage(metrics.PageCatalog, metrics.Outcome(err), time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}

	doc := markup.Parse(body)
	channels := make(map[string]guide.Channel)
	for _, row := range doc.Root().FindAll("a", rowLinkClass) {
		href, ok := row.Attr("href")
		if !ok || !strings.HasPrefix(href, c.cfg.PathPrefix) {
			continue
		}
		id := url.PathEscape(href[len(c.cfg.PathPrefix):])
		if id == "" {
			continue
		}

		nameNode, ok := row.FindFirst("", nameClass)
		if !ok || nameNode.Text() == "" {
			c.logger.Debug("catalog row without name skipped", zap.String("href", href))
			continue
		}
		logoNode, ok := row.FindFirst("img", logoClass)
		if !ok {
			c.logger.Debug("catalog row without logo skipped", zap.String("href", href))
			continue
		}
		logo, _ := logoNode.Attr("src")
		if logo == "" {
			c.logger.Debug("catalog row without logo source skipped", zap.String("href", href))
			continue
		}
		if strings.HasPrefix(logo, "//") {
			logo = "https:" + logo
		}

		channels[id] = guide.Channel{
			ID:          id,
			DisplayName: nameNode.Text(),
			LogoURL:     logo,
		}
	}

	c.logger.Info("catalog discovered", zap.Int("channels", len(channels)))
	return channels, nil
}
