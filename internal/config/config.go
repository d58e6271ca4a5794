// Package config loads and validates grabber configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all grabber knobs loaded via Viper.
type Config struct {
	Site    SiteConfig    `mapstructure:"site"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Grab    GrabConfig    `mapstructure:"grab"`
	Output  OutputConfig  `mapstructure:"output"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// SiteConfig locates the source site's pages.
type SiteConfig struct {
	CatalogURL        string `mapstructure:"catalog_url"`
	DayURL            string `mapstructure:"day_url"`
	DetailBaseURL     string `mapstructure:"detail_base_url"`
	ChannelPathPrefix string `mapstructure:"channel_path_prefix"`
}

// HTTPConfig governs the fetcher and the request-rate ceiling.
type HTTPConfig struct {
	UserAgent         string  `mapstructure:"user_agent"`
	TimeoutSeconds    int     `mapstructure:"timeout_seconds"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// GrabConfig selects what gets grabbed.
type GrabConfig struct {
	Channels      []string `mapstructure:"channels"`
	Days          int      `mapstructure:"days"`
	Offset        int      `mapstructure:"offset"`
	Concurrency   int      `mapstructure:"concurrency"`
	BudgetMinutes int      `mapstructure:"budget_minutes"`
}

// OutputConfig controls the XMLTV document and its optional upload.
type OutputConfig struct {
	File      string `mapstructure:"file"`
	Language  string `mapstructure:"language"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	GCSPrefix string `mapstructure:"gcs_prefix"`
}

// MetricsConfig enables the debug listener when Listen is non-empty.
type MetricsConfig struct {
	Listen string `mapstructure:"listen"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
	Quiet       bool `mapstructure:"quiet"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TVGRAB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("site.catalog_url", "https://musor.tv/csatornak")
	v.SetDefault("site.day_url", "https://musor.tv/tvmusor/%s/%s")
	v.SetDefault("site.detail_base_url", "https://musor.tv")
	v.SetDefault("site.channel_path_prefix", "/tvcsatorna/")
	v.SetDefault("http.user_agent", "tvgrab/0.3 (+https://github.com/gkertesz/tvgrab)")
	v.SetDefault("http.timeout_seconds", 15)
	v.SetDefault("http.requests_per_second", 2)
	v.SetDefault("http.burst", 1)
	v.SetDefault("grab.days", 2)
	v.SetDefault("grab.offset", 0)
	v.SetDefault("grab.concurrency", 1)
	v.SetDefault("grab.budget_minutes", 0)
	v.SetDefault("output.file", "tvguide.xml")
	v.SetDefault("output.language", "hu")
	v.SetDefault("output.gcs_prefix", "guides")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits. Channel selection
// is checked by the grab command, not here, so catalog listing works without
// any channels configured.
func (c Config) Validate() error {
	if c.Site.CatalogURL == "" {
		return fmt.Errorf("site.catalog_url must be set")
	}
	if !strings.Contains(c.Site.DayURL, "%s") {
		return fmt.Errorf("site.day_url must contain channel and day placeholders")
	}
	if c.Site.DetailBaseURL == "" {
		return fmt.Errorf("site.detail_base_url must be set")
	}
	if c.Site.ChannelPathPrefix == "" {
		return fmt.Errorf("site.channel_path_prefix must be set")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.Grab.Days <= 0 {
		return fmt.Errorf("grab.days must be > 0")
	}
	if c.Grab.Offset < 0 {
		return fmt.Errorf("grab.offset must be >= 0")
	}
	if c.Grab.Concurrency <= 0 {
		return fmt.Errorf("grab.concurrency must be > 0")
	}
	if c.Output.File == "" {
		return fmt.Errorf("output.file must be set")
	}
	return nil
}

// Timeout converts the HTTP timeout config into a duration.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// Budget returns the overall run deadline, or zero when unbounded.
func (c Config) Budget() time.Duration {
	return time.Duration(c.Grab.BudgetMinutes) * time.Minute
}
