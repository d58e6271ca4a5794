// Package guide defines the core data model shared by the grabber pipeline.
package guide

import "time"

// Channel identifies one broadcast channel discovered from the catalog page.
// The ID is URL-safe and doubles as the path segment used to build day URLs.
type Channel struct {
	ID          string
	DisplayName string
	LogoURL     string
}

// ProgrammeStub is a lightweight reference to one programme's detail page
// plus its coarse time-of-day bounds. Stubs are produced per channel-day and
// consumed immediately; they are never persisted.
type ProgrammeStub struct {
	DetailLink string
	Start      string // "HHMM", zero-padded, no separator
	End        string // "HHMM"
}

// EpisodeNum carries zero-based season/episode numbering. Either half may be
// absent; the site does not always publish both.
type EpisodeNum struct {
	Season     int
	Episode    int
	HasSeason  bool
	HasEpisode bool
}

// ProgrammeRecord is the canonical output unit: one fully normalized
// programme with absolute timestamps in the target zone. Records are built
// atomically from one detail page and handed to the Sink as-is.
type ProgrammeRecord struct {
	ChannelID   string
	Title       string
	Subtitle    string
	Description string
	Categories  []string // ordered, primary first
	Cast        []string
	Directors   []string
	Episode     *EpisodeNum
	StarRating  string // "8.9/10"
	IconURL     string
	Start       time.Time
	Stop        time.Time
}
