package guide

import (
	"context"
	"time"
)

// Fetcher retrieves one document over the network. Implementations perform
// no retries; the caller owns retry policy.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Sink consumes the grabbed guide. The channel list must be written exactly
// once before any programme, and Close finalizes the output exactly once.
// Implementations must serialize WriteProgramme calls from concurrent crawls.
type Sink interface {
	WriteChannels(ctx context.Context, channels []Channel) error
	WriteProgramme(ctx context.Context, rec ProgrammeRecord) error
	Close() error
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
