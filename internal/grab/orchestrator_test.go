package grab

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gkertesz/tvgrab/internal/guide"
	"github.com/gkertesz/tvgrab/internal/metrics"
	"github.com/gkertesz/tvgrab/internal/progress"
)

func init() {
	metrics.Init()
}

type fakeCrawler struct {
	mu    sync.Mutex
	stubs map[string][]guide.ProgrammeStub // key: channelID + "/" + day
	calls []string
}

func (c *fakeCrawler) CrawlDayWithRetry(_ context.Context, channelID string, day guide.Day) []guide.ProgrammeStub {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := channelID + "/" + day.Format()
	c.calls = append(c.calls, key)
	return c.stubs[key]
}

type fakeExtractor struct {
	mu      sync.Mutex
	err     error
	skipAll bool
}

func (e *fakeExtractor) Extract(_ context.Context, stub guide.ProgrammeStub, channelID string, day guide.Day) (*guide.ProgrammeRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	if e.skipAll {
		return nil, nil
	}
	start, stop, err := guide.ProgrammeTimes(day, stub.Start, stub.End)
	if err != nil {
		return nil, err
	}
	return &guide.ProgrammeRecord{
		ChannelID: channelID,
		Title:     "Programme " + stub.DetailLink,
		Start:     start,
		Stop:      stop,
	}, nil
}

type fakeSink struct {
	mu       sync.Mutex
	channels []guide.Channel
	records  []guide.ProgrammeRecord
	chanErr  error
	closed   bool
}

func (s *fakeSink) WriteChannels(_ context.Context, channels []guide.Channel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.chanErr != nil {
		return s.chanErr
	}
	s.channels = channels
	return nil
}

func (s *fakeSink) WriteProgramme(_ context.Context, rec guide.ProgrammeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.channels) == 0 {
		return errors.New("programme before channels")
	}
	s.records = append(s.records, rec)
	return nil
}

func (s *fakeSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func testStart(t *testing.T) guide.Day {
	t.Helper()
	loc, err := guide.LoadTargetZone()
	require.NoError(t, err)
	return guide.NewDay(time.Date(2025, time.February, 10, 12, 0, 0, 0, loc), loc)
}

func TestRunForwardsRecordsTaggedWithChannel(t *testing.T) {
	t.Parallel()

	start := testStart(t)
	crawler := &fakeCrawler{stubs: map[string][]guide.ProgrammeStub{
		"m1/20250210": {
			{DetailLink: "/musor/1", Start: "2015", End: "2100"},
			{DetailLink: "/musor/2", Start: "2100", End: "2200"},
		},
	}}
	sink := &fakeSink{}
	o := New(crawler, &fakeExtractor{}, sink, Config{}, zap.NewNop())

	channels := []guide.Channel{{ID: "m1", DisplayName: "M1"}}
	require.NoError(t, o.Run(context.Background(), channels, start, 1))

	require.Equal(t, channels, sink.channels)
	require.Len(t, sink.records, 2)
	require.Equal(t, "m1", sink.records[0].ChannelID)
	// stub order preserved
	require.Equal(t, "Programme /musor/1", sink.records[0].Title)
	require.Equal(t, "Programme /musor/2", sink.records[1].Title)
}

func TestRunClampsDayCount(t *testing.T) {
	t.Parallel()

	crawler := &fakeCrawler{stubs: map[string][]guide.ProgrammeStub{}}
	o := New(crawler, &fakeExtractor{}, &fakeSink{}, Config{}, zap.NewNop())

	channels := []guide.Channel{{ID: "m1"}}
	require.NoError(t, o.Run(context.Background(), channels, testStart(t), 10))

	require.Equal(t, []string{
		"m1/20250210",
		"m1/20250211",
		"m1/20250212",
		"m1/20250213",
	}, crawler.calls)
}

func TestRunContinuesPastAbandonedDays(t *testing.T) {
	t.Parallel()

	// Day one yields nothing (abandoned upstream); day two has a programme.
	crawler := &fakeCrawler{stubs: map[string][]guide.ProgrammeStub{
		"m1/20250211": {{DetailLink: "/musor/9", Start: "0800", End: "0900"}},
	}}
	sink := &fakeSink{}
	o := New(crawler, &fakeExtractor{}, sink, Config{}, zap.NewNop())

	require.NoError(t, o.Run(context.Background(), []guide.Channel{{ID: "m1"}}, testStart(t), 2))
	require.Len(t, sink.records, 1)
}

func TestRunUpdatesTracker(t *testing.T) {
	t.Parallel()

	// Day one is abandoned upstream (nil stubs), day two succeeds.
	crawler := &fakeCrawler{stubs: map[string][]guide.ProgrammeStub{
		"m1/20250211": {{DetailLink: "/musor/9", Start: "0800", End: "0900"}},
	}}
	tracker := progress.New()
	o := New(crawler, &fakeExtractor{}, &fakeSink{}, Config{Tracker: tracker}, zap.NewNop())

	require.NoError(t, o.Run(context.Background(), []guide.Channel{{ID: "m1"}}, testStart(t), 2))

	snap := tracker.Snapshot()
	require.Equal(t, int64(1), snap.DaysAbandoned)
	require.Equal(t, int64(1), snap.DaysCompleted)
	require.Equal(t, int64(1), snap.Programmes)
	require.Equal(t, int64(1), snap.ChannelsDone)
}

func TestRunSkipsFailedAndNonProgrammeDetails(t *testing.T) {
	t.Parallel()

	stubs := map[string][]guide.ProgrammeStub{
		"m1/20250210": {{DetailLink: "/musor/1", Start: "2015", End: "2100"}},
	}

	sink := &fakeSink{}
	o := New(&fakeCrawler{stubs: stubs}, &fakeExtractor{err: errors.New("fetch detail page: timeout")}, sink, Config{}, zap.NewNop())
	require.NoError(t, o.Run(context.Background(), []guide.Channel{{ID: "m1"}}, testStart(t), 1))
	require.Empty(t, sink.records)

	sink = &fakeSink{}
	o = New(&fakeCrawler{stubs: stubs}, &fakeExtractor{skipAll: true}, sink, Config{}, zap.NewNop())
	require.NoError(t, o.Run(context.Background(), []guide.Channel{{ID: "m1"}}, testStart(t), 1))
	require.Empty(t, sink.records)
}

func TestRunChannelListFailureIsFatal(t *testing.T) {
	t.Parallel()

	o := New(&fakeCrawler{}, &fakeExtractor{}, &fakeSink{chanErr: errors.New("disk full")}, Config{}, zap.NewNop())
	err := o.Run(context.Background(), []guide.Channel{{ID: "m1"}}, testStart(t), 1)
	require.Error(t, err)
}

func TestRunConcurrentChannelsAllComplete(t *testing.T) {
	t.Parallel()

	start := testStart(t)
	stubs := map[string][]guide.ProgrammeStub{}
	var channels []guide.Channel
	for _, id := range []string{"m1", "m2", "m3", "m4"} {
		stubs[id+"/"+start.Format()] = []guide.ProgrammeStub{{DetailLink: "/musor/" + id, Start: "1000", End: "1100"}}
		channels = append(channels, guide.Channel{ID: id})
	}
	sink := &fakeSink{}
	o := New(&fakeCrawler{stubs: stubs}, &fakeExtractor{}, sink, Config{Concurrency: 3}, zap.NewNop())

	require.NoError(t, o.Run(context.Background(), channels, start, 1))
	require.Len(t, sink.records, 4)

	seen := map[string]bool{}
	for _, rec := range sink.records {
		seen[rec.ChannelID] = true
	}
	require.Len(t, seen, 4)
}
