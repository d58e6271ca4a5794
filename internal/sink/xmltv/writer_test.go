package xmltv

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gkertesz/tvgrab/internal/guide"
)

func testWriter() (*Writer, *strings.Builder) {
	var sb strings.Builder
	w := New(&sb, Config{
		Language:      "hu",
		GeneratorName: "tvgrab",
		SourceInfoURL: "https://musor.tv",
	})
	return w, &sb
}

func sampleChannels() []guide.Channel {
	return []guide.Channel{
		{ID: "m1", DisplayName: "M1", LogoURL: "https://static.musor.tv/logos/m1.png"},
		{ID: "duna", DisplayName: "Duna TV"},
	}
}

func sampleRecord(t *testing.T) guide.ProgrammeRecord {
	t.Helper()
	loc, err := guide.LoadTargetZone()
	require.NoError(t, err)
	start := time.Date(2025, time.February, 10, 20, 15, 0, 0, loc)
	return guide.ProgrammeRecord{
		ChannelID:   "m1",
		Title:       "Esti film",
		Subtitle:    "An Evening Film",
		Description: "Hosszú leírás.",
		Categories:  []string{"Filmdráma", "Dráma"},
		Cast:        []string{"Kovács Anna", "Nagy Péter"},
		Directors:   []string{"Szabó Gábor"},
		Episode:     &guide.EpisodeNum{Season: 1, Episode: 4, HasSeason: true, HasEpisode: true},
		StarRating:  "8.9/10",
		IconURL:     "/img/last.jpg",
		Start:       start,
		Stop:        start.Add(45 * time.Minute),
	}
}

func TestWriteChannelsThenProgramme(t *testing.T) {
	t.Parallel()

	w, sb := testWriter()
	ctx := context.Background()

	require.NoError(t, w.WriteChannels(ctx, sampleChannels()))
	require.NoError(t, w.WriteProgramme(ctx, sampleRecord(t)))
	require.NoError(t, w.Close())

	out := sb.String()
	require.Contains(t, out, `<!DOCTYPE tv SYSTEM "xmltv.dtd">`)
	require.Contains(t, out, `<channel id="m1">`)
	require.Contains(t, out, `<display-name lang="hu">M1</display-name>`)
	require.Contains(t, out, `<icon src="https://static.musor.tv/logos/m1.png">`)
	require.Contains(t, out, `channel="m1"`)
	require.Contains(t, out, `start="20250210201500 +0100"`)
	require.Contains(t, out, `stop="20250210210000 +0100"`)
	require.Contains(t, out, `<title lang="hu">Esti film</title>`)
	require.Contains(t, out, `<sub-title lang="hu">An Evening Film</sub-title>`)
	require.Contains(t, out, `<director>Szabó Gábor</director>`)
	require.Contains(t, out, `<actor>Kovács Anna</actor>`)
	require.Contains(t, out, `<episode-num system="xmltv_ns">1.4.</episode-num>`)
	require.Contains(t, out, `<value>8.9/10</value>`)
	require.True(t, strings.HasSuffix(out, "</tv>\n"))

	// channel list precedes every programme element
	require.Less(t, strings.Index(out, "<channel"), strings.Index(out, "<programme"))
}

func TestWriteProgrammeBeforeChannelsFails(t *testing.T) {
	t.Parallel()

	w, _ := testWriter()
	err := w.WriteProgramme(context.Background(), sampleRecord(t))
	require.Error(t, err)
}

func TestWriteChannelsTwiceFails(t *testing.T) {
	t.Parallel()

	w, _ := testWriter()
	ctx := context.Background()
	require.NoError(t, w.WriteChannels(ctx, sampleChannels()))
	require.Error(t, w.WriteChannels(ctx, sampleChannels()))
}

func TestWriteAfterCloseFails(t *testing.T) {
	t.Parallel()

	w, _ := testWriter()
	ctx := context.Background()
	require.NoError(t, w.WriteChannels(ctx, sampleChannels()))
	require.NoError(t, w.Close())
	require.NoError(t, w.Close()) // idempotent
	require.Error(t, w.WriteProgramme(ctx, sampleRecord(t)))
}

func TestOptionalFieldsOmitted(t *testing.T) {
	t.Parallel()

	w, sb := testWriter()
	ctx := context.Background()
	require.NoError(t, w.WriteChannels(ctx, sampleChannels()))

	rec := sampleRecord(t)
	rec.Subtitle = ""
	rec.Description = ""
	rec.Categories = nil
	rec.Cast = nil
	rec.Directors = nil
	rec.Episode = nil
	rec.StarRating = ""
	rec.IconURL = ""
	require.NoError(t, w.WriteProgramme(ctx, rec))
	require.NoError(t, w.Close())

	out := sb.String()
	require.NotContains(t, out, "<sub-title")
	require.NotContains(t, out, "<desc")
	require.NotContains(t, out, "<credits")
	require.NotContains(t, out, "<category")
	require.NotContains(t, out, "<episode-num")
	require.NotContains(t, out, "<star-rating")
}

func TestEpisodeNumHalves(t *testing.T) {
	t.Parallel()

	require.Equal(t, "1.4.", episodeNumValue(guide.EpisodeNum{Season: 1, Episode: 4, HasSeason: true, HasEpisode: true}))
	require.Equal(t, "2..", episodeNumValue(guide.EpisodeNum{Season: 2, HasSeason: true}))
	require.Equal(t, ".0.", episodeNumValue(guide.EpisodeNum{Episode: 0, HasEpisode: true}))
}
