// Package xmltv streams the grabbed guide as an XMLTV document.
package xmltv

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"sync"

	"github.com/gkertesz/tvgrab/internal/guide"
)

// timeLayout renders absolute instants with their explicit zone offset, as
// the XMLTV DTD expects.
const timeLayout = "20060102150405 -0700"

// Config controls document-level attributes.
type Config struct {
	// Language tags display names and text fields, e.g. "hu".
	Language      string
	GeneratorName string
	SourceInfoURL string
}

// Writer implements guide.Sink over an io.Writer. The channel list is
// written exactly once before any programme, each programme is emitted
// atomically, and Close finalizes the document once. All writes are
// serialized, so concurrent channel crawls can share one Writer.
type Writer struct {
	mu              sync.Mutex
	out             io.Writer
	cfg             Config
	channelsWritten bool
	closed          bool
}

// New builds a Writer emitting to out.
func New(out io.Writer, cfg Config) *Writer {
	return &Writer{out: out, cfg: cfg}
}

type textElem struct {
	Lang  string `xml:"lang,attr,omitempty"`
	Value string `xml:",chardata"`
}

type iconElem struct {
	Src string `xml:"src,attr"`
}

type channelElem struct {
	XMLName     xml.Name  `xml:"channel"`
	ID          string    `xml:"id,attr"`
	DisplayName textElem  `xml:"display-name"`
	Icon        *iconElem `xml:"icon,omitempty"`
}

type creditsElem struct {
	Directors []string `xml:"director,omitempty"`
	Actors    []string `xml:"actor,omitempty"`
}

type episodeNumElem struct {
	System string `xml:"system,attr"`
	Value  string `xml:",chardata"`
}

type starRatingElem struct {
	Value string `xml:"value"`
}

type programmeElem struct {
	XMLName    xml.Name        `xml:"programme"`
	Start      string          `xml:"start,attr"`
	Stop       string          `xml:"stop,attr"`
	Channel    string          `xml:"channel,attr"`
	Title      textElem        `xml:"title"`
	SubTitle   *textElem       `xml:"sub-title,omitempty"`
	Desc       *textElem       `xml:"desc,omitempty"`
	Credits    *creditsElem    `xml:"credits,omitempty"`
	Categories []textElem      `xml:"category,omitempty"`
	Icon       *iconElem       `xml:"icon,omitempty"`
	EpisodeNum *episodeNumElem `xml:"episode-num,omitempty"`
	StarRating *starRatingElem `xml:"star-rating,omitempty"`
}

// WriteChannels emits the document header and the full channel list. It must
// be called exactly once, before any programme.
func (w *Writer) WriteChannels(ctx context.Context, channels []guide.Channel) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context done: %w", err)
	}
	if w.closed {
		return fmt.Errorf("sink already finalized")
	}
	if w.channelsWritten {
		return fmt.Errorf("channel list already written")
	}

	header := fmt.Sprintf("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<!DOCTYPE tv SYSTEM \"xmltv.dtd\">\n<tv generator-info-name=%q source-info-url=%q>\n",
		w.cfg.GeneratorName, w.cfg.SourceInfoURL)
	if _, err := io.WriteString(w.out, header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, ch := range channels {
		elem := channelElem{
			ID:          ch.ID,
			DisplayName: textElem{Lang: w.cfg.Language, Value: ch.DisplayName},
		}
		if ch.LogoURL != "" {
			elem.Icon = &iconElem{Src: ch.LogoURL}
		}
		if err := w.writeElem(elem); err != nil {
			return fmt.Errorf("write channel %s: %w", ch.ID, err)
		}
	}
	w.channelsWritten = true
	return nil
}

// WriteProgramme emits one programme record atomically.
func (w *Writer) WriteProgramme(ctx context.Context, rec guide.ProgrammeRecord) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context done: %w", err)
	}
	if w.closed {
		return fmt.Errorf("sink already finalized")
	}
	if !w.channelsWritten {
		return fmt.Errorf("channel list must be written before programmes")
	}

	elem := programmeElem{
		Start:   rec.Start.Format(timeLayout),
		Stop:    rec.Stop.Format(timeLayout),
		Channel: rec.ChannelID,
		Title:   textElem{Lang: w.cfg.Language, Value: rec.Title},
	}
	if rec.Subtitle != "" {
		elem.SubTitle = &textElem{Lang: w.cfg.Language, Value: rec.Subtitle}
	}
	if rec.Description != "" {
		elem.Desc = &textElem{Lang: w.cfg.Language, Value: rec.Description}
	}
	if len(rec.Cast) > 0 || len(rec.Directors) > 0 {
		elem.Credits = &creditsElem{Directors: rec.Directors, Actors: rec.Cast}
	}
	for _, cat := range rec.Categories {
		elem.Categories = append(elem.Categories, textElem{Lang: w.cfg.Language, Value: cat})
	}
	if rec.IconURL != "" {
		elem.Icon = &iconElem{Src: rec.IconURL}
	}
	if rec.Episode != nil {
		elem.EpisodeNum = &episodeNumElem{System: "xmltv_ns", Value: episodeNumValue(*rec.Episode)}
	}
	if rec.StarRating != "" {
		elem.StarRating = &starRatingElem{Value: rec.StarRating}
	}

	if err := w.writeElem(elem); err != nil {
		return fmt.Errorf("write programme %q: %w", rec.Title, err)
	}
	return nil
}

// Close finalizes the document. Further writes fail.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	if !w.channelsWritten {
		return nil
	}
	if _, err := io.WriteString(w.out, "</tv>\n"); err != nil {
		return fmt.Errorf("write trailer: %w", err)
	}
	return nil
}

func (w *Writer) writeElem(v any) error {
	payload, err := xml.MarshalIndent(v, "  ", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	payload = append(payload, '\n')
	if _, err := w.out.Write(payload); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// episodeNumValue renders zero-based numbering in xmltv_ns form, leaving a
// half blank when the site did not publish it.
func episodeNumValue(ep guide.EpisodeNum) string {
	season, episode := "", ""
	if ep.HasSeason {
		season = fmt.Sprintf("%d", ep.Season)
	}
	if ep.HasEpisode {
		episode = fmt.Sprintf("%d", ep.Episode)
	}
	return fmt.Sprintf("%s.%s.", season, episode)
}
