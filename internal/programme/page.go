package programme

import (
	"strconv"
	"strings"

	"github.com/gkertesz/tvgrab/internal/guide"
	"github.com/gkertesz/tvgrab/internal/markup"
)

// PageExtractor pulls one field group out of a detail page. The site's
// markup is fragile; keeping each group behind this interface means a
// selector change lands in sitePage without touching the pipeline, retry,
// or orchestration logic.
type PageExtractor interface {
	// Heading returns the title and optional subtitle. ok is false when the
	// page has no heading block at all, i.e. it is not a programme page.
	Heading(doc *markup.Document) (title, subtitle string, ok bool)
	// Description returns the concatenated content paragraphs and the last
	// embedded content image, if any.
	Description(doc *markup.Document) (desc, iconURL string)
	// Meta returns the ordered category list and the star rating ("8.5/10"
	// form), either of which may be empty.
	Meta(doc *markup.Document) (categories []string, starRating string)
	// Credits returns cast and director names in page order, undeduplicated.
	Credits(doc *markup.Document) (cast, directors []string)
	// Episode returns zero-based season/episode numbering, or nil when the
	// page does not mark the programme as part of a season.
	Episode(doc *markup.Document) *guide.EpisodeNum
}

// Structural markers of the detail page.
const (
	headingClass  = "eventtitle"
	subtitleClass = "originaltitle"
	contentClass  = "eventcontent"
	attrContent   = "data-image"
	metaClass     = "eventmeta"
	genreClass    = "genre"
	actorClass    = "actor"
	directorClass = "director"
	nameClass     = "name"
	seasonClass   = "episodeinfo"
	seasonNumber  = "seasonnumber"
	episodeNumber = "episodenumber"
)

// The event-meta paragraph ends in a fixed-width template whose rating digits
// sit 45 characters from the end. Locale-specific decimal commas become
// periods before the numeric check. Inherently brittle, which is exactly why
// it lives behind PageExtractor.
const (
	ratingMinMetaLen = 44
	ratingTailOffset = 45
	ratingWidth      = 3
)

// sitePage is the production PageExtractor for the listing site's markup.
type sitePage struct{}

// NewSitePage returns the extractor for the live site's markup.
func NewSitePage() PageExtractor {
	return sitePage{}
}

func (sitePage) Heading(doc *markup.Document) (string, string, bool) {
	block, ok := doc.Root().FindFirst("", headingClass)
	if !ok {
		return "", "", false
	}
	titleNode, ok := block.FindFirst("h1", "")
	if !ok || titleNode.Text() == "" {
		return "", "", false
	}
	subtitle := ""
	if sub, ok := block.FindFirst("span", subtitleClass); ok {
		subtitle = sub.Text()
	}
	return titleNode.Text(), subtitle, true
}

func (sitePage) Description(doc *markup.Document) (string, string) {
	var (
		parts []string
		icon  string
	)
	for _, block := range doc.Root().FindAll("", contentClass) {
		if text := block.Text(); text != "" {
			parts = append(parts, text)
		}
		if img, ok := block.Attr(attrContent); ok && img != "" {
			icon = img // last one wins
		}
	}
	return strings.Join(parts, " "), icon
}

func (sitePage) Meta(doc *markup.Document) ([]string, string) {
	meta, ok := doc.Root().FindFirst("", metaClass)
	if !ok {
		return nil, ""
	}
	text := meta.Text()

	var categories []string
	if primary := strings.TrimSpace(strings.SplitN(text, "/", 2)[0]); primary != "" {
		categories = append(categories, primary)
	}
	if genre, ok := meta.FindFirst("", genreClass); ok {
		if g := genre.Text(); g != "" {
			categories = append(categories, g)
		}
	}

	return categories, ratingFromMeta(text)
}

func (sitePage) Credits(doc *markup.Document) ([]string, []string) {
	return namesOf(doc, actorClass), namesOf(doc, directorClass)
}

func (sitePage) Episode(doc *markup.Document) *guide.EpisodeNum {
	block, ok := doc.Root().FindFirst("", seasonClass)
	if !ok {
		return nil
	}
	var ep guide.EpisodeNum
	// Site numbering is 1-based; the canonical record is 0-based.
	if n, ok := numberOf(block, seasonNumber); ok {
		ep.Season = n - 1
		ep.HasSeason = true
	}
	if n, ok := numberOf(block, episodeNumber); ok {
		ep.Episode = n - 1
		ep.HasEpisode = true
	}
	if !ep.HasSeason && !ep.HasEpisode {
		return nil
	}
	return &ep
}

func ratingFromMeta(text string) string {
	runes := []rune(text)
	if len(runes) <= ratingMinMetaLen {
		return ""
	}
	window := string(runes[len(runes)-ratingTailOffset : len(runes)-ratingTailOffset+ratingWidth])
	window = strings.ReplaceAll(window, ",", ".")
	if _, err := strconv.ParseFloat(window, 64); err != nil {
		return ""
	}
	return window + "/10"
}

func namesOf(doc *markup.Document, entityClass string) []string {
	var names []string
	for _, entity := range doc.Root().FindAll("", entityClass) {
		nameNode, ok := entity.FindFirst("", nameClass)
		if !ok {
			continue
		}
		if name := nameNode.Text(); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func numberOf(block markup.Node, class string) (int, bool) {
	node, ok := block.FindFirst("", class)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(node.Text())
	if err != nil {
		return 0, false
	}
	return n, true
}
