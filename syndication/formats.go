package syndication

import (
	"fmt"

	"github.com/gorilla/feeds"

	"github.com/tmshv/web2rss/internal"
)

// Format is a feed document flavour.
type Format string

const (
	FormatRSS  Format = "rss"
	FormatAtom Format = "atom"
	FormatJSON Format = "json"
)

// ParseFormat maps a file extension or a format name to a Format.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "rss", "xml", "":
		return FormatRSS, nil
	case "atom":
		return FormatAtom, nil
	case "json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unknown feed format %q", s)
}

// ContentType is the media type the format is served with.
func (f Format) ContentType() string {
	switch f {
	case FormatAtom:
		return "application/atom+xml"
	case FormatJSON:
		return "application/feed+json"
	}
	return "application/rss+xml"
}

// Extension is the file extension of the format's self link.
func (f Format) Extension() string {
	if f == FormatRSS {
		return "xml"
	}
	return string(f)
}

// Render synthesizes the document in the requested format.
func (s *Synthesizer) Render(format Format, feed internal.Feed, articles []internal.Article) (string, error) {
	switch format {
	case FormatRSS:
		return s.RSS(feed, articles)
	case FormatAtom:
		return s.gorillaFeed(feed, articles, format).ToAtom()
	case FormatJSON:
		return s.gorillaFeed(feed, articles, format).ToJSON()
	}
	return "", fmt.Errorf("unknown feed format %q", format)
}

// gorillaFeed maps articles onto gorilla/feeds items, keeping the RSS
// ordering and identifiers. Entries without a date carry the feed's
// creation time so that the output stays deterministic.
func (s *Synthesizer) gorillaFeed(feed internal.Feed, articles []internal.Article, format Format) *feeds.Feed {
	updated := feed.CreatedAt
	for _, a := range articles {
		if a.Date.After(updated) {
			updated = a.Date
		}
	}

	f := &feeds.Feed{
		Title:       feed.PageTitle,
		Link:        &feeds.Link{Href: s.SelfLink(feed.ID, format.Extension()), Rel: "self"},
		Description: description(feed),
		Created:     feed.CreatedAt,
		Updated:     updated,
		Items:       make([]*feeds.Item, 0, len(articles)),
	}

	for i := len(articles) - 1; i >= 0; i-- {
		a := articles[i]

		link := a.Link
		if link == "" {
			link = feed.Url
		}
		created := a.Date
		if created.IsZero() {
			created = feed.CreatedAt
		}

		item := &feeds.Item{
			Title:       a.Title,
			Link:        &feeds.Link{Href: link},
			Description: a.Summary,
			Id:          "urn:sha256:" + ArticleGUID(a),
			Created:     created,
			Updated:     created,
		}
		if a.Author != "" {
			item.Author = &feeds.Author{Name: a.Author, Email: placeholderEmail}
		}
		f.Items = append(f.Items, item)
	}

	return f
}
