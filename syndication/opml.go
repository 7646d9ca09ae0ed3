package syndication

import (
	"github.com/gilliek/go-opml/opml"

	"github.com/tmshv/web2rss/internal"
)

// OPML lists feeds as an outline document pointing at their RSS
// addresses.
func (s *Synthesizer) OPML(list []internal.Feed) (string, error) {
	outlines := make([]opml.Outline, 0, len(list))
	for _, feed := range list {
		outlines = append(outlines, opml.Outline{
			Text:    feed.PageTitle,
			Title:   feed.PageTitle,
			Type:    "rss",
			XMLURL:  s.SelfLink(feed.ID, FormatRSS.Extension()),
			HTMLURL: feed.Url,
		})
	}

	doc := opml.OPML{
		Version: "2.0",
		Head:    opml.Head{Title: "web2rss feeds"},
		Body:    opml.Body{Outlines: outlines},
	}
	return doc.XML()
}

// PageURLs returns the page addresses (htmlUrl) of every outline in an
// OPML document, nested outlines included.
func PageURLs(data []byte) ([]string, error) {
	doc, err := opml.NewOPML(data)
	if err != nil {
		return nil, err
	}

	urls := make([]string, 0)
	var walk func([]opml.Outline)
	walk = func(outlines []opml.Outline) {
		for _, o := range outlines {
			if o.HTMLURL != "" {
				urls = append(urls, o.HTMLURL)
			}
			walk(o.Outlines)
		}
	}
	walk(doc.Body.Outlines)
	return urls, nil
}
