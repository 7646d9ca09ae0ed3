// Package syndication renders extracted articles as feed documents.
package syndication

import (
	"encoding/xml"
	"fmt"
	"time"

	"github.com/gorilla/feeds"

	"github.com/tmshv/web2rss/internal"
)

// RSS requires an e-mail in <author>; pages only give us a name.
const placeholderEmail = "unknown@domain.tld"

const generator = "web2rss"

type rssDocument struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	AtomNS  string     `xml:"xmlns:atom,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	AtomLink    atomLink  `xml:"atom:link"`
	Generator   string    `xml:"generator"`
	Docs        string    `xml:"docs"`
	Items       []rssItem `xml:"item"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
}

// Field order is the output order; guid stays last.
type rssItem struct {
	Link        string  `xml:"link,omitempty"`
	Title       string  `xml:"title,omitempty"`
	PubDate     string  `xml:"pubDate,omitempty"`
	Author      string  `xml:"author,omitempty"`
	Description *cdata  `xml:"description,omitempty"`
	Guid        rssGuid `xml:"guid"`
}

type cdata struct {
	Text string `xml:",cdata"`
}

type rssGuid struct {
	Value       string `xml:",chardata"`
	IsPermaLink string `xml:"isPermaLink,attr"`
}

// FeedXml lets gorilla/feeds serialize the document.
func (d *rssDocument) FeedXml() interface{} {
	return d
}

// Synthesizer builds feed documents for stored feeds.
type Synthesizer struct {
	baseURL string
}

// New returns a synthesizer whose self links start with baseURL.
func New(baseURL string) *Synthesizer {
	return &Synthesizer{baseURL: baseURL}
}

// SelfLink is the public address of the feed document in the given
// format extension ("xml", "atom", "json").
func (s *Synthesizer) SelfLink(id int64, ext string) string {
	return fmt.Sprintf("%s/feed/%d.%s", s.baseURL, id, ext)
}

func description(feed internal.Feed) string {
	return fmt.Sprintf("RSS feed generated from %s.", feed.Url)
}

// RSS renders an RSS 2.0 document. Articles are emitted in reverse order
// and absent fields are omitted rather than left empty.
func (s *Synthesizer) RSS(feed internal.Feed, articles []internal.Article) (string, error) {
	doc := &rssDocument{
		Version: "2.0",
		AtomNS:  "http://www.w3.org/2005/Atom",
		Channel: rssChannel{
			Title:       feed.PageTitle,
			Link:        feed.Url,
			Description: description(feed),
			AtomLink: atomLink{
				Href: s.SelfLink(feed.ID, "xml"),
				Rel:  "self",
				Type: "application/rss+xml",
			},
			Generator: generator,
			Docs:      "http://www.rssboard.org/rss-specification",
			Items:     make([]rssItem, 0, len(articles)),
		},
	}

	for i := len(articles) - 1; i >= 0; i-- {
		doc.Channel.Items = append(doc.Channel.Items, newRssItem(articles[i]))
	}

	return feeds.ToXML(doc)
}

func newRssItem(a internal.Article) rssItem {
	item := rssItem{
		Link:  a.Link,
		Title: a.Title,
		Guid: rssGuid{
			Value:       ArticleGUID(a),
			IsPermaLink: "false",
		},
	}
	if !a.Date.IsZero() {
		item.PubDate = a.Date.Format(time.RFC1123Z)
	}
	if a.Author != "" {
		item.Author = fmt.Sprintf("%s (%s)", placeholderEmail, a.Author)
	}
	if a.Summary != "" {
		item.Description = &cdata{Text: a.Summary}
	}
	return item
}
