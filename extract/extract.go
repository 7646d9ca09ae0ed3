// Package extract applies a feed's selectors to a parsed page.
package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"

	"github.com/tmshv/web2rss/internal"
	"github.com/tmshv/web2rss/utils"
)

type Extractor struct {
	dates *DateParser
}

func New(dates *DateParser) *Extractor {
	if dates == nil {
		dates = NewDateParser(nil)
	}
	return &Extractor{dates: dates}
}

// Articles returns the articles of doc in document order. It fails with
// internal.ErrSelectorsUnready when the feed cannot be extracted yet and
// with internal.ErrMalformedSelector when a selector does not parse.
// Nodes carrying neither a title nor a summary are dropped.
func (e *Extractor) Articles(doc *goquery.Document, feed internal.Feed) ([]internal.Article, error) {
	selectors := feed.Selectors.Trim()
	if !selectors.Ready() {
		return nil, fmt.Errorf("feed %d: %w", feed.ID, internal.ErrSelectorsUnready)
	}

	compiled, err := selectors.Compile()
	if err != nil {
		return nil, fmt.Errorf("feed %d: %w", feed.ID, err)
	}

	articles := make([]internal.Article, 0)
	doc.FindMatcher(compiled.Article).Each(func(_ int, node *goquery.Selection) {
		article := internal.Article{
			Link:    parseLink(feed.Url, node, compiled.Link),
			Title:   parseText(node, compiled.Title),
			Date:    e.dates.Parse(parseText(node, compiled.Date)),
			Author:  parseText(node, compiled.Author),
			Summary: parseText(node, compiled.Summary),
		}
		if article.Valid() {
			articles = append(articles, article)
		}
	})

	return articles, nil
}

func first(node *goquery.Selection, sel cascadia.Selector) *goquery.Selection {
	if sel == nil {
		return nil
	}
	match := node.FindMatcher(sel).First()
	if match.Length() == 0 {
		return nil
	}
	return match
}

func parseText(node *goquery.Selection, sel cascadia.Selector) string {
	match := first(node, sel)
	if match == nil {
		return ""
	}
	return strings.TrimSpace(utils.XMLText(match.Text()))
}

func parseLink(feedURL string, node *goquery.Selection, sel cascadia.Selector) string {
	match := first(node, sel)
	if match == nil {
		return ""
	}

	if href, ok := match.Attr("href"); ok {
		href = strings.TrimSpace(href)
		if href == "" {
			return ""
		}
		return utils.AbsoluteURL(feedURL, utils.XMLText(href))
	}

	text := strings.TrimSpace(utils.XMLText(match.Text()))
	if utils.HasScheme(text) {
		return text
	}
	return ""
}
