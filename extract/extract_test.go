package extract

import (
	"encoding/xml"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmshv/web2rss/internal"
	"github.com/tmshv/web2rss/syndication"
)

const blogPage = `
<html><body>
  <div class="post">
    <h2>First post</h2>
    <a class="more" href="/posts/1">read</a>
    <time>2024-03-03T10:00:00+02:00</time>
    <span class="by">Ada</span>
    <p>Summary one</p>
  </div>
  <div class="post">
    <h2>   </h2>
    <p></p>
    <a class="more" href="/posts/decoration">read</a>
  </div>
  <div class="post">
    <a class="more" href="https://elsewhere.org/2">read</a>
    <p>Only a summary</p>
  </div>
</body></html>`

func parse(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func newExtractor() *Extractor {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	return New(NewDateParser(func() time.Time { return now }))
}

func feedWith(sel internal.Selectors) internal.Feed {
	return internal.Feed{ID: 1, Url: "https://blog.example.com/archive/", Selectors: sel}
}

func TestArticlesDropsNodesWithoutTitleOrSummary(t *testing.T) {
	feed := feedWith(internal.Selectors{Article: ".post", Title: ".post h2", Summary: ".post p"})

	articles, err := newExtractor().Articles(parse(t, blogPage), feed)
	require.NoError(t, err)

	require.Len(t, articles, 2)
	assert.Equal(t, "First post", articles[0].Title)
	assert.Equal(t, "Summary one", articles[0].Summary)
	assert.Empty(t, articles[1].Title)
	assert.Equal(t, "Only a summary", articles[1].Summary)
}

func TestArticlesFields(t *testing.T) {
	feed := feedWith(internal.Selectors{
		Article: ".post",
		Link:    "a.more",
		Title:   "h2",
		Date:    "time",
		Author:  ".by",
		Summary: "p",
	})

	articles, err := newExtractor().Articles(parse(t, blogPage), feed)
	require.NoError(t, err)
	require.Len(t, articles, 2)

	first := articles[0]
	assert.Equal(t, "https://blog.example.com/posts/1", first.Link)
	assert.Equal(t, "Ada", first.Author)
	assert.True(t, first.Date.Equal(time.Date(2024, 3, 3, 8, 0, 0, 0, time.UTC)), "got %s", first.Date)

	second := articles[1]
	assert.Equal(t, "https://elsewhere.org/2", second.Link)
	assert.Empty(t, second.Author)
	assert.True(t, second.Date.IsZero())
}

func TestArticlesLinkFromText(t *testing.T) {
	page := `
	<ul>
	  <li><b>One</b><code>https://example.net/one</code></li>
	  <li><b>Two</b><code>not a url</code></li>
	  <li><b>Three</b><a>https://example.net/three</a></li>
	</ul>`
	feed := feedWith(internal.Selectors{Article: "li", Title: "b", Link: "code, a"})

	articles, err := newExtractor().Articles(parse(t, page), feed)
	require.NoError(t, err)
	require.Len(t, articles, 3)

	assert.Equal(t, "https://example.net/one", articles[0].Link)
	assert.Empty(t, articles[1].Link)
	assert.Equal(t, "https://example.net/three", articles[2].Link)
}

func TestArticlesUnsetSelectorsLeaveFieldsAbsent(t *testing.T) {
	feed := feedWith(internal.Selectors{Article: ".post", Title: "h2"})

	articles, err := newExtractor().Articles(parse(t, blogPage), feed)
	require.NoError(t, err)
	require.Len(t, articles, 1)

	assert.Equal(t, internal.Article{Title: "First post"}, articles[0])
}

func TestArticlesUnready(t *testing.T) {
	feed := feedWith(internal.Selectors{Article: ".post", Link: "a"})

	articles, err := newExtractor().Articles(parse(t, blogPage), feed)
	assert.Nil(t, articles)
	assert.True(t, errors.Is(err, internal.ErrSelectorsUnready))
}

func TestArticlesMalformedSelector(t *testing.T) {
	feed := feedWith(internal.Selectors{Article: ".post", Title: "h2[", Summary: "p"})

	_, err := newExtractor().Articles(parse(t, blogPage), feed)
	assert.True(t, errors.Is(err, internal.ErrMalformedSelector))
	assert.False(t, errors.Is(err, internal.ErrSelectorsUnready))
}

func TestArticlesZeroMatchesIsNotAnError(t *testing.T) {
	feed := feedWith(internal.Selectors{Article: ".missing", Title: "h2"})

	articles, err := newExtractor().Articles(parse(t, blogPage), feed)
	require.NoError(t, err)
	assert.Empty(t, articles)
}

func TestDateParserDefaultsToUTC(t *testing.T) {
	p := NewDateParser(func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) })

	d := p.Parse("March 3")
	require.False(t, d.IsZero())
	assert.Equal(t, "UTC", d.Location().String())
	assert.Equal(t, time.March, d.Month())
	assert.Equal(t, 3, d.Day())
}

func TestDateParserKeepsExplicitZone(t *testing.T) {
	p := NewDateParser(nil)

	d := p.Parse("2024-03-03T10:00:00+02:00")
	assert.True(t, d.Equal(time.Date(2024, 3, 3, 8, 0, 0, 0, time.UTC)), "got %s", d)
}

func TestDateParserRejectsNonsense(t *testing.T) {
	p := NewDateParser(nil)

	assert.True(t, p.Parse("").IsZero())
	assert.True(t, p.Parse("xyzzy").IsZero())
}

func TestArticlesRenderAsWellFormedRSS(t *testing.T) {
	page := "<html><body><div class=\"post\"><h2>t\x0bx</h2><p>page\x0cbreak</p></div></body></html>"
	feed := feedWith(internal.Selectors{Article: ".post", Title: "h2", Summary: "p"})

	articles, err := newExtractor().Articles(parse(t, page), feed)
	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.Equal(t, "tx", articles[0].Title)
	assert.Equal(t, "pagebreak", articles[0].Summary)

	out, err := syndication.New("https://rss.example.org").RSS(feed, articles)
	require.NoError(t, err)

	dec := xml.NewDecoder(strings.NewReader(out))
	for {
		_, err := dec.Token()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}
	assert.Contains(t, out, "<title>tx</title>")
	assert.Contains(t, out, syndication.ArticleGUID(articles[0]))
}
