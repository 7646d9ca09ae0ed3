// Package service runs the page-to-feed pipeline for stored feeds. Every
// call is scoped to one request: fetch, extract and synthesize again.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-logr/logr"
	"github.com/hashicorp/go-multierror"

	"github.com/tmshv/web2rss/extract"
	"github.com/tmshv/web2rss/fetch"
	"github.com/tmshv/web2rss/internal"
	"github.com/tmshv/web2rss/proxy"
	"github.com/tmshv/web2rss/store"
	"github.com/tmshv/web2rss/syndication"
	"github.com/tmshv/web2rss/utils"
)

// Suggester guesses selectors for a page.
type Suggester interface {
	Suggest(ctx context.Context, doc *goquery.Document) (internal.Selectors, error)
}

type Service struct {
	store     store.Store
	fetcher   *fetch.Fetcher
	extractor *extract.Extractor
	synth     *syndication.Synthesizer
	proxy     *proxy.Proxy
	oracle    Suggester
	logger    logr.Logger
}

type Options struct {
	Store       store.Store
	Fetcher     *fetch.Fetcher
	Extractor   *extract.Extractor
	Synthesizer *syndication.Synthesizer
	Proxy       *proxy.Proxy
	Oracle      Suggester
	Logger      logr.Logger
}

func New(opts Options) *Service {
	extractor := opts.Extractor
	if extractor == nil {
		extractor = extract.New(nil)
	}
	return &Service{
		store:     opts.Store,
		fetcher:   opts.Fetcher,
		extractor: extractor,
		synth:     opts.Synthesizer,
		proxy:     opts.Proxy,
		oracle:    opts.Oracle,
		logger:    opts.Logger.WithName("service"),
	}
}

func (s *Service) Feed(ctx context.Context, id int64) (internal.Feed, error) {
	return s.store.GetFeed(ctx, id)
}

func (s *Service) Feeds(ctx context.Context) ([]internal.Feed, error) {
	return s.store.GetFeeds(ctx)
}

// Create fetches the page at rawURL and stores a new feed for it. The
// selectors come from the oracle when it has a suggestion and are left
// empty otherwise.
func (s *Service) Create(ctx context.Context, rawURL string) (internal.Feed, error) {
	pageURL, err := normalizePageURL(rawURL)
	if err != nil {
		return internal.Feed{}, err
	}

	doc, err := s.fetcher.Document(ctx, pageURL)
	if err != nil {
		return internal.Feed{}, err
	}

	feed := internal.Feed{
		Url:       pageURL,
		PageTitle: fetch.PageTitle(doc, pageURL),
		Selectors: s.suggest(ctx, doc),
	}

	id, err := s.store.AddFeed(ctx, feed)
	if err != nil {
		return internal.Feed{}, err
	}
	s.logger.Info("Feed created", "id", id, "url", pageURL, "ready", feed.Selectors.Ready())
	return s.store.GetFeed(ctx, id)
}

func (s *Service) suggest(ctx context.Context, doc *goquery.Document) internal.Selectors {
	if s.oracle == nil {
		return internal.Selectors{}
	}
	selectors, err := s.oracle.Suggest(ctx, doc)
	if err != nil {
		s.logger.V(1).Info("No selector suggestion", "reason", err.Error())
		return internal.Selectors{}
	}
	return selectors
}

func normalizePageURL(rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: %q", internal.ErrInvalidURL, rawURL)
	}
	return utils.DropUtmMarkers(rawURL), nil
}

// UpdateSettings validates the whole selector set before saving it.
func (s *Service) UpdateSettings(ctx context.Context, id int64, selectors internal.Selectors) (internal.Feed, error) {
	selectors = selectors.Trim()
	if err := selectors.Validate(); err != nil {
		return internal.Feed{}, err
	}
	return s.store.UpdateSelectors(ctx, id, selectors)
}

// Articles fetches the feed's page and extracts its articles. Readiness
// is checked first so that an unconfigured feed costs no request.
func (s *Service) Articles(ctx context.Context, feed internal.Feed) ([]internal.Article, error) {
	if !feed.Selectors.Trim().Ready() {
		return nil, fmt.Errorf("feed %d: %w", feed.ID, internal.ErrSelectorsUnready)
	}

	doc, err := s.fetcher.Document(ctx, feed.Url)
	if err != nil {
		return nil, err
	}
	return s.extractor.Articles(doc, feed)
}

// Render produces the whole feed document or an error; never a partial
// document.
func (s *Service) Render(ctx context.Context, id int64, format syndication.Format) (string, error) {
	feed, err := s.store.GetFeed(ctx, id)
	if err != nil {
		return "", err
	}

	articles, err := s.Articles(ctx, feed)
	if err != nil {
		return "", err
	}

	s.logger.V(1).Info("Rendering feed", "id", id, "format", format, "articles", len(articles))
	return s.synth.Render(format, feed, articles)
}

// Proxy fetches path on the feed's site. An empty path is the feed page
// itself.
func (s *Service) Proxy(ctx context.Context, id int64, path string, params url.Values, rewrite proxy.Rewriter) (*proxy.Response, error) {
	feed, err := s.store.GetFeed(ctx, id)
	if err != nil {
		return nil, err
	}

	target := feed.Url
	if path != "" {
		origin, err := utils.Origin(feed.Url)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", internal.ErrInvalidURL, err)
		}
		target = origin.String() + strings.TrimPrefix(path, "/")
	}

	resp, err := s.proxy.Get(ctx, target, params, rewrite)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", internal.ErrFetchUnavailable, err)
	}
	return resp, nil
}

func (s *Service) OPML(ctx context.Context) (string, error) {
	feeds, err := s.store.GetFeeds(ctx)
	if err != nil {
		return "", err
	}
	return s.synth.OPML(feeds)
}

// Import creates a feed for every page listed in an OPML document. Pages
// that fail are reported together; the others are still created.
func (s *Service) Import(ctx context.Context, data []byte) ([]internal.Feed, error) {
	urls, err := syndication.PageURLs(data)
	if err != nil {
		return nil, err
	}

	var (
		created []internal.Feed
		result  *multierror.Error
	)
	for _, u := range urls {
		feed, err := s.Create(ctx, u)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return created, err
			}
			result = multierror.Append(result, fmt.Errorf("%s: %w", u, err))
			continue
		}
		created = append(created, feed)
	}
	return created, result.ErrorOrNil()
}
