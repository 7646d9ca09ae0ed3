// Package fetch downloads pages and parses them into goquery documents.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-logr/logr"

	"github.com/tmshv/web2rss/internal"
	"github.com/tmshv/web2rss/utils"
)

// Pages larger than this are rejected rather than parsed in part.
const maxBodySize = 10 << 20

type Fetcher struct {
	client    *http.Client
	userAgent string
	maxBody   int64
	logger    logr.Logger
}

// NewClient returns a pooled HTTP client with a bounded timeout.
func NewClient(timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = 8
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

func New(client *http.Client, userAgent string, logger logr.Logger) *Fetcher {
	return &Fetcher{
		client:    client,
		userAgent: userAgent,
		maxBody:   maxBodySize,
		logger:    logger.WithName("fetch"),
	}
}

// Document fetches url and parses it. Every transport failure, including a
// non-2xx status, is reported as internal.ErrFetchUnavailable. The body is
// decoded as UTF-8 whatever charset the server declares.
func (f *Fetcher) Document(ctx context.Context, url string) (*goquery.Document, error) {
	body, err := f.get(ctx, url)
	if err != nil {
		f.logger.V(1).Info("Page unavailable", "url", url, "error", err.Error())
		return nil, fmt.Errorf("%w: %v", internal.ErrFetchUnavailable, err)
	}

	text := strings.ToValidUTF8(string(body), "\uFFFD")
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", internal.ErrFetchUnavailable, url, err)
	}
	return doc, nil
}

func (f *Fetcher) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("GET %s: status %s", url, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > f.maxBody {
		return nil, fmt.Errorf("GET %s: body exceeds %d bytes", url, f.maxBody)
	}
	return body, nil
}

// PageTitle returns the text of <head><title>, or fallback when missing.
func PageTitle(doc *goquery.Document, fallback string) string {
	title := strings.TrimSpace(utils.XMLText(doc.Find("html head title").First().Text()))
	if title == "" {
		return fallback
	}
	return title
}
