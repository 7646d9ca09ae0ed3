// Package proxy serves third-party pages with their root-relative links
// routed back through our own proxy route.
package proxy

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-logr/logr"
)

const maxBodySize = 20 << 20

// Headers describing the upstream framing; the body we serve is a
// different one.
var strippedHeaders = []string{
	"Content-Encoding",
	"Content-Length",
	"Transfer-Encoding",
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Upgrade",
}

// Rewriter maps a site path, without its leading slash and with any query
// string, to a URL inside the proxy route.
type Rewriter func(path string) string

type Response struct {
	Status      int
	Header      http.Header
	Body        []byte
	ContentType string
}

type Proxy struct {
	client  *http.Client
	maxBody int64
	logger  logr.Logger
}

// NewClient returns a client that never follows redirects, so that the
// Location header can be rewritten and handed to the browser.
func NewClient(timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = 8
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func New(client *http.Client, logger logr.Logger) *Proxy {
	return &Proxy{
		client:  client,
		maxBody: maxBodySize,
		logger:  logger.WithName("proxy"),
	}
}

// Get fetches target with params and returns the upstream response with
// framing headers removed, the Location header rewritten, and, for HTML,
// every root-relative href and src rewritten. Other bodies pass through
// untouched. A body over the size limit is an error, never a cut-off copy.
func (p *Proxy) Get(ctx context.Context, target string, params url.Values, rewrite Rewriter) (*Response, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, err
	}
	if len(params) > 0 {
		q := u.Query()
		for k, vs := range params {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, p.maxBody+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > p.maxBody {
		return nil, fmt.Errorf("GET %s: body exceeds %d bytes", u.Redacted(), p.maxBody)
	}

	p.logger.V(1).Info("Proxied", "url", u.String(), "status", resp.StatusCode)

	contentType := resp.Header.Get("Content-Type")
	if isHTML(contentType) {
		body, err = rewriteHTML(body, rewrite)
		if err != nil {
			return nil, err
		}
	}

	return &Response{
		Status:      resp.StatusCode,
		Header:      proxiedHeaders(resp.Header, u, rewrite),
		Body:        body,
		ContentType: contentType,
	}, nil
}

func isHTML(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "text/html")
}

func proxiedHeaders(upstream http.Header, target *url.URL, rewrite Rewriter) http.Header {
	h := upstream.Clone()
	for _, name := range strippedHeaders {
		h.Del(name)
	}
	if loc := h.Get("Location"); loc != "" {
		h.Set("Location", rewriteLocation(loc, target, rewrite))
	}
	return h
}

// rewriteLocation routes root-relative and same-origin redirects through
// the proxy. Redirects to other sites are left alone.
func rewriteLocation(loc string, target *url.URL, rewrite Rewriter) string {
	if isRootRelative(loc) {
		return rewrite(loc[1:])
	}

	u, err := url.Parse(loc)
	if err != nil || u.Host == "" {
		return loc
	}
	if !strings.EqualFold(u.Host, target.Host) || (u.Scheme != "" && u.Scheme != target.Scheme) {
		return loc
	}
	return rewrite(strings.TrimPrefix(u.RequestURI(), "/"))
}

// isRootRelative matches "/path" but not the network-path form "//host".
func isRootRelative(ref string) bool {
	return strings.HasPrefix(ref, "/") && !strings.HasPrefix(ref, "//")
}

func rewriteHTML(body []byte, rewrite Rewriter) ([]byte, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	for _, attr := range []string{"href", "src"} {
		doc.Find("[" + attr + "^='/']").Each(func(_ int, s *goquery.Selection) {
			value, _ := s.Attr(attr)
			if isRootRelative(value) {
				s.SetAttr(attr, rewrite(value[1:]))
			}
		})
	}

	html, err := doc.Html()
	if err != nil {
		return nil, err
	}
	return []byte(html), nil
}
