package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmshv/web2rss/internal"
)

func newFetcher() *Fetcher {
	return New(NewClient(2*time.Second), "web2rss-test", logr.Discard())
}

func TestDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "web2rss-test", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		w.Write([]byte(`<html><head><title> Café news </title></head><body><div class="post">Hello</div></body></html>`))
	}))
	defer srv.Close()

	doc, err := newFetcher().Document(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, "Hello", doc.Find(".post").Text())
	assert.Equal(t, "Café news", PageTitle(doc, srv.URL))
}

func TestDocumentFollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<p id="moved">here</p>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	doc, err := newFetcher().Document(context.Background(), srv.URL+"/old")
	require.NoError(t, err)
	assert.Equal(t, "here", doc.Find("#moved").Text())
}

func TestDocumentUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	tests := map[string]string{
		"non-2xx status":   srv.URL,
		"unreachable host": "http://127.0.0.1:1/",
		"bad url":          "://nope",
	}

	for name, url := range tests {
		t.Run(name, func(t *testing.T) {
			doc, err := newFetcher().Document(context.Background(), url)
			assert.Nil(t, doc)
			assert.True(t, errors.Is(err, internal.ErrFetchUnavailable), "got %v", err)
		})
	}
}

func TestDocumentCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newFetcher().Document(ctx, srv.URL)
	assert.True(t, errors.Is(err, internal.ErrFetchUnavailable))
}

func TestPageTitleFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>no title</body></html>`))
	}))
	defer srv.Close()

	doc, err := newFetcher().Document(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, srv.URL, PageTitle(doc, srv.URL))
}

func TestDocumentRejectsOversizedPage(t *testing.T) {
	page := []byte(`<html><body>` + strings.Repeat(`<div class="post">x</div>`, 200) + `</body></html>`)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write(page)
	}))
	defer srv.Close()

	f := newFetcher()
	f.maxBody = int64(len(page))

	doc, err := f.Document(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, 200, doc.Find(".post").Length())

	f.maxBody = int64(len(page)) - 1
	doc, err = f.Document(context.Background(), srv.URL)
	assert.Nil(t, doc)
	assert.True(t, errors.Is(err, internal.ErrFetchUnavailable))
}
