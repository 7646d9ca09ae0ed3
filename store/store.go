package store

import (
	"context"

	"github.com/tmshv/web2rss/internal"
)

type Store interface {
	AddFeed(context.Context, internal.Feed) (int64, error)
	GetFeed(context.Context, int64) (internal.Feed, error)
	GetFeeds(context.Context) ([]internal.Feed, error)
	UpdateSelectors(context.Context, int64, internal.Selectors) (internal.Feed, error)
	Close() error
}
