package main

import (
	"github.com/alecthomas/kong"
	"github.com/go-logr/logr"

	"github.com/tmshv/web2rss/config"
	"github.com/tmshv/web2rss/extract"
	"github.com/tmshv/web2rss/fetch"
	"github.com/tmshv/web2rss/internal/log"
	"github.com/tmshv/web2rss/oracle"
	"github.com/tmshv/web2rss/proxy"
	"github.com/tmshv/web2rss/service"
	"github.com/tmshv/web2rss/store"
	"github.com/tmshv/web2rss/syndication"
)

type CLI struct {
	Config string `short:"c" type:"path" help:"Path to a config file (yaml, toml or json)."`

	Serve   ServeCmd   `cmd:"" help:"Runs the webapp."`
	Migrate MigrateCmd `cmd:"" help:"Creates or upgrades the database tables."`
	Add     AddCmd     `cmd:"" help:"Creates a feed from a page URL."`
	List    ListCmd    `cmd:"" help:"Lists feeds, newest first."`
	Render  RenderCmd  `cmd:"" help:"Prints the feed document of a feed."`
	Export  ExportCmd  `cmd:"" help:"Prints every feed as an OPML document."`
	Import  ImportCmd  `cmd:"" help:"Creates feeds from the pages listed in an OPML file."`
}

// Runtime carries what every command needs.
type Runtime struct {
	Config config.Config
	Logger logr.Logger
}

func (rt *Runtime) openStore() (*store.SqliteStore, error) {
	return store.NewSqliteStore(rt.Config.Database, rt.Logger)
}

func (rt *Runtime) newService(st store.Store) *service.Service {
	cfg := rt.Config
	return service.New(service.Options{
		Store:       st,
		Fetcher:     fetch.New(fetch.NewClient(cfg.Fetch.Timeout), cfg.Fetch.UserAgent, rt.Logger),
		Extractor:   extract.New(extract.NewDateParser(nil)),
		Synthesizer: syndication.New(cfg.BaseURL),
		Proxy:       proxy.New(proxy.NewClient(cfg.Proxy.Timeout), rt.Logger),
		Oracle: oracle.New(oracle.Config{
			APIKey:  cfg.Oracle.APIKey,
			BaseURL: cfg.Oracle.BaseURL,
			Model:   cfg.Oracle.Model,
			Timeout: cfg.Oracle.Timeout,
		}, rt.Logger),
		Logger: rt.Logger,
	})
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("web2rss"),
		kong.Description("Parses webpages as RSS feeds."),
		kong.UsageOnError(),
	)

	cfg, err := config.Load(cli.Config)
	ctx.FatalIfErrorf(err)

	rt := &Runtime{
		Config: cfg,
		Logger: log.New(cfg.Log.Level),
	}

	err = ctx.Run(rt)
	ctx.FatalIfErrorf(err)
}
