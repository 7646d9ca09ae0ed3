package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/tmshv/web2rss/server"
	"github.com/tmshv/web2rss/syndication"
)

type ServeCmd struct {
	Listen string `help:"Address to listen on. Overrides the config file."`
}

func (c *ServeCmd) Run(rt *Runtime) error {
	st, err := rt.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	addr := rt.Config.Listen
	if c.Listen != "" {
		addr = c.Listen
	}

	srv := server.New(rt.newService(st), rt.Logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Listen(addr)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		rt.Logger.Info("Shutting down")
		return srv.Shutdown()
	}
}

type MigrateCmd struct{}

// Run opens the store, which applies pending migrations.
func (c *MigrateCmd) Run(rt *Runtime) error {
	st, err := rt.openStore()
	if err != nil {
		return err
	}
	return st.Close()
}

type AddCmd struct {
	URL string `arg:"" help:"Page to turn into a feed."`
}

func (c *AddCmd) Run(rt *Runtime) error {
	st, err := rt.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	feed, err := rt.newService(st).Create(ctx, c.URL)
	if err != nil {
		return err
	}

	fmt.Printf("Created feed %d %q\n", feed.ID, feed.PageTitle)
	if !feed.Selectors.Ready() {
		fmt.Println("No selectors suggested; update the feed settings before use.")
	}
	return nil
}

type ListCmd struct{}

func (c *ListCmd) Run(rt *Runtime) error {
	st, err := rt.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	feeds, err := st.GetFeeds(context.Background())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCREATED\tREADY\tTITLE\tURL")
	for _, f := range feeds {
		fmt.Fprintf(w, "%d\t%s\t%t\t%s\t%s\n", f.ID, f.CreatedAt.Format(time.DateTime), f.Selectors.Ready(), f.PageTitle, f.Url)
	}
	return w.Flush()
}

type RenderCmd struct {
	ID     int64  `arg:"" help:"Feed id."`
	Format string `short:"f" default:"rss" enum:"rss,atom,json" help:"Output format (rss, atom, json)."`
}

func (c *RenderCmd) Run(rt *Runtime) error {
	st, err := rt.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	format, err := syndication.ParseFormat(c.Format)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	doc, err := rt.newService(st).Render(ctx, c.ID, format)
	if err != nil {
		return err
	}
	fmt.Println(doc)
	return nil
}

type ExportCmd struct{}

func (c *ExportCmd) Run(rt *Runtime) error {
	st, err := rt.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	doc, err := rt.newService(st).OPML(context.Background())
	if err != nil {
		return err
	}
	fmt.Println(doc)
	return nil
}

type ImportCmd struct {
	File string `arg:"" type:"existingfile" help:"OPML file to import."`
}

func (c *ImportCmd) Run(rt *Runtime) error {
	data, err := os.ReadFile(c.File)
	if err != nil {
		return err
	}

	st, err := rt.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	feeds, err := rt.newService(st).Import(context.Background(), data)
	for _, f := range feeds {
		fmt.Printf("Created feed %d %q\n", f.ID, f.PageTitle)
	}
	return err
}
