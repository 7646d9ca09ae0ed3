// Package server exposes feeds, settings and the page proxy over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/go-logr/logr"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/tmshv/web2rss/internal"
	"github.com/tmshv/web2rss/service"
	"github.com/tmshv/web2rss/syndication"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Upper bound for one request, covering fetch, extraction and the oracle.
const requestTimeout = 2 * time.Minute

type Server struct {
	app    *fiber.App
	svc    *service.Service
	logger logr.Logger
}

func New(svc *service.Service, logger logr.Logger) *Server {
	s := &Server{
		svc:    svc,
		logger: logger.WithName("server"),
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "web2rss",
		DisableStartupMessage: true,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
	})

	s.app.Use(recover.New())
	s.app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	s.app.Use(s.logRequests)
	s.app.Use(requestContext)

	s.app.Get("/feed/:id.:ext", s.feedDocument)
	s.app.Get("/feeds.opml", s.opml)
	s.app.Get("/feeds", s.listFeeds)
	s.app.Post("/feeds", s.createFeed)
	s.app.Get("/feeds/:id", s.getFeed)
	s.app.Put("/feeds/:id/settings", s.updateSettings)
	s.app.Get("/feeds/:id/proxy", s.proxy)
	s.app.Get("/feeds/:id/proxy/*", s.proxy)

	return s
}

// App exposes the fiber application, mostly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Listen(addr string) error {
	s.logger.Info("Listening", "addr", addr)
	return s.app.Listen(addr)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) logRequests(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	s.logger.Info("Request",
		"id", c.Locals("requestid"),
		"method", c.Method(),
		"path", c.Path(),
		"status", c.Response().StatusCode(),
		"latency", time.Since(start).String(),
	)
	return err
}

// requestContext gives handlers a context that ends at the request deadline
// or when the server shuts down. fasthttp does not report a client that
// hangs up, so an abandoned request runs until one of those happens.
func requestContext(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), requestTimeout)
	defer cancel()
	stop := context.AfterFunc(c.Context(), cancel)
	defer stop()

	c.SetUserContext(ctx)
	return c.Next()
}

// fail turns a pipeline error into a plain-text response.
func (s *Server) fail(c *fiber.Ctx, err error) error {
	status := fiber.StatusBadRequest
	var msg string

	switch {
	case errors.Is(err, internal.ErrFeedNotFound):
		status = fiber.StatusNotFound
		msg = "Feed not found"
	case errors.Is(err, internal.ErrSelectorsUnready):
		msg = "Invalid feed. Please update feed settings"
	case errors.Is(err, internal.ErrMalformedSelector):
		msg = fmt.Sprintf("Invalid feed selectors. Please update feed settings: %v", err)
	case errors.Is(err, internal.ErrFetchUnavailable):
		msg = "Invalid feed. The page could not be fetched"
	case errors.Is(err, internal.ErrInvalidURL):
		msg = "Invalid URL. Please submit an http or https address"
	default:
		status = fiber.StatusInternalServerError
		msg = "Internal error"
		s.logger.Error(err, "Request failed", "path", c.Path())
	}

	if status != fiber.StatusInternalServerError {
		s.logger.V(1).Info("Request rejected", "path", c.Path(), "reason", err.Error())
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.Status(status).SendString(msg)
}

func feedID(c *fiber.Ctx) (int64, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("feed %q: %w", c.Params("id"), internal.ErrFeedNotFound)
	}
	return int64(id), nil
}

func (s *Server) feedDocument(c *fiber.Ctx) error {
	id, err := feedID(c)
	if err != nil {
		return s.fail(c, err)
	}
	format, err := syndication.ParseFormat(c.Params("ext"))
	if err != nil {
		return s.fail(c, fmt.Errorf("%w: %v", internal.ErrFeedNotFound, err))
	}

	doc, err := s.svc.Render(c.UserContext(), id, format)
	if err != nil {
		return s.fail(c, err)
	}

	c.Set(fiber.HeaderContentType, format.ContentType())
	return c.SendString(doc)
}

func (s *Server) opml(c *fiber.Ctx) error {
	doc, err := s.svc.OPML(c.UserContext())
	if err != nil {
		return s.fail(c, err)
	}
	c.Set(fiber.HeaderContentType, "text/x-opml")
	return c.SendString(doc)
}

func (s *Server) listFeeds(c *fiber.Ctx) error {
	feeds, err := s.svc.Feeds(c.UserContext())
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(feeds)
}

type createFeedRequest struct {
	Url string `json:"url" form:"url"`
}

func (s *Server) createFeed(c *fiber.Ctx) error {
	var req createFeedRequest
	if err := c.BodyParser(&req); err != nil {
		return s.fail(c, fmt.Errorf("%w: %v", internal.ErrInvalidURL, err))
	}

	feed, err := s.svc.Create(c.UserContext(), req.Url)
	if err != nil {
		return s.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(feed)
}

func (s *Server) getFeed(c *fiber.Ctx) error {
	id, err := feedID(c)
	if err != nil {
		return s.fail(c, err)
	}
	feed, err := s.svc.Feed(c.UserContext(), id)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(feed)
}

func (s *Server) updateSettings(c *fiber.Ctx) error {
	id, err := feedID(c)
	if err != nil {
		return s.fail(c, err)
	}

	var selectors internal.Selectors
	if err := c.BodyParser(&selectors); err != nil {
		return s.fail(c, fmt.Errorf("%w: %v", internal.ErrMalformedSelector, err))
	}

	feed, err := s.svc.UpdateSettings(c.UserContext(), id, selectors)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(feed)
}

func (s *Server) proxy(c *fiber.Ctx) error {
	id, err := feedID(c)
	if err != nil {
		return s.fail(c, err)
	}

	params := url.Values{}
	c.Context().QueryArgs().VisitAll(func(k, v []byte) {
		params.Add(string(k), string(v))
	})

	rewrite := func(path string) string {
		return fmt.Sprintf("/feeds/%d/proxy/%s", id, path)
	}

	resp, err := s.svc.Proxy(c.UserContext(), id, c.Params("*"), params, rewrite)
	if err != nil {
		return s.fail(c, err)
	}

	for name, values := range resp.Header {
		if name == fiber.HeaderContentType {
			continue
		}
		for _, v := range values {
			c.Response().Header.Add(name, v)
		}
	}
	if resp.ContentType != "" {
		c.Set(fiber.HeaderContentType, resp.ContentType)
	}
	return c.Status(resp.Status).Send(resp.Body)
}
