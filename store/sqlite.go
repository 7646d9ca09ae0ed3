package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"

	"github.com/tmshv/web2rss/internal"
)

//go:embed migrations/*.sql
var migrations embed.FS

const feedColumns = `
    id, created_at, url, page_title,
    article_selector, link_selector, title_selector,
    date_selector, author_selector, summary_selector
`

type SqliteStore struct {
	logger logr.Logger
	db     *sql.DB
}

func (s *SqliteStore) Close() error {
	return s.db.Close()
}

func (s *SqliteStore) setup() error {
	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{
		MigrationsTable: "migrations",
	})
	if err != nil {
		return err
	}

	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return err
	}
	err = m.Up()
	if err != nil {
		if err == migrate.ErrNoChange {
			s.logger.Info("Nothing to migrate")
			return nil
		}
		return err
	}

	s.logger.Info("Successfully migrated to the latest version")
	return nil
}

func (s *SqliteStore) AddFeed(ctx context.Context, feed internal.Feed) (int64, error) {
	stmt, err := s.db.PrepareContext(ctx, `
        INSERT INTO
        feeds(created_at, url, page_title,
              article_selector, link_selector, title_selector,
              date_selector, author_selector, summary_selector)
        VALUES
        (?, ?, ?, ?, ?, ?, ?, ?, ?)
    `)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	createdAt := feed.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	sel := feed.Selectors.Trim()
	res, err := stmt.ExecContext(ctx,
		createdAt.UTC(), feed.Url, feed.PageTitle,
		nullable(sel.Article), nullable(sel.Link), nullable(sel.Title),
		nullable(sel.Date), nullable(sel.Author), nullable(sel.Summary),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *SqliteStore) GetFeed(ctx context.Context, id int64) (internal.Feed, error) {
	return getFeed(ctx, s.db, id)
}

// GetFeeds returns every feed, newest first.
func (s *SqliteStore) GetFeeds(ctx context.Context) ([]internal.Feed, error) {
	result := make([]internal.Feed, 0)

	rows, err := s.db.QueryContext(ctx, `
        SELECT`+feedColumns+`
        FROM feeds
        ORDER BY created_at DESC, id DESC
        ;
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		feed, err := scanFeed(rows)
		if err != nil {
			s.logger.Error(err, "Failed to get row")
			continue
		}
		result = append(result, feed)
	}

	return result, rows.Err()
}

// UpdateSelectors replaces the selectors of a feed inside a transaction
// and returns the updated record.
func (s *SqliteStore) UpdateSelectors(ctx context.Context, id int64, selectors internal.Selectors) (internal.Feed, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return internal.Feed{}, err
	}
	defer tx.Rollback()

	sel := selectors.Trim()
	res, err := tx.ExecContext(ctx, `
        UPDATE feeds
        SET article_selector = ?, link_selector = ?, title_selector = ?,
            date_selector = ?, author_selector = ?, summary_selector = ?
        WHERE id = ?
    `,
		nullable(sel.Article), nullable(sel.Link), nullable(sel.Title),
		nullable(sel.Date), nullable(sel.Author), nullable(sel.Summary),
		id,
	)
	if err != nil {
		return internal.Feed{}, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return internal.Feed{}, err
	}
	if n == 0 {
		return internal.Feed{}, fmt.Errorf("feed %d: %w", id, internal.ErrFeedNotFound)
	}

	feed, err := getFeed(ctx, tx, id)
	if err != nil {
		return internal.Feed{}, err
	}
	return feed, tx.Commit()
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

func getFeed(ctx context.Context, q queryer, id int64) (internal.Feed, error) {
	row := q.QueryRowContext(ctx, `
        SELECT`+feedColumns+`
        FROM feeds
        WHERE id = ?
        LIMIT 1
        ;
    `, id)
	feed, err := scanFeed(row)
	if errors.Is(err, sql.ErrNoRows) {
		return internal.Feed{}, fmt.Errorf("feed %d: %w", id, internal.ErrFeedNotFound)
	}
	if err != nil {
		return internal.Feed{}, err
	}
	return feed, nil
}

func scanFeed(row scanner) (internal.Feed, error) {
	var feed internal.Feed
	var article, link, title, date, author, summary sql.NullString
	err := row.Scan(
		&feed.ID,
		&feed.CreatedAt,
		&feed.Url,
		&feed.PageTitle,
		&article,
		&link,
		&title,
		&date,
		&author,
		&summary,
	)
	if err != nil {
		return internal.Feed{}, err
	}
	feed.Selectors = internal.Selectors{
		Article: article.String,
		Link:    link.String,
		Title:   title.String,
		Date:    date.String,
		Author:  author.String,
		Summary: summary.String,
	}
	return feed, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// NewSqliteStore opens the database at dbpath and migrates it to the
// latest schema.
func NewSqliteStore(dbpath string, logger logr.Logger) (*SqliteStore, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=on", dbpath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}

	store := SqliteStore{
		db:     db,
		logger: logger.WithName("store"),
	}

	err = store.setup()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate %s: %w", dbpath, err)
	}

	return &store, nil
}
