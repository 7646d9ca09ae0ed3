package internal

import "time"

type Feed struct {
	ID        int64     `json:"id" db:"id"`
	Url       string    `json:"url" db:"url"`
	PageTitle string    `json:"pageTitle" db:"page_title"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	Selectors Selectors `json:"selectors"`
}

// Selectors is the set of CSS selectors used to turn a page into articles.
// An empty string means the selector is not configured.
type Selectors struct {
	Article string `json:"article,omitempty" db:"article_selector"`
	Link    string `json:"link,omitempty" db:"link_selector"`
	Title   string `json:"title,omitempty" db:"title_selector"`
	Date    string `json:"date,omitempty" db:"date_selector"`
	Author  string `json:"author,omitempty" db:"author_selector"`
	Summary string `json:"summary,omitempty" db:"summary_selector"`
}

// Ready reports whether extraction may run: an article selector and at
// least one of title or summary.
func (s Selectors) Ready() bool {
	return s.Article != "" && (s.Title != "" || s.Summary != "")
}

// Article is one entry extracted from a page. Empty strings and a zero
// Date mean the field is absent.
type Article struct {
	Link    string    `json:"link,omitempty"`
	Title   string    `json:"title,omitempty"`
	Date    time.Time `json:"date,omitempty"`
	Author  string    `json:"author,omitempty"`
	Summary string    `json:"summary,omitempty"`
}

// Valid reports whether the article can become a feed entry.
func (a Article) Valid() bool {
	return a.Title != "" || a.Summary != ""
}
