package internal

import (
	"fmt"
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/hashicorp/go-multierror"
)

// CompiledSelectors holds parsed selectors. Unset selectors are nil.
type CompiledSelectors struct {
	Article cascadia.Selector
	Link    cascadia.Selector
	Title   cascadia.Selector
	Date    cascadia.Selector
	Author  cascadia.Selector
	Summary cascadia.Selector
}

// Trim returns a copy with surrounding whitespace removed from every
// selector, so that a blank form field counts as unset.
func (s Selectors) Trim() Selectors {
	return Selectors{
		Article: strings.TrimSpace(s.Article),
		Link:    strings.TrimSpace(s.Link),
		Title:   strings.TrimSpace(s.Title),
		Date:    strings.TrimSpace(s.Date),
		Author:  strings.TrimSpace(s.Author),
		Summary: strings.TrimSpace(s.Summary),
	}
}

// Compile parses every configured selector. All syntax errors are
// reported together, each wrapping ErrMalformedSelector.
func (s Selectors) Compile() (CompiledSelectors, error) {
	var (
		c      CompiledSelectors
		result *multierror.Error
	)

	compile := func(name, value string, dst *cascadia.Selector) {
		if value == "" {
			return
		}
		sel, err := cascadia.Compile(value)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("%w: %s selector %q: %v", ErrMalformedSelector, name, value, err))
			return
		}
		*dst = sel
	}

	compile("article", s.Article, &c.Article)
	compile("link", s.Link, &c.Link)
	compile("title", s.Title, &c.Title)
	compile("date", s.Date, &c.Date)
	compile("author", s.Author, &c.Author)
	compile("summary", s.Summary, &c.Summary)

	if err := result.ErrorOrNil(); err != nil {
		return CompiledSelectors{}, err
	}
	return c, nil
}

// Validate checks selector syntax without keeping the compiled result.
func (s Selectors) Validate() error {
	_, err := s.Compile()
	return err
}
