package internal

import (
	"errors"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectorsReady(t *testing.T) {
	tests := []struct {
		name string
		sel  Selectors
		want bool
	}{
		{"empty", Selectors{}, false},
		{"article only", Selectors{Article: ".post"}, false},
		{"article and title", Selectors{Article: ".post", Title: "h2"}, true},
		{"article and summary", Selectors{Article: ".post", Summary: "p"}, true},
		{"title without article", Selectors{Title: "h2", Summary: "p"}, false},
		{"article with link and date only", Selectors{Article: ".post", Link: "a", Date: "time"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.sel.Ready())
		})
	}
}

func TestSelectorsCompile(t *testing.T) {
	c, err := Selectors{Article: ".post", Title: ".post h2", Summary: "p"}.Compile()
	require.NoError(t, err)

	assert.NotNil(t, c.Article)
	assert.NotNil(t, c.Title)
	assert.NotNil(t, c.Summary)
	assert.Nil(t, c.Link)
	assert.Nil(t, c.Date)
	assert.Nil(t, c.Author)
}

func TestSelectorsCompileReportsEveryMalformedSelector(t *testing.T) {
	err := Selectors{Article: "div[", Title: "h2", Date: ":nope("}.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedSelector))

	var merr *multierror.Error
	require.True(t, errors.As(err, &merr))
	assert.Len(t, merr.Errors, 2)
	assert.Contains(t, err.Error(), "article selector")
	assert.Contains(t, err.Error(), "date selector")
}

func TestSelectorsTrim(t *testing.T) {
	s := Selectors{Article: "  .post ", Title: "\th2\n", Summary: "   "}.Trim()
	assert.Equal(t, Selectors{Article: ".post", Title: "h2"}, s)
}

func TestArticleValid(t *testing.T) {
	assert.True(t, Article{Title: "t"}.Valid())
	assert.True(t, Article{Summary: "s"}.Valid())
	assert.False(t, Article{Link: "https://example.com", Author: "a"}.Valid())
}
