package syndication

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/tmshv/web2rss/internal"
)

// Unit separator; never part of a link, a title or an RFC 3339 date.
const guidSeparator = "\x1f"

// GUID hashes the joined parts into a stable hex identifier.
func GUID(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, guidSeparator)))
	return hex.EncodeToString(sum[:])
}

// guidParts lists, in order, the link, title and date of a that are
// present. Author and summary never take part in the identifier.
func guidParts(a internal.Article) []string {
	parts := make([]string, 0, 3)
	if a.Link != "" {
		parts = append(parts, a.Link)
	}
	if a.Title != "" {
		parts = append(parts, a.Title)
	}
	if !a.Date.IsZero() {
		parts = append(parts, a.Date.Format(time.RFC3339))
	}
	return parts
}

// ArticleGUID is the entry identifier feed readers deduplicate on.
func ArticleGUID(a internal.Article) string {
	return GUID(guidParts(a)...)
}
