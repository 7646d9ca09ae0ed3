package extract

import (
	"strings"
	"time"

	dps "github.com/markusmobius/go-dateparser"
)

// DateParser turns free-form date text ("3 days ago", "March 3",
// "2024-03-03T10:00:00+02:00") into a timestamp.
type DateParser struct {
	now func() time.Time
}

// NewDateParser returns a parser resolving relative dates against now.
// A nil now uses the wall clock.
func NewDateParser(now func() time.Time) *DateParser {
	if now == nil {
		now = time.Now
	}
	return &DateParser{now: now}
}

// Parse returns the zero time when text cannot be read as a date. Dates
// written without a zone are taken to be UTC.
func (p *DateParser) Parse(text string) time.Time {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}
	}

	cfg := &dps.Configuration{
		CurrentTime:     p.now(),
		DefaultTimezone: time.UTC,
	}
	dt, err := dps.Parse(cfg, text)
	if err != nil || dt.Time.IsZero() {
		return time.Time{}
	}

	t := dt.Time
	if t.Location() == time.Local {
		t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
	}
	return t
}
