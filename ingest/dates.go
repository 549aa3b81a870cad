package ingest

import (
	"fmt"
	"strings"
	"time"
)

// dateFormats are tried in order, first match wins: iso then us.
// Single digit months and days are accepted in both.
var dateFormats = []string{
	"2006-1-2",
	"1/2/2006",
}

// ParseDate parses a calendar date in either YYYY-MM-DD or MM/DD/YYYY form
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("invalid date format: %q", value)
}
