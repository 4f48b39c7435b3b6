package domain

import (
	"strings"
	"time"
)

// DateLayout is the ISO calendar date format used on every output.
const DateLayout = "2006-01-02"

var (
	// MinSurveyDate and MaxSurveyDate bound the accepted survey window.
	MinSurveyDate = time.Date(2016, 1, 1, 0, 0, 0, 0, time.UTC)
	MaxSurveyDate = time.Date(2027, 12, 31, 0, 0, 0, 0, time.UTC)
)

// surveyDateLayouts are tried in order; the first four are the formats seen
// in CMS extracts, the rest cover spreadsheet and timestamp exports.
var surveyDateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"2006/01/02",
	"01-02-2006",
	"1/2/2006",
	"01-02-06",
	"1/2/06",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// ParseSurveyDate parses a free-form survey date. It returns false for
// blank, unparseable, or out-of-window values.
func ParseSurveyDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "nan") || strings.EqualFold(s, "none") || s == "NaT" {
		return time.Time{}, false
	}
	for _, layout := range surveyDateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		t = TruncateDay(t)
		if t.Before(MinSurveyDate) || t.After(MaxSurveyDate) {
			return time.Time{}, false
		}
		return t, true
	}
	return time.Time{}, false
}

// FormatDate renders t as an ISO calendar date.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
