package progress

import "time"

// DateLayout is the serialized form of a calendar date.
const DateLayout = "2006-01-02"

// legacyDateLayout is the browser toDateString form found in older blobs.
const legacyDateLayout = "Mon Jan 02 2006"

// Day formats t as a calendar date in t's own location.
func Day(t time.Time) string {
	return t.Format(DateLayout)
}

// normalizeDate accepts either layout and returns the DateLayout form.
func normalizeDate(s string) (string, bool) {
	for _, layout := range []string{DateLayout, legacyDateLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(DateLayout), true
		}
	}
	return "", false
}

// previousDay returns the calendar date before day. Arithmetic happens in
// UTC so daylight-saving shifts cannot skip or repeat a date.
func previousDay(day string) string {
	t, err := time.Parse(DateLayout, day)
	if err != nil {
		return ""
	}
	return t.AddDate(0, 0, -1).Format(DateLayout)
}
