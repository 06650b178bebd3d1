package event

import "time"

// dateLayouts lists the ISO-8601 variants seen in JSON-LD startDate/endDate values
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseDate parses an ISO-8601 date or date-time string.
// Returns time.Time{} (zero value) if parsing fails.
func ParseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}

	return time.Time{}
}

// Day returns the record's start date truncated to YYYY-MM-DD, the key the
// front-end groups events by. Returns "" when startDate is not a date.
func (r *Record) Day() string {
	if len(r.StartDate) < len("2006-01-02") {
		return ""
	}
	day := r.StartDate[:len("2006-01-02")]
	if _, err := time.Parse("2006-01-02", day); err != nil {
		return ""
	}
	return day
}

// Start returns the parsed start time, or the zero time
func (r *Record) Start() time.Time {
	return ParseDate(r.StartDate)
}

// End returns the parsed end time, or the zero time
func (r *Record) End() time.Time {
	return ParseDate(r.EndDate)
}
