package calendar

import (
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/pfrederiksen/eventscout/internal/event"
)

const (
	prodID        = "-//eventscout//eventscout//EN"
	dateOnlyLen   = len("2006-01-02")
	defaultLength = time.Hour
	maxLineOctets = 75
)

// GenerateICS generates an iCalendar (.ics) feed with one VEVENT per record.
// Records without a parseable start date are left out.
func GenerateICS(records []*event.Record) string {
	return generateICS(records, time.Now())
}

func generateICS(records []*event.Record, now time.Time) string {
	var ics strings.Builder

	ics.WriteString("BEGIN:VCALENDAR\r\n")
	ics.WriteString("VERSION:2.0\r\n")
	writeLine(&ics, "PRODID:"+prodID)
	ics.WriteString("CALSCALE:GREGORIAN\r\n")
	ics.WriteString("METHOD:PUBLISH\r\n")

	for _, r := range records {
		start := r.Start()
		if start.IsZero() {
			continue
		}
		writeEvent(&ics, r, start, now)
	}

	ics.WriteString("END:VCALENDAR\r\n")

	return ics.String()
}

// Count returns how many records GenerateICS would include
func Count(records []*event.Record) int {
	n := 0
	for _, r := range records {
		if !r.Start().IsZero() {
			n++
		}
	}
	return n
}

func writeEvent(ics *strings.Builder, r *event.Record, start, now time.Time) {
	ics.WriteString("BEGIN:VEVENT\r\n")

	writeLine(ics, fmt.Sprintf("UID:%s", uid(r)))
	writeLine(ics, fmt.Sprintf("DTSTAMP:%s", formatICSTime(now)))

	// Date-only values become all-day events
	if len(r.StartDate) == dateOnlyLen {
		writeLine(ics, "DTSTART;VALUE=DATE:"+start.Format("20060102"))
		end := r.End()
		if end.IsZero() || !end.After(start) {
			end = start
		}
		writeLine(ics, "DTEND;VALUE=DATE:"+end.AddDate(0, 0, 1).Format("20060102"))
	} else {
		end := r.End()
		if end.IsZero() || !end.After(start) {
			end = start.Add(defaultLength)
		}
		writeLine(ics, "DTSTART:"+formatICSTime(start))
		writeLine(ics, "DTEND:"+formatICSTime(end))
	}

	writeLine(ics, "SUMMARY:"+escapeICS(r.Name))
	if desc := description(r); desc != "" {
		writeLine(ics, "DESCRIPTION:"+escapeICS(desc))
	}
	if r.Location != "" && r.Location != event.NoLocation {
		writeLine(ics, "LOCATION:"+escapeICS(r.Location))
	}
	if len(r.Tags) > 0 {
		tags := make([]string, len(r.Tags))
		for i, tag := range r.Tags {
			tags[i] = escapeICS(tag)
		}
		writeLine(ics, "CATEGORIES:"+strings.Join(tags, ","))
	}
	if r.URL != "" && r.URL != event.NoURL {
		writeLine(ics, "URL:"+r.URL)
	}

	ics.WriteString("STATUS:CONFIRMED\r\n")
	ics.WriteString("SEQUENCE:0\r\n")
	ics.WriteString("TRANSP:OPAQUE\r\n")
	ics.WriteString("END:VEVENT\r\n")
}

// uid derives a stable identifier from the event URL's last path segment
func uid(r *event.Record) string {
	slug := ""
	if u, err := url.Parse(r.URL); err == nil && r.URL != event.NoURL {
		slug = path.Base(strings.TrimSuffix(u.Path, "/"))
	}
	if slug == "" || slug == "." || slug == "/" {
		return fmt.Sprintf("event-%d@eventscout", r.ID)
	}
	return fmt.Sprintf("%d-%s@eventscout", r.ID, slug)
}

func description(r *event.Record) string {
	var parts []string
	if r.Description != "" {
		parts = append(parts, r.Description)
	}
	if r.Price != nil {
		parts = append(parts, "Price: "+*r.Price)
	}
	if r.Status != "" {
		parts = append(parts, "Status: "+r.Status)
	}
	if len(r.Sponsors) > 0 {
		parts = append(parts, "Sponsors: "+strings.Join(r.Sponsors, ", "))
	}
	return strings.Join(parts, "\n")
}

// formatICSTime formats a time.Time as an iCalendar datetime string
func formatICSTime(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

// escapeICS escapes special characters for iCalendar format
func escapeICS(s string) string {
	// Replace special characters according to RFC 5545
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, ",", "\\,")
	s = strings.ReplaceAll(s, ";", "\\;")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}

// writeLine writes a content line, folding it at 75 octets without
// splitting a UTF-8 sequence
func writeLine(ics *strings.Builder, line string) {
	limit := maxLineOctets
	for len(line) > limit {
		cut := limit
		for cut > 0 && !isRuneStart(line[cut]) {
			cut--
		}
		ics.WriteString(line[:cut])
		ics.WriteString("\r\n ")
		line = line[cut:]
		// continuation lines carry a leading space
		limit = maxLineOctets - 1
	}
	ics.WriteString(line)
	ics.WriteString("\r\n")
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
