package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/pfrederiksen/eventscout/internal/event"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// Column widths for text output, in terminal cells
const (
	nameWidth     = 40
	dayWidth      = 10
	statusWidth   = 19
	locationWidth = 28
)

// WriteOutput writes records in the specified format
func WriteOutput(w io.Writer, records []*event.Record, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, records)
	case FormatText:
		return writeText(w, records)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// writeJSON outputs records as JSON
func writeJSON(w io.Writer, records []*event.Record) error {
	if records == nil {
		records = []*event.Record{}
	}
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	return encoder.Encode(records)
}

// writeText outputs records as an aligned human-readable table
func writeText(w io.Writer, records []*event.Record) error {
	if len(records) == 0 {
		fmt.Fprintln(w, "No events found.")
		return nil
	}

	fmt.Fprintf(w, "%4s  %s  %s  %s  %s  %s\n", "ID",
		cell("DAY", dayWidth), cell("NAME", nameWidth), cell("STATUS", statusWidth),
		cell("LOCATION", locationWidth), "TAGS")

	for _, r := range records {
		day := r.Day()
		if day == "" {
			day = "-"
		}
		status := r.Status
		if status == "" {
			status = "-"
		}
		fmt.Fprintf(w, "%4d  %s  %s  %s  %s  %s\n", r.ID,
			cell(day, dayWidth), cell(r.Name, nameWidth), cell(status, statusWidth),
			cell(r.Location, locationWidth), strings.Join(r.Tags, ", "))
	}

	fmt.Fprintf(w, "\nTotal: %d events\n", len(records))
	return nil
}

// cell truncates s to width terminal cells and pads it on the right
func cell(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	return runewidth.FillRight(runewidth.Truncate(s, width, "…"), width)
}
