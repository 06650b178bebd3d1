package cli

import (
	"sort"
	"strings"

	"github.com/pfrederiksen/eventscout/internal/event"
)

// SortOrder represents the available sorting options
type SortOrder string

const (
	SortByID   SortOrder = "id"
	SortByDate SortOrder = "date"
	SortByName SortOrder = "name"
)

func (o SortOrder) valid() bool {
	return o == SortByID || o == SortByDate || o == SortByName
}

// sortRecords sorts records based on the specified sort order
func sortRecords(records []*event.Record, sortOrder SortOrder) {
	switch sortOrder {
	case SortByID:
		sort.SliceStable(records, func(i, j int) bool {
			return records[i].ID < records[j].ID
		})
	case SortByDate:
		sort.SliceStable(records, func(i, j int) bool {
			return compareByDate(records[i], records[j])
		})
	case SortByName:
		sort.SliceStable(records, func(i, j int) bool {
			ni, nj := strings.ToLower(records[i].Name), strings.ToLower(records[j].Name)
			if ni != nj {
				return ni < nj
			}
			// If names are equal, sort by date
			return compareByDate(records[i], records[j])
		})
	}
}

// compareByDate compares two records by their start date
// Returns true if record i should come before record j
func compareByDate(i, j *event.Record) bool {
	dateI := i.Start()
	dateJ := j.Start()

	// If both dates are valid, compare them
	if !dateI.IsZero() && !dateJ.IsZero() {
		if !dateI.Equal(dateJ) {
			return dateI.Before(dateJ)
		}
		return i.ID < j.ID
	}

	// If only one date is valid, put the valid one first
	if !dateI.IsZero() {
		return true
	}
	if !dateJ.IsZero() {
		return false
	}

	// If neither has a valid date, keep overview order
	return i.ID < j.ID
}
