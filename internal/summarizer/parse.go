package summarizer

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/pfrederiksen/eventscout/internal/event"
)

// ErrInvalidSummary is returned when no candidate in a model answer validates.
var ErrInvalidSummary = errors.New("no valid summary in response")

var (
	fencePattern  = regexp.MustCompile("(?s)```(?:json|JSON)?[ \t]*\r?\n?(.*?)```")
	objectPattern = regexp.MustCompile(`(?s)\{.*\}`)
)

var summaryKeys = []string{"description", "tags", "sponsors", "status"}

// ParseSummary extracts a validated Summary from a model answer.
// On failure it returns the empty summary together with ErrInvalidSummary.
func ParseSummary(text string) (event.Summary, error) {
	var lastErr error
	for _, candidate := range candidates(text) {
		summary, err := decodeSummary(candidate)
		if err == nil {
			return summary, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		return event.EmptySummary(), ErrInvalidSummary
	}
	return event.EmptySummary(), fmt.Errorf("%w: %v", ErrInvalidSummary, lastErr)
}

// candidates lists the strings to try, in order: the whole answer, the first
// fenced block, the first-brace-to-last-brace span.
func candidates(text string) []string {
	out := []string{strings.TrimSpace(text)}
	if m := fencePattern.FindStringSubmatch(text); m != nil {
		out = append(out, strings.TrimSpace(m[1]))
	}
	if m := objectPattern.FindString(text); m != "" {
		out = append(out, m)
	}
	return out
}

func decodeSummary(candidate string) (event.Summary, error) {
	if candidate == "" {
		return event.Summary{}, errors.New("empty candidate")
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(candidate), &obj); err != nil {
		return event.Summary{}, fmt.Errorf("decoding object: %w", err)
	}
	if obj == nil {
		return event.Summary{}, errors.New("not an object")
	}
	if len(obj) != len(summaryKeys) {
		return event.Summary{}, fmt.Errorf("expected %d keys, got %d", len(summaryKeys), len(obj))
	}
	for _, key := range summaryKeys {
		if _, ok := obj[key]; !ok {
			return event.Summary{}, fmt.Errorf("missing key %q", key)
		}
	}

	var s event.Summary
	if err := json.Unmarshal(obj["description"], &s.Description); err != nil || isNull(obj["description"]) {
		return event.Summary{}, errors.New("description must be a string")
	}
	if err := json.Unmarshal(obj["status"], &s.Status); err != nil || isNull(obj["status"]) {
		return event.Summary{}, errors.New("status must be a string")
	}
	tags, err := stringList(obj["tags"])
	if err != nil {
		return event.Summary{}, fmt.Errorf("tags: %w", err)
	}
	sponsors, err := stringList(obj["sponsors"])
	if err != nil {
		return event.Summary{}, fmt.Errorf("sponsors: %w", err)
	}
	s.Tags = tags
	s.Sponsors = sponsors

	for _, tag := range s.Tags {
		if !event.IsTag(tag) {
			return event.Summary{}, fmt.Errorf("unknown tag %q", tag)
		}
	}
	if s.Status != "" && !event.IsStatus(s.Status) {
		return event.Summary{}, fmt.Errorf("unknown status %q", s.Status)
	}

	return s, nil
}

func stringList(raw json.RawMessage) ([]string, error) {
	if isNull(raw) {
		return nil, errors.New("must be an array of strings")
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, errors.New("must be an array of strings")
	}
	if list == nil {
		list = []string{}
	}
	return list, nil
}

func isNull(raw json.RawMessage) bool {
	return strings.TrimSpace(string(raw)) == "null"
}
