package summarizer

import (
	"strings"
	"unicode/utf8"

	"github.com/pfrederiksen/eventscout/internal/event"
)

// BuildPrompt renders the instruction sent with an event's page text
func BuildPrompt(content string) string {
	var b strings.Builder

	b.WriteString("Analyze this event and output a JSON object with the following structure:\n\n")
	b.WriteString("{\n")
	b.WriteString(`    "description": "Brief summary of the main event details",` + "\n")
	b.WriteString(`    "tags": ["array", "of", "applicable", "tags", "from", "the", "list", "below"],` + "\n")
	b.WriteString(`    "sponsors": ["Array", "of", "official", "event", "sponsors", "only", "(not", "participants", "or", "venues)"],` + "\n")
	b.WriteString(`    "status": "Event status (must be one of: ` + strings.Join(event.Statuses, ", ") + `)"` + "\n")
	b.WriteString("}\n\n")
	b.WriteString("For sponsors, only include organizations that are explicitly mentioned as sponsors or presenters of the event. ")
	b.WriteString("Do not include venues, participants, or mentioned companies that aren't sponsoring.\n\n")
	b.WriteString("Respond with the JSON object only.\n\n")
	b.WriteString("Available tags:\n")
	for _, tag := range event.Tags {
		b.WriteString("- ")
		b.WriteString(tag)
		b.WriteString("\n")
	}
	b.WriteString("\nEvent Content: ")
	b.WriteString(content)

	return b.String()
}

// Truncate shortens s to at most max runes. A max of zero or less disables it.
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}
