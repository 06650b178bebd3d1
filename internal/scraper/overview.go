package scraper

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pfrederiksen/eventscout/internal/event"
)

// ParseOverviewFile parses a saved calendar listing from disk
func (s *Scraper) ParseOverviewFile(path string) ([]*event.Stub, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening listing: %w", err)
	}
	defer f.Close()

	return s.ParseOverview(f)
}

// ParseOverview extracts one stub per listing card, in document order.
// Stub indexes are 1-based card positions, not IDs found in the markup.
func (s *Scraper) ParseOverview(r io.Reader) ([]*event.Stub, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	stubs := make([]*event.Stub, 0)

	doc.Find(s.cardSelector).Each(func(i int, card *goquery.Selection) {
		href, _ := card.Find("a.event-link").Attr("href")
		name := strings.TrimSpace(card.Find("h3").Text())
		timeText := strings.TrimSpace(card.Find(".event-time").Text())

		// Several attributes may match; the location is the last one
		location := strings.TrimSpace(card.Find(".attribute .text-ellipses").Last().Text())

		src, _ := card.Find(".cover-image img").Attr("src")

		stubs = append(stubs, event.NewStub(i+1, name, timeText, href, location, thumbnailName(src)))
	})

	return stubs, nil
}

// thumbnailName reduces an image URL to its final path segment, since
// thumbnails are served from a local directory keyed by file name
func thumbnailName(src string) string {
	if src == "" {
		return ""
	}
	return src[strings.LastIndex(src, "/")+1:]
}
