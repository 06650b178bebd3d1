// Package scraper provides HTTP fetching and HTML parsing for event listings and pages.
//
// The scraper package parses a saved calendar listing into event stubs, fetches each
// event's detail page, reads the page's JSON-LD Event metadata (dates, price, offer
// availability and status) and reduces the rest of the page to plain text for
// summarization. Pages can be reduced either to their whole body text or, in
// readability mode, to the main article text.
package scraper
