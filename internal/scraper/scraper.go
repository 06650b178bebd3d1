package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"github.com/pfrederiksen/eventscout/internal/event"
	"github.com/pfrederiksen/eventscout/internal/logger"
)

const (
	UserAgent           = "eventscout/1.0 (github.com/pfrederiksen/eventscout)"
	Timeout             = 30 * time.Second
	DefaultCardSelector = ".content-card.hoverable"
)

// Content modes
const (
	ModeBody        = "body"
	ModeReadability = "readability"
)

// ErrNotHTML is returned when a page is served with a non-HTML content type
var ErrNotHTML = errors.New("response is not HTML")

// Options configures a Scraper. Zero values fall back to the package defaults.
type Options struct {
	Timeout      time.Duration
	UserAgent    string
	ContentMode  string
	CardSelector string
}

// Scraper fetches event pages and parses event listings
type Scraper struct {
	client       *http.Client
	userAgent    string
	contentMode  string
	cardSelector string
}

// Page is the extracted content of one event page
type Page struct {
	URL        string
	Content    string
	Structured *event.StructuredData // nil when the page has no Event metadata
}

// New creates a new Scraper instance
func New(opts Options) *Scraper {
	if opts.Timeout <= 0 {
		opts.Timeout = Timeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = UserAgent
	}
	if opts.ContentMode == "" {
		opts.ContentMode = ModeBody
	}
	if opts.CardSelector == "" {
		opts.CardSelector = DefaultCardSelector
	}

	return &Scraper{
		client: &http.Client{
			Timeout: opts.Timeout,
		},
		userAgent:    opts.UserAgent,
		contentMode:  opts.ContentMode,
		cardSelector: opts.CardSelector,
	}
}

// FetchPage downloads an event page and extracts its text and structured data.
// Any failure is returned as an error; the page is never partially returned.
func (s *Scraper) FetchPage(ctx context.Context, pageURL string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(strings.ToLower(ct), "html") {
		return nil, fmt.Errorf("%w: %s", ErrNotHTML, ct)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}

	return s.parsePage(pageURL, body)
}

// parsePage extracts structured data, then strips scripts and styles and
// returns the remaining body text
func (s *Scraper) parsePage(pageURL string, body []byte) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	// Must run before scripts are removed
	data := ExtractStructuredData(doc)

	doc.Find("script").Remove()
	doc.Find("style").Remove()

	content := strings.TrimSpace(doc.Find("body").Text())

	if s.contentMode == ModeReadability {
		text, err := readableText(pageURL, body)
		if err != nil {
			logger.Debug("Readability extraction failed, using body text", logger.Fields{
				"url":   pageURL,
				"error": err.Error(),
			})
		} else if text != "" {
			content = text
		}
	}

	return &Page{
		URL:        pageURL,
		Content:    content,
		Structured: data,
	}, nil
}

// readableText returns the main article text as identified by go-readability
func readableText(pageURL string, body []byte) (string, error) {
	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("parsing URL: %w", err)
	}

	article, err := readability.FromReader(bytes.NewReader(body), parsedURL)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(article.TextContent), nil
}
