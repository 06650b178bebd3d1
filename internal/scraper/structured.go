package scraper

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pfrederiksen/eventscout/internal/event"
	"github.com/pfrederiksen/eventscout/internal/logger"
)

const freePrice = "Free"

// ExtractStructuredData returns the first JSON-LD block whose @type is "Event".
// Blocks that fail to parse are logged and skipped. Returns nil when the page
// has no Event block.
func ExtractStructuredData(doc *goquery.Document) *event.StructuredData {
	var data *event.StructuredData

	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(i int, sel *goquery.Selection) bool {
		raw := bytes.TrimSpace([]byte(sel.Text()))

		var block map[string]json.RawMessage
		if err := json.Unmarshal(raw, &block); err != nil {
			if json.Valid(raw) {
				// Valid JSON that is not an object, e.g. a top-level array
				return true
			}
			logger.Warn("Skipping malformed JSON-LD block", logger.Fields{
				"block": i,
				"error": err.Error(),
			})
			return true
		}

		if stringField(block, "@type") != "Event" {
			return true
		}

		data = structuredFromBlock(block)
		return false
	})

	return data
}

func structuredFromBlock(block map[string]json.RawMessage) *event.StructuredData {
	data := &event.StructuredData{
		StartDate:   stringField(block, "startDate"),
		EndDate:     stringField(block, "endDate"),
		EventStatus: lastSegment(stringField(block, "eventStatus")),
	}

	offers, ok := block["offers"]
	if !ok || isNull(offers) {
		return data
	}
	data.Offers = offers

	offer := firstOffer(offers)
	if offer == nil {
		return data
	}

	data.Price = formatPrice(offer["price"])
	data.PriceCurrency = stringField(offer, "priceCurrency")
	data.Availability = lastSegment(stringField(offer, "availability"))
	data.OfferName = stringField(offer, "name")

	return data
}

// firstOffer returns the first offer of an offers array, or the offer itself
// when offers is a single object
func firstOffer(offers json.RawMessage) map[string]json.RawMessage {
	trimmed := bytes.TrimSpace(offers)
	if len(trimmed) == 0 {
		return nil
	}

	switch trimmed[0] {
	case '[':
		var list []map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &list); err != nil || len(list) == 0 {
			return nil
		}
		return list[0]
	case '{':
		var offer map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &offer); err != nil {
			return nil
		}
		return offer
	}

	return nil
}

// formatPrice maps a JSON-LD price to its display form: 0 is "Free", other
// amounts are "$<amount>". Returns nil when the price is absent.
func formatPrice(raw json.RawMessage) *string {
	if len(raw) == 0 || isNull(raw) {
		return nil
	}

	var amount string

	var num json.Number
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&num); err == nil {
		amount = num.String()
	} else {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil
		}
		amount = strings.TrimSpace(s)
	}

	if amount == "" {
		return nil
	}

	var formatted string
	if f, err := strconv.ParseFloat(amount, 64); err == nil {
		if f == 0 {
			formatted = freePrice
		} else {
			formatted = "$" + strconv.FormatFloat(f, 'f', -1, 64)
		}
	} else {
		formatted = "$" + amount
	}

	return &formatted
}

// stringField returns obj[key] when it is a JSON string, or ""
func stringField(obj map[string]json.RawMessage, key string) string {
	raw, ok := obj[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// lastSegment returns the text after the final "/", turning schema.org
// enumeration URLs such as https://schema.org/EventScheduled into EventScheduled
func lastSegment(s string) string {
	return s[strings.LastIndex(s, "/")+1:]
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
