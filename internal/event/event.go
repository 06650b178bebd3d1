package event

import "encoding/json"

// Placeholders written in place of stub fields the listing did not provide.
const (
	NoName      = "No name found"
	NoTime      = "No time found"
	NoURL       = "No URL found"
	NoLocation  = "No location found"
	NoThumbnail = "No image found"
)

// Stub is the minimal event parsed from one listing card
type Stub struct {
	Name         string `json:"name"`
	Time         string `json:"time"`
	URL          string `json:"url"`
	Location     string `json:"location"`
	ThumbnailURL string `json:"thumbnailUrl"`
	Index        int    `json:"index"` // 1-based position in the listing
}

// NewStub creates a Stub, substituting placeholders for empty fields
func NewStub(index int, name, time, url, location, thumbnail string) *Stub {
	return &Stub{
		Name:         orDefault(name, NoName),
		Time:         orDefault(time, NoTime),
		URL:          orDefault(url, NoURL),
		Location:     orDefault(location, NoLocation),
		ThumbnailURL: orDefault(thumbnail, NoThumbnail),
		Index:        index,
	}
}

// HasURL reports whether the stub carries a real detail-page URL
func (s *Stub) HasURL() bool {
	return s.URL != "" && s.URL != NoURL
}

// StructuredData is the event metadata found in a page's JSON-LD block.
// A nil *StructuredData means the page had no Event block at all.
type StructuredData struct {
	StartDate     string          `json:"startDate"`
	EndDate       string          `json:"endDate"`
	Price         *string         `json:"price,omitempty"`
	PriceCurrency string          `json:"priceCurrency"`
	Availability  string          `json:"availability"`
	EventStatus   string          `json:"eventStatus"`
	OfferName     string          `json:"offerName"`
	Offers        json.RawMessage `json:"offers,omitempty"`
}

// ContentRecord is a stub enriched with the fetched page
type ContentRecord struct {
	ID               int             `json:"id"`
	Name             string          `json:"name"`
	ThumbnailURL     string          `json:"thumbnailUrl"`
	Content          string          `json:"content"`
	Time             string          `json:"time"`
	StartDate        string          `json:"startDate"`
	EndDate          string          `json:"endDate"`
	Location         string          `json:"location"`
	URL              string          `json:"url"`
	JSONPrice        *string         `json:"jsonPrice,omitempty"`
	JSONStatus       string          `json:"jsonStatus,omitempty"`
	JSONAvailability string          `json:"jsonAvailability,omitempty"`
	JSONOfferName    string          `json:"jsonOfferName,omitempty"`
	JSONOffers       json.RawMessage `json:"jsonOffers,omitempty"`
}

// NewContentRecord merges a stub with the page text and its structured data.
// data may be nil.
func NewContentRecord(stub *Stub, content string, data *StructuredData) *ContentRecord {
	rec := &ContentRecord{
		ID:           stub.Index,
		Name:         stub.Name,
		ThumbnailURL: stub.ThumbnailURL,
		Content:      content,
		Time:         stub.Time,
		Location:     stub.Location,
		URL:          stub.URL,
	}

	if data != nil {
		rec.StartDate = data.StartDate
		rec.EndDate = data.EndDate
		rec.JSONPrice = data.Price
		rec.JSONStatus = data.EventStatus
		rec.JSONAvailability = data.Availability
		rec.JSONOfferName = data.OfferName
		rec.JSONOffers = data.Offers
	}

	return rec
}

// Summary is the language-model classification of an event
type Summary struct {
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Sponsors    []string `json:"sponsors"`
	Status      string   `json:"status"`
}

// EmptySummary returns the fallback used whenever summarization fails
func EmptySummary() Summary {
	return Summary{
		Tags:     []string{},
		Sponsors: []string{},
	}
}

// IsEmpty reports whether s carries no information
func (s Summary) IsEmpty() bool {
	return s.Description == "" && s.Status == "" && len(s.Tags) == 0 && len(s.Sponsors) == 0
}

// Record is the final event loaded by the front-end
type Record struct {
	ID           int      `json:"id"`
	Name         string   `json:"name"`
	ThumbnailURL string   `json:"thumbnailUrl"`
	Description  string   `json:"description"`
	Time         string   `json:"time"`
	StartDate    string   `json:"startDate"`
	EndDate      string   `json:"endDate"`
	Location     string   `json:"location"`
	Tags         []string `json:"tags"`
	URL          string   `json:"url"`
	Price        *string  `json:"price,omitempty"`
	Sponsors     []string `json:"sponsors"`
	Status       string   `json:"status"`
}

// NewRecord merges a content record with its summary. The page content
// itself is dropped.
func NewRecord(content *ContentRecord, summary Summary) *Record {
	tags := summary.Tags
	if tags == nil {
		tags = []string{}
	}
	sponsors := summary.Sponsors
	if sponsors == nil {
		sponsors = []string{}
	}

	return &Record{
		ID:           content.ID,
		Name:         content.Name,
		ThumbnailURL: content.ThumbnailURL,
		Description:  summary.Description,
		Time:         content.Time,
		StartDate:    content.StartDate,
		EndDate:      content.EndDate,
		Location:     content.Location,
		Tags:         tags,
		URL:          content.URL,
		Price:        content.JSONPrice,
		Sponsors:     sponsors,
		Status:       summary.Status,
	}
}

func orDefault(v, placeholder string) string {
	if v == "" {
		return placeholder
	}
	return v
}
