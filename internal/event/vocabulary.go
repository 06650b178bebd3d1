package event

// Tags is the controlled vocabulary a Summary may draw its tags from
var Tags = []string{
	"Food",
	"Drinks",
	"Technology",
	"AI",
	"Music",
	"Film",
	"Art",
	"Business",
	"Startup",
	"Education",
	"Gaming",
	"Social Impact",
	"Health",
	"Networking",
	"Keynote",
	"Panel",
	"Party",
	"Exhibition",
	"Conference",
	"Workshop",
	"Web3",
}

// Statuses is the fixed set of registration status labels
var Statuses = []string{
	"Available",
	"Waitlist",
	"Approval Required",
	"Sold Out",
	"Registration Closed",
	"Invite Only",
	"Limited Spots",
}

var (
	tagSet    = toSet(Tags)
	statusSet = toSet(Statuses)
)

// IsTag reports whether tag belongs to the tag vocabulary
func IsTag(tag string) bool {
	return tagSet[tag]
}

// IsStatus reports whether status is one of the known status labels
func IsStatus(status string) bool {
	return statusSet[status]
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
