package post

// Post categories.
const (
	TypeScholarship = "scholarship"
	TypeActivity    = "activity"
	TypeJob         = "job"
	TypeGrad        = "grad"
	TypeEvent       = "event"
	TypeNotice      = "notice"
)

var validTypes = map[string]bool{
	TypeScholarship: true,
	TypeActivity:    true,
	TypeJob:         true,
	TypeGrad:        true,
	TypeEvent:       true,
	TypeNotice:      true,
}

// ValidType reports whether t is one of the six recognized categories.
func ValidType(t string) bool {
	return validTypes[t]
}

// Doc is the canonical persisted unit, one JSON file per post. Once the
// backing file exists its date+slug identity is permanent; later observations
// only advance last_checked_at and optionally deadline.
type Doc struct {
	ID            string         `json:"id"`
	Type          string         `json:"type"`
	Title         string         `json:"title"`
	Subtitle      string         `json:"subtitle"`
	Tags          []string       `json:"tags"`
	DatePublished string         `json:"date_published"`
	Deadline      string         `json:"deadline"`
	LastCheckedAt string         `json:"last_checked_at"`
	SourceName    string         `json:"source_name"`
	SourceURL     string         `json:"source_url"`
	HeroImage     string         `json:"hero_image,omitempty"`
	Payload       map[string]any `json:"payload"`
}
