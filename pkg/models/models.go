package models

// MediaType is the media classification reported by the X API. Values are
// passed through to the export unchanged.
type MediaType string

const (
	MediaTypePhoto       MediaType = "photo"
	MediaTypeVideo       MediaType = "video"
	MediaTypeAnimatedGIF MediaType = "animated_gif"
)

// Media describes the first media attachment of a bookmarked tweet.
type Media struct {
	Type   MediaType `json:"type"`
	Source string    `json:"source"`
}

// Record is one exported bookmark. Field names match the export file
// format; optional fields are omitted rather than defaulted when the API
// entry lacks them.
type Record struct {
	ID        string `json:"id"`
	FullText  string `json:"full_text,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Media     *Media `json:"media,omitempty"`
}
