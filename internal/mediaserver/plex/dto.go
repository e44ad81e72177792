package plex

// MediaContainer is the root container for Plex API responses
type MediaContainer struct {
	Size              int         `json:"size"`
	TotalSize         int         `json:"totalSize,omitempty"`
	Offset            int         `json:"offset,omitempty"`
	MachineIdentifier string      `json:"machineIdentifier,omitempty"`
	Version           string      `json:"version,omitempty"`
	Directory         []Directory `json:"Directory,omitempty"`
	Metadata          []Metadata  `json:"Metadata,omitempty"`
}

// APIResponse wraps the MediaContainer for JSON unmarshaling
type APIResponse struct {
	MediaContainer MediaContainer `json:"MediaContainer"`
}

// Directory represents a library section
type Directory struct {
	Key   string `json:"key"`
	Type  string `json:"type"`
	Title string `json:"title"`
}

// Tag is a Plex tag entry (genre, director, collection...)
type Tag struct {
	Tag string `json:"tag"`
}

// Metadata represents a media item (movie, show, season, or episode)
type Metadata struct {
	RatingKey            string  `json:"ratingKey"`
	ParentRatingKey      string  `json:"parentRatingKey,omitempty"`
	GrandparentRatingKey string  `json:"grandparentRatingKey,omitempty"`
	Type                 string  `json:"type"`
	Title                string  `json:"title"`
	Summary              string  `json:"summary,omitempty"`
	ContentRating        string  `json:"contentRating,omitempty"`
	Rating               float64 `json:"rating,omitempty"`         // Critic rating
	AudienceRating       float64 `json:"audienceRating,omitempty"` // Audience rating
	Year                 int     `json:"year,omitempty"`
	Thumb                string  `json:"thumb,omitempty"`
	GrandparentThumb     string  `json:"grandparentThumb,omitempty"`
	ViewCount            int     `json:"viewCount,omitempty"`
	LastViewedAt         int64   `json:"lastViewedAt,omitempty"`
	Genre                []Tag   `json:"Genre,omitempty"`
}
