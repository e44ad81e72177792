package tautulli

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// APIResponse is the envelope every Tautulli v2 command returns.
type APIResponse struct {
	Response struct {
		Result  string          `json:"result"`
		Message *string         `json:"message"`
		Data    json.RawMessage `json:"data"`
	} `json:"response"`
}

// ServerInfo is the data of get_server_info.
type ServerInfo struct {
	Name    string `json:"pms_name"`
	Version string `json:"pms_version"`
}

// Library is one entry of get_libraries.
type Library struct {
	SectionID   Scalar `json:"section_id"`
	SectionName string `json:"section_name"`
	SectionType string `json:"section_type"`
	Count       Scalar `json:"count"`
}

// MediaInfoPage is the data of get_library_media_info.
type MediaInfoPage struct {
	RecordsTotal    int             `json:"recordsTotal"`
	RecordsFiltered int             `json:"recordsFiltered"`
	Data            []MediaInfoItem `json:"data"`
}

// MediaInfoItem is one row of a library listing.
type MediaInfoItem struct {
	RatingKey Scalar `json:"rating_key"`
	Title     string `json:"title"`
	MediaType string `json:"media_type"`
}

// Metadata is the data of get_metadata. Tautulli returns an empty object
// for unknown rating keys.
type Metadata struct {
	RatingKey            Scalar   `json:"rating_key"`
	Title                string   `json:"title"`
	MediaType            string   `json:"media_type"`
	Genres               []string `json:"genres"`
	Thumb                string   `json:"thumb"`
	Year                 Scalar   `json:"year"`
	PlayCount            Scalar   `json:"play_count"`
	LastPlayed           Scalar   `json:"last_played"`
	Summary              string   `json:"summary"`
	Rating               Scalar   `json:"rating"`
	ParentRatingKey      Scalar   `json:"parent_rating_key"`
	GrandparentRatingKey Scalar   `json:"grandparent_rating_key"`
}

// Scalar accepts a JSON string, number or null. Tautulli is inconsistent
// about quoting numeric fields across versions.
type Scalar string

func (s *Scalar) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*s = Scalar(strings.TrimSpace(str))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*s = Scalar(n.String())
	return nil
}

func (s Scalar) String() string { return string(s) }

// Int parses the value as an integer, accepting "2010" and 2010.0.
func (s Scalar) Int() (int64, bool) {
	if s == "" {
		return 0, false
	}
	if n, err := strconv.ParseInt(string(s), 10, 64); err == nil {
		return n, true
	}
	if f, err := strconv.ParseFloat(string(s), 64); err == nil {
		return int64(f), true
	}
	return 0, false
}
