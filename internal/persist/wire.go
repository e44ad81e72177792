package persist

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/mmcdole/reelcache/internal/domain"
)

// wireRecord is one element of the persisted JSON array. Decoding is lenient:
// keys may be missing or null, and scalars may arrive as strings or numbers.
type wireRecord struct {
	RatingKey            flexString `json:"rating_key"`
	ID                   flexString `json:"id,omitempty"`
	Title                flexString `json:"title"`
	MediaType            flexString `json:"media_type"`
	Genres               []string   `json:"genres"`
	Thumb                optString  `json:"thumb"`
	Year                 optInt     `json:"year"`
	PlayCount            optInt     `json:"play_count"`
	LastPlayed           optInt     `json:"last_played"`
	Summary              flexString `json:"summary"`
	Rating               flexString `json:"rating"`
	ParentRatingKey      optString  `json:"parent_rating_key"`
	GrandparentRatingKey optString  `json:"grandparent_rating_key"`
}

func toWire(r domain.ItemRecord) wireRecord {
	genres := r.Genres
	if genres == nil {
		genres = []string{}
	}
	w := wireRecord{
		RatingKey:            flexString(r.ID),
		Title:                flexString(r.Title),
		MediaType:            flexString(r.Kind),
		Genres:               genres,
		Thumb:                optString(r.ArtworkRef),
		PlayCount:            optInt{v: int64(r.PlayCount), ok: true},
		Summary:              flexString(r.Summary),
		Rating:               flexString(r.Rating),
		ParentRatingKey:      optString(r.ParentID),
		GrandparentRatingKey: optString(r.GrandparentID),
	}
	if r.Year != nil {
		w.Year = optInt{v: int64(*r.Year), ok: true}
	}
	if r.LastPlayedAt != nil {
		w.LastPlayed = optInt{v: *r.LastPlayedAt, ok: true}
	}
	return w
}

// fromWire applies the record defaults. ok is false when the entry has no id.
func fromWire(w wireRecord) (domain.ItemRecord, bool) {
	id := strings.TrimSpace(string(w.RatingKey))
	if id == "" {
		id = strings.TrimSpace(string(w.ID))
	}
	if id == "" {
		return domain.ItemRecord{}, false
	}

	title := string(w.Title)
	if title == "" {
		title = domain.UnknownTitle
	}

	r := domain.ItemRecord{
		ID:            id,
		Title:         title,
		Kind:          domain.ParseKind(string(w.MediaType)),
		Genres:        domain.NormalizeGenres(w.Genres),
		ArtworkRef:    string(w.Thumb),
		Summary:       string(w.Summary),
		Rating:        string(w.Rating),
		ParentID:      string(w.ParentRatingKey),
		GrandparentID: string(w.GrandparentRatingKey),
	}
	if w.Year.ok {
		y := int(w.Year.v)
		r.Year = &y
	}
	if w.PlayCount.ok {
		r.PlayCount = int(w.PlayCount.v)
	}
	if w.LastPlayed.ok {
		lp := w.LastPlayed.v
		r.LastPlayedAt = &lp
	}
	return r, true
}

// flexString accepts a JSON string, number or null and always encodes as a string.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	s, _, err := decodeScalar(b)
	if err != nil {
		return err
	}
	*f = flexString(s)
	return nil
}

// optString is like flexString but encodes the empty string as null.
type optString string

func (o optString) MarshalJSON() ([]byte, error) {
	if o == "" {
		return []byte("null"), nil
	}
	return json.Marshal(string(o))
}

func (o *optString) UnmarshalJSON(b []byte) error {
	s, _, err := decodeScalar(b)
	if err != nil {
		return err
	}
	*o = optString(s)
	return nil
}

// optInt is an optional integer. Null, "" and absent all mean unset.
type optInt struct {
	v  int64
	ok bool
}

func (o optInt) MarshalJSON() ([]byte, error) {
	if !o.ok {
		return []byte("null"), nil
	}
	return strconv.AppendInt(nil, o.v, 10), nil
}

func (o *optInt) UnmarshalJSON(b []byte) error {
	s, isNull, err := decodeScalar(b)
	if err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	if isNull || s == "" {
		*o = optInt{}
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		*o = optInt{v: n, ok: true}
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("invalid integer %q", s)
	}
	*o = optInt{v: int64(f), ok: true}
	return nil
}

// decodeScalar returns the textual value of a JSON string, number, bool or null.
func decodeScalar(b []byte) (string, bool, error) {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0:
		return "", true, nil
	case bytes.Equal(b, []byte("null")):
		return "", true, nil
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return "", false, err
		}
		return s, false, nil
	case b[0] == '{' || b[0] == '[':
		return "", false, fmt.Errorf("expected scalar, got %s", b[:1])
	default:
		// numbers and booleans keep their literal text
		return string(b), false, nil
	}
}
