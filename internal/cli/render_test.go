package cli

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mmcdole/reelcache/internal/domain"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"Alien", 10, "Alien"},
		{"Alien", 5, "Alien"},
		{"The Matrix Reloaded", 10, "The Mat..."},
		{"Amélie", 4, "A..."},
		{"Alien", 2, "Al"},
		{"Alien", 0, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Truncate(tt.in, tt.width), "%q/%d", tt.in, tt.width)
	}
}

func TestPad(t *testing.T) {
	assert.Equal(t, "ab  ", Pad("ab", 4))
	assert.Equal(t, "é   ", Pad("é", 4))
	assert.Equal(t, "abcdef", Pad("abcdef", 3))
}

func TestRenderer(t *testing.T) {
	year := 1979
	rec := domain.ItemRecord{ID: "42", Title: "Alien", Kind: domain.KindMovie, Year: &year, Genres: []string{"horror"}}

	var buf bytes.Buffer
	r := NewRenderer(&buf, 100)

	r.Rows([]domain.ItemRecord{rec})
	assert.Contains(t, buf.String(), "Alien")
	assert.Contains(t, buf.String(), "1979")

	buf.Reset()
	r.Detail(rec, []string{"horror"})
	assert.Contains(t, buf.String(), "horror")
	assert.Contains(t, buf.String(), "42")

	buf.Reset()
	r.List(nil)
	assert.Contains(t, buf.String(), "None")

	buf.Reset()
	r.Error(errors.New("source unreachable"))
	assert.Contains(t, buf.String(), "source unreachable")
}
