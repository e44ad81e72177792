package persist

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/reelcache/internal/domain"
	"github.com/mmcdole/reelcache/internal/log"
)

func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }

func sampleRecords() []domain.ItemRecord {
	return []domain.ItemRecord{
		{
			ID:           "101",
			Title:        "Alien",
			Kind:         domain.KindMovie,
			Genres:       []string{"horror", "sci-fi"},
			ArtworkRef:   "/library/metadata/101/thumb/1",
			Year:         intPtr(1979),
			PlayCount:    4,
			LastPlayedAt: int64Ptr(1700000000),
			Summary:      "In space no one can hear you scream.",
			Rating:       "8.5",
		},
		{
			ID:            "202",
			Title:         "Pilot",
			Kind:          domain.KindEpisode,
			ParentID:      "201",
			GrandparentID: "200",
		},
		{
			ID:    "300",
			Title: domain.UnknownTitle,
			Kind:  domain.KindUnknown,
		},
	}
}

func newTestFileStore(t *testing.T) *FileStore {
	t.Helper()
	fs, err := NewFileStore(filepath.Join(t.TempDir(), "cache", "media_cache.json"), log.NullLogger())
	require.NoError(t, err)
	return fs
}

func TestFileStore_RoundTrip(t *testing.T) {
	fs := newTestFileStore(t)
	in := sampleRecords()

	require.NoError(t, fs.Save(in))
	out, err := fs.Load()
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestFileStore_RoundTripEmpty(t *testing.T) {
	fs := newTestFileStore(t)

	require.NoError(t, fs.Save(nil))
	out, err := fs.Load()
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestFileStore_LoadMissingFile(t *testing.T) {
	fs := newTestFileStore(t)

	out, err := fs.Load()
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestFileStore_LoadCorruptFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "truncated array", content: "[\n{\"rating_key\": \"1\", \"title\": \"A\"},\n{\"rating_"},
		{name: "not json", content: "hello"},
		{name: "object instead of array", content: `{"rating_key": "1"}`},
		{name: "trailing garbage", content: `[{"rating_key": "1"}] [`},
		{name: "bad year", content: `[{"rating_key": "1", "year": "soon"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := newTestFileStore(t)
			require.NoError(t, os.WriteFile(fs.Path(), []byte(tt.content), 0o644))

			out, err := fs.Load()
			assert.ErrorIs(t, err, domain.ErrCorruptSnapshot)
			assert.Nil(t, out)
		})
	}
}

func TestFileStore_LoadLenientFields(t *testing.T) {
	fs := newTestFileStore(t)
	content := `[
{"rating_key": 12, "title": "Heat", "media_type": "Movie", "genres": ["Crime", "crime"], "year": "1995", "play_count": null, "last_played": "", "rating": 8.3},
{"id": "13", "title": null, "media_type": null, "genres": null, "summary": "s"},
{"title": "no id at all"}
]`
	require.NoError(t, os.WriteFile(fs.Path(), []byte(content), 0o644))

	out, err := fs.Load()
	require.NoError(t, err)
	require.Len(t, out, 2)

	heat := out[0]
	assert.Equal(t, "12", heat.ID)
	assert.Equal(t, domain.KindMovie, heat.Kind)
	assert.Equal(t, []string{"crime"}, heat.Genres)
	require.NotNil(t, heat.Year)
	assert.Equal(t, 1995, *heat.Year)
	assert.Zero(t, heat.PlayCount)
	assert.Nil(t, heat.LastPlayedAt)
	assert.Equal(t, "8.3", heat.Rating)

	aliased := out[1]
	assert.Equal(t, "13", aliased.ID)
	assert.Equal(t, domain.UnknownTitle, aliased.Title)
	assert.Equal(t, domain.KindUnknown, aliased.Kind)
	assert.Nil(t, aliased.Genres)
}

func TestFileStore_WritesOneRecordPerLine(t *testing.T) {
	fs := newTestFileStore(t)
	require.NoError(t, fs.Save(sampleRecords()))

	raw, err := os.ReadFile(fs.Path())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "[", lines[0])
	assert.Equal(t, "]", lines[4])
	assert.Contains(t, lines[1], `"rating_key":"101"`)
	assert.Contains(t, lines[2], `"parent_rating_key":"201"`)
	assert.Contains(t, lines[3], `"genres":[]`)
	assert.Contains(t, lines[3], `"year":null`)
}

func TestFileStore_SaveLeavesNoTempFiles(t *testing.T) {
	fs := newTestFileStore(t)
	require.NoError(t, fs.Save(sampleRecords()))
	require.NoError(t, fs.Save(sampleRecords()[:1]))

	entries, err := os.ReadDir(filepath.Dir(fs.Path()))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "media_cache.json", entries[0].Name())

	out, err := fs.Load()
	require.NoError(t, err)
	assert.Len(t, out, 1)
}

func TestFileStore_FailedSaveKeepsPreviousFile(t *testing.T) {
	fs := newTestFileStore(t)
	require.NoError(t, fs.Save(sampleRecords()))

	// A directory where the temp file would be renamed makes the rename fail
	blocked := &FileStore{path: filepath.Join(filepath.Dir(fs.Path()), "blocked"), logger: log.NullLogger()}
	require.NoError(t, os.Mkdir(blocked.path, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(blocked.path, "x"), nil, 0o644))
	assert.Error(t, blocked.Save(sampleRecords()))

	out, err := fs.Load()
	require.NoError(t, err)
	assert.Len(t, out, 3)
}

func TestFileStore_LargeSnapshot(t *testing.T) {
	fs := newTestFileStore(t)
	in := make([]domain.ItemRecord, 1234)
	for i := range in {
		in[i] = domain.ItemRecord{ID: fmt.Sprint(i), Title: fmt.Sprintf("Movie %d", i), Kind: domain.KindMovie, Year: intPtr(1900 + i%120)}
	}

	require.NoError(t, fs.Save(in))
	out, err := fs.Load()
	require.NoError(t, err)
	assert.Equal(t, in, out)
}
