package cli

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/mmcdole/reelcache/internal/domain"
	"github.com/mmcdole/reelcache/internal/search"
)

// Renderer writes records to w, fitting lines to width.
type Renderer struct {
	w     io.Writer
	width int
}

// NewRenderer creates a renderer. width <= 0 uses TerminalWidth.
func NewRenderer(w io.Writer, width int) *Renderer {
	if width <= 0 {
		width = TerminalWidth()
	}
	return &Renderer{w: w, width: width}
}

const (
	idColumn   = 8
	kindColumn = 8
	yearColumn = 6
)

// Row renders one record as a single line: id, kind, year, title, genres.
func (r *Renderer) Row(rec domain.ItemRecord) {
	fmt.Fprintln(r.w, r.row(rec, TitleStyle.Render))
}

func (r *Renderer) row(rec domain.ItemRecord, renderTitle func(...string) string) string {
	year := ""
	if rec.Year != nil {
		year = strconv.Itoa(*rec.Year)
	}

	fixed := idColumn + kindColumn + yearColumn + 3
	titleWidth := max(10, r.width-fixed)

	var b strings.Builder
	b.WriteString(DimStyle.Render(Pad(Truncate(rec.ID, idColumn), idColumn)))
	b.WriteString(" ")
	b.WriteString(AccentStyle.Render(Pad(string(rec.Kind), kindColumn)))
	b.WriteString(" ")
	b.WriteString(SubtitleStyle.Render(Pad(year, yearColumn)))
	b.WriteString(" ")

	title := Truncate(rec.Title, titleWidth)
	b.WriteString(renderTitle(title))

	if len(rec.Genres) > 0 {
		remaining := titleWidth - lipgloss.Width(title) - 3
		if remaining > 5 {
			b.WriteString(DimStyle.Render("  " + Truncate(strings.Join(rec.Genres, ", "), remaining)))
		}
	}
	return b.String()
}

// Rows renders a list of records, or a dim placeholder when empty.
func (r *Renderer) Rows(records []domain.ItemRecord) {
	if len(records) == 0 {
		fmt.Fprintln(r.w, DimStyle.Render("No items"))
		return
	}
	for _, rec := range records {
		r.Row(rec)
	}
}

// Matches renders fuzzy results with the matched characters highlighted.
func (r *Renderer) Matches(matches []search.Match) {
	if len(matches) == 0 {
		fmt.Fprintln(r.w, DimStyle.Render("No matches"))
		return
	}
	for _, m := range matches {
		fmt.Fprintln(r.w, r.row(m.Record, func(s ...string) string {
			return highlight(strings.Join(s, ""), m.MatchedIndexes)
		}))
	}
}

// highlight styles the runes of s at the given byte offsets.
func highlight(s string, indexes []int) string {
	if len(indexes) == 0 {
		return TitleStyle.Render(s)
	}
	var b strings.Builder
	for i, ch := range s {
		if slices.Contains(indexes, i) {
			b.WriteString(MatchHighlightStyle.Render(string(ch)))
		} else {
			b.WriteString(TitleStyle.Render(string(ch)))
		}
	}
	return b.String()
}

// Detail renders every field of one record inside a card.
func (r *Renderer) Detail(rec domain.ItemRecord, genres []string) {
	var b strings.Builder
	contentWidth := max(20, r.width-4)

	b.WriteString(TitleStyle.Render(Truncate(rec.Title, contentWidth)))
	b.WriteString("  ")
	b.WriteString(BadgeStyle.Render(string(rec.Kind)))
	b.WriteString("\n")

	field := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString(DimStyle.Render(Pad(label, 12)))
		b.WriteString(SubtitleStyle.Render(Truncate(value, contentWidth-12)))
		b.WriteString("\n")
	}

	field("ID", rec.ID)
	if rec.Year != nil {
		field("Year", strconv.Itoa(*rec.Year))
	}
	field("Genres", strings.Join(genres, ", "))
	field("Rating", rec.Rating)
	field("Plays", strconv.Itoa(rec.PlayCount))
	if rec.LastPlayedAt != nil {
		field("Last played", time.Unix(*rec.LastPlayedAt, 0).Format(time.DateTime))
	}
	field("Parent", rec.ParentID)
	field("Show", rec.GrandparentID)
	field("Artwork", rec.ArtworkRef)

	if rec.Summary != "" {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Width(contentWidth).Foreground(LightGray).Render(rec.Summary))
	}

	fmt.Fprintln(r.w, CardStyle.Render(strings.TrimRight(b.String(), "\n")))
}

// List renders plain strings, one per line.
func (r *Renderer) List(values []string) {
	if len(values) == 0 {
		fmt.Fprintln(r.w, DimStyle.Render("None"))
		return
	}
	for _, v := range values {
		fmt.Fprintln(r.w, AccentStyle.Render(v))
	}
}

// Refreshed renders the outcome of a refresh.
func (r *Renderer) Refreshed(count int, stats domain.RefreshStats) {
	fmt.Fprintln(r.w, SuccessStyle.Render(fmt.Sprintf("Cached %d items", count)))
	fmt.Fprintln(r.w, DimStyle.Render(fmt.Sprintf(
		"collections %d (failed %d), listed %d, fetch failures %d, dropped %d, took %s",
		stats.Collections, stats.CollectionsFailed, stats.Listed, stats.FetchFailed,
		stats.Dropped, stats.Duration.Round(time.Millisecond),
	)))
}

// Error renders an error line.
func (r *Renderer) Error(err error) {
	fmt.Fprintln(r.w, ErrorStyle.Render("Error: "+err.Error()))
}
