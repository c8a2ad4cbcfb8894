package library

import (
	"fmt"
	"strings"
)

// Kind distinguishes the two item types plexhush manages.
type Kind string

const (
	KindEpisode Kind = "episode"
	KindMovie   Kind = "movie"
)

// Field identifies one of the spoiler-bearing attributes of an item.
type Field string

const (
	FieldSummary   Field = "summary"
	FieldTitle     Field = "title"
	FieldThumbnail Field = "thumbnail"
)

// Fields lists all managed fields in a fixed order.
var Fields = []Field{FieldSummary, FieldTitle, FieldThumbnail}

// HiddenThumbLabel is the label applied to an item whose thumbnail has been
// substituted. Thumbnails carry no marker string, so the label is the only
// way to tell a substituted poster from an organic one.
const HiddenThumbLabel = "plexhush"

// Markers holds the sentinel strings written into text fields to mark them as
// hidden by this tool. InProgress is a secondary sentinel that also counts as
// hidden, so fields caught mid-update are not mistaken for organic content.
type Markers struct {
	Summary    string
	Title      string
	InProgress string
}

// Item is a normalized episode or movie from a library snapshot.
type Item struct {
	GUID      string
	RatingKey string
	Kind      Kind

	// Show is the series title for episodes; empty for movies.
	Show    string
	Season  int
	Episode int
	Year    int

	Title   string
	Summary string

	// Thumb is the item's current poster reference, empty when none is set.
	// ParentThumb and GrandparentThumb are the season and show posters used
	// as substitutes when hiding.
	Thumb            string
	ParentThumb      string
	GrandparentThumb string

	Watched bool
	Labels  []string
}

// GroupName returns the name the exemption list matches against: the series
// title for episodes, the movie title for movies. Movie titles are never
// hidden, so this is stable across runs.
func (i *Item) GroupName() string {
	if i.Kind == KindEpisode {
		return i.Show
	}
	return i.Title
}

// FieldHidden reports whether the given field currently reads as hidden.
// Empty fields are never hidden; empty and hidden are distinct states.
func (i *Item) FieldHidden(field Field, markers Markers) bool {
	switch field {
	case FieldSummary:
		return markedHidden(i.Summary, markers.Summary, markers.InProgress)
	case FieldTitle:
		return markedHidden(i.Title, markers.Title, markers.InProgress)
	case FieldThumbnail:
		return i.HasLabel(HiddenThumbLabel)
	}
	return false
}

// FieldValue returns the current content of a text field. Thumbnails have no
// text content and return the poster reference instead.
func (i *Item) FieldValue(field Field) string {
	switch field {
	case FieldSummary:
		return i.Summary
	case FieldTitle:
		return i.Title
	case FieldThumbnail:
		return i.Thumb
	}
	return ""
}

// FieldEmpty reports whether a field has no meaningful content.
func (i *Item) FieldEmpty(field Field) bool {
	return strings.TrimSpace(i.FieldValue(field)) == ""
}

// HasLabel reports whether the item carries the given label.
func (i *Item) HasLabel(label string) bool {
	for _, l := range i.Labels {
		if strings.EqualFold(l, label) {
			return true
		}
	}
	return false
}

// String renders a human-readable description, matching the form used in
// progress output: show, season and episode for episodes; title and year for
// movies.
func (i *Item) String() string {
	if i.Kind == KindEpisode {
		return fmt.Sprintf("%s season %d episode %d %q", i.Show, i.Season, i.Episode, i.Title)
	}
	if i.Year > 0 {
		return fmt.Sprintf("%s (%d)", i.Title, i.Year)
	}
	return i.Title
}

func markedHidden(value string, markers ...string) bool {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return false
	}
	for _, marker := range markers {
		if marker == "" {
			continue
		}
		if strings.HasPrefix(trimmed, marker) {
			return true
		}
	}
	return false
}
