package policy

import (
	"regexp"

	"plexhush/internal/library"
)

// State is the desired disposition of one field.
type State int8

const (
	// Shown means the field should display its organic content.
	Shown State = iota
	// Hidden means the field should display the configured marker.
	Hidden
	// Pinned means the field must be left alone entirely: it is shown, but
	// no hide or restore action may ever target it.
	Pinned
)

func (s State) String() string {
	switch s {
	case Hidden:
		return "hidden"
	case Pinned:
		return "pinned"
	default:
		return "shown"
	}
}

// Policy is the immutable hide/restore configuration for a run.
type Policy struct {
	HideSummaries  bool
	HideTitles     bool
	HideThumbnails bool

	Markers library.Markers

	// ExemptNames holds show and movie titles that are never touched,
	// case-folded via library.FoldName.
	ExemptNames map[string]struct{}

	LockEditedFields bool
}

// NewExemptSet folds a list of names into the set form Evaluate expects.
func NewExemptSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		if name == "" {
			continue
		}
		set[library.FoldName(name)] = struct{}{}
	}
	return set
}

// Exempt reports whether the item's group is on the exemption list.
func (p Policy) Exempt(item *library.Item) bool {
	if len(p.ExemptNames) == 0 {
		return false
	}
	_, ok := p.ExemptNames[library.FoldName(item.GroupName())]
	return ok
}

// Desired is the computed target state for each field of one item.
type Desired struct {
	Summary   State
	Title     State
	Thumbnail State
}

// Field returns the desired state for the named field.
func (d Desired) Field(field library.Field) State {
	switch field {
	case library.FieldSummary:
		return d.Summary
	case library.FieldTitle:
		return d.Title
	case library.FieldThumbnail:
		return d.Thumbnail
	}
	return Pinned
}

// genericTitle matches placeholder titles agents synthesize when no real
// title is known. Hiding or restoring one of these is never worth an edit.
var genericTitle = regexp.MustCompile(`(?i)^(episode|chapter)\s*#?\d+$`)

// GenericTitle reports whether a title is an agent-synthesized placeholder.
func GenericTitle(title string) bool {
	return genericTitle.MatchString(title)
}

// Evaluate computes the desired field states for one item.
func Evaluate(item *library.Item, p Policy) Desired {
	desired := Desired{
		Summary:   baseState(p.HideSummaries),
		Title:     baseState(p.HideTitles && item.Kind == library.KindEpisode),
		Thumbnail: baseState(p.HideThumbnails && item.Kind == library.KindEpisode),
	}

	// Watched or exempt items are unconditionally shown, including fields
	// the policy no longer hides, so leftovers from earlier runs get
	// restored.
	if item.Watched || p.Exempt(item) {
		desired = Desired{Summary: Shown, Title: Shown, Thumbnail: Shown}
	}

	if item.FieldEmpty(library.FieldSummary) && !item.FieldHidden(library.FieldSummary, p.Markers) {
		desired.Summary = Pinned
	}
	if pinTitle(item, p) {
		desired.Title = Pinned
	}
	if item.FieldEmpty(library.FieldThumbnail) && !item.FieldHidden(library.FieldThumbnail, p.Markers) {
		desired.Thumbnail = Pinned
	}
	return desired
}

func pinTitle(item *library.Item, p Policy) bool {
	if item.FieldHidden(library.FieldTitle, p.Markers) {
		// A title we hid ourselves stays actionable even though its
		// current text matches no organic content.
		return false
	}
	if item.FieldEmpty(library.FieldTitle) {
		return true
	}
	return GenericTitle(item.Title)
}

func baseState(hide bool) State {
	if hide {
		return Hidden
	}
	return Shown
}
