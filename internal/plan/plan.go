package plan

import (
	"fmt"
	"sort"

	"plexhush/internal/library"
	"plexhush/internal/policy"
)

// Op is the operation an action performs on a field.
type Op string

const (
	OpHide    Op = "hide"
	OpRestore Op = "restore"
)

// Action is a single field-level intent produced by the planner.
type Action struct {
	Item  *library.Item
	Op    Op
	Field library.Field

	// Retryable is set by the executor when verification failed and the
	// action is eligible for another round. It carries no meaning outside
	// a run.
	Retryable bool
}

func (a Action) String() string {
	return fmt.Sprintf("%s %s for %s", a.Op, a.Field, a.Item)
}

// Options adjusts planning for a single run.
type Options struct {
	// ForceHide and ForceUnhide name one item each (by GUID) whose computed
	// actions are replaced with a full hide or restore of its fields.
	ForceHide   string
	ForceUnhide string
}

// Plan diffs the snapshot against the policy and returns the ordered action
// list. Planning is read-only; running the same plan output through the
// executor and planning again yields an empty list.
func Plan(snapshot library.Snapshot, p policy.Policy, opts Options) []Action {
	var actions []Action
	for _, item := range snapshot {
		if opts.ForceHide != "" && item.GUID == opts.ForceHide {
			actions = append(actions, forceHideActions(item, p)...)
			continue
		}
		if opts.ForceUnhide != "" && item.GUID == opts.ForceUnhide {
			actions = append(actions, restoreHiddenActions(item, p.Markers)...)
			continue
		}
		actions = append(actions, diffItem(item, p)...)
	}
	sortActions(actions)
	return actions
}

// RestoreAll emits one restore action per currently hidden field across the
// whole library, ignoring policy and exemptions. Used to decommission the
// tool.
func RestoreAll(snapshot library.Snapshot, markers library.Markers) []Action {
	var actions []Action
	for _, item := range snapshot {
		actions = append(actions, restoreHiddenActions(item, markers)...)
	}
	sortActions(actions)
	return actions
}

func diffItem(item *library.Item, p policy.Policy) []Action {
	desired := policy.Evaluate(item, p)

	var actions []Action
	for _, field := range library.Fields {
		hidden := item.FieldHidden(field, p.Markers)
		switch desired.Field(field) {
		case policy.Pinned:
			// Never touched, in either direction.
		case policy.Hidden:
			if !hidden {
				actions = append(actions, Action{Item: item, Op: OpHide, Field: field})
			}
		case policy.Shown:
			if hidden {
				actions = append(actions, Action{Item: item, Op: OpRestore, Field: field})
			}
		}
	}
	return actions
}

// forceHideActions hides every policy-enabled field of the item, regardless
// of watched state or exemption. Pinned fields stay pinned: there is nothing
// meaningful to hide in an empty or placeholder field.
func forceHideActions(item *library.Item, p policy.Policy) []Action {
	configured := map[library.Field]bool{
		library.FieldSummary:   p.HideSummaries,
		library.FieldTitle:     p.HideTitles && item.Kind == library.KindEpisode,
		library.FieldThumbnail: p.HideThumbnails && item.Kind == library.KindEpisode,
	}

	var actions []Action
	for _, field := range library.Fields {
		if !configured[field] {
			continue
		}
		if item.FieldHidden(field, p.Markers) {
			continue
		}
		if field != library.FieldThumbnail && item.FieldEmpty(field) {
			continue
		}
		if field == library.FieldTitle && policy.GenericTitle(item.Title) {
			continue
		}
		actions = append(actions, Action{Item: item, Op: OpHide, Field: field})
	}
	return actions
}

func restoreHiddenActions(item *library.Item, markers library.Markers) []Action {
	var actions []Action
	for _, field := range library.Fields {
		if item.FieldHidden(field, markers) {
			actions = append(actions, Action{Item: item, Op: OpRestore, Field: field})
		}
	}
	return actions
}

var fieldOrder = map[library.Field]int{
	library.FieldSummary:   0,
	library.FieldTitle:     1,
	library.FieldThumbnail: 2,
}

func sortActions(actions []Action) {
	sort.SliceStable(actions, func(a, b int) bool {
		if c := library.CompareItems(actions[a].Item, actions[b].Item); c != 0 {
			return c < 0
		}
		// Restores sort before hides so output reads restore-then-hide,
		// matching the run phases.
		if actions[a].Op != actions[b].Op {
			return actions[a].Op == OpRestore
		}
		return fieldOrder[actions[a].Field] < fieldOrder[actions[b].Field]
	})
}
