package library

import (
	"sort"

	"golang.org/x/text/cases"
)

// Snapshot maps item GUIDs to items as observed on the server at one point in
// time.
type Snapshot map[string]*Item

// Items returns the snapshot contents in deterministic library order.
func (s Snapshot) Items() []*Item {
	items := make([]*Item, 0, len(s))
	for _, item := range s {
		items = append(items, item)
	}
	SortItems(items)
	return items
}

var titleFolder = cases.Fold()

// FoldName normalizes a show or movie title for comparisons, so exemption
// matching does not depend on how the user cased the name.
func FoldName(name string) string {
	return titleFolder.String(name)
}

// SortItems orders items the way they are presented to users: episodes before
// movies, then by group name, season (or release year), and episode number.
// GUIDs break any remaining ties so the order is total.
func SortItems(items []*Item) {
	sort.Slice(items, func(a, b int) bool {
		return compareItems(items[a], items[b]) < 0
	})
}

// CompareItems implements the ordering used by SortItems, exposed for the
// planner so actions inherit the same order.
func CompareItems(a, b *Item) int {
	return compareItems(a, b)
}

func compareItems(a, b *Item) int {
	if a.Kind != b.Kind {
		// Episodes sort before movies.
		if a.Kind == KindEpisode {
			return -1
		}
		return 1
	}
	if ga, gb := FoldName(a.GroupName()), FoldName(b.GroupName()); ga != gb {
		if ga < gb {
			return -1
		}
		return 1
	}
	if oa, ob := a.ordinalMajor(), b.ordinalMajor(); oa != ob {
		if oa < ob {
			return -1
		}
		return 1
	}
	if a.Episode != b.Episode {
		if a.Episode < b.Episode {
			return -1
		}
		return 1
	}
	if a.GUID != b.GUID {
		if a.GUID < b.GUID {
			return -1
		}
		return 1
	}
	return 0
}

// ordinalMajor is the season for episodes and the release year for movies.
func (i *Item) ordinalMajor() int {
	if i.Kind == KindEpisode {
		return i.Season
	}
	return i.Year
}
