package library_test

import (
	"testing"

	"plexhush/internal/library"
)

func testMarkers() library.Markers {
	return library.Markers{
		Summary:    "** Hidden by plexhush **",
		Title:      "(title hidden)",
		InProgress: "** Update pending **",
	}
}

func TestFieldHiddenMatchesMarkerPrefix(t *testing.T) {
	item := &library.Item{
		Kind:    library.KindEpisode,
		Summary: "** Hidden by plexhush ** (watch the episode first)",
		Title:   "The Winds of Winter",
	}
	markers := testMarkers()

	if !item.FieldHidden(library.FieldSummary, markers) {
		t.Fatal("summary starting with marker should read as hidden")
	}
	if item.FieldHidden(library.FieldTitle, markers) {
		t.Fatal("ordinary title should not read as hidden")
	}
}

func TestFieldHiddenInProgressMarkerCounts(t *testing.T) {
	item := &library.Item{Summary: "** Update pending **"}
	if !item.FieldHidden(library.FieldSummary, testMarkers()) {
		t.Fatal("in-progress marker should count as hidden")
	}
}

func TestEmptyFieldIsNeverHidden(t *testing.T) {
	item := &library.Item{Summary: "   ", Title: ""}
	markers := testMarkers()
	if item.FieldHidden(library.FieldSummary, markers) {
		t.Fatal("blank summary must not read as hidden")
	}
	if item.FieldHidden(library.FieldTitle, markers) {
		t.Fatal("empty title must not read as hidden")
	}
}

func TestThumbnailHiddenViaLabel(t *testing.T) {
	item := &library.Item{Labels: []string{"Favorites", library.HiddenThumbLabel}}
	if !item.FieldHidden(library.FieldThumbnail, testMarkers()) {
		t.Fatal("labeled item should report hidden thumbnail")
	}
	item.Labels = []string{"Favorites"}
	if item.FieldHidden(library.FieldThumbnail, testMarkers()) {
		t.Fatal("unlabeled item should not report hidden thumbnail")
	}
}

func TestGroupName(t *testing.T) {
	ep := &library.Item{Kind: library.KindEpisode, Show: "Severance", Title: "Half Loop"}
	if got := ep.GroupName(); got != "Severance" {
		t.Fatalf("episode group name: got %q", got)
	}
	movie := &library.Item{Kind: library.KindMovie, Title: "Arrival"}
	if got := movie.GroupName(); got != "Arrival" {
		t.Fatalf("movie group name: got %q", got)
	}
}

func TestSortItemsShowsBeforeMoviesAndStable(t *testing.T) {
	items := []*library.Item{
		{GUID: "m1", Kind: library.KindMovie, Title: "Arrival", Year: 2016},
		{GUID: "e2", Kind: library.KindEpisode, Show: "Severance", Season: 1, Episode: 2},
		{GUID: "e1", Kind: library.KindEpisode, Show: "Severance", Season: 1, Episode: 1},
		{GUID: "e3", Kind: library.KindEpisode, Show: "Andor", Season: 2, Episode: 1},
	}
	library.SortItems(items)

	want := []string{"e3", "e1", "e2", "m1"}
	for i, guid := range want {
		if items[i].GUID != guid {
			t.Fatalf("position %d: got %s want %s", i, items[i].GUID, guid)
		}
	}
}

func TestSnapshotItemsDeterministic(t *testing.T) {
	snap := library.Snapshot{
		"b": {GUID: "b", Kind: library.KindMovie, Title: "Heat", Year: 1995},
		"a": {GUID: "a", Kind: library.KindMovie, Title: "Alien", Year: 1979},
	}
	first := snap.Items()
	second := snap.Items()
	for i := range first {
		if first[i].GUID != second[i].GUID {
			t.Fatal("snapshot ordering must be stable across invocations")
		}
	}
	if first[0].GUID != "a" {
		t.Fatalf("expected Alien first, got %s", first[0].Title)
	}
}
