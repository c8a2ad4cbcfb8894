package execute

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"plexhush/internal/library"
	"plexhush/internal/plan"
	"plexhush/internal/services"
)

var testMarkers = library.Markers{
	Summary: "** Hidden by plexhush **",
	Title:   "(title hidden)",
}

// fakeLibrary applies writes to an in-memory snapshot. honorWrites controls
// whether edits become visible on Reload, simulating a server whose refresh
// keeps clobbering our edits.
type fakeLibrary struct {
	mu          sync.Mutex
	items       library.Snapshot
	honorWrites bool

	writes    []string
	refreshes []string
	calls     []string

	writeErr map[string]error
	posters  map[string][]library.Poster
}

func newFakeLibrary(items ...*library.Item) *fakeLibrary {
	snap := make(library.Snapshot, len(items))
	for _, item := range items {
		copied := *item
		snap[item.GUID] = &copied
	}
	return &fakeLibrary{items: snap, honorWrites: true, writeErr: map[string]error{}, posters: map[string][]library.Poster{}}
}

func (f *fakeLibrary) Reload(ctx context.Context, guids []string) (library.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(library.Snapshot, len(guids))
	for _, guid := range guids {
		if item, ok := f.items[guid]; ok {
			copied := *item
			out[guid] = &copied
		}
	}
	return out, nil
}

func (f *fakeLibrary) WriteField(ctx context.Context, item *library.Item, field library.Field, value string, locked bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := item.GUID + "/" + string(field)
	f.writes = append(f.writes, fmt.Sprintf("%s=%q locked=%t", key, value, locked))
	if err := f.writeErr[key]; err != nil {
		return err
	}
	if !f.honorWrites {
		return nil
	}
	stored := f.items[item.GUID]
	if stored == nil {
		return nil
	}
	switch field {
	case library.FieldSummary:
		stored.Summary = value
	case library.FieldTitle:
		stored.Title = value
	}
	return nil
}

func (f *fakeLibrary) TriggerRefresh(ctx context.Context, item *library.Item) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes = append(f.refreshes, item.GUID)
	return nil
}

func (f *fakeLibrary) Posters(ctx context.Context, item *library.Item) ([]library.Poster, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "posters "+item.GUID)
	return f.posters[item.GUID], nil
}

func (f *fakeLibrary) UploadPoster(ctx context.Context, item *library.Item, source string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "upload "+item.GUID+" "+source)
	return nil
}

func (f *fakeLibrary) SelectPoster(ctx context.Context, item *library.Item, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "select "+item.GUID+" "+key)
	return nil
}

func (f *fakeLibrary) Tag(ctx context.Context, item *library.Item, label string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "tag "+item.GUID+" "+label)
	if stored := f.items[item.GUID]; stored != nil && f.honorWrites {
		stored.Labels = append(stored.Labels, label)
	}
	return nil
}

func (f *fakeLibrary) Untag(ctx context.Context, item *library.Item, label string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "untag "+item.GUID+" "+label)
	if stored := f.items[item.GUID]; stored != nil && f.honorWrites {
		var kept []string
		for _, l := range stored.Labels {
			if l != label {
				kept = append(kept, l)
			}
		}
		stored.Labels = kept
	}
	return nil
}

type stubListener struct{ last time.Time }

func (s *stubListener) LastActivity() time.Time { return s.last }

func newTestExecutor(lib Library, opts Options) *Executor {
	if opts.Markers == (library.Markers{}) {
		opts.Markers = testMarkers
	}
	exec := New(lib, nil, slog.New(slog.NewTextHandler(io.Discard, nil)), opts)
	exec.sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }
	return exec
}

func episodeItem(guid string, summary string) *library.Item {
	return &library.Item{
		GUID: guid, RatingKey: "rk-" + guid, Kind: library.KindEpisode,
		Show: "Dark", Season: 1, Episode: 1, Title: "Secrets", Summary: summary,
	}
}

func TestRunEmptyPlanSucceedsImmediately(t *testing.T) {
	lib := newFakeLibrary()
	exec := newTestExecutor(lib, Options{})
	// A listener that would otherwise block forever: it must not be
	// consulted for an empty plan.
	exec.listener = &stubListener{last: time.Now().Add(time.Hour)}

	report, err := exec.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(report.Results) != 0 || report.Failed() != 0 {
		t.Fatalf("expected empty successful report, got %+v", report)
	}
	if len(lib.refreshes) != 0 {
		t.Fatal("no refresh should fire for an empty plan")
	}
}

func TestRunHideVerifiesOnFirstRound(t *testing.T) {
	item := episodeItem("A", "plot")
	lib := newFakeLibrary(item)
	exec := newTestExecutor(lib, Options{LockEditedFields: true})

	report, err := exec.Run(context.Background(), []plan.Action{
		{Item: item, Op: plan.OpHide, Field: library.FieldSummary},
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if report.Verified() != 1 {
		t.Fatalf("expected 1 verified, report: %s", report.Summary())
	}
	if len(lib.writes) != 1 {
		t.Fatalf("expected a single write, got %v", lib.writes)
	}
	want := `A/summary="** Hidden by plexhush **" locked=true`
	if lib.writes[0] != want {
		t.Fatalf("write: got %q want %q", lib.writes[0], want)
	}
	if len(lib.refreshes) != 1 || lib.refreshes[0] != "A" {
		t.Fatalf("expected one refresh of A, got %v", lib.refreshes)
	}
}

func TestRunRestoreUsesCachedOriginal(t *testing.T) {
	item := episodeItem("A", testMarkers.Summary)
	lib := newFakeLibrary(item)
	exec := newTestExecutor(lib, Options{
		Originals: staticOriginals{"A/summary": "The original plot"},
	})

	report, err := exec.Run(context.Background(), []plan.Action{
		{Item: item, Op: plan.OpRestore, Field: library.FieldSummary},
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if report.Verified() != 1 {
		t.Fatalf("expected verified restore, report: %s", report.Summary())
	}
	want := `A/summary="The original plot" locked=false`
	if lib.writes[0] != want {
		t.Fatalf("write: got %q want %q", lib.writes[0], want)
	}
}

type staticOriginals map[string]string

func (s staticOriginals) OriginalField(ctx context.Context, guid string, field library.Field) (string, bool, error) {
	v, ok := s[guid+"/"+string(field)]
	return v, ok, nil
}

func TestRunRestoreWithoutOriginalClearsAndUnlocks(t *testing.T) {
	item := episodeItem("A", testMarkers.Summary)
	lib := newFakeLibrary(item)
	exec := newTestExecutor(lib, Options{})

	report, err := exec.Run(context.Background(), []plan.Action{
		{Item: item, Op: plan.OpRestore, Field: library.FieldSummary},
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	// An empty field never reads as hidden, so the goal is achieved even
	// though the agent supplied no replacement text.
	if report.Verified() != 1 {
		t.Fatalf("expected verified restore, report: %s", report.Summary())
	}
	want := `A/summary="" locked=false`
	if lib.writes[0] != want {
		t.Fatalf("write: got %q want %q", lib.writes[0], want)
	}
}

func TestRunRetryBudgetTerminates(t *testing.T) {
	item := episodeItem("A", "plot")
	lib := newFakeLibrary(item)
	lib.honorWrites = false // edits never take: verification can never pass
	exec := newTestExecutor(lib, Options{RetryRounds: 3})

	report, err := exec.Run(context.Background(), []plan.Action{
		{Item: item, Op: plan.OpHide, Field: library.FieldSummary},
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if report.Failed() != 1 {
		t.Fatalf("expected the action to fail, report: %s", report.Summary())
	}
	res := report.Results[0]
	if res.Rounds != 4 {
		t.Fatalf("expected initial pass plus 3 retries, got %d rounds", res.Rounds)
	}
	// 4 hide attempts and nothing else: the server still shows the organic
	// summary, so there is no placeholder to neutralize and clearing would
	// wipe real text.
	if len(lib.writes) != 4 {
		t.Fatalf("expected 4 writes, got %d: %v", len(lib.writes), lib.writes)
	}
	for _, write := range lib.writes {
		if write == `A/summary="" locked=false` {
			t.Fatalf("organic summary must not be cleared, writes: %v", lib.writes)
		}
	}
	if got := lib.items["A"].Summary; got != "plot" {
		t.Fatalf("organic summary lost: %q", got)
	}
}

func TestRunFailedRestoreClearsLingeringMarker(t *testing.T) {
	// The marker sticks no matter what we write, so the restore can never
	// verify. The lingering placeholder must still be cleared at the end.
	item := episodeItem("A", testMarkers.Summary)
	lib := newFakeLibrary(item)
	lib.honorWrites = false
	exec := newTestExecutor(lib, Options{RetryRounds: 1})

	report, err := exec.Run(context.Background(), []plan.Action{
		{Item: item, Op: plan.OpRestore, Field: library.FieldSummary},
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if report.Failed() != 1 {
		t.Fatalf("expected the restore to fail, report: %s", report.Summary())
	}
	// 2 restore attempts plus the neutralizing clear.
	if len(lib.writes) != 3 {
		t.Fatalf("expected 3 writes, got %d: %v", len(lib.writes), lib.writes)
	}
	if last := lib.writes[len(lib.writes)-1]; last != `A/summary="" locked=false` {
		t.Fatalf("lingering marker must be cleared, last write: %q", last)
	}
}

func TestRunRemoteErrorAbortsItemButRefreshStillFires(t *testing.T) {
	item := episodeItem("A", "plot")
	item.Title = "Real Title"
	other := episodeItem("B", "plot")
	lib := newFakeLibrary(item, other)
	lib.writeErr["A/summary"] = services.Wrap(services.ErrRemote, "write field", "", errors.New("503"))
	exec := newTestExecutor(lib, Options{RetryRounds: 1})

	report, err := exec.Run(context.Background(), []plan.Action{
		{Item: item, Op: plan.OpHide, Field: library.FieldSummary},
		{Item: item, Op: plan.OpHide, Field: library.FieldTitle},
		{Item: other, Op: plan.OpHide, Field: library.FieldSummary},
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	// B is untouched by A's failure.
	foundB := false
	for _, res := range report.Results {
		if res.Action.Item.GUID == "B" && res.Status == StatusVerified {
			foundB = true
		}
	}
	if !foundB {
		t.Fatal("failure on item A must not abort item B")
	}
	// A was refreshed on every pass despite the write error.
	refreshedA := 0
	for _, guid := range lib.refreshes {
		if guid == "A" {
			refreshedA++
		}
	}
	if refreshedA == 0 {
		t.Fatal("refresh-on-exit must fire even when a write fails")
	}
}

func TestRunThumbnailHideUsesShowPosterAndLabel(t *testing.T) {
	item := episodeItem("A", "plot")
	item.Thumb = "/library/metadata/1/thumb"
	item.GrandparentThumb = "/library/metadata/9/thumb"
	lib := newFakeLibrary(item)
	exec := newTestExecutor(lib, Options{})

	report, err := exec.Run(context.Background(), []plan.Action{
		{Item: item, Op: plan.OpHide, Field: library.FieldThumbnail},
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if report.Verified() != 1 {
		t.Fatalf("expected verified thumbnail hide, report: %s", report.Summary())
	}
	wantCalls := []string{
		"upload A /library/metadata/9/thumb",
		"tag A " + library.HiddenThumbLabel,
	}
	for i, want := range wantCalls {
		if lib.calls[i] != want {
			t.Fatalf("call %d: got %q want %q", i, lib.calls[i], want)
		}
	}
}

func TestRunThumbnailHideSkippedWithoutFallback(t *testing.T) {
	item := episodeItem("A", "plot")
	item.Thumb = "/library/metadata/1/thumb"
	lib := newFakeLibrary(item)
	exec := newTestExecutor(lib, Options{})

	report, err := exec.Run(context.Background(), []plan.Action{
		{Item: item, Op: plan.OpHide, Field: library.FieldThumbnail},
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if report.Skipped() != 1 {
		t.Fatalf("expected skipped action, report: %s", report.Summary())
	}
	res := report.Results[0]
	if !errors.Is(res.Err, services.ErrPrecondition) {
		t.Fatalf("expected precondition error, got %v", res.Err)
	}
	if res.Rounds != 1 {
		t.Fatalf("skipped actions must not be retried, got %d rounds", res.Rounds)
	}
}

func TestRunThumbnailRestoreSelectsUnselectedCandidate(t *testing.T) {
	item := episodeItem("A", "plot")
	item.Labels = []string{library.HiddenThumbLabel}
	lib := newFakeLibrary(item)
	lib.posters["A"] = []library.Poster{
		{Key: "upload://substituted", Selected: true},
		{Key: "agent://original"},
	}
	exec := newTestExecutor(lib, Options{})

	report, err := exec.Run(context.Background(), []plan.Action{
		{Item: item, Op: plan.OpRestore, Field: library.FieldThumbnail},
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if report.Verified() != 1 {
		t.Fatalf("expected verified restore, report: %s", report.Summary())
	}
	var selected string
	for _, call := range lib.calls {
		if len(call) > 7 && call[:7] == "select " {
			selected = call
		}
	}
	if selected != "select A agent://original" {
		t.Fatalf("expected original candidate selected, got %q", selected)
	}
}

func TestWaitForQuiesceRespectsWindow(t *testing.T) {
	lib := newFakeLibrary()
	exec := newTestExecutor(lib, Options{QuiescenceWindow: 2 * time.Second, PollInterval: time.Millisecond})

	base := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	current := base
	exec.now = func() time.Time { return current }
	slept := 0
	exec.sleep = func(ctx context.Context, d time.Duration) error {
		slept++
		current = current.Add(time.Second)
		return nil
	}
	listener := &stubListener{last: base.Add(-time.Second)}
	exec.listener = listener

	exec.waitForQuiesce(context.Background())
	if slept != 1 {
		t.Fatalf("expected one poll before quiet, got %d", slept)
	}
}

func TestRunCancellationStillRefreshes(t *testing.T) {
	item := episodeItem("A", "plot")
	lib := newFakeLibrary(item)
	exec := newTestExecutor(lib, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := exec.Run(ctx, []plan.Action{
		{Item: item, Op: plan.OpHide, Field: library.FieldSummary},
	})
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if len(lib.refreshes) != 1 {
		t.Fatalf("refresh-on-exit must fire under cancellation, got %v", lib.refreshes)
	}
}

func TestRunCancelledBeforeApplyLeavesFieldsUntouched(t *testing.T) {
	item := episodeItem("A", "the organic plot text")
	lib := newFakeLibrary(item)
	exec := newTestExecutor(lib, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := exec.Run(ctx, []plan.Action{
		{Item: item, Op: plan.OpHide, Field: library.FieldSummary},
	})
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	// The hide never ran, so there is nothing of ours to remove: no write at
	// all, and the organic summary stays.
	if len(lib.writes) != 0 {
		t.Fatalf("cancelled run must not write anything, got %v", lib.writes)
	}
	if got := lib.items["A"].Summary; got != "the organic plot text" {
		t.Fatalf("organic summary changed on a cancelled run: %q", got)
	}
	if got := report.Results[0].Status; got != StatusFailed {
		t.Fatalf("unapplied action should settle as failed, got %s", got)
	}
}

func TestWaitForQuiesceHoldsFullWindowWithoutActivity(t *testing.T) {
	lib := newFakeLibrary()
	exec := newTestExecutor(lib, Options{QuiescenceWindow: 2 * time.Second, PollInterval: time.Second})

	base := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	current := base
	exec.now = func() time.Time { return current }
	slept := 0
	exec.sleep = func(ctx context.Context, d time.Duration) error {
		slept++
		current = current.Add(time.Second)
		return nil
	}
	// A listener that has never fired: the refresh may not have produced its
	// first notification yet, so silence alone is not proof of quiet.
	exec.listener = &stubListener{}

	exec.waitForQuiesce(context.Background())
	if slept != 2 {
		t.Fatalf("expected a full window of polling before trusting silence, got %d sleeps", slept)
	}
}
