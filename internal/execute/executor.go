package execute

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"plexhush/internal/library"
	"plexhush/internal/plan"
	"plexhush/internal/services"
)

// Library is the media-server surface the executor drives. The Plex client
// in internal/services/plex implements it.
type Library interface {
	// Reload re-fetches the named items so verification sees post-refresh
	// state. Items the server no longer knows are simply absent.
	Reload(ctx context.Context, guids []string) (library.Snapshot, error)
	WriteField(ctx context.Context, item *library.Item, field library.Field, value string, locked bool) error
	// TriggerRefresh asks the server to regenerate the item's metadata.
	// Asynchronous; completion is observed through the activity listener.
	TriggerRefresh(ctx context.Context, item *library.Item) error
	Posters(ctx context.Context, item *library.Item) ([]library.Poster, error)
	UploadPoster(ctx context.Context, item *library.Item, source string) error
	SelectPoster(ctx context.Context, item *library.Item, key string) error
	Tag(ctx context.Context, item *library.Item, label string) error
	Untag(ctx context.Context, item *library.Item, label string) error
}

// ActivityListener publishes the time of the last relevant server event.
// The websocket listener in internal/services/plex implements it; the
// executor only ever reads the single timestamp.
type ActivityListener interface {
	LastActivity() time.Time
}

// OriginalSource supplies cached pre-hide field text, when available, so
// restores can put back the exact original instead of waiting for the
// server's agent to refetch one.
type OriginalSource interface {
	OriginalField(ctx context.Context, guid string, field library.Field) (string, bool, error)
}

// Options tunes a run. Zero values fall back to the defaults below.
type Options struct {
	Markers          library.Markers
	LockEditedFields bool

	QuiescenceWindow time.Duration
	PollInterval     time.Duration
	MaxQuiesceWait   time.Duration
	RetryRounds      int

	Originals OriginalSource
}

const (
	defaultQuiescenceWindow = 2 * time.Second
	defaultPollInterval     = 100 * time.Millisecond
	defaultMaxQuiesceWait   = 60 * time.Second
	defaultRetryRounds      = 3
)

// Executor applies a plan sequentially, item by item.
type Executor struct {
	lib      Library
	listener ActivityListener
	log      *slog.Logger
	opts     Options

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New constructs an executor. listener may be nil, in which case the
// quiescence wait is skipped (dry runs and tests).
func New(lib Library, listener ActivityListener, log *slog.Logger, opts Options) *Executor {
	if log == nil {
		log = slog.Default()
	}
	if opts.QuiescenceWindow <= 0 {
		opts.QuiescenceWindow = defaultQuiescenceWindow
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.MaxQuiesceWait <= 0 {
		opts.MaxQuiesceWait = defaultMaxQuiesceWait
	}
	if opts.RetryRounds <= 0 {
		opts.RetryRounds = defaultRetryRounds
	}
	return &Executor{
		lib:      lib,
		listener: listener,
		log:      log.With("component", "executor"),
		opts:     opts,
		now:      time.Now,
		sleep:    sleepContext,
	}
}

type itemGroup struct {
	item    *library.Item
	results []*Result
}

// Run applies the action list and returns the per-action report. The report
// is returned even on error so callers can account for partial progress; the
// error itself is non-nil only for run-level failures (cancellation, or a
// reload that prevented any verification).
func (e *Executor) Run(ctx context.Context, actions []plan.Action) (*Report, error) {
	report := &Report{Started: e.now()}
	if id, ok := services.RunIDFromContext(ctx); ok {
		report.RunID = id
	}
	for i := range actions {
		report.Results = append(report.Results, &Result{Action: actions[i], Status: StatusPending})
	}
	if len(actions) == 0 {
		// Nothing to do: success without waiting on the listener.
		report.Finished = e.now()
		return report, nil
	}

	groups := groupByItem(report.Results)

	var runErr error
	for pass := 0; pass <= e.opts.RetryRounds; pass++ {
		pending := pendingResults(report.Results)
		if len(pending) == 0 {
			break
		}
		if pass > 0 {
			e.log.Info("retrying unverified actions", "round", pass, "remaining", len(pending))
		}

		if err := e.applyPass(ctx, groups); err != nil {
			runErr = err
			break
		}

		e.waitForQuiesce(ctx)

		if err := e.verify(ctx, report.Results); err != nil {
			runErr = err
			break
		}
	}

	e.failRemaining(ctx, report.Results)
	report.Finished = e.now()
	return report, runErr
}

// applyPass applies all still-pending actions, one item at a time.
func (e *Executor) applyPass(ctx context.Context, groups []*itemGroup) error {
	for _, group := range groups {
		pending := pendingResults(group.results)
		if len(pending) == 0 {
			continue
		}
		if err := e.applyItem(ctx, group.item, pending); err != nil && errors.Is(err, context.Canceled) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return nil
}

// applyItem applies the item's actions in planned order. The refresh fires
// unconditionally on the way out, including on error and cancellation, so a
// partially edited item is never left stale.
func (e *Executor) applyItem(ctx context.Context, item *library.Item, results []*Result) (err error) {
	defer func() {
		rctx := ctx
		if rctx.Err() != nil {
			rctx = context.WithoutCancel(ctx)
		}
		if rerr := e.lib.TriggerRefresh(rctx, item); rerr != nil {
			e.log.Warn("trigger refresh failed", "item", item.String(), "error", rerr)
		}
	}()

	for _, res := range results {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		res.Rounds++
		aerr := e.applyAction(ctx, res.Action)
		switch {
		case aerr == nil:
			e.log.Debug("applied", "action", res.Action.String(), "round", res.Rounds)
		case errors.Is(aerr, services.ErrPrecondition):
			res.Status = StatusSkipped
			res.Err = aerr
			e.log.Warn("skipped", "action", res.Action.String(), "reason", aerr)
		default:
			// A remote failure aborts the rest of this item's actions for
			// this pass; they stay pending and remain eligible for the
			// verify/retry loop.
			res.Err = aerr
			e.log.Warn("apply failed", "action", res.Action.String(), "error", aerr)
			return aerr
		}
	}
	return nil
}

func (e *Executor) applyAction(ctx context.Context, action plan.Action) error {
	item := action.Item
	switch action.Field {
	case library.FieldSummary, library.FieldTitle:
		if action.Op == plan.OpHide {
			return e.lib.WriteField(ctx, item, action.Field, e.hideMarker(action.Field), e.opts.LockEditedFields)
		}
		return e.restoreText(ctx, item, action.Field)
	case library.FieldThumbnail:
		if action.Op == plan.OpHide {
			return e.hideThumbnail(ctx, item)
		}
		return e.restoreThumbnail(ctx, item)
	}
	return services.Wrap(services.ErrPrecondition, "apply", "unknown field "+string(action.Field), nil)
}

func (e *Executor) hideMarker(field library.Field) string {
	if field == library.FieldTitle {
		return e.opts.Markers.Title
	}
	return e.opts.Markers.Summary
}

// restoreText writes back the cached original when one is available,
// otherwise clears and unlocks the field so the server's agent repopulates
// it on refresh.
func (e *Executor) restoreText(ctx context.Context, item *library.Item, field library.Field) error {
	value := ""
	if e.opts.Originals != nil {
		original, ok, err := e.opts.Originals.OriginalField(ctx, item.GUID, field)
		if err != nil {
			e.log.Warn("original lookup failed", "item", item.String(), "field", field, "error", err)
		} else if ok {
			value = original
		}
	}
	return e.lib.WriteField(ctx, item, field, value, false)
}

// hideThumbnail substitutes the show (or season) poster and labels the item
// so the substitution can be recognized later. There is no reliable
// field-level way to suppress a poster across a refresh.
func (e *Executor) hideThumbnail(ctx context.Context, item *library.Item) error {
	source := item.GrandparentThumb
	if source == "" {
		source = item.ParentThumb
	}
	if source == "" {
		return services.Wrap(services.ErrPrecondition, "hide thumbnail", "no fallback poster for "+item.String(), nil)
	}
	if err := e.lib.UploadPoster(ctx, item, source); err != nil {
		return err
	}
	return e.lib.Tag(ctx, item, library.HiddenThumbLabel)
}

// restoreThumbnail removes the marker label and re-selects an original,
// non-selected poster candidate when one exists.
func (e *Executor) restoreThumbnail(ctx context.Context, item *library.Item) error {
	if err := e.lib.Untag(ctx, item, library.HiddenThumbLabel); err != nil {
		return err
	}
	posters, err := e.lib.Posters(ctx, item)
	if err != nil {
		return err
	}
	for _, poster := range posters {
		if !poster.Selected {
			return e.lib.SelectPoster(ctx, item, poster.Key)
		}
	}
	return services.Wrap(services.ErrPrecondition, "restore thumbnail", "no original poster candidate for "+item.String(), nil)
}

// waitForQuiesce blocks until the listener has seen no relevant activity for
// the quiescence window. A nil listener is treated as already quiet.
func (e *Executor) waitForQuiesce(ctx context.Context) {
	if e.listener == nil {
		return
	}
	start := e.now()
	deadline := start.Add(e.opts.MaxQuiesceWait)
	for {
		last := e.listener.LastActivity()
		if last.IsZero() {
			// No notification has arrived at all yet. The refresh we just
			// triggered may simply not have reached the socket, so hold a
			// full window from the start of the wait before trusting the
			// silence.
			if e.now().Sub(start) >= e.opts.QuiescenceWindow {
				return
			}
		} else if e.now().Sub(last) >= e.opts.QuiescenceWindow {
			return
		}
		if e.now().After(deadline) {
			e.log.Warn("quiescence wait exceeded cap, proceeding to verify", "cap", e.opts.MaxQuiesceWait)
			return
		}
		if err := e.sleep(ctx, e.opts.PollInterval); err != nil {
			return
		}
	}
}

// verify reloads touched items and settles each pending action whose goal is
// observably achieved. Mismatches are the normal retry signal, not errors.
func (e *Executor) verify(ctx context.Context, results []*Result) error {
	pending := pendingResults(results)
	if len(pending) == 0 {
		return nil
	}
	guids := make([]string, 0, len(pending))
	seen := make(map[string]struct{}, len(pending))
	for _, res := range pending {
		guid := res.Action.Item.GUID
		if _, ok := seen[guid]; ok {
			continue
		}
		seen[guid] = struct{}{}
		guids = append(guids, guid)
	}

	snapshot, err := e.lib.Reload(ctx, guids)
	if err != nil {
		return services.Wrap(services.ErrRemote, "verify", "reload touched items", err)
	}

	for _, res := range pending {
		observed, ok := snapshot[res.Action.Item.GUID]
		if !ok {
			// The item vanished between passes; leave it pending so the
			// budget eventually fails it.
			res.Action.Retryable = true
			continue
		}
		hidden := observed.FieldHidden(res.Action.Field, e.opts.Markers)
		achieved := hidden == (res.Action.Op == plan.OpHide)
		if achieved {
			res.Status = StatusVerified
			res.Err = nil
			continue
		}
		res.Action.Retryable = true
		e.log.Debug("verification mismatch", "action", res.Action.String(), "round", res.Rounds)
	}
	return nil
}

// failRemaining settles every action still pending after the retry loop.
// Neutralization clears lingering placeholder values so a failed run does
// not leave markers behind, but it must never touch organic text: only a
// field that observably still reads as hidden is cleared, and actions that
// never ran in any pass (cancellation, an early abort) are left exactly as
// the server has them.
func (e *Executor) failRemaining(ctx context.Context, results []*Result) {
	pending := pendingResults(results)
	if len(pending) == 0 {
		return
	}
	nctx := ctx
	if nctx.Err() != nil {
		nctx = context.WithoutCancel(ctx)
	}

	observed := e.observeApplied(nctx, pending)
	for _, res := range pending {
		if res.Rounds > 0 {
			if cur, ok := observed[res.Action.Item.GUID]; ok && cur.FieldHidden(res.Action.Field, e.opts.Markers) {
				e.neutralize(nctx, res)
			}
		}
		res.Status = StatusFailed
		e.log.Error("action failed after retry budget", "action", res.Action.String(), "rounds", res.Rounds)
	}
}

// observeApplied reloads the items of pending actions that were applied at
// least once, so neutralization decisions rest on current server state. An
// unreachable server means nothing gets neutralized, which errs on the side
// of leaving data alone.
func (e *Executor) observeApplied(ctx context.Context, pending []*Result) library.Snapshot {
	var guids []string
	seen := make(map[string]struct{}, len(pending))
	for _, res := range pending {
		if res.Rounds == 0 {
			continue
		}
		guid := res.Action.Item.GUID
		if _, ok := seen[guid]; ok {
			continue
		}
		seen[guid] = struct{}{}
		guids = append(guids, guid)
	}
	if len(guids) == 0 {
		return nil
	}
	snapshot, err := e.lib.Reload(ctx, guids)
	if err != nil {
		e.log.Warn("reload before neutralization failed, leaving fields untouched", "error", err)
		return nil
	}
	return snapshot
}

// neutralize removes the marker this tool wrote: text fields are cleared and
// unlocked, thumbnail substitutions lose their label.
func (e *Executor) neutralize(ctx context.Context, res *Result) {
	item := res.Action.Item
	var err error
	switch res.Action.Field {
	case library.FieldSummary, library.FieldTitle:
		err = e.lib.WriteField(ctx, item, res.Action.Field, "", false)
	case library.FieldThumbnail:
		err = e.lib.Untag(ctx, item, library.HiddenThumbLabel)
	}
	if err != nil {
		e.log.Warn("neutralize failed", "action", res.Action.String(), "error", err)
	}
}

func groupByItem(results []*Result) []*itemGroup {
	var groups []*itemGroup
	index := make(map[string]*itemGroup)
	for _, res := range results {
		guid := res.Action.Item.GUID
		group, ok := index[guid]
		if !ok {
			group = &itemGroup{item: res.Action.Item}
			index[guid] = group
			groups = append(groups, group)
		}
		group.results = append(group.results, res)
	}
	return groups
}

func pendingResults(results []*Result) []*Result {
	var pending []*Result
	for _, res := range results {
		if res.Status == StatusPending {
			pending = append(pending, res)
		}
	}
	return pending
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
