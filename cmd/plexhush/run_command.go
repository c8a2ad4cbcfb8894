package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"plexhush/internal/config"
	"plexhush/internal/execute"
	"plexhush/internal/library"
	"plexhush/internal/plan"
	"plexhush/internal/services"
	"plexhush/internal/services/plex"
	"plexhush/internal/store"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool
	var hideTarget string
	var unhideTarget string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Plan and apply spoiler hiding across the configured libraries",
		Long: `Fetches the library, diffs it against the hide policy, and applies the
needed edits. Unwatched items get their configured fields hidden; watched
and exempt items get previously hidden fields restored. Every edit is
verified against the server and retried a bounded number of times.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMaintenance(cmd, ctx, runOptions{
				dryRun:       dryRun,
				hideTarget:   hideTarget,
				unhideTarget: unhideTarget,
			})
		},
	}

	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Print the planned actions without applying them")
	cmd.Flags().StringVar(&hideTarget, "hide", "", "Force-hide a single item (GUID, rating key, or title)")
	cmd.Flags().StringVar(&unhideTarget, "unhide", "", "Force-restore a single item (GUID, rating key, or title)")
	return cmd
}

type runOptions struct {
	dryRun       bool
	hideTarget   string
	unhideTarget string

	// restoreAll switches planning from the policy diff to a full restore of
	// every hidden field.
	restoreAll bool
}

func runMaintenance(cmd *cobra.Command, ctx *commandContext, opts runOptions) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	log := ctx.ensureLogger()
	for _, warning := range cfg.Warnings {
		log.Warn(warning, "config", ctx.configPath)
	}

	runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	runCtx = services.WithRunID(runCtx, ctx.runID)

	if !opts.dryRun {
		release, err := acquireRunLock(cfg.Run.LockPath)
		if err != nil {
			return err
		}
		defer release()
	}

	client, err := ctx.newPlexClient()
	if err != nil {
		return err
	}
	if err := client.Ping(runCtx); err != nil {
		return fmt.Errorf("plex server unreachable: %w", err)
	}

	log.Info("fetching library snapshot", "libraries", strings.Join(cfg.Plex.Libraries, ", "))
	snapshot, err := client.ListItems(runCtx)
	if err != nil {
		return err
	}
	log.Info("snapshot loaded", "items", len(snapshot))

	var originals *store.Store
	if !opts.dryRun {
		originals, err = store.Open(cfg.Run.CachePath)
		if err != nil {
			return fmt.Errorf("open originals cache: %w", err)
		}
		defer originals.Close()
		if err := rememberOriginals(runCtx, originals, snapshot, cfg.Markers()); err != nil {
			return err
		}
	}

	actions, err := buildPlan(snapshot, cfg, opts, log)
	if err != nil {
		return err
	}
	if len(actions) == 0 {
		log.Info("library already matches policy, nothing to do")
		fmt.Fprintln(cmd.OutOrStdout(), "Nothing to do.")
		return nil
	}

	if opts.dryRun {
		fmt.Fprintln(cmd.OutOrStdout(), renderPlanTable(actions))
		fmt.Fprintf(cmd.OutOrStdout(), "%d actions planned (dry run, nothing applied)\n", len(actions))
		return nil
	}

	listener, err := plex.NewListener(cfg.Plex.URL, cfg.Plex.Token, log)
	if err != nil {
		return fmt.Errorf("build notification listener: %w", err)
	}
	listener.Start(runCtx)

	executor := execute.New(client, listener, log, execute.Options{
		Markers:          cfg.Markers(),
		LockEditedFields: cfg.Hide.LockEditedFields,
		QuiescenceWindow: secondsToDuration(cfg.Run.QuiescenceSeconds),
		MaxQuiesceWait:   secondsToDuration(cfg.Run.MaxQuiesceSeconds),
		RetryRounds:      cfg.Run.RetryRounds,
		Originals:        originals,
	})

	report, runErr := executor.Run(runCtx, actions)

	fmt.Fprintln(cmd.OutOrStdout(), renderReportTable(report))
	fmt.Fprintln(cmd.OutOrStdout(), report.Summary())
	log.Info("run finished", "summary", report.Summary(), "duration", report.Duration().Round(time.Millisecond))

	notifier := ctx.notifier()
	if nerr := notifier.NotifyRunCompleted(runCtx, report.Verified(), report.Failed(), report.Skipped(), report.Duration()); nerr != nil {
		log.Warn("run notification failed", "error", nerr)
	}

	if runErr != nil {
		if nerr := notifier.NotifyError(runCtx, runErr, "maintenance run"); nerr != nil {
			log.Warn("error notification failed", "error", nerr)
		}
		return runErr
	}
	if failed := report.Failed(); failed > 0 {
		return fmt.Errorf("%d actions failed verification after retries", failed)
	}
	return nil
}

func buildPlan(snapshot library.Snapshot, cfg *config.Config, opts runOptions, log *slog.Logger) ([]plan.Action, error) {
	if opts.restoreAll {
		return plan.RestoreAll(snapshot, cfg.Markers()), nil
	}

	planOpts := plan.Options{}
	if opts.hideTarget != "" {
		switch item, err := resolveItem(snapshot, opts.hideTarget); {
		case errors.Is(err, errAmbiguousItem):
			return nil, err
		case err != nil:
			// An unmatched override does not abort the scheduled run.
			log.Warn("--hide target not found, ignoring", "target", opts.hideTarget)
		default:
			planOpts.ForceHide = item.GUID
		}
	}
	if opts.unhideTarget != "" {
		switch item, err := resolveItem(snapshot, opts.unhideTarget); {
		case errors.Is(err, errAmbiguousItem):
			return nil, err
		case err != nil:
			log.Warn("--unhide target not found, ignoring", "target", opts.unhideTarget)
		default:
			planOpts.ForceUnhide = item.GUID
		}
	}
	if planOpts.ForceHide != "" && planOpts.ForceHide == planOpts.ForceUnhide {
		return nil, errors.New("--hide and --unhide name the same item")
	}
	return plan.Plan(snapshot, cfg.Policy(), planOpts), nil
}

var errAmbiguousItem = errors.New("ambiguous item reference")

// resolveItem maps a user-supplied reference to a library item. GUIDs and
// rating keys match exactly; anything else matches titles case-insensitively.
func resolveItem(snapshot library.Snapshot, ref string) (*library.Item, error) {
	ref = strings.TrimSpace(ref)
	if item, ok := snapshot[ref]; ok {
		return item, nil
	}

	folded := library.FoldName(ref)
	var matches []*library.Item
	for _, item := range snapshot.Items() {
		if item.RatingKey == ref {
			return item, nil
		}
		if library.FoldName(item.Title) == folded || library.FoldName(item.String()) == folded {
			matches = append(matches, item)
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("no library item matches %q", ref)
	case 1:
		return matches[0], nil
	default:
		names := make([]string, 0, len(matches))
		for _, item := range matches {
			names = append(names, item.String())
		}
		return nil, fmt.Errorf("%w: %q matches: %s", errAmbiguousItem, ref, strings.Join(names, "; "))
	}
}

// rememberOriginals caches the visible text of every item before any edits,
// so restores can reinstate exact originals.
func rememberOriginals(ctx context.Context, originals *store.Store, snapshot library.Snapshot, markers library.Markers) error {
	for _, item := range snapshot.Items() {
		if err := originals.Remember(ctx, item, markers); err != nil {
			return fmt.Errorf("cache originals: %w", err)
		}
	}
	if _, err := originals.Prune(ctx, snapshot); err != nil {
		return fmt.Errorf("prune originals cache: %w", err)
	}
	return nil
}

// acquireRunLock takes the run lock without blocking. Overlapping runs from a
// slow cron cadence would double-apply edits mid-verification.
func acquireRunLock(path string) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	lock := flock.New(path)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock %s: %w", path, err)
	}
	if !locked {
		return nil, services.Wrap(services.ErrPrecondition, "run lock",
			"another plexhush run is already in progress (lock: "+path+")", nil)
	}
	return func() { _ = lock.Unlock() }, nil
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
