// Package plan computes the minimal ordered list of field-level actions
// needed to bring a library snapshot in line with the configured policy.
//
// The planner is a pure diff: for every item it compares the desired field
// states from the policy evaluator against what the snapshot currently shows
// and emits exactly one hide or restore action per mismatched field. Force
// overrides replace the computed actions for a single item, and restore-all
// mode ignores the policy entirely and undoes every edit the tool has made.
//
// Output order is deterministic (episodes before movies, then show, season,
// episode, operation) so dry-run output and execution are human-auditable.
package plan
