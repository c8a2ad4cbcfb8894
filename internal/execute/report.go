package execute

import (
	"fmt"
	"time"

	"plexhush/internal/plan"
)

// Status is the terminal (or in-flight) state of one action.
type Status string

const (
	StatusPending  Status = "pending"
	StatusVerified Status = "verified"
	StatusFailed   Status = "failed"
	StatusSkipped  Status = "skipped"
)

// Result records the outcome of a single action.
type Result struct {
	Action plan.Action
	Status Status
	// Rounds counts apply passes that included this action.
	Rounds int
	Err    error
}

// Report aggregates the outcome of one executor run.
type Report struct {
	RunID    string
	Results  []*Result
	Started  time.Time
	Finished time.Time
}

func (r *Report) count(status Status) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == status {
			n++
		}
	}
	return n
}

// Verified returns the number of actions whose goal was confirmed.
func (r *Report) Verified() int { return r.count(StatusVerified) }

// Failed returns the number of actions that exhausted the retry budget or
// were left unresolved.
func (r *Report) Failed() int { return r.count(StatusFailed) }

// Skipped returns the number of actions whose preconditions failed.
func (r *Report) Skipped() int { return r.count(StatusSkipped) }

// Duration is the wall-clock time of the run.
func (r *Report) Duration() time.Duration {
	if r.Finished.IsZero() || r.Started.IsZero() {
		return 0
	}
	return r.Finished.Sub(r.Started)
}

// Summary renders a one-line account of the run.
func (r *Report) Summary() string {
	return fmt.Sprintf("%d verified, %d failed, %d skipped of %d actions",
		r.Verified(), r.Failed(), r.Skipped(), len(r.Results))
}
