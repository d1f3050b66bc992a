package engine

import (
	"github.com/privacytools/ucx/internal/exceptions"
)

// Outcome is the terminal state of one bug within a run.
type Outcome string

const (
	// OutcomeSkippedNotActionable: the bug is not diagnosed for an
	// exception (or is already closed) and is not this tool's to process.
	OutcomeSkippedNotActionable Outcome = "skipped-not-actionable"
	// OutcomeSkippedIncomplete: diagnosed but required metadata missing.
	OutcomeSkippedIncomplete Outcome = "skipped-incomplete"
	// OutcomeSkippedMalformed: metadata present but unusable.
	OutcomeSkippedMalformed Outcome = "skipped-malformed"
	// OutcomeSkippedConflict: a desired identity key is held by another
	// bug's record and force was not given.
	OutcomeSkippedConflict Outcome = "skipped-conflict"
	// OutcomeApplied: the plan was applied (or was already empty, or this
	// was a dry run) without advancing the bug's lifecycle.
	OutcomeApplied Outcome = "applied"
	// OutcomeAppliedClosed: the plan was applied and the bug was closed
	// with a verification needinfo (production only).
	OutcomeAppliedClosed Outcome = "applied-and-closed"
	// OutcomeFailed: some mutation failed; the bug must be re-run.
	OutcomeFailed Outcome = "failed"
)

// BugResult is the outcome of processing one bug.
type BugResult struct {
	BugID   int64
	Summary string
	Outcome Outcome
	Reason  string

	// Plan is set once the bug reached diffing, including on dry runs.
	Plan      *exceptions.Plan
	Conflicts []exceptions.Conflict

	// Applied mutation counts (zero on dry runs and skips).
	Created int
	Removed int
}

// RunResult is the end-of-run report.
type RunResult struct {
	Results []BugResult

	// Mutated reports whether any store record was written or deleted,
	// i.e. whether a review request is warranted.
	Mutated bool
}

// ExitError reports whether the process should exit non-zero: any bug
// failed, or was blocked on a conflict that only force can resolve.
func (r *RunResult) ExitError() bool {
	for _, res := range r.Results {
		if res.Outcome == OutcomeFailed || res.Outcome == OutcomeSkippedConflict {
			return true
		}
	}
	return false
}

// Counts returns the number of bugs per outcome.
func (r *RunResult) Counts() map[Outcome]int {
	counts := make(map[Outcome]int)
	for _, res := range r.Results {
		counts[res.Outcome]++
	}
	return counts
}
