// Package engine orchestrates the auto workflow: it reads diagnosed site
// report bugs, derives the exception records each requires, reconciles
// them against the remote-settings store, and advances bug lifecycle on
// confirmed success.
//
// Bugs are independent transactions: each performs its own read of store
// state followed by its mutations, and a failure in one never aborts the
// others. Re-running is always safe; an in-sync bug produces an empty
// plan and no mutations.
package engine

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/privacytools/ucx/internal/bugzilla"
	"github.com/privacytools/ucx/internal/config"
	"github.com/privacytools/ucx/internal/exceptions"
	"github.com/privacytools/ucx/internal/remotesettings"
	"github.com/privacytools/ucx/internal/telemetry"
)

// DefaultConcurrency bounds the per-bug worker pool.
const DefaultConcurrency = 4

// BugTracker is the issue-tracker surface the engine consumes.
// *bugzilla.Client implements it.
type BugTracker interface {
	SearchBugs(ctx context.Context, product, component string) ([]bugzilla.Bug, error)
	CloseBug(ctx context.Context, id int64, resolution, comment string) error
	NeedInfo(ctx context.Context, id int64, message, requestee string) error
	FetchCreator(ctx context.Context, id int64) (string, error)
}

// RecordStore is the remote-settings surface the engine consumes.
// *remotesettings.Client implements it.
type RecordStore interface {
	ListRecords(ctx context.Context) ([]remotesettings.Record, error)
	CreateRecord(ctx context.Context, record remotesettings.Record) (remotesettings.Record, error)
	DeleteRecord(ctx context.Context, id string) error
	RequestReview(ctx context.Context, isDev bool) error
}

// Options are the run flags.
type Options struct {
	// DryRun computes and reports every bug's plan without calling any
	// mutating operation on either collaborator.
	DryRun bool
	// Force permits removing records owned by other bugs on key
	// conflicts and re-creating records after a prior failed run.
	Force bool
	// Concurrency bounds the worker pool (DefaultConcurrency if <= 0).
	Concurrency int
}

// Engine wires the collaborators together for one run.
type Engine struct {
	cfg     *config.Config
	tracker BugTracker
	store   RecordStore
	metrics *telemetry.Recorder // nil when telemetry is off
}

// New creates an engine. metrics may be nil.
func New(cfg *config.Config, tracker BugTracker, store RecordStore, metrics *telemetry.Recorder) *Engine {
	return &Engine{cfg: cfg, tracker: tracker, store: store, metrics: metrics}
}

// Run executes the auto workflow and returns the per-bug report. The
// returned error covers run-level failures only (bug search, review
// request); per-bug failures are outcomes in the result.
func (e *Engine) Run(ctx context.Context, opts Options) (*RunResult, error) {
	bugs, err := e.tracker.SearchBugs(ctx, e.cfg.Product, e.cfg.Component)
	if err != nil {
		return nil, fmt.Errorf("search bugs: %w", err)
	}

	// Newest first, matching how the triage queue is worked.
	sort.Slice(bugs, func(i, j int) bool { return bugs[i].ID > bugs[j].ID })

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	results := make([]BugResult, len(bugs))
	g := &errgroup.Group{}
	g.SetLimit(concurrency)
	for i := range bugs {
		i := i
		g.Go(func() error {
			results[i] = e.processBug(ctx, &bugs[i], opts)
			e.metrics.RecordOutcome(ctx, string(results[i].Outcome))
			return nil
		})
	}
	_ = g.Wait()

	result := &RunResult{Results: results}
	for _, res := range results {
		if res.Created > 0 || res.Removed > 0 {
			result.Mutated = true
		}
	}

	if result.Mutated && !opts.DryRun {
		if err := e.store.RequestReview(ctx, e.cfg.IsDev()); err != nil {
			return result, fmt.Errorf("request review: %w", err)
		}
	}
	return result, nil
}

// processBug runs one bug's transaction: parse, plan, diff, apply,
// advance. It never returns an error; every failure mode is an outcome.
func (e *Engine) processBug(ctx context.Context, bug *bugzilla.Bug, opts Options) BugResult {
	res := BugResult{BugID: bug.ID, Summary: bug.Summary}

	if !bug.IsOpen() {
		res.Outcome = OutcomeSkippedNotActionable
		res.Reason = "bug already closed"
		return res
	}
	if bug.Status == "REOPENED" {
		// A reopened bug means the previous exceptions did not fix the
		// site; it needs a fresh diagnosis, not a re-sync.
		res.Outcome = OutcomeSkippedNotActionable
		res.Reason = "bug was reopened, awaiting re-diagnosis"
		return res
	}

	fields, status, reason := exceptions.ParseMetadata(bug.Whiteboard, bug.UserStory, bug.URL)
	if status != exceptions.ParseOK {
		err := &ValidationError{Status: status, Reason: reason}
		res.Outcome = outcomeForError(err)
		res.Reason = err.Reason
		return res
	}

	// Read store state inside the transaction so the diff never acts on
	// a snapshot from before a sibling bug's mutations.
	records, err := e.store.ListRecords(ctx)
	if err != nil {
		res.Outcome = OutcomeFailed
		res.Reason = err.Error()
		return res
	}

	kept, pruned := exceptions.PruneGloballyExempt(fields.Trackers, records)
	if len(kept) == 0 {
		res.Outcome = OutcomeSkippedIncomplete
		res.Reason = "all tracker domains covered by global exceptions"
		return res
	}
	fields.Trackers = kept

	desired := exceptions.PlanEntries(fields, bug.ID)
	plan, conflicts := exceptions.Diff(desired, records, bug.ID, opts.Force)
	res.Plan = plan
	res.Conflicts = conflicts

	if len(conflicts) > 0 && !opts.Force {
		err := &ConflictError{Conflicts: conflicts}
		res.Outcome = outcomeForError(err)
		res.Reason = err.Error()
		return res
	}

	if opts.DryRun {
		res.Outcome = OutcomeApplied
		res.Reason = dryRunReason(plan, pruned)
		return res
	}

	created, removed, err := e.applyPlan(ctx, plan)
	res.Created = created
	res.Removed = removed
	e.metrics.RecordMutations(ctx, created, removed)
	if err != nil {
		res.Outcome = OutcomeFailed
		res.Reason = err.Error()
		return res
	}

	if !e.cfg.IsProd() {
		res.Outcome = OutcomeApplied
		res.Reason = syncedReason(plan)
		return res
	}

	if err := e.advance(ctx, bug, desired); err != nil {
		// Exceptions are live but the bug could not be closed; report
		// failed so the run is retried. The next run sees an empty plan
		// and only repeats the lifecycle step.
		res.Outcome = OutcomeFailed
		res.Reason = err.Error()
		return res
	}

	res.Outcome = OutcomeAppliedClosed
	res.Reason = syncedReason(plan)
	return res
}

// applyPlan performs the mutations, creations first so a record's
// replacement exists before its predecessor is removed. Stops at the
// first error: the caller reports the bug failed, and the next run picks
// up the remainder idempotently.
func (e *Engine) applyPlan(ctx context.Context, plan *exceptions.Plan) (created, removed int, err error) {
	for _, entry := range plan.Create {
		if _, err := e.store.CreateRecord(ctx, entry.Record()); err != nil {
			return created, removed, fmt.Errorf("create %s: %w", entry.Key(), err)
		}
		created++
	}
	for _, rec := range plan.Remove {
		if err := e.store.DeleteRecord(ctx, rec.ID); err != nil {
			return created, removed, fmt.Errorf("remove record %s: %w", rec.ID, err)
		}
		removed++
	}
	return created, removed, nil
}

func dryRunReason(plan *exceptions.Plan, pruned []string) string {
	reason := fmt.Sprintf("dry run: would create %d, remove %d", len(plan.Create), len(plan.Remove))
	if len(pruned) > 0 {
		reason += fmt.Sprintf(" (%d domain(s) covered by global exceptions)", len(pruned))
	}
	return reason
}

func syncedReason(plan *exceptions.Plan) string {
	if plan.Empty() {
		return "already in sync"
	}
	return fmt.Sprintf("created %d, removed %d", len(plan.Create), len(plan.Remove))
}
