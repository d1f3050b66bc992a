package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/privacytools/ucx/internal/bugzilla"
	"github.com/privacytools/ucx/internal/config"
	"github.com/privacytools/ucx/internal/exceptions"
	"github.com/privacytools/ucx/internal/remotesettings"
)

type fakeTracker struct {
	mu       sync.Mutex
	bugs     []bugzilla.Bug
	closed   map[int64]string // bug ID -> comment
	needinfo map[int64]string // bug ID -> requestee
	failBug  int64            // CloseBug fails for this bug ID
}

func newFakeTracker(bugs ...bugzilla.Bug) *fakeTracker {
	return &fakeTracker{
		bugs:     bugs,
		closed:   make(map[int64]string),
		needinfo: make(map[int64]string),
	}
}

func (f *fakeTracker) SearchBugs(ctx context.Context, product, component string) ([]bugzilla.Bug, error) {
	return append([]bugzilla.Bug(nil), f.bugs...), nil
}

func (f *fakeTracker) CloseBug(ctx context.Context, id int64, resolution, comment string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id == f.failBug {
		return errors.New("bugzilla unavailable")
	}
	f.closed[id] = comment
	return nil
}

func (f *fakeTracker) NeedInfo(ctx context.Context, id int64, message, requestee string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.needinfo[id] = requestee
	return nil
}

func (f *fakeTracker) FetchCreator(ctx context.Context, id int64) (string, error) {
	return "fetched-reporter@example.com", nil
}

type fakeStore struct {
	mu          sync.Mutex
	records     []remotesettings.Record
	nextID      int
	createCalls int
	deleteCalls int
	reviewCalls int
	reviewIsDev bool
	// failPattern makes CreateRecord fail for records matching this
	// urlPattern, isolating failures to one bug's transaction.
	failPattern string
}

func (f *fakeStore) ListRecords(ctx context.Context) ([]remotesettings.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]remotesettings.Record(nil), f.records...), nil
}

func (f *fakeStore) CreateRecord(ctx context.Context, record remotesettings.Record) (remotesettings.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.failPattern != "" && record.URLPattern == f.failPattern {
		return remotesettings.Record{}, errors.New("store rejected write")
	}
	if record.ID == "" {
		f.nextID++
		record.ID = fmt.Sprintf("fake-%d", f.nextID)
	}
	f.records = append(f.records, record)
	return record, nil
}

func (f *fakeStore) DeleteRecord(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	for i := range f.records {
		if f.records[i].ID == id {
			f.records = append(f.records[:i], f.records[i+1:]...)
			return nil
		}
	}
	return errors.New("record not found")
}

func (f *fakeStore) RequestReview(ctx context.Context, isDev bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reviewCalls++
	f.reviewIsDev = isDev
	return nil
}

func stageConfig() *config.Config {
	return &config.Config{Env: config.EnvStage, Product: config.DefaultProduct, Component: config.DefaultComponent}
}

func prodConfig() *config.Config {
	return &config.Config{Env: config.EnvProd, Product: config.DefaultProduct, Component: config.DefaultComponent}
}

func diagnosedBug(id int64) bugzilla.Bug {
	return bugzilla.Bug{
		ID:         id,
		Summary:    fmt.Sprintf("site broken by ETP (%d)", id),
		URL:        "https://site.example/page",
		Whiteboard: "[privacy-team:diagnosed][exception-baseline]",
		Status:     "NEW",
		Creator:    "reporter@example.com",
		UserStory:  "trackers-blocked: a.com, b.com\nclassifier-features: tracking-protection",
	}
}

func resultFor(t *testing.T, run *RunResult, bugID int64) BugResult {
	t.Helper()
	for _, res := range run.Results {
		if res.BugID == bugID {
			return res
		}
	}
	t.Fatalf("no result for bug %d", bugID)
	return BugResult{}
}

func TestRunAppliesPlan(t *testing.T) {
	store := &fakeStore{}
	eng := New(stageConfig(), newFakeTracker(diagnosedBug(100)), store, nil)

	run, err := eng.Run(context.Background(), Options{})
	require.NoError(t, err)

	res := resultFor(t, run, 100)
	assert.Equal(t, OutcomeApplied, res.Outcome)
	// 2 domains x 1 feature x 2 version windows
	assert.Equal(t, 4, res.Created)
	assert.Equal(t, 0, res.Removed)
	assert.Len(t, store.records, 4)
	for _, rec := range store.records {
		assert.Equal(t, []string{"100"}, rec.BugIDs)
		assert.Equal(t, "baseline", rec.Category)
	}
	assert.Equal(t, 1, store.reviewCalls)
	assert.False(t, run.ExitError())
}

func TestRunIdempotent(t *testing.T) {
	store := &fakeStore{}
	tracker := newFakeTracker(diagnosedBug(100))

	first, err := New(stageConfig(), tracker, store, nil).Run(context.Background(), Options{})
	require.NoError(t, err)
	require.Equal(t, 4, resultFor(t, first, 100).Created)

	second, err := New(stageConfig(), tracker, store, nil).Run(context.Background(), Options{})
	require.NoError(t, err)

	res := resultFor(t, second, 100)
	assert.Equal(t, OutcomeApplied, res.Outcome)
	assert.Equal(t, "already in sync", res.Reason)
	assert.True(t, res.Plan.Empty())
	assert.Equal(t, 0, res.Created+res.Removed)
	assert.False(t, second.Mutated)
}

func TestRunDryRunMutatesNothing(t *testing.T) {
	store := &fakeStore{}
	tracker := newFakeTracker(diagnosedBug(100))
	eng := New(prodConfig(), tracker, store, nil)

	run, err := eng.Run(context.Background(), Options{DryRun: true})
	require.NoError(t, err)

	res := resultFor(t, run, 100)
	assert.Equal(t, OutcomeApplied, res.Outcome)
	require.NotNil(t, res.Plan)
	assert.Len(t, res.Plan.Create, 4)

	assert.Zero(t, store.createCalls)
	assert.Zero(t, store.deleteCalls)
	assert.Zero(t, store.reviewCalls)
	assert.Empty(t, tracker.closed)
	assert.Empty(t, tracker.needinfo)
}

func TestRunProdClosesAndNeedinfos(t *testing.T) {
	store := &fakeStore{}
	tracker := newFakeTracker(diagnosedBug(100))
	eng := New(prodConfig(), tracker, store, nil)

	run, err := eng.Run(context.Background(), Options{})
	require.NoError(t, err)

	res := resultFor(t, run, 100)
	assert.Equal(t, OutcomeAppliedClosed, res.Outcome)

	comment, ok := tracker.closed[100]
	require.True(t, ok, "bug 100 should be closed")
	assert.Contains(t, comment, "Enhanced Tracking Protection (ETP) exceptions have been deployed")
	assert.Contains(t, comment, "*://a.com/*")
	assert.Equal(t, "reporter@example.com", tracker.needinfo[100])
}

func TestRunNonProdNeverTouchesBugs(t *testing.T) {
	store := &fakeStore{}
	tracker := newFakeTracker(diagnosedBug(100))

	run, err := New(stageConfig(), tracker, store, nil).Run(context.Background(), Options{})
	require.NoError(t, err)

	assert.Equal(t, OutcomeApplied, resultFor(t, run, 100).Outcome)
	assert.Empty(t, tracker.closed)
	assert.Empty(t, tracker.needinfo)
}

func TestRunPartialFailureNeverCloses(t *testing.T) {
	store := &fakeStore{failPattern: "*://b.com/*"}
	tracker := newFakeTracker(diagnosedBug(100))
	eng := New(prodConfig(), tracker, store, nil)

	run, err := eng.Run(context.Background(), Options{})
	require.NoError(t, err)

	res := resultFor(t, run, 100)
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Less(t, res.Created, 4)
	assert.Empty(t, tracker.closed, "a bug with unconfirmed exceptions must not be closed")
	assert.Empty(t, tracker.needinfo)
	assert.True(t, run.ExitError())
}

func TestRunCloseFailureReportsFailed(t *testing.T) {
	store := &fakeStore{}
	tracker := newFakeTracker(diagnosedBug(100))
	tracker.failBug = 100
	eng := New(prodConfig(), tracker, store, nil)

	run, err := eng.Run(context.Background(), Options{})
	require.NoError(t, err)

	res := resultFor(t, run, 100)
	assert.Equal(t, OutcomeFailed, res.Outcome)
	// The records themselves are live; only the lifecycle step failed.
	assert.Equal(t, 4, res.Created)
	assert.Empty(t, tracker.needinfo)
}

func TestRunConflictBlocksWithoutForce(t *testing.T) {
	conflicting := exceptions.PlanEntries(&exceptions.StructuredFields{
		Category: exceptions.CategoryBaseline,
		Trackers: []string{"a.com", "b.com"},
		Features: []string{"tracking-protection"},
	}, 999)
	store := &fakeStore{}
	for _, e := range conflicting {
		rec := e.Record()
		rec.ID = "other-" + e.Key()
		store.records = append(store.records, rec)
	}

	tracker := newFakeTracker(diagnosedBug(100))

	run, err := New(stageConfig(), tracker, store, nil).Run(context.Background(), Options{})
	require.NoError(t, err)

	res := resultFor(t, run, 100)
	assert.Equal(t, OutcomeSkippedConflict, res.Outcome)
	assert.NotEmpty(t, res.Conflicts)
	assert.Zero(t, store.createCalls)
	assert.Zero(t, store.deleteCalls)
	assert.True(t, run.ExitError())

	// With force, the other bug's records are replaced.
	run, err = New(stageConfig(), tracker, store, nil).Run(context.Background(), Options{Force: true})
	require.NoError(t, err)

	res = resultFor(t, run, 100)
	assert.Equal(t, OutcomeApplied, res.Outcome)
	assert.Equal(t, 4, res.Created)
	assert.Equal(t, 4, res.Removed)
	for _, rec := range store.records {
		assert.Equal(t, []string{"100"}, rec.BugIDs)
	}
	assert.False(t, run.ExitError())
}

func TestRunSkipOutcomes(t *testing.T) {
	undiagnosed := bugzilla.Bug{ID: 101, Status: "NEW", Whiteboard: ""}
	incomplete := bugzilla.Bug{
		ID: 102, Status: "NEW",
		Whiteboard: "[privacy-team:diagnosed][exception-baseline]",
		UserStory:  "trackers-blocked: a.com",
	}
	malformed := bugzilla.Bug{
		ID: 103, Status: "NEW",
		Whiteboard: "[privacy-team:diagnosed][exception-baseline][exception-convenience]",
		UserStory:  "trackers-blocked: a.com\nclassifier-features: tracking-protection",
	}
	alreadyClosed := diagnosedBug(104)
	alreadyClosed.Status = "RESOLVED"
	reopened := diagnosedBug(105)
	reopened.Status = "REOPENED"

	store := &fakeStore{}
	run, err := New(stageConfig(), newFakeTracker(undiagnosed, incomplete, malformed, alreadyClosed, reopened), store, nil).
		Run(context.Background(), Options{})
	require.NoError(t, err)

	assert.Equal(t, OutcomeSkippedNotActionable, resultFor(t, run, 101).Outcome)
	assert.Equal(t, OutcomeSkippedIncomplete, resultFor(t, run, 102).Outcome)
	assert.Equal(t, OutcomeSkippedMalformed, resultFor(t, run, 103).Outcome)
	assert.Equal(t, OutcomeSkippedNotActionable, resultFor(t, run, 104).Outcome)
	assert.Equal(t, OutcomeSkippedNotActionable, resultFor(t, run, 105).Outcome)
	assert.Zero(t, store.createCalls)
	assert.False(t, run.ExitError())
}

func TestRunFailureIsolation(t *testing.T) {
	healthy := diagnosedBug(100)
	doomed := bugzilla.Bug{
		ID:         200,
		URL:        "https://other.example/",
		Whiteboard: "[privacy-team:diagnosed][exception-convenience]",
		Status:     "NEW",
		Creator:    "reporter@example.com",
		UserStory:  "trackers-blocked: broken.example\nclassifier-features: tracking-protection",
	}

	store := &fakeStore{failPattern: "*://broken.example/*"}
	run, err := New(stageConfig(), newFakeTracker(healthy, doomed), store, nil).
		Run(context.Background(), Options{})
	require.NoError(t, err)

	assert.Equal(t, OutcomeApplied, resultFor(t, run, 100).Outcome)
	assert.Equal(t, OutcomeFailed, resultFor(t, run, 200).Outcome)
	assert.True(t, run.ExitError())
}

func TestRunGlobalExceptionPruning(t *testing.T) {
	store := &fakeStore{
		records: []remotesettings.Record{{
			ID:                 "global",
			URLPattern:         "*://a.com/*",
			ClassifierFeatures: []string{"tracking-protection"},
			Category:           "convenience",
		}},
	}

	run, err := New(stageConfig(), newFakeTracker(diagnosedBug(100)), store, nil).
		Run(context.Background(), Options{})
	require.NoError(t, err)

	res := resultFor(t, run, 100)
	assert.Equal(t, OutcomeApplied, res.Outcome)
	// Only b.com survives pruning: 1 domain x 1 feature x 2 windows.
	assert.Equal(t, 2, res.Created)
	for _, rec := range store.records {
		if rec.ID == "global" {
			continue
		}
		assert.True(t, strings.Contains(rec.URLPattern, "b.com"), "pruned domain must not get records: %s", rec.URLPattern)
	}
}

func TestRunAllDomainsGloballyCovered(t *testing.T) {
	bug := diagnosedBug(100)
	bug.UserStory = "trackers-blocked: a.com\nclassifier-features: tracking-protection"
	store := &fakeStore{
		records: []remotesettings.Record{{
			ID:                 "global",
			URLPattern:         "*://a.com/*",
			ClassifierFeatures: []string{"tracking-protection"},
			Category:           "convenience",
		}},
	}

	run, err := New(stageConfig(), newFakeTracker(bug), store, nil).Run(context.Background(), Options{})
	require.NoError(t, err)

	res := resultFor(t, run, 100)
	assert.Equal(t, OutcomeSkippedIncomplete, res.Outcome)
	assert.Zero(t, store.createCalls)
}

func TestOutcomeForError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Outcome
	}{
		{"not actionable", &ValidationError{Status: exceptions.ParseNotActionable}, OutcomeSkippedNotActionable},
		{"incomplete", &ValidationError{Status: exceptions.ParseIncomplete}, OutcomeSkippedIncomplete},
		{"malformed", &ValidationError{Status: exceptions.ParseMalformed}, OutcomeSkippedMalformed},
		{"conflict", &ConflictError{}, OutcomeSkippedConflict},
		{"wrapped conflict", fmt.Errorf("diff: %w", &ConflictError{}), OutcomeSkippedConflict},
		{"plain error", errors.New("boom"), OutcomeFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := outcomeForError(tt.err); got != tt.want {
				t.Errorf("outcomeForError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
