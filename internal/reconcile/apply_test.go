package reconcile_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"specimatch/internal/ingest"
	"specimatch/internal/logging"
	"specimatch/internal/reconcile"
	"specimatch/internal/specimen"
)

// fakeStore records update calls and fails the ids it is scripted to fail.
type fakeStore struct {
	mu       sync.Mutex
	calls    []string
	failures map[string]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{failures: make(map[string]error)}
}

func (f *fakeStore) UpdateMetadata(_ context.Context, specimenID string, _ map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, specimenID)
	return f.failures[specimenID]
}

func matchedResults(t *testing.T, count int) []reconcile.MatchResult {
	t.Helper()
	candidates := make([]specimen.Specimen, 0, count)
	rows := make([]ingest.Row, 0, count)
	for i := 0; i < count; i++ {
		tube := fmt.Sprintf("TUBE-%03d", i)
		candidates = append(candidates, specimen.Specimen{ID: fmt.Sprintf("s-%03d", i), TubeID: tube})
		rows = append(rows, newRow(metadataHeaders, tube, "12M", "5mg"))
	}
	results := reconcile.MatchAll(rows, candidates, "tube_id")
	for i, result := range results {
		if !result.Matched() {
			t.Fatalf("fixture row %d failed to match", i)
		}
	}
	return results
}

func TestApplyReportsBatchProgress(t *testing.T) {
	store := newFakeStore()
	var progress [][2]int
	applier := reconcile.NewApplier(store, logging.NewNop(),
		reconcile.WithBatchSize(10),
		reconcile.WithProgress(func(processed, total int) {
			progress = append(progress, [2]int{processed, total})
		}),
	)

	outcome, err := applier.Apply(context.Background(), matchedResults(t, 25))
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if outcome.SuccessCount != 25 || len(outcome.Errors) != 0 {
		t.Fatalf("unexpected outcome: %#v", outcome)
	}

	want := [][2]int{{10, 25}, {20, 25}, {25, 25}}
	if len(progress) != len(want) {
		t.Fatalf("expected 3 progress reports, got %v", progress)
	}
	for i, report := range want {
		if progress[i] != report {
			t.Fatalf("progress %d: expected %v, got %v", i, report, progress[i])
		}
	}
	if len(store.calls) != 25 {
		t.Fatalf("expected 25 update calls, got %d", len(store.calls))
	}
}

func TestApplyIsolatesSiblingFailures(t *testing.T) {
	store := newFakeStore()
	store.failures["s-001"] = errors.New("metadata constraint violated")

	applier := reconcile.NewApplier(store, logging.NewNop(), reconcile.WithBatchSize(10))
	results := matchedResults(t, 2)

	outcome, err := applier.Apply(context.Background(), results)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if outcome.SuccessCount != 1 {
		t.Fatalf("sibling success must survive the failure, got %d", outcome.SuccessCount)
	}
	if len(outcome.Errors) != 1 {
		t.Fatalf("expected exactly one error, got %#v", outcome.Errors)
	}
	applyErr := outcome.Errors[0]
	if applyErr.Specimen.ID != "s-001" || applyErr.Reason != reconcile.ReasonConstraint {
		t.Fatalf("unexpected classified error: %#v", applyErr)
	}

	subset := outcome.FailedSubset(results)
	if len(subset) != 1 || subset[0].Candidate.ID != "s-001" {
		t.Fatalf("failed subset must target the failed specimen: %#v", subset)
	}
}

func TestApplyContinuesPastWhollyFailedBatch(t *testing.T) {
	store := newFakeStore()
	store.failures["s-000"] = errors.New("connection refused")
	store.failures["s-001"] = errors.New("connection refused")

	applier := reconcile.NewApplier(store, logging.NewNop(), reconcile.WithBatchSize(2))
	outcome, err := applier.Apply(context.Background(), matchedResults(t, 4))
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if outcome.SuccessCount != 2 || len(outcome.Errors) != 2 {
		t.Fatalf("later batches must still run: %#v", outcome)
	}
}

func TestApplyRejectsEmptyInput(t *testing.T) {
	applier := reconcile.NewApplier(newFakeStore(), logging.NewNop())
	if _, err := applier.Apply(context.Background(), nil); !errors.Is(err, reconcile.ErrNoMatches) {
		t.Fatalf("expected ErrNoMatches, got %v", err)
	}
}

func TestApplyRejectsUnmatchedResults(t *testing.T) {
	applier := reconcile.NewApplier(newFakeStore(), logging.NewNop())
	results := reconcile.MatchAll(
		[]ingest.Row{newRow(metadataHeaders, "NOPE")},
		[]specimen.Specimen{{ID: "s-1", TubeID: "TUBE-A"}},
		"tube_id",
	)
	if _, err := applier.Apply(context.Background(), results); !errors.Is(err, reconcile.ErrUnmatchedResult) {
		t.Fatalf("expected ErrUnmatchedResult, got %v", err)
	}
}

func TestApplyStopsDispatchingWhenCancelled(t *testing.T) {
	store := newFakeStore()
	ctx, cancel := context.WithCancel(context.Background())

	applier := reconcile.NewApplier(store, logging.NewNop(),
		reconcile.WithBatchSize(5),
		reconcile.WithProgress(func(processed, total int) {
			// Abandon the workflow after the first batch settles.
			if processed == 5 {
				cancel()
			}
		}),
	)

	outcome, err := applier.Apply(ctx, matchedResults(t, 15))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if outcome.SuccessCount != 5 {
		t.Fatalf("first batch must have settled before cancellation: %#v", outcome)
	}
	if len(store.calls) != 5 {
		t.Fatalf("no further batches may dispatch after cancel, got %d calls", len(store.calls))
	}
}

func TestApplySwallowsProgressPanic(t *testing.T) {
	store := newFakeStore()
	applier := reconcile.NewApplier(store, logging.NewNop(),
		reconcile.WithBatchSize(10),
		reconcile.WithProgress(func(processed, total int) {
			panic("ui went away")
		}),
	)
	outcome, err := applier.Apply(context.Background(), matchedResults(t, 3))
	if err != nil {
		t.Fatalf("progress panic must not fail the apply: %v", err)
	}
	if outcome.SuccessCount != 3 {
		t.Fatalf("unexpected outcome: %#v", outcome)
	}
}

func TestClassifyFailure(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want reconcile.FailureReason
	}{
		{"constraint", errors.New("UNIQUE constraint failed"), reconcile.ReasonConstraint},
		{"invalid format", errors.New("invalid metadata payload"), reconcile.ReasonInvalidFormat},
		{"not found message", errors.New("row not found"), reconcile.ReasonNotFound},
		{"not found sentinel", fmt.Errorf("update: %w", specimen.ErrNotFound), reconcile.ReasonNotFound},
		{"permission", errors.New("permission denied"), reconcile.ReasonPermission},
		{"unauthorized", errors.New("unauthorized client"), reconcile.ReasonPermission},
		{"unknown", errors.New("disk exploded"), reconcile.ReasonUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := reconcile.ClassifyFailure(tc.err); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}
