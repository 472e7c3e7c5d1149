package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"specimatch/internal/logging"
	"specimatch/internal/specimen"
)

// Store persists a metadata patch for one specimen. Implementations must be
// safe to call concurrently for distinct specimen ids.
type Store interface {
	UpdateMetadata(ctx context.Context, specimenID string, patch map[string]string) error
}

// DefaultBatchSize bounds in-flight updates when no override is configured.
const DefaultBatchSize = 10

// ErrNoMatches is returned when Apply is invoked without matched results.
// Callers are expected to block the action upstream; this is the boundary
// guard, not a recovery path.
var ErrNoMatches = errors.New("no matched rows to apply")

// ErrUnmatchedResult is returned when a result without a candidate reaches
// Apply. The caller must filter to matched results first.
var ErrUnmatchedResult = errors.New("unmatched result passed to apply")

// FailureReason classifies a per-specimen update failure for aggregate
// reporting. Classification never changes retry behavior.
type FailureReason string

const (
	ReasonConstraint    FailureReason = "constraint_violation"
	ReasonInvalidFormat FailureReason = "invalid_metadata_format"
	ReasonNotFound      FailureReason = "specimen_not_found"
	ReasonPermission    FailureReason = "permission_denied"
	ReasonUnknown       FailureReason = "unknown"
)

// ApplyError records one isolated per-specimen failure.
type ApplyError struct {
	Specimen specimen.Specimen
	Reason   FailureReason
	Err      error
}

// Outcome reports what an apply invocation accomplished. It is created per
// invocation and never persisted; retrying is an explicit re-invocation on
// the failed subset.
type Outcome struct {
	SuccessCount int
	Errors       []ApplyError
}

// FailedSubset selects the results whose specimens failed, preserving order,
// so a caller can re-run Apply on just those rows.
func (o Outcome) FailedSubset(results []MatchResult) []MatchResult {
	if len(o.Errors) == 0 {
		return nil
	}
	failed := make(map[string]struct{}, len(o.Errors))
	for _, applyErr := range o.Errors {
		failed[applyErr.Specimen.ID] = struct{}{}
	}
	subset := make([]MatchResult, 0, len(o.Errors))
	for _, result := range results {
		if !result.Matched() {
			continue
		}
		if _, ok := failed[result.Candidate.ID]; ok {
			subset = append(subset, result)
		}
	}
	return subset
}

// ProgressFunc receives (processed, total) after each settled batch.
type ProgressFunc func(processed, total int)

// Applier writes matched metadata patches through a Store in ordered batches.
type Applier struct {
	store     Store
	logger    *slog.Logger
	batchSize int
	progress  ProgressFunc
}

// ApplierOption customises the Applier.
type ApplierOption func(*Applier)

// WithBatchSize overrides the batch size. Non-positive values are ignored.
func WithBatchSize(size int) ApplierOption {
	return func(a *Applier) {
		if size > 0 {
			a.batchSize = size
		}
	}
}

// WithProgress registers a progress sink invoked after each settled batch.
func WithProgress(fn ProgressFunc) ApplierOption {
	return func(a *Applier) {
		a.progress = fn
	}
}

// NewApplier constructs an applier bound to the supplied store.
func NewApplier(store Store, logger *slog.Logger, opts ...ApplierOption) *Applier {
	a := &Applier{
		store:     store,
		logger:    logging.NewComponentLogger(logger, "applier"),
		batchSize: DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Apply writes each result's patch to its matched specimen. Batches execute
// strictly in source order; within a batch every update is dispatched
// concurrently and the batch settles completely, success or failure, before
// the next one starts. A failing update never cancels its siblings. The
// context is checked before each batch is dispatched: once cancelled, no
// further batches start, in-flight calls still settle, and the partial
// outcome is returned alongside the context error.
func (a *Applier) Apply(ctx context.Context, results []MatchResult) (Outcome, error) {
	var outcome Outcome
	if len(results) == 0 {
		return outcome, ErrNoMatches
	}
	for _, result := range results {
		if !result.Matched() {
			return outcome, ErrUnmatchedResult
		}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	total := len(results)
	processed := 0

	for start := 0; start < total; start += a.batchSize {
		if err := ctx.Err(); err != nil {
			a.logger.Warn("apply cancelled before batch dispatch",
				logging.Int("processed", processed),
				logging.Int("total", total),
			)
			return outcome, err
		}

		end := start + a.batchSize
		if end > total {
			end = total
		}
		batch := results[start:end]

		errs := make([]error, len(batch))
		var wg sync.WaitGroup
		for i, result := range batch {
			wg.Add(1)
			go func(i int, result MatchResult) {
				defer wg.Done()
				errs[i] = a.store.UpdateMetadata(ctx, result.Candidate.ID, result.Patch)
			}(i, result)
		}
		wg.Wait()

		for i, err := range errs {
			if err == nil {
				outcome.SuccessCount++
				continue
			}
			reason := ClassifyFailure(err)
			outcome.Errors = append(outcome.Errors, ApplyError{
				Specimen: *batch[i].Candidate,
				Reason:   reason,
				Err:      err,
			})
			a.logger.Warn("specimen update failed",
				logging.String("specimen_id", batch[i].Candidate.ID),
				logging.String("reason", string(reason)),
				logging.Error(err),
			)
		}

		processed += len(batch)
		a.reportProgress(processed, total)
	}

	a.logger.Info("apply finished",
		logging.Int("succeeded", outcome.SuccessCount),
		logging.Int("failed", len(outcome.Errors)),
		logging.Int("total", total),
	)
	return outcome, nil
}

// reportProgress shields the batch loop from a misbehaving sink.
func (a *Applier) reportProgress(processed, total int) {
	if a.progress == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			a.logger.Warn("progress sink panicked", logging.Any("panic", r))
		}
	}()
	a.progress(processed, total)
}

// ClassifyFailure buckets an update error by inspecting its payload for known
// signatures. The buckets feed aggregate reporting only.
func ClassifyFailure(err error) FailureReason {
	if err == nil {
		return ReasonUnknown
	}
	if errors.Is(err, specimen.ErrNotFound) {
		return ReasonNotFound
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "constraint"):
		return ReasonConstraint
	case strings.Contains(msg, "invalid") || strings.Contains(msg, "format"):
		return ReasonInvalidFormat
	case strings.Contains(msg, "not found"):
		return ReasonNotFound
	case strings.Contains(msg, "permission") || strings.Contains(msg, "denied") || strings.Contains(msg, "unauthorized"):
		return ReasonPermission
	default:
		return ReasonUnknown
	}
}
