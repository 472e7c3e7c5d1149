package reconcile

import (
	"context"
	"errors"
	"fmt"

	"specimatch/internal/ingest"
	"specimatch/internal/specimen"
)

// State names one step of the reconciliation workflow.
type State string

const (
	StateIdle            State = "idle"
	StateRowsParsed      State = "rows_parsed"
	StateColumnSelected  State = "column_selected"
	StateMatched         State = "matched"
	StateReviewed        State = "reviewed"
	StateApplying        State = "applying"
	StateApplied         State = "applied"
	StatePartiallyFailed State = "partially_failed"
)

// ErrBadState indicates an operation was invoked in the wrong workflow state.
var ErrBadState = errors.New("operation not valid in current state")

// Session drives one upload through the reconciliation workflow. Operations
// validate the current state, so the write phase is unreachable without rows,
// a matching column, a match run, and an explicit review confirmation. A
// session lives for one upload and is discarded afterwards; nothing here is
// persisted.
type Session struct {
	state       State
	rows        *ingest.RowSet
	matchColumn string
	sampleSize  int
	results     []MatchResult
	summary     Summary
}

// SessionOption customises a session.
type SessionOption func(*Session)

// WithSampleSize overrides the summary preview size.
func WithSampleSize(size int) SessionOption {
	return func(s *Session) {
		if size >= 0 {
			s.sampleSize = size
		}
	}
}

// NewSession starts an idle workflow session.
func NewSession(opts ...SessionOption) *Session {
	s := &Session{state: StateIdle, sampleSize: DefaultSampleSize}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State reports the current workflow state.
func (s *Session) State() State {
	return s.state
}

func (s *Session) require(op string, allowed ...State) error {
	for _, state := range allowed {
		if s.state == state {
			return nil
		}
	}
	return fmt.Errorf("%w: %s in state %s", ErrBadState, op, s.state)
}

// LoadRows accepts the parsed upload and moves the session to RowsParsed.
func (s *Session) LoadRows(rows *ingest.RowSet) error {
	if err := s.require("load rows", StateIdle); err != nil {
		return err
	}
	if rows == nil || len(rows.Headers) == 0 {
		return errors.New("row set has no headers")
	}
	s.rows = rows
	s.state = StateRowsParsed
	return nil
}

// SelectColumn designates the matching column. Re-selection before matching
// is allowed; the column must exist in the parsed headers.
func (s *Session) SelectColumn(name string) error {
	if err := s.require("select column", StateRowsParsed, StateColumnSelected); err != nil {
		return err
	}
	if name == "" {
		return errors.New("matching column not selected")
	}
	if !s.rows.HasHeader(name) {
		return fmt.Errorf("column %q not present in upload", name)
	}
	s.matchColumn = name
	s.state = StateColumnSelected
	return nil
}

// MatchColumn returns the designated matching column.
func (s *Session) MatchColumn() string {
	return s.matchColumn
}

// RunMatch reconciles the rows against the candidate snapshot and computes
// the review summary. Zero candidates is a caller error surfaced here,
// before any write could be attempted.
func (s *Session) RunMatch(candidates []specimen.Specimen) error {
	if err := s.require("run match", StateColumnSelected); err != nil {
		return err
	}
	if len(candidates) == 0 {
		return errors.New("no candidate specimens in project")
	}
	s.results = MatchAll(s.rows.Rows, candidates, s.matchColumn)
	s.summary = SummarizeSample(s.results, s.sampleSize)
	s.state = StateMatched
	return nil
}

// Summary returns the review summary computed by RunMatch.
func (s *Session) Summary() Summary {
	return s.summary
}

// Results returns every match result in row order.
func (s *Session) Results() []MatchResult {
	return s.results
}

// MatchedResults returns only the results that reconciled to a specimen,
// preserving row order.
func (s *Session) MatchedResults() []MatchResult {
	matched := make([]MatchResult, 0, s.summary.MatchedCount)
	for _, result := range s.results {
		if result.Matched() {
			matched = append(matched, result)
		}
	}
	return matched
}

// ConfirmReview records the human confirmation gate. It refuses when nothing
// matched; apply must never be reachable with zero matched rows.
func (s *Session) ConfirmReview() error {
	if err := s.require("confirm review", StateMatched); err != nil {
		return err
	}
	if s.summary.MatchedCount == 0 {
		return ErrNoMatches
	}
	s.state = StateReviewed
	return nil
}

// Apply runs the applier over the matched results and resolves the terminal
// state: Applied when every update succeeded, PartiallyFailed otherwise
// (including cancellation mid-apply).
func (s *Session) Apply(ctx context.Context, applier *Applier) (Outcome, error) {
	if err := s.require("apply", StateReviewed); err != nil {
		return Outcome{}, err
	}
	s.state = StateApplying
	outcome, err := applier.Apply(ctx, s.MatchedResults())
	if err != nil || len(outcome.Errors) > 0 {
		s.state = StatePartiallyFailed
	} else {
		s.state = StateApplied
	}
	return outcome, err
}
