// Package reconcile associates uploaded per-specimen metadata rows with
// existing specimen records before anything is written.
//
// The engine has three parts. MatchAll applies an ordered list of matching
// strategies to each row's identifier against the project's candidate
// specimens: exact identifier equality, value-contained-in-tube, tube-
// contained-in-value, then a normalized comparison that strips a leading
// "<digits>_" ordering token. The first strategy to succeed wins, and within a
// strategy the first candidate in registry order wins; ambiguity between
// equally good candidates is resolved silently by that order. Summarize folds
// the match results into counts, field lists, and a per-row audit projection a
// human reviews before committing. The Applier then writes metadata patches in
// consecutive batches, dispatching each batch's updates concurrently and
// settling every call before moving on, so one specimen's failure never blocks
// its siblings.
//
// Matching and summarizing are pure: identical inputs, including candidate
// order, produce identical output, which is what makes the human review
// trustworthy. Only the Applier has side effects.
//
// Session wires the steps into an explicit workflow state machine
// (Idle → RowsParsed → ColumnSelected → Matched → Reviewed → Applying →
// Applied or PartiallyFailed) so callers cannot reach the write phase without
// passing the review gates.
package reconcile
