package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"specimatch/internal/config"
	"specimatch/internal/ingest"
	"specimatch/internal/reconcile"
	"specimatch/internal/specimen"
)

func newReconcileCommand(ctx *commandContext) *cobra.Command {
	var projectID string
	var column string
	var applyChanges bool
	var batchSize int

	cmd := &cobra.Command{
		Use:   "reconcile <file>",
		Short: "Match a metadata upload against registered specimens",
		Long: `Reconcile parses a delimited metadata file, matches each row against the
specimens registered for a project, and prints a review summary. Without
--apply nothing is written; with --apply the matched metadata is merged onto
the specimens after the summary.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rs, err := ingest.ReadFile(args[0])
			if err != nil {
				return err
			}

			return ctx.withStore(func(cfg *config.Config, store *specimen.Store) error {
				session := reconcile.NewSession(reconcile.WithSampleSize(cfg.Reconcile.SampleSize))
				if err := session.LoadRows(rs); err != nil {
					return err
				}
				if err := session.SelectColumn(column); err != nil {
					return err
				}

				candidates, err := store.ListByProject(cmd.Context(), projectID)
				if err != nil {
					return err
				}
				if err := session.RunMatch(candidates); err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				summary := session.Summary()
				printSummary(out, summary)

				if !applyChanges {
					fmt.Fprintln(out, "Dry run: re-run with --apply to write the matched metadata.")
					return nil
				}

				if err := session.ConfirmReview(); err != nil {
					return err
				}

				effectiveBatch := cfg.Reconcile.BatchSize
				if batchSize > 0 {
					effectiveBatch = batchSize
				}

				color := shouldColorize(out)
				applier := reconcile.NewApplier(store, ctx.ensureLogger(),
					reconcile.WithBatchSize(effectiveBatch),
					reconcile.WithProgress(func(processed, total int) {
						fmt.Fprintf(out, "Applied %d/%d\n", processed, total)
					}),
				)

				var outcome reconcile.Outcome
				lockErr := withWriteLock(cfg, func() error {
					var applyErr error
					outcome, applyErr = session.Apply(cmd.Context(), applier)
					return applyErr
				})
				printOutcome(out, outcome, color)
				if lockErr != nil {
					return lockErr
				}
				if len(outcome.Errors) > 0 {
					return fmt.Errorf("%d specimen update(s) failed", len(outcome.Errors))
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&projectID, "project", "P", "", "Project whose specimens are matched")
	cmd.Flags().StringVarP(&column, "column", "C", "", "Upload column holding the specimen identifier")
	cmd.Flags().BoolVar(&applyChanges, "apply", false, "Write matched metadata after review")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "Override the configured apply batch size")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("column")
	return cmd
}

func printSummary(out io.Writer, summary reconcile.Summary) {
	fmt.Fprintln(out, renderSummaryCounts(summary))

	if len(summary.Details) > 0 {
		fmt.Fprintln(out, renderMatchDetails(summary.Details))
	}

	if len(summary.MetadataFields) > 0 {
		fmt.Fprintf(out, "Metadata fields to write: %s\n", strings.Join(summary.MetadataFields, ", "))
	}
	for i, sample := range summary.SampleMetadata {
		fmt.Fprintf(out, "Sample %d: %s\n", i+1, formatMetadata(sample))
	}
	if len(summary.UnmatchedIdentifiers) > 0 {
		fmt.Fprintf(out, "Unmatched identifiers: %s\n", strings.Join(summary.UnmatchedIdentifiers, ", "))
	}
}

func printOutcome(out io.Writer, outcome reconcile.Outcome, color bool) {
	fmt.Fprintln(out, colorize(fmt.Sprintf("%d specimen(s) updated", outcome.SuccessCount), ansiGreen, color))
	if len(outcome.Errors) == 0 {
		return
	}

	byReason := make(map[reconcile.FailureReason]int)
	for _, applyErr := range outcome.Errors {
		byReason[applyErr.Reason]++
	}

	fmt.Fprintln(out, colorize(fmt.Sprintf("%d update(s) failed", len(outcome.Errors)), ansiRed, color))
	fmt.Fprintln(out, renderFailureTable(outcome.Errors))
	for _, reason := range []reconcile.FailureReason{
		reconcile.ReasonConstraint,
		reconcile.ReasonInvalidFormat,
		reconcile.ReasonNotFound,
		reconcile.ReasonPermission,
		reconcile.ReasonUnknown,
	} {
		if count := byReason[reason]; count > 0 {
			fmt.Fprintf(out, "  %s: %d\n", reason, count)
		}
	}
	fmt.Fprintln(out, colorize("Fix the failures above and re-run with --apply; successful updates are kept.", ansiYellow, color))
}
