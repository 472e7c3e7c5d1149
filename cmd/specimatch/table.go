package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"specimatch/internal/reconcile"
	"specimatch/internal/specimen"
)

func newTableWriter() table.Writer {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	return tw
}

// renderSpecimenTable lists registry entries, preserving the order they were
// handed in (registry order when they come from ListByProject).
func renderSpecimenTable(specimens []specimen.Specimen) string {
	tw := newTableWriter()
	tw.AppendHeader(table.Row{"ID", "NUMBER", "TUBE", "METADATA"})
	for _, sp := range specimens {
		tw.AppendRow(table.Row{
			sp.ID,
			valueOrDash(sp.SpecimenNumber),
			valueOrDash(sp.TubeID),
			formatMetadata(sp.Metadata),
		})
	}
	return tw.Render()
}

// renderSummaryCounts shows the matched/unmatched split of one run. All five
// columns are numeric, so they right-align.
func renderSummaryCounts(summary reconcile.Summary) string {
	tw := newTableWriter()
	tw.AppendHeader(table.Row{"TOTAL", "MATCHED", "UNMATCHED", "EXACT", "PARTIAL"})
	tw.AppendRow(table.Row{
		summary.TotalRows,
		summary.MatchedCount,
		summary.UnmatchedCount,
		summary.ExactMatches,
		summary.PartialMatches,
	})
	configs := make([]table.ColumnConfig, 0, 5)
	for i := 1; i <= 5; i++ {
		configs = append(configs, table.ColumnConfig{
			Number:      i,
			Align:       text.AlignRight,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}

// renderMatchDetails is the per-row audit table shown during review, in
// original row order. Unmatched rows show a dash in the tube column.
func renderMatchDetails(details []reconcile.MatchDetail) string {
	tw := newTableWriter()
	tw.AppendHeader(table.Row{"IDENTIFIER", "MATCH", "CONFIDENCE", "TUBE"})
	for _, detail := range details {
		tw.AppendRow(table.Row{
			detail.SourceIdentifier,
			string(detail.Type),
			string(detail.Confidence),
			valueOrDash(detail.MatchedTubeID),
		})
	}
	return tw.Render()
}

// renderFailureTable lists the isolated per-specimen apply failures with their
// classification, in the order the applier recorded them.
func renderFailureTable(errs []reconcile.ApplyError) string {
	tw := newTableWriter()
	tw.AppendHeader(table.Row{"SPECIMEN", "REASON", "ERROR"})
	for _, applyErr := range errs {
		tw.AppendRow(table.Row{
			applyErr.Specimen.ID,
			string(applyErr.Reason),
			applyErr.Err.Error(),
		})
	}
	return tw.Render()
}
