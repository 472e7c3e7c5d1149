package reconcile_test

import (
	"reflect"
	"testing"

	"specimatch/internal/ingest"
	"specimatch/internal/reconcile"
	"specimatch/internal/specimen"
)

func buildResults(t *testing.T) []reconcile.MatchResult {
	t.Helper()
	candidates := []specimen.Specimen{
		{ID: "s-1", TubeID: "TUBE-A"},
		{ID: "s-2", TubeID: "01_TUBE-B"},
		{ID: "s-3", TubeID: "TUBE-C"},
		{ID: "s-4", TubeID: "TUBE-D"},
	}
	rows := []ingest.Row{
		newRow(metadataHeaders, "TUBE-A", "3M", "1mg"),
		newRow(metadataHeaders, "TUBE-B", "6M", ""),
		newRow(metadataHeaders, "MISSING-1", "9M", "2mg"),
		newRow(metadataHeaders, "TUBE-C", "12M", "3mg"),
		newRow(metadataHeaders, "MISSING-2", "", ""),
		newRow(metadataHeaders, "TUBE-D", "18M", "4mg"),
	}
	return reconcile.MatchAll(rows, candidates, "tube_id")
}

func TestSummarizeCounts(t *testing.T) {
	summary := reconcile.Summarize(buildResults(t))

	if summary.TotalRows != 6 {
		t.Fatalf("expected 6 total rows, got %d", summary.TotalRows)
	}
	if summary.MatchedCount != 4 || summary.UnmatchedCount != 2 {
		t.Fatalf("unexpected partition: matched=%d unmatched=%d", summary.MatchedCount, summary.UnmatchedCount)
	}
	if summary.MatchedCount+summary.UnmatchedCount != summary.TotalRows {
		t.Fatal("matched + unmatched must equal total")
	}
	if summary.ExactMatches != 3 {
		t.Fatalf("expected 3 exact matches, got %d", summary.ExactMatches)
	}
	if summary.PartialMatches != 1 {
		t.Fatalf("expected 1 partial match, got %d", summary.PartialMatches)
	}
}

func TestSummarizeFieldAndIdentifierOrder(t *testing.T) {
	summary := reconcile.Summarize(buildResults(t))

	if !reflect.DeepEqual(summary.MetadataFields, []string{"timepoint", "dose"}) {
		t.Fatalf("unexpected metadata fields: %#v", summary.MetadataFields)
	}
	if !reflect.DeepEqual(summary.UnmatchedIdentifiers, []string{"MISSING-1", "MISSING-2"}) {
		t.Fatalf("unmatched identifiers must keep row order: %#v", summary.UnmatchedIdentifiers)
	}
}

func TestSummarizeSampleLimit(t *testing.T) {
	summary := reconcile.Summarize(buildResults(t))

	if len(summary.SampleMetadata) != 3 {
		t.Fatalf("expected 3 sample patches, got %d", len(summary.SampleMetadata))
	}
	if summary.SampleMetadata[0]["timepoint"] != "3M" {
		t.Fatalf("sample must start at the first matched row, got %#v", summary.SampleMetadata[0])
	}
	if value, ok := summary.SampleMetadata[1]["dose"]; !ok || value != "" {
		t.Fatalf("empty values must survive into the preview, got %#v", summary.SampleMetadata[1])
	}

	wide := reconcile.SummarizeSample(buildResults(t), 10)
	if len(wide.SampleMetadata) != 4 {
		t.Fatalf("sample size 10 should include all 4 matched rows, got %d", len(wide.SampleMetadata))
	}
}

func TestSummarizeDetailsPreserveRowOrder(t *testing.T) {
	summary := reconcile.Summarize(buildResults(t))

	if len(summary.Details) != 6 {
		t.Fatalf("expected one detail per row, got %d", len(summary.Details))
	}
	if summary.Details[1].Type != reconcile.MatchValueInTube || summary.Details[1].MatchedTubeID != "01_TUBE-B" {
		t.Fatalf("unexpected detail for partial row: %#v", summary.Details[1])
	}
	if summary.Details[2].Matched || summary.Details[2].Confidence != reconcile.ConfidenceNone {
		t.Fatalf("unmatched detail mis-reported: %#v", summary.Details[2])
	}
	if summary.Details[4].SourceIdentifier != "MISSING-2" {
		t.Fatalf("details must preserve row order: %#v", summary.Details[4])
	}
}

func TestSummarizeRepeatable(t *testing.T) {
	results := buildResults(t)
	first := reconcile.Summarize(results)
	second := reconcile.Summarize(results)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("summarize must be repeatable without side effects")
	}
}

func TestSummarizeEmptyInput(t *testing.T) {
	summary := reconcile.Summarize(nil)
	if summary.TotalRows != 0 || summary.MatchedCount != 0 || summary.UnmatchedCount != 0 {
		t.Fatalf("empty input must produce zero counts: %#v", summary)
	}
}
