package reconcile_test

import (
	"reflect"
	"testing"

	"specimatch/internal/ingest"
	"specimatch/internal/reconcile"
	"specimatch/internal/specimen"
)

func newRow(headers []string, values ...string) ingest.Row {
	cells := make(map[string]string, len(headers))
	for i, header := range headers {
		if i < len(values) {
			cells[header] = values[i]
		} else {
			cells[header] = ""
		}
	}
	return ingest.Row{Headers: headers, Values: cells}
}

var metadataHeaders = []string{"tube_id", "timepoint", "dose"}

func TestMatchAllExactPrefersTubeThenNumberThenID(t *testing.T) {
	candidates := []specimen.Specimen{
		{ID: "s-1", TubeID: "TUBE-A", SpecimenNumber: "SN-001"},
		{ID: "s-2", TubeID: "TUBE-B", SpecimenNumber: "SN-002"},
	}

	cases := []struct {
		name  string
		value string
		want  string
	}{
		{"by tube id", "TUBE-B", "s-2"},
		{"by specimen number", "SN-001", "s-1"},
		{"by internal id", "s-2", "s-2"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			results := reconcile.MatchAll(
				[]ingest.Row{newRow(metadataHeaders, tc.value, "12M", "5mg")},
				candidates,
				"tube_id",
			)
			result := results[0]
			if result.Type != reconcile.MatchExact {
				t.Fatalf("expected exact match, got %s", result.Type)
			}
			if result.Confidence != reconcile.ConfidenceHigh {
				t.Fatalf("exact match must be high confidence, got %s", result.Confidence)
			}
			if result.Candidate == nil || result.Candidate.ID != tc.want {
				t.Fatalf("expected candidate %s, got %#v", tc.want, result.Candidate)
			}
		})
	}
}

func TestMatchAllValueContainedInTube(t *testing.T) {
	// Scenario: upload says GEMM_001_12M, the tube was labeled with an
	// ordering prefix.
	candidates := []specimen.Specimen{
		{ID: "s-1", TubeID: "01_GEMM_001_12M"},
	}
	results := reconcile.MatchAll(
		[]ingest.Row{newRow(metadataHeaders, "GEMM_001_12M")},
		candidates,
		"tube_id",
	)
	result := results[0]
	if result.Type != reconcile.MatchValueInTube {
		t.Fatalf("expected partial_value_in_tube, got %s", result.Type)
	}
	if result.Confidence != reconcile.ConfidenceMedium {
		t.Fatalf("partial match must be medium confidence, got %s", result.Confidence)
	}
}

func TestMatchAllTubeContainedInValue(t *testing.T) {
	candidates := []specimen.Specimen{
		{ID: "s-1", TubeID: "GEMM_001"},
	}
	results := reconcile.MatchAll(
		[]ingest.Row{newRow(metadataHeaders, "PREFIX-GEMM_001-SUFFIX")},
		candidates,
		"tube_id",
	)
	if results[0].Type != reconcile.MatchTubeInValue {
		t.Fatalf("expected partial_tube_in_value, got %s", results[0].Type)
	}
}

func TestMatchAllNormalizedPrefix(t *testing.T) {
	// Scenario: upload kept the ordering prefix, the registry dropped it.
	candidates := []specimen.Specimen{
		{ID: "s-1", TubeID: "GEMM_001_12M"},
	}
	results := reconcile.MatchAll(
		[]ingest.Row{newRow(metadataHeaders, "01_GEMM_001_12M")},
		candidates,
		"tube_id",
	)
	result := results[0]
	if result.Type != reconcile.MatchNormalized {
		t.Fatalf("expected partial_normalized, got %s", result.Type)
	}
	if result.Candidate == nil || result.Candidate.ID != "s-1" {
		t.Fatalf("unexpected candidate %#v", result.Candidate)
	}
}

func TestMatchAllStrategyPriorityOrder(t *testing.T) {
	// The exact candidate sits after a partial candidate in registry order;
	// strategy priority must still pick the exact one.
	candidates := []specimen.Specimen{
		{ID: "s-partial", TubeID: "01_GEMM_001"},
		{ID: "s-exact", TubeID: "GEMM_001"},
	}
	results := reconcile.MatchAll(
		[]ingest.Row{newRow(metadataHeaders, "GEMM_001")},
		candidates,
		"tube_id",
	)
	result := results[0]
	if result.Type != reconcile.MatchExact || result.Candidate.ID != "s-exact" {
		t.Fatalf("expected exact match on s-exact, got %s on %#v", result.Type, result.Candidate)
	}
}

func TestMatchAllFirstCandidateWins(t *testing.T) {
	candidates := []specimen.Specimen{
		{ID: "s-1", TubeID: "01_GEMM_001_12M"},
		{ID: "s-2", TubeID: "02_GEMM_001_12M"},
	}
	results := reconcile.MatchAll(
		[]ingest.Row{newRow(metadataHeaders, "GEMM_001_12M")},
		candidates,
		"tube_id",
	)
	if results[0].Candidate == nil || results[0].Candidate.ID != "s-1" {
		t.Fatalf("tie-break must take registry order, got %#v", results[0].Candidate)
	}
}

func TestMatchAllEmptyValueIsUnmatched(t *testing.T) {
	candidates := []specimen.Specimen{{ID: "s-1", TubeID: "TUBE-A"}}
	results := reconcile.MatchAll(
		[]ingest.Row{newRow(metadataHeaders, "", "12M", "")},
		candidates,
		"tube_id",
	)
	result := results[0]
	if result.Type != reconcile.MatchNone || result.Candidate != nil {
		t.Fatalf("empty identifier must not match, got %s %#v", result.Type, result.Candidate)
	}
	if result.Confidence != reconcile.ConfidenceNone {
		t.Fatalf("unmatched row must have none confidence, got %s", result.Confidence)
	}
}

func TestMatchAllSkipsEmptyTubeForPartialStrategies(t *testing.T) {
	candidates := []specimen.Specimen{
		{ID: "s-null", SpecimenNumber: "SN-007"},
		{ID: "s-tube", TubeID: "01_GEMM_001"},
	}

	// The tubeless specimen stays eligible for exact matching.
	results := reconcile.MatchAll(
		[]ingest.Row{newRow(metadataHeaders, "SN-007")},
		candidates,
		"tube_id",
	)
	if results[0].Type != reconcile.MatchExact || results[0].Candidate.ID != "s-null" {
		t.Fatalf("expected exact match via specimen number, got %s %#v", results[0].Type, results[0].Candidate)
	}

	// Partial strategies must skip it and land on the tubed specimen.
	results = reconcile.MatchAll(
		[]ingest.Row{newRow(metadataHeaders, "GEMM_001")},
		candidates,
		"tube_id",
	)
	if results[0].Candidate == nil || results[0].Candidate.ID != "s-tube" {
		t.Fatalf("expected partial match on s-tube, got %#v", results[0].Candidate)
	}
}

func TestMatchAllPatchExcludesMatchColumn(t *testing.T) {
	candidates := []specimen.Specimen{{ID: "s-1", TubeID: "TUBE-A"}}
	results := reconcile.MatchAll(
		[]ingest.Row{newRow(metadataHeaders, "TUBE-A", "12M", "")},
		candidates,
		"tube_id",
	)
	patch := results[0].Patch
	if _, ok := patch["tube_id"]; ok {
		t.Fatal("patch must not contain the matching column")
	}
	if patch["timepoint"] != "12M" {
		t.Fatalf("expected timepoint retained, got %#v", patch)
	}
	if value, ok := patch["dose"]; !ok || value != "" {
		t.Fatalf("empty string values must be retained, got %#v", patch)
	}
}

func TestMatchAllDeterministic(t *testing.T) {
	candidates := []specimen.Specimen{
		{ID: "s-1", TubeID: "01_GEMM_001_12M", SpecimenNumber: "SN-001"},
		{ID: "s-2", TubeID: "GEMM_002_12M"},
		{ID: "s-3", SpecimenNumber: "SN-003"},
	}
	rows := []ingest.Row{
		newRow(metadataHeaders, "GEMM_001_12M", "12M", "5mg"),
		newRow(metadataHeaders, "01_GEMM_002_12M", "12M", "10mg"),
		newRow(metadataHeaders, "SN-003", "3M", ""),
		newRow(metadataHeaders, "UNKNOWN-99", "", ""),
	}

	first := reconcile.MatchAll(rows, candidates, "tube_id")
	second := reconcile.MatchAll(rows, candidates, "tube_id")
	if !reflect.DeepEqual(first, second) {
		t.Fatal("identical inputs must produce identical output")
	}
}

func TestMatchTypeConfidenceCoupling(t *testing.T) {
	cases := map[reconcile.MatchType]reconcile.Confidence{
		reconcile.MatchExact:       reconcile.ConfidenceHigh,
		reconcile.MatchValueInTube: reconcile.ConfidenceMedium,
		reconcile.MatchTubeInValue: reconcile.ConfidenceMedium,
		reconcile.MatchNormalized:  reconcile.ConfidenceMedium,
		reconcile.MatchNone:        reconcile.ConfidenceNone,
	}
	for matchType, want := range cases {
		if got := matchType.Confidence(); got != want {
			t.Fatalf("%s: expected confidence %s, got %s", matchType, want, got)
		}
	}
}
