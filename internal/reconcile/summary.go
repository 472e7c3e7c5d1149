package reconcile

// DefaultSampleSize caps the metadata preview included in a summary.
const DefaultSampleSize = 3

// MatchDetail is the per-row audit projection shown during review, in
// original row order.
type MatchDetail struct {
	SourceIdentifier string
	Matched          bool
	Type             MatchType
	Confidence       Confidence
	MatchedTubeID    string
}

// Summary aggregates match results for human review. It is derived data:
// recomputable from the same result list at any time, never mutated in place.
type Summary struct {
	TotalRows      int
	MatchedCount   int
	UnmatchedCount int
	ExactMatches   int
	PartialMatches int
	// MetadataFields is the union of patch keys across matched rows, ordered
	// by first observation in source header order. This, not the full header
	// list, is what gets written.
	MetadataFields []string
	// UnmatchedIdentifiers holds the matching-column values of unmatched rows
	// in original row order.
	UnmatchedIdentifiers []string
	// SampleMetadata previews the patches of the first few matched rows.
	SampleMetadata []map[string]string
	Details        []MatchDetail
}

// Summarize aggregates results with the default preview size.
func Summarize(results []MatchResult) Summary {
	return SummarizeSample(results, DefaultSampleSize)
}

// SummarizeSample aggregates results, previewing at most sampleSize matched
// patches. Pure and non-mutating; safe to call repeatedly on the same input.
func SummarizeSample(results []MatchResult, sampleSize int) Summary {
	summary := Summary{
		TotalRows: len(results),
		Details:   make([]MatchDetail, 0, len(results)),
	}
	seenFields := make(map[string]struct{})

	for _, result := range results {
		detail := MatchDetail{
			SourceIdentifier: result.Identifier,
			Matched:          result.Matched(),
			Type:             result.Type,
			Confidence:       result.Confidence,
		}
		if result.Matched() {
			detail.MatchedTubeID = result.Candidate.TubeID
			summary.MatchedCount++
			if result.Type == MatchExact {
				summary.ExactMatches++
			}
			for _, header := range result.Row.Headers {
				if _, inPatch := result.Patch[header]; !inPatch {
					continue
				}
				if _, seen := seenFields[header]; seen {
					continue
				}
				seenFields[header] = struct{}{}
				summary.MetadataFields = append(summary.MetadataFields, header)
			}
			if len(summary.SampleMetadata) < sampleSize {
				summary.SampleMetadata = append(summary.SampleMetadata, result.Patch)
			}
		} else {
			summary.UnmatchedCount++
			summary.UnmatchedIdentifiers = append(summary.UnmatchedIdentifiers, result.Identifier)
		}
		summary.Details = append(summary.Details, detail)
	}

	summary.PartialMatches = summary.MatchedCount - summary.ExactMatches
	return summary
}
