package reconcile

import (
	"specimatch/internal/ingest"
	"specimatch/internal/specimen"
)

// MatchType identifies which strategy reconciled a row with a specimen.
type MatchType string

const (
	// MatchExact means the row value equaled a candidate's tube id, specimen
	// number, or internal id verbatim.
	MatchExact MatchType = "exact"
	// MatchValueInTube means the row value was a substring of a tube id.
	MatchValueInTube MatchType = "partial_value_in_tube"
	// MatchTubeInValue means a tube id was a substring of the row value.
	MatchTubeInValue MatchType = "partial_tube_in_value"
	// MatchNormalized means the row value and tube id agreed after stripping a
	// leading "<digits>_" ordering token.
	MatchNormalized MatchType = "partial_normalized"
	// MatchNone means no strategy produced a candidate.
	MatchNone MatchType = "none"
)

// Confidence is the coarse classification shown to reviewers.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceNone   Confidence = "none"
)

// Confidence derives the review confidence from the match type. High is
// reserved for exact matches, every partial strategy yields medium.
func (t MatchType) Confidence() Confidence {
	switch t {
	case MatchExact:
		return ConfidenceHigh
	case MatchValueInTube, MatchTubeInValue, MatchNormalized:
		return ConfidenceMedium
	default:
		return ConfidenceNone
	}
}

// Partial reports whether the type represents a partial-strategy match.
func (t MatchType) Partial() bool {
	return t.Confidence() == ConfidenceMedium
}

// MatchResult pairs one source row with the candidate it reconciled to, if
// any, and the metadata patch that would be written on apply. Patch never
// contains the matching column; empty-string values are retained because
// downstream consumers may treat absence and empty differently.
type MatchResult struct {
	Row        ingest.Row
	Identifier string
	Candidate  *specimen.Specimen
	Type       MatchType
	Confidence Confidence
	Patch      map[string]string
}

// Matched reports whether the row reconciled to a candidate.
func (r MatchResult) Matched() bool {
	return r.Candidate != nil
}

// MatchAll reconciles every row against the candidate snapshot using the
// ordered strategy list. It is a pure function: given identical inputs,
// including candidate iteration order, it returns identical output. Rows with
// an empty identifier and rows no strategy can place yield a MatchNone result
// rather than an error; unmatched rows are data, not failures.
func MatchAll(rows []ingest.Row, candidates []specimen.Specimen, matchColumn string) []MatchResult {
	results := make([]MatchResult, 0, len(rows))
	for _, row := range rows {
		results = append(results, matchRow(row, candidates, matchColumn))
	}
	return results
}

func matchRow(row ingest.Row, candidates []specimen.Specimen, matchColumn string) MatchResult {
	result := MatchResult{
		Row:        row,
		Identifier: row.Value(matchColumn),
		Type:       MatchNone,
		Confidence: ConfidenceNone,
		Patch:      buildPatch(row, matchColumn),
	}
	if result.Identifier == "" {
		return result
	}

	for _, strat := range strategies {
		idx := strat.match(result.Identifier, candidates)
		if idx < 0 {
			continue
		}
		matched := candidates[idx]
		result.Candidate = &matched
		result.Type = strat.matchType
		result.Confidence = strat.matchType.Confidence()
		break
	}
	return result
}

// buildPatch copies every cell of the row except the matching column,
// verbatim. Values stay strings; interpretation belongs to consumers.
func buildPatch(row ingest.Row, matchColumn string) map[string]string {
	patch := make(map[string]string, len(row.Headers))
	for _, header := range row.Headers {
		if header == "" || header == matchColumn {
			continue
		}
		if value, ok := row.Values[header]; ok {
			patch[header] = value
		}
	}
	return patch
}
