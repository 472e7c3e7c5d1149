package reconcile

import (
	"regexp"
	"strings"

	"specimatch/internal/specimen"
)

// strategy is one pure matching rule. match returns the index of the first
// candidate in registry order that satisfies the rule, or -1.
type strategy struct {
	matchType MatchType
	match     func(value string, candidates []specimen.Specimen) int
}

// strategies is evaluated in strict priority order; the first success wins.
var strategies = []strategy{
	{MatchExact, matchExact},
	{MatchValueInTube, matchValueInTube},
	{MatchTubeInValue, matchTubeInValue},
	{MatchNormalized, matchNormalizedPrefix},
}

// orderingPrefix matches a leading "<digits>_" token such as "01_".
var orderingPrefix = regexp.MustCompile(`^\d+_`)

func stripOrderingPrefix(value string) string {
	return orderingPrefix.ReplaceAllString(value, "")
}

func matchExact(value string, candidates []specimen.Specimen) int {
	for i, candidate := range candidates {
		if value == candidate.TubeID || value == candidate.SpecimenNumber || value == candidate.ID {
			return i
		}
	}
	return -1
}

func matchValueInTube(value string, candidates []specimen.Specimen) int {
	for i, candidate := range candidates {
		if candidate.TubeID == "" {
			continue
		}
		if strings.Contains(candidate.TubeID, value) {
			return i
		}
	}
	return -1
}

func matchTubeInValue(value string, candidates []specimen.Specimen) int {
	for i, candidate := range candidates {
		if candidate.TubeID == "" {
			continue
		}
		if !strings.Contains(value, candidate.TubeID) {
			continue
		}
		// A value that is just the tube id behind an ordering prefix is the
		// normalized strategy's case; classify it there.
		if stripOrderingPrefix(value) == candidate.TubeID {
			continue
		}
		return i
	}
	return -1
}

func matchNormalizedPrefix(value string, candidates []specimen.Specimen) int {
	normalizedValue := stripOrderingPrefix(value)
	for i, candidate := range candidates {
		if candidate.TubeID == "" {
			continue
		}
		normalizedTube := stripOrderingPrefix(candidate.TubeID)
		if normalizedTube == normalizedValue || normalizedTube == value || candidate.TubeID == normalizedValue {
			return i
		}
	}
	return -1
}
