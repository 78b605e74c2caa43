// pkg/model/match.go
package model

import "fmt"

// MatchMethod identifies which resolution tier produced a match
type MatchMethod int

const (
	// MatchExact is a direct (parent, name) lookup hit
	MatchExact MatchMethod = iota
	// MatchAlias hit after abbreviation/diacritic/suffix normalization
	MatchAlias
	// MatchApproximate hit via string similarity above the fixed threshold
	MatchApproximate
)

// String returns a string representation of the match method
func (m MatchMethod) String() string {
	switch m {
	case MatchExact:
		return "exact"
	case MatchAlias:
		return "alias"
	case MatchApproximate:
		return "approximate"
	default:
		return fmt.Sprintf("Unknown(%d)", m)
	}
}

// MatchResult is the outcome of resolving one free-text name to a code.
// Confidence is 1.0 for exact and alias matches, the similarity score for
// approximate matches.
type MatchResult struct {
	Code       string
	Method     MatchMethod
	Confidence float64
}
