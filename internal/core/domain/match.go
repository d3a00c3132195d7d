package domain

// Record is implemented by every entity kind held in a registry.
// Clone returns a deep copy so callers never share mutable state with the
// registry that owns the original.
type Record[T any] interface {
	RecordID() string
	Clone() T
}

// MatchType tags how a query reached a record.
type MatchType string

// Match types, ordered roughly by resolution tier.
const (
	MatchExact        MatchType = "exact"
	MatchVariant      MatchType = "variant"
	MatchHistorical   MatchType = "historical"
	MatchCognate      MatchType = "cognate"
	MatchFuzzy        MatchType = "fuzzy"
	MatchHierarchical MatchType = "hierarchical"
)

// IsValid returns true if the match type is recognised.
func (m MatchType) IsValid() bool {
	switch m {
	case MatchExact, MatchVariant, MatchHistorical, MatchCognate, MatchFuzzy, MatchHierarchical:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (m MatchType) String() string {
	return string(m)
}

// Tier confidences on the 0.0-1.0 scale.
const (
	ConfidenceExact   = 1.0
	ConfidenceVariant = 0.9
	ConfidenceCognate = 0.8

	// Fuzzy hits are scaled into [FuzzyFloor, FuzzyFloor+FuzzySpan].
	FuzzyFloor = 0.5
	FuzzySpan  = 0.3
)

// MatchResult is a ranked query hit. It is built per query and never persisted.
type MatchResult[T any] struct {
	// Record is a copy of the matched record.
	Record T

	// Confidence is in [0.0, 1.0].
	Confidence float64

	// MatchType records which tier produced the hit.
	MatchType MatchType
}

// ConfidenceBreakdown holds per-factor scores (0-100) for a person match.
// A nil factor means the inputs were insufficient to compute it.
type ConfidenceBreakdown struct {
	Name         float64
	BirthYear    *float64
	Location     *float64
	Relationship *float64
	Overall      float64
}
