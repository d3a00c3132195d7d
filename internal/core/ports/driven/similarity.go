package driven

import "github.com/rickhohler/biographical/internal/core/domain"

// SimilarityProvider computes textual similarity on a 0-100 scale.
// Implementations never fail on empty input; they return 0.
type SimilarityProvider interface {
	// Backend identifies the implementation.
	Backend() domain.SimilarityBackend

	// NameRatio compares two normalised names, ignoring token order where
	// the backend supports it.
	NameRatio(a, b string) float64

	// LocationRatio compares two normalised places, tolerating differing
	// specificity ("harvey nd" vs "harvey wells county north dakota").
	LocationRatio(a, b string) float64
}
