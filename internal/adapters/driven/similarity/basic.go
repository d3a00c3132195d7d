package similarity

import (
	"strings"

	"github.com/rickhohler/biographical/internal/core/domain"
	"github.com/rickhohler/biographical/internal/core/ports/driven"
)

// Verify interface compliance.
var _ driven.SimilarityProvider = (*Basic)(nil)

// Basic is the fallback backend: identical strings score 100, containment in
// either direction scores 70, anything else 0.
type Basic struct{}

// NewBasic creates the fallback backend.
func NewBasic() *Basic {
	return &Basic{}
}

// Backend implements driven.SimilarityProvider.
func (b *Basic) Backend() domain.SimilarityBackend {
	return domain.SimilarityBasic
}

// NameRatio implements driven.SimilarityProvider.
func (b *Basic) NameRatio(x, y string) float64 {
	return containment(x, y)
}

// LocationRatio implements driven.SimilarityProvider.
func (b *Basic) LocationRatio(x, y string) float64 {
	return containment(x, y)
}

func containment(x, y string) float64 {
	switch {
	case x == "" || y == "":
		return 0
	case x == y:
		return 100
	case strings.Contains(x, y) || strings.Contains(y, x):
		return 70
	default:
		return 0
	}
}
