package similarity

import (
	"fmt"

	"github.com/rickhohler/biographical/internal/core/domain"
	"github.com/rickhohler/biographical/internal/core/ports/driven"
	"github.com/rickhohler/biographical/internal/logger"
)

// New creates the provider for backend.
// Returns domain.ErrInvalidConfiguration for an unknown backend.
func New(backend domain.SimilarityBackend) (driven.SimilarityProvider, error) {
	switch backend {
	case domain.SimilarityFuzzy:
		return NewFuzzy(), nil
	case domain.SimilarityJaroWinkler:
		return NewJaroWinkler(), nil
	case domain.SimilarityBasic:
		return NewBasic(), nil
	default:
		return nil, fmt.Errorf("%w: similarity backend %q", domain.ErrInvalidConfiguration, backend)
	}
}

// InitResult contains the selected provider and any fallback notes.
type InitResult struct {
	Provider driven.SimilarityProvider
	Warnings []string // Non-fatal issues that caused fallback.
	FellBack bool     // True if the basic backend replaced the requested one.
}

// Init selects the provider for backend, falling back to the basic backend
// instead of failing when the requested one is unknown.
func Init(backend domain.SimilarityBackend) InitResult {
	p, err := New(backend)
	if err == nil {
		if backend.IsDegraded() {
			logger.Warn("similarity: basic backend active, fuzzy scores limited to exact and substring matches")
		}
		return InitResult{Provider: p}
	}
	msg := fmt.Sprintf("similarity: %v, using %s", err, domain.SimilarityBasic)
	logger.Warn("%s", msg)
	return InitResult{
		Provider: NewBasic(),
		Warnings: []string{msg},
		FellBack: true,
	}
}
