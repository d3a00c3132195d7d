package matching

import (
	"github.com/rickhohler/biographical/internal/core/domain"
	"github.com/rickhohler/biographical/internal/core/ports/driven"
)

// Score values shared by every similarity backend.
const (
	ScoreIdentical = 100.0
	ScoreContained = 70.0
)

// FuzzyMatchName scores two names 0-100. Both are normalised first; equal
// normalised names score 100. Alternates are further spellings of b: the
// result is the best of a against b and a against each alternate.
func FuzzyMatchName(p driven.SimilarityProvider, a, b string, alternates ...string) float64 {
	na, nb := NormalizeName(a), NormalizeName(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return ScoreIdentical
	}
	best := p.NameRatio(na, nb)
	for _, alt := range alternates {
		nalt := NormalizeName(alt)
		if nalt == "" {
			continue
		}
		if nalt == na {
			return ScoreIdentical
		}
		best = max(best, p.NameRatio(na, nalt))
	}
	return clampScore(best)
}

// FuzzyMatchLocation scores two places 0-100 with the provider's
// specificity-tolerant comparison.
func FuzzyMatchLocation(p driven.SimilarityProvider, a, b string) float64 {
	na, okA := NormalizeLocation(a)
	nb, okB := NormalizeLocation(b)
	if !okA || !okB || na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return ScoreIdentical
	}
	return clampScore(p.LocationRatio(na, nb))
}

func clampScore(s float64) float64 {
	return min(ScoreIdentical, max(0, s))
}

// FuzzyConfidence maps a 0.0-1.0 similarity that passed threshold onto the
// fuzzy tier's confidence band, [domain.FuzzyFloor, FuzzyFloor+FuzzySpan].
func FuzzyConfidence(similarity, threshold float64) float64 {
	top := domain.FuzzyFloor + domain.FuzzySpan
	if threshold >= 1 {
		return top
	}
	c := domain.FuzzyFloor + (similarity-threshold)/(1-threshold)*domain.FuzzySpan
	return min(top, max(domain.FuzzyFloor, c))
}
