package matching

import (
	"fmt"
	"math"
	"sort"

	"github.com/rickhohler/biographical/internal/core/domain"
	"github.com/rickhohler/biographical/internal/core/ports/driven"
)

// Weight keys accepted by Weights.With.
const (
	WeightName      = "name"
	WeightBirthYear = "birth_year"
	WeightParents   = "parents"
	WeightLocation  = "location"
)

// NeutralScore is contributed by a factor whose inputs are unknown.
const NeutralScore = 50.0

// ParentMatchScore is the sub-score a parent comparison must exceed to count
// as a relationship match.
const ParentMatchScore = 70.0

// Weights are the factor weights of the confidence model.
type Weights struct {
	Name      float64
	BirthYear float64
	Parents   float64
	Location  float64
}

// DefaultWeights returns name 40%, birth year 20%, parents 20%, location 20%.
func DefaultWeights() Weights {
	return Weights{Name: 0.4, BirthYear: 0.2, Parents: 0.2, Location: 0.2}
}

// With returns w with individual entries replaced by overrides.
// Unknown keys and negative weights fail with domain.ErrInvalidConfiguration.
func (w Weights) With(overrides map[string]float64) (Weights, error) {
	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := overrides[k]
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return w, fmt.Errorf("%w: weight %q must be a non-negative number, got %v", domain.ErrInvalidConfiguration, k, v)
		}
		switch k {
		case WeightName:
			w.Name = v
		case WeightBirthYear:
			w.BirthYear = v
		case WeightParents:
			w.Parents = v
		case WeightLocation:
			w.Location = v
		default:
			return w, fmt.Errorf("%w: unknown weight key %q", domain.ErrInvalidConfiguration, k)
		}
	}
	return w, nil
}

// Factors are the inputs of one aggregate confidence computation.
// Nil pointers mean unknown.
type Factors struct {
	NameScore     float64
	BirthYearDiff *int
	ParentMatch   bool
	LocationScore *float64
}

// Scorer computes person match confidence. It is immutable and safe for
// concurrent use.
type Scorer struct {
	weights  Weights
	provider driven.SimilarityProvider
}

// NewScorer builds a scorer with the default weights updated by overrides.
func NewScorer(provider driven.SimilarityProvider, overrides map[string]float64) (*Scorer, error) {
	w, err := DefaultWeights().With(overrides)
	if err != nil {
		return nil, err
	}
	return &Scorer{weights: w, provider: provider}, nil
}

// Weights returns the effective weights.
func (s *Scorer) Weights() Weights {
	return s.weights
}

// Score combines factors into a 0-100 confidence rounded to two decimals.
func (s *Scorer) Score(f Factors) float64 {
	return score(s.weights, f)
}

// ComputeConfidenceScore is the aggregate confidence formula with optional
// weight overrides.
func ComputeConfidenceScore(nameScore float64, birthYearDiff *int, parentMatch bool, locationScore *float64, overrides map[string]float64) (float64, error) {
	w, err := DefaultWeights().With(overrides)
	if err != nil {
		return 0, err
	}
	return score(w, Factors{
		NameScore:     nameScore,
		BirthYearDiff: birthYearDiff,
		ParentMatch:   parentMatch,
		LocationScore: locationScore,
	}), nil
}

func score(w Weights, f Factors) float64 {
	total := clampScore(f.NameScore) * w.Name

	year := NeutralScore
	if f.BirthYearDiff != nil {
		year = YearScore(*f.BirthYearDiff)
	}
	total += year * w.BirthYear

	parents := NeutralScore
	if f.ParentMatch {
		parents = 100
	}
	total += parents * w.Parents

	location := NeutralScore
	if f.LocationScore != nil {
		location = clampScore(*f.LocationScore)
	}
	total += location * w.Location

	return round2(clampScore(total))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
