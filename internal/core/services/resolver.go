package services

import (
	"slices"
	"strings"

	"github.com/rickhohler/biographical/internal/core/domain"
	"github.com/rickhohler/biographical/internal/logger"
	"github.com/rickhohler/biographical/internal/matching"
)

// Tier is one indexed stage of resolution.
type Tier struct {
	// Index is the registry index consulted.
	Index string

	// MatchType tags every hit of the tier.
	MatchType domain.MatchType

	// Confidence is assigned to every hit, 0.0-1.0.
	Confidence float64
}

// ResolverConfig describes how one record kind is resolved.
type ResolverConfig[T any] struct {
	// Tiers run in order; an id claimed by an earlier tier is never
	// reported again.
	Tiers []Tier

	// Similarity scores a query against a record, 0.0-1.0. Nil disables
	// the fuzzy tier.
	Similarity func(query string, rec T) float64

	// DefaultThreshold applies when a query leaves Threshold unset.
	DefaultThreshold float64
}

// Query is one resolution request.
type Query[T any] struct {
	Text string

	// Filter excludes candidates before they are added to the results.
	Filter func(T) bool

	// Fuzzy enables the similarity scan over records no tier claimed.
	Fuzzy bool

	// Threshold is the minimum fuzzy similarity, 0.0-1.0. Zero or less
	// selects the resolver default; values above 1 are treated as 1.
	Threshold float64

	// Skip lists tiers to leave out, by match type.
	Skip []domain.MatchType
}

// Resolver runs tiered resolution over a registry.
type Resolver[T domain.Record[T]] struct {
	reg *Registry[T]
	cfg ResolverConfig[T]
}

// NewResolver creates a resolver over reg.
func NewResolver[T domain.Record[T]](reg *Registry[T], cfg ResolverConfig[T]) *Resolver[T] {
	if cfg.DefaultThreshold <= 0 {
		cfg.DefaultThreshold = domain.DefaultFuzzyThreshold
	}
	return &Resolver[T]{reg: reg, cfg: cfg}
}

// Resolve returns ranked hits for q.Text, highest confidence first. Hits of
// equal confidence keep tier order. A query that normalises to nothing
// matches nothing.
func (r *Resolver[T]) Resolve(q Query[T]) []domain.MatchResult[T] {
	if matching.IndexKey(q.Text) == "" {
		return nil
	}
	threshold := r.threshold(q.Threshold)

	var results []domain.MatchResult[T]
	seen := make(map[string]struct{})
	accept := func(rec T) bool {
		if _, ok := seen[rec.RecordID()]; ok {
			return false
		}
		if q.Filter != nil && !q.Filter(rec) {
			return false
		}
		seen[rec.RecordID()] = struct{}{}
		return true
	}

	r.reg.View(func(s Snapshot[T]) {
		for _, tier := range r.cfg.Tiers {
			if slices.Contains(q.Skip, tier.MatchType) {
				continue
			}
			for _, rec := range s.Lookup(tier.Index, q.Text) {
				if accept(rec) {
					results = append(results, domain.MatchResult[T]{
						Record:     rec.Clone(),
						Confidence: tier.Confidence,
						MatchType:  tier.MatchType,
					})
				}
			}
		}

		if !q.Fuzzy || r.cfg.Similarity == nil || slices.Contains(q.Skip, domain.MatchFuzzy) {
			return
		}
		s.Each(func(rec T) bool {
			if _, ok := seen[rec.RecordID()]; ok {
				return true
			}
			sim := r.cfg.Similarity(q.Text, rec)
			if sim < threshold || !accept(rec) {
				return true
			}
			results = append(results, domain.MatchResult[T]{
				Record:     rec.Clone(),
				Confidence: matching.FuzzyConfidence(sim, threshold),
				MatchType:  domain.MatchFuzzy,
			})
			return true
		})
	})

	slices.SortStableFunc(results, func(a, b domain.MatchResult[T]) int {
		switch {
		case a.Confidence > b.Confidence:
			return -1
		case a.Confidence < b.Confidence:
			return 1
		default:
			return 0
		}
	})
	for _, res := range results {
		r.reg.opts.observer.Resolved(r.reg.kind, res.MatchType)
	}
	logger.Debug("resolve %s %q: %d hits", r.reg.kind, strings.TrimSpace(q.Text), len(results))
	return results
}

func (r *Resolver[T]) threshold(t float64) float64 {
	switch {
	case t <= 0:
		return r.cfg.DefaultThreshold
	case t > 1:
		return 1
	default:
		return t
	}
}
