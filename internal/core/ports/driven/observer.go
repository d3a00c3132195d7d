package driven

import (
	"time"

	"github.com/rickhohler/biographical/internal/core/domain"
)

// RegistryObserver receives registry events for metrics.
type RegistryObserver interface {
	// Mutated records a committed create, update, delete or load.
	Mutated(kind, op string)

	// Rebuilt records an index rebuild over size records.
	Rebuilt(kind string, size int, took time.Duration)

	// Resolved records one resolver hit.
	Resolved(kind string, matchType domain.MatchType)
}
