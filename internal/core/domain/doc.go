// Package domain defines the core entities for the biographical registries.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Location: A place with modern and historical names, hierarchy and geocode
//   - NameEntry: A name-form with variants, cross-language forms and etymology
//   - Person: A biographical person record
//   - MatchResult: A transient, ranked query hit
//   - ConfidenceBreakdown: Per-factor scores behind a person match
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
