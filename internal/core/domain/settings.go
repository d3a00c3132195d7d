package domain

const unknownDescription = "Unknown"

// SimilarityBackend selects the text similarity implementation.
type SimilarityBackend string

// Available similarity backends.
const (
	// SimilarityFuzzy uses Levenshtein ratios (token-sort for names, partial for places).
	SimilarityFuzzy SimilarityBackend = "fuzzy"

	// SimilarityJaroWinkler uses Jaro-Winkler distance on sorted tokens.
	SimilarityJaroWinkler SimilarityBackend = "jaro_winkler"

	// SimilarityBasic is the fallback: exact, containment, or nothing.
	SimilarityBasic SimilarityBackend = "basic"
)

// IsValid returns true if the backend is recognised.
func (b SimilarityBackend) IsValid() bool {
	switch b {
	case SimilarityFuzzy, SimilarityJaroWinkler, SimilarityBasic:
		return true
	default:
		return false
	}
}

// IsDegraded returns true for the fallback backend.
func (b SimilarityBackend) IsDegraded() bool {
	return b == SimilarityBasic
}

// String returns the string representation.
func (b SimilarityBackend) String() string {
	return string(b)
}

// Description returns a human-readable description of the backend.
func (b SimilarityBackend) Description() string {
	switch b {
	case SimilarityFuzzy:
		return "Fuzzy (token-sort and partial Levenshtein ratios)"
	case SimilarityJaroWinkler:
		return "Jaro-Winkler (prefix-weighted edit similarity)"
	case SimilarityBasic:
		return "Basic (exact or substring only)"
	default:
		return unknownDescription
	}
}

// StorageBackend selects where registries persist.
type StorageBackend string

// Available storage backends.
const (
	// StorageFile keeps JSON registry documents and one YAML file per person.
	StorageFile StorageBackend = "file"

	// StorageSQLite keeps every record in a single SQLite database.
	StorageSQLite StorageBackend = "sqlite"
)

// IsValid returns true if the storage backend is recognised.
func (b StorageBackend) IsValid() bool {
	return b == StorageFile || b == StorageSQLite
}

// String returns the string representation.
func (b StorageBackend) String() string {
	return string(b)
}

// ResolverSettings tunes the fuzzy tier.
type ResolverSettings struct {
	// FuzzyThreshold is the minimum 0-1 similarity for a fuzzy hit.
	FuzzyThreshold float64

	// SuggestThreshold is the minimum 0-1 similarity for variant suggestions.
	SuggestThreshold float64
}

// ScoringSettings overrides confidence factor weights by key
// (name, birth_year, parents, location).
type ScoringSettings struct {
	Weights map[string]float64
}

// StorageSettings holds persistence configuration.
type StorageSettings struct {
	Backend StorageBackend

	// DataDir is the root directory for registry files or the database.
	DataDir string

	// Watch reloads registries when their files change on disk.
	Watch bool
}

// AppSettings holds all application settings.
type AppSettings struct {
	Similarity SimilarityBackend
	Resolver   ResolverSettings
	Scoring    ScoringSettings
	Storage    StorageSettings
}

// Defaults for AppSettings.
const (
	DefaultFuzzyThreshold   = 0.7
	DefaultSuggestThreshold = 0.6
	DefaultDataDir          = "data"
)

// DefaultAppSettings returns settings with sensible defaults.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Similarity: SimilarityFuzzy,
		Resolver: ResolverSettings{
			FuzzyThreshold:   DefaultFuzzyThreshold,
			SuggestThreshold: DefaultSuggestThreshold,
		},
		Storage: StorageSettings{
			Backend: StorageFile,
			DataDir: DefaultDataDir,
		},
	}
}

// AllSimilarityBackends returns all available similarity backends.
func AllSimilarityBackends() []SimilarityBackend {
	return []SimilarityBackend{
		SimilarityFuzzy,
		SimilarityJaroWinkler,
		SimilarityBasic,
	}
}
