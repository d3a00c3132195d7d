package driving

import (
	"context"

	"github.com/rickhohler/biographical/internal/core/domain"
	"github.com/rickhohler/biographical/internal/matching"
)

// NameSearchOptions tunes NameService.Search.
type NameSearchOptions struct {
	ExcludeVariants bool
	IncludeCognates bool
	NameType        domain.NameType
}

// NameQuery is a name resolution request.
type NameQuery struct {
	Text            string
	NameType        domain.NameType
	Fuzzy           bool
	ExcludeCognates bool

	// Threshold is the minimum fuzzy similarity, 0.0-1.0. Zero selects
	// the configured default.
	Threshold float64
}

// NameService manages name entries and answers linguistic questions about
// them.
type NameService interface {
	Load(ctx context.Context) error
	Save(ctx context.Context) error

	// Backup snapshots the stored document and returns the backup path.
	// Returns domain.ErrNotImplemented when the store keeps no backups.
	Backup(ctx context.Context) (string, error)

	Create(e domain.NameEntry) (domain.NameEntry, error)
	Read(id string) (domain.NameEntry, bool)
	Update(e domain.NameEntry) (domain.NameEntry, error)
	Delete(id string) bool
	List(nameType domain.NameType) []domain.NameEntry

	// SearchExact matches the name and its spelling variants.
	SearchExact(name string) []domain.NameEntry

	// SearchPhonetic returns entries carrying code under method.
	SearchPhonetic(code, method string) []domain.NameEntry

	// SearchCognates returns entries reached through cognate forms.
	SearchCognates(name string) []domain.NameEntry

	Search(query string, opts NameSearchOptions) []domain.MatchResult[domain.NameEntry]
	Resolve(q NameQuery) []domain.MatchResult[domain.NameEntry]

	FindByEtymology(meaning string) []domain.NameEntry
	FindByLanguage(language string) []domain.NameEntry
	FindCognateGroup(name string) map[string][]domain.NameEntry
	Statistics() domain.NameStats

	// MergeGeographicUsage folds usages into the entry with id.
	// Returns domain.ErrInvalidConfiguration for an unknown strategy.
	MergeGeographicUsage(id string, usages []domain.GeographicUsage, strategy domain.MergeStrategy) (domain.NameEntry, error)

	// ApplyPatch merges patch into the entry with id.
	ApplyPatch(id string, patch domain.NamePatch) (domain.NameEntry, error)

	ResolveToLanguage(name, target, source string) []domain.LanguageForm
	FindByMeaning(meaning string, nameType domain.NameType, language string) []domain.NameEntry
	FindOccupationalSurnames(occupation string) []domain.NameEntry
	SuggestVariants(name string, limit int) []domain.MatchResult[domain.NameEntry]
	PhoneticMatch(name string, method matching.PhoneticMethod) ([]domain.NameEntry, error)
	CompareNames(name1, name2 string) domain.NameComparison
	Summary(name string) (domain.NameSummary, bool)
}
