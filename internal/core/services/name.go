package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rickhohler/biographical/internal/core/domain"
	"github.com/rickhohler/biographical/internal/core/ports/driven"
	"github.com/rickhohler/biographical/internal/core/ports/driving"
	"github.com/rickhohler/biographical/internal/logger"
	"github.com/rickhohler/biographical/internal/matching"
)

// Name index names.
const (
	NameIndexName     = "name"
	NameIndexVariant  = "variant"
	NameIndexCognate  = "cognate"
	NameIndexPhonetic = "phonetic"
)

// NameKind names the name registry in logs, metrics and documents.
const NameKind = "names"

func nameSpecs() []IndexSpec[domain.NameEntry] {
	return []IndexSpec[domain.NameEntry]{
		{Name: NameIndexName, Keys: func(e domain.NameEntry) []string {
			return []string{e.Name}
		}},
		{Name: NameIndexVariant, Keys: func(e domain.NameEntry) []string {
			return e.VariantForms()
		}},
		{Name: NameIndexCognate, Keys: func(e domain.NameEntry) []string {
			out := make([]string, 0, len(e.CrossLanguageForms))
			for _, f := range e.CrossLanguageForms {
				out = append(out, f.Form)
			}
			return out
		}},
		{Name: NameIndexPhonetic, Key: phoneticKey, Keys: func(e domain.NameEntry) []string {
			codes := phoneticCodes(e)
			out := make([]string, 0, len(codes))
			for _, c := range codes {
				out = append(out, c.Value)
			}
			return out
		}},
	}
}

func phoneticKey(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// phoneticCodes returns the stored encodings of e plus derived ones for each
// default method the data does not cover.
func phoneticCodes(e domain.NameEntry) []domain.PhoneticEncoding {
	out := append([]domain.PhoneticEncoding(nil), e.Phonetic...)
	have := make(map[string]bool, len(e.Phonetic))
	for _, p := range e.Phonetic {
		have[p.Method] = true
	}
	var missing []matching.PhoneticMethod
	for _, m := range matching.DefaultPhoneticMethods {
		if !have[string(m)] {
			missing = append(missing, m)
		}
	}
	derived, err := matching.Encodings(e.Name, missing)
	if err != nil {
		logger.Warn("names: phonetic codes for %q: %v", e.Name, err)
		return out
	}
	return append(out, derived...)
}

// NameRegistry holds name entries and resolves name forms.
type NameRegistry struct {
	reg      *Registry[domain.NameEntry]
	resolver *Resolver[domain.NameEntry]
	store    driven.RecordStore[domain.NameEntry]
	now      func() time.Time
}

// NewNameRegistry creates a name registry over store. provider scores fuzzy
// candidates; threshold is the default fuzzy threshold.
func NewNameRegistry(store driven.RecordStore[domain.NameEntry], provider driven.SimilarityProvider, threshold float64, opts ...RegistryOption) *NameRegistry {
	reg := NewRegistry(NameKind, store, nameSpecs(), opts...)
	resolver := NewResolver(reg, ResolverConfig[domain.NameEntry]{
		Tiers: []Tier{
			{Index: NameIndexName, MatchType: domain.MatchExact, Confidence: domain.ConfidenceExact},
			{Index: NameIndexVariant, MatchType: domain.MatchVariant, Confidence: domain.ConfidenceVariant},
			{Index: NameIndexCognate, MatchType: domain.MatchCognate, Confidence: domain.ConfidenceCognate},
		},
		Similarity: func(query string, e domain.NameEntry) float64 {
			return provider.NameRatio(matching.NormalizeName(query), matching.NormalizeName(e.Name)) / 100
		},
		DefaultThreshold: threshold,
	})
	return &NameRegistry{reg: reg, resolver: resolver, store: store, now: time.Now}
}

// Load replaces the registry contents from the store.
func (r *NameRegistry) Load(ctx context.Context) error { return r.reg.Load(ctx) }

// Save writes the registry contents to the store.
func (r *NameRegistry) Save(ctx context.Context) error { return r.reg.Save(ctx) }

// ReloadIfSaved reloads from the store unless there are unsaved changes,
// and reports whether it did.
func (r *NameRegistry) ReloadIfSaved(ctx context.Context) (bool, error) { return r.reg.ReloadIfSaved(ctx) }

// Unsaved reports whether there are changes not yet written by Save.
func (r *NameRegistry) Unsaved() bool { return r.reg.Unsaved() }

// Backup snapshots the stored document when the store supports it.
func (r *NameRegistry) Backup(ctx context.Context) (string, error) {
	b, ok := r.store.(driven.Backupper)
	if !ok {
		return "", fmt.Errorf("backup %s: %w", NameKind, domain.ErrNotImplemented)
	}
	return b.Backup(ctx)
}

// Create adds an entry, stamping date_added and date_modified when unset.
func (r *NameRegistry) Create(e domain.NameEntry) (domain.NameEntry, error) {
	if e.NameType != "" && !e.NameType.IsValid() {
		return domain.NameEntry{}, fmt.Errorf("create %s %q: %w: name type %q", NameKind, e.ID, domain.ErrInvalidInput, e.NameType)
	}
	now := r.now()
	if e.DateAdded == nil {
		e.DateAdded = &now
	}
	if e.DateModified == nil {
		e.DateModified = &now
	}
	return r.reg.Create(e)
}

// Read returns the entry with id.
func (r *NameRegistry) Read(id string) (domain.NameEntry, bool) { return r.reg.Read(id) }

// Update replaces an entry. date_added is kept from the stored entry and
// date_modified is stamped.
func (r *NameRegistry) Update(e domain.NameEntry) (domain.NameEntry, error) {
	if e.NameType != "" && !e.NameType.IsValid() {
		return domain.NameEntry{}, fmt.Errorf("update %s %q: %w: name type %q", NameKind, e.ID, domain.ErrInvalidInput, e.NameType)
	}
	return r.reg.Mutate(e.ID, func(cur *domain.NameEntry) error {
		added := cur.DateAdded
		*cur = e.Clone()
		if added != nil {
			cur.DateAdded = added
		}
		r.touch(cur)
		return nil
	})
}

// Delete removes an entry and reports whether it existed.
func (r *NameRegistry) Delete(id string) bool { return r.reg.Delete(id) }

// Len returns the number of entries.
func (r *NameRegistry) Len() int { return r.reg.Len() }

// List returns every entry, or only those of nameType when it is set.
func (r *NameRegistry) List(nameType domain.NameType) []domain.NameEntry {
	if nameType == "" {
		return r.reg.List()
	}
	return r.reg.List(ofType(nameType))
}

func ofType(t domain.NameType) func(domain.NameEntry) bool {
	return func(e domain.NameEntry) bool { return e.NameType == t }
}

func (r *NameRegistry) touch(e *domain.NameEntry) {
	now := r.now()
	e.DateModified = &now
}

// SearchExact returns entries whose name or a spelling variant equals name,
// ignoring case and punctuation. Primary-name hits come first.
func (r *NameRegistry) SearchExact(name string) []domain.NameEntry {
	var out []domain.NameEntry
	seen := make(map[string]struct{})
	r.reg.View(func(s Snapshot[domain.NameEntry]) {
		for _, idx := range []string{NameIndexName, NameIndexVariant} {
			for _, e := range s.Lookup(idx, name) {
				if _, ok := seen[e.ID]; ok {
					continue
				}
				seen[e.ID] = struct{}{}
				out = append(out, e.Clone())
			}
		}
	})
	return out
}

// SearchPhonetic returns entries carrying code. A non-empty method restricts
// hits to encodings produced by that method. Codes derived from the name are
// searched alongside stored ones.
func (r *NameRegistry) SearchPhonetic(code, method string) []domain.NameEntry {
	want := phoneticKey(code)
	var out []domain.NameEntry
	r.reg.View(func(s Snapshot[domain.NameEntry]) {
		for _, e := range s.Lookup(NameIndexPhonetic, code) {
			for _, p := range phoneticCodes(e) {
				if phoneticKey(p.Value) == want && (method == "" || p.Method == method) {
					out = append(out, e.Clone())
					break
				}
			}
		}
	})
	return out
}

// SearchCognates returns entries listing name as a cross-language form.
func (r *NameRegistry) SearchCognates(name string) []domain.NameEntry {
	return r.reg.Lookup(NameIndexCognate, name)
}

// Search runs the indexed tiers only: exact (1.0), variant (0.9) unless
// excluded, and cognate (0.8) when requested.
func (r *NameRegistry) Search(query string, opts driving.NameSearchOptions) []domain.MatchResult[domain.NameEntry] {
	q := Query[domain.NameEntry]{Text: query}
	if opts.NameType != "" {
		q.Filter = ofType(opts.NameType)
	}
	if opts.ExcludeVariants {
		q.Skip = append(q.Skip, domain.MatchVariant)
	}
	if !opts.IncludeCognates {
		q.Skip = append(q.Skip, domain.MatchCognate)
	}
	return r.resolver.Resolve(q)
}

// Resolve runs every tier: exact, variant, cognate unless excluded, then
// fuzzy when requested.
func (r *NameRegistry) Resolve(q driving.NameQuery) []domain.MatchResult[domain.NameEntry] {
	query := Query[domain.NameEntry]{
		Text:      q.Text,
		Fuzzy:     q.Fuzzy,
		Threshold: q.Threshold,
	}
	if q.NameType != "" {
		query.Filter = ofType(q.NameType)
	}
	if q.ExcludeCognates {
		query.Skip = []domain.MatchType{domain.MatchCognate}
	}
	return r.resolver.Resolve(query)
}

// FindByEtymology returns entries whose meaning, English translation or a
// root word meaning contains meaning, case-insensitively.
func (r *NameRegistry) FindByEtymology(meaning string) []domain.NameEntry {
	needle := strings.ToLower(strings.TrimSpace(meaning))
	if needle == "" {
		return nil
	}
	contains := func(s string) bool {
		return s != "" && strings.Contains(strings.ToLower(s), needle)
	}
	return r.reg.List(func(e domain.NameEntry) bool {
		et := e.Etymology
		if et == nil {
			return false
		}
		if contains(et.Meaning) || contains(et.EnglishTranslation) {
			return true
		}
		for _, root := range et.RootWords {
			if contains(root.Meaning) {
				return true
			}
		}
		return false
	})
}

// FindByLanguage returns entries whose primary language is language.
func (r *NameRegistry) FindByLanguage(language string) []domain.NameEntry {
	return r.reg.List(inLanguage(language))
}

func inLanguage(language string) func(domain.NameEntry) bool {
	return func(e domain.NameEntry) bool {
		return e.PrimaryLanguage() != "" && matching.FoldCase(e.PrimaryLanguage(), language)
	}
}

// FindCognateGroup groups name and its cognate forms by language. Only
// forms flagged as cognates that resolve to stored entries are included.
func (r *NameRegistry) FindCognateGroup(name string) map[string][]domain.NameEntry {
	primaries := r.SearchExact(name)
	if len(primaries) == 0 {
		return nil
	}
	group := make(map[string][]domain.NameEntry)
	for _, e := range primaries {
		if lang := e.PrimaryLanguage(); lang != "" {
			group[lang] = append(group[lang], e)
		}
		for _, f := range e.CrossLanguageForms {
			if !f.IsCognate {
				continue
			}
			group[f.Language] = append(group[f.Language], r.SearchExact(f.Form)...)
		}
	}
	return group
}

// Statistics summarises the registry.
func (r *NameRegistry) Statistics() domain.NameStats {
	stats := domain.NameStats{
		ByType:     make(map[string]int),
		ByLanguage: make(map[string]int),
	}
	r.reg.View(func(s Snapshot[domain.NameEntry]) {
		stats.TotalEntries = s.Len()
		s.Each(func(e domain.NameEntry) bool {
			stats.ByType[string(e.NameType)]++
			if lang := e.PrimaryLanguage(); lang != "" {
				stats.ByLanguage[lang]++
			}
			if e.Etymology != nil {
				stats.WithEtymology++
			}
			if len(e.Phonetic) > 0 {
				stats.WithPhonetic++
			}
			if len(e.CrossLanguageForms) > 0 {
				stats.WithCognates++
			}
			return true
		})
	})
	return stats
}

// MergeGeographicUsage merges usages into the entry with id.
// An unsupported strategy fails with domain.ErrInvalidConfiguration.
func (r *NameRegistry) MergeGeographicUsage(id string, usages []domain.GeographicUsage, strategy domain.MergeStrategy) (domain.NameEntry, error) {
	if !strategy.IsValid() {
		return domain.NameEntry{}, fmt.Errorf("%w: merge strategy %q", domain.ErrInvalidConfiguration, strategy)
	}
	return r.reg.Mutate(id, func(e *domain.NameEntry) error {
		e.GeographicUsage = domain.MergeUsage(e.GeographicUsage, usages, strategy)
		r.touch(e)
		return nil
	})
}

// ApplyPatch replaces the fields set in patch on the entry with id.
func (r *NameRegistry) ApplyPatch(id string, patch domain.NamePatch) (domain.NameEntry, error) {
	if patch.NameType != nil && !patch.NameType.IsValid() {
		return domain.NameEntry{}, fmt.Errorf("patch %s %q: %w: name type %q", NameKind, id, domain.ErrInvalidInput, *patch.NameType)
	}
	return r.reg.Mutate(id, func(e *domain.NameEntry) error {
		*e = patch.Apply(*e)
		r.touch(e)
		return nil
	})
}
