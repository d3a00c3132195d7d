package services

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rickhohler/biographical/internal/core/domain"
	"github.com/rickhohler/biographical/internal/core/ports/driven"
	"github.com/rickhohler/biographical/internal/core/ports/driving"
	"github.com/rickhohler/biographical/internal/matching"
)

// Ensure NameResolver implements the interface.
var _ driving.NameService = (*NameResolver)(nil)

// Confidences reported by ResolveToLanguage.
const (
	LanguagePrimaryConfidence   = 1.0
	LanguageCognateConfidence   = 0.95
	LanguageCrossFormConfidence = 0.85
)

// DefaultSuggestLimit caps SuggestVariants when the caller passes no limit.
const DefaultSuggestLimit = 10

// likelyVariantSimilarity is the similarity above which two unrelated
// names are described as spelling variants.
const likelyVariantSimilarity = 0.8

// NameResolver answers questions about names on top of a NameRegistry.
type NameResolver struct {
	*NameRegistry
	provider         driven.SimilarityProvider
	suggestThreshold float64
}

// NewNameResolver wraps reg. suggestThreshold applies to SuggestVariants;
// zero or less selects domain.DefaultSuggestThreshold.
func NewNameResolver(reg *NameRegistry, provider driven.SimilarityProvider, suggestThreshold float64) *NameResolver {
	if suggestThreshold <= 0 {
		suggestThreshold = domain.DefaultSuggestThreshold
	}
	return &NameResolver{NameRegistry: reg, provider: provider, suggestThreshold: suggestThreshold}
}

// ResolveToLanguage returns the forms of name in target. An entry already
// in target scores 1.0; a stored entry reached through a cognate form 0.95,
// through any other cross-language form 0.85. source, when set, restricts
// the starting entries to that language.
func (r *NameResolver) ResolveToLanguage(name, target, source string) []domain.LanguageForm {
	starts := r.SearchExact(name)
	if source != "" {
		starts = filterEntries(starts, inLanguage(source))
	}
	inTarget := inLanguage(target)

	var out []domain.LanguageForm
	for _, e := range starts {
		if inTarget(e) {
			out = append(out, domain.LanguageForm{Entry: e, Confidence: LanguagePrimaryConfidence})
			continue
		}
		for _, f := range e.CrossLanguageForms {
			if !matching.FoldCase(f.Language, target) {
				continue
			}
			conf := LanguageCrossFormConfidence
			if f.IsCognate {
				conf = LanguageCognateConfidence
			}
			for _, te := range filterEntries(r.SearchExact(f.Form), inTarget) {
				out = append(out, domain.LanguageForm{Entry: te, Confidence: conf})
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})
	return out
}

func filterEntries(in []domain.NameEntry, keep func(domain.NameEntry) bool) []domain.NameEntry {
	var out []domain.NameEntry
	for _, e := range in {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

// CognateGroup is FindCognateGroup.
func (r *NameResolver) CognateGroup(name string) map[string][]domain.NameEntry {
	return r.FindCognateGroup(name)
}

// FindByMeaning is FindByEtymology narrowed by name type and language when
// they are set.
func (r *NameResolver) FindByMeaning(meaning string, nameType domain.NameType, language string) []domain.NameEntry {
	out := r.FindByEtymology(meaning)
	if nameType != "" {
		out = filterEntries(out, ofType(nameType))
	}
	if language != "" {
		out = filterEntries(out, inLanguage(language))
	}
	return out
}

// FindOccupationalSurnames returns surnames whose meaning mentions occupation.
func (r *NameResolver) FindOccupationalSurnames(occupation string) []domain.NameEntry {
	return r.FindByMeaning(occupation, domain.NameTypeSurname, "")
}

// SuggestVariants resolves name with cognates and a relaxed fuzzy threshold
// and returns at most limit hits.
func (r *NameResolver) SuggestVariants(name string, limit int) []domain.MatchResult[domain.NameEntry] {
	if limit <= 0 {
		limit = DefaultSuggestLimit
	}
	out := r.Resolve(driving.NameQuery{Text: name, Fuzzy: true, Threshold: r.suggestThreshold})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// PhoneticMatch returns the entries sharing a method code with the first
// stored entry for name. When that entry stores no code for method, the code
// is derived from its name.
func (r *NameResolver) PhoneticMatch(name string, method matching.PhoneticMethod) ([]domain.NameEntry, error) {
	if !method.IsValid() {
		return nil, fmt.Errorf("%w: phonetic method %q", domain.ErrInvalidConfiguration, method)
	}
	entries := r.SearchExact(name)
	if len(entries) == 0 {
		return nil, nil
	}
	var codes []string
	for _, p := range entries[0].Phonetic {
		if p.Method == string(method) {
			codes = append(codes, p.Value)
		}
	}
	if len(codes) == 0 {
		code, err := matching.Encode(method, entries[0].Name)
		if err != nil {
			return nil, err
		}
		if code == "" {
			return nil, nil
		}
		codes = append(codes, code)
	}

	var out []domain.NameEntry
	seen := make(map[string]struct{})
	for _, c := range codes {
		for _, e := range r.SearchPhonetic(c, string(method)) {
			if _, ok := seen[e.ID]; ok {
				continue
			}
			seen[e.ID] = struct{}{}
			out = append(out, e)
		}
	}
	return out, nil
}

// CompareNames describes how two stored names relate. Names missing from
// the registry compare as unrelated with zero similarity.
func (r *NameResolver) CompareNames(name1, name2 string) domain.NameComparison {
	e1, e2 := r.SearchExact(name1), r.SearchExact(name2)
	if len(e1) == 0 || len(e2) == 0 {
		return domain.NameComparison{Description: "One or both names not found"}
	}
	a, b := e1[0], e2[0]

	cmp := domain.NameComparison{
		AreCognates: listsCognate(a, name2) || listsCognate(b, name1),
		Similarity:  r.provider.NameRatio(matching.NormalizeName(name1), matching.NormalizeName(name2)) / 100,
	}
	if a.Etymology != nil && b.Etymology != nil && a.Etymology.Meaning != "" && b.Etymology.Meaning != "" {
		ma, mb := strings.ToLower(a.Etymology.Meaning), strings.ToLower(b.Etymology.Meaning)
		cmp.SharedEtymology = strings.Contains(ma, mb) || strings.Contains(mb, ma)
	}

	switch {
	case cmp.AreCognates:
		cmp.Description = fmt.Sprintf("'%s' and '%s' are cognates across languages", name1, name2)
	case cmp.SharedEtymology:
		cmp.Description = fmt.Sprintf("'%s' and '%s' share etymological roots", name1, name2)
	case cmp.Similarity > likelyVariantSimilarity:
		cmp.Description = fmt.Sprintf("'%s' and '%s' are likely spelling variants", name1, name2)
	default:
		cmp.Description = fmt.Sprintf("'%s' and '%s' appear to be distinct names", name1, name2)
	}
	return cmp
}

func listsCognate(e domain.NameEntry, name string) bool {
	key := matching.IndexKey(name)
	for _, f := range e.CrossLanguageForms {
		if f.IsCognate && matching.IndexKey(f.Form) == key {
			return true
		}
	}
	return false
}

// Summary flattens the first stored entry for name.
func (r *NameResolver) Summary(name string) (domain.NameSummary, bool) {
	entries := r.SearchExact(name)
	if len(entries) == 0 {
		return domain.NameSummary{}, false
	}
	e := entries[0]
	s := domain.NameSummary{
		Name:             e.Name,
		Type:             e.NameType,
		SpellingVariants: e.VariantForms(),
		Cognates:         make(map[string]string),
		GeographicUsage:  e.GeographicUsage,
	}
	if e.LanguageOrigin != nil {
		s.Language = e.LanguageOrigin.PrimaryLanguage
		s.LanguageFamily = e.LanguageOrigin.LanguageFamily
	}
	if e.Etymology != nil {
		s.Meaning = e.Etymology.Meaning
		s.EnglishTranslation = e.Etymology.EnglishTranslation
	}
	for _, f := range e.CrossLanguageForms {
		if f.IsCognate {
			s.Cognates[f.Language] = f.Form
		}
	}
	return s, true
}
