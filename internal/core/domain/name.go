package domain

import (
	"maps"
	"slices"
	"time"
)

// NameType classifies how a name-form is used.
type NameType string

// Known name types.
const (
	NameTypeGiven      NameType = "given"
	NameTypeMiddle     NameType = "middle"
	NameTypeSurname    NameType = "surname"
	NameTypePatronymic NameType = "patronymic"
	NameTypePrefix     NameType = "prefix"
)

// IsValid returns true if the name type is recognised.
func (t NameType) IsValid() bool {
	switch t {
	case NameTypeGiven, NameTypeMiddle, NameTypeSurname, NameTypePatronymic, NameTypePrefix:
		return true
	default:
		return false
	}
}

// LanguageOrigin is the language a name comes from.
type LanguageOrigin struct {
	PrimaryLanguage string `json:"primary_language" validate:"required"`
	LanguageFamily  string `json:"language_family,omitempty"`
	OriginPeriod    string `json:"origin_period,omitempty"`
}

// CrossLanguageForm is the same name in another language or script.
type CrossLanguageForm struct {
	Form      string `json:"form" validate:"required"`
	Language  string `json:"language" validate:"required"`
	Script    string `json:"script,omitempty"`
	IsCognate bool   `json:"is_cognate"`
}

// SpellingVariant is an alternate spelling of a name.
type SpellingVariant struct {
	Form       string `json:"form" validate:"required"`
	Context    string `json:"context,omitempty"`
	TimePeriod string `json:"time_period,omitempty"`
	Region     string `json:"region,omitempty"`
}

// RootWord is one etymological component.
type RootWord struct {
	Word    string `json:"word" validate:"required"`
	Meaning string `json:"meaning"`
}

// EtymologyInfo describes the meaning and roots of a name.
type EtymologyInfo struct {
	Meaning            string     `json:"meaning,omitempty"`
	EnglishTranslation string     `json:"english_translation,omitempty"`
	OriginLanguage     string     `json:"origin_language,omitempty"`
	RootWords          []RootWord `json:"root_words,omitempty" validate:"omitempty,dive"`
	HistoricalContext  string     `json:"historical_context,omitempty"`
}

// GeographicUsage records where and when a name was used.
type GeographicUsage struct {
	LocationID string `json:"location_id,omitempty"`
	Region     string `json:"region" validate:"required"`
	Country    string `json:"country,omitempty"`
	TimePeriod string `json:"time_period,omitempty"`
	Frequency  string `json:"frequency,omitempty"`
}

func (g GeographicUsage) key() [4]string {
	return [4]string{g.LocationID, g.Region, g.Country, g.TimePeriod}
}

// PhoneticEncoding is a precomputed phonetic code for a name.
type PhoneticEncoding struct {
	Value  string `json:"value" validate:"required"`
	Method string `json:"method" validate:"required"`
}

// NameChangeEvent records a deliberate change of a family name.
type NameChangeEvent struct {
	FromName            string `json:"from_name" validate:"required"`
	ToName              string `json:"to_name" validate:"required"`
	Date                string `json:"date,omitempty"`
	PersonID            string `json:"person_id,omitempty"`
	PersonName          string `json:"person_name,omitempty"`
	Reason              string `json:"reason,omitempty"`
	ReasonCategory      string `json:"reason_category,omitempty"`
	Location            string `json:"location,omitempty"`
	LocationID          string `json:"location_id,omitempty"`
	Documentation       string `json:"documentation,omitempty"`
	AffectedDescendants bool   `json:"affected_descendants"`
	Notes               string `json:"notes,omitempty"`
}

// NameEntry describes a NAME, not a person who carries it.
type NameEntry struct {
	ID                 string              `json:"id" validate:"required"`
	Name               string              `json:"name" validate:"required"`
	NameType           NameType            `json:"name_type" validate:"required"`
	LanguageOrigin     *LanguageOrigin     `json:"language_origin,omitempty"`
	CrossLanguageForms []CrossLanguageForm `json:"cross_language_forms,omitempty" validate:"omitempty,dive"`
	SpellingVariants   []SpellingVariant   `json:"spelling_variants,omitempty" validate:"omitempty,dive"`
	Etymology          *EtymologyInfo      `json:"etymology,omitempty"`
	GeographicUsage    []GeographicUsage   `json:"geographic_usage,omitempty" validate:"omitempty,dive"`
	Phonetic           []PhoneticEncoding  `json:"phonetic,omitempty" validate:"omitempty,dive"`
	NameChanges        []NameChangeEvent   `json:"name_changes,omitempty" validate:"omitempty,dive"`
	Notes              string              `json:"notes,omitempty"`

	// Confidence is in [0.0, 1.0] that this is a valid name.
	Confidence        *float64       `json:"confidence,omitempty" validate:"omitempty,gte=0,lte=1"`
	ConfidenceFactors map[string]any `json:"confidence_factors,omitempty"`

	DateAdded    *time.Time `json:"date_added,omitempty"`
	DateModified *time.Time `json:"date_modified,omitempty"`
}

// RecordID implements Record.
func (n NameEntry) RecordID() string { return n.ID }

// Clone implements Record.
func (n NameEntry) Clone() NameEntry {
	c := n
	if n.LanguageOrigin != nil {
		lo := *n.LanguageOrigin
		c.LanguageOrigin = &lo
	}
	c.CrossLanguageForms = slices.Clone(n.CrossLanguageForms)
	c.SpellingVariants = slices.Clone(n.SpellingVariants)
	if n.Etymology != nil {
		e := *n.Etymology
		e.RootWords = slices.Clone(n.Etymology.RootWords)
		c.Etymology = &e
	}
	c.GeographicUsage = slices.Clone(n.GeographicUsage)
	c.Phonetic = slices.Clone(n.Phonetic)
	c.NameChanges = slices.Clone(n.NameChanges)
	if n.Confidence != nil {
		v := *n.Confidence
		c.Confidence = &v
	}
	c.ConfidenceFactors = maps.Clone(n.ConfidenceFactors)
	if n.DateAdded != nil {
		t := *n.DateAdded
		c.DateAdded = &t
	}
	if n.DateModified != nil {
		t := *n.DateModified
		c.DateModified = &t
	}
	return c
}

// PrimaryLanguage returns the origin language, or "" when unknown.
func (n NameEntry) PrimaryLanguage() string {
	if n.LanguageOrigin == nil {
		return ""
	}
	return n.LanguageOrigin.PrimaryLanguage
}

// VariantForms returns the spelling variant forms.
func (n NameEntry) VariantForms() []string {
	out := make([]string, 0, len(n.SpellingVariants))
	for _, v := range n.SpellingVariants {
		out = append(out, v.Form)
	}
	return out
}

// MergeStrategy controls MergeGeographicUsage.
type MergeStrategy string

// Supported merge strategies.
const (
	MergeAccumulate MergeStrategy = "accumulate"
	MergeReplace    MergeStrategy = "replace"
)

// IsValid returns true if the strategy is supported.
func (s MergeStrategy) IsValid() bool {
	return s == MergeAccumulate || s == MergeReplace
}

// MergeUsage merges usages into existing according to strategy. Accumulate
// keeps existing entries and appends new ones whose (location, region,
// country, period) key is not present yet.
func MergeUsage(existing, incoming []GeographicUsage, strategy MergeStrategy) []GeographicUsage {
	if strategy == MergeReplace {
		return slices.Clone(incoming)
	}
	seen := make(map[[4]string]struct{}, len(existing))
	out := slices.Clone(existing)
	for _, gu := range existing {
		seen[gu.key()] = struct{}{}
	}
	for _, gu := range incoming {
		if _, ok := seen[gu.key()]; ok {
			continue
		}
		seen[gu.key()] = struct{}{}
		out = append(out, gu)
	}
	return out
}

// NamePatch carries optional field replacements for a name entry.
// Nil fields are left unchanged.
type NamePatch struct {
	Name               *string
	NameType           *NameType
	LanguageOrigin     *LanguageOrigin
	CrossLanguageForms []CrossLanguageForm
	SpellingVariants   []SpellingVariant
	Etymology          *EtymologyInfo
	Phonetic           []PhoneticEncoding
	Notes              *string
	Confidence         *float64
}

// Apply returns a copy of entry with the patch applied.
func (p NamePatch) Apply(entry NameEntry) NameEntry {
	out := entry.Clone()
	if p.Name != nil {
		out.Name = *p.Name
	}
	if p.NameType != nil {
		out.NameType = *p.NameType
	}
	if p.LanguageOrigin != nil {
		lo := *p.LanguageOrigin
		out.LanguageOrigin = &lo
	}
	if p.CrossLanguageForms != nil {
		out.CrossLanguageForms = slices.Clone(p.CrossLanguageForms)
	}
	if p.SpellingVariants != nil {
		out.SpellingVariants = slices.Clone(p.SpellingVariants)
	}
	if p.Etymology != nil {
		e := *p.Etymology
		out.Etymology = &e
	}
	if p.Phonetic != nil {
		out.Phonetic = slices.Clone(p.Phonetic)
	}
	if p.Notes != nil {
		out.Notes = *p.Notes
	}
	if p.Confidence != nil {
		v := *p.Confidence
		out.Confidence = &v
	}
	return out
}

// NameStats summarises a name registry.
type NameStats struct {
	TotalEntries  int            `json:"total_entries"`
	ByType        map[string]int `json:"by_type"`
	ByLanguage    map[string]int `json:"by_language"`
	WithEtymology int            `json:"with_etymology"`
	WithPhonetic  int            `json:"with_phonetic"`
	WithCognates  int            `json:"with_cognates"`
}

// LanguageForm pairs a name entry with the confidence it is the requested
// language's form.
type LanguageForm struct {
	Entry      NameEntry
	Confidence float64
}

// NameComparison describes the relationship between two names.
type NameComparison struct {
	AreCognates     bool    `json:"are_cognates"`
	Similarity      float64 `json:"similarity_score"`
	SharedEtymology bool    `json:"shared_etymology"`
	Description     string  `json:"relationship_description"`
}

// NameSummary is a flattened view of a name entry.
type NameSummary struct {
	Name               string            `json:"name"`
	Type               NameType          `json:"type"`
	Language           string            `json:"language,omitempty"`
	LanguageFamily     string            `json:"language_family,omitempty"`
	Meaning            string            `json:"meaning,omitempty"`
	EnglishTranslation string            `json:"english_translation,omitempty"`
	SpellingVariants   []string          `json:"spelling_variants"`
	Cognates           map[string]string `json:"cognates"`
	GeographicUsage    []GeographicUsage `json:"geographic_usage"`
}
