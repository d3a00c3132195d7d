package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNameType_IsValid(t *testing.T) {
	assert.True(t, NameTypeSurname.IsValid())
	assert.True(t, NameTypePatronymic.IsValid())
	assert.False(t, NameType("nickname").IsValid())
}

func TestNameEntry_CloneIsDeep(t *testing.T) {
	conf := 0.9
	orig := NameEntry{
		ID:               "name_johann",
		Name:             "Johann",
		NameType:         NameTypeGiven,
		LanguageOrigin:   &LanguageOrigin{PrimaryLanguage: "German"},
		SpellingVariants: []SpellingVariant{{Form: "Johan"}},
		Etymology:        &EtymologyInfo{Meaning: "God is gracious", RootWords: []RootWord{{Word: "yo"}}},
		Confidence:       &conf,
	}

	c := orig.Clone()
	c.LanguageOrigin.PrimaryLanguage = "Danish"
	c.SpellingVariants[0].Form = "Jon"
	c.Etymology.RootWords[0].Word = "x"
	*c.Confidence = 0.1

	assert.Equal(t, "German", orig.PrimaryLanguage())
	assert.Equal(t, []string{"Johan"}, orig.VariantForms())
	assert.Equal(t, "yo", orig.Etymology.RootWords[0].Word)
	assert.InDelta(t, 0.9, *orig.Confidence, 1e-9)
}

func TestMergeUsage(t *testing.T) {
	existing := []GeographicUsage{
		{Region: "Bavaria", Country: "Germany"},
		{Region: "Volga", Country: "Russia", TimePeriod: "1800s"},
	}
	incoming := []GeographicUsage{
		{Region: "Bavaria", Country: "Germany"},
		{Region: "North Dakota", Country: "USA"},
	}

	t.Run("accumulate dedupes on key", func(t *testing.T) {
		got := MergeUsage(existing, incoming, MergeAccumulate)
		assert.Len(t, got, 3)
		assert.Equal(t, "North Dakota", got[2].Region)
	})

	t.Run("accumulate ignores frequency for identity", func(t *testing.T) {
		got := MergeUsage(existing, []GeographicUsage{{Region: "Bavaria", Country: "Germany", Frequency: "common"}}, MergeAccumulate)
		assert.Len(t, got, 2)
	})

	t.Run("replace discards existing", func(t *testing.T) {
		got := MergeUsage(existing, incoming, MergeReplace)
		assert.Equal(t, incoming, got)
	})
}

func TestMergeStrategy_IsValid(t *testing.T) {
	assert.True(t, MergeAccumulate.IsValid())
	assert.True(t, MergeReplace.IsValid())
	assert.False(t, MergeStrategy("union").IsValid())
}

func TestNamePatch_Apply(t *testing.T) {
	entry := NameEntry{ID: "n1", Name: "Johann", NameType: NameTypeGiven, Notes: "old"}
	name := "Johannes"
	notes := "new"

	got := NamePatch{Name: &name, Notes: &notes}.Apply(entry)

	assert.Equal(t, "Johannes", got.Name)
	assert.Equal(t, "new", got.Notes)
	assert.Equal(t, NameTypeGiven, got.NameType)
	assert.Equal(t, "Johann", entry.Name)
}
