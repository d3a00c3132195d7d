package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickhohler/biographical/internal/core/domain"
	"github.com/rickhohler/biographical/internal/core/ports/driven"
)

func providers() []driven.SimilarityProvider {
	return []driven.SimilarityProvider{NewFuzzy(), NewJaroWinkler(), NewBasic()}
}

func TestProviders_IdenticalScores100(t *testing.T) {
	for _, p := range providers() {
		t.Run(p.Backend().String(), func(t *testing.T) {
			for _, s := range []string{"hans mueller", "harvey wells county north dakota usa", "x"} {
				assert.InDelta(t, 100.0, p.NameRatio(s, s), 1e-9)
				assert.InDelta(t, 100.0, p.LocationRatio(s, s), 1e-9)
			}
		})
	}
}

func TestProviders_EmptyScoresZero(t *testing.T) {
	for _, p := range providers() {
		t.Run(p.Backend().String(), func(t *testing.T) {
			assert.Zero(t, p.NameRatio("", "hans"))
			assert.Zero(t, p.NameRatio("hans", ""))
			assert.Zero(t, p.LocationRatio("", ""))
		})
	}
}

func TestProviders_Bounded(t *testing.T) {
	pairs := [][2]string{
		{"smith", "smyth"},
		{"johann", "john"},
		{"harvey nd", "harvey wells county north dakota"},
		{"abc", "xyz"},
	}
	for _, p := range providers() {
		t.Run(p.Backend().String(), func(t *testing.T) {
			for _, pair := range pairs {
				for _, s := range []float64{p.NameRatio(pair[0], pair[1]), p.LocationRatio(pair[0], pair[1])} {
					assert.GreaterOrEqual(t, s, 0.0)
					assert.LessOrEqual(t, s, 100.0)
				}
			}
		})
	}
}

func TestFuzzy_TokenOrderInsensitive(t *testing.T) {
	f := NewFuzzy()
	assert.InDelta(t, 100.0, f.NameRatio("mueller hans", "hans mueller"), 1e-9)
	assert.InDelta(t, 80.0, f.NameRatio("smith", "smyth"), 1e-9)
}

func TestFuzzy_PartialRatio(t *testing.T) {
	f := NewFuzzy()
	assert.InDelta(t, 100.0, f.LocationRatio("harvey", "harvey wells county north dakota"), 1e-9)
	assert.Greater(t, f.LocationRatio("harvey nd", "harvey wells county north dakota"), 60.0)
	assert.Less(t, f.LocationRatio("london", "harvey"), 50.0)
}

func TestRatio_Symmetric(t *testing.T) {
	assert.InDelta(t, Ratio("johann", "johannes"), Ratio("johannes", "johann"), 1e-9)
	assert.InDelta(t, PartialRatio("ab cd", "xx ab cd yy"), PartialRatio("xx ab cd yy", "ab cd"), 1e-9)
}

func TestJaroWinkler_PrefixWeighted(t *testing.T) {
	j := NewJaroWinkler()
	assert.Greater(t, j.NameRatio("johnson", "johnsen"), 90.0)
	assert.Greater(t, j.LocationRatio("harvey", "wells harvey county"), 99.0)
}

func TestBasic_Fallback(t *testing.T) {
	b := NewBasic()
	assert.InDelta(t, 70.0, b.NameRatio("hans", "hans mueller"), 1e-9)
	assert.InDelta(t, 70.0, b.LocationRatio("harvey wells county", "harvey"), 1e-9)
	assert.Zero(t, b.NameRatio("smith", "smyth"))
}

func TestNew(t *testing.T) {
	for _, backend := range domain.AllSimilarityBackends() {
		p, err := New(backend)
		require.NoError(t, err)
		assert.Equal(t, backend, p.Backend())
	}

	_, err := New("rapidfuzz")
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
}

func TestInit_FallsBack(t *testing.T) {
	res := Init("rapidfuzz")
	assert.True(t, res.FellBack)
	assert.Len(t, res.Warnings, 1)
	assert.Equal(t, domain.SimilarityBasic, res.Provider.Backend())

	res = Init(domain.SimilarityFuzzy)
	assert.False(t, res.FellBack)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, domain.SimilarityFuzzy, res.Provider.Backend())
}
