package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchType_IsValid(t *testing.T) {
	for _, mt := range []MatchType{MatchExact, MatchVariant, MatchHistorical, MatchCognate, MatchFuzzy, MatchHierarchical} {
		assert.True(t, mt.IsValid(), mt.String())
	}
	assert.False(t, MatchType("phonetic").IsValid())
	assert.False(t, MatchType("").IsValid())
}

func TestTierConfidences_Ordered(t *testing.T) {
	assert.Greater(t, ConfidenceExact, ConfidenceVariant)
	assert.Greater(t, ConfidenceVariant, ConfidenceCognate)
	assert.GreaterOrEqual(t, ConfidenceCognate, FuzzyFloor+FuzzySpan)
}
