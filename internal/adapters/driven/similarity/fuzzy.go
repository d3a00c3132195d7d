// Package similarity provides the text similarity backends behind
// driven.SimilarityProvider and a factory that selects one from settings.
package similarity

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/rickhohler/biographical/internal/core/domain"
	"github.com/rickhohler/biographical/internal/core/ports/driven"
)

// Verify interface compliance.
var _ driven.SimilarityProvider = (*Fuzzy)(nil)

// Fuzzy scores with Levenshtein ratios: token-sort ratio for names and
// best-window partial ratio for places.
type Fuzzy struct{}

// NewFuzzy creates the Levenshtein backend.
func NewFuzzy() *Fuzzy {
	return &Fuzzy{}
}

// Backend implements driven.SimilarityProvider.
func (f *Fuzzy) Backend() domain.SimilarityBackend {
	return domain.SimilarityFuzzy
}

// NameRatio implements driven.SimilarityProvider.
func (f *Fuzzy) NameRatio(a, b string) float64 {
	return TokenSortRatio(a, b)
}

// LocationRatio implements driven.SimilarityProvider.
func (f *Fuzzy) LocationRatio(a, b string) float64 {
	return PartialRatio(a, b)
}

// Ratio is 100 * (1 - distance / longer length), over runes.
func Ratio(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 100
	}
	la, lb := len([]rune(a)), len([]rune(b))
	longest := max(la, lb)
	d := levenshtein.ComputeDistance(a, b)
	return 100 * (1 - float64(d)/float64(longest))
}

// TokenSortRatio is Ratio over whitespace tokens sorted alphabetically, so
// "mueller hans" equals "hans mueller".
func TokenSortRatio(a, b string) float64 {
	return Ratio(sortTokens(a), sortTokens(b))
}

// PartialRatio is the best Ratio of the shorter string against every
// equal-length window of the longer one.
func PartialRatio(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	ra, rb := []rune(a), []rune(b)
	if len(ra) > len(rb) {
		ra, rb = rb, ra
	}
	short := string(ra)
	if strings.Contains(string(rb), short) {
		return 100
	}
	best := 0.0
	for i := 0; i+len(ra) <= len(rb); i++ {
		if r := Ratio(short, string(rb[i:i+len(ra)])); r > best {
			best = r
		}
	}
	return best
}

func sortTokens(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}
