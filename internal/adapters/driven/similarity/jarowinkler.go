package similarity

import (
	"strings"

	"github.com/antzucaro/matchr"

	"github.com/rickhohler/biographical/internal/core/domain"
	"github.com/rickhohler/biographical/internal/core/ports/driven"
)

// Verify interface compliance.
var _ driven.SimilarityProvider = (*JaroWinkler)(nil)

// JaroWinkler scores with Jaro-Winkler similarity, which rewards shared
// prefixes. Names are compared on sorted tokens; places take the best score
// of the shorter place against each run of the longer place's tokens.
type JaroWinkler struct{}

// NewJaroWinkler creates the Jaro-Winkler backend.
func NewJaroWinkler() *JaroWinkler {
	return &JaroWinkler{}
}

// Backend implements driven.SimilarityProvider.
func (j *JaroWinkler) Backend() domain.SimilarityBackend {
	return domain.SimilarityJaroWinkler
}

// NameRatio implements driven.SimilarityProvider.
func (j *JaroWinkler) NameRatio(a, b string) float64 {
	return jw(sortTokens(a), sortTokens(b))
}

// LocationRatio implements driven.SimilarityProvider.
func (j *JaroWinkler) LocationRatio(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	ta, tb := strings.Fields(a), strings.Fields(b)
	if len(ta) > len(tb) {
		ta, tb = tb, ta
	}
	short := strings.Join(ta, " ")
	best := jw(short, strings.Join(tb, " "))
	for i := 0; i+len(ta) <= len(tb); i++ {
		best = max(best, jw(short, strings.Join(tb[i:i+len(ta)], " ")))
	}
	return best
}

func jw(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 100
	}
	return 100 * matchr.JaroWinkler(a, b, false)
}
