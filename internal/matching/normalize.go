package matching

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// nameSuffixes are generational suffixes dropped from the end of a name.
var nameSuffixes = map[string]struct{}{
	"jr": {}, "sr": {}, "ii": {}, "iii": {}, "iv": {}, "v": {},
}

// NormalizeName canonicalises a person or given/surname string for comparison:
// lowercase, periods removed, NFC, whitespace collapsed, and trailing
// generational suffixes (jr, sr, ii, iii, iv, v) stripped when they follow
// another token. A trailing comma left behind by the suffix is dropped too.
func NormalizeName(name string) string {
	if name == "" {
		return ""
	}
	s := strings.ReplaceAll(strings.ToLower(name), ".", "")
	s = norm.NFC.String(s)
	tokens := strings.Fields(s)
	for len(tokens) > 0 {
		last := tokens[len(tokens)-1]
		if trimmed := strings.TrimRight(last, ","); trimmed != last {
			if trimmed == "" {
				tokens = tokens[:len(tokens)-1]
			} else {
				tokens[len(tokens)-1] = trimmed
			}
			continue
		}
		if _, ok := nameSuffixes[last]; ok && len(tokens) > 1 {
			tokens = tokens[:len(tokens)-1]
			continue
		}
		break
	}
	return strings.Join(tokens, " ")
}

// NormalizeLocation canonicalises a place string: lowercase, commas removed,
// NFC, whitespace collapsed. The bool is false when the input carries no
// value at all, which is distinct from a value that normalises to "".
func NormalizeLocation(place string) (string, bool) {
	if strings.TrimSpace(place) == "" {
		return "", false
	}
	s := strings.ReplaceAll(strings.ToLower(place), ",", "")
	s = norm.NFC.String(s)
	return strings.Join(strings.Fields(s), " "), true
}

// IndexKey is the key under which a text value is stored in a registry
// index: lowercase, apostrophes removed, other punctuation and symbols
// replaced by spaces, whitespace collapsed.
func IndexKey(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ToLower(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\'' || r == '’' || r == '`':
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			b.WriteRune(' ')
		default:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(norm.NFC.String(b.String())), " ")
}

// NameKey is the index key for person names: NormalizeName then IndexKey.
func NameKey(s string) string {
	return IndexKey(NormalizeName(s))
}

var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// FoldAccents removes combining marks ("Müller" -> "Muller").
func FoldAccents(s string) string {
	out, _, err := transform.String(stripAccents, s)
	if err != nil {
		return s
	}
	return out
}

// FoldCase compares two strings case-insensitively after trimming.
func FoldCase(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
