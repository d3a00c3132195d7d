package matching

import (
	"fmt"
	"strings"

	"github.com/antzucaro/matchr"
	"github.com/mozillazg/go-unidecode"

	"github.com/rickhohler/biographical/internal/core/domain"
)

// PhoneticMethod names a phonetic encoding.
type PhoneticMethod string

// Supported phonetic methods.
const (
	PhoneticSoundex   PhoneticMethod = "soundex"
	PhoneticMetaphone PhoneticMethod = "metaphone"
	PhoneticNYSIIS    PhoneticMethod = "nysiis"
)

// DefaultPhoneticMethods are derived for names that carry no stored codes.
var DefaultPhoneticMethods = []PhoneticMethod{PhoneticSoundex, PhoneticMetaphone}

// IsValid returns true if the method is supported.
func (m PhoneticMethod) IsValid() bool {
	switch m {
	case PhoneticSoundex, PhoneticMetaphone, PhoneticNYSIIS:
		return true
	default:
		return false
	}
}

// asciiLetters transliterates s to ASCII and keeps only letters.
func asciiLetters(s string) string {
	s = unidecode.Unidecode(FoldAccents(s))
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Encode returns the phonetic code of name. Names with no Latin letters after
// transliteration encode to "".
func Encode(method PhoneticMethod, name string) (string, error) {
	letters := asciiLetters(name)
	switch method {
	case PhoneticSoundex:
		if letters == "" {
			return "", nil
		}
		return matchr.Soundex(letters), nil
	case PhoneticMetaphone:
		if letters == "" {
			return "", nil
		}
		primary, _ := matchr.DoubleMetaphone(letters)
		return primary, nil
	case PhoneticNYSIIS:
		if letters == "" {
			return "", nil
		}
		return matchr.NYSIIS(letters), nil
	default:
		return "", fmt.Errorf("%w: phonetic method %q", domain.ErrInvalidConfiguration, method)
	}
}

// Encodings returns name's codes for each method, skipping empty codes.
func Encodings(name string, methods []PhoneticMethod) ([]domain.PhoneticEncoding, error) {
	out := make([]domain.PhoneticEncoding, 0, len(methods))
	for _, m := range methods {
		code, err := Encode(m, name)
		if err != nil {
			return nil, err
		}
		if code != "" {
			out = append(out, domain.PhoneticEncoding{Value: code, Method: string(m)})
		}
	}
	return out, nil
}
