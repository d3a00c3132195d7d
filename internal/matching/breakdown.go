package matching

import (
	"fmt"

	"github.com/rickhohler/biographical/internal/core/domain"
)

// Subject is the comparable view of a person.
type Subject struct {
	Name       string
	Alternates []string
	BirthYear  *int
	Location   string
	Father     string
	Mother     string
}

// SubjectOf extracts the comparable fields of a person. A birth year missing
// from the record is taken from the birth date when one can be read.
func SubjectOf(p domain.Person) Subject {
	s := Subject{
		Name:       p.Name.FullName,
		Alternates: append(append([]string(nil), p.Name.AlternateSpellings...), p.Name.Nicknames...),
		Location:   p.BirthPlace(),
		Father:     p.FatherName(),
		Mother:     p.MotherName(),
	}
	if y, ok := p.BirthYear(); ok {
		s.BirthYear = &y
	} else if b := p.Birth(); b != nil {
		if y, ok := ExtractYear(b.Date); ok {
			s.BirthYear = &y
		}
	}
	return s
}

// Breakdown scores each factor of a against b independently and then derives
// the overall confidence. Factors lacking inputs on either side are nil.
// Both subjects need a name; otherwise it fails with domain.ErrMalformedRecord.
func (s *Scorer) Breakdown(a, b Subject) (domain.ConfidenceBreakdown, error) {
	if NormalizeName(a.Name) == "" || NormalizeName(b.Name) == "" {
		return domain.ConfidenceBreakdown{}, fmt.Errorf("%w: name is required to score a match", domain.ErrMalformedRecord)
	}

	out := domain.ConfidenceBreakdown{
		Name: FuzzyMatchName(s.provider, a.Name, b.Name, b.Alternates...),
	}

	var yearDiff *int
	if a.BirthYear != nil && b.BirthYear != nil {
		d := *a.BirthYear - *b.BirthYear
		if d < 0 {
			d = -d
		}
		yearDiff = &d
		ys := YearScore(d)
		out.BirthYear = &ys
	}

	if a.Location != "" && b.Location != "" {
		ls := FuzzyMatchLocation(s.provider, a.Location, b.Location)
		out.Location = &ls
	}

	if (a.Father != "" || a.Mother != "") && (b.Father != "" || b.Mother != "") {
		ps := s.parentScore(a, b)
		out.Relationship = &ps
	}

	parentMatch := out.Relationship != nil && *out.Relationship > ParentMatchScore
	out.Overall = s.Score(Factors{
		NameScore:     out.Name,
		BirthYearDiff: yearDiff,
		ParentMatch:   parentMatch,
		LocationScore: out.Location,
	})
	return out, nil
}

// parentScore averages the father and mother scores that could be computed.
func (s *Scorer) parentScore(a, b Subject) float64 {
	var father, mother float64
	if a.Father != "" && b.Father != "" {
		father = FuzzyMatchName(s.provider, a.Father, b.Father)
	}
	if a.Mother != "" && b.Mother != "" {
		mother = FuzzyMatchName(s.provider, a.Mother, b.Mother)
	}
	switch {
	case father > 0 && mother > 0:
		return (father + mother) / 2
	case father > 0:
		return father
	default:
		return mother
	}
}
