package domain

import (
	"fmt"
	"math"
	"reflect"
	"slices"
	"sort"
	"strings"
	"unicode"
)

// CurrentSchemaVersion is stamped on newly created person files.
const CurrentSchemaVersion = "1.0.0"

// Dataset types understood by person id generation.
const (
	DatasetGEDCOM = "GEDCOM"
	DatasetGFR    = "GFR"
	DatasetCustom = "CUSTOM"
)

// PersonName holds the naming fields of a person.
type PersonName struct {
	FullName           string   `json:"full_name" yaml:"full_name" validate:"required"`
	GivenNames         string   `json:"given_names,omitempty" yaml:"given_names,omitempty"`
	Surname            string   `json:"surname,omitempty" yaml:"surname,omitempty"`
	AlternateSpellings []string `json:"alternate_spellings,omitempty" yaml:"alternate_spellings,omitempty"`
	Nicknames          []string `json:"nicknames,omitempty" yaml:"nicknames,omitempty"`
}

// BirthEvent is the birth entry of a person's vital events.
type BirthEvent struct {
	Date  string `json:"date,omitempty" yaml:"date,omitempty"`
	Year  *int   `json:"year,omitempty" yaml:"year,omitempty"`
	Place string `json:"place,omitempty" yaml:"place,omitempty"`
}

// VitalEvents groups life events.
type VitalEvents struct {
	Birth *BirthEvent `json:"birth,omitempty" yaml:"birth,omitempty"`
}

// Parents names a person's father and mother.
type Parents struct {
	FatherName string `json:"father_name,omitempty" yaml:"father_name,omitempty"`
	MotherName string `json:"mother_name,omitempty" yaml:"mother_name,omitempty"`
}

// Person is one person metadata file.
type Person struct {
	SchemaVersion string       `json:"schema_version,omitempty" yaml:"schema_version,omitempty"`
	PersonID      string       `json:"person_id" yaml:"person_id" validate:"required,personid"`
	DatasetType   string       `json:"dataset_type,omitempty" yaml:"dataset_type,omitempty"`
	Name          PersonName   `json:"name" yaml:"name"`
	Gender        string       `json:"gender,omitempty" yaml:"gender,omitempty"`
	VitalEvents   *VitalEvents `json:"vital_events,omitempty" yaml:"vital_events,omitempty"`
	Parents       *Parents     `json:"parents,omitempty" yaml:"parents,omitempty"`
	Sources       []string     `json:"sources,omitempty" yaml:"sources,omitempty"`
	Notes         string       `json:"notes,omitempty" yaml:"notes,omitempty"`
	Tags          []string     `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// RecordID implements Record.
func (p Person) RecordID() string { return p.PersonID }

// ValidatePersonID checks that id can name a person file inside its
// directory. It fails with ErrInvalidInput for an empty id, an id holding a
// path separator, "..", or a control character.
func ValidatePersonID(id string) error {
	switch {
	case strings.TrimSpace(id) == "":
		return fmt.Errorf("%w: empty person id", ErrInvalidInput)
	case strings.ContainsAny(id, `/\`), strings.Contains(id, ".."):
		return fmt.Errorf("%w: person id %q contains a path element", ErrInvalidInput, id)
	case strings.ContainsFunc(id, unicode.IsControl):
		return fmt.Errorf("%w: person id %q contains a control character", ErrInvalidInput, id)
	}
	return nil
}

// Clone implements Record.
func (p Person) Clone() Person {
	c := p
	c.Name.AlternateSpellings = slices.Clone(p.Name.AlternateSpellings)
	c.Name.Nicknames = slices.Clone(p.Name.Nicknames)
	if p.VitalEvents != nil {
		ve := *p.VitalEvents
		if ve.Birth != nil {
			b := *ve.Birth
			if b.Year != nil {
				y := *b.Year
				b.Year = &y
			}
			ve.Birth = &b
		}
		c.VitalEvents = &ve
	}
	if p.Parents != nil {
		pp := *p.Parents
		c.Parents = &pp
	}
	c.Sources = slices.Clone(p.Sources)
	c.Tags = slices.Clone(p.Tags)
	return c
}

// Birth returns the birth event, or nil.
func (p Person) Birth() *BirthEvent {
	if p.VitalEvents == nil {
		return nil
	}
	return p.VitalEvents.Birth
}

// BirthYear returns the recorded birth year.
func (p Person) BirthYear() (int, bool) {
	b := p.Birth()
	if b == nil || b.Year == nil {
		return 0, false
	}
	return *b.Year, true
}

// BirthPlace returns the recorded birth place or "".
func (p Person) BirthPlace() string {
	if b := p.Birth(); b != nil {
		return b.Place
	}
	return ""
}

// FatherName returns the father's name or "".
func (p Person) FatherName() string {
	if p.Parents == nil {
		return ""
	}
	return p.Parents.FatherName
}

// MotherName returns the mother's name or "".
func (p Person) MotherName() string {
	if p.Parents == nil {
		return ""
	}
	return p.Parents.MotherName
}

// HasParentInfo reports whether either parent is named.
func (p Person) HasParentInfo() bool {
	return p.FatherName() != "" || p.MotherName() != ""
}

func (p *Person) birth() *BirthEvent {
	if p.VitalEvents == nil {
		p.VitalEvents = &VitalEvents{}
	}
	if p.VitalEvents.Birth == nil {
		p.VitalEvents.Birth = &BirthEvent{}
	}
	return p.VitalEvents.Birth
}

func (p *Person) parents() *Parents {
	if p.Parents == nil {
		p.Parents = &Parents{}
	}
	return p.Parents
}

// PersonDraft carries the inputs to create a person.
type PersonDraft struct {
	PersonID    string
	DatasetType string
	GivenNames  string
	Surname     string
	Gender      string
	BirthYear   *int
	BirthDate   string
	BirthPlace  string
	Sources     []string
	Notes       string
	Tags        []string
}

// Person builds the record for the draft under id.
func (d PersonDraft) Person(id string) Person {
	p := Person{
		SchemaVersion: CurrentSchemaVersion,
		PersonID:      id,
		DatasetType:   d.DatasetType,
		Name: PersonName{
			FullName:   strings.TrimSpace(d.GivenNames + " " + d.Surname),
			GivenNames: d.GivenNames,
			Surname:    d.Surname,
		},
		Gender:  d.Gender,
		Sources: slices.Clone(d.Sources),
		Notes:   d.Notes,
		Tags:    slices.Clone(d.Tags),
	}
	if d.BirthYear != nil || d.BirthDate != "" || d.BirthPlace != "" {
		b := p.birth()
		if d.BirthYear != nil {
			y := *d.BirthYear
			b.Year = &y
		}
		b.Date = d.BirthDate
		b.Place = d.BirthPlace
	}
	return p
}

// PersonCriteria filters a person search. Empty fields are ignored.
type PersonCriteria struct {
	PersonID   string
	Surname    string
	GivenNames string
	BirthYear  *int
	Gender     string
	BirthPlace string

	// Exact disables fuzzy comparison; names then match by substring.
	Exact bool

	// Threshold is the minimum 0-100 confidence. Zero means 60.
	Threshold float64
}

// DefaultPersonSearchThreshold applies when PersonCriteria.Threshold is zero.
const DefaultPersonSearchThreshold = 60.0

// PersonMatch is a person search hit with a 0-100 confidence.
type PersonMatch struct {
	Person     Person
	Confidence float64
}

// PersonScore is a candidate scored against a subject factor by factor.
type PersonScore struct {
	Person    Person
	Breakdown ConfidenceBreakdown
}

// personField is one entry of the dotted-path field table.
type personField struct {
	get func(p *Person) any
	set func(p *Person, v any) error
}

var personFields = map[string]personField{
	"schema_version":           stringField(func(p *Person) *string { return &p.SchemaVersion }),
	"dataset_type":             stringField(func(p *Person) *string { return &p.DatasetType }),
	"gender":                   stringField(func(p *Person) *string { return &p.Gender }),
	"notes":                    stringField(func(p *Person) *string { return &p.Notes }),
	"name.full_name":           stringField(func(p *Person) *string { return &p.Name.FullName }),
	"name.given_names":         stringField(func(p *Person) *string { return &p.Name.GivenNames }),
	"name.surname":             stringField(func(p *Person) *string { return &p.Name.Surname }),
	"name.alternate_spellings": listField(func(p *Person) *[]string { return &p.Name.AlternateSpellings }),
	"name.nicknames":           listField(func(p *Person) *[]string { return &p.Name.Nicknames }),
	"sources":                  listField(func(p *Person) *[]string { return &p.Sources }),
	"tags":                     listField(func(p *Person) *[]string { return &p.Tags }),
	"parents.father_name":      stringField(func(p *Person) *string { return &p.parents().FatherName }),
	"parents.mother_name":      stringField(func(p *Person) *string { return &p.parents().MotherName }),
	"vital_events.birth.date":  stringField(func(p *Person) *string { return &p.birth().Date }),
	"vital_events.birth.place": stringField(func(p *Person) *string { return &p.birth().Place }),
	"vital_events.birth.year": {
		get: func(p *Person) any {
			if y, ok := p.BirthYear(); ok {
				return y
			}
			return nil
		},
		set: func(p *Person, v any) error {
			if v == nil {
				if b := p.Birth(); b != nil {
					b.Year = nil
				}
				return nil
			}
			y, err := toInt(v)
			if err != nil {
				return err
			}
			p.birth().Year = &y
			return nil
		},
	},
}

// PersonPaths lists the dotted paths accepted by GetPath and SetPath.
func PersonPaths() []string {
	paths := make([]string, 0, len(personFields))
	for k := range personFields {
		paths = append(paths, k)
	}
	sort.Strings(paths)
	return paths
}

// GetPath returns the value at a dotted path. Unset values are nil.
func (p Person) GetPath(path string) (any, error) {
	f, ok := personFields[path]
	if !ok {
		return nil, fmt.Errorf("%w: unknown person field %q", ErrInvalidInput, path)
	}
	switch {
	case strings.HasPrefix(path, "parents.") && p.Parents == nil:
		return nil, nil
	case strings.HasPrefix(path, "vital_events.") && p.Birth() == nil:
		return nil, nil
	}
	v := f.get(&p)
	if s, ok := v.(string); ok && s == "" {
		return nil, nil
	}
	if l, ok := v.([]string); ok && len(l) == 0 {
		return nil, nil
	}
	return v, nil
}

// SetPath assigns v at a dotted path. A nil v clears the field.
func (p *Person) SetPath(path string, v any) error {
	f, ok := personFields[path]
	if !ok {
		return fmt.Errorf("%w: unknown person field %q", ErrInvalidInput, path)
	}
	if err := f.set(p, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidInput, path, err)
	}
	return nil
}

// PathEquals reports whether the value at path already equals v.
func (p Person) PathEquals(path string, v any) (bool, error) {
	cur, err := p.GetPath(path)
	if err != nil {
		return false, err
	}
	candidate := p.Clone()
	if err := candidate.SetPath(path, v); err != nil {
		return false, err
	}
	want, _ := candidate.GetPath(path)
	return reflect.DeepEqual(cur, want), nil
}

func stringField(ref func(p *Person) *string) personField {
	return personField{
		get: func(p *Person) any { return *ref(p) },
		set: func(p *Person, v any) error {
			if v == nil {
				*ref(p) = ""
				return nil
			}
			s, ok := v.(string)
			if !ok {
				return fmt.Errorf("expected string, got %T", v)
			}
			*ref(p) = s
			return nil
		},
	}
}

func listField(ref func(p *Person) *[]string) personField {
	return personField{
		get: func(p *Person) any { return slices.Clone(*ref(p)) },
		set: func(p *Person, v any) error {
			switch l := v.(type) {
			case nil:
				*ref(p) = nil
			case []string:
				*ref(p) = slices.Clone(l)
			case []any:
				out := make([]string, 0, len(l))
				for _, e := range l {
					s, ok := e.(string)
					if !ok {
						return fmt.Errorf("expected string element, got %T", e)
					}
					out = append(out, s)
				}
				*ref(p) = out
			default:
				return fmt.Errorf("expected list of strings, got %T", v)
			}
			return nil
		},
	}
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case int32:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("expected whole number, got %v", n)
		}
		return int(n), nil
	default:
		return 0, fmt.Errorf("expected integer, got %T", v)
	}
}
