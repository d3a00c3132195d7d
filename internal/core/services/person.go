package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/rickhohler/biographical/internal/core/domain"
	"github.com/rickhohler/biographical/internal/core/ports/driven"
	"github.com/rickhohler/biographical/internal/core/ports/driving"
	"github.com/rickhohler/biographical/internal/logger"
	"github.com/rickhohler/biographical/internal/matching"
	"github.com/rickhohler/biographical/internal/validation"
)

// Ensure PersonRegistry implements the interface.
var _ driving.PersonService = (*PersonRegistry)(nil)

// Person index names.
const (
	PersonIndexName      = "name"
	PersonIndexAlternate = "alternate"
	PersonIndexSurname   = "surname"
)

// PersonKind names the person registry in logs, metrics and documents.
const PersonKind = "persons"

// Duplicate detection thresholds on the 0-100 search confidence.
const (
	duplicateSearchThreshold = 80.0
	duplicateReturnExisting  = 95.0
	duplicateWarn            = 85.0
)

func personSpecs() []IndexSpec[domain.Person] {
	return []IndexSpec[domain.Person]{
		{Name: PersonIndexName, Key: matching.NameKey, Keys: func(p domain.Person) []string {
			return []string{p.Name.FullName}
		}},
		{Name: PersonIndexAlternate, Key: matching.NameKey, Keys: func(p domain.Person) []string {
			return append(slices.Clone(p.Name.AlternateSpellings), p.Name.Nicknames...)
		}},
		{Name: PersonIndexSurname, Key: matching.NameKey, Keys: func(p domain.Person) []string {
			return []string{p.Name.Surname}
		}},
	}
}

// GeneratePersonID returns a new id in the style of datasetType:
// GEDCOM "I382" + 9 digits, GFR "GFR-" + 8 hex, anything else "PERSON-" + 8 hex.
func GeneratePersonID(datasetType string) string {
	switch strings.ToUpper(datasetType) {
	case domain.DatasetGEDCOM, "":
		return fmt.Sprintf("I382%d", 100000000+rand.IntN(900000000))
	case domain.DatasetGFR:
		return "GFR-" + shortHex()
	default:
		return "PERSON-" + shortHex()
	}
}

func shortHex() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// PersonRegistry holds person records. Unlike the location and name
// registries it writes through: every mutation is persisted before it
// returns, and rolled back in memory when persisting fails.
type PersonRegistry struct {
	reg      *Registry[domain.Person]
	resolver *Resolver[domain.Person]
	archiver driven.Archiver[domain.Person]
	provider driven.SimilarityProvider
	scorer   *matching.Scorer
	newID    func(datasetType string) string

	// mu serialises mutate-persist-rollback sequences.
	mu sync.Mutex
}

// NewPersonRegistry creates a person registry over store. When store also
// implements driven.Archiver, updates and deletes keep per-record backups.
func NewPersonRegistry(store driven.RecordStore[domain.Person], provider driven.SimilarityProvider, scorer *matching.Scorer, threshold float64, opts ...RegistryOption) *PersonRegistry {
	reg := NewRegistry(PersonKind, store, personSpecs(), opts...)
	resolver := NewResolver(reg, ResolverConfig[domain.Person]{
		Tiers: []Tier{
			{Index: PersonIndexName, MatchType: domain.MatchExact, Confidence: domain.ConfidenceExact},
			{Index: PersonIndexAlternate, MatchType: domain.MatchVariant, Confidence: domain.ConfidenceVariant},
		},
		Similarity: func(query string, p domain.Person) float64 {
			return matching.FuzzyMatchName(provider, query, p.Name.FullName) / 100
		},
		DefaultThreshold: threshold,
	})
	r := &PersonRegistry{
		reg:      reg,
		resolver: resolver,
		provider: provider,
		scorer:   scorer,
		newID:    GeneratePersonID,
	}
	if a, ok := store.(driven.Archiver[domain.Person]); ok {
		r.archiver = a
	}
	return r
}

// SetIDGenerator replaces the id generator used by Create.
func (r *PersonRegistry) SetIDGenerator(fn func(datasetType string) string) {
	r.newID = fn
}

// Load replaces the registry contents from the store.
func (r *PersonRegistry) Load(ctx context.Context) error { return r.reg.Load(ctx) }

// ReloadIfSaved reloads from the store unless a mutation is still unsaved,
// as after a failed write, and reports whether it did.
func (r *PersonRegistry) ReloadIfSaved(ctx context.Context) (bool, error) {
	return r.reg.ReloadIfSaved(ctx)
}

// Read returns the person with id.
func (r *PersonRegistry) Read(id string) (domain.Person, bool) { return r.reg.Read(id) }

// List returns every person in insertion order.
func (r *PersonRegistry) List() []domain.Person { return r.reg.List() }

// Len returns the number of persons.
func (r *PersonRegistry) Len() int { return r.reg.Len() }

// FindBySurname returns the persons whose surname equals surname after name
// normalisation.
func (r *PersonRegistry) FindBySurname(surname string) []domain.Person {
	return r.reg.Lookup(PersonIndexSurname, surname)
}

// Create builds a person from d and persists it. With checkDuplicates a
// fuzzy search runs first: a hit of 95 or more is returned instead of
// creating a record (created is false), a hit of 85 or more is logged.
func (r *PersonRegistry) Create(ctx context.Context, d domain.PersonDraft, checkDuplicates bool) (p domain.Person, created bool, err error) {
	if checkDuplicates {
		hits := r.Search(domain.PersonCriteria{
			Surname:    d.Surname,
			GivenNames: d.GivenNames,
			BirthYear:  d.BirthYear,
			Gender:     d.Gender,
			Threshold:  duplicateSearchThreshold,
		})
		if len(hits) > 0 {
			top := hits[0]
			switch {
			case top.Confidence >= duplicateReturnExisting:
				logger.Info("returning existing person %s (%.1f%% match)", top.Person.PersonID, top.Confidence)
				return top.Person, false, nil
			case top.Confidence >= duplicateWarn:
				logger.Warn("potential duplicate of %s (%.1f%% match)", top.Person.PersonID, top.Confidence)
			}
		}
	}

	if d.DatasetType == "" {
		d.DatasetType = domain.DatasetGEDCOM
	}
	id := d.PersonID
	if id == "" {
		id = r.newID(d.DatasetType)
	}
	if err := domain.ValidatePersonID(id); err != nil {
		return domain.Person{}, false, fmt.Errorf("create %s: %w", PersonKind, err)
	}
	if d.BirthYear == nil && d.BirthDate != "" {
		if y, ok := matching.ExtractYear(d.BirthDate); ok {
			d.BirthYear = &y
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	p, err = r.reg.Create(d.Person(id))
	if err != nil {
		return domain.Person{}, false, err
	}
	if err := r.reg.Save(ctx); err != nil {
		r.reg.Delete(id)
		return domain.Person{}, false, err
	}
	logger.Info("created person %s (%s)", id, p.Name.FullName)
	return p, true, nil
}

// Update replaces the stored person and persists it. An invalid person is
// rejected before any backup is taken.
func (r *PersonRegistry) Update(ctx context.Context, p domain.Person) (domain.Person, error) {
	if err := validation.Struct(p); err != nil {
		return domain.Person{}, fmt.Errorf("update %s %q: %w", PersonKind, p.PersonID, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	old, ok := r.reg.Read(p.PersonID)
	if !ok {
		return domain.Person{}, fmt.Errorf("update %s %q: %w", PersonKind, p.PersonID, domain.ErrNotFound)
	}
	if err := r.backup(ctx, p.PersonID); err != nil {
		return domain.Person{}, err
	}
	out, err := r.reg.Update(p)
	if err != nil {
		return domain.Person{}, err
	}
	if err := r.reg.Save(ctx); err != nil {
		r.reg.put(old)
		return domain.Person{}, err
	}
	return out, nil
}

// UpdatePaths sets dotted-path fields on the person with id. Every path is
// checked before anything changes; an unknown path fails with
// domain.ErrInvalidInput. When all values already match, nothing is written
// and changed is false.
func (r *PersonRegistry) UpdatePaths(ctx context.Context, id string, updates map[string]any) (changed bool, err error) {
	paths := make([]string, 0, len(updates))
	for path := range updates {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	r.mu.Lock()
	defer r.mu.Unlock()
	old, ok := r.reg.Read(id)
	if !ok {
		return false, fmt.Errorf("update %s %q: %w", PersonKind, id, domain.ErrNotFound)
	}

	same := true
	for _, path := range paths {
		eq, err := old.PathEquals(path, updates[path])
		if err != nil {
			return false, err
		}
		same = same && eq
	}
	if same {
		logger.Debug("person %s already has requested values", id)
		return false, nil
	}

	apply := func(p *domain.Person) error {
		for _, path := range paths {
			if err := p.SetPath(path, updates[path]); err != nil {
				return err
			}
		}
		return nil
	}
	next := old.Clone()
	if err := apply(&next); err != nil {
		return false, err
	}
	if err := validation.Struct(next); err != nil {
		return false, fmt.Errorf("update %s %q: %w", PersonKind, id, err)
	}

	if err := r.backup(ctx, id); err != nil {
		return false, err
	}
	if _, err = r.reg.Mutate(id, apply); err != nil {
		return false, err
	}
	if err := r.reg.Save(ctx); err != nil {
		r.reg.put(old)
		return false, err
	}
	logger.Info("updated person %s: %s", id, strings.Join(paths, ", "))
	return true, nil
}

// Delete removes the person with id. A backup is taken first when the store
// keeps history; with archive the stored form is moved to the archive
// instead of being dropped. When persisting fails the record and its
// archived form are put back. found is false for an unknown id.
func (r *PersonRegistry) Delete(ctx context.Context, id string, archive bool) (found bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	old, ok := r.reg.Read(id)
	if !ok {
		return false, nil
	}
	if err := r.backup(ctx, id); err != nil {
		return true, err
	}
	archived := false
	if archive && r.archiver != nil {
		err := r.archiver.Archive(ctx, id)
		switch {
		case err == nil:
			archived = true
		case !errors.Is(err, domain.ErrNotFound):
			return true, fmt.Errorf("archive %s %q: %w", PersonKind, id, err)
		}
	}
	r.reg.Delete(id)
	if err := r.reg.Save(ctx); err != nil {
		r.reg.put(old)
		if archived {
			if uerr := r.archiver.Unarchive(ctx, id); uerr != nil {
				logger.Warn("could not restore archived %s %q after failed delete: %v", PersonKind, id, uerr)
			}
		}
		return true, err
	}
	logger.Info("deleted person %s (archived: %t)", id, archive && r.archiver != nil)
	return true, nil
}

// ListBackups returns the backups of id, newest first.
func (r *PersonRegistry) ListBackups(ctx context.Context, id string) ([]driven.Backup, error) {
	if r.archiver == nil {
		return nil, fmt.Errorf("list backups: %w", domain.ErrNotImplemented)
	}
	return r.archiver.ListBackups(ctx, id)
}

// Restore reinstates id from b, or from its newest backup when b is nil.
// A live record is backed up before it is overwritten.
func (r *PersonRegistry) Restore(ctx context.Context, id string, b *driven.Backup) (domain.Person, error) {
	if r.archiver == nil {
		return domain.Person{}, fmt.Errorf("restore: %w", domain.ErrNotImplemented)
	}
	if err := domain.ValidatePersonID(id); err != nil {
		return domain.Person{}, fmt.Errorf("restore: %w", err)
	}
	if b == nil {
		list, err := r.archiver.ListBackups(ctx, id)
		if err != nil {
			return domain.Person{}, err
		}
		if len(list) == 0 {
			return domain.Person{}, fmt.Errorf("restore %q: no backups: %w", id, domain.ErrNotFound)
		}
		b = &list[0]
		logger.Debug("restoring %s from latest backup %s", id, b.Path)
	}

	p, err := r.archiver.ReadBackup(ctx, *b)
	if err != nil {
		return domain.Person{}, err
	}
	if p.PersonID != id {
		return domain.Person{}, fmt.Errorf("restore %q: %w: backup holds %q", id, domain.ErrInvalidInput, p.PersonID)
	}
	if err := validation.Struct(p); err != nil {
		return domain.Person{}, fmt.Errorf("restore %q: %w", id, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	old, existed := r.reg.Read(id)
	if existed {
		if err := r.backup(ctx, id); err != nil {
			return domain.Person{}, err
		}
	}
	r.reg.put(p)
	if err := r.reg.Save(ctx); err != nil {
		if existed {
			r.reg.put(old)
		} else {
			r.reg.Delete(id)
		}
		return domain.Person{}, err
	}
	logger.Info("restored person %s from %s", id, b.Path)
	return p.Clone(), nil
}

// backup copies the stored form of id when the store keeps history. A record
// that was never persisted has nothing to back up.
func (r *PersonRegistry) backup(ctx context.Context, id string) error {
	if r.archiver == nil {
		return nil
	}
	b, err := r.archiver.BackupRecord(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("backup %s %q: %w", PersonKind, id, err)
	}
	logger.Debug("backup created: %s", b.Path)
	return nil
}

// Resolve runs tiered resolution over full names: exact (1.0), alternate
// spelling or nickname (variant, 0.9), then fuzzy when requested.
func (r *PersonRegistry) Resolve(q driving.PersonQuery) []domain.MatchResult[domain.Person] {
	return r.resolver.Resolve(Query[domain.Person]{
		Text:      q.Text,
		Fuzzy:     q.Fuzzy,
		Threshold: q.Threshold,
	})
}

// Search scores every person against c and returns those reaching the
// threshold, best first. Each present criterion scales the running
// confidence; a failed hard criterion drops the person.
func (r *PersonRegistry) Search(c domain.PersonCriteria) []domain.PersonMatch {
	th := c.Threshold
	if th <= 0 {
		th = domain.DefaultPersonSearchThreshold
	}
	var out []domain.PersonMatch
	r.reg.View(func(s Snapshot[domain.Person]) {
		s.Each(func(p domain.Person) bool {
			if conf, ok := r.criteriaScore(p, c, th); ok {
				out = append(out, domain.PersonMatch{Person: p.Clone(), Confidence: conf})
			}
			return true
		})
	})
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})
	logger.Debug("person search: %d matches", len(out))
	return out
}

func (r *PersonRegistry) criteriaScore(p domain.Person, c domain.PersonCriteria, th float64) (float64, bool) {
	fuzzy := !c.Exact
	conf := 100.0

	if c.PersonID != "" && c.PersonID != p.PersonID {
		return 0, false
	}

	if c.Surname != "" {
		surname := p.Name.Surname
		if surname == "" {
			return 0, false
		}
		if fuzzy {
			s := matching.FuzzyMatchName(r.provider, c.Surname, surname, p.Name.AlternateSpellings...)
			if s < th {
				return 0, false
			}
			conf = conf*0.6 + s*0.4
		} else if !containsFold(surname, c.Surname) {
			return 0, false
		}
	}

	if c.GivenNames != "" {
		given := p.Name.GivenNames
		if given == "" {
			if len(p.Name.Nicknames) == 0 {
				return 0, false
			}
			given = strings.Join(p.Name.Nicknames, " ")
		}
		if fuzzy {
			s := matching.FuzzyMatchName(r.provider, c.GivenNames, given, p.Name.Nicknames...)
			if s < th {
				return 0, false
			}
			conf = conf*0.7 + s*0.3
		} else if !containsFold(given, c.GivenNames) {
			return 0, false
		}
	}

	if c.BirthYear != nil {
		if y, ok := p.BirthYear(); ok {
			diff := y - *c.BirthYear
			if diff < 0 {
				diff = -diff
			}
			switch {
			case diff == 0:
				conf = min(100, conf*1.1)
			case diff <= 2:
				conf *= 0.95
			case diff <= 5:
				conf *= 0.85
			default:
				return 0, false
			}
		} else {
			conf *= 0.9
		}
	}

	if c.Gender != "" {
		g := strings.ToLower(strings.TrimSpace(p.Gender))
		if g != "" && g != "unknown" {
			if !strings.EqualFold(g, strings.TrimSpace(c.Gender)) {
				return 0, false
			}
			conf = min(100, conf*1.05)
		} else {
			conf *= 0.95
		}
	}

	if c.BirthPlace != "" && fuzzy {
		if place := p.BirthPlace(); place != "" {
			s := matching.FuzzyMatchLocation(r.provider, c.BirthPlace, place)
			if s >= th {
				conf = conf*0.9 + s*0.1
			} else {
				conf *= 0.8
			}
		} else {
			conf *= 0.9
		}
	}

	if conf < th {
		return 0, false
	}
	return math.Round(conf*100) / 100, true
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// Match scores every stored person against subject with the confidence
// model and returns those with an overall score of at least minScore, best
// first. Candidates without a usable name are skipped.
func (r *PersonRegistry) Match(subject matching.Subject, minScore float64) ([]domain.PersonScore, error) {
	if matching.NormalizeName(subject.Name) == "" {
		return nil, fmt.Errorf("match: %w: subject has no name", domain.ErrMalformedRecord)
	}
	var out []domain.PersonScore
	r.reg.View(func(s Snapshot[domain.Person]) {
		s.Each(func(p domain.Person) bool {
			b, err := r.scorer.Breakdown(subject, matching.SubjectOf(p))
			if err != nil {
				logger.Debug("match: skipping %s: %v", p.PersonID, err)
				return true
			}
			if b.Overall >= minScore {
				out = append(out, domain.PersonScore{Person: p.Clone(), Breakdown: b})
			}
			return true
		})
	})
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Breakdown.Overall > out[j].Breakdown.Overall
	})
	return out, nil
}
