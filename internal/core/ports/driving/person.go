package driving

import (
	"context"

	"github.com/rickhohler/biographical/internal/core/domain"
	"github.com/rickhohler/biographical/internal/core/ports/driven"
	"github.com/rickhohler/biographical/internal/matching"
)

// PersonQuery is a full-name resolution request.
type PersonQuery struct {
	Text      string
	Fuzzy     bool
	Threshold float64
}

// PersonService manages person files. Mutations are persisted before they
// return.
type PersonService interface {
	Load(ctx context.Context) error
	Read(id string) (domain.Person, bool)
	List() []domain.Person

	// Create builds and stores a person. With checkDuplicates a near-certain
	// existing match is returned instead and created is false.
	Create(ctx context.Context, d domain.PersonDraft, checkDuplicates bool) (p domain.Person, created bool, err error)

	// Update replaces a person. Returns domain.ErrNotFound for unknown ids.
	Update(ctx context.Context, p domain.Person) (domain.Person, error)

	// UpdatePaths sets dotted-path fields and reports whether anything
	// changed. Returns domain.ErrInvalidInput for unknown paths.
	UpdatePaths(ctx context.Context, id string, updates map[string]any) (bool, error)

	// Delete removes a person, optionally archiving its stored form.
	Delete(ctx context.Context, id string, archive bool) (bool, error)

	// ListBackups returns per-record backups, newest first.
	ListBackups(ctx context.Context, id string) ([]driven.Backup, error)

	// Restore reinstates a person from b, or the newest backup when nil.
	Restore(ctx context.Context, id string, b *driven.Backup) (domain.Person, error)

	// Search scores persons against criteria on a 0-100 scale.
	Search(c domain.PersonCriteria) []domain.PersonMatch

	// Resolve runs tiered resolution over full names.
	Resolve(q PersonQuery) []domain.MatchResult[domain.Person]

	// Match scores every person against subject factor by factor.
	Match(subject matching.Subject, minScore float64) ([]domain.PersonScore, error)

	FindBySurname(surname string) []domain.Person
}
