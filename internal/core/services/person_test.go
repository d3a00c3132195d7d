package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickhohler/biographical/internal/adapters/driven/similarity"
	"github.com/rickhohler/biographical/internal/adapters/driven/storage/memory"
	"github.com/rickhohler/biographical/internal/core/domain"
	"github.com/rickhohler/biographical/internal/core/ports/driven"
	"github.com/rickhohler/biographical/internal/core/ports/driving"
	"github.com/rickhohler/biographical/internal/matching"
)

func intPtr(v int) *int { return &v }

func newPersonRegistry(t *testing.T, store driven.RecordStore[domain.Person]) *PersonRegistry {
	t.Helper()
	provider := similarity.NewFuzzy()
	scorer, err := matching.NewScorer(provider, nil)
	require.NoError(t, err)
	r := NewPersonRegistry(store, provider, scorer, 0)
	require.NoError(t, r.Load(context.Background()))
	return r
}

// sequentialIDs hands out P1, P2, ... regardless of dataset type.
func sequentialIDs() func(string) string {
	n := 0
	return func(string) string {
		n++
		return fmt.Sprintf("P%d", n)
	}
}

func seedPersons(t *testing.T, r *PersonRegistry) {
	t.Helper()
	ctx := context.Background()
	drafts := []domain.PersonDraft{
		{PersonID: "I1", GivenNames: "John", Surname: "Smith", Gender: "male", BirthYear: intPtr(1850), BirthPlace: "Harvey, North Dakota"},
		{PersonID: "I2", GivenNames: "Mary", Surname: "Smith", Gender: "female", BirthYear: intPtr(1852)},
		{PersonID: "I3", GivenNames: "Johann", Surname: "Schmidt", Gender: "male", BirthDate: "12 MAR 1849"},
		{PersonID: "I4", GivenNames: "Anna", Surname: "Meyer"},
	}
	for _, d := range drafts {
		_, created, err := r.Create(ctx, d, false)
		require.NoError(t, err)
		require.True(t, created)
	}
}

func TestGeneratePersonID(t *testing.T) {
	assert.Regexp(t, `^I382\d{9}$`, GeneratePersonID(domain.DatasetGEDCOM))
	assert.Regexp(t, `^I382\d{9}$`, GeneratePersonID(""))
	assert.Regexp(t, `^GFR-[0-9a-f]{8}$`, GeneratePersonID("gfr"))
	assert.Regexp(t, `^PERSON-[0-9a-f]{8}$`, GeneratePersonID(domain.DatasetCustom))
}

func TestPersonRegistry_Create(t *testing.T) {
	ctx := context.Background()
	store := memory.NewRecordStore[domain.Person]()
	r := newPersonRegistry(t, store)
	r.SetIDGenerator(sequentialIDs())

	p, created, err := r.Create(ctx, domain.PersonDraft{
		GivenNames: "John",
		Surname:    "Smith",
		BirthDate:  "5 JUN 1850",
	}, true)

	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "P1", p.PersonID)
	assert.Equal(t, "John Smith", p.Name.FullName)
	assert.Equal(t, domain.DatasetGEDCOM, p.DatasetType)
	assert.Equal(t, domain.CurrentSchemaVersion, p.SchemaVersion)
	year, ok := p.BirthYear()
	require.True(t, ok)
	assert.Equal(t, 1850, year)

	assert.Equal(t, 1, store.Saves())
	require.Len(t, store.Records(), 1)
}

func TestPersonRegistry_Create_Invalid(t *testing.T) {
	r := newPersonRegistry(t, memory.NewRecordStore[domain.Person]())

	_, _, err := r.Create(context.Background(), domain.PersonDraft{PersonID: "I1"}, false)

	assert.ErrorIs(t, err, domain.ErrMalformedRecord)
	assert.Zero(t, r.Len())
}

func TestPersonRegistry_Create_UnsafeID(t *testing.T) {
	for _, id := range []string{"../../outside", "a/b", `..\x`} {
		t.Run(id, func(t *testing.T) {
			store := memory.NewRecordStore[domain.Person]()
			r := newPersonRegistry(t, store)

			_, created, err := r.Create(context.Background(), domain.PersonDraft{PersonID: id, GivenNames: "X", Surname: "Y"}, false)

			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			assert.False(t, created)
			assert.Zero(t, r.Len())
			assert.Zero(t, store.Saves())
		})
	}
}

func TestPersonRegistry_Create_DuplicateID(t *testing.T) {
	r := newPersonRegistry(t, memory.NewRecordStore[domain.Person]())
	seedPersons(t, r)

	_, _, err := r.Create(context.Background(), domain.PersonDraft{PersonID: "I1", GivenNames: "X", Surname: "Y"}, false)

	assert.ErrorIs(t, err, domain.ErrDuplicateKey)
}

func TestPersonRegistry_Create_ReturnsExistingDuplicate(t *testing.T) {
	store := memory.NewRecordStore[domain.Person]()
	r := newPersonRegistry(t, store)
	seedPersons(t, r)
	saves := store.Saves()

	p, created, err := r.Create(context.Background(), domain.PersonDraft{
		GivenNames: "John",
		Surname:    "Smith",
		Gender:     "male",
		BirthYear:  intPtr(1850),
	}, true)

	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "I1", p.PersonID)
	assert.Equal(t, saves, store.Saves())
	assert.Equal(t, 4, r.Len())
}

func TestPersonRegistry_Create_NearDuplicateStillCreated(t *testing.T) {
	r := newPersonRegistry(t, memory.NewRecordStore[domain.Person]())
	seedPersons(t, r)
	r.SetIDGenerator(sequentialIDs())

	// "Smyth" scores about 94 against "Smith": logged, not merged.
	p, created, err := r.Create(context.Background(), domain.PersonDraft{
		GivenNames: "John",
		Surname:    "Smyth",
	}, true)

	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "P1", p.PersonID)
}

func TestPersonRegistry_Create_RollsBackOnSaveFailure(t *testing.T) {
	store := memory.NewRecordStore[domain.Person]()
	r := newPersonRegistry(t, store)
	store.FailSave(errors.New("disk full"))

	_, _, err := r.Create(context.Background(), domain.PersonDraft{PersonID: "I9", GivenNames: "A", Surname: "B"}, false)

	require.Error(t, err)
	_, ok := r.Read("I9")
	assert.False(t, ok)
}

func TestPersonRegistry_Search(t *testing.T) {
	r := newPersonRegistry(t, memory.NewRecordStore[domain.Person]())
	seedPersons(t, r)

	tests := []struct {
		name     string
		criteria domain.PersonCriteria
		wantIDs  []string
	}{
		{
			name:     "surname",
			criteria: domain.PersonCriteria{Surname: "Smith"},
			wantIDs:  []string{"I1", "I2"},
		},
		{
			name:     "surname and given names",
			criteria: domain.PersonCriteria{Surname: "Smith", GivenNames: "Mary"},
			wantIDs:  []string{"I2"},
		},
		{
			name:     "gender mismatch drops",
			criteria: domain.PersonCriteria{Surname: "Smith", Gender: "female"},
			wantIDs:  []string{"I2"},
		},
		{
			name:     "birth year beyond five years drops",
			criteria: domain.PersonCriteria{Surname: "Smith", BirthYear: intPtr(1860)},
			wantIDs:  nil,
		},
		{
			name:     "birth year from date",
			criteria: domain.PersonCriteria{Surname: "Schmidt", BirthYear: intPtr(1849)},
			wantIDs:  []string{"I3"},
		},
		{
			name:     "person id",
			criteria: domain.PersonCriteria{PersonID: "I4"},
			wantIDs:  []string{"I4"},
		},
		{
			name:     "exact substring",
			criteria: domain.PersonCriteria{Surname: "smi", Exact: true},
			wantIDs:  []string{"I1", "I2"},
		},
		{
			name:     "exact mode ignores near spellings",
			criteria: domain.PersonCriteria{Surname: "Smyth", Exact: true},
			wantIDs:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Search(tt.criteria)

			var ids []string
			for _, m := range got {
				ids = append(ids, m.Person.PersonID)
				assert.GreaterOrEqual(t, m.Confidence, domain.DefaultPersonSearchThreshold)
				assert.LessOrEqual(t, m.Confidence, 100.0)
			}
			assert.ElementsMatch(t, tt.wantIDs, ids)
		})
	}
}

func TestPersonRegistry_Search_BirthYearScaling(t *testing.T) {
	r := newPersonRegistry(t, memory.NewRecordStore[domain.Person]())
	seedPersons(t, r)

	exact := r.Search(domain.PersonCriteria{PersonID: "I1", BirthYear: intPtr(1850)})
	near := r.Search(domain.PersonCriteria{PersonID: "I1", BirthYear: intPtr(1852)})
	far := r.Search(domain.PersonCriteria{PersonID: "I1", BirthYear: intPtr(1854)})
	unknown := r.Search(domain.PersonCriteria{PersonID: "I4", BirthYear: intPtr(1850)})

	require.Len(t, exact, 1)
	require.Len(t, near, 1)
	require.Len(t, far, 1)
	require.Len(t, unknown, 1)
	assert.InDelta(t, 100.0, exact[0].Confidence, 1e-9)
	assert.InDelta(t, 95.0, near[0].Confidence, 1e-9)
	assert.InDelta(t, 85.0, far[0].Confidence, 1e-9)
	assert.InDelta(t, 90.0, unknown[0].Confidence, 1e-9)
}

func TestPersonRegistry_Search_RanksBestFirst(t *testing.T) {
	r := newPersonRegistry(t, memory.NewRecordStore[domain.Person]())
	seedPersons(t, r)

	got := r.Search(domain.PersonCriteria{Surname: "Smith", BirthYear: intPtr(1852)})

	require.Len(t, got, 2)
	assert.Equal(t, "I2", got[0].Person.PersonID)
	assert.Greater(t, got[0].Confidence, got[1].Confidence)
}

func TestPersonRegistry_Resolve(t *testing.T) {
	ctx := context.Background()
	r := newPersonRegistry(t, memory.NewRecordStore[domain.Person]())
	seedPersons(t, r)
	_, err := r.UpdatePaths(ctx, "I3", map[string]any{"name.nicknames": []string{"Hans Schmidt"}})
	require.NoError(t, err)

	got := r.Resolve(driving.PersonQuery{Text: "john smith"})
	require.Len(t, got, 1)
	assert.Equal(t, "I1", got[0].Record.PersonID)
	assert.Equal(t, domain.MatchExact, got[0].MatchType)

	got = r.Resolve(driving.PersonQuery{Text: "Hans Schmidt"})
	require.Len(t, got, 1)
	assert.Equal(t, domain.MatchVariant, got[0].MatchType)

	got = r.Resolve(driving.PersonQuery{Text: "Jon Smith", Fuzzy: true})
	require.NotEmpty(t, got)
	assert.Equal(t, "I1", got[0].Record.PersonID)
	assert.Equal(t, domain.MatchFuzzy, got[0].MatchType)
}

func TestPersonRegistry_FindBySurname(t *testing.T) {
	r := newPersonRegistry(t, memory.NewRecordStore[domain.Person]())
	seedPersons(t, r)

	got := r.FindBySurname("SMITH")

	require.Len(t, got, 2)
	assert.Equal(t, "I1", got[0].PersonID)
	assert.Equal(t, "I2", got[1].PersonID)
}

func TestPersonRegistry_UpdatePaths(t *testing.T) {
	ctx := context.Background()
	store := memory.NewRecordStore[domain.Person]()
	r := newPersonRegistry(t, store)
	seedPersons(t, r)

	changed, err := r.UpdatePaths(ctx, "I1", map[string]any{
		"parents.father_name":     "James Smith",
		"vital_events.birth.year": 1851,
	})
	require.NoError(t, err)
	assert.True(t, changed)

	p, ok := r.Read("I1")
	require.True(t, ok)
	assert.Equal(t, "James Smith", p.FatherName())
	year, _ := p.BirthYear()
	assert.Equal(t, 1851, year)

	backups, err := r.ListBackups(ctx, "I1")
	require.NoError(t, err)
	require.Len(t, backups, 1)

	t.Run("idempotent", func(t *testing.T) {
		saves := store.Saves()
		changed, err := r.UpdatePaths(ctx, "I1", map[string]any{"parents.father_name": "James Smith"})
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, saves, store.Saves())
	})

	t.Run("unknown path changes nothing", func(t *testing.T) {
		_, err := r.UpdatePaths(ctx, "I1", map[string]any{
			"gender":      "female",
			"name.middle": "Q",
		})
		require.ErrorIs(t, err, domain.ErrInvalidInput)
		p, _ := r.Read("I1")
		assert.Equal(t, "male", p.Gender)
	})

	t.Run("wrong value type", func(t *testing.T) {
		_, err := r.UpdatePaths(ctx, "I1", map[string]any{"vital_events.birth.year": "soon"})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := r.UpdatePaths(ctx, "nobody", map[string]any{"gender": "male"})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("clearing the full name is rejected", func(t *testing.T) {
		_, err := r.UpdatePaths(ctx, "I4", map[string]any{"name.full_name": nil})
		assert.ErrorIs(t, err, domain.ErrMalformedRecord)
	})
}

func TestPersonRegistry_UpdatePaths_RollsBackOnSaveFailure(t *testing.T) {
	ctx := context.Background()
	store := memory.NewRecordStore[domain.Person]()
	r := newPersonRegistry(t, store)
	seedPersons(t, r)
	store.FailSave(errors.New("read-only"))

	_, err := r.UpdatePaths(ctx, "I2", map[string]any{"notes": "emigrated"})

	require.Error(t, err)
	p, _ := r.Read("I2")
	assert.Empty(t, p.Notes)
}

func TestPersonRegistry_Update(t *testing.T) {
	ctx := context.Background()
	r := newPersonRegistry(t, memory.NewRecordStore[domain.Person]())
	seedPersons(t, r)

	p, _ := r.Read("I4")
	p.Notes = "baptised 1870"
	_, err := r.Update(ctx, p)
	require.NoError(t, err)

	got, _ := r.Read("I4")
	assert.Equal(t, "baptised 1870", got.Notes)

	_, err = r.Update(ctx, domain.Person{PersonID: "missing", Name: domain.PersonName{FullName: "X"}})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPersonRegistry_Delete(t *testing.T) {
	ctx := context.Background()
	store := memory.NewRecordStore[domain.Person]()
	r := newPersonRegistry(t, store)
	seedPersons(t, r)

	found, err := r.Delete(ctx, "I2", true)
	require.NoError(t, err)
	assert.True(t, found)

	_, ok := r.Read("I2")
	assert.False(t, ok)
	archived, ok := store.Archived("I2")
	require.True(t, ok)
	assert.Equal(t, "Mary Smith", archived.Name.FullName)
	assert.Len(t, store.Records(), 3)

	found, err = r.Delete(ctx, "I3", false)
	require.NoError(t, err)
	assert.True(t, found)
	_, ok = store.Archived("I3")
	assert.False(t, ok)

	found, err = r.Delete(ctx, "I3", false)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestPersonRegistry_Delete_RollsBackArchiveOnSaveFailure(t *testing.T) {
	ctx := context.Background()
	store := memory.NewRecordStore[domain.Person]()
	r := newPersonRegistry(t, store)
	seedPersons(t, r)
	store.FailSave(errors.New("read-only"))

	found, err := r.Delete(ctx, "I2", true)

	require.Error(t, err)
	assert.True(t, found)
	_, ok := r.Read("I2")
	assert.True(t, ok, "record is back in the registry")
	_, ok = store.Archived("I2")
	assert.False(t, ok, "archived form is moved back")
	ids := make([]string, 0, 4)
	for _, p := range store.Records() {
		ids = append(ids, p.PersonID)
	}
	assert.ElementsMatch(t, []string{"I1", "I2", "I3", "I4"}, ids)
}

func TestPersonRegistry_InvalidUpdateTakesNoBackup(t *testing.T) {
	ctx := context.Background()
	store := memory.NewRecordStore[domain.Person]()
	r := newPersonRegistry(t, store)
	seedPersons(t, r)
	saves := store.Saves()

	p, _ := r.Read("I4")
	p.Name.FullName = ""
	_, err := r.Update(ctx, p)
	assert.ErrorIs(t, err, domain.ErrMalformedRecord)

	_, err = r.UpdatePaths(ctx, "I4", map[string]any{"name.full_name": ""})
	assert.ErrorIs(t, err, domain.ErrMalformedRecord)

	backups, err := r.ListBackups(ctx, "I4")
	require.NoError(t, err)
	assert.Empty(t, backups)
	assert.Equal(t, saves, store.Saves())
	got, _ := r.Read("I4")
	assert.Equal(t, "Anna Meyer", got.Name.FullName)
}

func TestPersonRegistry_Restore(t *testing.T) {
	ctx := context.Background()
	r := newPersonRegistry(t, memory.NewRecordStore[domain.Person]())
	seedPersons(t, r)

	_, err := r.UpdatePaths(ctx, "I1", map[string]any{"notes": "first"})
	require.NoError(t, err)
	_, err = r.UpdatePaths(ctx, "I1", map[string]any{"notes": "second"})
	require.NoError(t, err)

	backups, err := r.ListBackups(ctx, "I1")
	require.NoError(t, err)
	require.Len(t, backups, 2)

	p, err := r.Restore(ctx, "I1", nil)
	require.NoError(t, err)
	assert.Equal(t, "first", p.Notes)

	oldest := backups[len(backups)-1]
	p, err = r.Restore(ctx, "I1", &oldest)
	require.NoError(t, err)
	assert.Empty(t, p.Notes)

	got, _ := r.Read("I1")
	assert.Empty(t, got.Notes)

	t.Run("deleted record comes back", func(t *testing.T) {
		_, err := r.Delete(ctx, "I4", false)
		require.NoError(t, err)

		p, err := r.Restore(ctx, "I4", nil)
		require.NoError(t, err)
		assert.Equal(t, "Anna Meyer", p.Name.FullName)
		_, ok := r.Read("I4")
		assert.True(t, ok)
	})

	t.Run("no backups", func(t *testing.T) {
		_, err := r.Restore(ctx, "I2", nil)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("backup of another record", func(t *testing.T) {
		_, err := r.Restore(ctx, "I2", &oldest)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("unsafe id", func(t *testing.T) {
		_, err := r.Restore(ctx, "../I1", nil)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

// plainStore has no per-record history.
type plainStore struct {
	driven.RecordStore[domain.Person]
}

func TestPersonRegistry_NoArchiver(t *testing.T) {
	ctx := context.Background()
	r := newPersonRegistry(t, plainStore{memory.NewRecordStore[domain.Person]()})
	seedPersons(t, r)

	changed, err := r.UpdatePaths(ctx, "I1", map[string]any{"notes": "x"})
	require.NoError(t, err)
	assert.True(t, changed)

	found, err := r.Delete(ctx, "I1", true)
	require.NoError(t, err)
	assert.True(t, found)

	_, err = r.ListBackups(ctx, "I1")
	assert.ErrorIs(t, err, domain.ErrNotImplemented)
	_, err = r.Restore(ctx, "I1", nil)
	assert.ErrorIs(t, err, domain.ErrNotImplemented)
}

func TestPersonRegistry_Match(t *testing.T) {
	ctx := context.Background()
	r := newPersonRegistry(t, memory.NewRecordStore[domain.Person]())
	seedPersons(t, r)
	_, err := r.UpdatePaths(ctx, "I1", map[string]any{"parents.father_name": "James Smith"})
	require.NoError(t, err)

	subject := matching.Subject{
		Name:      "John Smith",
		BirthYear: intPtr(1850),
		Location:  "Harvey, ND",
		Father:    "James Smith",
	}

	got, err := r.Match(subject, 70)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, "I1", got[0].Person.PersonID)
	assert.GreaterOrEqual(t, got[0].Breakdown.Overall, 70.0)
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].Breakdown.Overall, got[i].Breakdown.Overall)
	}

	_, err = r.Match(matching.Subject{Name: "  "}, 0)
	assert.ErrorIs(t, err, domain.ErrMalformedRecord)
}
