package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickhohler/biographical/internal/core/domain"
)

func person(id, name string) domain.Person {
	return domain.Person{PersonID: id, Name: domain.PersonName{FullName: name}}
}

func TestRecordStore_LoadMissing(t *testing.T) {
	store := NewRecordStore[domain.Person]()

	_, err := store.Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRecordStore_SaveLoad(t *testing.T) {
	ctx := context.Background()
	store := NewRecordStore[domain.Person]()

	in := []domain.Person{person("I1", "Hans Mueller")}
	require.NoError(t, store.Save(ctx, in))
	in[0].Name.FullName = "changed"

	out, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Hans Mueller", out[0].Name.FullName)
	assert.Equal(t, 1, store.Saves())
}

func TestRecordStore_FailSave(t *testing.T) {
	ctx := context.Background()
	store := NewRecordStore[domain.Person]().Seed(person("I1", "A"))
	boom := errors.New("disk full")

	store.FailSave(boom)
	assert.ErrorIs(t, store.Save(ctx, nil), boom)
	assert.Len(t, store.Records(), 1)

	store.FailSave(nil)
	require.NoError(t, store.Save(ctx, nil))
	assert.Empty(t, store.Records())
}

func TestRecordStore_BackupArchive(t *testing.T) {
	ctx := context.Background()
	store := NewRecordStore[domain.Person]().Seed(person("I1", "First"))

	b1, err := store.BackupRecord(ctx, "I1")
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, []domain.Person{person("I1", "Second")}))
	b2, err := store.BackupRecord(ctx, "I1")
	require.NoError(t, err)

	list, err := store.ListBackups(ctx, "I1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, b2.Path, list[0].Path, "newest first")

	old, err := store.ReadBackup(ctx, b1)
	require.NoError(t, err)
	assert.Equal(t, "First", old.Name.FullName)

	require.NoError(t, store.Archive(ctx, "I1"))
	assert.Empty(t, store.Records())
	arch, ok := store.Archived("I1")
	assert.True(t, ok)
	assert.Equal(t, "Second", arch.Name.FullName)

	assert.ErrorIs(t, store.Archive(ctx, "I1"), domain.ErrNotFound)
	_, err = store.BackupRecord(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
