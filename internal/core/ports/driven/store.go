package driven

import (
	"context"
	"time"
)

// RecordStore persists the records of one registry.
// A store only moves plain data; it never indexes or resolves.
type RecordStore[T any] interface {
	// Load returns every stored record.
	// Returns domain.ErrNotFound if the backing source does not exist and
	// domain.ErrMalformedRecord if a record fails to decode or validate.
	Load(ctx context.Context) ([]T, error)

	// Save replaces the stored collection with records.
	Save(ctx context.Context, records []T) error
}

// Backupper snapshots a whole registry document.
type Backupper interface {
	// Backup copies the current document and returns the backup path.
	// Returns "" with no error when there is nothing to back up yet.
	Backup(ctx context.Context) (string, error)
}

// Backup describes one stored per-record backup.
type Backup struct {
	RecordID  string
	Path      string
	CreatedAt time.Time
}

// Archiver keeps per-record history for stores with one file per record.
type Archiver[T any] interface {
	// BackupRecord copies the stored form of id.
	BackupRecord(ctx context.Context, id string) (Backup, error)

	// Archive moves the stored form of id out of the live set.
	Archive(ctx context.Context, id string) error

	// Unarchive moves the most recently archived form of id back into the
	// live set. Returns domain.ErrNotFound when nothing is archived for id.
	Unarchive(ctx context.Context, id string) error

	// ListBackups returns backups for id, newest first.
	ListBackups(ctx context.Context, id string) ([]Backup, error)

	// ReadBackup decodes a backup.
	ReadBackup(ctx context.Context, b Backup) (T, error)
}
