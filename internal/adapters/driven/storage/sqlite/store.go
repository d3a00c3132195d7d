package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/rickhohler/biographical/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/rickhohler/biographical/internal/core/domain"
	"github.com/rickhohler/biographical/internal/core/ports/driven"
	"github.com/rickhohler/biographical/internal/validation"
)

// DatabaseFileName is the database file created inside the data directory.
const DatabaseFileName = "registry.db"

// Store is a SQLite database shared by the record stores of every kind.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.biographical/data/registry.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".biographical", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DatabaseFileName)

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
		now:  time.Now,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort and run migrations
	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_records.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Record Store ====================

// RecordStore keeps the records of one kind.
type RecordStore[T domain.Record[T]] struct {
	store *Store
	kind  string
}

// Ensure RecordStore implements the interfaces.
var (
	_ driven.RecordStore[domain.Location]  = (*RecordStore[domain.Location])(nil)
	_ driven.RecordStore[domain.NameEntry] = (*RecordStore[domain.NameEntry])(nil)
	_ driven.RecordStore[domain.Person]    = (*RecordStore[domain.Person])(nil)
	_ driven.Archiver[domain.Person]       = (*RecordStore[domain.Person])(nil)
)

// Records returns the record store for kind.
func Records[T domain.Record[T]](s *Store, kind string) *RecordStore[T] {
	return &RecordStore[T]{store: s, kind: kind}
}

// Load returns every record of the kind in saved order.
// Returns domain.ErrNotFound if the kind has never been saved.
func (r *RecordStore[T]) Load(ctx context.Context) ([]T, error) {
	var savedAt string
	err := r.store.db.QueryRowContext(ctx,
		"SELECT saved_at FROM collections WHERE kind = ?", r.kind).Scan(&savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load %s: %w", r.kind, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", r.kind, err)
	}

	rows, err := r.store.db.QueryContext(ctx,
		"SELECT id, body FROM records WHERE kind = ? ORDER BY position", r.kind)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", r.kind, err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		var id, body string
		if err := rows.Scan(&id, &body); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", r.kind, err)
		}
		rec, err := decode[T](body)
		if err != nil {
			return nil, fmt.Errorf("load %s %q: %w", r.kind, id, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Save replaces every record of the kind in one transaction.
func (r *RecordStore[T]) Save(ctx context.Context, records []T) error {
	tx, err := r.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, "DELETE FROM records WHERE kind = ?", r.kind); err != nil {
		return fmt.Errorf("clearing %s: %w", r.kind, err)
	}

	now := r.store.now().UTC().Format(time.RFC3339Nano)
	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO records (kind, id, position, body, updated_at) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, rec := range records {
		body, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshalling %s %q: %w", r.kind, rec.RecordID(), err)
		}
		if _, err := stmt.ExecContext(ctx, r.kind, rec.RecordID(), i, string(body), now); err != nil {
			return fmt.Errorf("inserting %s %q: %w", r.kind, rec.RecordID(), err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO collections (kind, saved_at, total) VALUES (?, ?, ?)
		ON CONFLICT(kind) DO UPDATE SET saved_at = excluded.saved_at, total = excluded.total
	`, r.kind, now, len(records))
	if err != nil {
		return fmt.Errorf("recording %s collection: %w", r.kind, err)
	}

	return tx.Commit()
}

// BackupRecord copies the stored body of id into the history table.
func (r *RecordStore[T]) BackupRecord(ctx context.Context, id string) (driven.Backup, error) {
	return r.copyToHistory(ctx, r.store.db, id, false)
}

// Archive moves id from the live records to the history table.
func (r *RecordStore[T]) Archive(ctx context.Context, id string) error {
	tx, err := r.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := r.copyToHistory(ctx, tx, id, true); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM records WHERE kind = ? AND id = ?", r.kind, id); err != nil {
		return fmt.Errorf("removing archived %s %q: %w", r.kind, id, err)
	}
	return tx.Commit()
}

// Unarchive moves the newest archived history row of id back into the live
// records, after any records already there.
func (r *RecordStore[T]) Unarchive(ctx context.Context, id string) error {
	tx, err := r.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var (
		seq  int64
		body string
	)
	err = tx.QueryRowContext(ctx, `
		SELECT seq, body FROM record_history
		WHERE kind = ? AND id = ? AND archived = 1
		ORDER BY seq DESC LIMIT 1
	`, r.kind, id).Scan(&seq, &body)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("archived %s %q: %w", r.kind, id, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("reading archived %s %q: %w", r.kind, id, err)
	}

	now := r.store.now().UTC().Format(time.RFC3339Nano)
	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO records (kind, id, position, body, updated_at)
		VALUES (?, ?, (SELECT COALESCE(MAX(position) + 1, 0) FROM records WHERE kind = ?), ?, ?)
	`, r.kind, id, r.kind, body, now)
	if err != nil {
		return fmt.Errorf("restoring archived %s %q: %w", r.kind, id, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM record_history WHERE seq = ?", seq); err != nil {
		return fmt.Errorf("removing archive row of %s %q: %w", r.kind, id, err)
	}
	return tx.Commit()
}

// querier is the part of *sql.DB and *sql.Tx used by copyToHistory.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *RecordStore[T]) copyToHistory(ctx context.Context, q querier, id string, archived bool) (driven.Backup, error) {
	var body string
	err := q.QueryRowContext(ctx,
		"SELECT body FROM records WHERE kind = ? AND id = ?", r.kind, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return driven.Backup{}, fmt.Errorf("%s %q: %w", r.kind, id, domain.ErrNotFound)
	}
	if err != nil {
		return driven.Backup{}, fmt.Errorf("reading %s %q: %w", r.kind, id, err)
	}

	flag := 0
	if archived {
		flag = 1
	}
	created := r.store.now().UTC()
	res, err := q.ExecContext(ctx,
		"INSERT INTO record_history (kind, id, body, archived, created_at) VALUES (?, ?, ?, ?, ?)",
		r.kind, id, body, flag, created.Format(time.RFC3339Nano))
	if err != nil {
		return driven.Backup{}, fmt.Errorf("writing history for %s %q: %w", r.kind, id, err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return driven.Backup{}, fmt.Errorf("reading history id: %w", err)
	}
	return driven.Backup{RecordID: id, Path: historyPath(r.kind, id, seq), CreatedAt: created}, nil
}

// ListBackups returns non-archived history rows for id, newest first.
func (r *RecordStore[T]) ListBackups(ctx context.Context, id string) ([]driven.Backup, error) {
	rows, err := r.store.db.QueryContext(ctx, `
		SELECT seq, created_at FROM record_history
		WHERE kind = ? AND id = ? AND archived = 0
		ORDER BY seq DESC
	`, r.kind, id)
	if err != nil {
		return nil, fmt.Errorf("listing backups of %s %q: %w", r.kind, id, err)
	}
	defer rows.Close()

	var out []driven.Backup
	for rows.Next() {
		var (
			seq     int64
			created string
		)
		if err := rows.Scan(&seq, &created); err != nil {
			return nil, fmt.Errorf("scanning backup: %w", err)
		}
		ts, _ := time.Parse(time.RFC3339Nano, created)
		out = append(out, driven.Backup{RecordID: id, Path: historyPath(r.kind, id, seq), CreatedAt: ts})
	}
	return out, rows.Err()
}

// ReadBackup decodes the history row named by b.Path.
func (r *RecordStore[T]) ReadBackup(ctx context.Context, b driven.Backup) (T, error) {
	var zero T
	var seq int64
	if _, err := fmt.Sscanf(b.Path[strings.LastIndex(b.Path, "#")+1:], "%d", &seq); err != nil {
		return zero, fmt.Errorf("%w: backup path %q", domain.ErrInvalidInput, b.Path)
	}
	var body string
	err := r.store.db.QueryRowContext(ctx,
		"SELECT body FROM record_history WHERE seq = ? AND kind = ?", seq, r.kind).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return zero, fmt.Errorf("backup %q: %w", b.Path, domain.ErrNotFound)
	}
	if err != nil {
		return zero, fmt.Errorf("reading backup %q: %w", b.Path, err)
	}
	return decode[T](body)
}

// historyPath names a history row, e.g. "sqlite:persons/I1#7".
func historyPath(kind, id string, seq int64) string {
	return fmt.Sprintf("sqlite:%s/%s#%d", kind, id, seq)
}

func decode[T domain.Record[T]](body string) (T, error) {
	var rec T
	if err := json.Unmarshal([]byte(body), &rec); err != nil {
		return rec, fmt.Errorf("%w: %v", domain.ErrMalformedRecord, err)
	}
	if err := validation.Struct(rec); err != nil {
		return rec, err
	}
	return rec, nil
}
