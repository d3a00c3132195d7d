// Package yamldir stores person records as one YAML file per person, with
// side directories for per-record backups and archived records.
package yamldir

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rickhohler/biographical/internal/adapters/driven/storage"
	"github.com/rickhohler/biographical/internal/core/domain"
	"github.com/rickhohler/biographical/internal/core/ports/driven"
	"github.com/rickhohler/biographical/internal/logger"
	"github.com/rickhohler/biographical/internal/validation"
)

// Ensure Store implements the interfaces.
var (
	_ driven.RecordStore[domain.Person] = (*Store)(nil)
	_ driven.Archiver[domain.Person]    = (*Store)(nil)
)

const (
	fileExt     = ".yaml"
	backupStamp = "20060102_150405"
)

// Store keeps each person in <dir>/<id>_<Given>_<Surname>.yaml.
type Store struct {
	dir        string
	backupDir  string
	archiveDir string
	now        func() time.Time
}

// New creates a store over dir. Empty backupDir and archiveDir default to
// "backups" and "archive" next to dir.
func New(dir, backupDir, archiveDir string) *Store {
	parent := filepath.Dir(filepath.Clean(dir))
	if backupDir == "" {
		backupDir = filepath.Join(parent, "backups")
	}
	if archiveDir == "" {
		archiveDir = filepath.Join(parent, "archive")
	}
	return &Store{dir: dir, backupDir: backupDir, archiveDir: archiveDir, now: time.Now}
}

// Dir returns the directory holding live records.
func (s *Store) Dir() string {
	return s.dir
}

// FileName returns the file name used for p. Callers check the id with
// domain.ValidatePersonID first.
func FileName(p domain.Person) string {
	return p.PersonID + "_" + sanitize(p.Name.GivenNames) + "_" + sanitize(p.Name.Surname) + fileExt
}

func sanitize(name string) string {
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`<>:"/\|?*`, r) {
			return '_'
		}
		return r
	}, name)
	return strings.Join(strings.Fields(name), "_")
}

// Load decodes every YAML file in the directory, in file name order.
// A missing directory is domain.ErrNotFound.
func (s *Store) Load(_ context.Context) ([]domain.Person, error) {
	names, err := s.yamlFiles(s.dir)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Person, 0, len(names))
	for _, name := range names {
		p, err := readPerson(filepath.Join(s.dir, name))
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *Store) yamlFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", dir, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != fileExt {
			continue
		}
		out = append(out, e.Name())
	}
	return out, nil
}

func readPerson(path string) (domain.Person, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.Person{}, fmt.Errorf("%s: %w", path, domain.ErrNotFound)
		}
		return domain.Person{}, err
	}
	var p domain.Person
	if err := yaml.Unmarshal(data, &p); err != nil {
		return domain.Person{}, fmt.Errorf("%w: %s: %v", domain.ErrMalformedRecord, path, err)
	}
	if err := validation.Struct(p); err != nil {
		return domain.Person{}, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

func encode(p domain.Person) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes one file per record and removes files of records no longer
// present. Unchanged files are left alone. Nothing is written when any
// record has an id that is unsafe as a file name.
func (s *Store) Save(_ context.Context, records []domain.Person) error {
	for _, p := range records {
		if err := domain.ValidatePersonID(p.PersonID); err != nil {
			return fmt.Errorf("save %s: %w", s.dir, err)
		}
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("create %s: %w", s.dir, err)
	}

	keep := make(map[string]struct{}, len(records))
	written := 0
	for _, p := range records {
		name := FileName(p)
		keep[name] = struct{}{}

		data, err := encode(p)
		if err != nil {
			return fmt.Errorf("encode %s: %w", p.PersonID, err)
		}
		path := filepath.Join(s.dir, name)
		if cur, err := os.ReadFile(path); err == nil && bytes.Equal(cur, data) {
			continue
		}
		err = storage.WriteFileAtomic(path, 0o600, func(w io.Writer) error {
			_, err := w.Write(data)
			return err
		})
		if err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		written++
	}

	existing, err := s.yamlFiles(s.dir)
	if err != nil {
		return err
	}
	removed := 0
	for _, name := range existing {
		if _, ok := keep[name]; ok {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", name, err)
		}
		removed++
	}
	logger.Debug("persons: %d written, %d removed in %s", written, removed, s.dir)
	return nil
}

// find returns the live file name for id.
func (s *Store) find(id string) (string, error) {
	if err := domain.ValidatePersonID(id); err != nil {
		return "", err
	}
	names, err := s.yamlFiles(s.dir)
	if err != nil {
		return "", err
	}
	for _, name := range names {
		if strings.HasPrefix(name, id+"_") {
			return name, nil
		}
	}
	return "", fmt.Errorf("person %s: %w", id, domain.ErrNotFound)
}

// BackupRecord copies the live file of id into the backup directory as
// <stem>_<YYYYmmdd_HHMMSS>.yaml.
func (s *Store) BackupRecord(_ context.Context, id string) (driven.Backup, error) {
	name, err := s.find(id)
	if err != nil {
		return driven.Backup{}, err
	}
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return driven.Backup{}, fmt.Errorf("read %s: %w", name, err)
	}
	if err := os.MkdirAll(s.backupDir, 0o700); err != nil {
		return driven.Backup{}, fmt.Errorf("create %s: %w", s.backupDir, err)
	}

	now := s.now()
	stem := strings.TrimSuffix(name, fileExt) + "_" + now.Format(backupStamp)
	dst := filepath.Join(s.backupDir, stem+fileExt)
	for n := 2; fileExists(dst); n++ {
		dst = filepath.Join(s.backupDir, fmt.Sprintf("%s-%d%s", stem, n, fileExt))
	}
	err = storage.WriteFileAtomic(dst, 0o600, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
	if err != nil {
		return driven.Backup{}, fmt.Errorf("backup %s: %w", id, err)
	}
	if err := os.Chtimes(dst, now, now); err != nil {
		return driven.Backup{}, fmt.Errorf("backup %s: %w", id, err)
	}
	logger.Info("backup created: %s", dst)
	return driven.Backup{RecordID: id, Path: dst, CreatedAt: now}, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Archive moves the live file of id into the archive directory. The file's
// modification time is set to the archive time.
func (s *Store) Archive(_ context.Context, id string) error {
	name, err := s.find(id)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.archiveDir, 0o700); err != nil {
		return fmt.Errorf("create %s: %w", s.archiveDir, err)
	}
	dst := filepath.Join(s.archiveDir, name)
	if err := os.Rename(filepath.Join(s.dir, name), dst); err != nil {
		return fmt.Errorf("archive %s: %w", id, err)
	}
	now := s.now()
	if err := os.Chtimes(dst, now, now); err != nil {
		return fmt.Errorf("archive %s: %w", id, err)
	}
	logger.Info("archived person %s -> %s", id, dst)
	return nil
}

// Unarchive moves the most recently archived file of id back into the
// live directory.
func (s *Store) Unarchive(_ context.Context, id string) error {
	name, err := s.archived(id)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("create %s: %w", s.dir, err)
	}
	dst := filepath.Join(s.dir, name)
	if err := os.Rename(filepath.Join(s.archiveDir, name), dst); err != nil {
		return fmt.Errorf("unarchive %s: %w", id, err)
	}
	logger.Info("unarchived person %s -> %s", id, dst)
	return nil
}

// archived returns the newest archive file name for id.
func (s *Store) archived(id string) (string, error) {
	if err := domain.ValidatePersonID(id); err != nil {
		return "", err
	}
	entries, err := os.ReadDir(s.archiveDir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("read %s: %w", s.archiveDir, err)
	}
	var (
		best    string
		bestMod time.Time
	)
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != fileExt || !strings.HasPrefix(e.Name(), id+"_") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return "", err
		}
		if best == "" || info.ModTime().After(bestMod) {
			best, bestMod = e.Name(), info.ModTime()
		}
	}
	if best == "" {
		return "", fmt.Errorf("archived person %s: %w", id, domain.ErrNotFound)
	}
	return best, nil
}

// ListBackups returns the backups of id, newest first.
func (s *Store) ListBackups(_ context.Context, id string) ([]driven.Backup, error) {
	entries, err := os.ReadDir(s.backupDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", s.backupDir, err)
	}
	var out []driven.Backup
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), id+"_") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, err
		}
		out = append(out, driven.Backup{
			RecordID:  id,
			Path:      filepath.Join(s.backupDir, e.Name()),
			CreatedAt: info.ModTime(),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Path > out[j].Path
	})
	return out, nil
}

// ReadBackup decodes the person stored in b.
func (s *Store) ReadBackup(_ context.Context, b driven.Backup) (domain.Person, error) {
	return readPerson(b.Path)
}

// ReadArchived decodes the most recently archived record of id.
func (s *Store) ReadArchived(id string) (domain.Person, error) {
	name, err := s.archived(id)
	if err != nil {
		return domain.Person{}, err
	}
	return readPerson(filepath.Join(s.archiveDir, name))
}
