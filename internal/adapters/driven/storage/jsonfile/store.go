// Package jsonfile stores a registry as one JSON document with a metadata
// header, the format the location and name data files use.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/rickhohler/biographical/internal/adapters/driven/storage"
	"github.com/rickhohler/biographical/internal/core/domain"
	"github.com/rickhohler/biographical/internal/core/ports/driven"
	"github.com/rickhohler/biographical/internal/logger"
	"github.com/rickhohler/biographical/internal/validation"
)

// DocumentVersion is written into every document's metadata.
const DocumentVersion = "1.0.0"

// BackupSuffix ends every backup file name.
const BackupSuffix = ".bak.zst"

const backupStamp = "20060102150405"

// Ensure Store implements the interfaces.
var (
	_ driven.RecordStore[domain.Location]  = (*Store[domain.Location])(nil)
	_ driven.RecordStore[domain.NameEntry] = (*Store[domain.NameEntry])(nil)
	_ driven.Backupper                     = (*Store[domain.Location])(nil)
)

// Metadata is the header of a registry document.
type Metadata struct {
	Version     string `json:"version"`
	LastUpdated string `json:"last_updated"`
	Total       int    `json:"-"`
}

// Store reads and writes one JSON document holding records of one kind
// under the kind key, e.g. {"metadata": {...}, "locations": [...]}.
type Store[T domain.Record[T]] struct {
	path     string
	kind     string
	totalKey string
	now      func() time.Time
}

// New creates a store for the document at path. totalKey names the record
// count inside metadata.
func New[T domain.Record[T]](path, kind, totalKey string) *Store[T] {
	return &Store[T]{path: path, kind: kind, totalKey: totalKey, now: time.Now}
}

// Locations returns the store for a locations document.
func Locations(path string) *Store[domain.Location] {
	return New[domain.Location](path, "locations", "total_locations")
}

// Names returns the store for a names document.
func Names(path string) *Store[domain.NameEntry] {
	return New[domain.NameEntry](path, "names", "total_entries")
}

// Path returns the document path.
func (s *Store[T]) Path() string {
	return s.path
}

// Load decodes the document. A missing file is domain.ErrNotFound; a
// missing kind key is an empty collection.
func (s *Store[T]) Load(_ context.Context) ([]T, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", s.path, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("open %s: %w", s.path, err)
	}
	defer f.Close()
	return s.decode(f)
}

func (s *Store[T]) decode(r io.Reader) ([]T, error) {
	var doc map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrMalformedRecord, s.path, err)
	}
	raw, ok := doc[s.kind]
	if !ok || string(raw) == "null" {
		return nil, nil
	}
	var records []T
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrMalformedRecord, s.path, err)
	}
	if err := validation.Records(records); err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}
	return records, nil
}

// Metadata reads the header of the stored document.
func (s *Store[T]) Metadata() (Metadata, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Metadata{}, fmt.Errorf("%s: %w", s.path, domain.ErrNotFound)
		}
		return Metadata{}, err
	}
	var doc struct {
		Metadata map[string]any `json:"metadata"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return Metadata{}, fmt.Errorf("%w: %s: %v", domain.ErrMalformedRecord, s.path, err)
	}
	md := Metadata{}
	md.Version, _ = doc.Metadata["version"].(string)
	md.LastUpdated, _ = doc.Metadata["last_updated"].(string)
	if n, ok := doc.Metadata[s.totalKey].(float64); ok {
		md.Total = int(n)
	}
	return md, nil
}

// Save replaces the document with records. The write is atomic.
func (s *Store[T]) Save(_ context.Context, records []T) error {
	if records == nil {
		records = []T{}
	}
	doc := map[string]any{
		"metadata": map[string]any{
			"version":      DocumentVersion,
			"last_updated": s.now().Format(time.RFC3339),
			s.totalKey:     len(records),
		},
		s.kind: records,
	}
	err := storage.WriteFileAtomic(s.path, 0o600, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(doc)
	})
	if err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	logger.Debug("wrote %d %s to %s", len(records), s.kind, s.path)
	return nil
}

// Backup writes a zstd-compressed copy of the document next to it, named
// <path>.<YYYYmmddHHMMSS>.bak.zst. With no document it returns "".
func (s *Store[T]) Backup(_ context.Context) (string, error) {
	src, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("open %s: %w", s.path, err)
	}
	defer src.Close()

	dst := s.path + "." + s.now().Format(backupStamp) + BackupSuffix
	err = storage.WriteFileAtomic(dst, 0o600, func(w io.Writer) error {
		enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return err
		}
		if _, err := io.Copy(enc, src); err != nil {
			_ = enc.Close()
			return err
		}
		return enc.Close()
	})
	if err != nil {
		return "", fmt.Errorf("backup %s: %w", s.path, err)
	}
	logger.Info("backed up %s to %s", s.kind, dst)
	return dst, nil
}

// ReadBackup decodes the records held by a backup written by Backup.
func (s *Store[T]) ReadBackup(path string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, domain.ErrNotFound)
		}
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrMalformedRecord, path, err)
	}
	defer dec.Close()
	return s.decode(dec)
}
