// Package biographical wires the location, name and person registries to
// their storage, similarity backend, metrics and file watcher according to
// the stored settings.
package biographical

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rickhohler/biographical/internal/adapters/driven/config/file"
	"github.com/rickhohler/biographical/internal/adapters/driven/metrics"
	"github.com/rickhohler/biographical/internal/adapters/driven/similarity"
	"github.com/rickhohler/biographical/internal/adapters/driven/storage/jsonfile"
	"github.com/rickhohler/biographical/internal/adapters/driven/storage/sqlite"
	"github.com/rickhohler/biographical/internal/adapters/driven/storage/yamldir"
	"github.com/rickhohler/biographical/internal/adapters/driven/watch"
	"github.com/rickhohler/biographical/internal/core/domain"
	"github.com/rickhohler/biographical/internal/core/ports/driven"
	"github.com/rickhohler/biographical/internal/core/services"
	"github.com/rickhohler/biographical/internal/logger"
	"github.com/rickhohler/biographical/internal/matching"
)

// File layout of the file storage backend, relative to the data directory.
const (
	LocationsFile = "locations.json"
	NamesFile     = "names.json"
	PersonsDir    = "persons"
	BackupsDir    = "backups"
	ArchiveDir    = "archive"
)

// Config selects where settings live and which optional integrations run.
type Config struct {
	// ConfigDir holds biographical.toml. Empty means ~/.biographical.
	ConfigDir string

	// ConfigStore replaces the TOML store when set.
	ConfigStore driven.ConfigStore

	// Registerer receives registry metrics. Nil disables metrics.
	Registerer prometheus.Registerer

	// Verbose turns on debug logging.
	Verbose bool
}

// Catalog is the set of registries opened from one data directory.
type Catalog struct {
	Settings  *services.SettingsService
	Locations *services.LocationRegistry
	Names     *services.NameResolver
	Persons   *services.PersonRegistry
	Scorer    *matching.Scorer
	Metrics   *metrics.Observer

	// DataDir is the resolved storage directory.
	DataDir string

	// Warnings lists non-fatal fallbacks taken while opening.
	Warnings []string

	stores  storeSet
	watcher *watch.Watcher
	cancel  context.CancelFunc
	done    chan struct{}
	once    sync.Once
}

type storeSet struct {
	backend   domain.StorageBackend
	locations driven.RecordStore[domain.Location]
	names     driven.RecordStore[domain.NameEntry]
	persons   driven.RecordStore[domain.Person]
	close     func() error
}

// Open reads the settings, builds the registries over the configured
// storage backend and loads them. Missing data files yield empty registries.
// When storage.watch is set, registries reload after their files change
// until ctx is done or Close is called.
func Open(ctx context.Context, cfg Config) (*Catalog, error) {
	if cfg.Verbose {
		logger.SetVerbose(true)
	}

	configStore := cfg.ConfigStore
	if configStore == nil {
		fs, err := file.NewConfigStore(cfg.ConfigDir)
		if err != nil {
			return nil, fmt.Errorf("open config: %w", err)
		}
		configStore = fs
	}
	settingsSvc := services.NewSettingsService(configStore)
	settings, err := settingsSvc.Get()
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	logger.Section("Opening registries")
	sim := similarity.Init(settings.Similarity)
	scorer, err := matching.NewScorer(sim.Provider, settings.Scoring.Weights)
	if err != nil {
		return nil, fmt.Errorf("scoring weights: %w", err)
	}

	c := &Catalog{
		Settings: settingsSvc,
		Scorer:   scorer,
		DataDir:  resolveDataDir(settings.Storage.DataDir, configStore.Path()),
		Warnings: sim.Warnings,
	}

	var opts []services.RegistryOption
	if cfg.Registerer != nil {
		c.Metrics = metrics.New(cfg.Registerer)
		opts = append(opts, services.WithObserver(c.Metrics))
	}

	c.stores, err = openStores(settings.Storage.Backend, c.DataDir)
	if err != nil {
		return nil, err
	}

	threshold := settings.Resolver.FuzzyThreshold
	c.Locations = services.NewLocationRegistry(c.stores.locations, sim.Provider, threshold, opts...)
	c.Names = services.NewNameResolver(
		services.NewNameRegistry(c.stores.names, sim.Provider, threshold, opts...),
		sim.Provider,
		settings.Resolver.SuggestThreshold,
	)
	c.Persons = services.NewPersonRegistry(c.stores.persons, sim.Provider, scorer, threshold, opts...)

	if err := c.Reload(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}

	if settings.Storage.Watch {
		if err := c.startWatcher(ctx); err != nil {
			_ = c.Close()
			return nil, err
		}
	}
	logger.Info("opened %d locations, %d names, %d persons from %s",
		c.Locations.Len(), c.Names.Len(), c.Persons.Len(), c.DataDir)
	return c, nil
}

func resolveDataDir(dataDir, configPath string) string {
	if dataDir == "" {
		dataDir = domain.DefaultDataDir
	}
	if filepath.IsAbs(dataDir) || configPath == "" || configPath == ":memory:" {
		return dataDir
	}
	return filepath.Join(filepath.Dir(configPath), dataDir)
}

func openStores(backend domain.StorageBackend, dataDir string) (storeSet, error) {
	switch backend {
	case domain.StorageFile:
		return storeSet{
			backend:   backend,
			locations: jsonfile.Locations(filepath.Join(dataDir, LocationsFile)),
			names:     jsonfile.Names(filepath.Join(dataDir, NamesFile)),
			persons: yamldir.New(
				filepath.Join(dataDir, PersonsDir),
				filepath.Join(dataDir, BackupsDir),
				filepath.Join(dataDir, ArchiveDir),
			),
			close: func() error { return nil },
		}, nil
	case domain.StorageSQLite:
		db, err := sqlite.NewStore(dataDir)
		if err != nil {
			return storeSet{}, fmt.Errorf("open sqlite store: %w", err)
		}
		return storeSet{
			backend:   backend,
			locations: sqlite.Records[domain.Location](db, services.LocationKind),
			names:     sqlite.Records[domain.NameEntry](db, services.NameKind),
			persons:   sqlite.Records[domain.Person](db, services.PersonKind),
			close:     db.Close,
		}, nil
	default:
		return storeSet{}, fmt.Errorf("%w: storage backend %q", domain.ErrInvalidConfiguration, backend)
	}
}

// Reload reloads every registry from storage.
func (c *Catalog) Reload(ctx context.Context) error {
	if err := c.Locations.Load(ctx); err != nil {
		return err
	}
	if err := c.Names.Load(ctx); err != nil {
		return err
	}
	return c.Persons.Load(ctx)
}

// Save writes the location and name registries. Person changes are written
// by each person operation.
func (c *Catalog) Save(ctx context.Context) error {
	if err := c.Locations.Save(ctx); err != nil {
		return err
	}
	return c.Names.Save(ctx)
}

// Backup snapshots the location and name documents when the storage backend
// supports whole-document backups, and returns the backup paths.
func (c *Catalog) Backup(ctx context.Context) ([]string, error) {
	var paths []string
	for _, store := range []any{c.stores.locations, c.stores.names} {
		b, ok := store.(driven.Backupper)
		if !ok {
			continue
		}
		path, err := b.Backup(ctx)
		if err != nil {
			return paths, err
		}
		if path != "" {
			paths = append(paths, path)
		}
	}
	if len(paths) == 0 && c.stores.backend != domain.StorageFile {
		return nil, fmt.Errorf("%w: document backups for %s storage", domain.ErrNotImplemented, c.stores.backend)
	}
	return paths, nil
}

func (c *Catalog) startWatcher(ctx context.Context) error {
	if c.stores.backend != domain.StorageFile {
		msg := fmt.Sprintf("storage.watch ignored for %s storage", c.stores.backend)
		logger.Warn("%s", msg)
		c.Warnings = append(c.Warnings, msg)
		return nil
	}
	w, err := watch.New(0)
	if err != nil {
		return err
	}
	targets := []struct {
		name string
		add  func() error
	}{
		{services.LocationKind, func() error {
			return w.WatchFile(services.LocationKind, filepath.Join(c.DataDir, LocationsFile),
				reloadIfSaved(services.LocationKind, c.Locations.ReloadIfSaved))
		}},
		{services.NameKind, func() error {
			return w.WatchFile(services.NameKind, filepath.Join(c.DataDir, NamesFile),
				reloadIfSaved(services.NameKind, c.Names.ReloadIfSaved))
		}},
		{services.PersonKind, func() error {
			return w.WatchDir(services.PersonKind, filepath.Join(c.DataDir, PersonsDir), ".yaml",
				reloadIfSaved(services.PersonKind, c.Persons.ReloadIfSaved))
		}},
	}
	for _, t := range targets {
		if err := t.add(); err != nil {
			_ = w.Close()
			return fmt.Errorf("watch %s: %w", t.name, err)
		}
	}

	wctx, cancel := context.WithCancel(ctx)
	c.watcher, c.cancel, c.done = w, cancel, make(chan struct{})
	go func() {
		defer close(c.done)
		if err := w.Run(wctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("file watcher stopped: %v", err)
		}
	}()
	return nil
}

// reloadIfSaved adapts a registry reload to the watcher. Unsaved in-memory
// changes win over the file on disk until the next Save.
func reloadIfSaved(kind string, reload func(context.Context) (bool, error)) watch.ReloadFunc {
	return func(ctx context.Context) error {
		loaded, err := reload(ctx)
		if err != nil {
			return err
		}
		if !loaded {
			return fmt.Errorf("%w: %s has unsaved changes", watch.ErrReloadSkipped, kind)
		}
		return nil
	}
}

// Close stops the watcher and releases the storage backend.
func (c *Catalog) Close() error {
	var err error
	c.once.Do(func() {
		if c.watcher != nil {
			c.cancel()
			<-c.done
			err = c.watcher.Close()
		}
		if c.stores.close != nil {
			if cerr := c.stores.close(); cerr != nil && err == nil {
				err = cerr
			}
		}
	})
	return err
}
