// Package watch reloads registries when their backing files change on disk.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/rickhohler/biographical/internal/logger"
)

// DefaultDebounce is the quiet period after the last event before reloading.
const DefaultDebounce = 200 * time.Millisecond

// ErrReloadSkipped is returned by a ReloadFunc that chose to keep the
// current contents, for example because they have not been saved yet.
var ErrReloadSkipped = errors.New("reload skipped")

// ReloadFunc reloads one registry from its store.
type ReloadFunc func(ctx context.Context) error

type target struct {
	name   string
	dir    string
	match  func(base string) bool
	reload ReloadFunc
}

// Watcher batches file events per target and calls the target's reload once
// the target has been quiet for the debounce period.
type Watcher struct {
	fs       *fsnotify.Watcher
	debounce time.Duration

	mu      sync.Mutex
	targets []target
	dirs    map[string]struct{}
}

// New creates a watcher. A debounce of zero or less uses DefaultDebounce.
func New(debounce time.Duration) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{fs: fs, debounce: debounce, dirs: make(map[string]struct{})}, nil
}

// WatchFile reloads when path is written or replaced. The parent directory
// is watched so atomic renames are seen.
func (w *Watcher) WatchFile(name, path string, reload ReloadFunc) error {
	base := filepath.Base(path)
	return w.add(target{
		name:   name,
		dir:    filepath.Dir(path),
		match:  func(b string) bool { return b == base },
		reload: reload,
	})
}

// WatchDir reloads when any file with extension ext changes in dir.
func (w *Watcher) WatchDir(name, dir, ext string, reload ReloadFunc) error {
	return w.add(target{
		name:   name,
		dir:    dir,
		match:  func(b string) bool { return filepath.Ext(b) == ext },
		reload: reload,
	})
}

func (w *Watcher) add(t target) error {
	dir := filepath.Clean(t.dir)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	t.dir = dir

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.dirs[dir]; !ok {
		if err := w.fs.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		w.dirs[dir] = struct{}{}
	}
	w.targets = append(w.targets, t)
	logger.Debug("watching %s for %s", dir, t.name)
	return nil
}

func (w *Watcher) matching(event fsnotify.Event) []int {
	dir, base := filepath.Dir(event.Name), filepath.Base(event.Name)
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []int
	for i, t := range w.targets {
		if t.dir == dir && t.match(base) {
			out = append(out, i)
		}
	}
	return out
}

// Run processes events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()
	pending := make(map[int]struct{})

	for {
		select {
		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if event.Op == fsnotify.Chmod {
				continue
			}
			hits := w.matching(event)
			if len(hits) == 0 {
				continue
			}
			for _, i := range hits {
				pending[i] = struct{}{}
			}
			timer.Reset(w.debounce)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			logger.Warn("file watcher error: %v", err)

		case <-timer.C:
			w.flush(ctx, pending)
			pending = make(map[int]struct{})

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (w *Watcher) flush(ctx context.Context, pending map[int]struct{}) {
	w.mu.Lock()
	targets := make([]target, 0, len(pending))
	for i := range pending {
		targets = append(targets, w.targets[i])
	}
	w.mu.Unlock()

	for _, t := range targets {
		err := t.reload(ctx)
		switch {
		case errors.Is(err, ErrReloadSkipped):
			logger.Warn("%s changed on disk, not reloaded: %v", t.name, err)
			continue
		case err != nil:
			logger.Warn("reload %s failed, keeping previous contents: %v", t.name, err)
			continue
		}
		logger.Info("reloaded %s after change on disk", t.name)
	}
}

// Close stops watching. Run returns once the event channels drain.
func (w *Watcher) Close() error {
	return w.fs.Close()
}
