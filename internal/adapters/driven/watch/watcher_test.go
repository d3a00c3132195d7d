package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitFor = 2 * time.Second

func startWatcher(t *testing.T) (*Watcher, context.CancelFunc) {
	t.Helper()
	w, err := New(20 * time.Millisecond)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		_ = w.Close()
	})
	return w, cancel
}

func signal(ch chan<- string, name string) ReloadFunc {
	return func(context.Context) error {
		select {
		case ch <- name:
		default:
		}
		return nil
	}
}

func TestNew_DefaultDebounce(t *testing.T) {
	w, err := New(0)
	require.NoError(t, err)
	defer w.Close()
	assert.Equal(t, DefaultDebounce, w.debounce)
}

func TestWatchFile_ReloadsOnAtomicReplace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "locations.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o600))

	w, _ := startWatcher(t)
	reloads := make(chan string, 1)
	require.NoError(t, w.WatchFile("locations", path, signal(reloads, "locations")))

	tmp := path + ".tmp-1"
	require.NoError(t, os.WriteFile(tmp, []byte(`{"locations": []}`), 0o600))
	require.NoError(t, os.Rename(tmp, path))

	select {
	case name := <-reloads:
		assert.Equal(t, "locations", name)
	case <-time.After(waitFor):
		t.Fatal("timeout waiting for reload")
	}
}

func TestWatchFile_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "names.json")

	w, _ := startWatcher(t)
	reloads := make(chan string, 1)
	require.NoError(t, w.WatchFile("names", path, signal(reloads, "names")))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte(`{}`), 0o600))

	select {
	case name := <-reloads:
		t.Fatalf("unexpected reload of %s", name)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatchDir_DebouncesBurst(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "persons")

	w, err := New(100 * time.Millisecond)
	require.NoError(t, err)
	var calls atomic.Int32
	reloaded := make(chan struct{}, 8)
	require.NoError(t, w.WatchDir("persons", dir, ".yaml", func(context.Context) error {
		calls.Add(1)
		reloaded <- struct{}{}
		return nil
	}))
	assert.DirExists(t, dir, "watched directory is created")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()
	defer w.Close()

	for _, name := range []string{"I1_John_Smith.yaml", "I2_Mary_Smith.yaml", "I3_Anna_Meyer.yaml"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("person_id: x\n"), 0o600))
	}

	select {
	case <-reloaded:
	case <-time.After(waitFor):
		t.Fatal("timeout waiting for reload")
	}
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load(), "a burst of writes reloads once")
}

func TestWatcher_ReloadErrorKeepsRunning(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "names.json")

	w, _ := startWatcher(t)
	attempts := make(chan struct{}, 4)
	require.NoError(t, w.WatchFile("names", path, func(context.Context) error {
		attempts <- struct{}{}
		return errors.New("malformed")
	}))

	for i := 0; i < 2; i++ {
		require.NoError(t, os.WriteFile(path, []byte(`{`), 0o600))
		select {
		case <-attempts:
		case <-time.After(waitFor):
			t.Fatalf("timeout waiting for reload attempt %d", i+1)
		}
	}
}

func TestWatcher_SkippedReloadKeepsRunning(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "locations.json")

	w, _ := startWatcher(t)
	var skip atomic.Bool
	skip.Store(true)
	results := make(chan bool, 4)
	require.NoError(t, w.WatchFile("locations", path, func(context.Context) error {
		skipped := skip.Load()
		select {
		case results <- skipped:
		default:
		}
		if skipped {
			return fmt.Errorf("%w: unsaved changes", ErrReloadSkipped)
		}
		return nil
	}))

	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o600))
	select {
	case skipped := <-results:
		assert.True(t, skipped)
	case <-time.After(waitFor):
		t.Fatal("timeout waiting for first reload attempt")
	}

	skip.Store(false)
	require.NoError(t, os.WriteFile(path, []byte(`{"locations": []}`), 0o600))
	deadline := time.After(waitFor)
	for {
		select {
		case skipped := <-results:
			if !skipped {
				return
			}
		case <-deadline:
			t.Fatal("timeout waiting for a reload after the skipped one")
		}
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	w, err := New(10 * time.Millisecond)
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- w.Run(ctx) }()
	cancel()

	select {
	case err := <-errc:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(waitFor):
		t.Fatal("Run did not return after cancel")
	}
}
