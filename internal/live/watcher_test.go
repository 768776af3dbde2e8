package live

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newStartedWatcher(t *testing.T) (*FileWatcher, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "x.db")
	require.NoError(t, os.WriteFile(path, []byte("seed"), 0o600))

	watcher, err := NewFileWatcher(path, nil)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	watcher.Start(ctx)
	t.Cleanup(func() {
		cancel()
		watcher.Stop()
	})
	return watcher, dir
}

func TestFileWatcherSignalsOnDatabaseWrites(t *testing.T) {
	watcher, dir := newStartedWatcher(t)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "x.db-wal"), []byte("frame"), 0o600))
	requireSignal(t, watcher.Signals())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "x.db"), []byte("page"), 0o600))
	requireSignal(t, watcher.Signals())
}

func TestFileWatcherIgnoresOtherFiles(t *testing.T) {
	watcher, dir := newStartedWatcher(t)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "x.log"), []byte("line\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lazyjournal.log"), []byte("line\n"), 0o600))

	select {
	case <-watcher.Signals():
		t.Fatal("unrelated file write signalled a refresh")
	case <-time.After(300 * time.Millisecond):
	}
}

func requireSignal(t *testing.T, signals <-chan struct{}) {
	t.Helper()
	select {
	case <-signals:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for database change signal")
	}
	// drain coalesced events from the same write
	for {
		select {
		case <-signals:
		case <-time.After(100 * time.Millisecond):
			return
		}
	}
}
