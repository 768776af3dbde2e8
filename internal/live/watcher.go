package live

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

var ErrWatcherFailed = errors.New("failed to initialize database file watcher")

// FileWatcher signals when the sqlite database (or its journal) is written
// by another process, such as the web server or a CLI subcommand.
type FileWatcher struct {
	path    string
	watcher *fsnotify.Watcher
	logger  *zap.Logger
	signals chan struct{}
	stop    chan struct{}
}

func NewFileWatcher(path string, logger *zap.Logger) (*FileWatcher, error) {
	if path == "" || strings.Contains(path, ":memory:") {
		return nil, fmt.Errorf("%w: %q is not a file", ErrWatcherFailed, path)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWatcherFailed, err)
	}

	// sqlite replaces journal files rather than writing in place, so the
	// directory is watched and events are filtered by name.
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("%w: watch %s: %v", ErrWatcherFailed, filepath.Dir(abs), err)
	}

	return &FileWatcher{
		path:    abs,
		watcher: watcher,
		logger:  logger,
		signals: make(chan struct{}, 1),
		stop:    make(chan struct{}),
	}, nil
}

func (w *FileWatcher) Signals() <-chan struct{} {
	return w.signals
}

func (w *FileWatcher) Start(ctx context.Context) {
	go w.processEvents(ctx)
}

func (w *FileWatcher) Stop() {
	select {
	case <-w.stop:
		return
	default:
		close(w.stop)
		_ = w.watcher.Close()
	}
}

func (w *FileWatcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-w.stop:
			return
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			select {
			case w.signals <- struct{}{}:
			default:
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("database watcher error", zap.Error(err))
		}
	}
}

func (w *FileWatcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return false
	}
	name := filepath.Clean(event.Name)
	return name == w.path || strings.HasPrefix(name, w.path+"-")
}
