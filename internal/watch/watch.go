// Package watch reports working-tree changes of a repository.
package watch

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"unhunk/internal/errors"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const DefaultDebounce = 200 * time.Millisecond

var defaultIgnore = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
}

type Options struct {
	// Debounce is the quiet period after the last event before a batch is
	// delivered.
	Debounce time.Duration
	Logger   *zap.Logger
}

// Watcher delivers batches of changed paths, relative to the root and
// slash-separated, on Changes.
type Watcher struct {
	root     string
	fsw      *fsnotify.Watcher
	ignore   map[string]bool
	debounce time.Duration
	changes  chan []string
	done     chan struct{}
	wg       sync.WaitGroup
	logger   *zap.Logger

	mu      sync.Mutex
	pending map[string]bool
}

func New(root string, opts Options) (*Watcher, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.IO("resolving watch root", err).WithPath(root)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.IO("creating file watcher", err)
	}

	w := &Watcher{
		root:     abs,
		fsw:      fsw,
		ignore:   defaultIgnore,
		debounce: opts.Debounce,
		changes:  make(chan []string, 1),
		done:     make(chan struct{}),
		logger:   opts.Logger,
		pending:  make(map[string]bool),
	}

	if err := w.addTree(abs); err != nil {
		fsw.Close()
		return nil, err
	}

	w.wg.Add(1)
	go w.loop()
	return w, nil
}

// Changes returns the channel of change batches. It is closed by Close.
func (w *Watcher) Changes() <-chan []string { return w.changes }

func (w *Watcher) Close() error {
	select {
	case <-w.done:
		return nil
	default:
	}
	close(w.done)
	err := w.fsw.Close()
	w.wg.Wait()
	close(w.changes)
	return err
}

// Ignored reports whether rel, a root-relative path, is excluded.
func (w *Watcher) Ignored(rel string) bool {
	if rel == "" || rel == "." {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if w.ignore[part] {
			return true
		}
	}
	return false
}

// addTree watches dir and every directory below it that is not ignored.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return errors.IO("walking worktree", err).WithPath(path)
		}
		if !d.IsDir() {
			return nil
		}
		rel, _ := filepath.Rel(w.root, path)
		if w.Ignored(rel) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return errors.IO("adding directory to watcher", err).WithPath(path)
		}
		return nil
	})
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	timer := time.NewTimer(w.debounce)
	timer.Stop()

	for {
		select {
		case <-w.done:
			timer.Stop()
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if w.handle(event) {
				timer.Reset(w.debounce)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", zap.Error(err))

		case <-timer.C:
			w.flush()
		}
	}
}

// handle records event and reports whether it was relevant.
func (w *Watcher) handle(event fsnotify.Event) bool {
	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil {
		w.logger.Error("getting relative path", zap.Error(err))
		return false
	}
	if w.Ignored(rel) {
		return false
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				w.logger.Error("watching new directory", zap.Error(err))
			}
		}
	}
	if event.Op == fsnotify.Chmod {
		return false
	}

	w.mu.Lock()
	w.pending[filepath.ToSlash(rel)] = true
	w.mu.Unlock()
	return true
}

func (w *Watcher) flush() {
	w.mu.Lock()
	if len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	batch := make([]string, 0, len(w.pending))
	for p := range w.pending {
		batch = append(batch, p)
	}
	w.pending = make(map[string]bool)
	w.mu.Unlock()

	sort.Strings(batch)
	w.logger.Debug("worktree changed", zap.Strings("paths", batch))

	select {
	case w.changes <- batch:
	case <-w.done:
	}
}
