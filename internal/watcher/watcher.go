// Package watcher watches the inbox directory and hands new or changed
// documents to a callback once writes have settled.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is how long a file must be quiet before it is handed off.
const DefaultDebounce = 400 * time.Millisecond

// Watcher watches one inbox tree for document changes.
type Watcher struct {
	inbox      string
	extensions []string
	ignore     []string
	onFile     func(path string)
	debounce   time.Duration
	logger     *zap.Logger

	watcher *fsnotify.Watcher
	mu      sync.Mutex
	pending map[string]*time.Timer
	done    chan struct{}
	stop    sync.Once
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger for watcher events.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithIgnore skips any path under the given directories (for example an
// outbox nested inside the inbox).
func WithIgnore(dirs ...string) Option {
	return func(w *Watcher) {
		for _, d := range dirs {
			if d != "" {
				w.ignore = append(w.ignore, filepath.Clean(d))
			}
		}
	}
}

// NewWatcher creates a watcher over inbox. onFile is called once per settled
// file whose extension matches extensions (all files when extensions is empty).
func NewWatcher(inbox string, extensions []string, onFile func(path string), opts ...Option) *Watcher {
	w := &Watcher{
		inbox:      filepath.Clean(inbox),
		extensions: extensions,
		onFile:     onFile,
		debounce:   DefaultDebounce,
		logger:     zap.NewNop(),
		pending:    make(map[string]*time.Timer),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Inbox returns the watched directory.
func (w *Watcher) Inbox() string {
	return w.inbox
}

// Start creates the inbox if needed, registers it (and its subdirectories)
// with fsnotify and begins processing events until ctx is cancelled or Stop
// is called.
func (w *Watcher) Start(ctx context.Context) error {
	if err := os.MkdirAll(w.inbox, 0755); err != nil {
		return fmt.Errorf("failed to create inbox %s: %w", w.inbox, err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	w.watcher = fw
	if err := w.addTree(w.inbox); err != nil {
		_ = fw.Close()
		return err
	}
	go w.run(ctx, fw)
	return nil
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if w.ignored(path) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

func (w *Watcher) run(ctx context.Context, fw *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := event.Name
	if w.ignored(path) {
		return
	}
	switch {
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		info, err := os.Stat(path)
		if err != nil {
			return
		}
		if info.IsDir() {
			w.handleNewDirectory(path)
			return
		}
		if matchExtension(path, w.extensions) {
			w.schedule(path)
		}
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		w.cancel(path)
	}
}

// handleNewDirectory watches a directory dropped into the inbox and schedules
// the files it already contains; they may have been written before the watch
// was registered.
func (w *Watcher) handleNewDirectory(dir string) {
	if err := w.addTree(dir); err != nil {
		w.logger.Warn("failed to watch new directory", zap.String("path", dir), zap.Error(err))
		return
	}
	w.walkFiles(dir, w.schedule)
}

func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		select {
		case <-w.done:
			return
		default:
		}
		w.logger.Debug("inbox file settled", zap.String("path", path))
		if w.onFile != nil {
			w.onFile(path)
		}
	})
}

func (w *Watcher) cancel(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
		delete(w.pending, path)
	}
}

// SyncExisting calls onFile for every matching file already in the inbox.
func (w *Watcher) SyncExisting() {
	if w.onFile == nil {
		return
	}
	w.walkFiles(w.inbox, w.onFile)
}

func (w *Watcher) walkFiles(root string, fn func(path string)) {
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if w.ignored(path) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && matchExtension(path, w.extensions) {
			fn(path)
		}
		return nil
	})
}

func (w *Watcher) ignored(path string) bool {
	for _, dir := range w.ignore {
		if inDir(dir, path) {
			return true
		}
	}
	return false
}

// Stop stops the watcher and drops pending callbacks. Safe to call more than once.
func (w *Watcher) Stop() {
	w.stop.Do(func() {
		close(w.done)
		w.mu.Lock()
		for p, t := range w.pending {
			t.Stop()
			delete(w.pending, p)
		}
		w.mu.Unlock()
		if w.watcher != nil {
			_ = w.watcher.Close()
		}
	})
}

func matchExtension(path string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range extensions {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}

func inDir(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
