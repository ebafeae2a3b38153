package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	watchQueueSize       = 500
	defaultDebounceDelay = 500 * time.Millisecond
)

// WatchConfig configures corpus file watching.
type WatchConfig struct {
	// DebounceDelay is how long changes accumulate before they are emitted.
	DebounceDelay string `yaml:"debounce_delay" json:"debounce_delay"`

	// FileExtensions restricts events to these extensions (default: .md).
	FileExtensions []string `yaml:"file_extensions" json:"file_extensions"`

	// ExcludeDirs are directory names never watched.
	ExcludeDirs []string `yaml:"exclude_dirs" json:"exclude_dirs"`
}

// DefaultWatchConfig returns the watch settings used when none are configured.
func DefaultWatchConfig() WatchConfig {
	return WatchConfig{
		DebounceDelay:  "500ms",
		FileExtensions: []string{".md"},
		ExcludeDirs:    []string{".git", "node_modules", "vendor"},
	}
}

// GetDebounceDelay parses DebounceDelay. Empty, invalid and non-positive
// values yield the default.
func (c *WatchConfig) GetDebounceDelay() time.Duration {
	d, err := time.ParseDuration(c.DebounceDelay)
	if err != nil || d <= 0 {
		return defaultDebounceDelay
	}
	return d
}

// WatchOperation is the kind of change a WatchEvent reports.
type WatchOperation string

const (
	WatchOpCreate WatchOperation = "create"
	WatchOpModify WatchOperation = "modify"
	WatchOpDelete WatchOperation = "delete"
)

// WatchEvent reports one changed corpus document.
type WatchEvent struct {
	// Path is the document ID: slash-separated and relative to the corpus root.
	Path      string
	Operation WatchOperation

	// AbsPath is the OS path fsnotify reported.
	AbsPath string
}

// Watcher emits debounced change events for the corpus. A document whose
// content hash is unchanged produces no event.
type Watcher struct {
	root       string
	delay      time.Duration
	fsw        *fsnotify.Watcher
	logger     *slog.Logger
	extensions map[string]bool
	excludes   map[string]bool

	mu    sync.Mutex
	batch map[string]fsnotify.Op // keyed by OS path

	hashMu sync.RWMutex
	hashes map[string]string // keyed by document ID

	events  chan WatchEvent
	dropped atomic.Int64
}

// NewWatcher creates a watcher for the corpus rooted at root.
func NewWatcher(config WatchConfig, root string, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	defaults := DefaultWatchConfig()
	exts := config.FileExtensions
	if len(exts) == 0 {
		exts = defaults.FileExtensions
	}
	dirs := config.ExcludeDirs
	if len(dirs) == 0 {
		dirs = defaults.ExcludeDirs
	}

	return &Watcher{
		root:       root,
		delay:      config.GetDebounceDelay(),
		fsw:        fsw,
		logger:     logger,
		extensions: extensionSet(exts),
		excludes:   stringSet(dirs),
		batch:      make(map[string]fsnotify.Op),
		hashes:     make(map[string]string),
		events:     make(chan WatchEvent, watchQueueSize),
	}, nil
}

func extensionSet(exts []string) map[string]bool {
	set := make(map[string]bool, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		set[ext] = true
	}
	return set
}

func stringSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, s := range items {
		set[s] = true
	}
	return set
}

// Events returns the event channel. It is closed once the watcher stops.
func (w *Watcher) Events() <-chan WatchEvent {
	return w.events
}

// Start watches every directory under the corpus root and processes events
// until ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	info, err := os.Stat(w.root)
	if err != nil {
		return fmt.Errorf("stat corpus root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("corpus root is not a directory: %s", w.root)
	}
	if err := w.watchTree(w.root); err != nil {
		return err
	}

	go w.run(ctx)

	w.logger.Info("Corpus watcher started", "root", w.root, "debounce", w.delay)
	return nil
}

// Stop closes the underlying fsnotify watcher.
func (w *Watcher) Stop() error {
	return w.fsw.Close()
}

// Seed records the hashes of already discovered documents.
func (w *Watcher) Seed(docs []RawDocument) {
	w.hashMu.Lock()
	defer w.hashMu.Unlock()
	for _, d := range docs {
		w.hashes[d.ID] = ContentHash([]byte(d.Content))
	}
}

// Hash returns the last seen content hash of a document.
func (w *Watcher) Hash(id string) (string, bool) {
	w.hashMu.RLock()
	defer w.hashMu.RUnlock()
	h, ok := w.hashes[id]
	return h, ok
}

// DroppedEvents counts events lost to a full queue.
func (w *Watcher) DroppedEvents() int64 {
	return w.dropped.Load()
}

// watchTree adds a watch for dir and each directory below it. The corpus
// root is watched even when its own name is hidden, like .rules.
func (w *Watcher) watchTree(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != w.root && w.ignoredDir(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(p); err != nil {
			w.logger.Warn("Failed to watch directory", "path", p, "error", err)
		}
		return nil
	})
}

func (w *Watcher) ignoredDir(name string) bool {
	return w.excludes[name] || strings.HasPrefix(name, ".")
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.events)

	ticker := time.NewTicker(w.delay)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.record(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("Watcher error", "error", err)
		case <-ticker.C:
			w.flush(ctx)
		}
	}
}

// record adds a filesystem event to the current batch. A created directory
// is watched and its existing files are queued, since they may have been
// written before the watch was in place.
func (w *Watcher) record(ev fsnotify.Event) {
	if !w.extensions[strings.ToLower(filepath.Ext(ev.Name))] {
		if ev.Has(fsnotify.Create) {
			if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
				w.addDirectory(ev.Name)
			}
		}
		return
	}

	id := w.documentID(ev.Name)
	for _, part := range strings.Split(id, "/") {
		if w.excludes[part] {
			return
		}
	}

	w.queue(ev.Name, ev.Op)
	w.logger.Debug("Corpus change detected", "path", id, "op", ev.Op.String())
}

func (w *Watcher) addDirectory(dir string) {
	if w.ignoredDir(filepath.Base(dir)) {
		return
	}
	if err := w.watchTree(dir); err != nil {
		w.logger.Warn("Failed to watch new directory", "path", dir, "error", err)
		return
	}
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err == nil && !d.IsDir() && w.extensions[strings.ToLower(filepath.Ext(p))] {
			w.queue(p, fsnotify.Create)
		}
		return nil
	})
}

func (w *Watcher) queue(path string, op fsnotify.Op) {
	w.mu.Lock()
	w.batch[path] |= op
	w.mu.Unlock()
}

// flush turns the accumulated batch into events.
func (w *Watcher) flush(ctx context.Context) {
	w.mu.Lock()
	batch := w.batch
	if len(batch) == 0 {
		w.mu.Unlock()
		return
	}
	w.batch = make(map[string]fsnotify.Op)
	w.mu.Unlock()

	for path, op := range batch {
		if ctx.Err() != nil {
			return
		}
		if ev, ok := w.resolve(path, op); ok {
			w.emit(ev)
		}
	}
}

// resolve compares the file at path with its last known hash and decides
// which event, if any, the change amounts to.
func (w *Watcher) resolve(path string, op fsnotify.Op) (WatchEvent, bool) {
	ev := WatchEvent{Path: w.documentID(path), AbsPath: path}

	content, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		w.hashMu.Lock()
		_, known := w.hashes[ev.Path]
		delete(w.hashes, ev.Path)
		w.hashMu.Unlock()

		ev.Operation = WatchOpDelete
		return ev, known || op.Has(fsnotify.Remove) || op.Has(fsnotify.Rename)
	}
	if err != nil {
		w.logger.Warn("Failed to read changed file", "path", ev.Path, "error", err)
		return ev, false
	}

	hash := ContentHash(content)
	w.hashMu.Lock()
	prev, known := w.hashes[ev.Path]
	w.hashes[ev.Path] = hash
	w.hashMu.Unlock()

	switch {
	case known && prev == hash:
		return ev, false
	case known:
		ev.Operation = WatchOpModify
	default:
		ev.Operation = WatchOpCreate
	}
	return ev, true
}

func (w *Watcher) documentID(path string) string {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// emit queues ev without blocking; a full queue drops it.
func (w *Watcher) emit(ev WatchEvent) {
	select {
	case w.events <- ev:
	default:
		n := w.dropped.Add(1)
		w.logger.Warn("Watch queue full, dropping event", "path", ev.Path, "total_dropped", n)
	}
}
