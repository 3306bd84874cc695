package knowledge

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ledgerchat/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// DefaultWatchExtensions are the file types picked up from a watched directory.
var DefaultWatchExtensions = []string{".pdf", ".txt", ".csv", ".md", ".xml", ".json", ".png", ".jpg", ".jpeg"}

// DefaultSettleDelay is how long a file must go without writes before it is ingested.
const DefaultSettleDelay = 500 * time.Millisecond

// Watcher uploads files dropped into a directory as general documents of the active company.
type Watcher struct {
	store      *Store
	watcher    *fsnotify.Watcher
	extensions []string
	settle     time.Duration

	// owned by Run
	ingested map[string]bool
	pending  map[string]*time.Timer
	ready    chan string
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithSettleDelay overrides DefaultSettleDelay.
func WithSettleDelay(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.settle = d
		}
	}
}

// NewWatcher creates a directory watcher feeding store.
func NewWatcher(store *Store, extensions []string, opts ...WatcherOption) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if len(extensions) == 0 {
		extensions = DefaultWatchExtensions
	}
	w := &Watcher{
		store:      store,
		watcher:    fw,
		extensions: extensions,
		settle:     DefaultSettleDelay,
		ingested:   make(map[string]bool),
		pending:    make(map[string]*time.Timer),
		ready:      make(chan string),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Run watches dir until ctx is done, then closes the underlying watcher.
// Every create or write event restarts the path's settle timer; the file is read once
// the timer fires, so files copied in several chunks are stored whole. A path is
// ingested at most once.
func (w *Watcher) Run(ctx context.Context, dir string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer w.watcher.Close()
	defer w.stopPending()

	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	logging.Knowledge("watching %s for documents", dir)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !w.isWatchedExtension(event.Name) || w.ingested[event.Name] {
				continue
			}
			w.schedule(ctx, event.Name)
		case path := <-w.ready:
			delete(w.pending, path)
			if !w.ingested[path] {
				w.ingest(path)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			logging.KnowledgeWarn("watcher error: %v", err)
		}
	}
}

// schedule (re)starts the settle timer for path.
func (w *Watcher) schedule(ctx context.Context, path string) {
	if t, ok := w.pending[path]; ok {
		t.Reset(w.settle)
		return
	}
	w.pending[path] = time.AfterFunc(w.settle, func() {
		select {
		case w.ready <- path:
		case <-ctx.Done():
		}
	})
}

func (w *Watcher) stopPending() {
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) ingest(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		logging.KnowledgeWarn("read %s: %v", path, err)
		return
	}
	if len(data) == 0 {
		// Created but not written yet; the next write reschedules it.
		return
	}

	doc, err := w.store.AddDocument(UploadRequest{Name: filepath.Base(path), Data: data})
	if err != nil {
		logging.KnowledgeWarn("skip %s: %v", path, err)
		w.ingested[path] = true
		return
	}
	w.ingested[path] = true
	logging.Knowledge("ingested %s as document %s", path, doc.ID)
}

func (w *Watcher) isWatchedExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range w.extensions {
		if ext == e {
			return true
		}
	}
	return false
}
