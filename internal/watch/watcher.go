// Package watch re-parses vault documents when they change on disk and
// pushes the new tree to subscribers. Trees are replaced wholesale; nothing
// is diffed.
package watch

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/dgallion1/mindoutline/internal/doctree"
	"github.com/dgallion1/mindoutline/internal/vault"
)

// ParseFunc turns a document's bytes into a tree.
type ParseFunc func(path string, content []byte) (*doctree.Tree, error)

const maxBackoff = 30 * time.Second

// Watcher polls one vault file. Modification time and size gate the read;
// the content hash decides whether a re-parse is published.
type Watcher struct {
	vault    *vault.Vault
	path     string
	interval time.Duration
	parse    ParseFunc
	hub      *Hub
	log      *slog.Logger

	mu       sync.Mutex
	modTime  time.Time
	size     int64
	hash     string
	version  int
	failures int
}

func NewWatcher(v *vault.Vault, path string, interval time.Duration, parse ParseFunc, log *slog.Logger) *Watcher {
	if interval <= 0 {
		interval = time.Second
	}
	return &Watcher{
		vault:    v,
		path:     path,
		interval: interval,
		parse:    parse,
		hub:      NewHub(),
		log:      log.With("path", path),
	}
}

func (w *Watcher) Hub() *Hub { return w.hub }

// Run polls until ctx ends, then closes the hub.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.hub.Close()
	for {
		wait := w.interval
		if _, err := w.Check(); err != nil {
			w.mu.Lock()
			failures := w.failures
			w.mu.Unlock()
			wait = backoff(w.interval, failures)
			w.log.Warn("watch check failed", "error", err, "retry_in", wait)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// Check looks at the file once and publishes a new version if its content
// changed. Failures are published as error updates.
func (w *Watcher) Check() (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := w.vault.Stat(w.path)
	if err != nil {
		return false, w.failLocked(err)
	}
	if w.version > 0 && f.ModTime.Equal(w.modTime) && f.Size == w.size {
		w.failures = 0
		return false, nil
	}

	doc, err := w.vault.Read(w.path)
	if err != nil {
		return false, w.failLocked(err)
	}
	hash := doctree.HashContent(doc.Content)
	w.modTime, w.size = doc.ModTime, doc.Size
	if w.version > 0 && hash == w.hash {
		w.failures = 0
		return false, nil
	}

	tree, err := w.parse(w.path, doc.Content)
	if err != nil {
		return false, w.failLocked(err)
	}
	w.hash = hash
	w.version++
	w.failures = 0
	w.hub.Publish(Update{Path: w.path, Version: w.version, Tree: tree, At: time.Now()})
	w.log.Debug("document changed", "version", w.version, "nodes", doctree.Count(tree.Nodes).Nodes)
	return true, nil
}

func (w *Watcher) failLocked(err error) error {
	w.failures++
	// Forget the last seen state so the next successful read republishes.
	w.modTime, w.size, w.hash = time.Time{}, 0, ""
	w.hub.Publish(Update{Path: w.path, Version: w.version, Err: err.Error(), At: time.Now()})
	return err
}

// backoff doubles base per consecutive failure, capped, with jitter.
func backoff(base time.Duration, failures int) time.Duration {
	if failures < 1 {
		return base
	}
	shift := min(failures-1, 10)
	d := base << uint(shift)
	if d <= 0 || d > maxBackoff {
		d = maxBackoff
	}
	jitter := time.Duration(rand.Int64N(int64(d)/2 + 1))
	return d + jitter
}
