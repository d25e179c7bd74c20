package watch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/mindoutline/internal/vault"
)

// Manager shares one Watcher per document among all its subscribers and
// stops it when the last one leaves.
type Manager struct {
	vault    *vault.Vault
	interval time.Duration
	parse    ParseFunc
	log      *slog.Logger

	mu       sync.Mutex
	watchers map[string]*managed
}

type managed struct {
	w      *Watcher
	cancel context.CancelFunc
	subs   int
}

func NewManager(v *vault.Vault, interval time.Duration, parse ParseFunc, log *slog.Logger) *Manager {
	return &Manager{
		vault:    v,
		interval: interval,
		parse:    parse,
		log:      log,
		watchers: make(map[string]*managed),
	}
}

// Subscribe follows path until ctx ends. The path must name a supported
// file inside the vault.
func (m *Manager) Subscribe(ctx context.Context, path string) (string, <-chan Update, error) {
	f, err := m.vault.Stat(path)
	if err != nil {
		return "", nil, err
	}
	key := f.Path

	m.mu.Lock()
	mw, ok := m.watchers[key]
	if !ok {
		wctx, cancel := context.WithCancel(context.Background())
		mw = &managed{w: NewWatcher(m.vault, key, m.interval, m.parse, m.log), cancel: cancel}
		m.watchers[key] = mw
		go func() { _ = mw.w.Run(wctx) }()
		m.log.Info("watching document", "path", key)
	}
	mw.subs++
	m.mu.Unlock()

	id, ch := mw.w.Hub().Subscribe(ctx)
	go func() {
		<-ctx.Done()
		m.release(key, mw)
	}()
	return id, ch, nil
}

func (m *Manager) release(key string, mw *managed) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mw.subs--
	if mw.subs > 0 {
		return
	}
	mw.cancel()
	if m.watchers[key] == mw {
		delete(m.watchers, key)
	}
	m.log.Info("stopped watching document", "path", key)
}

// Len returns the number of documents being watched.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.watchers)
}

// Close stops every watcher.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, mw := range m.watchers {
		mw.cancel()
		delete(m.watchers, key)
	}
}
