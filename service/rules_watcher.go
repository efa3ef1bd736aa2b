package service

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// RulesWatcher reloads a category rules file when it changes on disk and hands
// the new table to apply. A file that fails to parse leaves the current rules
// in place.
type RulesWatcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	path        string
	apply       func(*RuleSet)
	logger      *zap.Logger
	debounceDur time.Duration
	pending     time.Time // zero when nothing is pending
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
}

func NewRulesWatcher(path string, apply func(*RuleSet), logger *zap.Logger) (*RulesWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return &RulesWatcher{
		watcher:     watcher,
		path:        abs,
		apply:       apply,
		logger:      logger,
		debounceDur: 250 * time.Millisecond, // editors often write twice
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start watches the file's directory so atomic renames by editors are seen.
// Non-blocking.
func (w *RulesWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}
	w.logger.Info("watching category rules", zap.String("path", w.path))

	go w.run(ctx)
	return nil
}

// Stop ends the event loop and waits for it.
func (w *RulesWatcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		w.logger.Warn("closing rules watcher", zap.Error(err))
	}
}

func (w *RulesWatcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				w.mu.Lock()
				w.pending = time.Now()
				w.mu.Unlock()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("rules watcher error", zap.Error(err))

		case <-ticker.C:
			w.mu.Lock()
			due := !w.pending.IsZero() && time.Since(w.pending) >= w.debounceDur
			if due {
				w.pending = time.Time{}
			}
			w.mu.Unlock()
			if due {
				w.reload()
			}
		}
	}
}

func (w *RulesWatcher) reload() {
	rules, err := LoadRuleSet(w.path)
	if err != nil {
		w.logger.Warn("keeping previous category rules", zap.String("path", w.path), zap.Error(err))
		return
	}
	w.apply(rules)
	w.logger.Info("category rules reloaded", zap.String("path", w.path))
}
