//go:build !linux

package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// PollInterval is how often modification times are checked.
const PollInterval = 200 * time.Millisecond

// Watcher polls modification times.
type Watcher struct {
	mu       sync.Mutex
	watchMap map[string]time.Time
	debounce *debouncer
}

// New returns a watcher that calls onChange with the absolute path of a
// modified file.
func New(onChange func(path string)) (*Watcher, error) {
	return &Watcher{
		watchMap: make(map[string]time.Time),
		debounce: newDebouncer(DefaultDebounce, onChange),
	}, nil
}

// Add starts watching path.
func (w *Watcher) Add(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.watchMap[absPath] = info.ModTime()
	w.mu.Unlock()
	return nil
}

// Run polls until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.debounce.stop()
			return ctx.Err()
		case <-ticker.C:
			w.poll()
		}
	}
}

func (w *Watcher) poll() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for path, last := range w.watchMap {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if info.ModTime().After(last) {
			w.watchMap[path] = info.ModTime()
			w.debounce.trigger(path)
		}
	}
}

func (w *Watcher) Close() error {
	w.debounce.stop()
	return nil
}
