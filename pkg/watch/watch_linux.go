//go:build linux

package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Watcher reports modifications through inotify.
type Watcher struct {
	fd       int
	mu       sync.Mutex
	watchMap map[int]string
	debounce *debouncer
}

// New returns a watcher that calls onChange with the absolute path of a
// modified file.
func New(onChange func(path string)) (*Watcher, error) {
	fd, err := unix.InotifyInit1(unix.IN_NONBLOCK | unix.IN_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("inotify_init: %w", err)
	}

	return &Watcher{
		fd:       fd,
		watchMap: make(map[int]string),
		debounce: newDebouncer(DefaultDebounce, onChange),
	}, nil
}

// Add starts watching path.
func (w *Watcher) Add(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	wd, err := unix.InotifyAddWatch(w.fd, absPath, unix.IN_MODIFY|unix.IN_CLOSE_WRITE)
	if err != nil {
		return fmt.Errorf("watch %s: %w", absPath, err)
	}

	w.mu.Lock()
	w.watchMap[wd] = absPath
	w.mu.Unlock()
	return nil
}

// Run reads events until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	buf := make([]byte, 4096)

	for {
		select {
		case <-ctx.Done():
			w.debounce.stop()
			return ctx.Err()
		default:
		}

		n, err := unix.Read(w.fd, buf)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EINTR {
				time.Sleep(50 * time.Millisecond)
				continue
			}
			return fmt.Errorf("read inotify events: %w", err)
		}

		offset := 0
		for offset+unix.SizeofInotifyEvent <= n {
			event := (*unix.InotifyEvent)(unsafe.Pointer(&buf[offset]))
			offset += unix.SizeofInotifyEvent + int(event.Len)

			if event.Mask&(unix.IN_MODIFY|unix.IN_CLOSE_WRITE) == 0 {
				continue
			}
			w.mu.Lock()
			path := w.watchMap[int(event.Wd)]
			w.mu.Unlock()
			if path != "" {
				w.debounce.trigger(path)
			}
		}
	}
}

func (w *Watcher) Close() error {
	w.debounce.stop()
	return unix.Close(w.fd)
}
