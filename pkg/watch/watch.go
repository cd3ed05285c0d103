// Package watch calls back when watched source files change on disk.
// Bursts of writes to the same file are coalesced into one callback.
package watch

import (
	"sync"
	"time"
)

// DefaultDebounce is how long a file must stay quiet before the callback runs.
const DefaultDebounce = 300 * time.Millisecond

// debouncer delays callbacks per path until writes settle.
type debouncer struct {
	mu       sync.Mutex
	timers   map[string]*time.Timer
	delay    time.Duration
	onChange func(string)
}

func newDebouncer(delay time.Duration, onChange func(string)) *debouncer {
	return &debouncer{
		timers:   make(map[string]*time.Timer),
		delay:    delay,
		onChange: onChange,
	}
}

func (d *debouncer) trigger(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if timer, exists := d.timers[path]; exists {
		timer.Stop()
	}

	d.timers[path] = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		delete(d.timers, path)
		d.mu.Unlock()
		d.onChange(path)
	})
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for path, timer := range d.timers {
		timer.Stop()
		delete(d.timers, path)
	}
}
