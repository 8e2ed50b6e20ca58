package display

import (
	"sort"
	"sync"
	"time"
)

// Board holds the registered display targets and their last-rendered text.
type Board struct {
	mu          sync.RWMutex
	targets     map[string]string
	lastUpdated time.Time
	nowFn       func() time.Time
}

// NewBoard registers the given target names with empty text.
func NewBoard(targets ...string) *Board {
	b := &Board{
		targets: make(map[string]string, len(targets)),
		nowFn:   time.Now,
	}
	for _, t := range targets {
		b.targets[t] = ""
	}
	return b
}

// SetNowFunc overrides the clock for testing.
func (b *Board) SetNowFunc(fn func() time.Time) {
	if fn == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nowFn = fn
}

// Register adds a target. Existing text is kept.
func (b *Board) Register(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.targets[name]; !ok {
		b.targets[name] = ""
	}
}

// Set writes text to a target. Unknown targets are skipped and reported false.
func (b *Board) Set(name, text string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.targets[name]; !ok {
		return false
	}
	b.targets[name] = text
	return true
}

// Get returns the current text of a target.
func (b *Board) Get(name string) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	text, ok := b.targets[name]
	return text, ok
}

// Touch stamps the last-updated time.
func (b *Board) Touch() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastUpdated = b.nowFn()
	return b.lastUpdated
}

// LastUpdated returns the time of the last successful update.
func (b *Board) LastUpdated() time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastUpdated
}

// Values copies the current target texts.
func (b *Board) Values() map[string]string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]string, len(b.targets))
	for k, v := range b.targets {
		out[k] = v
	}
	return out
}

// Names lists registered targets in sorted order.
func (b *Board) Names() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	names := make([]string, 0, len(b.targets))
	for k := range b.targets {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
