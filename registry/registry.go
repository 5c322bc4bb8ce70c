// Package registry holds a fixed, priority-ordered set of provider adapters
// together with the health tracker that gates them.
package registry

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/jonwraymond/partsource/health"
)

var (
	// ErrDuplicateProvider is returned when a name is registered twice.
	ErrDuplicateProvider = errors.New("registry: duplicate provider")

	// ErrInvalidProvider is returned for an empty name or nil adapter.
	ErrInvalidProvider = errors.New("registry: invalid provider")
)

// Entry is one registered provider.
type Entry[A any] struct {
	Name     string
	Adapter  A
	Priority int
	Stats    health.Stats
}

type slot[A any] struct {
	name     string
	adapter  A
	priority int
	seq      int
}

// Registry is a set of named adapters of type A, ordered by ascending
// priority with ties broken by registration order.
type Registry[A any] struct {
	tracker *health.Tracker

	mu      sync.RWMutex
	entries map[string]*slot[A]
	ordered []string
	seq     int
}

// New creates an empty registry whose providers are tracked by tracker.
// A nil tracker gets a default one.
func New[A any](tracker *health.Tracker) *Registry[A] {
	if tracker == nil {
		tracker = health.NewTracker(health.TrackerConfig{})
	}
	return &Registry[A]{
		tracker: tracker,
		entries: make(map[string]*slot[A]),
	}
}

// Tracker returns the health tracker of this registry.
func (r *Registry[A]) Tracker() *health.Tracker {
	return r.tracker
}

// Register adds adapter under name. Priority is fixed from here on.
func (r *Registry[A]) Register(name string, adapter A, priority int) error {
	if name == "" || isNil(adapter) {
		return fmt.Errorf("%w: %q", ErrInvalidProvider, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateProvider, name)
	}

	r.seq++
	r.entries[name] = &slot[A]{name: name, adapter: adapter, priority: priority, seq: r.seq}
	r.resortLocked()
	r.tracker.Add(name)
	return nil
}

func (r *Registry[A]) resortLocked() {
	slots := make([]*slot[A], 0, len(r.entries))
	for _, s := range r.entries {
		slots = append(slots, s)
	}
	sort.Slice(slots, func(i, j int) bool {
		if slots[i].priority != slots[j].priority {
			return slots[i].priority < slots[j].priority
		}
		return slots[i].seq < slots[j].seq
	})

	r.ordered = r.ordered[:0]
	for _, s := range slots {
		r.ordered = append(r.ordered, s.name)
	}
}

// OrderedNames returns provider names in priority order. A hint naming a
// registered provider moves it to the front of the returned slice only.
func (r *Registry[A]) OrderedNames(hint string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.ordered))
	_, hinted := r.entries[hint]
	if hinted {
		names = append(names, hint)
	}
	for _, n := range r.ordered {
		if hinted && n == hint {
			continue
		}
		names = append(names, n)
	}
	return names
}

// Entry returns the named provider with a snapshot of its health.
func (r *Registry[A]) Entry(name string) (Entry[A], bool) {
	r.mu.RLock()
	s, ok := r.entries[name]
	r.mu.RUnlock()

	if !ok {
		return Entry[A]{}, false
	}
	stats, _ := r.tracker.Stats(name)
	return Entry[A]{Name: s.name, Adapter: s.adapter, Priority: s.priority, Stats: stats}, true
}

// Entries returns every provider in priority order.
func (r *Registry[A]) Entries() []Entry[A] {
	names := r.OrderedNames("")
	out := make([]Entry[A], 0, len(names))
	for _, n := range names {
		if e, ok := r.Entry(n); ok {
			out = append(out, e)
		}
	}
	return out
}

// Len returns the number of registered providers.
func (r *Registry[A]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
