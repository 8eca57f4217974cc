package signal

import "sync"

// registry is the insertion-ordered listener set of one Signal.
// No listener code ever runs while mu is held.
type registry[T any] struct {
	mu      sync.RWMutex
	entries []*Listener[T]
	index   map[ListenerID]struct{}
}

func newRegistry[T any]() *registry[T] {
	return &registry[T]{
		entries: make([]*Listener[T], 0, 8),
		index:   make(map[ListenerID]struct{}),
	}
}

// insert adds l if absent, reports whether it was added
func (r *registry[T]) insert(l *Listener[T]) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.index[l.id]; exists {
		return false
	}
	r.index[l.id] = struct{}{}
	r.entries = append(r.entries, l)
	return true
}

// remove deletes the listener with id, reports whether it was present
func (r *registry[T]) remove(id ListenerID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.index[id]; !exists {
		return false
	}
	delete(r.index, id)

	for i, e := range r.entries {
		if e.id == id {
			// snapshots own their backing array, shifting in place is safe
			copy(r.entries[i:], r.entries[i+1:])
			r.entries[len(r.entries)-1] = nil
			r.entries = r.entries[:len(r.entries)-1]
			break
		}
	}
	return true
}

// snapshot returns an independent copy of the current members
func (r *registry[T]) snapshot() []*Listener[T] {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.entries) == 0 {
		return nil
	}
	out := make([]*Listener[T], len(r.entries))
	copy(out, r.entries)
	return out
}

// clear removes every member, returns how many were removed
func (r *registry[T]) clear() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.entries)
	r.entries = make([]*Listener[T], 0, 8)
	r.index = make(map[ListenerID]struct{})
	return n
}

func (r *registry[T]) contains(id ListenerID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.index[id]
	return exists
}

func (r *registry[T]) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
