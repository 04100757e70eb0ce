// Package claims lets one administrator at a time take an order.
package claims

import (
	"fmt"
	"sync"
)

// Key identifies an order across customers.
type Key struct {
	CustomerID int64
	RequestID  string
}

func (k Key) String() string {
	return fmt.Sprintf("%d_%s", k.CustomerID, k.RequestID)
}

// Registry is the set of claims currently being processed. It lives only in
// memory and starts empty.
type Registry struct {
	mu   sync.Mutex
	held map[Key]struct{}
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{held: make(map[Key]struct{})}
}

// TryAcquire marks k as held if nobody holds it. On success the returned
// release func must be called exactly once; it is safe to defer.
func (r *Registry) TryAcquire(k Key) (release func(), ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, busy := r.held[k]; busy {
		return nil, false
	}
	r.held[k] = struct{}{}
	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.held, k)
			r.mu.Unlock()
		})
	}, true
}

// Held reports whether k is currently held.
func (r *Registry) Held(k Key) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.held[k]
	return ok
}

// Len returns the number of claims in flight.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.held)
}
