// Package keyalloc rotates API credentials across outbound ledger calls.
package keyalloc

import "sync"

// Allocator hands out credentials in strict round-robin order. It does not
// track per-key health: a rejected key is handed out again on its turn.
type Allocator struct {
	mu     sync.Mutex
	keys   []string
	cursor int
}

// New creates an allocator over a copy of keys
func New(keys []string) *Allocator {
	a := &Allocator{}
	a.Update(keys)
	return a
}

// Next returns the credential at the cursor and advances it. An empty
// string means there is no credential; callers send the request
// unauthenticated and should expect a rejection.
func (a *Allocator) Next() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.keys) == 0 {
		return ""
	}
	key := a.keys[a.cursor]
	a.cursor = (a.cursor + 1) % len(a.keys)
	return key
}

// Update replaces the credential set with a copy of keys and resets the
// cursor to zero. Callers clean the list; the config store does.
func (a *Allocator) Update(keys []string) {
	next := append([]string(nil), keys...)

	a.mu.Lock()
	a.keys = next
	a.cursor = 0
	a.mu.Unlock()
}

// Count returns the number of credentials
func (a *Allocator) Count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.keys)
}

// HasAny reports whether at least one credential is configured
func (a *Allocator) HasAny() bool {
	return a.Count() > 0
}
