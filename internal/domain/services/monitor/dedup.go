package monitor

import "sync"

const (
	// DefaultSeenCapacity is the hard cap of the seen-hash cache
	DefaultSeenCapacity = 1000
)

// SeenCache is a bounded set of transfer hashes. When an insert pushes it
// past capacity, the oldest-inserted half is evicted in one batch. This is
// insertion order, not recency: a re-check does not refresh an entry.
type SeenCache struct {
	mu       sync.Mutex
	capacity int
	m        map[string]struct{}
	q        []string
}

// NewSeenCache creates a cache holding at most capacity hashes
func NewSeenCache(capacity int) *SeenCache {
	if capacity < 2 {
		capacity = DefaultSeenCapacity
	}
	return &SeenCache{
		capacity: capacity,
		m:        make(map[string]struct{}, capacity+1),
		q:        make([]string, 0, capacity+1),
	}
}

// SeenOrAdd reports whether hash was already present. If not, it is
// inserted and the eviction rule applied.
func (c *SeenCache) SeenOrAdd(hash string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.m[hash]; ok {
		return true
	}
	c.add(hash)
	return false
}

// Contains reports membership without inserting
func (c *SeenCache) Contains(hash string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.m[hash]
	return ok
}

// Len returns the number of cached hashes
func (c *SeenCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.m)
}

// Snapshot returns the hashes in insertion order
func (c *SeenCache) Snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.q))
	copy(out, c.q)
	return out
}

// Restore replaces the content with hashes, oldest first. Duplicates are
// ignored and the eviction rule still applies.
func (c *SeenCache) Restore(hashes []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.m = make(map[string]struct{}, c.capacity+1)
	c.q = c.q[:0]
	for _, h := range hashes {
		if _, ok := c.m[h]; ok || h == "" {
			continue
		}
		c.add(h)
	}
}

func (c *SeenCache) add(hash string) {
	c.m[hash] = struct{}{}
	c.q = append(c.q, hash)
	if len(c.q) <= c.capacity {
		return
	}

	evict := c.capacity / 2
	for _, h := range c.q[:evict] {
		delete(c.m, h)
	}
	rest := make([]string, len(c.q)-evict, c.capacity+1)
	copy(rest, c.q[evict:])
	c.q = rest
}
