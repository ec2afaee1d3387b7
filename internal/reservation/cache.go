package reservation

import "sync"

// Cache holds the in-memory snapshot of committed reservations shared by every
// conflict check. It is refreshed after each committed write or delete; reads
// and refreshes are serialized by the RWMutex.
type Cache struct {
	mu   sync.RWMutex
	rows []*Reservation
}

func NewCache() *Cache {
	return &Cache{}
}

// Snapshot returns the current rows. The returned slice is a copy, safe to
// iterate without holding the cache lock; the pointed-to reservations must be
// treated as read-only.
func (c *Cache) Snapshot() []*Reservation {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Reservation, len(c.rows))
	copy(out, c.rows)
	return out
}

// Replace swaps in a freshly read set of rows.
func (c *Cache) Replace(rows []*Reservation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rows = rows
}
