package peer

import "sync"

// Box is a reader/writer-concurrent cell holding a Summary. The peer
// manager actor is the only writer (it stamps NodeID in on promotion);
// a connection's reader task only ever reads, so it can observe the
// current NodeID at event-emit time instead of caching it at
// construction.
type Box struct {
	mu sync.RWMutex
	s  Summary
}

// NewBox wraps the given initial summary.
func NewBox(s Summary) *Box {
	return &Box{s: s}
}

// Get returns a copy of the current summary.
func (b *Box) Get() Summary {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.s
}

// Set overwrites the current summary. Only the manager actor calls this.
func (b *Box) Set(s Summary) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.s = s
}

// NodeID is a convenience accessor for the hot path in the reader task.
func (b *Box) NodeID() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.s.NodeID
}
