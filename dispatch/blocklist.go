package dispatch

import "sync"

// Blocklist is the set of method names refused at dispatch regardless of
// which handler would serve them. Membership checks are case-sensitive
// exact matches.
type Blocklist struct {
	mu    sync.RWMutex
	names map[string]struct{}
}

func NewBlocklist() *Blocklist {
	return &Blocklist{names: make(map[string]struct{})}
}

// Block adds a method name, idempotently, and returns the updated sorted
// membership.
func (b *Blocklist) Block(name string) []string {
	b.mu.Lock()
	b.names[name] = struct{}{}
	b.mu.Unlock()
	return b.Blocked()
}

// Unblock removes a method name, idempotently, and returns the updated
// sorted membership.
func (b *Blocklist) Unblock(name string) []string {
	b.mu.Lock()
	delete(b.names, name)
	b.mu.Unlock()
	return b.Blocked()
}

// IsBlocked reports whether the method name is blocked.
func (b *Blocklist) IsBlocked(name string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, blocked := b.names[name]
	return blocked
}

// Blocked returns the sorted method names currently blocked.
func (b *Blocklist) Blocked() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return sortedKeys(b.names)
}
