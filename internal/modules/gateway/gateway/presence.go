package gateway

import (
	"sync"
	"time"
)

// presenceEntry is retained forever once created: a user who disconnects
// stays in the map as offline with a last-seen timestamp.
type presenceEntry struct {
	conns    map[string]struct{}
	lastSeen time.Time
}

// presenceRegistry tracks which users are online, refcounted by connection.
// Status only flips on the 0↔1 boundary of the active-connection count, so a
// second device connecting or one of two devices dropping changes nothing.
type presenceRegistry struct {
	mu      sync.RWMutex
	entries map[string]*presenceEntry
}

func newPresenceRegistry() *presenceRegistry {
	return &presenceRegistry{entries: make(map[string]*presenceEntry)}
}

// Connect adds a connection to the user's active set and reports whether the
// user just came online.
func (r *presenceRegistry) Connect(userID, connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[userID]
	if !ok {
		e = &presenceEntry{conns: make(map[string]struct{})}
		r.entries[userID] = e
	}
	wasOffline := len(e.conns) == 0
	e.conns[connID] = struct{}{}
	return wasOffline
}

// Disconnect removes a connection from the user's active set and reports
// whether the user just went offline. Unknown pairs are a no-op.
func (r *presenceRegistry) Disconnect(userID, connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[userID]
	if !ok {
		return false
	}
	if _, held := e.conns[connID]; !held {
		return false
	}
	delete(e.conns, connID)
	if len(e.conns) == 0 {
		e.lastSeen = time.Now()
		return true
	}
	return false
}

// IsOnline reports whether the user has at least one active connection.
func (r *presenceRegistry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[userID]
	return ok && len(e.conns) > 0
}

// LastSeen returns the recorded last-seen time for an offline user.
func (r *presenceRegistry) LastSeen(userID string) (time.Time, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[userID]
	if !ok || e.lastSeen.IsZero() {
		return time.Time{}, false
	}
	return e.lastSeen, true
}

// OnlineCount returns the number of distinct online users.
func (r *presenceRegistry) OnlineCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, e := range r.entries {
		if len(e.conns) > 0 {
			n++
		}
	}
	return n
}
