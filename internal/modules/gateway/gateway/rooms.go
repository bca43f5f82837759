package gateway

import "sync"

// roomRegistry tracks which connections are subscribed to which rooms.
// Both indexes live under one lock so membership is always a consistent
// function of the join/leave/purge history.
type roomRegistry struct {
	mu    sync.RWMutex
	rooms map[string]map[string]struct{} // room id -> conn ids
	conns map[string]map[string]struct{} // conn id -> room ids
}

func newRoomRegistry() *roomRegistry {
	return &roomRegistry{
		rooms: make(map[string]map[string]struct{}),
		conns: make(map[string]map[string]struct{}),
	}
}

// Join subscribes a connection to a room. Re-joining is a silent no-op;
// the return value reports whether membership actually changed.
func (r *roomRegistry) Join(connID, roomID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.joinLocked(connID, roomID)
}

// JoinAll subscribes a connection to every listed room in one critical
// section; used for auto-join at connection admission.
func (r *roomRegistry) JoinAll(connID string, roomIDs []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, roomID := range roomIDs {
		r.joinLocked(connID, roomID)
	}
}

func (r *roomRegistry) joinLocked(connID, roomID string) bool {
	room, ok := r.rooms[roomID]
	if !ok {
		room = make(map[string]struct{})
		r.rooms[roomID] = room
	}
	if _, member := room[connID]; member {
		return false
	}
	room[connID] = struct{}{}

	joined, ok := r.conns[connID]
	if !ok {
		joined = make(map[string]struct{})
		r.conns[connID] = joined
	}
	joined[roomID] = struct{}{}
	return true
}

// Leave unsubscribes a connection from a room. Leaving a room the
// connection is not in is a silent no-op.
func (r *roomRegistry) Leave(connID, roomID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return false
	}
	if _, member := room[connID]; !member {
		return false
	}
	delete(room, connID)
	if len(room) == 0 {
		delete(r.rooms, roomID)
	}
	if joined, ok := r.conns[connID]; ok {
		delete(joined, roomID)
		if len(joined) == 0 {
			delete(r.conns, connID)
		}
	}
	return true
}

// Members returns a snapshot of the connection ids currently in a room.
func (r *roomRegistry) Members(roomID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room := r.rooms[roomID]
	out := make([]string, 0, len(room))
	for id := range room {
		out = append(out, id)
	}
	return out
}

// Rooms returns a snapshot of the rooms a connection is subscribed to.
func (r *roomRegistry) Rooms(connID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	joined := r.conns[connID]
	out := make([]string, 0, len(joined))
	for id := range joined {
		out = append(out, id)
	}
	return out
}

// PurgeConnection removes a connection from every room it was a member of.
// Called exactly once, on disconnect, before the connection is discarded;
// afterwards no room set contains the id.
func (r *roomRegistry) PurgeConnection(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for roomID := range r.conns[connID] {
		if room, ok := r.rooms[roomID]; ok {
			delete(room, connID)
			if len(room) == 0 {
				delete(r.rooms, roomID)
			}
		}
	}
	delete(r.conns, connID)
}

// RoomCount returns the number of rooms with at least one subscriber.
func (r *roomRegistry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
