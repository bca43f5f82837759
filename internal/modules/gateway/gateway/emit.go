package gateway

// TargetScope selects which connections an emission reaches.
type TargetScope int

const (
	ScopeAll TargetScope = iota
	ScopeRoom
	ScopeConn
)

// Target is the single explicit addressing primitive for every outbound
// emission: all connections, one room's members, or one connection, with an
// optional excluded connection (the originator, for self-excluded events).
type Target struct {
	Scope   TargetScope
	RoomID  string
	ConnID  string
	Exclude string
}

// TargetAll addresses every live connection.
func TargetAll() Target { return Target{Scope: ScopeAll} }

// TargetAllExcept addresses every live connection but one.
func TargetAllExcept(connID string) Target {
	return Target{Scope: ScopeAll, Exclude: connID}
}

// TargetRoom addresses the current members of a room.
func TargetRoom(roomID string) Target {
	return Target{Scope: ScopeRoom, RoomID: roomID}
}

// TargetRoomExcept addresses a room's members minus the originator.
func TargetRoomExcept(roomID, connID string) Target {
	return Target{Scope: ScopeRoom, RoomID: roomID, Exclude: connID}
}

// TargetConn addresses a single connection.
func TargetConn(connID string) Target {
	return Target{Scope: ScopeConn, ConnID: connID}
}

// Emit queues an event for ordered delivery. Room targets capture the
// room's membership here, at acceptance: connections joining the room after
// an emission was accepted never receive it. Emissions for the same room
// are delivered in acceptance order; the single Run loop drains the queue,
// so no two deliveries interleave.
func (h *Hub) Emit(target Target, event string, payload any) {
	var conns []string
	if target.Scope == ScopeRoom {
		conns = h.rooms.Members(target.RoomID)
	}
	h.outbound <- envelope{target: target, conns: conns, event: event, payload: payload}
}

// deliver hands the payload to each addressed connection. Connections that
// closed between acceptance and delivery are skipped silently.
func (h *Hub) deliver(msg envelope) {
	var ids []string
	switch msg.target.Scope {
	case ScopeAll:
		h.mu.RLock()
		ids = make([]string, 0, len(h.conns))
		for id := range h.conns {
			ids = append(ids, id)
		}
		h.mu.RUnlock()
	case ScopeRoom:
		ids = msg.conns
	case ScopeConn:
		ids = []string{msg.target.ConnID}
	}

	for _, id := range ids {
		if id == msg.target.Exclude {
			continue
		}
		h.mu.RLock()
		c := h.conns[id]
		h.mu.RUnlock()
		if c == nil || c.stateNow() != stateActive {
			continue
		}
		c.emit(msg.event, msg.payload)
	}
}
