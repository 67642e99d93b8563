package runtime

import (
	"context"
	"sync"

	"chat-backend/contract"
	"chat-backend/domain"
	"chat-backend/domain/event"
)

// roomState guards one room's live membership and its broadcast sequence.
// Fan-out happens under this mutex so two broadcasts to the same room are
// observed by every member in the same order. Deliveries are non-blocking
// channel sends, so the lock is never held across I/O.
type roomState struct {
	mu      sync.Mutex
	members map[string]contract.EventSink
	dead    bool
}

// Registry is the single source of truth for "who is in this room right now".
//
// Two levels of locking: the registry mutex guards the maps only, each room
// carries its own mutex for membership mutation and fan-out. Lock order is
// always registry before room; fan-out never reaches back into the registry,
// so a broadcast storm in one room cannot block unrelated joins or disconnects.
//
// Invariant: sessionID ∈ rooms[r].members ⇔ r ∈ sessionRooms[sessionID].
// Both sides are updated inside a single Registry call, never by the caller.
type Registry struct {
	mu           sync.RWMutex
	sessions     map[string]contract.EventSink
	sessionRooms map[string]map[domain.RoomID]struct{}
	rooms        map[domain.RoomID]*roomState
}

func NewRegistry() *Registry {
	return &Registry{
		sessions:     make(map[string]contract.EventSink),
		sessionRooms: make(map[string]map[domain.RoomID]struct{}),
		rooms:        make(map[domain.RoomID]*roomState),
	}
}

// Register records a session's outbound sink. It must be called once per
// connection before any join; joining with an unregistered session is a no-op.
func (r *Registry) Register(sessionID string, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[sessionID] = sink
	if _, ok := r.sessionRooms[sessionID]; !ok {
		r.sessionRooms[sessionID] = make(map[domain.RoomID]struct{})
	}
}

// Join adds the session to the room, creating the room entry on demand.
// It reports whether membership actually changed: joining twice is accepted
// and returns false, so callers can suppress duplicate notifications.
func (r *Registry) Join(sessionID string, roomID domain.RoomID) bool {
	for {
		r.mu.Lock()
		sink, known := r.sessions[sessionID]
		if !known {
			r.mu.Unlock()
			return false
		}
		joined := r.sessionRooms[sessionID]
		_, already := joined[roomID]
		room, ok := r.rooms[roomID]
		if !ok {
			room = &roomState{members: make(map[string]contract.EventSink)}
			r.rooms[roomID] = room
		}
		joined[roomID] = struct{}{}
		r.mu.Unlock()

		room.mu.Lock()
		if room.dead {
			// Lost a race with pruning: the entry was removed between the
			// map lookup and this lock. Resolve a fresh one.
			room.mu.Unlock()
			continue
		}
		room.members[sessionID] = sink
		room.mu.Unlock()

		// A RemoveSession may have run between the two locks: it saw the
		// reverse index entry but not yet the member entry. Re-check
		// liveness and undo, otherwise a closed session stays addressable.
		r.mu.RLock()
		_, alive := r.sessions[sessionID]
		r.mu.RUnlock()
		if !alive {
			room.mu.Lock()
			delete(room.members, sessionID)
			empty := len(room.members) == 0
			room.mu.Unlock()
			if empty {
				r.prune(roomID, room)
			}
			return false
		}
		return !already
	}
}

// Leave removes the session from the room. Leaving a room never joined is a
// no-op, not an error; the return value reports whether membership changed.
func (r *Registry) Leave(sessionID string, roomID domain.RoomID) bool {
	r.mu.Lock()
	joined, known := r.sessionRooms[sessionID]
	if !known {
		r.mu.Unlock()
		return false
	}
	if _, member := joined[roomID]; !member {
		r.mu.Unlock()
		return false
	}
	delete(joined, roomID)
	room := r.rooms[roomID]
	r.mu.Unlock()

	if room == nil {
		return true
	}
	room.mu.Lock()
	delete(room.members, sessionID)
	empty := len(room.members) == 0
	room.mu.Unlock()

	if empty {
		r.prune(roomID, room)
	}
	return true
}

// IsMember reports current membership; used by the send policy check.
func (r *Registry) IsMember(sessionID string, roomID domain.RoomID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	joined, ok := r.sessionRooms[sessionID]
	if !ok {
		return false
	}
	_, member := joined[roomID]
	return member
}

// MembersOf returns a snapshot of the session ids currently in the room.
func (r *Registry) MembersOf(roomID domain.RoomID) []string {
	r.mu.RLock()
	room := r.rooms[roomID]
	r.mu.RUnlock()

	if room == nil {
		return nil
	}
	room.mu.Lock()
	defer room.mu.Unlock()

	ids := make([]string, 0, len(room.members))
	for id := range room.members {
		ids = append(ids, id)
	}
	return ids
}

// Fanout delivers the event to every current member of the room except
// excludeSessionID and returns the delivery and drop counts separately.
// The snapshot and the deliveries happen under the room lock: a session that
// left before this call cannot receive the event. Each delivery is
// best-effort; one saturated sink does not affect the others, but its
// refusal is counted as a drop, never as a delivery.
func (r *Registry) Fanout(ctx context.Context, roomID domain.RoomID, excludeSessionID string, e event.DomainEvent) (delivered, dropped int) {
	r.mu.RLock()
	room := r.rooms[roomID]
	r.mu.RUnlock()

	if room == nil {
		return 0, 0
	}
	room.mu.Lock()
	defer room.mu.Unlock()

	for id, sink := range room.members {
		if id == excludeSessionID {
			continue
		}
		if err := sink.Consume(ctx, e); err != nil {
			dropped++
			continue
		}
		delivered++
	}
	return delivered, dropped
}

// RemoveSession is the unconditional disconnect cleanup. It removes the
// session from every room it had joined in O(rooms joined) and returns those
// rooms so the caller can notify remaining members. Unknown sessions are a
// safe no-op.
func (r *Registry) RemoveSession(sessionID string) []domain.RoomID {
	r.mu.Lock()
	delete(r.sessions, sessionID)
	joined := r.sessionRooms[sessionID]
	delete(r.sessionRooms, sessionID)

	type entry struct {
		id   domain.RoomID
		room *roomState
	}
	entries := make([]entry, 0, len(joined))
	for roomID := range joined {
		if room := r.rooms[roomID]; room != nil {
			entries = append(entries, entry{id: roomID, room: room})
		}
	}
	r.mu.Unlock()

	left := make([]domain.RoomID, 0, len(entries))
	for _, e := range entries {
		e.room.mu.Lock()
		delete(e.room.members, sessionID)
		empty := len(e.room.members) == 0
		e.room.mu.Unlock()

		if empty {
			r.prune(e.id, e.room)
		}
		left = append(left, e.id)
	}
	return left
}

// prune drops an empty room entry. Emptiness is re-checked under both locks
// because a join may have raced in; the dead flag makes such a join retry.
func (r *Registry) prune(roomID domain.RoomID, room *roomState) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.rooms[roomID]; !ok || current != room {
		return
	}
	room.mu.Lock()
	defer room.mu.Unlock()

	if len(room.members) == 0 {
		room.dead = true
		delete(r.rooms, roomID)
	}
}
