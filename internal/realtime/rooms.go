package realtime

import (
	"errors"
	"sync"

	"chat-core/internal/metrics"

	"github.com/samber/lo"
)

var ErrUnknownConnection = errors.New("unknown connection")

// Tracker keeps room membership in both directions. The two indices are
// guarded by the same lock and always mirror each other.
type Tracker struct {
	registry *Registry

	mu sync.RWMutex
	// roomID -> connID -> *Conn
	rooms map[string]map[string]*Conn
	// connID -> set of roomIDs
	joined map[string]map[string]struct{}
}

func NewTracker(registry *Registry) *Tracker {
	return &Tracker{
		registry: registry,
		rooms:    make(map[string]map[string]*Conn),
		joined:   make(map[string]map[string]struct{}),
	}
}

// Join adds the connection to the room. Joining twice is a no-op; the bool
// reports whether the membership is new.
func (t *Tracker) Join(connID, roomID string) (bool, error) {
	c, ok := t.registry.Get(connID)
	if !ok {
		return false, ErrUnknownConnection
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	// Closed before LeaveAll runs, so a dead connection can't slip back in.
	if !c.Alive() {
		return false, ErrUnknownConnection
	}

	members, ok := t.rooms[roomID]
	if !ok {
		members = make(map[string]*Conn)
		t.rooms[roomID] = members
		metrics.RoomsActive.Inc()
	}
	if _, already := members[connID]; already {
		return false, nil
	}
	members[connID] = c

	rooms, ok := t.joined[connID]
	if !ok {
		rooms = make(map[string]struct{})
		t.joined[connID] = rooms
	}
	rooms[roomID] = struct{}{}
	return true, nil
}

// Leave removes the connection from the room and prunes the room once it is
// empty. It reports whether the connection was a member.
func (t *Tracker) Leave(connID, roomID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.leaveLocked(connID, roomID)
}

// LeaveAll removes the connection from every room it joined and returns
// those rooms. Cost is bounded by the connection's own memberships.
func (t *Tracker) LeaveAll(connID string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	left := lo.Keys(t.joined[connID])
	for _, roomID := range left {
		t.leaveLocked(connID, roomID)
	}
	return left
}

func (t *Tracker) leaveLocked(connID, roomID string) bool {
	members, ok := t.rooms[roomID]
	if !ok {
		return false
	}
	if _, ok := members[connID]; !ok {
		return false
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(t.rooms, roomID)
		metrics.RoomsActive.Dec()
	}
	if rooms, ok := t.joined[connID]; ok {
		delete(rooms, roomID)
		if len(rooms) == 0 {
			delete(t.joined, connID)
		}
	}
	return true
}

// MembersOf returns a snapshot of the room's connections.
func (t *Tracker) MembersOf(roomID string) []*Conn {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return lo.Values(t.rooms[roomID])
}

// RoomsOf returns the rooms the connection has joined.
func (t *Tracker) RoomsOf(connID string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return lo.Keys(t.joined[connID])
}

// IsMember checks if any connection of the user is in the room
func (t *Tracker) IsMember(userID, roomID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, c := range t.rooms[roomID] {
		if c.UserID == userID {
			return true
		}
	}
	return false
}

func (t *Tracker) RoomCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rooms)
}
