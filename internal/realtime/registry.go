package realtime

import (
	"errors"
	"sync"

	"chat-core/internal/metrics"
	"chat-core/internal/utils"

	"github.com/samber/lo"
)

var ErrUserMismatch = errors.New("connection belongs to another user")

// Observer is told when a user goes from zero to one live connection and
// back. Calls happen outside the registry lock but in transition order for
// any one user. Observers must not call Register or Unregister.
type Observer interface {
	Connected(userID string)
	Disconnected(userID string)
}

// Registry maps users to their live connections. A user may hold any number
// of connections at once.
type Registry struct {
	mu sync.RWMutex
	// userID -> connID -> *Conn
	byUser map[string]map[string]*Conn
	byID   map[string]*Conn

	// transitions is held per user from the map change through the observer
	// calls, so a late Disconnected can't overtake the next Connected.
	transitions *utils.KeyedMutex
	observers   []Observer
}

func NewRegistry(observers ...Observer) *Registry {
	return &Registry{
		byUser:      make(map[string]map[string]*Conn),
		byID:        make(map[string]*Conn),
		transitions: utils.NewKeyedMutex(0),
		observers:   observers,
	}
}

// Observe adds an observer. Call before serving traffic.
func (r *Registry) Observe(o Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers = append(r.observers, o)
}

// Register adds the connection to userID's live set and returns its id.
func (r *Registry) Register(userID string, c *Conn) (string, error) {
	if c.UserID != userID {
		return "", ErrUserMismatch
	}
	if !c.Alive() {
		return "", ErrConnClosed
	}

	unlock := r.transitions.Lock(userID)
	defer unlock()

	r.mu.Lock()
	conns, ok := r.byUser[userID]
	if !ok {
		conns = make(map[string]*Conn)
		r.byUser[userID] = conns
	}
	cameOnline := len(conns) == 0
	conns[c.ID] = c
	r.byID[c.ID] = c
	observers := r.observers
	r.mu.Unlock()

	metrics.ConnectionsActive.Inc()
	if cameOnline {
		metrics.UsersOnline.Inc()
		for _, o := range observers {
			o.Connected(userID)
		}
	}
	return c.ID, nil
}

// Unregister removes the connection. Unknown ids are ignored; the return
// value reports whether anything was removed.
func (r *Registry) Unregister(connID string) bool {
	r.mu.RLock()
	c, ok := r.byID[connID]
	r.mu.RUnlock()
	if !ok {
		return false
	}

	unlock := r.transitions.Lock(c.UserID)
	defer unlock()

	r.mu.Lock()
	// A concurrent Unregister may have won while we waited.
	if _, ok := r.byID[connID]; !ok {
		r.mu.Unlock()
		return false
	}
	delete(r.byID, connID)
	wentOffline := false
	if conns, ok := r.byUser[c.UserID]; ok {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(r.byUser, c.UserID)
			wentOffline = true
		}
	}
	observers := r.observers
	r.mu.Unlock()

	metrics.ConnectionsActive.Dec()
	if wentOffline {
		metrics.UsersOnline.Dec()
		for _, o := range observers {
			o.Disconnected(c.UserID)
		}
	}
	return true
}

// ConnectionsFor returns a snapshot of the user's live connections. The
// snapshot may be stale by the time it is used.
func (r *Registry) ConnectionsFor(userID string) []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Values(r.byUser[userID])
}

func (r *Registry) Get(connID string) (*Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byID[connID]
	return c, ok
}

// IsOnline reports whether the user has at least one live connection.
func (r *Registry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser[userID]) > 0
}

func (r *Registry) ConnectionCount(userID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser[userID])
}

func (r *Registry) OnlineUsers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Keys(r.byUser)
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
