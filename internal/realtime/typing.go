package realtime

import (
	"errors"
	"sync"
	"time"

	"chat-core/internal/metrics"
	"chat-core/internal/models"

	"github.com/rs/zerolog"
)

const DefaultTypingTTL = 2 * time.Second

var ErrInvalidTarget = errors.New("exactly one of receiver or room is required")

type typingKey struct {
	target string
	userID string
}

type typingEntry struct {
	user   models.UserBrief
	target models.Target
	timer  *time.Timer
	// gen guards against a timer that fired after the entry was replaced.
	gen uint64
}

// Typing tracks who is typing where. Entries expire on a server-side timer
// so a client that vanishes mid-word doesn't leave a stuck indicator.
// Typing events are advisory and sent at most once.
type Typing struct {
	dispatcher *Dispatcher
	ttl        time.Duration
	log        zerolog.Logger

	mu      sync.Mutex
	entries map[typingKey]*typingEntry
	gen     uint64
	closed  bool
}

func NewTyping(dispatcher *Dispatcher, ttl time.Duration, log zerolog.Logger) *Typing {
	if ttl <= 0 {
		ttl = DefaultTypingTTL
	}
	return &Typing{
		dispatcher: dispatcher,
		ttl:        ttl,
		log:        log.With().Str("component", "typing").Logger(),
		entries:    make(map[typingKey]*typingEntry),
	}
}

// SetTyping records or clears user's typing state for target. Starting to
// type broadcasts user-typing; repeating it only re-arms the timer. Stopping
// broadcasts user-stop-typing when an entry existed.
func (t *Typing) SetTyping(user models.UserBrief, target models.Target, isTyping bool) error {
	if !target.Valid() {
		return ErrInvalidTarget
	}
	key := typingKey{target: target.Key(), userID: user.ID}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	entry, exists := t.entries[key]
	if !isTyping {
		if exists {
			entry.timer.Stop()
			delete(t.entries, key)
		}
		t.mu.Unlock()
		if exists {
			t.broadcast(models.EventUserStopTyping, user, target)
		}
		return nil
	}

	t.gen++
	gen := t.gen
	if exists {
		entry.timer.Stop()
		entry.gen = gen
		entry.timer = time.AfterFunc(t.ttl, func() { t.expire(key, gen) })
		t.mu.Unlock()
		return nil
	}
	t.entries[key] = &typingEntry{
		user:   user,
		target: target,
		gen:    gen,
		timer:  time.AfterFunc(t.ttl, func() { t.expire(key, gen) }),
	}
	t.mu.Unlock()

	t.broadcast(models.EventUserTyping, user, target)
	return nil
}

// IsTyping reports whether an unexpired entry exists.
func (t *Typing) IsTyping(userID string, target models.Target) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.entries[typingKey{target: target.Key(), userID: userID}]
	return ok
}

// ClearUser drops every entry held by the user, broadcasting stop events.
// Called when the user's last connection goes away.
func (t *Typing) ClearUser(userID string) {
	t.mu.Lock()
	var cleared []*typingEntry
	for key, entry := range t.entries {
		if key.userID != userID {
			continue
		}
		entry.timer.Stop()
		delete(t.entries, key)
		cleared = append(cleared, entry)
	}
	t.mu.Unlock()

	for _, entry := range cleared {
		t.broadcast(models.EventUserStopTyping, entry.user, entry.target)
	}
}

// Close stops all timers without broadcasting.
func (t *Typing) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	for key, entry := range t.entries {
		entry.timer.Stop()
		delete(t.entries, key)
	}
}

func (t *Typing) expire(key typingKey, gen uint64) {
	t.mu.Lock()
	entry, ok := t.entries[key]
	if !ok || entry.gen != gen {
		t.mu.Unlock()
		return
	}
	delete(t.entries, key)
	t.mu.Unlock()

	metrics.TypingExpired.Inc()
	t.log.Debug().Str("user_id", key.userID).Str("target", key.target).Msg("typing expired")
	t.broadcast(models.EventUserStopTyping, entry.user, entry.target)
}

func (t *Typing) broadcast(name string, user models.UserBrief, target models.Target) {
	evt := models.NewEvent(name)
	u := user
	evt.User = &u
	if target.IsRoom() {
		evt.Room = target.RoomID
		t.dispatcher.ToRoom(target.RoomID, evt, ExcludeUser(user.ID))
		return
	}
	evt.Receiver = target.ReceiverID
	t.dispatcher.ToUsers([]string{target.ReceiverID}, evt, ExcludeUser(user.ID))
}
