package realtime

import (
	"encoding/json"
	"testing"
	"time"

	"chat-core/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	registry   *Registry
	tracker    *Tracker
	dispatcher *Dispatcher
}

func newFixture() *fixture {
	registry := NewRegistry()
	tracker := NewTracker(registry)
	return &fixture{
		registry:   registry,
		tracker:    tracker,
		dispatcher: NewDispatcher(registry, tracker, zerolog.Nop()),
	}
}

func (f *fixture) connect(t *testing.T, userID string) *Conn {
	t.Helper()
	c := NewConn(userID, 16)
	_, err := f.registry.Register(userID, c)
	require.NoError(t, err)
	return c
}

// drain returns every event currently queued on c.
func drain(t *testing.T, c *Conn) []models.Event {
	t.Helper()
	var events []models.Event
	for {
		select {
		case payload := <-c.Outbound():
			var evt models.Event
			require.NoError(t, json.Unmarshal(payload, &evt))
			events = append(events, evt)
		default:
			return events
		}
	}
}

// next waits for one event on c.
func next(t *testing.T, c *Conn, timeout time.Duration) (models.Event, bool) {
	t.Helper()
	select {
	case payload := <-c.Outbound():
		var evt models.Event
		require.NoError(t, json.Unmarshal(payload, &evt))
		return evt, true
	case <-time.After(timeout):
		return models.Event{}, false
	}
}
