package realtime

import (
	"sync"
	"testing"
	"time"

	"chat-core/internal/models"

	"github.com/stretchr/testify/require"
)

func TestDispatcher_ToRoomRespectsExclusions(t *testing.T) {
	f := newFixture()
	a1 := f.connect(t, "alice")
	a2 := f.connect(t, "alice")
	b := f.connect(t, "bob")
	outsider := f.connect(t, "carol")

	for _, c := range []*Conn{a1, a2, b} {
		_, err := f.tracker.Join(c.ID, "lobby")
		require.NoError(t, err)
	}

	evt := models.NewEvent(models.EventNewMessage)
	evt.Room = "lobby"

	report := f.dispatcher.ToRoom("lobby", evt, ExcludeConn(a1.ID))
	require.Equal(t, Report{Targets: 2, Delivered: 2}, report)
	require.Empty(t, drain(t, a1))
	require.Len(t, drain(t, a2), 1)
	require.Len(t, drain(t, b), 1)
	require.Empty(t, drain(t, outsider))

	report = f.dispatcher.ToRoom("lobby", evt, ExcludeUser("alice"))
	require.Equal(t, 1, report.Delivered)
	require.Empty(t, drain(t, a2))
	require.Len(t, drain(t, b), 1)
}

func TestDispatcher_RoomWithOnlySender(t *testing.T) {
	f := newFixture()
	a := f.connect(t, "alice")
	_, _ = f.tracker.Join(a.ID, "solo")

	report := f.dispatcher.ToRoom("solo", models.NewEvent(models.EventNewMessage), ExcludeConn(a.ID))
	require.Zero(t, report.Targets)
	require.Zero(t, report.Delivered)

	report = f.dispatcher.ToRoom("nobody-here", models.NewEvent(models.EventNewMessage))
	require.Zero(t, report.Targets)
}

func TestDispatcher_ToUsersReachesEveryDevice(t *testing.T) {
	f := newFixture()
	a1 := f.connect(t, "alice")
	a2 := f.connect(t, "alice")
	b := f.connect(t, "bob")

	report := f.dispatcher.ToUsers([]string{"bob", "alice", "bob", ""}, models.NewEvent(models.EventNewMessage))
	require.Equal(t, 3, report.Delivered)
	for _, c := range []*Conn{a1, a2, b} {
		require.Len(t, drain(t, c), 1)
	}

	report = f.dispatcher.ToUsers([]string{"offline-user"}, models.NewEvent(models.EventNewMessage))
	require.Zero(t, report.Targets)
}

func TestDispatcher_BackpressureEvictsOnlySlowConsumer(t *testing.T) {
	f := newFixture()
	slow := NewConn("slow", 1)
	_, err := f.registry.Register("slow", slow)
	require.NoError(t, err)
	fast := f.connect(t, "fast")

	_, _ = f.tracker.Join(slow.ID, "r")
	_, _ = f.tracker.Join(fast.ID, "r")

	first := f.dispatcher.ToRoom("r", models.NewEvent(models.EventNewMessage))
	require.Equal(t, 2, first.Delivered)

	done := make(chan Report, 1)
	go func() { done <- f.dispatcher.ToRoom("r", models.NewEvent(models.EventNewMessage)) }()

	select {
	case report := <-done:
		require.Equal(t, 1, report.Delivered)
		require.Equal(t, 1, report.Failed)
	case <-time.After(time.Second):
		t.Fatal("dispatch blocked on a full queue")
	}

	require.False(t, slow.Alive())
	require.True(t, fast.Alive())
	require.Len(t, drain(t, fast), 2)

	require.ErrorIs(t, f.dispatcher.SendTo(slow, models.NewEvent(models.EventError)), ErrDeliveryFailed)
}

func TestDispatcher_ClosedTargetIsSkippedNotFailed(t *testing.T) {
	f := newFixture()
	leaving := f.connect(t, "alice")
	staying := f.connect(t, "bob")
	_, _ = f.tracker.Join(leaving.ID, "r")
	_, _ = f.tracker.Join(staying.ID, "r")

	var evicted []string
	f.dispatcher.onFailure = func(c *Conn, _ error) { evicted = append(evicted, c.ID) }

	// Closed between resolution and enqueue: still a tracked member.
	leaving.Close()
	report := f.dispatcher.Deliver(models.NewEvent(models.EventNewMessage), f.tracker.MembersOf("r"))

	require.Equal(t, Report{Targets: 2, Delivered: 1, Skipped: 1}, report)
	require.Empty(t, evicted)
	require.Len(t, drain(t, staying), 1)
	require.ErrorIs(t, f.dispatcher.SendTo(leaving, models.NewEvent(models.EventError)), ErrDeliveryFailed)
}

func TestDispatcher_PreservesOrderPerRoom(t *testing.T) {
	f := newFixture()
	receiver := NewConn("receiver", 1024)
	_, _ = f.registry.Register("receiver", receiver)
	_, _ = f.tracker.Join(receiver.ID, "r")

	const perSender = 100
	var wg sync.WaitGroup
	for s := 0; s < 4; s++ {
		wg.Add(1)
		go func(sender string) {
			defer wg.Done()
			for i := 0; i < perSender; i++ {
				evt := models.NewEvent(models.EventNewMessage)
				evt.Text = sender
				evt.Count = int64(i)
				f.dispatcher.ToRoom("r", evt)
			}
		}(string(rune('a' + s)))
	}
	wg.Wait()

	last := map[string]int64{}
	events := drain(t, receiver)
	require.Len(t, events, 4*perSender)
	for _, evt := range events {
		prev, seen := last[evt.Text]
		if seen {
			require.Greater(t, evt.Count, prev, "sender %s reordered", evt.Text)
		}
		last[evt.Text] = evt.Count
	}
}
