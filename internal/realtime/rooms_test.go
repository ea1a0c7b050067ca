package realtime

import (
	"fmt"
	"math/rand"
	"sort"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

// assertMirrored checks that the forward and reverse indices describe the
// same membership.
func assertMirrored(t *testing.T, tr *Tracker) {
	t.Helper()
	tr.mu.RLock()
	defer tr.mu.RUnlock()

	for roomID, members := range tr.rooms {
		require.NotEmpty(t, members, "empty room %s should have been pruned", roomID)
		for connID := range members {
			_, ok := tr.joined[connID][roomID]
			require.True(t, ok, "conn %s in room %s but not in reverse index", connID, roomID)
		}
	}
	for connID, rooms := range tr.joined {
		require.NotEmpty(t, rooms, "empty reverse entry for %s", connID)
		for roomID := range rooms {
			_, ok := tr.rooms[roomID][connID]
			require.True(t, ok, "reverse index has %s in %s but room does not", connID, roomID)
		}
	}
}

func TestTracker_JoinIsIdempotent(t *testing.T) {
	f := newFixture()
	c := f.connect(t, "alice")

	added, err := f.tracker.Join(c.ID, "r1")
	require.NoError(t, err)
	require.True(t, added)

	added, err = f.tracker.Join(c.ID, "r1")
	require.NoError(t, err)
	require.False(t, added)

	require.Len(t, f.tracker.MembersOf("r1"), 1)
	require.Equal(t, []string{"r1"}, f.tracker.RoomsOf(c.ID))
	assertMirrored(t, f.tracker)
}

func TestTracker_JoinUnknownOrClosedConnection(t *testing.T) {
	f := newFixture()
	_, err := f.tracker.Join("ghost", "r1")
	require.ErrorIs(t, err, ErrUnknownConnection)

	c := f.connect(t, "alice")
	c.Close()
	_, err = f.tracker.Join(c.ID, "r1")
	require.ErrorIs(t, err, ErrUnknownConnection)
	require.Zero(t, f.tracker.RoomCount())
}

func TestTracker_LeavePrunesEmptyRoom(t *testing.T) {
	f := newFixture()
	a := f.connect(t, "alice")
	b := f.connect(t, "bob")

	_, _ = f.tracker.Join(a.ID, "r1")
	_, _ = f.tracker.Join(b.ID, "r1")

	require.True(t, f.tracker.Leave(a.ID, "r1"))
	require.Equal(t, 1, f.tracker.RoomCount())
	require.False(t, f.tracker.Leave(a.ID, "r1"))

	require.True(t, f.tracker.Leave(b.ID, "r1"))
	require.Zero(t, f.tracker.RoomCount())
	assertMirrored(t, f.tracker)
}

func TestTracker_LeaveAllRemovesEveryMembership(t *testing.T) {
	f := newFixture()
	c := f.connect(t, "alice")
	other := f.connect(t, "bob")

	for _, room := range []string{"r1", "r2", "r3"} {
		_, err := f.tracker.Join(c.ID, room)
		require.NoError(t, err)
	}
	_, _ = f.tracker.Join(other.ID, "r2")

	left := f.tracker.LeaveAll(c.ID)
	sort.Strings(left)
	require.Equal(t, []string{"r1", "r2", "r3"}, left)

	for _, room := range []string{"r1", "r2", "r3"} {
		require.False(t, lo.ContainsBy(f.tracker.MembersOf(room), func(m *Conn) bool { return m.ID == c.ID }))
	}
	require.Empty(t, f.tracker.RoomsOf(c.ID))
	_, residual := f.tracker.joined[c.ID]
	require.False(t, residual)
	require.Equal(t, 1, f.tracker.RoomCount())

	require.Empty(t, f.tracker.LeaveAll(c.ID))
	assertMirrored(t, f.tracker)
}

func TestTracker_RandomSequencesMatchNetEffect(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	rooms := []string{"a", "b", "c"}

	for round := 0; round < 50; round++ {
		f := newFixture()
		conns := []*Conn{f.connect(t, "u1"), f.connect(t, "u2")}
		expected := map[string]map[string]bool{}

		for step := 0; step < 40; step++ {
			c := conns[rng.Intn(len(conns))]
			room := rooms[rng.Intn(len(rooms))]
			if expected[c.ID] == nil {
				expected[c.ID] = map[string]bool{}
			}
			switch rng.Intn(3) {
			case 0, 1:
				_, err := f.tracker.Join(c.ID, room)
				require.NoError(t, err)
				expected[c.ID][room] = true
			default:
				f.tracker.Leave(c.ID, room)
				delete(expected[c.ID], room)
			}
			assertMirrored(t, f.tracker)
		}

		for _, c := range conns {
			got := f.tracker.RoomsOf(c.ID)
			sort.Strings(got)
			want := lo.Keys(expected[c.ID])
			sort.Strings(want)
			if len(want) == 0 {
				require.Empty(t, got, fmt.Sprintf("round %d", round))
				continue
			}
			require.Equal(t, want, got, fmt.Sprintf("round %d", round))
		}
	}
}

func TestTracker_IsMember(t *testing.T) {
	f := newFixture()
	c := f.connect(t, "alice")
	_, _ = f.tracker.Join(c.ID, "r1")

	require.True(t, f.tracker.IsMember("alice", "r1"))
	require.False(t, f.tracker.IsMember("bob", "r1"))
	require.False(t, f.tracker.IsMember("alice", "r2"))
}
