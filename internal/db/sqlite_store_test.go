package db

import (
	"context"
	"testing"
	"time"

	"chat-core/internal/models"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func message(id, sender string, target models.Target, at time.Time) *models.Message {
	return &models.Message{
		ID:         id,
		SenderID:   sender,
		ReceiverID: target.ReceiverID,
		RoomID:     target.RoomID,
		Body:       "body " + id,
		Kind:       models.KindText,
		Version:    1,
		CreatedAt:  at,
		UpdatedAt:  at,
	}
}

func TestSQLiteStore_SaveAndFind(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	store := newTestStore(t)

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	msg := message("m1", "alice", models.Target{ReceiverID: "bob"}, at)
	msg.Kind = models.KindFile
	msg.Attachment = &models.Attachment{URL: "https://cdn/x.pdf", Name: "x.pdf", Size: 42}
	req.NoError(store.Save(ctx, msg))

	got, err := store.FindByID(ctx, "m1")
	req.NoError(err)
	req.NotNil(got)
	req.Equal("alice", got.SenderID)
	req.Equal("bob", got.ReceiverID)
	req.Empty(got.RoomID)
	req.Equal(models.KindFile, got.Kind)
	req.Equal(int64(42), got.Attachment.Size)
	req.True(at.Equal(got.CreatedAt))
	req.False(got.Read)

	missing, err := store.FindByID(ctx, "nope")
	req.NoError(err)
	req.Nil(missing)
}

func TestSQLiteStore_RejectsBothOrNeitherTarget(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	now := time.Now()

	require.Error(t, store.Save(ctx, message("both", "a", models.Target{ReceiverID: "b", RoomID: "r"}, now)))
	require.Error(t, store.Save(ctx, message("neither", "a", models.Target{}, now)))
}

func TestSQLiteStore_UpdateFieldsHonorsVersion(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	store := newTestStore(t)
	req.NoError(store.Save(ctx, message("m1", "alice", models.Target{RoomID: "r"}, time.Now())))

	ok, err := store.UpdateFields(ctx, "m1", models.MessagePatch{Body: lo.ToPtr("v2"), Edited: lo.ToPtr(true), ExpectVersion: 1})
	req.NoError(err)
	req.True(ok)

	ok, err = store.UpdateFields(ctx, "m1", models.MessagePatch{Body: lo.ToPtr("stale"), ExpectVersion: 1})
	req.NoError(err)
	req.False(ok)

	got, err := store.FindByID(ctx, "m1")
	req.NoError(err)
	req.Equal("v2", got.Body)
	req.True(got.Edited)
	req.Equal(int64(2), got.Version)

	ok, err = store.UpdateFields(ctx, "ghost", models.MessagePatch{Read: lo.ToPtr(true)})
	req.NoError(err)
	req.False(ok)
}

func TestSQLiteStore_UpdateManyMatchingReturnsRefs(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	store := newTestStore(t)
	now := time.Now()

	req.NoError(store.Save(ctx, message("m1", "alice", models.Target{ReceiverID: "bob"}, now)))
	req.NoError(store.Save(ctx, message("m2", "alice", models.Target{ReceiverID: "bob"}, now.Add(time.Second))))
	req.NoError(store.Save(ctx, message("m3", "carol", models.Target{ReceiverID: "bob"}, now.Add(2*time.Second))))
	req.NoError(store.Save(ctx, message("m4", "alice", models.Target{ReceiverID: "dave"}, now)))

	filter := models.MessageFilter{SenderID: "alice", ReceiverID: "bob", OnlyUnread: true, IncludeDeleted: true}
	refs, err := store.UpdateManyMatching(ctx, filter, models.MessagePatch{Read: lo.ToPtr(true)})
	req.NoError(err)
	req.ElementsMatch([]string{"m1", "m2"}, lo.Map(refs, func(r models.MessageRef, _ int) string { return r.ID }))

	refs, err = store.UpdateManyMatching(ctx, filter, models.MessagePatch{Read: lo.ToPtr(true)})
	req.NoError(err)
	req.Empty(refs)

	unread, err := store.CountUnread(ctx, models.MessageFilter{ReceiverID: "bob"})
	req.NoError(err)
	req.Equal(int64(1), unread)

	got, err := store.FindByID(ctx, "m1")
	req.NoError(err)
	req.Equal(int64(1), got.Version, "read flag does not bump the version")
}

func TestSQLiteStore_ListConversationNewestFirst(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	store := newTestStore(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	req.NoError(store.Save(ctx, message("m1", "alice", models.Target{ReceiverID: "bob"}, base)))
	req.NoError(store.Save(ctx, message("m2", "bob", models.Target{ReceiverID: "alice"}, base.Add(time.Minute))))
	req.NoError(store.Save(ctx, message("m3", "alice", models.Target{ReceiverID: "carol"}, base.Add(2*time.Minute))))
	deleted := message("m4", "alice", models.Target{ReceiverID: "bob"}, base.Add(3*time.Minute))
	deleted.Deleted = true
	req.NoError(store.Save(ctx, deleted))

	msgs, err := store.List(ctx, models.MessageFilter{Conversation: [2]string{"bob", "alice"}})
	req.NoError(err)
	req.Equal([]string{"m2", "m1"}, lo.Map(msgs, func(m models.Message, _ int) string { return m.ID }))

	msgs, err = store.List(ctx, models.MessageFilter{Conversation: [2]string{"alice", "bob"}, Before: base.Add(30 * time.Second)})
	req.NoError(err)
	req.Len(msgs, 1)
	req.Equal("m1", msgs[0].ID)

	msgs, err = store.List(ctx, models.MessageFilter{Conversation: [2]string{"alice", "bob"}, Limit: 1})
	req.NoError(err)
	req.Len(msgs, 1)
	req.Equal("m2", msgs[0].ID)
}

func TestSQLiteStore_BriefOf(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	store := newTestStore(t)

	req.NoError(store.UpsertUser(ctx, UserRow{ID: "u1", Username: "ann", FirstName: "Ann", LastName: "Lee", AvatarURL: "/a.png"}))
	req.NoError(store.UpsertUser(ctx, UserRow{ID: "u2", Username: "bo"}))

	b, err := store.BriefOf(ctx, "u1")
	req.NoError(err)
	req.Equal(&models.UserBrief{ID: "u1", DisplayName: "Ann Lee", AvatarURL: "/a.png"}, b)

	b, err = store.BriefOf(ctx, "u2")
	req.NoError(err)
	req.Equal("bo", b.DisplayName)

	b, err = store.BriefOf(ctx, "u3")
	req.NoError(err)
	req.Nil(b)
}

func TestBuildUpdateMany_Postgres(t *testing.T) {
	sql, args := buildUpdateMany(postgresDialect,
		models.MessageFilter{IDs: []string{"a", "b"}, ReceiverID: "bob", OnlyUnread: true, IncludeDeleted: true},
		models.MessagePatch{Read: lo.ToPtr(true)},
		time.Unix(0, 0))

	require.Equal(t,
		"UPDATE chat_messages SET is_read = $1, updated_at = $2 WHERE id IN ($3, $4) AND receiver_id = $5 AND is_read = $6 RETURNING id, sender_id, room_id",
		sql)
	require.Len(t, args, 6)
}
