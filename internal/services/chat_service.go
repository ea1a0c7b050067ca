package services

import (
	"context"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"chat-core/internal/metrics"
	"chat-core/internal/models"
	"chat-core/internal/realtime"
	"chat-core/internal/utils"

	"github.com/go-playground/validator/v10"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

const (
	DefaultMaxMessageLength = 5000
	DefaultHistoryLimit     = 50
	MaxHistoryLimit         = 200
	maxRoomIDLength         = 100
)

// ChatService owns the message lifecycle: created, edited any number of
// times, then deleted for good. Read flags flip independently.
type ChatService struct {
	store    MessageStore
	users    UserDirectory
	notifier Notifier
	log      zerolog.Logger

	locks     *utils.KeyedMutex
	validate  *validator.Validate
	maxLength int
	now       func() time.Time
}

type ChatOption func(*ChatService)

func WithMaxMessageLength(n int) ChatOption {
	return func(s *ChatService) {
		if n > 0 {
			s.maxLength = n
		}
	}
}

func WithClock(now func() time.Time) ChatOption {
	return func(s *ChatService) { s.now = now }
}

func NewChatService(store MessageStore, users UserDirectory, notifier Notifier, log zerolog.Logger, opts ...ChatOption) *ChatService {
	s := &ChatService{
		store:     store,
		users:     users,
		notifier:  notifier,
		log:       log.With().Str("component", "chat").Logger(),
		locks:     utils.NewKeyedMutex(0),
		validate:  validator.New(),
		maxLength: DefaultMaxMessageLength,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send validates, persists, then dispatches a new message. Nothing is
// dispatched unless the store acknowledged the write.
func (s *ChatService) Send(ctx context.Context, actor Actor, req models.SendRequest) (*models.Message, error) {
	target := req.Target.Normalize()
	if !target.Valid() {
		return nil, validationf("exactly one of receiver or room is required")
	}
	body := strings.TrimSpace(req.Body)
	if err := s.checkBody(body); err != nil {
		return nil, err
	}
	if req.Kind == "" {
		req.Kind = models.KindText
	}
	req.Body = body
	if err := s.validate.Struct(req); err != nil {
		return nil, validationf("%v", err)
	}

	if target.IsRoom() {
		if len(target.RoomID) > maxRoomIDLength || !utf8.ValidString(target.RoomID) {
			return nil, validationf("invalid room id")
		}
	} else {
		receiver, err := s.users.BriefOf(ctx, target.ReceiverID)
		if err != nil {
			return nil, transient("lookup receiver", err)
		}
		if receiver == nil {
			return nil, validationf("unknown receiver %q", target.ReceiverID)
		}
	}

	now := s.now().UTC()
	msg := &models.Message{
		ID:         ulid.Make().String(),
		SenderID:   actor.UserID,
		ReceiverID: target.ReceiverID,
		RoomID:     target.RoomID,
		Body:       body,
		Kind:       req.Kind,
		Attachment: req.Attachment,
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.timed("save", func() error { return s.store.Save(ctx, msg) }); err != nil {
		return nil, transient("save message", err)
	}

	evt := models.NewEvent(models.EventNewMessage)
	evt.Message = msg
	evt.Sender = s.brief(ctx, actor.UserID)
	report := s.dispatch(actor, target, msg.SenderID, evt)

	metrics.MessagesSent.WithLabelValues(targetLabel(target)).Inc()
	s.log.Debug().
		Str("message_id", msg.ID).
		Str("sender_id", msg.SenderID).
		Str("target", target.Key()).
		Int("delivered", report.Delivered).
		Msg("message sent")
	return msg, nil
}

// Edit replaces the body of a live message owned by the actor.
func (s *ChatService) Edit(ctx context.Context, actor Actor, req models.EditRequest) (*models.Message, error) {
	req.Body = strings.TrimSpace(req.Body)
	if err := s.checkBody(req.Body); err != nil {
		return nil, err
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, validationf("%v", err)
	}

	unlock := s.locks.Lock(req.MessageID)
	defer unlock()

	msg, err := s.loadOwned(ctx, actor, req.MessageID, req.Version)
	if err != nil {
		return nil, err
	}

	patch := models.MessagePatch{Body: lo.ToPtr(req.Body), Edited: lo.ToPtr(true), ExpectVersion: msg.Version}
	if err := s.apply(ctx, msg.ID, patch); err != nil {
		return nil, err
	}
	msg.Body = req.Body
	msg.Edited = true
	msg.Version++
	msg.UpdatedAt = s.now().UTC()

	evt := models.NewEvent(models.EventMessageUpdated)
	evt.Message = msg
	evt.MessageID = msg.ID
	s.dispatch(actor, msg.Target(), msg.SenderID, evt)
	return msg, nil
}

// Delete soft-deletes a message owned by the actor. Its body is replaced by
// the tombstone and it can no longer be edited.
func (s *ChatService) Delete(ctx context.Context, actor Actor, req models.DeleteRequest) error {
	if err := s.validate.Struct(req); err != nil {
		return validationf("%v", err)
	}

	unlock := s.locks.Lock(req.MessageID)
	defer unlock()

	msg, err := s.loadOwned(ctx, actor, req.MessageID, req.Version)
	if err != nil {
		return err
	}

	patch := models.MessagePatch{Body: lo.ToPtr(models.Tombstone), Deleted: lo.ToPtr(true), ExpectVersion: msg.Version}
	if err := s.apply(ctx, msg.ID, patch); err != nil {
		return err
	}

	// Deletion events carry the id only.
	evt := models.NewEvent(models.EventMessageDeleted)
	evt.MessageID = msg.ID
	s.dispatch(actor, msg.Target(), msg.SenderID, evt)
	return nil
}

// MarkRead flips read on every unread message the selector matches for the
// reader and notifies the senders. It returns how many messages changed.
func (s *ChatService) MarkRead(ctx context.Context, actor Actor, sel models.ReadSelector) (int64, error) {
	filter, err := readFilter(actor.UserID, sel)
	if err != nil {
		return 0, err
	}

	var refs []models.MessageRef
	err = s.timed("mark_read", func() error {
		var err error
		refs, err = s.store.UpdateManyMatching(ctx, filter, models.MessagePatch{Read: lo.ToPtr(true)})
		return err
	})
	if err != nil {
		return 0, transient("mark read", err)
	}
	if len(refs) == 0 {
		return 0, nil
	}
	metrics.MessagesRead.Add(float64(len(refs)))

	for sender, group := range lo.GroupBy(refs, func(r models.MessageRef) string { return r.SenderID }) {
		evt := models.NewEvent(models.EventMessagesRead)
		evt.ReaderID = actor.UserID
		evt.Room = sel.RoomID
		evt.Count = int64(len(group))
		evt.MessageIDs = lo.Map(group, func(r models.MessageRef, _ int) string { return r.ID })
		s.notifier.ToUsers([]string{sender, actor.UserID}, evt, s.originPolicy(actor)...)
	}
	return int64(len(refs)), nil
}

// History returns up to q.Limit live messages of a room or a direct
// conversation, oldest first.
func (s *ChatService) History(ctx context.Context, actor Actor, q models.HistoryQuery) ([]models.Message, error) {
	target := models.Target{ReceiverID: q.WithUser, RoomID: q.RoomID}.Normalize()
	if !target.Valid() {
		return nil, validationf("exactly one of user or room is required")
	}

	limit := q.Limit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	limit = min(limit, MaxHistoryLimit)

	filter := models.MessageFilter{Before: q.Before, Limit: limit}
	if target.IsRoom() {
		filter.RoomID = target.RoomID
	} else {
		filter.Conversation = [2]string{actor.UserID, target.ReceiverID}
	}

	var msgs []models.Message
	err := s.timed("list", func() error {
		var err error
		msgs, err = s.store.List(ctx, filter)
		return err
	})
	if err != nil {
		return nil, transient("history", err)
	}
	slices.Reverse(msgs)
	return msgs, nil
}

// UnreadCount counts direct messages waiting for the user.
func (s *ChatService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	n, err := s.store.CountUnread(ctx, models.MessageFilter{ReceiverID: userID, OnlyUnread: true})
	if err != nil {
		return 0, transient("count unread", err)
	}
	return n, nil
}

func (s *ChatService) checkBody(body string) error {
	if body == "" {
		return validationf("message body is empty")
	}
	if n := utf8.RuneCountInString(body); n > s.maxLength {
		return validationf("message body is %d characters, limit is %d", n, s.maxLength)
	}
	return nil
}

// loadOwned fetches a message the actor may mutate. A non-zero version must
// match the stored one.
func (s *ChatService) loadOwned(ctx context.Context, actor Actor, id string, version int64) (*models.Message, error) {
	var msg *models.Message
	err := s.timed("find", func() error {
		var err error
		msg, err = s.store.FindByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, transient("find message", err)
	}
	if msg == nil {
		return nil, ErrNotFound
	}
	if msg.SenderID != actor.UserID {
		s.log.Warn().Str("message_id", id).Str("user_id", actor.UserID).Msg("mutation by non-owner")
		return nil, ErrPermissionDenied
	}
	if msg.Deleted {
		return nil, ErrInvalidState
	}
	if version != 0 && version != msg.Version {
		return nil, ErrInvalidState
	}
	return msg, nil
}

func (s *ChatService) apply(ctx context.Context, id string, patch models.MessagePatch) error {
	var ok bool
	err := s.timed("update", func() error {
		var err error
		ok, err = s.store.UpdateFields(ctx, id, patch)
		return err
	})
	if err != nil {
		return transient("update message", err)
	}
	if !ok {
		// Someone else changed it between the read and the write.
		return ErrInvalidState
	}
	return nil
}

func (s *ChatService) dispatch(actor Actor, target models.Target, senderID string, evt models.Event) realtime.Report {
	opts := s.originPolicy(actor)
	if target.IsRoom() {
		evt.Room = target.RoomID
		return s.notifier.ToRoom(target.RoomID, evt, opts...)
	}
	evt.Receiver = target.ReceiverID
	return s.notifier.ToUsers([]string{target.ReceiverID, senderID}, evt, opts...)
}

func (s *ChatService) originPolicy(actor Actor) []realtime.Option {
	if actor.ConnID == "" {
		return nil
	}
	return []realtime.Option{realtime.ExcludeConn(actor.ConnID)}
}

// brief enriches events with the sender's public profile, falling back to
// the bare id.
func (s *ChatService) brief(ctx context.Context, userID string) *models.UserBrief {
	b, err := s.users.BriefOf(ctx, userID)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("user brief lookup failed")
	}
	if b == nil {
		return &models.UserBrief{ID: userID}
	}
	return b
}

func (s *ChatService) timed(op string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.StoreLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
	return err
}

func readFilter(reader string, sel models.ReadSelector) (models.MessageFilter, error) {
	set := lo.Count([]bool{len(sel.MessageIDs) > 0, sel.SenderID != "", sel.RoomID != ""}, true)
	if set != 1 {
		return models.MessageFilter{}, validationf("exactly one of message_ids, sender_id or room_id is required")
	}

	filter := models.MessageFilter{OnlyUnread: true, IncludeDeleted: true}
	switch {
	case len(sel.MessageIDs) > 0:
		filter.IDs = lo.Uniq(lo.Compact(sel.MessageIDs))
		if len(filter.IDs) == 0 {
			return models.MessageFilter{}, validationf("message_ids are blank")
		}
		filter.ReceiverID = reader
	case sel.SenderID != "":
		filter.SenderID = sel.SenderID
		filter.ReceiverID = reader
	default:
		// The read flag is shared, so only messages addressed to the reader
		// are ever flipped, room scoped or not.
		filter.RoomID = sel.RoomID
		filter.ReceiverID = reader
	}
	return filter, nil
}

func targetLabel(t models.Target) string {
	if t.IsRoom() {
		return "room"
	}
	return "direct"
}
