package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"chat-core/internal/models"
	"chat-core/internal/services"
)

const (
	joinHistoryLimit = 50
	maxRoomIDLength  = 100
	commandTimeout   = 10 * time.Second
)

func invalidFrame(err error) error {
	return fmt.Errorf("%w: malformed frame: %v", services.ErrValidation, err)
}

// dispatch routes one inbound command. Failures go back to this socket as
// error events and never end the session.
func (s *session) dispatch(cmd models.Command) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	// Typing has its own budget, spent only on start/stop transitions.
	if cmd.Event != models.CommandTyping && !s.h.allow(ctx, s.conn.ID) {
		s.replyError(cmd.RequestID, fmt.Errorf("%w: sending too quickly, wait a moment", services.ErrRateLimited))
		return
	}

	var err error
	switch cmd.Event {
	case models.CommandAuth:
		err = fmt.Errorf("%w: already authenticated", services.ErrInvalidState)
	case models.CommandJoin:
		err = s.handleJoin(ctx, cmd)
	case models.CommandLeave:
		err = s.handleLeave(cmd)
	case models.CommandSend:
		err = s.handleSend(ctx, cmd)
	case models.CommandEdit:
		err = s.handleEdit(ctx, cmd)
	case models.CommandDelete:
		err = s.handleDelete(ctx, cmd)
	case models.CommandRead:
		err = s.handleRead(ctx, cmd)
	case models.CommandTyping:
		err = s.handleTyping(ctx, cmd)
	case models.CommandHistory:
		err = s.handleHistory(ctx, cmd)
	default:
		err = fmt.Errorf("%w: unknown event %q", services.ErrValidation, cmd.Event)
	}
	if err != nil {
		s.replyError(cmd.RequestID, err)
	}
}

func (s *session) actor() services.Actor {
	return services.Actor{UserID: s.identity.UserID, ConnID: s.conn.ID}
}

func checkRoomID(room string) (string, error) {
	room = strings.TrimSpace(room)
	if room == "" || len(room) > maxRoomIDLength || !utf8.ValidString(room) {
		return "", fmt.Errorf("%w: invalid room id", services.ErrValidation)
	}
	return room, nil
}

func (s *session) handleJoin(ctx context.Context, cmd models.Command) error {
	room, err := checkRoomID(cmd.Room)
	if err != nil {
		return err
	}
	added, err := s.h.tracker.Join(s.conn.ID, room)
	if err != nil {
		return err
	}

	joined := models.NewEvent(models.EventJoined)
	joined.RequestID = cmd.RequestID
	joined.Room = room
	joined.User = &s.brief
	s.reply(joined)

	if added {
		s.announce(models.EventUserJoined, room)
	}

	// Send recent history as a single packed message
	history, err := s.h.chat.History(ctx, s.actor(), models.HistoryQuery{RoomID: room, Limit: joinHistoryLimit})
	if err != nil {
		s.log.Warn().Err(err).Str("room", room).Msg("join history")
		return nil
	}
	evt := models.NewEvent(models.EventHistory)
	evt.RequestID = cmd.RequestID
	evt.Room = room
	evt.History = history
	s.reply(evt)
	return nil
}

func (s *session) handleLeave(cmd models.Command) error {
	room, err := checkRoomID(cmd.Room)
	if err != nil {
		return err
	}
	if s.h.tracker.Leave(s.conn.ID, room) {
		s.announce(models.EventUserLeft, room)
	}
	left := models.NewEvent(models.EventLeft)
	left.RequestID = cmd.RequestID
	left.Room = room
	s.reply(left)
	return nil
}

func (s *session) handleSend(ctx context.Context, cmd models.Command) error {
	msg, err := s.h.chat.Send(ctx, s.actor(), models.SendRequest{
		Target:     cmd.Target(),
		Body:       cmd.Text,
		Kind:       cmd.Kind,
		Attachment: cmd.Attachment,
	})
	if err != nil {
		return err
	}
	// Everyone else got it from the dispatcher; this is the sender's ack.
	evt := models.NewEvent(models.EventNewMessage)
	evt.RequestID = cmd.RequestID
	evt.Message = msg
	evt.Sender = &s.brief
	evt.Room = msg.RoomID
	evt.Receiver = msg.ReceiverID
	s.reply(evt)
	return nil
}

func (s *session) handleEdit(ctx context.Context, cmd models.Command) error {
	msg, err := s.h.chat.Edit(ctx, s.actor(), models.EditRequest{
		MessageID: cmd.MessageID,
		Body:      cmd.Text,
		Version:   cmd.Version,
	})
	if err != nil {
		return err
	}
	evt := models.NewEvent(models.EventMessageUpdated)
	evt.RequestID = cmd.RequestID
	evt.Message = msg
	evt.MessageID = msg.ID
	evt.Room = msg.RoomID
	evt.Receiver = msg.ReceiverID
	s.reply(evt)
	return nil
}

func (s *session) handleDelete(ctx context.Context, cmd models.Command) error {
	err := s.h.chat.Delete(ctx, s.actor(), models.DeleteRequest{MessageID: cmd.MessageID, Version: cmd.Version})
	if err != nil {
		return err
	}
	evt := models.NewEvent(models.EventMessageDeleted)
	evt.RequestID = cmd.RequestID
	evt.MessageID = cmd.MessageID
	s.reply(evt)
	return nil
}

func (s *session) handleRead(ctx context.Context, cmd models.Command) error {
	n, err := s.h.chat.MarkRead(ctx, s.actor(), models.ReadSelector{
		MessageIDs: cmd.MessageIDs,
		SenderID:   cmd.Sender,
		RoomID:     cmd.Room,
	})
	if err != nil {
		return err
	}
	evt := models.NewEvent(models.EventMessagesRead)
	evt.RequestID = cmd.RequestID
	evt.ReaderID = s.identity.UserID
	evt.Room = cmd.Room
	evt.Count = n
	s.reply(evt)
	return nil
}

func typingKey(connID string) string {
	return "typing:" + connID
}

func (s *session) handleTyping(ctx context.Context, cmd models.Command) error {
	target := cmd.Target().Normalize()
	// Refreshes only re-arm the timer; a start or stop broadcasts.
	transition := cmd.IsTyping != s.h.typing.IsTyping(s.identity.UserID, target)
	if transition && target.Valid() && !s.h.allow(ctx, typingKey(s.conn.ID)) {
		s.log.Debug().Bool("is_typing", cmd.IsTyping).Msg("typing transition dropped")
		return nil
	}
	if err := s.h.typing.SetTyping(s.brief, target, cmd.IsTyping); err != nil {
		return fmt.Errorf("%w: %v", services.ErrValidation, err)
	}
	return nil
}

func (s *session) handleHistory(ctx context.Context, cmd models.Command) error {
	q := models.HistoryQuery{RoomID: cmd.Room, WithUser: cmd.Receiver, Limit: cmd.Limit}
	if cmd.Before > 0 {
		q.Before = time.UnixMilli(cmd.Before)
	}
	history, err := s.h.chat.History(ctx, s.actor(), q)
	if err != nil {
		return err
	}
	evt := models.NewEvent(models.EventHistory)
	evt.RequestID = cmd.RequestID
	evt.Room = cmd.Room
	evt.Receiver = cmd.Receiver
	evt.History = history
	s.reply(evt)
	return nil
}
