package handlers

import (
	"context"
	"sync"
	"time"

	"chat-core/internal/models"
	"chat-core/internal/realtime"
	"chat-core/internal/utils"

	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 64 * 1024
)

// session is one authenticated socket: a read loop on the handler goroutine
// and a write pump draining the connection's queue.
type session struct {
	h        *Handler
	ws       *websocket.Conn
	conn     *realtime.Conn
	identity models.Identity
	brief    models.UserBrief
	log      zerolog.Logger

	cleanupOnce sync.Once
}

func newSession(h *Handler, ws *websocket.Conn, conn *realtime.Conn, identity models.Identity) *session {
	brief := models.UserBrief{ID: identity.UserID, DisplayName: identity.Username}
	if b, err := h.users.Brief(context.Background(), identity.UserID); err == nil {
		brief = *b
	}
	return &session{
		h:        h,
		ws:       ws,
		conn:     conn,
		identity: identity,
		brief:    brief,
		log: h.log.With().
			Str("conn_id", conn.ID).
			Str("user_id", identity.UserID).
			Logger(),
	}
}

func (s *session) run() {
	pumpDone := make(chan struct{})
	go func() {
		defer close(pumpDone)
		s.writePump()
	}()

	welcome := models.NewEvent(models.EventConnected)
	welcome.User = &s.brief
	welcome.Text = s.conn.ID
	s.reply(welcome)

	s.readLoop()
	s.cleanup()
	// The socket is released when the handler returns; the pump must be gone.
	<-pumpDone
}

func (s *session) readLoop() {
	s.ws.SetReadLimit(maxMsgSize)
	_ = s.ws.SetReadDeadline(time.Now().Add(pongWait))
	s.ws.SetPongHandler(func(string) error {
		return s.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		msgType, payload, err := s.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				s.log.Warn().Err(err).Msg("websocket read")
			}
			return
		}
		if !s.conn.Alive() {
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		_ = s.ws.SetReadDeadline(time.Now().Add(pongWait))
		s.handle(payload)
	}
}

func (s *session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		// Unblocks the read loop if the pump is the one giving up.
		s.conn.Close()
		_ = s.ws.Close()
	}()
	for {
		select {
		case message := <-s.conn.Outbound():
			_ = s.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				s.log.Debug().Err(err).Msg("websocket write")
				return
			}
		case <-ticker.C:
			_ = s.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.conn.Done():
			_ = s.ws.SetWriteDeadline(time.Now().Add(writeWait))
			_ = s.ws.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// cleanup tears the session out of the core. Safe to call more than once.
func (s *session) cleanup() {
	s.cleanupOnce.Do(func() {
		s.conn.Close()
		rooms := s.h.tracker.LeaveAll(s.conn.ID)
		s.h.registry.Unregister(s.conn.ID)
		s.h.limiter.Forget(context.Background(), s.conn.ID)
		s.h.limiter.Forget(context.Background(), typingKey(s.conn.ID))

		for _, room := range rooms {
			s.announce(models.EventUserLeft, room)
		}
		s.log.Debug().Int("rooms", len(rooms)).Msg("session closed")
	})
}

// reply queues an event for this socket only.
func (s *session) reply(evt models.Event) {
	if err := s.h.dispatcher.SendTo(s.conn, evt); err != nil {
		s.log.Debug().Err(err).Str("event", evt.Event).Msg("reply dropped")
	}
}

func (s *session) replyError(requestID string, err error) {
	s.log.Debug().Err(err).Str("request_id", requestID).Msg("command rejected")
	s.reply(errorEvent(requestID, err))
}

// announce tells a room's other members that this user joined or left.
func (s *session) announce(name, room string) {
	evt := models.NewEvent(name)
	evt.Room = room
	evt.User = &s.brief
	s.h.dispatcher.ToRoom(room, evt, realtime.ExcludeConn(s.conn.ID))
}

func (s *session) handle(payload []byte) {
	var cmd models.Command
	if err := utils.SafeJSONParse(payload, &cmd); err != nil {
		s.replyError("", invalidFrame(err))
		return
	}
	s.dispatch(cmd)
}
