package models

import "time"

// Outbound event names.
const (
	EventConnected      = "connected"
	EventAuthenticated  = "authenticated"
	EventJoined         = "joined"
	EventLeft           = "left"
	EventHistory        = "history"
	EventNewMessage     = "new-message"
	EventMessageUpdated = "message-updated"
	EventMessageDeleted = "message-deleted"
	EventMessagesRead   = "messages-read"
	EventUserTyping     = "user-typing"
	EventUserStopTyping = "user-stop-typing"
	EventUserJoined     = "user-joined"
	EventUserLeft       = "user-left"
	EventError          = "error"
)

// Inbound command names.
const (
	CommandAuth    = "auth"
	CommandJoin    = "join"
	CommandLeave   = "leave"
	CommandSend    = "send"
	CommandEdit    = "edit"
	CommandDelete  = "delete"
	CommandRead    = "read"
	CommandTyping  = "typing"
	CommandHistory = "history"
)

// Event is the envelope pushed to connections.
type Event struct {
	Event      string        `json:"event"`
	RequestID  string        `json:"request_id,omitempty"`
	Room       string        `json:"room,omitempty"`
	Receiver   string        `json:"receiver,omitempty"`
	Message    *Message      `json:"message,omitempty"`
	MessageID  string        `json:"message_id,omitempty"`
	MessageIDs []string      `json:"message_ids,omitempty"`
	Sender     *UserBrief    `json:"sender,omitempty"`
	User       *UserBrief    `json:"user,omitempty"`
	ReaderID   string        `json:"reader_id,omitempty"`
	Count      int64         `json:"count,omitempty"`
	History    []Message     `json:"history,omitempty"`
	Error      *ErrorPayload `json:"error,omitempty"`
	Text       string        `json:"text,omitempty"`
	Timestamp  int64         `json:"timestamp"`
}

type ErrorPayload struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// NewEvent stamps an event with the current time.
func NewEvent(name string) Event {
	return Event{Event: name, Timestamp: time.Now().UnixMilli()}
}

// Command is the envelope received from connections.
type Command struct {
	Event      string      `json:"event"`
	RequestID  string      `json:"request_id,omitempty"`
	Token      string      `json:"token,omitempty"`
	Room       string      `json:"room,omitempty"`
	Receiver   string      `json:"receiver,omitempty"`
	Text       string      `json:"text,omitempty"`
	Kind       Kind        `json:"kind,omitempty"`
	Attachment *Attachment `json:"attachment,omitempty"`
	MessageID  string      `json:"message_id,omitempty"`
	MessageIDs []string    `json:"message_ids,omitempty"`
	Sender     string      `json:"sender,omitempty"`
	Version    int64       `json:"version,omitempty"`
	IsTyping   bool        `json:"is_typing,omitempty"`
	Limit      int         `json:"limit,omitempty"`
	Before     int64       `json:"before,omitempty"`
}

func (c Command) Target() Target {
	return Target{ReceiverID: c.Receiver, RoomID: c.Room}
}
