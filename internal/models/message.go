package models

import "time"

// Tombstone replaces the body of a soft-deleted message.
const Tombstone = "This message has been deleted"

type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
	KindFile  Kind = "file"
	KindAudio Kind = "audio"
	KindVideo Kind = "video"
)

type Attachment struct {
	URL  string `json:"url,omitempty" validate:"max=2048"`
	Name string `json:"name,omitempty" validate:"max=255"`
	Size int64  `json:"size,omitempty" validate:"gte=0"`
}

// Message is a persisted chat message. Exactly one of ReceiverID and RoomID
// is set.
type Message struct {
	ID         string      `json:"id"`
	SenderID   string      `json:"sender_id"`
	ReceiverID string      `json:"receiver_id,omitempty"`
	RoomID     string      `json:"room_id,omitempty"`
	Body       string      `json:"body"`
	Kind       Kind        `json:"kind"`
	Attachment *Attachment `json:"attachment,omitempty"`
	Read       bool        `json:"read"`
	Edited     bool        `json:"edited"`
	Deleted    bool        `json:"deleted"`
	Version    int64       `json:"version"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// Target returns where the message is routed.
func (m *Message) Target() Target {
	return Target{ReceiverID: m.ReceiverID, RoomID: m.RoomID}
}

// MessagePatch lists the fields an update may touch. Nil fields are left
// alone. A non-zero ExpectVersion makes the update conditional.
type MessagePatch struct {
	Body          *string
	Read          *bool
	Edited        *bool
	Deleted       *bool
	ExpectVersion int64
}

// MessageFilter selects messages for bulk updates and listings. Empty fields
// do not constrain the match.
type MessageFilter struct {
	IDs        []string
	SenderID   string
	ReceiverID string
	RoomID     string
	// Conversation matches direct messages exchanged between the two users.
	Conversation   [2]string
	OnlyUnread     bool
	IncludeDeleted bool
	Before         time.Time
	Limit          int
}

// MessageRef identifies a message touched by a bulk update.
type MessageRef struct {
	ID       string `json:"id"`
	SenderID string `json:"sender_id"`
	RoomID   string `json:"room_id,omitempty"`
}

type SendRequest struct {
	Target     Target
	Body       string      `validate:"required"`
	Kind       Kind        `validate:"omitempty,oneof=text image file audio video"`
	Attachment *Attachment `validate:"omitempty"`
}

type EditRequest struct {
	MessageID string `validate:"required"`
	Body      string `validate:"required"`
	// Version, when set, must match the stored version.
	Version int64 `validate:"gte=0"`
}

type DeleteRequest struct {
	MessageID string `validate:"required"`
	Version   int64  `validate:"gte=0"`
}

// ReadSelector picks the messages a reader marks as read. Exactly one field
// is set.
type ReadSelector struct {
	MessageIDs []string `json:"message_ids,omitempty"`
	SenderID   string   `json:"sender_id,omitempty"`
	RoomID     string   `json:"room_id,omitempty"`
}

type HistoryQuery struct {
	RoomID string
	// WithUser selects the direct conversation with this user.
	WithUser string
	Before   time.Time
	Limit    int
}
