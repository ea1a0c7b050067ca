package models

import "strings"

// Target addresses either a single user (direct) or a room.
type Target struct {
	ReceiverID string `json:"receiver,omitempty"`
	RoomID     string `json:"room,omitempty"`
}

func (t Target) IsRoom() bool {
	return strings.TrimSpace(t.RoomID) != ""
}

// Normalize trims both fields.
func (t Target) Normalize() Target {
	return Target{
		ReceiverID: strings.TrimSpace(t.ReceiverID),
		RoomID:     strings.TrimSpace(t.RoomID),
	}
}

// Valid reports whether exactly one of ReceiverID and RoomID is set.
func (t Target) Valid() bool {
	hasReceiver := strings.TrimSpace(t.ReceiverID) != ""
	hasRoom := strings.TrimSpace(t.RoomID) != ""
	return hasReceiver != hasRoom
}

// Key identifies the target for sequencing and typing state.
func (t Target) Key() string {
	if t.IsRoom() {
		return "room:" + t.RoomID
	}
	return "user:" + t.ReceiverID
}
