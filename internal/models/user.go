package models

// Identity is what the auth collaborator resolves a credential to.
type Identity struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// UserBrief is the public slice of a user attached to dispatched events.
type UserBrief struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

type Presence struct {
	User        UserBrief `json:"user"`
	Online      bool      `json:"online"`
	Connections int       `json:"connections"`
}
