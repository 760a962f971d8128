package models

import "time"

type User struct {
	UID         string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email"`
	PhotoURL    string    `json:"photo_url"`
	LastLogin   time.Time `json:"last_login,omitempty"`
}

// UserSimple is the participant summary embedded in events and resolved for
// friend pickers. It is a snapshot and is never re-synced with the profile.
type UserSimple struct {
	UserID   string `json:"user_id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	PhotoURL string `json:"photo_url"`
}

func (user User) Simple() UserSimple {
	return UserSimple{UserID: user.UID, Name: user.DisplayName, Email: user.Email, PhotoURL: user.PhotoURL}
}
