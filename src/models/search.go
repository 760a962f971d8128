package models

import "strings"

// UserSearchDocument is the shape of a profile in the user search index.
// Lookup holds the lowercased name and email the substring query runs on.
type UserSearchDocument struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	PhotoURL    string `json:"photo_url"`
	Lookup      string `json:"lookup"`
}

func NewUserSearchDocument(user User) UserSearchDocument {
	return UserSearchDocument{
		ID:          user.UID,
		DisplayName: user.DisplayName,
		Email:       user.Email,
		PhotoURL:    user.PhotoURL,
		Lookup:      strings.ToLower(user.DisplayName + " " + user.Email),
	}
}

func (document UserSearchDocument) User() User {
	return User{UID: document.ID, DisplayName: document.DisplayName, Email: document.Email, PhotoURL: document.PhotoURL}
}
