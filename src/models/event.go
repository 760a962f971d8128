package models

import "strings"

type Event struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Location     string       `json:"location"`
	Description  string       `json:"description"`
	Date         string       `json:"date"`
	Time         string       `json:"time"`
	ImageURL     string       `json:"image_url"`
	Host         string       `json:"host"`
	Participants []UserSimple `json:"participants"`
	PhotoURLs    []string     `json:"photo_urls"`
}

// EventFields are the host-editable text fields of an event.
type EventFields struct {
	Name        string `json:"name"`
	Location    string `json:"location"`
	Description string `json:"description"`
	Date        string `json:"date"`
	Time        string `json:"time"`
}

// HasParticipant reports whether userID appears in the participant list.
func (event Event) HasParticipant(userID string) bool {
	for _, participant := range event.Participants {
		if participant.UserID == userID {
			return true
		}
	}
	return false
}

type EventFilter string

const (
	AllEvents                 EventFilter = "all"
	EventsHostedByCurrentUser EventFilter = "hosted"
	EventsCurrentUserAttends  EventFilter = "attending"
)

// ParseEventFilter maps a wire value to a filter. Unknown or empty values
// select every event.
func ParseEventFilter(value string) EventFilter {
	switch EventFilter(strings.ToLower(strings.TrimSpace(value))) {
	case EventsHostedByCurrentUser:
		return EventsHostedByCurrentUser
	case EventsCurrentUserAttends:
		return EventsCurrentUserAttends
	}
	return AllEvents
}
