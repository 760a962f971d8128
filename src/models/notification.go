package models

import "time"

const (
	NotificationFriendRequest = "friend-request"
	NotificationEventInvite   = "event-invite"
	NotificationPhoto         = "photo"
)

const (
	OperationRequest  = "REQUEST"
	OperationAccepted = "ACCEPTED"
	OperationInsert   = "INSERT"
	OperationRemove   = "REMOVE"
)

// Notification is the envelope published on the notification bus and relayed
// to websocket clients. UserID targets a single user on the notifications
// channel; EventID targets everyone watching that event.
type Notification struct {
	Operation string      `json:"operation"`
	Type      string      `json:"type"`
	UserID    string      `json:"user_id,omitempty"`
	EventID   string      `json:"event_id,omitempty"`
	Payload   interface{} `json:"payload"`
}

type FriendRequestNotification struct {
	RequestID   string    `json:"request_id"`
	SenderID    string    `json:"sender_id"`
	SenderName  string    `json:"sender_name"`
	SenderEmail string    `json:"sender_email"`
	ReceiverID  string    `json:"receiver_id"`
	Status      string    `json:"status"`
	ReceivedAt  time.Time `json:"received_at"`
}

func (notification FriendRequestNotification) FirebaseToMap() map[string]string {
	return map[string]string{
		"type":         NotificationFriendRequest,
		"request_id":   notification.RequestID,
		"sender_id":    notification.SenderID,
		"sender_name":  notification.SenderName,
		"sender_email": notification.SenderEmail,
		"receiver_id":  notification.ReceiverID,
		"status":       notification.Status,
		"received_at":  notification.ReceivedAt.Format(time.RFC3339),
	}
}

type EventInviteNotification struct {
	EventID   string `json:"event_id"`
	EventName string `json:"event_name"`
	HostID    string `json:"host_id"`
	HostName  string `json:"host_name"`
	GuestID   string `json:"guest_id"`
}

func (notification EventInviteNotification) FirebaseToMap() map[string]string {
	return map[string]string{
		"type":       NotificationEventInvite,
		"event_id":   notification.EventID,
		"event_name": notification.EventName,
		"host_id":    notification.HostID,
		"host_name":  notification.HostName,
		"guest_id":   notification.GuestID,
	}
}

type PhotoNotification struct {
	EventID  string `json:"event_id"`
	PhotoURL string `json:"photo_url"`
	UserID   string `json:"user_id"`
}

func (notification PhotoNotification) FirebaseToMap() map[string]string {
	return map[string]string{
		"type":      NotificationPhoto,
		"event_id":  notification.EventID,
		"photo_url": notification.PhotoURL,
		"user_id":   notification.UserID,
	}
}
