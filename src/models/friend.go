package models

import "time"

// Friend is one direction of a friendship, stored under users/{uid}/friends.
type Friend struct {
	UserID   string `json:"user_id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	PhotoURL string `json:"photo_url,omitempty"`
}

type FriendRequestStatus string

const (
	FriendRequestPending  FriendRequestStatus = "pending"
	FriendRequestAccepted FriendRequestStatus = "accepted"
	FriendRequestDeclined FriendRequestStatus = "declined"
)

type FriendRequest struct {
	RequestID     string              `json:"request_id"`
	SenderID      string              `json:"sender_id"`
	SenderEmail   string              `json:"sender_email"`
	ReceiverID    string              `json:"receiver_id"`
	ReceiverEmail string              `json:"receiver_email"`
	Status        FriendRequestStatus `json:"status"`
	Timestamp     time.Time           `json:"timestamp"`
}

// FriendRequestID is the composite document id that keeps one request per
// sender/receiver pair.
func FriendRequestID(senderID, receiverID string) string {
	return senderID + "_" + receiverID
}

// FriendshipState reports which directions of a friendship exist.
type FriendshipState struct {
	UserA string `json:"user_a"`
	UserB string `json:"user_b"`
	AHasB bool   `json:"a_has_b"`
	BHasA bool   `json:"b_has_a"`
}

// Consistent is true when both edges exist or neither does.
func (state FriendshipState) Consistent() bool {
	return state.AHasB == state.BHasA
}
