package models

import (
	"fmt"
	"time"
)

// Collection names in the document store.
const (
	EventsCollection         = "events"
	UsersCollection          = "users"
	FriendsCollection        = "friends"
	FriendRequestsCollection = "friendRequests"
)

// fieldReader pulls typed values out of a raw document. A present field of the
// wrong type records an error; a missing field reads as the zero value.
type fieldReader struct {
	data map[string]any
	err  error
}

func (r *fieldReader) fail(key string, value any, want string) {
	if r.err == nil {
		r.err = fmt.Errorf("field %q: expected %s, got %T", key, want, value)
	}
}

func (r *fieldReader) string(key string) string {
	value, ok := r.data[key]
	if !ok || value == nil {
		return ""
	}
	s, ok := value.(string)
	if !ok {
		r.fail(key, value, "string")
	}
	return s
}

func (r *fieldReader) strings(key string) []string {
	value, ok := r.data[key]
	if !ok || value == nil {
		return []string{}
	}
	switch v := value.(type) {
	case []string:
		return append([]string{}, v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, element := range v {
			if s, ok := element.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	r.fail(key, value, "array")
	return []string{}
}

func (r *fieldReader) maps(key string) []map[string]any {
	value, ok := r.data[key]
	if !ok || value == nil {
		return nil
	}
	switch v := value.(type) {
	case []map[string]any:
		return v
	case []any:
		out := make([]map[string]any, 0, len(v))
		for _, element := range v {
			if m, ok := element.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	}
	r.fail(key, value, "array of maps")
	return nil
}

func (r *fieldReader) time(key string) time.Time {
	value, ok := r.data[key]
	if !ok || value == nil {
		return time.Time{}
	}
	switch v := value.(type) {
	case time.Time:
		return v
	case int64:
		return time.UnixMilli(v).UTC()
	}
	r.fail(key, value, "timestamp")
	return time.Time{}
}

func softString(data map[string]any, key string) string {
	s, _ := data[key].(string)
	return s
}

// EventFromDocument maps a stored event. The document id wins over any id
// field in the data.
func EventFromDocument(id string, data map[string]any) (Event, error) {
	r := &fieldReader{data: data}
	event := Event{
		ID:          id,
		Name:        r.string("name"),
		Location:    r.string("location"),
		Description: r.string("description"),
		Date:        r.string("date"),
		Time:        r.string("time"),
		ImageURL:    r.string("imageUrl"),
		Host:        r.string("host"),
		PhotoURLs:   r.strings("photoUrls"),
	}
	event.Participants = make([]UserSimple, 0)
	for _, participant := range r.maps("participants") {
		event.Participants = append(event.Participants, UserSimpleFromMap(participant))
	}
	if r.err != nil {
		return Event{}, fmt.Errorf("event %s: %w", id, r.err)
	}
	return event, nil
}

func (event Event) Document() map[string]any {
	photos := make([]any, 0, len(event.PhotoURLs))
	for _, url := range event.PhotoURLs {
		photos = append(photos, url)
	}
	return map[string]any{
		"id":           event.ID,
		"name":         event.Name,
		"location":     event.Location,
		"description":  event.Description,
		"date":         event.Date,
		"time":         event.Time,
		"imageUrl":     event.ImageURL,
		"host":         event.Host,
		"participants": ParticipantsDocument(event.Participants),
		"photoUrls":    photos,
	}
}

// ParticipantsDocument is the stored form of a participant list.
func ParticipantsDocument(participants []UserSimple) []any {
	out := make([]any, 0, len(participants))
	for _, participant := range participants {
		out = append(out, participant.Document())
	}
	return out
}

func UserSimpleFromMap(data map[string]any) UserSimple {
	return UserSimple{
		UserID:   softString(data, "userId"),
		Name:     softString(data, "name"),
		Email:    softString(data, "email"),
		PhotoURL: softString(data, "photoUrl"),
	}
}

func (user UserSimple) Document() map[string]any {
	return map[string]any{
		"userId":   user.UserID,
		"name":     user.Name,
		"email":    user.Email,
		"photoUrl": user.PhotoURL,
	}
}

// UserFromDocument maps a stored profile. Profiles provisioned without a uid
// field take the document id.
func UserFromDocument(id string, data map[string]any) (User, error) {
	r := &fieldReader{data: data}
	user := User{
		UID:         r.string("uid"),
		DisplayName: r.string("displayName"),
		Email:       r.string("email"),
		PhotoURL:    r.string("photoUrl"),
		LastLogin:   r.time("lastLogin"),
	}
	if r.err != nil {
		return User{}, fmt.Errorf("user %s: %w", id, r.err)
	}
	if user.UID == "" {
		user.UID = id
	}
	return user, nil
}

// Document is the stored profile without lastLogin, which is always written
// as a server timestamp.
func (user User) Document() map[string]any {
	return map[string]any{
		"uid":         user.UID,
		"displayName": user.DisplayName,
		"email":       user.Email,
		"photoUrl":    user.PhotoURL,
	}
}

func FriendFromDocument(id string, data map[string]any) (Friend, error) {
	r := &fieldReader{data: data}
	friend := Friend{
		UserID:   r.string("userId"),
		Name:     r.string("name"),
		Email:    r.string("email"),
		PhotoURL: r.string("imageUrl"),
	}
	if r.err != nil {
		return Friend{}, fmt.Errorf("friend %s: %w", id, r.err)
	}
	if friend.UserID == "" {
		friend.UserID = id
	}
	return friend, nil
}

func (friend Friend) Document() map[string]any {
	doc := map[string]any{
		"userId": friend.UserID,
		"name":   friend.Name,
		"email":  friend.Email,
	}
	if friend.PhotoURL != "" {
		doc["imageUrl"] = friend.PhotoURL
	}
	return doc
}

func FriendRequestFromDocument(id string, data map[string]any) (FriendRequest, error) {
	r := &fieldReader{data: data}
	request := FriendRequest{
		RequestID:     id,
		SenderID:      r.string("senderId"),
		SenderEmail:   r.string("senderEmail"),
		ReceiverID:    r.string("receiverId"),
		ReceiverEmail: r.string("receiverEmail"),
		Status:        FriendRequestStatus(r.string("status")),
		Timestamp:     r.time("timestamp"),
	}
	if r.err != nil {
		return FriendRequest{}, fmt.Errorf("friend request %s: %w", id, r.err)
	}
	return request, nil
}
