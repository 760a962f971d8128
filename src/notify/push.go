package notify

import (
	"context"
	"fmt"
	"log/slog"

	"eventconnect_services/src/logging"
	"eventconnect_services/src/models"

	"firebase.google.com/go/v4/messaging"
)

// Messenger is the part of the Firebase messaging client used for push.
type Messenger interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

// TokenStore looks up the device tokens registered for a user.
type TokenStore interface {
	Tokens(ctx context.Context, userID string) ([]string, error)
}

// PushNotifier sends user-addressed notifications to every registered
// device of the recipient. Event channel notifications are not pushed.
type PushNotifier struct {
	messenger Messenger
	tokens    TokenStore
	logger    *slog.Logger
}

func NewPushNotifier(messenger Messenger, tokens TokenStore, logger *slog.Logger) *PushNotifier {
	return &PushNotifier{messenger: messenger, tokens: tokens, logger: logger}
}

type firebaseMapper interface {
	FirebaseToMap() map[string]string
}

func (p *PushNotifier) Notify(ctx context.Context, notification models.Notification) error {
	if notification.UserID == "" {
		return nil
	}
	logger := logging.Resolve(ctx, p.logger).With("component", "push", "recipient", notification.UserID)

	tokens, err := p.tokens.Tokens(ctx, notification.UserID)
	if err != nil {
		return fmt.Errorf("load device tokens: %w", err)
	}
	if len(tokens) == 0 {
		logger.DebugContext(ctx, "no registered devices")
		return nil
	}

	title, body, ok := PushText(notification)
	if !ok {
		return nil
	}
	message := &messaging.MulticastMessage{
		Tokens:       tokens,
		Notification: &messaging.Notification{Title: title, Body: body},
	}
	if mapper, ok := notification.Payload.(firebaseMapper); ok {
		message.Data = mapper.FirebaseToMap()
	}

	response, err := p.messenger.SendEachForMulticast(ctx, message)
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}
	if response != nil && response.FailureCount > 0 {
		logger.WarnContext(ctx, "some devices rejected the push",
			"success", response.SuccessCount, "failure", response.FailureCount)
	}
	return nil
}

// PushText is the title and body shown for a notification. ok is false for
// notifications that are not pushed.
func PushText(notification models.Notification) (title, body string, ok bool) {
	switch payload := notification.Payload.(type) {
	case models.FriendRequestNotification:
		name := payload.SenderName
		if name == "" {
			name = payload.SenderEmail
		}
		if notification.Operation == models.OperationAccepted {
			return "Friend request accepted", fmt.Sprintf("%s accepted your friend request.", name), true
		}
		return "New friend request", fmt.Sprintf("%s sent you a friend request.", name), true
	case models.EventInviteNotification:
		return fmt.Sprintf("You're invited to %s", payload.EventName),
			fmt.Sprintf("%s added you to an event.", payload.HostName), true
	}
	return "", "", false
}
