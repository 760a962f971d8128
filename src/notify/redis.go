// Package notify delivers notifications to clients: over the Redis bus that
// feeds the websocket streams, and as Firebase push messages.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"eventconnect_services/src/models"

	"github.com/redis/go-redis/v9"
)

// NotificationsChannel carries notifications addressed to a single user.
// Notifications about an event are published on a channel named after the
// event id.
const NotificationsChannel = "notifications"

// Notifier is satisfied by every delivery mechanism in this package.
type Notifier interface {
	Notify(ctx context.Context, notification models.Notification) error
}

// Publisher is the part of a Redis client used for publishing.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

type RedisPublisher struct {
	client Publisher
}

func NewRedisPublisher(client Publisher) *RedisPublisher {
	return &RedisPublisher{client: client}
}

// ChannelFor picks the bus channel a notification is published on.
func ChannelFor(notification models.Notification) string {
	if notification.EventID != "" {
		return notification.EventID
	}
	return NotificationsChannel
}

func (p *RedisPublisher) Notify(ctx context.Context, notification models.Notification) error {
	payload, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	channel := ChannelFor(notification)
	if err := p.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("publish on %s: %w", channel, err)
	}
	return nil
}

// Multi fans a notification out to several notifiers. Every notifier is
// tried; the failures are joined.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, notification models.Notification) error {
	var errs []error
	for _, notifier := range m {
		if notifier == nil {
			continue
		}
		if err := notifier.Notify(ctx, notification); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
