package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"eventconnect_services/src/logging"
	m "eventconnect_services/src/models"
	"eventconnect_services/src/notify"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1048,
	WriteBufferSize: 1048,
}

// Subscription is one channel subscription on the notification bus.
// *redis.PubSub satisfies it.
type Subscription interface {
	Channel(opts ...redis.ChannelOption) <-chan *redis.Message
	Close() error
}

type Bus interface {
	Subscribe(ctx context.Context, channel string) (Subscription, error)
}

// RedisBus subscribes through a redis client and waits for the subscription
// to be confirmed.
type RedisBus struct {
	Client *redis.Client
}

func (b RedisBus) Subscribe(ctx context.Context, channel string) (Subscription, error) {
	pubSub := b.Client.Subscribe(ctx, channel)
	if _, err := pubSub.Receive(ctx); err != nil {
		pubSub.Close()
		return nil, err
	}
	return pubSub, nil
}

type ConnectionState struct {
	Conn    *websocket.Conn
	UserID  string
	Channel string
	Logger  *slog.Logger
}

// WebSocketEndpointHandler streams the caller's notifications on /ws and an
// event's notifications on /ws/event?channel={eventId}.
func WebSocketEndpointHandler(env *Env) http.Handler {
	return withUser(func(w http.ResponseWriter, r *http.Request, current m.UserSimple) {
		if env.Bus == nil {
			WriteErrorToWriter(w, http.StatusServiceUnavailable, "Notifications are not enabled")
			return
		}
		channel := notify.NotificationsChannel
		if r.URL.Path == "/ws/event" {
			channel = r.URL.Query().Get("channel")
			if channel == "" {
				WriteErrorToWriter(w, http.StatusBadRequest, "Channel cannot be empty")
				return
			}
		}
		logger := logging.Resolve(r.Context(), env.Logger).With("channel", channel, "user_id", current.UserID)

		subscription, err := env.Bus.Subscribe(r.Context(), channel)
		if err != nil {
			logger.ErrorContext(r.Context(), "failed to subscribe", "error", err)
			WriteErrorToWriter(w, http.StatusBadGateway, "Failed to subscribe to notifications")
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			subscription.Close()
			logger.WarnContext(r.Context(), "failed to upgrade websocket", "error", err)
			return
		}

		connection := &ConnectionState{Conn: conn, UserID: current.UserID, Channel: channel, Logger: logger}
		connection.Run(context.WithoutCancel(r.Context()), subscription)
	})
}

// Run relays subscription messages until the client goes away or the
// subscription ends.
func (c *ConnectionState) Run(ctx context.Context, subscription Subscription) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go c.CheckConnectionStatus(cancel)
	c.ListenAndWrite(ctx, subscription)
}

func (c *ConnectionState) ListenAndWrite(ctx context.Context, subscription Subscription) {
	defer func() {
		if err := subscription.Close(); err != nil {
			c.Logger.WarnContext(ctx, "error closing subscription", "error", err)
		}
		c.Conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
		c.Conn.Close()
	}()

	messages := subscription.Channel(redis.WithChannelSize(250))
	for {
		select {
		case <-ctx.Done():
			return
		case message, ok := <-messages:
			if !ok {
				return
			}
			deliver, err := shouldDeliver(message.Payload, c.UserID, c.Channel)
			if err != nil {
				c.Logger.WarnContext(ctx, "dropping malformed notification", "error", err)
				continue
			}
			if !deliver {
				continue
			}
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, []byte(message.Payload)); err != nil {
				c.Logger.WarnContext(ctx, "failed to write notification", "error", err)
				return
			}
		}
	}
}

// CheckConnectionStatus reads until the client closes and then cancels the
// writer.
func (c *ConnectionState) CheckConnectionStatus(cancel context.CancelFunc) {
	defer cancel()
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.Logger.Info("websocket closed unexpectedly", "error", err)
			}
			return
		}
	}
}

// shouldDeliver reports whether payload is meant for uid on channel. The
// notifications channel carries per-user messages; an event channel carries
// that event's messages.
func shouldDeliver(payload, uid, channel string) (bool, error) {
	var notification m.Notification
	if err := json.Unmarshal([]byte(payload), &notification); err != nil {
		return false, err
	}
	if channel == notify.NotificationsChannel {
		return notification.UserID == uid, nil
	}
	return notification.EventID == channel, nil
}
