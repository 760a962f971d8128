package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	m "eventconnect_services/src/models"
	"eventconnect_services/src/services"
	"eventconnect_services/src/store"

	"firebase.google.com/go/v4/auth"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

var (
	fixedNow = time.Date(2026, 1, 1, 18, 0, 0, 0, time.UTC)
	quiet    = slog.New(slog.NewTextHandler(io.Discard, nil))

	ada   = m.UserSimple{UserID: "U1", Name: "Ada Lovelace", Email: "ada@example.com"}
	grace = m.UserSimple{UserID: "U2", Name: "Grace Hopper", Email: "grace@example.com"}
)

// fakeVerifier accepts "<uid>-token" for every user it knows.
type fakeVerifier map[string]m.UserSimple

func (f fakeVerifier) VerifyIDToken(_ context.Context, idToken string) (*auth.Token, error) {
	user, ok := f[idToken]
	if !ok {
		return nil, errors.New("id token has invalid signature")
	}
	return &auth.Token{
		UID:     user.UserID,
		Subject: user.UserID,
		Claims: map[string]interface{}{
			"name":    user.Name,
			"email":   user.Email,
			"picture": user.PhotoURL,
		},
	}, nil
}

func tokenFor(user m.UserSimple) string {
	return user.UserID + "-token"
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []m.Notification
}

func (n *recordingNotifier) Notify(_ context.Context, notification m.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification)
	return nil
}

type fakeRegistry struct {
	tokens []m.DeviceToken
}

func (f *fakeRegistry) Register(_ context.Context, token m.DeviceToken) error {
	f.tokens = append(f.tokens, token)
	return nil
}

type fakeSubscription struct {
	messages chan *redis.Message
	once     sync.Once
	closed   chan struct{}
}

func (s *fakeSubscription) Channel(...redis.ChannelOption) <-chan *redis.Message {
	return s.messages
}

func (s *fakeSubscription) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

// fakeBus hands out a single subscription and remembers the channel asked for.
type fakeBus struct {
	mu           sync.Mutex
	channels     []string
	subscription *fakeSubscription
}

func newFakeBus() *fakeBus {
	return &fakeBus{subscription: &fakeSubscription{
		messages: make(chan *redis.Message, 8),
		closed:   make(chan struct{}),
	}}
}

func (b *fakeBus) Subscribe(_ context.Context, channel string) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.channels = append(b.channels, channel)
	return b.subscription, nil
}

func (b *fakeBus) subscribed() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.channels...)
}

type fixture struct {
	store    *store.Memory
	objects  *store.MemoryObjects
	notifier *recordingNotifier
	env      *Env
	router   http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := store.NewMemory()
	mem.SetClock(func() time.Time { return fixedNow })
	objects := store.NewMemoryObjects("test-bucket")
	notifier := &recordingNotifier{}

	var mu sync.Mutex
	next := 0
	env := &Env{
		Deps: services.Deps{
			Store:    mem,
			Objects:  objects,
			Notifier: notifier,
			Logger:   quiet,
			NewID: func() string {
				mu.Lock()
				defer mu.Unlock()
				next++
				return fmt.Sprintf("id-%d", next)
			},
			Now: func() time.Time { return fixedNow },
		},
		Verifier: fakeVerifier{tokenFor(ada): ada, tokenFor(grace): grace},
		Logger:   quiet,
	}

	f := &fixture{store: mem, objects: objects, notifier: notifier, env: env}
	f.router = NewRouter(env)
	return f
}

func (f *fixture) putUser(user m.UserSimple) {
	f.store.Put(m.UsersCollection+"/"+user.UserID, map[string]any{
		"uid":         user.UserID,
		"displayName": user.Name,
		"email":       user.Email,
		"photoUrl":    user.PhotoURL,
	})
}

func (f *fixture) putEvent(event m.Event) {
	f.store.Put(m.EventsCollection+"/"+event.ID, event.Document())
}

// do sends a request as user; a zero user sends no token.
func (f *fixture) do(t *testing.T, user m.UserSimple, method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if user.UserID != "" {
		req.Header.Set("Authorization", "Bearer "+tokenFor(user))
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) doJSON(t *testing.T, user m.UserSimple, method, target string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(data)
	}
	return f.do(t, user, method, target, body, "application/json")
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[errorResponse](t, rec).Error
}
