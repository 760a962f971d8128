package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"eventconnect_services/src/models"
	"eventconnect_services/src/store"
)

var (
	fixedNow = time.Date(2026, 1, 1, 18, 0, 0, 0, time.UTC)
	errBoom  = errors.New("boom")

	ada   = models.UserSimple{UserID: "U1", Name: "Ada Lovelace", Email: "ada@example.com"}
	grace = models.UserSimple{UserID: "U2", Name: "Grace Hopper", Email: "grace@example.com"}
	linus = models.UserSimple{UserID: "U3", Name: "Linus", Email: "linus@example.com"}
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []models.Notification
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, notification models.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification)
	return n.err
}

func (n *recordingNotifier) ofType(kind string) []models.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []models.Notification
	for _, notification := range n.sent {
		if notification.Type == kind {
			out = append(out, notification)
		}
	}
	return out
}

type fixture struct {
	store    *store.Memory
	objects  *store.MemoryObjects
	notifier *recordingNotifier
	deps     Deps
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := store.NewMemory()
	mem.SetClock(func() time.Time { return fixedNow })
	objects := store.NewMemoryObjects("test-bucket")
	notifier := &recordingNotifier{}

	var mu sync.Mutex
	next := 0
	return &fixture{
		store:    mem,
		objects:  objects,
		notifier: notifier,
		deps: Deps{
			Store:    mem,
			Objects:  objects,
			Notifier: notifier,
			Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
			NewID: func() string {
				mu.Lock()
				defer mu.Unlock()
				next++
				return fmt.Sprintf("id-%d", next)
			},
			Now: func() time.Time { return fixedNow },
		},
	}
}

func (f *fixture) putUser(user models.UserSimple) {
	f.store.Put(models.UsersCollection+"/"+user.UserID, map[string]any{
		"uid":         user.UserID,
		"displayName": user.Name,
		"email":       user.Email,
		"photoUrl":    user.PhotoURL,
	})
}

func (f *fixture) putEvent(event models.Event) {
	f.store.Put(models.EventsCollection+"/"+event.ID, event.Document())
}

func (f *fixture) putFriend(owner string, friend models.UserSimple) {
	f.store.Put(fmt.Sprintf("users/%s/friends/%s", owner, friend.UserID), map[string]any{
		"userId": friend.UserID,
		"name":   friend.Name,
		"email":  friend.Email,
	})
}

func (f *fixture) failOn(kind, path string) {
	f.store.FailWith(func(op store.Op) error {
		if op.Kind == kind && (path == "" || op.Path == path) {
			return errBoom
		}
		return nil
	})
}

func (f *fixture) opKinds() []string {
	var kinds []string
	for _, op := range f.store.Ops() {
		kinds = append(kinds, op.Kind)
	}
	return kinds
}
