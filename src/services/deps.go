// Package services holds the orchestrators that sit between the HTTP
// handlers and the remote store: events, friends and user profiles.
// Orchestrators are constructed per request with their dependencies and the
// resolved current user; none reach for globals.
package services

import (
	"context"
	"log/slog"
	"time"

	"eventconnect_services/src/logging"
	"eventconnect_services/src/models"
	"eventconnect_services/src/store"

	"github.com/google/uuid"
)

// Notifier delivers a notification to interested clients. Delivery is best
// effort; orchestrators log failures and carry on.
type Notifier interface {
	Notify(ctx context.Context, notification models.Notification) error
}

// UserSearcher is an external index over user profiles.
type UserSearcher interface {
	SearchUsers(ctx context.Context, query string) ([]models.User, error)
}

// UserIndexer keeps an external index over user profiles up to date.
type UserIndexer interface {
	IndexUser(ctx context.Context, user models.User) error
}

// Deps are the collaborators shared by every orchestrator.
type Deps struct {
	Store   store.Client
	Objects store.ObjectStore

	// Optional collaborators.
	Notifier Notifier
	Searcher UserSearcher
	Indexer  UserIndexer

	Logger *slog.Logger
	NewID  func() string
	Now    func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.NewID == nil {
		d.NewID = uuid.NewString
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

func (d Deps) logger(ctx context.Context, service, operation string, attrs ...any) *slog.Logger {
	pairs := []any{"service", service}
	if operation != "" {
		pairs = append(pairs, "operation", operation)
	}
	pairs = append(pairs, attrs...)
	return logging.Resolve(ctx, d.Logger).With(pairs...)
}

func (d Deps) notify(ctx context.Context, logger *slog.Logger, notification models.Notification) {
	if d.Notifier == nil {
		return
	}
	if err := d.Notifier.Notify(ctx, notification); err != nil {
		logger.WarnContext(ctx, "notification not delivered",
			"type", notification.Type, "operation", notification.Operation, "error", err)
	}
}

func (d Deps) users() store.Collection {
	return d.Store.Collection(models.UsersCollection)
}

func (d Deps) friendsOf(userID string) store.Collection {
	return d.users().Document(userID).Collection(models.FriendsCollection)
}

// resolveUsers loads the profiles for ids through uid-in queries, chunked at
// the store's value limit. An empty id list makes no remote call.
func (d Deps) resolveUsers(ctx context.Context, ids []string) ([]models.UserSimple, error) {
	users := make([]models.UserSimple, 0, len(ids))
	for start := 0; start < len(ids); start += store.MaxInValues {
		end := start + store.MaxInValues
		if end > len(ids) {
			end = len(ids)
		}
		values := make([]any, 0, end-start)
		for _, id := range ids[start:end] {
			values = append(values, id)
		}

		snapshot, err := d.users().WhereIn("uid", values).Get(ctx)
		if err != nil {
			return nil, err
		}
		for _, doc := range snapshot.Documents {
			user, err := models.UserFromDocument(doc.ID, doc.Data)
			if err != nil {
				continue
			}
			users = append(users, user.Simple())
		}
	}
	return users, nil
}

// userByEmail returns the first profile with email, or ok false.
func (d Deps) userByEmail(ctx context.Context, email string) (models.User, bool, error) {
	snapshot, err := d.users().WhereEqualTo("email", email).Limit(1).Get(ctx)
	if err != nil {
		return models.User{}, false, err
	}
	if snapshot.Empty() {
		return models.User{}, false, nil
	}
	doc := snapshot.Documents[0]
	user, err := models.UserFromDocument(doc.ID, doc.Data)
	if err != nil {
		return models.User{}, false, err
	}
	user.UID = doc.ID
	return user, true, nil
}
