package inits

import (
	"context"
	"fmt"
	"log/slog"

	"eventconnect_services/src/config"
	m "eventconnect_services/src/models"
	"eventconnect_services/src/search"
	"eventconnect_services/src/store"

	"github.com/opensearch-project/opensearch-go"
)

// InitOpenSearch connects to the cluster and makes sure the user index exists.
func InitOpenSearch(ctx context.Context, cfg config.Config) (*search.UserIndex, error) {
	client, err := opensearch.NewClient(opensearch.Config{
		Addresses: cfg.OpenSearchAddresses,
		Username:  cfg.OpenSearchUsername,
		Password:  cfg.OpenSearchPassword,
	})
	if err != nil {
		return nil, fmt.Errorf("create opensearch client: %w", err)
	}

	index := search.NewUserIndex(client, cfg.OpenSearchIndex)
	if err := index.EnsureIndex(ctx); err != nil {
		return nil, err
	}
	return index, nil
}

// ReindexUsers copies every profile in the users collection into the index.
func ReindexUsers(ctx context.Context, client store.Client, index *search.UserIndex, logger *slog.Logger) (int, error) {
	snapshot, err := client.Collection(m.UsersCollection).Get(ctx)
	if err != nil {
		return 0, fmt.Errorf("load users: %w", err)
	}

	users := make([]m.User, 0, snapshot.Size())
	for _, doc := range snapshot.Documents {
		user, err := m.UserFromDocument(doc.ID, doc.Data)
		if err != nil {
			logger.WarnContext(ctx, "skipping malformed user", "user_id", doc.ID, "error", err)
			continue
		}
		user.UID = doc.ID
		users = append(users, user)
	}

	return index.Reindex(ctx, users)
}
