package inits

import (
	"context"
	"fmt"

	"eventconnect_services/src/config"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"firebase.google.com/go/v4/messaging"
	"github.com/redis/go-redis/v9"
	"google.golang.org/api/option"
)

// Firebase holds the clients built from one Firebase app.
type Firebase struct {
	App       *firebase.App
	Auth      *auth.Client
	Firestore *firestore.Client
	Messaging *messaging.Client
}

func (f *Firebase) Close() error {
	if f.Firestore == nil {
		return nil
	}
	return f.Firestore.Close()
}

func clientOptions(cfg config.Config) []option.ClientOption {
	if cfg.CredentialsFile == "" {
		return nil
	}
	return []option.ClientOption{option.WithCredentialsFile(cfg.CredentialsFile)}
}

// InitFirebase builds the Firebase app. Firestore is only opened when it is
// the configured store.
func InitFirebase(ctx context.Context, cfg config.Config) (*Firebase, error) {
	app, err := firebase.NewApp(ctx, &firebase.Config{
		ProjectID:     cfg.ProjectID,
		StorageBucket: cfg.StorageBucket,
	}, clientOptions(cfg)...)
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}

	fb := &Firebase{App: app}
	if fb.Auth, err = app.Auth(ctx); err != nil {
		return nil, fmt.Errorf("init firebase auth: %w", err)
	}
	if fb.Messaging, err = app.Messaging(ctx); err != nil {
		return nil, fmt.Errorf("init firebase messaging: %w", err)
	}
	if cfg.StoreBackend == config.StoreFirestore {
		if fb.Firestore, err = app.Firestore(ctx); err != nil {
			return nil, fmt.Errorf("init firestore: %w", err)
		}
	}
	return fb, nil
}

func InitStorage(ctx context.Context, cfg config.Config) (*storage.Client, error) {
	client, err := storage.NewClient(ctx, clientOptions(cfg)...)
	if err != nil {
		return nil, fmt.Errorf("init cloud storage: %w", err)
	}
	return client, nil
}

func InitRedis(ctx context.Context, cfg config.Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connect redis at %s: %w", cfg.RedisAddr, err)
	}
	return rdb, nil
}
