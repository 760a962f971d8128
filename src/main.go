package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eventconnect_services/src/config"
	h "eventconnect_services/src/handlers"
	"eventconnect_services/src/inits"
	"eventconnect_services/src/logging"
	m "eventconnect_services/src/models"
	"eventconnect_services/src/notify"
	"eventconnect_services/src/search"
	"eventconnect_services/src/services"
	"eventconnect_services/src/store"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"
)

func main() {
	// A missing .env file is fine; the environment may already be set.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "eventconnect",
		Usage: "Event and friend services for the EventConnect app.",
		Commands: []*cli.Command{
			serveCommand(),
			reindexCommand(),
			reconcileCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("eventconnect failed", "error", err)
		os.Exit(1)
	}
}

// backend holds the clients built from the configuration. Optional parts
// stay nil when they are not configured.
type backend struct {
	cfg      config.Config
	logger   *slog.Logger
	firebase *inits.Firebase
	store    store.Client
	objects  store.ObjectStore
	rdb      *redis.Client
	pool     *m.PGPool
	index    *search.UserIndex
	tokens   *notify.PGTokenStore
}

func setup(ctx context.Context) (*backend, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	b := &backend{cfg: cfg, logger: logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)}

	if b.firebase, err = inits.InitFirebase(ctx, cfg); err != nil {
		return nil, err
	}

	switch cfg.StoreBackend {
	case config.StoreMemory:
		b.logger.Warn("using the in-memory store; data is lost on exit")
		b.store = store.NewMemory()
		b.objects = store.NewMemoryObjects(cfg.StorageBucket)
	default:
		b.store = store.NewFirestore(b.firebase.Firestore)
		gcs, err := inits.InitStorage(ctx, cfg)
		if err != nil {
			b.close()
			return nil, err
		}
		b.objects = store.NewGCSObjectStore(gcs, cfg.StorageBucket)
	}

	if cfg.SearchEnabled() {
		if b.index, err = inits.InitOpenSearch(ctx, cfg); err != nil {
			b.close()
			return nil, err
		}
	}
	return b, nil
}

// connectNotifications sets up the redis bus and push. Both are best effort:
// the service runs without them.
func (b *backend) connectNotifications(ctx context.Context) {
	rdb, err := inits.InitRedis(ctx, b.cfg)
	if err != nil {
		b.logger.Warn("notification bus unavailable", "error", err)
	} else {
		b.rdb = rdb
	}

	if !b.cfg.PushEnabled() {
		return
	}
	pool, err := inits.CreatePostgresPool(b.cfg.PostgresURL, ctx)
	if err != nil {
		b.logger.Warn("device token store unavailable", "error", err)
		return
	}
	if err := inits.MigrateTokens(ctx, pool); err != nil {
		pool.Pool.Close()
		b.logger.Warn("device token store unavailable", "error", err)
		return
	}
	b.pool = pool
	b.tokens = notify.NewPGTokenStore(pool)
}

func (b *backend) deps() services.Deps {
	deps := services.Deps{
		Store:   b.store,
		Objects: b.objects,
		Logger:  b.logger,
	}

	var notifiers notify.Multi
	if b.rdb != nil {
		notifiers = append(notifiers, notify.NewRedisPublisher(b.rdb))
	}
	if b.tokens != nil {
		notifiers = append(notifiers, notify.NewPushNotifier(b.firebase.Messaging, b.tokens, b.logger))
	}
	if len(notifiers) > 0 {
		deps.Notifier = notifiers
	}

	if b.index != nil {
		deps.Searcher = b.index
		deps.Indexer = b.index
	}
	return deps
}

func (b *backend) close() {
	if b.pool != nil {
		b.pool.Pool.Close()
	}
	if b.rdb != nil {
		if err := b.rdb.Close(); err != nil {
			b.logger.Warn("error closing redis", "error", err)
		}
	}
	if b.firebase != nil {
		if err := b.firebase.Close(); err != nil {
			b.logger.Warn("error closing firestore", "error", err)
		}
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP and websocket API.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "Listen address. Overrides EVENTCONNECT_HTTP_ADDR."},
		},
		Action: func(c *cli.Context) error {
			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			b, err := setup(ctx)
			if err != nil {
				return err
			}
			defer b.close()
			b.connectNotifications(ctx)

			env := &h.Env{
				Deps:     b.deps(),
				Verifier: b.firebase.Auth,
				Logger:   b.logger,
			}
			if b.tokens != nil {
				env.Tokens = b.tokens
			}
			if b.rdb != nil {
				env.Bus = h.RedisBus{Client: b.rdb}
			}

			addr := b.cfg.HTTPAddr
			if c.IsSet("addr") {
				addr = c.String("addr")
			}
			server := &http.Server{
				Addr:              addr,
				Handler:           h.NewRouter(env),
				ReadHeaderTimeout: 10 * time.Second,
				ReadTimeout:       30 * time.Second,
				WriteTimeout:      60 * time.Second,
				IdleTimeout:       120 * time.Second,
			}

			errs := make(chan error, 1)
			go func() {
				b.logger.Info("server is starting", "addr", addr, "store", b.cfg.StoreBackend,
					"search", b.index != nil, "push", b.tokens != nil, "bus", b.rdb != nil)
				errs <- server.ListenAndServe()
			}()

			select {
			case err := <-errs:
				if !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("serve: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			b.logger.Info("server is shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	}
}

func reindexCommand() *cli.Command {
	return &cli.Command{
		Name:  "reindex-users",
		Usage: "Copy every user profile into the OpenSearch user index.",
		Action: func(c *cli.Context) error {
			b, err := setup(c.Context)
			if err != nil {
				return err
			}
			defer b.close()
			if b.index == nil {
				return errors.New("EVENTCONNECT_OPENSEARCH_ADDRESSES is not set")
			}

			count, err := inits.ReindexUsers(c.Context, b.store, b.index, b.logger)
			if err != nil {
				return fmt.Errorf("reindex users: %w", err)
			}
			b.logger.Info("users reindexed", "count", count)
			return nil
		},
	}
}

func reconcileCommand() *cli.Command {
	return &cli.Command{
		Name:  "reconcile-friends",
		Usage: "Write the missing side of every accepted friendship.",
		Action: func(c *cli.Context) error {
			b, err := setup(c.Context)
			if err != nil {
				return err
			}
			defer b.close()

			report, err := services.NewReconciler(b.deps()).ReconcileFriendships(c.Context)
			if err != nil {
				return err
			}
			b.logger.Info("friendships reconciled",
				"scanned", report.Scanned, "repaired", report.Repaired, "failed", report.Failed)
			if report.Failed > 0 {
				return fmt.Errorf("%d friendships could not be repaired", report.Failed)
			}
			return nil
		},
	}
}
