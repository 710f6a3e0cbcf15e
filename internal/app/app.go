// Package app assembles repositories, collaborators and handlers into the
// HTTP router.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/resend/resend-go/v2"

	"github.com/geocoder89/certhub/internal/appstore"
	"github.com/geocoder89/certhub/internal/auth"
	"github.com/geocoder89/certhub/internal/blob"
	"github.com/geocoder89/certhub/internal/cache"
	"github.com/geocoder89/certhub/internal/config"
	apphttp "github.com/geocoder89/certhub/internal/http"
	"github.com/geocoder89/certhub/internal/http/handlers"
	"github.com/geocoder89/certhub/internal/notifications"
	"github.com/geocoder89/certhub/internal/observability"
	"github.com/geocoder89/certhub/internal/redisclient"
	"github.com/geocoder89/certhub/internal/repo/postgres"
	"github.com/geocoder89/certhub/internal/submission"
	"github.com/geocoder89/certhub/internal/subscriptions"
)

type Options struct {
	Log      *slog.Logger
	Pool     *pgxpool.Pool
	Prom     *observability.Prom
	Gatherer prometheus.Gatherer

	// overrides, mainly for tests
	Notifier   notifications.Notifier
	Signatures blob.SignatureStore
	Receipts   subscriptions.ReceiptVerifier
}

type App struct {
	Router   *gin.Engine
	Notifier *notifications.ProtectedNotifier

	closers []func() error
}

func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}

	a := &App{}

	statusCache, err := a.statusCache(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	signatures := opts.Signatures
	if signatures == nil {
		signatures, err = newSignatureStore(ctx, cfg, opts.Prom, log)
		if err != nil {
			return nil, err
		}
	}

	inner := opts.Notifier
	if inner == nil {
		inner = newNotifier(cfg, opts.Prom, log)
	}
	a.Notifier = notifications.NewProtectedNotifier(inner, notifications.ProtectedNotifierConfig{})

	receipts := opts.Receipts
	if receipts == nil {
		receipts = appstore.NewClient(appstore.Config{
			LiveURL:      cfg.AppStoreLiveURL,
			SandboxURL:   cfg.AppStoreSandboxURL,
			SharedSecret: cfg.AppStoreSharedSecret,
		}, log, opts.Prom)
	}

	usersRepo := postgres.NewUsersRepo(opts.Pool, opts.Prom)
	eventsRepo := postgres.NewEventsRepo(opts.Pool, opts.Prom)
	attendeesRepo := postgres.NewAttendeesRepo(opts.Pool, opts.Prom)
	receiversRepo := postgres.NewReceiversRepo(opts.Pool, opts.Prom)
	subscriptionsRepo := postgres.NewSubscriptionsRepo(opts.Pool, opts.Prom)

	tokens := auth.NewManager(cfg.TokenSecret, cfg.TokenTTL)

	submitter := submission.NewService(eventsRepo, attendeesRepo, receiversRepo, a.Notifier, log)
	subs := subscriptions.NewService(subscriptionsRepo, receipts, statusCache, log)

	health := handlers.NewHealthHandler(handlers.Pinger{
		Name: "postgres",
		Ping: func(ctx context.Context) error {
			if opts.Pool == nil {
				return errors.New("no database pool")
			}
			return opts.Pool.Ping(ctx)
		},
	})

	a.Router = apphttp.NewRouter(cfg, apphttp.Deps{
		Log:      log,
		Prom:     opts.Prom,
		Gatherer: opts.Gatherer,
		Auth:     tokens,

		Health:        health,
		Users:         handlers.NewUsersHandler(usersRepo, eventsRepo, tokens, log),
		Events:        handlers.NewEventsHandler(eventsRepo, submitter, log),
		Attendees:     handlers.NewAttendeesHandler(attendeesRepo, eventsRepo, signatures, log),
		Receivers:     handlers.NewReceiversHandler(receiversRepo, eventsRepo, log),
		Subscriptions: handlers.NewSubscriptionsHandler(subs, log),
	})

	return a, nil
}

// statusCache uses redis when an address is configured and process memory
// otherwise.
func (a *App) statusCache(ctx context.Context, cfg config.Config, log *slog.Logger) (cache.Store, error) {
	if cfg.RedisAddr == "" {
		log.Info("status_cache", "backend", "memory")
		return cache.NewMemory(cfg.StatusCacheTTL), nil
	}

	rdb := redisclient.New(redisclient.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := rdb.Ping(ctx); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	a.closers = append(a.closers, rdb.Close)

	log.Info("status_cache", "backend", "redis", "addr", cfg.RedisAddr)
	return cache.NewRedis(rdb.Raw(), "certhub:", cfg.StatusCacheTTL), nil
}

func newSignatureStore(ctx context.Context, cfg config.Config, prom *observability.Prom, log *slog.Logger) (blob.SignatureStore, error) {
	if cfg.Bucket == "" {
		log.Warn("signature_store", "backend", "memory", "reason", "CLIENT_BUCKET not set")
		return blob.NewMemoryStore(), nil
	}

	store, err := blob.NewS3Store(ctx, blob.S3Config{
		AccessKeyID:     cfg.AWSAccessKeyID,
		SecretAccessKey: cfg.AWSSecretAccessKey,
		Region:          cfg.AWSRegion,
		Bucket:          cfg.Bucket,
		Endpoint:        cfg.S3Endpoint,
	}, prom)
	if err != nil {
		return nil, fmt.Errorf("s3 store: %w", err)
	}
	return store, nil
}

func newNotifier(cfg config.Config, prom *observability.Prom, log *slog.Logger) notifications.Notifier {
	if cfg.ResendAPIKey == "" {
		log.Warn("notifier", "backend", "log", "reason", "RESEND_API_KEY not set")
		return notifications.NewLogNotifier(log)
	}
	return notifications.NewResendNotifier(resend.NewClient(cfg.ResendAPIKey), cfg.EmailFrom, log, prom)
}

func (a *App) Close() error {
	var first error
	for _, c := range a.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
