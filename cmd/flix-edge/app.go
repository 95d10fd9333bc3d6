package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/flix-app/flix-cache/internal/config"
	"github.com/flix-app/flix-cache/pkg/bgsync"
	"github.com/flix-app/flix-cache/pkg/cache"
	"github.com/flix-app/flix-cache/pkg/client"
	"github.com/flix-app/flix-cache/pkg/connectivity"
	"github.com/flix-app/flix-cache/pkg/lifecycle"
	"github.com/flix-app/flix-cache/pkg/logging"
	"github.com/flix-app/flix-cache/pkg/notify"
	"github.com/flix-app/flix-cache/pkg/partition"
	"github.com/flix-app/flix-cache/pkg/strategy"
	"github.com/flix-app/flix-cache/pkg/worker"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// inboxSize is how many shown notifications the control API keeps.
const inboxSize = 50

// app holds every component of one edge process.
type app struct {
	cfg    *config.Config
	logger zerolog.Logger

	network *http.Client
	// fetcher is network retargeted so requests addressed to origin
	// reach the upstream.
	fetcher strategy.Fetcher
	origin  *url.URL
	redis   *redis.Client // nil for the memory store
	store   partition.Store

	controller *lifecycle.Controller
	router     *strategy.Router
	tracker    *connectivity.Tracker
	queue      *bgsync.Queue
	syncer     *bgsync.Syncer
	inbox      *notify.Inbox
	subs       *notify.MemorySubscriptions
	notify     *notify.Handler
	worker     *worker.Worker
	responses  *cache.ResponseCache

	// api is nil when no metadata API key is configured.
	api *client.Client
}

func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	a := &app{
		cfg:     cfg,
		logger:  logger,
		network: &http.Client{Timeout: cfg.RequestTimeout},
	}

	origin, err := url.Parse(cfg.Origin())
	if err != nil {
		return nil, fmt.Errorf("parse origin: %w", err)
	}
	a.origin = origin
	a.fetcher = strategy.Retarget(a.network, cfg.Origin(), cfg.Upstream())

	store, redisClient, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.store, a.redis = store, redisClient

	queue, err := bgsync.Open(cfg.SyncDBPath)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open sync queue: %w", err)
	}
	a.queue = queue

	lifecycleLogger := logging.NewLogger("lifecycle")
	a.controller = lifecycle.NewController(lifecycle.ControllerConfig{
		Store:           store,
		Fetcher:         a.fetcher,
		Origin:          cfg.Origin(),
		Version:         cfg.Version,
		Manifest:        cfg.Manifest,
		AutoSkipWaiting: cfg.AutoSkipWaiting,
		Logger:          &lifecycleLogger,
	})

	a.tracker = connectivity.NewTracker(
		logging.NewLogger("connectivity"),
		connectivity.WithOfflineThreshold(cfg.OfflineThreshold),
	)

	routerLogger := logging.NewLogger("router")
	a.router = strategy.NewRouter(strategy.Config{
		Store:    store,
		Fetcher:  a.fetcher,
		Names:    a.controller.Names(),
		Origin:   cfg.Origin(),
		Observer: a.tracker,
		Logger:   &routerLogger,
	})

	var forwarder bgsync.Forwarder
	if cfg.SyncEndpoint != "" {
		forwarder = bgsync.NewHTTPForwarder(cfg.SyncEndpoint, &http.Client{Timeout: cfg.RequestTimeout}, cfg.UserAgent)
	}
	a.syncer = bgsync.NewSyncer(queue, forwarder, logging.NewLogger("bgsync"))

	a.inbox = notify.NewInbox(inboxSize)
	a.subs = &notify.MemorySubscriptions{}
	a.notify = &notify.Handler{
		Notifier:      a.inbox,
		Navigator:     logNavigator{logger: logging.NewLogger("notify")},
		Subscriptions: a.subs,
		Logger:        logging.NewLogger("notify"),
	}

	workerLogger := logging.NewLogger("worker")
	a.worker = worker.New(worker.Config{
		Router:     a.router,
		Controller: a.controller,
		Syncer:     a.syncer,
		Notify:     a.notify,
		Logger:     &workerLogger,
	})

	a.responses = cache.New(cache.WithLogger(logging.NewLogger("response-cache")))

	if cfg.TMDBAPIKey != "" {
		apiLogger := logging.NewLogger("api-client")
		api, err := client.New(client.Config{
			BaseURL:   cfg.TMDBBaseURL,
			APIKey:    cfg.TMDBAPIKey,
			UserAgent: cfg.UserAgent,
			Transport: &strategy.Transport{Router: a.router},
			Cache:     a.responses,
			Timeout:   cfg.RequestTimeout,
			Logger:    &apiLogger,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("create api client: %w", err)
		}
		a.api = api
	}

	return a, nil
}

// openStore connects the configured partition backend.
func openStore(ctx context.Context, cfg *config.Config) (partition.Store, *redis.Client, error) {
	if cfg.Store != config.StoreRedis {
		return partition.NewMemoryStore(), nil, nil
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		redisClient.Close()
		return nil, nil, fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
	}
	return partition.NewRedisStoreWithPrefix(redisClient, cfg.RedisPrefix), redisClient, nil
}

// Close releases the queue and the Redis connection.
func (a *app) Close() error {
	var errs []error
	if a.queue != nil {
		errs = append(errs, a.queue.Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	return errors.Join(errs...)
}

// probe checks whether the upstream answers. It bypasses the router so the
// tracker is only told once, by StartProbe.
func (a *app) probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, a.cfg.Probe(), nil)
	if err != nil {
		return err
	}
	resp, err := a.fetcher.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// requireAPI returns the metadata client or an error naming the missing key.
func (a *app) requireAPI() (*client.Client, error) {
	if a.api == nil {
		return nil, errors.New("metadata API disabled: set FLIX_TMDB_API_KEY")
	}
	return a.api, nil
}

// logNavigator records the window a notification click would open.
type logNavigator struct {
	logger zerolog.Logger
}

func (n logNavigator) OpenWindow(ctx context.Context, path string) error {
	n.logger.Info().Str("path", path).Msg("Open window")
	return nil
}
