package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/baechuer/storefront-auth/internal/application/auth"
	"github.com/baechuer/storefront-auth/internal/config"
	"github.com/baechuer/storefront-auth/internal/infrastructure/db/postgres"
	"github.com/baechuer/storefront-auth/internal/infrastructure/memory"
	"github.com/baechuer/storefront-auth/internal/infrastructure/messaging/rabbitmq"
	"github.com/baechuer/storefront-auth/internal/infrastructure/redis"
	"github.com/baechuer/storefront-auth/internal/infrastructure/security"
	"github.com/baechuer/storefront-auth/internal/logger"
	"github.com/baechuer/storefront-auth/internal/metrics"
	http_handlers "github.com/baechuer/storefront-auth/internal/transport/http/handlers"
	"github.com/baechuer/storefront-auth/internal/transport/http/middleware"
	"github.com/baechuer/storefront-auth/internal/transport/http/response"
	"github.com/baechuer/storefront-auth/internal/transport/http/router"
)

/*
========================
 Public entry (prod)
========================
*/

func NewServer() (*http.Server, func(), error) {
	return newServer(defaultDeps())
}

// NewServerWithDeps allows injecting dependencies for testing
func NewServerWithDeps(deps Deps) (*http.Server, func(), error) {
	return newServer(deps)
}

/*
========================
 Dependency injection
========================
*/

type Deps struct {
	LoadConfig func() (*config.Config, error)

	NewDB func(dsn string, maxOpen, maxIdle int, debug bool) (*sql.DB, error)

	Migrate func(ctx context.Context, db *sql.DB) error

	NewRedis func(addr, password string, db int) *redis.Client

	NewNotifier func(cfg *config.Config) (NotifierCloser, error)

	NewRouter func(router.Deps) (http.Handler, error)
}

type NotifierCloser interface {
	auth.Notifier
	Close() error
}

/*
========================
 Core bootstrap logic
========================
*/

func newServer(deps Deps) (*http.Server, func(), error) {
	// 0) config + logger
	cfg, err := deps.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	var cleanupFns []func()
	fail := func(err error) (*http.Server, func(), error) {
		runCleanup(cleanupFns)
		return nil, nil, err
	}

	// 1) security
	pool := security.NewPool(cfg.HashWorkers)
	hasher := security.NewBcryptHasher(cfg.BcryptCost, pool)
	strength := security.NewStrengthGate(cfg.MinPasswordScore, pool)
	signer := security.NewJWTSigner(cfg.JWTSecret, cfg.JWTIssuer)
	tokens := security.NewOpaqueTokens(32)
	logger.Logger.Info().
		Str("issuer", cfg.JWTIssuer).
		Int("hash_workers", pool.Size()).
		Msg("security initialized")

	// 2) user store
	checks := map[string]http_handlers.Pinger{}
	var users auth.UserRepo

	switch cfg.Store {
	case config.StoreMemory:
		repo := memory.NewUserRepo()
		if cfg.IsDev() {
			memory.SeedUsers(context.Background(), repo, hasher)
		}
		users = repo
		logger.Logger.Warn().Msg("using in-memory user store; data is lost on restart")

	default:
		db, err := deps.NewDB(cfg.DBAddr, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns, cfg.IsDev())
		if err != nil {
			return fail(err)
		}
		cleanupFns = append(cleanupFns, func() { _ = db.Close() })

		if cfg.DBMigrate && deps.Migrate != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			err := deps.Migrate(ctx, db)
			cancel()
			if err != nil {
				return fail(err)
			}
		}

		users = postgres.NewUserRepo(db)
		checks["database"] = http_handlers.PingFunc(db.PingContext)
	}

	// 3) redis (best-effort)
	var redisCli *redis.Client
	if cfg.RedisAddr != "" && deps.NewRedis != nil {
		c := deps.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := c.Ping(context.Background()); err != nil {
			logger.Logger.Warn().Err(err).Msg("redis unavailable; using in-process rate limiting")
			_ = c.Close()
		} else {
			logger.Logger.Info().Msg("redis connected")
			redisCli = c
			cleanupFns = append(cleanupFns, func() { _ = c.Close() })
			checks["redis"] = c
		}
	}

	// 4) notifier
	notifier, err := deps.NewNotifier(cfg)
	if err != nil {
		if !cfg.IsDev() {
			return fail(err)
		}
		logger.Logger.Warn().Err(err).Msg("rabbitmq unavailable; verification links will be written to the log")
		notifier = devNotifier(cfg)
	}
	cleanupFns = append(cleanupFns, func() { _ = notifier.Close() })

	// 5) service
	authSvc := auth.NewService(
		users,
		hasher,
		strength,
		signer,
		tokens,
		notifier,
		auth.Config{
			AccessTTL:           cfg.AccessTokenTTL,
			RefreshTTL:          cfg.RefreshTokenTTL,
			VerifyEmailTokenTTL: cfg.VerifyEmailTokenTTL,
		},
	)

	authSvc = authSvc.WithAudit(func(action string, fields map[string]string) {
		evt := logger.Logger.Info().
			Bool("audit", true).
			Str("action", action)
		for k, v := range fields {
			evt = evt.Str(k, v)
		}
		evt.Msg("audit")

		metrics.ObserveAudit(action, fields)
	})

	// 6) handlers + middleware
	authH := http_handlers.NewAuthHandler(authSvc)
	healthH := http_handlers.NewHealthHandler(checks)
	authMW := middleware.Auth(signer, response.WriteError)

	rlCfg := middleware.FixedWindowConfig{
		RouteKey: "auth",
		Limit:    cfg.AuthRateLimit,
		Window:   cfg.AuthRateWindow,

		TrustProxy: cfg.TrustProxy,
	}
	var rateLimitMW func(http.Handler) http.Handler
	if redisCli != nil {
		rateLimitMW = middleware.RateLimitFixedWindow(redis.NewFixedWindowLimiter(redisCli), rlCfg, response.WriteError)
	} else {
		rateLimitMW = middleware.RateLimitInProcess(rlCfg, response.WriteError)
	}

	// 7) router
	mux, err := deps.NewRouter(router.Deps{
		Health:      healthH,
		Auth:        authH,
		AuthMW:      authMW,
		RateLimitMW: rateLimitMW,
	})
	if err != nil {
		return fail(err)
	}

	// 8) server
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadTimeout:       cfg.HTTPReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
	}

	cleanup := func() {
		runCleanup(cleanupFns)
	}

	return srv, cleanup, nil
}

/*
========================
 Default deps (prod)
========================
*/

func defaultDeps() Deps {
	return Deps{
		LoadConfig: config.Load,
		NewDB:      config.NewDB,
		Migrate:    postgres.Migrate,
		NewRedis:   redis.New,
		NewNotifier: func(cfg *config.Config) (NotifierCloser, error) {
			if cfg.RabbitURL == "" {
				if !cfg.IsDev() {
					return nil, errors.New("RABBIT_URL is required outside dev")
				}
				return devNotifier(cfg), nil
			}
			n, err := rabbitmq.NewNotifier(cfg.RabbitURL, cfg.RabbitExchange, cfg.VerifyEmailBaseURL)
			if err != nil {
				return nil, err
			}
			return n, nil
		},
		NewRouter: router.New,
	}
}

/*
========================
 helpers
========================
*/

func runCleanup(fns []func()) {
	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}

// devNotifier logs the full verification link instead of publishing it.
func devNotifier(cfg *config.Config) *memory.LogNotifier {
	return memory.NewLogNotifier().WithVerifyLinks(func(token string) string {
		return rabbitmq.VerifyLink(cfg.VerifyEmailBaseURL, token)
	})
}
