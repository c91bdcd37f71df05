package main

import (
	"context"
	"log"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/fastygo/sessionguard/api/handler"
	"github.com/fastygo/sessionguard/internal/cache"
	"github.com/fastygo/sessionguard/internal/config"
	"github.com/fastygo/sessionguard/internal/infrastructure/buffer"
	"github.com/fastygo/sessionguard/internal/infrastructure/geo"
	"github.com/fastygo/sessionguard/internal/infrastructure/mail"
	"github.com/fastygo/sessionguard/internal/infrastructure/monitor"
	pgInfra "github.com/fastygo/sessionguard/internal/infrastructure/postgres"
	redisInfra "github.com/fastygo/sessionguard/internal/infrastructure/redis"
	"github.com/fastygo/sessionguard/internal/middleware"
	"github.com/fastygo/sessionguard/internal/ratelimit"
	"github.com/fastygo/sessionguard/internal/router"
	"github.com/fastygo/sessionguard/internal/services"
	"github.com/fastygo/sessionguard/internal/services/lifecycle"
	"github.com/fastygo/sessionguard/pkg/httpcontext"
	"github.com/fastygo/sessionguard/pkg/logger"
	"github.com/fastygo/sessionguard/pkg/password"
	"github.com/fastygo/sessionguard/repository/postgres"
	redisRepo "github.com/fastygo/sessionguard/repository/redis"
	authUC "github.com/fastygo/sessionguard/usecase/auth"
	"github.com/fastygo/sessionguard/usecase/session"
	usersUC "github.com/fastygo/sessionguard/usecase/users"
	"github.com/fastygo/sessionguard/usecase/verification"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()
	zapLogger = zapLogger.With(zap.String("app", cfg.AppName), zap.String("env", cfg.Environment))

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	appCtx, stop := manager.Listen(context.Background())
	defer stop()

	if err := pgInfra.RunMigrations(cfg, zapLogger); err != nil {
		zapLogger.Fatal("migrations failed", zap.Error(err))
	}

	pool, err := pgInfra.NewPool(appCtx, cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("postgres connection failed", zap.Error(err))
	}
	manager.Register("postgres", lifecycle.FromStop(func() { pgInfra.Close(pool, zapLogger) }))

	redisClient, err := redisInfra.NewClient(appCtx, cfg.Redis, zapLogger)
	if err != nil {
		zapLogger.Fatal("redis connection failed", zap.Error(err))
	}
	manager.Register("redis", lifecycle.FromCloser(redisClient.Close))

	outboxStore, err := buffer.Open(cfg.Outbox.Path, "")
	if err != nil {
		zapLogger.Fatal("failed to open outbox store", zap.Error(err))
	}
	manager.Register("outbox_store", lifecycle.FromCloser(outboxStore.Close))

	mon := monitor.New(pool, redisClient, outboxStore, 0, zapLogger)
	mon.Start()
	manager.Register("monitor", lifecycle.FromStop(mon.Stop))

	userRepo := postgres.NewUserRepository(pool)
	sessionRepo := postgres.NewSessionRepository(pool)
	codeRepo := postgres.NewCodeRepository(pool)
	sessionCache := redisRepo.NewSessionCache(redisClient, cfg.Session.RedisSessionTTL, cfg.Session.RedisUserTTL)
	codeCache := redisRepo.NewCodeCache(redisClient)

	workers := services.NewPool(services.PoolConfig{
		Workers:     cfg.Workers.Size,
		QueueSize:   cfg.Workers.QueueSize,
		TaskTimeout: cfg.Workers.TaskTimeout,
	}, zapLogger)
	manager.Register("workers", workers.Close)

	outbox := services.NewOutboxProcessor(outboxStore, mon, sessionCache, zapLogger, services.OutboxConfig{
		Interval:   cfg.Outbox.SyncInterval,
		BatchSize:  cfg.Outbox.BatchSize,
		MaxRetries: cfg.Outbox.MaxRetry,
		Retention:  cfg.Outbox.Retention,
	})
	outbox.Start()
	manager.Register("outbox_processor", outbox.Stop)

	sweeper := services.NewSweeper(cfg.Sweeper.Interval, zapLogger)
	sweeper.Add("sessions", sessionRepo)
	sweeper.Add("unique_code", codeRepo)
	sweeper.Start()
	manager.Register("sweeper", sweeper.Stop)

	sessions := session.NewManager(sessionRepo, sessionCache, workers, outbox, session.Config{
		RefreshWindow: cfg.Session.RefreshWindow,
		MaxDuration:   cfg.Session.MaxDuration,
		LocalCache: cache.Config{
			MaxSize: cfg.Session.LocalCacheSize,
			TTL:     cfg.Session.LocalCacheTTL,
		},
	}, zapLogger)

	codes := verification.NewService(codeRepo, codeCache, verification.Config{
		Lifetime:   cfg.Codes.Lifetime,
		CacheTTL:   cfg.Codes.CacheTTL,
		CodeLength: cfg.Codes.Length,
	}, zapLogger)

	mailer := mail.New(mail.Config{
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
		From:     cfg.Mail.From,
		AppName:  cfg.AppName,
	}, zapLogger)

	geoCfg := geo.Config{Timeout: cfg.Geo.Timeout}
	if cfg.Geo.Enabled {
		geoCfg.Endpoint = cfg.Geo.Endpoint
	}
	locator := geo.NewLocator(geoCfg, nil, zapLogger)

	authUseCase := authUC.New(userRepo, codes, sessions, password.NewHasher(password.DefaultParams()), mailer, locator, zapLogger)
	usersUseCase := usersUC.New(userRepo, zapLogger)

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)
	cookieCfg := httpcontext.CookieConfig{Name: cfg.Session.CookieName, Secure: cfg.Session.CookieSecure}

	handlers := router.Handlers{
		Auth:   apiHandler.NewAuthHandler(authUseCase, cookieCfg, ctxAdapter, zapLogger),
		Users:  apiHandler.NewUsersHandler(usersUseCase, ctxAdapter, zapLogger),
		Health: apiHandler.NewHealthHandler(mon, ctxAdapter, zapLogger),
	}

	limiter := ratelimit.New(redisClient, ratelimit.Options{
		Window:    cfg.RateLimit.Window,
		Max:       cfg.RateLimit.Max,
		KeyPrefix: cfg.RateLimit.KeyPrefix,
	})
	r := router.New(handlers, router.Middlewares{
		RateLimit: middleware.RateLimit(limiter, cfg.Context.RequestTimeout, zapLogger),
		Session:   middleware.Session(sessions, ctxAdapter, cookieCfg, zapLogger),
	})

	server := &fasthttp.Server{
		Handler:      r.Handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		Concurrency:  cfg.HTTP.MaxConn,
		Name:         cfg.AppName,
	}

	go func() {
		zapLogger.Info("server started", zap.String("address", cfg.Address()))
		if err := server.ListenAndServe(cfg.Address()); err != nil {
			zapLogger.Fatal("server crashed", zap.Error(err))
		}
	}()

	manager.Register("http_server", func(ctx context.Context) error {
		return server.ShutdownWithContext(ctx)
	})

	<-appCtx.Done()

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}
