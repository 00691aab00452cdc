// Package main is the entrypoint for the ProManager API server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/hhaamed74/promanager-api/internal/activity"
	"github.com/hhaamed74/promanager-api/internal/activitylog"
	"github.com/hhaamed74/promanager-api/internal/auth"
	"github.com/hhaamed74/promanager-api/internal/cache"
	"github.com/hhaamed74/promanager-api/internal/config"
	"github.com/hhaamed74/promanager-api/internal/handler"
	"github.com/hhaamed74/promanager-api/internal/metrics"
	"github.com/hhaamed74/promanager-api/internal/middleware"
	"github.com/hhaamed74/promanager-api/internal/repository"
	"github.com/hhaamed74/promanager-api/internal/server"
	"github.com/hhaamed74/promanager-api/internal/service"
	"github.com/hhaamed74/promanager-api/internal/storage"
	"github.com/hhaamed74/promanager-api/internal/telemetry"
)

func main() {
	if err := run(context.Background()); err != nil {
		slog.Error("fatal", "error", err.Error())
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := initLogger(cfg)

	tp, err := telemetry.New(ctx, telemetry.Config{
		Endpoint:    cfg.OTELEndpoint,
		Insecure:    cfg.OTELInsecure,
		ServiceName: cfg.ServiceName,
		Environment: cfg.AppEnv,
	}, logger)
	if err != nil {
		return err
	}

	if cfg.MigrateOnStart {
		if err := repository.Migrate(ctx, cfg.DatabaseURL); err != nil {
			logger.Error("failed to run migrations",
				slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
				slog.String("database_url", redactURL(cfg.DatabaseURL)),
			)
			return errors.New("migrations failed")
		}
		logger.Info("migrations applied")
	}

	// Initialize database
	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		return errors.New("database unavailable")
	}
	logger.Info("connected to database")

	// Initialize cache
	cacheClient, err := cache.New(ctx, cache.Options{
		URL:          cfg.RedisURL,
		PoolSize:     cfg.RedisPoolSize,
		MinIdleConns: cfg.RedisMinIdleConns,
	})
	if err != nil {
		repo.Close()
		logger.Error("failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		return errors.New("redis unavailable")
	}
	logger.Info("connected to Redis")

	uploader, err := storage.New(ctx, cfg, logger)
	if err != nil {
		repo.Close()
		_ = cacheClient.Close()
		return err
	}

	recorder := metrics.NewInMemory()

	var publisher service.ActivityPublisher = activitylog.Discard{}
	var worker *activitylog.Worker
	if cfg.ActivityLogEnabled {
		publisher = activitylog.NewPublisher(cacheClient.Client(), logger, recorder)
		worker = activitylog.NewWorker(cacheClient.Client(), repo, logger, activitylog.NewConsumerID(), recorder)
		worker.SetClaimIdle(cfg.ActivityLogClaimIdle)
	}

	tokens := auth.NewTokenManager([]byte(cfg.JWTSecret), cfg.JWTTTL)
	accounts := service.NewAccountService(service.AccountDeps{
		Accounts:       repo,
		Projects:       repo,
		Cache:          cacheClient,
		Tokens:         tokens,
		Uploader:       uploader,
		MaxUploadBytes: cfg.UploadMaxBytes,
		Activity:       publisher,
		Metrics:        recorder,
		Logger:         logger,
	})
	projects := service.NewProjectService(service.ProjectDeps{
		Projects:       repo,
		Uploader:       uploader,
		MaxUploadBytes: cfg.UploadMaxBytes,
		Activity:       publisher,
		Metrics:        recorder,
		Logger:         logger,
	})
	guard := auth.NewGuard(tokens, accounts, logger)
	feed := activity.NewFeed(repo, repo, logger)

	deps := routerDeps{
		cfg:       cfg,
		logger:    logger,
		index:     handler.New(),
		health:    handler.NewHealthHandler(readinessDeps(repo, cacheClient, uploader)...),
		metrics:   handler.NewMetricsHandler(recorder),
		auth:      handler.NewAuthHandler(accounts, logger),
		admin:     handler.NewAdminHandler(accounts, feed, repo, recorder, logger),
		projects:  handler.NewProjectHandler(projects, logger),
		guard:     guard,
		buckets:   cacheClient,
		recorder:  recorder,
		ipLimiter: middleware.NewIPRateLimiter(cfg.RateLimitAuthRPM, logger),
	}
	if local, ok := uploader.(*storage.LocalUploader); ok {
		deps.uploadDir = local.Dir()
	}

	srv := server.New(setupRouter(deps), server.Options{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	// Stopped in reverse: worker, tracing, cache, database.
	srv.OnShutdown("postgres", func(context.Context) error {
		repo.Close()
		return nil
	})
	srv.OnShutdown("redis", func(context.Context) error {
		return cacheClient.Close()
	})
	srv.OnShutdown("telemetry", tp.Shutdown)

	if worker != nil {
		workerCtx, cancelWorker := context.WithCancel(ctx)
		defer cancelWorker()
		go func() {
			if err := worker.Run(workerCtx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("activity log worker stopped", slog.String("error", err.Error()))
			}
		}()
		srv.OnShutdown("activity-log-worker", worker.Shutdown)
	}

	logger.Info("starting server",
		"port", cfg.AppPort,
		"base_url", cfg.BaseURL,
		"env", cfg.AppEnv,
		"upload_backend", cfg.UploadBackend,
		"activity_log", cfg.ActivityLogEnabled,
	)

	return srv.Run()
}

// readinessDeps lists what /readyz pings. Uploaders that can report their
// health are included.
func readinessDeps(repo, redis handler.HealthChecker, uploader storage.Uploader) []handler.Dependency {
	deps := []handler.Dependency{
		{Name: "postgres", Checker: repo},
		{Name: "redis", Checker: redis},
	}
	if checker, ok := uploader.(handler.HealthChecker); ok {
		deps = append(deps, handler.Dependency{Name: "uploads", Checker: checker})
	}
	return deps
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
