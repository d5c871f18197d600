package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Proton-105/pollbot/internal/bot"
	"github.com/Proton-105/pollbot/internal/bot/handlers"
	errors "github.com/Proton-105/pollbot/internal/errors"
	"github.com/Proton-105/pollbot/internal/health"
	"github.com/Proton-105/pollbot/internal/idempotency"
	"github.com/Proton-105/pollbot/internal/lifecycle"
	"github.com/Proton-105/pollbot/internal/middleware"
	"github.com/Proton-105/pollbot/internal/ratelimit"
	"github.com/Proton-105/pollbot/internal/telegram"
	"github.com/Proton-105/pollbot/pkg/config"
	"github.com/Proton-105/pollbot/pkg/graceful"
	"github.com/Proton-105/pollbot/pkg/logger"
	redispkg "github.com/Proton-105/pollbot/pkg/redis"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "pollbot: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, v, err := config.Load()
	if err != nil {
		return err
	}

	level := new(slog.LevelVar)
	level.Set(logger.ParseLevel(cfg.Log.Level))

	if cfg.Sentry.Enabled {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: sentryEnvironment(cfg),
		}); err != nil {
			return fmt.Errorf("init sentry: %w", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	log := logger.New(logger.Options{
		Level:         level,
		Format:        cfg.Log.Format,
		File:          cfg.Log.File,
		MaxSizeMB:     cfg.Log.MaxSizeMB,
		MaxBackups:    cfg.Log.MaxBackups,
		MaxAgeDays:    cfg.Log.MaxAgeDays,
		SentryEnabled: cfg.Sentry.Enabled,
		Secrets:       []string{cfg.Bot.Token},
	})
	slog.SetDefault(log)

	config.Watch(v, log, func(updated *config.Config) {
		level.Set(logger.ParseLevel(updated.Log.Level))
	})

	log.Info("starting bot",
		slog.String("env", cfg.AppEnv),
		slog.String("api_url", cfg.Bot.APIURL),
		slog.Duration("poll_timeout", cfg.Bot.PollTimeout),
		slog.String("fetch_failure_policy", cfg.Bot.FetchFailurePolicy),
	)

	client, err := telegram.New(telegram.Config{
		Token:          cfg.Bot.Token,
		BaseURL:        cfg.Bot.APIURL,
		RequestTimeout: cfg.Bot.EffectiveRequestTimeout(),
		SendRate:       cfg.Bot.SendRate,
	}, log.With(slog.String("component", "telegram")))
	if err != nil {
		return err
	}

	me, err := client.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("verify bot credential: %w", err)
	}
	log.Info("authorized", slog.String("username", me.Username), slog.Int64("bot_id", me.ID))

	shutdown := lifecycle.NewShutdown(log)
	checker := health.NewChecker(log, 5*time.Second)
	checker.AddCheck("telegram", client)

	var (
		limiter ratelimit.Limiter
		store   idempotency.Store
	)

	if cfg.Redis.Enabled {
		rdb, err := redispkg.New(ctx, redispkg.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		shutdown.Register("redis", func(context.Context) error { return rdb.Close() })
		checker.AddCheck("redis", rdb)

		limiter = ratelimit.NewRedisLimiter(rdb.Client, log)
		store = idempotency.NewRedisStore(rdb.Client, log)
	} else {
		memLimiter := ratelimit.NewMemoryLimiter(log)
		maxAge := 2 * cfg.RateLimit.Window
		if maxAge <= 0 {
			maxAge = time.Hour
		}
		go memLimiter.RunJanitor(ctx, time.Minute, maxAge)

		limiter = memLimiter
		store = idempotency.NewMemoryStore()
	}

	b, err := bot.New(bot.Config{
		PollTimeout:        cfg.Bot.PollTimeout,
		FetchFailurePolicy: bot.FetchFailurePolicy(cfg.Bot.FetchFailurePolicy),
		UnknownCommandText: cfg.Bot.UnknownCommandText,
	}, client, log.With(slog.String("component", "bot")))
	if err != nil {
		return err
	}

	b.OnError(errors.NewHandler(log, cfg.Sentry.Enabled).Handle)
	b.AddMiddleware(middleware.LogUpdates(log))
	b.AddMessageFilter(admission(cfg, limiter, store, me.Username, log))
	handlers.RegisterDefaults(b, b)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", health.LivenessHandler())
	mux.Handle("/readyz", health.ReadinessHandler(checker))

	srv := graceful.NewServer(log, &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           logger.Middleware(middleware.HTTPLogging(log)(mux)),
		ReadHeaderTimeout: 5 * time.Second,
	}, cfg.Server.ShutdownTimeout)

	serverErr := make(chan error, 1)
	go func() { serverErr <- srv.ListenAndServe(ctx) }()

	runErr := b.Start(ctx)
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	shutdown.Register("http", func(ctx context.Context) error {
		select {
		case err := <-serverErr:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	if err := shutdown.Execute(shutdownCtx); err != nil {
		log.Error("shutdown finished with errors", slog.Any("error", err))
	}

	if runErr != nil {
		return runErr
	}

	log.Info("bot stopped", slog.Int("offset", b.Offset()))
	return nil
}

// admission combines the configured allow-list, rate limit and dedupe rules; all must pass.
func admission(cfg *config.Config, limiter ratelimit.Limiter, store idempotency.Store, namespace string, log *slog.Logger) handlers.Filter {
	filters := []handlers.Filter{middleware.OnlyChats(cfg.Bot.AllowedChats...)}

	if cfg.Dedupe.Enabled {
		filters = append(filters, middleware.Dedupe(store, namespace, cfg.Dedupe.TTL, log))
	}
	if cfg.RateLimit.Enabled {
		filters = append(filters, middleware.RateLimit(limiter, cfg.RateLimit.Limit, cfg.RateLimit.Window, log))
	}

	return middleware.All(filters...)
}

func sentryEnvironment(cfg *config.Config) string {
	if cfg.Sentry.Environment != "" {
		return cfg.Sentry.Environment
	}
	return cfg.AppEnv
}
