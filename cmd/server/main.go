// Command server runs the user account service: the HTTP API, the
// confirmation token store, and the outbox relay that streams audit log
// entries to Kafka.
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"custodia/internal/platform/config"
	"custodia/internal/platform/httpserver"
	"custodia/internal/platform/kafka"
	"custodia/internal/platform/logger"
	"custodia/internal/platform/metrics"
	platformpg "custodia/internal/platform/postgres"
	platformredis "custodia/internal/platform/redis"
	"custodia/internal/user/confirm"
	"custodia/internal/user/handler"
	"custodia/internal/user/outbox"
	"custodia/internal/user/service"
	"custodia/internal/user/store/postgres"
	"custodia/pkg/platform/middleware/principal"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Error("load config", zap.Error(err))
		return err
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		zap.NewExample().Error("build logger", zap.Error(err))
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.SetBuildInfo(version)

	db, err := platformpg.Connect(ctx, cfg.Postgres)
	if err != nil {
		log.Error("connect postgres", zap.Error(err))
		return err
	}
	defer db.Close()

	if err := postgres.EnsureSchema(ctx, db); err != nil {
		log.Error("ensure schema", zap.Error(err))
		return err
	}

	redisClient, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		log.Error("connect redis", zap.Error(err))
		return err
	}
	defer redisClient.Close()

	kafkaClient, err := kafka.NewClient(cfg.Kafka.Brokers, cfg.Kafka.ClientID)
	if err != nil {
		log.Error("connect kafka", zap.Error(err))
		return err
	}
	defer kafkaClient.Close()

	if err := kafka.EnsureTopic(ctx, kafkaClient, cfg.Kafka.Topic, 3); err != nil {
		log.Error("ensure topic", zap.Error(err))
		return err
	}

	tokens := confirm.NewRedisTokens(redisClient.Client)
	users := service.New(
		postgres.NewFactory(db),
		tokens,
		log,
		service.WithTokenTTL(cfg.Redis.TokenTTL),
	)

	verifier := principal.NewJWTVerifier([]byte(cfg.Server.JWTSigningKey))
	h := handler.New(users, verifier, log)

	router := chi.NewRouter()
	router.Get("/healthz", healthz(db, redisClient))
	router.Method(http.MethodGet, "/metrics", metrics.Handler())
	h.Register(router)

	relay := outbox.NewRelay(
		postgres.NewOutbox(db),
		outbox.NewKafkaPublisher(kafkaClient),
		log,
		outbox.WithTopic(cfg.Kafka.Topic),
		outbox.WithInterval(cfg.Outbox.Interval),
		outbox.WithBatchSize(cfg.Outbox.BatchSize),
	)

	srv := httpserver.New(cfg.Server.Addr, router)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http server starting", zap.String("addr", cfg.Server.Addr))
		return httpserver.Run(ctx, srv, cfg.Server.ShutdownTimeout)
	})
	g.Go(func() error {
		log.Info("outbox relay starting",
			zap.String("topic", cfg.Kafka.Topic),
			zap.Duration("interval", cfg.Outbox.Interval),
		)
		if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("shutdown with error", zap.Error(err))
		return err
	}
	log.Info("shutdown complete")
	return nil
}

func healthz(db *sql.DB, redis *platformredis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if err := db.PingContext(ctx); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		if err := redis.Health(ctx); err != nil {
			http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
