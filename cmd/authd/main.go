// Command authd serves the authflow account API.
//
// Configuration comes from the environment, optionally seeded from a .env
// file outside production. Without REDIS_ADDR an embedded Redis is used,
// and without MONGO_URI users are kept in memory; both are refused when
// APP_ENV=production.
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

	"github.com/MrEthical07/authflow"
	"github.com/MrEthical07/authflow/httpapi"
	"github.com/MrEthical07/authflow/internal/logging"
	"github.com/MrEthical07/authflow/metrics/export/prometheus"
	"github.com/MrEthical07/authflow/middleware"
	"github.com/MrEthical07/authflow/notify"
	"github.com/MrEthical07/authflow/userstore/memory"
	"github.com/MrEthical07/authflow/userstore/mongostore"
	"github.com/alicebob/miniredis/v2"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	if os.Getenv("APP_ENV") != "production" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			fmt.Fprintln(os.Stderr, "authd: load .env:", err)
		}
	}

	s := loadSettings()
	log := logging.New(os.Stdout, "authd", logging.ParseLevel(s.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, s, log); err != nil {
		log.Error("authd failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, s settings, log *slog.Logger) error {
	if err := s.validate(); err != nil {
		return err
	}

	rdb, closeRedis, err := openRedis(s, log)
	if err != nil {
		return err
	}
	defer closeRedis()

	users, closeUsers, err := openUserStore(ctx, s, log)
	if err != nil {
		return err
	}
	defer closeUsers()

	notifier, closeNotifier, err := openNotifier(s, log)
	if err != nil {
		return err
	}
	defer closeNotifier()

	engine, err := authflow.New().
		WithConfig(s.engineConfig()).
		WithRedis(rdb).
		WithUserStore(users).
		WithNotifier(notifier).
		WithLogger(log).
		WithAuditSink(authflow.NewSlogSink(log)).
		Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer engine.Close()

	srv := &http.Server{
		Addr: s.Addr,
		Handler: httpapi.New(engine, httpapi.Options{
			Cookies: middleware.CookieOptions{Secure: s.Production},
			Logger:  log,
			Metrics: prometheus.New(engine).Handler(),
			Ready:   engine.Ready,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server starting", slog.String("addr", s.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", slog.Any("error", err))
		}
		log.Info("http server stopped")
		return nil
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func openRedis(s settings, log *slog.Logger) (redis.UniversalClient, func(), error) {
	if s.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     s.RedisAddr,
			Password: s.RedisPassword,
			DB:       s.RedisDB,
		})
		return rdb, func() { _ = rdb.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("start embedded redis: %w", err)
	}
	log.Warn("REDIS_ADDR not set, sessions are kept in an embedded redis", slog.String("addr", mr.Addr()))
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return rdb, func() {
		_ = rdb.Close()
		mr.Close()
	}, nil
}

func openUserStore(ctx context.Context, s settings, log *slog.Logger) (authflow.UserStore, func(), error) {
	if s.MongoURI == "" {
		log.Warn("MONGO_URI not set, users are kept in memory")
		return memory.New(), func() {}, nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongostore.Connect(connectCtx, s.MongoURI)
	if err != nil {
		return nil, nil, err
	}
	store := mongostore.New(client.Database(s.MongoDatabase), mongostore.DefaultCollection)
	if err := store.EnsureIndexes(connectCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, err
	}
	return store, func() { _ = client.Disconnect(context.Background()) }, nil
}

func openNotifier(s settings, log *slog.Logger) (authflow.Notifier, func(), error) {
	switch s.Notifier {
	case "log":
		return notify.NewLogNotifier(log), func() {}, nil
	case "smtp":
		n, err := notify.NewSMTPNotifier(s.SMTP)
		if err != nil {
			return nil, nil, err
		}
		return n, func() {}, nil
	case "kafka":
		n, err := notify.NewKafkaNotifier(s.Kafka)
		if err != nil {
			return nil, nil, err
		}
		return n, func() {
			if err := n.Close(); err != nil {
				log.Warn("kafka writer close failed", slog.Any("error", err))
			}
		}, nil
	default:
		return nil, nil, fmt.Errorf("unknown NOTIFIER %q", s.Notifier)
	}
}

