package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/connect-therapy/session-chat/internal/config"
	"github.com/connect-therapy/session-chat/internal/handler"
	"github.com/connect-therapy/session-chat/internal/hub"
	"github.com/connect-therapy/session-chat/internal/model/participant"
	"github.com/connect-therapy/session-chat/internal/pubsub"
	"github.com/connect-therapy/session-chat/internal/service/session"
	pkglog "github.com/connect-therapy/session-chat/pkg/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load configuration")
	}

	pkglog.Init(pkglog.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty, ServiceName: "session-chat"})
	logger := pkglog.Component("main")
	if envErr != nil {
		logger.Debug().Err(envErr).Msg("no .env file, using system environment only")
	}

	bus, err := newPubSub(ctx, cfg.PubSub)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.PubSub.Driver).Msg("failed to initialize pubsub")
	}
	defer bus.Close()
	logger.Info().Str("driver", cfg.PubSub.Driver).Msg("pubsub ready")

	roomHub := hub.New(bus)
	if err := roomHub.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to start hub")
	}

	participants := participant.NewMemoryStore(participant.Seed())
	sessionService := session.NewService(participants)

	router := handler.NewRouter(participants, sessionService, roomHub, cfg.WebSocket)

	startServer(ctx, cfg.Server, router)
}

func newPubSub(ctx context.Context, cfg config.PubSubConfig) (pubsub.PubSub, error) {
	switch cfg.Driver {
	case config.DriverRedis:
		return pubsub.NewRedisPubSub(ctx, pubsub.RedisConfig{
			Address:      cfg.Redis.Address,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
	default:
		return pubsub.NewMemoryPubSub(256), nil
	}
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	logger := pkglog.Component("main")
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info().Str("addr", addr).Msg("session chat server listening")
	if err := runServer(ctx, srv, serverCfg.ShutdownTimeout); err != nil {
		logger.Fatal().Err(err).Msg("server error")
	}
}

func runServer(ctx context.Context, srv *http.Server, shutdownTimeout time.Duration) error {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
