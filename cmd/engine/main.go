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

	"pillscare/internal/chatbot"
	"pillscare/internal/config"
	"pillscare/internal/database"
	"pillscare/internal/engine"
	"pillscare/internal/engine/actors"
	"pillscare/internal/handlers"
	"pillscare/internal/logging"
	"pillscare/internal/middleware"
	"pillscare/internal/notify"
	"pillscare/internal/timeutil"
	"pillscare/internal/utils"
	"pillscare/internal/websocket"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/go-redis/redis/v8"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logger := logging.Init(cfg.LogLevel, cfg.LogFormat)

	if err := run(cfg, logger); err != nil {
		logger.Error("engine stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	metrics := utils.NewMetricsCollector()
	system := actor.NewActorSystem()

	store, err := openStore(cfg, system, metrics, logger)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(ctx); err != nil {
			logger.Warn("store close failed", "error", err)
		}
	}()

	catalog := chatbot.DefaultCatalog()
	if cfg.CatalogPath != "" {
		if catalog, err = chatbot.LoadCatalog(cfg.CatalogPath); err != nil {
			return err
		}
		logger.Info("chatbot catalog loaded", "path", cfg.CatalogPath, "categories", len(catalog.Categories))
	}
	classifier, err := chatbot.NewClassifier(catalog, chatbot.RandomPicker())
	if err != nil {
		return err
	}

	eng := engine.New(engine.Options{
		Store:         store,
		Notifier:      newNotifier(cfg, logger),
		Classifier:    classifier,
		Clock:         timeutil.SystemClock{},
		Location:      cfg.TimeZone,
		FallbackEmail: cfg.SMTP.FallbackEmail,
		Metrics:       metrics,
		Logger:        logger,
	})

	auth, err := middleware.NewAuthenticator(cfg.JWTSecret, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := websocket.NewHub(logger.With("component", "websocket"))
	go hub.Run(ctx)
	eng.Conversations.SetPublisher(hub)

	server := &handlers.Server{
		Engine:         eng,
		Auth:           auth,
		Limiter:        middleware.NewRateLimiter(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst, metrics),
		Hub:            hub,
		Metrics:        metrics,
		Clock:          timeutil.SystemClock{},
		Location:       cfg.TimeZone,
		StoreName:      cfg.Store.Type,
		AllowedOrigins: cfg.AllowedOrigins,
		RequestTimeout: cfg.Server.RequestTimeout,
		Logger:         logger,
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", httpServer.Addr, "store", cfg.Store.Type)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// openStore picks the persistence collaborator and optionally fronts it
// with the Redis unread counter.
func openStore(cfg *config.Config, system *actor.ActorSystem, metrics *utils.MetricsCollector, logger *slog.Logger) (database.Store, error) {
	var store database.Store
	switch cfg.Store.Type {
	case "postgres":
		pg, err := database.NewPostgresDB(cfg.Store.PostgresURI, logger.With("store", "postgres"))
		if err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := pg.InitializeTables(ctx); err != nil {
			pg.Close(ctx)
			return nil, err
		}
		store = pg
	case "mongo":
		mdb, err := database.NewMongoDB(cfg.Store.MongoURI, cfg.Store.MongoDB, logger.With("store", "mongo"))
		if err != nil {
			return nil, err
		}
		store = mdb
	default:
		store = actors.NewMemoryStore(system, cfg.Server.RequestTimeout, metrics, logger.With("store", "memory"))
	}

	if cfg.Store.RedisAddr == "" {
		return store, nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.Store.RedisAddr})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		// The counter is an optimisation; run without it.
		logger.Warn("redis unavailable, unread counts come from the store", "addr", cfg.Store.RedisAddr, "error", err)
		rdb.Close()
		return store, nil
	}
	logger.Info("unread counter enabled", "addr", cfg.Store.RedisAddr)
	return database.NewUnreadCounter(store, rdb, cfg.Store.RedisTTL, logger.With("store", "redis")), nil
}

func newNotifier(cfg *config.Config, logger *slog.Logger) notify.Notifier {
	smtp := notify.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Sender:   cfg.SMTP.SenderEmail,
		Password: cfg.SMTP.Password,
	}
	if !smtp.Configured() {
		logger.Warn("SENDER_EMAIL or SENDER_PASSWORD not set, alerts will be logged and reported undelivered")
		return notify.NewLogNotifier(logger)
	}
	return notify.NewSMTPNotifier(smtp, logger.With("component", "smtp"))
}
