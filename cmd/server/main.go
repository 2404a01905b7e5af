package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"story-engine/internal/config"
	"story-engine/internal/handler"
	"story-engine/internal/judgment"
	"story-engine/internal/messaging"
	"story-engine/internal/presenter"
	"story-engine/internal/savestore"
	"story-engine/internal/service"
	"story-engine/internal/story"
	"story-engine/internal/worker"
	"story-engine/shared/authutils"
	sharedLogger "story-engine/shared/logger"
	sharedMiddleware "story-engine/shared/middleware"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := sharedLogger.New(sharedLogger.Config{
		Level:    cfg.LogLevel,
		Encoding: cfg.LogEncoding,
		Service:  "story-engine",
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	cfg.Log(logger)

	// Битый документ истории - ошибка данных, дальше не стартуем
	graph, err := story.Load(cfg.StoryPath)
	if err != nil {
		logger.Fatal("Failed to load story", zap.String("path", cfg.StoryPath), zap.Error(err))
	}
	logger.Info("Story loaded",
		zap.String("title", graph.Title()),
		zap.Int("nodes", graph.NodeCount()),
		zap.Stringer("start", graph.Start()),
	)
	for _, ref := range graph.Unreachable() {
		logger.Warn("Node is unreachable from the start node", zap.Stringer("node", ref))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	judgeMetrics := judgment.NewMetrics(reg)
	remote, err := judgment.NewRemoteClassifier(ctx, cfg.JudgeBackendConfig(), judgeMetrics, logger)
	if err != nil {
		logger.Fatal("Failed to create remote judge", zap.Error(err))
	}
	engine := judgment.NewEngine(judgment.NewLocalClassifier(graph.Explanations(), logger), remote, cfg.JudgeEngineConfig(), judgeMetrics, logger)
	if remote != nil {
		go judgment.WarmTokenizer()
	}

	store, closeStore, err := setupSaveStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to set up save store", zap.String("save_store", cfg.SaveStore), zap.Error(err))
	}
	defer closeStore()

	publisher, closePublisher := setupPublisher(cfg, logger)
	defer closePublisher()

	hub := presenter.NewHub(logger)
	go hub.Run(ctx)

	gameService := service.NewGameService(graph, engine, store, publisher, logger,
		service.WithPresenters(hub),
		service.WithMetrics(service.NewMetrics(reg)),
	)

	janitor := worker.NewSessionJanitor(gameService, cfg.JanitorInterval, cfg.SessionIdleTTL, logger)
	go janitor.Run(ctx)

	verifier, err := authutils.NewJWTVerifier(cfg.JWTSecret, logger)
	if err != nil {
		logger.Fatal("Failed to create JWT verifier", zap.Error(err))
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewRequestValidator()
	e.Use(sharedMiddleware.EchoZapLogger(logger))
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORSWithConfig(echoMiddleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	handler.NewGameHandler(gameService, verifier.VerifyToken, hub, logger).RegisterRoutes(e)

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Port))
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutdown signal received, starting graceful shutdown...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", zap.Error(err))
	}
	select {
	case <-janitor.Done():
	case <-shutdownCtx.Done():
		logger.Warn("Session janitor did not stop in time")
	}
	logger.Info("Story engine stopped")
}

// setupSaveStore выбирает хранилище сохранений по SAVE_STORE.
func setupSaveStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (savestore.Store, func(), error) {
	switch cfg.SaveStore {
	case "", "memory":
		logger.Warn("Using in-memory save store, saves are lost on restart")
		return savestore.NewMemoryStore(), func() {}, nil

	case "postgres":
		pool, err := setupDatabase(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		if err := savestore.ApplyMigrations(pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		logger.Info("Connected to PostgreSQL save store")
		return savestore.NewPostgresStore(pool, logger), pool.Close, nil

	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
		}
		logger.Info("Connected to Redis save store", zap.String("addr", cfg.RedisAddr))
		return savestore.NewRedisStore(client, cfg.RedisSaveTTL, logger), func() { _ = client.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown save store %q", cfg.SaveStore)
	}
}

func setupDatabase(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("parse DSN: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.DBMaxConns)
	poolCfg.MaxConnIdleTime = cfg.DBIdleTimeout

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(connectCtx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// setupPublisher подключает RabbitMQ. Брокер не обязателен: без него события не публикуются.
func setupPublisher(cfg *config.Config, logger *zap.Logger) (messaging.EventPublisher, func()) {
	if cfg.RabbitMQURL == "" {
		logger.Info("RABBITMQ_URL not set, story events are disabled")
		return messaging.NopPublisher{}, func() {}
	}
	conn, err := messaging.Dial(cfg.RabbitMQURL, 5, 5*time.Second, logger)
	if err != nil {
		logger.Error("RabbitMQ unavailable, story events are disabled", zap.Error(err))
		return messaging.NopPublisher{}, func() {}
	}
	publisher, ch, err := messaging.NewRabbitMQEventPublisher(conn, cfg.StoryEventsQueue, logger)
	if err != nil {
		_ = conn.Close()
		logger.Error("Failed to declare story events queue, story events are disabled", zap.Error(err))
		return messaging.NopPublisher{}, func() {}
	}
	logger.Info("Publishing story events", zap.String("queue", cfg.StoryEventsQueue))
	return publisher, func() {
		_ = ch.Close()
		_ = conn.Close()
	}
}
