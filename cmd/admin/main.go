package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"story-engine/internal/admin"
	"story-engine/internal/judgment"
	"story-engine/internal/story"
	sharedLogger "story-engine/shared/logger"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config/admin.yaml", "path to admin config file")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := admin.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load admin configuration: %v", err)
	}

	logger, err := sharedLogger.New(sharedLogger.Config{
		Level:    cfg.LogLevel,
		Encoding: cfg.LogEncoding,
		Service:  "story-admin",
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	graph, err := story.Load(cfg.StoryPath)
	if err != nil {
		logger.Fatal("Failed to load story", zap.String("path", cfg.StoryPath), zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// go-gin-prometheus пишет в глобальный реестр, метрики судьи кладем туда же
	judgeMetrics := judgment.NewMetrics(prometheus.DefaultRegisterer)
	remote, err := judgment.NewRemoteClassifier(ctx, cfg.JudgeBackendConfig(), judgeMetrics, logger)
	if err != nil {
		logger.Fatal("Failed to create remote judge", zap.Error(err))
	}
	engine := judgment.NewEngine(judgment.NewLocalClassifier(graph.Explanations(), logger), remote,
		judgment.Config{Timeout: cfg.Judge.Timeout}, judgeMetrics, logger)

	gin.SetMode(gin.ReleaseMode)
	if cfg.Env == "development" {
		gin.SetMode(gin.DebugMode)
	}
	router := admin.NewRouter(
		admin.NewStoryHandler(graph, cfg.StoryPath, engine, logger),
		admin.RouterOptions{AllowedOrigins: cfg.GetAllowedOrigins(), MetricsSubsystem: "story_admin"},
		logger,
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Starting admin HTTP server", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Admin HTTP server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down admin server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Admin server shutdown failed", zap.Error(err))
	}
	logger.Info("Admin server stopped")
}
