package admin

import (
	"net/http"
	"time"

	sharedMiddleware "story-engine/shared/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"
)

const defaultOrigin = "http://localhost:3000"

// RouterOptions - параметры сборки роутера админки.
type RouterOptions struct {
	AllowedOrigins []string
	// Пустая строка отключает /metrics. Коллекторы регистрируются в глобальном реестре,
	// поэтому в одном процессе метрики включаются один раз.
	MetricsSubsystem string
}

// NewRouter собирает gin.Engine с логированием, CORS, метриками и маршрутами историй.
func NewRouter(h *StoryHandler, opts RouterOptions, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.RedirectTrailingSlash = true
	router.Use(sharedMiddleware.ZapLoggingMiddlewareForGin(logger.Named("AdminHTTP")))
	router.Use(gin.Recovery())

	if opts.MetricsSubsystem != "" {
		p := ginprometheus.NewPrometheus(opts.MetricsSubsystem)
		p.Use(router)
	}

	corsConfig := cors.DefaultConfig()
	if len(opts.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = opts.AllowedOrigins
	} else {
		corsConfig.AllowOrigins = []string{defaultOrigin}
		logger.Info("CORS allowed origins not set, allowing default", zap.String("origin", defaultOrigin))
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	healthHandler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
	router.GET("/health", healthHandler)
	router.HEAD("/health", healthHandler)

	h.RegisterRoutes(router)
	return router
}
