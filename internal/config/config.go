package config

import (
	"fmt"
	"time"

	"story-engine/internal/judgment"
	"story-engine/shared/utils"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
)

// Config - настройки игрового сервера.
type Config struct {
	Port        string `envconfig:"SERVER_PORT" default:"8080"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	LogEncoding string `envconfig:"LOG_ENCODING" default:"json"`
	SecretsDir  string `envconfig:"SECRETS_DIR" default:"/run/secrets"`

	StoryPath string `envconfig:"STORY_PATH" default:"stories/three_goods.yaml"`

	// memory, postgres или redis
	SaveStore string `envconfig:"SAVE_STORE" default:"memory"`

	DBHost        string        `envconfig:"DB_HOST" default:"localhost"`
	DBPort        string        `envconfig:"DB_PORT" default:"5432"`
	DBUser        string        `envconfig:"DB_USER" default:"postgres"`
	DBName        string        `envconfig:"DB_NAME" default:"story_engine"`
	DBSSLMode     string        `envconfig:"DB_SSL_MODE" default:"disable"`
	DBMaxConns    int           `envconfig:"DB_MAX_CONNECTIONS" default:"10"`
	DBIdleTimeout time.Duration `envconfig:"DB_MAX_IDLE" default:"5m"`
	DBPassword    string        `ignored:"true"`

	RedisAddr    string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisDB      int           `envconfig:"REDIS_DB" default:"0"`
	RedisSaveTTL time.Duration `envconfig:"REDIS_SAVE_TTL" default:"720h"`

	// Пустой URL отключает публикацию событий.
	RabbitMQURL      string `envconfig:"RABBITMQ_URL"`
	StoryEventsQueue string `envconfig:"STORY_EVENTS_QUEUE" default:"story_events"`

	JudgeBackend     string        `envconfig:"JUDGE_BACKEND" default:"none"`
	JudgeBaseURL     string        `envconfig:"JUDGE_BASE_URL"`
	JudgeModel       string        `envconfig:"JUDGE_MODEL"`
	JudgeTemperature float32       `envconfig:"JUDGE_TEMPERATURE" default:"0.2"`
	JudgeMaxTokens   int           `envconfig:"JUDGE_MAX_TOKENS" default:"512"`
	JudgeTimeout     time.Duration `envconfig:"JUDGE_TIMEOUT" default:"15s"`
	JudgeMaxFailures uint32        `envconfig:"JUDGE_BREAKER_FAILURES" default:"5"`
	JudgeCooldown    time.Duration `envconfig:"JUDGE_BREAKER_COOLDOWN" default:"30s"`
	JudgeAPIKey      string        `ignored:"true"`

	SessionIdleTTL  time.Duration `envconfig:"SESSION_IDLE_TTL" default:"30m"`
	JanitorInterval time.Duration `envconfig:"JANITOR_INTERVAL" default:"1m"`

	JWTSecret string `ignored:"true"`
}

// GetDSN возвращает строку подключения к PostgreSQL.
func (c *Config) GetDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// JudgeBackendConfig собирает настройки клиента удаленного судьи.
func (c *Config) JudgeBackendConfig() judgment.BackendConfig {
	return judgment.BackendConfig{
		Type:        c.JudgeBackend,
		BaseURL:     c.JudgeBaseURL,
		Model:       c.JudgeModel,
		APIKey:      c.JudgeAPIKey,
		Temperature: c.JudgeTemperature,
		MaxTokens:   c.JudgeMaxTokens,
		HTTPTimeout: c.JudgeTimeout,
	}
}

func (c *Config) JudgeEngineConfig() judgment.Config {
	return judgment.Config{
		Timeout:            c.JudgeTimeout,
		BreakerMaxFailures: c.JudgeMaxFailures,
		BreakerCooldown:    c.JudgeCooldown,
	}
}

// LoadConfig читает переменные окружения, затем секреты из SECRETS_DIR.
// jwt_secret обязателен всегда, db_password только для postgres,
// judge_api_key только если выбран удаленный судья.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load server config: %w", err)
	}

	var err error
	if cfg.JWTSecret, err = utils.ReadSecret(cfg.SecretsDir, "jwt_secret"); err != nil {
		return nil, err
	}
	if cfg.SaveStore == "postgres" {
		if cfg.DBPassword, err = utils.ReadSecret(cfg.SecretsDir, "db_password"); err != nil {
			return nil, err
		}
	}
	if cfg.JudgeAPIKey, err = utils.ReadOptionalSecret(cfg.SecretsDir, "judge_api_key"); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Log пишет итоговую конфигурацию без секретов.
func (c *Config) Log(logger *zap.Logger) {
	logger.Info("Configuration loaded",
		zap.String("port", c.Port),
		zap.String("log_level", c.LogLevel),
		zap.String("story_path", c.StoryPath),
		zap.String("save_store", c.SaveStore),
		zap.String("db", fmt.Sprintf("postgres://%s:***@%s:%s/%s", c.DBUser, c.DBHost, c.DBPort, c.DBName)),
		zap.String("redis_addr", c.RedisAddr),
		zap.Bool("events_enabled", c.RabbitMQURL != ""),
		zap.String("judge_backend", c.JudgeBackend),
		zap.String("judge_model", c.JudgeModel),
		zap.Duration("judge_timeout", c.JudgeTimeout),
		zap.Bool("judge_api_key_set", c.JudgeAPIKey != ""),
		zap.Duration("session_idle_ttl", c.SessionIdleTTL),
	)
}
