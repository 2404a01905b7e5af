package admin

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"story-engine/internal/judgment"
	"story-engine/shared/utils"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config - настройки админ-сервиса. Читается из YAML-файла, переменные окружения
// перекрывают значения из файла.
type Config struct {
	Env         string `yaml:"env" env:"ADMIN_ENV" env-default:"production"`
	Port        string `yaml:"port" env:"ADMIN_PORT" env-default:"8090"`
	LogLevel    string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	LogEncoding string `yaml:"log_encoding" env:"LOG_ENCODING" env-default:"json"`
	SecretsDir  string `yaml:"secrets_dir" env:"SECRETS_DIR" env-default:"/run/secrets"`

	StoryPath string `yaml:"story_path" env:"STORY_PATH" env-default:"stories/three_goods.yaml"`

	// Через запятую. Пусто - разрешаем только http://localhost:3000
	AllowedOrigins string `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS"`

	Judge JudgeConfig `yaml:"judge"`
}

// JudgeConfig - удаленный судья для пробных оценок.
type JudgeConfig struct {
	Backend     string        `yaml:"backend" env:"JUDGE_BACKEND" env-default:"none"`
	BaseURL     string        `yaml:"base_url" env:"JUDGE_BASE_URL"`
	Model       string        `yaml:"model" env:"JUDGE_MODEL"`
	Temperature float32       `yaml:"temperature" env:"JUDGE_TEMPERATURE" env-default:"0.2"`
	MaxTokens   int           `yaml:"max_tokens" env:"JUDGE_MAX_TOKENS" env-default:"512"`
	Timeout     time.Duration `yaml:"timeout" env:"JUDGE_TIMEOUT" env-default:"15s"`
	APIKey      string        `yaml:"-" env:"-"`
}

// LoadConfig читает файл path, если он задан и существует, иначе только окружение.
// Ключ удаленного судьи берется из файла judge_api_key в SECRETS_DIR.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	var err error
	if path != "" {
		if _, statErr := os.Stat(path); statErr == nil {
			err = cleanenv.ReadConfig(path, &cfg)
		} else if errors.Is(statErr, os.ErrNotExist) {
			err = cleanenv.ReadEnv(&cfg)
		} else {
			return nil, fmt.Errorf("stat admin config %s: %w", path, statErr)
		}
	} else {
		err = cleanenv.ReadEnv(&cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("load admin config: %w", err)
	}

	if cfg.Judge.APIKey, err = utils.ReadOptionalSecret(cfg.SecretsDir, "judge_api_key"); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// GetAllowedOrigins разбирает список CORS-источников.
func (c *Config) GetAllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func (c *Config) JudgeBackendConfig() judgment.BackendConfig {
	return judgment.BackendConfig{
		Type:        c.Judge.Backend,
		BaseURL:     c.Judge.BaseURL,
		Model:       c.Judge.Model,
		APIKey:      c.Judge.APIKey,
		Temperature: c.Judge.Temperature,
		MaxTokens:   c.Judge.MaxTokens,
		HTTPTimeout: c.Judge.Timeout,
	}
}
