package judgment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	BackendNone   = "none"
	BackendOpenAI = "openai"
	BackendOllama = "ollama"
	BackendGemini = "gemini"
)

// BackendConfig описывает подключение к удаленному судье.
type BackendConfig struct {
	Type        string
	BaseURL     string
	Model       string
	APIKey      string
	Temperature float32
	MaxTokens   int
	HTTPTimeout time.Duration
}

// NewRemoteClassifier создает клиента судьи по типу. Для "none" и пустого типа возвращает nil.
func NewRemoteClassifier(ctx context.Context, cfg BackendConfig, metrics *Metrics, logger *zap.Logger) (RemoteClassifier, error) {
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = DefaultTimeout
	}
	var (
		remote RemoteClassifier
		err    error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Type)) {
	case "", BackendNone:
		return nil, nil
	case BackendOpenAI:
		remote, err = newOpenAIClassifier(cfg, metrics, logger)
	case BackendOllama:
		remote, err = newOllamaClassifier(cfg, metrics, logger)
	case BackendGemini:
		remote, err = newGeminiClassifier(ctx, cfg, metrics, logger)
	default:
		return nil, fmt.Errorf("unknown judge backend %q", cfg.Type)
	}
	if err != nil {
		return nil, err
	}
	return remote, nil
}
